// Package scene drives the scripted scene graph: entering scenes, annotating
// choices with player-state availability, and resolving a chosen option into
// its effects.
package scene

import (
	"errors"
	"fmt"

	"github.com/torchlit/engine/internal/ability"
	"github.com/torchlit/engine/internal/adventure"
	"github.com/torchlit/engine/internal/dice"
	"github.com/torchlit/engine/internal/event"
	"github.com/torchlit/engine/internal/inventory"
)

// ErrUnknownScene indicates a transition target that is not in the graph.
var ErrUnknownScene = errors.New("unknown scene")

// ErrInvalidChoice indicates a choice index outside the scene's options.
var ErrInvalidChoice = errors.New("invalid choice")

// ErrChoiceUnavailable indicates a choice whose condition the player does not
// currently meet.
var ErrChoiceUnavailable = errors.New("choice unavailable")

// ErrNoScene indicates a choice was made before entering any scene.
var ErrNoScene = errors.New("no active scene")

// Resolution is the navigation outcome of a resolved choice. At most one of
// NextScene and Combat is set; both empty means the choice only mutated
// state.
type Resolution struct {
	NextScene string
	Combat    string
}

// Graph walks the scripted scenes of an adventure package.
type Graph struct {
	scenes  map[string]adventure.Scene
	checker *ability.Checker
	roller  *dice.Roller
	items   *inventory.Inventory
	bus     *event.Bus

	current string
}

// NewGraph creates a graph over the package's scenes.
func NewGraph(scenes map[string]adventure.Scene, checker *ability.Checker, roller *dice.Roller, items *inventory.Inventory, bus *event.Bus) *Graph {
	return &Graph{
		scenes:  scenes,
		checker: checker,
		roller:  roller,
		items:   items,
		bus:     bus,
	}
}

// Current returns the active scene ID, or the empty string before the first
// Enter.
func (g *Graph) Current() string {
	return g.current
}

// Enter makes a scene active and publishes its full choice list, each option
// annotated with whether the player currently qualifies for it.
func (g *Graph) Enter(sceneID string, player *adventure.Player) (adventure.Scene, error) {
	scene, ok := g.scenes[sceneID]
	if !ok {
		return adventure.Scene{}, fmt.Errorf("%w: %q", ErrUnknownScene, sceneID)
	}
	g.current = sceneID

	options := make([]event.ChoiceOption, len(scene.Choices))
	for i, choice := range scene.Choices {
		options[i] = event.ChoiceOption{
			Index:     i,
			Text:      choice.Text,
			Available: g.meetsCondition(choice.Condition, player),
		}
	}
	g.bus.Publish(event.SceneEntered{
		SceneID:  scene.ID,
		Text:     scene.Text,
		Choices:  options,
		GameOver: scene.GameOver,
		Victory:  scene.Victory,
	})
	return scene, nil
}

// Choices returns the options of the active scene the player qualifies for.
func (g *Graph) Choices(player *adventure.Player) []adventure.Choice {
	scene, ok := g.scenes[g.current]
	if !ok {
		return nil
	}
	available := make([]adventure.Choice, 0, len(scene.Choices))
	for _, choice := range scene.Choices {
		if g.meetsCondition(choice.Condition, player) {
			available = append(available, choice)
		}
	}
	return available
}

// ResolveChoice applies the choice at the given index into the active
// scene's full choice list and returns where the story goes next. Picking an
// option whose condition is not met resolves nothing.
func (g *Graph) ResolveChoice(index int, player *adventure.Player) (Resolution, error) {
	scene, ok := g.scenes[g.current]
	if !ok {
		return Resolution{}, ErrNoScene
	}
	if index < 0 || index >= len(scene.Choices) {
		return Resolution{}, fmt.Errorf("%w: index %d of %d options", ErrInvalidChoice, index, len(scene.Choices))
	}
	choice := scene.Choices[index]
	if !g.meetsCondition(choice.Condition, player) {
		return Resolution{}, fmt.Errorf("%w: %q", ErrChoiceUnavailable, choice.Text)
	}

	if choice.AddItem != "" {
		g.items.Add(choice.AddItem)
	}
	if choice.RemoveItem != "" {
		g.items.Remove(choice.RemoveItem)
	}
	if choice.SetFlag != "" {
		player.SetFlag(choice.SetFlag)
	}

	if choice.SkillCheck != nil {
		return g.resolveSkillCheck(choice.SkillCheck, player)
	}
	return Resolution{NextScene: choice.NextScene, Combat: choice.Combat}, nil
}

func (g *Graph) resolveSkillCheck(check *adventure.SkillCheck, player *adventure.Player) (Resolution, error) {
	result, err := g.checker.Check(player.Scores, check.Ability, check.DC)
	if err != nil {
		return Resolution{}, err
	}

	branch := check.Failure
	if result.Success {
		branch = check.Success
	}
	return g.applyBranch(branch, player)
}

func (g *Graph) applyBranch(branch adventure.BranchEffect, player *adventure.Player) (Resolution, error) {
	if branch.Text != "" {
		g.bus.Publish(event.LogMessage{Kind: event.LogInfo, Text: branch.Text})
	}
	if branch.AddItem != "" {
		g.items.Add(branch.AddItem)
	}
	if branch.SetFlag != "" {
		player.SetFlag(branch.SetFlag)
	}
	if branch.Damage != "" {
		roll, err := g.roller.Roll(branch.Damage)
		if err != nil {
			return Resolution{}, err
		}
		dealt := player.ApplyDamage(roll.Total)
		g.bus.Publish(event.LogMessage{
			Kind: event.LogCombat,
			Text: fmt.Sprintf("You take %d damage", dealt),
		})
		g.bus.Publish(event.PlayerChanged{
			Name:  player.Name,
			HP:    player.HP,
			MaxHP: player.MaxHP,
			Level: player.Level,
			XP:    player.XP,
			Gold:  player.Gold,
		})
	}
	return Resolution{NextScene: branch.NextScene, Combat: branch.Combat}, nil
}

func (g *Graph) meetsCondition(condition *adventure.Condition, player *adventure.Player) bool {
	if condition == nil {
		return true
	}
	if condition.HasItem != "" && !g.items.Has(condition.HasItem) {
		return false
	}
	if condition.NotHasItem != "" && g.items.Has(condition.NotHasItem) {
		return false
	}
	if condition.HasFlag != "" && !player.HasFlag(condition.HasFlag) {
		return false
	}
	return true
}
