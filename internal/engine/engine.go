// Package engine composes the game core: it owns the player sheet and the
// adventure package, wires the mechanical components to the event bus, and
// routes player input to the scripted scene graph or the generative
// storyteller.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/torchlit/engine/internal/ability"
	"github.com/torchlit/engine/internal/adventure"
	"github.com/torchlit/engine/internal/combat"
	"github.com/torchlit/engine/internal/dice"
	"github.com/torchlit/engine/internal/event"
	"github.com/torchlit/engine/internal/inventory"
	"github.com/torchlit/engine/internal/narrative"
	"github.com/torchlit/engine/internal/scene"
	"github.com/torchlit/engine/internal/tool"
)

// Mode selects how the story advances.
type Mode string

const (
	// ModeScripted walks the package's authored scene graph.
	ModeScripted Mode = "scripted"
	// ModeGenerative hands narration to the storyteller service.
	ModeGenerative Mode = "generative"
)

// ErrMissingTransport indicates generative mode without a storyteller
// transport.
var ErrMissingTransport = errors.New("generative mode requires a narrative transport")

// Options configures a new engine.
type Options struct {
	Mode Mode
	// Transport is required in generative mode.
	Transport narrative.Transport
	// Seed makes every die roll deterministic when non-zero.
	Seed int64
}

// Engine is the composition root for one play session.
type Engine struct {
	mode   Mode
	bus    *event.Bus
	pkg    *adventure.Package
	player *adventure.Player

	roller  *dice.Roller
	checker *ability.Checker
	items   *inventory.Inventory
	scenes  *scene.Graph
	combat  *combat.Engine
	tools   *tool.Dispatcher
	story   *narrative.Orchestrator

	inCombat      bool
	pendingCombat *adventure.CombatDef
	returnScene   string
}

// New builds an engine for the adventure package. The package's player sheet
// is copied; the package itself is treated as immutable shared content.
func New(pkg *adventure.Package, bus *event.Bus, opts Options) (*Engine, error) {
	if err := pkg.Validate(); err != nil {
		return nil, fmt.Errorf("validate adventure: %w", err)
	}
	mode := opts.Mode
	if mode == "" {
		mode = ModeScripted
	}
	if mode == ModeGenerative && opts.Transport == nil {
		return nil, ErrMissingTransport
	}

	player := pkg.Player
	e := &Engine{
		mode:   mode,
		bus:    bus,
		pkg:    pkg,
		player: &player,
	}

	if opts.Seed != 0 {
		e.roller = dice.NewSeededRoller(bus, opts.Seed)
	} else {
		e.roller = dice.NewRoller(bus)
	}
	e.checker = ability.NewChecker(e.roller, bus)
	e.items = inventory.New(pkg.Items, bus)
	e.items.SetOwned(player.Items)
	e.scenes = scene.NewGraph(pkg.Scenes, e.checker, e.roller, e.items, bus)
	e.combat = combat.NewEngine(pkg.Enemies, e.roller, e.items, bus)
	e.tools = tool.NewDispatcher(e.player, e.items, e.roller, e.checker, e, bus)
	if mode == ModeGenerative {
		e.story = narrative.NewOrchestrator(opts.Transport, e.tools, pkg, e.player, bus)
	}

	bus.Subscribe(event.TypeCombatEnded, func(ev event.Event) {
		e.onCombatEnded(ev.(event.CombatEnded))
	})
	return e, nil
}

// Player returns the live player sheet.
func (e *Engine) Player() *adventure.Player {
	return e.player
}

// InCombat reports whether a combat encounter owns the turn flow.
func (e *Engine) InCombat() bool {
	return e.inCombat
}

// Start begins the session: the start scene in scripted mode, the opening
// narrative request in generative mode.
func (e *Engine) Start(ctx context.Context) error {
	e.publishPlayer()
	if e.mode == ModeGenerative {
		e.story.Begin(ctx)
		return nil
	}
	_, err := e.scenes.Enter(e.pkg.Manifest.StartScene, e.player)
	return err
}

// Choose submits a choice index. While combat is active the input is
// ignored; combat owns the turn flow until its terminal event.
func (e *Engine) Choose(ctx context.Context, index int) {
	if e.inCombat {
		return
	}
	if e.mode == ModeGenerative {
		e.story.HandleChoice(ctx, index)
		return
	}
	resolution, err := e.scenes.ResolveChoice(index, e.player)
	if err != nil {
		// Bad indexes are defined no-ops, not faults.
		return
	}
	e.route(resolution)
}

// Input submits free-form text to the storyteller. Scripted sessions and
// active combat ignore it.
func (e *Engine) Input(ctx context.Context, text string) {
	if e.inCombat || e.mode != ModeGenerative {
		return
	}
	e.story.HandleFreeInput(ctx, text)
}

// UseItem uses an inventory item. During combat the use consumes the
// player's turn.
func (e *Engine) UseItem(itemID string) inventory.UseResult {
	if e.inCombat {
		return e.combat.PlayerUseItem(itemID)
	}
	return e.items.Use(itemID, e.player)
}

// Attack resolves a player attack during combat. Outside combat it does
// nothing.
func (e *Engine) Attack(attackIndex, targetIndex int) {
	if !e.inCombat {
		return
	}
	e.combat.PlayerAttack(attackIndex, targetIndex)
}

// Flee attempts to escape the current combat. Outside combat it does
// nothing.
func (e *Engine) Flee() {
	if !e.inCombat {
		return
	}
	e.combat.PlayerFlee()
}

// StartCombat begins an encounter against catalog enemy IDs and latches the
// engine into combat mode. It backs the storyteller's start_combat tool.
func (e *Engine) StartCombat(enemyIDs []string) error {
	e.pendingCombat = nil
	return e.startCombat(enemyIDs)
}

// startCombat latches combat mode before the encounter runs: Start can
// finish the whole fight synchronously when the enemies act first, and the
// terminal event must find the latch set to route its outcome.
func (e *Engine) startCombat(enemyIDs []string) error {
	if e.inCombat {
		return combat.ErrAlreadyActive
	}
	e.returnScene = e.scenes.Current()
	e.inCombat = true
	if err := e.combat.Start(e.player, enemyIDs); err != nil {
		e.inCombat = false
		return err
	}
	return nil
}

// route applies a scene resolution: a combat descriptor starts its
// encounter, a scene id transitions, and an empty resolution stays put.
func (e *Engine) route(resolution scene.Resolution) {
	if resolution.Combat != "" {
		def, ok := e.pkg.Combats[resolution.Combat]
		if !ok {
			e.bus.Publish(event.LogMessage{
				Kind: event.LogSystem,
				Text: fmt.Sprintf("unknown combat %q", resolution.Combat),
			})
			return
		}
		e.pendingCombat = &def
		if err := e.startCombat(def.EnemyIDs); err != nil {
			e.pendingCombat = nil
			e.bus.Publish(event.LogMessage{Kind: event.LogSystem, Text: err.Error()})
		}
		return
	}
	if resolution.NextScene != "" {
		if _, err := e.scenes.Enter(resolution.NextScene, e.player); err != nil {
			e.bus.Publish(event.LogMessage{Kind: event.LogSystem, Text: err.Error()})
		}
	}
}

// onCombatEnded clears the combat latch and, for scripted encounters,
// resumes the scene graph: the victory scene on a win, the pre-combat scene
// on a successful flight, and the defeat scene (when authored) on a loss.
// Generative encounters resume through the orchestrator instead.
func (e *Engine) onCombatEnded(outcome event.CombatEnded) {
	if !e.inCombat {
		return
	}
	e.inCombat = false
	def := e.pendingCombat
	e.pendingCombat = nil

	if outcome.Victory && outcome.TotalXP > 0 {
		e.player.XP += outcome.TotalXP
		e.bus.Publish(event.LogMessage{
			Kind: event.LogSuccess,
			Text: fmt.Sprintf("%s gains %d XP", e.player.Name, outcome.TotalXP),
		})
		e.publishPlayer()
	}

	if e.mode == ModeGenerative {
		return
	}

	target := ""
	switch {
	case outcome.Victory:
		if def != nil {
			target = def.OnVictory
		}
	case outcome.Fled:
		target = e.returnScene
	default:
		if def != nil {
			target = def.OnDefeat
		}
		if target == "" {
			e.bus.Publish(event.LogMessage{Kind: event.LogSystem, Text: "The adventure ends here."})
			return
		}
	}
	if target == "" {
		return
	}
	if _, err := e.scenes.Enter(target, e.player); err != nil {
		e.bus.Publish(event.LogMessage{Kind: event.LogSystem, Text: err.Error()})
	}
}

func (e *Engine) publishPlayer() {
	e.bus.Publish(event.PlayerChanged{
		Name:  e.player.Name,
		HP:    e.player.HP,
		MaxHP: e.player.MaxHP,
		Level: e.player.Level,
		XP:    e.player.XP,
		Gold:  e.player.Gold,
	})
}
