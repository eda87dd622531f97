package scene

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/torchlit/engine/internal/ability"
	"github.com/torchlit/engine/internal/adventure"
	"github.com/torchlit/engine/internal/dice"
	"github.com/torchlit/engine/internal/event"
	"github.com/torchlit/engine/internal/inventory"
)

type fixture struct {
	graph  *Graph
	items  *inventory.Inventory
	bus    *event.Bus
	player *adventure.Player
}

func newFixture(t *testing.T, scenes map[string]adventure.Scene, seed int64) *fixture {
	t.Helper()
	bus := event.NewBus()
	roller := dice.NewSeededRoller(bus, seed)
	checker := ability.NewChecker(roller, bus)
	items := inventory.New(map[string]adventure.Item{
		"key":   {ID: "key", Name: "Rusty Key"},
		"torch": {ID: "torch", Name: "Torch"},
	}, bus)
	return &fixture{
		graph:  NewGraph(scenes, checker, roller, items, bus),
		items:  items,
		bus:    bus,
		player: &adventure.Player{Name: "Aria", HP: 20, MaxHP: 20, Scores: adventure.Scores{Strength: 14}},
	}
}

func TestEnterUnknownScene(t *testing.T) {
	f := newFixture(t, map[string]adventure.Scene{}, 1)
	if _, err := f.graph.Enter("nowhere", f.player); !errors.Is(err, ErrUnknownScene) {
		t.Fatalf("expected ErrUnknownScene, got %v", err)
	}
}

func TestEnterAnnotatesChoiceAvailability(t *testing.T) {
	scenes := map[string]adventure.Scene{
		"gate": {ID: "gate", Text: "A locked gate.", Choices: []adventure.Choice{
			{Text: "Unlock the gate", Condition: &adventure.Condition{HasItem: "key"}, NextScene: "gate"},
			{Text: "Search the brush", Condition: &adventure.Condition{NotHasItem: "key"}, AddItem: "key"},
			{Text: "Wait", NextScene: "gate"},
		}},
	}
	f := newFixture(t, scenes, 1)

	var got event.SceneEntered
	f.bus.Subscribe(event.TypeSceneEntered, func(e event.Event) {
		got = e.(event.SceneEntered)
	})

	if _, err := f.graph.Enter("gate", f.player); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Choices) != 3 {
		t.Fatalf("expected all 3 choices published, got %d", len(got.Choices))
	}
	wantWithoutKey := []bool{false, true, true}
	for i, choice := range got.Choices {
		if choice.Index != i {
			t.Fatalf("expected stable index %d, got %d", i, choice.Index)
		}
		if choice.Available != wantWithoutKey[i] {
			t.Fatalf("choice %q: expected available %v without the key", choice.Text, wantWithoutKey[i])
		}
	}

	f.items.Add("key")
	if _, err := f.graph.Enter("gate", f.player); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantWithKey := []bool{true, false, true}
	for i, choice := range got.Choices {
		if choice.Available != wantWithKey[i] {
			t.Fatalf("choice %q: expected available %v with the key", choice.Text, wantWithKey[i])
		}
	}
}

func TestResolveChoiceUnavailable(t *testing.T) {
	scenes := map[string]adventure.Scene{
		"gate": {ID: "gate", Text: "A locked gate.", Choices: []adventure.Choice{
			{Text: "Unlock the gate", Condition: &adventure.Condition{HasItem: "key"}, SetFlag: "opened", NextScene: "gate"},
			{Text: "Wait", NextScene: "gate"},
		}},
	}
	f := newFixture(t, scenes, 1)
	if _, err := f.graph.Enter("gate", f.player); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := f.graph.ResolveChoice(0, f.player); !errors.Is(err, ErrChoiceUnavailable) {
		t.Fatalf("expected ErrChoiceUnavailable, got %v", err)
	}
	if f.player.HasFlag("opened") {
		t.Fatal("expected unavailable choice to apply no effects")
	}

	// Indexes address the full list, so the unconditioned option keeps its
	// position.
	got, err := f.graph.ResolveChoice(1, f.player)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.NextScene != "gate" {
		t.Fatalf("expected next scene gate, got %q", got.NextScene)
	}
}

func TestEnterFlagCondition(t *testing.T) {
	scenes := map[string]adventure.Scene{
		"camp": {ID: "camp", Text: "The camp.", Choices: []adventure.Choice{
			{Text: "Ask about the hermit", Condition: &adventure.Condition{HasFlag: "met_hermit"}},
			{Text: "Rest"},
		}},
	}
	f := newFixture(t, scenes, 1)

	if _, err := f.graph.Enter("camp", f.player); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.graph.Choices(f.player); len(got) != 1 {
		t.Fatalf("expected 1 choice without flag, got %d", len(got))
	}

	f.player.SetFlag("met_hermit")
	if got := f.graph.Choices(f.player); len(got) != 2 {
		t.Fatalf("expected 2 choices with flag, got %d", len(got))
	}
}

func TestResolveChoiceBeforeEnter(t *testing.T) {
	f := newFixture(t, map[string]adventure.Scene{}, 1)
	if _, err := f.graph.ResolveChoice(0, f.player); !errors.Is(err, ErrNoScene) {
		t.Fatalf("expected ErrNoScene, got %v", err)
	}
}

func TestResolveChoiceOutOfRange(t *testing.T) {
	scenes := map[string]adventure.Scene{
		"camp": {ID: "camp", Text: "The camp.", Choices: []adventure.Choice{{Text: "Rest"}}},
	}
	f := newFixture(t, scenes, 1)
	if _, err := f.graph.Enter("camp", f.player); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.graph.ResolveChoice(1, f.player); !errors.Is(err, ErrInvalidChoice) {
		t.Fatalf("expected ErrInvalidChoice, got %v", err)
	}
	if _, err := f.graph.ResolveChoice(-1, f.player); !errors.Is(err, ErrInvalidChoice) {
		t.Fatalf("expected ErrInvalidChoice, got %v", err)
	}
}

func TestResolveChoiceEffectsAndTransition(t *testing.T) {
	scenes := map[string]adventure.Scene{
		"shrine": {ID: "shrine", Text: "A shrine.", Choices: []adventure.Choice{
			{Text: "Take the torch", AddItem: "torch", SetFlag: "lit", NextScene: "shrine"},
		}},
	}
	f := newFixture(t, scenes, 1)
	if _, err := f.graph.Enter("shrine", f.player); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := f.graph.ResolveChoice(0, f.player)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.NextScene != "shrine" {
		t.Fatalf("expected next scene shrine, got %q", got.NextScene)
	}
	if !f.items.Has("torch") {
		t.Fatal("expected torch added")
	}
	if !f.player.HasFlag("lit") {
		t.Fatal("expected flag set")
	}
}

func TestResolveChoiceCombat(t *testing.T) {
	scenes := map[string]adventure.Scene{
		"road": {ID: "road", Text: "The road.", Choices: []adventure.Choice{
			{Text: "Press on", Combat: "ambush"},
		}},
	}
	f := newFixture(t, scenes, 1)
	if _, err := f.graph.Enter("road", f.player); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := f.graph.ResolveChoice(0, f.player)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Combat != "ambush" {
		t.Fatalf("expected combat ambush, got %q", got.Combat)
	}
}

// skillCheckSeed finds a seed whose first d20 lands on the wanted side of the
// DC for a +2 modifier.
func skillCheckSeed(t *testing.T, dc int, success bool) int64 {
	t.Helper()
	for seed := int64(0); seed < 500; seed++ {
		roll := rand.New(rand.NewSource(seed)).Intn(20) + 1
		if (roll+2 >= dc) == success {
			return seed
		}
	}
	t.Fatal("no seed found")
	return 0
}

func skillCheckScenes() map[string]adventure.Scene {
	return map[string]adventure.Scene{
		"cliff": {ID: "cliff", Text: "A sheer cliff.", Choices: []adventure.Choice{
			{Text: "Climb", SkillCheck: &adventure.SkillCheck{
				Ability: adventure.AbilityStrength,
				DC:      12,
				Success: adventure.BranchEffect{Text: "You reach the top.", SetFlag: "climbed", NextScene: "cliff"},
				Failure: adventure.BranchEffect{Text: "You slip.", Damage: "1d4", NextScene: "cliff"},
			}},
		}},
	}
}

func TestResolveSkillCheckSuccessBranch(t *testing.T) {
	f := newFixture(t, skillCheckScenes(), skillCheckSeed(t, 12, true))
	if _, err := f.graph.Enter("cliff", f.player); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := f.graph.ResolveChoice(0, f.player)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.NextScene != "cliff" {
		t.Fatalf("expected next scene cliff, got %q", got.NextScene)
	}
	if !f.player.HasFlag("climbed") {
		t.Fatal("expected success branch to set flag")
	}
	if f.player.HP != 20 {
		t.Fatalf("expected no damage on success, HP %d", f.player.HP)
	}
}

func TestResolveSkillCheckFailureBranchDamage(t *testing.T) {
	f := newFixture(t, skillCheckScenes(), skillCheckSeed(t, 12, false))
	if _, err := f.graph.Enter("cliff", f.player); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := f.graph.ResolveChoice(0, f.player); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.player.HasFlag("climbed") {
		t.Fatal("expected failure branch to skip flag")
	}
	if f.player.HP >= 20 {
		t.Fatalf("expected failure branch to deal damage, HP %d", f.player.HP)
	}
	if f.player.HP < 16 {
		t.Fatalf("expected at most 4 damage, HP %d", f.player.HP)
	}
}
