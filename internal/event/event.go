// Package event implements the typed publish/subscribe channel between the
// game core and its consumers.
//
// Every event carries a fixed payload struct for its type; presentation
// layers subscribe and react but never mutate core state through the bus.
// Dispatch is synchronous on the publisher's goroutine: the engine runs a
// single-threaded cooperative model and relies on handlers completing before
// the publishing operation continues.
package event

import "sync"

// Type identifies the type of a game event.
type Type string

// Mechanical events.
const (
	// TypeDiceRolled records the full breakdown of a dice-expression roll.
	TypeDiceRolled Type = "dice.rolled"
	// TypePlayerChanged records a mutation of the player sheet.
	TypePlayerChanged Type = "player.changed"
	// TypeInventoryChanged records a mutation of the owned-item list.
	TypeInventoryChanged Type = "inventory.changed"
	// TypeLogMessage records a human-readable line for the game log.
	TypeLogMessage Type = "log.message"
)

// Scene events.
const (
	// TypeSceneEntered records entry into a scripted scene.
	TypeSceneEntered Type = "scene.entered"
)

// Combat events.
const (
	// TypeCombatStarted records the start of a combat encounter.
	TypeCombatStarted Type = "combat.started"
	// TypeCombatTurn records that the turn order reached the player.
	TypeCombatTurn Type = "combat.turn"
	// TypeCombatEnded records the single terminal outcome of an encounter.
	TypeCombatEnded Type = "combat.ended"
)

// Narrative events (generative mode).
const (
	// TypeNarrativeScene records a generated narrative turn with choices.
	TypeNarrativeScene Type = "narrative.scene"
	// TypeNarrativePlayerInput echoes accepted player input.
	TypeNarrativePlayerInput Type = "narrative.player_input"
	// TypeNarrativeLoading records whether a narrative request is in flight.
	TypeNarrativeLoading Type = "narrative.loading"
	// TypeNarrativeError records a failed narrative request.
	TypeNarrativeError Type = "narrative.error"
)

// Event is implemented by every payload published on the bus.
type Event interface {
	EventType() Type
}

// Handler consumes published events.
type Handler func(Event)

// Bus fans events out to subscribers in subscription order.
type Bus struct {
	mu       sync.Mutex
	handlers map[Type][]Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[Type][]Handler)}
}

// Subscribe registers a handler for one event type.
func (b *Bus) Subscribe(t Type, h Handler) {
	if b == nil || h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

// Publish delivers an event to every subscriber of its type.
func (b *Bus) Publish(e Event) {
	if b == nil || e == nil {
		return
	}
	b.mu.Lock()
	handlers := append([]Handler(nil), b.handlers[e.EventType()]...)
	b.mu.Unlock()
	for _, h := range handlers {
		h(e)
	}
}
