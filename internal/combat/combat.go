// Package combat implements the turn-based combat state machine: initiative
// ordering, round-robin turn sequencing, attack resolution, and terminal
// outcome detection.
package combat

import (
	"errors"
	"fmt"
	"sort"

	"github.com/torchlit/engine/internal/ability"
	"github.com/torchlit/engine/internal/adventure"
	"github.com/torchlit/engine/internal/dice"
	"github.com/torchlit/engine/internal/event"
	"github.com/torchlit/engine/internal/inventory"
	"github.com/torchlit/engine/internal/platform/id"
)

// State identifies the combat engine's lifecycle state.
type State string

const (
	StateIdle    State = "idle"
	StateActive  State = "active"
	StateVictory State = "victory"
	StateDefeat  State = "defeat"
	StateFled    State = "fled"
)

// ErrUnknownEnemy indicates an enemy id absent from the catalog.
var ErrUnknownEnemy = errors.New("unknown enemy")

// ErrAlreadyActive indicates a start request while a combat is in progress.
var ErrAlreadyActive = errors.New("combat already active")

// fleeDC is the difficulty of the dexterity roll to escape combat.
const fleeDC = 10

// Instance is one live enemy in the current encounter. Instances are clones
// of catalog entries; the catalog is never mutated.
type Instance struct {
	adventure.Enemy
	InstanceID string
}

// turnEntry is one slot in the initiative order. enemyIndex is -1 for the
// player's slot.
type turnEntry struct {
	initiative int
	enemyIndex int
}

// Engine runs one encounter at a time over a shared enemy catalog.
type Engine struct {
	catalog map[string]adventure.Enemy
	roller  *dice.Roller
	items   *inventory.Inventory
	bus     *event.Bus

	// Injection points for deterministic tests.
	newID      func() (string, error)
	rollDie    func(sides int) int
	rollDamage func(expression string) (dice.Result, error)

	state   State
	player  *adventure.Player
	enemies []*Instance
	order   []turnEntry
	turn    int
	round   int
}

// NewEngine creates an idle engine over an enemy catalog.
func NewEngine(catalog map[string]adventure.Enemy, roller *dice.Roller, items *inventory.Inventory, bus *event.Bus) *Engine {
	engine := &Engine{
		catalog: catalog,
		roller:  roller,
		items:   items,
		bus:     bus,
		newID:   id.NewID,
		state:   StateIdle,
	}
	engine.rollDie = roller.RollDie
	engine.rollDamage = roller.Roll
	return engine
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State {
	return e.state
}

// Active reports whether an encounter is in progress.
func (e *Engine) Active() bool {
	return e.state == StateActive
}

// AliveEnemies returns the enemies still standing, in roster order.
func (e *Engine) AliveEnemies() []*Instance {
	alive := make([]*Instance, 0, len(e.enemies))
	for _, enemy := range e.enemies {
		if enemy.HP > 0 {
			alive = append(alive, enemy)
		}
	}
	return alive
}

// Start begins an encounter against the listed enemy IDs. Initiative is a
// d20 plus dexterity modifier per combatant, sorted descending; ties keep
// insertion order, with the player slotted before the enemies.
func (e *Engine) Start(player *adventure.Player, enemyIDs []string) error {
	if e.state == StateActive {
		return ErrAlreadyActive
	}
	if len(enemyIDs) == 0 {
		return fmt.Errorf("%w: no enemies listed", ErrUnknownEnemy)
	}

	enemies := make([]*Instance, 0, len(enemyIDs))
	for _, enemyID := range enemyIDs {
		catalogEntry, ok := e.catalog[enemyID]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownEnemy, enemyID)
		}
		instanceID, err := e.newID()
		if err != nil {
			return fmt.Errorf("new enemy instance id: %w", err)
		}
		clone := catalogEntry.Clone()
		clone.HP = clone.MaxHP
		enemies = append(enemies, &Instance{Enemy: clone, InstanceID: instanceID})
	}

	e.player = player
	e.enemies = enemies
	e.state = StateActive
	e.turn = 0
	e.round = 1

	e.rollInitiative()
	e.bus.Publish(event.CombatStarted{
		Enemies: e.enemyStatuses(),
		Order:   e.orderNames(),
	})
	e.advance()
	return nil
}

func (e *Engine) rollInitiative() {
	order := make([]turnEntry, 0, len(e.enemies)+1)

	playerRoll := e.rollDie(20) + ability.Modifier(e.player.Scores.Dexterity)
	order = append(order, turnEntry{initiative: playerRoll, enemyIndex: -1})
	e.bus.Publish(event.LogMessage{
		Kind: event.LogCombat,
		Text: fmt.Sprintf("%s rolls initiative: %d", e.player.Name, playerRoll),
	})

	for i, enemy := range e.enemies {
		roll := e.rollDie(20) + ability.Modifier(enemy.Scores.Dexterity)
		order = append(order, turnEntry{initiative: roll, enemyIndex: i})
		e.bus.Publish(event.LogMessage{
			Kind: event.LogCombat,
			Text: fmt.Sprintf("%s rolls initiative: %d", enemy.Name, roll),
		})
	}

	sort.SliceStable(order, func(a, b int) bool {
		return order[a].initiative > order[b].initiative
	})
	e.order = order
}

// PlayerAttack resolves the player's attack at attackIndex against the
// target at targetIndex within the currently alive enemies. Out-of-range
// indexes and calls outside an active player turn do nothing.
func (e *Engine) PlayerAttack(attackIndex, targetIndex int) {
	if e.state != StateActive {
		return
	}
	if attackIndex < 0 || attackIndex >= len(e.player.Attacks) {
		return
	}
	alive := e.AliveEnemies()
	if targetIndex < 0 || targetIndex >= len(alive) {
		return
	}
	attack := e.player.Attacks[attackIndex]
	target := alive[targetIndex]

	modifier := 0
	if score, err := e.player.Scores.Value(attack.Ability); err == nil {
		modifier = ability.Modifier(score)
	}
	roll := e.rollDie(20) + modifier
	if roll < target.ArmorClass {
		e.bus.Publish(event.LogMessage{
			Kind: event.LogCombat,
			Text: fmt.Sprintf("%s misses %s (%d vs AC %d)", e.player.Name, target.Name, roll, target.ArmorClass),
		})
		e.nextTurn()
		return
	}

	damage, err := e.rollDamage(attack.Damage)
	if err != nil {
		e.bus.Publish(event.LogMessage{
			Kind: event.LogCombat,
			Text: fmt.Sprintf("%s falters: %v", e.player.Name, err),
		})
		e.nextTurn()
		return
	}
	dealt := damage.Total
	if dealt > target.HP {
		dealt = target.HP
	}
	target.HP -= dealt
	e.bus.Publish(event.LogMessage{
		Kind: event.LogCombat,
		Text: fmt.Sprintf("%s hits %s with %s for %d damage", e.player.Name, target.Name, attack.Name, dealt),
	})
	if target.HP == 0 {
		e.bus.Publish(event.LogMessage{
			Kind: event.LogCombat,
			Text: fmt.Sprintf("%s is defeated!", target.Name),
		})
	}

	if len(e.AliveEnemies()) == 0 {
		e.end(event.CombatEnded{Victory: true, TotalXP: e.totalXP()})
		return
	}
	e.nextTurn()
}

// PlayerFlee attempts to escape: a d20 plus dexterity modifier against a
// fixed difficulty of 10. Failure consumes the turn.
func (e *Engine) PlayerFlee() {
	if e.state != StateActive {
		return
	}
	roll := e.rollDie(20) + ability.Modifier(e.player.Scores.Dexterity)
	if roll >= fleeDC {
		e.bus.Publish(event.LogMessage{
			Kind: event.LogCombat,
			Text: fmt.Sprintf("%s flees from combat (%d vs DC %d)", e.player.Name, roll, fleeDC),
		})
		e.end(event.CombatEnded{Fled: true})
		return
	}
	e.bus.Publish(event.LogMessage{
		Kind: event.LogCombat,
		Text: fmt.Sprintf("%s fails to escape (%d vs DC %d)", e.player.Name, roll, fleeDC),
	})
	e.nextTurn()
}

// PlayerUseItem spends the player's turn using an inventory item. An item
// that cannot be used leaves the turn unconsumed.
func (e *Engine) PlayerUseItem(itemID string) inventory.UseResult {
	if e.state != StateActive {
		return inventory.UseResult{}
	}
	result := e.items.Use(itemID, e.player)
	if result.Used {
		e.nextTurn()
	}
	return result
}

// nextTurn moves the turn pointer past the current slot and resumes the
// round-robin scan.
func (e *Engine) nextTurn() {
	if e.state != StateActive {
		return
	}
	e.stepPointer()
	e.advance()
}

// advance processes enemy turns until the order reaches the player's slot or
// the combat ends. End conditions are checked eagerly after every damage
// application, never deferred to the next scan.
func (e *Engine) advance() {
	for e.state == StateActive {
		entry := e.order[e.turn]
		if entry.enemyIndex == -1 {
			e.bus.Publish(event.CombatTurn{
				Round:   e.round,
				Enemies: e.enemyStatuses(),
			})
			return
		}
		enemy := e.enemies[entry.enemyIndex]
		if enemy.HP > 0 {
			e.enemyAct(enemy)
			if e.state != StateActive {
				return
			}
		}
		e.stepPointer()
	}
}

// enemyAct resolves one enemy turn: a uniformly random attack, a d20 plus
// the attack's to-hit bonus against the player's armor class, and rolled
// damage on a hit.
func (e *Engine) enemyAct(enemy *Instance) {
	if len(enemy.Attacks) == 0 {
		return
	}
	attack := enemy.Attacks[e.rollDie(len(enemy.Attacks))-1]

	roll := e.rollDie(20) + attack.ToHit
	if roll < e.player.ArmorClass {
		e.bus.Publish(event.LogMessage{
			Kind: event.LogCombat,
			Text: fmt.Sprintf("%s misses %s (%d vs AC %d)", enemy.Name, e.player.Name, roll, e.player.ArmorClass),
		})
		return
	}

	damage, err := e.rollDamage(attack.Damage)
	if err != nil {
		return
	}
	dealt := e.player.ApplyDamage(damage.Total)
	e.bus.Publish(event.LogMessage{
		Kind: event.LogCombat,
		Text: fmt.Sprintf("%s hits %s with %s for %d damage", enemy.Name, e.player.Name, attack.Name, dealt),
	})
	e.publishPlayer()
	if e.player.HP == 0 {
		e.bus.Publish(event.LogMessage{
			Kind: event.LogCombat,
			Text: fmt.Sprintf("%s falls!", e.player.Name),
		})
		e.end(event.CombatEnded{})
	}
}

func (e *Engine) stepPointer() {
	e.turn++
	if e.turn >= len(e.order) {
		e.turn = 0
		e.round++
	}
}

// end transitions to a terminal state and publishes the single terminal
// event for the encounter.
func (e *Engine) end(outcome event.CombatEnded) {
	if e.state != StateActive {
		return
	}
	switch {
	case outcome.Victory:
		e.state = StateVictory
	case outcome.Fled:
		e.state = StateFled
	default:
		e.state = StateDefeat
	}
	e.bus.Publish(outcome)
}

func (e *Engine) totalXP() int {
	total := 0
	for _, enemy := range e.enemies {
		total += enemy.XP
	}
	return total
}

func (e *Engine) enemyStatuses() []event.CombatantStatus {
	statuses := make([]event.CombatantStatus, 0, len(e.enemies))
	for _, enemy := range e.enemies {
		statuses = append(statuses, event.CombatantStatus{
			InstanceID: enemy.InstanceID,
			Name:       enemy.Name,
			HP:         enemy.HP,
			MaxHP:      enemy.MaxHP,
		})
	}
	return statuses
}

func (e *Engine) orderNames() []string {
	names := make([]string, 0, len(e.order))
	for _, entry := range e.order {
		if entry.enemyIndex == -1 {
			names = append(names, e.player.Name)
			continue
		}
		names = append(names, e.enemies[entry.enemyIndex].Name)
	}
	return names
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
