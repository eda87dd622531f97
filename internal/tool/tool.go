// Package tool dispatches named tool invocations from the narrative service
// onto the mechanical game state.
//
// Dispatch never returns an error to the caller: a failed handler produces a
// structured error result instead, so one bad call cannot abort a multi-tool
// turn. Malformed argument payloads are treated as empty arguments.
package tool

import (
	"encoding/json"
	"fmt"

	"github.com/torchlit/engine/internal/ability"
	"github.com/torchlit/engine/internal/adventure"
	"github.com/torchlit/engine/internal/dice"
	"github.com/torchlit/engine/internal/event"
	"github.com/torchlit/engine/internal/inventory"
)

// Name identifies a tool the narrative service may invoke.
type Name string

const (
	NameSkillCheck     Name = "skill_check"
	NameStartCombat    Name = "start_combat"
	NameAddItem        Name = "add_item"
	NameRemoveItem     Name = "remove_item"
	NameDealDamage     Name = "deal_damage"
	NameHealPlayer     Name = "heal_player"
	NameRollDice       Name = "roll_dice"
	NameSetFlag        Name = "set_flag"
	NameCheckFlag      Name = "check_flag"
	NameCheckInventory Name = "check_inventory"
	NamePlayerStatus   Name = "get_player_status"
)

// Call is one tool invocation: the service-assigned call id, the tool name,
// and the raw JSON argument payload.
type Call struct {
	ID        string
	Name      Name
	Arguments []byte
}

// CombatStarter starts an encounter against catalog enemy IDs. The engine
// implements it; starting combat also latches the engine into combat mode.
type CombatStarter interface {
	StartCombat(enemyIDs []string) error
}

// Dispatcher routes calls to their handlers.
type Dispatcher struct {
	player  *adventure.Player
	items   *inventory.Inventory
	roller  *dice.Roller
	checker *ability.Checker
	combat  CombatStarter
	bus     *event.Bus
}

// NewDispatcher creates a dispatcher over the engine's mechanical state.
func NewDispatcher(player *adventure.Player, items *inventory.Inventory, roller *dice.Roller, checker *ability.Checker, combat CombatStarter, bus *event.Bus) *Dispatcher {
	return &Dispatcher{
		player:  player,
		items:   items,
		roller:  roller,
		checker: checker,
		combat:  combat,
		bus:     bus,
	}
}

type skillCheckInput struct {
	Ability string `json:"ability"`
	DC      int    `json:"dc"`
}

type skillCheckResult struct {
	Success  bool   `json:"success"`
	Ability  string `json:"ability"`
	Roll     int    `json:"roll"`
	Modifier int    `json:"modifier"`
	Total    int    `json:"total"`
	DC       int    `json:"dc"`
}

type startCombatInput struct {
	Enemies []string `json:"enemies"`
}

type startCombatResult struct {
	Started bool `json:"started"`
}

type itemInput struct {
	ItemID string `json:"item_id"`
}

type itemResult struct {
	ItemID string `json:"item_id"`
	Done   bool   `json:"done"`
}

type dealDamageInput struct {
	Amount int    `json:"amount"`
	Source string `json:"source,omitempty"`
}

type dealDamageResult struct {
	Damage int `json:"damage"`
	HP     int `json:"hp"`
}

type healPlayerInput struct {
	Amount int `json:"amount"`
}

type healPlayerResult struct {
	Healed int `json:"healed"`
	HP     int `json:"hp"`
}

type rollDiceInput struct {
	Expression string `json:"expression"`
}

type rollDiceResult struct {
	Expression string `json:"expression"`
	Rolls      []int  `json:"rolls"`
	Modifier   int    `json:"modifier"`
	Total      int    `json:"total"`
}

type flagInput struct {
	Flag string `json:"flag"`
}

type flagResult struct {
	Flag string `json:"flag"`
	Set  bool   `json:"set"`
}

type checkInventoryResult struct {
	Items []inventoryEntry `json:"items"`
}

type inventoryEntry struct {
	ItemID string `json:"item_id"`
	Name   string `json:"name"`
}

type playerStatusResult struct {
	Name       string           `json:"name"`
	HP         int              `json:"hp"`
	MaxHP      int              `json:"max_hp"`
	ArmorClass int              `json:"armor_class"`
	Level      int              `json:"level"`
	XP         int              `json:"xp"`
	Gold       int              `json:"gold"`
	Scores     adventure.Scores `json:"scores"`
	Flags      []string         `json:"flags"`
	Items      []string         `json:"items"`
}

type errorResult struct {
	Error string `json:"error"`
}

// Dispatch runs one tool call and returns its JSON-encoded result. Unknown
// tools and handler failures are reported inside the result payload.
func (d *Dispatcher) Dispatch(call Call) []byte {
	switch call.Name {
	case NameSkillCheck:
		return d.skillCheck(call.Arguments)
	case NameStartCombat:
		return d.startCombat(call.Arguments)
	case NameAddItem:
		return d.addItem(call.Arguments)
	case NameRemoveItem:
		return d.removeItem(call.Arguments)
	case NameDealDamage:
		return d.dealDamage(call.Arguments)
	case NameHealPlayer:
		return d.healPlayer(call.Arguments)
	case NameRollDice:
		return d.rollDice(call.Arguments)
	case NameSetFlag:
		return d.setFlag(call.Arguments)
	case NameCheckFlag:
		return d.checkFlag(call.Arguments)
	case NameCheckInventory:
		return d.checkInventory()
	case NamePlayerStatus:
		return d.playerStatus()
	}
	return marshalResult(errorResult{Error: fmt.Sprintf("unknown tool %q", call.Name)})
}

// parseArguments decodes the JSON argument payload into target. Malformed
// payloads leave target at its zero value.
func parseArguments(raw []byte, target any) {
	if len(raw) == 0 {
		return
	}
	if err := json.Unmarshal(raw, target); err != nil {
		// The storyteller occasionally emits broken JSON; an empty
		// argument set is the defined fallback.
		return
	}
}

func marshalResult(result any) []byte {
	encoded, err := json.Marshal(result)
	if err != nil {
		return []byte(`{"error":"encode result"}`)
	}
	return encoded
}

func (d *Dispatcher) skillCheck(raw []byte) []byte {
	var input skillCheckInput
	parseArguments(raw, &input)

	abilityName, err := adventure.ParseAbility(input.Ability)
	if err != nil {
		return marshalResult(errorResult{Error: err.Error()})
	}
	result, err := d.checker.Check(d.player.Scores, abilityName, input.DC)
	if err != nil {
		return marshalResult(errorResult{Error: err.Error()})
	}
	return marshalResult(skillCheckResult{
		Success:  result.Success,
		Ability:  string(result.Ability),
		Roll:     result.Roll,
		Modifier: result.Modifier,
		Total:    result.Total,
		DC:       result.DC,
	})
}

func (d *Dispatcher) startCombat(raw []byte) []byte {
	var input startCombatInput
	parseArguments(raw, &input)

	if err := d.combat.StartCombat(input.Enemies); err != nil {
		return marshalResult(errorResult{Error: err.Error()})
	}
	return marshalResult(startCombatResult{Started: true})
}

func (d *Dispatcher) addItem(raw []byte) []byte {
	var input itemInput
	parseArguments(raw, &input)
	return marshalResult(itemResult{ItemID: input.ItemID, Done: d.items.Add(input.ItemID)})
}

func (d *Dispatcher) removeItem(raw []byte) []byte {
	var input itemInput
	parseArguments(raw, &input)
	return marshalResult(itemResult{ItemID: input.ItemID, Done: d.items.Remove(input.ItemID)})
}

func (d *Dispatcher) dealDamage(raw []byte) []byte {
	var input dealDamageInput
	parseArguments(raw, &input)

	dealt := d.player.ApplyDamage(input.Amount)
	source := input.Source
	if source == "" {
		source = "An unseen force"
	}
	d.bus.Publish(event.LogMessage{
		Kind: event.LogCombat,
		Text: fmt.Sprintf("%s deals %d damage to %s", source, dealt, d.player.Name),
	})
	d.publishPlayer()
	return marshalResult(dealDamageResult{Damage: dealt, HP: d.player.HP})
}

func (d *Dispatcher) healPlayer(raw []byte) []byte {
	var input healPlayerInput
	parseArguments(raw, &input)

	healed := d.player.Heal(input.Amount)
	d.bus.Publish(event.LogMessage{
		Kind: event.LogSuccess,
		Text: fmt.Sprintf("%s recovers %d HP", d.player.Name, healed),
	})
	d.publishPlayer()
	return marshalResult(healPlayerResult{Healed: healed, HP: d.player.HP})
}

func (d *Dispatcher) rollDice(raw []byte) []byte {
	var input rollDiceInput
	parseArguments(raw, &input)

	result, err := d.roller.Roll(input.Expression)
	if err != nil {
		return marshalResult(errorResult{Error: err.Error()})
	}
	return marshalResult(rollDiceResult{
		Expression: result.Expression,
		Rolls:      result.Rolls,
		Modifier:   result.Modifier,
		Total:      result.Total,
	})
}

func (d *Dispatcher) setFlag(raw []byte) []byte {
	var input flagInput
	parseArguments(raw, &input)

	if input.Flag == "" {
		return marshalResult(errorResult{Error: "flag is required"})
	}
	d.player.SetFlag(input.Flag)
	return marshalResult(flagResult{Flag: input.Flag, Set: true})
}

func (d *Dispatcher) checkFlag(raw []byte) []byte {
	var input flagInput
	parseArguments(raw, &input)
	return marshalResult(flagResult{Flag: input.Flag, Set: d.player.HasFlag(input.Flag)})
}

func (d *Dispatcher) checkInventory() []byte {
	details := d.items.Details()
	entries := make([]inventoryEntry, 0, len(details))
	for _, item := range details {
		entries = append(entries, inventoryEntry{ItemID: item.ID, Name: item.Name})
	}
	return marshalResult(checkInventoryResult{Items: entries})
}

func (d *Dispatcher) playerStatus() []byte {
	return marshalResult(playerStatusResult{
		Name:       d.player.Name,
		HP:         d.player.HP,
		MaxHP:      d.player.MaxHP,
		ArmorClass: d.player.ArmorClass,
		Level:      d.player.Level,
		XP:         d.player.XP,
		Gold:       d.player.Gold,
		Scores:     d.player.Scores,
		Flags:      append([]string(nil), d.player.Flags...),
		Items:      d.items.Items(),
	})
}

func (d *Dispatcher) publishPlayer() {
	d.bus.Publish(event.PlayerChanged{
		Name:  d.player.Name,
		HP:    d.player.HP,
		MaxHP: d.player.MaxHP,
		Level: d.player.Level,
		XP:    d.player.XP,
		Gold:  d.player.Gold,
	})
}
