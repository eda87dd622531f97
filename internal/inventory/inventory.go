// Package inventory tracks the items the player carries and resolves item
// use against the item catalog.
package inventory

import (
	"fmt"

	"github.com/torchlit/engine/internal/adventure"
	"github.com/torchlit/engine/internal/event"
)

// Inventory holds the player's items as an ordered list of catalog IDs.
// Duplicates are allowed: each entry is one copy.
type Inventory struct {
	catalog map[string]adventure.Item
	owned   []string
	bus     *event.Bus
}

// New creates an empty inventory over an item catalog.
func New(catalog map[string]adventure.Item, bus *event.Bus) *Inventory {
	return &Inventory{catalog: catalog, bus: bus}
}

// SetOwned replaces the owned-item list, typically when loading a package
// that grants starting gear.
func (inv *Inventory) SetOwned(itemIDs []string) {
	inv.owned = append([]string(nil), itemIDs...)
	inv.publishChanged()
}

// Items returns the owned item IDs in acquisition order.
func (inv *Inventory) Items() []string {
	return append([]string(nil), inv.owned...)
}

// Has reports whether at least one copy of the item is owned.
func (inv *Inventory) Has(itemID string) bool {
	for _, owned := range inv.owned {
		if owned == itemID {
			return true
		}
	}
	return false
}

// Add appends one copy of an item. Unknown IDs are rejected.
func (inv *Inventory) Add(itemID string) bool {
	item, ok := inv.catalog[itemID]
	if !ok {
		return false
	}
	inv.owned = append(inv.owned, itemID)
	inv.bus.Publish(event.LogMessage{
		Kind: event.LogInfo,
		Text: fmt.Sprintf("Acquired: %s", item.Name),
	})
	inv.publishChanged()
	return true
}

// Remove removes one copy of an item, reporting whether a copy was present.
func (inv *Inventory) Remove(itemID string) bool {
	for i, owned := range inv.owned {
		if owned != itemID {
			continue
		}
		inv.owned = append(inv.owned[:i], inv.owned[i+1:]...)
		if item, ok := inv.catalog[itemID]; ok {
			inv.bus.Publish(event.LogMessage{
				Kind: event.LogInfo,
				Text: fmt.Sprintf("Lost: %s", item.Name),
			})
		}
		inv.publishChanged()
		return true
	}
	return false
}

// UseResult captures the outcome of using an item.
type UseResult struct {
	Used   bool
	Healed int
}

// Use applies an owned consumable to the player. Using an item that is not
// owned, or not consumable, reports Used false without error; the storyteller
// probes item use speculatively and a miss is not a fault. A used consumable
// is always removed, even when its effect restores nothing.
func (inv *Inventory) Use(itemID string, player *adventure.Player) UseResult {
	if !inv.Has(itemID) {
		return UseResult{}
	}
	item, ok := inv.catalog[itemID]
	if !ok || !item.Consumable {
		return UseResult{}
	}

	healed := 0
	if item.Effect.Heal > 0 {
		healed = player.Heal(item.Effect.Heal)
	}
	inv.Remove(itemID)
	inv.bus.Publish(event.LogMessage{
		Kind: event.LogSuccess,
		Text: fmt.Sprintf("Used %s: restored %d HP", item.Name, healed),
	})
	inv.bus.Publish(event.PlayerChanged{
		Name:  player.Name,
		HP:    player.HP,
		MaxHP: player.MaxHP,
		Level: player.Level,
		XP:    player.XP,
		Gold:  player.Gold,
	})
	return UseResult{Used: true, Healed: healed}
}

// Details resolves the owned items against the catalog, preserving order.
// Entries with no catalog definition are skipped.
func (inv *Inventory) Details() []adventure.Item {
	details := make([]adventure.Item, 0, len(inv.owned))
	for _, itemID := range inv.owned {
		if item, ok := inv.catalog[itemID]; ok {
			details = append(details, item)
		}
	}
	return details
}

// Consumables returns the owned items that can be used for an effect.
func (inv *Inventory) Consumables() []adventure.Item {
	consumables := make([]adventure.Item, 0)
	for _, item := range inv.Details() {
		if item.Consumable && item.Effect.Heal > 0 {
			consumables = append(consumables, item)
		}
	}
	return consumables
}

func (inv *Inventory) publishChanged() {
	inv.bus.Publish(event.InventoryChanged{ItemIDs: inv.Items()})
}
