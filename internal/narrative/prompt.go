package narrative

import (
	"fmt"
	"sort"
	"strings"

	"github.com/torchlit/engine/internal/adventure"
)

// responseContract is the strict output instruction appended to every system
// prompt. The storyteller must answer with this JSON shape once it is done
// calling tools.
const responseContract = `RESPONSE FORMAT
After any tool calls are resolved, respond with a single JSON object and nothing else:
{"narrative": "<2-4 paragraphs of story text>", "choices": ["<option 1>", "<option 2>", "<option 3>"]}
Offer 2 to 4 choices. Do not wrap the JSON in markdown or add commentary outside it.`

// buildSystemPrompt frames the storyteller: the adventure template, the NPC
// roster, the enemies and items it may reference by id, the player's current
// sheet, and the response contract.
func buildSystemPrompt(pkg *adventure.Package, player *adventure.Player) string {
	var b strings.Builder

	b.WriteString("You are the game master of a turn-based text adventure.\n\n")
	b.WriteString("SETTING\n")
	b.WriteString(pkg.Template.Setting)
	b.WriteString("\n\nTONE\n")
	b.WriteString(pkg.Template.Tone)
	if pkg.Template.Direction != "" {
		b.WriteString("\n\nSTORY DIRECTION\n")
		b.WriteString(pkg.Template.Direction)
	}

	if len(pkg.NPCs) > 0 {
		b.WriteString("\n\nCHARACTERS\n")
		for _, npc := range pkg.NPCs {
			fmt.Fprintf(&b, "- %s: %s\n", npc.Name, npc.Description)
		}
	}

	b.WriteString("\nENEMIES (usable with start_combat, by id)\n")
	for _, enemyID := range sortedKeys(pkg.Enemies) {
		enemy := pkg.Enemies[enemyID]
		fmt.Fprintf(&b, "- %s: %s (HP %d, AC %d)\n", enemyID, enemy.Name, enemy.MaxHP, enemy.ArmorClass)
	}

	b.WriteString("\nITEMS (usable with add_item and remove_item, by id)\n")
	for _, itemID := range sortedKeys(pkg.Items) {
		item := pkg.Items[itemID]
		fmt.Fprintf(&b, "- %s: %s", itemID, item.Name)
		if item.Description != "" {
			fmt.Fprintf(&b, " — %s", item.Description)
		}
		b.WriteString("\n")
	}

	b.WriteString("\nPLAYER\n")
	fmt.Fprintf(&b, "%s, level %d, HP %d/%d, AC %d\n",
		player.Name, player.Level, player.HP, player.MaxHP, player.ArmorClass)
	fmt.Fprintf(&b, "STR %d DEX %d CON %d INT %d WIS %d CHA %d\n",
		player.Scores.Strength, player.Scores.Dexterity, player.Scores.Constitution,
		player.Scores.Intelligence, player.Scores.Wisdom, player.Scores.Charisma)

	b.WriteString("\nRULES\n")
	b.WriteString("Use the provided tools for every mechanical outcome: checks, damage, healing, items, flags, and combat. Never invent mechanical results in prose.\n\n")
	b.WriteString(responseContract)

	return b.String()
}

func sortedKeys[V any](table map[string]V) []string {
	keys := make([]string, 0, len(table))
	for key := range table {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
