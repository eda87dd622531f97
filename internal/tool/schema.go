package tool

import (
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// abilityNames enumerates the valid skill_check abilities for the schema.
var abilityNames = []string{
	"strength", "dexterity", "constitution",
	"intelligence", "wisdom", "charisma",
}

// Schema returns the fixed tool table advertised to the narrative service.
func Schema() []openai.Tool {
	return []openai.Tool{
		functionTool(NameSkillCheck,
			"Roll a d20 ability check for the player against a difficulty class.",
			jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"ability": {
						Type:        jsonschema.String,
						Enum:        abilityNames,
						Description: "Ability score governing the check.",
					},
					"dc": {
						Type:        jsonschema.Integer,
						Description: "Difficulty class the total must meet or exceed.",
					},
				},
				Required: []string{"ability", "dc"},
			}),
		functionTool(NameStartCombat,
			"Start a combat encounter against one or more enemies. Combat takes over the turn flow until it resolves.",
			jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"enemies": {
						Type:        jsonschema.Array,
						Items:       &jsonschema.Definition{Type: jsonschema.String},
						Description: "Enemy IDs from the adventure's enemy list.",
					},
				},
				Required: []string{"enemies"},
			}),
		functionTool(NameAddItem,
			"Give the player an item from the adventure's item list.",
			itemParameters()),
		functionTool(NameRemoveItem,
			"Take an item from the player's inventory.",
			itemParameters()),
		functionTool(NameDealDamage,
			"Deal direct damage to the player, for traps and hazards outside combat.",
			jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"amount": {
						Type:        jsonschema.Integer,
						Description: "Hit points of damage to deal.",
					},
					"source": {
						Type:        jsonschema.String,
						Description: "What caused the damage, for the game log.",
					},
				},
				Required: []string{"amount"},
			}),
		functionTool(NameHealPlayer,
			"Restore the player's hit points, clamped to their maximum.",
			jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"amount": {
						Type:        jsonschema.Integer,
						Description: "Hit points to restore.",
					},
				},
				Required: []string{"amount"},
			}),
		functionTool(NameRollDice,
			"Roll dice using standard notation, e.g. 2d6+1.",
			jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"expression": {
						Type:        jsonschema.String,
						Description: "Dice expression in NdM, NdM+K, or NdM-K form.",
					},
				},
				Required: []string{"expression"},
			}),
		functionTool(NameSetFlag,
			"Set a story-progress flag on the player.",
			flagParameters()),
		functionTool(NameCheckFlag,
			"Check whether a story-progress flag is set.",
			flagParameters()),
		functionTool(NameCheckInventory,
			"List the items the player currently carries.",
			jsonschema.Definition{Type: jsonschema.Object, Properties: map[string]jsonschema.Definition{}}),
		functionTool(NamePlayerStatus,
			"Fetch the player's full sheet: hit points, scores, flags, and inventory.",
			jsonschema.Definition{Type: jsonschema.Object, Properties: map[string]jsonschema.Definition{}}),
	}
}

func functionTool(name Name, description string, parameters jsonschema.Definition) openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        string(name),
			Description: description,
			Parameters:  parameters,
		},
	}
}

func itemParameters() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"item_id": {
				Type:        jsonschema.String,
				Description: "Item ID from the adventure's item list.",
			},
		},
		Required: []string{"item_id"},
	}
}

func flagParameters() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"flag": {
				Type:        jsonschema.String,
				Description: "Flag name.",
			},
		},
		Required: []string{"flag"},
	}
}
