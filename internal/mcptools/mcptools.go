// Package mcptools exposes the engine's dice and ability rules as MCP tools
// so external agents can roll and evaluate checks without a game session.
package mcptools

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/torchlit/engine/internal/ability"
	"github.com/torchlit/engine/internal/dice"
)

const (
	// serverName identifies this MCP server to clients.
	serverName = "torchlit rules"
	// serverVersion identifies the MCP server version.
	serverVersion = "0.1.0"
)

// RollDiceInput represents the MCP tool input for a dice roll.
type RollDiceInput struct {
	Expression string `json:"expression" jsonschema:"dice expression such as 2d6+1"`
}

// RollDiceResult represents the MCP tool output for a dice roll.
type RollDiceResult struct {
	Expression string `json:"expression" jsonschema:"expression that was rolled"`
	Rolls      []int  `json:"rolls" jsonschema:"individual die results"`
	Modifier   int    `json:"modifier" jsonschema:"flat modifier applied to the total"`
	Total      int    `json:"total" jsonschema:"sum of rolls and modifier"`
}

// RollDiceTool defines the MCP tool schema for dice rolls.
func RollDiceTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "roll_dice",
		Description: "Rolls a dice expression in NdM, NdM+K, or NdM-K form",
	}
}

// RollDiceHandler rolls a dice expression.
func RollDiceHandler(roller *dice.Roller) mcp.ToolHandlerFor[RollDiceInput, RollDiceResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RollDiceInput) (*mcp.CallToolResult, RollDiceResult, error) {
		result, err := roller.Roll(input.Expression)
		if err != nil {
			return nil, RollDiceResult{}, fmt.Errorf("roll dice: %w", err)
		}
		return nil, RollDiceResult{
			Expression: result.Expression,
			Rolls:      result.Rolls,
			Modifier:   result.Modifier,
			Total:      result.Total,
		}, nil
	}
}

// AbilityModifierInput represents the MCP tool input for modifier lookups.
type AbilityModifierInput struct {
	Score int `json:"score" jsonschema:"raw ability score"`
}

// AbilityModifierResult represents the MCP tool output for modifier lookups.
type AbilityModifierResult struct {
	Score    int `json:"score" jsonschema:"raw ability score"`
	Modifier int `json:"modifier" jsonschema:"derived ability modifier"`
}

// AbilityModifierTool defines the MCP tool schema for modifier lookups.
func AbilityModifierTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "ability_modifier",
		Description: "Derives the ability modifier for a raw ability score",
	}
}

// AbilityModifierHandler derives an ability modifier.
func AbilityModifierHandler() mcp.ToolHandlerFor[AbilityModifierInput, AbilityModifierResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input AbilityModifierInput) (*mcp.CallToolResult, AbilityModifierResult, error) {
		return nil, AbilityModifierResult{
			Score:    input.Score,
			Modifier: ability.Modifier(input.Score),
		}, nil
	}
}

// AbilityCheckInput represents the MCP tool input for an ability check.
type AbilityCheckInput struct {
	Score int `json:"score" jsonschema:"raw ability score governing the check"`
	DC    int `json:"dc" jsonschema:"difficulty class the total must meet or exceed"`
}

// AbilityCheckResult represents the MCP tool output for an ability check.
type AbilityCheckResult struct {
	Roll     int  `json:"roll" jsonschema:"d20 result"`
	Modifier int  `json:"modifier" jsonschema:"ability modifier applied"`
	Total    int  `json:"total" jsonschema:"sum of roll and modifier"`
	DC       int  `json:"dc" jsonschema:"difficulty class checked against"`
	Success  bool `json:"success" jsonschema:"whether the total meets the difficulty class"`
}

// AbilityCheckTool defines the MCP tool schema for ability checks.
func AbilityCheckTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "ability_check",
		Description: "Rolls a d20 ability check for a raw score against a difficulty class",
	}
}

// AbilityCheckHandler rolls an ability check.
func AbilityCheckHandler(roller *dice.Roller) mcp.ToolHandlerFor[AbilityCheckInput, AbilityCheckResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input AbilityCheckInput) (*mcp.CallToolResult, AbilityCheckResult, error) {
		roll := roller.RollDie(20)
		modifier := ability.Modifier(input.Score)
		total := roll + modifier
		return nil, AbilityCheckResult{
			Roll:     roll,
			Modifier: modifier,
			Total:    total,
			DC:       input.DC,
			Success:  total >= input.DC,
		}, nil
	}
}

// NewServer creates the MCP server with every rules tool registered.
func NewServer(roller *dice.Roller) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	mcp.AddTool(server, RollDiceTool(), RollDiceHandler(roller))
	mcp.AddTool(server, AbilityModifierTool(), AbilityModifierHandler())
	mcp.AddTool(server, AbilityCheckTool(), AbilityCheckHandler(roller))
	return server
}

// Serve runs the server over stdio until the context ends. Cancellation is a
// clean shutdown, not an error.
func Serve(ctx context.Context, server *mcp.Server) error {
	err := server.Run(ctx, &mcp.StdioTransport{})
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}
