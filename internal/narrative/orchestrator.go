package narrative

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/torchlit/engine/internal/adventure"
	"github.com/torchlit/engine/internal/event"
	"github.com/torchlit/engine/internal/tool"
)

// State identifies where the orchestrator is in its request cycle.
type State string

const (
	// StateIdle accepts new player input.
	StateIdle State = "idle"
	// StateAwaitingResponse has a request in flight; new input is ignored.
	StateAwaitingResponse State = "awaiting_response"
	// StateAwaitingCombat is suspended until the combat engine publishes its
	// terminal event; that event is the only legal way out.
	StateAwaitingCombat State = "awaiting_combat"
)

// Orchestrator owns the conversation history and drives the tool-call loop
// against the storyteller service.
type Orchestrator struct {
	transport Transport
	tools     *tool.Dispatcher
	schema    []openai.Tool
	bus       *event.Bus
	pkg       *adventure.Package
	player    *adventure.Player

	ctx         context.Context
	state       State
	history     []openai.ChatCompletionMessage
	lastChoices []string

	// pendingOutcome holds a combat result that arrived while its start_combat
	// dispatch was still on the stack; the send loop consumes it instead of
	// suspending.
	pendingOutcome *event.CombatEnded
}

// NewOrchestrator wires an orchestrator to the storyteller transport and the
// tool dispatcher, and subscribes it to combat completion.
func NewOrchestrator(transport Transport, tools *tool.Dispatcher, pkg *adventure.Package, player *adventure.Player, bus *event.Bus) *Orchestrator {
	o := &Orchestrator{
		transport: transport,
		tools:     tools,
		schema:    tool.Schema(),
		bus:       bus,
		pkg:       pkg,
		player:    player,
		state:     StateIdle,
	}
	bus.Subscribe(event.TypeCombatEnded, func(e event.Event) {
		o.onCombatEnded(e.(event.CombatEnded))
	})
	return o
}

// State returns the orchestrator's current state.
func (o *Orchestrator) State() State {
	return o.state
}

// History returns a copy of the conversation so far. Everything sent and
// received is retained, including messages from a failed request, so a retry
// resumes from the same context.
func (o *Orchestrator) History() []openai.ChatCompletionMessage {
	return append([]openai.ChatCompletionMessage(nil), o.history...)
}

// Begin seeds the conversation with the system prompt and the adventure's
// opening, then requests the first narrative turn.
func (o *Orchestrator) Begin(ctx context.Context) {
	if o.state != StateIdle || len(o.history) > 0 {
		return
	}
	o.history = append(o.history,
		openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: buildSystemPrompt(o.pkg, o.player),
		},
		openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: o.pkg.Template.Opening,
		},
	)
	o.sendLoop(ctx)
}

// HandleFreeInput appends a player message and requests the next turn.
// Empty input, or input while a request or combat is in flight, does
// nothing.
func (o *Orchestrator) HandleFreeInput(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" || o.state != StateIdle {
		return
	}
	o.bus.Publish(event.NarrativePlayerInput{Text: text})
	o.history = append(o.history, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: text,
	})
	o.sendLoop(ctx)
}

// HandleChoice resolves a choice index from the last narrative turn to its
// literal text and submits it. Out-of-range indexes do nothing.
func (o *Orchestrator) HandleChoice(ctx context.Context, index int) {
	if index < 0 || index >= len(o.lastChoices) {
		return
	}
	o.HandleFreeInput(ctx, o.lastChoices[index])
}

// sendLoop sends the history to the storyteller until a response arrives
// with no tool calls, dispatching each tool call and feeding its result
// back. A successful start_combat suspends the loop instead: combat owns
// the turn sequence until its terminal event.
func (o *Orchestrator) sendLoop(ctx context.Context) {
	o.ctx = ctx
	o.state = StateAwaitingResponse
	o.bus.Publish(event.NarrativeLoading{Loading: true})
	defer o.bus.Publish(event.NarrativeLoading{Loading: false})

	for {
		message, err := o.transport.Complete(ctx, o.history, o.schema)
		if err != nil {
			o.fail(err)
			return
		}
		o.history = append(o.history, message)

		if len(message.ToolCalls) > 0 {
			suspend := false
			for _, call := range message.ToolCalls {
				name := tool.Name(call.Function.Name)
				result := o.tools.Dispatch(tool.Call{
					ID:        call.ID,
					Name:      name,
					Arguments: []byte(call.Function.Arguments),
				})
				o.history = append(o.history, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    string(result),
					ToolCallID: call.ID,
				})
				if name == tool.NameStartCombat && combatStarted(result) {
					suspend = true
				}
			}
			if suspend {
				if o.pendingOutcome != nil {
					// The encounter ran to its end inside the dispatch, so
					// there is no terminal event left to wait for.
					outcome := *o.pendingOutcome
					o.pendingOutcome = nil
					o.history = append(o.history, openai.ChatCompletionMessage{
						Role:    openai.ChatMessageRoleUser,
						Content: o.combatSummary(outcome),
					})
					continue
				}
				o.state = StateAwaitingCombat
				return
			}
			continue
		}

		content := strings.TrimSpace(message.Content)
		if content == "" {
			o.fail(ErrEmptyResponse)
			return
		}
		scene := parseScene(content)
		o.lastChoices = scene.Choices
		options := make([]event.ChoiceOption, len(scene.Choices))
		for i, choice := range scene.Choices {
			options[i] = event.ChoiceOption{Index: i, Text: choice, Available: true}
		}
		o.state = StateIdle
		o.bus.Publish(event.NarrativeScene{
			Narrative: scene.Narrative,
			Choices:   options,
		})
		return
	}
}

func (o *Orchestrator) fail(err error) {
	o.state = StateIdle
	o.bus.Publish(event.NarrativeError{Message: err.Error()})
}

// onCombatEnded clears the combat latch and resumes the loop with a
// synthesized summary of the outcome as the newest history entry. An outcome
// arriving while the request cycle is still dispatching tool calls is stashed
// for the send loop; it means the encounter both started and ended within a
// single start_combat call.
func (o *Orchestrator) onCombatEnded(outcome event.CombatEnded) {
	if o.state == StateAwaitingResponse {
		o.pendingOutcome = &outcome
		return
	}
	if o.state != StateAwaitingCombat {
		return
	}
	o.state = StateIdle

	o.history = append(o.history, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: o.combatSummary(outcome),
	})

	ctx := o.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	o.sendLoop(ctx)
}

func (o *Orchestrator) combatSummary(outcome event.CombatEnded) string {
	switch {
	case outcome.Fled:
		return fmt.Sprintf("[system] The player fled from combat. Current HP: %d/%d. Continue the story.",
			o.player.HP, o.player.MaxHP)
	case outcome.Victory:
		return fmt.Sprintf("[system] The player won the battle and gained %d XP. Current HP: %d/%d. Continue the story.",
			outcome.TotalXP, o.player.HP, o.player.MaxHP)
	default:
		return fmt.Sprintf("[system] The player was defeated in combat. Current HP: %d/%d. Narrate the aftermath.",
			o.player.HP, o.player.MaxHP)
	}
}

type sceneResponse struct {
	Narrative string   `json:"narrative"`
	Choices   []string `json:"choices"`
}

// combatStarted reports whether a start_combat result indicates the engine
// actually entered combat. A failed start never produces a terminal combat
// event, so latching on it would suspend the loop forever.
func combatStarted(result []byte) bool {
	var parsed struct {
		Started bool `json:"started"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return false
	}
	return parsed.Started
}

// parseScene decodes a narrative payload, tolerating a surrounding code
// fence. Unparseable content falls back to raw text with no choices.
func parseScene(content string) sceneResponse {
	candidate := stripFence(strings.TrimSpace(content))
	var parsed sceneResponse
	if err := json.Unmarshal([]byte(candidate), &parsed); err == nil && parsed.Narrative != "" {
		return parsed
	}
	return sceneResponse{Narrative: content}
}

func stripFence(content string) string {
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```")
	if newline := strings.IndexByte(content, '\n'); newline >= 0 {
		// Drop a language tag such as ```json.
		first := strings.TrimSpace(content[:newline])
		if !strings.HasPrefix(first, "{") {
			content = content[newline+1:]
		}
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}
