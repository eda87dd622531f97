package adventure

import (
	"fmt"
	"io"
	"strings"

	"github.com/torchlit/engine/internal/event"
)

// renderer prints session events as terminal text. It is deliberately dumb:
// one event in, a few lines out, no state beyond the writer.
type renderer struct {
	out io.Writer
}

func newRenderer(out io.Writer) *renderer {
	return &renderer{out: out}
}

func (r *renderer) handle(ev event.Event) {
	switch e := ev.(type) {
	case event.LogMessage:
		r.logMessage(e)
	case event.PlayerChanged:
		fmt.Fprintf(r.out, "[%s] HP %d/%d  XP %d  Gold %d\n", e.Name, e.HP, e.MaxHP, e.XP, e.Gold)
	case event.SceneEntered:
		r.scene(e)
	case event.CombatStarted:
		r.combatStarted(e)
	case event.CombatTurn:
		r.combatTurn(e)
	case event.CombatEnded:
		r.combatEnded(e)
	case event.NarrativeScene:
		r.narrativeScene(e)
	case event.NarrativeLoading:
		if e.Loading {
			fmt.Fprintln(r.out, "...")
		}
	case event.NarrativeError:
		fmt.Fprintf(r.out, "The storyteller falters: %s\n", e.Message)
	}
}

func (r *renderer) logMessage(e event.LogMessage) {
	switch e.Kind {
	case event.LogSystem:
		fmt.Fprintf(r.out, "* %s\n", e.Text)
	default:
		fmt.Fprintf(r.out, "  %s\n", e.Text)
	}
}

func (r *renderer) scene(e event.SceneEntered) {
	fmt.Fprintf(r.out, "\n%s\n", e.Text)
	switch {
	case e.Victory:
		fmt.Fprintln(r.out, "\nVICTORY")
	case e.GameOver:
		fmt.Fprintln(r.out, "\nGAME OVER")
	}
	for _, choice := range e.Choices {
		if !choice.Available {
			fmt.Fprintf(r.out, "  %d. %s (unavailable)\n", choice.Index+1, choice.Text)
			continue
		}
		fmt.Fprintf(r.out, "  %d. %s\n", choice.Index+1, choice.Text)
	}
}

func (r *renderer) combatStarted(e event.CombatStarted) {
	fmt.Fprintln(r.out, "\n-- combat --")
	for _, enemy := range e.Enemies {
		fmt.Fprintf(r.out, "  %s (%d/%d HP)\n", enemy.Name, enemy.HP, enemy.MaxHP)
	}
	fmt.Fprintf(r.out, "  order: %s\n", strings.Join(e.Order, ", "))
}

func (r *renderer) combatTurn(e event.CombatTurn) {
	fmt.Fprintf(r.out, "\nRound %d. Your turn.\n", e.Round)
	for i, enemy := range e.Enemies {
		status := fmt.Sprintf("%d/%d HP", enemy.HP, enemy.MaxHP)
		if enemy.HP <= 0 {
			status = "down"
		}
		fmt.Fprintf(r.out, "  %d. %s (%s)\n", i+1, enemy.Name, status)
	}
}

func (r *renderer) combatEnded(e event.CombatEnded) {
	switch {
	case e.Victory:
		fmt.Fprintf(r.out, "-- combat won, %d XP --\n", e.TotalXP)
	case e.Fled:
		fmt.Fprintln(r.out, "-- you escape --")
	default:
		fmt.Fprintln(r.out, "-- you fall --")
	}
}

func (r *renderer) narrativeScene(e event.NarrativeScene) {
	fmt.Fprintf(r.out, "\n%s\n", e.Narrative)
	for _, choice := range e.Choices {
		fmt.Fprintf(r.out, "  %d. %s\n", choice.Index+1, choice.Text)
	}
}
