// Package ability implements ability modifiers and d20 ability checks.
package ability

import (
	"fmt"

	"github.com/torchlit/engine/internal/adventure"
	"github.com/torchlit/engine/internal/dice"
	"github.com/torchlit/engine/internal/event"
)

// Modifier derives the ability modifier from a raw score. The modifier is
// (score-10)/2 rounded toward negative infinity, so a score of 9 gives -1
// rather than 0.
func Modifier(score int) int {
	delta := score - 10
	if delta >= 0 {
		return delta / 2
	}
	return -((-delta + 1) / 2)
}

// CheckResult captures a resolved ability check.
type CheckResult struct {
	Ability  adventure.Ability
	Roll     int
	Modifier int
	Total    int
	DC       int
	Success  bool
}

// Checker resolves d20 ability checks against a difficulty class.
type Checker struct {
	roller *dice.Roller
	bus    *event.Bus
}

// NewChecker creates a checker that rolls on the provided roller.
func NewChecker(roller *dice.Roller, bus *event.Bus) *Checker {
	return &Checker{roller: roller, bus: bus}
}

// Check rolls a d20, adds the modifier for the named ability, and compares
// the total against the difficulty class. Ties go to the roller: a total
// equal to the DC succeeds.
func (c *Checker) Check(scores adventure.Scores, ability adventure.Ability, dc int) (CheckResult, error) {
	score, err := scores.Value(ability)
	if err != nil {
		return CheckResult{}, err
	}

	roll := c.roller.RollDie(20)
	modifier := Modifier(score)
	result := CheckResult{
		Ability:  ability,
		Roll:     roll,
		Modifier: modifier,
		Total:    roll + modifier,
		DC:       dc,
		Success:  roll+modifier >= dc,
	}

	kind := event.LogFailure
	verdict := "failure"
	if result.Success {
		kind = event.LogSuccess
		verdict = "success"
	}
	c.bus.Publish(event.LogMessage{
		Kind: kind,
		Text: fmt.Sprintf("%s check: %d%+d = %d vs DC %d (%s)",
			ability, roll, modifier, result.Total, dc, verdict),
	})
	return result, nil
}
