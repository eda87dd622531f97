// Package dice implements dice-expression parsing and rolling.
package dice

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"time"

	"github.com/torchlit/engine/internal/event"
)

// ErrInvalidExpression indicates a dice expression could not be parsed.
var ErrInvalidExpression = errors.New("invalid dice expression")

// expressionPattern matches expressions of the form NdM, NdM+K, and NdM-K.
var expressionPattern = regexp.MustCompile(`^(\d+)d(\d+)([+-]\d+)?$`)

// Expression is a parsed dice expression.
type Expression struct {
	Count    int
	Sides    int
	Modifier int
}

// Parse parses a dice expression such as "2d6+1".
//
// Parse is strict: the expression must match NdM with an optional signed
// integer modifier, and both the die count and side count must be positive.
func Parse(expression string) (Expression, error) {
	match := expressionPattern.FindStringSubmatch(expression)
	if match == nil {
		return Expression{}, fmt.Errorf("%w: %q", ErrInvalidExpression, expression)
	}

	count, err := strconv.Atoi(match[1])
	if err != nil {
		return Expression{}, fmt.Errorf("%w: %q", ErrInvalidExpression, expression)
	}
	sides, err := strconv.Atoi(match[2])
	if err != nil {
		return Expression{}, fmt.Errorf("%w: %q", ErrInvalidExpression, expression)
	}
	modifier := 0
	if match[3] != "" {
		modifier, err = strconv.Atoi(match[3])
		if err != nil {
			return Expression{}, fmt.Errorf("%w: %q", ErrInvalidExpression, expression)
		}
	}

	if count < 1 || sides < 1 {
		return Expression{}, fmt.Errorf("%w: %q", ErrInvalidExpression, expression)
	}

	return Expression{Count: count, Sides: sides, Modifier: modifier}, nil
}

// Result captures the outcome of rolling a parsed expression.
type Result struct {
	Expression string
	Rolls      []int
	Modifier   int
	Total      int
}

// Roller rolls dice from a single random source.
//
// # Determinism
//
// Rollers built with NewSeededRoller produce the same sequence of results
// for the same seed and the same sequence of calls.
type Roller struct {
	rng *rand.Rand
	bus *event.Bus
}

// NewRoller creates a roller seeded from the current time.
func NewRoller(bus *event.Bus) *Roller {
	return NewSeededRoller(bus, time.Now().UnixNano())
}

// NewSeededRoller creates a deterministic roller from an explicit seed.
func NewSeededRoller(bus *event.Bus, seed int64) *Roller {
	return &Roller{
		rng: rand.New(rand.NewSource(seed)),
		bus: bus,
	}
}

// RollDie rolls a single die with the provided number of sides without
// publishing an event. Callers that announce rolls themselves, such as
// combat resolution, use RollDie directly.
func (r *Roller) RollDie(sides int) int {
	if sides < 1 {
		return 0
	}
	return r.rng.Intn(sides) + 1
}

// Roll parses and rolls a dice expression, publishing the breakdown on the
// bus.
func (r *Roller) Roll(expression string) (Result, error) {
	parsed, err := Parse(expression)
	if err != nil {
		return Result{}, err
	}

	rolls := make([]int, parsed.Count)
	total := parsed.Modifier
	for i := 0; i < parsed.Count; i++ {
		rolls[i] = r.RollDie(parsed.Sides)
		total += rolls[i]
	}

	result := Result{
		Expression: expression,
		Rolls:      rolls,
		Modifier:   parsed.Modifier,
		Total:      total,
	}
	r.bus.Publish(event.DiceRolled{
		Expression: result.Expression,
		Rolls:      result.Rolls,
		Modifier:   result.Modifier,
		Total:      result.Total,
	})
	return result, nil
}
