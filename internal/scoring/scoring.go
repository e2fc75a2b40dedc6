// internal/scoring/scoring.go
//
// Scoring engine for a single guess.
// Responsibilities:
//   - Resolve the guessed price from whatever the client sent.
//   - Score price by relative error against the record's target price.
//   - Score the model name by case-folded exact or substring match.
//
// Score is a pure function: no state, no I/O, never panics on malformed input.
// Every malformed dimension degrades to a zero sub-score.
package scoring

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/robalobadob/carguess/internal/car"
)

const (
	MaxPriceScore     = 4000
	ExactModelScore   = 1000
	PartialModelScore = 500

	// minPartialLen is the shortest guess (in characters) that may earn
	// partial credit by substring containment.
	minPartialLen = 3
)

// Guess is one player submission. Price is kept as decoded so that
// best-effort coercion happens here rather than at the transport edge.
type Guess struct {
	Price any
	Model string
}

// Breakdown is the itemized result for one round.
type Breakdown struct {
	TotalScore int      `json:"totalScore"`
	PriceScore int      `json:"priceScore"`
	ModelScore int      `json:"modelScore"`
	Error      *float64 `json:"error"` // nil when the price could not be scored
	Correct    car.Car  `json:"correct"`
}

// Score evaluates g against truth.
func Score(g Guess, truth car.Car) Breakdown {
	b := Breakdown{Correct: truth}

	if target, ok := truth.TargetPrice(); ok {
		if guess, ok := ResolvePrice(g.Price); ok {
			if score, relErr, ok := PriceScore(guess, target); ok {
				b.PriceScore = score
				b.Error = &relErr
			}
		}
	}

	b.ModelScore = ModelScore(g.Model, truth.Title)
	b.TotalScore = b.PriceScore + b.ModelScore
	return b
}

// PriceScore returns max(0, round(4000 × (1 − |guess−target|/target))) and
// the relative error. ok is false when target is not a positive finite
// number, in which case nothing is computed.
func PriceScore(guess, target float64) (score int, relErr float64, ok bool) {
	if !finite(target) || target <= 0 || !finite(guess) || guess < 0 {
		return 0, 0, false
	}
	relErr = math.Abs(guess-target) / target
	s := math.Round(MaxPriceScore * (1 - relErr))
	if s < 0 {
		s = 0
	}
	return int(s), relErr, true
}

// ModelScore compares the guessed model with the listing title.
// Exact case-folded match earns 1000; a guess of at least three characters
// contained in the title earns 500. An empty guess never scores.
func ModelScore(guess, title string) int {
	if guess == "" {
		return 0 // even against an empty title: no guess, no points
	}
	g := cases.Fold().String(guess)
	t := cases.Fold().String(title)
	switch {
	case g == t:
		return ExactModelScore
	case utf8.RuneCountInString(g) >= minPartialLen && strings.Contains(t, g):
		return PartialModelScore
	default:
		return 0
	}
}

// ResolvePrice coerces a decoded JSON value into a non-negative finite
// price. Strings are parsed after trimming; booleans, nulls, objects and
// empty strings are rejected.
func ResolvePrice(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		p, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = p
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = p
	default:
		return 0, false
	}
	if !finite(f) || f < 0 {
		return 0, false
	}
	return f, true
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
