package round

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ParsePrice reads a formatted price such as "1 250 000 ₽" by keeping only
// its digits. Input without digits is rejected.
func ParsePrice(s string) (float64, bool) {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ThousandsSep separates digit groups in FormatPrice output.
const ThousandsSep = " "

// FormatPrice groups digits in threes, e.g. 1 250 000.
func FormatPrice(v float64) string {
	digits := strconv.FormatFloat(math.Round(v), 'f', 0, 64)
	neg := strings.HasPrefix(digits, "-")
	digits = strings.TrimPrefix(digits, "-")
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteString(ThousandsSep)
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// normalize converts an untrusted reply into a Breakdown. Scores that are
// missing, mistyped or non-finite become 0; a bad or negative relative
// error becomes absent rather than 0.
func normalize(r Reply) Breakdown {
	b := Breakdown{
		TotalScore: normalizeScore(r.TotalScore),
		PriceScore: normalizeScore(r.PriceScore),
		ModelScore: normalizeScore(r.ModelScore),
		Correct:    r.Correct,
	}
	if f, ok := number(r.Error); ok && f >= 0 {
		b.Error = &f
	}
	return b
}

func normalizeScore(v any) int {
	f, ok := number(v)
	if !ok || f > math.MaxInt32 || f < math.MinInt32 {
		return 0
	}
	return int(math.Round(f))
}

// number accepts only JSON numbers; numeric strings are not coerced.
func number(v any) (float64, bool) {
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
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
