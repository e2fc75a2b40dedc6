package scoring

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"

	"github.com/robalobadob/carguess/internal/car"
)

func TestPriceScore(t *testing.T) {
	tests := []struct {
		name      string
		guess     float64
		target    float64
		wantScore int
		wantErr   float64
		wantOK    bool
	}{
		{"exact", 1000000, 1000000, 4000, 0, true},
		{"ten percent low", 900000, 1000000, 3600, 0.1, true},
		{"half", 1500000, 1000000, 2000, 0.5, true},
		{"double", 2000000, 1000000, 0, 1, true},
		{"triple floors at zero", 3000000, 1000000, 0, 2, true},
		{"zero guess", 0, 500000, 0, 1, true},
		{"zero target", 100, 0, 0, 0, false},
		{"negative target", 100, -5, 0, 0, false},
		{"negative guess", -1, 100, 0, 0, false},
		{"nan guess", math.NaN(), 100, 0, 0, false},
		{"inf target", 100, math.Inf(1), 0, 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			score, relErr, ok := PriceScore(tc.guess, tc.target)
			if ok != tc.wantOK || score != tc.wantScore {
				t.Fatalf("PriceScore(%v, %v) = %d, %v; want %d, %v", tc.guess, tc.target, score, ok, tc.wantScore, tc.wantOK)
			}
			if ok && math.Abs(relErr-tc.wantErr) > 1e-12 {
				t.Errorf("relative error = %v, want %v", relErr, tc.wantErr)
			}
		})
	}
}

func TestPriceScoreMonotonic(t *testing.T) {
	prev := MaxPriceScore + 1
	for g := 1000000.0; g <= 2500000; g += 12345 {
		s, _, ok := PriceScore(g, 1000000)
		if !ok {
			t.Fatalf("unexpected rejection at %v", g)
		}
		if s > prev {
			t.Fatalf("score increased from %d to %d at guess %v", prev, s, g)
		}
		if s < 0 || s > MaxPriceScore {
			t.Fatalf("score %d out of range", s)
		}
		prev = s
	}
}

func TestModelScore(t *testing.T) {
	tests := []struct {
		guess, title string
		want         int
	}{
		{"Impreza", "impreza", 1000},
		{"SUBARU IMPREZA", "Subaru Impreza", 1000},
		{"imp", "Subaru Impreza", 500},
		{"impreza", "Subaru Impreza", 500},
		{"im", "Subaru Impreza", 0},
		{"Subaru Impreza", "impreza", 0},
		{"legacy", "Subaru Impreza", 0},
		{"", "", 0},
		{"", "Subaru Impreza", 0},
		{"Веста", "LADA (ВАЗ) Vesta / Веста", 500},
		{"(ваз)", "LADA (ВАЗ) Vesta", 500},
		{" impreza", "Subaru Impreza", 500},
		{"impreza ", "Subaru Impreza", 0},
	}
	for _, tc := range tests {
		if got := ModelScore(tc.guess, tc.title); got != tc.want {
			t.Errorf("ModelScore(%q, %q) = %d, want %d", tc.guess, tc.title, got, tc.want)
		}
	}
}

func TestResolvePrice(t *testing.T) {
	tests := []struct {
		in     any
		want   float64
		wantOK bool
	}{
		{float64(900000), 900000, true},
		{json.Number("1250000"), 1250000, true},
		{" 42.5 ", 42.5, true},
		{"1e6", 1000000, true},
		{"", 0, false},
		{"abc", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{nil, 0, false},
		{true, 0, false},
		{map[string]any{"v": 1}, 0, false},
		{float64(-3), 0, false},
		{7, 7, true},
	}
	for _, tc := range tests {
		got, ok := ResolvePrice(tc.in)
		if ok != tc.wantOK || got != tc.want {
			t.Errorf("ResolvePrice(%#v) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestScore(t *testing.T) {
	truth := car.Car{ID: "c1", Title: "Subaru Impreza", Price: car.Num(1000000)}

	b := Score(Guess{Price: float64(900000), Model: "imp"}, truth)
	if b.PriceScore != 3600 || b.ModelScore != 500 || b.TotalScore != 4100 {
		t.Errorf("breakdown = %+v", b)
	}
	if b.Error == nil || math.Abs(*b.Error-0.1) > 1e-12 {
		t.Errorf("error = %v, want 0.1", b.Error)
	}
	if b.Correct.ID != "c1" {
		t.Errorf("truth not echoed: %+v", b.Correct)
	}
}

func TestScoreLegacyPrice(t *testing.T) {
	truth := car.Car{Title: "Kia Rio", InitialPriceRub: car.Num(800000)}
	b := Score(Guess{Price: "800000", Model: "kia rio"}, truth)
	if b.PriceScore != 4000 || b.ModelScore != 1000 || b.TotalScore != 5000 {
		t.Errorf("breakdown = %+v", b)
	}
}

func TestScoreMissingPriceIsAbsentNotZero(t *testing.T) {
	tests := []struct {
		name  string
		truth car.Car
		guess any
	}{
		{"no target", car.Car{Title: "Kia Rio"}, float64(1)},
		{"zero target", car.Car{Title: "Kia Rio", Price: car.Num(0)}, float64(1)},
		{"negative target", car.Car{Title: "Kia Rio", Price: car.Num(-10)}, float64(1)},
		{"bad guess", car.Car{Title: "Kia Rio", Price: car.Num(10)}, "ten"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := Score(Guess{Price: tc.guess, Model: "Kia Rio"}, tc.truth)
			if b.PriceScore != 0 || b.Error != nil {
				t.Errorf("price = %d, error = %v; want 0, nil", b.PriceScore, b.Error)
			}
			if b.ModelScore != 1000 || b.TotalScore != 1000 {
				t.Errorf("model dimension affected: %+v", b)
			}
		})
	}
}

func TestScoreBounds(t *testing.T) {
	guesses := []any{float64(0), float64(1), float64(999999), float64(1e12), "x", nil, json.Number("5")}
	models := []string{"", "a", "imp", "Subaru Impreza", "zzz"}
	truth := car.Car{Title: "Subaru Impreza", Price: car.Num(1000000)}
	for _, p := range guesses {
		for _, m := range models {
			b := Score(Guess{Price: p, Model: m}, truth)
			if b.TotalScore < 0 || b.TotalScore > 5000 {
				t.Errorf("total %d out of range for %v/%q", b.TotalScore, p, m)
			}
			if b.PriceScore < 0 || b.PriceScore > MaxPriceScore {
				t.Errorf("price %d out of range", b.PriceScore)
			}
			switch b.ModelScore {
			case 0, PartialModelScore, ExactModelScore:
			default:
				t.Errorf("model score %d not allowed", b.ModelScore)
			}
			if b.TotalScore != b.PriceScore+b.ModelScore {
				t.Errorf("total %d != %d + %d", b.TotalScore, b.PriceScore, b.ModelScore)
			}
		}
	}
}

func TestScoreIdempotent(t *testing.T) {
	truth := car.Car{Title: "Toyota Camry", Price: car.Num(2300000), Description: []string{"2.5 AT"}}
	g := Guess{Price: float64(2000000), Model: "camry"}
	a := Score(g, truth)
	b := Score(g, truth)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("Score not idempotent: %+v vs %+v", a, b)
	}
}

func TestBreakdownJSON(t *testing.T) {
	b := Score(Guess{Price: float64(1), Model: "x"}, car.Car{Title: "Kia"})
	raw, err := json.Marshal(b)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatal(err)
	}
	if v, ok := m["error"]; !ok || v != nil {
		t.Errorf("error should be present and null, got %v", m["error"])
	}
}
