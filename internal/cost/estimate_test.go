package cost

import (
	"math"
	"math/rand/v2"
	"testing"
)

const epsilon = 1e-12

func TestEstimateRegressionFiveMinutes(t *testing.T) {
	b := Estimate(300, "gemini-2.5-flash-lite")
	if b.InputTokens != 85_900 {
		t.Fatalf("input tokens = %d, want 85900", b.InputTokens)
	}
	if b.OutputTokens != 500 || b.TotalTokens != 86_400 {
		t.Fatalf("unexpected token totals: %+v", b)
	}
	if math.Abs(b.InputCost-0.00859) > epsilon {
		t.Fatalf("input cost = %.10f, want 0.00859", b.InputCost)
	}
	if math.Abs(b.OutputCost-0.0002) > epsilon {
		t.Fatalf("output cost = %.10f, want 0.0002", b.OutputCost)
	}
	if math.Abs(b.TotalCost-0.00879) > epsilon {
		t.Fatalf("total cost = %.10f, want 0.00879", b.TotalCost)
	}
	if b.Model != "gemini-2.5-flash-lite" {
		t.Fatalf("unexpected model %q", b.Model)
	}
}

func TestEstimateZeroDurationIsOverheadOnly(t *testing.T) {
	for _, m := range Models() {
		b := Estimate(0, m.ID)
		want := float64(PromptOverheadTokens)/1e6*m.InputCostPerMillion + float64(ResponseTokens)/1e6*m.OutputCostPerMillion
		if b.InputTokens != PromptOverheadTokens {
			t.Fatalf("%s: input tokens = %d", m.ID, b.InputTokens)
		}
		if math.Abs(b.TotalCost-want) > epsilon {
			t.Fatalf("%s: total = %g, want %g", m.ID, b.TotalCost, want)
		}
	}
}

func TestEstimateInvalidDurationTreatedAsZero(t *testing.T) {
	zero := Estimate(0, DefaultModel)
	for _, d := range []float64{-5, math.NaN(), math.Inf(1), math.Inf(-1)} {
		if got := Estimate(d, DefaultModel); got != zero {
			t.Fatalf("Estimate(%v) = %+v, want %+v", d, got, zero)
		}
	}
}

func TestEstimateUnknownModelFallsBack(t *testing.T) {
	got := Estimate(120, "gpt-unknown")
	want := Estimate(120, DefaultModel)
	if got != want {
		t.Fatalf("unknown model estimate %+v, want default %+v", got, want)
	}
}

func TestEstimateMonotonicInDuration(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for _, m := range Models() {
		prev := Estimate(0, m.ID).TotalCost
		duration := 0.0
		for i := 0; i < 200; i++ {
			duration += rng.Float64() * 90
			cur := Estimate(duration, m.ID).TotalCost
			if cur < prev {
				t.Fatalf("%s: cost decreased from %g to %g at %gs", m.ID, prev, cur, duration)
			}
			prev = cur
		}
	}
}

func TestEstimateDeterministic(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 9))
	for i := 0; i < 100; i++ {
		d := rng.Float64() * 5400
		m := Models()[rng.IntN(len(Models()))].ID
		if Estimate(d, m) != Estimate(d, m) {
			t.Fatalf("Estimate(%g, %s) not deterministic", d, m)
		}
	}
}

func TestFormatCost(t *testing.T) {
	cases := map[float64]string{
		0:       "$0.0000",
		0.00879: "$0.0088",
		0.01:    "$0.01",
		12.345:  "$12.35",
	}
	for amount, want := range cases {
		if got := FormatCost(amount); got != want {
			t.Fatalf("FormatCost(%g) = %q, want %q", amount, got, want)
		}
	}
}

func TestFormatTokens(t *testing.T) {
	if got := FormatTokens(85900); got != "85,900" {
		t.Fatalf("FormatTokens = %q", got)
	}
}

func TestLookupAndResolve(t *testing.T) {
	if _, ok := Lookup("gemini-1.5-pro"); !ok {
		t.Fatal("expected gemini-1.5-pro to be known")
	}
	if _, ok := Lookup("nope"); ok {
		t.Fatal("expected unknown model lookup to fail")
	}
	if Resolve("nope").ID != DefaultModel {
		t.Fatal("expected Resolve to fall back to default")
	}
	list := Models()
	list[0].ID = "mutated"
	if Models()[0].ID == "mutated" {
		t.Fatal("Models must return a copy")
	}
}
