package solver

import (
	"context"
	"errors"
	"math"
	"testing"

	"gogrowth/domain/core"
	"gogrowth/domain/growth"
	"gogrowth/ports"
)

func TestBoundTransform_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		spec growth.ParamSpec
		vals []float64
	}{
		{
			name: "two-sided",
			spec: growth.ParamSpec{Name: "q0", Min: 1e-10, Max: 1},
			vals: []float64{1e-9, 0.1, 0.5, 0.99},
		},
		{
			name: "lower only",
			spec: growth.ParamSpec{Name: "K", Min: 1e-10, Max: math.Inf(1)},
			vals: []float64{1e-9, 0.5, 3, 250},
		},
		{
			name: "upper only",
			spec: growth.ParamSpec{Name: "x", Min: math.Inf(-1), Max: 10},
			vals: []float64{-100, 0, 9.5},
		},
		{
			name: "unbounded",
			spec: growth.ParamSpec{Name: "x", Min: math.Inf(-1), Max: math.Inf(1)},
			vals: []float64{-5, 0, 42},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBoundTransform(tt.spec)
			for _, v := range tt.vals {
				got := b.toExternal(b.toInternal(v))
				if math.Abs(got-v) > 1e-8*math.Max(1, math.Abs(v)) {
					t.Errorf("round trip of %g gave %g", v, got)
				}
			}
		})
	}
}

func TestBoundTransform_StaysInBounds(t *testing.T) {
	b := newBoundTransform(growth.ParamSpec{Name: "q0", Min: 0.01, Max: 1})
	for i := -20.0; i <= 20; i += 0.37 {
		x := b.toExternal(i)
		if x < 0.01 || x > 1 {
			t.Fatalf("internal %g mapped outside bounds: %g", i, x)
		}
	}
}

func TestBoundTransform_Slope(t *testing.T) {
	// slope should match the numerical derivative of toExternal
	b := newBoundTransform(growth.ParamSpec{Name: "K", Min: 1e-10, Max: math.Inf(1)})
	h := 1e-6
	for i := -3.0; i <= 3; i += 0.5 {
		want := (b.toExternal(i+h) - b.toExternal(i-h)) / (2 * h)
		if got := b.slope(i); math.Abs(got-want) > 1e-4 {
			t.Fatalf("slope(%g) = %g, numerical %g", i, got, want)
		}
	}
}

func exponentialProblem(a, k float64, guessA, guessK float64) ports.SolveProblem {
	n := 30
	time := make([]float64, n)
	data := make([]float64, n)
	for i := 0; i < n; i++ {
		time[i] = 5 * float64(i) / float64(n-1)
		data[i] = a * (1 - math.Exp(-k*time[i]))
	}
	return ports.SolveProblem{
		Specs: []growth.ParamSpec{
			{Name: "a", Guess: guessA, Min: 1e-10, Max: math.Inf(1), Vary: true},
			{Name: "k", Guess: guessK, Min: 1e-10, Max: math.Inf(1), Vary: true},
		},
		Eval: func(t float64, values map[string]float64) float64 {
			return values["a"] * (1 - math.Exp(-values["k"]*t))
		},
		Time: time,
		Data: data,
	}
}

func TestLevMar_RecoversSaturatingExponential(t *testing.T) {
	s := NewLevMar()
	result, err := s.Solve(context.Background(), exponentialProblem(2.0, 1.3, 1.0, 0.5))
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(result.Values["a"]-2.0) > 0.02 {
		t.Errorf("a = %g, want 2.0", result.Values["a"])
	}
	if math.Abs(result.Values["k"]-1.3) > 0.02 {
		t.Errorf("k = %g, want 1.3", result.Values["k"])
	}
	if result.NData != 30 || result.NVarys != 2 {
		t.Errorf("NData, NVarys = %d, %d", result.NData, result.NVarys)
	}
	if result.Chisqr < 0 {
		t.Errorf("Chisqr = %g", result.Chisqr)
	}
	if result.Covar == nil {
		t.Error("expected a covariance matrix for a well-posed problem")
	} else if result.Covar.SymmetricDim() != 2 {
		t.Errorf("covariance dim = %d, want 2", result.Covar.SymmetricDim())
	}
}

func TestLevMar_FixedParameterStaysPut(t *testing.T) {
	p := exponentialProblem(2.0, 1.3, 2.0, 0.5)
	p.Specs[0].Vary = false // freeze a at its guess

	s := NewLevMar()
	result, err := s.Solve(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if result.Values["a"] != 2.0 {
		t.Fatalf("frozen a moved to %g", result.Values["a"])
	}
	if result.NVarys != 1 {
		t.Fatalf("NVarys = %d, want 1", result.NVarys)
	}
}

func TestLevMar_InsufficientData(t *testing.T) {
	p := exponentialProblem(2.0, 1.3, 1.0, 0.5)
	p.Time = p.Time[:1]
	p.Data = p.Data[:1]

	s := NewLevMar()
	_, err := s.Solve(context.Background(), p)
	if !errors.Is(err, core.ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
}

func TestLevMar_Validation(t *testing.T) {
	s := NewLevMar()
	tests := []struct {
		name   string
		mangle func(*ports.SolveProblem)
	}{
		{"no data", func(p *ports.SolveProblem) { p.Time = nil; p.Data = nil }},
		{"length mismatch", func(p *ports.SolveProblem) { p.Data = p.Data[:5] }},
		{"bad weights", func(p *ports.SolveProblem) { p.Weights = []float64{1} }},
		{"no eval", func(p *ports.SolveProblem) { p.Eval = nil }},
		{"no specs", func(p *ports.SolveProblem) { p.Specs = nil }},
		{"inverted bounds", func(p *ports.SolveProblem) { p.Specs[0].Min, p.Specs[0].Max = 5, 1 }},
		{"nothing free", func(p *ports.SolveProblem) {
			p.Specs[0].Vary = false
			p.Specs[1].Vary = false
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := exponentialProblem(2.0, 1.3, 1.0, 0.5)
			tt.mangle(&p)
			if _, err := s.Solve(context.Background(), p); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestLevMar_RespectsBounds(t *testing.T) {
	// the true parameter sits outside the declared bounds; the solution
	// must stay inside them
	p := exponentialProblem(2.0, 1.3, 1.0, 0.5)
	p.Specs[0].Max = 1.5

	s := NewLevMar()
	result, err := s.Solve(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if a := result.Values["a"]; a < 1e-10 || a > 1.5+1e-9 {
		t.Fatalf("a = %g escaped bounds (0, 1.5]", a)
	}
}
