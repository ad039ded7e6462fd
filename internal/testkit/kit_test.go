package testkit

import (
	"testing"

	"gogrowth/domain/core"
)

func TestObservations(t *testing.T) {
	spec := DefaultSeriesSpec("RB")
	obs, err := NewKit(1).Observations(spec)
	if err != nil {
		t.Fatal(err)
	}
	if len(obs) != spec.Points*spec.Replicates {
		t.Fatalf("got %d observations, want %d", len(obs), spec.Points*spec.Replicates)
	}
	for _, o := range obs {
		if o.Strain != "RB" {
			t.Fatalf("strain = %q", o.Strain)
		}
		if o.OD < 0 {
			t.Fatalf("negative OD %g", o.OD)
		}
		if o.Time < 0 || o.Time > spec.MaxTime {
			t.Fatalf("time %g outside [0, %g]", o.Time, spec.MaxTime)
		}
	}
}

func TestObservations_Deterministic(t *testing.T) {
	spec := DefaultSeriesSpec("RB")
	a, err := NewKit(7).Observations(spec)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewKit(7).Observations(spec)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("observation %d differs between identical seeds", i)
		}
	}

	c, err := NewKit(8).Observations(spec)
	if err != nil {
		t.Fatal(err)
	}
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("different seeds produced identical noise")
	}
}

func TestObservations_Validation(t *testing.T) {
	kit := NewKit(1)
	bad := []SeriesSpec{
		{Strain: "x", Points: 1, Replicates: 1, MaxTime: 10},
		{Strain: "x", Points: 10, Replicates: 0, MaxTime: 10},
		{Strain: "x", Points: 10, Replicates: 1, MaxTime: 0},
	}
	for _, spec := range bad {
		if _, err := kit.Observations(spec); !core.IsInvalidInputError(err) {
			t.Fatalf("%+v: err = %v, want invalid input", spec, err)
		}
	}
}

func TestTable(t *testing.T) {
	a := DefaultSeriesSpec("RB")
	b := DefaultSeriesSpec("DS")
	table, err := NewKit(2).Table(a, b)
	if err != nil {
		t.Fatal(err)
	}

	strains := table.Strains()
	if len(strains) != 2 {
		t.Fatalf("strains = %v, want 2", strains)
	}
	if len(table.Observations) != 2*a.Points*a.Replicates {
		t.Fatalf("got %d observations", len(table.Observations))
	}
}

func TestNoisyWellTable(t *testing.T) {
	spec := DefaultSeriesSpec("RB")
	table, noisy, err := NewKit(4).NoisyWellTable(spec, 20)
	if err != nil {
		t.Fatal(err)
	}
	if noisy != "A3" {
		t.Fatalf("noisy well = %q, want the last replicate A3", noisy)
	}
	if len(table.Wells()) != 3 {
		t.Fatalf("wells = %v", table.Wells())
	}

	spec.Replicates = 2
	if _, _, err := NewKit(4).NoisyWellTable(spec, 20); !core.IsInvalidInputError(err) {
		t.Fatalf("err = %v, want invalid input for fewer than 3 replicates", err)
	}
}
