// Package testkit generates synthetic plate-reader data with known ground
// truth, for tests and for exercising the pipeline without a real plate file.
package testkit

import (
	"fmt"
	"math/rand/v2"

	"gogrowth/domain/core"
	"gogrowth/domain/growth"
	"gogrowth/domain/plate"
)

// Kit generates deterministic synthetic growth data. The same seed always
// produces the same plate.
type Kit struct {
	rng *rand.Rand
}

// NewKit creates a generator seeded for reproducibility
func NewKit(seed uint64) *Kit {
	return &Kit{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// SeriesSpec describes one synthetic strain: its true parameters, the time
// grid, per-point gaussian noise, and the number of replicate wells.
type SeriesSpec struct {
	Strain     string
	Params     growth.Params
	MaxTime    float64
	Points     int
	Replicates int
	NoiseSD    float64
}

// DefaultSeriesSpec returns a gentle lag-phase curve sampled densely enough
// for all model variants to be identifiable.
func DefaultSeriesSpec(strain string) SeriesSpec {
	return SeriesSpec{
		Strain: strain,
		Params: growth.Params{
			Y0: 0.12, K: 0.56, R: 0.8, Nu: 1.8, Q0: 0.2, V: 0.8,
		},
		MaxTime:    12,
		Points:     48,
		Replicates: 3,
		NoiseSD:    0.005,
	}
}

// Observations evaluates the spec's true model on its time grid and emits
// one noisy observation per replicate well per time point. Wells are named
// A1, A2, ... within the strain. Negative noisy readings are clipped to 0
// the way a plate reader floors its blanks.
func (k *Kit) Observations(spec SeriesSpec) ([]plate.Observation, error) {
	if spec.Points < 2 || spec.Replicates < 1 || spec.MaxTime <= 0 {
		return nil, core.NewInvalidInputError("series spec needs at least 2 points, 1 replicate, and a positive horizon")
	}

	obs := make([]plate.Observation, 0, spec.Points*spec.Replicates)
	for i := 0; i < spec.Points; i++ {
		t := spec.MaxTime * float64(i) / float64(spec.Points-1)
		y := spec.Params.Eval(t)
		for rep := 0; rep < spec.Replicates; rep++ {
			od := y + k.rng.NormFloat64()*spec.NoiseSD
			if od < 0 {
				od = 0
			}
			obs = append(obs, plate.Observation{
				Time:   t,
				OD:     od,
				Well:   fmt.Sprintf("A%d", rep+1),
				Strain: spec.Strain,
			})
		}
	}
	return obs, nil
}

// Table generates a full table covering every spec, one strain per spec
func (k *Kit) Table(specs ...SeriesSpec) (*plate.Table, error) {
	var all []plate.Observation
	for _, spec := range specs {
		obs, err := k.Observations(spec)
		if err != nil {
			return nil, err
		}
		all = append(all, obs...)
	}
	return plate.NewTable(all)
}

// NoisyWellTable generates a table where one designated replicate well
// carries inflated noise, for outlier-detection tests. The noisy well is
// named after the last replicate index.
func (k *Kit) NoisyWellTable(spec SeriesSpec, noisyFactor float64) (*plate.Table, string, error) {
	if spec.Replicates < 3 {
		return nil, "", core.NewInvalidInputError("noisy-well table needs at least 3 replicates")
	}
	noisyWell := fmt.Sprintf("A%d", spec.Replicates)

	obs, err := k.Observations(spec)
	if err != nil {
		return nil, "", err
	}
	for i := range obs {
		if obs[i].Well == noisyWell {
			y := spec.Params.Eval(obs[i].Time)
			od := y + k.rng.NormFloat64()*spec.NoiseSD*noisyFactor
			if od < 0 {
				od = 0
			}
			obs[i].OD = od
		}
	}
	table, err := plate.NewTable(obs)
	if err != nil {
		return nil, "", err
	}
	return table, noisyWell, nil
}
