package plate

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"gogrowth/domain/core"
)

// AggregatedSeries is the fitting target: per-timepoint mean and standard
// deviation of OD across replicate wells. Std entries are NaN where a
// timepoint has a single replicate.
type AggregatedSeries struct {
	Time []float64
	Mean []float64
	Std  []float64
}

// Len returns the number of timepoints
func (s *AggregatedSeries) Len() int {
	return len(s.Time)
}

// MaxTime returns the last timepoint
func (s *AggregatedSeries) MaxTime() float64 {
	if len(s.Time) == 0 {
		return 0
	}
	return s.Time[len(s.Time)-1]
}

// HasReplicateStd reports whether every timepoint carries a finite standard
// deviation, i.e. whether weighted fitting is possible
func (s *AggregatedSeries) HasReplicateStd() bool {
	for _, sd := range s.Std {
		if math.IsNaN(sd) || math.IsInf(sd, 0) {
			return false
		}
	}
	return len(s.Std) > 0
}

// Aggregate groups the table's observations by time and reduces each group to
// its mean and standard deviation across replicate wells
func Aggregate(t *Table) (*AggregatedSeries, error) {
	if t == nil || len(t.Observations) == 0 {
		return nil, core.ErrEmptyTable
	}

	groups := make(map[float64][]float64)
	for _, o := range t.Observations {
		groups[o.Time] = append(groups[o.Time], o.OD)
	}

	times := make([]float64, 0, len(groups))
	for tm := range groups {
		times = append(times, tm)
	}
	sort.Float64s(times)

	series := &AggregatedSeries{
		Time: times,
		Mean: make([]float64, len(times)),
		Std:  make([]float64, len(times)),
	}
	for i, tm := range times {
		ods := groups[tm]
		mean, err := stats.Mean(ods)
		if err != nil {
			return nil, core.NewInvalidInputError("could not aggregate OD values: " + err.Error())
		}
		series.Mean[i] = mean
		if len(ods) > 1 {
			sd, err := stats.StandardDeviationSample(ods)
			if err != nil {
				return nil, core.NewInvalidInputError("could not aggregate OD values: " + err.Error())
			}
			series.Std[i] = sd
		} else {
			series.Std[i] = math.NaN()
		}
	}
	return series, nil
}
