package plate

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gogrowth/domain/core"
)

// Observation is a single optical-density reading from one well
type Observation struct {
	Time   float64 `json:"time"` // hours
	OD     float64 `json:"od"`
	Well   string  `json:"well"`
	Strain string  `json:"strain,omitempty"`
	Color  string  `json:"color,omitempty"`
}

// Table is a collection of per-well observations, the raw input of an analysis.
// Multiple wells may share the same strain.
type Table struct {
	Observations []Observation
}

// NewTable validates the observations and wraps them in a table
func NewTable(obs []Observation) (*Table, error) {
	if len(obs) == 0 {
		return nil, core.ErrEmptyTable
	}
	for i, o := range obs {
		if math.IsNaN(o.Time) || math.IsInf(o.Time, 0) {
			return nil, core.NewInvalidInputError(fmt.Sprintf("observation %d has non-finite time", i))
		}
		if math.IsNaN(o.OD) || math.IsInf(o.OD, 0) {
			return nil, core.NewInvalidInputError(fmt.Sprintf("observation %d has non-finite OD", i))
		}
		if o.OD < 0 {
			return nil, core.NewInvalidInputError(fmt.Sprintf("observation %d has negative OD %g", i, o.OD))
		}
		if o.Well == "" {
			return nil, core.NewInvalidInputError(fmt.Sprintf("observation %d has no well identifier", i))
		}
	}
	return &Table{Observations: obs}, nil
}

// Wells returns the distinct well identifiers in first-appearance order
func (t *Table) Wells() []string {
	seen := make(map[string]bool)
	wells := make([]string, 0)
	for _, o := range t.Observations {
		if !seen[o.Well] {
			seen[o.Well] = true
			wells = append(wells, o.Well)
		}
	}
	return wells
}

// Strains returns the distinct strain names in first-appearance order
func (t *Table) Strains() []string {
	seen := make(map[string]bool)
	strains := make([]string, 0)
	for _, o := range t.Observations {
		if !seen[o.Strain] {
			seen[o.Strain] = true
			strains = append(strains, o.Strain)
		}
	}
	return strains
}

// FilterStrain returns a table holding only the given strain's observations
func (t *Table) FilterStrain(strain string) (*Table, error) {
	obs := make([]Observation, 0)
	for _, o := range t.Observations {
		if o.Strain == strain {
			obs = append(obs, o)
		}
	}
	if len(obs) == 0 {
		return nil, core.NewInvalidInputError(fmt.Sprintf("no observations for strain %q", strain))
	}
	return &Table{Observations: obs}, nil
}

// ExcludeWells returns a table without the given wells
func (t *Table) ExcludeWells(wells ...string) (*Table, error) {
	skip := make(map[string]bool, len(wells))
	for _, w := range wells {
		skip[w] = true
	}
	obs := make([]Observation, 0, len(t.Observations))
	for _, o := range t.Observations {
		if !skip[o.Well] {
			obs = append(obs, o)
		}
	}
	if len(obs) == 0 {
		return nil, core.NewInvalidInputError("excluding wells left an empty table")
	}
	return &Table{Observations: obs}, nil
}

// SubtractBlank removes the named blank strain from the table and subtracts
// its mean reading at each time point from every remaining observation,
// flooring at zero. Observations at time points the blanks never sampled are
// left untouched.
func (t *Table) SubtractBlank(strain string) (*Table, error) {
	blankSum := make(map[float64]float64)
	blankCount := make(map[float64]int)
	for _, o := range t.Observations {
		if o.Strain == strain {
			blankSum[o.Time] += o.OD
			blankCount[o.Time]++
		}
	}
	if len(blankCount) == 0 {
		return nil, core.NewInvalidInputError(fmt.Sprintf("no blank observations for strain %q", strain))
	}

	obs := make([]Observation, 0, len(t.Observations))
	for _, o := range t.Observations {
		if o.Strain == strain {
			continue
		}
		if n := blankCount[o.Time]; n > 0 {
			o.OD -= blankSum[o.Time] / float64(n)
			if o.OD < 0 {
				o.OD = 0
			}
		}
		obs = append(obs, o)
	}
	if len(obs) == 0 {
		return nil, core.NewInvalidInputError("blank subtraction left an empty table")
	}
	return &Table{Observations: obs}, nil
}

// TrimAfter returns a table without observations past maxTime hours
func (t *Table) TrimAfter(maxTime float64) *Table {
	obs := make([]Observation, 0, len(t.Observations))
	for _, o := range t.Observations {
		if o.Time < maxTime {
			obs = append(obs, o)
		}
	}
	return &Table{Observations: obs}
}

// ParseWell splits a well name such as "C7" into its row letter and column number
func ParseWell(well string) (row string, col int, err error) {
	if len(well) < 2 {
		return "", 0, core.NewInvalidInputError(fmt.Sprintf("malformed well name %q", well))
	}
	row = strings.ToUpper(well[:1])
	if row[0] < 'A' || row[0] > 'Z' {
		return "", 0, core.NewInvalidInputError(fmt.Sprintf("malformed well row in %q", well))
	}
	col, err = strconv.Atoi(well[1:])
	if err != nil || col < 1 {
		return "", 0, core.NewInvalidInputError(fmt.Sprintf("malformed well column in %q", well))
	}
	return row, col, nil
}
