package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gogrowth/domain/plate"
)

// Layout maps plate wells to strain and color labels. Layout files are CSVs
// with row, col, strain, and optional color columns, one line per well.
type Layout struct {
	strains map[string]string
	colors  map[string]string
}

// ReadLayout parses a plate-layout CSV
func ReadLayout(path string) (*Layout, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open layout file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read layout file: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("layout file must have a header row and at least one well row")
	}

	rowIdx, colIdx, strainIdx, colorIdx := -1, -1, -1, -1
	for i, h := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "row":
			rowIdx = i
		case "col", "column":
			colIdx = i
		case "strain", "label":
			strainIdx = i
		case "color", "colour":
			colorIdx = i
		}
	}
	if rowIdx < 0 || colIdx < 0 || strainIdx < 0 {
		return nil, fmt.Errorf("layout header must contain row, col, and strain columns, got %v", rows[0])
	}

	layout := &Layout{
		strains: make(map[string]string),
		colors:  make(map[string]string),
	}
	for i, row := range rows[1:] {
		if rowIdx >= len(row) || colIdx >= len(row) || strainIdx >= len(row) {
			return nil, fmt.Errorf("layout row %d is missing fields", i+2)
		}
		col, err := strconv.Atoi(strings.TrimSpace(row[colIdx]))
		if err != nil {
			return nil, fmt.Errorf("layout row %d has a non-numeric column: %w", i+2, err)
		}
		well := fmt.Sprintf("%s%d", strings.ToUpper(strings.TrimSpace(row[rowIdx])), col)
		layout.strains[well] = strings.TrimSpace(row[strainIdx])
		if colorIdx >= 0 && colorIdx < len(row) {
			layout.colors[well] = strings.TrimSpace(row[colorIdx])
		}
	}
	return layout, nil
}

// Apply overwrites strain and color labels on observations whose well
// appears in the layout; unknown wells keep whatever the export carried.
func (l *Layout) Apply(obs []plate.Observation) []plate.Observation {
	for i := range obs {
		if strain, ok := l.strains[obs[i].Well]; ok {
			obs[i].Strain = strain
		}
		if color, ok := l.colors[obs[i].Well]; ok && color != "" {
			obs[i].Color = color
		}
	}
	return obs
}
