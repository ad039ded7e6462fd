// Package excel reads plate-reader exports (xlsx or csv) into observation
// tables, optionally merging a plate-layout file that maps wells to strains.
package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"gogrowth/domain/plate"
)

// PlateReader handles reading plate-reader exports in Excel or CSV form.
// The export is expected in long format: one row per reading with time,
// well, and optical density columns, plus optional strain and color labels.
type PlateReader struct {
	// layoutPath optionally names a plate-layout CSV whose strain/color
	// labels override or supplement the export's own.
	layoutPath string
}

// NewPlateReader creates a reader; layoutPath may be empty
func NewPlateReader(layoutPath string) *PlateReader {
	return &PlateReader{layoutPath: layoutPath}
}

// Read parses the named export into a validated observation table,
// implementing the data source port.
func (r *PlateReader) Read(ctx context.Context, name string) (*plate.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(name); os.IsNotExist(err) {
		return nil, fmt.Errorf("plate file not found: %s", name)
	}

	startTime := time.Now()
	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		rows, err = readCSVRows(name)
	case ".xlsx", ".xlsm":
		rows, err = readExcelRows(name)
	default:
		return nil, fmt.Errorf("unsupported plate file type: %s", filepath.Ext(name))
	}
	if err != nil {
		return nil, err
	}
	log.Printf("[PlateReader] %s read in %.2fms (%d rows)",
		filepath.Base(name), float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))

	obs, err := parseObservations(rows)
	if err != nil {
		return nil, err
	}

	if r.layoutPath != "" {
		layout, err := ReadLayout(r.layoutPath)
		if err != nil {
			return nil, err
		}
		obs = layout.Apply(obs)
	}
	return plate.NewTable(obs)
}

func readExcelRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readCSVRows(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

// parseObservations converts header + data rows into observations. Header
// matching is case-insensitive; readings that fail to parse are skipped with
// a count in the log rather than failing the whole file.
func parseObservations(rows [][]string) ([]plate.Observation, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("plate file must have a header row and at least one data row")
	}

	cols, err := mapColumns(rows[0])
	if err != nil {
		return nil, err
	}

	obs := make([]plate.Observation, 0, len(rows)-1)
	skipped := 0
	for _, row := range rows[1:] {
		if cols.time >= len(row) || cols.well >= len(row) || cols.od >= len(row) {
			skipped++
			continue
		}
		t, errT := strconv.ParseFloat(strings.TrimSpace(row[cols.time]), 64)
		od, errOD := strconv.ParseFloat(strings.TrimSpace(row[cols.od]), 64)
		well := strings.TrimSpace(row[cols.well])
		if errT != nil || errOD != nil || well == "" {
			skipped++
			continue
		}
		// canonicalize "a1" → "A1" so export wells line up with layout wells;
		// nonstandard labels pass through untouched
		if r, c, err := plate.ParseWell(well); err == nil {
			well = fmt.Sprintf("%s%d", r, c)
		}

		o := plate.Observation{Time: t, OD: od, Well: well}
		if cols.strain >= 0 && cols.strain < len(row) {
			o.Strain = strings.TrimSpace(row[cols.strain])
		}
		if cols.color >= 0 && cols.color < len(row) {
			o.Color = strings.TrimSpace(row[cols.color])
		}
		obs = append(obs, o)
	}
	if skipped > 0 {
		log.Printf("[PlateReader] skipped %d unparseable rows", skipped)
	}
	return obs, nil
}

type columnIndex struct {
	time, well, od, strain, color int
}

func mapColumns(header []string) (columnIndex, error) {
	cols := columnIndex{time: -1, well: -1, od: -1, strain: -1, color: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "time", "time (h)", "hours":
			cols.time = i
		case "well":
			cols.well = i
		case "od", "od600", "value", "absorbance":
			cols.od = i
		case "strain", "label":
			cols.strain = i
		case "color", "colour":
			cols.color = i
		}
	}
	if cols.time < 0 || cols.well < 0 || cols.od < 0 {
		return cols, fmt.Errorf("plate file header must contain time, well, and OD columns, got %v", header)
	}
	return cols, nil
}
