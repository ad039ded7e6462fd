package excel

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRead_CSV(t *testing.T) {
	path := writeFile(t, "plate.csv", `Time,Well,OD,Strain
0,A1,0.10,RB
0,A2,0.11,RB
1,A1,0.15,RB
1,A2,0.16,RB
`)
	table, err := NewPlateReader("").Read(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Observations) != 4 {
		t.Fatalf("got %d observations, want 4", len(table.Observations))
	}
	if got := table.Strains(); len(got) != 1 || got[0] != "RB" {
		t.Fatalf("strains = %v", got)
	}
	if got := table.Wells(); len(got) != 2 {
		t.Fatalf("wells = %v", got)
	}
}

func TestRead_HeaderSynonyms(t *testing.T) {
	// exports vary in their column names; all of these spell the same table
	path := writeFile(t, "plate.csv", `Hours,well,OD600,Label
0,a1,0.10,RB
2,a1,0.30,RB
`)
	table, err := NewPlateReader("").Read(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Observations) != 2 {
		t.Fatalf("got %d observations, want 2", len(table.Observations))
	}
	if table.Observations[0].Strain != "RB" {
		t.Fatalf("strain = %q", table.Observations[0].Strain)
	}
	// lowercase export wells are canonicalized to layout form
	if got := table.Wells(); len(got) != 1 || got[0] != "A1" {
		t.Fatalf("wells = %v, want [A1]", got)
	}
}

func TestRead_SkipsBadRows(t *testing.T) {
	path := writeFile(t, "plate.csv", `Time,Well,OD
0,A1,0.10
oops,A1,0.11
1,,0.12
1,A1,not-a-number
2,A1,0.20
`)
	table, err := NewPlateReader("").Read(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Observations) != 2 {
		t.Fatalf("got %d observations, want the 2 parseable rows", len(table.Observations))
	}
}

func TestRead_Errors(t *testing.T) {
	ctx := context.Background()
	r := NewPlateReader("")

	if _, err := r.Read(ctx, filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Fatal("expected an error for a missing file")
	}

	unsupported := writeFile(t, "plate.txt", "whatever")
	if _, err := r.Read(ctx, unsupported); err == nil {
		t.Fatal("expected an error for an unsupported extension")
	}

	noHeader := writeFile(t, "plate.csv", "Time,Well,OD\n")
	if _, err := r.Read(ctx, noHeader); err == nil {
		t.Fatal("expected an error for a file with no data rows")
	}

	badHeader := writeFile(t, "plate.csv", "foo,bar\n1,2\n")
	if _, err := r.Read(ctx, badHeader); err == nil {
		t.Fatal("expected an error for missing required columns")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	good := writeFile(t, "plate.csv", "Time,Well,OD\n0,A1,0.1\n")
	if _, err := r.Read(cancelled, good); err == nil {
		t.Fatal("expected a context error")
	}
}

func TestRead_WithLayout(t *testing.T) {
	layout := writeFile(t, "layout.csv", `Row,Col,Strain,Color
A,1,RB,#1f77b4
A,2,DS,#ff7f0e
`)
	data := writeFile(t, "plate.csv", `Time,Well,OD
0,A1,0.10
0,A2,0.11
0,B1,0.12
`)
	table, err := NewPlateReader(layout).Read(context.Background(), data)
	if err != nil {
		t.Fatal(err)
	}

	byWell := make(map[string]string)
	colors := make(map[string]string)
	for _, o := range table.Observations {
		byWell[o.Well] = o.Strain
		colors[o.Well] = o.Color
	}
	if byWell["A1"] != "RB" || byWell["A2"] != "DS" {
		t.Fatalf("layout strains not applied: %v", byWell)
	}
	if colors["A1"] != "#1f77b4" {
		t.Fatalf("layout color not applied: %v", colors)
	}
	// wells missing from the layout keep the export's own labels
	if byWell["B1"] != "" {
		t.Fatalf("unexpected strain for B1: %q", byWell["B1"])
	}
}

func TestReadLayout_Errors(t *testing.T) {
	missingCols := writeFile(t, "layout.csv", "Row,Strain\nA,RB\n")
	if _, err := ReadLayout(missingCols); err == nil {
		t.Fatal("expected an error for a layout without a col column")
	}

	badCol := writeFile(t, "layout.csv", "Row,Col,Strain\nA,one,RB\n")
	if _, err := ReadLayout(badCol); err == nil {
		t.Fatal("expected an error for a non-numeric column index")
	}
}
