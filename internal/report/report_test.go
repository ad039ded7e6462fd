package report

import (
	"strings"
	"testing"

	"gogrowth/domain/core"
	"gogrowth/models"
)

func sampleSummaries() []models.StrainSummary {
	return []models.StrainSummary{
		{
			File: "plate.xlsx", Strain: "RB", Model: "Baranyi-Roberts",
			BIC: -312.4, Y0: 0.12, K: 0.56, R: 0.8, Nu: 1.8,
			Lag: 2.3, LagLow: 1.9, LagHigh: 2.8, MaxGrowth: 0.11,
			HasLag: true, HasNu: true, Benchmark: true, Fitness: 1.04,
		},
		{
			File: "plate.xlsx", Strain: "DS", Model: "Logistic",
			BIC: -290.1, Y0: 0.10, K: 0.60, R: 0.7, Nu: 1,
			MaxGrowth: 0.10, Benchmark: false, Fitness: 1,
			Outliers: []string{"C4", "C7"},
		},
	}
}

func TestMarkdown(t *testing.T) {
	runID := core.RunID("run-123")
	md := Markdown(runID, sampleSummaries())

	for _, want := range []string{
		"run-123",
		"plate.xlsx",
		"| RB |",
		"| DS |",
		"Baranyi-Roberts",
		"[1.90, 2.80]",
		"did not beat the linear baseline",
		"C4, C7",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}

	// a degenerate interval renders as absent
	rows := strings.Split(md, "\n")
	for _, row := range rows {
		if strings.HasPrefix(row, "| DS |") && !strings.Contains(row, "—") {
			t.Errorf("DS row should show no confidence interval: %s", row)
		}
	}
}

func TestMarkdown_Empty(t *testing.T) {
	md := Markdown(core.RunID("run-0"), nil)
	if !strings.Contains(md, "No strains analyzed") {
		t.Errorf("empty report: %s", md)
	}
}

func TestHTML(t *testing.T) {
	out := string(HTML(core.RunID("run-123"), sampleSummaries()))
	for _, want := range []string{"<html", "<table>", "RB", "Logistic"} {
		if !strings.Contains(out, want) {
			t.Errorf("html missing %q", want)
		}
	}
}
