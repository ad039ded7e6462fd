// Package report renders analysis summaries as markdown and HTML.
package report

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"gogrowth/domain/core"
	"gogrowth/models"
)

// Markdown renders the per-strain summaries of a run as a markdown report
func Markdown(runID core.RunID, summaries []models.StrainSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Growth analysis %s\n\n", runID)
	if len(summaries) == 0 {
		b.WriteString("No strains analyzed.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "Source: `%s` — %d strains\n\n", summaries[0].File, len(summaries))

	b.WriteString("| Strain | Model | BIC | y0 | K | r | nu | Lag (h) | Lag 95% CI | Max rate | Lag phase | Shape | Fitness |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|---|---|---|---|---|\n")
	for _, s := range summaries {
		ci := "—"
		if s.LagHigh > s.LagLow {
			ci = fmt.Sprintf("[%.2f, %.2f]", s.LagLow, s.LagHigh)
		}
		fmt.Fprintf(&b, "| %s | %s | %.2f | %.3f | %.3f | %.3f | %.2f | %.2f | %s | %.3f | %s | %s | %.3f |\n",
			s.Strain, s.Model, s.BIC, s.Y0, s.K, s.R, s.Nu, s.Lag, ci, s.MaxGrowth,
			yesNo(s.HasLag), yesNo(s.HasNu), s.Fitness)
	}
	b.WriteString("\n")

	for _, s := range summaries {
		if !s.Benchmark {
			fmt.Fprintf(&b, "- **%s** did not beat the linear baseline; treat its parameters with caution.\n", s.Strain)
		}
		if len(s.Outliers) > 0 {
			fmt.Fprintf(&b, "- **%s** outlier wells removed: %s\n", s.Strain, strings.Join(s.Outliers, ", "))
		}
	}
	return b.String()
}

// HTML renders the same report as a standalone HTML page
func HTML(runID core.RunID, summaries []models.StrainSummary) []byte {
	md := Markdown(runID, summaries)
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{
		Title: fmt.Sprintf("Growth analysis %s", runID),
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.ToHTML([]byte(md), p, renderer)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
