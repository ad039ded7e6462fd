package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gogrowth/adapters/excel"
	"gogrowth/adapters/postgres"
	"gogrowth/adapters/solver"
	"gogrowth/app"
	"gogrowth/internal/config"
	"gogrowth/internal/fitting"
	"gogrowth/internal/report"
	"gogrowth/internal/testkit"
	"gogrowth/ports"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gogrowth",
		Short: "Growth-curve model fitting and selection for plate-reader data",
	}

	rootCmd.AddCommand(
		newAnalyzeCmd(),
		newGenerateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newAnalyzeCmd() *cobra.Command {
	var (
		layout     string
		blank      string
		maxHours   float64
		asJSON     bool
		persist    bool
		unweighted bool
		reference  string
	)

	cmd := &cobra.Command{
		Use:   "analyze [plate-file]",
		Short: "Fit the nested growth-model family to every strain in a plate file",
		Long: `Read a plate-reader export (xlsx or csv), fit the five nested growth
model variants to each strain, pick a winner by BIC, and report lag,
maximum growth rate, outlier wells, and relative fitness.

Example: gogrowth analyze plate.xlsx --layout layout.csv --blank BLANK --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), args[0], analyzeFlags{
				layout:     layout,
				blank:      blank,
				maxHours:   maxHours,
				asJSON:     asJSON,
				persist:    persist,
				unweighted: unweighted,
				reference:  reference,
			})
		},
	}

	cmd.Flags().StringVar(&layout, "layout", "", "Plate-layout CSV mapping wells to strains")
	cmd.Flags().StringVar(&blank, "blank", "", "Strain label of media blanks to subtract")
	cmd.Flags().Float64Var(&maxHours, "max-hours", 0, "Drop observations after this many hours (0 keeps all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a markdown report")
	cmd.Flags().BoolVar(&persist, "persist", false, "Store summaries in the configured database")
	cmd.Flags().BoolVar(&unweighted, "unweighted", false, "Skip replicate-std weighting")
	cmd.Flags().StringVar(&reference, "reference", "", "Reference strain for fitness simulations")

	return cmd
}

type analyzeFlags struct {
	layout     string
	blank      string
	maxHours   float64
	asJSON     bool
	persist    bool
	unweighted bool
	reference  string
}

func runAnalyze(ctx context.Context, file string, flags analyzeFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if flags.layout == "" {
		flags.layout = cfg.Data.PlateLayout
	}
	if flags.blank == "" {
		flags.blank = cfg.Data.BlankStrain
	}
	if flags.maxHours == 0 {
		flags.maxHours = cfg.Data.MaxHours
	}
	cfg.Analysis.Unweighted = cfg.Analysis.Unweighted || flags.unweighted
	if flags.reference != "" {
		cfg.Analysis.ReferenceStrain = flags.reference
	}

	reader := excel.NewPlateReader(flags.layout)
	table, err := reader.Read(ctx, file)
	if err != nil {
		return err
	}
	if flags.blank != "" {
		table, err = table.SubtractBlank(flags.blank)
		if err != nil {
			return err
		}
	}
	if flags.maxHours > 0 {
		table = table.TrimAfter(flags.maxHours)
	}

	var repo ports.ResultRepository
	if flags.persist {
		if cfg.Database.URL == "" {
			return fmt.Errorf("--persist requires DATABASE_URL to be set")
		}
		db, err := postgres.Connect(cfg.Database.URL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return err
		}
		repo = postgres.NewSummaryRepository(db)
	}

	engine := fitting.NewEngine(solver.NewLevMar())
	service := app.NewAnalysisService(engine, repo, cfg.Analysis)

	runID, summaries, err := service.AnalyzeTable(ctx, table, file)
	if err != nil {
		return err
	}

	if flags.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"run_id": runID, "summaries": summaries})
	}
	fmt.Print(report.Markdown(runID, summaries))
	return nil
}

func newGenerateCmd() *cobra.Command {
	var (
		seed   uint64
		strain string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic plate-reader CSV with known ground truth",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(seed, strain, out)
		},
	}

	cmd.Flags().Uint64Var(&seed, "seed", 42, "Random seed")
	cmd.Flags().StringVar(&strain, "strain", "synthetic", "Strain label")
	cmd.Flags().StringVar(&out, "out", "synthetic_plate.csv", "Output CSV path")

	return cmd
}

func runGenerate(seed uint64, strain, out string) error {
	kit := testkit.NewKit(seed)
	table, err := kit.Table(testkit.DefaultSeriesSpec(strain))
	if err != nil {
		return err
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, "time,well,od,strain"); err != nil {
		return err
	}
	for _, o := range table.Observations {
		if _, err := fmt.Fprintf(f, "%g,%s,%g,%s\n", o.Time, o.Well, o.OD, o.Strain); err != nil {
			return err
		}
	}
	fmt.Printf("wrote %d observations to %s\n", len(table.Observations), out)
	return nil
}
