package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/medallion/internal/engine"
	"github.com/leapstack-labs/medallion/internal/pipeline"
	"github.com/leapstack-labs/medallion/internal/quality"
	"github.com/leapstack-labs/medallion/internal/state"
	"github.com/spf13/cobra"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Layer string
	Stage string
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline through bronze, silver, and gold",
		Long: `Execute the pipeline layer by layer.

Each layer materializes its tables and must pass its quality gate before the
next layer starts. A gate violation halts the run; nothing downstream is built.

Use --layer to run a single layer, or --stage to run one transformation stage
(cleaning, enrichment, aggregation) on its own. Stages assume their upstream
tables already exist.`,
		Example: `  # Full run
  medallion run

  # Only the gold layer (requires silver tables)
  medallion run --layer gold

  # Rebuild the clean dimensions only
  medallion run --stage cleaning`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Layer, "layer", "l", "", "Run a single layer (bronze, silver, gold)")
	cmd.Flags().StringVarP(&opts.Stage, "stage", "s", "", "Run a single stage (cleaning, enrichment, aggregation)")
	cmd.MarkFlagsMutuallyExclusive("layer", "stage")

	_ = cmd.RegisterFlagCompletionFunc("layer", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"bronze", "silver", "gold"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("stage", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"cleaning", "enrichment", "aggregation"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runRun(cmd *cobra.Command, opts *RunOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	eng := cmdCtx.Engine
	startTime := time.Now()

	var run *state.Run
	var runErr error
	switch {
	case opts.Layer != "":
		layer, err := parseLayer(opts.Layer)
		if err != nil {
			return err
		}
		run, runErr = eng.RunLayer(ctx, layer)
	case opts.Stage != "":
		switch opts.Stage {
		case "cleaning":
			run, runErr = eng.RunCleaning(ctx)
		case "enrichment":
			run, runErr = eng.RunEnrichment(ctx)
		case "aggregation":
			run, runErr = eng.RunAggregation(ctx)
		default:
			return fmt.Errorf("unknown stage %q (expected cleaning, enrichment, or aggregation)", opts.Stage)
		}
	default:
		run, runErr = eng.Run(ctx)
	}

	if run != nil {
		printStepTable(cmd, eng, run.ID)
		fmt.Fprintf(cmd.OutOrStdout(), "Run %s: %s (%.1fs)\n", run.ID, run.Status, time.Since(startTime).Seconds())
	}

	if runErr != nil {
		var verr *quality.ViolationError
		if errors.As(runErr, &verr) {
			printViolations(cmd, verr)
		}
		return fmt.Errorf("run failed: %w", runErr)
	}

	// Headline numbers are only meaningful once gold exists.
	if opts.Layer == "" && opts.Stage == "" || opts.Layer == "gold" || opts.Stage == "aggregation" {
		if summary, err := eng.Summarize(ctx); err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Countries: %d  Products: %d  Customers: %d  Revenue: %.2f\n",
				summary.Countries, summary.Products, summary.Customers, summary.TotalRevenue)
		}
	}
	return nil
}

func parseLayer(s string) (pipeline.Layer, error) {
	for _, l := range pipeline.Layers() {
		if s == string(l) {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown layer %q (expected bronze, silver, or gold)", s)
}

func printStepTable(cmd *cobra.Command, eng *engine.Engine, runID string) {
	steps, err := eng.GetStateStore().ListStepRuns(runID)
	if err != nil || len(steps) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Table", "Status", "Rows", "Duration"})
	for _, s := range steps {
		t.AppendRow(table.Row{s.Table, string(s.Status), s.Rows, fmt.Sprintf("%dms", s.DurationMS)})
	}
	t.Render()
}

func printViolations(cmd *cobra.Command, verr *quality.ViolationError) {
	fmt.Fprintf(cmd.ErrOrStderr(), "Quality gate failed at %s:\n", verr.Layer)
	for _, f := range verr.Failures {
		fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s (%d violations)\n", f.Table, f.Rule, f.Violations)
	}
}
