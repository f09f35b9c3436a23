package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/medallion/internal/state"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// RunsOptions holds options for the runs command.
type RunsOptions struct {
	Limit int
}

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	opts := &RunsOptions{}

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "Show run history",
		Long: `List recent pipeline runs, or show the detail of one run.

The detail view lists every step with its row count and every quality check
with its violation count.`,
		Example: `  # Recent runs
  medallion runs

  # Detail of one run
  medallion runs 4f8c9a12-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(cmd, args, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum number of runs to list")

	return cmd
}

func runRuns(cmd *cobra.Command, args []string, opts *RunsOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	store := cmdCtx.Engine.GetStateStore()
	if len(args) > 0 {
		return showRunDetail(cmd, store, args[0])
	}

	runs, err := store.ListRuns(opts.Limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Environment", "Status", "Started", "Duration"})
	for _, r := range runs {
		t.AppendRow(table.Row{r.ID, r.Environment, string(r.Status), r.StartedAt.Format(time.RFC3339), runDuration(r)})
	}
	t.Render()
	return nil
}

func runDuration(r *state.Run) string {
	if r.CompletedAt == nil {
		return "-"
	}
	return r.CompletedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
}

func showRunDetail(cmd *cobra.Command, store state.Store, runID string) error {
	run, err := store.GetRun(runID)
	if err != nil {
		return fmt.Errorf("run %s not found: %w", runID, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s (%s): %s\n", run.ID, run.Environment, run.Status)
	if run.Error != "" {
		fmt.Fprintf(out, "Error: %s\n", run.Error)
	}

	titler := cases.Title(language.English)

	steps, err := store.ListStepRuns(runID)
	if err != nil {
		return err
	}
	if len(steps) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(out)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Layer", "Table", "Status", "Rows", "Duration"})
		for _, s := range steps {
			t.AppendRow(table.Row{titler.String(s.Layer), s.Table, string(s.Status), s.Rows, fmt.Sprintf("%dms", s.DurationMS)})
		}
		t.Render()
	}

	checks, err := store.ListQualityChecks(runID)
	if err != nil {
		return err
	}
	if len(checks) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(out)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Layer", "Table", "Rule", "Violations"})
		for _, c := range checks {
			t.AppendRow(table.Row{titler.String(c.Layer), c.Table, c.Rule, c.Violations})
		}
		t.Render()
	}

	return nil
}
