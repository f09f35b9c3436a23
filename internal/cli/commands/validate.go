package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/medallion/internal/pipeline"
	"github.com/spf13/cobra"
)

// ValidateOptions holds options for the validate command.
type ValidateOptions struct {
	Layer string
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	opts := &ValidateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run quality checks without materializing anything",
		Long: `Evaluate the quality rules against the current table snapshots.

By default every layer whose tables exist is checked. The exit status is
non-zero if any check finds violations.`,
		Example: `  # Check every layer
  medallion validate

  # Check only the bronze rules
  medallion validate --layer bronze`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Layer, "layer", "l", "", "Check a single layer (bronze, silver, gold)")

	return cmd
}

func runValidate(cmd *cobra.Command, opts *ValidateOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	layers := pipeline.Layers()
	if opts.Layer != "" {
		layer, err := parseLayer(opts.Layer)
		if err != nil {
			return err
		}
		layers = []pipeline.Layer{layer}
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Layer", "Table", "Rule", "Violations", "Status"})

	var failed int
	for _, layer := range layers {
		report, err := cmdCtx.Engine.Validate(cmd.Context(), layer)
		if err != nil {
			return fmt.Errorf("validation of %s layer could not run: %w", layer, err)
		}
		for _, res := range report.Results {
			status := "pass"
			if !res.Passed() {
				status = "FAIL"
				failed++
			}
			t.AppendRow(table.Row{string(layer), res.Table, res.Rule, res.Violations, status})
		}
	}
	t.Render()

	if failed > 0 {
		return fmt.Errorf("%d quality %s failed", failed, pluralize(failed, "check", "checks"))
	}
	fmt.Fprintln(cmd.OutOrStdout(), "All quality checks passed")
	return nil
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
