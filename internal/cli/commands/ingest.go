package commands

import (
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewIngestCommand creates the ingest command.
func NewIngestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [dir]",
		Short: "Load raw files into the bronze layer",
		Long: `Load raw landing files into the bronze tables.

Files are matched by name: customers*.csv and products*.csv load as CSV,
sales*.json and sales*.ndjson load as newline-delimited JSON. Unrecognized
files are skipped. Malformed rows within a recognized file are skipped without
failing the load; the quality gate rejects bad values later.

With no argument the configured data directory is used.`,
		Example: `  # Load everything from the configured data directory
  medallion ingest

  # Load from an explicit landing directory
  medallion ingest ./landing`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, args)
		},
	}

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	dir := cmdCtx.Cfg.DataDir
	if len(args) > 0 {
		dir = args[0]
	}

	summary, err := cmdCtx.Engine.Ingest(cmd.Context(), dir)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	if summary.Files == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No recognized raw files in %s\n", dir)
		return nil
	}

	tables := make([]string, 0, len(summary.Rows))
	for t := range summary.Rows {
		tables = append(tables, t)
	}
	sort.Strings(tables)

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Table", "Rows"})
	for _, name := range tables {
		t.AppendRow(table.Row{name, summary.Rows[name]})
	}
	t.Render()

	fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d files\n", summary.Files)
	return nil
}
