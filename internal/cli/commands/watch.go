package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/leapstack-labs/medallion/internal/ingest"
	"github.com/spf13/cobra"
)

// WatchOptions holds options for the watch command.
type WatchOptions struct {
	Settle time.Duration
	Run    bool
}

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	opts := &WatchOptions{}

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Watch the landing directory and auto-ingest new raw files",
		Long: `Watch a landing directory and load each new raw file into bronze once
writes to it have settled.

With --run, a full pipeline run is triggered after every ingested file, so
dropping a file refreshes silver and gold automatically. Runs halted by a
quality gate are reported and watching continues.

Press Ctrl-C to stop.`,
		Example: `  # Auto-ingest into bronze
  medallion watch ./landing

  # Auto-ingest and rebuild the pipeline on every drop
  medallion watch ./landing --run`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args, opts)
		},
	}

	cmd.Flags().DurationVar(&opts.Settle, "settle", ingest.DefaultSettle, "How long a file must be quiet before ingesting")
	cmd.Flags().BoolVar(&opts.Run, "run", false, "Run the full pipeline after each ingested file")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string, opts *WatchOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	dir := cmdCtx.Cfg.DataDir
	if len(args) > 0 {
		dir = args[0]
	}

	eng := cmdCtx.Engine
	out := cmd.OutOrStdout()

	handler := func(ctx context.Context, path string) error {
		table, rows, err := eng.IngestFile(ctx, path)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Ingested %s (%d rows into %s)\n", path, rows, table)

		if !opts.Run {
			return nil
		}
		run, err := eng.Run(ctx)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Run failed: %v\n", err)
			return nil
		}
		fmt.Fprintf(out, "Run %s: %s\n", run.ID, run.Status)
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := ingest.NewWatcher(dir, opts.Settle, handler, cmdCtx.Logger)
	return w.Run(ctx)
}
