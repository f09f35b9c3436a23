package engine

// run.go - Execution orchestration. A full run walks the layers in order;
// each layer materializes its steps in dependency order and then passes its
// quality gate before the next layer begins.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leapstack-labs/medallion/internal/dag"
	"github.com/leapstack-labs/medallion/internal/pipeline"
	"github.com/leapstack-labs/medallion/internal/quality"
	"github.com/leapstack-labs/medallion/internal/state"
)

// Run executes the full pipeline: bronze check and gate, silver cleaning and
// enrichment, silver gate, gold aggregation, gold gate. It is strictly
// sequential; a gate failure halts everything downstream.
func (e *Engine) Run(ctx context.Context) (*state.Run, error) {
	return e.run(ctx, func(ctx context.Context, runID string) error {
		for _, layer := range pipeline.Layers() {
			if err := e.runLayer(ctx, runID, layer); err != nil {
				return err
			}
		}
		return nil
	})
}

// RunCleaning materializes the clean dimension tables only, then runs the
// silver gate rules that target them. Callable independently provided the
// bronze tables exist.
func (e *Engine) RunCleaning(ctx context.Context) (*state.Run, error) {
	return e.run(ctx, func(ctx context.Context, runID string) error {
		tables := []pipeline.Table{pipeline.CustomersClean, pipeline.ProductsClean}
		if err := e.runSteps(ctx, runID, tables); err != nil {
			return err
		}
		return e.runGate(ctx, runID, pipeline.LayerSilver, tables)
	})
}

// RunEnrichment materializes sales_enriched and passes the silver gate.
// Callable independently provided the clean dimensions exist.
func (e *Engine) RunEnrichment(ctx context.Context) (*state.Run, error) {
	return e.run(ctx, func(ctx context.Context, runID string) error {
		if err := e.runSteps(ctx, runID, []pipeline.Table{pipeline.SalesEnriched}); err != nil {
			return err
		}
		return e.runGate(ctx, runID, pipeline.LayerSilver, nil)
	})
}

// RunAggregation materializes the gold rollups and passes the gold gate.
// Callable independently provided sales_enriched exists.
func (e *Engine) RunAggregation(ctx context.Context) (*state.Run, error) {
	return e.run(ctx, func(ctx context.Context, runID string) error {
		return e.runLayer(ctx, runID, pipeline.LayerGold)
	})
}

// RunLayer executes a single layer (its steps plus its gate).
func (e *Engine) RunLayer(ctx context.Context, layer pipeline.Layer) (*state.Run, error) {
	return e.run(ctx, func(ctx context.Context, runID string) error {
		return e.runLayer(ctx, runID, layer)
	})
}

// run wraps an execution body with connection setup and run recording.
func (e *Engine) run(ctx context.Context, body func(ctx context.Context, runID string) error) (*state.Run, error) {
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}

	run, err := e.store.CreateRun(e.environment)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	e.logger.Info("starting run", "run_id", run.ID, "environment", e.environment)

	runErr := body(ctx, run.ID)
	if runErr != nil {
		e.logger.Error("run failed", "run_id", run.ID, "error", runErr.Error())
		_ = e.store.CompleteRun(run.ID, state.RunStatusFailed, runErr.Error())
	} else {
		e.logger.Info("run completed", "run_id", run.ID)
		_ = e.store.CompleteRun(run.ID, state.RunStatusCompleted, "")
	}

	run, err = e.store.GetRun(run.ID)
	if err != nil {
		return nil, err
	}
	return run, runErr
}

// runLayer executes one layer: bronze verifies the raw tables, other layers
// materialize their steps in dependency order; every layer then passes its
// quality gate.
func (e *Engine) runLayer(ctx context.Context, runID string, layer pipeline.Layer) error {
	if layer == pipeline.LayerBronze {
		if err := e.checkBronze(ctx, runID); err != nil {
			return err
		}
	} else {
		var tables []pipeline.Table
		for _, s := range pipeline.LayerSteps(layer) {
			tables = append(tables, s.Table)
		}
		if err := e.runSteps(ctx, runID, tables); err != nil {
			return err
		}
	}
	return e.runGate(ctx, runID, layer, nil)
}

// checkBronze verifies the raw tables exist and records their row counts.
// Bronze is populated by ingestion, not computed, so there is nothing to
// materialize here.
func (e *Engine) checkBronze(ctx context.Context, runID string) error {
	for _, t := range []pipeline.Table{pipeline.RawCustomers, pipeline.RawProducts, pipeline.RawSales} {
		meta, err := e.db.GetTableMetadata(ctx, t.Qualified())
		if err != nil {
			return fmt.Errorf("bronze table %s not available (run ingest first): %w", t.Qualified(), err)
		}

		e.logger.Debug("bronze table present", "table", t.Qualified(), "rows", meta.RowCount)
		_ = e.store.RecordStepRun(&state.StepRun{
			RunID:  runID,
			Table:  t.Qualified(),
			Layer:  string(pipeline.LayerBronze),
			Status: state.StepStatusSuccess,
			Rows:   meta.RowCount,
		})
	}
	return nil
}

// runSteps materializes the given tables in dependency order.
// On failure the remaining steps are recorded as skipped.
func (e *Engine) runSteps(ctx context.Context, runID string, tables []pipeline.Table) error {
	ids := make([]string, len(tables))
	for i, t := range tables {
		ids[i] = t.Qualified()
	}

	sorted, err := e.graph.Subgraph(ids).TopologicalSort()
	if err != nil {
		return fmt.Errorf("dependency sort failed: %w", err)
	}

	for i, node := range sorted {
		step := node.Data.(pipeline.Step)

		// Guard against join fan-out before building the fact table.
		if step.Table == pipeline.SalesEnriched {
			if err := e.assertUniqueDimensions(ctx); err != nil {
				e.recordStepFailure(runID, step, 0, err)
				e.skipRemaining(runID, sorted[i+1:])
				return err
			}
		}

		start := time.Now()
		rows, err := e.materialize(ctx, step)
		elapsed := time.Since(start).Milliseconds()

		if err != nil {
			e.logger.Error("step failed", "table", step.Table.Qualified(), "error", err)
			e.recordStepFailure(runID, step, elapsed, err)
			e.skipRemaining(runID, sorted[i+1:])
			return err
		}

		e.logger.Info("step completed", "table", step.Table.Qualified(), "rows", rows, "duration_ms", elapsed)
		_ = e.store.RecordStepRun(&state.StepRun{
			RunID:      runID,
			Table:      step.Table.Qualified(),
			Layer:      string(step.Table.Layer),
			Status:     state.StepStatusSuccess,
			Rows:       rows,
			DurationMS: elapsed,
		})
	}
	return nil
}

func (e *Engine) recordStepFailure(runID string, step pipeline.Step, elapsed int64, err error) {
	_ = e.store.RecordStepRun(&state.StepRun{
		RunID:      runID,
		Table:      step.Table.Qualified(),
		Layer:      string(step.Table.Layer),
		Status:     state.StepStatusFailed,
		DurationMS: elapsed,
		Error:      err.Error(),
	})
}

// skipRemaining records the steps downstream of a failure as skipped so the
// run history shows why they never ran.
func (e *Engine) skipRemaining(runID string, nodes []*dag.Node) {
	for _, node := range nodes {
		step := node.Data.(pipeline.Step)
		e.logger.Warn("step skipped", "table", step.Table.Qualified(), "reason", "upstream failure")
		_ = e.store.RecordStepRun(&state.StepRun{
			RunID:  runID,
			Table:  step.Table.Qualified(),
			Layer:  string(step.Table.Layer),
			Status: state.StepStatusSkipped,
		})
	}
}

// runGate validates a layer's quality rules, records every check, and turns
// violations into the fatal stop signal. A non-nil tables slice restricts the
// gate to rules targeting those tables.
func (e *Engine) runGate(ctx context.Context, runID string, layer pipeline.Layer, tables []pipeline.Table) error {
	var report *quality.Report
	var err error
	if tables == nil {
		report, err = e.gate.Validate(ctx, e.db, layer)
	} else {
		report, err = e.gate.ValidateTables(ctx, e.db, layer, tables)
	}
	if err != nil {
		return fmt.Errorf("quality gate for %s could not run: %w", layer, err)
	}

	for _, res := range report.Results {
		_ = e.store.RecordQualityCheck(&state.QualityCheck{
			RunID:      runID,
			Layer:      string(layer),
			Table:      res.Table,
			Rule:       res.Rule,
			Violations: res.Violations,
		})
	}

	if err := report.Err(); err != nil {
		var verr *quality.ViolationError
		if errors.As(err, &verr) {
			e.logger.Error("quality gate failed", "layer", layer, "failures", len(verr.Failures))
		}
		return err
	}

	e.logger.Debug("quality gate passed", "layer", layer, "checks", len(report.Results))
	return nil
}
