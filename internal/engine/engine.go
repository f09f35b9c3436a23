// Package engine orchestrates the medallion pipeline: layer-ordered execution
// of the step catalog, staged-swap materialization, quality-gate enforcement,
// and run recording.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/medallion/internal/dag"
	"github.com/leapstack-labs/medallion/internal/ingest"
	"github.com/leapstack-labs/medallion/internal/pipeline"
	"github.com/leapstack-labs/medallion/internal/quality"
	"github.com/leapstack-labs/medallion/internal/state"
	"github.com/leapstack-labs/medallion/pkg/adapter"
)

// Engine executes the pipeline against a warehouse backend.
type Engine struct {
	// Warehouse adapter (lazy initialized)
	db          adapter.Adapter
	dbConfig    adapter.Config
	dbConnected bool
	dbMu        sync.Mutex

	logger *slog.Logger

	store       state.Store
	gate        *quality.Gate
	graph       *dag.Graph
	environment string
}

// Config holds engine configuration.
type Config struct {
	// StatePath is the path to the SQLite run-history database.
	StatePath string
	// Environment is the current environment (dev, staging, prod).
	Environment string
	// AdapterConfig selects and configures the warehouse backend.
	AdapterConfig adapter.Config
	// RuleSets overrides the quality rules per layer (nil uses defaults).
	RuleSets map[pipeline.Layer][]quality.RuleSet
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// New creates a new engine with a lazy warehouse connection.
// The adapter is only connected when a run or ingest is started.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	env := cfg.Environment
	if env == "" {
		env = "dev"
	}

	dbConfig := cfg.AdapterConfig
	if dbConfig.Type == "" {
		dbConfig.Type = "duckdb"
	}

	logger.Debug("initializing engine", "adapter_type", dbConfig.Type, "environment", env)

	store := state.NewSQLiteStore(logger)
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate state store: %w", err)
	}

	graph, err := pipeline.Graph()
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to build step graph: %w", err)
	}

	return &Engine{
		db:          nil, // lazy
		dbConfig:    dbConfig,
		logger:      logger,
		store:       store,
		gate:        quality.NewGate(cfg.RuleSets, logger),
		graph:       graph,
		environment: env,
	}, nil
}

// ensureDBConnected lazily connects to the warehouse.
func (e *Engine) ensureDBConnected(ctx context.Context) error {
	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	if e.dbConnected {
		return nil
	}

	e.logger.Debug("connecting to warehouse", "adapter_type", e.dbConfig.Type)

	db, err := adapter.New(e.dbConfig, e.logger)
	if err != nil {
		return fmt.Errorf("failed to create warehouse adapter: %w", err)
	}
	if err := db.Connect(ctx, e.dbConfig); err != nil {
		return fmt.Errorf("failed to connect to warehouse: %w", err)
	}

	e.db = db
	e.dbConnected = true
	return nil
}

// Close releases all resources.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")

	var errs []error
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing engine: %v", errs)
	}
	return nil
}

// Ingest loads every recognized raw file in dir into the bronze tables.
func (e *Engine) Ingest(ctx context.Context, dir string) (*ingest.Summary, error) {
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}
	return ingest.NewLoader(e.db, e.logger).LoadDir(ctx, dir)
}

// IngestFile loads a single raw file into its bronze table.
func (e *Engine) IngestFile(ctx context.Context, path string) (string, int64, error) {
	if err := e.ensureDBConnected(ctx); err != nil {
		return "", 0, err
	}
	loader := ingest.NewLoader(e.db, e.logger)
	if err := loader.EnsureSchema(ctx); err != nil {
		return "", 0, err
	}
	return loader.LoadFile(ctx, path)
}

// Query runs an ad-hoc query against the warehouse.
func (e *Engine) Query(ctx context.Context, sql string) (*adapter.Rows, error) {
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}
	return e.db.Query(ctx, sql)
}

// Validate runs the quality gate for a layer without materializing anything.
func (e *Engine) Validate(ctx context.Context, layer pipeline.Layer) (*quality.Report, error) {
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}
	return e.gate.Validate(ctx, e.db, layer)
}

// GetGraph returns the step dependency graph.
func (e *Engine) GetGraph() *dag.Graph {
	return e.graph
}

// GetStateStore returns the run-history store.
func (e *Engine) GetStateStore() state.Store {
	return e.store
}
