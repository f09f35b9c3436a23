// Package duckdb provides a DuckDB warehouse adapter for the medallion pipeline.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/leapstack-labs/medallion/pkg/adapter"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new DuckDB adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Connect establishes a connection to DuckDB.
// Use ":memory:" or an empty path for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == ":memory:" {
		path = ""
	}

	a.Logger.Debug("connecting to duckdb", slog.String("path", path))

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	// The staged swap runs DDL inside a transaction. DuckDB handles that on a
	// single connection only, so pin the pool to one.
	db.SetMaxOpenConns(1)

	a.DB = db
	a.Cfg = cfg
	return nil
}

// GetTableMetadata retrieves metadata for a specified table.
func (a *Adapter) GetTableMetadata(ctx context.Context, table string) (*adapter.Metadata, error) {
	return a.GetTableMetadataCommon(ctx, table, a.Dialect())
}

// LoadCSV appends rows from a CSV file into an existing table.
// Malformed rows are skipped (ignore_errors), matching the ingestion policy.
func (a *Adapter) LoadCSV(ctx context.Context, table, path string) (int64, error) {
	return a.loadFile(ctx, table, path, "read_csv_auto(%s, header=true, ignore_errors=true)")
}

// LoadNDJSON appends rows from a newline-delimited JSON file into an existing table.
func (a *Adapter) LoadNDJSON(ctx context.Context, table, path string) (int64, error) {
	return a.loadFile(ctx, table, path, "read_json_auto(%s, format='newline_delimited', ignore_errors=true)")
}

// loadFile loads a raw file through one of DuckDB's table readers, matching
// columns by name so file column order doesn't matter.
func (a *Adapter) loadFile(ctx context.Context, table, path, readerFmt string) (int64, error) {
	if a.DB == nil {
		return 0, fmt.Errorf("warehouse connection not established")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("failed to get absolute path: %w", err)
	}

	reader := fmt.Sprintf(readerFmt, quoteLiteral(absPath))
	insertSQL := fmt.Sprintf("INSERT INTO %s BY NAME SELECT * FROM %s", table, reader)

	res, err := a.DB.ExecContext(ctx, insertSQL)
	if err != nil {
		return 0, fmt.Errorf("failed to load %s into %s: %w", filepath.Base(path), table, err)
	}

	loaded, err := res.RowsAffected()
	if err != nil {
		return 0, nil // rows loaded but count unavailable
	}
	return loaded, nil
}

// Dialect returns the DuckDB SQL dialect hooks.
func (a *Adapter) Dialect() adapter.Dialect {
	return dialect{}
}

// quoteLiteral escapes a string for embedding as a SQL literal.
// DuckDB's file readers take the path as a literal, not a bind parameter.
func quoteLiteral(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '\'')
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '\'')
		}
		out = append(out, s[i])
	}
	return string(append(out, '\''))
}

// Ensure Adapter implements the adapter.Adapter interface.
var _ adapter.Adapter = (*Adapter)(nil)
