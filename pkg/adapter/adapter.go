// Package adapter provides the warehouse adapter contract for the medallion
// pipeline engine.
//
// This package contains the interface that all warehouse backends must
// implement. Concrete implementations live in pkg/adapters/ subdirectories and
// register themselves via init().
package adapter

import (
	"context"
	"database/sql"
)

// Adapter defines the interface that all warehouse adapters must implement.
// It provides methods for connecting, executing SQL, loading raw files into
// bronze tables, and retrieving table metadata.
type Adapter interface {
	// Connect establishes a connection using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the connection and releases resources.
	Close() error

	// Exec executes a SQL statement that doesn't return rows.
	Exec(ctx context.Context, sql string) error

	// ExecAll executes a sequence of statements inside a single transaction.
	// Used for the staged table swap so readers never observe a half-built table.
	ExecAll(ctx context.Context, stmts []string) error

	// Query executes a SQL statement that returns rows.
	Query(ctx context.Context, sql string) (*Rows, error)

	// QueryCount executes a query expected to return a single integer value.
	QueryCount(ctx context.Context, sql string) (int64, error)

	// GetTableMetadata retrieves metadata for a table ("schema.name" or bare name).
	GetTableMetadata(ctx context.Context, table string) (*Metadata, error)

	// LoadCSV appends rows from a CSV file into an existing table, skipping
	// malformed rows. Returns the number of rows loaded.
	LoadCSV(ctx context.Context, table, path string) (int64, error)

	// LoadNDJSON appends rows from a newline-delimited JSON file into an
	// existing table, skipping malformed rows. Returns the number of rows loaded.
	LoadNDJSON(ctx context.Context, table, path string) (int64, error)

	// Dialect returns the SQL dialect hooks for this backend.
	Dialect() Dialect
}

// Dialect exposes the per-backend SQL fragments the transformation layer needs.
// The transformations are otherwise written in portable SQL.
type Dialect interface {
	// Name returns the dialect identifier (e.g. "duckdb", "postgres").
	Name() string

	// DefaultSchema returns the schema used for unqualified table names.
	DefaultSchema() string

	// InitCap returns an expression that title-cases every word of expr.
	InitCap(expr string) string

	// RegexMatch returns a boolean expression testing expr against pattern.
	RegexMatch(expr, pattern string) string

	// Placeholder returns the bind placeholder for the n-th parameter (1-based).
	Placeholder(n int) string
}

// Config holds configuration for connecting to a warehouse backend.
type Config struct {
	Type string

	// File-based backends (DuckDB): path to the database file, ":memory:" or
	// empty for in-memory.
	Path string

	// Network backends
	Host     string
	Port     int
	Database string
	Username string
	Password string

	// Additional driver-specific options (e.g. sslmode).
	Options map[string]string
}

// Column represents a column in a warehouse table.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Position int
}

// Metadata holds metadata about a warehouse table.
type Metadata struct {
	Schema   string
	Name     string
	Columns  []Column
	RowCount int64
}

// Rows wraps sql.Rows so callers don't import database/sql directly.
type Rows struct {
	*sql.Rows
}
