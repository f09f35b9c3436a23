// Package ingest loads raw file drops into the bronze layer. It is the
// in-process stand-in for the managed pipe: files landing in a directory are
// appended to the raw tables, malformed rows skipped, nothing validated until
// the bronze quality gate runs.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leapstack-labs/medallion/internal/pipeline"
	"github.com/leapstack-labs/medallion/pkg/adapter"
)

// Loader appends raw files to bronze tables through a warehouse adapter.
type Loader struct {
	db     adapter.Adapter
	logger *slog.Logger
}

// NewLoader creates a bronze loader.
// If logger is nil, a discard logger is used.
func NewLoader(db adapter.Adapter, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{db: db, logger: logger}
}

// EnsureSchema creates the bronze schema and raw tables if missing.
func (l *Loader) EnsureSchema(ctx context.Context) error {
	for _, stmt := range pipeline.BronzeDDL() {
		if err := l.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create bronze schema: %w", err)
		}
	}
	return nil
}

// Summary reports what a directory load did.
type Summary struct {
	Files int
	Rows  map[string]int64 // qualified table -> rows loaded
}

// LoadDir loads every recognized raw file in dir into its bronze table.
// Files are processed in name order so repeated loads behave the same way.
// Unrecognized files are skipped with a log line, not an error.
func (l *Loader) LoadDir(ctx context.Context, dir string) (*Summary, error) {
	if err := l.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read landing directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	sum := &Summary{Rows: make(map[string]int64)}
	for _, name := range names {
		path := filepath.Join(dir, name)
		table, rows, err := l.LoadFile(ctx, path)
		if err != nil {
			if err == errUnrecognized {
				l.logger.Debug("skipping unrecognized file", "file", name)
				continue
			}
			return sum, err
		}
		sum.Files++
		sum.Rows[table] += rows
	}

	l.logger.Info("bronze load complete", "files", sum.Files, "tables", len(sum.Rows))
	return sum, nil
}

var errUnrecognized = fmt.Errorf("unrecognized raw file")

// LoadFile loads a single raw file into its bronze table, returning the
// qualified table name and the number of rows appended.
func (l *Loader) LoadFile(ctx context.Context, path string) (string, int64, error) {
	table, ndjson, ok := Classify(filepath.Base(path))
	if !ok {
		return "", 0, errUnrecognized
	}

	qualified := table.Qualified()
	var rows int64
	var err error
	if ndjson {
		rows, err = l.db.LoadNDJSON(ctx, qualified, path)
	} else {
		rows, err = l.db.LoadCSV(ctx, qualified, path)
	}
	if err != nil {
		return qualified, 0, fmt.Errorf("failed to load %s: %w", filepath.Base(path), err)
	}

	l.logger.Info("loaded raw file", "file", filepath.Base(path), "table", qualified, "rows", rows)
	return qualified, rows, nil
}

// Classify maps a raw file name to its bronze table. The naming convention
// follows the upstream drops: customers_*.csv, products_*.csv, sales_*.json.
// The second return is true for NDJSON files.
func Classify(name string) (pipeline.Table, bool, bool) {
	lower := strings.ToLower(name)
	csv := strings.HasSuffix(lower, ".csv")
	ndjson := strings.HasSuffix(lower, ".json") || strings.HasSuffix(lower, ".ndjson")

	switch {
	case strings.HasPrefix(lower, "customers") && csv:
		return pipeline.RawCustomers, false, true
	case strings.HasPrefix(lower, "products") && csv:
		return pipeline.RawProducts, false, true
	case strings.HasPrefix(lower, "sales") && ndjson:
		return pipeline.RawSales, true, true
	}
	return pipeline.Table{}, false, false
}
