// Package postgres provides a PostgreSQL warehouse adapter for the medallion pipeline.
package postgres

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
	"github.com/leapstack-labs/medallion/pkg/adapter"
)

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new PostgreSQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Connect establishes a connection to PostgreSQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn := buildDSN(cfg)

	a.Logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildDSN constructs a PostgreSQL connection string.
func buildDSN(cfg adapter.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if cfg.Options != nil {
		if mode, ok := cfg.Options["sslmode"]; ok {
			sslmode = mode
		}
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		host, port, cfg.Database, sslmode)

	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.Username)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}

	return dsn
}

// GetTableMetadata retrieves metadata for a specified table.
func (a *Adapter) GetTableMetadata(ctx context.Context, table string) (*adapter.Metadata, error) {
	return a.GetTableMetadataCommon(ctx, table, a.Dialect())
}

// LoadCSV appends rows from a CSV file into an existing table.
// Rows that fail to parse or insert are skipped and counted, not fatal.
func (a *Adapter) LoadCSV(ctx context.Context, table, path string) (int64, error) {
	if a.DB == nil {
		return 0, fmt.Errorf("warehouse connection not established")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("failed to get absolute path: %w", err)
	}

	file, err := os.Open(absPath) //nolint:gosec // path comes from the configured landing directory
	if err != nil {
		return 0, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // malformed rows handled below, not by the reader

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read CSV header: %w", err)
	}

	insertSQL := a.buildInsert(table, header)

	var loaded, skipped int64
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil || len(record) != len(header) {
			skipped++
			continue
		}

		args := make([]any, len(record))
		for i, v := range record {
			if v == "" {
				args[i] = nil // empty cells load as NULL
			} else {
				args[i] = v
			}
		}

		if _, err := a.DB.ExecContext(ctx, insertSQL, args...); err != nil {
			skipped++
			continue
		}
		loaded++
	}

	if skipped > 0 {
		a.Logger.Warn("skipped malformed rows during CSV load",
			slog.String("table", table), slog.Int64("skipped", skipped))
	}
	return loaded, nil
}

// LoadNDJSON appends rows from a newline-delimited JSON file into an existing
// table. Only keys matching table columns are loaded; unparseable lines are
// skipped and counted.
func (a *Adapter) LoadNDJSON(ctx context.Context, table, path string) (int64, error) {
	if a.DB == nil {
		return 0, fmt.Errorf("warehouse connection not established")
	}

	meta, err := a.GetTableMetadata(ctx, table)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve columns for %s: %w", table, err)
	}
	cols := make([]string, len(meta.Columns))
	for i, c := range meta.Columns {
		cols[i] = c.Name
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("failed to get absolute path: %w", err)
	}

	file, err := os.Open(absPath) //nolint:gosec // path comes from the configured landing directory
	if err != nil {
		return 0, fmt.Errorf("failed to open NDJSON file: %w", err)
	}
	defer func() { _ = file.Close() }()

	insertSQL := a.buildInsert(table, cols)

	var loaded, skipped int64
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var record map[string]any
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			skipped++
			continue
		}

		args := make([]any, len(cols))
		for i, col := range cols {
			args[i] = jsonValue(record[col])
		}

		if _, err := a.DB.ExecContext(ctx, insertSQL, args...); err != nil {
			skipped++
			continue
		}
		loaded++
	}
	if err := scanner.Err(); err != nil {
		return loaded, fmt.Errorf("failed to read NDJSON file: %w", err)
	}

	if skipped > 0 {
		a.Logger.Warn("skipped malformed rows during NDJSON load",
			slog.String("table", table), slog.Int64("skipped", skipped))
	}
	return loaded, nil
}

// buildInsert renders an INSERT with $n placeholders for the given columns.
func (a *Adapter) buildInsert(table string, cols []string) string {
	d := a.Dialect()
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
}

// jsonValue normalizes decoded JSON values for driver binding.
// Whole-number floats are narrowed so integer columns accept them.
func jsonValue(v any) any {
	if f, ok := v.(float64); ok && f == float64(int64(f)) {
		return int64(f)
	}
	return v
}

// Dialect returns the PostgreSQL SQL dialect hooks.
func (a *Adapter) Dialect() adapter.Dialect {
	return dialect{}
}

// Ensure Adapter implements the adapter.Adapter interface.
var _ adapter.Adapter = (*Adapter)(nil)
