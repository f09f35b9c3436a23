package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/medallion/internal/pipeline"
	"github.com/leapstack-labs/medallion/pkg/adapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingDB satisfies the parts of adapter.Adapter the loader touches and
// records every load call.
type recordingDB struct {
	adapter.Adapter
	execs   []string
	csvs    []string
	ndjsons []string
	rows    int64
}

func (r *recordingDB) Exec(_ context.Context, sql string) error {
	r.execs = append(r.execs, sql)
	return nil
}

func (r *recordingDB) LoadCSV(_ context.Context, table, path string) (int64, error) {
	r.csvs = append(r.csvs, table+":"+filepath.Base(path))
	return r.rows, nil
}

func (r *recordingDB) LoadNDJSON(_ context.Context, table, path string) (int64, error) {
	r.ndjsons = append(r.ndjsons, table+":"+filepath.Base(path))
	return r.rows, nil
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		wantTable  pipeline.Table
		wantNDJSON bool
		wantOK     bool
	}{
		{"customers_20240101.csv", pipeline.RawCustomers, false, true},
		{"customers.csv", pipeline.RawCustomers, false, true},
		{"CUSTOMERS_2024.CSV", pipeline.RawCustomers, false, true},
		{"products_20240101.csv", pipeline.RawProducts, false, true},
		{"sales_20240101.json", pipeline.RawSales, true, true},
		{"sales.ndjson", pipeline.RawSales, true, true},
		{"customers.json", pipeline.Table{}, false, false},
		{"sales.csv", pipeline.Table{}, false, false},
		{"orders.csv", pipeline.Table{}, false, false},
		{"readme.md", pipeline.Table{}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, ndjson, ok := Classify(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantTable, table)
				assert.Equal(t, tt.wantNDJSON, ndjson)
			}
		})
	}
}

func TestLoader_LoadDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"customers_1.csv",
		"products_1.csv",
		"sales_1.json",
		"sales_2.json",
		"notes.txt",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}

	db := &recordingDB{rows: 5}
	loader := NewLoader(db, nil)

	sum, err := loader.LoadDir(context.Background(), dir)
	require.NoError(t, err)

	// Four recognized files; the sales rows accumulate per table.
	assert.Equal(t, 4, sum.Files)
	assert.Equal(t, int64(5), sum.Rows["bronze.customers"])
	assert.Equal(t, int64(10), sum.Rows["bronze.sales"])

	// Bronze DDL ran before any load.
	require.NotEmpty(t, db.execs)
	assert.Contains(t, db.execs[0], "CREATE SCHEMA IF NOT EXISTS bronze")

	// Files load in name order.
	assert.Equal(t, []string{"bronze.customers:customers_1.csv", "bronze.products:products_1.csv"}, db.csvs)
	assert.Equal(t, []string{"bronze.sales:sales_1.json", "bronze.sales:sales_2.json"}, db.ndjsons)
}

func TestLoader_LoadDir_MissingDir(t *testing.T) {
	loader := NewLoader(&recordingDB{}, nil)
	_, err := loader.LoadDir(context.Background(), "/no/such/dir")
	require.Error(t, err)
}

func TestLoader_LoadFile_Unrecognized(t *testing.T) {
	loader := NewLoader(&recordingDB{}, nil)
	_, _, err := loader.LoadFile(context.Background(), "/tmp/orders.csv")
	require.Error(t, err)
}
