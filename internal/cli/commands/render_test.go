package commands

import (
	"bytes"
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/medallion/pkg/adapter"

	// sqlite driver for test database.
	_ "modernc.org/sqlite"
)

// queryTestRows runs a query against a throwaway sqlite database seeded with
// a couple of countries and wraps the result for rendering.
func queryTestRows(t *testing.T, query string) *adapter.Rows {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	_, err = db.ExecContext(ctx, `
		CREATE TABLE sales_by_country (
			country TEXT NOT NULL,
			total_sales REAL NOT NULL,
			number_of_customers INTEGER NOT NULL
		);
		INSERT INTO sales_by_country VALUES
			('France', 1204.50, 12),
			('Germany', 980.00, 9);
	`)
	require.NoError(t, err)

	rows, err := db.QueryContext(ctx, query)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rows.Close() })

	return &adapter.Rows{Rows: rows}
}

func TestRenderRows_Table(t *testing.T) {
	rows := queryTestRows(t, "SELECT country, total_sales FROM sales_by_country ORDER BY country")

	buf := new(bytes.Buffer)
	require.NoError(t, renderRows(buf, rows, "table"))

	output := buf.String()
	assert.Contains(t, output, "France")
	assert.Contains(t, output, "Germany")
	assert.Contains(t, output, "(2 rows)")
}

func TestRenderRows_JSON(t *testing.T) {
	rows := queryTestRows(t, "SELECT country, number_of_customers FROM sales_by_country ORDER BY country")

	buf := new(bytes.Buffer)
	require.NoError(t, renderRows(buf, rows, "json"))

	output := buf.String()
	assert.Contains(t, output, `"country"`)
	assert.Contains(t, output, `"France"`)
	assert.Contains(t, output, `"number_of_customers"`)
}

func TestRenderRows_CSV(t *testing.T) {
	rows := queryTestRows(t, "SELECT country, number_of_customers FROM sales_by_country ORDER BY country")

	buf := new(bytes.Buffer)
	require.NoError(t, renderRows(buf, rows, "csv"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3) // header + 2 rows
	assert.Equal(t, "country,number_of_customers", lines[0])
	assert.Equal(t, "France,12", lines[1])
}

func TestRenderRows_Markdown(t *testing.T) {
	rows := queryTestRows(t, "SELECT country, number_of_customers FROM sales_by_country ORDER BY country")

	buf := new(bytes.Buffer)
	require.NoError(t, renderRows(buf, rows, "md"))

	output := buf.String()
	assert.Contains(t, output, "| country | number_of_customers |")
	assert.Contains(t, output, "| --- | --- |")
	assert.Contains(t, output, "| France | 12 |")
}

func TestRenderRows_Empty(t *testing.T) {
	rows := queryTestRows(t, "SELECT country FROM sales_by_country WHERE 1=0")

	buf := new(bytes.Buffer)
	require.NoError(t, renderRows(buf, rows, "table"))
	assert.Contains(t, buf.String(), "(0 rows)")
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		input    any
		expected string
	}{
		{nil, "NULL"},
		{"hello", "hello"},
		{42, "42"},
		{3.14, "3.14"},
		{true, "true"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, formatValue(tt.input))
	}
}

func TestEscapeCSV(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", "simple"},
		{"with,comma", `"with,comma"`},
		{`with"quote`, `"with""quote"`},
		{`complex,"values"`, `"complex,""values"""`},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, escapeCSV(tt.input))
	}
}
