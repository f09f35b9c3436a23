package duckdb

import "fmt"

// dialect implements adapter.Dialect for DuckDB.
type dialect struct{}

func (dialect) Name() string { return "duckdb" }

func (dialect) DefaultSchema() string { return "main" }

// InitCap title-cases each space-separated word. DuckDB has no INITCAP
// builtin, so build it from list_transform over the split words.
func (dialect) InitCap(expr string) string {
	return fmt.Sprintf(
		"array_to_string(list_transform(string_split(%s, ' '), w -> upper(w[1]) || lower(w[2:])), ' ')",
		expr,
	)
}

func (dialect) RegexMatch(expr, pattern string) string {
	return fmt.Sprintf("regexp_matches(%s, '%s')", expr, pattern)
}

func (dialect) Placeholder(int) string { return "?" }
