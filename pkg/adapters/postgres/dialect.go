package postgres

import "fmt"

// dialect implements adapter.Dialect for PostgreSQL.
type dialect struct{}

func (dialect) Name() string { return "postgres" }

func (dialect) DefaultSchema() string { return "public" }

func (dialect) InitCap(expr string) string {
	return fmt.Sprintf("INITCAP(%s)", expr)
}

func (dialect) RegexMatch(expr, pattern string) string {
	return fmt.Sprintf("%s ~ '%s'", expr, pattern)
}

func (dialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }
