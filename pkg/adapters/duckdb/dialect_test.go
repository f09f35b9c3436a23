package duckdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDialect_InitCap(t *testing.T) {
	d := dialect{}
	got := d.InitCap("TRIM(name)")
	assert.Contains(t, got, "string_split(TRIM(name), ' ')")
	assert.Contains(t, got, "upper(w[1])")
	assert.Contains(t, got, "lower(w[2:])")
}

func TestDialect_RegexMatch(t *testing.T) {
	d := dialect{}
	assert.Equal(t, "regexp_matches(email, '^a+$')", d.RegexMatch("email", "^a+$"))
}

func TestDialect_Basics(t *testing.T) {
	d := dialect{}
	assert.Equal(t, "duckdb", d.Name())
	assert.Equal(t, "main", d.DefaultSchema())
	assert.Equal(t, "?", d.Placeholder(3))
}

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, "'data/sales.json'", quoteLiteral("data/sales.json"))
	assert.Equal(t, "'it''s.csv'", quoteLiteral("it's.csv"))
}
