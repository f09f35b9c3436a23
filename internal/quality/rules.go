// Package quality implements the quality gate invoked at each layer boundary.
// Rules compile to SQL violation counts executed against the warehouse; any
// violation fails the gate and halts the pipeline before the next layer is
// materialized.
package quality

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/medallion/internal/pipeline"
	"github.com/leapstack-labs/medallion/pkg/adapter"
)

// Kind identifies a rule type.
type Kind string

const (
	KindNotNull    Kind = "not_null"
	KindUnique     Kind = "unique"
	KindRegex      Kind = "regex"
	KindBetween    Kind = "between"
	KindInSet      Kind = "in_set"
	KindExpression Kind = "expression"
)

// Rule is a single data-quality predicate over one table.
type Rule struct {
	Name   string `yaml:"name"`
	Kind   Kind   `yaml:"kind"`
	Column string `yaml:"column,omitempty"`

	// Regex rules
	Pattern string `yaml:"pattern,omitempty"`

	// Between rules (either bound may be open)
	Min *float64 `yaml:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty"`

	// InSet rules
	Values []string `yaml:"values,omitempty"`

	// Expression rules: a boolean SQL predicate each row must satisfy.
	Expr string `yaml:"expr,omitempty"`
}

// RuleSet binds rules to the table they validate.
type RuleSet struct {
	Table pipeline.Table
	Rules []Rule
}

// ViolationSQL renders the query counting rows that violate the rule.
// NULL values only violate not_null rules; other kinds skip them so a single
// missing value isn't reported twice.
func (r Rule) ViolationSQL(d adapter.Dialect, table string) (string, error) {
	switch r.Kind {
	case KindNotNull:
		return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s IS NULL", table, r.Column), nil
	case KindUnique:
		return fmt.Sprintf(
			"SELECT COUNT(*) FROM (SELECT %s FROM %s WHERE %s IS NOT NULL GROUP BY %s HAVING COUNT(*) > 1) dup",
			r.Column, table, r.Column, r.Column), nil
	case KindRegex:
		if r.Pattern == "" {
			return "", fmt.Errorf("rule %s: regex rule requires a pattern", r.Name)
		}
		match := d.RegexMatch(r.Column, escapePattern(r.Pattern))
		return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s IS NOT NULL AND NOT (%s)", table, r.Column, match), nil
	case KindBetween:
		conds := boundConds(r)
		if len(conds) == 0 {
			return "", fmt.Errorf("rule %s: between rule requires min or max", r.Name)
		}
		return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s IS NOT NULL AND NOT (%s)",
			table, r.Column, strings.Join(conds, " AND ")), nil
	case KindInSet:
		if len(r.Values) == 0 {
			return "", fmt.Errorf("rule %s: in_set rule requires values", r.Name)
		}
		quoted := make([]string, len(r.Values))
		for i, v := range r.Values {
			quoted[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
		}
		return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s IS NOT NULL AND %s NOT IN (%s)",
			table, r.Column, r.Column, strings.Join(quoted, ", ")), nil
	case KindExpression:
		if r.Expr == "" {
			return "", fmt.Errorf("rule %s: expression rule requires expr", r.Name)
		}
		return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE NOT (%s)", table, r.Expr), nil
	default:
		return "", fmt.Errorf("rule %s: unknown rule kind %q", r.Name, r.Kind)
	}
}

func boundConds(r Rule) []string {
	var conds []string
	if r.Min != nil {
		conds = append(conds, fmt.Sprintf("%s >= %v", r.Column, *r.Min))
	}
	if r.Max != nil {
		conds = append(conds, fmt.Sprintf("%s <= %v", r.Column, *r.Max))
	}
	return conds
}

// escapePattern escapes single quotes for embedding the regex as a literal.
func escapePattern(p string) string {
	return strings.ReplaceAll(p, "'", "''")
}
