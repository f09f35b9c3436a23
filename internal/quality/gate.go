package quality

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/medallion/internal/pipeline"
	"github.com/leapstack-labs/medallion/pkg/adapter"
)

// CheckResult is the outcome of one rule against one table.
type CheckResult struct {
	Table      string
	Rule       string
	Violations int64
}

// Passed reports whether the rule held.
func (c CheckResult) Passed() bool { return c.Violations == 0 }

// Report collects the results of validating one or more rule sets.
type Report struct {
	Layer   pipeline.Layer
	Results []CheckResult
}

// Failures returns the failed checks.
func (r *Report) Failures() []CheckResult {
	var out []CheckResult
	for _, res := range r.Results {
		if !res.Passed() {
			out = append(out, res)
		}
	}
	return out
}

// Err returns a ViolationError if any check failed, nil otherwise.
func (r *Report) Err() error {
	failures := r.Failures()
	if len(failures) == 0 {
		return nil
	}
	return &ViolationError{Layer: r.Layer, Failures: failures}
}

// ViolationError is the fatal stop signal raised when a gate fails. It names
// every violated rule and table so the caller can surface exactly what broke.
type ViolationError struct {
	Layer    pipeline.Layer
	Failures []CheckResult
}

func (e *ViolationError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("%s.%s (%d violations)", f.Table, f.Rule, f.Violations)
	}
	return fmt.Sprintf("quality gate failed after %s layer: %s", e.Layer, strings.Join(parts, ", "))
}

// Gate validates table snapshots against rule sets at layer boundaries.
type Gate struct {
	rules  map[pipeline.Layer][]RuleSet
	logger *slog.Logger
}

// NewGate creates a gate with the given rule sets.
// If logger is nil, a discard logger is used.
func NewGate(rules map[pipeline.Layer][]RuleSet, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if rules == nil {
		rules = DefaultRuleSets()
	}
	return &Gate{rules: rules, logger: logger}
}

// RuleSets returns the rule sets configured for a layer.
func (g *Gate) RuleSets(layer pipeline.Layer) []RuleSet {
	return g.rules[layer]
}

// Validate runs every rule set configured for the layer against the warehouse
// and returns the full report. The report's Err() is non-nil on any violation;
// a non-nil second return means a check itself could not be executed.
func (g *Gate) Validate(ctx context.Context, db adapter.Adapter, layer pipeline.Layer) (*Report, error) {
	return g.validate(ctx, db, layer, g.rules[layer])
}

// ValidateTables runs only the layer's rule sets whose table is among the
// given tables. Partial runs gate on what they built without demanding tables
// they never touched.
func (g *Gate) ValidateTables(ctx context.Context, db adapter.Adapter, layer pipeline.Layer, tables []pipeline.Table) (*Report, error) {
	include := make(map[pipeline.Table]bool, len(tables))
	for _, t := range tables {
		include[t] = true
	}

	var sets []RuleSet
	for _, rs := range g.rules[layer] {
		if include[rs.Table] {
			sets = append(sets, rs)
		}
	}
	return g.validate(ctx, db, layer, sets)
}

func (g *Gate) validate(ctx context.Context, db adapter.Adapter, layer pipeline.Layer, sets []RuleSet) (*Report, error) {
	report := &Report{Layer: layer}

	for _, rs := range sets {
		table := rs.Table.Qualified()
		for _, rule := range rs.Rules {
			query, err := rule.ViolationSQL(db.Dialect(), table)
			if err != nil {
				return nil, err
			}

			violations, err := db.QueryCount(ctx, query)
			if err != nil {
				return nil, fmt.Errorf("check %s on %s failed to run: %w", rule.Name, table, err)
			}

			if violations > 0 {
				g.logger.Error("quality check failed",
					"layer", layer, "table", table, "rule", rule.Name, "violations", violations)
			} else {
				g.logger.Debug("quality check passed", "table", table, "rule", rule.Name)
			}

			report.Results = append(report.Results, CheckResult{
				Table:      table,
				Rule:       rule.Name,
				Violations: violations,
			})
		}
	}

	return report, nil
}
