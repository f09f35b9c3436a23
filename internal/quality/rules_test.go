package quality

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/medallion/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDialect struct{}

func (fakeDialect) Name() string               { return "fake" }
func (fakeDialect) DefaultSchema() string      { return "main" }
func (fakeDialect) InitCap(expr string) string { return expr }
func (fakeDialect) RegexMatch(expr, pattern string) string {
	return "MATCH(" + expr + ", '" + pattern + "')"
}
func (fakeDialect) Placeholder(int) string { return "?" }

func TestRule_ViolationSQL(t *testing.T) {
	tests := []struct {
		name     string
		rule     Rule
		contains []string
		wantErr  bool
	}{
		{
			name:     "not_null",
			rule:     Rule{Name: "id_not_null", Kind: KindNotNull, Column: "customer_id"},
			contains: []string{"WHERE customer_id IS NULL"},
		},
		{
			name: "unique skips nulls",
			rule: Rule{Name: "id_unique", Kind: KindUnique, Column: "customer_id"},
			contains: []string{
				"WHERE customer_id IS NOT NULL",
				"GROUP BY customer_id",
				"HAVING COUNT(*) > 1",
			},
		},
		{
			name: "regex uses dialect hook",
			rule: Rule{Name: "email_format", Kind: KindRegex, Column: "email", Pattern: "^x+$"},
			contains: []string{
				"email IS NOT NULL",
				"NOT (MATCH(email, '^x+$'))",
			},
		},
		{
			name:    "regex without pattern",
			rule:    Rule{Name: "bad", Kind: KindRegex, Column: "email"},
			wantErr: true,
		},
		{
			name:     "between both bounds",
			rule:     Rule{Name: "price_range", Kind: KindBetween, Column: "price", Min: f(0), Max: f(10000)},
			contains: []string{"NOT (price >= 0 AND price <= 10000)"},
		},
		{
			name:     "between min only",
			rule:     Rule{Name: "non_negative", Kind: KindBetween, Column: "total", Min: f(0)},
			contains: []string{"NOT (total >= 0)"},
		},
		{
			name:    "between without bounds",
			rule:    Rule{Name: "bad", Kind: KindBetween, Column: "price"},
			wantErr: true,
		},
		{
			name: "in_set quotes values",
			rule: Rule{Name: "category_allowed", Kind: KindInSet, Column: "category",
				Values: []string{"Books", "Kids' Toys"}},
			contains: []string{"category NOT IN ('Books', 'Kids'' Toys')"},
		},
		{
			name:    "in_set without values",
			rule:    Rule{Name: "bad", Kind: KindInSet, Column: "category"},
			wantErr: true,
		},
		{
			name:     "expression",
			rule:     Rule{Name: "amount_consistent", Kind: KindExpression, Expr: "total_amount = quantity * price"},
			contains: []string{"WHERE NOT (total_amount = quantity * price)"},
		},
		{
			name:    "unknown kind",
			rule:    Rule{Name: "bad", Kind: Kind("fancy")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, err := tt.rule.ViolationSQL(fakeDialect{}, "bronze.customers")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, sql, "SELECT COUNT(*) FROM bronze.customers")
			for _, frag := range tt.contains {
				assert.Contains(t, sql, frag)
			}
		})
	}
}

func TestDefaultRuleSets(t *testing.T) {
	sets := DefaultRuleSets()

	require.Contains(t, sets, pipeline.LayerBronze)
	require.Contains(t, sets, pipeline.LayerSilver)
	require.Contains(t, sets, pipeline.LayerGold)

	// Every built-in rule must compile for both dialect shapes.
	for layer, rss := range sets {
		for _, rs := range rss {
			for _, rule := range rs.Rules {
				_, err := rule.ViolationSQL(fakeDialect{}, rs.Table.Qualified())
				assert.NoError(t, err, "%s/%s/%s", layer, rs.Table.Qualified(), rule.Name)
			}
		}
	}

	// The bronze customer rules carry the uniqueness check that protects the
	// enrichment join.
	var found bool
	for _, rs := range sets[pipeline.LayerBronze] {
		if rs.Table == pipeline.RawCustomers {
			for _, r := range rs.Rules {
				if r.Kind == KindUnique && r.Column == "customer_id" {
					found = true
				}
			}
		}
	}
	assert.True(t, found, "expected customer_id uniqueness rule in bronze")
}

func TestLoadRuleSets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checks.yaml")
	content := `layers:
  bronze:
    customers:
      - name: email_present
        kind: not_null
        column: email
      - name: email_format
        kind: regex
        column: email
        pattern: "^.+@.+$"
  silver:
    sales_enriched:
      - name: quantity_range
        kind: between
        column: quantity
        min: 1
        max: 50
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	sets, err := LoadRuleSets(path)
	require.NoError(t, err)

	require.Len(t, sets[pipeline.LayerBronze], 1)
	bronze := sets[pipeline.LayerBronze][0]
	assert.Equal(t, "bronze.customers", bronze.Table.Qualified())
	require.Len(t, bronze.Rules, 2)
	assert.Equal(t, KindRegex, bronze.Rules[1].Kind)

	require.Len(t, sets[pipeline.LayerSilver], 1)
	silver := sets[pipeline.LayerSilver][0]
	require.NotNil(t, silver.Rules[0].Max)
	assert.Equal(t, float64(50), *silver.Rules[0].Max)
}

func TestLoadRuleSets_UnknownLayer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checks.yaml")
	require.NoError(t, os.WriteFile(path, []byte("layers:\n  platinum:\n    x: []\n"), 0o600))

	_, err := LoadRuleSets(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown layer")
}

func TestMergeRuleSets(t *testing.T) {
	defaults := DefaultRuleSets()
	custom := map[pipeline.Layer][]RuleSet{
		pipeline.LayerBronze: {
			{Table: pipeline.RawCustomers, Rules: []Rule{{Name: "only_rule", Kind: KindNotNull, Column: "customer_id"}}},
		},
	}

	merged := MergeRuleSets(defaults, custom)

	// Bronze is fully replaced; silver and gold keep the defaults.
	require.Len(t, merged[pipeline.LayerBronze], 1)
	assert.Equal(t, "only_rule", merged[pipeline.LayerBronze][0].Rules[0].Name)
	assert.Equal(t, defaults[pipeline.LayerSilver], merged[pipeline.LayerSilver])
	assert.Equal(t, defaults[pipeline.LayerGold], merged[pipeline.LayerGold])
}
