package quality

// rulesets.go - Built-in per-layer rule sets, plus loading of custom rules
// from a YAML checks file.

import (
	"fmt"
	"os"

	"github.com/leapstack-labs/medallion/internal/pipeline"
	"gopkg.in/yaml.v3"
)

const emailPattern = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`

func f(v float64) *float64 { return &v }

// DefaultRuleSets returns the built-in rule sets per layer.
func DefaultRuleSets() map[pipeline.Layer][]RuleSet {
	return map[pipeline.Layer][]RuleSet{
		pipeline.LayerBronze: {
			{
				Table: pipeline.RawCustomers,
				Rules: []Rule{
					{Name: "customer_id_not_null", Kind: KindNotNull, Column: "customer_id"},
					{Name: "customer_id_unique", Kind: KindUnique, Column: "customer_id"},
					{Name: "name_not_null", Kind: KindNotNull, Column: "name"},
					{Name: "email_format", Kind: KindRegex, Column: "email", Pattern: emailPattern},
				},
			},
			{
				Table: pipeline.RawProducts,
				Rules: []Rule{
					{Name: "price_range", Kind: KindBetween, Column: "price", Min: f(0), Max: f(10000)},
					{Name: "category_allowed", Kind: KindInSet, Column: "category",
						Values: []string{"Electronics", "Clothing", "Sports", "Home", "Books"}},
				},
			},
		},
		pipeline.LayerSilver: {
			{
				Table: pipeline.SalesEnriched,
				Rules: []Rule{
					{Name: "sale_id_not_null", Kind: KindNotNull, Column: "sale_id"},
					{Name: "customer_id_not_null", Kind: KindNotNull, Column: "customer_id"},
					{Name: "product_id_not_null", Kind: KindNotNull, Column: "product_id"},
					{Name: "total_amount_not_null", Kind: KindNotNull, Column: "total_amount"},
					{Name: "total_amount_non_negative", Kind: KindBetween, Column: "total_amount", Min: f(0)},
					{Name: "quantity_range", Kind: KindBetween, Column: "quantity", Min: f(1), Max: f(100)},
				},
			},
		},
		pipeline.LayerGold: {
			{
				Table: pipeline.SalesByCountry,
				Rules: []Rule{
					{Name: "total_sales_non_negative", Kind: KindBetween, Column: "total_sales", Min: f(0)},
					{Name: "customers_at_least_one", Kind: KindBetween, Column: "number_of_customers", Min: f(1)},
				},
			},
		},
	}
}

// checksFile is the YAML shape of a custom checks file: layer -> table -> rules.
type checksFile struct {
	Layers map[string]map[string][]Rule `yaml:"layers"`
}

// LoadRuleSets reads rule sets from a YAML checks file. Tables are named by
// their unqualified name within each layer. The result fully replaces the
// defaults for the layers it mentions.
func LoadRuleSets(path string) (map[pipeline.Layer][]RuleSet, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read checks file: %w", err)
	}

	var cf checksFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse checks file: %w", err)
	}

	out := make(map[pipeline.Layer][]RuleSet)
	for layerName, tables := range cf.Layers {
		layer := pipeline.Layer(layerName)
		switch layer {
		case pipeline.LayerBronze, pipeline.LayerSilver, pipeline.LayerGold:
		default:
			return nil, fmt.Errorf("checks file: unknown layer %q", layerName)
		}
		for tableName, rules := range tables {
			out[layer] = append(out[layer], RuleSet{
				Table: pipeline.Table{Layer: layer, Name: tableName},
				Rules: rules,
			})
		}
	}
	return out, nil
}

// MergeRuleSets overlays custom rule sets onto the defaults: layers present in
// custom replace the default sets for that layer.
func MergeRuleSets(defaults, custom map[pipeline.Layer][]RuleSet) map[pipeline.Layer][]RuleSet {
	out := make(map[pipeline.Layer][]RuleSet, len(defaults))
	for layer, sets := range defaults {
		out[layer] = sets
	}
	for layer, sets := range custom {
		out[layer] = sets
	}
	return out
}
