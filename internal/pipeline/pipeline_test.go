package pipeline

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDialect exposes the dialect hooks so tests can assert they are used.
type fakeDialect struct{}

func (fakeDialect) Name() string               { return "fake" }
func (fakeDialect) DefaultSchema() string      { return "main" }
func (fakeDialect) InitCap(expr string) string { return "TITLE(" + expr + ")" }
func (fakeDialect) RegexMatch(expr, pattern string) string {
	return fmt.Sprintf("MATCH(%s, %s)", expr, pattern)
}
func (fakeDialect) Placeholder(int) string { return "?" }

func TestSteps_Catalog(t *testing.T) {
	steps := Steps()
	require.Len(t, steps, 9)

	byTable := make(map[Table]Step, len(steps))
	for _, s := range steps {
		byTable[s.Table] = s
	}

	// Bronze tables are sources; everything else is computed.
	for _, src := range []Table{RawCustomers, RawProducts, RawSales} {
		assert.True(t, byTable[src].IsSource(), "%s should be a source", src.Qualified())
	}
	for _, computed := range []Table{CustomersClean, ProductsClean, SalesEnriched, SalesByCountry, TopProducts, ClientActivity} {
		assert.False(t, byTable[computed].IsSource(), "%s should be computed", computed.Qualified())
	}

	// Every declared input is itself a catalog table.
	for _, s := range steps {
		for _, in := range s.Inputs {
			_, ok := byTable[in]
			assert.True(t, ok, "input %s of %s missing from catalog", in.Qualified(), s.Table.Qualified())
		}
	}
}

func TestSteps_InputsStayUpstream(t *testing.T) {
	order := map[Layer]int{LayerBronze: 0, LayerSilver: 1, LayerGold: 2}
	for _, s := range Steps() {
		for _, in := range s.Inputs {
			assert.LessOrEqual(t, order[in.Layer], order[s.Table.Layer],
				"%s reads %s from a later layer", s.Table.Qualified(), in.Qualified())
		}
	}
}

func TestLayerSteps(t *testing.T) {
	silver := LayerSteps(LayerSilver)
	require.Len(t, silver, 3)

	gold := LayerSteps(LayerGold)
	require.Len(t, gold, 3)

	// Bronze has no computed steps.
	assert.Empty(t, LayerSteps(LayerBronze))
}

func TestGraph_TopologicalOrder(t *testing.T) {
	g, err := Graph()
	require.NoError(t, err)

	sorted, err := g.TopologicalSort()
	require.NoError(t, err)

	pos := make(map[string]int, len(sorted))
	for i, n := range sorted {
		pos[n.ID] = i
	}

	// The enrichment join runs after both clean dimensions, and every gold
	// rollup runs after the enrichment.
	assert.Less(t, pos[CustomersClean.Qualified()], pos[SalesEnriched.Qualified()])
	assert.Less(t, pos[ProductsClean.Qualified()], pos[SalesEnriched.Qualified()])
	for _, gld := range []Table{SalesByCountry, TopProducts, ClientActivity} {
		assert.Less(t, pos[SalesEnriched.Qualified()], pos[gld.Qualified()])
	}
}

func TestBuildCustomersClean(t *testing.T) {
	sql := buildCustomersClean(fakeDialect{})

	assert.Contains(t, sql, "SELECT DISTINCT")
	assert.Contains(t, sql, "TITLE(TRIM(name)) AS name")
	assert.Contains(t, sql, "UPPER(TRIM(country)) AS country")
	assert.Contains(t, sql, "LOWER(TRIM(email)) AS email")
	assert.Contains(t, sql, "FROM bronze.customers")
	assert.Contains(t, sql, "customer_id IS NOT NULL")
	assert.Contains(t, sql, "email IS NOT NULL")
}

func TestBuildProductsClean(t *testing.T) {
	sql := buildProductsClean(fakeDialect{})

	assert.Contains(t, sql, "ROUND(price, 2) AS price")
	assert.Contains(t, sql, "TITLE(TRIM(category)) AS category")
	assert.Contains(t, sql, "price > 0")
	assert.Contains(t, sql, "FROM bronze.products")
}

func TestBuildSalesEnriched(t *testing.T) {
	sql := buildSalesEnriched(fakeDialect{})

	// The join must read the clean dimensions, never the raw ones.
	assert.Contains(t, sql, "JOIN silver.customers_clean c")
	assert.Contains(t, sql, "JOIN silver.products_clean p")
	assert.NotContains(t, sql, "JOIN bronze.customers")
	assert.NotContains(t, sql, "JOIN bronze.products")

	assert.Contains(t, sql, "s.quantity * p.price AS total_amount")
	assert.Contains(t, sql, "s.sale_id IS NOT NULL")
}

func TestBuildGoldRollups(t *testing.T) {
	// Gold reads only the enrichment output: no re-joins to dimensions.
	for name, build := range map[string]func() string{
		"sales_by_country": func() string { return buildSalesByCountry(fakeDialect{}) },
		"top_products":     func() string { return buildTopProducts(fakeDialect{}) },
		"client_activity":  func() string { return buildClientActivity(fakeDialect{}) },
	} {
		sql := build()
		assert.Contains(t, sql, "FROM silver.sales_enriched", name)
		assert.NotContains(t, sql, "JOIN", name)
	}

	assert.Contains(t, buildSalesByCountry(fakeDialect{}), "COUNT(DISTINCT customer_id) AS number_of_customers")
	assert.Contains(t, buildTopProducts(fakeDialect{}), "SUM(quantity) AS total_quantity_sold")
	assert.NotContains(t, buildTopProducts(fakeDialect{}), "ORDER BY")
	assert.Contains(t, buildClientActivity(fakeDialect{}), "MAX(sale_date) AS last_purchase_date")
}

func TestBuild_Deterministic(t *testing.T) {
	// Re-running a stage must recompute byte-identical SQL.
	for _, s := range Steps() {
		if s.IsSource() {
			continue
		}
		first := s.Build(fakeDialect{})
		for i := 0; i < 3; i++ {
			assert.Equal(t, first, s.Build(fakeDialect{}), "step %s", s.Table.Qualified())
		}
	}
}

func TestDuplicateKeySQL(t *testing.T) {
	sql := DuplicateKeySQL(CustomersClean, "customer_id")
	assert.Contains(t, sql, "GROUP BY customer_id")
	assert.Contains(t, sql, "HAVING COUNT(*) > 1")
	assert.Contains(t, sql, "silver.customers_clean")
}

func TestBronzeDDL(t *testing.T) {
	ddl := BronzeDDL()
	require.Len(t, ddl, 4)
	assert.Contains(t, ddl[0], "CREATE SCHEMA IF NOT EXISTS bronze")
	for _, stmt := range ddl[1:] {
		assert.True(t, strings.HasPrefix(stmt, "CREATE TABLE IF NOT EXISTS bronze."), stmt)
	}
}

func TestTableQualified(t *testing.T) {
	assert.Equal(t, "silver.sales_enriched", SalesEnriched.Qualified())
	assert.Equal(t, "bronze.customers", RawCustomers.Qualified())
}
