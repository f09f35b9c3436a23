// Package pipeline defines the medallion step catalog: the bronze raw tables,
// the silver cleaning and enrichment transformations, and the gold rollups,
// together with the dependency graph between them.
package pipeline

import "github.com/leapstack-labs/medallion/internal/dag"

// Layer identifies a medallion layer.
type Layer string

const (
	LayerBronze Layer = "bronze"
	LayerSilver Layer = "silver"
	LayerGold   Layer = "gold"
)

// Layers returns the layers in pipeline order.
func Layers() []Layer {
	return []Layer{LayerBronze, LayerSilver, LayerGold}
}

// Table is a handle to a warehouse table. Stages exchange these handles
// explicitly rather than assuming a shared ambient catalog.
type Table struct {
	Layer Layer
	Name  string
}

// Qualified returns the schema-qualified table name.
func (t Table) Qualified() string {
	return string(t.Layer) + "." + t.Name
}

// Bronze raw tables.
var (
	RawCustomers = Table{LayerBronze, "customers"}
	RawProducts  = Table{LayerBronze, "products"}
	RawSales     = Table{LayerBronze, "sales"}
)

// Silver tables.
var (
	CustomersClean = Table{LayerSilver, "customers_clean"}
	ProductsClean  = Table{LayerSilver, "products_clean"}
	SalesEnriched  = Table{LayerSilver, "sales_enriched"}
)

// Gold tables.
var (
	SalesByCountry = Table{LayerGold, "sales_by_country"}
	TopProducts    = Table{LayerGold, "top_products"}
	ClientActivity = Table{LayerGold, "client_activity"}
)

// BronzeDDL returns the statements that create the bronze schema and raw
// tables. Types are deliberately loose: malformed values are tolerated at
// ingestion and rejected by the quality gate later.
func BronzeDDL() []string {
	return []string{
		"CREATE SCHEMA IF NOT EXISTS bronze",
		`CREATE TABLE IF NOT EXISTS bronze.customers (
			customer_id INTEGER,
			name        TEXT,
			country     TEXT,
			email       TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS bronze.products (
			product_id INTEGER,
			name       TEXT,
			category   TEXT,
			price      DECIMAL(12,4)
		)`,
		`CREATE TABLE IF NOT EXISTS bronze.sales (
			sale_id     INTEGER,
			customer_id INTEGER,
			product_id  INTEGER,
			quantity    INTEGER,
			sale_date   DATE
		)`,
	}
}

// Graph builds the dependency graph over the full step catalog.
// Bronze tables are source nodes; every other node carries its Step.
func Graph() (*dag.Graph, error) {
	g := dag.New()
	for _, s := range Steps() {
		g.AddNode(s.Table.Qualified(), s)
	}
	for _, s := range Steps() {
		for _, in := range s.Inputs {
			if err := g.AddEdge(in.Qualified(), s.Table.Qualified()); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}
