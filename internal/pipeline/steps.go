package pipeline

import "github.com/leapstack-labs/medallion/pkg/adapter"

// Step is one materialization in the pipeline: a target table, the tables it
// reads, and the SELECT that produces its full contents. Every step is a
// full-refresh: the engine computes the SELECT into a staging table and swaps
// it in, so re-running a step on unchanged inputs reproduces the same table.
type Step struct {
	Table  Table
	Inputs []Table

	// Build renders the SELECT for this step. Nil for bronze source tables,
	// which are populated by ingestion rather than computed.
	Build func(d adapter.Dialect) string
}

// IsSource reports whether the step is an ingested source rather than a
// computed transformation.
func (s Step) IsSource() bool {
	return s.Build == nil
}

// Steps returns the full step catalog in declaration order.
// Execution order is decided by the graph, not by this slice.
func Steps() []Step {
	return []Step{
		{Table: RawCustomers},
		{Table: RawProducts},
		{Table: RawSales},
		{
			Table:  CustomersClean,
			Inputs: []Table{RawCustomers},
			Build:  buildCustomersClean,
		},
		{
			Table:  ProductsClean,
			Inputs: []Table{RawProducts},
			Build:  buildProductsClean,
		},
		{
			Table:  SalesEnriched,
			Inputs: []Table{RawSales, CustomersClean, ProductsClean},
			Build:  buildSalesEnriched,
		},
		{
			Table:  SalesByCountry,
			Inputs: []Table{SalesEnriched},
			Build:  buildSalesByCountry,
		},
		{
			Table:  TopProducts,
			Inputs: []Table{SalesEnriched},
			Build:  buildTopProducts,
		},
		{
			Table:  ClientActivity,
			Inputs: []Table{SalesEnriched},
			Build:  buildClientActivity,
		},
	}
}

// LayerSteps returns the computed steps belonging to a layer.
func LayerSteps(layer Layer) []Step {
	var out []Step
	for _, s := range Steps() {
		if s.Table.Layer == layer && !s.IsSource() {
			out = append(out, s)
		}
	}
	return out
}

// StepFor returns the step producing the given table.
func StepFor(t Table) (Step, bool) {
	for _, s := range Steps() {
		if s.Table == t {
			return s, true
		}
	}
	return Step{}, false
}
