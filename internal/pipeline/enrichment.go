package pipeline

// enrichment.go - Silver fact table: raw sales joined to the clean dimensions.

import (
	"fmt"

	"github.com/leapstack-labs/medallion/pkg/adapter"
)

// buildSalesEnriched joins raw sales to the clean dimensions by key equality
// and computes total_amount at join time. Inner-join semantics: a sale whose
// customer_id or product_id has no clean match is silently dropped. The join
// must use the clean dimensions, never the raw ones, so total_amount is always
// quantity times the post-normalization price.
func buildSalesEnriched(adapter.Dialect) string {
	return fmt.Sprintf(`SELECT
    s.sale_id,
    s.sale_date,
    c.customer_id,
    c.name AS customer_name,
    c.country,
    p.product_id,
    p.name AS product_name,
    p.category,
    s.quantity,
    s.quantity * p.price AS total_amount
FROM %s s
JOIN %s c ON s.customer_id = c.customer_id
JOIN %s p ON s.product_id = p.product_id
WHERE s.sale_id IS NOT NULL`,
		RawSales.Qualified(), CustomersClean.Qualified(), ProductsClean.Qualified())
}

// DimensionKeys lists the dimension tables feeding the enrichment join and
// their join keys. The engine asserts key uniqueness on each before building
// sales_enriched: a duplicated key would fan the join out and multiply fact
// rows, so it fails the run instead of relying on upstream dedup alone.
func DimensionKeys() map[Table]string {
	return map[Table]string{
		CustomersClean: "customer_id",
		ProductsClean:  "product_id",
	}
}

// DuplicateKeySQL returns a query counting keys that appear more than once in
// the given table.
func DuplicateKeySQL(t Table, key string) string {
	return fmt.Sprintf(
		"SELECT COUNT(*) FROM (SELECT %s FROM %s GROUP BY %s HAVING COUNT(*) > 1) dup",
		key, t.Qualified(), key)
}
