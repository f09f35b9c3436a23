package pipeline

// aggregation.go - Gold rollups. All three are pure functions of
// silver.sales_enriched: recomputing from the same snapshot reproduces them
// exactly, and no other state feeds them.

import (
	"fmt"

	"github.com/leapstack-labs/medallion/pkg/adapter"
)

// buildSalesByCountry aggregates revenue, sale count, and customer count per
// country.
func buildSalesByCountry(adapter.Dialect) string {
	return fmt.Sprintf(`SELECT
    country,
    SUM(total_amount) AS total_sales,
    COUNT(DISTINCT sale_id) AS number_of_sales,
    COUNT(DISTINCT customer_id) AS number_of_customers
FROM %s
GROUP BY country`, SalesEnriched.Qualified())
}

// buildTopProducts aggregates quantity and revenue per product name and
// category. Descending-revenue ordering is a presentation concern for readers
// of the table, not a storage invariant, so no ORDER BY is materialized.
func buildTopProducts(adapter.Dialect) string {
	return fmt.Sprintf(`SELECT
    product_name AS name,
    category,
    SUM(quantity) AS total_quantity_sold,
    SUM(total_amount) AS total_revenue
FROM %s
GROUP BY product_name, category`, SalesEnriched.Qualified())
}

// buildClientActivity aggregates purchase count, spend, and the most recent
// purchase date per customer.
func buildClientActivity(adapter.Dialect) string {
	return fmt.Sprintf(`SELECT
    customer_id,
    customer_name AS name,
    country,
    COUNT(sale_id) AS number_of_purchases,
    SUM(total_amount) AS total_spent,
    MAX(sale_date) AS last_purchase_date
FROM %s
GROUP BY customer_id, customer_name, country`, SalesEnriched.Qualified())
}
