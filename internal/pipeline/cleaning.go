package pipeline

// cleaning.go - Silver cleaning transformations for the dimension tables.
//
// Cleaning is silent filtering: rows failing the null/price predicates are
// dropped without error, and exact duplicates (post-normalization) collapse
// under DISTINCT.

import (
	"fmt"

	"github.com/leapstack-labs/medallion/pkg/adapter"
)

// buildCustomersClean normalizes and deduplicates raw customers:
// name title-cased, country upper-cased, email lower-cased, all trimmed;
// rows without a customer_id or email are discarded.
func buildCustomersClean(d adapter.Dialect) string {
	return fmt.Sprintf(`SELECT DISTINCT
    customer_id,
    %s AS name,
    UPPER(TRIM(country)) AS country,
    LOWER(TRIM(email)) AS email
FROM %s
WHERE customer_id IS NOT NULL
  AND email IS NOT NULL`,
		d.InitCap("TRIM(name)"), RawCustomers.Qualified())
}

// buildProductsClean normalizes and deduplicates raw products:
// name and category title-cased and trimmed, price rounded to 2 decimals;
// rows without a product_id or a positive price are discarded.
func buildProductsClean(d adapter.Dialect) string {
	return fmt.Sprintf(`SELECT DISTINCT
    product_id,
    %s AS name,
    %s AS category,
    ROUND(price, 2) AS price
FROM %s
WHERE product_id IS NOT NULL
  AND price > 0`,
		d.InitCap("TRIM(name)"), d.InitCap("TRIM(category)"), RawProducts.Qualified())
}
