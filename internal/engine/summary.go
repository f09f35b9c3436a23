package engine

import (
	"context"
	"fmt"
)

// Summary reports headline numbers from the gold layer after a run.
type Summary struct {
	Countries    int64
	TotalRevenue float64
	Products     int64
	Customers    int64
}

// Summarize reads the gold tables and returns the headline numbers.
// It requires a completed aggregation stage.
func (e *Engine) Summarize(ctx context.Context) (*Summary, error) {
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}

	s := &Summary{}

	countries, err := e.db.QueryCount(ctx, "SELECT COUNT(*) FROM gold.sales_by_country")
	if err != nil {
		return nil, fmt.Errorf("failed to read gold.sales_by_country: %w", err)
	}
	s.Countries = countries

	products, err := e.db.QueryCount(ctx, "SELECT COUNT(*) FROM gold.top_products")
	if err != nil {
		return nil, fmt.Errorf("failed to read gold.top_products: %w", err)
	}
	s.Products = products

	customers, err := e.db.QueryCount(ctx, "SELECT COUNT(*) FROM gold.client_activity")
	if err != nil {
		return nil, fmt.Errorf("failed to read gold.client_activity: %w", err)
	}
	s.Customers = customers

	rows, err := e.db.Query(ctx, "SELECT COALESCE(SUM(total_sales), 0) FROM gold.sales_by_country")
	if err != nil {
		return nil, fmt.Errorf("failed to read total revenue: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&s.TotalRevenue); err != nil {
			return nil, fmt.Errorf("failed to scan total revenue: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return s, nil
}
