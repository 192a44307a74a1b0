package aggregate

import (
	"github.com/dvloznov/card-txn-console/internal/domain"
)

// ProductAccumulator groups by product_id and sums quantity.
var ProductAccumulator = Accumulator[domain.ProductSummary]{
	Key: func(r domain.TransactionRecord) string { return r.ProductID },
	Init: func(r domain.TransactionRecord) domain.ProductSummary {
		return domain.ProductSummary{
			ProductID:   r.ProductID,
			ProductName: r.ProductName,
			Price:       r.Price,
			Currency:    r.Currency,
		}
	},
	Add: func(s *domain.ProductSummary, r domain.TransactionRecord) int {
		return addNumeric(&s.Quantity, r.Quantity)
	},
}

// CustomerAccumulator groups by card_id, counts transactions and sums amount.
var CustomerAccumulator = Accumulator[domain.CustomerSummary]{
	Key: func(r domain.TransactionRecord) string { return r.CardID },
	Init: func(r domain.TransactionRecord) domain.CustomerSummary {
		return domain.CustomerSummary{
			CardID:         r.CardID,
			CardholderName: r.CardholderName,
		}
	},
	Add: func(s *domain.CustomerSummary, r domain.TransactionRecord) int {
		s.TransactionCount++
		return addNumeric(&s.TotalSpent, r.Amount)
	},
}

// Products summarizes records per product.
func Products(records []domain.TransactionRecord) Result[domain.ProductSummary] {
	return By(records, ProductAccumulator)
}

// Customers summarizes records per card.
func Customers(records []domain.TransactionRecord) Result[domain.CustomerSummary] {
	return By(records, CustomerAccumulator)
}

// Totals computes the dashboard headline numbers. FormattedTotal is left for
// the caller, which owns currency presentation.
func Totals(records []domain.TransactionRecord) (domain.DashboardStats, int) {
	products := make(map[string]struct{})
	customers := make(map[string]struct{})
	stats := domain.DashboardStats{TransactionCount: len(records)}
	malformed := 0

	for _, r := range records {
		products[r.ProductID] = struct{}{}
		customers[r.CardID] = struct{}{}
		malformed += addNumeric(&stats.TotalAmount, r.Amount)
	}

	stats.ProductCount = len(products)
	stats.CustomerCount = len(customers)
	return stats, malformed
}
