// Package filter implements the list searches of the transaction, product
// and customer screens. Matching is case-insensitive substring containment.
package filter

import (
	"strings"

	"github.com/dvloznov/card-txn-console/internal/domain"
)

// TxnFilter narrows the transaction list. Zero values match everything.
type TxnFilter struct {
	// Status must equal the record's status when set.
	Status string
	// Search must be contained in txn_id, product_name, cardholder_name or description.
	Search string
}

// Match reports whether r passes the filter.
func (f TxnFilter) Match(r domain.TransactionRecord) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return containsAny(f.Search, r.TxnID, r.ProductName, r.CardholderName, r.Description)
}

// Transactions returns the records that pass f, in input order.
func Transactions(records []domain.TransactionRecord, f TxnFilter) []domain.TransactionRecord {
	out := make([]domain.TransactionRecord, 0, len(records))
	for _, r := range records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Products returns the summaries whose id or name contains query.
func Products(summaries []domain.ProductSummary, query string) []domain.ProductSummary {
	out := make([]domain.ProductSummary, 0, len(summaries))
	for _, s := range summaries {
		if containsAny(query, s.ProductID, s.ProductName) {
			out = append(out, s)
		}
	}
	return out
}

// Customers returns the summaries whose card id or holder name contains query.
func Customers(summaries []domain.CustomerSummary, query string) []domain.CustomerSummary {
	out := make([]domain.CustomerSummary, 0, len(summaries))
	for _, s := range summaries {
		if containsAny(query, s.CardID, s.CardholderName) {
			out = append(out, s)
		}
	}
	return out
}

func containsAny(query string, fields ...string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}
