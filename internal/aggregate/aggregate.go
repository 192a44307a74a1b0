// Package aggregate folds a flat transaction feed into keyed summaries.
//
// Every function here is a pure single pass over an already-fetched slice.
// Numeric fields that are absent or not numeric contribute zero to their
// accumulator. Fields that were present but unparsable are counted in
// Result.Malformed so callers can report the data loss instead of hiding it.
package aggregate

import (
	"sort"

	"github.com/dvloznov/card-txn-console/internal/domain"
)

// Accumulator describes how to group records and fold them into a summary.
type Accumulator[S any] struct {
	// Key returns the grouping key of a record.
	Key func(domain.TransactionRecord) string

	// Init builds the summary for an unseen key from the first record seen,
	// with every accumulator zeroed.
	Init func(domain.TransactionRecord) S

	// Add folds one record into the summary. It returns the number of
	// numeric fields that were present but could not be parsed.
	Add func(*S, domain.TransactionRecord) int
}

// Result is the output of one aggregation pass.
type Result[S any] struct {
	Summaries map[string]S
	Malformed int
}

// By groups records with acc. Each key appears once; descriptive fields come
// from the first record seen for that key.
func By[S any](records []domain.TransactionRecord, acc Accumulator[S]) Result[S] {
	res := Result[S]{Summaries: make(map[string]S)}

	for _, rec := range records {
		key := acc.Key(rec)
		s, seen := res.Summaries[key]
		if !seen {
			s = acc.Init(rec)
		}
		res.Malformed += acc.Add(&s, rec)
		res.Summaries[key] = s
	}

	return res
}

// Values returns the summaries ordered by key.
func Values[S any](m map[string]S) []S {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]S, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

// addNumeric adds n to *dst when it parses. It returns 1 when n was present
// but not numeric.
func addNumeric(dst *float64, n domain.NumericText) int {
	if v, ok := n.Float(); ok {
		*dst += v
		return 0
	}
	if n.Present() {
		return 1
	}
	return 0
}
