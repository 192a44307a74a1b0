package source

import (
	"context"
	"errors"
	"regexp"

	"github.com/dvloznov/card-txn-console/internal/domain"
)

// DefaultCollection is the transaction view every screen reads.
const DefaultCollection = "zv_prod_card_txn"

// ErrInvalidCollection is returned for collection names that are not plain identifiers.
var ErrInvalidCollection = errors.New("invalid collection name")

var collectionPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Fetcher reads a whole collection of transaction records from upstream.
// Implementations return the complete collection; there is no paging.
type Fetcher interface {
	Fetch(ctx context.Context, collection string) ([]domain.TransactionRecord, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, collection string) ([]domain.TransactionRecord, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, collection string) ([]domain.TransactionRecord, error) {
	return f(ctx, collection)
}

func validateCollection(collection string) error {
	if !collectionPattern.MatchString(collection) {
		return ErrInvalidCollection
	}
	return nil
}

// FindByKey returns the record matching key, if any.
func FindByKey(records []domain.TransactionRecord, key domain.TxnKey) (domain.TransactionRecord, bool) {
	for _, r := range records {
		if r.Key() == key {
			return r, true
		}
	}
	return domain.TransactionRecord{}, false
}
