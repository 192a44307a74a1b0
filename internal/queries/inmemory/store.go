package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/card-txn-console/internal/queries"
)

// Store is an in-memory implementation of queries.Store.
// It is safe for concurrent use. Data is lost on service restart.
type Store struct {
	mu      sync.RWMutex
	queries map[string]*queries.TxnQuery
}

// NewStore creates a store holding copies of the given queries.
func NewStore(seed ...*queries.TxnQuery) *Store {
	s := &Store{
		queries: make(map[string]*queries.TxnQuery),
	}
	for _, q := range seed {
		qCopy := *q
		s.queries[q.QueryID] = &qCopy
	}
	return s
}

// Save implements the queries.Store interface.
func (s *Store) Save(ctx context.Context, q *queries.TxnQuery) error {
	if q.QueryID == "" {
		return fmt.Errorf("query ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy so callers can keep mutating their value
	qCopy := *q
	s.queries[q.QueryID] = &qCopy

	return nil
}

// Get implements the queries.Store interface.
func (s *Store) Get(ctx context.Context, queryID string) (*queries.TxnQuery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, exists := s.queries[queryID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", queries.ErrNotFound, queryID)
	}

	qCopy := *q
	return &qCopy, nil
}

// List implements the queries.Store interface.
func (s *Store) List(ctx context.Context, filter queries.Filter) ([]*queries.TxnQuery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*queries.TxnQuery{}

	for _, q := range s.queries {
		if filter.TxnID != "" && q.TxnID != filter.TxnID {
			continue
		}
		if filter.Status != "" && q.Status != filter.Status {
			continue
		}
		if filter.Open && q.Status == queries.StatusResolved {
			continue
		}

		qCopy := *q
		result = append(result, &qCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].SubmittedAt.Equal(result[j].SubmittedAt) {
			return result[i].SubmittedAt.After(result[j].SubmittedAt)
		}
		return result[i].QueryID < result[j].QueryID
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*queries.TxnQuery{}, nil
		}
		result = result[filter.Offset:]
	}

	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result, nil
}

// UpdateStatus implements the queries.Store interface.
func (s *Store) UpdateStatus(ctx context.Context, queryID string, status queries.Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status: %q", status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	q, exists := s.queries[queryID]
	if !exists {
		return fmt.Errorf("%w: %s", queries.ErrNotFound, queryID)
	}

	q.Status = status
	return nil
}

// UpdateTriage implements the queries.Store interface.
func (s *Store) UpdateTriage(ctx context.Context, q *queries.TxnQuery) error {
	if q.QueryID == "" {
		return fmt.Errorf("query ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.queries[q.QueryID]
	if !exists {
		qCopy := *q
		s.queries[q.QueryID] = &qCopy
		return nil
	}

	current.Priority = q.Priority
	current.Category = q.Category
	current.Triage = q.Triage
	current.TriageError = q.TriageError
	current.RetryCount = q.RetryCount
	current.MaxRetries = q.MaxRetries
	return nil
}

var _ queries.Store = (*Store)(nil)
