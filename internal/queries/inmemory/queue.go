package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/card-txn-console/internal/queries"
)

const (
	defaultWorkers    = 3
	defaultMaxRetries = 3
)

// Queue is an in-memory triage queue. It uses a buffered channel for
// distribution and is safe for concurrent use. Suitable for single-instance
// deployments and tests.
type Queue struct {
	ch        chan *queries.TxnQuery
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	store     queries.Store
	workers   int
	retries   int
	backoff   time.Duration
	closed    bool
}

// NewQueue creates a new in-memory triage queue.
// bufferSize determines how many queries can wait before Publish blocks.
func NewQueue(bufferSize int, store queries.Store) *Queue {
	return &Queue{
		ch:        make(chan *queries.TxnQuery, bufferSize),
		closeChan: make(chan struct{}),
		store:     store,
		workers:   defaultWorkers,
		retries:   defaultMaxRetries,
		backoff:   time.Second,
	}
}

// WithBackoff sets the base retry delay; the n-th retry waits n times this.
func (q *Queue) WithBackoff(d time.Duration) *Queue {
	q.backoff = d
	return q
}

// WithMaxRetries sets how many times a failed query is retried. Zero
// disables retries.
func (q *Queue) WithMaxRetries(n int) *Queue {
	q.retries = max(n, 0)
	return q
}

// Publish implements the queries.Publisher interface.
func (q *Queue) Publish(ctx context.Context, query *queries.TxnQuery) error {
	q.mu.RLock()
	closed := q.closed
	q.mu.RUnlock()

	if closed {
		return fmt.Errorf("queue is closed")
	}
	if query.QueryID == "" {
		return fmt.Errorf("query ID is required")
	}

	// Retries carry their own budget; fresh queries get the queue's.
	if query.Triage != queries.TriageRetrying {
		query.MaxRetries = q.retries
		query.RetryCount = 0
	}
	query.Triage = queries.TriageQueued

	if q.store != nil {
		if err := q.store.UpdateTriage(ctx, query); err != nil {
			return fmt.Errorf("failed to save query: %w", err)
		}
	}

	// Each worker owns its copy; the caller keeps the original.
	item := *query
	select {
	case q.ch <- &item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return fmt.Errorf("queue is closed")
	}
}

// Start implements the queries.Consumer interface.
func (q *Queue) Start(ctx context.Context, handler queries.Handler) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return fmt.Errorf("queue is closed")
	}
	q.mu.RUnlock()

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}

	return nil
}

func (q *Queue) worker(ctx context.Context, handler queries.Handler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case item := <-q.ch:
			if item == nil {
				return
			}
			q.process(ctx, item, handler)
		}
	}
}

// process runs the handler on one query with retry logic.
func (q *Queue) process(ctx context.Context, item *queries.TxnQuery, handler queries.Handler) {
	item.Triage = queries.TriageRunning
	q.save(ctx, item)

	err := handler(ctx, item)

	if err != nil {
		item.TriageError = err.Error()

		if item.RetryCount < item.MaxRetries {
			item.RetryCount++
			item.Triage = queries.TriageRetrying
			q.save(ctx, item)

			delay := time.Duration(item.RetryCount) * q.backoff
			retry := *item
			time.AfterFunc(delay, func() {
				_ = q.Publish(ctx, &retry)
			})
			return
		}
		item.Triage = queries.TriageFailed
	} else {
		item.Triage = queries.TriageDone
		item.TriageError = ""
	}

	q.save(ctx, item)
}

// save writes only the triage fields back, so status changes made while
// the query was being processed survive.
func (q *Queue) save(ctx context.Context, item *queries.TxnQuery) {
	if q.store == nil {
		return
	}
	_ = q.store.UpdateTriage(ctx, item)
}

// Stop implements the queries.Consumer interface.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements the queries.Publisher interface.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var (
	_ queries.Publisher = (*Queue)(nil)
	_ queries.Consumer  = (*Queue)(nil)
)
