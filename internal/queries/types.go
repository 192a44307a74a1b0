package queries

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a query id is unknown.
var ErrNotFound = errors.New("query not found")

// Status represents where a transaction query is in its lifecycle.
type Status string

const (
	// StatusPending indicates the query is waiting for an agent.
	StatusPending Status = "PENDING"
	// StatusInProgress indicates an agent is working on the query.
	StatusInProgress Status = "IN_PROGRESS"
	// StatusResolved indicates the query was answered.
	StatusResolved Status = "RESOLVED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// TriageState tracks the asynchronous classification of a query.
type TriageState string

const (
	// TriageQueued indicates the query is waiting for a triage worker.
	TriageQueued TriageState = "queued"
	// TriageRunning indicates a worker is classifying the query.
	TriageRunning TriageState = "running"
	// TriageDone indicates priority and category have been assigned.
	TriageDone TriageState = "done"
	// TriageRetrying indicates classification failed and will be retried.
	TriageRetrying TriageState = "retrying"
	// TriageFailed indicates classification failed after all retries.
	TriageFailed TriageState = "failed"
	// TriageNotNeeded marks queries that never enter the triage queue.
	TriageNotNeeded TriageState = ""
)

// TxnQuery is a customer question about one transaction.
type TxnQuery struct {
	// QueryID is the unique identifier for this query.
	QueryID string `json:"query_id"`

	// TxnID is the transaction the query is about.
	TxnID string `json:"txn_id"`

	// Summary is the one-line subject entered by the user.
	Summary string `json:"summary"`

	// Description holds the free-text details.
	Description string `json:"description,omitempty"`

	// Status is the current handling status.
	Status Status `json:"status"`

	// SubmittedAt is when the query was created.
	SubmittedAt time.Time `json:"submitted_date"`

	// Priority and Category are filled in by triage.
	Priority string `json:"priority,omitempty"`
	Category string `json:"category,omitempty"`

	// Triage is the state of the triage job for this query.
	Triage TriageState `json:"triage,omitempty"`

	// TriageError contains error details if triage failed.
	TriageError string `json:"triage_error,omitempty"`

	// RetryCount is the number of times triage has been retried.
	RetryCount int `json:"retry_count"`

	// MaxRetries is the maximum number of triage retries allowed.
	MaxRetries int `json:"max_retries"`
}

// Filter defines filtering criteria for listing queries.
type Filter struct {
	// TxnID filters queries by transaction.
	TxnID string

	// Status filters queries by status.
	Status Status

	// Open keeps only queries that are not resolved.
	Open bool

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}

// Store defines the interface for storing and retrieving transaction queries.
type Store interface {
	// Save saves or updates a query.
	Save(ctx context.Context, q *TxnQuery) error

	// Get retrieves a query by ID.
	Get(ctx context.Context, queryID string) (*TxnQuery, error)

	// List retrieves queries with optional filtering, newest first.
	List(ctx context.Context, filter Filter) ([]*TxnQuery, error)

	// UpdateStatus updates the handling status of a query.
	UpdateStatus(ctx context.Context, queryID string, status Status) error

	// UpdateTriage writes the triage fields of q (Priority, Category, Triage,
	// TriageError, RetryCount, MaxRetries) and leaves the rest of the stored
	// query untouched. Unknown queries are saved as given.
	UpdateTriage(ctx context.Context, q *TxnQuery) error
}

// Handler processes one query taken from the triage queue. It should return
// an error if the query should be retried.
type Handler func(ctx context.Context, q *TxnQuery) error

// Publisher enqueues queries for triage.
type Publisher interface {
	Publish(ctx context.Context, q *TxnQuery) error
	Close() error
}

// Consumer runs the triage workers.
type Consumer interface {
	// Start begins consuming queries from the queue.
	Start(ctx context.Context, handler Handler) error

	// Stop stops consuming and waits for in-flight work to complete.
	Stop(ctx context.Context) error
}
