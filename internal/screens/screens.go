// Package screens implements the operations behind each console screen.
// Every read operation performs one fetch of the transaction collection
// followed by one aggregation or filter pass; nothing is cached between calls.
package screens

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/card-txn-console/internal/aggregate"
	"github.com/dvloznov/card-txn-console/internal/domain"
	"github.com/dvloznov/card-txn-console/internal/export"
	"github.com/dvloznov/card-txn-console/internal/filter"
	"github.com/dvloznov/card-txn-console/internal/forms"
	"github.com/dvloznov/card-txn-console/internal/logger"
	"github.com/dvloznov/card-txn-console/internal/money"
	"github.com/dvloznov/card-txn-console/internal/queries"
	"github.com/dvloznov/card-txn-console/internal/source"
)

var (
	// ErrLoadFailed is returned when the transaction collection could not be read.
	// The accompanying view is the empty state of the screen.
	ErrLoadFailed = errors.New("load failed")

	// ErrNotFound is returned when a transaction or query does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidKey is returned for a transaction key with empty parts.
	ErrInvalidKey = errors.New("txn_id, product_id and card_id are required")
)

// Config holds the collaborators of a Service.
type Config struct {
	Fetcher    source.Fetcher
	Collection string
	Queries    queries.Store
	// Triage receives submitted queries. When nil, queries are only stored.
	Triage queries.Publisher
	Sink   export.Sink
	Now    func() time.Time
	NewID  func() string
}

// Service serves the console screens.
type Service struct {
	fetcher    source.Fetcher
	collection string
	queries    queries.Store
	triage     queries.Publisher
	sink       export.Sink
	now        func() time.Time
	newID      func() string
}

// NewService creates a Service, filling in defaults for the collection,
// clock and id generator.
func NewService(cfg Config) *Service {
	s := &Service{
		fetcher:    cfg.Fetcher,
		collection: cfg.Collection,
		queries:    cfg.Queries,
		triage:     cfg.Triage,
		sink:       cfg.Sink,
		now:        cfg.Now,
		newID:      cfg.NewID,
	}
	if s.collection == "" {
		s.collection = source.DefaultCollection
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// DashboardView is the dashboard screen.
type DashboardView struct {
	Stats          domain.DashboardStats `json:"stats"`
	PendingQueries []*queries.TxnQuery   `json:"pending_queries"`
	Malformed      int                   `json:"malformed_values"`
}

// ProductsView is the product list screen.
type ProductsView struct {
	Products  []domain.ProductSummary `json:"products"`
	Malformed int                     `json:"malformed_values"`
}

// CustomersView is the customer list screen.
type CustomersView struct {
	Customers []domain.CustomerSummary `json:"customers"`
	Malformed int                      `json:"malformed_values"`
}

// TransactionsView is the transaction list screen.
type TransactionsView struct {
	Transactions []domain.TransactionRecord `json:"transactions"`
}

// SavedDocument describes a form export.
type SavedDocument struct {
	Document export.Document `json:"-"`
	Name     string          `json:"file_name"`
	Location string          `json:"location,omitempty"`
}

// QuerySubmission is the result of submitting a transaction query.
type QuerySubmission struct {
	Query    *queries.TxnQuery `json:"query"`
	Fragment template.HTML     `json:"fragment"`
}

func (s *Service) load(ctx context.Context, op string) ([]domain.TransactionRecord, error) {
	records, err := s.fetcher.Fetch(ctx, s.collection)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().
			Err(err).
			Str("collection", s.collection).
			Str("op", op).
			Msg("Failed to load transactions")
		return nil, fmt.Errorf("Service.%s: %w: %w", op, ErrLoadFailed, err)
	}
	return records, nil
}

func warnMalformed(log zerolog.Logger, op string, n int) {
	if n == 0 {
		return
	}
	log.Warn().
		Str("op", op).
		Int("malformed_values", n).
		Msg("Non-numeric values were counted as zero")
}

// Dashboard returns the headline statistics and every query that is not yet
// resolved. When the collection cannot be read the statistics are zero, the
// total reads "$0.00" and the open queries are still returned.
func (s *Service) Dashboard(ctx context.Context) (DashboardView, error) {
	view := DashboardView{
		Stats:          domain.DashboardStats{FormattedTotal: money.FormatUSD(0)},
		PendingQueries: []*queries.TxnQuery{},
	}

	if s.queries != nil {
		pending, err := s.queries.List(ctx, queries.Filter{Open: true})
		if err != nil {
			return view, fmt.Errorf("Service.Dashboard: list pending queries: %w", err)
		}
		view.PendingQueries = pending
	}

	records, err := s.load(ctx, "Dashboard")
	if err != nil {
		return view, err
	}

	stats, malformed := aggregate.Totals(records)
	stats.FormattedTotal = money.FormatUSD(stats.TotalAmount)
	warnMalformed(logger.FromContext(ctx), "Dashboard", malformed)

	view.Stats = stats
	view.Malformed = malformed
	return view, nil
}

// Products returns one summary per product, filtered by query when set.
func (s *Service) Products(ctx context.Context, query string) (ProductsView, error) {
	view := ProductsView{Products: []domain.ProductSummary{}}

	records, err := s.load(ctx, "Products")
	if err != nil {
		return view, err
	}

	res := aggregate.Products(records)
	warnMalformed(logger.FromContext(ctx), "Products", res.Malformed)

	view.Products = filter.Products(aggregate.Values(res.Summaries), query)
	view.Malformed = res.Malformed
	return view, nil
}

// Customers returns one summary per card, filtered by query when set.
func (s *Service) Customers(ctx context.Context, query string) (CustomersView, error) {
	view := CustomersView{Customers: []domain.CustomerSummary{}}

	records, err := s.load(ctx, "Customers")
	if err != nil {
		return view, err
	}

	res := aggregate.Customers(records)
	warnMalformed(logger.FromContext(ctx), "Customers", res.Malformed)

	view.Customers = filter.Customers(aggregate.Values(res.Summaries), query)
	view.Malformed = res.Malformed
	return view, nil
}

// Transactions returns the records passing f.
func (s *Service) Transactions(ctx context.Context, f filter.TxnFilter) (TransactionsView, error) {
	view := TransactionsView{Transactions: []domain.TransactionRecord{}}

	records, err := s.load(ctx, "Transactions")
	if err != nil {
		return view, err
	}

	view.Transactions = filter.Transactions(records, f)
	return view, nil
}

// TransactionDetail returns the single record identified by key.
func (s *Service) TransactionDetail(ctx context.Context, key domain.TxnKey) (domain.TransactionRecord, error) {
	if !key.Valid() {
		return domain.TransactionRecord{}, ErrInvalidKey
	}

	records, err := s.load(ctx, "TransactionDetail")
	if err != nil {
		return domain.TransactionRecord{}, err
	}

	rec, ok := source.FindByKey(records, key)
	if !ok {
		return domain.TransactionRecord{}, fmt.Errorf("Service.TransactionDetail: %w: %s", ErrNotFound, key)
	}
	return rec, nil
}

// SaveProduct validates the form, renders it as XML and stores it in the sink.
// Validation failures are returned as *forms.ValidationError.
func (s *Service) SaveProduct(ctx context.Context, f forms.ProductForm) (SavedDocument, error) {
	doc, err := export.ProductXML(f, s.now())
	if err != nil {
		return SavedDocument{}, err
	}
	return s.store(ctx, "SaveProduct", doc)
}

// SaveCustomer validates the form, renders it as JSON and stores it in the sink.
func (s *Service) SaveCustomer(ctx context.Context, f forms.CustomerForm) (SavedDocument, error) {
	doc, err := export.CustomerJSON(f, s.now())
	if err != nil {
		return SavedDocument{}, err
	}
	return s.store(ctx, "SaveCustomer", doc)
}

func (s *Service) store(ctx context.Context, op string, doc export.Document) (SavedDocument, error) {
	saved := SavedDocument{Document: doc, Name: doc.Name}
	if s.sink == nil {
		return saved, nil
	}

	loc, err := s.sink.Save(ctx, doc)
	if err != nil {
		return SavedDocument{}, fmt.Errorf("Service.%s: save %s: %w", op, doc.Name, err)
	}
	saved.Location = loc

	log := logger.FromContext(ctx)
	log.Info().
		Str("file", doc.Name).
		Str("location", loc).
		Msg("Document saved")
	return saved, nil
}

// SubmitQuery validates the form, records a pending query and hands it to
// triage. The returned fragment is safe to insert into a page.
func (s *Service) SubmitQuery(ctx context.Context, f forms.QueryForm) (QuerySubmission, error) {
	if err := f.Validate(); err != nil {
		return QuerySubmission{}, err
	}

	fragment, err := export.QueryFragment(f)
	if err != nil {
		return QuerySubmission{}, fmt.Errorf("Service.SubmitQuery: render fragment: %w", err)
	}

	q := &queries.TxnQuery{
		QueryID:     s.newID(),
		TxnID:       f.TxnID,
		Summary:     f.Summary,
		Description: f.Description,
		Status:      queries.StatusPending,
		SubmittedAt: s.now().UTC(),
	}

	switch {
	case s.triage != nil:
		if err := s.triage.Publish(ctx, q); err != nil {
			return QuerySubmission{}, fmt.Errorf("Service.SubmitQuery: publish: %w", err)
		}
	case s.queries != nil:
		if err := s.queries.Save(ctx, q); err != nil {
			return QuerySubmission{}, fmt.Errorf("Service.SubmitQuery: save: %w", err)
		}
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("query_id", q.QueryID).
		Str("txn_id", q.TxnID).
		Msg("Transaction query submitted")

	return QuerySubmission{Query: q, Fragment: fragment}, nil
}

// Queries lists stored queries.
func (s *Service) Queries(ctx context.Context, f queries.Filter) ([]*queries.TxnQuery, error) {
	if s.queries == nil {
		return []*queries.TxnQuery{}, nil
	}
	list, err := s.queries.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("Service.Queries: %w", err)
	}
	return list, nil
}

// Query returns one stored query.
func (s *Service) Query(ctx context.Context, id string) (*queries.TxnQuery, error) {
	if s.queries == nil {
		return nil, fmt.Errorf("Service.Query: %w: %s", ErrNotFound, id)
	}
	q, err := s.queries.Get(ctx, id)
	if errors.Is(err, queries.ErrNotFound) {
		return nil, fmt.Errorf("Service.Query: %w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("Service.Query: %w", err)
	}
	return q, nil
}

// UpdateQueryStatus moves a query to a new handling status.
func (s *Service) UpdateQueryStatus(ctx context.Context, id string, status queries.Status) error {
	if s.queries == nil {
		return fmt.Errorf("Service.UpdateQueryStatus: %w: %s", ErrNotFound, id)
	}
	err := s.queries.UpdateStatus(ctx, id, status)
	if errors.Is(err, queries.ErrNotFound) {
		return fmt.Errorf("Service.UpdateQueryStatus: %w: %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("Service.UpdateQueryStatus: %w", err)
	}
	return nil
}
