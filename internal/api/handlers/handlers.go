package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/card-txn-console/internal/api/middleware"
	"github.com/dvloznov/card-txn-console/internal/domain"
	"github.com/dvloznov/card-txn-console/internal/filter"
	"github.com/dvloznov/card-txn-console/internal/forms"
	"github.com/dvloznov/card-txn-console/internal/queries"
	"github.com/dvloznov/card-txn-console/internal/screens"
)

const maxBodyBytes = 1 << 20

// ScreenService is the set of screen operations served over HTTP.
type ScreenService interface {
	Dashboard(ctx context.Context) (screens.DashboardView, error)
	Products(ctx context.Context, query string) (screens.ProductsView, error)
	Customers(ctx context.Context, query string) (screens.CustomersView, error)
	Transactions(ctx context.Context, f filter.TxnFilter) (screens.TransactionsView, error)
	TransactionDetail(ctx context.Context, key domain.TxnKey) (domain.TransactionRecord, error)
	SaveProduct(ctx context.Context, f forms.ProductForm) (screens.SavedDocument, error)
	SaveCustomer(ctx context.Context, f forms.CustomerForm) (screens.SavedDocument, error)
	SubmitQuery(ctx context.Context, f forms.QueryForm) (screens.QuerySubmission, error)
	Queries(ctx context.Context, f queries.Filter) ([]*queries.TxnQuery, error)
	Query(ctx context.Context, id string) (*queries.TxnQuery, error)
	UpdateQueryStatus(ctx context.Context, id string, status queries.Status) error
}

// loadFailure is the body sent when the upstream read failed. View holds
// the empty state of the screen.
type loadFailure struct {
	Error string      `json:"error"`
	View  interface{} `json:"view"`
}

// writeResult writes view, or the empty view with 502 when the collection
// could not be loaded.
func writeResult(w http.ResponseWriter, log zerolog.Logger, view interface{}, err error) {
	switch {
	case err == nil:
		middleware.WriteJSON(w, http.StatusOK, view)
	case errors.Is(err, screens.ErrLoadFailed):
		middleware.WriteJSON(w, http.StatusBadGateway, loadFailure{Error: "Failed to load transactions", View: view})
	default:
		log.Error().Err(err).Msg("Screen request failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// writeFormError maps validation failures to 400 and everything else to 500.
func writeFormError(w http.ResponseWriter, log zerolog.Logger, err error, failMsg string) {
	var verr *forms.ValidationError
	if errors.As(err, &verr) {
		middleware.WriteJSON(w, http.StatusBadRequest, map[string]string{
			"error": verr.Message,
			"field": verr.Field,
		})
		return
	}
	log.Error().Err(err).Msg(failMsg)
	middleware.WriteError(w, http.StatusInternalServerError, failMsg)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func wantsDownload(r *http.Request) bool {
	v := r.URL.Query().Get("download")
	return v == "1" || strings.EqualFold(v, "true")
}

func writeDocument(w http.ResponseWriter, saved screens.SavedDocument) {
	w.Header().Set("Content-Type", saved.Document.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", saved.Name))
	w.WriteHeader(http.StatusCreated)
	w.Write(saved.Document.Data)
}

// DashboardHandler handles the dashboard endpoint.
type DashboardHandler struct {
	svc ScreenService
	log zerolog.Logger
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(svc ScreenService, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{svc: svc, log: log}
}

// GetDashboard handles GET /api/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Dashboard(r.Context())
	writeResult(w, h.log, view, err)
}

// ProductsHandler handles product endpoints.
type ProductsHandler struct {
	svc ScreenService
	log zerolog.Logger
}

// NewProductsHandler creates a new products handler.
func NewProductsHandler(svc ScreenService, log zerolog.Logger) *ProductsHandler {
	return &ProductsHandler{svc: svc, log: log}
}

// ListProducts handles GET /api/products
func (h *ProductsHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Products(r.Context(), r.URL.Query().Get("q"))
	writeResult(w, h.log, view, err)
}

// CreateProduct handles POST /api/products
func (h *ProductsHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var form forms.ProductForm
	if err := decodeBody(w, r, &form); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	saved, err := h.svc.SaveProduct(r.Context(), form)
	if err != nil {
		writeFormError(w, h.log, err, "Failed to save product")
		return
	}

	if wantsDownload(r) {
		writeDocument(w, saved)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, saved)
}

// CustomersHandler handles customer endpoints.
type CustomersHandler struct {
	svc ScreenService
	log zerolog.Logger
}

// NewCustomersHandler creates a new customers handler.
func NewCustomersHandler(svc ScreenService, log zerolog.Logger) *CustomersHandler {
	return &CustomersHandler{svc: svc, log: log}
}

// ListCustomers handles GET /api/customers
func (h *CustomersHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Customers(r.Context(), r.URL.Query().Get("q"))
	writeResult(w, h.log, view, err)
}

// CreateCustomer handles POST /api/customers
func (h *CustomersHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var form forms.CustomerForm
	if err := decodeBody(w, r, &form); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	saved, err := h.svc.SaveCustomer(r.Context(), form)
	if err != nil {
		writeFormError(w, h.log, err, "Failed to save customer")
		return
	}

	if wantsDownload(r) {
		writeDocument(w, saved)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, saved)
}

// TransactionsHandler handles transaction endpoints.
type TransactionsHandler struct {
	svc ScreenService
	log zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(svc ScreenService, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{svc: svc, log: log}
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	view, err := h.svc.Transactions(r.Context(), filter.TxnFilter{
		Status: query.Get("status"),
		Search: query.Get("q"),
	})
	writeResult(w, h.log, view, err)
}

// GetTransaction handles GET /api/transactions/detail
func (h *TransactionsHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	key := domain.TxnKey{
		TxnID:     query.Get("txn_id"),
		ProductID: query.Get("product_id"),
		CardID:    query.Get("card_id"),
	}

	rec, err := h.svc.TransactionDetail(r.Context(), key)
	switch {
	case err == nil:
		middleware.WriteJSON(w, http.StatusOK, rec)
	case errors.Is(err, screens.ErrInvalidKey):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, screens.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
	case errors.Is(err, screens.ErrLoadFailed):
		middleware.WriteError(w, http.StatusBadGateway, "Failed to load transactions")
	default:
		h.log.Error().Err(err).Str("key", key.String()).Msg("Failed to get transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// QueriesHandler handles transaction query endpoints.
type QueriesHandler struct {
	svc ScreenService
	log zerolog.Logger
}

// NewQueriesHandler creates a new queries handler.
func NewQueriesHandler(svc ScreenService, log zerolog.Logger) *QueriesHandler {
	return &QueriesHandler{svc: svc, log: log}
}

// ListQueries handles GET /api/queries
func (h *QueriesHandler) ListQueries(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	f := queries.Filter{
		TxnID:  query.Get("txn_id"),
		Status: queries.Status(query.Get("status")),
		Open:   query.Get("open") == "true",
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			f.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			f.Offset = offset
		}
	}

	list, err := h.svc.Queries(r.Context(), f)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list queries")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list queries")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"queries": list,
		"count":   len(list),
	})
}

// GetQuery handles GET /api/queries/{id}
func (h *QueriesHandler) GetQuery(w http.ResponseWriter, r *http.Request, queryID string) {
	q, err := h.svc.Query(r.Context(), queryID)
	if errors.Is(err, screens.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Query not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("query_id", queryID).Msg("Failed to get query")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get query")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, q)
}

// SubmitQuery handles POST /api/queries
func (h *QueriesHandler) SubmitQuery(w http.ResponseWriter, r *http.Request) {
	var form forms.QueryForm
	if err := decodeBody(w, r, &form); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sub, err := h.svc.SubmitQuery(r.Context(), form)
	if err != nil {
		writeFormError(w, h.log, err, "Failed to submit query")
		return
	}

	middleware.WriteJSON(w, http.StatusAccepted, sub)
}

// UpdateStatus handles POST /api/queries/{id}/status
func (h *QueriesHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, queryID string) {
	var req struct {
		Status queries.Status `json:"status"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !req.Status.Valid() {
		middleware.WriteError(w, http.StatusBadRequest, "status must be PENDING, IN_PROGRESS or RESOLVED")
		return
	}

	err := h.svc.UpdateQueryStatus(r.Context(), queryID, req.Status)
	if errors.Is(err, screens.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Query not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("query_id", queryID).Msg("Failed to update query status")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to update query status")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"query_id": queryID,
		"status":   string(req.Status),
	})
}
