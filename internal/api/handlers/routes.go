package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/card-txn-console/internal/api/middleware"
)

// Register installs every console endpoint on mux.
func Register(mux *http.ServeMux, svc ScreenService, log zerolog.Logger) {
	dashboardHandler := NewDashboardHandler(svc, log)
	productsHandler := NewProductsHandler(svc, log)
	customersHandler := NewCustomersHandler(svc, log)
	transactionsHandler := NewTransactionsHandler(svc, log)
	queriesHandler := NewQueriesHandler(svc, log)

	mux.HandleFunc("/api/dashboard", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			dashboardHandler.GetDashboard(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/products", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			productsHandler.ListProducts(w, r)
		case http.MethodPost:
			productsHandler.CreateProduct(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/customers", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			customersHandler.ListCustomers(w, r)
		case http.MethodPost:
			customersHandler.CreateCustomer(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			transactionsHandler.ListTransactions(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions/detail", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			transactionsHandler.GetTransaction(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/queries", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			queriesHandler.ListQueries(w, r)
		case http.MethodPost:
			queriesHandler.SubmitQuery(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/queries/", func(w http.ResponseWriter, r *http.Request) {
		// Extract query ID and optional action from path
		rest := strings.TrimPrefix(r.URL.Path, "/api/queries/")
		queryID, action, _ := strings.Cut(rest, "/")
		if queryID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Query ID is required")
			return
		}

		switch {
		case action == "" && r.Method == http.MethodGet:
			queriesHandler.GetQuery(w, r, queryID)
		case action == "status" && r.Method == http.MethodPost:
			queriesHandler.UpdateStatus(w, r, queryID)
		case action == "" || action == "status":
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		default:
			middleware.WriteError(w, http.StatusNotFound, "Not found")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
}
