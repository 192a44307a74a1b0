package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dvloznov/card-txn-console/internal/logger"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"request_id": GetRequestID(r.Context())})
	})
}

func TestAuth(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		path   string
		header string
		want   int
	}{
		{name: "disabled", path: "/api/dashboard", want: http.StatusOK},
		{name: "missing header", token: "s3cret", path: "/api/dashboard", want: http.StatusUnauthorized},
		{name: "wrong token", token: "s3cret", path: "/api/dashboard", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "wrong scheme", token: "s3cret", path: "/api/dashboard", header: "Basic s3cret", want: http.StatusUnauthorized},
		{name: "valid token", token: "s3cret", path: "/api/dashboard", header: "Bearer s3cret", want: http.StatusOK},
		{name: "public path", token: "s3cret", path: "/health", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			Auth(tt.token, "/health")(okHandler()).ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	RequestID(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	id := rec.Header().Get("X-Request-ID")
	if len(id) != 36 {
		t.Errorf("expected generated UUID, got %q", id)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	RequestID(okHandler()).ServeHTTP(rec, req)
	if !strings.Contains(rec.Body.String(), "abc-123") {
		t.Errorf("incoming request ID not propagated: %s", rec.Body.String())
	}
}

func TestChain_LogsAndRecovers(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.NewWithWriter(buf)

	panicky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.FromContext(r.Context())
		reqLog.Info().Msg("inside handler")
		panic("boom")
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.Header.Set("X-Request-ID", "req-1")
	Chain(panicky, log, "").ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	out := buf.String()
	if !strings.Contains(out, "inside handler") || !strings.Contains(out, `"request_id":"req-1"`) {
		t.Errorf("handler log missing request ID: %s", out)
	}
	if !strings.Contains(out, "Panic recovered") {
		t.Errorf("panic not logged: %s", out)
	}
}

func TestCORS_Preflight(t *testing.T) {
	rec := httptest.NewRecorder()
	CORS(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/products", nil))

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}
