package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dvloznov/card-txn-console/internal/domain"
)

// maxPayloadBytes caps how much of an upstream response is read.
const maxPayloadBytes = 32 << 20

// ODataConfig configures ODataFetcher.
type ODataConfig struct {
	// BaseURL is the service root, e.g. https://host/sap/opu/odata/sap/ZPROD_CARD_TXN_SRV.
	BaseURL  string
	Username string
	Password string
	// Client is the SAP client number sent as sap-client, if set.
	Client  string
	Timeout time.Duration
}

// ODataFetcher reads collections from an OData service over HTTP.
type ODataFetcher struct {
	cfg  ODataConfig
	http *http.Client
}

// NewODataFetcher creates a fetcher for the given service.
func NewODataFetcher(cfg ODataConfig) *ODataFetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ODataFetcher{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

// Fetch implements Fetcher.
func (f *ODataFetcher) Fetch(ctx context.Context, collection string) ([]domain.TransactionRecord, error) {
	if err := validateCollection(collection); err != nil {
		return nil, fmt.Errorf("ODataFetcher.Fetch: %w: %q", err, collection)
	}

	u, err := url.Parse(strings.TrimRight(f.cfg.BaseURL, "/") + "/" + collection)
	if err != nil {
		return nil, fmt.Errorf("ODataFetcher.Fetch: building url: %w", err)
	}
	q := u.Query()
	q.Set("$format", "json")
	if f.cfg.Client != "" {
		q.Set("sap-client", f.cfg.Client)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("ODataFetcher.Fetch: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.cfg.Username != "" {
		req.SetBasicAuth(f.cfg.Username, f.cfg.Password)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ODataFetcher.Fetch: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("ODataFetcher.Fetch: reading body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("ODataFetcher.Fetch: %s returned %d", collection, resp.StatusCode)
	}

	records, err := decodeCollection(body)
	if err != nil {
		return nil, fmt.Errorf("ODataFetcher.Fetch: %w", err)
	}
	return records, nil
}

var _ Fetcher = (*ODataFetcher)(nil)
