package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/dvloznov/card-txn-console/internal/domain"
)

const v2Payload = `{"d":{"results":[
	{"__metadata":{"type":"ZV_PROD_CARD_TXN"},"txn_id":"T1","product_id":"P1","product_name":"Widget","card_id":"C1","cardholder_name":"Ann","amount":"10.00","quantity":"2","price":"5.00","product_currency":"USD","status":"COMPLETED","description":"first"},
	{"txn_id":"T2","product_id":"P2","card_id":"C1","amount":null,"quantity":3,"currency":"EUR"}
]}}`

func TestDecodeCollection_Envelopes(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    int
		wantErr bool
	}{
		{"v2", v2Payload, 2, false},
		{"v1", `{"d":[{"txn_id":"T1"}]}`, 1, false},
		{"v4", `{"value":[{"txn_id":"T1"},{"txn_id":"T2"},{"txn_id":"T3"}]}`, 3, false},
		{"bare array", `[{"txn_id":"T1"}]`, 1, false},
		{"empty results", `{"d":{"results":[]}}`, 0, false},
		{"no members", `{"foo":1}`, 0, true},
		{"empty payload", ``, 0, true},
		{"garbage", `<html>`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeCollection([]byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeCollection() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != tt.want {
				t.Errorf("decodeCollection() returned %d records, want %d", len(got), tt.want)
			}
		})
	}
}

func TestDecodeCollection_Fields(t *testing.T) {
	got, err := decodeCollection([]byte(v2Payload))
	if err != nil {
		t.Fatalf("decodeCollection() error = %v", err)
	}

	first := got[0]
	if first.Currency != "USD" {
		t.Errorf("product_currency not mapped: Currency = %q", first.Currency)
	}
	if first.Amount != "10.00" || first.Quantity != "2" || first.Price != "5.00" {
		t.Errorf("numeric fields = %q %q %q", first.Amount, first.Quantity, first.Price)
	}
	if first.Status != "COMPLETED" || first.Description != "first" {
		t.Errorf("unexpected record %+v", first)
	}

	second := got[1]
	if second.Amount.Present() {
		t.Errorf("null amount should be absent, got %q", second.Amount)
	}
	if second.Quantity != "3" || second.Currency != "EUR" {
		t.Errorf("unexpected record %+v", second)
	}
}

func TestDecodeCollection_NonNumericTokens(t *testing.T) {
	payload := `{"d":{"results":[
		{"txn_id":"T1","product_id":"P1","card_id":"C1","amount":"10"},
		{"txn_id":"T2","product_id":"P1","card_id":"C2","amount":true,"quantity":{"v":1}}
	]}}`

	got, err := decodeCollection([]byte(payload))
	if err != nil {
		t.Fatalf("decodeCollection() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("decodeCollection() returned %d records, want 2", len(got))
	}
	for _, v := range []domain.NumericText{got[1].Amount, got[1].Quantity} {
		if !v.Present() {
			t.Errorf("value %q should be present", v)
		}
		if _, ok := v.Float(); ok {
			t.Errorf("value %q should not be numeric", v)
		}
	}
}

func TestODataFetcher_Fetch(t *testing.T) {
	var gotPath, gotFormat, gotClient, gotUser string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotFormat = r.URL.Query().Get("$format")
		gotClient = r.URL.Query().Get("sap-client")
		gotUser, _, _ = r.BasicAuth()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(v2Payload))
	}))
	defer srv.Close()

	f := NewODataFetcher(ODataConfig{
		BaseURL:  srv.URL + "/sap/opu/odata/sap/ZSRV/",
		Username: "demo",
		Password: "secret",
		Client:   "001",
	})

	records, err := f.Fetch(context.Background(), DefaultCollection)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(records) != 2 {
		t.Errorf("got %d records, want 2", len(records))
	}
	if gotPath != "/sap/opu/odata/sap/ZSRV/zv_prod_card_txn" {
		t.Errorf("path = %s", gotPath)
	}
	if gotFormat != "json" || gotClient != "001" || gotUser != "demo" {
		t.Errorf("format=%q client=%q user=%q", gotFormat, gotClient, gotUser)
	}
}

func TestODataFetcher_FetchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewODataFetcher(ODataConfig{BaseURL: srv.URL})

	if _, err := f.Fetch(context.Background(), DefaultCollection); err == nil {
		t.Error("expected error for 500 response")
	}
	if _, err := f.Fetch(context.Background(), "zv_prod_card_txn(txn_id='1')"); !errors.Is(err, ErrInvalidCollection) {
		t.Errorf("expected ErrInvalidCollection, got %v", err)
	}
}

type fakeObjectReader struct {
	bucket, object string
	data           []byte
}

func (f *fakeObjectReader) ReadObject(ctx context.Context, bucket, object string) ([]byte, error) {
	f.bucket, f.object = bucket, object
	return f.data, nil
}

func TestFileFetcher_Local(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "zv_prod_card_txn.json"), []byte(v2Payload), 0o644); err != nil {
		t.Fatal(err)
	}

	records, err := NewFileFetcher(dir, nil).Fetch(context.Background(), DefaultCollection)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(records) != 2 {
		t.Errorf("got %d records, want 2", len(records))
	}

	if _, err := NewFileFetcher(dir, nil).Fetch(context.Background(), "missing"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFileFetcher_GCS(t *testing.T) {
	objects := &fakeObjectReader{data: []byte(`[{"txn_id":"T1"}]`)}

	records, err := NewFileFetcher("gs://demo-bucket/exports", objects).Fetch(context.Background(), DefaultCollection)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(records) != 1 {
		t.Errorf("got %d records, want 1", len(records))
	}
	if objects.bucket != "demo-bucket" || objects.object != "exports/zv_prod_card_txn.json" {
		t.Errorf("read %s/%s", objects.bucket, objects.object)
	}

	if _, err := NewFileFetcher("gs://demo-bucket", nil).Fetch(context.Background(), DefaultCollection); err == nil {
		t.Error("expected error without object reader")
	}
}

func TestFindByKey(t *testing.T) {
	records := []domain.TransactionRecord{
		{TxnID: "T1", ProductID: "P1", CardID: "C1", Description: "a"},
		{TxnID: "T1", ProductID: "P2", CardID: "C1", Description: "b"},
	}

	got, ok := FindByKey(records, domain.TxnKey{TxnID: "T1", ProductID: "P2", CardID: "C1"})
	if !ok || got.Description != "b" {
		t.Errorf("FindByKey() = %+v, %v", got, ok)
	}

	if _, ok := FindByKey(records, domain.TxnKey{TxnID: "T9", ProductID: "P1", CardID: "C1"}); ok {
		t.Error("expected no match")
	}
}

func TestFileFetcher_SampleData(t *testing.T) {
	records, err := NewFileFetcher(filepath.Join("..", "..", "testdata"), nil).Fetch(context.Background(), DefaultCollection)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(records) != 6 {
		t.Fatalf("got %d records, want 6", len(records))
	}
	last := records[len(records)-1]
	if last.Amount.Present() {
		t.Errorf("null amount should decode as absent, got %q", last.Amount)
	}
}
