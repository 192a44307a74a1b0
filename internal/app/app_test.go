package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/card-txn-console/internal/config"
	"github.com/dvloznov/card-txn-console/internal/forms"
	"github.com/dvloznov/card-txn-console/internal/queries"
)

const sampleCollection = `{"d":{"results":[
 {"txn_id":"T1","product_id":"P1","product_name":"Laptop","card_id":"C1","cardholder_name":"Ann Lee","amount":"10.50","quantity":"1","price":"10.50","currency":"USD","status":"COMPLETED"},
 {"txn_id":"T2","product_id":"P1","product_name":"Laptop","card_id":"C2","cardholder_name":"Bob Stone","amount":"21","quantity":"2","price":"10.50","currency":"USD","status":"PENDING"}
]}}`

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dataDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dataDir, "zv_prod_card_txn.json"), []byte(sampleCollection), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Source.Kind = config.SourceFile
	cfg.Source.Location = dataDir
	cfg.Export.Dir = filepath.Join(t.TempDir(), "exports")
	cfg.Triage.Backoff = time.Millisecond
	return cfg
}

func TestNew_FileSourceLocalExport(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	a, err := New(ctx, cfg, zerolog.Nop(), Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	view, err := a.Service.Products(ctx, "")
	if err != nil {
		t.Fatalf("Products() error = %v", err)
	}
	if len(view.Products) != 1 || view.Products[0].Quantity != 3 {
		t.Errorf("products = %+v", view.Products)
	}

	saved, err := a.Service.SaveCustomer(ctx, forms.CustomerForm{CustomerID: "C3", CustomerName: "Cy", Status: "ACTIVE"})
	if err != nil {
		t.Fatalf("SaveCustomer() error = %v", err)
	}
	if _, err := os.Stat(saved.Location); err != nil {
		t.Errorf("exported file missing: %v", err)
	}

	if err := a.StartTriage(ctx, zerolog.Nop()); err == nil {
		t.Error("expected error starting triage when it is disabled")
	}
}

func TestNew_TriagesSubmittedQueries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := New(ctx, testConfig(t), zerolog.Nop(), Options{WithTriage: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if err := a.StartTriage(ctx, zerolog.Nop()); err != nil {
		t.Fatalf("StartTriage() error = %v", err)
	}

	sub, err := a.Service.SubmitQuery(ctx, forms.QueryForm{TxnID: "T1", Summary: "Charged twice", Description: "Duplicate charge"})
	if err != nil {
		t.Fatalf("SubmitQuery() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		q, err := a.Store.Get(ctx, sub.Query.QueryID)
		if err == nil && q.Triage == queries.TriageDone {
			if q.Priority != "HIGH" || q.Category != "DUPLICATE" {
				t.Errorf("triage = %s/%s", q.Priority, q.Category)
			}
			if q.MaxRetries != 3 {
				t.Errorf("MaxRetries = %d, want configured 3", q.MaxRetries)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("query was never triaged")
}

func TestNew_ZeroMaxRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig(t)
	cfg.Triage.MaxRetries = 0
	a, err := New(ctx, cfg, zerolog.Nop(), Options{WithTriage: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if err := a.StartTriage(ctx, zerolog.Nop()); err != nil {
		t.Fatalf("StartTriage() error = %v", err)
	}

	sub, err := a.Service.SubmitQuery(ctx, forms.QueryForm{TxnID: "T1", Summary: "Question", Description: "About my bill"})
	if err != nil {
		t.Fatalf("SubmitQuery() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		q, err := a.Store.Get(ctx, sub.Query.QueryID)
		if err == nil && q.Triage == queries.TriageDone {
			if q.MaxRetries != 0 {
				t.Errorf("MaxRetries = %d, want 0", q.MaxRetries)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("query was never triaged")
}

func TestNew_UnknownSource(t *testing.T) {
	cfg := testConfig(t)
	cfg.Source.Kind = "ftp"
	if _, err := New(context.Background(), cfg, zerolog.Nop(), Options{}); err == nil {
		t.Error("expected error for unknown source")
	}
}
