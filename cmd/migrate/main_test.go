package main

import (
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/dvloznov/card-txn-console/internal/domain"
)

func TestMigrationFilenamePattern(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  string
		name     string
	}{
		{"0001_create_card_txn.sql", true, "0001", "create_card_txn"},
		{"001_invalid.sql", false, "", ""},
		{"0001_test", false, "", ""},
		{"0001.sql", false, "", ""},
		{"invalid_0001_test.sql", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			m := migrationPattern.FindStringSubmatch(tt.filename)
			if (m != nil) != tt.valid {
				t.Fatalf("match = %v, want %v", m != nil, tt.valid)
			}
			if tt.valid && (m[1] != tt.version || m[2] != tt.name) {
				t.Errorf("got version %s name %s", m[1], m[2])
			}
		})
	}
}

func TestReadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_view.sql":  {Data: []byte("CREATE VIEW `{{PROJECT_ID}}.{{DATASET_ID}}.v`")},
		"0001_table.sql": {Data: []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.{{COLLECTION}}`")},
		"README.md":      {Data: []byte("ignored")},
	}

	got, err := readMigrations(fsys, map[string]string{"PROJECT_ID": "p", "DATASET_ID": "d", "COLLECTION": "zv_prod_card_txn"})
	if err != nil {
		t.Fatalf("readMigrations() error = %v", err)
	}
	if len(got) != 2 || got[0].Version != 1 || got[1].Version != 2 {
		t.Fatalf("migrations = %+v", got)
	}
	if got[0].SQL != "CREATE TABLE `p.d.zv_prod_card_txn`" {
		t.Errorf("SQL = %s", got[0].SQL)
	}

	again, _ := readMigrations(fsys, map[string]string{"PROJECT_ID": "other", "DATASET_ID": "x"})
	if again[0].Checksum != got[0].Checksum {
		t.Error("checksum should not depend on placeholder values")
	}

	todo := pending(got, map[int]bool{1: true})
	if len(todo) != 1 || todo[0].Name != "view" {
		t.Errorf("pending = %+v", todo)
	}
}

func TestReadMigrations_DuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"0001_a.sql": {Data: []byte("SELECT 1")},
		"0001_b.sql": {Data: []byte("SELECT 2")},
	}
	if _, err := readMigrations(fsys, nil); err == nil {
		t.Error("expected duplicate version error")
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	dir, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		t.Fatal(err)
	}
	got, err := readMigrations(dir, map[string]string{"PROJECT_ID": "p", "DATASET_ID": "d", "COLLECTION": "zv_prod_card_txn"})
	if err != nil {
		t.Fatalf("readMigrations() error = %v", err)
	}
	if len(got) == 0 || !strings.Contains(got[0].SQL, "`p.d.zv_prod_card_txn`") {
		t.Errorf("embedded migrations = %+v", got)
	}
	for _, m := range got {
		if strings.Contains(m.SQL, "{{") {
			t.Errorf("%s has unreplaced placeholders", m.Filename)
		}
	}
}

func TestSeedRow_Save(t *testing.T) {
	row, insertID, err := seedRow(domain.TransactionRecord{
		TxnID: "T1", ProductID: "P1", CardID: "C1", Amount: "12.5", Quantity: "n/a",
	}).Save()
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if row["amount"] != "12.5" {
		t.Errorf("amount = %v", row["amount"])
	}
	if _, ok := row["quantity"]; ok {
		t.Error("non-numeric quantity should be left out")
	}
	if insertID != "txn_id='T1',product_id='P1',card_id='C1'" {
		t.Errorf("insertID = %s", insertID)
	}
}
