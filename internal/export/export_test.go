package export

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/card-txn-console/internal/forms"
)

var fixedNow = time.Date(2024, 10, 25, 9, 30, 0, 0, time.UTC)

func TestProductXML(t *testing.T) {
	form := forms.ProductForm{
		ProductID:   "P-1",
		ProductName: "Widget</product_name><admin>true</admin>",
		Description: "<script>alert(1)</script>",
		Price:       "9.99",
	}

	doc, err := ProductXML(form, fixedNow)
	if err != nil {
		t.Fatalf("ProductXML() error = %v", err)
	}

	if doc.Name != "product_P-1.xml" || doc.ContentType != ContentTypeXML {
		t.Errorf("Name = %s, ContentType = %s", doc.Name, doc.ContentType)
	}
	body := string(doc.Data)
	if !strings.HasPrefix(body, `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Errorf("missing XML declaration: %s", body)
	}
	if strings.Contains(body, "<script>") || strings.Contains(body, "<admin>") {
		t.Errorf("markup was not escaped: %s", body)
	}

	var parsed struct {
		Created     string `xml:"header>created"`
		ProductName string `xml:"data>product_name"`
		Description string `xml:"data>description"`
		Price       struct {
			Currency string `xml:"currency,attr"`
			Value    string `xml:",chardata"`
		} `xml:"data>price"`
	}
	if err := xml.Unmarshal(doc.Data, &parsed); err != nil {
		t.Fatalf("output is not well-formed XML: %v", err)
	}
	if parsed.ProductName != form.ProductName || parsed.Description != form.Description {
		t.Errorf("round trip changed fields: %+v", parsed)
	}
	if parsed.Price.Currency != "USD" || parsed.Price.Value != "9.99" {
		t.Errorf("price = %+v", parsed.Price)
	}
	if parsed.Created != "2024-10-25T09:30:00.000Z" {
		t.Errorf("created = %s", parsed.Created)
	}
}

func TestProductXML_KeepsEnteredPrice(t *testing.T) {
	tests := []struct {
		price string
		want  string
	}{
		{"19.90", "19.90"},
		{"0010", "0010"},
		{"1e3", "1e3"},
		{" 5.00 ", "5.00"},
	}

	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			doc, err := ProductXML(forms.ProductForm{
				ProductID:   "P1",
				ProductName: "Widget",
				Description: "Blue",
				Price:       tt.price,
			}, fixedNow)
			if err != nil {
				t.Fatalf("ProductXML() error = %v", err)
			}
			want := `<price currency="USD">` + tt.want + `</price>`
			if !strings.Contains(string(doc.Data), want) {
				t.Errorf("document = %s, want %s", doc.Data, want)
			}
		})
	}
}

func TestProductXML_RejectsInvalidForm(t *testing.T) {
	_, err := ProductXML(forms.ProductForm{ProductID: "P1"}, fixedNow)
	var verr *forms.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("ProductXML() error = %v, want validation error", err)
	}
}

func TestCustomerJSON(t *testing.T) {
	form := forms.CustomerForm{
		CustomerID:   "C/../1",
		CustomerName: `Ann", "admin": true, "x": "`,
		Status:       "ACTIVE",
	}

	doc, err := CustomerJSON(form, fixedNow)
	if err != nil {
		t.Fatalf("CustomerJSON() error = %v", err)
	}
	if doc.Name != "customer_C_.._1.json" {
		t.Errorf("Name = %s", doc.Name)
	}

	var parsed map[string]map[string]interface{}
	if err := json.Unmarshal(doc.Data, &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if _, injected := parsed["data"]["admin"]; injected {
		t.Error("injected key appeared in output")
	}
	if parsed["data"]["customer_name"] != form.CustomerName {
		t.Errorf("customer_name = %v", parsed["data"]["customer_name"])
	}
	if parsed["header"]["source"] != sourceAddCustomer {
		t.Errorf("source = %v", parsed["header"]["source"])
	}
}

func TestQueryFragment_EscapesInput(t *testing.T) {
	frag, err := QueryFragment(forms.QueryForm{
		TxnID:       "TXN-1",
		Summary:     "Refund",
		Description: `<img src=x onerror="alert(1)">`,
	})
	if err != nil {
		t.Fatalf("QueryFragment() error = %v", err)
	}

	s := string(frag)
	if strings.Contains(s, "<img") {
		t.Errorf("fragment contains raw markup: %s", s)
	}
	if !strings.Contains(s, "&lt;img") {
		t.Errorf("fragment missing escaped markup: %s", s)
	}
	if !strings.Contains(s, "<strong>Transaction ID:</strong> TXN-1") {
		t.Errorf("fragment missing txn id: %s", s)
	}
}

func TestSafeName(t *testing.T) {
	tests := map[string]string{
		"P-100":         "P-100",
		"../etc/passwd": "_etc_passwd",
		"  ":            "unnamed",
		"a b?c":         "a_b_c",
	}
	for in, want := range tests {
		if got := safeName(in); got != want {
			t.Errorf("safeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLocalSink_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	sink := NewLocalSink(dir)

	loc, err := sink.Save(context.Background(), Document{Name: "../escape.json", Data: []byte("{}")})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if loc != filepath.Join(dir, "escape.json") {
		t.Errorf("location = %s", loc)
	}
	data, err := os.ReadFile(loc)
	if err != nil || string(data) != "{}" {
		t.Errorf("file content = %q, err = %v", data, err)
	}
}
