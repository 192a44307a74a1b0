// Package export renders the documents produced by the data-entry screens and
// stores them. All user input goes through encoders or html/template, so
// markup in a field always comes out escaped.
package export

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html/template"
	"regexp"
	"strings"
	"time"

	"github.com/dvloznov/card-txn-console/internal/forms"
	"github.com/dvloznov/card-txn-console/internal/money"
)

const (
	sourceAddProduct  = "Card Transaction Console - Add Product Form"
	sourceAddCustomer = "Card Transaction Console - Add Customer Form"
)

// Content types of rendered documents.
const (
	ContentTypeXML  = "application/xml"
	ContentTypeJSON = "application/json"
)

// Document is a rendered file ready to be stored or downloaded.
type Document struct {
	Name        string
	ContentType string
	Data        []byte
}

type header struct {
	Created string `xml:"created" json:"created"`
	Source  string `xml:"source" json:"source"`
}

type productXML struct {
	XMLName xml.Name `xml:"product"`
	Header  header   `xml:"header"`
	Data    struct {
		ProductID   string `xml:"product_id"`
		ProductName string `xml:"product_name"`
		Description string `xml:"description"`
		Price       struct {
			Currency string `xml:"currency,attr"`
			Value    string `xml:",chardata"`
		} `xml:"price"`
	} `xml:"data"`
}

type customerJSON struct {
	Header header `json:"header"`
	Data   struct {
		CustomerID   string `json:"customer_id"`
		CustomerName string `json:"customer_name"`
		Status       string `json:"status"`
	} `json:"data"`
}

// ProductXML renders a validated product form as product_<id>.xml.
func ProductXML(f forms.ProductForm, now time.Time) (Document, error) {
	if err := f.Validate(); err != nil {
		return Document{}, err
	}
	if _, err := money.ParsePrice(f.Price); err != nil {
		return Document{}, fmt.Errorf("ProductXML: %w", err)
	}

	var doc productXML
	doc.Header = header{Created: timestamp(now), Source: sourceAddProduct}
	doc.Data.ProductID = f.ProductID
	doc.Data.ProductName = f.ProductName
	doc.Data.Description = f.Description
	doc.Data.Price.Currency = "USD"
	doc.Data.Price.Value = strings.TrimSpace(f.Price)

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return Document{}, fmt.Errorf("ProductXML: marshal: %w", err)
	}

	return Document{
		Name:        "product_" + safeName(f.ProductID) + ".xml",
		ContentType: ContentTypeXML,
		Data:        append([]byte(xml.Header), body...),
	}, nil
}

// CustomerJSON renders a validated customer form as customer_<id>.json.
func CustomerJSON(f forms.CustomerForm, now time.Time) (Document, error) {
	if err := f.Validate(); err != nil {
		return Document{}, err
	}

	var doc customerJSON
	doc.Header = header{Created: timestamp(now), Source: sourceAddCustomer}
	doc.Data.CustomerID = f.CustomerID
	doc.Data.CustomerName = f.CustomerName
	doc.Data.Status = f.Status

	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return Document{}, fmt.Errorf("CustomerJSON: marshal: %w", err)
	}

	return Document{
		Name:        "customer_" + safeName(f.CustomerID) + ".json",
		ContentType: ContentTypeJSON,
		Data:        body,
	}, nil
}

var queryFragment = template.Must(template.New("query").Parse(
	`<strong>Transaction ID:</strong> {{.TxnID}}<br><strong>Summary:</strong> {{.Summary}}<br><br><strong>Details:</strong> {{.Description}}`,
))

// QueryFragment renders the confirmation shown after a query is submitted.
func QueryFragment(f forms.QueryForm) (template.HTML, error) {
	var buf bytes.Buffer
	if err := queryFragment.Execute(&buf, f); err != nil {
		return "", fmt.Errorf("QueryFragment: %w", err)
	}
	return template.HTML(buf.String()), nil
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// safeName reduces an id to characters that are safe in a file or object name.
func safeName(id string) string {
	s := unsafeNameChars.ReplaceAllString(strings.TrimSpace(id), "_")
	s = strings.Trim(s, ".")
	if s == "" {
		return "unnamed"
	}
	return s
}

func timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
