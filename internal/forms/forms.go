// Package forms validates the data-entry screens.
package forms

import (
	"strings"

	"github.com/dvloznov/card-txn-console/internal/money"
)

const msgRequired = "Please fill in all required fields"

// ValidationError carries the message shown to the user.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ProductForm is the add-product screen.
type ProductForm struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Description string `json:"description"`
	Price       string `json:"price"`
}

// Validate checks that every field is filled in and the price is numeric.
func (f ProductForm) Validate() error {
	for _, c := range []struct{ field, value string }{
		{"product_id", f.ProductID},
		{"product_name", f.ProductName},
		{"description", f.Description},
	} {
		if blank(c.value) {
			return &ValidationError{Field: c.field, Message: msgRequired}
		}
	}
	if _, err := money.ParsePrice(f.Price); err != nil {
		return &ValidationError{Field: "price", Message: msgRequired}
	}
	return nil
}

// CustomerForm is the add-customer screen.
type CustomerForm struct {
	CustomerID   string `json:"customer_id"`
	CustomerName string `json:"customer_name"`
	Status       string `json:"status"`
}

// Validate checks that every field is filled in.
func (f CustomerForm) Validate() error {
	for _, c := range []struct{ field, value string }{
		{"customer_id", f.CustomerID},
		{"customer_name", f.CustomerName},
		{"status", f.Status},
	} {
		if blank(c.value) {
			return &ValidationError{Field: c.field, Message: msgRequired}
		}
	}
	return nil
}

// QueryForm is the transaction query screen.
type QueryForm struct {
	TxnID       string `json:"txn_id"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
}

// Validate reports the first missing field with its own message.
func (f QueryForm) Validate() error {
	switch {
	case blank(f.TxnID):
		return &ValidationError{Field: "txn_id", Message: "Please enter a transaction ID"}
	case blank(f.Summary):
		return &ValidationError{Field: "summary", Message: "Please enter a summary"}
	case blank(f.Description):
		return &ValidationError{Field: "description", Message: "Please enter query details"}
	}
	return nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
