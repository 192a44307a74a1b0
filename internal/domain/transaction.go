package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// TransactionRecord is one flat row of the product/card transaction feed.
// Numeric columns are kept as the text the upstream service sent; callers
// convert them with NumericText.Float when they need a number.
type TransactionRecord struct {
	TxnID          string      `json:"txn_id"`
	ProductID      string      `json:"product_id"`
	ProductName    string      `json:"product_name"`
	CardID         string      `json:"card_id"`
	CardholderName string      `json:"cardholder_name"`
	Amount         NumericText `json:"amount"`
	Quantity       NumericText `json:"quantity"`
	Price          NumericText `json:"price"`
	Currency       string      `json:"currency"`
	Status         string      `json:"status"`
	Description    string      `json:"description"`
}

// Key returns the composite key that identifies the record upstream.
func (t TransactionRecord) Key() TxnKey {
	return TxnKey{TxnID: t.TxnID, ProductID: t.ProductID, CardID: t.CardID}
}

// TxnKey is the composite key (txn_id, product_id, card_id) of a transaction.
type TxnKey struct {
	TxnID     string `json:"txn_id"`
	ProductID string `json:"product_id"`
	CardID    string `json:"card_id"`
}

// Valid reports whether every part of the key is set.
func (k TxnKey) Valid() bool {
	return strings.TrimSpace(k.TxnID) != "" &&
		strings.TrimSpace(k.ProductID) != "" &&
		strings.TrimSpace(k.CardID) != ""
}

func (k TxnKey) String() string {
	return fmt.Sprintf("txn_id='%s',product_id='%s',card_id='%s'", k.TxnID, k.ProductID, k.CardID)
}

// NumericText holds a numeric field exactly as received. OData V2 serializes
// decimals as strings, other sources send numbers; both decode into the same
// text form. An empty value means the field was absent or null.
type NumericText string

// UnmarshalJSON accepts a JSON string, a JSON number or null. Any other
// token is kept as its raw text so it reads as present but non-numeric.
func (n *NumericText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("NumericText: %w", err)
		}
		*n = NumericText(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		*n = NumericText(data)
		return nil
	}
	*n = NumericText(num.String())
	return nil
}

// Present reports whether the field carried any non-blank text.
func (n NumericText) Present() bool {
	return strings.TrimSpace(string(n)) != ""
}

// Float parses the text as a finite float64. ok is false when the field is
// absent or does not hold a finite number.
func (n NumericText) Float() (v float64, ok bool) {
	s := strings.TrimSpace(string(n))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
