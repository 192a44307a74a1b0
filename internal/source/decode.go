package source

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dvloznov/card-txn-console/internal/domain"
)

// wireRecord is a record as serialized by the OData service. The product
// view exposes the product's currency as product_currency.
type wireRecord struct {
	domain.TransactionRecord
	ProductCurrency string `json:"product_currency"`
}

func (w wireRecord) record() domain.TransactionRecord {
	rec := w.TransactionRecord
	if rec.Currency == "" {
		rec.Currency = w.ProductCurrency
	}
	return rec
}

// decodeCollection understands the OData V2 envelope ({"d":{"results":[...]}}),
// the V1 envelope ({"d":[...]}), the V4 envelope ({"value":[...]}) and a bare
// JSON array.
func decodeCollection(data []byte) ([]domain.TransactionRecord, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("decodeCollection: empty payload")
	}

	var wire []wireRecord
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("decodeCollection: array: %w", err)
		}
	case '{':
		var env struct {
			D     json.RawMessage `json:"d"`
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("decodeCollection: envelope: %w", err)
		}
		switch {
		case len(env.Value) > 0:
			if err := json.Unmarshal(env.Value, &wire); err != nil {
				return nil, fmt.Errorf("decodeCollection: value: %w", err)
			}
		case len(env.D) > 0:
			inner := bytes.TrimSpace(env.D)
			if len(inner) > 0 && inner[0] == '[' {
				if err := json.Unmarshal(inner, &wire); err != nil {
					return nil, fmt.Errorf("decodeCollection: d: %w", err)
				}
				break
			}
			var results struct {
				Results []wireRecord `json:"results"`
			}
			if err := json.Unmarshal(inner, &results); err != nil {
				return nil, fmt.Errorf("decodeCollection: d.results: %w", err)
			}
			wire = results.Results
		default:
			return nil, fmt.Errorf("decodeCollection: no \"d\" or \"value\" member")
		}
	default:
		return nil, fmt.Errorf("decodeCollection: unexpected payload starting with %q", data[0])
	}

	records := make([]domain.TransactionRecord, 0, len(wire))
	for _, w := range wire {
		records = append(records, w.record())
	}
	return records, nil
}
