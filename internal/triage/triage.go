package triage

import (
	"context"
	"strings"

	"github.com/dvloznov/card-txn-console/internal/queries"
)

// Priorities assigned to queries.
const (
	PriorityHigh   = "HIGH"
	PriorityMedium = "MEDIUM"
	PriorityLow    = "LOW"
)

// Categories assigned to queries.
const (
	CategoryFraud     = "FRAUD"
	CategoryDuplicate = "DUPLICATE"
	CategoryRefund    = "REFUND"
	CategoryBilling   = "BILLING"
	CategoryDelivery  = "DELIVERY"
	CategoryGeneral   = "GENERAL"
)

// Triage is the outcome of classifying a query.
type Triage struct {
	Priority string `json:"priority"`
	Category string `json:"category"`
}

// Classifier assigns a priority and category to a transaction query.
type Classifier interface {
	Classify(ctx context.Context, q queries.TxnQuery) (Triage, error)
}

type rule struct {
	keywords []string
	result   Triage
}

// Rules are checked in order; the first match wins.
var rules = []rule{
	{[]string{"fraud", "unauthori", "stolen", "not recognise", "not recognize"}, Triage{PriorityHigh, CategoryFraud}},
	{[]string{"duplicate", "charged twice", "double charge"}, Triage{PriorityHigh, CategoryDuplicate}},
	{[]string{"refund", "return", "chargeback"}, Triage{PriorityHigh, CategoryRefund}},
	{[]string{"amount", "price", "overcharge", "wrong", "incorrect", "fee"}, Triage{PriorityMedium, CategoryBilling}},
	{[]string{"delivery", "shipping", "not received", "arrived", "late"}, Triage{PriorityMedium, CategoryDelivery}},
}

// RuleClassifier classifies queries by keywords in the summary and description.
type RuleClassifier struct{}

// Classify implements Classifier. It never fails.
func (RuleClassifier) Classify(_ context.Context, q queries.TxnQuery) (Triage, error) {
	text := strings.ToLower(q.Summary + " " + q.Description)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(text, kw) {
				return r.result, nil
			}
		}
	}
	return Triage{Priority: PriorityLow, Category: CategoryGeneral}, nil
}

// Handler returns a queue handler that classifies each query and records the
// result on it.
func Handler(c Classifier) queries.Handler {
	return func(ctx context.Context, q *queries.TxnQuery) error {
		t, err := c.Classify(ctx, *q)
		if err != nil {
			return err
		}
		q.Priority = t.Priority
		q.Category = t.Category
		return nil
	}
}

func validPriority(p string) bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

func validCategory(c string) bool {
	switch c {
	case CategoryFraud, CategoryDuplicate, CategoryRefund, CategoryBilling, CategoryDelivery, CategoryGeneral:
		return true
	}
	return false
}
