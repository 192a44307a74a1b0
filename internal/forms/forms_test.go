package forms

import (
	"errors"
	"testing"
)

func TestProductForm_Validate(t *testing.T) {
	valid := ProductForm{ProductID: "P1", ProductName: "Widget", Description: "<b>nice</b>", Price: "9.99"}

	tests := []struct {
		name      string
		mutate    func(*ProductForm)
		wantField string
	}{
		{"valid", func(*ProductForm) {}, ""},
		{"blank id", func(f *ProductForm) { f.ProductID = "  " }, "product_id"},
		{"blank name", func(f *ProductForm) { f.ProductName = "" }, "product_name"},
		{"blank description", func(f *ProductForm) { f.Description = "\t" }, "description"},
		{"missing price", func(f *ProductForm) { f.Price = "" }, "price"},
		{"non-numeric price", func(f *ProductForm) { f.Price = "cheap" }, "price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := valid
			tt.mutate(&f)
			err := f.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field = %s, want %s", verr.Field, tt.wantField)
			}
			if verr.Error() != "Please fill in all required fields" {
				t.Errorf("Message = %q", verr.Error())
			}
		})
	}
}

func TestCustomerForm_Validate(t *testing.T) {
	if err := (CustomerForm{CustomerID: "C1", CustomerName: "Ann", Status: "ACTIVE"}).Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	var verr *ValidationError
	err := CustomerForm{CustomerID: "C1", CustomerName: "Ann"}.Validate()
	if !errors.As(err, &verr) || verr.Field != "status" {
		t.Errorf("Validate() error = %v, want status validation error", err)
	}
}

func TestQueryForm_Validate(t *testing.T) {
	tests := []struct {
		form queryCase
		want string
	}{
		{queryCase{"", "s", "d"}, "Please enter a transaction ID"},
		{queryCase{"T1", " ", "d"}, "Please enter a summary"},
		{queryCase{"T1", "s", ""}, "Please enter query details"},
		{queryCase{"T1", "s", "d"}, ""},
	}

	for _, tt := range tests {
		err := QueryForm{TxnID: tt.form.txn, Summary: tt.form.summary, Description: tt.form.desc}.Validate()
		if tt.want == "" {
			if err != nil {
				t.Errorf("Validate(%+v) error = %v", tt.form, err)
			}
			continue
		}
		if err == nil || err.Error() != tt.want {
			t.Errorf("Validate(%+v) error = %v, want %q", tt.form, err, tt.want)
		}
	}
}

type queryCase struct {
	txn, summary, desc string
}
