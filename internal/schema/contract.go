// Package schema declares the column contracts of the raw datasets and
// checks datasets against them.
package schema

import (
	"fmt"

	"salesdw/internal/dataset"
)

// Field is one expected column.
type Field struct {
	Name string
	Type dataset.Type
	// Coerce marks a column whose raw cells may not parse as Type on their
	// own (e.g. a price with stray text). The prepare stage converts it
	// before verification.
	Coerce bool
}

// Contract is the ordered column expectation for one dataset kind.
type Contract struct {
	Kind   dataset.Kind
	Fields []Field
}

// Len returns the number of declared columns.
func (c Contract) Len() int { return len(c.Fields) }

// Names returns the declared column names in order.
func (c Contract) Names() []string {
	out := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		out[i] = f.Name
	}
	return out
}

// Field looks up a declared column.
func (c Contract) Field(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Customers is the contract of the raw customer extract.
func Customers() Contract {
	return Contract{Kind: dataset.Customer, Fields: []Field{
		{Name: "CustomerID", Type: dataset.Integer},
		{Name: "Name", Type: dataset.Text},
		{Name: "Region", Type: dataset.Text},
		{Name: "JoinDate", Type: dataset.Temporal},
		{Name: "Age", Type: dataset.Integer},
	}}
}

// Products is the contract of the raw product extract.
func Products() Contract {
	return Contract{Kind: dataset.Product, Fields: []Field{
		{Name: "ProductID", Type: dataset.Integer},
		{Name: "ProductName", Type: dataset.Text},
		{Name: "Category", Type: dataset.Text},
		{Name: "UnitPrice", Type: dataset.Real, Coerce: true},
		{Name: "WholesalePrice", Type: dataset.Real, Coerce: true},
		{Name: "Supplier", Type: dataset.Text},
	}}
}

// Sales is the contract of the raw sale extract.
func Sales() Contract {
	return Contract{Kind: dataset.Sale, Fields: []Field{
		{Name: "SaleID", Type: dataset.Integer},
		{Name: "CustomerID", Type: dataset.Integer},
		{Name: "ProductID", Type: dataset.Integer},
		{Name: "SaleAmount", Type: dataset.Real, Coerce: true},
		{Name: "SaleDate", Type: dataset.Temporal},
	}}
}

// Builtin returns the contract for kind. Each call returns a fresh copy.
func Builtin(kind dataset.Kind) (Contract, error) {
	switch kind {
	case dataset.Customer:
		return Customers(), nil
	case dataset.Product:
		return Products(), nil
	case dataset.Sale:
		return Sales(), nil
	default:
		return Contract{}, fmt.Errorf("schema: no contract for dataset kind %q", kind)
	}
}
