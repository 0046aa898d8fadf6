package builtin

import (
	"fmt"
	"strconv"
	"time"

	"salesdw/internal/dataset"
)

// RowView exposes one row by column name.
type RowView struct {
	ds  *dataset.Dataset
	row dataset.Row
}

// Get returns the cell in col, or nil when col is absent.
func (v RowView) Get(col string) any {
	if j := v.ds.Index(col); j >= 0 {
		return v.row[j]
	}
	return nil
}

// Int returns col as an integer when the cell holds one.
func (v RowView) Int(col string) (int64, bool) {
	switch t := v.Get(col).(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	default:
		return 0, false
	}
}

// Float returns col as a float when the cell holds any number.
func (v RowView) Float(col string) (float64, bool) {
	switch t := v.Get(col).(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	default:
		return 0, false
	}
}

// Predicate reports whether a row is domain-valid.
type Predicate func(RowView) bool

// FilterDomainInvalid returns the rows of ds that satisfy keep, in input
// order, and the number dropped. Rows are never corrected. A nil predicate
// keeps every row.
func FilterDomainInvalid(ds *dataset.Dataset, keep Predicate) (*dataset.Dataset, int) {
	if keep == nil {
		return ds.WithRows(ds.Rows), 0
	}
	out := make([]dataset.Row, 0, ds.Len())
	for _, r := range ds.Rows {
		if keep(RowView{ds: ds, row: r}) {
			out = append(out, r)
		}
	}
	return ds.WithRows(out), ds.Len() - len(out)
}

// IntBetween keeps rows whose col is an integer in [min, max]. Nulls fail.
func IntBetween(col string, min, max int64) Predicate {
	return func(v RowView) bool {
		n, ok := v.Int(col)
		return ok && n >= min && n <= max
	}
}

// NonNegative keeps rows whose col is null or a number >= 0.
func NonNegative(col string) Predicate {
	return func(v RowView) bool {
		if v.Get(col) == nil {
			return true
		}
		f, ok := v.Float(col)
		return ok && f >= 0
	}
}

// Present keeps rows where every listed column is non-null.
func Present(cols ...string) Predicate {
	return func(v RowView) bool {
		for _, c := range cols {
			if v.Get(c) == nil {
				return false
			}
		}
		return true
	}
}

// All keeps rows accepted by every predicate.
func All(preds ...Predicate) Predicate {
	return func(v RowView) bool {
		for _, p := range preds {
			if p != nil && !p(v) {
				return false
			}
		}
		return true
	}
}

// Rules parameterizes the per-kind predicates.
type Rules struct {
	// AgeMin and AgeMax bound customer ages, both inclusive.
	AgeMin int64
	AgeMax int64
}

// DefaultRules returns the documented customer age bounds.
func DefaultRules() Rules { return Rules{AgeMin: 18, AgeMax: 100} }

// ForKind returns the validity predicate of a dataset kind. Column names are
// the raw contract names.
func ForKind(kind dataset.Kind, r Rules) (Predicate, error) {
	switch kind {
	case dataset.Customer:
		return All(Present("CustomerID"), IntBetween("Age", r.AgeMin, r.AgeMax)), nil
	case dataset.Product:
		return All(Present("ProductID"), NonNegative("UnitPrice"), NonNegative("WholesalePrice")), nil
	case dataset.Sale:
		return All(Present("SaleID", "CustomerID", "ProductID", "SaleAmount"), NonNegative("SaleAmount")), nil
	default:
		return nil, fmt.Errorf("builtin: no predicate for dataset kind %q", kind)
	}
}

// asString renders uncommon cell types without fmt on the common paths.
func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(t)
	}
}
