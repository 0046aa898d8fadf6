// Package dataset holds the in-memory tabular model that flows through the
// pipeline: an ordered header plus positional rows.
//
// Stages never mutate a Dataset they receive. A stage that changes cells
// copies the affected rows; a stage that only narrows the row set shares the
// surviving rows with its input.
package dataset

import (
	"fmt"
	"time"
)

// Type is the semantic type of a column.
type Type string

const (
	Integer  Type = "integer"
	Real     Type = "real"
	Text     Type = "text"
	Temporal Type = "temporal"
)

// Kind identifies which family of records a dataset carries.
type Kind string

const (
	Customer Kind = "customer"
	Product  Kind = "product"
	Sale     Kind = "sale"
)

// Kinds returns the dataset kinds in load order: dimensions before facts.
func Kinds() []Kind { return []Kind{Customer, Product, Sale} }

// ParseKind maps a configuration key onto a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown dataset kind %q", s)
}

// Row is one record aligned with Dataset.Columns. A nil cell is the null marker.
type Row []any

// Dataset is an ordered sequence of rows sharing one header.
type Dataset struct {
	Kind    Kind
	Columns []string
	Rows    []Row
}

// New returns an empty dataset with the given header.
func New(kind Kind, columns []string) *Dataset {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Dataset{Kind: kind, Columns: cols}
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.Rows) }

// Index returns the position of col in the header, or -1.
func (d *Dataset) Index(col string) int {
	for i, c := range d.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// HasColumn reports whether col is part of the header.
func (d *Dataset) HasColumn(col string) bool { return d.Index(col) >= 0 }

// Append adds a row after checking its width against the header.
func (d *Dataset) Append(row Row) error {
	if len(row) != len(d.Columns) {
		return fmt.Errorf("dataset %s: row width %d != header width %d", d.Kind, len(row), len(d.Columns))
	}
	d.Rows = append(d.Rows, row)
	return nil
}

// Value returns the cell of row i in column col.
func (d *Dataset) Value(i int, col string) (any, bool) {
	j := d.Index(col)
	if j < 0 || i < 0 || i >= len(d.Rows) {
		return nil, false
	}
	return d.Rows[i][j], true
}

// WithRows returns a dataset sharing d's kind and header with the given rows.
func (d *Dataset) WithRows(rows []Row) *Dataset {
	return &Dataset{Kind: d.Kind, Columns: d.Columns, Rows: rows}
}

// Clone deep-copies the header and every row slice. Cell values are
// immutable scalars and are shared.
func (d *Dataset) Clone() *Dataset {
	out := New(d.Kind, d.Columns)
	out.Rows = make([]Row, len(d.Rows))
	for i, r := range d.Rows {
		cp := make(Row, len(r))
		copy(cp, r)
		out.Rows[i] = cp
	}
	return out
}

// TypeOf returns the semantic type of a single value. Null reports false.
func TypeOf(v any) (Type, bool) {
	switch v.(type) {
	case nil:
		return "", false
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return Integer, true
	case float32, float64:
		return Real, true
	case time.Time:
		return Temporal, true
	default:
		return Text, true
	}
}

// ColumnType infers the type of a whole column. Nulls are ignored. Integers
// mixed with reals widen to Real; any other mix is Text. An all-null or
// unknown column is Text.
func (d *Dataset) ColumnType(col string) Type {
	j := d.Index(col)
	if j < 0 {
		return Text
	}
	seen := map[Type]bool{}
	for _, r := range d.Rows {
		if t, ok := TypeOf(r[j]); ok {
			seen[t] = true
		}
	}
	switch {
	case len(seen) == 0:
		return Text
	case len(seen) == 1:
		for t := range seen {
			return t
		}
	case len(seen) == 2 && seen[Integer] && seen[Real]:
		return Real
	}
	return Text
}
