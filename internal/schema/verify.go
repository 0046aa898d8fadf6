package schema

import (
	"fmt"

	"go.uber.org/zap"

	"salesdw/internal/dataset"
)

// ViolationKind classifies a contract finding.
type ViolationKind string

const (
	ColumnCount      ViolationKind = "column_count"
	MissingColumn    ViolationKind = "missing_column"
	UnexpectedColumn ViolationKind = "unexpected_column"
	TypeMismatch     ViolationKind = "type_mismatch"
)

// Violation is one mismatch between a dataset and its contract.
type Violation struct {
	Kind     ViolationKind
	Column   string
	Expected string
	Actual   string
}

func (v Violation) String() string {
	switch v.Kind {
	case ColumnCount:
		return fmt.Sprintf("incorrect number of columns: expected %s, found %s", v.Expected, v.Actual)
	case MissingColumn:
		return fmt.Sprintf("missing column %q", v.Column)
	case UnexpectedColumn:
		return fmt.Sprintf("unexpected column %q", v.Column)
	case TypeMismatch:
		return fmt.Sprintf("incorrect type for column %q: expected %s, found %s", v.Column, v.Expected, v.Actual)
	default:
		return string(v.Kind)
	}
}

// Checker verifies datasets against contracts and logs every violation.
type Checker struct {
	log *zap.Logger
}

// NewChecker returns a Checker logging through log. A nil log discards.
func NewChecker(log *zap.Logger) *Checker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Checker{log: log.Named("contract")}
}

// Verify reports whether ds has exactly the contract's columns and every
// column's inferred type equals the declared one. It never coerces. All
// violations are collected and logged before it returns.
func (ck *Checker) Verify(ds *dataset.Dataset, c Contract) (bool, []Violation) {
	violations := Check(ds, c)
	log := ck.log.With(zap.String("dataset", string(ds.Kind)))
	for _, v := range violations {
		log.Error("contract violation",
			zap.String("violation", string(v.Kind)),
			zap.String("column", v.Column),
			zap.String("expected", v.Expected),
			zap.String("actual", v.Actual),
		)
	}
	if len(violations) > 0 {
		return false, violations
	}
	log.Info("columns and types verified", zap.Int("columns", c.Len()), zap.Int("rows", ds.Len()))
	return true, nil
}

// Check returns every violation of c by ds without logging.
func Check(ds *dataset.Dataset, c Contract) []Violation {
	out := CheckColumns(ds, c)
	for _, f := range c.Fields {
		if !ds.HasColumn(f.Name) {
			continue
		}
		if actual := ds.ColumnType(f.Name); actual != f.Type {
			out = append(out, Violation{
				Kind:     TypeMismatch,
				Column:   f.Name,
				Expected: string(f.Type),
				Actual:   string(actual),
			})
		}
	}
	return out
}

// CheckColumns returns the count, missing and unexpected column violations
// of c by ds. Cell values are not looked at.
func CheckColumns(ds *dataset.Dataset, c Contract) []Violation {
	var out []Violation

	if len(ds.Columns) != c.Len() {
		out = append(out, Violation{
			Kind:     ColumnCount,
			Expected: fmt.Sprint(c.Len()),
			Actual:   fmt.Sprint(len(ds.Columns)),
		})
	}
	for _, f := range c.Fields {
		if !ds.HasColumn(f.Name) {
			out = append(out, Violation{Kind: MissingColumn, Column: f.Name, Expected: string(f.Type)})
		}
	}
	for _, col := range ds.Columns {
		if _, ok := c.Field(col); !ok {
			out = append(out, Violation{Kind: UnexpectedColumn, Column: col, Actual: string(ds.ColumnType(col))})
		}
	}
	return out
}

// MissingColumns extracts the names reported as missing.
func MissingColumns(vs []Violation) []string {
	var out []string
	for _, v := range vs {
		if v.Kind == MissingColumn {
			out = append(out, v.Column)
		}
	}
	return out
}

// Strings renders violations for error details.
func Strings(vs []Violation) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.String()
	}
	return out
}
