package builtin

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"salesdw/internal/dataset"
	"salesdw/internal/etlerr"
	"salesdw/internal/schema"
)

// CoercionPolicy decides what a coercion failure does to the run.
type CoercionPolicy string

const (
	// PolicyWarn nulls failed cells, logs the count and continues.
	PolicyWarn CoercionPolicy = "warn"
	// PolicyAbort fails the dataset when any cell could not be converted.
	PolicyAbort CoercionPolicy = "abort"
)

// ParsePolicy maps a configuration value onto a policy. Empty means warn.
func ParsePolicy(s string) (CoercionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(PolicyWarn):
		return PolicyWarn, nil
	case string(PolicyAbort):
		return PolicyAbort, nil
	default:
		return "", fmt.Errorf("unknown coercion policy %q (want warn|abort)", s)
	}
}

// DefaultDateLayouts are tried in order when parsing temporal columns.
var DefaultDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006",
	"1/2/2006",
}

// CoercionResult records a single column conversion. FailedRows holds the
// indexes of rows whose non-null cell could not be converted; those cells
// are null in the output.
type CoercionResult struct {
	Column     string
	Target     dataset.Type
	Converted  int
	Failures   int
	FailedRows []int
}

// Coerce converts col to target (Integer or Real). Cells already of the
// target type are kept, nulls stay null and failures become null. An absent
// column is returned unchanged with a zero result.
func Coerce(ds *dataset.Dataset, col string, target dataset.Type) (*dataset.Dataset, CoercionResult, error) {
	res := CoercionResult{Column: col, Target: target}
	var conv func(any) (any, bool)
	switch target {
	case dataset.Integer:
		conv = toInteger
	case dataset.Real:
		conv = toReal
	default:
		return nil, res, fmt.Errorf("coerce %s: unsupported target type %s", col, target)
	}
	return mapColumn(ds, col, conv, &res), res, nil
}

// ParseTemporal converts the text cells of col into time.Time using the
// first matching layout. Cells that are already temporal are kept.
func ParseTemporal(ds *dataset.Dataset, col string, layouts []string) (*dataset.Dataset, CoercionResult) {
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}
	res := CoercionResult{Column: col, Target: dataset.Temporal}
	conv := func(v any) (any, bool) {
		switch t := v.(type) {
		case time.Time:
			return t, true
		case string:
			s := strings.TrimSpace(t)
			for _, l := range layouts {
				if ts, err := time.Parse(l, s); err == nil {
					return ts, true
				}
			}
		}
		return nil, false
	}
	return mapColumn(ds, col, conv, &res), res
}

func mapColumn(ds *dataset.Dataset, col string, conv func(any) (any, bool), res *CoercionResult) *dataset.Dataset {
	j := ds.Index(col)
	if j < 0 {
		return ds
	}
	out := ds.Clone()
	for i, r := range out.Rows {
		if r[j] == nil {
			continue
		}
		v, ok := conv(r[j])
		if !ok {
			r[j] = nil
			res.Failures++
			res.FailedRows = append(res.FailedRows, i)
			continue
		}
		r[j] = v
		res.Converted++
	}
	return out
}

func toReal(v any) (any, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(cleanNumber(t), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
		return f, true
	default:
		return nil, false
	}
}

func toInteger(v any) (any, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) {
			return nil, false
		}
		return int64(t), true
	case string:
		n, err := strconv.ParseInt(cleanNumber(t), 10, 64)
		if err != nil {
			return nil, false
		}
		return n, true
	default:
		return nil, false
	}
}

// cleanNumber strips surrounding space, a leading currency sign and
// thousands separators.
func cleanNumber(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	return strings.ReplaceAll(s, ",", "")
}

// Coercer runs the prepare stage for a dataset under one policy.
type Coercer struct {
	Policy  CoercionPolicy
	Layouts []string
	log     *zap.Logger
}

// NewCoercer returns a Coercer. A nil log discards.
func NewCoercer(policy CoercionPolicy, layouts []string, log *zap.Logger) *Coercer {
	if log == nil {
		log = zap.NewNop()
	}
	if policy == "" {
		policy = PolicyWarn
	}
	return &Coercer{Policy: policy, Layouts: layouts, log: log.Named("coerce")}
}

// Prepare parses the temporal fields of c and coerces its Coerce fields,
// returning the converted dataset and one result per touched column.
// Under PolicyAbort any failure returns a CoercionWarning error.
func (cc *Coercer) Prepare(ds *dataset.Dataset, c schema.Contract) (*dataset.Dataset, []CoercionResult, error) {
	var results []CoercionResult
	out := ds
	for _, f := range c.Fields {
		if !out.HasColumn(f.Name) {
			continue
		}
		var res CoercionResult
		switch {
		case f.Type == dataset.Temporal:
			out, res = ParseTemporal(out, f.Name, cc.Layouts)
		case f.Coerce:
			var err error
			out, res, err = Coerce(out, f.Name, f.Type)
			if err != nil {
				return nil, nil, err
			}
		default:
			continue
		}
		results = append(results, res)
		if res.Failures > 0 {
			cc.log.Warn("coercion failures",
				zap.String("dataset", string(ds.Kind)),
				zap.String("column", f.Name),
				zap.String("expected", string(f.Type)),
				zap.Int("failures", res.Failures),
				zap.String("policy", string(cc.Policy)),
			)
		}
	}

	if cc.Policy == PolicyAbort {
		var details []string
		for _, r := range results {
			if r.Failures > 0 {
				details = append(details, fmt.Sprintf("%s: %d value(s) not convertible to %s", r.Column, r.Failures, r.Target))
			}
		}
		if len(details) > 0 {
			return nil, results, etlerr.New(etlerr.CoercionWarning, string(ds.Kind), "prepare", nil, details...)
		}
	}
	return out, results, nil
}

// TotalFailures sums Failures over results.
func TotalFailures(results []CoercionResult) int {
	n := 0
	for _, r := range results {
		n += r.Failures
	}
	return n
}
