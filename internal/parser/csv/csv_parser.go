// Package csv reads a delimited text extract into a dataset. Cells are typed
// on the way in: integers become int64, other finite numbers float64,
// configured null markers nil, and everything else stays text. Temporal
// parsing is left to the prepare stage, which knows the contract.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"salesdw/internal/dataset"
)

// Options configures the CSV parser behavior. All fields are optional; sensible
// defaults are applied when a field is zero.
type Options struct {
	// Comma specifies the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimSpace trims leading/trailing spaces from each field value.
	TrimSpace bool

	// NullValues are cell contents read as null. Defaults to the empty string.
	NullValues []string

	// HeaderMap renames source headers (after BOM stripping) before the
	// dataset is built. Unmapped headers keep their source name.
	HeaderMap map[string]string

	// LogSkippedLimit caps the number of skipped-row log lines. Defaults to 50.
	LogSkippedLimit int
}

// Stats describes one Parse call.
type Stats struct {
	Rows    int
	Skipped int
}

// Parser parses CSV input according to Options. It is safe to reuse across
// inputs, but Parser itself is not concurrency-safe.
type Parser struct {
	opt   Options
	nulls map[string]struct{}
	log   *zap.Logger
}

// NewParser constructs a Parser with the provided Options. A nil log discards.
func NewParser(opt Options, log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	if opt.NullValues == nil {
		opt.NullValues = []string{""}
	}
	if opt.LogSkippedLimit <= 0 {
		opt.LogSkippedLimit = 50
	}
	nulls := make(map[string]struct{}, len(opt.NullValues))
	for _, v := range opt.NullValues {
		nulls[v] = struct{}{}
	}
	return &Parser{opt: opt, nulls: nulls, log: log.Named("csv")}
}

// Parse reads a header row followed by records. Rows whose width differs from
// the header, or that fail to parse, are skipped and counted. An input with
// no header or a duplicated header name is an error.
func (p *Parser) Parse(r io.Reader, kind dataset.Kind) (*dataset.Dataset, Stats, error) {
	var st Stats

	cr := csv.NewReader(r)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	h, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, st, fmt.Errorf("read csv header: empty input")
	}
	if err != nil {
		return nil, st, fmt.Errorf("read csv header: %w", err)
	}
	headers, err := p.headers(h)
	if err != nil {
		return nil, st, err
	}

	ds := dataset.New(kind, headers)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			p.skip(&st, kind, line, err.Error())
			continue
		}
		if len(rec) != len(headers) {
			p.skip(&st, kind, line, fmt.Sprintf("incorrect number of fields (expected %d, got %d)", len(headers), len(rec)))
			continue
		}

		row := make(dataset.Row, len(rec))
		for i, val := range rec {
			row[i] = p.cell(val)
		}
		ds.Rows = append(ds.Rows, row)
	}
	st.Rows = ds.Len()

	if st.Skipped > 0 {
		p.log.Warn("rows skipped", zap.String("dataset", string(kind)), zap.Int("skipped", st.Skipped))
	}
	return ds, st, nil
}

func (p *Parser) skip(st *Stats, kind dataset.Kind, line int, reason string) {
	if st.Skipped < p.opt.LogSkippedLimit {
		p.log.Debug("skipping row", zap.String("dataset", string(kind)), zap.Int("line", line), zap.String("reason", reason))
	}
	st.Skipped++
}

func (p *Parser) headers(h []string) ([]string, error) {
	h = StripHeaderBOM(append([]string(nil), h...))
	seen := make(map[string]int, len(h))
	out := make([]string, len(h))
	for i, col := range h {
		c := strings.TrimSpace(col)
		if m, ok := p.opt.HeaderMap[c]; ok {
			c = m
		}
		if c == "" {
			return nil, fmt.Errorf("csv header: column %d has no name", i+1)
		}
		if j, dup := seen[c]; dup {
			return nil, fmt.Errorf("csv header: duplicate column %q at positions %d and %d", c, j+1, i+1)
		}
		seen[c] = i
		out[i] = c
	}
	return out, nil
}

// cell types a raw field value.
func (p *Parser) cell(val string) any {
	if p.opt.TrimSpace {
		val = strings.TrimSpace(val)
	}
	if _, ok := p.nulls[val]; ok {
		return nil
	}
	if n, err := strconv.ParseInt(val, 10, 64); err == nil {
		return n
	}
	if looksNumeric(val) {
		if f, err := strconv.ParseFloat(val, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
	}
	return val
}

// looksNumeric rejects words ParseFloat would accept, such as "inf" or "NaN".
func looksNumeric(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-', r == '+', r == 'e', r == 'E':
		default:
			return false
		}
	}
	return s != ""
}
