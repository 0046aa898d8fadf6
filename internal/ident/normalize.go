// Package ident rewrites column names into identifier-safe snake case.
//
// A name is folded to ASCII where possible, then a separator is inserted
// before an uppercase letter that follows a lowercase letter or digit
// ("saleAmount") and before the last capital of an acronym that is followed
// by a lowercase letter ("HTTPServer" -> "HTTP_Server"). The result is
// lowercased and every character outside [a-z0-9_] is dropped. Existing
// underscores are kept as they are.
//
// The output contains no uppercase letters, so Normalize(Normalize(s)) ==
// Normalize(s).
package ident

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"salesdw/internal/dataset"
)

// Separator is inserted at case boundaries.
const Separator = '_'

// Normalize returns the canonical identifier form of name.
func Normalize(name string) string {
	rs := []rune(fold(name))
	var b strings.Builder
	b.Grow(len(rs) + 4)
	for i, r := range rs {
		if i > 0 && boundary(rs, i) {
			b.WriteRune(Separator)
		}
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == Separator {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// boundary reports whether a separator belongs before rs[i].
func boundary(rs []rune, i int) bool {
	r, prev := rs[i], rs[i-1]
	if !unicode.IsUpper(r) {
		return false
	}
	if unicode.IsLower(prev) || unicode.IsDigit(prev) {
		return true
	}
	return unicode.IsUpper(prev) && i+1 < len(rs) && unicode.IsLower(rs[i+1])
}

// NormalizeColumns returns ds with every column name normalized. Rows are
// shared with the input.
func NormalizeColumns(ds *dataset.Dataset) *dataset.Dataset {
	cols := make([]string, len(ds.Columns))
	for i, c := range ds.Columns {
		cols[i] = Normalize(c)
	}
	return &dataset.Dataset{Kind: ds.Kind, Columns: cols, Rows: ds.Rows}
}

// fold strips combining marks so "Región" keeps its letters as "Region".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
