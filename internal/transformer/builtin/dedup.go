// Package builtin contains the record-cleaning transforms applied to a
// dataset before it is loaded.
//
// Deduplicate removes exact duplicates: rows equal in every column. Each row
// is fingerprinted with xxh3 over a canonical, type-tagged encoding of its
// cells; rows sharing a fingerprint are compared cell by cell, so a hash
// collision never drops a distinct row. The first occurrence wins and the
// survivors keep their input order.
package builtin

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/zeebo/xxh3"

	"salesdw/internal/dataset"
)

// Deduplicate returns ds without exact duplicate rows and the number removed.
func Deduplicate(ds *dataset.Dataset) (*dataset.Dataset, int) {
	if ds.Len() < 2 {
		return ds.WithRows(ds.Rows), 0
	}

	buckets := make(map[uint64][]int, ds.Len())
	out := make([]dataset.Row, 0, ds.Len())
	buf := make([]byte, 0, 256)

	for _, r := range ds.Rows {
		buf = encodeRow(buf[:0], r)
		h := xxh3.Hash(buf)

		dup := false
		for _, idx := range buckets[h] {
			if rowsEqual(out[idx], r) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		buckets[h] = append(buckets[h], len(out))
		out = append(out, r)
	}
	return ds.WithRows(out), ds.Len() - len(out)
}

// Cell type tags for encodeRow.
const (
	tagNull byte = iota
	tagInt
	tagFloat
	tagTime
	tagString
	tagOther
)

func encodeRow(buf []byte, r dataset.Row) []byte {
	for _, v := range r {
		switch t := v.(type) {
		case nil:
			buf = append(buf, tagNull)
		case int64:
			buf = append(buf, tagInt)
			buf = binary.LittleEndian.AppendUint64(buf, uint64(t))
		case int:
			buf = append(buf, tagInt)
			buf = binary.LittleEndian.AppendUint64(buf, uint64(int64(t)))
		case float64:
			buf = append(buf, tagFloat)
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(t))
		case time.Time:
			buf = append(buf, tagTime)
			buf = binary.LittleEndian.AppendUint64(buf, uint64(t.UnixNano()))
		case string:
			buf = append(buf, tagString)
			buf = binary.LittleEndian.AppendUint32(buf, uint32(len(t)))
			buf = append(buf, t...)
		default:
			s := asString(t)
			buf = append(buf, tagOther)
			buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s)))
			buf = append(buf, s...)
		}
	}
	return buf
}

func rowsEqual(a, b dataset.Row) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !cellsEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func cellsEqual(a, b any) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case int64, int, float64, string, bool:
		return a == b
	default:
		if b == nil {
			return false
		}
		return asString(a) == asString(b)
	}
}
