package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
)

// LineKey is the reserved provenance column carrying the 1-based input line
// number. It survives preprocessing and never participates in matching.
const LineKey = "__line"

// Row is an unordered mapping from column name to cell value.
type Row map[string]Scalar

// Line returns the provenance line number, or 0 when absent.
func (r Row) Line() int64 {
	s, ok := r[LineKey]
	if !ok {
		return 0
	}
	switch s.Kind {
	case KindNumber:
		return int64(s.Num)
	case KindDate:
		return s.Date
	}
	return 0
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Get returns the value for a column, falling back to a case-insensitive
// lookup when no exact key exists.
func (r Row) Get(name string) (Scalar, bool) {
	if v, ok := r[name]; ok {
		return v, true
	}
	for k, v := range r {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return Scalar{}, false
}

// Columns returns the non-reserved column names in sorted order.
func (r Row) Columns() []string {
	cols := make([]string, 0, len(r))
	for k := range r {
		if k == LineKey {
			continue
		}
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// idCandidates are checked in order when deriving a row identity.
var idCandidates = []string{"id", "transaction_id", "reference", "ref_number"}

// Identity derives a stable identity for target-side deduplication: the first
// id-like column present (case-insensitive), else a content hash of the
// sorted-key JSON projection.
func (r Row) Identity() string {
	for _, cand := range idCandidates {
		if v, ok := r.Get(cand); ok && !v.IsMissing() {
			return cand + ":" + scalarKeyString(v)
		}
	}
	return "hash:" + r.ContentHash()
}

// ContentHash hashes the row's sorted-key JSON form. The reserved line column
// is excluded so re-reads of the same data hash identically.
func (r Row) ContentHash() string {
	cols := r.Columns()
	h := sha256.New()
	for _, c := range cols {
		b, err := json.Marshal(r[c])
		if err != nil {
			continue
		}
		h.Write([]byte(c))
		h.Write([]byte{0})
		h.Write(b)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func scalarKeyString(s Scalar) string {
	b, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return string(b)
}
