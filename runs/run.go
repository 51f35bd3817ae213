package runs

import (
	"bytes"
	"cmp"
	"encoding/json"
	"slices"
	"strconv"
)

// Run is one recorded exercise session as stored in the realtime database.
// Records are owned by the backend; this package only reads them. Only
// UserID has to be well-typed: every other field is shown as stored.
type Run struct {
	Key          string          `json:"-"` // snapshot key the record lives under
	Raw          json.RawMessage `json:"-"` // the record as stored, unknown fields included
	UserID       string          `json:"userID"`
	Date         Verbatim        `json:"date"`
	Distance     Verbatim        `json:"distance"`
	Duration     Verbatim        `json:"duration"`
	AverageSpeed Verbatim        `json:"averageSpeed"`
}

// DecodeSnapshot turns a snapshot value (an object of key -> record) into
// runs in database key order. Null, absent, or non-object values decode to
// an empty slice. Entries that are not objects, or whose userID is not a
// string, are skipped.
func DecodeSnapshot(raw json.RawMessage) []Run {
	var children map[string]json.RawMessage
	if err := json.Unmarshal(raw, &children); err != nil || len(children) == 0 {
		return []Run{}
	}

	keys := make([]string, 0, len(children))
	for k := range children {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, CompareKeys)

	out := make([]Run, 0, len(keys))
	for _, k := range keys {
		child := bytes.TrimSpace(children[k])
		if len(child) == 0 || child[0] != '{' {
			continue
		}
		var r Run
		if err := json.Unmarshal(child, &r); err != nil {
			continue
		}
		r.Key = k
		r.Raw = json.RawMessage(child)
		out = append(out, r)
	}
	return out
}

// CompareKeys orders child keys the way the realtime database does:
// keys that are canonical 32-bit integers first, numerically, then the rest
// lexicographically.
func CompareKeys(a, b string) int {
	ai, aInt := intKey(a)
	bi, bInt := intKey(b)
	switch {
	case aInt && bInt:
		return cmp.Compare(ai, bi)
	case aInt:
		return -1
	case bInt:
		return 1
	default:
		return cmp.Compare(a, b)
	}
}

// intKey parses k as an integer key. "007" and "+7" are strings.
func intKey(k string) (int64, bool) {
	n, err := strconv.ParseInt(k, 10, 32)
	if err != nil || strconv.FormatInt(n, 10) != k {
		return 0, false
	}
	return n, true
}

// ForUser keeps the runs whose UserID exactly matches uid. The result is
// never nil. An empty uid matches nothing.
func ForUser(all []Run, uid string) []Run {
	out := make([]Run, 0, len(all))
	if uid == "" {
		return out
	}
	for _, r := range all {
		if r.UserID == uid {
			out = append(out, r)
		}
	}
	return out
}

// Summary aggregates a run list for the footer line.
type Summary struct {
	Count         int
	TotalDistance float64
}

// Summarize totals a run list. Distances that are not numbers count toward
// Count but not TotalDistance.
func Summarize(list []Run) Summary {
	s := Summary{Count: len(list)}
	for _, r := range list {
		if km, ok := r.Distance.Float(); ok {
			s.TotalDistance += km
		}
	}
	return s
}
