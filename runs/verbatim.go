package runs

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

type valueKind uint8

const (
	kindNull   valueKind = iota // null or absent
	kindString                  // JSON string
	kindLiteral                 // any other JSON value, kept as its source text
)

// Verbatim is a record field kept exactly as stored. Records are written by
// other clients, so a field may hold a string, a number, or something else
// entirely; decoding never fails and the original JSON kind is written back.
type Verbatim struct {
	text string
	kind valueKind
}

// Text returns a string-valued field.
func Text(s string) Verbatim {
	return Verbatim{text: s, kind: kindString}
}

// Number returns a numeric field. Non-finite values have no JSON number
// form and are stored as strings.
func Number(f float64) Verbatim {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Text(FormatNumber(f))
	}
	return Verbatim{text: FormatNumber(f), kind: kindLiteral}
}

// String is the display form: string contents, or the literal JSON text of
// any other value. Null displays as "".
func (v Verbatim) String() string { return v.text }

// IsNull reports whether the field was null or absent.
func (v Verbatim) IsNull() bool { return v.kind == kindNull }

// IsNumber reports whether the field was stored as a JSON number.
func (v Verbatim) IsNumber() bool {
	return v.kind == kindLiteral && isJSONNumber(v.text)
}

// Float reads the field as a finite number. Numeric strings count, so
// "10.00" written by a client that formats before storing still adds up.
func (v Verbatim) Float() (float64, bool) {
	if v.kind == kindLiteral && !isJSONNumber(v.text) {
		return 0, false
	}
	t := strings.TrimSpace(v.text)
	// ParseFloat also takes hex and digit separators; stored numbers never
	// use them.
	if strings.ContainsAny(t, "xX_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// UnmarshalJSON accepts any JSON value.
func (v *Verbatim) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*v = Verbatim{}
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return err
		}
		*v = Verbatim{text: buf.String(), kind: kindLiteral}
	}
	return nil
}

// MarshalJSON writes the value back in the kind it was decoded as.
func (v Verbatim) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindNull:
		return []byte("null"), nil
	case kindLiteral:
		if json.Valid([]byte(v.text)) {
			return []byte(v.text), nil
		}
	}
	return json.Marshal(v.text)
}

// isJSONNumber reports whether s is a JSON number literal.
func isJSONNumber(s string) bool {
	if s == "" || (s[0] != '-' && (s[0] < '0' || s[0] > '9')) {
		return false
	}
	var n json.Number
	return json.Unmarshal([]byte(s), &n) == nil
}
