package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

type valueKind uint8

const (
	kindNone valueKind = iota
	kindNumber
	kindString
)

// Value is an option payload: either a number or a string.
// Two Values are equal (==) only when both the kind and the payload match,
// so Number(30) never equals String("30").
type Value struct {
	kind valueKind
	num  float64
	str  string
}

func Number(n float64) Value { return Value{kind: kindNumber, num: n} }

func String(s string) Value { return Value{kind: kindString, str: s} }

func (v Value) IsZero() bool { return v.kind == kindNone }

// Float returns the numeric payload. ok is false for string values.
func (v Value) Float() (float64, bool) {
	if v.kind != kindNumber {
		return 0, false
	}
	return v.num, true
}

// Text returns the string payload. ok is false for numeric values.
func (v Value) Text() (string, bool) {
	if v.kind != kindString {
		return "", false
	}
	return v.str, true
}

func (v Value) String() string {
	switch v.kind {
	case kindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case kindString:
		return v.str
	default:
		return ""
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindNumber:
		return []byte(strconv.FormatFloat(v.num, 'f', -1, 64)), nil
	case kindString:
		return json.Marshal(v.str)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON keeps the wire type: JSON numbers become numeric values and
// JSON strings stay strings. No coercion between the two is attempted.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("option value must be a number or a string: %w", err)
	}
	*v = Number(n)
	return nil
}

// ParseValue reads a value typed on a command line. Anything that parses as a
// number is numeric; everything else is a string.
func ParseValue(s string) Value {
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return Number(n)
	}
	return String(s)
}
