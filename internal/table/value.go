package table

import (
	"math"
	"strconv"
	"strings"
)

// Kind identifies what a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindString
)

// Value is a single cell: missing, a number or a string.
type Value struct {
	kind Kind
	num  float64
	str  string
}

// Null is the missing value.
var Null = Value{}

// Number returns a numeric cell. NaN is stored as Null.
func Number(f float64) Value {
	if math.IsNaN(f) {
		return Null
	}
	return Value{kind: KindNumber, num: f}
}

// String returns a text cell.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// naTokens are the cell texts read as missing.
var naTokens = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "n/a": {}, "NaN": {}, "nan": {}, "-NaN": {}, "-nan": {},
	"null": {}, "NULL": {}, "None": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "<NA>": {},
	"1.#IND": {}, "1.#QNAN": {}, "-1.#IND": {}, "-1.#QNAN": {},
}

// Parse converts raw cell text into a Value.
func Parse(raw string) Value {
	s := strings.TrimSpace(raw)
	if _, ok := naTokens[s]; ok {
		return Null
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Number(f)
	}
	return String(raw)
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Float returns the numeric payload. ok is false for non-numbers.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// Text returns the string form of the value: "" for Null, the shortest
// round-trip form for numbers.
func (v Value) Text() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindString:
		return v.str
	default:
		return ""
	}
}

// Equal reports whether two values are the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindString:
		return v.str == o.str
	default:
		return true
	}
}

// Compare orders values: Null first, then numbers ascending, then strings.
func Compare(a, b Value) int {
	if a.kind != b.kind {
		if a.kind < b.kind {
			return -1
		}
		return 1
	}
	switch a.kind {
	case KindNumber:
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		}
	case KindString:
		return strings.Compare(a.str, b.str)
	}
	return 0
}

func (v Value) String() string {
	if v.kind == KindNull {
		return "NaN"
	}
	return v.Text()
}
