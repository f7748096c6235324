package models

import (
	"fmt"
	"strconv"
	"strings"
)

// ValueKind identifies the storage class of a sampled value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindInteger
	KindFloat
	KindText
	KindBool
)

// Value is a tagged variant over the storage classes SQLite can hand back.
// Heterogeneous columns are common in loosely-standardized schemas, so every
// sampled cell carries its own kind rather than a declared one.
type Value struct {
	Kind  ValueKind
	Int   int64
	Float float64
	Text  string
	Bool  bool
}

// NullValue returns the null variant.
func NullValue() Value { return Value{Kind: KindNull} }

// IntValue returns an integer variant.
func IntValue(v int64) Value { return Value{Kind: KindInteger, Int: v} }

// FloatValue returns a float variant.
func FloatValue(v float64) Value { return Value{Kind: KindFloat, Float: v} }

// TextValue returns a text variant.
func TextValue(v string) Value { return Value{Kind: KindText, Text: v} }

// BoolValue returns a boolean variant.
func BoolValue(v bool) Value { return Value{Kind: KindBool, Bool: v} }

// IsNull reports whether the value is the null variant.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// AsFloat converts the value to a float64 where a numeric reading exists.
// Text is accepted when it parses as a float literal.
func (v Value) AsFloat() (float64, bool) {
	switch v.Kind {
	case KindInteger:
		return float64(v.Int), true
	case KindFloat:
		return v.Float, true
	case KindBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	case KindText:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Text), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// IsIntegral reports whether the value is a whole number.
func (v Value) IsIntegral() bool {
	switch v.Kind {
	case KindInteger, KindBool:
		return true
	case KindFloat:
		return v.Float == float64(int64(v.Float))
	case KindText:
		_, err := strconv.ParseInt(strings.TrimSpace(v.Text), 10, 64)
		return err == nil
	default:
		return false
	}
}

// String renders the value the way it would appear in query output.
// Null renders as the empty string.
func (v Value) String() string {
	switch v.Kind {
	case KindInteger:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindText:
		return v.Text
	case KindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return ""
	}
}

// GoString helps test failure output.
func (v Value) GoString() string {
	if v.IsNull() {
		return "models.NullValue()"
	}
	return fmt.Sprintf("models.Value(%s)", v.String())
}
