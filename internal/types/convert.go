package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind classifies a raw JSON value.
type Kind int

const (
	KindInvalid Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "invalid"
	}
}

// KindOf returns the kind of a raw JSON value by looking at its first
// significant byte. The value is assumed to be syntactically valid.
func KindOf(raw json.RawMessage) Kind {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 {
		return KindInvalid
	}
	switch c := trimmed[0]; {
	case c == '{':
		return KindObject
	case c == '[':
		return KindArray
	case c == '"':
		return KindString
	case c == 't' || c == 'f':
		return KindBool
	case c == 'n':
		return KindNull
	case c == '-' || (c >= '0' && c <= '9'):
		return KindNumber
	default:
		return KindInvalid
	}
}

// IsScalar reports whether the kind is a non-null scalar.
func (k Kind) IsScalar() bool {
	return k == KindBool || k == KindNumber || k == KindString
}

// ToCell converts a scalar JSON value to its cell text.
// Strings are unquoted, numbers keep their literal text, booleans become
// "true"/"false" and null becomes the empty string. Objects and arrays are
// returned as compact JSON.
func ToCell(raw json.RawMessage) (string, error) {
	switch KindOf(raw) {
	case KindNull:
		return "", nil
	case KindString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("failed to decode string: %w", err)
		}
		return s, nil
	case KindNumber, KindBool:
		return strings.TrimSpace(string(raw)), nil
	case KindObject, KindArray:
		return CompactJSON(raw)
	default:
		return "", fmt.Errorf("invalid JSON value %q", truncate(string(raw), 32))
	}
}

// CompactJSON returns raw with insignificant whitespace removed.
// Object key order is left untouched.
func CompactJSON(raw json.RawMessage) (string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", fmt.Errorf("failed to compact JSON: %w", err)
	}
	return buf.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
