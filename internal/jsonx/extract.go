// Package jsonx salvages JSON values out of free-form model output.
//
// Model responses are expected to contain one JSON object or array, but in
// practice arrive wrapped in prose, fenced code blocks, or with literal
// control characters inside string values. Extraction runs an ordered list
// of strategies, each returning a result or failing over to the next:
//
//  1. direct parse of the whole text
//  2. parse of the first fenced code block's interior
//  3. parse of the first-to-last bracket span of the expected shape
//  4. escape-repair of control characters inside string literals, then retry
package jsonx

import (
	"encoding/json"
	"errors"
	"strings"
)

// Shape selects the expected top-level JSON value kind.
type Shape int

const (
	Object Shape = iota
	Array
)

var ErrNoValue = errors.New("jsonx: no parsable JSON value found")

// ExtractObject extracts a single JSON object from raw text.
func ExtractObject(raw string) (json.RawMessage, error) { return Extract(raw, Object) }

// ExtractArray extracts a single JSON array from raw text.
func ExtractArray(raw string) (json.RawMessage, error) { return Extract(raw, Array) }

// Extract runs the strategy cascade for the expected shape. It never
// panics; on total failure it returns ErrNoValue and the caller substitutes
// its stage fallback.
func Extract(raw string, shape Shape) (json.RawMessage, error) {
	for _, strategy := range []func(string, Shape) (json.RawMessage, bool){
		direct,
		fenced,
		bracketSpan,
		repaired,
	} {
		if out, ok := strategy(raw, shape); ok {
			return out, nil
		}
	}
	return nil, ErrNoValue
}

func direct(raw string, shape Shape) (json.RawMessage, bool) {
	trimmed := strings.TrimSpace(raw)
	if !validFor(trimmed, shape) {
		return nil, false
	}
	return json.RawMessage(trimmed), true
}

// fenced locates the first ``` block and parses its interior. A language
// tag after the opening fence ("```json") is skipped.
func fenced(raw string, shape Shape) (json.RawMessage, bool) {
	start := strings.Index(raw, "```")
	if start < 0 {
		return nil, false
	}
	rest := raw[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return nil, false
	}
	inner := strings.TrimSpace(rest[:end])
	if validFor(inner, shape) {
		return json.RawMessage(inner), true
	}
	// The fenced text may itself carry control-character defects.
	if fixed := escapeControlChars(inner); validFor(fixed, shape) {
		return json.RawMessage(fixed), true
	}
	return nil, false
}

// bracketSpan takes the substring from the first opening bracket of the
// expected shape to its last closing bracket.
func bracketSpan(raw string, shape Shape) (json.RawMessage, bool) {
	open, closing := "{", "}"
	if shape == Array {
		open, closing = "[", "]"
	}
	start := strings.Index(raw, open)
	end := strings.LastIndex(raw, closing)
	if start < 0 || end <= start {
		return nil, false
	}
	span := raw[start : end+1]
	if validFor(span, shape) {
		return json.RawMessage(span), true
	}
	return nil, false
}

// repaired applies the control-character escape pass to the bracket span
// and retries.
func repaired(raw string, shape Shape) (json.RawMessage, bool) {
	open, closing := "{", "}"
	if shape == Array {
		open, closing = "[", "]"
	}
	start := strings.Index(raw, open)
	end := strings.LastIndex(raw, closing)
	if start < 0 || end <= start {
		return nil, false
	}
	fixed := escapeControlChars(raw[start : end+1])
	if validFor(fixed, shape) {
		return json.RawMessage(fixed), true
	}
	return nil, false
}

func validFor(s string, shape Shape) bool {
	if s == "" {
		return false
	}
	switch shape {
	case Object:
		if s[0] != '{' {
			return false
		}
		var m map[string]any
		return json.Unmarshal([]byte(s), &m) == nil
	case Array:
		if s[0] != '[' {
			return false
		}
		var a []any
		return json.Unmarshal([]byte(s), &a) == nil
	}
	return false
}

// escapeControlChars escapes unescaped newlines, carriage returns and tabs
// that appear inside string literals, tracked via a quote/escape state scan.
// Characters outside string literals pass through untouched.
func escapeControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			if escaped {
				escaped = false
				b.WriteByte(c)
				continue
			}
			switch c {
			case '\\':
				escaped = true
				b.WriteByte(c)
			case '"':
				inString = false
				b.WriteByte(c)
			case '\n':
				b.WriteString(`\n`)
			case '\r':
				b.WriteString(`\r`)
			case '\t':
				b.WriteString(`\t`)
			default:
				b.WriteByte(c)
			}
			continue
		}
		if c == '"' {
			inString = true
		}
		b.WriteByte(c)
	}
	return b.String()
}
