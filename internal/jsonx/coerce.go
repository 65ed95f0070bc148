package jsonx

import (
	"fmt"
	"strconv"
)

// StringList coerces a decoded JSON value into a string slice. Fields that
// are documented as list-typed sometimes arrive as a bare string or another
// scalar; those become single-element slices rather than parse failures.
func StringList(v any) []string {
	switch x := v.(type) {
	case nil:
		return []string{}
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			out = append(out, stringify(e))
		}
		return out
	case string:
		if x == "" {
			return []string{}
		}
		return []string{x}
	default:
		return []string{stringify(x)}
	}
}

// ClampRating coerces a decoded JSON value into an integer in [1,5],
// falling back to def when absent or unparsable.
func ClampRating(v any, def int) int {
	n := def
	switch x := v.(type) {
	case float64:
		n = int(x)
	case int:
		n = x
	case string:
		if p, err := strconv.Atoi(x); err == nil {
			n = p
		}
	}
	if n < 1 {
		n = 1
	}
	if n > 5 {
		n = 5
	}
	return n
}

// String coerces a decoded JSON value into a string, stringifying scalars.
func String(v any) string {
	if v == nil {
		return ""
	}
	return stringify(v)
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
