package check

import (
	"encoding/json"
	"fmt"
	"strings"
)

// maxCompareDepth bounds recursion over nested trees. Structures deeper than
// this compare as unequal / not contained.
const maxCompareDepth = 1000

// maxFormatLen bounds the rendered length of a value in diagnostics.
const maxFormatLen = 64

// deepEqual compares two value trees structurally. Object comparison ignores
// key order; numbers compare by numeric value regardless of literal form.
func deepEqual(a, b any, depth int) bool {
	if depth > maxCompareDepth {
		return false
	}

	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}

		for k, v := range av {
			w, ok := bv[k]
			if !ok || !deepEqual(v, w, depth+1) {
				return false
			}
		}

		return true

	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}

		for i := range av {
			if !deepEqual(av[i], bv[i], depth+1) {
				return false
			}
		}

		return true

	case nil:
		return b == nil

	case bool:
		bv, ok := b.(bool)

		return ok && av == bv

	case string:
		bv, ok := b.(string)

		return ok && av == bv

	default:
		an, aok := asNumber(a)
		bn, bok := asNumber(b)

		return aok && bok && an == bn
	}
}

// jsonbContains reports whether left contains right, following the jsonb @>
// containment rules: objects contain recursively per key, arrays contain each
// right element somewhere in left, scalars compare equal. Mismatched shapes
// are simply not contained.
func jsonbContains(left, right any, depth int) bool {
	if depth > maxCompareDepth {
		return false
	}

	switch r := right.(type) {
	case map[string]any:
		l, ok := left.(map[string]any)
		if !ok {
			return false
		}

		for k, rv := range r {
			lv, ok := l[k]
			if !ok || !jsonbContains(lv, rv, depth+1) {
				return false
			}
		}

		return true

	case []any:
		l, ok := left.([]any)
		if !ok {
			return false
		}

		for _, rv := range r {
			found := false
			for _, lv := range l {
				if jsonbContains(lv, rv, depth+1) {
					found = true

					break
				}
			}
			if !found {
				return false
			}
		}

		return true

	default:
		return deepEqual(left, right, depth)
	}
}

// contains dispatches membership on the container's shape: array element,
// string substring, or object key / single key-value pair. The kind is used
// to attribute shape errors to the value or the operand, whichever side the
// rule author controls.
func contains(kind Kind, container, needle any) (bool, error) {
	switch c := container.(type) {
	case []any:
		for _, el := range c {
			if deepEqual(el, needle, 0) {
				return true, nil
			}
		}

		return false, nil

	case string:
		sub, ok := needle.(string)
		if !ok {
			expected := "string"
			if kind == KindContains {
				expected = "string operand"
			}

			return false, &TypeMismatchError{Check: kind, Expected: expected, Got: shapeOf(needle)}
		}

		return strings.Contains(c, sub), nil

	case map[string]any:
		if key, ok := needle.(string); ok {
			_, ok := c[key]

			return ok, nil
		}

		if pair, ok := needle.(map[string]any); ok && len(pair) == 1 {
			for k, want := range pair {
				got, ok := c[k]
				if !ok {
					return false, nil
				}

				return deepEqual(got, want, 0), nil
			}
		}

		expected := "string key or single-entry object"
		if kind == KindContains {
			expected += " operand"
		}

		return false, &TypeMismatchError{Check: kind, Expected: expected, Got: entriesShape(needle)}

	default:
		expected := "array, string, or object"
		if kind == KindContainedBy {
			expected += " operand"
		}

		return false, &TypeMismatchError{Check: kind, Expected: expected, Got: shapeOf(container)}
	}
}

// isEmpty reports whether v is null, an empty string, an empty array, or an
// empty object. Numbers and booleans are never empty.
func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

// asNumber extracts a float64 from any numeric representation the decoders
// produce. JSON decoding yields float64; YAML decoding may yield int64 or
// uint64 before normalization.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// shapeOf names the JSON shape of v for diagnostics.
func shapeOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		if _, ok := asNumber(v); ok {
			return "number"
		}

		return fmt.Sprintf("%T", v)
	}
}

// entriesShape is shapeOf with entry counts for objects, to distinguish a
// single-entry object from larger ones in diagnostics.
func entriesShape(v any) string {
	if obj, ok := v.(map[string]any); ok {
		return fmt.Sprintf("object with %d entries", len(obj))
	}

	return shapeOf(v)
}

// FormatValue renders v as compact JSON for diagnostics, truncated when long.
func FormatValue(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}

	s := string(b)
	if len(s) > maxFormatLen {
		r := []rune(s)
		if len(r) > maxFormatLen-3 {
			r = r[:maxFormatLen-3]
		}

		s = string(r) + "..."
	}

	return s
}
