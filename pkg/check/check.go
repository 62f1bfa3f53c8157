// Package check implements the predicate library applied to selected values.
//
// A [Spec] describes one predicate as a tagged variant: a type plus only the
// parameters that type requires. The jsonb family mirrors the semantics of
// the PostgreSQL jsonb operators of the same names.
package check

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/jyasuu/jcheck/pkg/query"
)

var (
	// ErrInvalidSpec indicates a check spec that is structurally malformed.
	ErrInvalidSpec = errors.New("invalid check")

	// ErrInvalidPattern indicates an unparseable regex pattern.
	ErrInvalidPattern = errors.New("invalid pattern")
)

// Kind identifies a check type.
type Kind string

const (
	// KindEmpty is satisfied by null, "", [], and {}.
	KindEmpty Kind = "empty"
	// KindNonEmpty is the negation of [KindEmpty].
	KindNonEmpty Kind = "non_empty"
	// KindEquals compares structurally, ignoring object key order.
	KindEquals Kind = "equals"
	// KindNotEquals is the negation of [KindEquals].
	KindNotEquals Kind = "not_equals"
	// KindContains tests membership, dispatching on the value's shape:
	// array element, string substring, or object key / key-value pair.
	KindContains Kind = "contains"
	// KindContainedBy is [KindContains] with the operands reversed.
	KindContainedBy Kind = "contained_by"
	// KindJSONBContains tests recursive containment, like jsonb @>.
	KindJSONBContains Kind = "jsonb_contains"
	// KindJSONBContainedBy tests recursive containment, like jsonb <@.
	KindJSONBContainedBy Kind = "jsonb_contained_by"
	// KindJSONBExists tests for a direct object key, like jsonb ?.
	KindJSONBExists Kind = "jsonb_exists"
	// KindJSONBExistsAny tests for any of a set of keys, like jsonb ?|.
	KindJSONBExistsAny Kind = "jsonb_exists_any"
	// KindJSONBExistsAll tests for all of a set of keys, like jsonb ?&.
	KindJSONBExistsAll Kind = "jsonb_exists_all"
	// KindJSONBPathMatch runs a secondary path query against the value and
	// is satisfied when it selects at least one result, like jsonb @@.
	KindJSONBPathMatch Kind = "jsonb_path_match"
	// KindRegex matches a pattern anywhere in a string value.
	KindRegex Kind = "regex"
	// KindGreaterThan compares numbers strictly.
	KindGreaterThan Kind = "greater_than"
	// KindLessThan compares numbers strictly.
	KindLessThan Kind = "less_than"
	// KindArrayLength bounds an array's length inclusively.
	KindArrayLength Kind = "array_length"
)

// AllKinds returns every check kind, in wire order.
func AllKinds() []Kind {
	return []Kind{
		KindEmpty,
		KindNonEmpty,
		KindEquals,
		KindNotEquals,
		KindContains,
		KindContainedBy,
		KindJSONBContains,
		KindJSONBContainedBy,
		KindJSONBExists,
		KindJSONBExistsAny,
		KindJSONBExistsAll,
		KindJSONBPathMatch,
		KindRegex,
		KindGreaterThan,
		KindLessThan,
		KindArrayLength,
	}
}

// kindParams maps each kind to the parameters it requires.
var kindParams = map[Kind][]string{
	KindEmpty:            nil,
	KindNonEmpty:         nil,
	KindEquals:           {"value"},
	KindNotEquals:        {"value"},
	KindContains:         {"value"},
	KindContainedBy:      {"value"},
	KindJSONBContains:    {"value"},
	KindJSONBContainedBy: {"value"},
	KindJSONBExists:      {"key"},
	KindJSONBExistsAny:   {"keys"},
	KindJSONBExistsAll:   {"keys"},
	KindJSONBPathMatch:   {"path"},
	KindRegex:            {"pattern"},
	KindGreaterThan:      {"value"},
	KindLessThan:         {"value"},
	KindArrayLength:      nil,
}

// Spec describes one check as a tagged variant. Type selects the predicate;
// the remaining fields carry its parameters.
type Spec struct {
	Type    Kind     `json:"type"              yaml:"type"              jsonschema:"title=Check Type"`
	Value   any      `json:"value,omitempty"   yaml:"value,omitempty"   jsonschema:"title=Operand Value"`
	Key     string   `json:"key,omitempty"     yaml:"key,omitempty"     jsonschema:"title=Object Key"`
	Keys    []string `json:"keys,omitempty"    yaml:"keys,omitempty"    jsonschema:"title=Object Keys,minItems=1"`
	Path    string   `json:"path,omitempty"    yaml:"path,omitempty"    jsonschema:"title=Path Query"`
	Pattern string   `json:"pattern,omitempty" yaml:"pattern,omitempty" jsonschema:"title=Regex Pattern"`
	Min     *int     `json:"min,omitempty"     yaml:"min,omitempty"     jsonschema:"title=Minimum Length,minimum=0"`
	Max     *int     `json:"max,omitempty"     yaml:"max,omitempty"     jsonschema:"title=Maximum Length,minimum=0"`

	re       *regexp.Regexp
	pathExpr query.Expr
	num      float64
}

// Compile validates the spec's parameters and prepares any compiled state.
// It must be called once before [Spec.Evaluate].
//
// Pattern errors wrap [ErrInvalidPattern] or [query.ErrParse]; structural
// errors wrap [ErrInvalidSpec].
func (s *Spec) Compile(res query.Resolver) error {
	switch s.Type {
	case KindEmpty, KindNonEmpty, KindEquals, KindNotEquals,
		KindContains, KindContainedBy, KindJSONBContains, KindJSONBContainedBy,
		KindJSONBExists:
		// No compiled state.

	case KindJSONBExistsAny, KindJSONBExistsAll:
		if len(s.Keys) == 0 {
			return fmt.Errorf("%w: %s requires at least one key", ErrInvalidSpec, s.Type)
		}

	case KindGreaterThan, KindLessThan:
		n, ok := asNumber(s.Value)
		if !ok {
			return fmt.Errorf("%w: %s value must be a number, got %s", ErrInvalidSpec, s.Type, shapeOf(s.Value))
		}

		s.num = n

	case KindRegex:
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			return fmt.Errorf("%w %q: %w", ErrInvalidPattern, s.Pattern, err)
		}

		s.re = re

	case KindJSONBPathMatch:
		x, err := res.Parse(s.Path)
		if err != nil {
			return err
		}

		s.pathExpr = x

	case KindArrayLength:
		if s.Min == nil && s.Max == nil {
			return fmt.Errorf("%w: array_length requires at least one of min or max", ErrInvalidSpec)
		}
		if s.Min != nil && s.Max != nil && *s.Min > *s.Max {
			return fmt.Errorf("%w: array_length min %d greater than max %d", ErrInvalidSpec, *s.Min, *s.Max)
		}

	default:
		return fmt.Errorf("%w: unknown check type %q", ErrInvalidSpec, s.Type)
	}

	return nil
}

// Evaluate reports whether v satisfies the check.
//
// A [*TypeMismatchError] is returned when v's shape is incompatible with the
// check; callers treat it as a failing match, not a fatal error. [Spec.Compile]
// must have succeeded before Evaluate is called.
func (s *Spec) Evaluate(v any) (bool, error) {
	switch s.Type {
	case KindEmpty:
		return isEmpty(v), nil

	case KindNonEmpty:
		return !isEmpty(v), nil

	case KindEquals:
		return deepEqual(v, s.Value, 0), nil

	case KindNotEquals:
		return !deepEqual(v, s.Value, 0), nil

	case KindContains:
		return contains(s.Type, v, s.Value)

	case KindContainedBy:
		return contains(s.Type, s.Value, v)

	case KindJSONBContains:
		return jsonbContains(v, s.Value, 0), nil

	case KindJSONBContainedBy:
		return jsonbContains(s.Value, v, 0), nil

	case KindJSONBExists:
		obj, ok := v.(map[string]any)
		if !ok {
			return false, &TypeMismatchError{Check: s.Type, Expected: "object", Got: shapeOf(v)}
		}

		_, ok = obj[s.Key]

		return ok, nil

	case KindJSONBExistsAny:
		obj, ok := v.(map[string]any)
		if !ok {
			return false, &TypeMismatchError{Check: s.Type, Expected: "object", Got: shapeOf(v)}
		}

		for _, k := range s.Keys {
			if _, ok := obj[k]; ok {
				return true, nil
			}
		}

		return false, nil

	case KindJSONBExistsAll:
		obj, ok := v.(map[string]any)
		if !ok {
			return false, &TypeMismatchError{Check: s.Type, Expected: "object", Got: shapeOf(v)}
		}

		for _, k := range s.Keys {
			if _, ok := obj[k]; !ok {
				return false, nil
			}
		}

		return true, nil

	case KindJSONBPathMatch:
		return s.pathExpr.Exists(v), nil

	case KindRegex:
		str, ok := v.(string)
		if !ok {
			return false, &TypeMismatchError{Check: s.Type, Expected: "string", Got: shapeOf(v)}
		}

		return s.re.MatchString(str), nil

	case KindGreaterThan:
		n, ok := asNumber(v)
		if !ok {
			return false, &TypeMismatchError{Check: s.Type, Expected: "number", Got: shapeOf(v)}
		}

		return n > s.num, nil

	case KindLessThan:
		n, ok := asNumber(v)
		if !ok {
			return false, &TypeMismatchError{Check: s.Type, Expected: "number", Got: shapeOf(v)}
		}

		return n < s.num, nil

	case KindArrayLength:
		arr, ok := v.([]any)
		if !ok {
			return false, &TypeMismatchError{Check: s.Type, Expected: "array", Got: shapeOf(v)}
		}

		n := len(arr)
		if s.Min != nil && n < *s.Min {
			return false, nil
		}
		if s.Max != nil && n > *s.Max {
			return false, nil
		}

		return true, nil
	}

	return false, fmt.Errorf("%w: unknown check type %q", ErrInvalidSpec, s.Type)
}

// Describe returns a short human-readable form of the check, used in
// failure reasons.
func (s *Spec) Describe() string {
	switch s.Type {
	case KindEquals, KindNotEquals, KindContains, KindContainedBy,
		KindJSONBContains, KindJSONBContainedBy, KindGreaterThan, KindLessThan:
		return fmt.Sprintf("%s %s", s.Type, FormatValue(s.Value))

	case KindJSONBExists:
		return fmt.Sprintf("%s %q", s.Type, s.Key)

	case KindJSONBExistsAny, KindJSONBExistsAll:
		return fmt.Sprintf("%s %s", s.Type, FormatValue(s.Keys))

	case KindJSONBPathMatch:
		return fmt.Sprintf("%s %s", s.Type, s.Path)

	case KindRegex:
		return fmt.Sprintf("%s %q", s.Type, s.Pattern)

	case KindArrayLength:
		var parts []string
		if s.Min != nil {
			parts = append(parts, fmt.Sprintf("min=%d", *s.Min))
		}
		if s.Max != nil {
			parts = append(parts, fmt.Sprintf("max=%d", *s.Max))
		}

		return strings.Join(append([]string{string(s.Type)}, parts...), " ")
	}

	return string(s.Type)
}

// JSONSchemaExtend constrains the generated schema so that each check type
// requires exactly its own parameters.
func (Spec) JSONSchemaExtend(base *jsonschema.Schema) {
	if prop, ok := base.Properties.Get("type"); ok {
		kinds := AllKinds()

		enum := make([]any, 0, len(kinds))
		for _, k := range kinds {
			enum = append(enum, string(k))
		}

		prop.Enum = enum
	}

	branches := make([]*jsonschema.Schema, 0, len(AllKinds()))
	for _, k := range AllKinds() {
		props := jsonschema.NewProperties()
		props.Set("type", &jsonschema.Schema{Const: string(k)})

		branch := &jsonschema.Schema{
			Properties: props,
			Required:   append([]string{"type"}, kindParams[k]...),
		}

		switch k {
		case KindGreaterThan, KindLessThan:
			props.Set("value", &jsonschema.Schema{Type: "number"})
		case KindArrayLength:
			branch.AnyOf = []*jsonschema.Schema{
				{Required: []string{"min"}},
				{Required: []string{"max"}},
			}
		}

		branches = append(branches, branch)
	}

	base.OneOf = branches
}

// TypeMismatchError records a value whose shape is incompatible with the
// check applied to it. It marks a failing match rather than a fatal error.
type TypeMismatchError struct {
	Check    Kind
	Expected string
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s expects %s, got %s", e.Check, e.Expected, e.Got)
}
