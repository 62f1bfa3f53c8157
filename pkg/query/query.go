// Package query resolves path expressions against decoded JSON value trees.
package query

import (
	"errors"
	"fmt"

	"github.com/ohler55/ojg/jp"
)

// ErrParse indicates a malformed path expression.
var ErrParse = errors.New("invalid path query")

// Match pairs a selected value with the normalized path it was found at.
type Match struct {
	// Value is the selected value.
	Value any
	// Locator is the normalized path to Value, e.g. `$.users[1].name`.
	Locator string
}

// Expr is a compiled path expression.
type Expr interface {
	// Select returns every value the expression matches in doc, in document
	// order, paired with its locator. An empty slice means no matches.
	Select(doc any) []Match

	// Exists reports whether the expression matches at least one value in doc.
	Exists(doc any) bool

	fmt.Stringer
}

// Resolver parses path expressions into compiled [Expr]s.
type Resolver interface {
	Parse(path string) (Expr, error)
}

// JSONPath is a [Resolver] for JSONPath expressions.
type JSONPath struct{}

// NewJSONPath creates a new [JSONPath] resolver.
func NewJSONPath() *JSONPath {
	return &JSONPath{}
}

// Parse compiles a JSONPath expression.
//
// Returns an error wrapping [ErrParse] if the expression is malformed.
func (*JSONPath) Parse(path string) (Expr, error) {
	x, err := jp.ParseString(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	return &jsonPathExpr{x: x, src: path}, nil
}

// MustParse compiles a JSONPath expression, panicking on error.
func MustParse(path string) Expr {
	x, err := NewJSONPath().Parse(path)
	if err != nil {
		panic(err)
	}

	return x
}

type jsonPathExpr struct {
	x   jp.Expr
	src string
}

func (e *jsonPathExpr) Select(doc any) []Match {
	// Locate yields one normalized path per result, which keeps values and
	// locators paired even for filters and descent segments. It returns
	// nothing for a bare `$`, which always matches the whole document.
	if isRootOnly(e.x) {
		return []Match{{Value: doc, Locator: "$"}}
	}

	locs := e.x.Locate(doc, 0)

	matches := make([]Match, 0, len(locs))
	for _, loc := range locs {
		matches = append(matches, Match{
			Value:   loc.First(doc),
			Locator: loc.String(),
		})
	}

	return matches
}

func isRootOnly(x jp.Expr) bool {
	if len(x) != 1 {
		return false
	}

	_, ok := x[0].(jp.Root)

	return ok
}

func (e *jsonPathExpr) Exists(doc any) bool {
	return e.x.Has(doc)
}

func (e *jsonPathExpr) String() string {
	return e.src
}
