package rule

import (
	"errors"
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/jyasuu/jcheck/pkg/check"
	"github.com/jyasuu/jcheck/pkg/expr"
	"github.com/jyasuu/jcheck/pkg/query"
)

// Rule binds a path query over one document to a check.
//
// A rule is immutable after load. Compiled state (the parsed path expression
// and any validation error) is populated once by [Rule.Compile]; a rule whose
// compilation failed evaluates to a failure carrying the recorded error.
type Rule struct {
	// Name identifies the rule in reports.
	Name string `json:"name" yaml:"name" jsonschema:"title=Rule Name"`
	// JSONFile is the path of the document to validate, relative to the
	// working directory.
	JSONFile string `json:"json_file" yaml:"json_file" jsonschema:"title=Document Path"`
	// JSONPath selects the values the check applies to.
	JSONPath string `json:"jsonpath" yaml:"jsonpath" jsonschema:"title=Path Query"`
	// Check is the predicate every selected value must satisfy.
	Check *check.Spec `json:"check" yaml:"check" jsonschema:"title=Check"`
	// AllowEmpty makes an empty selection pass instead of fail.
	AllowEmpty bool `json:"allow_empty,omitempty" yaml:"allow_empty,omitempty" jsonschema:"title=Allow Empty Selection"`

	pathExpr   query.Expr
	compileErr error
}

// New creates a compiled [Rule].
func New(name, file, path string, spec *check.Spec) (*Rule, error) {
	r := &Rule{
		Name:     name,
		JSONFile: file,
		JSONPath: path,
		Check:    spec,
	}

	err := r.Compile(query.NewJSONPath())
	if err != nil {
		return nil, err
	}

	return r, nil
}

// MustNew creates a compiled [Rule] and panics on error.
func MustNew(name, file, path string, spec *check.Spec) *Rule {
	r, err := New(name, file, path, spec)
	if err != nil {
		panic(err)
	}

	return r
}

// Compile parses the rule's path query and validates its check. The error is
// recorded on the rule as well as returned, so a failed compile surfaces as
// that rule's failure at evaluation time rather than aborting the load.
func (r *Rule) Compile(res query.Resolver) error {
	if r.Check == nil {
		r.compileErr = errors.New("missing check")

		return r.compileErr
	}

	x, err := res.Parse(r.JSONPath)
	if err != nil {
		r.compileErr = err

		return err
	}

	r.pathExpr = x

	err = r.Check.Compile(res)
	if err != nil {
		r.compileErr = err

		return err
	}

	return nil
}

// Expr returns the compiled path expression, nil if compilation failed.
func (r *Rule) Expr() query.Expr {
	return r.pathExpr
}

// Err returns the error recorded by [Rule.Compile], if any.
func (r *Rule) Err() error {
	return r.compileErr
}

func (r *Rule) String() string {
	return fmt.Sprintf("%s: %s %s %s", r.Name, r.JSONFile, r.JSONPath, r.Check.Describe())
}

// RuleSet is an ordered collection of rules, the top-level shape of a rules
// document.
type RuleSet struct {
	// Rules are evaluated in order; results preserve this order.
	Rules []*Rule `json:"rules" yaml:"rules" jsonschema:"title=Rules"`
}

// NewRuleSet creates an empty [RuleSet].
func NewRuleSet() *RuleSet {
	return &RuleSet{}
}

// Compile compiles every rule, recording per-rule errors on the rules
// themselves. Compile errors are not fatal to the set; the affected rules
// fail at evaluation with the recorded diagnostic.
func (rs *RuleSet) Compile(res query.Resolver) {
	for _, r := range rs.Rules {
		//nolint:errcheck // Recorded on the rule, reported at evaluation.
		_ = r.Compile(res)
	}
}

// Names returns the rule names in input order.
func (rs *RuleSet) Names() []string {
	names := make([]string, 0, len(rs.Rules))
	for _, r := range rs.Rules {
		names = append(names, r.Name)
	}

	return names
}

// Selector filters rules with a CEL expression over the rule's fields.
//
// The expression has access to variables:
//   - `name` (string): The rule name.
//   - `file` (string): The rule's document path.
//   - `path` (string): The rule's path query.
//   - `check` (string): The check type, e.g. "jsonb_contains".
//
// It must return a boolean:
//   - name.startsWith("db-") - rules whose name has the db- prefix
//   - check in ["equals", "not_equals"] - rules using equality checks
//   - pathExt(file) == ".json" - rules over JSON documents
type Selector struct {
	program cel.Program
	src     string
}

// NewSelector compiles a CEL rule selector.
func NewSelector(expression string) (*Selector, error) {
	env, err := expr.NewEnvironment(
		cel.Variable("name", cel.StringType),
		cel.Variable("file", cel.StringType),
		cel.Variable("path", cel.StringType),
		cel.Variable("check", cel.StringType),
	)
	if err != nil {
		return nil, err
	}

	program, err := env.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("selector %q: %w", expression, err)
	}

	return &Selector{program: program, src: expression}, nil
}

// MustNewSelector compiles a CEL rule selector and panics on error.
func MustNewSelector(expression string) *Selector {
	s, err := NewSelector(expression)
	if err != nil {
		panic(err)
	}

	return s
}

// Matches evaluates the selector against one rule. Evaluation errors and
// non-boolean results are treated as a non-match.
func (s *Selector) Matches(r *Rule) bool {
	checkType := ""
	if r.Check != nil {
		checkType = string(r.Check.Type)
	}

	result, _, err := s.program.Eval(map[string]any{
		"name":  r.Name,
		"file":  r.JSONFile,
		"path":  r.JSONPath,
		"check": checkType,
	})
	if err != nil {
		return false
	}

	boolVal, ok := result.Value().(bool)

	return ok && boolVal
}

func (s *Selector) String() string {
	return s.src
}
