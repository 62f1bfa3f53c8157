// Package checker evaluates compiled rules against their documents and
// aggregates per-match outcomes into ordered results.
package checker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jyasuu/jcheck/pkg/check"
	"github.com/jyasuu/jcheck/pkg/log"
	"github.com/jyasuu/jcheck/pkg/rule"
)

// ReasonNoMatches is the failure reason for a rule whose path query selected
// nothing.
const ReasonNoMatches = "no values matched"

// Result is the outcome of evaluating one rule. Reasons is non-empty iff the
// rule failed, ordered by match order.
type Result struct {
	Name       string    `json:"name"`
	Reasons    []string  `json:"reasons,omitempty"`
	Failures   []Failure `json:"-"`
	MatchCount int       `json:"matches"`
	Passed     bool      `json:"passed"`
}

// Failure is the structured form of one entry in [Result.Reasons], used by
// renderers that display offending values or diffs.
type Failure struct {
	// Value is the offending match value, nil for failures without a match
	// (zero matches, load errors).
	Value any
	// Expected is the check operand for checks where an expected-vs-actual
	// diff is meaningful, nil otherwise.
	Expected any
	// Locator is the match's position in its document, empty for failures
	// without a match.
	Locator string
	// Message is the full reason line, identical to the Reasons entry.
	Message string
}

// fail appends a failure to the result, keeping Reasons and Failures aligned.
func (res *Result) fail(f Failure) {
	res.Reasons = append(res.Reasons, f.Message)
	res.Failures = append(res.Failures, f)
}

// ZeroMatchPolicy decides the verdict for a rule whose path query selects no
// values.
type ZeroMatchPolicy int

const (
	// ZeroMatchFail fails the rule with [ReasonNoMatches]. A predicate that
	// never ran proves nothing about the document.
	ZeroMatchFail ZeroMatchPolicy = iota

	// ZeroMatchPass treats an empty selection as vacuously satisfied.
	ZeroMatchPass
)

// evaluate runs one rule to completion: load its document, select matches,
// and test every match against the check. Every failure mode short of a
// rules-file error lands here as a failed [Result]; nothing is fatal.
func (r *Runner) evaluate(ctx context.Context, ru *rule.Rule) Result {
	ctx, span := r.tracer.Start(ctx, "rule", trace.WithAttributes(
		attribute.String("rule", ru.Name),
		attribute.String("file", ru.JSONFile),
		attribute.String("path", ru.JSONPath),
	))
	defer span.End()

	logger := log.WithContext(ctx).With(slog.String("rule", ru.Name))
	start := time.Now()

	res := Result{Name: ru.Name}

	err := ru.Err()
	if err != nil {
		span.RecordError(err)
		res.fail(Failure{Message: err.Error()})

		return res
	}

	// A rule that skipped [rule.Rule.Compile] has no expression and no
	// recorded error. Fail it like any other per-rule problem.
	if ru.Expr() == nil {
		res.fail(Failure{Message: "rule was not compiled"})

		return res
	}

	doc, err := r.store.Load(ru.JSONFile)
	if err != nil {
		span.RecordError(err)
		res.fail(Failure{Message: err.Error()})

		return res
	}

	matches := ru.Expr().Select(doc)
	res.MatchCount = len(matches)

	if len(matches) == 0 {
		if ru.AllowEmpty || r.zeroMatch == ZeroMatchPass {
			res.Passed = true
		} else {
			res.fail(Failure{Message: ReasonNoMatches})
		}

		return res
	}

	// Universal quantification: one failing match fails the rule, and every
	// failing match is reported, in match order.
	for _, m := range matches {
		ok, err := ru.Check.Evaluate(m.Value)

		var mismatch *check.TypeMismatchError

		switch {
		case errors.As(err, &mismatch):
			res.fail(Failure{
				Locator: m.Locator,
				Value:   m.Value,
				Message: fmt.Sprintf("%s: %s (value %s)", m.Locator, mismatch, check.FormatValue(m.Value)),
			})

		case err != nil:
			span.RecordError(err)
			res.fail(Failure{
				Locator: m.Locator,
				Value:   m.Value,
				Message: fmt.Sprintf("%s: %v", m.Locator, err),
			})

		case !ok:
			res.fail(Failure{
				Locator:  m.Locator,
				Value:    m.Value,
				Expected: diffOperand(ru.Check),
				Message:  fmt.Sprintf("%s: value %s does not satisfy %s", m.Locator, check.FormatValue(m.Value), ru.Check.Describe()),
			})
		}
	}

	res.Passed = len(res.Reasons) == 0

	logger.DebugContext(ctx, "evaluated rule",
		slog.Bool("passed", res.Passed),
		slog.Int("matches", res.MatchCount),
		slog.Duration("duration", time.Since(start)),
	)

	return res
}

// diffOperand returns the check operand for kinds where an expected-vs-actual
// diff of the failing value is meaningful.
func diffOperand(s *check.Spec) any {
	switch s.Type {
	case check.KindEquals, check.KindJSONBContains, check.KindJSONBContainedBy:
		return s.Value
	default:
		return nil
	}
}
