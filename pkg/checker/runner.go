package checker

import (
	"context"
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jyasuu/jcheck/pkg/document"
	"github.com/jyasuu/jcheck/pkg/rule"
)

// Runner evaluates a rule set. It manages:
//   - Document loading and caching.
//   - Sequential or bounded-concurrent rule evaluation.
//   - Filesystem notifications / watching.
//
// Results always preserve rule input order, independent of completion order.
type Runner struct {
	tracer trace.Tracer
	store  *document.Store

	// Watch state, populated only when watching is enabled.
	watcher      *fsnotify.Watcher
	watchedFiles map[string]string
	watchedDirs  map[string]struct{}

	listeners []chan<- Event
	rules     []*rule.Rule
	jobs      int
	zeroMatch ZeroMatchPolicy
	watch     bool
}

// RunnerOpt configures a [Runner].
type RunnerOpt func(r *Runner) error

// WithDocuments sets the document store shared by all rules.
func WithDocuments(store *document.Store) RunnerOpt {
	return func(r *Runner) error {
		r.store = store

		return nil
	}
}

// WithJobs sets the number of rules evaluated concurrently. The default of 1
// evaluates sequentially.
func WithJobs(n int) RunnerOpt {
	return func(r *Runner) error {
		if n < 1 {
			return fmt.Errorf("jobs must be positive, got %d", n)
		}

		r.jobs = n

		return nil
	}
}

// WithZeroMatchPolicy overrides the verdict for rules whose query selects
// nothing. Per-rule allow_empty takes effect regardless of the policy.
func WithZeroMatchPolicy(p ZeroMatchPolicy) RunnerOpt {
	return func(r *Runner) error {
		r.zeroMatch = p

		return nil
	}
}

// WithRuleFilter keeps only the rules the filter accepts, preserving order.
func WithRuleFilter(keep func(*rule.Rule) bool) RunnerOpt {
	return func(r *Runner) error {
		filtered := make([]*rule.Rule, 0, len(r.rules))
		for _, ru := range r.rules {
			if keep(ru) {
				filtered = append(filtered, ru)
			}
		}

		r.rules = filtered

		return nil
	}
}

// WithWatch enables re-evaluation when a rule's document changes. See
// [Runner.RunOnEvent].
func WithWatch(watch bool) RunnerOpt {
	return func(r *Runner) error {
		r.watch = watch

		return nil
	}
}

// NewRunner creates a [Runner] over the rule set.
func NewRunner(rs *rule.RuleSet, opts ...RunnerOpt) (*Runner, error) {
	r := &Runner{
		tracer:       otel.Tracer("checker"),
		store:        document.NewStore(),
		rules:        rs.Rules,
		jobs:         1,
		watchedFiles: make(map[string]string),
		watchedDirs:  make(map[string]struct{}),
	}

	for _, opt := range opts {
		err := opt(r)
		if err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if r.watch {
		err := r.watchDocuments()
		if err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Rules returns the rules the runner will evaluate, in input order.
func (r *Runner) Rules() []*rule.Rule {
	return r.rules
}

// Run evaluates every rule in input order.
func (r *Runner) Run() []Result {
	return r.RunContext(context.Background())
}

// RunContext evaluates every rule, with results ordered positionally by rule
// input order even when evaluation is concurrent.
func (r *Runner) RunContext(ctx context.Context) []Result {
	ctx, span := r.tracer.Start(ctx, "run", trace.WithAttributes(
		attribute.Int("rules", len(r.rules)),
		attribute.Int("jobs", r.jobs),
	))
	defer span.End()

	results := make([]Result, len(r.rules))

	if r.jobs <= 1 || len(r.rules) <= 1 {
		for i, ru := range r.rules {
			results[i] = r.evaluate(ctx, ru)
		}

		return results
	}

	// Results are index-addressed, so completion order does not matter.
	indexes := make(chan int)

	var wg sync.WaitGroup
	for range r.jobs {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range indexes {
				results[i] = r.evaluate(ctx, r.rules[i])
			}
		}()
	}

	for i := range r.rules {
		indexes <- i
	}

	close(indexes)
	wg.Wait()

	return results
}
