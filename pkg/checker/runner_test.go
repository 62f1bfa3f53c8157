package checker_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jyasuu/jcheck/pkg/check"
	"github.com/jyasuu/jcheck/pkg/checker"
	"github.com/jyasuu/jcheck/pkg/query"
	"github.com/jyasuu/jcheck/pkg/rule"
)

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func newRule(t *testing.T, name, file, path string, spec *check.Spec) *rule.Rule {
	t.Helper()

	r, err := rule.New(name, file, path, spec)
	require.NoError(t, err)

	return r
}

func run(t *testing.T, rules []*rule.Rule, opts ...checker.RunnerOpt) []checker.Result {
	t.Helper()

	r, err := checker.NewRunner(&rule.RuleSet{Rules: rules}, opts...)
	require.NoError(t, err)

	return r.Run()
}

func TestRunScenarios(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	data := writeDoc(t, dir, "data.json",
		`{"data":[{"type":"a","val":"a1"},{"type":"b","val":""}]}`)
	config := writeDoc(t, dir, "config.json",
		`{"database":{"host":"localhost","port":5432},"features":["search","auth","api"]}`)
	users := writeDoc(t, dir, "users.json",
		`{"users":[{"age":25,"metadata":{"email":"alice@example.com","name":"Alice"}},{"age":30,"metadata":{"email":"bob@example.com","name":"Bob"}}]}`)
	partial := writeDoc(t, dir, "partial.json",
		`{"users":[{"metadata":{"email":"alice@example.com","name":"Alice"}},{"metadata":{"email":"bob@example.com"}}]}`)

	tcs := map[string]struct {
		spec        *check.Spec
		file        string
		path        string
		wantReasons []string
		wantMatches int
		wantPassed  bool
	}{
		"empty string fails non_empty": {
			file:        data,
			path:        `$.data[?(@.type == 'b')].val`,
			spec:        &check.Spec{Type: check.KindNonEmpty},
			wantPassed:  false,
			wantMatches: 1,
			wantReasons: []string{`$.data[1].val: value "" does not satisfy non_empty`},
		},
		"root jsonb_contains": {
			file: config,
			path: `$`,
			spec: &check.Spec{
				Type:  check.KindJSONBContains,
				Value: map[string]any{"database": map[string]any{"host": "localhost"}},
			},
			wantPassed:  true,
			wantMatches: 1,
		},
		"all ages above threshold": {
			file:        users,
			path:        `$.users[*].age`,
			spec:        &check.Spec{Type: check.KindGreaterThan, Value: float64(18)},
			wantPassed:  true,
			wantMatches: 2,
		},
		"metadata has all keys": {
			file:        users,
			path:        `$.users[*].metadata`,
			spec:        &check.Spec{Type: check.KindJSONBExistsAll, Keys: []string{"email", "name"}},
			wantPassed:  true,
			wantMatches: 2,
		},
		"missing key names the failing user": {
			file:        partial,
			path:        `$.users[*].metadata`,
			spec:        &check.Spec{Type: check.KindJSONBExistsAll, Keys: []string{"email", "name"}},
			wantPassed:  false,
			wantMatches: 2,
			wantReasons: []string{`$.users[1].metadata: value {"email":"bob@example.com"} does not satisfy jsonb_exists_all ["email","name"]`},
		},
		"no values matched": {
			file:        data,
			path:        `$.nonexistent`,
			spec:        &check.Spec{Type: check.KindNonEmpty},
			wantPassed:  false,
			wantMatches: 0,
			wantReasons: []string{checker.ReasonNoMatches},
		},
	}
	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			results := run(t, []*rule.Rule{newRule(t, "r", tc.file, tc.path, tc.spec)})
			require.Len(t, results, 1)

			res := results[0]
			assert.Equal(t, tc.wantPassed, res.Passed)
			assert.Equal(t, tc.wantMatches, res.MatchCount)
			assert.Equal(t, tc.wantReasons, res.Reasons)
		})
	}
}

func TestRunReportsEveryFailingMatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	doc := writeDoc(t, dir, "ages.json", `{"ages":[25,3,30,7]}`)

	results := run(t, []*rule.Rule{
		newRule(t, "ages", doc, `$.ages[*]`, &check.Spec{Type: check.KindGreaterThan, Value: float64(18)}),
	})

	require.Len(t, results, 1)
	require.False(t, results[0].Passed)
	assert.Equal(t, 4, results[0].MatchCount)
	require.Len(t, results[0].Reasons, 2)
	assert.Contains(t, results[0].Reasons[0], "$.ages[1]")
	assert.Contains(t, results[0].Reasons[1], "$.ages[3]")
}

func TestRunTypeMismatchFailsMatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	doc := writeDoc(t, dir, "doc.json", `{"port":"5432"}`)

	results := run(t, []*rule.Rule{
		newRule(t, "port", doc, `$.port`, &check.Spec{Type: check.KindGreaterThan, Value: float64(1024)}),
	})

	require.Len(t, results, 1)
	require.False(t, results[0].Passed)
	require.Len(t, results[0].Reasons, 1)
	assert.Contains(t, results[0].Reasons[0], "greater_than expects number, got string")
	assert.Contains(t, results[0].Reasons[0], "$.port")
}

func TestRunIsolatesPerRuleErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	doc := writeDoc(t, dir, "doc.json", `{"a":1}`)

	badQuery := &rule.Rule{
		Name:     "bad-query",
		JSONFile: doc,
		JSONPath: "$.a[",
		Check:    &check.Spec{Type: check.KindNonEmpty},
	}
	//nolint:errcheck // Recorded on the rule.
	_ = badQuery.Compile(query.NewJSONPath())

	// Never compiled: no expression, no recorded error.
	uncompiled := &rule.Rule{
		Name:     "uncompiled",
		JSONFile: doc,
		JSONPath: "$.a",
		Check:    &check.Spec{Type: check.KindNonEmpty},
	}

	results := run(t, []*rule.Rule{
		newRule(t, "missing-file", filepath.Join(dir, "nope.json"), `$.a`, &check.Spec{Type: check.KindNonEmpty}),
		badQuery,
		uncompiled,
		newRule(t, "good", doc, `$.a`, &check.Spec{Type: check.KindNonEmpty}),
	})

	require.Len(t, results, 4)

	assert.False(t, results[0].Passed)
	require.Len(t, results[0].Reasons, 1)
	assert.Contains(t, results[0].Reasons[0], "load document")

	assert.False(t, results[1].Passed)
	require.Len(t, results[1].Reasons, 1)
	assert.Contains(t, results[1].Reasons[0], "invalid path query")

	assert.False(t, results[2].Passed)
	require.Len(t, results[2].Reasons, 1)
	assert.Contains(t, results[2].Reasons[0], "not compiled")

	assert.True(t, results[3].Passed)
}

func TestRunZeroMatchPolicy(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	doc := writeDoc(t, dir, "doc.json", `{"a":1}`)

	spec := func() *check.Spec { return &check.Spec{Type: check.KindNonEmpty} }

	t.Run("allow_empty on the rule", func(t *testing.T) {
		t.Parallel()

		r := newRule(t, "r", doc, `$.missing`, spec())
		r.AllowEmpty = true

		results := run(t, []*rule.Rule{r})
		require.Len(t, results, 1)
		assert.True(t, results[0].Passed)
		assert.Empty(t, results[0].Reasons)
	})

	t.Run("runner-wide pass policy", func(t *testing.T) {
		t.Parallel()

		results := run(t,
			[]*rule.Rule{newRule(t, "r", doc, `$.missing`, spec())},
			checker.WithZeroMatchPolicy(checker.ZeroMatchPass),
		)
		require.Len(t, results, 1)
		assert.True(t, results[0].Passed)
	})
}

func TestRunConcurrentPreservesOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	doc := writeDoc(t, dir, "doc.json", `{"a":[1,2,3]}`)

	rules := make([]*rule.Rule, 0, 50)
	for i := range 50 {
		rules = append(rules, newRule(t, fmt.Sprintf("rule-%02d", i), doc, `$.a`,
			&check.Spec{Type: check.KindArrayLength, Min: intp(1)}))
	}

	results := run(t, rules, checker.WithJobs(8))
	require.Len(t, results, 50)

	for i, res := range results {
		assert.Equal(t, fmt.Sprintf("rule-%02d", i), res.Name)
		assert.True(t, res.Passed)
	}
}

func TestWithJobsInvalid(t *testing.T) {
	t.Parallel()

	_, err := checker.NewRunner(rule.NewRuleSet(), checker.WithJobs(0))
	require.Error(t, err)
}

func TestWithRuleFilter(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	doc := writeDoc(t, dir, "doc.json", `{"a":1}`)

	rules := []*rule.Rule{
		newRule(t, "keep", doc, `$.a`, &check.Spec{Type: check.KindNonEmpty}),
		newRule(t, "drop", doc, `$.a`, &check.Spec{Type: check.KindEmpty}),
	}

	r, err := checker.NewRunner(&rule.RuleSet{Rules: rules},
		checker.WithRuleFilter(func(ru *rule.Rule) bool {
			return strings.HasPrefix(ru.Name, "keep")
		}),
	)
	require.NoError(t, err)

	require.Len(t, r.Rules(), 1)

	results := r.Run()
	require.Len(t, results, 1)
	assert.Equal(t, "keep", results[0].Name)
}

func TestRunOnEvent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	doc := writeDoc(t, dir, "doc.json", `{"host":"localhost"}`)

	r, err := checker.NewRunner(
		&rule.RuleSet{Rules: []*rule.Rule{
			newRule(t, "host", doc, `$.host`, &check.Spec{Type: check.KindNonEmpty}),
		}},
		checker.WithWatch(true),
	)
	require.NoError(t, err)

	t.Cleanup(r.Close)

	results := r.Run()
	require.Len(t, results, 1)
	require.True(t, results[0].Passed)

	events := make(chan checker.Event, 1)
	r.Subscribe(events)

	go r.RunOnEvent()

	// Rewrite the document so the rule now fails.
	require.NoError(t, os.WriteFile(doc, []byte(`{"host":""}`), 0o600))

	select {
	case evt := <-events:
		require.NoError(t, evt.Err)
		require.Len(t, evt.Results, 1)
		assert.False(t, evt.Results[0].Passed)

	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for watch event")
	}
}

func intp(n int) *int {
	return &n
}
