package rule_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jyasuu/jcheck/pkg/check"
	"github.com/jyasuu/jcheck/pkg/query"
	"github.com/jyasuu/jcheck/pkg/rule"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		spec    *check.Spec
		path    string
		wantErr error
	}{
		"valid rule": {
			path: "$.database.host",
			spec: &check.Spec{Type: check.KindNonEmpty},
		},
		"valid filter query": {
			path: "$.data[?(@.type == 'b')].val",
			spec: &check.Spec{Type: check.KindNonEmpty},
		},
		"invalid path query": {
			path:    "$.data[",
			spec:    &check.Spec{Type: check.KindNonEmpty},
			wantErr: query.ErrParse,
		},
		"invalid pattern": {
			path:    "$.version",
			spec:    &check.Spec{Type: check.KindRegex, Pattern: `[`},
			wantErr: check.ErrInvalidPattern,
		},
		"invalid check": {
			path:    "$.items",
			spec:    &check.Spec{Type: check.KindArrayLength},
			wantErr: check.ErrInvalidSpec,
		},
	}
	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r, err := rule.New("test", "doc.json", tc.path, tc.spec)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, r)

				return
			}

			require.NoError(t, err)
			require.NotNil(t, r)
			assert.NotNil(t, r.Expr())
			require.NoError(t, r.Err())
		})
	}
}

func TestRuleCompileRecordsError(t *testing.T) {
	t.Parallel()

	r := &rule.Rule{
		Name:     "bad-path",
		JSONFile: "doc.json",
		JSONPath: "$.data[",
		Check:    &check.Spec{Type: check.KindNonEmpty},
	}

	err := r.Compile(query.NewJSONPath())
	require.ErrorIs(t, err, query.ErrParse)
	require.ErrorIs(t, r.Err(), query.ErrParse)
	assert.Nil(t, r.Expr())
}

func TestRuleSetCompileIsolatesFailures(t *testing.T) {
	t.Parallel()

	rs := &rule.RuleSet{Rules: []*rule.Rule{
		{Name: "good", JSONFile: "a.json", JSONPath: "$.a", Check: &check.Spec{Type: check.KindEmpty}},
		{Name: "bad", JSONFile: "a.json", JSONPath: "$.a[", Check: &check.Spec{Type: check.KindEmpty}},
	}}

	rs.Compile(query.NewJSONPath())

	require.NoError(t, rs.Rules[0].Err())
	require.Error(t, rs.Rules[1].Err())
	assert.Equal(t, []string{"good", "bad"}, rs.Names())
}

func TestSelector(t *testing.T) {
	t.Parallel()

	r := rule.MustNew("db-host", "config.json", "$.database.host",
		&check.Spec{Type: check.KindNonEmpty})

	tcs := map[string]struct {
		expression string
		want       bool
	}{
		"name prefix": {
			expression: `name.startsWith("db-")`,
			want:       true,
		},
		"name mismatch": {
			expression: `name == "other"`,
			want:       false,
		},
		"check type membership": {
			expression: `check in ["empty", "non_empty"]`,
			want:       true,
		},
		"file extension": {
			expression: `pathExt(file) == ".json"`,
			want:       true,
		},
		"path match": {
			expression: `path.contains("database")`,
			want:       true,
		},
	}
	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s, err := rule.NewSelector(tc.expression)
			require.NoError(t, err)
			assert.Equal(t, tc.want, s.Matches(r))
		})
	}
}

func TestNewSelectorInvalid(t *testing.T) {
	t.Parallel()

	_, err := rule.NewSelector(`name.invalidFunction()`)
	require.Error(t, err)

	// Non-boolean results are a non-match, not an error.
	s, err := rule.NewSelector(`name`)
	require.NoError(t, err)

	r := rule.MustNew("x", "a.json", "$.a", &check.Spec{Type: check.KindEmpty})
	assert.False(t, s.Matches(r))
}
