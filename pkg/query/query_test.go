package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jyasuu/jcheck/pkg/query"
)

func TestJSONPathParse(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		path    string
		wantErr error
	}{
		"root": {
			path: "$",
		},
		"child": {
			path: "$.database.host",
		},
		"filter": {
			path: "$.data[?(@.type == 'b')].val",
		},
		"wildcard": {
			path: "$.users[*].age",
		},
		"descent": {
			path: "$..name",
		},
		"unterminated filter": {
			path:    "$.data[?(@.type == 'b'",
			wantErr: query.ErrParse,
		},
		"bad bracket": {
			path:    "$.data[",
			wantErr: query.ErrParse,
		},
	}
	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			expr, err := query.NewJSONPath().Parse(tc.path)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.path, expr.String())
		})
	}
}

func TestJSONPathSelect(t *testing.T) {
	t.Parallel()

	doc := map[string]any{
		"database": map[string]any{
			"host": "localhost",
			"port": float64(5432),
		},
		"data": []any{
			map[string]any{"type": "a", "val": "a1"},
			map[string]any{"type": "b", "val": ""},
		},
		"users": []any{
			map[string]any{"age": float64(25)},
			map[string]any{"age": float64(30)},
		},
	}

	tcs := map[string]struct {
		path string
		want []query.Match
	}{
		"root": {
			path: "$",
			want: []query.Match{
				{Value: doc, Locator: "$"},
			},
		},
		"child": {
			path: "$.database.host",
			want: []query.Match{
				{Value: "localhost", Locator: "$.database.host"},
			},
		},
		"filter": {
			path: "$.data[?(@.type == 'b')].val",
			want: []query.Match{
				{Value: "", Locator: "$.data[1].val"},
			},
		},
		"array wildcard preserves order": {
			path: "$.users[*].age",
			want: []query.Match{
				{Value: float64(25), Locator: "$.users[0].age"},
				{Value: float64(30), Locator: "$.users[1].age"},
			},
		},
		"no matches": {
			path: "$.nonexistent",
			want: []query.Match{},
		},
	}
	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			expr, err := query.NewJSONPath().Parse(tc.path)
			require.NoError(t, err)

			assert.Equal(t, tc.want, expr.Select(doc))
		})
	}
}

func TestJSONPathExists(t *testing.T) {
	t.Parallel()

	doc := map[string]any{
		"a": map[string]any{"b": float64(1)},
	}

	assert.True(t, query.MustParse("$.a.b").Exists(doc))
	assert.False(t, query.MustParse("$.a.c").Exists(doc))
}

func TestMustParsePanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		query.MustParse("$.data[")
	})
}
