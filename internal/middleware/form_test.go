package middleware

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNestedForm(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  map[string]any
	}{
		{"flat", "a=1&b=2", map[string]any{"a": "1", "b": "2"}},
		{"repeated", "x=1&x=2", map[string]any{"x": []any{"1", "2"}}},
		{"object", "user[name]=ann&user[email]=a@b.c", map[string]any{
			"user": map[string]any{"name": "ann", "email": "a@b.c"},
		}},
		{"list", "tags[]=a&tags[]=b", map[string]any{"tags": []any{"a", "b"}}},
		{"deep", "a[b][c]=1", map[string]any{
			"a": map[string]any{"b": map[string]any{"c": "1"}},
		}},
		{"numeric keys stay keys", "items[0]=x&items[1]=y", map[string]any{
			"items": map[string]any{"0": "x", "1": "y"},
		}},
		{"list of objects", "rows[][id]=7", map[string]any{
			"rows": []any{map[string]any{"id": "7"}},
		}},
		{"unbalanced kept whole", "a[b=1", map[string]any{"a[b": "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			got, err := ParseNestedForm(values)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseNestedFormConflicts(t *testing.T) {
	for _, q := range []string{"a=1&a[b]=2", "a[b]=1&a[]=2"} {
		values, err := url.ParseQuery(q)
		require.NoError(t, err)

		_, err = ParseNestedForm(values)
		assert.Error(t, err, q)
	}
}
