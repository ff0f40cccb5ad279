package middleware

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// ParseNestedForm expands bracketed form keys into nested values.
//
//	user[name]=ann      -> {"user": {"name": "ann"}}
//	tags[]=a&tags[]=b   -> {"tags": ["a", "b"]}
//	x=1&x=2             -> {"x": ["1", "2"]}
//
// Numeric segments are kept as map keys.
func ParseNestedForm(values url.Values) (map[string]any, error) {
	root := make(map[string]any, len(values))

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		path := splitFormKey(key)
		for _, v := range values[key] {
			if err := assignFormValue(root, path, v); err != nil {
				return nil, fmt.Errorf("form key %q: %w", key, err)
			}
		}
	}
	return root, nil
}

// splitFormKey turns "a[b][]" into ["a", "b", ""]. Keys with unbalanced
// brackets are returned whole.
func splitFormKey(key string) []string {
	open := strings.IndexByte(key, '[')
	if open <= 0 {
		return []string{key}
	}

	path := []string{key[:open]}
	rest := key[open:]
	for rest != "" {
		if rest[0] != '[' {
			return []string{key}
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return []string{key}
		}
		path = append(path, rest[1:end])
		rest = rest[end+1:]
	}
	return path
}

func assignFormValue(m map[string]any, path []string, value string) error {
	head := path[0]

	if len(path) == 1 {
		switch existing := m[head].(type) {
		case nil:
			m[head] = value
		case string:
			m[head] = []any{existing, value}
		case []any:
			m[head] = append(existing, value)
		default:
			return fmt.Errorf("cannot set %q on an object", head)
		}
		return nil
	}

	if path[1] == "" {
		arr, ok := m[head].([]any)
		if !ok && m[head] != nil {
			return fmt.Errorf("%q is not a list", head)
		}
		if len(path) == 2 {
			m[head] = append(arr, value)
			return nil
		}
		child := map[string]any{}
		if err := assignFormValue(child, path[2:], value); err != nil {
			return err
		}
		m[head] = append(arr, child)
		return nil
	}

	child, ok := m[head].(map[string]any)
	if !ok {
		if m[head] != nil {
			return fmt.Errorf("%q is not an object", head)
		}
		child = map[string]any{}
		m[head] = child
	}
	return assignFormValue(child, path[1:], value)
}
