package content

import (
	"fmt"
	"strings"
)

// TransformFunc reshapes a source field value before it lands at a sync
// target. Transforms are total: unexpected input types pass through
// unchanged rather than failing an approval.
type TransformFunc func(any) any

var transforms = map[string]TransformFunc{
	"identity": func(v any) any { return v },
	"trim": func(v any) any {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
		return v
	},
	"title": func(v any) any {
		if s, ok := v.(string); ok {
			return titleCase(s)
		}
		return v
	},
	"join_comma": func(v any) any {
		list, ok := v.([]any)
		if !ok {
			return v
		}
		parts := make([]string, 0, len(list))
		for _, item := range list {
			parts = append(parts, fmt.Sprintf("%v", item))
		}
		return strings.Join(parts, ", ")
	},
}

func Transform(name string) (TransformFunc, bool) {
	if name == "" {
		name = "identity"
	}
	fn, ok := transforms[name]
	return fn, ok
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		if len(r) > 0 {
			words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
		}
	}
	return strings.Join(words, " ")
}
