package content

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gorm.io/datatypes"
)

// GetPath resolves a dotted path against a nested document. Arrays are
// opaque: paths never index into them.
func GetPath(doc map[string]any, path string) (any, bool) {
	if doc == nil || path == "" {
		return nil, false
	}
	parts := strings.Split(path, ".")
	cur := any(doc)
	for _, part := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// SetPath returns a deep copy of doc with the value set at the dotted path,
// creating intermediate maps as needed. Non-map intermediates are replaced.
func SetPath(doc map[string]any, path string, value any) map[string]any {
	out := CloneDocument(doc)
	if out == nil {
		out = map[string]any{}
	}
	parts := strings.Split(path, ".")
	cur := out
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[part] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
	return out
}

// CloneDocument deep-copies via a JSON round trip, which also normalizes
// value types the same way storage does.
func CloneDocument(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}

// Leaves flattens a document to dotted leaf paths. Scalars and arrays are
// leaves; empty maps are leaves too so their presence is not lost.
func Leaves(doc map[string]any) map[string]any {
	out := map[string]any{}
	collectLeaves("", doc, out)
	return out
}

func collectLeaves(prefix string, node map[string]any, out map[string]any) {
	for k, v := range node {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if m, ok := v.(map[string]any); ok && len(m) > 0 {
			collectLeaves(path, m, out)
			continue
		}
		out[path] = v
	}
}

// NormalizeValue serializes a field value into its canonical stored form.
// Round-tripping through encoding/json gives deterministic map-key order, so
// byte equality of two normalized values means value equality.
func NormalizeValue(v any) (datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("normalize value: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("normalize value: %w", err)
	}
	out, err := json.Marshal(decoded)
	if err != nil {
		return nil, fmt.Errorf("normalize value: %w", err)
	}
	return datatypes.JSON(out), nil
}

// CanonicalDocument serializes a document deterministically and returns it
// with its content hash.
func CanonicalDocument(doc map[string]any) (datatypes.JSON, string, error) {
	if doc == nil {
		doc = map[string]any{}
	}
	normalized, err := NormalizeValue(doc)
	if err != nil {
		return nil, "", err
	}
	sum := sha256.Sum256(normalized)
	return normalized, hex.EncodeToString(sum[:]), nil
}

func DecodeDocument(raw datatypes.JSON) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func DecodeValue(raw datatypes.JSON) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return out, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
