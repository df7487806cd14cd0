package content

import (
	"strings"
)

// FlattenDocument turns a section document into its addressable fields.
// Registered field paths are extracted as single values even when they are
// structured; leaf paths not claimed by the registry come back as custom
// fields. Paths inside a registered structured field are not re-extracted.
func FlattenDocument(def SectionDef, doc map[string]any) (fields map[string]any, custom map[string]bool) {
	fields = map[string]any{}
	custom = map[string]bool{}
	if len(doc) == 0 {
		return fields, custom
	}

	registered := make(map[string]bool, len(def.Fields))
	for _, f := range def.Fields {
		registered[f.FieldID] = true
		if v, ok := GetPath(doc, f.FieldID); ok {
			fields[f.FieldID] = v
		}
	}

	for path, v := range Leaves(doc) {
		if coveredByRegistry(registered, path) {
			continue
		}
		fields[path] = v
		custom[path] = true
	}
	return fields, custom
}

// coveredByRegistry reports whether a leaf path is already represented by a
// registered field: exactly it, inside a registered structured field, or a
// malformed scalar sitting where the registry expects a subtree.
func coveredByRegistry(registered map[string]bool, path string) bool {
	if registered[path] {
		return true
	}
	for id := range registered {
		if strings.HasPrefix(path, id+".") {
			return true
		}
		if strings.HasPrefix(id, path+".") {
			return true
		}
	}
	return false
}

// DiffChanged flattens both documents and returns the fields whose
// normalized value differs, keyed by field id with the new value. Fields
// absent from the new document are not diffs: document edits never delete
// fields.
func DiffChanged(def SectionDef, oldDoc, newDoc map[string]any) map[string]any {
	oldFields, _ := FlattenDocument(def, oldDoc)
	newFields, _ := FlattenDocument(def, newDoc)

	changed := map[string]any{}
	for id, newVal := range newFields {
		oldVal, had := oldFields[id]
		if !had {
			changed[id] = newVal
			continue
		}
		oldNorm, err1 := NormalizeValue(oldVal)
		newNorm, err2 := NormalizeValue(newVal)
		if err1 != nil || err2 != nil || string(oldNorm) != string(newNorm) {
			changed[id] = newVal
		}
	}
	return changed
}

// InferFieldType tags a custom field's value.
func InferFieldType(v any) string {
	switch v.(type) {
	case []any:
		return "list"
	case map[string]any:
		return "structured"
	default:
		return "text"
	}
}
