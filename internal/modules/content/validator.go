package content

import (
	"fmt"
	"strings"

	"github.com/yungbote/launchcopy-backend/internal/platform/apierr"
)

// Validator sanitizes candidate documents against the registry. Policy:
// unknown top-level keys are stripped and missing required keys reported,
// both as warnings, so partial content still persists. The one hard reject
// is a document whose top-level shape belongs to a different section type:
// routing that through would silently corrupt the other section's state
// later, so it must not be sanitized.
type Validator struct {
	registry *Registry
}

func NewValidator(registry *Registry) *Validator {
	return &Validator{registry: registry}
}

func (v *Validator) Sanitize(sectionType string, doc map[string]any) (map[string]any, []string, error) {
	def, err := v.registry.Section(sectionType)
	if err != nil {
		return nil, nil, err
	}
	if def.DocumentLess {
		return nil, nil, apierr.Validation("section type %q is field-only and does not accept documents", sectionType)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	allowed := topLevelKeys(def)
	recognized := 0
	for key := range doc {
		if allowed[key] {
			recognized++
		}
	}
	if len(doc) > 0 && recognized == 0 {
		if other := v.bestMatchingType(sectionType, doc); other != "" {
			return nil, nil, apierr.Validation("document shape matches section type %q, not %q", other, sectionType)
		}
		return nil, nil, apierr.Validation("document has no recognized keys for section type %q", sectionType)
	}

	warnings := []string{}
	sanitized := map[string]any{}
	for _, key := range sortedKeys(doc) {
		if !allowed[key] {
			warnings = append(warnings, fmt.Sprintf("unknown key %q removed", key))
			continue
		}
		sanitized[key] = doc[key]
	}
	for _, req := range def.Required {
		if _, ok := sanitized[req]; !ok {
			warnings = append(warnings, fmt.Sprintf("required key %q missing", req))
		}
	}
	return sanitized, warnings, nil
}

// bestMatchingType finds the registered type whose top-level shape best
// explains a document that matched nothing on the declared type.
func (v *Validator) bestMatchingType(exclude string, doc map[string]any) string {
	best := ""
	bestCount := 0
	for _, t := range v.registry.Types() {
		if t == exclude {
			continue
		}
		def := v.registry.sections[t]
		if def.DocumentLess {
			continue
		}
		allowed := topLevelKeys(def)
		count := 0
		for key := range doc {
			if allowed[key] {
				count++
			}
		}
		if count > bestCount {
			bestCount = count
			best = t
		}
	}
	return best
}

func topLevelKeys(def SectionDef) map[string]bool {
	out := map[string]bool{}
	for _, f := range def.Fields {
		head := f.FieldID
		if i := strings.Index(head, "."); i >= 0 {
			head = head[:i]
		}
		out[head] = true
	}
	for _, req := range def.Required {
		out[req] = true
	}
	return out
}
