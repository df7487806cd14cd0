package content

import (
	"fmt"
)

// DeriveFunc recomputes a dependent section's document from the source
// fields that actually changed. It receives only the changed fields (keyed
// by source field id) and a copy of the dependent's current document, and
// returns the updated document. Derivers must be pure: re-running one with
// the same inputs yields the same output.
type DeriveFunc func(changed map[string]any, target map[string]any) map[string]any

var derivers = map[string]DeriveFunc{
	"landing_page_from_core":    deriveLandingPageFromCore,
	"email_signature_from_core": deriveEmailSignatureFromCore,
	"ad_copy_from_brand_voice":  deriveAdCopyFromBrandVoice,
}

func Deriver(name string) (DeriveFunc, bool) {
	fn, ok := derivers[name]
	return fn, ok
}

func deriveLandingPageFromCore(changed map[string]any, target map[string]any) map[string]any {
	out := target
	if name, ok := changed["name"].(string); ok {
		out = SetPath(out, "company_name", name)
	}
	if tagline, ok := changed["tagline"].(string); ok {
		out = SetPath(out, "hero.subtitle", tagline)
	}
	if props, ok := changed["value_props"].([]any); ok {
		sections := make([]any, 0, len(props))
		for _, p := range props {
			sections = append(sections, map[string]any{"title": fmt.Sprintf("%v", p)})
		}
		out = SetPath(out, "sections", sections)
	}
	return out
}

func deriveEmailSignatureFromCore(changed map[string]any, target map[string]any) map[string]any {
	out := target
	if name, ok := changed["name"].(string); ok && name != "" {
		out = SetPath(out, "signature", fmt.Sprintf("The %s Team", name))
	}
	return out
}

func deriveAdCopyFromBrandVoice(changed map[string]any, target map[string]any) map[string]any {
	out := target
	if tone, ok := changed["tone"].(string); ok {
		out = SetPath(out, "tone", tone)
	}
	return out
}
