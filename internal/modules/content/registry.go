package content

import (
	"fmt"

	"github.com/yungbote/launchcopy-backend/internal/platform/apierr"
)

// Section types are a closed set registered at startup. Adding a type means
// adding it here plus any rules that reference it; the rule loader rejects
// references to unknown types.
const (
	SectionCore          = "core"
	SectionBrandVoice    = "brand_voice"
	SectionEmailSequence = "email_sequence"
	SectionAdCopy        = "ad_copy"
	SectionLandingPage   = "landing_page"
	SectionVideoScript   = "video_script"
	SectionFooter        = "footer"
	SectionMediaAssets   = "media_assets"
)

// FieldDef describes one addressable field of a section. FieldID is a dotted
// path into the section document ("hero.headline").
type FieldDef struct {
	FieldID      string
	Label        string
	Type         string
	DefaultOrder int
	Metadata     map[string]any
}

// SectionDef is the static schema for one section type. Required keys are
// checked (not enforced) on document writes. DocumentLess sections never get
// a document; their fields are instantiated from defaults and written
// directly.
type SectionDef struct {
	Type         string
	Required     []string
	DocumentLess bool
	Fields       []FieldDef
}

type Registry struct {
	sections map[string]SectionDef
	order    []string
}

func NewRegistry(defs ...SectionDef) (*Registry, error) {
	r := &Registry{sections: make(map[string]SectionDef, len(defs))}
	for _, def := range defs {
		if def.Type == "" {
			return nil, fmt.Errorf("section def with empty type")
		}
		if _, exists := r.sections[def.Type]; exists {
			return nil, fmt.Errorf("duplicate section type %q", def.Type)
		}
		seen := map[string]bool{}
		for _, f := range def.Fields {
			if f.FieldID == "" {
				return nil, fmt.Errorf("section %q has a field with empty id", def.Type)
			}
			if seen[f.FieldID] {
				return nil, fmt.Errorf("section %q has duplicate field %q", def.Type, f.FieldID)
			}
			seen[f.FieldID] = true
		}
		r.sections[def.Type] = def
		r.order = append(r.order, def.Type)
	}
	return r, nil
}

func (r *Registry) KnownType(sectionType string) bool {
	_, ok := r.sections[sectionType]
	return ok
}

func (r *Registry) Section(sectionType string) (SectionDef, error) {
	def, ok := r.sections[sectionType]
	if !ok {
		return SectionDef{}, apierr.Configuration("unknown section type %q", sectionType)
	}
	return def, nil
}

func (r *Registry) FieldsFor(sectionType string) ([]FieldDef, error) {
	def, err := r.Section(sectionType)
	if err != nil {
		return nil, err
	}
	out := make([]FieldDef, len(def.Fields))
	copy(out, def.Fields)
	return out, nil
}

func (r *Registry) DocumentLess(sectionType string) bool {
	def, ok := r.sections[sectionType]
	return ok && def.DocumentLess
}

// Types returns the registered section types in registration order.
func (r *Registry) Types() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// FieldByID returns the def for a registered field id, if any.
func (r *Registry) FieldByID(sectionType, fieldID string) (FieldDef, bool) {
	def, ok := r.sections[sectionType]
	if !ok {
		return FieldDef{}, false
	}
	for _, f := range def.Fields {
		if f.FieldID == fieldID {
			return f, true
		}
	}
	return FieldDef{}, false
}

// DefaultRegistry is the production section set for the marketing content
// pipeline. The generation pipeline fills these shapes; humans approve the
// flattened fields.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(
		SectionDef{
			Type:     SectionCore,
			Required: []string{"name"},
			Fields: []FieldDef{
				{FieldID: "name", Label: "Business Name", Type: "text", DefaultOrder: 1},
				{FieldID: "tagline", Label: "Tagline", Type: "text", DefaultOrder: 2},
				{FieldID: "description", Label: "Description", Type: "text", DefaultOrder: 3},
				{FieldID: "value_props", Label: "Value Propositions", Type: "list", DefaultOrder: 4},
				{FieldID: "audience", Label: "Target Audience", Type: "text", DefaultOrder: 5},
				{FieldID: "contact_email", Label: "Contact Email", Type: "text", DefaultOrder: 6},
			},
		},
		SectionDef{
			Type: SectionBrandVoice,
			Fields: []FieldDef{
				{FieldID: "tone", Label: "Tone", Type: "text", DefaultOrder: 1},
				{FieldID: "keywords", Label: "Keywords", Type: "list", DefaultOrder: 2},
				{FieldID: "reading_level", Label: "Reading Level", Type: "text", DefaultOrder: 3},
				{FieldID: "banned_phrases", Label: "Banned Phrases", Type: "list", DefaultOrder: 4},
			},
		},
		SectionDef{
			Type: SectionEmailSequence,
			Fields: []FieldDef{
				{FieldID: "emails", Label: "Emails", Type: "list", DefaultOrder: 1},
				{FieldID: "signature", Label: "Signature", Type: "text", DefaultOrder: 2},
			},
		},
		SectionDef{
			Type:     SectionAdCopy,
			Required: []string{"headlines"},
			Fields: []FieldDef{
				{FieldID: "headlines", Label: "Headlines", Type: "list", DefaultOrder: 1},
				{FieldID: "descriptions", Label: "Descriptions", Type: "list", DefaultOrder: 2},
				{FieldID: "cta", Label: "Call To Action", Type: "text", DefaultOrder: 3},
				{FieldID: "keywords", Label: "Keywords", Type: "list", DefaultOrder: 4},
				{FieldID: "tone", Label: "Tone", Type: "text", DefaultOrder: 5},
			},
		},
		SectionDef{
			Type: SectionLandingPage,
			Fields: []FieldDef{
				{FieldID: "company_name", Label: "Company Name", Type: "text", DefaultOrder: 1},
				{FieldID: "hero.headline", Label: "Hero Headline", Type: "text", DefaultOrder: 2},
				{FieldID: "hero.subtitle", Label: "Hero Subtitle", Type: "text", DefaultOrder: 3},
				{FieldID: "sections", Label: "Page Sections", Type: "list", DefaultOrder: 4},
				{FieldID: "cta", Label: "Call To Action", Type: "text", DefaultOrder: 5},
			},
		},
		SectionDef{
			Type:     SectionVideoScript,
			Required: []string{"hook"},
			Fields: []FieldDef{
				{FieldID: "hook", Label: "Hook", Type: "text", DefaultOrder: 1},
				{FieldID: "scenes", Label: "Scenes", Type: "list", DefaultOrder: 2},
				{FieldID: "outro", Label: "Outro", Type: "text", DefaultOrder: 3},
			},
		},
		SectionDef{
			Type: SectionFooter,
			Fields: []FieldDef{
				{FieldID: "company_name", Label: "Company Name", Type: "text", DefaultOrder: 1},
				{FieldID: "contact_email", Label: "Contact Email", Type: "text", DefaultOrder: 2},
				{FieldID: "disclaimer", Label: "Disclaimer", Type: "text", DefaultOrder: 3},
			},
		},
		SectionDef{
			Type:         SectionMediaAssets,
			DocumentLess: true,
			Fields: []FieldDef{
				{FieldID: "logo_url", Label: "Logo", Type: "text", DefaultOrder: 1},
				{FieldID: "banner_url", Label: "Banner", Type: "text", DefaultOrder: 2},
				{FieldID: "og_image_url", Label: "Social Preview Image", Type: "text", DefaultOrder: 3},
			},
		},
	)
	if err != nil {
		// Static defs above; only reachable on a typo during development.
		panic(err)
	}
	return r
}
