package content

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/launchcopy-backend/internal/platform/apierr"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

type SyncTarget struct {
	Section   string `yaml:"section"`
	Field     string `yaml:"field"`
	Transform string `yaml:"transform"`
}

type SyncRule struct {
	SourceSection string       `yaml:"source_section"`
	SourceField   string       `yaml:"source_field"`
	Targets       []SyncTarget `yaml:"targets"`
}

func (r SyncRule) Name(t SyncTarget) string {
	return fmt.Sprintf("%s.%s->%s.%s", r.SourceSection, r.SourceField, t.Section, t.Field)
}

type Dependent struct {
	Section string `yaml:"section"`
	Deriver string `yaml:"deriver"`
}

type DependencyRule struct {
	SourceSection string      `yaml:"source_section"`
	WatchFields   []string    `yaml:"watch_fields"`
	Dependents    []Dependent `yaml:"dependents"`
}

type ruleFile struct {
	SyncRules       []SyncRule       `yaml:"sync_rules"`
	DependencyRules []DependencyRule `yaml:"dependency_rules"`
}

// RuleSet holds both static tables after validation. The runtime never
// detects cycles; they are rejected here, at load.
type RuleSet struct {
	sync []SyncRule
	deps []DependencyRule
}

func DefaultRules(registry *Registry) (*RuleSet, error) {
	return LoadRules(defaultRulesYAML, registry)
}

func LoadRules(raw []byte, registry *Registry) (*RuleSet, error) {
	var file ruleFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, apierr.Configuration("parse rule tables: %v", err)
	}

	for _, r := range file.SyncRules {
		if !registry.KnownType(r.SourceSection) {
			return nil, apierr.Configuration("sync rule source section %q is not registered", r.SourceSection)
		}
		if r.SourceField == "" {
			return nil, apierr.Configuration("sync rule for %q has empty source field", r.SourceSection)
		}
		for _, t := range r.Targets {
			if !registry.KnownType(t.Section) {
				return nil, apierr.Configuration("sync rule target section %q is not registered", t.Section)
			}
			if registry.DocumentLess(t.Section) {
				return nil, apierr.Configuration("sync rule target section %q is field-only", t.Section)
			}
			if t.Field == "" {
				return nil, apierr.Configuration("sync rule %s->%s has empty target field", r.SourceSection, t.Section)
			}
			if _, ok := Transform(t.Transform); !ok {
				return nil, apierr.Configuration("sync rule %s references unknown transform %q", r.Name(t), t.Transform)
			}
		}
	}
	for _, r := range file.DependencyRules {
		if !registry.KnownType(r.SourceSection) {
			return nil, apierr.Configuration("dependency rule source section %q is not registered", r.SourceSection)
		}
		for _, d := range r.Dependents {
			if !registry.KnownType(d.Section) {
				return nil, apierr.Configuration("dependent section %q is not registered", d.Section)
			}
			if registry.DocumentLess(d.Section) {
				return nil, apierr.Configuration("dependent section %q is field-only", d.Section)
			}
			if _, ok := Deriver(d.Deriver); !ok {
				return nil, apierr.Configuration("dependency rule %s->%s references unknown deriver %q", r.SourceSection, d.Section, d.Deriver)
			}
		}
	}

	rs := &RuleSet{sync: file.SyncRules, deps: file.DependencyRules}
	if cycle := rs.findCycle(); cycle != "" {
		return nil, apierr.Configuration("rule tables contain a cycle through %q", cycle)
	}
	return rs, nil
}

func (rs *RuleSet) SyncRulesFor(sectionType string) []SyncRule {
	var out []SyncRule
	for _, r := range rs.sync {
		if r.SourceSection == sectionType {
			out = append(out, r)
		}
	}
	return out
}

func (rs *RuleSet) DependencyRulesFor(sectionType string) []DependencyRule {
	var out []DependencyRule
	for _, r := range rs.deps {
		if r.SourceSection == sectionType {
			out = append(out, r)
		}
	}
	return out
}

// findCycle walks the combined edge set of both tables and returns a node on
// a cycle, or "".
func (rs *RuleSet) findCycle() string {
	edges := map[string][]string{}
	for _, r := range rs.sync {
		for _, t := range r.Targets {
			edges[r.SourceSection] = append(edges[r.SourceSection], t.Section)
		}
	}
	for _, r := range rs.deps {
		for _, d := range r.Dependents {
			edges[r.SourceSection] = append(edges[r.SourceSection], d.Section)
		}
	}

	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := map[string]int{}
	var visit func(node string) string
	visit = func(node string) string {
		state[node] = inStack
		for _, next := range edges[node] {
			switch state[next] {
			case inStack:
				return next
			case unvisited:
				if hit := visit(next); hit != "" {
					return hit
				}
			}
		}
		state[node] = done
		return ""
	}
	for node := range edges {
		if state[node] == unvisited {
			if hit := visit(node); hit != "" {
				return hit
			}
		}
	}
	return ""
}
