package content

import (
	"testing"
)

func TestGetSetPath(t *testing.T) {
	doc := map[string]any{
		"hero": map[string]any{"headline": "Launch fast"},
	}

	if v, ok := GetPath(doc, "hero.headline"); !ok || v != "Launch fast" {
		t.Fatalf("GetPath(hero.headline)=%v,%v", v, ok)
	}
	if _, ok := GetPath(doc, "hero.missing"); ok {
		t.Fatalf("GetPath on missing leaf must report absent")
	}
	if _, ok := GetPath(doc, "hero.headline.deeper"); ok {
		t.Fatalf("GetPath through a scalar must report absent")
	}

	updated := SetPath(doc, "hero.subtitle", "Ship today")
	if v, ok := GetPath(updated, "hero.subtitle"); !ok || v != "Ship today" {
		t.Fatalf("SetPath did not write: %v,%v", v, ok)
	}
	// Input document untouched.
	if _, ok := GetPath(doc, "hero.subtitle"); ok {
		t.Fatalf("SetPath mutated its input")
	}

	created := SetPath(map[string]any{}, "a.b.c", 1)
	if v, ok := GetPath(created, "a.b.c"); !ok || v != 1 {
		t.Fatalf("SetPath did not create intermediates: %v,%v", v, ok)
	}
}

func TestLeavesTreatsArraysAsLeaves(t *testing.T) {
	doc := map[string]any{
		"name": "Acme",
		"hero": map[string]any{"headline": "h"},
		"sections": []any{
			map[string]any{"title": "one"},
		},
	}
	leaves := Leaves(doc)
	if len(leaves) != 3 {
		t.Fatalf("leaf count: want 3, got %d (%v)", len(leaves), leaves)
	}
	if _, ok := leaves["sections"]; !ok {
		t.Fatalf("array must be a single leaf, got %v", leaves)
	}
	if _, ok := leaves["hero.headline"]; !ok {
		t.Fatalf("nested leaf missing, got %v", leaves)
	}
}

func TestNormalizeValueDeterministic(t *testing.T) {
	a := map[string]any{"b": 1, "a": "x", "c": []any{1, 2}}
	b := map[string]any{"c": []any{1, 2}, "a": "x", "b": 1}

	na, err := NormalizeValue(a)
	if err != nil {
		t.Fatalf("NormalizeValue: %v", err)
	}
	nb, err := NormalizeValue(b)
	if err != nil {
		t.Fatalf("NormalizeValue: %v", err)
	}
	if string(na) != string(nb) {
		t.Fatalf("normalization not deterministic: %s vs %s", na, nb)
	}
}

func TestCanonicalDocumentHashStable(t *testing.T) {
	doc := map[string]any{"name": "Acme", "tagline": "go fast"}

	_, h1, err := CanonicalDocument(doc)
	if err != nil {
		t.Fatalf("CanonicalDocument: %v", err)
	}
	_, h2, err := CanonicalDocument(CloneDocument(doc))
	if err != nil {
		t.Fatalf("CanonicalDocument: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("hash unstable across clones: %s vs %s", h1, h2)
	}

	_, h3, err := CanonicalDocument(map[string]any{"name": "Other", "tagline": "go fast"})
	if err != nil {
		t.Fatalf("CanonicalDocument: %v", err)
	}
	if h1 == h3 {
		t.Fatalf("different documents share a hash")
	}
}
