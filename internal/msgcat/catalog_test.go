package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultCatalogHasFallbacks(t *testing.T) {
	c := MustDefault()
	for _, key := range []string{
		"prompt.commentary",
		"fallback.best", "fallback.good", "fallback.inaccuracy",
		"fallback.mistake", "fallback.blunder", "fallback.unknown", "fallback.final",
	} {
		if !c.Has(key) {
			t.Fatalf("missing key %s", key)
		}
	}
}

func TestRenderFallback(t *testing.T) {
	c := MustDefault()
	got, err := c.Render("fallback.blunder", map[string]any{"SAN": "Qxh7"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(got, "Qxh7") || !strings.Contains(got, "loss") {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestRenderMissingKeyFails(t *testing.T) {
	c := MustDefault()
	if _, err := c.Render("fallback.best", map[string]any{}); err == nil {
		t.Fatal("expected missing key error")
	}
	if _, err := c.Render("no.such.key", nil); err == nil {
		t.Fatal("expected template not found")
	}
}

func TestOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.yaml")
	if err := os.WriteFile(path, []byte("fallback:\n  best: \"Top move {{.SAN}}.\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := New(path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got, err := c.Render("fallback.best", map[string]any{"SAN": "e4"})
	if err != nil || got != "Top move e4." {
		t.Fatalf("render = %q, %v", got, err)
	}
	if !c.Has("fallback.good") {
		t.Fatal("embedded keys lost after override")
	}
}

func TestOverrideDirRejectsDuplicates(t *testing.T) {
	dir := t.TempDir()
	body := []byte("fallback:\n  good: \"x\"\n")
	for _, name := range []string{"a.yaml", "b.yml"} {
		if err := os.WriteFile(filepath.Join(dir, name), body, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := New(dir); err == nil {
		t.Fatal("expected duplicate key error")
	}
}

func TestNonStringLeafRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("fallback:\n  best: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(path); err == nil {
		t.Fatal("expected unsupported value error")
	}
}
