package cache_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gaarutyunov/sigmos/internal/cache"
)

func TestNeedsRegenerationTracksContentHash(t *testing.T) {
	dir := t.TempDir()
	specPath := filepath.Join(dir, "a.sigmos")
	if err := os.WriteFile(specPath, []byte(`spec "a" v1.0.0 {}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	c := cache.New(filepath.Join(dir, ".cache.json"))

	needs, err := c.NeedsRegeneration(specPath)
	if err != nil {
		t.Fatalf("NeedsRegeneration: %v", err)
	}
	if !needs {
		t.Fatal("expected first check to need regeneration")
	}

	needs, err = c.NeedsRegeneration(specPath)
	if err != nil {
		t.Fatalf("NeedsRegeneration: %v", err)
	}
	if needs {
		t.Fatal("expected unchanged content to not need regeneration")
	}

	if err := os.WriteFile(specPath, []byte(`spec "a" v1.0.1 {}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	needs, err = c.NeedsRegeneration(specPath)
	if err != nil {
		t.Fatalf("NeedsRegeneration: %v", err)
	}
	if !needs {
		t.Fatal("expected changed content to need regeneration")
	}
}

func TestNeedsRegenerationTracksHeaderRename(t *testing.T) {
	dir := t.TempDir()
	specPath := filepath.Join(dir, "a.sigmos")
	body := `spec "a" v1.0.0 {}`
	if err := os.WriteFile(specPath, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	c := cache.New(filepath.Join(dir, ".cache.json"))
	if _, err := c.NeedsRegeneration(specPath); err != nil {
		t.Fatalf("NeedsRegeneration: %v", err)
	}

	renamed := `spec 'b' v1.0.0 {}`
	if err := os.WriteFile(specPath, []byte(renamed), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	needs, err := c.NeedsRegeneration(specPath)
	if err != nil {
		t.Fatalf("NeedsRegeneration: %v", err)
	}
	if !needs {
		t.Fatal("expected a spec name change to need regeneration")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	specPath := filepath.Join(dir, "a.sigmos")
	if err := os.WriteFile(specPath, []byte(`spec "a" v1.0.0 {}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cachePath := filepath.Join(dir, ".cache.json")

	c := cache.New(cachePath)
	if _, err := c.NeedsRegeneration(specPath); err != nil {
		t.Fatalf("NeedsRegeneration: %v", err)
	}
	if err := c.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := cache.Load(cachePath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	needs, err := reloaded.NeedsRegeneration(specPath)
	if err != nil {
		t.Fatalf("NeedsRegeneration: %v", err)
	}
	if needs {
		t.Fatal("expected reloaded cache to recognize the unchanged file")
	}
}
