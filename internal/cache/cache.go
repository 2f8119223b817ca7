// Package cache implements the incremental re-run cache behind
// `sigmos run --watch`: one fingerprint per watched .sigmos source
// path, so a filesystem event the watcher observes (which can fire on
// a metadata-only touch, or fire more than once for a single editor
// save) only triggers a re-execution when the spec actually changed.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// specHeader matches a spec's declaration line, e.g. `spec "greeting"
// v1.0.0 {`, so the cache can notice a rename or version bump even
// when the rest of the file's bytes are untouched.
var specHeader = regexp.MustCompile(`spec\s+(?:"([^"]*)"|'([^']*)')\s+(v[\w.]+)`)

// Entry is the cached fingerprint of one watched .sigmos source.
type Entry struct {
	Hash    string `json:"hash"`
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
}

// Cache stores one Entry per watched .sigmos path, persisted as JSON
// so a `--watch` session's fingerprints survive being restarted.
type Cache struct {
	Entries map[string]Entry `json:"entries"`
	path    string
}

// New creates an empty cache backed by cachePath (ignored if empty:
// an in-memory-only cache, used for the common case of a single `run
// --watch` invocation that never needs to persist across restarts).
func New(cachePath string) *Cache {
	return &Cache{
		Entries: make(map[string]Entry),
		path:    cachePath,
	}
}

// Load reads a previously-saved cache from cachePath. A missing file
// is not an error: it simply means every watched spec is unseen.
func Load(cachePath string) (*Cache, error) {
	c := New(cachePath)

	data, err := os.ReadFile(cachePath)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}

	if err := json.Unmarshal(data, &c.Entries); err != nil {
		return nil, fmt.Errorf("failed to parse cache: %w", err)
	}

	return c, nil
}

// Save persists the cache to disk. A no-op if the cache was built
// without a backing path.
func (c *Cache) Save() error {
	if c.path == "" {
		return nil
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.MarshalIndent(c.Entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}

	return nil
}

// fingerprint reads srcPath and derives its Entry: a content hash plus
// whatever spec name/version its header line declares, extracted with
// a plain regexp rather than a full parse so the watch loop stays
// cheap even on a spec with syntax errors mid-edit.
func fingerprint(srcPath string) (Entry, []byte, error) {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return Entry{}, nil, err
	}
	hash := sha256.Sum256(data)
	e := Entry{Hash: hex.EncodeToString(hash[:])}
	if m := specHeader.FindSubmatch(data); m != nil {
		e.Version = string(m[3])
		if len(m[1]) > 0 {
			e.Name = string(m[1])
		} else {
			e.Name = string(m[2])
		}
	}
	return e, data, nil
}

// NeedsRegeneration reports whether srcPath's spec changed since it
// was last recorded — either its bytes, or the declared name/version
// in its header, changed — and records the new fingerprint either
// way. A spec seen for the first time always needs regeneration.
func (c *Cache) NeedsRegeneration(srcPath string) (bool, error) {
	next, _, err := fingerprint(srcPath)
	if err != nil {
		return true, err
	}

	prev, exists := c.Entries[srcPath]
	c.Entries[srcPath] = next
	if !exists || prev != next {
		return true, nil
	}
	return false, nil
}

// UpdateHash records srcPath's current fingerprint without reporting
// whether it changed — used to seed the cache with a spec's baseline
// before the watcher starts reporting filesystem events for it.
func (c *Cache) UpdateHash(srcPath string) error {
	next, _, err := fingerprint(srcPath)
	if err != nil {
		return err
	}
	c.Entries[srcPath] = next
	return nil
}

// Remove drops srcPath's fingerprint, e.g. when a watched spec file is
// deleted or renamed away.
func (c *Cache) Remove(srcPath string) {
	delete(c.Entries, srcPath)
}

// Clear drops every recorded fingerprint.
func (c *Cache) Clear() {
	c.Entries = make(map[string]Entry)
}
