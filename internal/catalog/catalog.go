// Package catalog persists the mapping from Salesforce object type to
// Notion database id as a flat JSON file. The file is deliberately
// human-readable so an operator can point an object type at an existing
// database by hand.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Catalog is a load-on-open, mutate-in-memory, persist-on-save store.
// It is an explicit object handed to the engine, not package state.
type Catalog struct {
	path    string
	entries map[string]string
}

// Open loads the catalog from path. A missing file yields an empty catalog.
func Open(path string) (*Catalog, error) {
	c := &Catalog{
		path:    path,
		entries: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return c, nil
}

// DatabaseID returns the Notion database id mapped to objectType.
func (c *Catalog) DatabaseID(objectType string) (string, bool) {
	id, ok := c.entries[objectType]
	return id, ok
}

// SetDatabaseID records a mapping and persists the whole catalog.
func (c *Catalog) SetDatabaseID(objectType, databaseID string) error {
	c.entries[objectType] = databaseID

	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create catalog directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("write catalog %s: %w", c.path, err)
	}
	return nil
}
