// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package cache is a small on-disk TTL cache for downloaded datasource
// payloads, so repeated runs do not hammer upstream services.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultTTL is how long a stored payload counts as fresh.
const DefaultTTL = 24 * time.Hour

type metadata struct {
	FetchedAt string `json:"fetched_at"`
}

// Cache stores one or more named payloads under a directory, with a single
// freshness timestamp updated on every Store.
type Cache struct {
	dir string
	ttl time.Duration
}

// New creates a cache rooted at dir. A non-positive ttl falls back to
// DefaultTTL.
func New(dir string, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{dir: dir, ttl: ttl}
}

// IsFresh reports whether the last Store happened within the TTL. Missing
// or unreadable metadata counts as stale.
func (c *Cache) IsFresh() bool {
	data, err := os.ReadFile(filepath.Join(c.dir, "metadata.json"))
	if err != nil {
		return false
	}
	var meta metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return false
	}
	fetchedAt, err := time.Parse(time.RFC3339, meta.FetchedAt)
	if err != nil {
		return false
	}
	return time.Since(fetchedAt) < c.ttl
}

// Store writes a payload and refreshes the freshness timestamp.
func (c *Cache) Store(filename string, data []byte) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(c.dir, filename), data, 0o644); err != nil {
		return fmt.Errorf("writing cache payload: %w", err)
	}
	meta, err := json.Marshal(metadata{FetchedAt: time.Now().UTC().Format(time.RFC3339)})
	if err != nil {
		return fmt.Errorf("marshaling cache metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(c.dir, "metadata.json"), meta, 0o644); err != nil {
		return fmt.Errorf("writing cache metadata: %w", err)
	}
	return nil
}

// Load reads a previously stored payload.
func (c *Cache) Load(filename string) ([]byte, error) {
	return os.ReadFile(filepath.Join(c.dir, filename))
}

// Exists reports whether a payload with the given name is present,
// regardless of freshness.
func (c *Cache) Exists(filename string) bool {
	_, err := os.Stat(filepath.Join(c.dir, filename))
	return err == nil
}
