// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package owners fetches the service-ownership map used to enrich the
// extended report artifact with tech-owner and review columns.
package owners

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/bonial-oss/vuln2bugs/internal/aggregate"
	"github.com/bonial-oss/vuln2bugs/internal/cache"
)

const (
	cacheFilename   = "service_owners.json"
	maxResponseSize = 10 * 1024 * 1024 // 10 MB
)

var httpClient = &http.Client{Timeout: 60 * time.Second}

// entry is the upstream JSON shape for one host.
type entry struct {
	Owner          string `json:"owner"`
	RequiresReview bool   `json:"requires_review"`
}

// Source provides the hostname -> ownership mapping with disk caching.
type Source struct {
	url     string
	cache   *cache.Cache
	entries map[string]aggregate.OwnerInfo
}

// NewSource creates an ownership datasource caching under cacheDir.
func NewSource(url, cacheDir string) *Source {
	return &Source{
		url:   url,
		cache: cache.New(cacheDir, cache.DefaultTTL),
	}
}

// Load fetches the ownership map, preferring the cache when fresh (or when
// skipUpdate is set), and falling back to a stale cache with a warning when
// the download fails. Only a failed download with no cache at all is fatal.
func (s *Source) Load(skipUpdate bool) error {
	if skipUpdate && s.cache.Exists(cacheFilename) {
		return s.loadFromCache()
	}
	if s.cache.IsFresh() {
		return s.loadFromCache()
	}

	data, err := s.download()
	if err == nil {
		if storeErr := s.cache.Store(cacheFilename, data); storeErr != nil {
			return fmt.Errorf("storing ownership map in cache: %w", storeErr)
		}
		return s.parse(data)
	}

	if s.cache.Exists(cacheFilename) {
		fmt.Fprintf(os.Stderr, "warning: failed to download ownership map (%v), using stale cache\n", err)
		return s.loadFromCache()
	}
	return fmt.Errorf("downloading ownership map: %w", err)
}

// Map returns the full hostname -> ownership mapping.
func (s *Source) Map() map[string]aggregate.OwnerInfo {
	return s.entries
}

func (s *Source) loadFromCache() error {
	data, err := s.cache.Load(cacheFilename)
	if err != nil {
		return fmt.Errorf("loading ownership map from cache: %w", err)
	}
	return s.parse(data)
}

func (s *Source) download() ([]byte, error) {
	resp, err := httpClient.Get(s.url)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, s.url)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return data, nil
}

func (s *Source) parse(data []byte) error {
	var raw map[string]entry
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshaling ownership map: %w", err)
	}
	s.entries = make(map[string]aggregate.OwnerInfo, len(raw))
	for hostname, e := range raw {
		s.entries[hostname] = aggregate.OwnerInfo{
			Owner:          e.Owner,
			RequiresReview: e.RequiresReview,
		}
	}
	return nil
}
