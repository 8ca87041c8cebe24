// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package search queries the search backend for raw scan records. One
// logical query exists: all records for a team key and source within a
// trailing time window.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/bonial-oss/vuln2bugs/internal/config"
	"github.com/bonial-oss/vuln2bugs/internal/types"
)

// Client talks to the search backend over its JSON search API.
type Client struct {
	host       string
	index      string
	maxResults int
	http       *http.Client
	log        *zap.SugaredLogger

	// now is injectable for tests.
	now func() time.Time
}

// NewClient builds a search client from configuration. The configured
// timeout bounds every request.
func NewClient(cfg config.Search, log *zap.SugaredLogger) *Client {
	return &Client{
		host:       cfg.Host,
		index:      cfg.Index,
		maxResults: cfg.MaxResults,
		http:       &http.Client{Timeout: cfg.Timeout()},
		log:        log,
		now:        time.Now,
	}
}

type searchRequest struct {
	Size  int             `json:"size"`
	Sort  []any           `json:"sort"`
	Query json.RawMessage `json:"query"`
}

type searchResponse struct {
	Shards struct {
		Total  int `json:"total"`
		Failed int `json:"failed"`
	} `json:"_shards"`
	Hits struct {
		Hits []struct {
			Source types.RawRecord `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// TeamRecords returns all scan records for the team within the window.
// Partial shard failures are an error: under-reporting security data
// silently is worse than failing the team's run.
func (c *Client) TeamRecords(ctx context.Context, team, sourceName string, window time.Duration) ([]types.RawRecord, error) {
	end := c.now().UTC()
	begin := end.Add(-window)

	query, err := json.Marshal(map[string]any{
		"bool": map[string]any{
			"must": []any{
				map[string]any{"range": map[string]any{"utctimestamp": map[string]any{
					"gte": begin.Format(time.RFC3339),
					"lte": end.Format(time.RFC3339),
				}}},
				map[string]any{"query_string": map[string]any{
					"query": fmt.Sprintf("asset.owner.v2bkey: %q", team),
				}},
				map[string]any{"match": map[string]any{"sourcename": sourceName}},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("building search query: %w", err)
	}

	body, err := json.Marshal(searchRequest{
		Size:  c.maxResults,
		Sort:  []any{map[string]any{"utctimestamp": map[string]any{"order": "asc"}}},
		Query: query,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling search request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/_search", c.host, c.index)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Debugw("querying search backend", "team", team, "window", window.String(), "source", sourceName)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("search backend returned HTTP %d", resp.StatusCode)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}
	if sr.Shards.Failed != 0 {
		return nil, fmt.Errorf("search reported %d of %d failed shards", sr.Shards.Failed, sr.Shards.Total)
	}

	records := make([]types.RawRecord, 0, len(sr.Hits.Hits))
	for _, hit := range sr.Hits.Hits {
		records = append(records, hit.Source)
	}
	c.log.Debugw("search backend returned records", "team", team, "count", len(records))
	return records, nil
}
