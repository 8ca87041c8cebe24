// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package config loads and validates the engine configuration file.
package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// SLADays is the remediation window granted on ticket creation.
const SLADays = 90

const (
	defaultWindowHours   = 24
	defaultSearchTimeout = 180 * time.Second
	defaultResultSize    = 10000
)

// Config is the full engine configuration.
type Config struct {
	Search         Search            `yaml:"search"`
	Bugzilla       Bugzilla          `yaml:"bugzilla"`
	Owners         *Owners           `yaml:"owners"`
	Filters        map[string]Filter `yaml:"filters"`
	Teams          map[string]Team   `yaml:"teams"`
	Exceptions     string            `yaml:"exceptions"`
	FilteredReport *FilteredReport   `yaml:"filteredreport"`
	DocLink        string            `yaml:"doclink"`
}

// Search configures the search backend holding raw scan records.
type Search struct {
	Host           string `yaml:"host"`
	Index          string `yaml:"index"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxResults     int    `yaml:"max_results"`
	DashboardURL   string `yaml:"dashboard_url"`
}

// Timeout bounds a single search request.
func (s Search) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return defaultSearchTimeout
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Bugzilla configures the ticket backend.
type Bugzilla struct {
	Host    string `yaml:"host"`
	APIKey  string `yaml:"api_key"`
	Creator string `yaml:"creator"`
}

// Owners configures the optional service-ownership datasource used for the
// extended report artifact.
type Owners struct {
	URL      string `yaml:"url"`
	CacheDir string `yaml:"cache_dir"`
}

// Filter is a named search filter shared by teams: which records to pull
// and which findings survive triage.
type Filter struct {
	SourceName  string   `yaml:"sourcename"`
	WindowHours int      `yaml:"time_period_hours"`
	MinCVSS     *float64 `yaml:"mincvss"`
	RiskLabels  []string `yaml:"risklabels"`
}

// Window returns the record time window, defaulting to 24 hours.
func (f Filter) Window() time.Duration {
	h := f.WindowHours
	if h <= 0 {
		h = defaultWindowHours
	}
	return time.Duration(h) * time.Hour
}

// Team is the per-team ticket setup.
type Team struct {
	Name           string   `yaml:"name"`
	Filter         string   `yaml:"filter"`
	Product        string   `yaml:"product"`
	Component      string   `yaml:"component"`
	Version        string   `yaml:"version"`
	Status         string   `yaml:"status"`
	Priority       string   `yaml:"priority"`
	Severity       string   `yaml:"severity"`
	Groups         []string `yaml:"groups"`
	DedupHostname  bool     `yaml:"deduphostname"`
	ReportFiltered bool     `yaml:"reportfiltered"`
	Extended       bool     `yaml:"extended"`
}

// FilteredReport configures the weekly cross-team audit ticket listing
// everything the triage filters dropped.
type FilteredReport struct {
	Weekday   int      `yaml:"weeklyrun"` // time.Weekday numbering, Sunday=0
	Product   string   `yaml:"product"`
	Component string   `yaml:"component"`
	Version   string   `yaml:"version"`
	Status    string   `yaml:"status"`
	Priority  string   `yaml:"priority"`
	Severity  string   `yaml:"severity"`
	Groups    []string `yaml:"groups"`
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = defaultResultSize
	}
	for key, team := range c.Teams {
		if team.Name == "" {
			team.Name = key
			c.Teams[key] = team
		}
	}
}

func (c *Config) validate() error {
	if c.Search.Host == "" {
		return fmt.Errorf("config: search.host is required")
	}
	if c.Search.Index == "" {
		return fmt.Errorf("config: search.index is required")
	}
	if c.Bugzilla.Host == "" {
		return fmt.Errorf("config: bugzilla.host is required")
	}
	if c.Bugzilla.Creator == "" {
		return fmt.Errorf("config: bugzilla.creator is required")
	}
	if len(c.Teams) == 0 {
		return fmt.Errorf("config: at least one team is required")
	}
	for key, team := range c.Teams {
		if team.Filter == "" {
			return fmt.Errorf("config: team %s: filter is required", key)
		}
		if _, ok := c.Filters[team.Filter]; !ok {
			return fmt.Errorf("config: team %s references unknown filter %q", key, team.Filter)
		}
	}
	if c.FilteredReport != nil {
		if c.FilteredReport.Weekday < 0 || c.FilteredReport.Weekday > 6 {
			return fmt.Errorf("config: filteredreport.weeklyrun must be 0-6, got %d", c.FilteredReport.Weekday)
		}
	}
	return nil
}

// TeamKeys returns the configured team keys in sorted order so each run
// processes teams deterministically.
func (c *Config) TeamKeys() []string {
	keys := make([]string, 0, len(c.Teams))
	for k := range c.Teams {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
