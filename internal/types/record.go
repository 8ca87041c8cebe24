// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RawRecord is one scan event as returned by the search backend: one host,
// scanned once, with zero or more vulnerabilities attached.
type RawRecord struct {
	UTCTimestamp string    `json:"utctimestamp"`
	SourceName   string    `json:"sourcename"`
	Description  string    `json:"description"`
	Zone         string    `json:"zone"`
	Version      int       `json:"version"`
	ScanStart    string    `json:"scan_start"`
	ScanEnd      string    `json:"scan_end"`
	Asset        AssetInfo `json:"asset"`
	Vulns        []RawVuln `json:"vulnerabilities"`
}

// AssetInfo identifies the scanned host.
type AssetInfo struct {
	Hostname  string `json:"hostname"`
	IPAddress string `json:"ipaddress"`
	OS        string `json:"os"`
	Owner     Owner  `json:"owner"`
}

// Owner carries the responsibility mapping attached to an asset.
type Owner struct {
	Operator string `json:"operator"`
	V2BKey   string `json:"v2bkey"`
	Team     string `json:"team"`
}

// RawVuln is one vulnerability entry inside a RawRecord. Two record variants
// exist in the wild: an older one carrying a flat vulnerable_packages list
// and a newer one carrying free-text proof. Both are accepted here.
type RawVuln struct {
	Name               string   `json:"name"`
	Risk               string   `json:"risk"`
	CVE                CVEList  `json:"cve"`
	CVSS               Score    `json:"cvss"`
	VulnerablePackages []string `json:"vulnerable_packages"`
	Proof              string   `json:"proof"`
	Output             string   `json:"output"`
	AgeDays            float64  `json:"age_days"`
	Link               string   `json:"link"`
}

// CVEList accepts either a single JSON string or an array of strings, since
// scanners disagree on the shape of the cve field.
type CVEList []string

func (c *CVEList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = nil
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if one == "" {
			*c = nil
			return nil
		}
		// Some scanners pack several CVEs into one comma-separated string.
		*c = splitCVEs(one)
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("cve field is neither string nor array: %w", err)
	}
	*c = many
	return nil
}

func splitCVEs(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Score accepts a CVSS score encoded as a JSON number or as a string, the
// latter being what scanapi-era records ship. Zero means "not provided".
type Score float64

func (s *Score) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = 0
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*s = Score(f)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("cvss field is neither number nor string: %w", err)
	}
	if str == "" {
		*s = 0
		return nil
	}
	f, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return fmt.Errorf("parsing cvss %q: %w", str, err)
	}
	*s = Score(f)
	return nil
}
