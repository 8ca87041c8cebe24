// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package aggregate groups normalized findings per host, applies the team
// triage policy, and produces the report inputs: detail text, CSV summary,
// package index, and the filtered-findings digest kept for audit.
package aggregate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/bonial-oss/vuln2bugs/internal/rules"
	"github.com/bonial-oss/vuln2bugs/internal/types"
)

// maxCVEChars bounds the CVE list embedded in the detail text. Applied
// before hashing so re-runs over the same data stay byte-identical.
const maxCVEChars = 64

const hostSeparator = "\n-----------------------------------------------------\n\n"

// Policy is the per-team triage policy. Nil MinCVSS or empty RiskLabels
// skip that filter dimension entirely.
type Policy struct {
	TeamKey    string
	TeamName   string
	MinCVSS    *float64
	RiskLabels []string
	Exceptions *rules.Set
}

// OwnerInfo enriches a host row in the extended artifact.
type OwnerInfo struct {
	Owner          string
	RequiresReview bool
}

// Result is everything the report renderer and reconciler need for one team.
type Result struct {
	DetailText      string
	ShortCSV        string
	ExtendedCSV     string
	AffectedHosts   int
	OldestAgeDays   int
	PackageIndex    map[string]int
	FilteredDigest  map[string]map[string]types.Finding
	FilteredSegment string
}

var pkgNamePattern = regexp.MustCompile(`^(.+?)[._-]\d`)

// ShortenPackage collapses a package filename like
// kernel-3.10.0-327.36.2.el7 to its leading name component. Inputs that do
// not match the name-separator-digit pattern pass through unchanged, which
// makes the operation idempotent.
func ShortenPackage(pkg string) string {
	m := pkgNamePattern.FindStringSubmatch(pkg)
	if m == nil {
		return pkg
	}
	return m[1]
}

// summarize truncates a rendered list to maxCVEChars with an explicit
// marker, so readers know data was cut rather than absent.
func summarize(s string) string {
	if len(s) > maxCVEChars {
		return s[:maxCVEChars] + " (truncated)"
	}
	return s
}

// Aggregate processes all assets under the team policy. Hosts are visited
// in sorted key order and all per-host sets are deduplicated and sorted, so
// identical input always renders byte-identical output. owners may be nil;
// when present an extended CSV with ownership columns is produced.
func Aggregate(p Policy, assets map[string]*types.Asset, owners map[string]OwnerInfo) Result {
	res := Result{
		PackageIndex:   make(map[string]int),
		FilteredDigest: make(map[string]map[string]types.Finding),
	}

	var detail, short, extended strings.Builder
	if owners != nil {
		extended.WriteString("hostname,ip,packages,tech_owner,requires_review\n")
	}

	keys := make([]string, 0, len(assets))
	for k := range assets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		asset := assets[key]
		kept, filtered := applyPolicy(p, asset.Findings)
		res.FilteredDigest[asset.Hostname] = filtered

		if len(kept) == 0 {
			continue
		}
		res.AffectedHosts++

		impacts := newStringSet()
		pkgs := newStringSet()
		cves := newStringSet()
		titles := newStringSet()
		titleLinks := make(map[string]string)

		for _, f := range kept {
			impacts.add(f.Risk)
			titles.add(f.Title)
			for _, pkg := range f.Packages {
				pkgs.add(ShortenPackage(pkg))
			}
			for _, cve := range f.CVEs {
				cves.add(cve)
			}
			if f.Link != "" {
				titleLinks[f.Title] = f.Link
			}
			if f.AgeDays > res.OldestAgeDays {
				res.OldestAgeDays = f.AgeDays
			}
		}
		for _, pkg := range pkgs.sorted() {
			res.PackageIndex[pkg]++
		}

		fmt.Fprintf(&detail, "%d vulnerabilities for %s %s\n\n", len(kept), asset.Hostname, asset.IPAddress)
		fmt.Fprintf(&detail, "Impact: %s\n", strings.Join(impacts.sorted(), ","))
		fmt.Fprintf(&detail, "CVES: %s\n", summarize(strings.Join(cves.sorted(), ",")))
		fmt.Fprintf(&detail, "OS: %s\n", asset.OS)
		fmt.Fprintf(&detail, "Packages to upgrade: %s\n", strings.Join(pkgs.sorted(), ","))
		detail.WriteString("Summary:\n")
		for _, title := range titles.sorted() {
			detail.WriteString(title)
			if link, ok := titleLinks[title]; ok {
				fmt.Fprintf(&detail, " (%s)", link)
			}
			detail.WriteString("\n")
		}
		detail.WriteString(hostSeparator)

		pkgList := strings.Join(pkgs.sorted(), " ")
		fmt.Fprintf(&short, "%s,%s,%s\n", asset.Hostname, asset.IPAddress, pkgList)
		if owners != nil {
			owner := owners[asset.Hostname]
			fmt.Fprintf(&extended, "%s,%s,%s,%s,%t\n",
				asset.Hostname, asset.IPAddress, pkgList, owner.Owner, owner.RequiresReview)
		}
	}

	res.DetailText = detail.String()
	res.ShortCSV = short.String()
	if owners != nil {
		res.ExtendedCSV = extended.String()
	}
	res.FilteredSegment = renderFilteredSegment(p.TeamName, res.FilteredDigest)
	return res
}

// applyPolicy splits findings into kept and filtered. Filtering is
// non-destructive bookkeeping: dropped findings are returned keyed by title
// for the audit digest. A finding survives a dimension when an exception
// rule matches or the dimension's criterion holds; an absent criterion
// skips that dimension.
func applyPolicy(p Policy, findings []types.Finding) ([]types.Finding, map[string]types.Finding) {
	filtered := make(map[string]types.Finding)
	kept := findings

	if p.MinCVSS != nil {
		buf := kept[:0:0]
		for _, f := range kept {
			if p.Exceptions.Match(p.TeamKey, f.Title) || (f.CVSS != 0 && f.CVSS >= *p.MinCVSS) {
				buf = append(buf, f)
			} else {
				filtered[f.Title] = f
			}
		}
		kept = buf
	}

	if len(p.RiskLabels) > 0 {
		buf := kept[:0:0]
		for _, f := range kept {
			if p.Exceptions.Match(p.TeamKey, f.Title) || labelAllowed(p.RiskLabels, f.Risk) {
				buf = append(buf, f)
			} else {
				filtered[f.Title] = f
			}
		}
		kept = buf
	}

	return kept, filtered
}

func labelAllowed(labels []string, risk string) bool {
	for _, l := range labels {
		if strings.EqualFold(l, risk) {
			return true
		}
	}
	return false
}

// renderFilteredSegment collapses the per-host digest into a unique sorted
// title list for the cross-team audit ticket.
func renderFilteredSegment(teamName string, digest map[string]map[string]types.Finding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "########## Filtered for %s\n", teamName)
	titles := newStringSet()
	for _, byTitle := range digest {
		for title := range byTitle {
			titles.add(title)
		}
	}
	if titles.len() == 0 {
		b.WriteString("None\n\n")
	} else {
		b.WriteString(strings.Join(titles.sorted(), "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

// stringSet is a dedup helper with deterministic sorted output.
type stringSet map[string]struct{}

func newStringSet() stringSet { return make(stringSet) }

func (s stringSet) add(v string) { s[v] = struct{}{} }

func (s stringSet) len() int { return len(s) }

func (s stringSet) sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
