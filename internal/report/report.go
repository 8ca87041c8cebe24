// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package report renders aggregated findings into the fixed artifact set
// and the ticket title and body. Pure formatting, no I/O.
package report

import (
	"fmt"
	"strings"

	"github.com/bonial-oss/vuln2bugs/internal/aggregate"
	"github.com/bonial-oss/vuln2bugs/internal/types"
)

// Canonical artifact filenames. The reconciler matches attachments by these
// names, so they never change between runs.
const (
	ShortListName    = "short_list.csv"
	DetailedListName = "detailled_list.txt"
	ExtendedListName = "extended_list.txt"
)

// Params carries the rendering inputs that come from configuration. The
// link values are opaque here.
type Params struct {
	TeamKey      string
	TeamName     string
	FilterName   string
	DashboardURL string
	DocLink      string
	SLADays      int
}

// Render builds the team report from aggregator output. The artifact order
// is fixed: short CSV, detail text, then the extended CSV when present.
func Render(p Params, res aggregate.Result) *types.TeamReport {
	title := fmt.Sprintf("[%d hosts] Bulk vulnerability report for %s using filter: %s",
		res.AffectedHosts, p.TeamName, p.FilterName)

	var body strings.Builder
	fmt.Fprintf(&body, "Infosec vuln2bugs auto-triage for %s\n\n", p.TeamKey)
	fmt.Fprintf(&body, "A number of hosts belonging to %s have been identified as requiring patches.\n", p.TeamKey)
	fmt.Fprintf(&body, "Expected time to patch is within %d days unless otherwise indicated by other\n", p.SLADays)
	body.WriteString("bugs. See the attachments for details, attachments are updated based on current\n")
	body.WriteString("state each time vuln2bugs runs.\n")
	fmt.Fprintf(&body, "\nFor additional details, queries, etc. see also %s\n", p.DashboardURL)
	fmt.Fprintf(&body, "\nEscalation process details can be obtained from %s\n", p.DocLink)

	artifacts := []types.Artifact{
		{
			Filename: ShortListName,
			Summary:  "CSV list of affected ip,hostname,package(s)",
			Content:  res.ShortCSV,
		},
		{
			Filename: DetailedListName,
			Summary:  "Details including CVEs, OS, etc. affected",
			Content:  res.DetailText,
		},
	}
	if res.ExtendedCSV != "" {
		artifacts = append(artifacts, types.Artifact{
			Filename: ExtendedListName,
			Summary:  "Affected hosts with tech owner and review status",
			Content:  res.ExtendedCSV,
		})
	}

	return &types.TeamReport{
		Team:            p.TeamKey,
		Title:           title,
		Body:            body.String(),
		Artifacts:       artifacts,
		AffectedHosts:   res.AffectedHosts,
		OldestAgeDays:   res.OldestAgeDays,
		PackageIndex:    res.PackageIndex,
		FilteredSegment: res.FilteredSegment,
	}
}
