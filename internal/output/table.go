// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package output renders the dry-run terminal preview: what would be
// reported per team without touching the ticket backend.
package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	aqtable "github.com/aquasecurity/table"
	"github.com/aquasecurity/tml"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/bonial-oss/vuln2bugs/internal/aggregate"
	"github.com/bonial-oss/vuln2bugs/internal/types"
)

// IsOutputToTerminal returns true if the writer is stdout connected to a
// character device (TTY), enabling ANSI styling.
func IsOutputToTerminal(output io.Writer) bool {
	return output == os.Stdout && term.IsTerminal(int(os.Stdout.Fd()))
}

var riskColors = map[string]func(a ...interface{}) string{
	"LOW":      color.New(color.FgBlue).SprintFunc(),
	"MEDIUM":   color.New(color.FgYellow).SprintFunc(),
	"HIGH":     color.New(color.FgHiRed).SprintFunc(),
	"CRITICAL": color.New(color.FgRed).SprintFunc(),
	"MAXIMUM":  color.New(color.FgRed).SprintFunc(),
}

// WritePreview renders one team's aggregated findings as a table, followed
// by the would-be ticket title and the filtered-findings summary.
func WritePreview(w io.Writer, teamName string, rep *types.TeamReport, assets map[string]*types.Asset, isTerminal bool) {
	writeHeader(w, fmt.Sprintf("%s (%d affected hosts)", teamName, rep.AffectedHosts), isTerminal)

	tw := aqtable.New(w)
	if isTerminal {
		tw.SetHeaderStyle(aqtable.StyleBold)
		tw.SetLineStyle(aqtable.StyleDim)
	}
	tw.SetBorders(true)
	tw.SetRowLines(true)
	tw.SetHeaders("Host", "IP", "Impact", "Packages", "CVEs")

	keys := make([]string, 0, len(assets))
	for k := range assets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		asset := assets[key]
		if len(asset.Findings) == 0 {
			continue
		}
		impacts := make(map[string]struct{})
		pkgs := make(map[string]struct{})
		cves := make(map[string]struct{})
		for _, f := range asset.Findings {
			impacts[f.Risk] = struct{}{}
			for _, p := range f.Packages {
				pkgs[aggregate.ShortenPackage(p)] = struct{}{}
			}
			for _, c := range f.CVEs {
				cves[c] = struct{}{}
			}
		}
		tw.AddRow(
			asset.Hostname,
			asset.IPAddress,
			colorizeImpacts(sortedKeys(impacts), isTerminal),
			strings.Join(sortedKeys(pkgs), "\n"),
			strings.Join(sortedKeys(cves), "\n"),
		)
	}
	tw.Render()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Ticket title: %s\n", rep.Title)
	if rep.FilteredSegment != "" {
		fmt.Fprintln(w)
		fmt.Fprint(w, rep.FilteredSegment)
	}
}

func writeHeader(w io.Writer, title string, isTerminal bool) {
	if isTerminal {
		_ = tml.Fprintf(w, "<underline><bold>%s</bold></underline>\n\n", title)
		return
	}
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("=", len(title)))
	fmt.Fprintln(w)
}

func colorizeImpacts(impacts []string, isTerminal bool) string {
	if !isTerminal {
		return strings.Join(impacts, "\n")
	}
	out := make([]string, 0, len(impacts))
	for _, impact := range impacts {
		if c, ok := riskColors[impact]; ok {
			out = append(out, c(impact))
		} else {
			out = append(out, impact)
		}
	}
	return strings.Join(out, "\n")
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
