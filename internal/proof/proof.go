// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package proof extracts package, OS, and version facts out of free-text
// scanner proof strings. Each supported vendor phrasing gets one heuristic;
// unrecognized input degrades to sentinel values instead of failing.
package proof

import (
	"regexp"
	"strings"

	"github.com/bonial-oss/vuln2bugs/internal/types"
)

// Info is the best-effort result of parsing one proof string. All three
// fields are always populated, with sentinels on failure.
type Info struct {
	Package string
	OS      string
	Version string
}

func sentinel() Info {
	return Info{
		Package: types.NoPackageProvided,
		OS:      types.NoOSProvided,
		Version: types.NoVersionProvided,
	}
}

const softwareMarker = "Vulnerable software installed:"

// heuristic pairs a cheap predicate with an extractor tuned to one vendor's
// phrasing. Extractors report ok=false on unexpected shapes.
type heuristic struct {
	name    string
	match   func(string) bool
	extract func(string) (Info, bool)
}

// Dispatch order matters: first match wins, and a matching heuristic that
// fails to extract yields the sentinel triple rather than falling through.
var heuristics = []heuristic{
	{name: "windows", match: matchWindows, extract: extractWindows},
	{name: "usn", match: matchUSN, extract: extractUSN},
	{name: "software-only", match: matchSoftwareOnly, extract: extractSoftwareOnly},
	{name: "rhsa", match: matchRHSA, extract: extractRHSA},
}

// Parse turns a proof string into package/OS/version facts. It never fails:
// unrecognized or malformed input produces the sentinel triple.
func Parse(text string) Info {
	for _, h := range heuristics {
		if !h.match(text) {
			continue
		}
		if info, ok := h.extract(text); ok {
			return info
		}
		return sentinel()
	}
	return sentinel()
}

var (
	dottedVersion = regexp.MustCompile(`\d+(?:\.\d+)+`)
	usnShape      = regexp.MustCompile(`^(.*?\d[\d.]*)\s*` + regexp.QuoteMeta(softwareMarker) + `\s*(.+)$`)
)

// span returns the text between the first occurrence of start and the
// earliest following terminator (or end of string), trimmed.
func span(text, start string, terminators ...string) (string, bool) {
	idx := strings.Index(text, start)
	if idx < 0 {
		return "", false
	}
	rest := text[idx+len(start):]
	end := len(rest)
	for _, t := range terminators {
		if i := strings.Index(rest, t); i >= 0 && i < end {
			end = i
		}
	}
	return strings.TrimSpace(rest[:end]), true
}

func matchWindows(text string) bool {
	return strings.Contains(text, "Vulnerable OS: Microsoft Windows") ||
		strings.Contains(text, "HKEY_LOCAL_MACHINE")
}

func extractWindows(text string) (Info, bool) {
	pkg, ok := span(text, softwareMarker, "Vulnerable OS", "*", "Based")
	if !ok || pkg == "" {
		return Info{}, false
	}
	os, ok := span(text, "Vulnerable OS:", softwareMarker, "*", "Based")
	if !ok || os == "" {
		os = types.NoOSProvided
	}
	version, ok := span(text, "affected version - ", "*")
	if !ok || version == "" {
		// No explicit version span; fall back to the first dotted-number
		// token embedded in the package name.
		version = dottedVersion.FindString(pkg)
		if version == "" {
			version = types.NoVersionProvided
		}
	}
	return Info{Package: pkg, OS: os, Version: version}, true
}

func matchUSN(text string) bool {
	m := usnShape.FindStringSubmatch(text)
	return m != nil && strings.TrimSpace(m[1]) != ""
}

func extractUSN(text string) (Info, bool) {
	m := usnShape.FindStringSubmatch(text)
	if m == nil {
		return Info{}, false
	}
	os := strings.TrimSpace(m[1])
	fields := strings.Fields(m[2])
	if len(fields) < 2 {
		return Info{}, false
	}
	return Info{
		OS:      os,
		Package: fields[len(fields)-2],
		Version: fields[len(fields)-1],
	}, true
}

func matchSoftwareOnly(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), softwareMarker)
}

func extractSoftwareOnly(text string) (Info, bool) {
	rest := strings.TrimSpace(strings.TrimSpace(text)[len(softwareMarker):])
	fields := strings.Fields(rest)
	switch len(fields) {
	case 0:
		return Info{}, false
	case 1:
		return Info{Package: fields[0], OS: "", Version: types.NoVersionProvided}, true
	}
	return Info{
		Package: strings.Join(fields[:len(fields)-1], " "),
		OS:      "",
		Version: fields[len(fields)-1],
	}, true
}

func matchRHSA(text string) bool {
	return strings.Contains(text, "Vulnerable OS: ")
}

// extractRHSA handles the "Vulnerable OS: <os> * <pkg> - version <ver> is
// installed" phrasing used by RHSA-style proofs.
func extractRHSA(text string) (Info, bool) {
	_, rest, found := strings.Cut(text, "Vulnerable OS: ")
	if !found {
		return Info{}, false
	}
	os, pkgPart, found := strings.Cut(rest, "*")
	if !found {
		return Info{}, false
	}
	pkg, verPart, found := strings.Cut(pkgPart, " - ")
	if !found {
		return Info{}, false
	}
	_, verTail, found := strings.Cut(verPart, "version ")
	if !found {
		return Info{}, false
	}
	version, _, _ := strings.Cut(verTail, " is installed")
	version = strings.TrimSpace(version)
	if version == "" {
		return Info{}, false
	}
	return Info{
		Package: strings.TrimSpace(pkg),
		OS:      strings.TrimSpace(os),
		Version: version,
	}, true
}
