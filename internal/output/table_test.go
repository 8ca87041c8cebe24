// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bonial-oss/vuln2bugs/internal/types"
)

func TestWritePreview(t *testing.T) {
	assets := map[string]*types.Asset{
		"1.2.3.4|hostname.mozilla.com": {
			Hostname:  "hostname.mozilla.com",
			IPAddress: "1.2.3.4",
			OS:        "CentOS 7",
			Findings: []types.Finding{
				{
					Title:    "CentOS 7 : kernel (CESA-2016:2098)",
					Risk:     "HIGH",
					CVEs:     []string{"CVE-2016-5195"},
					Packages: []string{"kernel-3.10.0-327.36.2.el7"},
				},
			},
		},
	}
	rep := &types.TeamReport{
		Title:           "[1 hosts] Bulk vulnerability report for opsec using filter: highonly",
		AffectedHosts:   1,
		FilteredSegment: "########## Filtered for opsec\nNone\n\n",
	}

	var buf bytes.Buffer
	WritePreview(&buf, "opsec", rep, assets, false)
	out := buf.String()

	assert.Contains(t, out, "opsec (1 affected hosts)")
	assert.Contains(t, out, "hostname.mozilla.com")
	assert.Contains(t, out, "kernel", "packages must appear shortened")
	assert.NotContains(t, out, "kernel-3.10.0", "full package names stay out of the preview")
	assert.Contains(t, out, "CVE-2016-5195")
	assert.Contains(t, out, "Ticket title: [1 hosts]")
	assert.Contains(t, out, "########## Filtered for opsec")
	assert.NotContains(t, out, "\x1b[", "no ANSI codes without a terminal")
}

func TestWritePreview_SkipsHostsWithoutFindings(t *testing.T) {
	assets := map[string]*types.Asset{
		"1.2.3.4|clean.example.com": {Hostname: "clean.example.com", IPAddress: "1.2.3.4"},
	}

	var buf bytes.Buffer
	WritePreview(&buf, "opsec", &types.TeamReport{Title: "t"}, assets, false)
	assert.NotContains(t, buf.String(), "clean.example.com")
}
