// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bonial-oss/vuln2bugs/internal/types"
)

func TestFinding_FlatPackagesVariant(t *testing.T) {
	raw := types.RawVuln{
		Name:               "CentOS 7 : kernel (CESA-2016:2098) (Dirty COW)",
		Risk:               "high",
		CVE:                types.CVEList{"CVE-2016-5195"},
		CVSS:               7.2,
		VulnerablePackages: []string{"kernel-3.10.0-327.36.2.el7"},
		AgeDays:            12.7,
	}

	f := Finding(raw, "CentOS Linux release 7.2.1511")
	assert.Equal(t, "HIGH", f.Risk, "risk label must be uppercased")
	assert.Equal(t, []string{"CVE-2016-5195"}, f.CVEs)
	assert.Equal(t, []string{"kernel-3.10.0-327.36.2.el7"}, f.Packages)
	assert.Equal(t, "CentOS Linux release 7.2.1511", f.OS)
	assert.Equal(t, 12, f.AgeDays)
	assert.Equal(t, 7.2, f.CVSS)
}

func TestFinding_ProofVariant(t *testing.T) {
	raw := types.RawVuln{
		Name:  "RHSA-2016:2098 kernel",
		Risk:  "High",
		Proof: "Vulnerable OS: Red Hat Enterprise Linux 7 * kernel - version 3.10.0-327.36.2.el7 is installed",
	}

	f := Finding(raw, "")
	assert.Equal(t, []string{"kernel"}, f.Packages)
	assert.Equal(t, "3.10.0-327.36.2.el7", f.Version)
	assert.Equal(t, "Red Hat Enterprise Linux 7", f.OS, "OS falls back to the parsed proof when the asset carries none")
}

func TestFinding_FlatPackagesWinOverProof(t *testing.T) {
	raw := types.RawVuln{
		Name:               "both variants present",
		Risk:               "medium",
		VulnerablePackages: []string{"openssl-1.0.1e"},
		Proof:              "Vulnerable OS: CentOS 7 * kernel - version 1 is installed",
	}

	f := Finding(raw, "CentOS")
	assert.Equal(t, []string{"openssl-1.0.1e"}, f.Packages, "flat package list takes precedence over proof text")
}

func TestFinding_NoPackageInformation(t *testing.T) {
	f := Finding(types.RawVuln{Name: "mystery", Risk: "low"}, "os")
	assert.Equal(t, []string{types.UnknownPackages}, f.Packages,
		"a finding without package detail must carry the placeholder, never an empty list")
	assert.Equal(t, []string{types.CVENotAvailable}, f.CVEs,
		"missing CVE must surface as the sentinel, not be omitted")
}

func TestFinding_UnparseableProof(t *testing.T) {
	f := Finding(types.RawVuln{Name: "x", Risk: "low", Proof: "garbage text"}, "os")
	assert.Equal(t, []string{types.UnknownPackages}, f.Packages)
}

func record(ip, hostname string, vulns ...types.RawVuln) types.RawRecord {
	return types.RawRecord{
		Asset: types.AssetInfo{Hostname: hostname, IPAddress: ip, OS: "CentOS 7"},
		Vulns: vulns,
	}
}

func TestAssets(t *testing.T) {
	assets, err := Assets([]types.RawRecord{
		record("1.2.3.4", "a.example.com", types.RawVuln{Name: "v1", Risk: "high"}),
		record("1.2.3.5", "b.example.com"),
	}, false)
	require.NoError(t, err)
	require.Len(t, assets, 2)

	a := assets["1.2.3.4|a.example.com"]
	require.NotNil(t, a)
	assert.Len(t, a.Findings, 1)
}

func TestAssets_DuplicateKeyIsFatal(t *testing.T) {
	_, err := Assets([]types.RawRecord{
		record("1.2.3.4", "a.example.com"),
		record("1.2.3.4", "a.example.com"),
	}, false)
	assert.ErrorContains(t, err, "duplicate", "duplicate asset keys indicate upstream data corruption and must not be masked")
}

func TestAssets_DedupHostnameKeepsFirstSorted(t *testing.T) {
	// Same hostname behind two IPs: only the first in sorted key order
	// survives, regardless of input order.
	recs := []types.RawRecord{
		record("9.9.9.9", "a.example.com"),
		record("1.2.3.4", "a.example.com"),
	}
	assets, err := Assets(recs, true)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Contains(t, assets, "1.2.3.4|a.example.com")

	// Without the option both are kept.
	assets, err = Assets(recs, false)
	require.NoError(t, err)
	assert.Len(t, assets, 2)
}

func TestRawVuln_FlexibleFields(t *testing.T) {
	// cve as single string, cvss as quoted number: the scanapi-era shape.
	blob := `{"name":"n","risk":"high","cve":"CVE-2016-5195","cvss":"7.2","vulnerable_packages":["kernel"]}`
	var v types.RawVuln
	require.NoError(t, json.Unmarshal([]byte(blob), &v))
	assert.Equal(t, types.CVEList{"CVE-2016-5195"}, v.CVE)
	assert.Equal(t, 7.2, float64(v.CVSS))

	// cve as an array, cvss as a bare number: the newer shape.
	blob = `{"name":"n","risk":"high","cve":["CVE-1","CVE-2"],"cvss":9.8}`
	require.NoError(t, json.Unmarshal([]byte(blob), &v))
	assert.Equal(t, types.CVEList{"CVE-1", "CVE-2"}, v.CVE)
	assert.Equal(t, 9.8, float64(v.CVSS))
}
