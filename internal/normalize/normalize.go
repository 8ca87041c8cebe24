// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package normalize turns raw scan records into canonical findings grouped
// by asset. This is the typed ingestion boundary: downstream code never
// re-checks field presence.
package normalize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bonial-oss/vuln2bugs/internal/proof"
	"github.com/bonial-oss/vuln2bugs/internal/types"
)

// Finding normalizes one raw vulnerability entry. assetOS is the OS string
// reported for the host, used when the proof text carries none.
//
// Package precedence: a non-empty vulnerable_packages list wins over the
// proof text; the proof is only parsed when the flat list is absent. A
// record with neither yields the single placeholder package so no
// vulnerability is ever dropped for lack of package detail.
func Finding(v types.RawVuln, assetOS string) types.Finding {
	f := types.Finding{
		Title:   v.Name,
		Risk:    strings.ToUpper(v.Risk),
		CVSS:    float64(v.CVSS),
		OS:      assetOS,
		Proof:   v.Proof,
		AgeDays: int(v.AgeDays),
		Link:    v.Link,
		Version: types.NoVersionProvided,
	}

	if len(v.CVE) > 0 {
		f.CVEs = append([]string(nil), v.CVE...)
	} else {
		f.CVEs = []string{types.CVENotAvailable}
	}

	switch {
	case len(v.VulnerablePackages) > 0:
		f.Packages = append([]string(nil), v.VulnerablePackages...)
	case v.Proof != "":
		info := proof.Parse(v.Proof)
		if info.Package != types.NoPackageProvided {
			f.Packages = []string{info.Package}
			f.Version = info.Version
			if f.OS == "" && info.OS != types.NoOSProvided {
				f.OS = info.OS
			}
		} else {
			f.Packages = []string{types.UnknownPackages}
		}
	default:
		f.Packages = []string{types.UnknownPackages}
	}

	return f
}

// Assets builds the asset map from raw records, keyed ipaddress|hostname.
// Records are processed in sorted key order so hostname dedup is stable
// across runs. A duplicate composite key is a data-integrity error and is
// never masked.
func Assets(records []types.RawRecord, dedupHostname bool) (map[string]*types.Asset, error) {
	sorted := append([]types.RawRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return recordKey(sorted[i]) < recordKey(sorted[j])
	})

	assets := make(map[string]*types.Asset, len(sorted))
	seenHostnames := make(map[string]bool, len(sorted))
	for _, rec := range sorted {
		if dedupHostname && seenHostnames[rec.Asset.Hostname] {
			continue
		}
		a := &types.Asset{
			Hostname:  rec.Asset.Hostname,
			IPAddress: rec.Asset.IPAddress,
			OS:        rec.Asset.OS,
		}
		key := a.Key()
		if _, dup := assets[key]; dup {
			return nil, fmt.Errorf("duplicate ipaddress|hostname key %q in scan results", key)
		}
		for _, v := range rec.Vulns {
			a.Findings = append(a.Findings, Finding(v, rec.Asset.OS))
		}
		assets[key] = a
		seenHostnames[rec.Asset.Hostname] = true
	}
	return assets, nil
}

func recordKey(r types.RawRecord) string {
	return r.Asset.IPAddress + "|" + r.Asset.Hostname
}
