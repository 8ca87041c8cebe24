// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package types

// Sentinel values used where scanner output omits data. They surface in the
// rendered reports so a reader can tell "missing data" from "nothing found".
const (
	CVENotAvailable   = "CVE-NOTAVAILABLE"
	UnknownPackages   = "some_unknown_packages_see_details"
	NoPackageProvided = "No package name provided"
	NoOSProvided      = "No OS name provided"
	NoVersionProvided = "No version provided"
)

// Finding is one normalized vulnerability observation for one host, produced
// from exactly one raw scan entry.
type Finding struct {
	Title    string
	Risk     string // uppercased label, e.g. HIGH
	CVEs     []string
	CVSS     float64
	OS       string
	Packages []string // never empty; UnknownPackages placeholder when missing
	Version  string   // best effort, NoVersionProvided when unparseable
	Proof    string
	AgeDays  int
	Link     string
}

// Asset is one scanned host together with its findings. Hosts are keyed by
// the composite ipaddress|hostname pair.
type Asset struct {
	Hostname  string
	IPAddress string
	OS        string
	Findings  []Finding
}

// Key returns the composite map key for the asset.
func (a *Asset) Key() string {
	return a.IPAddress + "|" + a.Hostname
}

// Artifact is one rendered report attachment.
type Artifact struct {
	Filename string
	Summary  string
	Content  string
}

// TeamReport is the aggregate handed to the reconciler: everything needed to
// create or refresh one team's tracking ticket. Built fresh on every run and
// never persisted; its comparable form is the artifact content.
type TeamReport struct {
	Team            string
	Title           string
	Body            string
	Artifacts       []Artifact
	AffectedHosts   int
	OldestAgeDays   int
	PackageIndex    map[string]int
	FilteredSegment string
}
