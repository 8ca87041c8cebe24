// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package proof

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bonial-oss/vuln2bugs/internal/types"
)

func TestParse_Windows(t *testing.T) {
	text := `Vulnerable OS: Microsoft Windows 10 * Vulnerable software installed: Adobe Flash Player * affected version - 23.0.0.162 *`

	got := Parse(text)
	assert.Equal(t, "Adobe Flash Player", got.Package)
	assert.Equal(t, "Microsoft Windows 10", got.OS)
	assert.Equal(t, "23.0.0.162", got.Version)
}

func TestParse_WindowsRegistryHive(t *testing.T) {
	// No explicit affected-version span: version comes from the first
	// dotted-number token embedded in the package name.
	text := `HKEY_LOCAL_MACHINE\SOFTWARE\Microsoft\NET Framework Setup Vulnerable software installed: Microsoft .NET Framework 4.5.2 Vulnerable OS: Microsoft Windows Server 2012 R2`

	got := Parse(text)
	assert.Equal(t, "Microsoft .NET Framework 4.5.2", got.Package)
	assert.Equal(t, "Microsoft Windows Server 2012 R2", got.OS)
	assert.Equal(t, "4.5.2", got.Version)
}

func TestParse_WindowsMissingSoftwareSpan(t *testing.T) {
	// Matches the windows heuristic but carries no software span, so the
	// branch degrades to the sentinel triple.
	got := Parse("Vulnerable OS: Microsoft Windows 10")
	assert.Equal(t, types.NoPackageProvided, got.Package)
	assert.Equal(t, types.NoOSProvided, got.OS)
	assert.Equal(t, types.NoVersionProvided, got.Version)
}

func TestParse_USN(t *testing.T) {
	text := `Ubuntu 16.04 Vulnerable software installed: linux-image-generic 4.4.0.45.48`

	got := Parse(text)
	assert.Equal(t, "Ubuntu 16.04", got.OS)
	assert.Equal(t, "linux-image-generic", got.Package)
	assert.Equal(t, "4.4.0.45.48", got.Version)
}

func TestParse_SoftwareOnly(t *testing.T) {
	text := `Vulnerable software installed: OpenSSL Project OpenSSL 1.0.1e`

	got := Parse(text)
	assert.Equal(t, "OpenSSL Project OpenSSL", got.Package)
	assert.Equal(t, "", got.OS)
	assert.Equal(t, "1.0.1e", got.Version)
}

func TestParse_SoftwareOnlySingleToken(t *testing.T) {
	got := Parse("Vulnerable software installed: bash")
	assert.Equal(t, "bash", got.Package)
	assert.Equal(t, types.NoVersionProvided, got.Version)
}

func TestParse_RHSA(t *testing.T) {
	text := `Vulnerable OS: Red Hat Enterprise Linux 7 * kernel - version 3.10.0-327.36.2.el7 is installed`

	got := Parse(text)
	assert.Equal(t, "Red Hat Enterprise Linux 7", got.OS)
	assert.Equal(t, "kernel", got.Package)
	assert.Equal(t, "3.10.0-327.36.2.el7", got.Version)
}

func TestParse_Unrecognized(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "empty", text: ""},
		{name: "nessus output", text: "Remote package installed : kernel-3.10.0-327.36.2.el7\nShould be : kernel-3.10.0-327.36.3.el7"},
		{name: "whitespace", text: "   \n  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.text)
			assert.Equal(t, types.NoPackageProvided, got.Package, "unrecognized proof must yield sentinel package")
			assert.Equal(t, types.NoOSProvided, got.OS)
			assert.Equal(t, types.NoVersionProvided, got.Version)
		})
	}
}

func TestParse_RHSAMalformed(t *testing.T) {
	// RHSA branch matches but the version tail is missing.
	got := Parse("Vulnerable OS: CentOS 7 * kernel is installed")
	assert.Equal(t, types.NoPackageProvided, got.Package)
}
