// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// hashAnchor marks the substantive lines of the detail artifact. Content
// containing this anchor is hashed only over the anchor lines, so date and
// narrative changes alone never trigger a re-post.
const hashAnchor = "Packages to upgrade"

// ContentHash returns the normalized content hash used to compare candidate
// artifacts against stored attachments. Artifacts without the anchor are
// hashed in full.
func ContentHash(content string) string {
	data := content
	if strings.Contains(content, hashAnchor) {
		var b strings.Builder
		for _, line := range strings.Split(content, "\n") {
			if strings.HasPrefix(line, hashAnchor) {
				b.WriteString(line)
				b.WriteString("\n")
			}
		}
		data = b.String()
	}
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}
