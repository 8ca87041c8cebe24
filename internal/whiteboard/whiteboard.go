// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package whiteboard implements the tag protocol embedded in the ticket
// whiteboard field. The whiteboard is the engine's only persistent state:
// ownership marker, lifecycle opt-ins, due date, and team key all live there.
package whiteboard

import (
	"strings"
	"time"
)

const (
	tagAutoEntry  = "autoentry"
	tagAutoClose  = "v2b-autoclose"
	tagAutoRemind = "v2b-autoremind"
	tagDueDate    = "v2b-duedate="
	tagKey        = "v2b-key="

	dateLayout = "2006-01-02"
)

// Tags is the structured form of a whiteboard string. DueDate is nil when
// the tag is absent or malformed; callers decide how to degrade.
type Tags struct {
	AutoEntry  bool
	AutoClose  bool
	AutoRemind bool
	DueDate    *time.Time
	Key        string
}

// Parse decodes a whiteboard string. Unknown tokens are ignored so manually
// added whiteboard text does not break the engine.
func Parse(s string) Tags {
	var t Tags
	for _, tok := range strings.Fields(s) {
		switch {
		case tok == tagAutoEntry:
			t.AutoEntry = true
		case tok == tagAutoClose:
			t.AutoClose = true
		case tok == tagAutoRemind:
			t.AutoRemind = true
		case strings.HasPrefix(tok, tagDueDate):
			if d, err := time.Parse(dateLayout, tok[len(tagDueDate):]); err == nil {
				d = d.UTC()
				t.DueDate = &d
			}
		case strings.HasPrefix(tok, tagKey):
			t.Key = tok[len(tagKey):]
		}
	}
	return t
}

// String serializes the tags in the canonical token order.
func (t Tags) String() string {
	var toks []string
	if t.AutoEntry {
		toks = append(toks, tagAutoEntry)
	}
	if t.AutoClose {
		toks = append(toks, tagAutoClose)
	}
	if t.AutoRemind {
		toks = append(toks, tagAutoRemind)
	}
	if t.DueDate != nil {
		toks = append(toks, tagDueDate+t.DueDate.Format(dateLayout))
	}
	if t.Key != "" {
		toks = append(toks, tagKey+t.Key)
	}
	return strings.Join(toks, " ")
}

// New returns the whiteboard tags set on every engine-created team ticket.
func New(key string, due time.Time) Tags {
	due = due.UTC().Truncate(24 * time.Hour)
	return Tags{
		AutoEntry:  true,
		AutoClose:  true,
		AutoRemind: true,
		DueDate:    &due,
		Key:        key,
	}
}
