// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package bugzilla

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Ticket is the subset of bug fields the engine reads.
type Ticket struct {
	ID         int    `json:"id"`
	Creator    string `json:"creator"`
	Whiteboard string `json:"whiteboard"`
	Status     string `json:"status"`
	Resolution string `json:"resolution"`
	Summary    string `json:"summary"`
	AssignedTo string `json:"assigned_to"`
	Flags      []Flag `json:"flags"`
}

// Flag is one request flag on a ticket (e.g. needinfo).
type Flag struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	Requestee string `json:"requestee"`
	Setter    string `json:"setter"`
}

// Attachment is one stored attachment. Data stays base64 as the backend
// returns it; Decode converts it for hashing and diffing.
type Attachment struct {
	ID         int     `json:"id"`
	FileName   string  `json:"file_name"`
	Summary    string  `json:"summary"`
	Data       string  `json:"data"`
	IsObsolete BoolInt `json:"is_obsolete"`
}

// Decode returns the attachment content as text.
func (a Attachment) Decode() (string, error) {
	raw, err := base64.StdEncoding.DecodeString(a.Data)
	if err != nil {
		return "", fmt.Errorf("decoding attachment %d: %w", a.ID, err)
	}
	return string(raw), nil
}

// BoolInt accepts JSON booleans as well as the 0/1 integers the backend
// uses for boolean attachment fields.
type BoolInt bool

func (b *BoolInt) UnmarshalJSON(data []byte) error {
	var asBool bool
	if err := json.Unmarshal(data, &asBool); err == nil {
		*b = BoolInt(asBool)
		return nil
	}
	var asInt int
	if err := json.Unmarshal(data, &asInt); err != nil {
		return fmt.Errorf("boolean field is neither bool nor int: %s", data)
	}
	*b = asInt != 0
	return nil
}

func (b BoolInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(b))
}

// TicketFields is the field set for ticket creation.
type TicketFields struct {
	Product     string   `json:"product"`
	Component   string   `json:"component"`
	Version     string   `json:"version"`
	Status      string   `json:"status,omitempty"`
	Summary     string   `json:"summary"`
	Description string   `json:"description"`
	Groups      []string `json:"groups,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	Severity    string   `json:"severity,omitempty"`
	Whiteboard  string   `json:"whiteboard,omitempty"`
}

// TicketUpdate is a partial bug update; nil fields are left untouched.
type TicketUpdate struct {
	Summary    *string      `json:"summary,omitempty"`
	Status     *string      `json:"status,omitempty"`
	Resolution *string      `json:"resolution,omitempty"`
	Comment    *CommentBody `json:"comment,omitempty"`
	Flags      []FlagChange `json:"flags,omitempty"`
}

// CommentBody wraps a comment in the shape the update endpoint expects.
type CommentBody struct {
	Body string `json:"body"`
}

// FlagChange requests a flag mutation as part of a ticket update.
type FlagChange struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	Requestee string `json:"requestee,omitempty"`
	New       bool   `json:"new,omitempty"`
}

// NewAttachment is a to-be-posted attachment; Data is plain text and gets
// base64-encoded on the wire.
type NewAttachment struct {
	FileName string
	Summary  string
	Data     string
}

// AttachmentUpdate is a partial attachment update; nil fields are left
// untouched.
type AttachmentUpdate struct {
	IsObsolete *bool   `json:"is_obsolete,omitempty"`
	FileName   *string `json:"file_name,omitempty"`
}

// SearchCriteria selects tickets. Whiteboard tokens are substring matches;
// several statuses select the union.
type SearchCriteria struct {
	Product    string
	Component  string
	Creator    string
	Whiteboard []string
	Statuses   []string
}
