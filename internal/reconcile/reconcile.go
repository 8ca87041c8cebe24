// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package reconcile keeps one tracking ticket per team in sync with the
// latest rendered report: create, update attachments by content hash,
// remind on overdue, or close, without ever double-posting.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bonial-oss/vuln2bugs/internal/bugzilla"
	"github.com/bonial-oss/vuln2bugs/internal/config"
	"github.com/bonial-oss/vuln2bugs/internal/types"
	"github.com/bonial-oss/vuln2bugs/internal/whiteboard"
)

// openStatuses is the status set a ticket may be in to count as open.
var openStatuses = []string{"NEW", "ASSIGNED", "REOPENED", "UNCONFIRMED"}

// ErrNotOwned reports a ticket that matched the lookup but fails the
// ownership precondition. Processing of that ticket must stop.
var ErrNotOwned = errors.New("ticket is not managed by this engine")

// Backend is the ticket-system surface the reconciler needs. The REST
// client implements it; tests use a fake.
type Backend interface {
	CreateTicket(ctx context.Context, fields bugzilla.TicketFields) (int, error)
	UpdateTicket(ctx context.Context, id int, update bugzilla.TicketUpdate) error
	SearchTickets(ctx context.Context, criteria bugzilla.SearchCriteria) ([]bugzilla.Ticket, error)
	ListAttachments(ctx context.Context, id int) ([]bugzilla.Attachment, error)
	PostAttachment(ctx context.Context, id int, a bugzilla.NewAttachment) error
	UpdateAttachment(ctx context.Context, attachmentID int, update bugzilla.AttachmentUpdate) error
	PostComment(ctx context.Context, id int, text string) error
	SetNeedinfo(ctx context.Context, id int, requestee string) error
}

// Reconciler drives the per-team ticket lifecycle.
type Reconciler struct {
	backend Backend
	creator string
	log     *zap.SugaredLogger

	// now is injectable for tests.
	now func() time.Time
}

// New creates a reconciler acting as the given creator identity.
func New(backend Backend, creator string, log *zap.SugaredLogger) *Reconciler {
	return &Reconciler{
		backend: backend,
		creator: creator,
		log:     log,
		now:     time.Now,
	}
}

// Reconcile advances the ticket lifecycle for one team based on the freshly
// rendered report. Safe to run repeatedly: a second run over identical data
// performs no write beyond the reminder check.
func (r *Reconciler) Reconcile(ctx context.Context, teamKey string, team config.Team, rep *types.TeamReport) error {
	ticket, err := r.findLatestOpen(ctx, teamKey, team)
	if err != nil {
		return err
	}

	if ticket == nil {
		if rep.AffectedHosts == 0 {
			r.log.Debugw("no findings and no open ticket, nothing to do", "team", teamKey)
			return nil
		}
		return r.create(ctx, teamKey, team, rep)
	}

	if err := r.assertOwned(ticket); err != nil {
		return err
	}
	tags := whiteboard.Parse(ticket.Whiteboard)

	if rep.AffectedHosts == 0 {
		if !tags.AutoClose {
			r.log.Debugw("no findings but ticket lacks autoclose tag, leaving open", "team", teamKey, "ticket", ticket.ID)
			return nil
		}
		return r.close(ctx, ticket)
	}

	updated, err := r.syncAttachments(ctx, ticket, rep)
	if err != nil {
		return err
	}
	if updated {
		summary := rep.Title
		if err := r.backend.UpdateTicket(ctx, ticket.ID, bugzilla.TicketUpdate{Summary: &summary}); err != nil {
			return fmt.Errorf("updating ticket %d summary: %w", ticket.ID, err)
		}
		r.log.Debugw("updated ticket", "team", teamKey, "ticket", ticket.ID)
		return nil
	}

	if tags.AutoRemind {
		return r.remind(ctx, ticket, tags)
	}
	r.log.Debugw("ticket current, no reminder configured", "team", teamKey, "ticket", ticket.ID)
	return nil
}

// findLatestOpen looks up the newest open engine-owned ticket for the team.
func (r *Reconciler) findLatestOpen(ctx context.Context, teamKey string, team config.Team) (*bugzilla.Ticket, error) {
	tickets, err := r.backend.SearchTickets(ctx, bugzilla.SearchCriteria{
		Product:    team.Product,
		Component:  team.Component,
		Creator:    r.creator,
		Whiteboard: []string{"autoentry", "v2b-key=" + teamKey},
		Statuses:   openStatuses,
	})
	if err != nil {
		return nil, fmt.Errorf("searching tickets for %s: %w", teamKey, err)
	}
	if len(tickets) == 0 {
		return nil, nil
	}
	// Backend order is stable by id; the last match is the newest.
	t := tickets[len(tickets)-1]
	return &t, nil
}

// assertOwned enforces the mutation safety invariant: only tickets this
// engine created and tagged may ever be touched.
func (r *Reconciler) assertOwned(t *bugzilla.Ticket) error {
	if t.Creator != r.creator {
		return fmt.Errorf("ticket %d creator %q != engine identity %q: %w", t.ID, t.Creator, r.creator, ErrNotOwned)
	}
	if !whiteboard.Parse(t.Whiteboard).AutoEntry {
		return fmt.Errorf("ticket %d whiteboard lacks autoentry tag: %w", t.ID, ErrNotOwned)
	}
	return nil
}

func (r *Reconciler) create(ctx context.Context, teamKey string, team config.Team, rep *types.TeamReport) error {
	due := r.now().UTC().AddDate(0, 0, config.SLADays)
	fields := bugzilla.TicketFields{
		Product:     team.Product,
		Component:   team.Component,
		Version:     team.Version,
		Status:      team.Status,
		Summary:     rep.Title,
		Description: rep.Body,
		Groups:      team.Groups,
		Priority:    team.Priority,
		Severity:    team.Severity,
		Whiteboard:  whiteboard.New(teamKey, due).String(),
	}
	id, err := r.backend.CreateTicket(ctx, fields)
	if err != nil {
		return fmt.Errorf("creating ticket for %s: %w", teamKey, err)
	}
	for _, a := range rep.Artifacts {
		if err := r.backend.PostAttachment(ctx, id, bugzilla.NewAttachment{
			FileName: a.Filename,
			Summary:  a.Summary,
			Data:     a.Content,
		}); err != nil {
			return fmt.Errorf("posting %s to new ticket %d: %w", a.Filename, id, err)
		}
	}
	r.log.Debugw("created ticket", "team", teamKey, "ticket", id, "hosts", rep.AffectedHosts)
	return nil
}

func (r *Reconciler) close(ctx context.Context, t *bugzilla.Ticket) error {
	status := "RESOLVED"
	resolution := "FIXED"
	err := r.backend.UpdateTicket(ctx, t.ID, bugzilla.TicketUpdate{
		Status:     &status,
		Resolution: &resolution,
	})
	if err != nil {
		return fmt.Errorf("closing ticket %d: %w", t.ID, err)
	}
	r.log.Debugw("closed ticket, no affected hosts remain", "ticket", t.ID)
	return nil
}

// syncAttachments posts every candidate artifact whose normalized hash is
// not already stored, obsoleting same-named predecessors first. Returns
// whether anything was posted.
func (r *Reconciler) syncAttachments(ctx context.Context, t *bugzilla.Ticket, rep *types.TeamReport) (bool, error) {
	existing, err := r.backend.ListAttachments(ctx, t.ID)
	if err != nil {
		return false, fmt.Errorf("listing attachments of %d: %w", t.ID, err)
	}

	oldHashes := make(map[string]bugzilla.Attachment)
	var live []bugzilla.Attachment
	for _, a := range existing {
		if bool(a.IsObsolete) {
			continue
		}
		text, err := a.Decode()
		if err != nil {
			return false, err
		}
		oldHashes[ContentHash(text)] = a
		live = append(live, a)
	}

	posted := false
	for _, candidate := range rep.Artifacts {
		if _, current := oldHashes[ContentHash(candidate.Content)]; current {
			continue
		}
		// Mark any same-named live attachment obsolete first: the backend
		// has no atomic replace-on-upload.
		for _, old := range live {
			if old.FileName != candidate.Filename {
				continue
			}
			obsolete := true
			name := old.FileName
			if err := r.backend.UpdateAttachment(ctx, old.ID, bugzilla.AttachmentUpdate{
				IsObsolete: &obsolete,
				FileName:   &name,
			}); err != nil {
				return posted, fmt.Errorf("obsoleting attachment %d: %w", old.ID, err)
			}
			r.log.Debugw("obsoleted superseded attachment", "ticket", t.ID, "attachment", old.ID, "file", old.FileName)
		}
		if err := r.backend.PostAttachment(ctx, t.ID, bugzilla.NewAttachment{
			FileName: candidate.Filename,
			Summary:  candidate.Summary,
			Data:     candidate.Content,
		}); err != nil {
			return posted, fmt.Errorf("posting attachment %s: %w", candidate.Filename, err)
		}
		posted = true
	}
	return posted, nil
}

// remind sets a needinfo flag on the assignee when the ticket is past its
// whiteboard due date. Idempotent: an already-pending needinfo from the
// ticket creator suppresses both the flag and the comment.
func (r *Reconciler) remind(ctx context.Context, t *bugzilla.Ticket, tags whiteboard.Tags) error {
	now := r.now().UTC()
	due := now
	if tags.DueDate != nil {
		due = *tags.DueDate
	} else {
		r.log.Debugw("whiteboard due date missing or malformed, treating as due today", "ticket", t.ID)
	}
	if !due.Before(now) {
		r.log.Debugw("ticket within SLA, no reminder", "ticket", t.ID, "due", due.Format("2006-01-02"))
		return nil
	}

	if needinfoPending(t) {
		r.log.Debugw("needinfo already pending, skipping reminder", "ticket", t.ID, "requestee", t.AssignedTo)
		return nil
	}

	// The backend may reject needinfo for users who deny such requests;
	// that is a soft failure for the run.
	if err := r.backend.SetNeedinfo(ctx, t.ID, t.AssignedTo); err != nil {
		r.log.Debugw("setting needinfo failed, continuing", "ticket", t.ID, "error", err)
		return nil
	}
	comment := fmt.Sprintf("Bug is past due date (out of SLA - was due for %s, we are %s).",
		due.Format("2006-01-02"), now.Format("2006-01-02"))
	if err := r.backend.PostComment(ctx, t.ID, comment); err != nil {
		return fmt.Errorf("posting overdue comment on %d: %w", t.ID, err)
	}
	r.log.Debugw("reminded assignee of overdue ticket", "ticket", t.ID, "requestee", t.AssignedTo)
	return nil
}

// needinfoPending reports whether a needinfo request from the ticket
// creator to the assignee is already outstanding.
func needinfoPending(t *bugzilla.Ticket) bool {
	for _, f := range t.Flags {
		if f.Name == "needinfo" && f.Requestee == t.AssignedTo && f.Setter == t.Creator {
			return true
		}
	}
	return false
}
