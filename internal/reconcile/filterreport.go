// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bonial-oss/vuln2bugs/internal/bugzilla"
	"github.com/bonial-oss/vuln2bugs/internal/config"
)

const filterReportBody = `Infosec vuln2bugs filtered vulnerabilities report

Vulnerabilities filtered by auto-triage policies are detailed in the attachment
for review. An exception should be included in vuln2bugs configuration for any
vulnerabilities listed here that should be auto-triaged.

Note this bug only contains filtered issues for teams that have filter reporting
enabled. This bug can be resolved once review is complete.
`

// FileFilterReport creates the cross-team audit ticket listing everything
// the triage filters dropped this run. It fires only on the configured
// weekday, so the report appears once per calendar week, and the ticket
// carries no autoentry whiteboard: the engine never updates or closes it.
func (r *Reconciler) FileFilterReport(ctx context.Context, cfg config.FilteredReport, segments []string) error {
	if len(segments) == 0 {
		return nil
	}
	if time.Weekday(cfg.Weekday) != r.now().UTC().Weekday() {
		r.log.Debugw("filter report not scheduled today", "scheduled", time.Weekday(cfg.Weekday).String())
		return nil
	}

	fields := bugzilla.TicketFields{
		Product:     cfg.Product,
		Component:   cfg.Component,
		Version:     cfg.Version,
		Status:      cfg.Status,
		Summary:     "vuln2bugs auto-triage filter report",
		Description: filterReportBody,
		Groups:      cfg.Groups,
		Priority:    cfg.Priority,
		Severity:    cfg.Severity,
	}
	id, err := r.backend.CreateTicket(ctx, fields)
	if err != nil {
		return fmt.Errorf("creating filter report ticket: %w", err)
	}
	err = r.backend.PostAttachment(ctx, id, bugzilla.NewAttachment{
		FileName: "filtered_vulns.txt",
		Summary:  "List of vulnerabilities filtered for teams with filter reporting enabled",
		Data:     strings.Join(segments, "\n"),
	})
	if err != nil {
		return fmt.Errorf("attaching filter report to ticket %d: %w", id, err)
	}
	r.log.Debugw("created filter report ticket", "ticket", id, "teams", len(segments))
	return nil
}
