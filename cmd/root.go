// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bonial-oss/vuln2bugs/internal/aggregate"
	"github.com/bonial-oss/vuln2bugs/internal/bugzilla"
	"github.com/bonial-oss/vuln2bugs/internal/config"
	"github.com/bonial-oss/vuln2bugs/internal/datasource/owners"
	"github.com/bonial-oss/vuln2bugs/internal/normalize"
	"github.com/bonial-oss/vuln2bugs/internal/output"
	"github.com/bonial-oss/vuln2bugs/internal/reconcile"
	"github.com/bonial-oss/vuln2bugs/internal/report"
	"github.com/bonial-oss/vuln2bugs/internal/rules"
	"github.com/bonial-oss/vuln2bugs/internal/search"
)

// Version is set at build time via ldflags.
var Version = "dev"

// ExitError signals a non-zero exit code with an optional message.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }

// Options holds all CLI flag values.
type Options struct {
	ConfigPath       string
	Team             string
	DryRun           bool
	SkipOwnersUpdate bool
	Verbose          bool
}

// NewRootCommand creates the root cobra command with all flags.
func NewRootCommand() *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:     "vuln2bugs",
		Short:   "Turn vulnerability scan data into per-team tracking tickets",
		Version: Version,
		Long: `vuln2bugs pulls the latest vulnerability scan records for each configured
team from the search backend, aggregates them into per-host findings, and
files or refreshes one tracking ticket per team. Attachments are compared
by content hash so repeated runs never double-post.

Usage:
  vuln2bugs --config /etc/vuln2bugs/vuln2bugs.yaml
  vuln2bugs -t it-opsec --dry-run`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", "vuln2bugs.yaml", "Path to the configuration file")
	flags.StringVarP(&opts.Team, "team", "t", "", "Process only this team key")
	flags.BoolVar(&opts.DryRun, "dry-run", false, "Render reports to stdout instead of touching the ticket backend")
	flags.BoolVar(&opts.SkipOwnersUpdate, "skip-owners-update", false, "Use the cached ownership map without update check")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable debug logging")

	return cmd
}

func newLogger(verbose bool) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger.Sugar(), nil
}

// run executes the full pipeline: fetch, normalize, aggregate, render,
// reconcile, one team at a time.
func run(opts *Options) error {
	log, err := newLogger(opts.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	teamKeys := cfg.TeamKeys()
	if opts.Team != "" {
		if _, ok := cfg.Teams[opts.Team]; !ok {
			return &ExitError{Code: 2, Message: fmt.Sprintf("unknown team: %s", opts.Team)}
		}
		teamKeys = []string{opts.Team}
	}

	exceptions, err := rules.Load(cfg.Exceptions)
	if err != nil {
		return err
	}
	log.Debugw("loaded exception rules", "count", exceptions.Len())

	ownersMap, err := loadOwners(cfg, teamKeys, opts.SkipOwnersUpdate)
	if err != nil {
		return err
	}

	searchClient := search.NewClient(cfg.Search, log)
	ticketClient := bugzilla.NewClient(cfg.Bugzilla.Host, cfg.Bugzilla.APIKey, log)
	reconciler := reconcile.New(ticketClient, cfg.Bugzilla.Creator, log)

	ctx := context.Background()
	var filterSegments []string
	ownershipViolations := 0

	for _, key := range teamKeys {
		team := cfg.Teams[key]
		filter := cfg.Filters[team.Filter]
		log.Debugw("processing team", "team", key, "filter", team.Filter)

		records, err := searchClient.TeamRecords(ctx, key, filter.SourceName, filter.Window())
		if err != nil {
			return fmt.Errorf("team %s: %w", key, err)
		}
		if len(records) == 0 {
			log.Debugw("no asset data found, skipping team", "team", key)
			continue
		}

		assets, err := normalize.Assets(records, team.DedupHostname)
		if err != nil {
			return fmt.Errorf("team %s: %w", key, err)
		}

		policy := aggregate.Policy{
			TeamKey:    key,
			TeamName:   team.Name,
			MinCVSS:    filter.MinCVSS,
			RiskLabels: filter.RiskLabels,
			Exceptions: exceptions,
		}
		var teamOwners map[string]aggregate.OwnerInfo
		if team.Extended {
			teamOwners = ownersMap
		}
		res := aggregate.Aggregate(policy, assets, teamOwners)
		log.Debugw("aggregated findings", "team", key, "affected_hosts", res.AffectedHosts, "oldest_age_days", res.OldestAgeDays)

		rep := report.Render(report.Params{
			TeamKey:      key,
			TeamName:     team.Name,
			FilterName:   team.Filter,
			DashboardURL: cfg.Search.DashboardURL,
			DocLink:      cfg.DocLink,
			SLADays:      config.SLADays,
		}, res)

		if team.ReportFiltered && cfg.FilteredReport != nil {
			filterSegments = append(filterSegments, res.FilteredSegment)
		}

		if opts.DryRun {
			output.WritePreview(os.Stdout, team.Name, rep, assets, output.IsOutputToTerminal(os.Stdout))
			continue
		}

		if err := reconciler.Reconcile(ctx, key, team, rep); err != nil {
			// An ownership violation aborts this team's ticket only; any
			// other backend failure aborts the run.
			if errors.Is(err, reconcile.ErrNotOwned) {
				log.Errorw("refusing to touch foreign ticket", "team", key, "error", err)
				ownershipViolations++
				continue
			}
			return fmt.Errorf("team %s: %w", key, err)
		}
	}

	if cfg.FilteredReport != nil && !opts.DryRun {
		if err := reconciler.FileFilterReport(ctx, *cfg.FilteredReport, filterSegments); err != nil {
			return err
		}
	}

	if ownershipViolations > 0 {
		return &ExitError{
			Code:    1,
			Message: fmt.Sprintf("%d ticket(s) skipped due to ownership violations", ownershipViolations),
		}
	}
	return nil
}

// loadOwners fetches the service-ownership map when any selected team opts
// into extended reporting. Teams without the option never trigger the
// download.
func loadOwners(cfg *config.Config, teamKeys []string, skipUpdate bool) (map[string]aggregate.OwnerInfo, error) {
	needed := false
	for _, key := range teamKeys {
		if cfg.Teams[key].Extended {
			needed = true
			break
		}
	}
	if !needed {
		return nil, nil
	}
	if cfg.Owners == nil {
		return nil, fmt.Errorf("config: a team enables extended reporting but no owners datasource is configured")
	}
	src := owners.NewSource(cfg.Owners.URL, cfg.Owners.CacheDir)
	if err := src.Load(skipUpdate); err != nil {
		return nil, err
	}
	return src.Map(), nil
}
