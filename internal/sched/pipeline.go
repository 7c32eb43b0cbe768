package sched

import (
	"context"
	"fmt"
	"log"

	"github.com/linkhub/autopilot/internal/appdb"
	"github.com/linkhub/autopilot/internal/billing"
	"github.com/linkhub/autopilot/internal/config"
	"github.com/linkhub/autopilot/internal/domain"
	"github.com/linkhub/autopilot/internal/export"
	"github.com/linkhub/autopilot/internal/finder"
	"github.com/linkhub/autopilot/internal/outreach"
	"github.com/linkhub/autopilot/internal/report"
	"github.com/linkhub/autopilot/internal/tweets"
)

// LeadFinder runs a discovery pass and returns the new leads.
type LeadFinder interface {
	Run(ctx context.Context, opts finder.Options) ([]domain.Lead, error)
}

// Outreacher runs a DM batch.
type Outreacher interface {
	Run(ctx context.Context, opts outreach.RunOptions) (domain.RunSummary, error)
}

// Tweeter posts content and runs engagement searches.
type Tweeter interface {
	Post(ctx context.Context, custom string) error
	Engage(ctx context.Context, session tweets.Searcher) ([]finder.Candidate, error)
}

// Reporter delivers the operator emails.
type Reporter interface {
	Daily(ctx context.Context, app appdb.Stats, rev billing.Stats) (report.Result, error)
	Weekly(ctx context.Context, app appdb.Stats, rev billing.Stats) (report.Result, error)
	LeadList(ctx context.Context, leads []domain.Lead) (report.Result, error)
}

// AppStatsSource reads usage stats for reports. Optional.
type AppStatsSource interface {
	Fetch(ctx context.Context) (appdb.Stats, error)
}

// RevenueSource reads Stripe figures for reports. Optional.
type RevenueSource interface {
	Fetch(ctx context.Context) (billing.Stats, error)
}

// Pipeline wires the domain components into the scheduled routines.
type Pipeline struct {
	Finder   LeadFinder
	Outreach Outreacher
	Tweets   Tweeter
	Session  tweets.Searcher
	Reports  Reporter
	AppStats AppStatsSource
	Revenue  RevenueSource

	ExportDir string
	Clock     Clock

	FinderCfg   config.FinderConfig
	OutreachCfg config.OutreachConfig
}

// Morning is the 08:00 routine: find leads, export them, mail the
// list, start the morning DM batch, then send the daily report. The
// DM batch and report still run when the finder comes up empty.
func (p *Pipeline) Morning(ctx context.Context) error {
	log.Printf("[Scheduler] Morning routine starting")

	leads, err := p.Finder.Run(ctx, finder.Options{Count: p.FinderCfg.MorningTarget})
	if err != nil {
		log.Printf("[Scheduler] Morning lead search failed: %v", err)
	}

	if len(leads) > 0 {
		if path, err := export.LeadsCSV(p.ExportDir, leads, p.Clock()); err != nil {
			log.Printf("[Scheduler] Lead export failed: %v", err)
		} else {
			log.Printf("[Scheduler] Exported %d leads to %s", len(leads), path)
		}

		if _, err := p.Reports.LeadList(ctx, leads); err != nil {
			log.Printf("[Scheduler] Lead list email failed: %v", err)
		}
	}

	summary, err := p.Outreach.Run(ctx, outreach.RunOptions{Count: p.OutreachCfg.MorningBatch})
	if err != nil {
		log.Printf("[Scheduler] Morning DM batch stopped: %v", err)
	}
	log.Printf("[Scheduler] Morning DMs: sent %d, failed %d, skipped %d",
		summary.Sent, summary.Failed, summary.Skipped)

	return p.DailyReport(ctx)
}

// AfternoonDMs is the 15:00 routine: a smaller second DM batch.
func (p *Pipeline) AfternoonDMs(ctx context.Context) error {
	summary, err := p.Outreach.Run(ctx, outreach.RunOptions{Count: p.OutreachCfg.AfternoonBatch})
	if err != nil {
		return fmt.Errorf("afternoon DM batch: %w", err)
	}
	log.Printf("[Scheduler] Afternoon DMs: sent %d, failed %d, skipped %d",
		summary.Sent, summary.Failed, summary.Skipped)
	return nil
}

// Tweet posts the next rotation entry.
func (p *Pipeline) Tweet(ctx context.Context) error {
	return p.Tweets.Post(ctx, "")
}

// Engage runs an engagement search for accounts worth replying to.
func (p *Pipeline) Engage(ctx context.Context) error {
	_, err := p.Tweets.Engage(ctx, p.Session)
	return err
}

// DailyReport gathers stats and mails the daily snapshot.
func (p *Pipeline) DailyReport(ctx context.Context) error {
	app, rev := p.gatherStats(ctx)
	_, err := p.Reports.Daily(ctx, app, rev)
	return err
}

// WeeklyReport mails the Sunday summary.
func (p *Pipeline) WeeklyReport(ctx context.Context) error {
	app, rev := p.gatherStats(ctx)
	_, err := p.Reports.Weekly(ctx, app, rev)
	return err
}

// gatherStats pulls app and revenue figures. Either source being
// absent or failing yields zeroes; the report goes out regardless.
func (p *Pipeline) gatherStats(ctx context.Context) (appdb.Stats, billing.Stats) {
	var app appdb.Stats
	var rev billing.Stats
	if p.AppStats != nil {
		var err error
		if app, err = p.AppStats.Fetch(ctx); err != nil {
			log.Printf("[Scheduler] App stats unavailable: %v", err)
		}
	}
	if p.Revenue != nil {
		var err error
		if rev, err = p.Revenue.Fetch(ctx); err != nil {
			log.Printf("[Scheduler] Revenue stats unavailable: %v", err)
		}
	}
	return app, rev
}
