package outreach

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/linkhub/autopilot/internal/config"
	"github.com/linkhub/autopilot/internal/domain"
	"github.com/linkhub/autopilot/internal/ledger"
)

// Sentinel classifications for DM delivery failures.
var (
	// ErrUnreachable means the recipient can never receive a DM
	// (messages disabled, not contactable). The lead is dropped.
	ErrUnreachable = errors.New("recipient unreachable")
	// ErrRateLimited means the platform pushed back. The rest of the
	// run is abandoned.
	ErrRateLimited = errors.New("rate limited")
)

// DMSender delivers one direct message. Implementations classify
// failures with the sentinel errors above.
type DMSender interface {
	SendDM(ctx context.Context, username, text string) error
}

// ProfileLookup fetches a live account for single-target runs when the
// username is not already in the ledger.
type ProfileLookup interface {
	Profile(ctx context.Context, username string) (domain.Lead, error)
}

// Runner executes outreach runs against the lead queue.
type Runner struct {
	store    *ledger.Store
	sender   DMSender
	lookup   ProfileLookup
	composer *Composer
	throttle *Throttle
	cfg      config.OutreachConfig
}

// RunOptions control a single outreach invocation.
type RunOptions struct {
	Count    int
	DryRun   bool
	TestUser string
}

// NewRunner wires an outreach runner.
func NewRunner(store *ledger.Store, sender DMSender, lookup ProfileLookup, composer *Composer, throttle *Throttle, cfg config.OutreachConfig) *Runner {
	return &Runner{
		store:    store,
		sender:   sender,
		lookup:   lookup,
		composer: composer,
		throttle: throttle,
		cfg:      cfg,
	}
}

// Run sends up to opts.Count DMs, bounded by the per-run maximum and the
// daily cap. When the cap has been reached the whole run is a no-op.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (domain.RunSummary, error) {
	var summary domain.RunSummary

	dmLog := r.store.DMLog()
	if dmLog.DailyCount >= r.cfg.DailyLimit {
		log.Printf("[AutoDM] Daily limit reached (%d/%d), skipping run", dmLog.DailyCount, r.cfg.DailyLimit)
		return summary, nil
	}

	targets, err := r.selectTargets(ctx, opts)
	if err != nil {
		return summary, err
	}
	if len(targets) == 0 {
		log.Printf("[AutoDM] No leads to contact")
		return summary, nil
	}

	log.Printf("[AutoDM] Starting run: %d targets, dry_run=%v", len(targets), opts.DryRun)

	for _, lead := range targets {
		message, err := r.composer.Compose(lead)
		if err != nil {
			summary.Failed++
			_ = r.store.RecordFailed(lead.Username, err)
			continue
		}

		if opts.DryRun {
			log.Printf("[AutoDM] (dry run) would send to @%s: %.60q", lead.Username, message)
			summary.Sent++
			continue
		}

		// The gate passes immediately on the first send and paces every
		// later one, so there is no trailing wait after the last.
		if err := r.throttle.Wait(ctx); err != nil {
			return summary, err
		}

		err = r.sender.SendDM(ctx, lead.Username, message)
		switch {
		case err == nil:
			summary.Sent++
			if markErr := r.store.MarkContacted(lead.Username, message); markErr != nil {
				log.Printf("[AutoDM] Sent to @%s but could not update ledger: %v", lead.Username, markErr)
			}
			if logErr := r.store.RecordSent(lead.Username); logErr != nil {
				log.Printf("[AutoDM] Could not persist send log: %v", logErr)
			}
			log.Printf("[AutoDM] Sent to @%s", lead.Username)

		case errors.Is(err, ErrUnreachable):
			summary.Skipped++
			_ = r.store.RemoveFound(lead.Username)
			log.Printf("[AutoDM] @%s unreachable, removed from queue", lead.Username)

		case errors.Is(err, ErrRateLimited):
			_ = r.store.RecordFailed(lead.Username, err)
			log.Printf("[AutoDM] Rate limited at @%s, abandoning rest of run", lead.Username)
			return summary, nil

		default:
			summary.Failed++
			_ = r.store.RecordFailed(lead.Username, err)
			log.Printf("[AutoDM] Failed to send to @%s: %v", lead.Username, err)
		}

		if r.store.DMLog().DailyCount >= r.cfg.DailyLimit {
			log.Printf("[AutoDM] Daily limit reached mid-run, stopping")
			break
		}
	}

	log.Printf("[AutoDM] Run complete: sent=%d failed=%d skipped=%d", summary.Sent, summary.Failed, summary.Skipped)
	return summary, nil
}

// selectTargets resolves the lead list for this run.
func (r *Runner) selectTargets(ctx context.Context, opts RunOptions) ([]domain.Lead, error) {
	if opts.TestUser != "" {
		if lead, ok := r.store.Find(opts.TestUser); ok {
			return []domain.Lead{lead}, nil
		}
		if r.lookup == nil {
			return nil, fmt.Errorf("user @%s not in ledger and no live lookup available", opts.TestUser)
		}
		lead, err := r.lookup.Profile(ctx, opts.TestUser)
		if err != nil {
			return nil, fmt.Errorf("looking up @%s: %w", opts.TestUser, err)
		}
		lead.Message = domain.MessageTemplate{
			Opener: "Hey!",
			Pitch:  "I built a free link-in-bio tool - better than Linktree, completely free.",
			CTA:    "Would you check it out?",
		}
		return []domain.Lead{lead}, nil
	}

	count := opts.Count
	if count <= 0 || count > r.cfg.MaxPerRun {
		count = r.cfg.MaxPerRun
	}
	return r.store.NextBatch(count), nil
}
