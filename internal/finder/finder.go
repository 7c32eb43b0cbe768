package finder

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/linkhub/autopilot/internal/config"
	"github.com/linkhub/autopilot/internal/domain"
	"github.com/linkhub/autopilot/internal/ledger"
	"github.com/linkhub/autopilot/internal/outreach"
	"github.com/linkhub/autopilot/internal/qualify"
)

// Finder orchestrates search queries through a Session and turns
// qualifying candidates into ledger entries.
type Finder struct {
	store   *ledger.Store
	session Session
	cfg     config.FinderConfig
	rng     *rand.Rand
	sleep   func(ctx context.Context, d time.Duration) error
}

// Options control a single discovery run.
type Options struct {
	Count int
	Niche string
	// Deep fetches the full profile bio for borderline candidates
	// before scoring, at the cost of one extra page load each.
	Deep bool
}

// New wires a finder against a store and session.
func New(store *ledger.Store, session Session, cfg config.FinderConfig) *Finder {
	return &Finder{
		store:   store,
		session: session,
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:   sleepCtx,
	}
}

// WithRand replaces the query-shuffle source, for tests.
func (f *Finder) WithRand(rng *rand.Rand) *Finder {
	f.rng = rng
	return f
}

// WithSleep replaces the inter-query delay function, for tests.
func (f *Finder) WithSleep(sleep func(context.Context, time.Duration) error) *Finder {
	f.sleep = sleep
	return f
}

// Run executes a discovery pass: sample queries from the selected pool,
// qualify every candidate, and persist accepted leads and skip records.
// Returns the new leads, best score first.
func (f *Finder) Run(ctx context.Context, opts Options) ([]domain.Lead, error) {
	loggedIn, err := f.session.LoggedIn(ctx)
	if err != nil {
		return nil, fmt.Errorf("checking session: %w", err)
	}
	if !loggedIn {
		log.Printf("[Finder] Session is not authenticated; log in through the browser profile first")
		return nil, ErrNotLoggedIn
	}

	count := opts.Count
	if count <= 0 {
		count = 20
	}

	queries := f.sampleQueries(opts.Niche)
	if opts.Niche != "" {
		log.Printf("[Finder] Searching %s niche with %d queries", opts.Niche, len(queries))
	} else {
		log.Printf("[Finder] Searching general pool with %d queries", len(queries))
	}

	seen := make(map[string]bool)
	var accepted []domain.Lead
	var skipped []domain.SkipRecord

	for i, query := range queries {
		if len(accepted) >= count {
			break
		}
		if i > 0 {
			if err := f.sleep(ctx, f.cfg.QueryDelay()); err != nil {
				return nil, err
			}
		}

		candidates, err := f.session.Search(ctx, query, count-len(accepted)+5)
		if err != nil {
			// Per-query failures are zero results, not run failures
			log.Printf("[Finder] Query %q failed: %v", query, err)
			continue
		}
		log.Printf("[Finder] Query %q returned %d candidates", query, len(candidates))

		for _, cand := range candidates {
			if len(accepted) >= count {
				break
			}

			key := domain.Key(cand.Username)
			if key == "" || seen[key] || f.store.Known(cand.Username) {
				continue
			}
			seen[key] = true

			// Accounts outside the follower band are neither worth the
			// outreach nor likely to switch; leave them unrecorded so a
			// later run can reconsider them.
			if cand.Followers < f.cfg.MinFollowers || cand.Followers > f.cfg.MaxFollowers {
				continue
			}

			result := qualify.Classify(cand.Bio, cand.PostText)
			if opts.Deep && !result.Competitor && result.Score >= 0 && result.Band() == "cold" {
				if full, err := f.session.Profile(ctx, cand.Username); err == nil && full.Bio != "" {
					cand.Bio = full.Bio
					result = qualify.Classify(cand.Bio, cand.PostText)
				} else if err != nil {
					log.Printf("[Finder] Profile fetch for @%s failed: %v", cand.Username, err)
				}
			}

			if result.Competitor {
				skipped = append(skipped, domain.SkipRecord{
					Username: cand.Username,
					Reason:   domain.SkipCompetitor,
				})
				continue
			}
			if !result.Accepted() {
				skipped = append(skipped, domain.SkipRecord{
					Username: cand.Username,
					Reason:   domain.SkipLowQuality,
				})
				continue
			}

			lead := f.buildLead(cand, query, result)
			accepted = append(accepted, lead)
			log.Printf("[Finder] Accepted @%s (%d followers, score %d, %s)",
				lead.Username, lead.Followers, lead.Score, lead.LeadType)
		}
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].Score > accepted[j].Score
	})

	if _, err := f.store.AddFound(accepted); err != nil {
		return accepted, fmt.Errorf("persisting leads: %w", err)
	}
	if len(skipped) > 0 {
		if err := f.store.AddSkipped(skipped); err != nil {
			return accepted, fmt.Errorf("persisting skip records: %w", err)
		}
	}

	log.Printf("[Finder] Run complete: %d accepted, %d skipped", len(accepted), len(skipped))
	return accepted, nil
}

// sampleQueries shuffles the selected pool and takes the configured
// number of queries.
func (f *Finder) sampleQueries(niche string) []string {
	pool := queryPool(niche)
	shuffled := make([]string, len(pool))
	copy(shuffled, pool)
	f.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	n := f.cfg.QueriesPerRun
	if n <= 0 || n > len(shuffled) {
		n = len(shuffled)
	}
	return shuffled[:n]
}

func (f *Finder) buildLead(cand Candidate, query string, result qualify.Result) domain.Lead {
	lead := domain.Lead{
		Username:     cand.Username,
		Name:         cand.Name,
		Bio:          cand.Bio,
		TweetContext: truncate(cand.PostText, 100),
		Followers:    cand.Followers,
		Score:        result.Score,
		FoundVia:     query,
		LeadType:     classifyType(cand),
		ProfileURL:   "https://twitter.com/" + domain.Key(cand.Username),
	}
	lead.Message = outreach.TemplateFor(lead.LeadType)
	return lead
}

// classifyType tags the lead with the template family that fits it.
func classifyType(cand Candidate) domain.LeadType {
	bio := strings.ToLower(cand.Bio)
	post := strings.ToLower(cand.PostText)

	switch {
	case strings.Contains(bio, "linktr.ee") || strings.Contains(bio, "linktree"):
		return domain.LeadSwitcher
	case strings.Contains(post, "expensive") || strings.Contains(post, "frustrated") || strings.Contains(post, "hate"):
		return domain.LeadComplainer
	case cand.Followers < 5000:
		return domain.LeadRising
	default:
		return domain.LeadCreator
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
