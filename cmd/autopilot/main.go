// Command autopilot runs the growth automation from the command line:
// lead discovery, outreach batches, ledger management and the
// schedule loop.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/linkhub/autopilot/internal/appdb"
	"github.com/linkhub/autopilot/internal/billing"
	"github.com/linkhub/autopilot/internal/config"
	"github.com/linkhub/autopilot/internal/domain"
	"github.com/linkhub/autopilot/internal/export"
	"github.com/linkhub/autopilot/internal/finder"
	"github.com/linkhub/autopilot/internal/ledger"
	"github.com/linkhub/autopilot/internal/outreach"
	"github.com/linkhub/autopilot/internal/report"
	"github.com/linkhub/autopilot/internal/sched"
	"github.com/linkhub/autopilot/internal/tweets"
)

func main() {
	var (
		count     = flag.Int("count", 0, "how many leads to find, or DMs to send with -dry-run/-test")
		niche     = flag.String("niche", "", "focus discovery on one niche (fitness, art, music, business, coaching, ecommerce)")
		deep      = flag.Bool("deep", false, "re-fetch full profiles for borderline candidates")
		dryRun    = flag.Bool("dry-run", false, "compose DMs without sending")
		testUser  = flag.String("test", "", "send a single test DM to this username")
		stats     = flag.Bool("stats", false, "print ledger stats and exit")
		exportCSV = flag.Bool("export", false, "export found leads to CSV and exit")
		contacted = flag.String("contacted", "", "mark this username as contacted and exit")
		converted = flag.String("converted", "", "mark this username as converted and exit")
		schedule  = flag.Bool("schedule", false, "run the automation schedule until interrupted")
		once      = flag.Bool("once", false, "run the morning routine and one tweet, then exit")
		login     = flag.Bool("login", false, "open a browser window for manual login")
		confPath  = flag.String("config", "config/config.yaml", "path to config file")
	)
	flag.Parse()

	cfg, err := config.LoadFromEnv(*confPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := ledger.Open(cfg.Storage.DataDir, time.Now)
	if err != nil {
		log.Fatalf("Failed to open ledger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case *stats:
		printStats(store)

	case *exportCSV:
		leads := store.Ledger().Found
		if len(leads) == 0 {
			fmt.Println("No leads to export")
			return
		}
		path, err := export.LeadsCSV(cfg.Storage.ExportDir, leads, time.Now())
		if err != nil {
			log.Fatalf("Export failed: %v", err)
		}
		fmt.Printf("Exported %d leads to %s\n", len(leads), path)

	case *contacted != "":
		if err := store.MarkContacted(*contacted, ""); err != nil {
			log.Fatalf("Could not mark @%s contacted: %v", domain.Key(*contacted), err)
		}
		fmt.Printf("Marked @%s as contacted\n", domain.Key(*contacted))

	case *converted != "":
		if err := store.MarkConverted(*converted); err != nil {
			log.Fatalf("Could not mark @%s converted: %v", domain.Key(*converted), err)
		}
		fmt.Printf("Marked @%s as converted! 🎉\n", domain.Key(*converted))

	case *login:
		browser := finder.NewBrowser(cfg.Browser)
		fmt.Println("Opening browser. Log in, then close the window or press Ctrl-C.")
		if err := browser.Login(ctx); err != nil {
			log.Fatalf("Login session failed: %v", err)
		}

	case *schedule:
		scheduler := buildScheduler(cfg, store)
		if err := scheduler.Start(); err != nil {
			log.Fatalf("Scheduler failed to start: %v", err)
		}
		fmt.Println("Automation schedule running. Press Ctrl-C to stop.")
		<-ctx.Done()
		scheduler.Stop()

	case *once:
		scheduler := buildScheduler(cfg, store)
		if err := scheduler.RunOnce(ctx); err != nil {
			log.Fatalf("Run failed: %v", err)
		}

	case *dryRun || *testUser != "":
		browser := finder.NewBrowser(cfg.Browser)
		runner := buildRunner(cfg, store, browser)
		summary, err := runner.Run(ctx, outreach.RunOptions{
			Count:    *count,
			DryRun:   *dryRun,
			TestUser: strings.TrimPrefix(*testUser, "@"),
		})
		if err != nil {
			log.Fatalf("Outreach run failed: %v", err)
		}
		fmt.Printf("Done: sent %d, failed %d, skipped %d\n", summary.Sent, summary.Failed, summary.Skipped)

	default:
		browser := finder.NewBrowser(cfg.Browser)
		f := finder.New(store, browser, cfg.Finder)
		target := *count
		if target == 0 {
			target = 20
		}
		leads, err := f.Run(ctx, finder.Options{Count: target, Niche: *niche, Deep: *deep})
		if err != nil {
			log.Fatalf("Lead search failed: %v", err)
		}
		fmt.Printf("Found %d new leads\n", len(leads))
		for i, lead := range leads {
			fmt.Printf("  %2d. @%s (%d followers, %s, score %d)\n",
				i+1, lead.Username, lead.Followers, lead.LeadType, lead.Score)
		}
		printStats(store)
	}
}

func printStats(store *ledger.Store) {
	stats := store.Stats()
	dmLog := store.DMLog()
	fmt.Println("Pipeline:")
	fmt.Printf("  Found:     %d\n", stats.Found)
	fmt.Printf("  Contacted: %d\n", stats.Contacted)
	fmt.Printf("  Converted: %d\n", stats.Converted)
	fmt.Printf("  Skipped:   %d\n", stats.Skipped)
	fmt.Printf("DMs: %d sent today, %d all time, %d failed\n",
		dmLog.DailyCount, len(dmLog.Sent), len(dmLog.Failed))
}

// profileLookup adapts the browser's profile scrape to the outreach
// runner's single-target lookup.
type profileLookup struct {
	browser *finder.Browser
}

func (p profileLookup) Profile(ctx context.Context, username string) (domain.Lead, error) {
	cand, err := p.browser.Profile(ctx, username)
	if err != nil {
		return domain.Lead{}, err
	}
	return domain.Lead{
		Username:   cand.Username,
		Name:       cand.Name,
		Bio:        cand.Bio,
		Followers:  cand.Followers,
		LeadType:   domain.LeadCreator,
		ProfileURL: "https://twitter.com/" + cand.Username,
	}, nil
}

func buildRunner(cfg *config.Config, store *ledger.Store, browser *finder.Browser) *outreach.Runner {
	composer := outreach.NewComposer(cfg.App.URL)
	throttle := outreach.NewThrottle(cfg.Outreach.Delay())
	return outreach.NewRunner(store, browser, profileLookup{browser}, composer, throttle, cfg.Outreach)
}

func buildScheduler(cfg *config.Config, store *ledger.Store) *sched.Scheduler {
	browser := finder.NewBrowser(cfg.Browser)

	bot := tweets.NewBot(store, browser, cfg.App.URL)
	if cfg.Tweets.RSSFeedURL != "" {
		rssCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := bot.LoadRSS(rssCtx, cfg.Tweets); err != nil {
			log.Printf("[Main] RSS feed unavailable: %v", err)
		}
		cancel()
	}

	pipeline := &sched.Pipeline{
		Finder:      finder.New(store, browser, cfg.Finder),
		Outreach:    buildRunner(cfg, store, browser),
		Tweets:      bot,
		Session:     browser,
		Reports:     report.NewMailer(cfg.Email, cfg.App, nil),
		Revenue:     billing.NewClient(cfg.Stripe, nil),
		ExportDir:   cfg.Storage.ExportDir,
		Clock:       time.Now,
		FinderCfg:   cfg.Finder,
		OutreachCfg: cfg.Outreach,
	}

	if cfg.AppDB.Enabled && cfg.AppDB.URL != "" {
		reader, err := appdb.Open(cfg.AppDB, nil)
		if err != nil {
			log.Printf("[Main] App database unavailable: %v", err)
		} else {
			pipeline.AppStats = reader
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	return sched.New(pipeline, redisClient, cfg.Scheduler, nil)
}
