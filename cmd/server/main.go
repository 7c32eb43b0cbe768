// Command server runs the control panel API plus the automation
// scheduler. The scheduler starts stopped; use the panel or
// POST /api/scheduler/start to kick it off.
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/linkhub/autopilot/internal/api"
	"github.com/linkhub/autopilot/internal/appdb"
	"github.com/linkhub/autopilot/internal/billing"
	"github.com/linkhub/autopilot/internal/config"
	"github.com/linkhub/autopilot/internal/domain"
	"github.com/linkhub/autopilot/internal/finder"
	"github.com/linkhub/autopilot/internal/ledger"
	"github.com/linkhub/autopilot/internal/outreach"
	"github.com/linkhub/autopilot/internal/report"
	"github.com/linkhub/autopilot/internal/sched"
	"github.com/linkhub/autopilot/internal/tweets"
)

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from a stale process occupying the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
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

func main() {
	log.Println("╔══════════════════════════════════════════════╗")
	log.Println("║  LinkHub Autopilot Control Panel             ║")
	log.Println("║  Lead finder, outreach and growth reports    ║")
	log.Println("╚══════════════════════════════════════════════╝")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if port == 0 {
		port = 3001
	}
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}
	log.Printf("Pre-flight check passed: port %d is available", port)

	store, err := ledger.Open(cfg.Storage.DataDir, time.Now)
	if err != nil {
		log.Fatalf("Failed to open ledger: %v", err)
	}
	log.Printf("Ledger loaded from %s", cfg.Storage.DataDir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	browser := finder.NewBrowser(cfg.Browser)
	leadFinder := finder.New(store, browser, cfg.Finder)

	composer := outreach.NewComposer(cfg.App.URL)
	throttle := outreach.NewThrottle(cfg.Outreach.Delay())
	runner := outreach.NewRunner(store, browser, profileLookup{browser}, composer, throttle, cfg.Outreach)

	bot := tweets.NewBot(store, browser, cfg.App.URL)
	if cfg.Tweets.RSSFeedURL != "" {
		rssCtx, rssCancel := context.WithTimeout(ctx, 30*time.Second)
		if err := bot.LoadRSS(rssCtx, cfg.Tweets); err != nil {
			log.Printf("Warning: RSS feed unavailable: %v", err)
		}
		rssCancel()
	}

	mailer := report.NewMailer(cfg.Email, cfg.App, nil)
	if cfg.Email.Configured() {
		log.Printf("Email reports enabled (%s -> %s)", cfg.Email.From, cfg.Email.To)
	} else {
		log.Println("Email reports not configured (reports will be logged instead)")
	}

	revenue := billing.NewClient(cfg.Stripe, nil)
	if revenue.Configured() {
		log.Println("Stripe revenue tracking enabled")
	} else {
		log.Println("Stripe revenue tracking not configured (revenue sections will be zero)")
	}

	pipeline := &sched.Pipeline{
		Finder:      leadFinder,
		Outreach:    runner,
		Tweets:      bot,
		Session:     browser,
		Reports:     mailer,
		Revenue:     revenue,
		ExportDir:   cfg.Storage.ExportDir,
		Clock:       time.Now,
		FinderCfg:   cfg.Finder,
		OutreachCfg: cfg.Outreach,
	}

	if cfg.AppDB.Enabled && cfg.AppDB.URL != "" {
		reader, err := appdb.Open(cfg.AppDB, nil)
		if err != nil {
			log.Printf("Warning: App database unavailable: %v", err)
		} else {
			pipeline.AppStats = reader
			log.Println("App database stats enabled")
		}
	} else {
		log.Println("App database not configured (usage sections will be zero)")
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Printf("Warning: Redis connection failed (%s): %v — using in-process locks", cfg.Redis.Addr, err)
			redisClient.Close()
			redisClient = nil
		} else {
			log.Printf("Redis connected: %s (distributed locking enabled)", cfg.Redis.Addr)
		}
		pingCancel()
	} else {
		log.Println("Redis not configured — using in-process locks")
	}

	scheduler := sched.New(pipeline, redisClient, cfg.Scheduler, nil)

	handlers := api.NewHandlers(store, scheduler, bot, browser, leadFinder, cfg)
	server := api.NewServer(handlers)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", host, port)
		log.Printf("Control panel listening on http://%s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	log.Println("All services initialized. Scheduler is stopped; start it from the panel.")

	<-done
	log.Println("Shutting down...")

	cancel()
	scheduler.Stop()
	if redisClient != nil {
		redisClient.Close()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
