package api

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/linkhub/autopilot/internal/config"
	"github.com/linkhub/autopilot/internal/domain"
	"github.com/linkhub/autopilot/internal/finder"
	"github.com/linkhub/autopilot/internal/ledger"
	"github.com/linkhub/autopilot/internal/pkg/httputil"
)

// SchedulerControl is the part of the scheduler the panel drives.
type SchedulerControl interface {
	Start() error
	Stop()
	Running() bool
}

// Tweeter posts a tweet, custom text or the next rotation entry.
type Tweeter interface {
	Post(ctx context.Context, custom string) error
}

// DMSender delivers one direct message.
type DMSender interface {
	SendDM(ctx context.Context, username, text string) error
}

// LeadFinder runs a discovery pass.
type LeadFinder interface {
	Run(ctx context.Context, opts finder.Options) ([]domain.Lead, error)
}

// Handlers holds the panel's endpoint implementations.
type Handlers struct {
	store     *ledger.Store
	scheduler SchedulerControl
	tweeter   Tweeter
	dm        DMSender
	finder    LeadFinder
	cfg       *config.Config

	mu        sync.Mutex
	lastTweet *time.Time
	lastDM    *time.Time
}

// NewHandlers wires the panel endpoints to the automation components.
func NewHandlers(store *ledger.Store, scheduler SchedulerControl, tweeter Tweeter, dm DMSender, lf LeadFinder, cfg *config.Config) *Handlers {
	return &Handlers{
		store:     store,
		scheduler: scheduler,
		tweeter:   tweeter,
		dm:        dm,
		finder:    lf,
		cfg:       cfg,
	}
}

// actionResult is the envelope every manual action returns. Failures
// are reported in the body with HTTP 200; the panel reads the success
// flag, not the status code.
type actionResult struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func actionOK(w http.ResponseWriter, data interface{}) {
	httputil.OK(w, actionResult{Success: true, Data: data})
}

func actionFailed(w http.ResponseWriter, err error) {
	httputil.OK(w, actionResult{Success: false, Error: err.Error()})
}

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok"})
}

type statusResponse struct {
	Scheduler string `json:"scheduler"`
	Stats     struct {
		LeadsFound     int `json:"leads_found"`
		LeadsContacted int `json:"leads_contacted"`
		LeadsConverted int `json:"leads_converted"`
		DMsSentToday   int `json:"dms_sent_today"`
		TotalDMsSent   int `json:"total_dms_sent"`
		TweetsPosted   int `json:"tweets_posted"`
	} `json:"stats"`
	LastActions struct {
		Tweet *time.Time `json:"tweet"`
		DM    *time.Time `json:"dm"`
	} `json:"last_actions"`
	Config struct {
		EmailConfigured  bool `json:"email_configured"`
		StripeConfigured bool `json:"stripe_configured"`
		AppDBConfigured  bool `json:"app_db_configured"`
		RedisConfigured  bool `json:"redis_configured"`
	} `json:"config"`
}

// GetStatus returns scheduler state, ledger counters and readiness
// flags in one call for the panel's refresh poll.
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	stats := h.store.Stats()
	dmLog := h.store.DMLog()
	tweets := h.store.TweetHistory()

	var resp statusResponse
	resp.Scheduler = "stopped"
	if h.scheduler.Running() {
		resp.Scheduler = "running"
	}
	resp.Stats.LeadsFound = stats.Found
	resp.Stats.LeadsContacted = stats.Contacted
	resp.Stats.LeadsConverted = stats.Converted
	resp.Stats.DMsSentToday = dmLog.DailyCount
	resp.Stats.TotalDMsSent = len(dmLog.Sent)
	resp.Stats.TweetsPosted = len(tweets.Posted)

	h.mu.Lock()
	resp.LastActions.Tweet = h.lastTweet
	resp.LastActions.DM = h.lastDM
	h.mu.Unlock()

	resp.Config.EmailConfigured = h.cfg.Email.Configured()
	resp.Config.StripeConfigured = h.cfg.Stripe.Enabled && h.cfg.Stripe.SecretKey != ""
	resp.Config.AppDBConfigured = h.cfg.AppDB.Enabled && h.cfg.AppDB.URL != ""
	resp.Config.RedisConfigured = h.cfg.Redis.Enabled

	httputil.OK(w, resp)
}

// GetLeads returns the full ledger, all four buckets.
func (h *Handlers) GetLeads(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, h.store.Ledger())
}

type tweetRequest struct {
	Text string `json:"text"`
}

// PostTweet posts the given text, or the next rotation entry when the
// body is empty.
func (h *Handlers) PostTweet(w http.ResponseWriter, r *http.Request) {
	var req tweetRequest
	if r.ContentLength > 0 && !httputil.Decode(w, r, &req) {
		return
	}
	if err := h.tweeter.Post(r.Context(), req.Text); err != nil {
		actionFailed(w, err)
		return
	}
	h.mu.Lock()
	now := time.Now().UTC()
	h.lastTweet = &now
	h.mu.Unlock()
	actionOK(w, nil)
}

type dmRequest struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

// SendDM sends one manual DM and marks the lead contacted if it is in
// the ledger.
func (h *Handlers) SendDM(w http.ResponseWriter, r *http.Request) {
	var req dmRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	username := strings.TrimPrefix(strings.TrimSpace(req.Username), "@")
	if username == "" || req.Message == "" {
		httputil.BadRequest(w, "username and message are required")
		return
	}

	if err := h.dm.SendDM(r.Context(), username, req.Message); err != nil {
		actionFailed(w, err)
		return
	}

	h.store.MarkContacted(username, req.Message)
	h.store.RecordSent(username)

	h.mu.Lock()
	now := time.Now().UTC()
	h.lastDM = &now
	h.mu.Unlock()
	actionOK(w, nil)
}

type findLeadsRequest struct {
	Count int    `json:"count"`
	Niche string `json:"niche"`
}

// FindLeads runs a discovery pass and returns the new leads.
func (h *Handlers) FindLeads(w http.ResponseWriter, r *http.Request) {
	var req findLeadsRequest
	if r.ContentLength > 0 && !httputil.Decode(w, r, &req) {
		return
	}

	leads, err := h.finder.Run(r.Context(), finder.Options{Count: req.Count, Niche: req.Niche})
	if err != nil {
		actionFailed(w, err)
		return
	}
	actionOK(w, map[string]interface{}{"leads": leads, "count": len(leads)})
}

// StartScheduler begins the automation loop.
func (h *Handlers) StartScheduler(w http.ResponseWriter, r *http.Request) {
	if err := h.scheduler.Start(); err != nil {
		actionFailed(w, err)
		return
	}
	httputil.OK(w, map[string]string{"status": "started"})
}

// StopScheduler halts the automation loop.
func (h *Handlers) StopScheduler(w http.ResponseWriter, r *http.Request) {
	h.scheduler.Stop()
	httputil.OK(w, map[string]string{"status": "stopped"})
}
