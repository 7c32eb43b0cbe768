package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkhub/autopilot/internal/config"
	"github.com/linkhub/autopilot/internal/domain"
	"github.com/linkhub/autopilot/internal/finder"
	"github.com/linkhub/autopilot/internal/ledger"
)

type fakeScheduler struct {
	running  bool
	startErr error
}

func (f *fakeScheduler) Start() error {
	if f.startErr != nil {
		return f.startErr
	}
	f.running = true
	return nil
}
func (f *fakeScheduler) Stop()         { f.running = false }
func (f *fakeScheduler) Running() bool { return f.running }

type fakeTweeter struct {
	posted []string
	err    error
}

func (f *fakeTweeter) Post(ctx context.Context, custom string) error {
	if f.err != nil {
		return f.err
	}
	f.posted = append(f.posted, custom)
	return nil
}

type fakeDM struct {
	sent map[string]string
	err  error
}

func (f *fakeDM) SendDM(ctx context.Context, username, text string) error {
	if f.err != nil {
		return f.err
	}
	if f.sent == nil {
		f.sent = map[string]string{}
	}
	f.sent[username] = text
	return nil
}

type fakeFinder struct {
	leads []domain.Lead
	err   error
	opts  []finder.Options
}

func (f *fakeFinder) Run(ctx context.Context, opts finder.Options) ([]domain.Lead, error) {
	f.opts = append(f.opts, opts)
	return f.leads, f.err
}

type fixture struct {
	store     *ledger.Store
	scheduler *fakeScheduler
	tweeter   *fakeTweeter
	dm        *fakeDM
	finder    *fakeFinder
	srv       *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := ledger.Open(t.TempDir(), func() time.Time {
		return time.Date(2025, 6, 16, 12, 0, 0, 0, time.UTC)
	})
	require.NoError(t, err)

	f := &fixture{
		store:     store,
		scheduler: &fakeScheduler{},
		tweeter:   &fakeTweeter{},
		dm:        &fakeDM{},
		finder:    &fakeFinder{},
	}
	cfg := &config.Config{}
	cfg.Email.Enabled = true
	cfg.Email.From = "reports@example.com"
	cfg.Email.To = "founder@example.com"

	h := NewHandlers(store, f.scheduler, f.tweeter, f.dm, f.finder, cfg)
	f.srv = httptest.NewServer(NewServer(h).Handler())
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) get(t *testing.T, path string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Get(f.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func (f *fixture) post(t *testing.T, path string, payload interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(payload))
	}
	resp, err := http.Post(f.srv.URL+path, "application/json", &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	resp, body := f.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.AddFound([]domain.Lead{
		{Username: "alice", Bio: "creator"},
		{Username: "bob", Bio: "artist"},
	})
	require.NoError(t, err)
	require.NoError(t, f.store.MarkContacted("alice", "hey"))
	require.NoError(t, f.store.RecordSent("alice"))

	resp, body := f.get(t, "/api/status")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "stopped", body["scheduler"])

	stats := body["stats"].(map[string]interface{})
	assert.EqualValues(t, 1, stats["leads_found"])
	assert.EqualValues(t, 1, stats["leads_contacted"])
	assert.EqualValues(t, 0, stats["leads_converted"])
	assert.EqualValues(t, 1, stats["dms_sent_today"])
	assert.EqualValues(t, 1, stats["total_dms_sent"])

	flags := body["config"].(map[string]interface{})
	assert.Equal(t, true, flags["email_configured"])
	assert.Equal(t, false, flags["stripe_configured"])
}

func TestLeads(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.AddFound([]domain.Lead{{Username: "alice", Bio: "creator"}})
	require.NoError(t, err)

	resp, body := f.get(t, "/api/leads")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	found := body["found"].([]interface{})
	require.Len(t, found, 1)
	lead := found[0].(map[string]interface{})
	assert.Equal(t, "alice", lead["username"])
}

func TestActionTweet(t *testing.T) {
	f := newFixture(t)

	resp, body := f.post(t, "/api/action/tweet", map[string]string{"text": "hello world"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, []string{"hello world"}, f.tweeter.posted)

	_, status := f.get(t, "/api/status")
	last := status["last_actions"].(map[string]interface{})
	assert.NotNil(t, last["tweet"])
}

func TestActionTweet_FailureIsHTTP200(t *testing.T) {
	f := newFixture(t)
	f.tweeter.err = errors.New("not logged in")

	resp, body := f.post(t, "/api/action/tweet", map[string]string{"text": "x"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "not logged in")
}

func TestActionDM_MarksContacted(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.AddFound([]domain.Lead{{Username: "alice", Bio: "creator"}})
	require.NoError(t, err)

	resp, body := f.post(t, "/api/action/dm", map[string]string{
		"username": "@alice",
		"message":  "check this out",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "check this out", f.dm.sent["alice"])

	lead, ok := f.store.Find("alice")
	require.True(t, ok)
	assert.NotNil(t, lead.ContactedAt)
}

func TestActionDM_MissingFields(t *testing.T) {
	f := newFixture(t)
	resp, body := f.post(t, "/api/action/dm", map[string]string{"username": "alice"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "required")
}

func TestActionFindLeads(t *testing.T) {
	f := newFixture(t)
	f.finder.leads = []domain.Lead{{Username: "carol"}, {Username: "dave"}}

	resp, body := f.post(t, "/api/action/find-leads", map[string]interface{}{"count": 5, "niche": "fitness"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	data := body["data"].(map[string]interface{})
	assert.EqualValues(t, 2, data["count"])

	require.Len(t, f.finder.opts, 1)
	assert.Equal(t, 5, f.finder.opts[0].Count)
	assert.Equal(t, "fitness", f.finder.opts[0].Niche)
}

func TestSchedulerStartStop(t *testing.T) {
	f := newFixture(t)

	resp, body := f.post(t, "/api/scheduler/start", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "started", body["status"])
	assert.True(t, f.scheduler.running)

	_, status := f.get(t, "/api/status")
	assert.Equal(t, "running", status["scheduler"])

	resp, body = f.post(t, "/api/scheduler/stop", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "stopped", body["status"])
	assert.False(t, f.scheduler.running)
}

func TestSchedulerStart_AlreadyRunning(t *testing.T) {
	f := newFixture(t)
	f.scheduler.startErr = errors.New("scheduler already running")

	resp, body := f.post(t, "/api/scheduler/start", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "already running")
}
