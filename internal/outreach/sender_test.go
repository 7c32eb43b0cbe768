package outreach

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkhub/autopilot/internal/config"
	"github.com/linkhub/autopilot/internal/domain"
	"github.com/linkhub/autopilot/internal/ledger"
)

type scriptedSender struct {
	results  map[string]error
	attempts []string
}

func (s *scriptedSender) SendDM(ctx context.Context, username, text string) error {
	s.attempts = append(s.attempts, username)
	return s.results[username]
}

func testConfig() config.OutreachConfig {
	return config.OutreachConfig{MaxPerRun: 20, DailyLimit: 50, DelaySeconds: 60}
}

func instantThrottle() *Throttle {
	now := time.Now()
	return NewThrottleWithClock(time.Minute,
		func() time.Time { now = now.Add(time.Minute); return now },
		func(context.Context, time.Duration) error { return nil })
}

func newTestRunner(t *testing.T, sender DMSender, cfg config.OutreachConfig, leads ...domain.Lead) (*Runner, *ledger.Store) {
	t.Helper()
	store, err := ledger.Open(t.TempDir(), nil)
	require.NoError(t, err)
	if len(leads) > 0 {
		_, err = store.AddFound(leads)
		require.NoError(t, err)
	}
	composer := NewComposer("https://linkhub.test")
	return NewRunner(store, sender, nil, composer, instantThrottle(), cfg), store
}

func leadList(n int) []domain.Lead {
	out := make([]domain.Lead, n)
	for i := range out {
		out[i] = domain.Lead{
			Username: fmt.Sprintf("lead%d", i+1),
			LeadType: domain.LeadCreator,
		}
	}
	return out
}

func TestRunSendsAndMovesLeads(t *testing.T) {
	sender := &scriptedSender{results: map[string]error{}}
	runner, store := newTestRunner(t, sender, testConfig(), leadList(3)...)

	summary, err := runner.Run(context.Background(), RunOptions{Count: 3})
	require.NoError(t, err)
	assert.Equal(t, domain.RunSummary{Sent: 3}, summary)

	stats := store.Stats()
	assert.Equal(t, 0, stats.Found)
	assert.Equal(t, 3, stats.Contacted)
	assert.Equal(t, 3, store.DMLog().DailyCount)

	// Sent text is preserved on the contacted lead
	lead, ok := store.Find("lead1")
	require.True(t, ok)
	assert.Contains(t, lead.SentText, "https://linkhub.test")
}

func TestDailyCapMakesRunNoOp(t *testing.T) {
	cfg := testConfig()
	cfg.DailyLimit = 2

	sender := &scriptedSender{results: map[string]error{}}
	runner, store := newTestRunner(t, sender, cfg, leadList(3)...)

	// Exhaust the daily cap
	require.NoError(t, store.RecordSent("earlier1"))
	require.NoError(t, store.RecordSent("earlier2"))

	summary, err := runner.Run(context.Background(), RunOptions{Count: 3})
	require.NoError(t, err)
	assert.Equal(t, domain.RunSummary{}, summary)
	assert.Empty(t, sender.attempts)
	assert.Equal(t, 3, store.Stats().Found)
}

func TestDailyCapResetsOnNewDay(t *testing.T) {
	cfg := testConfig()
	cfg.DailyLimit = 2

	dir := t.TempDir()
	day1 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store, err := ledger.Open(dir, func() time.Time { return day1 })
	require.NoError(t, err)
	require.NoError(t, store.RecordSent("a"))
	require.NoError(t, store.RecordSent("b"))

	// Next day: the stale counter no longer blocks the run
	day2 := day1.Add(24 * time.Hour)
	store2, err := ledger.Open(dir, func() time.Time { return day2 })
	require.NoError(t, err)
	_, err = store2.AddFound(leadList(1))
	require.NoError(t, err)

	sender := &scriptedSender{results: map[string]error{}}
	runner := NewRunner(store2, sender, nil, NewComposer("https://linkhub.test"), instantThrottle(), cfg)

	summary, err := runner.Run(context.Background(), RunOptions{Count: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, 1, store2.DMLog().DailyCount)
}

func TestRateLimitAbortsRemainingRun(t *testing.T) {
	sender := &scriptedSender{results: map[string]error{
		"lead2": ErrRateLimited,
	}}
	runner, store := newTestRunner(t, sender, testConfig(), leadList(5)...)

	summary, err := runner.Run(context.Background(), RunOptions{Count: 5})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, []string{"lead1", "lead2"}, sender.attempts)

	log := store.DMLog()
	require.Len(t, log.Failed, 1)
	assert.Equal(t, "lead2", log.Failed[0].Username)
	// Items 3-5 were never attempted and stay queued
	assert.Equal(t, 4, store.Stats().Found)
}

func TestUnreachableLeadRemovedEntirely(t *testing.T) {
	sender := &scriptedSender{results: map[string]error{
		"lead1": ErrUnreachable,
	}}
	runner, store := newTestRunner(t, sender, testConfig(), leadList(2)...)

	summary, err := runner.Run(context.Background(), RunOptions{Count: 2})
	require.NoError(t, err)
	assert.Equal(t, domain.RunSummary{Sent: 1, Skipped: 1}, summary)

	// Gone from every bucket, not logged as a failure
	assert.False(t, store.Known("lead1"))
	assert.Empty(t, store.DMLog().Failed)
}

func TestOtherErrorsContinueLoop(t *testing.T) {
	sender := &scriptedSender{results: map[string]error{
		"lead2": errors.New("transient network flake"),
	}}
	runner, store := newTestRunner(t, sender, testConfig(), leadList(3)...)

	summary, err := runner.Run(context.Background(), RunOptions{Count: 3})
	require.NoError(t, err)
	assert.Equal(t, domain.RunSummary{Sent: 2, Failed: 1}, summary)
	assert.Len(t, sender.attempts, 3)
	// Failed lead stays in found for a later retry
	assert.True(t, store.Known("lead2"))
	assert.Equal(t, 1, store.Stats().Found)
}

func TestDryRunSendsNothing(t *testing.T) {
	sender := &scriptedSender{results: map[string]error{}}
	runner, store := newTestRunner(t, sender, testConfig(), leadList(2)...)

	summary, err := runner.Run(context.Background(), RunOptions{Count: 2, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Sent)
	assert.Empty(t, sender.attempts)
	assert.Equal(t, 2, store.Stats().Found)
	assert.Equal(t, 0, store.DMLog().DailyCount)
}

func TestCountClampedToPerRunMax(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPerRun = 2

	sender := &scriptedSender{results: map[string]error{}}
	runner, _ := newTestRunner(t, sender, cfg, leadList(5)...)

	summary, err := runner.Run(context.Background(), RunOptions{Count: 100})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Sent)
}

func TestTestUserPrefersExistingLead(t *testing.T) {
	sender := &scriptedSender{results: map[string]error{}}
	runner, store := newTestRunner(t, sender, testConfig(), domain.Lead{
		Username: "target",
		LeadType: domain.LeadSwitcher,
	})

	summary, err := runner.Run(context.Background(), RunOptions{TestUser: "target"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, []string{"target"}, sender.attempts)
	assert.Equal(t, 1, store.Stats().Contacted)
}

func TestThrottlePacesBetweenSendsNotAfterLast(t *testing.T) {
	var waits int
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := base
	throttle := NewThrottleWithClock(time.Minute,
		func() time.Time { return clock },
		func(_ context.Context, d time.Duration) error {
			waits++
			clock = clock.Add(d)
			return nil
		})

	store, err := ledger.Open(t.TempDir(), nil)
	require.NoError(t, err)
	_, err = store.AddFound(leadList(3))
	require.NoError(t, err)

	sender := &scriptedSender{results: map[string]error{}}
	runner := NewRunner(store, sender, nil, NewComposer("https://linkhub.test"), throttle, testConfig())

	_, err = runner.Run(context.Background(), RunOptions{Count: 3})
	require.NoError(t, err)

	// Two gaps for three sends; no trailing wait
	assert.Equal(t, 2, waits)
}
