package sched

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkhub/autopilot/internal/appdb"
	"github.com/linkhub/autopilot/internal/billing"
	"github.com/linkhub/autopilot/internal/config"
	"github.com/linkhub/autopilot/internal/domain"
	"github.com/linkhub/autopilot/internal/finder"
	"github.com/linkhub/autopilot/internal/outreach"
	"github.com/linkhub/autopilot/internal/pkg/distlock"
	"github.com/linkhub/autopilot/internal/report"
	"github.com/linkhub/autopilot/internal/tweets"
)

type fakeFinder struct {
	leads []domain.Lead
	err   error
	calls []finder.Options
}

func (f *fakeFinder) Run(ctx context.Context, opts finder.Options) ([]domain.Lead, error) {
	f.calls = append(f.calls, opts)
	return f.leads, f.err
}

type fakeOutreach struct {
	calls []outreach.RunOptions
	err   error
}

func (f *fakeOutreach) Run(ctx context.Context, opts outreach.RunOptions) (domain.RunSummary, error) {
	f.calls = append(f.calls, opts)
	return domain.RunSummary{Sent: opts.Count}, f.err
}

type fakeTweeter struct {
	posts   int
	engages int
	panics  bool
}

func (f *fakeTweeter) Post(ctx context.Context, custom string) error {
	if f.panics {
		panic("tweet blew up")
	}
	f.posts++
	return nil
}

func (f *fakeTweeter) Engage(ctx context.Context, session tweets.Searcher) ([]finder.Candidate, error) {
	f.engages++
	return nil, nil
}

type fakeReporter struct {
	daily    int
	weekly   int
	leadList [][]domain.Lead
}

func (f *fakeReporter) Daily(ctx context.Context, app appdb.Stats, rev billing.Stats) (report.Result, error) {
	f.daily++
	return report.Result{}, nil
}

func (f *fakeReporter) Weekly(ctx context.Context, app appdb.Stats, rev billing.Stats) (report.Result, error) {
	f.weekly++
	return report.Result{}, nil
}

func (f *fakeReporter) LeadList(ctx context.Context, leads []domain.Lead) (report.Result, error) {
	f.leadList = append(f.leadList, leads)
	return report.Result{}, nil
}

func testPipeline(t *testing.T) (*Pipeline, *fakeFinder, *fakeOutreach, *fakeTweeter, *fakeReporter) {
	t.Helper()
	ff := &fakeFinder{}
	fo := &fakeOutreach{}
	ft := &fakeTweeter{}
	fr := &fakeReporter{}
	p := &Pipeline{
		Finder:      ff,
		Outreach:    fo,
		Tweets:      ft,
		Reports:     fr,
		ExportDir:   t.TempDir(),
		Clock:       func() time.Time { return time.Date(2025, 6, 16, 8, 0, 0, 0, time.UTC) },
		FinderCfg:   config.FinderConfig{MorningTarget: 30},
		OutreachCfg: config.OutreachConfig{MorningBatch: 15, AfternoonBatch: 10},
	}
	return p, ff, fo, ft, fr
}

func newTestScheduler(p *Pipeline, now time.Time) *Scheduler {
	return New(p, nil, config.SchedulerConfig{TickIntervalSeconds: 30}, func() time.Time { return now })
}

func TestMorning_FullSequence(t *testing.T) {
	p, ff, fo, _, fr := testPipeline(t)
	ff.leads = []domain.Lead{
		{Username: "alice", Followers: 1200},
		{Username: "bob", Followers: 800},
	}

	require.NoError(t, p.Morning(context.Background()))

	require.Len(t, ff.calls, 1)
	assert.Equal(t, 30, ff.calls[0].Count)

	files, err := os.ReadDir(p.ExportDir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "leads-2025-06-16.csv", filepath.Base(files[0].Name()))

	require.Len(t, fr.leadList, 1)
	assert.Len(t, fr.leadList[0], 2)

	require.Len(t, fo.calls, 1)
	assert.Equal(t, 15, fo.calls[0].Count)
	assert.Equal(t, 1, fr.daily)
}

func TestMorning_NoLeadsStillRunsDMsAndReport(t *testing.T) {
	p, _, fo, _, fr := testPipeline(t)

	require.NoError(t, p.Morning(context.Background()))

	files, err := os.ReadDir(p.ExportDir)
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Empty(t, fr.leadList)
	require.Len(t, fo.calls, 1)
	assert.Equal(t, 1, fr.daily)
}

func TestMorning_FinderErrorDoesNotAbort(t *testing.T) {
	p, ff, fo, _, fr := testPipeline(t)
	ff.err = errors.New("browser crashed")

	require.NoError(t, p.Morning(context.Background()))
	require.Len(t, fo.calls, 1)
	assert.Equal(t, 1, fr.daily)
}

func TestAfternoonDMs_UsesAfternoonBatch(t *testing.T) {
	p, _, fo, _, _ := testPipeline(t)
	require.NoError(t, p.AfternoonDMs(context.Background()))
	require.Len(t, fo.calls, 1)
	assert.Equal(t, 10, fo.calls[0].Count)
}

func TestFire_MatchesTriggerMinuteOnce(t *testing.T) {
	p, _, _, ft, _ := testPipeline(t)
	now := time.Date(2025, 6, 16, 9, 0, 10, 0, time.UTC) // Monday 09:00
	s := newTestScheduler(p, now)

	ctx := context.Background()
	s.fire(ctx, now)
	s.fire(ctx, now.Add(20*time.Second)) // same minute, must not refire
	s.wg.Wait()

	assert.Equal(t, 1, ft.posts)
}

func TestFire_RefiresNextDay(t *testing.T) {
	p, _, _, ft, _ := testPipeline(t)
	now := time.Date(2025, 6, 16, 9, 0, 0, 0, time.UTC)
	s := newTestScheduler(p, now)

	ctx := context.Background()
	s.fire(ctx, now)
	s.wg.Wait()
	s.fire(ctx, now.AddDate(0, 0, 1))
	s.wg.Wait()

	assert.Equal(t, 2, ft.posts)
}

func TestFire_WeeklyOnlyOnSunday(t *testing.T) {
	p, _, _, _, fr := testPipeline(t)

	monday := time.Date(2025, 6, 16, 9, 0, 0, 0, time.UTC)
	s := newTestScheduler(p, monday)
	s.fire(context.Background(), monday)
	s.wg.Wait()
	assert.Equal(t, 0, fr.weekly)

	sunday := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	s = newTestScheduler(p, sunday)
	s.fire(context.Background(), sunday)
	s.wg.Wait()
	assert.Equal(t, 1, fr.weekly)
}

func TestFire_NoMatchOutsideTriggerMinutes(t *testing.T) {
	p, _, fo, ft, fr := testPipeline(t)
	now := time.Date(2025, 6, 16, 11, 30, 0, 0, time.UTC)
	s := newTestScheduler(p, now)

	s.fire(context.Background(), now)
	s.wg.Wait()

	assert.Equal(t, 0, ft.posts)
	assert.Empty(t, fo.calls)
	assert.Equal(t, 0, fr.daily)
}

func TestRunRoutine_SkipsWhenLockHeld(t *testing.T) {
	p, _, _, ft, _ := testPipeline(t)
	now := time.Date(2025, 6, 16, 9, 0, 0, 0, time.UTC)
	s := newTestScheduler(p, now)

	ctx := context.Background()
	held := distlock.NewLocalLock("routine:tweet-am")
	ok, err := held.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	defer held.Release(ctx)

	s.fire(ctx, now)
	s.wg.Wait()

	assert.Equal(t, 0, ft.posts)
}

func TestRunRoutine_PanicIsContained(t *testing.T) {
	p, _, _, ft, _ := testPipeline(t)
	ft.panics = true
	now := time.Date(2025, 6, 16, 9, 0, 0, 0, time.UTC)
	s := newTestScheduler(p, now)

	assert.NotPanics(t, func() {
		s.fire(context.Background(), now)
		s.wg.Wait()
	})

	// The lock must have been released despite the panic.
	lock := distlock.NewLocalLock("routine:tweet-am")
	ok, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	lock.Release(context.Background())
}

func TestStartStop(t *testing.T) {
	p, _, _, _, _ := testPipeline(t)
	s := newTestScheduler(p, time.Now())

	require.NoError(t, s.Start())
	assert.True(t, s.Running())
	assert.Error(t, s.Start())

	s.Stop()
	assert.False(t, s.Running())
	s.Stop() // idempotent
}

func TestRunOnce(t *testing.T) {
	p, ff, fo, ft, fr := testPipeline(t)
	s := newTestScheduler(p, time.Now())

	require.NoError(t, s.RunOnce(context.Background()))

	assert.Len(t, ff.calls, 1)
	assert.Len(t, fo.calls, 1)
	assert.Equal(t, 1, ft.posts)
	assert.Equal(t, 1, fr.daily)
}
