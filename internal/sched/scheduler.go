// Package sched runs the daily automation routines on a wall-clock
// trigger table.
package sched

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/linkhub/autopilot/internal/config"
	"github.com/linkhub/autopilot/internal/pkg/distlock"
)

// Clock returns the current time. Injectable for tests.
type Clock func() time.Time

const routineLockTTL = 30 * time.Minute

// trigger fires a named routine at a fixed local wall-clock minute.
// A nil weekday means every day.
type trigger struct {
	name    string
	hour    int
	minute  int
	weekday *time.Weekday
	run     func(ctx context.Context) error
}

// Scheduler drives the trigger table. One routine per trigger per
// minute; a routine whose lock is held elsewhere is skipped, not
// queued. There is no catch-up for missed ticks.
type Scheduler struct {
	pipeline *Pipeline
	redis    *redis.Client
	cfg      config.SchedulerConfig
	now      Clock

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool

	fired map[string]string
}

// New creates a scheduler over the given pipeline. redisClient may be
// nil; routine locks then only guard this process.
func New(pipeline *Pipeline, redisClient *redis.Client, cfg config.SchedulerConfig, now Clock) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		pipeline: pipeline,
		redis:    redisClient,
		cfg:      cfg,
		now:      now,
		fired:    make(map[string]string),
	}
}

func (s *Scheduler) triggers() []trigger {
	sunday := time.Sunday
	return []trigger{
		{name: "morning", hour: 8, minute: 0, run: s.pipeline.Morning},
		{name: "tweet-am", hour: 9, minute: 0, run: s.pipeline.Tweet},
		{name: "engage-am", hour: 10, minute: 0, run: s.pipeline.Engage},
		{name: "tweet-pm", hour: 14, minute: 0, run: s.pipeline.Tweet},
		{name: "afternoon-dms", hour: 15, minute: 0, run: s.pipeline.AfternoonDMs},
		{name: "engage-pm", hour: 18, minute: 0, run: s.pipeline.Engage},
		{name: "weekly-report", hour: 9, minute: 0, weekday: &sunday, run: s.pipeline.WeeklyReport},
	}
}

// Start begins the tick loop. Returns an error if already running.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(context.Background())

	log.Printf("[Scheduler] Starting with tick interval %v", s.cfg.TickInterval())
	s.wg.Add(1)
	go s.loop()
	return nil
}

// Stop halts the tick loop and waits for in-flight routines.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	log.Printf("[Scheduler] Stopping...")
	cancel()
	s.wg.Wait()
	log.Printf("[Scheduler] Stopped")
}

// Running reports whether the tick loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.fire(s.ctx, s.now())
		}
	}
}

// fire dispatches every trigger matching the current minute. Each
// trigger fires at most once per minute regardless of tick rate.
func (s *Scheduler) fire(ctx context.Context, now time.Time) {
	minuteKey := now.Format("2006-01-02 15:04")
	for _, t := range s.triggers() {
		if t.hour != now.Hour() || t.minute != now.Minute() {
			continue
		}
		if t.weekday != nil && *t.weekday != now.Weekday() {
			continue
		}
		if s.fired[t.name] == minuteKey {
			continue
		}
		s.fired[t.name] = minuteKey

		t := t
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runRoutine(ctx, t)
		}()
	}
}

// runRoutine executes one trigger under its lock. A panic in one
// routine is contained here so the rest of the schedule keeps going.
func (s *Scheduler) runRoutine(ctx context.Context, t trigger) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Scheduler] Routine %s panicked: %v", t.name, r)
		}
	}()

	lock := distlock.New(s.redis, "routine:"+t.name, routineLockTTL)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		log.Printf("[Scheduler] Routine %s lock error: %v", t.name, err)
		return
	}
	if !acquired {
		log.Printf("[Scheduler] Routine %s already running, skipping", t.name)
		return
	}
	defer lock.Release(ctx)

	log.Printf("[Scheduler] Routine %s starting", t.name)
	if err := t.run(ctx); err != nil {
		log.Printf("[Scheduler] Routine %s failed: %v", t.name, err)
		return
	}
	log.Printf("[Scheduler] Routine %s finished", t.name)
}

// RunOnce executes the morning routine and one tweet, then returns.
// Used by the --once flag for manual or cron-driven runs.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if err := s.pipeline.Morning(ctx); err != nil {
		return err
	}
	return s.pipeline.Tweet(ctx)
}
