// Package eod owns the end-of-day deadline in live mode: the wall-clock
// cutoff, the cron entries that fire it, and the daily fills report.
package eod

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"orb-trading-bot/internal/engine"
	"orb-trading-bot/internal/interfaces"
	"orb-trading-bot/internal/logger"
)

// Cutoff returns the deadline instant for the trading date (YYYY-MM-DD) in loc.
func Cutoff(date string, at engine.Clock, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse trading date %q: %w", date, err)
	}
	return at.On(d, loc), nil
}

// Spec is the six-field cron expression firing at clock on tradingDays,
// a cron day-of-week field such as "1-5".
func Spec(at engine.Clock, tradingDays string) string {
	if tradingDays == "" {
		tradingDays = "*"
	}
	return fmt.Sprintf("0 %d %d * * %s", at.Minute, at.Hour, tradingDays)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTradingDays restricts every job to the given cron day-of-week field.
func WithTradingDays(days string) Option {
	return func(s *Scheduler) { s.days = days }
}

type job struct {
	name string
	at   engine.Clock
	fn   func(time.Time)
}

// Scheduler fires the cutoff, plus any extra daily jobs, on the session
// clock. Jobs run on the cron goroutine and must only post to a queue.
type Scheduler struct {
	loc  *time.Location
	days string
	jobs []job

	mu      sync.Mutex
	cron    *cron.Cron
	started bool
}

var _ interfaces.EodScheduler = (*Scheduler)(nil)

// NewScheduler creates a scheduler that calls post with the firing time at
// cutoff every trading day.
func NewScheduler(loc *time.Location, cutoff engine.Clock, post func(time.Time), opts ...Option) *Scheduler {
	s := &Scheduler{loc: loc, days: "1-5"}
	for _, o := range opts {
		o(s)
	}
	s.jobs = append(s.jobs, job{name: "eod_cutoff", at: cutoff, fn: post})
	return s
}

// AddJob registers another daily job. It must be called before Start.
func (s *Scheduler) AddJob(name string, at engine.Clock, fn func(time.Time)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("add job %s: scheduler already started", name)
	}
	s.jobs = append(s.jobs, job{name: name, at: at, fn: fn})
	return nil
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(s.loc))
	for _, j := range s.jobs {
		j := j
		spec := Spec(j.at, s.days)
		if _, err := c.AddFunc(spec, func() {
			now := time.Now().In(s.loc)
			logger.Info(context.Background(), "Scheduled job fired", "job", j.name, "at", now.Format(time.RFC3339))
			j.fn(now)
		}); err != nil {
			return fmt.Errorf("register %s (%s): %w", j.name, spec, err)
		}
		logger.Info(ctx, "Scheduled job registered", "job", j.name, "spec", spec, "timezone", s.loc.String())
	}
	c.Start()
	s.cron = c
	s.started = true
	return nil
}

// Stop stops the cron loop and waits for a running job, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.started = false
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	logger.Info(ctx, "Scheduler stopped")
}

// Next reports when the earliest job fires next, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return time.Time{}
	}
	var next time.Time
	for _, e := range s.cron.Entries() {
		if next.IsZero() || (!e.Next.IsZero() && e.Next.Before(next)) {
			next = e.Next
		}
	}
	return next
}
