package service

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/fantasyboard/internal/domain/schedule"
	"github.com/okian/fantasyboard/pkg/logger"
	"github.com/okian/fantasyboard/pkg/metrics"
)

// Default schedule.
const (
	defaultActiveInterval = 5 * time.Minute
	defaultIdleInterval   = 60 * time.Minute
)

// State is the scheduler's position in its day cycle.
type State string

// Scheduler states.
const (
	StateIdle   State = "idle"
	StateActive State = "active"
)

// Refresher is what the scheduler triggers.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithClock sets the time source.
func WithClock(c clockwork.Clock) SchedulerOption {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithDayPredicate sets the active-day rule.
func WithDayPredicate(p schedule.DayPredicate) SchedulerOption {
	return func(s *Scheduler) {
		if p != nil {
			s.predicate = p
		}
	}
}

// WithWindow sets the active-hours window.
func WithWindow(w schedule.Window) SchedulerOption {
	return func(s *Scheduler) {
		s.window = w
	}
}

// WithDailyCheck sets when the next day's flag is evaluated.
func WithDailyCheck(t schedule.TimeOfDay) SchedulerOption {
	return func(s *Scheduler) {
		s.checkAt = t
	}
}

// WithIntervals sets the refresh cadence inside the active window and the
// coarser idle poll on flagged days. A non-positive idle interval disables
// idle polling.
func WithIntervals(active, idle time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if active > 0 {
			s.activeEvery = active
		}
		s.idleEvery = idle
	}
}

// WithLocation sets the time zone day boundaries are computed in.
func WithLocation(loc *time.Location) SchedulerOption {
	return func(s *Scheduler) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithSchedulerLogger sets the scheduler logger.
func WithSchedulerLogger(l logger.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// SchedulerStatus is a point-in-time view of the scheduler.
type SchedulerStatus struct {
	State       State     `json:"state"`
	DayActive   bool      `json:"day_active"`
	NextCheck   time.Time `json:"next_check"`
	LastTrigger time.Time `json:"last_trigger"`
	Triggers    int64     `json:"triggers"`
}

// Scheduler decides when to refresh. Each day is flagged active or not by a
// daily check that evaluates the predicate for the following day. On a
// flagged day it refreshes every active interval inside the window and every
// idle interval outside it. On an unflagged day it never triggers.
//
// Refreshes run synchronously on the scheduler goroutine, so a slow refresh
// delays the next trigger instead of overlapping it.
type Scheduler struct {
	refresher   Refresher
	clock       clockwork.Clock
	predicate   schedule.DayPredicate
	window      schedule.Window
	checkAt     schedule.TimeOfDay
	activeEvery time.Duration
	idleEvery   time.Duration
	loc         *time.Location
	logger      logger.Logger

	mu          sync.Mutex
	state       State
	flags       map[string]bool
	nextCheck   time.Time
	lastTrigger time.Time
	triggers    int64
}

// NewScheduler creates a Scheduler for r. Defaults: weekend days, 11:00 to
// 23:00 window, 23:50 daily check, 5 minute active and 60 minute idle
// intervals, local time.
func NewScheduler(r Refresher, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		refresher:   r,
		clock:       clockwork.NewRealClock(),
		predicate:   schedule.Weekend(),
		window:      schedule.Window{Start: schedule.TimeOfDay{Hour: 11}, End: schedule.TimeOfDay{Hour: 23}},
		checkAt:     schedule.TimeOfDay{Hour: 23, Minute: 50},
		activeEvery: defaultActiveInterval,
		idleEvery:   defaultIdleInterval,
		loc:         time.Local,
		state:       StateIdle,
		flags:       make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("scheduler")
	}
	return s
}

// Run drives the scheduler until ctx is done. It assumes a refresh has just
// completed, so the first trigger is at least one interval away.
func (s *Scheduler) Run(ctx context.Context) {
	s.seed(ctx, s.now())

	for {
		wait := s.step(ctx)
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "scheduler stopped")
			return
		case <-s.clock.After(wait):
		}
	}
}

// Status returns the current scheduler view.
func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SchedulerStatus{
		State:       s.state,
		DayActive:   s.flags[schedule.DayKey(s.now())],
		NextCheck:   s.nextCheck,
		LastTrigger: s.lastTrigger,
		Triggers:    s.triggers,
	}
}

func (s *Scheduler) now() time.Time { return s.clock.Now().In(s.loc) }

// seed flags today and, when today's check time has already passed,
// tomorrow as well.
func (s *Scheduler) seed(ctx context.Context, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flags[schedule.DayKey(now)] = s.predicate.IsActiveDay(now)
	if !s.checkAt.On(now).After(now) {
		tomorrow := now.AddDate(0, 0, 1)
		s.flags[schedule.DayKey(tomorrow)] = s.predicate.IsActiveDay(tomorrow)
	}
	s.nextCheck = s.checkAt.Next(now)
	s.lastTrigger = now
	s.state = StateIdle

	s.logger.Info(ctx, "scheduler started",
		logger.Bool("day_active", s.flags[schedule.DayKey(now)]),
		logger.String("window", s.window.Start.String()+"-"+s.window.End.String()),
		logger.String("daily_check", s.checkAt.String()),
		logger.Duration("active_interval", s.activeEvery),
		logger.Duration("idle_interval", s.idleEvery),
	)
}

// step performs whatever is due now and returns how long to sleep.
func (s *Scheduler) step(ctx context.Context) time.Duration {
	now := s.now()

	s.mu.Lock()
	if !now.Before(s.nextCheck) {
		s.dailyCheckLocked(ctx, now)
	}
	state, interval := s.evaluateLocked(now)
	due := interval > 0 && !now.Before(s.lastTrigger.Add(interval))
	if due {
		s.lastTrigger = now
		s.triggers++
	}
	s.mu.Unlock()

	if due {
		metrics.RecordSchedulerTrigger(string(state))
		s.logger.Debug(ctx, "scheduled refresh", logger.String("state", string(state)))
		if err := s.refresher.Refresh(ctx); err != nil {
			s.logger.Warn(ctx, "scheduled refresh failed", logger.Error(err))
		}
		now = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, interval = s.evaluateLocked(now)

	wake := s.nextCheck
	if interval > 0 {
		next := s.lastTrigger.Add(interval)
		if next.Before(wake) {
			wake = next
		}
	}
	if b := s.window.NextBoundary(now); !b.IsZero() && b.Before(wake) {
		wake = b
	}
	if m := schedule.NextMidnight(now); m.Before(wake) {
		wake = m
	}

	wait := wake.Sub(now)
	if wait < 0 {
		wait = 0
	}
	return wait
}

func (s *Scheduler) dailyCheckLocked(ctx context.Context, now time.Time) {
	tomorrow := now.AddDate(0, 0, 1)
	active := s.predicate.IsActiveDay(tomorrow)
	s.flags[schedule.DayKey(tomorrow)] = active

	today := schedule.DayKey(now)
	for k := range s.flags {
		if k < today {
			delete(s.flags, k)
		}
	}
	s.nextCheck = s.checkAt.Next(now)

	metrics.RecordDailyCheck()
	s.logger.Info(ctx, "daily check",
		logger.String("day", schedule.DayKey(tomorrow)),
		logger.Bool("active", active),
	)
}

// evaluateLocked returns the state for now and the refresh interval that
// applies in it. Zero means no scheduled refreshes.
func (s *Scheduler) evaluateLocked(now time.Time) (State, time.Duration) {
	flagged := s.flags[schedule.DayKey(now)]

	state, interval := StateIdle, time.Duration(0)
	switch {
	case flagged && s.window.Contains(now):
		state, interval = StateActive, s.activeEvery
	case flagged && s.idleEvery > 0:
		interval = s.idleEvery
	}

	if state != s.state {
		s.logger.Info(context.Background(), "scheduler state changed",
			logger.String("from", string(s.state)),
			logger.String("to", string(state)),
		)
		s.state = state
	}
	metrics.UpdateSchedulerState(state == StateActive, flagged)
	return state, interval
}
