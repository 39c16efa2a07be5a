package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/fantasyboard/internal/domain/schedule"
)

type countingRefresher struct {
	calls atomic.Int64
	err   error
}

func (c *countingRefresher) Refresh(context.Context) error {
	c.calls.Add(1)
	return c.err
}

// blockingRefresher holds every call until release is sent, recording
// the fake-clock time at which each call started.
type blockingRefresher struct {
	clock   clockwork.Clock
	entered chan time.Time
	release chan struct{}
	active  atomic.Int64
	peak    atomic.Int64
	calls   atomic.Int64
}

func newBlockingRefresher(clock clockwork.Clock) *blockingRefresher {
	return &blockingRefresher{clock: clock, entered: make(chan time.Time, 4), release: make(chan struct{})}
}

func (b *blockingRefresher) Refresh(ctx context.Context) error {
	b.calls.Add(1)
	n := b.active.Add(1)
	defer b.active.Add(-1)
	for {
		p := b.peak.Load()
		if n <= p || b.peak.CompareAndSwap(p, n) {
			break
		}
	}
	b.entered <- b.clock.Now()
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return nil
}

func (b *blockingRefresher) waitEntered(t *testing.T) time.Time {
	t.Helper()
	select {
	case at := <-b.entered:
		return at
	case <-time.After(5 * time.Second):
		t.Fatal("refresh was not triggered")
		return time.Time{}
	}
}

// friday is 2024-09-13 10:00 UTC; the following day is a Saturday.
var friday = time.Date(2024, 9, 13, 10, 0, 0, 0, time.UTC)

type harness struct {
	clock  *clockwork.FakeClock
	sched  *Scheduler
	cancel context.CancelFunc
	done   chan struct{}
}

func startScheduler(t *testing.T, at time.Time, r Refresher, opts ...SchedulerOption) *harness {
	t.Helper()
	clock := clockwork.NewFakeClockAt(at)
	opts = append([]SchedulerOption{WithClock(clock), WithLocation(time.UTC)}, opts...)
	h := &harness{clock: clock, sched: NewScheduler(r, opts...), done: make(chan struct{})}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() {
		defer close(h.done)
		h.sched.Run(ctx)
	}()
	h.settle(t)
	return h
}

// settle waits until the scheduler is parked on the clock.
func (h *harness) settle(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("scheduler did not park: %v", err)
	}
}

// advanceTo moves the fake clock minute by minute so every wake-up is
// observed.
func (h *harness) advanceTo(t *testing.T, target time.Time) {
	t.Helper()
	for h.clock.Now().Before(target) {
		h.clock.Advance(time.Minute)
		h.settle(t)
	}
}

func (h *harness) stop() {
	h.cancel()
	<-h.done
}

func TestScheduler(t *testing.T) {
	convey.Convey("Given a predicate that flags no days", t, func() {
		r := &countingRefresher{}
		h := startScheduler(t, friday, r, WithDayPredicate(schedule.Never()))
		defer h.stop()

		convey.Convey("When several days pass", func() {
			h.advanceTo(t, friday.AddDate(0, 0, 3))

			convey.Convey("Then no refresh should be triggered", func() {
				convey.So(r.calls.Load(), convey.ShouldEqual, 0)
				st := h.sched.Status()
				convey.So(st.State, convey.ShouldEqual, StateIdle)
				convey.So(st.DayActive, convey.ShouldBeFalse)
			})
		})
	})

	convey.Convey("Given the weekend predicate starting on a Friday", t, func() {
		r := &countingRefresher{}
		h := startScheduler(t, friday, r, WithDayPredicate(schedule.Weekend()))
		defer h.stop()

		convey.Convey("When Friday passes", func() {
			h.advanceTo(t, time.Date(2024, 9, 13, 23, 59, 0, 0, time.UTC))

			convey.Convey("Then nothing should run and Saturday should be flagged", func() {
				convey.So(r.calls.Load(), convey.ShouldEqual, 0)
				st := h.sched.Status()
				convey.So(st.DayActive, convey.ShouldBeFalse)
				convey.So(st.NextCheck, convey.ShouldEqual, time.Date(2024, 9, 14, 23, 50, 0, 0, time.UTC))
			})
		})

		convey.Convey("When Saturday morning passes before the window", func() {
			h.advanceTo(t, time.Date(2024, 9, 14, 10, 30, 0, 0, time.UTC))

			convey.Convey("Then it should poll hourly while idle", func() {
				// 00:00 through 10:00
				convey.So(r.calls.Load(), convey.ShouldEqual, 11)
				st := h.sched.Status()
				convey.So(st.State, convey.ShouldEqual, StateIdle)
				convey.So(st.DayActive, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When an hour inside Saturday's window passes", func() {
			h.advanceTo(t, time.Date(2024, 9, 14, 11, 0, 0, 0, time.UTC))
			before := r.calls.Load()
			h.advanceTo(t, time.Date(2024, 9, 14, 12, 0, 0, 0, time.UTC))

			convey.Convey("Then it should be active and refresh every five minutes", func() {
				convey.So(r.calls.Load()-before, convey.ShouldEqual, 12)
				st := h.sched.Status()
				convey.So(st.State, convey.ShouldEqual, StateActive)
				convey.So(st.LastTrigger, convey.ShouldEqual, time.Date(2024, 9, 14, 12, 0, 0, 0, time.UTC))
				convey.So(st.Triggers, convey.ShouldEqual, r.calls.Load())
			})
		})

		convey.Convey("When the window closes", func() {
			h.advanceTo(t, time.Date(2024, 9, 14, 23, 30, 0, 0, time.UTC))

			convey.Convey("Then it should drop back to idle", func() {
				convey.So(h.sched.Status().State, convey.ShouldEqual, StateIdle)
			})
		})
	})

	convey.Convey("Given a start inside the window on an active day", t, func() {
		r := &countingRefresher{err: errors.New("upstream down")}
		start := time.Date(2024, 9, 14, 12, 0, 0, 0, time.UTC)
		h := startScheduler(t, start, r, WithDayPredicate(schedule.Weekend()))
		defer h.stop()

		convey.Convey("When refreshes keep failing", func() {
			h.advanceTo(t, start.Add(30*time.Minute))

			convey.Convey("Then the loop should keep triggering on schedule", func() {
				convey.So(r.calls.Load(), convey.ShouldEqual, 6)
				convey.So(h.sched.Status().State, convey.ShouldEqual, StateActive)
			})
		})
	})

	convey.Convey("Given custom intervals and window", t, func() {
		r := &countingRefresher{}
		start := time.Date(2024, 9, 16, 8, 0, 0, 0, time.UTC) // Monday
		h := startScheduler(t, start, r,
			WithDayPredicate(schedule.Always()),
			WithWindow(schedule.Window{Start: schedule.MustTimeOfDay("08:00"), End: schedule.MustTimeOfDay("09:00")}),
			WithIntervals(10*time.Minute, 0),
		)
		defer h.stop()

		convey.Convey("When the day runs past the window", func() {
			h.advanceTo(t, start.Add(3*time.Hour))

			convey.Convey("Then only the window should see refreshes", func() {
				// 08:10 through 08:50
				convey.So(r.calls.Load(), convey.ShouldEqual, 5)
			})
		})
	})
	convey.Convey("Given a refresh that runs longer than the active interval", t, func() {
		start := time.Date(2024, 9, 14, 12, 0, 0, 0, time.UTC)
		clock := clockwork.NewFakeClockAt(start)
		r := newBlockingRefresher(clock)
		h := &harness{clock: clock, done: make(chan struct{})}
		h.sched = NewScheduler(r, WithClock(clock), WithLocation(time.UTC), WithDayPredicate(schedule.Weekend()))
		ctx, cancel := context.WithCancel(context.Background())
		h.cancel = cancel
		go func() {
			defer close(h.done)
			h.sched.Run(ctx)
		}()
		h.settle(t)
		defer h.stop()

		convey.Convey("When the clock passes two more intervals while it is running", func() {
			h.advanceTo(t, start.Add(4*time.Minute))
			clock.Advance(time.Minute)
			first := r.waitEntered(t)
			for i := 0; i < 10; i++ {
				clock.Advance(time.Minute)
			}

			convey.Convey("Then the next trigger should wait for it to finish", func() {
				convey.So(first, convey.ShouldEqual, start.Add(5*time.Minute))
				select {
				case at := <-r.entered:
					t.Fatalf("refresh overlapped at %v", at)
				case <-time.After(50 * time.Millisecond):
				}
				convey.So(r.calls.Load(), convey.ShouldEqual, 1)

				r.release <- struct{}{}
				second := r.waitEntered(t)
				convey.So(second, convey.ShouldEqual, start.Add(15*time.Minute))
				convey.So(r.calls.Load(), convey.ShouldEqual, 2)
				convey.So(r.peak.Load(), convey.ShouldEqual, 1)

				r.release <- struct{}{}
				h.settle(t)
				st := h.sched.Status()
				convey.So(st.LastTrigger, convey.ShouldEqual, start.Add(15*time.Minute))
				convey.So(st.Triggers, convey.ShouldEqual, 2)
			})
		})
	})
}
