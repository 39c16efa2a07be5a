// Package service composes the fetch client, aggregator, ranking and
// snapshot store into the leaderboard engine the front-ends read from.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/okian/fantasyboard/internal/adapters/repository"
	"github.com/okian/fantasyboard/internal/adapters/source"
	"github.com/okian/fantasyboard/internal/aggregator"
	"github.com/okian/fantasyboard/internal/domain/model"
	"github.com/okian/fantasyboard/internal/domain/ranking"
	"github.com/okian/fantasyboard/pkg/logger"
	"github.com/okian/fantasyboard/pkg/metrics"
	"github.com/okian/fantasyboard/pkg/tracing"
)

const (
	defaultRefreshTimeout = 2 * time.Minute
	refreshKey            = "refresh"
)

// Service implements the dependencies required by the HTTP API and the chat
// handler.
type Service struct {
	mu sync.RWMutex

	src        source.Source
	aggregator *aggregator.Aggregator
	store      *repository.SnapshotStore
	scheduler  *Scheduler
	ids        []model.EntityID

	// Configuration
	clock          clockwork.Clock
	refreshTimeout time.Duration
	concurrency    int
	schedulerOpts  []SchedulerOption

	group singleflight.Group

	// State
	started     bool
	cancel      context.CancelFunc
	done        chan struct{}
	lastErr     error
	lastRefresh time.Time
	refreshes   int64
	failures    int64

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithServiceClock sets the clock used for snapshot timestamps and the
// scheduler.
func WithServiceClock(c clockwork.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithRefreshTimeout bounds one whole refresh.
func WithRefreshTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.refreshTimeout = d
		}
	}
}

// WithFetchConcurrency bounds per-entity fan-out.
func WithFetchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithSchedule passes options through to the scheduler.
func WithSchedule(opts ...SchedulerOption) Option {
	return func(s *Service) {
		s.schedulerOpts = append(s.schedulerOpts, opts...)
	}
}

// WithStore sets the snapshot store.
func WithStore(store *repository.SnapshotStore) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// New constructs a Service tracking ids through src. ids order is the
// tie-break order of the ranking.
func New(src source.Source, ids []model.EntityID, opts ...Option) *Service {
	s := &Service{
		src:            src,
		ids:            append([]model.EntityID(nil), ids...),
		clock:          clockwork.NewRealClock(),
		refreshTimeout: defaultRefreshTimeout,
		store:          repository.NewSnapshotStore(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.aggregator = aggregator.New(src,
		aggregator.WithConcurrency(s.concurrency),
		aggregator.WithLogger(s.logger.Named("aggregator")),
	)
	schedOpts := append([]SchedulerOption{
		WithClock(s.clock),
		WithSchedulerLogger(s.logger.Named("scheduler")),
	}, s.schedulerOpts...)
	s.scheduler = NewScheduler(s, schedOpts...)
	return s
}

// Start performs one proactive refresh and then runs the scheduler in the
// background. A failed initial refresh is logged, not returned: the first
// reader will retry on demand.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	s.logger.Info(ctx, "starting leaderboard service", logger.Int("entities", len(s.ids)))

	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn(ctx, "initial refresh failed", logger.Error(err))
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.scheduler.Run(runCtx)
	}()

	s.logger.Info(ctx, "leaderboard service started")
	return nil
}

// Stop halts the scheduler and then waits for any refresh still running,
// including one whose callers have already given up.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.started = false
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	s.logger.Info(context.Background(), "stopping leaderboard service")
	if cancel != nil {
		cancel()
		<-done
	}
	// Joins the run in flight, if any; otherwise returns at once.
	_, _, _ = s.group.Do(refreshKey, func() (interface{}, error) { return nil, nil })
	s.logger.Info(context.Background(), "leaderboard service stopped")
}

// Refresh runs one refresh cycle. Concurrent callers share the cycle that
// is already in flight rather than starting another. The cycle itself is
// detached from the caller's cancellation; a caller that gives up only
// stops waiting.
func (s *Service) Refresh(ctx context.Context) error {
	ch := s.group.DoChan(refreshKey, func() (interface{}, error) {
		return nil, s.refresh(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Shared {
			metrics.RecordRefreshJoined()
		}
		return res.Err
	case <-ctx.Done():
		return fmt.Errorf("waiting for refresh: %w", ctx.Err())
	}
}

func (s *Service) refresh(ctx context.Context) (err error) {
	ctx, cancel := context.WithTimeout(ctx, s.refreshTimeout)
	defer cancel()

	runID := uuid.NewString()
	ctx, span := tracing.StartSpan(ctx, "leaderboard.refresh", attribute.String("run_id", runID))
	defer func() { tracing.End(span, err) }()

	log := s.logger
	start := s.clock.Now()

	period, err := s.src.CurrentPeriod(ctx)
	if err != nil {
		took := s.clock.Since(start)
		metrics.RecordRefresh(metrics.RefreshAborted, took)
		log.Warn(ctx, "refresh aborted, keeping previous snapshot",
			logger.String("run_id", runID),
			logger.String("kind", source.Kind(err)),
			logger.Error(err),
		)
		s.recordResult(err)
		return fmt.Errorf("refresh: %w", err)
	}
	tracing.AddSpanAttributes(ctx, attribute.Int("period", int(period)))

	results := s.aggregator.Aggregate(ctx, s.ids, period)
	snap := ranking.Build(period, results, s.clock.Now())
	s.store.Publish(ctx, snap)

	took := s.clock.Since(start)
	metrics.RecordRefresh(metrics.RefreshPublished, took)
	log.Info(ctx, "snapshot published",
		logger.String("run_id", runID),
		logger.Int("period", int(period)),
		logger.Int("entities", snap.Len()),
		logger.Int("dropped", len(s.ids)-snap.Len()),
		logger.Duration("took", took),
	)
	s.recordResult(nil)
	return nil
}

func (s *Service) recordResult(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshes++
	s.lastRefresh = s.clock.Now()
	s.lastErr = err
	if err != nil {
		s.failures++
	}
}

// GetSnapshot returns the current snapshot. Before the first publish it
// runs a refresh and waits for it; ErrNoSnapshot means that refresh could
// not produce data.
func (s *Service) GetSnapshot(ctx context.Context) (*model.Snapshot, error) {
	if snap, ok := s.store.Current(ctx); ok {
		return snap, nil
	}

	s.logger.Info(ctx, "no snapshot yet, refreshing on demand")
	err := s.Refresh(ctx)
	if snap, ok := s.store.Current(ctx); ok {
		return snap, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoSnapshot, err)
	}
	return nil, ErrNoSnapshot
}

// ForceRefreshNow refreshes outside the schedule and returns the resulting
// snapshot. A failed refresh returns the error together with whatever
// snapshot is still published.
func (s *Service) ForceRefreshNow(ctx context.Context) (*model.Snapshot, error) {
	err := s.Refresh(ctx)
	snap, _ := s.store.Current(ctx)
	return snap, err
}

// Rank returns the row for id, refreshing first if nothing is published.
func (s *Service) Rank(ctx context.Context, id model.EntityID) (model.RankedEntry, error) {
	if _, err := s.GetSnapshot(ctx); err != nil {
		return model.RankedEntry{}, err
	}
	return s.store.Rank(ctx, id)
}

// EntityIDs returns the configured ids in tie-break order.
func (s *Service) EntityIDs() []model.EntityID {
	return append([]model.EntityID(nil), s.ids...)
}

// SchedulerStatus exposes the scheduler view.
func (s *Service) SchedulerStatus() SchedulerStatus {
	return s.scheduler.Status()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	stats := map[string]interface{}{
		"started":          s.started,
		"entities":         len(s.ids),
		"refreshes":        s.refreshes,
		"refreshFailures":  s.failures,
		"snapshotVersion":  s.store.Version(),
		"scheduler":        s.scheduler.Status(),
		"refreshTimeout":   s.refreshTimeout.String(),
		"fetchConcurrency": s.concurrency,
	}
	if !s.lastRefresh.IsZero() {
		stats["lastRefresh"] = s.lastRefresh
	}
	if s.lastErr != nil {
		stats["lastError"] = s.lastErr.Error()
	}
	s.mu.RUnlock()

	if snap, ok := s.store.Current(context.Background()); ok {
		stats["period"] = int(snap.PeriodID())
		stats["rows"] = snap.Len()
		stats["generatedAt"] = snap.GeneratedAt()
	}
	if b, ok := s.src.(interface{ State() string }); ok {
		stats["breaker"] = b.State()
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	metrics.UpdateSystemMemoryUsage(mem.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	return stats
}
