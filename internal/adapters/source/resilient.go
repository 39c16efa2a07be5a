package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/okian/fantasyboard/internal/domain/model"
	"github.com/okian/fantasyboard/pkg/logger"
	"github.com/okian/fantasyboard/pkg/metrics"
	"github.com/okian/fantasyboard/pkg/tracing"
)

// Default resilience settings.
const (
	defaultRatePerSecond    = 10
	defaultBurst            = 5
	defaultCallTimeout      = 10 * time.Second
	defaultFailureThreshold = 5
	defaultOpenTimeout      = 60 * time.Second
	defaultBreakerName      = "source"
)

// Operation names used in spans, logs and metrics.
const (
	OpCurrentPeriod = "current_period"
	OpHistory       = "history"
	OpProfile       = "profile"
)

// ResilientOption configures a Resilient source.
type ResilientOption func(*Resilient)

// WithRateLimit sets the outbound token bucket. A non-positive rate
// disables limiting.
func WithRateLimit(perSecond float64, burst int) ResilientOption {
	return func(r *Resilient) {
		if perSecond <= 0 {
			r.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithCallTimeout bounds every upstream call.
func WithCallTimeout(d time.Duration) ResilientOption {
	return func(r *Resilient) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithBreaker sets how many consecutive unavailability failures open the
// breaker and how long it stays open before probing.
func WithBreaker(failures uint32, openFor time.Duration) ResilientOption {
	return func(r *Resilient) {
		if failures > 0 {
			r.failureThreshold = failures
		}
		if openFor > 0 {
			r.openTimeout = openFor
		}
	}
}

// WithBreakerName names the breaker in logs and metrics.
func WithBreakerName(name string) ResilientOption {
	return func(r *Resilient) {
		if name != "" {
			r.name = name
		}
	}
}

// WithResilientLogger sets the logger.
func WithResilientLogger(l logger.Logger) ResilientOption {
	return func(r *Resilient) {
		if l != nil {
			r.log = l
		}
	}
}

// Resilient decorates a Source with an outbound rate limit, a per-call
// timeout and a circuit breaker. It never retries.
//
// Only unavailability trips the breaker: not-found and malformed answers
// prove the upstream is reachable.
type Resilient struct {
	next    Source
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
	log     logger.Logger

	name             string
	failureThreshold uint32
	openTimeout      time.Duration
}

var _ Source = (*Resilient)(nil)

// NewResilient wraps next.
func NewResilient(next Source, opts ...ResilientOption) *Resilient {
	r := &Resilient{
		next:             next,
		limiter:          rate.NewLimiter(rate.Limit(defaultRatePerSecond), defaultBurst),
		timeout:          defaultCallTimeout,
		name:             defaultBreakerName,
		failureThreshold: defaultFailureThreshold,
		openTimeout:      defaultOpenTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Get().Named("source")
	}

	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        r.name,
		MaxRequests: 1,
		Timeout:     r.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= r.failureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, ErrSourceUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.log.Warn(context.Background(), "circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
			metrics.UpdateBreakerState(name, stateToInt(to), to.String())
		},
	})
	return r
}

func stateToInt(s gobreaker.State) int {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// State returns the breaker state name.
func (r *Resilient) State() string { return r.breaker.State().String() }

// CurrentPeriod implements Source.
func (r *Resilient) CurrentPeriod(ctx context.Context) (model.PeriodID, error) {
	return call(ctx, r, OpCurrentPeriod, nil, func(ctx context.Context) (model.PeriodID, error) {
		return r.next.CurrentPeriod(ctx)
	})
}

// EntityHistory implements Source.
func (r *Resilient) EntityHistory(ctx context.Context, id model.EntityID, period model.PeriodID) (model.RawPeriodRecord, error) {
	attrs := []attribute.KeyValue{attribute.String("entity_id", string(id)), attribute.Int("period", int(period))}
	return call(ctx, r, OpHistory, attrs, func(ctx context.Context) (model.RawPeriodRecord, error) {
		return r.next.EntityHistory(ctx, id, period)
	})
}

// EntityProfile implements Source.
func (r *Resilient) EntityProfile(ctx context.Context, id model.EntityID) (string, error) {
	attrs := []attribute.KeyValue{attribute.String("entity_id", string(id))}
	return call(ctx, r, OpProfile, attrs, func(ctx context.Context) (string, error) {
		return r.next.EntityProfile(ctx, id)
	})
}

func call[T any](ctx context.Context, r *Resilient, op string, attrs []attribute.KeyValue, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	ctx, span := tracing.StartSpan(ctx, "source."+op, attrs...)

	start := time.Now()
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			err = fmt.Errorf("%s: %w: %w", op, ErrRateLimited, err)
			metrics.RecordSourceRequest(op, Kind(err), time.Since(start))
			tracing.End(span, err)
			return zero, err
		}
		metrics.RecordRateLimitWait(time.Since(start))
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	began := time.Now()
	out, err := r.breaker.Execute(func() (interface{}, error) {
		return fn(callCtx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%s: %w", op, ErrCircuitOpen)
	}
	metrics.RecordSourceRequest(op, Kind(err), time.Since(began))
	tracing.End(span, err)
	if err != nil {
		return zero, err
	}
	return out.(T), nil
}
