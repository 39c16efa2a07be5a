// Package aggregator fans out per-entity fetches for one period and
// collects the entities that produced a usable result.
package aggregator

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/okian/fantasyboard/internal/adapters/source"
	"github.com/okian/fantasyboard/internal/domain/model"
	"github.com/okian/fantasyboard/internal/domain/scoring"
	"github.com/okian/fantasyboard/pkg/logger"
	"github.com/okian/fantasyboard/pkg/metrics"
	"github.com/okian/fantasyboard/pkg/tracing"
)

const defaultConcurrency = 8

// Outcome is the per-entity result of one fan-out: either Result is set or
// Err explains why the entity is absent.
type Outcome struct {
	EntityID model.EntityID
	Result   model.EntityResult
	Err      error
}

// OK reports whether the entity produced a result.
func (o Outcome) OK() bool { return o.Err == nil }

// Aggregator fetches and derives entity results through a Source.
type Aggregator struct {
	src         source.Source
	concurrency int
	logger      logger.Logger
}

// New creates an Aggregator reading from src.
func New(src source.Source, opts ...Option) *Aggregator {
	a := &Aggregator{
		src:         src,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logger.Get().Named("aggregator")
	}
	return a
}

// Collect fetches every id for period with bounded concurrency and waits
// for all of them. Outcomes are returned in the order of ids regardless of
// completion order.
func (a *Aggregator) Collect(ctx context.Context, ids []model.EntityID, period model.PeriodID) []Outcome {
	outcomes := make([]Outcome, len(ids))

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			outcomes[i] = a.fetch(ctx, id, period)
			return nil
		})
	}
	_ = g.Wait() // per-entity failures live in the outcomes

	return outcomes
}

// Aggregate returns the surviving results in the order of ids. It never
// fails as a whole; failed entities are logged and left out.
func (a *Aggregator) Aggregate(ctx context.Context, ids []model.EntityID, period model.PeriodID) []model.EntityResult {
	outcomes := a.Collect(ctx, ids, period)
	results := make([]model.EntityResult, 0, len(outcomes))
	for _, o := range outcomes {
		if o.OK() {
			results = append(results, o.Result)
		}
	}
	return results
}

func (a *Aggregator) fetch(ctx context.Context, id model.EntityID, period model.PeriodID) Outcome {
	ctx, span := tracing.StartSpan(ctx, "aggregator.entity",
		attribute.String("entity_id", string(id)),
		attribute.Int("period", int(period)),
	)
	start := time.Now()

	rec, err := a.src.EntityHistory(ctx, id, period)
	if err != nil {
		return a.drop(ctx, span, id, period, "history", err)
	}

	// A profile without a name already comes back as the placeholder; a
	// failed profile call drops the entity like a failed history call.
	name, err := a.src.EntityProfile(ctx, id)
	if err != nil {
		return a.drop(ctx, span, id, period, "profile", err)
	}

	res := scoring.Derive(id, name, rec)
	metrics.RecordEntityFetched()
	a.logger.Debug(ctx, "entity fetched",
		logger.String("entity_id", string(id)),
		logger.Int("cumulative", res.CumulativeScore),
		logger.Duration("took", time.Since(start)),
	)
	tracing.End(span, nil)
	return Outcome{EntityID: id, Result: res}
}

func (a *Aggregator) drop(ctx context.Context, span trace.Span, id model.EntityID, period model.PeriodID, stage string, err error) Outcome {
	kind := source.Kind(err)
	metrics.RecordEntityFailure(kind)
	a.logger.Warn(ctx, "dropping entity from refresh",
		logger.String("entity_id", string(id)),
		logger.Int("period", int(period)),
		logger.String("stage", stage),
		logger.String("kind", kind),
		logger.Error(err),
	)
	tracing.End(span, err)
	return Outcome{EntityID: id, Err: err}
}
