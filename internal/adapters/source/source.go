// Package source is the fetch client for the external fantasy league API.
//
// Client is a pure capability boundary: one HTTP request per call, no
// caching, no retries and no timeouts of its own. Resilient layers rate
// limiting, per-call deadlines and a circuit breaker on top of any Source.
package source

import (
	"context"

	"github.com/okian/fantasyboard/internal/domain/model"
)

// Source is the read-only capability the aggregator depends on.
type Source interface {
	// CurrentPeriod returns the period the source flags as current.
	CurrentPeriod(ctx context.Context) (model.PeriodID, error)
	// EntityHistory returns the entity's record for period.
	EntityHistory(ctx context.Context, id model.EntityID, period model.PeriodID) (model.RawPeriodRecord, error)
	// EntityProfile returns the entity's display name.
	EntityProfile(ctx context.Context, id model.EntityID) (string, error)
}
