package source

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel kinds for source errors.
var (
	// ErrSourceUnavailable covers network failures and non-success statuses.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrDataShape means the response was malformed or missing required fields.
	ErrDataShape = errors.New("unexpected response shape")
	// ErrNotFoundForPeriod means the entity has no record for the queried period.
	ErrNotFoundForPeriod = errors.New("entity not found for period")
	// ErrNoActivePeriod means the source reports no current period.
	ErrNoActivePeriod = errors.New("no active period")

	// ErrCircuitOpen is returned without calling upstream while the breaker is open.
	ErrCircuitOpen = fmt.Errorf("%w: circuit open", ErrSourceUnavailable)
	// ErrRateLimited is returned when the limiter could not grant a token in time.
	ErrRateLimited = fmt.Errorf("%w: rate limited", ErrSourceUnavailable)
)

// Kind returns a short label for err, used in logs and metric labels.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFoundForPeriod):
		return "not_found"
	case errors.Is(err, ErrNoActivePeriod):
		return "no_active_period"
	case errors.Is(err, ErrDataShape):
		return "bad_data"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "unavailable"
	}
}
