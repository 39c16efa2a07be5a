// Package scoring derives per-period results from raw source records.
package scoring

import (
	"strings"

	"github.com/okian/fantasyboard/internal/domain/model"
)

// Derive turns a raw history record into an EntityResult.
//
// PeriodScore is points net of the transfer penalty. PenaltyCost is the
// negated penalty (0 when nothing was paid). CumulativeScore is copied
// verbatim from the source and never recomputed here.
func Derive(id model.EntityID, name string, rec model.RawPeriodRecord) model.EntityResult {
	cost := rec.TransferPenalty
	if cost < 0 {
		cost = -cost
	}

	modifier := rec.ActiveModifier
	if modifier == "" {
		modifier = model.ModifierNone
	}

	return model.EntityResult{
		EntityID:        id,
		DisplayName:     DisplayName(name),
		PeriodScore:     rec.Points - cost,
		PenaltyCost:     -cost,
		ActiveModifier:  modifier,
		CumulativeScore: rec.TotalPoints,
	}
}

// DisplayName falls back to the placeholder for blank names.
func DisplayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return model.PlaceholderName
	}
	return name
}
