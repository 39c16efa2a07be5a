package source

import (
	"fmt"

	"github.com/okian/fantasyboard/internal/domain/model"
)

type bootstrapEvent struct {
	ID        *int `json:"id"`
	IsCurrent bool `json:"is_current"`
}

type bootstrapResponse struct {
	Events *[]bootstrapEvent `json:"events"`
}

func (b bootstrapResponse) current() (model.PeriodID, error) {
	if b.Events == nil {
		return 0, fmt.Errorf("%w: bootstrap-static has no events", ErrDataShape)
	}
	for _, ev := range *b.Events {
		if !ev.IsCurrent {
			continue
		}
		if ev.ID == nil {
			return 0, fmt.Errorf("%w: current event has no id", ErrDataShape)
		}
		return model.PeriodID(*ev.ID), nil
	}
	return 0, ErrNoActivePeriod
}

type historyRow struct {
	Event         *int    `json:"event"`
	Points        *int    `json:"points"`
	TotalPoints   *int    `json:"total_points"`
	TransfersCost int     `json:"event_transfers_cost"`
	ActiveChip    *string `json:"active_chip"`
}

type chipUse struct {
	Name  string `json:"name"`
	Event int    `json:"event"`
}

type historyResponse struct {
	Current *[]historyRow `json:"current"`
	Chips   []chipUse     `json:"chips"`
}

func (h historyResponse) record(period model.PeriodID) (model.RawPeriodRecord, error) {
	if h.Current == nil {
		return model.RawPeriodRecord{}, fmt.Errorf("%w: history has no current rows", ErrDataShape)
	}
	for _, row := range *h.Current {
		if row.Event == nil || model.PeriodID(*row.Event) != period {
			continue
		}
		if row.Points == nil || row.TotalPoints == nil {
			return model.RawPeriodRecord{}, fmt.Errorf("%w: history row for period %d lacks points", ErrDataShape, period)
		}
		return model.RawPeriodRecord{
			Period:          period,
			Points:          *row.Points,
			TotalPoints:     *row.TotalPoints,
			TransferPenalty: row.TransfersCost,
			ActiveModifier:  h.modifier(row, period),
		}, nil
	}
	return model.RawPeriodRecord{}, fmt.Errorf("%w: period %d", ErrNotFoundForPeriod, period)
}

func (h historyResponse) modifier(row historyRow, period model.PeriodID) model.ActiveModifier {
	if row.ActiveChip != nil {
		if m := model.NormalizeModifier(*row.ActiveChip); m != model.ModifierNone {
			return m
		}
	}
	for _, c := range h.Chips {
		if model.PeriodID(c.Event) == period {
			return model.NormalizeModifier(c.Name)
		}
	}
	return model.ModifierNone
}

type profileResponse struct {
	Name *string `json:"name"`
}
