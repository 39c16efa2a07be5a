// Package types contains JSON view types shared by the HTTP and chat front-ends.
package types

import (
	"time"

	"github.com/okian/fantasyboard/internal/domain/model"
)

// Entry represents a leaderboard row
type Entry struct {
	Rank            int    `json:"rank"`
	EntityID        string `json:"entity_id"`
	Name            string `json:"name"`
	PeriodScore     int    `json:"period_score"`
	PenaltyCost     int    `json:"penalty_cost"`
	ActiveModifier  string `json:"active_modifier"`
	CumulativeScore int    `json:"cumulative_score"`
}

// Leaderboard is the serialized form of a snapshot.
type Leaderboard struct {
	PeriodID    int       `json:"period_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Count       int       `json:"count"`
	Entries     []Entry   `json:"entries"`
}

// EntryFrom converts a ranked snapshot row.
func EntryFrom(r model.RankedEntry) Entry {
	return Entry{
		Rank:            r.Rank,
		EntityID:        string(r.Result.EntityID),
		Name:            r.Result.DisplayName,
		PeriodScore:     r.Result.PeriodScore,
		PenaltyCost:     r.Result.PenaltyCost,
		ActiveModifier:  r.Result.ActiveModifier.Label(),
		CumulativeScore: r.Result.CumulativeScore,
	}
}

// LeaderboardFrom converts rows of a snapshot, limited to the first n when n > 0.
func LeaderboardFrom(s *model.Snapshot, n int) Leaderboard {
	rows := s.Entries()
	if n > 0 {
		rows = s.Top(n)
	}
	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, EntryFrom(r))
	}
	return Leaderboard{
		PeriodID:    int(s.PeriodID()),
		GeneratedAt: s.GeneratedAt(),
		Count:       len(entries),
		Entries:     entries,
	}
}
