package model

import "time"

// RankedEntry pairs a 1-based rank with the entity result holding it.
type RankedEntry struct {
	Rank   int
	Result EntityResult
}

// Snapshot is a fully ranked leaderboard as of one refresh. It has no
// exported fields and no mutators; readers get copies of its rows.
type Snapshot struct {
	periodID    PeriodID
	generatedAt time.Time
	entries     []RankedEntry
}

// NewSnapshot copies entries into a new Snapshot. Callers are expected to
// pass entries already ordered by rank.
func NewSnapshot(periodID PeriodID, generatedAt time.Time, entries []RankedEntry) *Snapshot {
	owned := make([]RankedEntry, len(entries))
	copy(owned, entries)
	return &Snapshot{
		periodID:    periodID,
		generatedAt: generatedAt,
		entries:     owned,
	}
}

// PeriodID returns the period the snapshot was built for.
func (s *Snapshot) PeriodID() PeriodID { return s.periodID }

// GeneratedAt returns the build timestamp.
func (s *Snapshot) GeneratedAt() time.Time { return s.generatedAt }

// Len returns the number of ranked rows.
func (s *Snapshot) Len() int { return len(s.entries) }

// IsEmpty reports whether the refresh produced no usable rows.
func (s *Snapshot) IsEmpty() bool { return len(s.entries) == 0 }

// Entries returns a copy of all rows in rank order.
func (s *Snapshot) Entries() []RankedEntry {
	return s.Top(len(s.entries))
}

// Top returns a copy of at most n leading rows.
func (s *Snapshot) Top(n int) []RankedEntry {
	if n < 0 {
		n = 0
	}
	if n > len(s.entries) {
		n = len(s.entries)
	}
	out := make([]RankedEntry, n)
	copy(out, s.entries[:n])
	return out
}

// Lookup returns the row for id, if the entity is present.
func (s *Snapshot) Lookup(id EntityID) (RankedEntry, bool) {
	for _, e := range s.entries {
		if e.Result.EntityID == id {
			return e, true
		}
	}
	return RankedEntry{}, false
}
