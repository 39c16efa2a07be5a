// Package model contains domain models passed between layers.
package model

import "strings"

// EntityID identifies a tracked participant. It is opaque to the core and
// supplied by configuration for the lifetime of the process.
type EntityID string

// PeriodID identifies a scoring period (a gameweek) in the external source.
type PeriodID int

// PlaceholderName is shown when the source responds without a team name.
const PlaceholderName = "Unknown Team"

// ActiveModifier is the chip an entity played in a period.
type ActiveModifier string

// Known modifiers. The source may report others; they are passed through.
const (
	ModifierNone           ActiveModifier = "None"
	ModifierWildcard       ActiveModifier = "wildcard"
	ModifierBenchBoost     ActiveModifier = "bboost"
	ModifierTripleCaptain  ActiveModifier = "3xc"
	ModifierFreeHit        ActiveModifier = "freehit"
	ModifierAssistantCoach ActiveModifier = "manager"
)

var modifierLabels = map[ActiveModifier]string{
	ModifierNone:           "None",
	ModifierWildcard:       "Wildcard",
	ModifierBenchBoost:     "Bench Boost",
	ModifierTripleCaptain:  "Triple Captain",
	ModifierFreeHit:        "Free Hit",
	ModifierAssistantCoach: "Assistant Manager",
}

// NormalizeModifier maps an empty or null-ish source value to ModifierNone.
func NormalizeModifier(raw string) ActiveModifier {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "none") || raw == "null" {
		return ModifierNone
	}
	return ActiveModifier(raw)
}

// Label returns a human readable name for display.
func (m ActiveModifier) Label() string {
	if label, ok := modifierLabels[m]; ok {
		return label
	}
	if m == "" {
		return modifierLabels[ModifierNone]
	}
	return string(m)
}

// RawPeriodRecord is the source's history row for one entity in one period.
type RawPeriodRecord struct {
	Period          PeriodID
	Points          int // raw points before the transfer penalty
	TotalPoints     int // authoritative running total
	TransferPenalty int // event_transfers_cost, non-negative
	ActiveModifier  ActiveModifier
}

// EntityResult is the derived, immutable record for one entity in one period.
type EntityResult struct {
	EntityID        EntityID
	DisplayName     string
	PeriodScore     int
	PenaltyCost     int
	ActiveModifier  ActiveModifier
	CumulativeScore int
}
