// Package ranking orders entity results into an immutable snapshot.
package ranking

import (
	"sort"
	"time"

	"github.com/okian/fantasyboard/internal/domain/model"
)

// Build sorts results by CumulativeScore descending and assigns dense
// positional ranks starting at 1. The sort is stable, so equal scores keep
// the order in which results were supplied. An empty input yields an empty
// snapshot.
func Build(periodID model.PeriodID, results []model.EntityResult, now time.Time) *model.Snapshot {
	ordered := make([]model.EntityResult, len(results))
	copy(ordered, results)

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CumulativeScore > ordered[j].CumulativeScore
	})

	entries := make([]model.RankedEntry, len(ordered))
	for i, r := range ordered {
		entries[i] = model.RankedEntry{Rank: i + 1, Result: r}
	}
	return model.NewSnapshot(periodID, now, entries)
}
