package chat

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/okian/fantasyboard/internal/domain/types"
)

// WriteTable renders rows as an aligned plain-text table.
func WriteTable(w io.Writer, lb types.Leaderboard) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "#\tTEAM\tGW%d\tHIT\tCHIP\tTOTAL\t\n", lb.PeriodID)
	for _, e := range lb.Entries {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\t%d\t\n",
			e.Rank, e.Name, e.PeriodScore, e.PenaltyCost, chipCell(e.ActiveModifier), e.CumulativeScore)
	}
	return tw.Flush()
}

// WriteEntry renders one row as a short paragraph.
func WriteEntry(w io.Writer, periodID int, e types.Entry) error {
	_, err := fmt.Fprintf(w,
		"%s is #%d with %d points.\nGameweek %d: %d points (transfer cost %d, chip %s).\n",
		e.Name, e.Rank, e.CumulativeScore, periodID, e.PeriodScore, e.PenaltyCost, e.ActiveModifier)
	return err
}

func chipCell(label string) string {
	if label == "None" {
		return "-"
	}
	return label
}
