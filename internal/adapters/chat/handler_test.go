package chat_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/okian/fantasyboard/internal/adapters/chat"
	"github.com/okian/fantasyboard/internal/domain/model"
	"github.com/okian/fantasyboard/internal/domain/ranking"
	"github.com/okian/fantasyboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type stubBoard struct {
	snap     *model.Snapshot
	err      error
	forced   *model.Snapshot
	forceErr error
}

func (s *stubBoard) GetSnapshot(context.Context) (*model.Snapshot, error) { return s.snap, s.err }

func (s *stubBoard) ForceRefreshNow(context.Context) (*model.Snapshot, error) {
	return s.forced, s.forceErr
}

func league() *model.Snapshot {
	results := []model.EntityResult{
		{EntityID: "101", DisplayName: "Alpha", PeriodScore: 56, PenaltyCost: -4, ActiveModifier: model.ModifierWildcard, CumulativeScore: 120},
		{EntityID: "202", DisplayName: "Bravo", PeriodScore: 70, ActiveModifier: model.ModifierNone, CumulativeScore: 150},
	}
	for i := 0; i < 8; i++ {
		results = append(results, model.EntityResult{
			EntityID:        model.EntityID("9" + string(rune('0'+i))),
			DisplayName:     "Filler " + string(rune('A'+i)),
			ActiveModifier:  model.ModifierNone,
			CumulativeScore: 10 + i,
		})
	}
	return ranking.Build(6, results, time.Date(2024, 9, 28, 17, 45, 0, 0, time.UTC))
}

func lines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

func TestHandler(t *testing.T) {
	Convey("Given a chat handler over a published league", t, func() {
		board := &stubBoard{snap: league()}
		h := chat.New(board, chat.WithLogger(logger.NewNop()))
		ctx := context.Background()

		Convey("When asking for the table", func() {
			reply := h.Handle(ctx, "/table")

			Convey("Then every team should be listed under a header", func() {
				rows := lines(reply)
				So(len(rows), ShouldEqual, 11)
				So(rows[0], ShouldContainSubstring, "GW6")
				So(rows[1], ShouldContainSubstring, "Bravo")
				So(rows[2], ShouldContainSubstring, "Alpha")
				So(rows[2], ShouldContainSubstring, "Wildcard")
				So(rows[2], ShouldContainSubstring, "-4")
			})
		})

		Convey("When asking for the top teams", func() {
			Convey("Then the default should be five", func() {
				So(len(lines(h.Handle(ctx, "/top"))), ShouldEqual, 6)
			})
			Convey("Then an explicit count should be honoured", func() {
				So(len(lines(h.Handle(ctx, "/top 2"))), ShouldEqual, 3)
			})
			Convey("Then a bot-addressed command should work", func() {
				So(len(lines(h.Handle(ctx, "/top@LeagueBot 3"))), ShouldEqual, 4)
			})
			Convey("Then a bad count should explain usage", func() {
				So(h.Handle(ctx, "/top zero"), ShouldStartWith, "Usage:")
				So(h.Handle(ctx, "/top -3"), ShouldStartWith, "Usage:")
			})
		})

		Convey("When asking for one team", func() {
			Convey("Then it should find it by id", func() {
				reply := h.Handle(ctx, "/team 101")
				So(reply, ShouldContainSubstring, "Alpha is #2 with 120 points")
				So(reply, ShouldContainSubstring, "transfer cost -4")
			})
			Convey("Then it should find it by name", func() {
				So(h.Handle(ctx, "/team bravo"), ShouldStartWith, "Bravo is #1")
			})
			Convey("Then a missing team should be reported", func() {
				So(h.Handle(ctx, "/team nobody"), ShouldContainSubstring, "No team matching")
			})
			Convey("Then no argument should explain usage", func() {
				So(h.Handle(ctx, "/team"), ShouldStartWith, "Usage:")
			})
		})

		Convey("When refreshing", func() {
			Convey("Then a success should name the leader", func() {
				board.forced = league()
				reply := h.Handle(ctx, "/refresh")
				So(reply, ShouldStartWith, "Refreshed gameweek 6.")
				So(reply, ShouldContainSubstring, "Leader: Bravo with 150 points.")
			})
			Convey("Then a failure with old data should say so", func() {
				board.forced, board.forceErr = league(), errors.New("upstream down")
				So(h.Handle(ctx, "/refresh"), ShouldStartWith, "Refresh failed; showing data from 17:45.")
			})
			Convey("Then a failure without data should say so", func() {
				board.forceErr = errors.New("upstream down")
				So(h.Handle(ctx, "/refresh"), ShouldEqual, "Refresh failed and no earlier data is available.")
			})
		})

		Convey("When sending help or junk", func() {
			So(h.Handle(ctx, "/help"), ShouldContainSubstring, "/top N")
			So(h.Handle(ctx, "/dance"), ShouldContainSubstring, "Unknown command")
			So(h.Handle(ctx, ""), ShouldContainSubstring, "Unknown command")
		})
	})

	Convey("Given no data yet", t, func() {
		h := chat.New(&stubBoard{err: errors.New("no leaderboard data available yet")}, chat.WithLogger(logger.NewNop()))

		Convey("Then reads should apologise", func() {
			So(h.Handle(context.Background(), "/table"), ShouldStartWith, "No leaderboard data is available yet.")
			So(h.Handle(context.Background(), "/team 1"), ShouldStartWith, "No leaderboard data is available yet.")
		})
	})

	Convey("Given an empty snapshot", t, func() {
		h := chat.New(&stubBoard{snap: ranking.Build(2, nil, time.Now())}, chat.WithLogger(logger.NewNop()))

		Convey("Then the table should say nobody scored", func() {
			So(h.Handle(context.Background(), "/table"), ShouldEqual, "No team has a score for gameweek 2 yet.")
		})
	})
}
