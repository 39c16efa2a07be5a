package ranking_test

import (
	"testing"
	"time"

	"github.com/okian/fantasyboard/internal/domain/model"
	"github.com/okian/fantasyboard/internal/domain/ranking"
	. "github.com/smartystreets/goconvey/convey"
)

func result(id string, cumulative int) model.EntityResult {
	return model.EntityResult{EntityID: model.EntityID(id), DisplayName: id, CumulativeScore: cumulative}
}

func TestBuild(t *testing.T) {
	now := time.Date(2024, 10, 5, 17, 30, 0, 0, time.UTC)

	Convey("Given results in configured order", t, func() {
		in := []model.EntityResult{result("A", 120), result("B", 150)}

		Convey("When building a snapshot", func() {
			snap := ranking.Build(3, in, now)
			rows := snap.Entries()

			Convey("Then the highest cumulative score should rank first", func() {
				So(rows[0].Rank, ShouldEqual, 1)
				So(rows[0].Result.EntityID, ShouldEqual, model.EntityID("B"))
				So(rows[1].Rank, ShouldEqual, 2)
				So(rows[1].Result.EntityID, ShouldEqual, model.EntityID("A"))
			})

			Convey("Then period and timestamp should be recorded", func() {
				So(snap.PeriodID(), ShouldEqual, model.PeriodID(3))
				So(snap.GeneratedAt(), ShouldEqual, now)
			})

			Convey("Then the input slice should not be reordered", func() {
				So(in[0].EntityID, ShouldEqual, model.EntityID("A"))
			})
		})
	})

	Convey("Given tied cumulative scores", t, func() {
		in := []model.EntityResult{result("first", 100), result("top", 200), result("second", 100), result("third", 100)}

		Convey("When building a snapshot", func() {
			rows := ranking.Build(1, in, now).Entries()

			Convey("Then ties should keep input order and still get distinct ranks", func() {
				So(rows[0].Result.EntityID, ShouldEqual, model.EntityID("top"))
				So(rows[1].Result.EntityID, ShouldEqual, model.EntityID("first"))
				So(rows[2].Result.EntityID, ShouldEqual, model.EntityID("second"))
				So(rows[3].Result.EntityID, ShouldEqual, model.EntityID("third"))
				for i, r := range rows {
					So(r.Rank, ShouldEqual, i+1)
				}
			})
		})
	})

	Convey("Given no results", t, func() {
		snap := ranking.Build(9, nil, now)

		Convey("Then an empty snapshot should be produced", func() {
			So(snap, ShouldNotBeNil)
			So(snap.IsEmpty(), ShouldBeTrue)
			So(snap.PeriodID(), ShouldEqual, model.PeriodID(9))
		})
	})

	Convey("Given a result set that is non-increasing after build", t, func() {
		in := []model.EntityResult{result("a", 5), result("b", 50), result("c", 25), result("d", 50), result("e", 0)}
		rows := ranking.Build(2, in, now).Entries()

		Convey("Then cumulative scores should never increase down the table", func() {
			for i := 1; i < len(rows); i++ {
				So(rows[i].Result.CumulativeScore, ShouldBeLessThanOrEqualTo, rows[i-1].Result.CumulativeScore)
			}
		})
	})
}
