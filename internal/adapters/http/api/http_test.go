package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/fantasyboard/internal/adapters/http/api"
	service "github.com/okian/fantasyboard/internal/app"
	"github.com/okian/fantasyboard/internal/domain/model"
	"github.com/okian/fantasyboard/internal/domain/ranking"
	"github.com/okian/fantasyboard/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

var generatedAt = time.Date(2024, 9, 14, 18, 0, 0, 0, time.UTC)

func sampleSnapshot() *model.Snapshot {
	return ranking.Build(4, []model.EntityResult{
		{EntityID: "11", DisplayName: "Alpha", PeriodScore: 56, PenaltyCost: -4, ActiveModifier: model.ModifierTripleCaptain, CumulativeScore: 120},
		{EntityID: "22", DisplayName: "Bravo", PeriodScore: 70, ActiveModifier: model.ModifierNone, CumulativeScore: 150},
		{EntityID: "33", DisplayName: "Charlie", PeriodScore: 40, ActiveModifier: model.ModifierNone, CumulativeScore: 90},
	}, generatedAt)
}

// mockDependencies implements api.Dependencies for testing.
type mockDependencies struct {
	snap     *model.Snapshot
	snapErr  error
	forced   *model.Snapshot
	forceErr error
	stats    map[string]interface{}
}

func (m *mockDependencies) GetSnapshot(context.Context) (*model.Snapshot, error) {
	if m.snapErr != nil {
		return nil, m.snapErr
	}
	return m.snap, nil
}

func (m *mockDependencies) ForceRefreshNow(context.Context) (*model.Snapshot, error) {
	return m.forced, m.forceErr
}

func (m *mockDependencies) GetStats() map[string]interface{} {
	if m.stats == nil {
		return map[string]interface{}{}
	}
	return m.stats
}

type echoBot struct{}

func (echoBot) Handle(_ context.Context, text string) string { return "echo " + text }

func serve(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func newMux(deps api.Dependencies, opts ...api.ServerOption) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, opts...).Register(context.Background(), mux)
	return mux
}

func TestServer_Register(t *testing.T) {
	Convey("Given a new API server", t, func() {
		deps := &mockDependencies{snap: sampleSnapshot(), stats: map[string]interface{}{"snapshotVersion": uint64(3)}}
		mux := newMux(deps, api.WithBot(echoBot{}))

		Convey("Then health endpoint should report readiness", func() {
			w := serve(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var body map[string]interface{}
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body["status"], ShouldEqual, "ok")
			So(body["ready"], ShouldEqual, true)
		})

		Convey("And metrics endpoint should expose the registry", func() {
			_ = serve(mux, http.MethodGet, "/stats", "")
			w := serve(mux, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "fantasyboard_")
		})

		Convey("And stats endpoint should be accessible", func() {
			w := serve(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "application/json")
		})

		Convey("And the bot endpoint should relay commands", func() {
			w := serve(mux, http.MethodPost, "/bot/command", `{"text":"/help"}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			var body map[string]string
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body["reply"], ShouldEqual, "echo /help")
		})

		Convey("And the bot endpoint should reject empty commands", func() {
			So(serve(mux, http.MethodPost, "/bot/command", `{"text":"  "}`).Code, ShouldEqual, http.StatusBadRequest)
			So(serve(mux, http.MethodPost, "/bot/command", `{`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("And wrong methods should not be routed", func() {
			So(serve(mux, http.MethodPost, "/api/leaderboard", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(serve(mux, http.MethodGet, "/api/refresh", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})

	Convey("Given a server without a bot", t, func() {
		mux := newMux(&mockDependencies{snap: sampleSnapshot()})

		Convey("Then the bot endpoint should not exist", func() {
			So(serve(mux, http.MethodPost, "/bot/command", `{"text":"/help"}`).Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then health should report not ready", func() {
			w := serve(mux, http.MethodGet, "/healthz", "")
			So(w.Body.String(), ShouldContainSubstring, `"ready":false`)
		})
	})
}

func TestLeaderboardHandler(t *testing.T) {
	Convey("Given a leaderboard handler", t, func() {
		deps := &mockDependencies{snap: sampleSnapshot()}
		mux := newMux(deps, api.WithMaxLimit(10))

		Convey("When requesting the full leaderboard", func() {
			w := serve(mux, http.MethodGet, "/api/leaderboard", "")

			Convey("Then every row should be returned in rank order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var lb types.Leaderboard
				So(json.Unmarshal(w.Body.Bytes(), &lb), ShouldBeNil)
				So(lb.PeriodID, ShouldEqual, 4)
				So(lb.Count, ShouldEqual, 3)
				So(lb.GeneratedAt.Equal(generatedAt), ShouldBeTrue)
				So(lb.Entries[0].EntityID, ShouldEqual, "22")
				So(lb.Entries[1].Name, ShouldEqual, "Alpha")
				So(lb.Entries[1].PenaltyCost, ShouldEqual, -4)
				So(lb.Entries[1].ActiveModifier, ShouldEqual, "Triple Captain")
			})
		})

		Convey("When requesting top N entries", func() {
			w := serve(mux, http.MethodGet, "/api/leaderboard?limit=2", "")

			Convey("Then it should return the top N entries", func() {
				var lb types.Leaderboard
				So(json.Unmarshal(w.Body.Bytes(), &lb), ShouldBeNil)
				So(lb.Count, ShouldEqual, 2)
				So(lb.Entries[1].Rank, ShouldEqual, 2)
			})
		})

		Convey("When the limit is invalid or too large", func() {
			Convey("Then it should return 400 Bad Request", func() {
				for _, q := range []string{"0", "-1", "abc", "11"} {
					w := serve(mux, http.MethodGet, "/api/leaderboard?limit="+q, "")
					So(w.Code, ShouldEqual, http.StatusBadRequest)
				}
			})
		})

		Convey("When no snapshot can be produced", func() {
			deps.snapErr = fmt.Errorf("%w: upstream down", service.ErrNoSnapshot)
			w := serve(mux, http.MethodGet, "/api/leaderboard", "")

			Convey("Then it should return 503 with a code", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(w.Header().Get("Retry-After"), ShouldNotBeEmpty)
				So(w.Body.String(), ShouldContainSubstring, `"code":"no_data"`)
			})
		})

		Convey("When reading fails otherwise", func() {
			deps.snapErr = errors.New("boom")
			w := serve(mux, http.MethodGet, "/api/leaderboard", "")

			Convey("Then it should return internal server error", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})
	})
}

func TestRankHandler(t *testing.T) {
	Convey("Given a rank handler", t, func() {
		deps := &mockDependencies{snap: sampleSnapshot()}
		mux := newMux(deps)

		Convey("When requesting rank for a ranked entity", func() {
			w := serve(mux, http.MethodGet, "/api/rank/11", "")

			Convey("Then it should return the row", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var e types.Entry
				So(json.Unmarshal(w.Body.Bytes(), &e), ShouldBeNil)
				So(e.Rank, ShouldEqual, 2)
				So(e.CumulativeScore, ShouldEqual, 120)
			})
		})

		Convey("When requesting an entity that is not ranked", func() {
			w := serve(mux, http.MethodGet, "/api/rank/99", "")

			Convey("Then it should return not found status", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(w.Body.String(), ShouldContainSubstring, `"code":"not_found"`)
			})
		})

		Convey("When no data exists yet", func() {
			deps.snapErr = service.ErrNoSnapshot
			w := serve(mux, http.MethodGet, "/api/rank/11", "")

			Convey("Then it should return service unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})
	})
}

func TestRefreshHandler(t *testing.T) {
	Convey("Given a refresh handler", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When the refresh succeeds", func() {
			deps.forced = sampleSnapshot()
			w := serve(mux, http.MethodPost, "/api/refresh", "")

			Convey("Then it should return the new leaderboard", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"status":"refreshed"`)
				So(w.Body.String(), ShouldContainSubstring, `"count":3`)
			})
		})

		Convey("When the refresh fails but an older snapshot exists", func() {
			deps.forced = sampleSnapshot()
			deps.forceErr = errors.New("upstream down")
			w := serve(mux, http.MethodPost, "/api/refresh", "")

			Convey("Then it should return the stale leaderboard", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"status":"stale"`)
				So(w.Body.String(), ShouldContainSubstring, "upstream down")
			})
		})

		Convey("When the refresh fails with nothing published", func() {
			deps.forceErr = errors.New("upstream down")
			w := serve(mux, http.MethodPost, "/api/refresh", "")

			Convey("Then it should return bad gateway", func() {
				So(w.Code, ShouldEqual, http.StatusBadGateway)
				So(w.Body.String(), ShouldContainSubstring, `"code":"refresh_failed"`)
			})
		})
	})
}

func TestStatsHandler(t *testing.T) {
	Convey("Given a stats handler", t, func() {
		h := api.NewStatsHandler(&mockDependencies{stats: map[string]interface{}{"refreshes": 2, "entities": 3}})

		Convey("When handling stats request", func() {
			w := httptest.NewRecorder()
			h.HandleStats(w, httptest.NewRequest(http.MethodGet, "/stats", nil))

			Convey("Then it should return stats", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body map[string]interface{}
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body["refreshes"], ShouldEqual, 2)
				So(body["entities"], ShouldEqual, 3)
			})
		})
	})
}
