package api

import (
	"net/http"

	"github.com/okian/fantasyboard/internal/domain/types"
)

type refreshResponse struct {
	Status      string            `json:"status"`
	Error       string            `json:"error,omitempty"`
	Leaderboard types.Leaderboard `json:"leaderboard"`
}

// RefreshHandler handles forced refreshes.
type RefreshHandler struct {
	deps Refresher
}

// NewRefreshHandler creates a new refresh handler.
func NewRefreshHandler(deps Refresher) *RefreshHandler {
	return &RefreshHandler{deps: deps}
}

// HandleRefresh handles POST /api/refresh. A failed refresh that still has
// an older snapshot returns it with status "stale".
func (h *RefreshHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := h.deps.ForceRefreshNow(r.Context())
	switch {
	case snap == nil && err != nil:
		writeError(w, http.StatusBadGateway, "refresh_failed", err)
	case snap == nil:
		writeSnapshotError(w, ErrNoData)
	case err != nil:
		writeJSON(w, http.StatusOK, refreshResponse{
			Status:      "stale",
			Error:       err.Error(),
			Leaderboard: types.LeaderboardFrom(snap, 0),
		})
	default:
		writeJSON(w, http.StatusOK, refreshResponse{
			Status:      "refreshed",
			Leaderboard: types.LeaderboardFrom(snap, 0),
		})
	}
}
