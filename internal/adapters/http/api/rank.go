// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/fantasyboard/internal/domain/model"
	"github.com/okian/fantasyboard/internal/domain/types"
)

// RankHandler handles rank requests.
type RankHandler struct {
	deps SnapshotReader
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps SnapshotReader) *RankHandler {
	return &RankHandler{deps: deps}
}

// HandleGetRank handles GET /api/rank/{entity_id} requests.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("entity_id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	snap, err := h.deps.GetSnapshot(r.Context())
	if err != nil {
		writeSnapshotError(w, err)
		return
	}
	row, ok := snap.Lookup(model.EntityID(id))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("%w: %s", ErrNotFound, id))
		return
	}
	writeJSON(w, http.StatusOK, types.EntryFrom(row))
}
