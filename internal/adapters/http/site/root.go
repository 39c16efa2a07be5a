// Package site renders the leaderboard as an HTML page.
package site

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/okian/fantasyboard/internal/domain/model"
	"github.com/okian/fantasyboard/internal/domain/types"
	"github.com/okian/fantasyboard/pkg/logger"
)

// Error constants
var (
	ErrRender = errors.New("leaderboard page render failed")
)

const (
	defaultTitle = "Mini League Standings"
	noDataText   = "No leaderboard data is available yet. Please try again in a few minutes."
	noRowsText   = "No team has a score for the current gameweek yet."
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/leaderboard.html"))

// SnapshotReader supplies the snapshot to render.
type SnapshotReader interface {
	GetSnapshot(ctx context.Context) (*model.Snapshot, error)
}

type pageData struct {
	Title   string
	Empty   bool
	Message string
	Board   types.Leaderboard
}

// RootHandler handles root path requests
type RootHandler struct {
	reader SnapshotReader
	title  string
	logger logger.Logger
}

// NewRootHandler creates a new root handler. An empty title uses the
// default heading.
func NewRootHandler(reader SnapshotReader, title string) *RootHandler {
	if title == "" {
		title = defaultTitle
	}
	return &RootHandler{reader: reader, title: title, logger: logger.Get().Named("site")}
}

// Register attaches the page at exactly "/".
func Register(_ context.Context, mux *http.ServeMux, h *RootHandler) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("GET /{$}", h.HandleRoot)
}

// HandleRoot renders the current leaderboard. A reader error yields a 503
// page.
func (h *RootHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: h.title}
	status := http.StatusOK

	snap, err := h.reader.GetSnapshot(r.Context())
	switch {
	case err != nil:
		h.logger.Warn(r.Context(), "leaderboard page without data", logger.Error(err))
		data.Empty, data.Message, status = true, noDataText, http.StatusServiceUnavailable
	case snap.IsEmpty():
		data.Empty, data.Message = true, noRowsText
	default:
		data.Board = types.LeaderboardFrom(snap, 0)
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		h.logger.Error(r.Context(), "render leaderboard page", logger.Error(errors.Join(ErrRender, err)))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
