// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/fantasyboard/internal/domain/model"
	"github.com/okian/fantasyboard/internal/domain/types"
)

// SnapshotReader is the read side of the leaderboard engine.
type SnapshotReader interface {
	// GetSnapshot returns the current snapshot, refreshing synchronously
	// when nothing has been published yet.
	GetSnapshot(ctx context.Context) (*model.Snapshot, error)
}

// Refresher forces an out-of-schedule refresh.
type Refresher interface {
	ForceRefreshNow(ctx context.Context) (*model.Snapshot, error)
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SnapshotReader
	Refresher
	StatsProvider
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	refreshHandler     *RefreshHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	botHandler         *BotHandler
}

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	maxLimit int
	bot      CommandHandler
}

// WithMaxLimit caps GET /api/leaderboard?limit.
func WithMaxLimit(n int) ServerOption {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxLimit = n
		}
	}
}

// WithBot exposes a chat command handler at POST /bot/command.
func WithBot(h CommandHandler) ServerOption {
	return func(c *serverConfig) {
		c.bot = h
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...ServerOption) *Server {
	cfg := serverConfig{maxLimit: defaultMaxLimit}
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &Server{
		healthHandler:      NewHealthHandler(deps),
		statsHandler:       NewStatsHandler(deps),
		refreshHandler:     NewRefreshHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, cfg.maxLimit),
		rankHandler:        NewRankHandler(deps),
	}
	if cfg.bot != nil {
		s.botHandler = NewBotHandler(cfg.bot)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /api/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("GET /api/rank/{entity_id}", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	mux.HandleFunc("POST /api/refresh", MetricsMiddleware(s.refreshHandler.HandleRefresh, "refresh"))
	if s.botHandler != nil {
		mux.HandleFunc("POST /bot/command", MetricsMiddleware(s.botHandler.HandleCommand, "bot"))
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeSnapshotError maps a failed snapshot read. No data yet is a 503; the
// caller may retry once the upstream recovers.
func writeSnapshotError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNoData) || isNoSnapshot(err) {
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusServiceUnavailable, "no_data", err)
		return
	}
	writeError(w, http.StatusInternalServerError, "internal_error", err)
}
