// Package chat answers leaderboard commands from a chat bot relay.
//
// Commands:
//
//	/table          full leaderboard
//	/top [N]        first N rows, default 5
//	/team <id>      one entity's row, by id or name
//	/refresh        refresh now and report the new leader
//	/help           command list
package chat

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/okian/fantasyboard/internal/domain/model"
	"github.com/okian/fantasyboard/internal/domain/types"
	"github.com/okian/fantasyboard/pkg/logger"
	"github.com/okian/fantasyboard/pkg/metrics"
)

const (
	defaultTop = 5
	maxTop     = 50
)

// Replies that do not depend on data.
const (
	helpText = "Commands:\n" +
		"/table - full leaderboard\n" +
		"/top N - first N teams (default 5)\n" +
		"/team <id or name> - one team's standing\n" +
		"/refresh - fetch the latest scores now\n" +
		"/help - this message"
	noDataText  = "No leaderboard data is available yet. Please try again in a few minutes."
	unknownText = "Unknown command. Send /help for the list."
)

// Leaderboard is what the handler reads from.
type Leaderboard interface {
	GetSnapshot(ctx context.Context) (*model.Snapshot, error)
	ForceRefreshNow(ctx context.Context) (*model.Snapshot, error)
}

// Handler parses commands and formats replies.
type Handler struct {
	board  Leaderboard
	logger logger.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// New creates a Handler.
func New(board Leaderboard, opts ...Option) *Handler {
	h := &Handler{board: board}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.Get().Named("chat")
	}
	return h
}

// Handle answers one command line.
func (h *Handler) Handle(ctx context.Context, text string) string {
	cmd, args := parse(text)
	metrics.RecordBotCommand(cmd)
	h.logger.Debug(ctx, "bot command", logger.String("command", cmd))

	switch cmd {
	case "table":
		return h.table(ctx, 0)
	case "top":
		n := defaultTop
		if len(args) > 0 {
			v, err := strconv.Atoi(args[0])
			if err != nil || v < 1 {
				return "Usage: /top N with N a positive number."
			}
			n = min(v, maxTop)
		}
		return h.table(ctx, n)
	case "team":
		if len(args) == 0 {
			return "Usage: /team <id or name>"
		}
		return h.team(ctx, strings.Join(args, " "))
	case "refresh":
		return h.refresh(ctx)
	case "help", "start":
		return helpText
	default:
		return unknownText
	}
}

// parse splits "/top@SomeBot 5" into ("top", ["5"]).
func parse(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil
	}
	cmd := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), fields[1:]
}

func (h *Handler) snapshot(ctx context.Context) (*model.Snapshot, string) {
	snap, err := h.board.GetSnapshot(ctx)
	if err != nil {
		h.logger.Warn(ctx, "bot read without data", logger.Error(err))
		return nil, noDataText
	}
	if snap.IsEmpty() {
		return nil, "No team has a score for gameweek " + strconv.Itoa(int(snap.PeriodID())) + " yet."
	}
	return snap, ""
}

func (h *Handler) table(ctx context.Context, n int) string {
	snap, msg := h.snapshot(ctx)
	if snap == nil {
		return msg
	}
	var b strings.Builder
	if err := WriteTable(&b, types.LeaderboardFrom(snap, n)); err != nil {
		h.logger.Error(ctx, "format table", logger.Error(err))
		return noDataText
	}
	return b.String()
}

func (h *Handler) team(ctx context.Context, query string) string {
	snap, msg := h.snapshot(ctx)
	if snap == nil {
		return msg
	}
	row, ok := find(snap, query)
	if !ok {
		return "No team matching \"" + query + "\" in the current leaderboard."
	}
	var b strings.Builder
	_ = WriteEntry(&b, int(snap.PeriodID()), types.EntryFrom(row))
	return b.String()
}

// find matches by exact id first, then by case-insensitive name.
func find(snap *model.Snapshot, query string) (model.RankedEntry, bool) {
	if row, ok := snap.Lookup(model.EntityID(query)); ok {
		return row, true
	}
	for _, row := range snap.Entries() {
		if strings.EqualFold(row.Result.DisplayName, query) {
			return row, true
		}
	}
	return model.RankedEntry{}, false
}

func (h *Handler) refresh(ctx context.Context) string {
	snap, err := h.board.ForceRefreshNow(ctx)
	switch {
	case snap == nil && err != nil:
		h.logger.Warn(ctx, "bot refresh failed", logger.Error(err))
		return "Refresh failed and no earlier data is available."
	case err != nil && errors.Is(err, context.Canceled):
		return "Refresh is still running; try /table shortly."
	case err != nil:
		h.logger.Warn(ctx, "bot refresh failed", logger.Error(err))
		return "Refresh failed; showing data from " + snap.GeneratedAt().Format("15:04") + ".\n" + h.leader(snap)
	default:
		return "Refreshed gameweek " + strconv.Itoa(int(snap.PeriodID())) + ".\n" + h.leader(snap)
	}
}

func (h *Handler) leader(snap *model.Snapshot) string {
	top := snap.Top(1)
	if len(top) == 0 {
		return "No team has a score yet."
	}
	return "Leader: " + top[0].Result.DisplayName + " with " + strconv.Itoa(top[0].Result.CumulativeScore) + " points."
}
