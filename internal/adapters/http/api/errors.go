package api

import (
	"errors"

	service "github.com/okian/fantasyboard/internal/app"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("entity not in leaderboard")
	ErrNoData     = errors.New("no leaderboard data")
)

func isNoSnapshot(err error) bool {
	return errors.Is(err, service.ErrNoSnapshot)
}
