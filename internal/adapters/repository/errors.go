package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrEmpty        = errors.New("no snapshot published")
	ErrNotFound     = errors.New("entity not in snapshot")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
)
