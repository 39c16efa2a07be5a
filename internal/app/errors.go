package service

import "errors"

// ErrNoSnapshot is returned when no snapshot exists and an on-demand
// refresh could not produce one.
var ErrNoSnapshot = errors.New("no leaderboard data available yet")
