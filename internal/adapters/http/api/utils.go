package api

import (
	"fmt"
	"strconv"
)

const defaultMaxLimit = 100

// parseLimit reads an optional positive row limit. Empty means no limit.
func parseLimit(raw string, maxLimit int) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: limit must be a positive integer", ErrBadRequest)
	}
	if n > maxLimit {
		return 0, fmt.Errorf("%w: limit exceeds %d", ErrBadRequest, maxLimit)
	}
	return n, nil
}
