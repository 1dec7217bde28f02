// Package worker contains the long-running storage engines of the
// directory: batched population with synthetic users and chunked bulk
// deletion. Each invocation runs one sequential loop; chunk k+1 is issued
// only after chunk k returned.
package worker

import (
	"errors"

	"golang.org/x/time/rate"
)

// ErrStorageUnavailable is returned when storage could not serve any part
// of an operation.
var ErrStorageUnavailable = errors.New("storage unavailable")

// newLimiter returns nil for an unlimited rate.
func newLimiter(limit rate.Limit) *rate.Limiter {
	if limit <= 0 || limit == rate.Inf {
		return nil
	}
	return rate.NewLimiter(limit, 1)
}
