package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/atinyakov/go-user-directory/internal/metrics"
	"github.com/atinyakov/go-user-directory/internal/models"
)

const (
	DefaultDeleteChunkSize = 1000
	DefaultMaxIterations   = 10000
	DefaultMaxDuration     = 5 * time.Minute

	// consecutive empty chunks against a non-empty count before giving up
	maxStalls = 3
)

var ErrPartialDeletion = errors.New("partial deletion")

// PartialDeletionError reports a run that removed records before failing.
// Removed records stay removed.
type PartialDeletionError struct {
	Deleted int64
	Err     error
}

func (e *PartialDeletionError) Error() string {
	return fmt.Sprintf("partial deletion: %d records removed before failure: %v", e.Deleted, e.Err)
}

func (e *PartialDeletionError) Unwrap() []error {
	return []error{ErrPartialDeletion, e.Err}
}

// Drainer is the storage capability the deletion engine needs.
type Drainer interface {
	Count(context.Context, models.SearchFilter) (int64, error)
	DeleteChunk(ctx context.Context, limit int) (int64, error)
}

type DrainState int

const (
	StateIdle DrainState = iota
	StateCounting
	StateDeleting
	StateDrained
	StateGuardTripped
	StateFailed
)

func (s DrainState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateCounting:
		return "Counting"
	case StateDeleting:
		return "Deleting"
	case StateDrained:
		return "Drained"
	case StateGuardTripped:
		return "GuardTripped"
	case StateFailed:
		return "Failed"
	}
	return fmt.Sprintf("DrainState(%d)", int(s))
}

// DeleteAllResult is the progress of one DeleteAll run.
type DeleteAllResult struct {
	InitialCount int64
	Deleted      int64
	// Remaining is an estimate refreshed by recounts.
	Remaining int64
	Chunks    int
	State     DrainState
	Drained   bool
	Duration  time.Duration
}

type DeleteAllWorker struct {
	store         Drainer
	chunkSize     int
	maxIterations int
	maxDuration   time.Duration
	limiter       *rate.Limiter
	metrics       *metrics.Metrics
	now           func() time.Time
	logger        *zap.Logger
}

type DeleteAllOption func(*DeleteAllWorker)

func WithDeleteChunkSize(n int) DeleteAllOption {
	return func(w *DeleteAllWorker) {
		if n > 0 {
			w.chunkSize = n
		}
	}
}

func WithMaxIterations(n int) DeleteAllOption {
	return func(w *DeleteAllWorker) {
		if n > 0 {
			w.maxIterations = n
		}
	}
}

func WithMaxDuration(d time.Duration) DeleteAllOption {
	return func(w *DeleteAllWorker) {
		if d > 0 {
			w.maxDuration = d
		}
	}
}

// WithDeleteRate paces chunk deletes to at most limit per second.
func WithDeleteRate(limit rate.Limit) DeleteAllOption {
	return func(w *DeleteAllWorker) {
		w.limiter = newLimiter(limit)
	}
}

func WithDeleteMetrics(m *metrics.Metrics) DeleteAllOption {
	return func(w *DeleteAllWorker) {
		w.metrics = m
	}
}

// WithClock replaces time.Now for the duration guard.
func WithClock(now func() time.Time) DeleteAllOption {
	return func(w *DeleteAllWorker) {
		w.now = now
	}
}

func NewDeleteAllWorker(store Drainer, logger *zap.Logger, opts ...DeleteAllOption) *DeleteAllWorker {
	w := &DeleteAllWorker{
		store:         store,
		chunkSize:     DefaultDeleteChunkSize,
		maxIterations: DefaultMaxIterations,
		maxDuration:   DefaultMaxDuration,
		now:           time.Now,
		logger:        logger,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// DeleteAll empties the collection one bounded chunk at a time.
//
// The collection is recounted whenever the running estimate reaches zero or
// a chunk comes back short; the run is Drained only when a count reports
// zero. Iteration and duration guards end the run in GuardTripped without
// an error. A storage error ends it in Failed; if anything had been removed
// the error is a *PartialDeletionError.
func (w *DeleteAllWorker) DeleteAll(ctx context.Context) (DeleteAllResult, error) {
	start := w.now()
	res := DeleteAllResult{State: StateIdle}

	finish := func(state DrainState) DeleteAllResult {
		res.State = state
		res.Drained = state == StateDrained
		res.Duration = w.now().Sub(start)
		w.metrics.ObserveDeleteAll(state.String(), start)
		return res
	}

	fail := func(err error) (DeleteAllResult, error) {
		finish(StateFailed)
		w.logger.Error("delete all failed",
			zap.Int64("deleted", res.Deleted),
			zap.Int("chunks", res.Chunks),
			zap.Error(err))
		if res.Deleted > 0 {
			return res, &PartialDeletionError{Deleted: res.Deleted, Err: err}
		}
		if ctx.Err() != nil {
			return res, err
		}
		return res, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	res.State = StateCounting
	remaining, err := w.store.Count(ctx, models.SearchFilter{})
	if err != nil {
		return fail(err)
	}
	res.InitialCount = remaining
	res.Remaining = remaining

	if remaining == 0 {
		return finish(StateDrained), nil
	}

	res.State = StateDeleting
	stalls := 0

	for {
		if res.Chunks >= w.maxIterations || w.now().Sub(start) >= w.maxDuration {
			finish(StateGuardTripped)
			w.logger.Warn("delete all guard tripped",
				zap.Int("chunks", res.Chunks),
				zap.Int64("deleted", res.Deleted),
				zap.Int64("remaining", res.Remaining),
				zap.Duration("elapsed", res.Duration))
			return res, nil
		}

		if err := w.wait(ctx); err != nil {
			return fail(err)
		}

		n, err := w.store.DeleteChunk(ctx, w.chunkSize)
		res.Chunks++
		w.metrics.ObserveDeleteChunk(n, err)
		if err != nil {
			return fail(err)
		}

		res.Deleted += n
		res.Remaining = max(res.Remaining-n, 0)

		if n == 0 {
			stalls++
		} else {
			stalls = 0
		}

		if res.Remaining == 0 || n < int64(w.chunkSize) {
			count, err := w.store.Count(ctx, models.SearchFilter{})
			if err != nil {
				return fail(err)
			}
			res.Remaining = count
			if count == 0 {
				break
			}
		}

		if stalls >= maxStalls {
			finish(StateGuardTripped)
			w.logger.Warn("delete all made no progress",
				zap.Int("chunks", res.Chunks),
				zap.Int64("remaining", res.Remaining))
			return res, nil
		}
	}

	finish(StateDrained)
	w.logger.Info("delete all drained",
		zap.Int64("deleted", res.Deleted),
		zap.Int("chunks", res.Chunks),
		zap.Duration("duration", res.Duration))

	return res, nil
}

func (w *DeleteAllWorker) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.limiter == nil {
		return nil
	}
	return w.limiter.Wait(ctx)
}
