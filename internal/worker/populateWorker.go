package worker

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/atinyakov/go-user-directory/internal/generator"
	"github.com/atinyakov/go-user-directory/internal/metrics"
	"github.com/atinyakov/go-user-directory/internal/models"
	"github.com/atinyakov/go-user-directory/internal/storage"
)

const (
	DefaultInsertChunkSize = 200
	MaxInsertChunkSize     = 5000
	DefaultPopulateCount   = 10000
	// DefaultMaxPopulateCount bounds how many records one run holds in memory.
	DefaultMaxPopulateCount = 100000
)

var ErrInvalidTarget = errors.New("invalid target count")

// populate run outcomes, as reported to metrics
const (
	outcomeOK        = "ok"
	outcomeFailed    = "failed"
	outcomeCanceled  = "canceled"
	outcomeExhausted = "exhausted"
)

// Inserter is the storage capability the population engine needs.
type Inserter interface {
	InsertMany(context.Context, []models.User) (storage.InsertResult, error)
}

// PopulateResult summarises one populate run.
type PopulateResult struct {
	Target       int
	Inserted     int
	Rejected     int
	Chunks       int
	FailedChunks int
	Duration     time.Duration
}

type PopulateWorker struct {
	store     Inserter
	genCfg    generator.Config
	chunkSize int
	maxTarget int
	limiter   *rate.Limiter
	metrics   *metrics.Metrics
	source    func() rand.Source
	logger    *zap.Logger
}

type PopulateOption func(*PopulateWorker)

// WithInsertChunkSize sets the number of records per write, clamped to
// [1, MaxInsertChunkSize].
func WithInsertChunkSize(n int) PopulateOption {
	return func(w *PopulateWorker) {
		w.chunkSize = min(max(n, 1), MaxInsertChunkSize)
	}
}

// WithMaxPopulateCount sets the largest target a run accepts.
func WithMaxPopulateCount(n int) PopulateOption {
	return func(w *PopulateWorker) {
		if n > 0 {
			w.maxTarget = n
		}
	}
}

// WithPopulateRate paces chunk writes to at most limit per second.
func WithPopulateRate(limit rate.Limit) PopulateOption {
	return func(w *PopulateWorker) {
		w.limiter = newLimiter(limit)
	}
}

func WithPopulateMetrics(m *metrics.Metrics) PopulateOption {
	return func(w *PopulateWorker) {
		w.metrics = m
	}
}

// WithRandSource makes every run draw from a source built by fn.
func WithRandSource(fn func() rand.Source) PopulateOption {
	return func(w *PopulateWorker) {
		w.source = fn
	}
}

func NewPopulateWorker(store Inserter, genCfg generator.Config, logger *zap.Logger, opts ...PopulateOption) *PopulateWorker {
	w := &PopulateWorker{
		store:     store,
		genCfg:    genCfg,
		chunkSize: DefaultInsertChunkSize,
		maxTarget: DefaultMaxPopulateCount,
		source:    func() rand.Source { return nil },
		logger:    logger,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Populate generates target unique users and writes them in chunks.
//
// Generation happens before the first write, so exhaustion leaves storage
// untouched. A failing chunk does not stop the run; its records count as
// rejected. Only when every chunk fails is ErrStorageUnavailable returned.
func (w *PopulateWorker) Populate(ctx context.Context, target int) (PopulateResult, error) {
	start := time.Now()
	res := PopulateResult{Target: target}

	if target < 0 || target > w.maxTarget {
		return res, fmt.Errorf("%w: %d is outside [0, %d]", ErrInvalidTarget, target, w.maxTarget)
	}
	if target == 0 {
		return res, nil
	}

	finish := func(outcome string) PopulateResult {
		res.Duration = time.Since(start)
		w.metrics.ObservePopulate(outcome, start)
		return res
	}

	if err := w.genCfg.Validate(); err != nil {
		return finish(outcomeFailed), err
	}

	gen := generator.New(w.genCfg, w.source())
	if capacity := gen.Capacity(); uint64(target) > capacity {
		return finish(outcomeExhausted), fmt.Errorf("%w: %d records requested, address space holds %d",
			generator.ErrGenerationExhausted, target, capacity)
	}

	batch, err := buildBatch(gen, target)
	if err != nil {
		w.logger.Error("populate aborted before writing", zap.Int("target", target), zap.Error(err))
		return finish(outcomeExhausted), err
	}

	var lastErr error
	for off := 0; off < len(batch); off += w.chunkSize {
		if err := w.wait(ctx); err != nil {
			finish(outcomeCanceled)
			w.logger.Warn("populate interrupted",
				zap.Int("inserted", res.Inserted),
				zap.Int("chunks", res.Chunks),
				zap.Error(err))
			return res, err
		}

		chunk := batch[off:min(off+w.chunkSize, len(batch))]
		res.Chunks++

		ir, err := w.store.InsertMany(ctx, chunk)
		if err != nil {
			lastErr = err
			res.FailedChunks++
			res.Rejected += len(chunk)
			w.metrics.ObserveInsertChunk(0, len(chunk), true)
			w.logger.Warn("insert chunk failed",
				zap.Int("chunk", res.Chunks),
				zap.Int("records", len(chunk)),
				zap.Error(err))
			continue
		}

		res.Inserted += ir.Inserted
		res.Rejected += ir.Rejected
		w.metrics.ObserveInsertChunk(ir.Inserted, ir.Rejected, false)
	}

	if res.FailedChunks == res.Chunks {
		return finish(outcomeFailed), fmt.Errorf("%w: %w", ErrStorageUnavailable, lastErr)
	}

	finish(outcomeOK)
	w.logger.Info("populate finished",
		zap.Int("target", res.Target),
		zap.Int("inserted", res.Inserted),
		zap.Int("rejected", res.Rejected),
		zap.Int("failed_chunks", res.FailedChunks),
		zap.Duration("duration", res.Duration))

	return res, nil
}

func buildBatch(gen *generator.Generator, target int) ([]models.User, error) {
	issued := make(map[string]struct{}, target)
	batch := make([]models.User, 0, target)

	for len(batch) < target {
		u, err := gen.Record(issued)
		if err != nil {
			return nil, err
		}
		issued[u.Email] = struct{}{}
		batch = append(batch, u)
	}

	return batch, nil
}

func (w *PopulateWorker) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.limiter == nil {
		return nil
	}
	return w.limiter.Wait(ctx)
}
