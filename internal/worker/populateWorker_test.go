package worker_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/atinyakov/go-user-directory/internal/generator"
	"github.com/atinyakov/go-user-directory/internal/metrics"
	"github.com/atinyakov/go-user-directory/internal/models"
	"github.com/atinyakov/go-user-directory/internal/storage"
	"github.com/atinyakov/go-user-directory/internal/worker"
)

type MockInserter struct {
	Calls    [][]models.User
	FailOn   map[int]bool
	Rejected int
	OnCall   func(n int)
}

func (m *MockInserter) InsertMany(_ context.Context, records []models.User) (storage.InsertResult, error) {
	m.Calls = append(m.Calls, records)
	n := len(m.Calls)
	if m.OnCall != nil {
		m.OnCall(n)
	}
	if m.FailOn[n] {
		return storage.InsertResult{}, errors.New("forced failure")
	}
	rejected := min(m.Rejected, len(records))
	return storage.InsertResult{Inserted: len(records) - rejected, Rejected: rejected}, nil
}

func seeded() worker.PopulateOption {
	return worker.WithRandSource(func() rand.Source { return rand.NewPCG(7, 11) })
}

func TestPopulate_InsertsTarget(t *testing.T) {
	mem, _ := storage.CreateMemoryStorage()
	w := worker.NewPopulateWorker(mem, generator.DefaultConfig(), zap.NewNop(), seeded())

	res, err := w.Populate(context.Background(), 1000)
	require.NoError(t, err)

	assert.Equal(t, 1000, res.Target)
	assert.Equal(t, 1000, res.Inserted)
	assert.Zero(t, res.Rejected)
	assert.Equal(t, 5, res.Chunks)
	assert.Zero(t, res.FailedChunks)

	total, err := mem.Count(context.Background(), models.SearchFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), total)

	users, _ := mem.Find(context.Background(), models.SearchFilter{}, 0, 0)
	emails := make(map[string]struct{}, len(users))
	for _, u := range users {
		require.NoError(t, u.Validate())
		emails[u.Email] = struct{}{}
	}
	assert.Len(t, emails, 1000)
}

func TestPopulate_ChunkSizes(t *testing.T) {
	tests := []struct {
		name       string
		chunk      int
		target     int
		wantChunks int
		wantLast   int
	}{
		{"default", 0, 450, 3, 50},
		{"exact multiple", 100, 300, 3, 100},
		{"single chunk", 1000, 10, 1, 10},
		{"clamped high", 100000, 6000, 2, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockInserter{}
			opts := []worker.PopulateOption{seeded()}
			if tt.chunk > 0 {
				opts = append(opts, worker.WithInsertChunkSize(tt.chunk))
			}
			w := worker.NewPopulateWorker(repo, generator.DefaultConfig(), zap.NewNop(), opts...)

			res, err := w.Populate(context.Background(), tt.target)
			require.NoError(t, err)

			assert.Equal(t, tt.wantChunks, res.Chunks)
			require.Len(t, repo.Calls, tt.wantChunks)
			assert.Len(t, repo.Calls[len(repo.Calls)-1], tt.wantLast)
		})
	}
}

func TestPopulate_ZeroAndNegative(t *testing.T) {
	repo := &MockInserter{}
	w := worker.NewPopulateWorker(repo, generator.DefaultConfig(), zap.NewNop())

	res, err := w.Populate(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, res.Inserted)

	_, err = w.Populate(context.Background(), -1)
	assert.ErrorIs(t, err, worker.ErrInvalidTarget)

	assert.Empty(t, repo.Calls)
}

func TestPopulate_TargetAboveMax(t *testing.T) {
	repo := &MockInserter{}
	w := worker.NewPopulateWorker(repo, generator.DefaultConfig(), zap.NewNop())

	assert.NotPanics(t, func() {
		_, err := w.Populate(context.Background(), 1<<50)
		assert.ErrorIs(t, err, worker.ErrInvalidTarget)
	})

	_, err := w.Populate(context.Background(), worker.DefaultMaxPopulateCount+1)
	assert.ErrorIs(t, err, worker.ErrInvalidTarget)
	assert.Empty(t, repo.Calls)

	w = worker.NewPopulateWorker(repo, generator.DefaultConfig(), zap.NewNop(),
		seeded(), worker.WithMaxPopulateCount(10))

	_, err = w.Populate(context.Background(), 11)
	assert.ErrorIs(t, err, worker.ErrInvalidTarget)

	res, err := w.Populate(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Inserted)
}

func TestPopulate_AddressSpaceTooSmall(t *testing.T) {
	cfg := generator.DefaultConfig()
	cfg.LocalAlphabet = "ab"
	cfg.LocalPartLen = 1
	cfg.Domains = []string{"example.com"}

	repo := &MockInserter{}
	w := worker.NewPopulateWorker(repo, cfg, zap.NewNop(), seeded())

	_, err := w.Populate(context.Background(), 3)
	require.ErrorIs(t, err, generator.ErrGenerationExhausted)
	assert.Empty(t, repo.Calls, "nothing may be written when generation fails")
}

func TestPopulate_ExhaustionCommitsNothing(t *testing.T) {
	cfg := generator.DefaultConfig()
	cfg.LocalAlphabet = "ab"
	cfg.LocalPartLen = 1
	cfg.Domains = []string{"example.com"}
	cfg.MaxAttempts = 1

	sawExhaustion := false
	for seed := uint64(0); seed < 64; seed++ {
		repo := &MockInserter{}
		w := worker.NewPopulateWorker(repo, cfg, zap.NewNop(),
			worker.WithRandSource(func() rand.Source { return rand.NewPCG(seed, seed) }))

		_, err := w.Populate(context.Background(), 2)
		if err != nil {
			require.ErrorIs(t, err, generator.ErrGenerationExhausted)
			assert.Empty(t, repo.Calls)
			sawExhaustion = true
			continue
		}
		require.Len(t, repo.Calls, 1)
	}

	assert.True(t, sawExhaustion)
}

func TestPopulate_StorageRejectsDuplicates(t *testing.T) {
	repo := &MockInserter{Rejected: 3}
	w := worker.NewPopulateWorker(repo, generator.DefaultConfig(), zap.NewNop(),
		seeded(), worker.WithInsertChunkSize(100))

	res, err := w.Populate(context.Background(), 250)
	require.NoError(t, err)

	assert.Equal(t, 241, res.Inserted)
	assert.Equal(t, 9, res.Rejected)
	assert.Equal(t, res.Target, res.Inserted+res.Rejected)
}

func TestPopulate_FailedChunkContinues(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	repo := &MockInserter{FailOn: map[int]bool{2: true}}
	w := worker.NewPopulateWorker(repo, generator.DefaultConfig(), zap.New(core),
		seeded(), worker.WithInsertChunkSize(100))

	res, err := w.Populate(context.Background(), 300)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Chunks)
	assert.Equal(t, 1, res.FailedChunks)
	assert.Equal(t, 200, res.Inserted)
	assert.Equal(t, 100, res.Rejected)
	assert.Equal(t, 1, logs.FilterMessage("insert chunk failed").Len())
}

func TestPopulate_AllChunksFail(t *testing.T) {
	repo := &MockInserter{FailOn: map[int]bool{1: true, 2: true}}
	w := worker.NewPopulateWorker(repo, generator.DefaultConfig(), zap.NewNop(),
		seeded(), worker.WithInsertChunkSize(100))

	res, err := w.Populate(context.Background(), 200)
	require.ErrorIs(t, err, worker.ErrStorageUnavailable)

	assert.Equal(t, 2, res.FailedChunks)
	assert.Zero(t, res.Inserted)
}

func TestPopulate_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := &MockInserter{OnCall: func(n int) {
		if n == 1 {
			cancel()
		}
	}}
	w := worker.NewPopulateWorker(repo, generator.DefaultConfig(), zap.NewNop(),
		seeded(), worker.WithInsertChunkSize(100))

	res, err := w.Populate(ctx, 500)
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 1, res.Chunks)
	assert.Equal(t, 100, res.Inserted)
}

func TestPopulate_InvalidGeneratorConfig(t *testing.T) {
	cfg := generator.DefaultConfig()
	cfg.Domains = nil

	w := worker.NewPopulateWorker(&MockInserter{}, cfg, zap.NewNop())

	_, err := w.Populate(context.Background(), 10)
	assert.ErrorIs(t, err, generator.ErrInvalidConfig)
}

func TestPopulate_Metrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	repo := &MockInserter{Rejected: 1}
	w := worker.NewPopulateWorker(repo, generator.DefaultConfig(), zap.NewNop(),
		seeded(), worker.WithInsertChunkSize(50), worker.WithPopulateMetrics(m))

	_, err := w.Populate(context.Background(), 100)
	require.NoError(t, err)

	assert.Equal(t, float64(98), testutil.ToFloat64(m.RecordsInserted))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.RecordsRejected))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.InsertChunks.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PopulateRuns.WithLabelValues("ok")))
}

func TestPopulate_MetricsOnEveryExit(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := &MockInserter{OnCall: func(n int) {
		if n == 1 {
			cancel()
		}
	}}
	w := worker.NewPopulateWorker(repo, generator.DefaultConfig(), zap.NewNop(),
		seeded(), worker.WithInsertChunkSize(100), worker.WithPopulateMetrics(m))

	res, err := w.Populate(ctx, 500)
	require.ErrorIs(t, err, context.Canceled)
	assert.Positive(t, res.Duration)

	cfg := generator.DefaultConfig()
	cfg.LocalAlphabet = "ab"
	cfg.LocalPartLen = 1
	cfg.Domains = []string{"example.com"}
	w = worker.NewPopulateWorker(repo, cfg, zap.NewNop(), seeded(), worker.WithPopulateMetrics(m))

	_, err = w.Populate(context.Background(), 3)
	require.ErrorIs(t, err, generator.ErrGenerationExhausted)

	failing := &MockInserter{FailOn: map[int]bool{1: true}}
	w = worker.NewPopulateWorker(failing, generator.DefaultConfig(), zap.NewNop(),
		seeded(), worker.WithPopulateMetrics(m))

	_, err = w.Populate(context.Background(), 5)
	require.ErrorIs(t, err, worker.ErrStorageUnavailable)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.PopulateRuns.WithLabelValues("canceled")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PopulateRuns.WithLabelValues("exhausted")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PopulateRuns.WithLabelValues("failed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.PopulateDuration))
}
