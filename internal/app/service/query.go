package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/atinyakov/go-user-directory/internal/cache"
	"github.com/atinyakov/go-user-directory/internal/models"
)

const (
	DefaultPage        = 1
	DefaultPageSize    = 20
	DefaultMaxPageSize = 100
)

var ErrInvalidQuery = errors.New("invalid query")

// Reader is the storage capability listing and search need.
type Reader interface {
	Count(context.Context, models.SearchFilter) (int64, error)
	Find(ctx context.Context, f models.SearchFilter, skip, limit int64) ([]models.User, error)
}

// QueryService composes paginated reads. Pages are ordered by the storage's
// insertion key, so the same page is stable while nothing is written.
type QueryService struct {
	store       Reader
	cache       cache.PageCache
	maxPageSize int
	logger      *zap.Logger
}

type QueryOption func(*QueryService)

// WithMaxPageSize caps limit; larger requests are clamped, not rejected.
func WithMaxPageSize(n int) QueryOption {
	return func(s *QueryService) {
		if n > 0 {
			s.maxPageSize = n
		}
	}
}

func NewQueryService(store Reader, pc cache.PageCache, logger *zap.Logger, opts ...QueryOption) *QueryService {
	if pc == nil {
		pc = cache.Noop{}
	}

	s := &QueryService{
		store:       store,
		cache:       pc,
		maxPageSize: DefaultMaxPageSize,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *QueryService) List(ctx context.Context, page, limit int) (models.Page, error) {
	return s.query(ctx, models.SearchFilter{}, page, limit)
}

func (s *QueryService) Search(ctx context.Context, f models.SearchFilter, page, limit int) (models.Page, error) {
	return s.query(ctx, f, page, limit)
}

// Invalidate drops every cached page. Failures are logged only; pages
// expire on their own.
func (s *QueryService) Invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("page cache invalidation failed", zap.Error(err))
	}
}

func (s *QueryService) query(ctx context.Context, f models.SearchFilter, page, limit int) (models.Page, error) {
	if page < 1 {
		return models.Page{}, fmt.Errorf("%w: page must be >= 1, got %d", ErrInvalidQuery, page)
	}
	if limit < 1 {
		return models.Page{}, fmt.Errorf("%w: limit must be >= 1, got %d", ErrInvalidQuery, limit)
	}
	limit = min(limit, s.maxPageSize)

	key := cache.PageKey(f, page, limit)
	gen, err := s.cache.Generation(ctx)
	useCache := err == nil
	if err != nil {
		s.logger.Warn("page cache generation lookup failed", zap.Error(err))
	}

	if useCache {
		if cached, ok, err := s.cache.Get(ctx, gen, key); err != nil {
			s.logger.Warn("page cache read failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	total, err := s.store.Count(ctx, f)
	if err != nil {
		return models.Page{}, err
	}

	var users []models.User
	skip := int64(page-1) * int64(limit)
	if skip < total {
		users, err = s.store.Find(ctx, f, skip, int64(limit))
		if err != nil {
			return models.Page{}, err
		}
	}

	result := models.NewPage(users, page, limit, total)

	if useCache {
		if err := s.cache.Set(ctx, gen, key, result); err != nil {
			s.logger.Warn("page cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	return result, nil
}
