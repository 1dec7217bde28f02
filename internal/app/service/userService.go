package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/atinyakov/go-user-directory/internal/models"
	"github.com/atinyakov/go-user-directory/internal/storage"
	"github.com/atinyakov/go-user-directory/internal/worker"
)

var ErrNotFound = errors.New("user not found")

// UserService is the single entry point of the HTTP layer into the
// directory: it runs the engines, answers queries and keeps the page
// cache in step with mutations.
type UserService struct {
	store        Storage
	query        *QueryService
	populator    Populator
	deleter      BulkDeleter
	defaultCount int
	logger       *zap.Logger
}

func NewUserService(
	store Storage,
	query *QueryService,
	populator Populator,
	deleter BulkDeleter,
	defaultCount int,
	logger *zap.Logger,
) *UserService {
	if defaultCount <= 0 {
		defaultCount = worker.DefaultPopulateCount
	}

	return &UserService{
		store:        store,
		query:        query,
		populator:    populator,
		deleter:      deleter,
		defaultCount: defaultCount,
		logger:       logger,
	}
}

func (s *UserService) DefaultPopulateCount() int {
	return s.defaultCount
}

func (s *UserService) Populate(ctx context.Context, count int) (worker.PopulateResult, error) {
	res, err := s.populator.Populate(ctx, count)
	if res.Inserted > 0 {
		s.query.Invalidate(ctx)
	}
	return res, err
}

func (s *UserService) DeleteAll(ctx context.Context) (worker.DeleteAllResult, error) {
	res, err := s.deleter.DeleteAll(ctx)
	if res.Deleted > 0 {
		s.query.Invalidate(ctx)
	}
	return res, err
}

func (s *UserService) DeleteUser(ctx context.Context, id string) (models.User, error) {
	u, err := s.store.DeleteByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.User{}, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return models.User{}, err
	}

	s.query.Invalidate(ctx)
	s.logger.Info("user deleted", zap.String("id", u.ID))

	return u, nil
}

func (s *UserService) List(ctx context.Context, page, limit int) (models.Page, error) {
	return s.query.List(ctx, page, limit)
}

func (s *UserService) Search(ctx context.Context, f models.SearchFilter, page, limit int) (models.Page, error) {
	return s.query.Search(ctx, f, page, limit)
}

func (s *UserService) Stats(ctx context.Context) (models.Stats, error) {
	n, err := s.store.Count(ctx, models.SearchFilter{})
	if err != nil {
		return models.Stats{}, err
	}
	return models.Stats{Users: n}, nil
}

func (s *UserService) PingContext(ctx context.Context) error {
	return s.store.PingContext(ctx)
}
