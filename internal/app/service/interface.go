package service

import (
	"context"

	"github.com/atinyakov/go-user-directory/internal/models"
	"github.com/atinyakov/go-user-directory/internal/worker"
)

// Storage is the subset of storage.Store the service layer calls directly.
type Storage interface {
	Count(context.Context, models.SearchFilter) (int64, error)
	DeleteByID(context.Context, string) (models.User, error)
	PingContext(context.Context) error
}

// Populator runs the population engine.
type Populator interface {
	Populate(ctx context.Context, target int) (worker.PopulateResult, error)
}

// BulkDeleter runs the bulk deletion engine.
type BulkDeleter interface {
	DeleteAll(ctx context.Context) (worker.DeleteAllResult, error)
}

//go:generate mockgen -destination=../../mocks/service_mock.go -package=mocks github.com/atinyakov/go-user-directory/internal/app/service UserServiceIface

// UserServiceIface is consumed by the HTTP handlers.
type UserServiceIface interface {
	Populate(ctx context.Context, count int) (worker.PopulateResult, error)
	DeleteAll(ctx context.Context) (worker.DeleteAllResult, error)
	DeleteUser(ctx context.Context, id string) (models.User, error)
	List(ctx context.Context, page, limit int) (models.Page, error)
	Search(ctx context.Context, f models.SearchFilter, page, limit int) (models.Page, error)
	Stats(ctx context.Context) (models.Stats, error)
	PingContext(ctx context.Context) error
	DefaultPopulateCount() int
}
