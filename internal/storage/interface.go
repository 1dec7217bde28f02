package storage

import (
	"context"

	"github.com/atinyakov/go-user-directory/internal/models"
)

// Store is the document-store contract every backend implements.
type Store interface {
	// InsertMany writes records; storage assigns their ids. Records whose email
	// is already present are skipped and counted as rejected.
	InsertMany(context.Context, []models.User) (InsertResult, error)

	// Count returns the number of records matching the filter.
	Count(context.Context, models.SearchFilter) (int64, error)

	// Find returns matching records in stable insertion order.
	Find(ctx context.Context, f models.SearchFilter, skip, limit int64) ([]models.User, error)

	// DeleteByID removes one record and returns it, or ErrNotFound.
	DeleteByID(context.Context, string) (models.User, error)

	// DeleteChunk removes at most limit records and returns how many it removed.
	DeleteChunk(ctx context.Context, limit int) (int64, error)

	PingContext(context.Context) error
	Close() error
}
