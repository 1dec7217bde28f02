//go:build integration

package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"

	"github.com/atinyakov/go-user-directory/internal/models"
	"github.com/atinyakov/go-user-directory/internal/storage"
)

func startPostgres(t *testing.T) storage.Store {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("users"),
		tcpostgres.WithUsername("users"),
		tcpostgres.WithPassword("users"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := InitDB(ctx, dsn)
	require.NoError(t, err)

	repo := NewPostgresRepository(db, zap.NewNop())
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func startMongo(t *testing.T) storage.Store {
	t.Helper()
	ctx := context.Background()

	container, err := tcmongo.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	repo, err := NewMongoRepository(ctx, uri, "userdir", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func records(from, to int) []models.User {
	users := make([]models.User, 0, to-from)
	for i := from; i < to; i++ {
		users = append(users, models.User{
			Username: "alice",
			Email:    fmt.Sprintf("user%03d@example.com", i),
			Phone:    fmt.Sprintf("%010d", i),
		})
	}
	return users
}

func exerciseStore(t *testing.T, store storage.Store) {
	ctx := context.Background()

	res, err := store.InsertMany(ctx, records(0, 45))
	require.NoError(t, err)
	assert.Equal(t, 45, res.Inserted)

	res, err = store.InsertMany(ctx, records(40, 50))
	require.NoError(t, err)
	assert.Equal(t, storage.InsertResult{Inserted: 5, Rejected: 5}, res)

	total, err := store.Count(ctx, models.SearchFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(50), total)

	page, err := store.Find(ctx, models.SearchFilter{}, 20, 20)
	require.NoError(t, err)
	require.Len(t, page, 20)
	assert.Equal(t, "user020@example.com", page[0].Email)

	n, err := store.Count(ctx, models.SearchFilter{Email: "USER04"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)

	deleted, err := store.DeleteByID(ctx, page[0].ID)
	require.NoError(t, err)
	assert.Equal(t, page[0], deleted)

	_, err = store.DeleteByID(ctx, page[0].ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.DeleteByID(ctx, "garbage")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	var removed int64
	for {
		n, err := store.DeleteChunk(ctx, 7)
		require.NoError(t, err)
		if n == 0 {
			break
		}
		removed += n
	}
	assert.Equal(t, int64(49), removed)

	total, err = store.Count(ctx, models.SearchFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)

	require.NoError(t, store.PingContext(ctx))
}

func TestPostgresRepository_Integration(t *testing.T) {
	exerciseStore(t, startPostgres(t))
}

func TestMongoRepository_Integration(t *testing.T) {
	exerciseStore(t, startMongo(t))
}
