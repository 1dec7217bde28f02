package storage_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/go-user-directory/internal/models"
	"github.com/atinyakov/go-user-directory/internal/storage"
)

func user(name, email, phone string) models.User {
	return models.User{Username: name, Email: email, Phone: phone}
}

func seedUsers(n int) []models.User {
	users := make([]models.User, 0, n)
	for i := 0; i < n; i++ {
		users = append(users, user("alice", fmt.Sprintf("user%d@example.com", i), "0123456789"))
	}
	return users
}

func TestMemoryStorage_InsertMany(t *testing.T) {
	mem, _ := storage.CreateMemoryStorage()
	ctx := context.Background()

	res, err := mem.InsertMany(ctx, seedUsers(3))
	require.NoError(t, err)
	assert.Equal(t, storage.InsertResult{Inserted: 3}, res)

	// one duplicate, one fresh
	res, err = mem.InsertMany(ctx, []models.User{
		user("bob", "user1@example.com", "1111111111"),
		user("carol", "carol@example.com", "2222222222"),
	})
	require.NoError(t, err)
	assert.Equal(t, storage.InsertResult{Inserted: 1, Rejected: 1}, res)

	total, err := mem.Count(ctx, models.SearchFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)

	users, err := mem.Find(ctx, models.SearchFilter{}, 0, 0)
	require.NoError(t, err)
	for _, u := range users {
		assert.NotEmpty(t, u.ID)
	}
}

func TestMemoryStorage_InsertMany_Invalid(t *testing.T) {
	mem, _ := storage.CreateMemoryStorage()
	ctx := context.Background()

	_, err := mem.InsertMany(ctx, []models.User{
		user("alice", "alice@example.com", "0123456789"),
		user("b0b", "bob@example.com", "0123456789"),
	})
	require.ErrorIs(t, err, storage.ErrInvalidRecord)

	total, _ := mem.Count(ctx, models.SearchFilter{})
	assert.Zero(t, total, "an invalid batch must not be partially applied")
}

func TestMemoryStorage_FindPaging(t *testing.T) {
	mem, _ := storage.CreateMemoryStorage()
	ctx := context.Background()
	_, err := mem.InsertMany(ctx, seedUsers(45))
	require.NoError(t, err)

	page, err := mem.Find(ctx, models.SearchFilter{}, 20, 20)
	require.NoError(t, err)
	require.Len(t, page, 20)
	assert.Equal(t, "user20@example.com", page[0].Email)

	page, err = mem.Find(ctx, models.SearchFilter{}, 40, 20)
	require.NoError(t, err)
	assert.Len(t, page, 5)

	page, err = mem.Find(ctx, models.SearchFilter{}, 100, 20)
	require.NoError(t, err)
	assert.NotNil(t, page)
	assert.Empty(t, page)
}

func TestMemoryStorage_Search(t *testing.T) {
	mem, _ := storage.CreateMemoryStorage()
	ctx := context.Background()
	_, err := mem.InsertMany(ctx, []models.User{
		user("Alice", "alice@example.com", "5550001111"),
		user("Malik", "malik@mail.com", "5550002222"),
		user("Bob", "bob@example.com", "9990001111"),
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter models.SearchFilter
		want   int64
	}{
		{"case insensitive username", models.SearchFilter{Username: "ALI"}, 2},
		{"email substring", models.SearchFilter{Email: "example"}, 2},
		{"phone substring", models.SearchFilter{Phone: "0001111"}, 2},
		{"fields are combined", models.SearchFilter{Username: "ali", Email: "mail.com"}, 1},
		{"no match", models.SearchFilter{Username: "zed"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := mem.Count(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)

			users, err := mem.Find(ctx, tt.filter, 0, 10)
			require.NoError(t, err)
			assert.Len(t, users, int(tt.want))
		})
	}
}

func TestMemoryStorage_DeleteByID(t *testing.T) {
	mem, _ := storage.CreateMemoryStorage()
	ctx := context.Background()
	_, err := mem.InsertMany(ctx, seedUsers(2))
	require.NoError(t, err)

	users, _ := mem.Find(ctx, models.SearchFilter{}, 0, 0)

	deleted, err := mem.DeleteByID(ctx, users[0].ID)
	require.NoError(t, err)
	assert.Equal(t, users[0], deleted)

	_, err = mem.DeleteByID(ctx, users[0].ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	total, _ := mem.Count(ctx, models.SearchFilter{})
	assert.Equal(t, int64(1), total)

	// the email is free again
	res, err := mem.InsertMany(ctx, []models.User{users[0]})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
}

func TestMemoryStorage_DeleteChunk(t *testing.T) {
	mem, _ := storage.CreateMemoryStorage()
	ctx := context.Background()
	_, err := mem.InsertMany(ctx, seedUsers(25))
	require.NoError(t, err)

	n, err := mem.DeleteChunk(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)

	n, err = mem.DeleteChunk(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)

	n, err = mem.DeleteChunk(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	n, err = mem.DeleteChunk(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryStorage_PingContext(t *testing.T) {
	mem, _ := storage.CreateMemoryStorage()

	assert.NoError(t, mem.PingContext(context.Background()))
	assert.NoError(t, mem.Close())
}
