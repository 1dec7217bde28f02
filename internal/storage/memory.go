package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/atinyakov/go-user-directory/internal/models"
)

// MemoryStorage keeps users in insertion order with an email index.
type MemoryStorage struct {
	mu     sync.RWMutex
	users  []models.User
	emails map[string]struct{}
	newID  func() string
}

func CreateMemoryStorage() (*MemoryStorage, error) {
	return &MemoryStorage{
		emails: make(map[string]struct{}),
		newID:  uuid.NewString,
	}, nil
}

func (m *MemoryStorage) InsertMany(_ context.Context, records []models.User) (InsertResult, error) {
	inserted, rejected, err := m.insert(records)
	if err != nil {
		return InsertResult{}, err
	}
	return InsertResult{Inserted: len(inserted), Rejected: rejected}, nil
}

// insert validates the whole batch before touching state, then appends the
// records whose email is free. It returns the stored copies with ids.
func (m *MemoryStorage) insert(records []models.User) ([]models.User, int, error) {
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	inserted := make([]models.User, 0, len(records))
	rejected := 0
	for _, r := range records {
		if _, taken := m.emails[r.Email]; taken {
			rejected++
			continue
		}
		r.ID = m.newID()
		m.emails[r.Email] = struct{}{}
		m.users = append(m.users, r)
		inserted = append(inserted, r)
	}

	return inserted, rejected, nil
}

// load appends records that already carry ids, used when restoring from disk.
func (m *MemoryStorage) load(records []models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range records {
		if _, taken := m.emails[r.Email]; taken {
			continue
		}
		m.emails[r.Email] = struct{}{}
		m.users = append(m.users, r)
	}
}

func (m *MemoryStorage) Count(_ context.Context, f models.SearchFilter) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if f.IsEmpty() {
		return int64(len(m.users)), nil
	}

	var n int64
	for _, u := range m.users {
		if matches(u, f) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStorage) Find(_ context.Context, f models.SearchFilter, skip, limit int64) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]models.User, 0)
	var seen int64
	for _, u := range m.users {
		if limit > 0 && int64(len(result)) >= limit {
			break
		}
		if !matches(u, f) {
			continue
		}
		if seen < skip {
			seen++
			continue
		}
		result = append(result, u)
	}

	return result, nil
}

func (m *MemoryStorage) DeleteByID(_ context.Context, id string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, u := range m.users {
		if u.ID == id {
			m.users = append(m.users[:i], m.users[i+1:]...)
			delete(m.emails, u.Email)
			return u, nil
		}
	}

	return models.User{}, ErrNotFound
}

func (m *MemoryStorage) DeleteChunk(_ context.Context, limit int) (int64, error) {
	if limit <= 0 {
		return 0, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	n := min(limit, len(m.users))
	for _, u := range m.users[:n] {
		delete(m.emails, u.Email)
	}
	m.users = append([]models.User(nil), m.users[n:]...)

	return int64(n), nil
}

// snapshot returns a copy of all users in order.
func (m *MemoryStorage) snapshot() []models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]models.User(nil), m.users...)
}

func (m *MemoryStorage) PingContext(_ context.Context) error {
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}

func matches(u models.User, f models.SearchFilter) bool {
	if f.Username != "" && !containsFold(u.Username, f.Username) {
		return false
	}
	if f.Email != "" && !containsFold(u.Email, f.Email) {
		return false
	}
	if f.Phone != "" && !strings.Contains(u.Phone, f.Phone) {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
