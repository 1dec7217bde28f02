package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/atinyakov/go-user-directory/internal/models"
)

// FileStorage persists users as JSON lines. Reads are served from an
// in-memory copy; inserts append to the file and deletes rewrite it.
type FileStorage struct {
	mu     sync.Mutex
	mem    *MemoryStorage
	path   string
	file   *os.File
	logger *zap.Logger
}

// NewFileStorage opens or creates the file at p and loads its records.
func NewFileStorage(p string, logger *zap.Logger) (*FileStorage, error) {
	if err := os.MkdirAll(filepath.Dir(p), 0770); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(p, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0660)
	if err != nil {
		return nil, err
	}

	mem, _ := CreateMemoryStorage()
	fs := &FileStorage{
		mem:    mem,
		path:   p,
		file:   file,
		logger: logger,
	}

	records, err := readRecords(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	mem.load(records)

	logger.Info("file storage loaded", zap.String("path", p), zap.Int("records", len(records)))

	return fs, nil
}

func readRecords(file *os.File) ([]models.User, error) {
	if _, err := file.Seek(0, 0); err != nil {
		return nil, err
	}

	var records []models.User
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var u models.User
		if err := json.Unmarshal(line, &u); err != nil {
			return nil, fmt.Errorf("failed to parse JSON line: %w", err)
		}
		records = append(records, u)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	return records, nil
}

func (fs *FileStorage) InsertMany(_ context.Context, records []models.User) (InsertResult, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	inserted, rejected, err := fs.mem.insert(records)
	if err != nil {
		return InsertResult{}, err
	}

	if err := fs.appendRecords(inserted); err != nil {
		// keep memory and file in agreement
		for _, u := range inserted {
			_, _ = fs.mem.DeleteByID(context.Background(), u.ID)
		}
		return InsertResult{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return InsertResult{Inserted: len(inserted), Rejected: rejected}, nil
}

// appendRecords writes records at the end of the file. On failure the file
// is cut back to its previous size, or rebuilt from memory if that fails.
func (fs *FileStorage) appendRecords(records []models.User) error {
	if len(records) == 0 {
		return nil
	}

	size, err := fs.file.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}

	if err := writeRecords(fs.file, records); err != nil {
		terr := fs.file.Truncate(size)
		if terr == nil {
			_, terr = fs.file.Seek(size, io.SeekStart)
		}
		if terr != nil {
			fs.logger.Warn("truncate after failed append", zap.String("path", fs.path), zap.Error(terr))
			// the caller removes records from memory afterwards
			if rerr := fs.rewrite(without(fs.mem.snapshot(), records)); rerr != nil {
				fs.logger.Error("file storage diverged from memory", zap.String("path", fs.path), zap.Error(rerr))
			}
		}
		return err
	}
	return nil
}

func writeRecords(f *os.File, records []models.User) error {
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return w.Flush()
}

func (fs *FileStorage) Count(ctx context.Context, f models.SearchFilter) (int64, error) {
	return fs.mem.Count(ctx, f)
}

func (fs *FileStorage) Find(ctx context.Context, f models.SearchFilter, skip, limit int64) ([]models.User, error) {
	return fs.mem.Find(ctx, f, skip, limit)
}

// DeleteByID rewrites the file without the record first and drops it from
// memory only once the file is replaced.
func (fs *FileStorage) DeleteByID(ctx context.Context, id string) (models.User, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	all := fs.mem.snapshot()
	idx := -1
	for i, u := range all {
		if u.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.User{}, ErrNotFound
	}

	remaining := append(append([]models.User(nil), all[:idx]...), all[idx+1:]...)
	if err := fs.rewrite(remaining); err != nil {
		return models.User{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return fs.mem.DeleteByID(ctx, id)
}

// DeleteChunk removes the oldest records from the file, then from memory.
// A failed rewrite leaves both untouched.
func (fs *FileStorage) DeleteChunk(ctx context.Context, limit int) (int64, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	all := fs.mem.snapshot()
	n := min(max(limit, 0), len(all))
	if n == 0 {
		return 0, nil
	}

	if err := fs.rewrite(all[n:]); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return fs.mem.DeleteChunk(ctx, n)
}

// rewrite replaces the file with records via a temporary file and rename.
// The temporary file's handle becomes the append handle, so nothing has to
// be reopened once the rename succeeded.
func (fs *FileStorage) rewrite(records []models.User) error {
	tmp, err := os.CreateTemp(filepath.Dir(fs.path), filepath.Base(fs.path)+".*.tmp")
	if err != nil {
		return err
	}

	discard := func(err error) error {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}

	if err := writeRecords(tmp, records); err != nil {
		return discard(err)
	}
	if err := errors.Join(tmp.Sync(), tmp.Chmod(0660)); err != nil {
		return discard(err)
	}
	if err := os.Rename(tmp.Name(), fs.path); err != nil {
		return discard(err)
	}

	fs.file.Close()
	fs.file = tmp

	return nil
}

// without returns records minus those whose id appears in drop.
func without(records, drop []models.User) []models.User {
	ids := make(map[string]struct{}, len(drop))
	for _, u := range drop {
		ids[u.ID] = struct{}{}
	}

	kept := make([]models.User, 0, len(records))
	for _, u := range records {
		if _, ok := ids[u.ID]; !ok {
			kept = append(kept, u)
		}
	}
	return kept
}

func (fs *FileStorage) PingContext(_ context.Context) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	_, err := fs.file.Stat()
	return err
}

func (fs *FileStorage) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.file.Close()
}
