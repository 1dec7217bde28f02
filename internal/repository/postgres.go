// Package repository contains the database-backed implementations of the
// user store: PostgreSQL through database/sql and MongoDB through the
// official driver.
package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/atinyakov/go-user-directory/internal/models"
	"github.com/atinyakov/go-user-directory/internal/storage"
)

const createTable = `
	CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	seq BIGSERIAL NOT NULL,
	username TEXT NOT NULL,
	email TEXT UNIQUE NOT NULL,
	phone TEXT NOT NULL
);`

const createSeqIndex = `CREATE INDEX IF NOT EXISTS users_seq_idx ON users (seq);`

// InitDB opens a pgx-backed *sql.DB, checks connectivity and bootstraps the
// users table.
func InitDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
	}

	for _, stmt := range []string{createTable, createSeqIndex} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}

// PostgresRepository stores users in a single table ordered by a
// monotonically increasing seq column.
type PostgresRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresRepository(db *sql.DB, logger *zap.Logger) *PostgresRepository {
	return &PostgresRepository{
		db:     db,
		logger: logger,
	}
}

// InsertMany writes all records in one statement. Rows whose email already
// exists are skipped by ON CONFLICT and reported as rejected.
func (r *PostgresRepository) InsertMany(ctx context.Context, records []models.User) (storage.InsertResult, error) {
	if len(records) == 0 {
		return storage.InsertResult{}, nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO users (username, email, phone) VALUES ")

	args := make([]any, 0, len(records)*3)
	for i, rec := range records {
		if err := rec.Validate(); err != nil {
			return storage.InsertResult{}, fmt.Errorf("%w: %w", storage.ErrInvalidRecord, err)
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		n := len(args)
		fmt.Fprintf(&sb, "($%d, $%d, $%d)", n+1, n+2, n+3)
		args = append(args, rec.Username, rec.Email, rec.Phone)
	}
	sb.WriteString(" ON CONFLICT (email) DO NOTHING RETURNING id;")

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		r.logger.Error("insert users", zap.Int("records", len(records)), zap.Error(err))
		return storage.InsertResult{}, classify(err)
	}
	defer rows.Close()

	inserted := 0
	for rows.Next() {
		inserted++
	}
	if err := rows.Err(); err != nil {
		return storage.InsertResult{}, classify(err)
	}

	return storage.InsertResult{Inserted: inserted, Rejected: len(records) - inserted}, nil
}

func (r *PostgresRepository) Count(ctx context.Context, f models.SearchFilter) (int64, error) {
	where, args := whereClause(f)

	var n int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users"+where+";", args...).Scan(&n)
	if err != nil {
		return 0, classify(err)
	}
	return n, nil
}

func (r *PostgresRepository) Find(ctx context.Context, f models.SearchFilter, skip, limit int64) ([]models.User, error) {
	where, args := whereClause(f)

	query := "SELECT id, username, email, phone FROM users" + where + " ORDER BY seq"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if skip > 0 {
		args = append(args, skip)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query+";", args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Phone); err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}

	return users, nil
}

func (r *PostgresRepository) DeleteByID(ctx context.Context, id string) (models.User, error) {
	row := r.db.QueryRowContext(ctx,
		"DELETE FROM users WHERE id = $1 RETURNING id, username, email, phone;", id)

	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Phone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, classify(err)
	}

	return u, nil
}

// DeleteChunk removes up to limit of the oldest rows.
func (r *PostgresRepository) DeleteChunk(ctx context.Context, limit int) (int64, error) {
	if limit <= 0 {
		return 0, nil
	}

	res, err := r.db.ExecContext(ctx,
		"DELETE FROM users WHERE id IN (SELECT id FROM users ORDER BY seq LIMIT $1);", limit)
	if err != nil {
		return 0, classify(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *PostgresRepository) PingContext(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

func whereClause(f models.SearchFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	add := func(column, value string, fold bool) {
		if value == "" {
			return
		}
		args = append(args, "%"+escapeLike(value)+"%")
		op := "LIKE"
		if fold {
			op = "ILIKE"
		}
		conds = append(conds, fmt.Sprintf("%s %s $%d", column, op, len(args)))
	}

	add("username", f.Username, true)
	add("email", f.Email, true)
	add("phone", f.Phone, false)

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// classify maps driver errors onto storage sentinels.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgerrcode.InvalidTextRepresentation:
			return fmt.Errorf("%w: %w", storage.ErrNotFound, err)
		case pgerrcode.IsConnectionException(pgErr.Code),
			pgerrcode.IsInsufficientResources(pgErr.Code),
			pgErr.Code == pgerrcode.AdminShutdown,
			pgErr.Code == pgerrcode.CannotConnectNow:
			return fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
		}
		return err
	}

	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
	}

	return err
}
