package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/12darko/TeacherConnect-sub000/internal/store"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store is the PostgreSQL implementation of store.Store. Ids are UUID
// strings generated here when the caller leaves them empty.
type Store struct {
	Pool *pgxpool.Pool
	q    dbtx
}

var _ store.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool, q: pool}
}

// WithTx opens a transaction, or a savepoint when the store is already bound
// to one.
func (s *Store) WithTx(ctx context.Context, fn func(store.Store) error) error {
	tx, err := s.q.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(&Store{Pool: s.Pool, q: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func getOne[T any](ctx context.Context, q dbtx, scan func(scanner) (T, error), sql string, args ...any) (T, bool, error) {
	value, err := scan(q.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		var zero T
		return zero, false, nil
	}
	if err != nil {
		var zero T
		return zero, false, err
	}
	return value, true, nil
}

func listAll[T any](ctx context.Context, q dbtx, scan func(scanner) (T, error), sql string, args ...any) ([]T, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		value, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, rows.Err()
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

const uniqueViolation = "23505"

// mapWriteError turns unique violations into store.ErrDuplicate.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return store.ErrDuplicate
	}
	return err
}
