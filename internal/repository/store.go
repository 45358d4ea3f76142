package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store exposes the repositories and opens transactional units of work over them.
//
// Repositories obtained from the Store passed to a WithinTx callback run inside that
// transaction. Calling WithinTx on a transactional Store joins the running transaction.
type Store interface {
	Users() UserRepository
	Preferences() PreferenceRepository
	SwapRequests() SwapRequestRepository
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
	Ping(ctx context.Context) error
}

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresOptions tunes transactions opened by the Postgres store.
type PostgresOptions struct {
	LockTimeout time.Duration
}

type postgresStore struct {
	pool *pgxpool.Pool
	q    querier
	inTx bool
	opts PostgresOptions
}

// NewPostgresStore returns a Store backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool, opts PostgresOptions) Store {
	return &postgresStore{pool: pool, q: pool, opts: opts}
}

func (s *postgresStore) Users() UserRepository {
	return &userRepository{q: s.q}
}

func (s *postgresStore) Preferences() PreferenceRepository {
	return &preferenceRepository{q: s.q}
}

func (s *postgresStore) SwapRequests() SwapRequestRepository {
	return &swapRequestRepository{q: s.q}
}

// WithinTx runs fn in a REPEATABLE READ transaction. Row locks honour the configured lock timeout.
func (s *postgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) (err error) {
	if s.inTx {
		return fn(ctx, s)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return mapError(fmt.Errorf("begin tx: %w", err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if s.opts.LockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.opts.LockTimeout.Milliseconds())
		if _, err = tx.Exec(ctx, stmt); err != nil {
			return mapError(err)
		}
	}

	if err = fn(ctx, &postgresStore{pool: s.pool, q: tx, inTx: true, opts: s.opts}); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return mapError(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

func (s *postgresStore) Ping(ctx context.Context) error {
	if s.pool == nil {
		return errors.New("postgres pool not configured")
	}
	return s.pool.Ping(ctx)
}
