// Package database provides the PostgreSQL connection pool and the
// transaction plumbing stores use to join an ambient transaction.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Queryer is the subset of pgxpool.Pool that stores depend on. pgx.Tx and
// pgxmock satisfy it too, which keeps repository tests hermetic.
type Queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPool opens a pgx pool with production settings and verifies connectivity.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolConfig.MaxConns = 16
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

type txKey struct{}

// WithTx stores a transaction in context so downstream stores execute inside
// it instead of on the pool.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// QueryerFrom returns the transaction bound to ctx, or the fallback.
func QueryerFrom(ctx context.Context, fallback Queryer) Queryer {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return fallback
}

// TxRunner begins transactions. Implemented by pgxpool.Pool; faked in tests.
type TxRunner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Transactor is the service-facing transaction boundary. Services depend on
// this instead of the pool so tests can run without a database.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PoolTransactor runs fn inside a real transaction on the pool.
type PoolTransactor struct {
	Runner TxRunner
}

func (t PoolTransactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return InTx(ctx, t.Runner, fn)
}

// PassthroughTransactor runs fn directly. For tests with in-memory stores,
// which have no transactions to join.
type PassthroughTransactor struct{}

func (PassthroughTransactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// InTx runs fn inside a transaction placed in context. The transaction is the
// serialization point for all per-person mutations; fn must not retain ctx.
func InTx(ctx context.Context, runner TxRunner, fn func(ctx context.Context) error) error {
	tx, err := runner.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(WithTx(ctx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
