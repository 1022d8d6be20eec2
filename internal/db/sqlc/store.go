package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides all functions to execute db queries and transactions.
type Store interface {
	Querier
	ReconcileTaskAssignmentsTx(ctx context.Context, taskID int64) (int, error)
	AcquireReconcileLock(ctx context.Context) (release func(), acquired bool, err error)
	Ping(ctx context.Context) error
}

type SQLStore struct {
	*Queries
	connPool *pgxpool.Pool
}

// NewStore creates a new Store.
func NewStore(db *pgxpool.Pool) Store {
	return &SQLStore{
		Queries:  New(db),
		connPool: db,
	}
}

// Ping checks if the database connection is alive.
func (store *SQLStore) Ping(ctx context.Context) error {
	return store.connPool.Ping(ctx)
}

// ExecTx executes a function within a database transaction.
func (store *SQLStore) ExecTx(ctx context.Context, fn func(qTx *Queries) error) error {
	tx, err := store.connPool.Begin(ctx)
	if err != nil {
		return err
	}

	qTx := New(tx)
	err = fn(qTx)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx error: %v, rollback error: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit(ctx)
}

// reconcileLockID identifies the reconciler's advisory lock. All engine
// instances sharing one database compete for the same id.
const reconcileLockID = 874_220_017

// AcquireReconcileLock takes the session-level advisory lock that serializes
// reconciler runs across engine instances. When acquired is true, the caller
// must invoke release exactly once. When acquired is false, another run holds
// the lock and release is a no-op.
func (store *SQLStore) AcquireReconcileLock(ctx context.Context) (func(), bool, error) {
	conn, err := store.connPool.Acquire(ctx)
	if err != nil {
		return func() {}, false, err
	}

	var acquired bool
	err = conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", reconcileLockID).Scan(&acquired)
	if err != nil {
		conn.Release()
		return func() {}, false, err
	}

	if !acquired {
		conn.Release()
		return func() {}, false, nil
	}

	release := func() {
		// Unlock on the same session that took the lock. Use a background
		// context so cancellation of the run cannot leak the lock.
		if _, err := conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", reconcileLockID); err != nil {
			// The lock dies with the session anyway when the conn is closed.
			conn.Conn().Close(context.Background())
		}
		conn.Release()
	}

	return release, true, nil
}
