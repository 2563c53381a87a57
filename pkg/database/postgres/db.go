package pg

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/code-payments/mov-swap/pkg/retry"
	"github.com/code-payments/mov-swap/pkg/retry/backoff"
)

const (
	maxSerializationAttempts = 5
	serializationBackoff     = 10 * time.Millisecond
	maxSerializationBackoff  = 250 * time.Millisecond
)

// ExecuteRetryable reruns fn while it fails with a serialization failure, up to
// a bounded number of attempts.
func ExecuteRetryable(fn func() error) error {
	_, err := retry.Retry(
		fn,
		retry.Retriable(IsSerializationFailure),
		retry.Limit(maxSerializationAttempts),
		retry.BackoffWithJitter(backoff.BinaryExponential(serializationBackoff), maxSerializationBackoff, 0.1),
	)
	return err
}

// ExecuteInTx runs fn inside a new transaction at the requested isolation,
// committing when fn succeeds and rolling back otherwise.
func ExecuteInTx(ctx context.Context, db *sqlx.DB, isolation sql.IsolationLevel, fn func(tx *sqlx.Tx) error) error {
	if isolation == sql.LevelDefault {
		isolation = sql.LevelReadCommitted // Postgres default
	}

	tx, err := db.BeginTxx(ctx, &sql.TxOptions{
		Isolation: isolation,
	})
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	if err := fn(tx); err != nil {
		// Rollback releases the connection back to the pool.
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return errors.Wrapf(err, "rollback also failed: %v", rollbackErr)
		}
		return err
	}
	return tx.Commit()
}
