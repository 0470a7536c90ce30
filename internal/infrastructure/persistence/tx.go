package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"auction_engine/internal/domain"
	"auction_engine/pkg/contextx"
	"auction_engine/pkg/errcodes"
	"auction_engine/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const (
	pgLockNotAvailable     = "55P03"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// withTx runs fn in a transaction whose row locks give up after
// lockTimeout.
func withTx(ctx context.Context, db *sqlx.DB, lockTimeout time.Duration, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return mapError(err, "failed to begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if lockTimeout > 0 {
		// SET does not take bind parameters; the value is an integer.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", lockTimeout.Milliseconds())); err != nil {
			rollback(ctx, tx)
			return mapError(err, "failed to set lock timeout")
		}
	}

	if err := fn(tx); err != nil {
		rollback(ctx, tx)
		if domain.IsAppError(err) {
			return err
		}
		return mapError(err, "transaction failed")
	}

	if err := tx.Commit(); err != nil {
		return mapError(err, "failed to commit")
	}

	return nil
}

// rollback ignores sql.ErrTxDone: database/sql has already rolled back a
// transaction whose context was cancelled.
func rollback(ctx context.Context, tx *sqlx.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		logger(ctx).Warn("tx.Rollback", logx.Error(err))
	}
}

// mapError classifies driver errors: lock and serialization failures are
// retryable contention, everything else is a storage failure.
func mapError(err error, msg string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgLockNotAvailable, pgSerializationFailure, pgDeadlockDetected:
			return domain.WrapError(err, domain.KindContention, errcodes.LockTimeout, "auction is busy, retry later")
		}
	}

	return domain.WrapError(err, domain.KindPersistence, errcodes.StorageFailure, msg)
}
