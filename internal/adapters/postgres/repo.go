// Package postgres implements the transactional store behind holds,
// bookings, swaps, wallets and credit codes. All mutual exclusion over a
// (venue, time range) pair lives here, inside serializable transactions;
// the services above never lock in process.
package postgres

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tablemeet/venue-scheduler/internal/clock"
	"github.com/tablemeet/venue-scheduler/internal/domain"
	"github.com/tablemeet/venue-scheduler/internal/observability"
)

const (
	SerializationFailureCode = "40001"
)

type Repository struct {
	pool  *pgxpool.Pool
	clock clock.Clock
}

func NewRepository(pool *pgxpool.Pool, clk clock.Clock) *Repository {
	return &Repository{pool: pool, clock: clk}
}

func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	start := time.Now()
	defer func() {
		observability.DBTxDuration.Observe(time.Since(start).Seconds())
	}()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return err
	}

	err = fn(tx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == SerializationFailureCode {
			return domain.ErrSerializationFailure
		}
		return err
	}

	return tx.Commit(ctx)
}
