package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/tablemeet/venue-scheduler/internal/domain"
)

// The wallet is an external store of record; this core only reads it and
// applies the swap fee debit and its compensating credit.

func (r *Repository) Balance(ctx context.Context, partyID uuid.UUID) (decimal.Decimal, error) {
	var raw string
	err := r.pool.QueryRow(ctx, `
		SELECT balance::text FROM wallets WHERE party_id = $1
	`, partyID).Scan(&raw)
	if err == pgx.ErrNoRows {
		return decimal.Zero, domain.ErrNotFound
	}
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

// Debit subtracts amount, refusing to take the balance negative.
func (r *Repository) Debit(ctx context.Context, partyID uuid.UUID, amount decimal.Decimal) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE wallets SET balance = balance - $2
		WHERE party_id = $1 AND balance >= $2
	`, partyID, amount)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrInsufficientFunds
	}
	return nil
}

func (r *Repository) Credit(ctx context.Context, partyID uuid.UUID, amount decimal.Decimal) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE wallets SET balance = balance + $2 WHERE party_id = $1
	`, partyID, amount)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
