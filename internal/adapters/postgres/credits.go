package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tablemeet/venue-scheduler/internal/domain"
)

// CreditByInvite returns nil without error when no code has been issued
// for the invite yet.
func (r *Repository) CreditByInvite(ctx context.Context, inviteID uuid.UUID) (*domain.CreditCode, error) {
	var c domain.CreditCode
	err := r.pool.QueryRow(ctx, `
		SELECT invite_id, venue_id, code, event_start, valid_from, valid_until
		FROM credit_codes WHERE invite_id = $1
	`, inviteID).Scan(&c.InviteID, &c.VenueID, &c.Code, &c.EventStart, &c.ValidFrom, &c.ValidUntil)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) InsertCredit(ctx context.Context, c domain.CreditCode) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			INSERT INTO credit_codes (invite_id, venue_id, code, event_start, valid_from, valid_until)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (invite_id) DO NOTHING
		`, c.InviteID, c.VenueID, c.Code, c.EventStart, c.ValidFrom, c.ValidUntil)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			return domain.ErrConflict
		}

		payload, _ := json.Marshal(map[string]interface{}{
			"invite_id":   c.InviteID,
			"code":        c.Code,
			"valid_from":  c.ValidFrom.Format(time.RFC3339),
			"valid_until": c.ValidUntil.Format(time.RFC3339),
		})
		return r.InsertOutbox(ctx, tx, OutboxRecord{
			ID:            uuid.New(),
			AggregateType: "credit",
			AggregateID:   c.InviteID,
			EventType:     "credit.issued",
			Payload:       payload,
			DedupeKey:     uuid.New().String(),
		})
	})
}
