package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tablemeet/venue-scheduler/internal/domain"
)

// CreateHold inserts the hold only when its range clears every open,
// unexpired hold and every confirmed booking for the venue. The guarded
// insert runs inside the caller's serializable transaction, so two
// concurrent requests for overlapping ranges cannot both land.
func (r *Repository) CreateHold(ctx context.Context, tx pgx.Tx, hold domain.Hold) error {
	result, err := tx.Exec(ctx, `
		INSERT INTO holds (id, host_id, guest_id, venue_id, time_range, expires_at, status)
		SELECT $1, $2, $3, $4, tstzrange($5, $6, '[)'), $7, 'open'
		WHERE NOT EXISTS (
			SELECT 1 FROM holds
			WHERE venue_id = $4 AND status = 'open' AND expires_at > $8
			  AND time_range && tstzrange($5, $6, '[)')
		)
		AND NOT EXISTS (
			SELECT 1 FROM bookings
			WHERE venue_id = $4 AND time_range && tstzrange($5, $6, '[)')
		)
	`, hold.ID, hold.HostID, hold.GuestID, hold.VenueID,
		hold.Range.Start, hold.Range.End, hold.ExpiresAt, r.clock.Now())
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

// ConfirmBooking converts a still-open, unexpired hold into a booking,
// marks the hold confirmed and links the invite, all in one transaction.
func (r *Repository) ConfirmBooking(ctx context.Context, holdID, inviteID uuid.UUID) (uuid.UUID, error) {
	var bookingID uuid.UUID
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		var status string
		var expiresAt time.Time
		var venueID uuid.UUID
		var rangeLit string
		err := tx.QueryRow(ctx, `
			SELECT status, expires_at, venue_id, time_range::text
			FROM holds WHERE id = $1 FOR UPDATE
		`, holdID).Scan(&status, &expiresAt, &venueID, &rangeLit)
		if err == pgx.ErrNoRows {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		if status != string(domain.HoldOpen) {
			return domain.ErrHoldConsumed
		}
		if !expiresAt.After(r.clock.Now()) {
			return domain.ErrHoldExpired
		}

		tr, err := domain.ParseTimeRange(rangeLit)
		if err != nil {
			return err
		}

		bookingID = uuid.New()
		_, err = tx.Exec(ctx, `
			INSERT INTO bookings (id, invite_id, venue_id, time_range)
			VALUES ($1, $2, $3, tstzrange($4, $5, '[)'))
		`, bookingID, inviteID, venueID, tr.Start, tr.End)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE holds SET status = 'confirmed' WHERE id = $1
		`, holdID)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE invites SET status = 'accepted', venue_id = $2 WHERE id = $1
		`, inviteID, venueID)
		if err != nil {
			return err
		}

		payload, _ := json.Marshal(map[string]interface{}{
			"booking_id": bookingID,
			"invite_id":  inviteID,
			"venue_id":   venueID,
			"start":      tr.Start.Format(time.RFC3339),
			"end":        tr.End.Format(time.RFC3339),
		})
		return r.InsertOutbox(ctx, tx, OutboxRecord{
			ID:            uuid.New(),
			AggregateType: "booking",
			AggregateID:   bookingID,
			EventType:     "booking.confirmed",
			Payload:       payload,
			DedupeKey:     uuid.New().String(),
		})
	})
	if err != nil {
		return uuid.UUID{}, err
	}
	return bookingID, nil
}

// GetExpiredHolds lists open holds whose TTL has lapsed. Used only by the
// housekeeping worker; confirmation refuses a lapsed hold on its own.
func (r *Repository) GetExpiredHolds(ctx context.Context, now time.Time) ([]domain.Hold, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, host_id, guest_id, venue_id, time_range::text, expires_at
		FROM holds WHERE status = 'open' AND expires_at <= $1
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holds []domain.Hold
	for rows.Next() {
		var h domain.Hold
		var rangeLit string
		if err := rows.Scan(&h.ID, &h.HostID, &h.GuestID, &h.VenueID, &rangeLit, &h.ExpiresAt); err != nil {
			return nil, err
		}
		h.Status = domain.HoldOpen
		if h.Range, err = domain.ParseTimeRange(rangeLit); err != nil {
			return nil, err
		}
		holds = append(holds, h)
	}
	return holds, rows.Err()
}

func (r *Repository) ExpireHold(ctx context.Context, holdID uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE holds SET status = 'expired' WHERE id = $1 AND status = 'open'
	`, holdID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
