package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tablemeet/venue-scheduler/internal/domain"
)

const (
	// swapLockWindow is how close to the current meeting start a
	// reschedule is still allowed.
	swapLockWindow = 24 * time.Hour

	swapLockedMessage    = "reschedules are locked within 24 hours of the meeting"
	swapNoBookingMessage = "there is no confirmed meeting to reschedule"
)

// SwapEligibility is the read-only reschedule check. The message is meant
// for the end user and travels through the coordinator verbatim.
func (r *Repository) SwapEligibility(ctx context.Context, inviteID, newVenueID uuid.UUID, newRange domain.TimeRange) (domain.SwapEligibility, error) {
	booking, err := r.BookingByInvite(ctx, inviteID)
	if err != nil {
		return domain.SwapEligibility{}, err
	}
	if booking == nil {
		return domain.SwapEligibility{Allowed: false, Message: swapNoBookingMessage}, nil
	}
	if booking.Range.Start.Sub(r.clock.Now()) < swapLockWindow {
		return domain.SwapEligibility{Allowed: false, Message: swapLockedMessage}, nil
	}
	return domain.SwapEligibility{Allowed: true}, nil
}

// ExecuteSwap re-validates eligibility and moves the invite and its
// booking to the new venue and range in one serializable transaction. The
// new range must clear other holds and bookings just like a fresh hold.
func (r *Repository) ExecuteSwap(ctx context.Context, inviteID, newVenueID uuid.UUID, newRange domain.TimeRange) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		var bookingID uuid.UUID
		var rangeLit string
		err := tx.QueryRow(ctx, `
			SELECT id, time_range::text FROM bookings WHERE invite_id = $1 FOR UPDATE
		`, inviteID).Scan(&bookingID, &rangeLit)
		if err == pgx.ErrNoRows {
			return errors.Wrap(domain.ErrIneligible, swapNoBookingMessage)
		}
		if err != nil {
			return err
		}
		current, err := domain.ParseTimeRange(rangeLit)
		if err != nil {
			return err
		}
		if current.Start.Sub(r.clock.Now()) < swapLockWindow {
			return errors.Wrap(domain.ErrIneligible, swapLockedMessage)
		}

		var taken bool
		err = tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM bookings
				WHERE venue_id = $1 AND id <> $2
				  AND time_range && tstzrange($3, $4, '[)')
			) OR EXISTS (
				SELECT 1 FROM holds
				WHERE venue_id = $1 AND status = 'open' AND expires_at > $5
				  AND time_range && tstzrange($3, $4, '[)')
			)
		`, newVenueID, bookingID, newRange.Start, newRange.End, r.clock.Now()).Scan(&taken)
		if err != nil {
			return err
		}
		if taken {
			return errors.Wrap(domain.ErrIneligible, "the requested slot is no longer available")
		}

		_, err = tx.Exec(ctx, `
			UPDATE bookings SET venue_id = $2, time_range = tstzrange($3, $4, '[)')
			WHERE id = $1
		`, bookingID, newVenueID, newRange.Start, newRange.End)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE invites
			SET venue_id = $2, meeting_date = $3, start_time = $4, duration_min = $5
			WHERE id = $1
		`, inviteID, newVenueID, newRange.Start.Format("2006-01-02"),
			newRange.Start.Format("15:04"), int(newRange.End.Sub(newRange.Start).Minutes()))
		if err != nil {
			return err
		}

		payload, _ := json.Marshal(map[string]interface{}{
			"invite_id": inviteID,
			"venue_id":  newVenueID,
			"start":     newRange.Start.Format(time.RFC3339),
			"end":       newRange.End.Format(time.RFC3339),
		})
		return r.InsertOutbox(ctx, tx, OutboxRecord{
			ID:            uuid.New(),
			AggregateType: "booking",
			AggregateID:   bookingID,
			EventType:     "swap.executed",
			Payload:       payload,
			DedupeKey:     uuid.New().String(),
		})
	})
}

// MeetingWindowOpen reports whether the post-meeting confirmation form is
// currently open for the invite: from the booked start until 24 hours
// after the booked end.
func (r *Repository) MeetingWindowOpen(ctx context.Context, inviteID uuid.UUID) (bool, error) {
	booking, err := r.BookingByInvite(ctx, inviteID)
	if err != nil {
		return false, err
	}
	if booking == nil {
		return false, nil
	}
	now := r.clock.Now()
	return !now.Before(booking.Range.Start) && now.Before(booking.Range.End.Add(24*time.Hour)), nil
}
