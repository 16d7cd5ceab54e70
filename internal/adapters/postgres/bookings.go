package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tablemeet/venue-scheduler/internal/domain"
)

func (r *Repository) GetBooking(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error) {
	var b domain.Booking
	var rangeLit string
	err := r.pool.QueryRow(ctx, `
		SELECT id, invite_id, venue_id, time_range::text
		FROM bookings WHERE id = $1
	`, bookingID).Scan(&b.ID, &b.InviteID, &b.VenueID, &rangeLit)
	if err == pgx.ErrNoRows {
		return domain.Booking{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Booking{}, err
	}
	b.Range, err = domain.ParseTimeRange(rangeLit)
	return b, err
}

// BookingByInvite returns nil without error when the invite has no
// confirmed booking yet; callers fall back to the invite's own date/time.
func (r *Repository) BookingByInvite(ctx context.Context, inviteID uuid.UUID) (*domain.Booking, error) {
	var b domain.Booking
	var rangeLit string
	err := r.pool.QueryRow(ctx, `
		SELECT id, invite_id, venue_id, time_range::text
		FROM bookings WHERE invite_id = $1
	`, inviteID).Scan(&b.ID, &b.InviteID, &b.VenueID, &rangeLit)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if b.Range, err = domain.ParseTimeRange(rangeLit); err != nil {
		return nil, err
	}
	return &b, nil
}
