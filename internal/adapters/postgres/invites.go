package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tablemeet/venue-scheduler/internal/domain"
)

func (r *Repository) InviteByID(ctx context.Context, inviteID uuid.UUID) (domain.Invite, error) {
	var inv domain.Invite
	err := r.pool.QueryRow(ctx, `
		SELECT id, initiator_id, counterpart_id, venue_id, status, context,
		       meeting_date, start_time, COALESCE(duration_min, 0)
		FROM invites WHERE id = $1
	`, inviteID).Scan(&inv.ID, &inv.InitiatorID, &inv.CounterpartID, &inv.VenueID,
		&inv.Status, &inv.Context, &inv.Date, &inv.StartTime, &inv.DurationMin)
	if err == pgx.ErrNoRows {
		return domain.Invite{}, domain.ErrNotFound
	}
	return inv, err
}

// AcceptedInvitesOn lists accepted or completed invites on a calendar day
// where the party appears on either side. Both directions matter: a party
// can be the initiator of one commitment and the counterpart of another.
func (r *Repository) AcceptedInvitesOn(ctx context.Context, partyID uuid.UUID, date time.Time) ([]domain.Invite, error) {
	day := date.Format("2006-01-02")
	rows, err := r.pool.Query(ctx, `
		SELECT id, initiator_id, counterpart_id, venue_id, status, context,
		       meeting_date, start_time, COALESCE(duration_min, 0)
		FROM invites
		WHERE (initiator_id = $1 OR counterpart_id = $1)
		  AND status IN ('accepted', 'completed')
		  AND meeting_date = $2
		ORDER BY start_time
	`, partyID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invites []domain.Invite
	for rows.Next() {
		var inv domain.Invite
		if err := rows.Scan(&inv.ID, &inv.InitiatorID, &inv.CounterpartID, &inv.VenueID,
			&inv.Status, &inv.Context, &inv.Date, &inv.StartTime, &inv.DurationMin); err != nil {
			return nil, err
		}
		invites = append(invites, inv)
	}
	return invites, rows.Err()
}
