package domain

import (
	"time"

	"github.com/google/uuid"
)

func NewHold(hostID, guestID, venueID uuid.UUID, r TimeRange, now time.Time, ttl time.Duration) Hold {
	return Hold{
		ID:        uuid.New(),
		HostID:    hostID,
		GuestID:   guestID,
		VenueID:   venueID,
		Range:     r,
		ExpiresAt: now.Add(ttl),
		Status:    HoldOpen,
	}
}
