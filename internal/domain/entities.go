package domain

import (
	"time"

	"github.com/google/uuid"
)

type HoldStatus string

const (
	HoldOpen      HoldStatus = "open"
	HoldConfirmed HoldStatus = "confirmed"
	HoldExpired   HoldStatus = "expired"
)

// Hold is a short-lived exclusive reservation on a (venue, time range)
// pair. While open and unexpired its range must not overlap any other open
// hold or confirmed booking for the same venue; that exclusivity is
// enforced entirely by the store, never in process.
type Hold struct {
	ID        uuid.UUID
	HostID    uuid.UUID
	GuestID   uuid.UUID
	VenueID   uuid.UUID
	Range     TimeRange
	ExpiresAt time.Time
	Status    HoldStatus
}

type InviteStatus string

const (
	InvitePending   InviteStatus = "pending"
	InviteAccepted  InviteStatus = "accepted"
	InviteDeclined  InviteStatus = "declined"
	InviteCompleted InviteStatus = "completed"
)

// MeetingContext selects the default meeting duration.
type MeetingContext string

const (
	ContextProfessional MeetingContext = "professional"
	ContextSocial       MeetingContext = "social"
)

// Invite is the request between two parties that a booking ultimately
// fulfils. Date and start time are stored as separate fields and combined
// on demand; DurationMin may be zero, in which case the context default
// applies.
type Invite struct {
	ID            uuid.UUID
	InitiatorID   uuid.UUID
	CounterpartID uuid.UUID
	VenueID       uuid.UUID
	Status        InviteStatus
	Context       MeetingContext
	Date          time.Time // calendar day, midnight
	StartTime     string    // "15:04"
	DurationMin   int
}

// StartAt combines the invite's separate date and time fields into one
// timestamp in the given location.
func (i Invite) StartAt(loc *time.Location) (time.Time, error) {
	t, err := time.Parse("15:04", i.StartTime)
	if err != nil {
		return time.Time{}, err
	}
	d := i.Date
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}

// Duration resolves the invite duration, falling back to the context
// default: 60 minutes for professional meetings, 90 for social ones.
func (i Invite) Duration() time.Duration {
	if i.DurationMin > 0 {
		return time.Duration(i.DurationMin) * time.Minute
	}
	return DefaultDuration(i.Context)
}

func DefaultDuration(c MeetingContext) time.Duration {
	if c == ContextSocial {
		return 90 * time.Minute
	}
	return 60 * time.Minute
}

// Booking is the durable, confirmed meeting derived from a hold. Immutable
// except through the swap coordinator, which moves venue and range in place.
type Booking struct {
	ID       uuid.UUID
	InviteID uuid.UUID
	VenueID  uuid.UUID
	Range    TimeRange
}

// CreditCode is the time-bounded redemption token derived from a confirmed
// booking. At most one exists per invite; it is never regenerated.
type CreditCode struct {
	InviteID   uuid.UUID
	VenueID    uuid.UUID
	Code       string
	EventStart time.Time
	ValidFrom  time.Time
	ValidUntil time.Time
}

// SwapEligibility is the store's verbatim answer to a reschedule check.
type SwapEligibility struct {
	Allowed bool
	Message string
}

// Venue is the read-side venue card. Owned by the catalog; this system
// never writes it.
type Venue struct {
	ID       uuid.UUID
	Name     string
	Address  string
	Hours    VenueHours
	Timezone string
}

// VenueHours is a venue's daily operating window, as "15:04" strings.
type VenueHours struct {
	OpensAt  string
	ClosesAt string
}

// On maps the operating window onto a concrete date in loc.
func (h VenueHours) On(date time.Time, loc *time.Location) (time.Time, time.Time, error) {
	open, err := time.Parse("15:04", h.OpensAt)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	close, err := time.Parse("15:04", h.ClosesAt)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	o := time.Date(date.Year(), date.Month(), date.Day(), open.Hour(), open.Minute(), 0, 0, loc)
	c := time.Date(date.Year(), date.Month(), date.Day(), close.Hour(), close.Minute(), 0, 0, loc)
	return o, c, nil
}

// Profile is the externally owned view of a party this core reads: contact
// address and an optional external calendar reference.
type Profile struct {
	PartyID     uuid.UUID
	Email       string
	CalendarRef string
	Verified    bool
}
