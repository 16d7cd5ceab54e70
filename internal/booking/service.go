// Package booking owns the hold lifecycle: creating short-lived exclusive
// holds on a (venue, time range) pair and confirming a still-valid hold
// into a durable booking. All mutual exclusion is the store's job; there
// is no in-process locking and no cancel operation — an abandoned hold
// simply expires.
package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tablemeet/venue-scheduler/internal/clock"
	"github.com/tablemeet/venue-scheduler/internal/domain"
)

const DefaultHoldTTL = 5 * time.Minute

type Store interface {
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error
	CreateHold(ctx context.Context, tx pgx.Tx, hold domain.Hold) error
	ConfirmBooking(ctx context.Context, holdID, inviteID uuid.UUID) (uuid.UUID, error)
	GetBooking(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error)
}

// Locker is the advisory slot lock in redis. It only sheds doomed
// transactions early; the store stays authoritative.
type Locker interface {
	SetHoldLock(ctx context.Context, venueID, slot, hostID string, ttl time.Duration) (bool, error)
}

type Service struct {
	store  Store
	locker Locker
	clock  clock.Clock
	ttl    time.Duration
}

func NewService(store Store, locker Locker, clk clock.Clock, opts ...Option) *Service {
	s := &Service{
		store:  store,
		locker: locker,
		clock:  clk,
		ttl:    DefaultHoldTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type Option func(*Service)

// WithHoldTTL overrides the default TTL for new holds.
func WithHoldTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.ttl = d
		}
	}
}

type CreateHoldInput struct {
	HostID  uuid.UUID
	GuestID uuid.UUID
	VenueID uuid.UUID
	Start   time.Time
	Dur     time.Duration
}

// CreateHold reserves the slot or fails with ErrConflict. The store insert
// runs under a serializable transaction so two overlapping requests cannot
// both succeed.
func (s *Service) CreateHold(ctx context.Context, in CreateHoldInput) (domain.Hold, error) {
	if in.Dur <= 0 || in.Start.IsZero() {
		return domain.Hold{}, domain.ErrInvalidInput
	}

	hold := domain.NewHold(in.HostID, in.GuestID, in.VenueID,
		domain.NewTimeRange(in.Start, in.Dur), s.clock.Now(), s.ttl)

	err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		slot := in.Start.UTC().Format(time.RFC3339)
		ok, err := s.locker.SetHoldLock(ctx, in.VenueID.String(), slot, in.HostID.String(), s.ttl)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrConflict
		}
		return s.store.CreateHold(ctx, tx, hold)
	})
	if err != nil {
		return domain.Hold{}, err
	}
	return hold, nil
}

// Confirm turns a still-open, unexpired hold into a booking and returns it
// in full. The store rejects expired holds (ErrHoldExpired — the caller
// restarts the availability search) and already-consumed ones
// (ErrHoldConsumed).
func (s *Service) Confirm(ctx context.Context, holdID, inviteID uuid.UUID) (domain.Booking, error) {
	bookingID, err := s.store.ConfirmBooking(ctx, holdID, inviteID)
	if err != nil {
		return domain.Booking{}, err
	}
	return s.store.GetBooking(ctx, bookingID)
}
