package main

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tablemeet/venue-scheduler/internal/domain"
	"github.com/tablemeet/venue-scheduler/internal/observability"
)

type fakeHoldStore struct {
	expireErr   error
	expireCalls int
}

func (f *fakeHoldStore) GetExpiredHolds(ctx context.Context, now time.Time) ([]domain.Hold, error) {
	return nil, nil
}

func (f *fakeHoldStore) ExpireHold(ctx context.Context, holdID uuid.UUID) error {
	f.expireCalls++
	return f.expireErr
}

type fakeLockReleaser struct {
	released []string
}

func (f *fakeLockReleaser) ReleaseHoldLock(ctx context.Context, venueID, slot string) error {
	f.released = append(f.released, venueID+"/"+slot)
	return nil
}

type fakeEventPublisher struct {
	published []string
}

func (f *fakeEventPublisher) Publish(ctx context.Context, key string, msg amqp.Publishing) error {
	f.published = append(f.published, key)
	return nil
}

func testHold() domain.Hold {
	start := time.Date(2026, 9, 14, 18, 0, 0, 0, time.UTC)
	return domain.Hold{
		ID:      uuid.New(),
		VenueID: uuid.New(),
		Range:   domain.NewTimeRange(start, time.Hour),
	}
}

func TestExpireHold_PublishesAndReleasesLock(t *testing.T) {
	store := &fakeHoldStore{}
	locks := &fakeLockReleaser{}
	pub := &fakeEventPublisher{}
	w := NewExpiryWorker(store, locks, pub, observability.NewLogger())

	hold := testHold()
	require.NoError(t, w.expireWithRetry(context.Background(), hold))

	assert.Equal(t, 1, store.expireCalls)
	assert.Equal(t, []string{"hold.expired"}, pub.published)
	require.Len(t, locks.released, 1)
	assert.Equal(t, hold.VenueID.String()+"/2026-09-14T18:00:00Z", locks.released[0])
}

func TestExpireHold_VanishedHoldIsNotRetried(t *testing.T) {
	// A hold confirmed between listing and update disappears from the
	// open set. That is not a failure: release the lock and move on
	// without announcing an expiry that never happened.
	store := &fakeHoldStore{expireErr: domain.ErrNotFound}
	locks := &fakeLockReleaser{}
	pub := &fakeEventPublisher{}
	w := NewExpiryWorker(store, locks, pub, observability.NewLogger())

	done := make(chan error, 1)
	go func() { done <- w.expireWithRetry(context.Background(), testHold()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("vanished hold must not enter the backoff loop")
	}

	assert.Equal(t, 1, store.expireCalls, "no retries for a hold that is already settled")
	assert.Empty(t, pub.published, "no expiry event for a hold that did not expire")
	assert.Len(t, locks.released, 1, "the advisory lock is still released")
}
