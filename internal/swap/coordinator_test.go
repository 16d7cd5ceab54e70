package swap_test

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tablemeet/venue-scheduler/internal/domain"
	"github.com/tablemeet/venue-scheduler/internal/observability"
	"github.com/tablemeet/venue-scheduler/internal/swap"
)

type fakeStore struct {
	invite      domain.Invite
	inviteErr   error
	eligibility domain.SwapEligibility
	execErr     error
	execCalls   int
}

func (f *fakeStore) InviteByID(_ context.Context, _ uuid.UUID) (domain.Invite, error) {
	return f.invite, f.inviteErr
}

func (f *fakeStore) SwapEligibility(_ context.Context, _, _ uuid.UUID, _ domain.TimeRange) (domain.SwapEligibility, error) {
	return f.eligibility, nil
}

func (f *fakeStore) ExecuteSwap(_ context.Context, _, _ uuid.UUID, _ domain.TimeRange) error {
	f.execCalls++
	return f.execErr
}

type fakeWallet struct {
	balance    decimal.Decimal
	debits     int
	credits    int
	balanceErr error
	creditErr  error
}

func (f *fakeWallet) Balance(_ context.Context, _ uuid.UUID) (decimal.Decimal, error) {
	return f.balance, f.balanceErr
}

func (f *fakeWallet) Debit(_ context.Context, _ uuid.UUID, amount decimal.Decimal) error {
	if f.balance.LessThan(amount) {
		return domain.ErrInsufficientFunds
	}
	f.balance = f.balance.Sub(amount)
	f.debits++
	return nil
}

func (f *fakeWallet) Credit(_ context.Context, _ uuid.UUID, amount decimal.Decimal) error {
	if f.creditErr != nil {
		return f.creditErr
	}
	f.balance = f.balance.Add(amount)
	f.credits++
	return nil
}

var (
	initiator = uuid.New()
	inviteID  = uuid.New()
	newVenue  = uuid.New()
	newRange  = domain.NewTimeRange(time.Date(2026, 9, 20, 18, 0, 0, 0, time.UTC), 90*time.Minute)
)

func validInvite() domain.Invite {
	return domain.Invite{ID: inviteID, InitiatorID: initiator, CounterpartID: uuid.New(), Status: domain.InviteAccepted}
}

func newCoordinator(store *fakeStore, wallet *fakeWallet) *swap.Coordinator {
	return swap.NewCoordinator(store, wallet, observability.NewLogger())
}

func TestChargeAndExecuteSwap_Succeeds(t *testing.T) {
	store := &fakeStore{invite: validInvite()}
	wallet := &fakeWallet{balance: decimal.RequireFromString("5.00")}
	c := newCoordinator(store, wallet)

	err := c.ChargeAndExecuteSwap(context.Background(), initiator, inviteID, newVenue, newRange)
	require.NoError(t, err)
	assert.Equal(t, "3.01", wallet.balance.StringFixed(2))
	assert.Equal(t, 1, store.execCalls)
	assert.Equal(t, 0, wallet.credits, "compensation must never run on success")
}

func TestChargeAndExecuteSwap_InsufficientFunds(t *testing.T) {
	store := &fakeStore{invite: validInvite()}
	wallet := &fakeWallet{balance: decimal.RequireFromString("1.00")}
	c := newCoordinator(store, wallet)

	err := c.ChargeAndExecuteSwap(context.Background(), initiator, inviteID, newVenue, newRange)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, "1.00", wallet.balance.StringFixed(2))
	assert.Equal(t, 0, store.execCalls, "the swap must never be attempted")
	assert.Equal(t, 0, wallet.debits)
}

func TestChargeAndExecuteSwap_CompensatesOnFailure(t *testing.T) {
	// Any swap failure, including transport errors, must leave the
	// balance exactly where it started.
	for _, execErr := range []error{
		errors.Wrap(domain.ErrIneligible, "reschedules are locked within 24 hours of the meeting"),
		errors.New("connection reset by peer"),
		context.DeadlineExceeded,
	} {
		store := &fakeStore{invite: validInvite(), execErr: execErr}
		wallet := &fakeWallet{balance: decimal.RequireFromString("5.00")}
		c := newCoordinator(store, wallet)

		err := c.ChargeAndExecuteSwap(context.Background(), initiator, inviteID, newVenue, newRange)
		require.Error(t, err)
		assert.Equal(t, execErr.Error(), err.Error(), "underlying message must pass through unchanged")
		assert.Equal(t, "5.00", wallet.balance.StringFixed(2))
		assert.Equal(t, 1, wallet.debits)
		assert.Equal(t, 1, wallet.credits)
	}
}

func TestChargeAndExecuteSwap_NotAuthorized(t *testing.T) {
	store := &fakeStore{invite: validInvite()}
	wallet := &fakeWallet{balance: decimal.RequireFromString("5.00")}
	c := newCoordinator(store, wallet)

	// The counterpart cannot reschedule, only the initiator.
	err := c.ChargeAndExecuteSwap(context.Background(), uuid.New(), inviteID, newVenue, newRange)
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)
	assert.Equal(t, "5.00", wallet.balance.StringFixed(2))
	assert.Equal(t, 0, store.execCalls)
	assert.Equal(t, 0, wallet.debits)
	assert.Equal(t, 0, wallet.credits)
}

func TestChargeAndExecuteSwap_InviteNotFound(t *testing.T) {
	store := &fakeStore{inviteErr: domain.ErrNotFound}
	wallet := &fakeWallet{balance: decimal.RequireFromString("5.00")}
	c := newCoordinator(store, wallet)

	err := c.ChargeAndExecuteSwap(context.Background(), initiator, inviteID, newVenue, newRange)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 0, wallet.debits)
}

func TestChargeAndExecuteSwap_RefundFailureKeepsOriginalError(t *testing.T) {
	execErr := errors.New("store unavailable")
	store := &fakeStore{invite: validInvite(), execErr: execErr}
	wallet := &fakeWallet{
		balance:   decimal.RequireFromString("5.00"),
		creditErr: errors.New("wallet unavailable"),
	}
	c := newCoordinator(store, wallet)

	err := c.ChargeAndExecuteSwap(context.Background(), initiator, inviteID, newVenue, newRange)
	require.Error(t, err)
	assert.Equal(t, execErr.Error(), err.Error())
}

func TestCanSwap_PassesMessageThrough(t *testing.T) {
	store := &fakeStore{eligibility: domain.SwapEligibility{
		Allowed: false,
		Message: "reschedules are locked within 24 hours of the meeting",
	}}
	c := newCoordinator(store, &fakeWallet{})

	elig, err := c.CanSwap(context.Background(), inviteID, newVenue, newRange)
	require.NoError(t, err)
	assert.False(t, elig.Allowed)
	assert.Equal(t, "reschedules are locked within 24 hours of the meeting", elig.Message)
}

func TestWithFee(t *testing.T) {
	c := swap.NewCoordinator(&fakeStore{}, &fakeWallet{}, observability.NewLogger(),
		swap.WithFee(decimal.RequireFromString("2.50")))
	assert.Equal(t, "2.50", c.Fee().StringFixed(2))
}
