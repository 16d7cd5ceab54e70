// Package swap reschedules a confirmed booking for a fixed fee. The debit
// and the store-side swap are two independent operations, not one
// transaction: the fee is committed first and credited back on any swap
// failure, so a failed swap always leaves the balance unchanged.
package swap

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tablemeet/venue-scheduler/internal/domain"
	"github.com/tablemeet/venue-scheduler/internal/observability"
)

// DefaultFee is charged for moving a booking's venue or time.
var DefaultFee = decimal.RequireFromString("1.99")

type Store interface {
	InviteByID(ctx context.Context, inviteID uuid.UUID) (domain.Invite, error)
	SwapEligibility(ctx context.Context, inviteID, newVenueID uuid.UUID, newRange domain.TimeRange) (domain.SwapEligibility, error)
	ExecuteSwap(ctx context.Context, inviteID, newVenueID uuid.UUID, newRange domain.TimeRange) error
}

// Wallet is the external balance store. This core only reads it, debits
// the fee and credits it back as compensation.
type Wallet interface {
	Balance(ctx context.Context, partyID uuid.UUID) (decimal.Decimal, error)
	Debit(ctx context.Context, partyID uuid.UUID, amount decimal.Decimal) error
	Credit(ctx context.Context, partyID uuid.UUID, amount decimal.Decimal) error
}

type Coordinator struct {
	store  Store
	wallet Wallet
	logger observability.Logger
	fee    decimal.Decimal
}

func NewCoordinator(store Store, wallet Wallet, logger observability.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:  store,
		wallet: wallet,
		logger: logger,
		fee:    DefaultFee,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type Option func(*Coordinator)

func WithFee(fee decimal.Decimal) Option {
	return func(c *Coordinator) {
		if fee.IsPositive() {
			c.fee = fee
		}
	}
}

func (c *Coordinator) Fee() decimal.Decimal {
	return c.fee
}

// CanSwap is the read-only eligibility check. The store's human-readable
// message comes back verbatim for the caller to display.
func (c *Coordinator) CanSwap(ctx context.Context, inviteID, newVenueID uuid.UUID, newRange domain.TimeRange) (domain.SwapEligibility, error) {
	return c.store.SwapEligibility(ctx, inviteID, newVenueID, newRange)
}

// ChargeAndExecuteSwap runs the saga: authorize the initiator, debit the
// fee, attempt the atomic swap, and credit the fee back on any failure.
// The compensation is unconditional on failure and never runs on success.
func (c *Coordinator) ChargeAndExecuteSwap(ctx context.Context, callerID, inviteID, newVenueID uuid.UUID, newRange domain.TimeRange) error {
	invite, err := c.store.InviteByID(ctx, inviteID)
	if err != nil {
		return err
	}
	if invite.InitiatorID != callerID {
		return domain.ErrNotAuthorized
	}

	balance, err := c.wallet.Balance(ctx, callerID)
	if err != nil {
		return err
	}
	if balance.LessThan(c.fee) {
		return domain.ErrInsufficientFunds
	}

	// The debit commits before the swap is attempted.
	if err := c.wallet.Debit(ctx, callerID, c.fee); err != nil {
		return err
	}

	if err := c.store.ExecuteSwap(ctx, inviteID, newVenueID, newRange); err != nil {
		observability.SwapCompensations.Inc()
		if creditErr := c.wallet.Credit(ctx, callerID, c.fee); creditErr != nil {
			// The refund itself failed; the original failure still wins,
			// but this needs an operator.
			c.logger.WithField("invite_id", inviteID).
				WithField("party_id", callerID).
				Error("swap fee refund failed", creditErr)
		}
		return err
	}
	return nil
}
