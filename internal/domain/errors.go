package domain

import "errors"

var (
	ErrSerializationFailure = errors.New("serialization failure")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrInvalidInput         = errors.New("invalid input")

	// ErrNotAuthorized is returned when the caller is not the party an
	// operation is gated on. The message is fixed and never carries
	// internal state.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrInsufficientFunds is returned by the swap coordinator before any
	// balance or store mutation has happened.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrIneligible wraps the store's human-readable eligibility message,
	// which is surfaced to the caller verbatim.
	ErrIneligible = errors.New("not eligible")

	ErrHoldExpired  = errors.New("hold expired")
	ErrHoldConsumed = errors.New("hold already consumed")

	ErrExternalService = errors.New("external service failure")
)
