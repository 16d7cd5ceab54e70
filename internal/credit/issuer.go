// Package credit derives a time-bounded venue credit code from a
// confirmed booking, at most once per invite, and notifies both parties.
// The persisted code is the source of truth; mail is best-effort.
package credit

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tablemeet/venue-scheduler/internal/domain"
	"github.com/tablemeet/venue-scheduler/internal/observability"
)

const (
	codePrefix = "VENUE-"
	codeLength = 8

	// The redemption window sits before the meeting: it opens three hours
	// ahead of the event start and closes half an hour later. This is the
	// behavior the system has always shipped, even though the user-facing
	// copy describes a window reaching past the reveal; see the issuer
	// tests.
	windowOpensBefore = 3 * time.Hour
	windowLength      = 30 * time.Minute
)

type Store interface {
	InviteByID(ctx context.Context, inviteID uuid.UUID) (domain.Invite, error)
	BookingByInvite(ctx context.Context, inviteID uuid.UUID) (*domain.Booking, error)
	CreditByInvite(ctx context.Context, inviteID uuid.UUID) (*domain.CreditCode, error)
	InsertCredit(ctx context.Context, c domain.CreditCode) error
}

type Mailer interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

// Contacts resolves a party's notification address.
type Contacts interface {
	PartyProfile(ctx context.Context, partyID uuid.UUID) (domain.Profile, error)
}

type Issuer struct {
	store    Store
	mailer   Mailer
	contacts Contacts
	logger   observability.Logger
}

func NewIssuer(store Store, mailer Mailer, contacts Contacts, logger observability.Logger) *Issuer {
	return &Issuer{store: store, mailer: mailer, contacts: contacts, logger: logger}
}

// Issue creates (or reuses) the credit code for an invite and mails both
// parties. Only a party of the invite may call it. A second call finds the
// persisted code and reuses it; a mail failure never rolls anything back.
func (i *Issuer) Issue(ctx context.Context, callerID, inviteID uuid.UUID) (domain.CreditCode, error) {
	invite, err := i.store.InviteByID(ctx, inviteID)
	if err != nil {
		return domain.CreditCode{}, err
	}
	if callerID != invite.InitiatorID && callerID != invite.CounterpartID {
		return domain.CreditCode{}, domain.ErrNotAuthorized
	}

	code, err := i.store.CreditByInvite(ctx, inviteID)
	if err != nil {
		return domain.CreditCode{}, err
	}
	if code == nil {
		fresh, err := i.build(ctx, invite)
		if err != nil {
			return domain.CreditCode{}, err
		}
		if err := i.store.InsertCredit(ctx, fresh); err == domain.ErrConflict {
			// Raced with another caller; theirs won.
			if code, err = i.store.CreditByInvite(ctx, inviteID); err != nil {
				return domain.CreditCode{}, err
			}
		} else if err != nil {
			return domain.CreditCode{}, err
		} else {
			code = &fresh
		}
	}

	i.notify(ctx, invite, *code)
	return *code, nil
}

func (i *Issuer) build(ctx context.Context, invite domain.Invite) (domain.CreditCode, error) {
	eventStart, venueID, err := i.eventStart(ctx, invite)
	if err != nil {
		return domain.CreditCode{}, err
	}
	validFrom := eventStart.Add(-windowOpensBefore)
	return domain.CreditCode{
		InviteID:   invite.ID,
		VenueID:    venueID,
		Code:       codePrefix + randomCode(codeLength),
		EventStart: eventStart,
		ValidFrom:  validFrom,
		ValidUntil: validFrom.Add(windowLength),
	}, nil
}

// eventStart prefers the confirmed booking's persisted range; without one
// it combines the invite's separate date and time fields under UTC.
func (i *Issuer) eventStart(ctx context.Context, invite domain.Invite) (time.Time, uuid.UUID, error) {
	booking, err := i.store.BookingByInvite(ctx, invite.ID)
	if err != nil {
		return time.Time{}, uuid.UUID{}, err
	}
	if booking != nil {
		return booking.Range.Start, booking.VenueID, nil
	}
	start, err := invite.StartAt(time.UTC)
	if err != nil {
		return time.Time{}, uuid.UUID{}, err
	}
	return start, invite.VenueID, nil
}

func (i *Issuer) notify(ctx context.Context, invite domain.Invite, code domain.CreditCode) {
	var to []string
	for _, partyID := range []uuid.UUID{invite.InitiatorID, invite.CounterpartID} {
		profile, err := i.contacts.PartyProfile(ctx, partyID)
		if err != nil {
			i.logger.WithField("party_id", partyID).Warn("no contact address for credit notification", err)
			continue
		}
		to = append(to, profile.Email)
	}
	if len(to) == 0 {
		return
	}

	subject := "Your venue credit code"
	body := fmt.Sprintf(
		"Your credit code for the upcoming meeting is %s.\nIt can be redeemed between %s and %s.",
		code.Code,
		code.ValidFrom.Format(time.RFC1123),
		code.ValidUntil.Format(time.RFC1123),
	)
	if err := i.mailer.Send(ctx, to, subject, body); err != nil {
		i.logger.WithField("invite_id", invite.ID).Error("credit notification failed", err)
	}
}

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func randomCode(n int) string {
	buf := make([]byte, n)
	rand.Read(buf)
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf)
}
