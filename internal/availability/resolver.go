// Package availability computes candidate meeting slots that are free for
// both parties, inside venue operating hours, with a scheduling buffer so
// nobody ends up with back-to-back commitments.
package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tablemeet/venue-scheduler/internal/domain"
	"github.com/tablemeet/venue-scheduler/internal/interval"
	"github.com/tablemeet/venue-scheduler/internal/observability"
	"golang.org/x/sync/errgroup"
)

// Perspective selects whose conflicts filter the candidates. An organizer
// reviewing their own outgoing proposal needs a different overlay than the
// receiver deciding whether to accept.
type Perspective string

const (
	PerspectiveMutual      Perspective = "mutual"
	PerspectiveInitiator   Perspective = "initiator"
	PerspectiveCounterpart Perspective = "counterpart"
)

// ParsePerspective maps the wire parameter onto a known perspective. The
// empty string means mutual; the "-only" spellings are accepted as
// aliases. Anything else is an error so a typo cannot silently change
// whose conflicts apply.
func ParsePerspective(s string) (Perspective, error) {
	switch s {
	case "", string(PerspectiveMutual):
		return PerspectiveMutual, nil
	case string(PerspectiveInitiator), "initiator-only":
		return PerspectiveInitiator, nil
	case string(PerspectiveCounterpart), "counterpart-only":
		return PerspectiveCounterpart, nil
	}
	return "", fmt.Errorf("unknown perspective %q", s)
}

// normalized collapses aliases and anything unrecognized onto a known
// value. Unknown perspectives behave as mutual: filtering fails closed,
// never open.
func (p Perspective) normalized() Perspective {
	switch p {
	case PerspectiveInitiator, "initiator-only":
		return PerspectiveInitiator
	case PerspectiveCounterpart, "counterpart-only":
		return PerspectiveCounterpart
	default:
		return PerspectiveMutual
	}
}

// Venue hours fall back to a generous all-day window rather than failing
// when no hours record exists.
const (
	defaultOpens  = "09:00"
	defaultCloses = "21:00"
)

type ConflictSource interface {
	AcceptedInvitesOn(ctx context.Context, partyID uuid.UUID, date time.Time) ([]domain.Invite, error)
}

type Calendar interface {
	FreeWindows(ctx context.Context, calendarRef string, date time.Time) ([]domain.TimeRange, error)
}

type Catalog interface {
	VenueHours(ctx context.Context, venueID uuid.UUID) (domain.VenueHours, error)
	PartyProfile(ctx context.Context, partyID uuid.UUID) (domain.Profile, error)
}

type Resolver struct {
	store    ConflictSource
	calendar Calendar
	catalog  Catalog
	logger   observability.Logger
	buffer   time.Duration
	loc      *time.Location
}

func NewResolver(store ConflictSource, cal Calendar, catalog Catalog, logger observability.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		store:    store,
		calendar: cal,
		catalog:  catalog,
		logger:   logger,
		buffer:   interval.DefaultBuffer,
		loc:      time.UTC,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type Option func(*Resolver)

func WithBuffer(d time.Duration) Option {
	return func(r *Resolver) {
		if d >= 0 {
			r.buffer = d
		}
	}
}

func WithLocation(loc *time.Location) Option {
	return func(r *Resolver) {
		if loc != nil {
			r.loc = loc
		}
	}
}

type Request struct {
	CounterpartID uuid.UUID
	InitiatorID   uuid.UUID // optional; uuid.Nil when the caller is anonymous
	VenueID       uuid.UUID
	Date          time.Time
	Context       domain.MeetingContext
	DurationMin   int // optional override of the context default
	Perspective   Perspective
}

func (req Request) duration() time.Duration {
	if req.DurationMin > 0 {
		return time.Duration(req.DurationMin) * time.Minute
	}
	return domain.DefaultDuration(req.Context)
}

// Conflicts derives a party's busy intervals for the day from accepted and
// completed invites on either side. Intervals are ephemeral: recomputed on
// every call, never persisted.
func (r *Resolver) Conflicts(ctx context.Context, partyID uuid.UUID, date time.Time) ([]domain.TimeRange, error) {
	invites, err := r.store.AcceptedInvitesOn(ctx, partyID, date)
	if err != nil {
		return nil, err
	}
	conflicts := make([]domain.TimeRange, 0, len(invites))
	for _, inv := range invites {
		start, err := inv.StartAt(r.loc)
		if err != nil {
			r.logger.WithField("invite_id", inv.ID).Warn("skipping invite with malformed start time", err)
			continue
		}
		conflicts = append(conflicts, domain.NewTimeRange(start, inv.Duration()))
	}
	return conflicts, nil
}

// AvailableSlots returns ordered candidate start times for the day. With
// an external calendar on file the counterpart's free windows seed the
// candidates; when that yields nothing, or the fetch fails, candidates are
// synthesized hourly across venue hours instead.
func (r *Resolver) AvailableSlots(ctx context.Context, req Request) ([]time.Time, error) {
	d := req.duration()

	opens, closes, err := r.operatingWindow(ctx, req.VenueID, req.Date)
	if err != nil {
		return nil, err
	}

	initiatorConflicts, counterpartConflicts, err := r.bothConflicts(ctx, req)
	if err != nil {
		return nil, err
	}

	if slots := r.calendarCandidates(ctx, req, d, opens, closes); slots != nil {
		if kept := r.filter(slots, d, req.Perspective, initiatorConflicts, counterpartConflicts); len(kept) > 0 {
			return kept, nil
		}
	}
	observability.CalendarFallbacks.Inc()

	slots := interval.HourlyStarts(opens, closes, d)
	return r.filter(slots, d, req.Perspective, initiatorConflicts, counterpartConflicts), nil
}

func (r *Resolver) operatingWindow(ctx context.Context, venueID uuid.UUID, date time.Time) (time.Time, time.Time, error) {
	hours := domain.VenueHours{}
	if venueID != uuid.Nil {
		var err error
		hours, err = r.catalog.VenueHours(ctx, venueID)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if hours.OpensAt == "" || hours.ClosesAt == "" {
		hours = domain.VenueHours{OpensAt: defaultOpens, ClosesAt: defaultCloses}
	}
	return hours.On(date, r.loc)
}

// bothConflicts resolves the two parties' conflict intervals concurrently.
func (r *Resolver) bothConflicts(ctx context.Context, req Request) ([]domain.TimeRange, []domain.TimeRange, error) {
	var initiator, counterpart []domain.TimeRange

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counterpart, err = r.Conflicts(gctx, req.CounterpartID, req.Date)
		return err
	})
	if req.InitiatorID != uuid.Nil {
		g.Go(func() error {
			var err error
			initiator, err = r.Conflicts(gctx, req.InitiatorID, req.Date)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return initiator, counterpart, nil
}

// calendarCandidates returns nil when the external calendar path is not
// usable, signalling the fallback. A fetch error is logged, never surfaced.
func (r *Resolver) calendarCandidates(ctx context.Context, req Request, d time.Duration, opens, closes time.Time) []time.Time {
	profile, err := r.catalog.PartyProfile(ctx, req.CounterpartID)
	if err != nil || profile.CalendarRef == "" {
		return nil
	}

	windows, err := r.calendar.FreeWindows(ctx, profile.CalendarRef, req.Date)
	if err != nil {
		r.logger.WithField("party_id", req.CounterpartID).Warn("calendar fetch failed, using fallback", err)
		return nil
	}

	var slots []time.Time
	for _, w := range windows {
		slots = append(slots, interval.HourlyStarts(w.Start, w.End, d)...)
	}
	return interval.ClipToHours(slots, d, opens, closes)
}

func (r *Resolver) filter(slots []time.Time, d time.Duration, p Perspective, initiator, counterpart []domain.TimeRange) []time.Time {
	p = p.normalized()
	var kept []time.Time
	for _, s := range slots {
		if (p == PerspectiveMutual || p == PerspectiveCounterpart) &&
			interval.IsBusy(s, d, counterpart, r.buffer) {
			continue
		}
		if (p == PerspectiveMutual || p == PerspectiveInitiator) &&
			interval.IsBusy(s, d, initiator, r.buffer) {
			continue
		}
		kept = append(kept, s)
	}
	return kept
}
