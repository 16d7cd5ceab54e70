package availability_test

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tablemeet/venue-scheduler/internal/availability"
	"github.com/tablemeet/venue-scheduler/internal/domain"
	"github.com/tablemeet/venue-scheduler/internal/observability"
)

type fakeStore struct {
	invites map[uuid.UUID][]domain.Invite
	err     error
}

func (f *fakeStore) AcceptedInvitesOn(_ context.Context, partyID uuid.UUID, _ time.Time) ([]domain.Invite, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.invites[partyID], nil
}

type fakeCalendar struct {
	windows []domain.TimeRange
	err     error
	calls   int
}

func (f *fakeCalendar) FreeWindows(_ context.Context, _ string, _ time.Time) ([]domain.TimeRange, error) {
	f.calls++
	return f.windows, f.err
}

type fakeCatalog struct {
	hours    domain.VenueHours
	profiles map[uuid.UUID]domain.Profile
}

func (f *fakeCatalog) VenueHours(_ context.Context, _ uuid.UUID) (domain.VenueHours, error) {
	return f.hours, nil
}

func (f *fakeCatalog) PartyProfile(_ context.Context, partyID uuid.UUID) (domain.Profile, error) {
	p, ok := f.profiles[partyID]
	if !ok {
		return domain.Profile{}, domain.ErrNotFound
	}
	return p, nil
}

var testDay = time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)

func dayAt(hhmm string) time.Time {
	t, _ := time.Parse(time.RFC3339, "2026-09-14T"+hhmm+":00Z")
	return t
}

func newResolver(store *fakeStore, cal *fakeCalendar, cat *fakeCatalog) *availability.Resolver {
	return availability.NewResolver(store, cal, cat, observability.NewLogger())
}

func TestAvailableSlots_FallbackHourly(t *testing.T) {
	// No external calendar, venue open 09:00-17:00, no conflicts: eight
	// hourly candidates from 09:00 through 16:00.
	store := &fakeStore{}
	cat := &fakeCatalog{hours: domain.VenueHours{OpensAt: "09:00", ClosesAt: "17:00"}}
	r := newResolver(store, &fakeCalendar{}, cat)

	slots, err := r.AvailableSlots(context.Background(), availability.Request{
		CounterpartID: uuid.New(),
		VenueID:       uuid.New(),
		Date:          testDay,
		Context:       domain.ContextProfessional,
		Perspective:   availability.PerspectiveMutual,
	})
	require.NoError(t, err)
	require.Len(t, slots, 8)
	assert.Equal(t, dayAt("09:00"), slots[0])
	assert.Equal(t, dayAt("16:00"), slots[7])
}

func TestAvailableSlots_DefaultHoursWhenVenueUnknown(t *testing.T) {
	store := &fakeStore{}
	r := newResolver(store, &fakeCalendar{}, &fakeCatalog{})

	slots, err := r.AvailableSlots(context.Background(), availability.Request{
		CounterpartID: uuid.New(),
		Date:          testDay,
		Context:       domain.ContextProfessional,
	})
	require.NoError(t, err)
	// 09:00-21:00 default window, 60-minute meetings.
	require.Len(t, slots, 12)
	assert.Equal(t, dayAt("09:00"), slots[0])
	assert.Equal(t, dayAt("20:00"), slots[11])
}

func TestAvailableSlots_BufferedConflictRejected(t *testing.T) {
	counterpart := uuid.New()
	store := &fakeStore{invites: map[uuid.UUID][]domain.Invite{
		counterpart: {{
			ID:            uuid.New(),
			CounterpartID: counterpart,
			Status:        domain.InviteAccepted,
			Context:       domain.ContextSocial,
			Date:          testDay,
			StartTime:     "14:00",
			DurationMin:   90,
		}},
	}}
	cat := &fakeCatalog{hours: domain.VenueHours{OpensAt: "09:00", ClosesAt: "17:00"}}
	r := newResolver(store, &fakeCalendar{}, cat)

	slots, err := r.AvailableSlots(context.Background(), availability.Request{
		CounterpartID: counterpart,
		VenueID:       uuid.New(),
		Date:          testDay,
		Context:       domain.ContextProfessional,
		Perspective:   availability.PerspectiveMutual,
	})
	require.NoError(t, err)

	// The 14:00-15:30 commitment plus the 15-minute buffer knocks out
	// 13:00, 14:00 and 15:00 (a 15:00 start pads to [14:45, 16:15]).
	for _, s := range slots {
		assert.NotEqual(t, dayAt("13:00"), s)
		assert.NotEqual(t, dayAt("14:00"), s)
		assert.NotEqual(t, dayAt("15:00"), s)
	}
	assert.Contains(t, slots, dayAt("16:00"))
	assert.Contains(t, slots, dayAt("12:00"))
}

func TestAvailableSlots_CalendarPath(t *testing.T) {
	counterpart := uuid.New()
	store := &fakeStore{}
	cal := &fakeCalendar{windows: []domain.TimeRange{
		{Start: dayAt("10:00"), End: dayAt("12:00")},
		{Start: dayAt("15:00"), End: dayAt("18:00")},
	}}
	cat := &fakeCatalog{
		hours: domain.VenueHours{OpensAt: "09:00", ClosesAt: "17:00"},
		profiles: map[uuid.UUID]domain.Profile{
			counterpart: {PartyID: counterpart, Email: "c@example.com", CalendarRef: "cal-123"},
		},
	}
	r := newResolver(store, cal, cat)

	slots, err := r.AvailableSlots(context.Background(), availability.Request{
		CounterpartID: counterpart,
		VenueID:       uuid.New(),
		Date:          testDay,
		Context:       domain.ContextProfessional,
		Perspective:   availability.PerspectiveMutual,
	})
	require.NoError(t, err)
	// Free windows intersected with 09:00-17:00 hours: 10:00, 11:00 from
	// the first window, 15:00, 16:00 from the second (17:00 close caps it).
	assert.Equal(t, []time.Time{dayAt("10:00"), dayAt("11:00"), dayAt("15:00"), dayAt("16:00")}, slots)
	assert.Equal(t, 1, cal.calls)
}

func TestAvailableSlots_CalendarFailureDegrades(t *testing.T) {
	counterpart := uuid.New()
	store := &fakeStore{}
	cal := &fakeCalendar{err: errors.New("upstream timeout")}
	cat := &fakeCatalog{
		hours: domain.VenueHours{OpensAt: "09:00", ClosesAt: "17:00"},
		profiles: map[uuid.UUID]domain.Profile{
			counterpart: {PartyID: counterpart, CalendarRef: "cal-123"},
		},
	}
	r := newResolver(store, cal, cat)

	slots, err := r.AvailableSlots(context.Background(), availability.Request{
		CounterpartID: counterpart,
		VenueID:       uuid.New(),
		Date:          testDay,
		Context:       domain.ContextProfessional,
	})
	require.NoError(t, err, "calendar failure must not surface")
	assert.Len(t, slots, 8)
}

func TestAvailableSlots_PerspectiveSelectsSides(t *testing.T) {
	initiator := uuid.New()
	counterpart := uuid.New()
	store := &fakeStore{invites: map[uuid.UUID][]domain.Invite{
		// Initiator busy all morning, counterpart busy all afternoon.
		initiator: {{
			Status: domain.InviteAccepted, Date: testDay,
			StartTime: "09:00", DurationMin: 240,
		}},
		counterpart: {{
			Status: domain.InviteCompleted, Date: testDay,
			StartTime: "13:00", DurationMin: 240,
		}},
	}}
	cat := &fakeCatalog{hours: domain.VenueHours{OpensAt: "09:00", ClosesAt: "17:00"}}
	r := newResolver(store, &fakeCalendar{}, cat)

	base := availability.Request{
		CounterpartID: counterpart,
		InitiatorID:   initiator,
		VenueID:       uuid.New(),
		Date:          testDay,
		Context:       domain.ContextProfessional,
	}

	mutual := base
	mutual.Perspective = availability.PerspectiveMutual
	slots, err := r.AvailableSlots(context.Background(), mutual)
	require.NoError(t, err)
	assert.Empty(t, slots, "both sides together cover the whole day")

	counterpartOnly := base
	counterpartOnly.Perspective = availability.PerspectiveCounterpart
	slots, err = r.AvailableSlots(context.Background(), counterpartOnly)
	require.NoError(t, err)
	assert.Contains(t, slots, dayAt("09:00"), "initiator conflicts must be ignored")
	assert.NotContains(t, slots, dayAt("14:00"))

	initiatorOnly := base
	initiatorOnly.Perspective = availability.PerspectiveInitiator
	slots, err = r.AvailableSlots(context.Background(), initiatorOnly)
	require.NoError(t, err)
	assert.Contains(t, slots, dayAt("14:00"), "counterpart conflicts must be ignored")
	assert.NotContains(t, slots, dayAt("10:00"))
}

func TestAvailableSlots_UnknownPerspectiveFiltersBothSides(t *testing.T) {
	initiator := uuid.New()
	counterpart := uuid.New()
	store := &fakeStore{invites: map[uuid.UUID][]domain.Invite{
		// Counterpart booked across the whole operating day.
		counterpart: {{
			Status: domain.InviteAccepted, Date: testDay,
			StartTime: "09:00", DurationMin: 480,
		}},
	}}
	cat := &fakeCatalog{hours: domain.VenueHours{OpensAt: "09:00", ClosesAt: "17:00"}}
	r := newResolver(store, &fakeCalendar{}, cat)

	req := availability.Request{
		CounterpartID: counterpart,
		InitiatorID:   initiator,
		VenueID:       uuid.New(),
		Date:          testDay,
		Context:       domain.ContextProfessional,
		Perspective:   availability.Perspective("reverse"),
	}
	slots, err := r.AvailableSlots(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, slots, "an unrecognized perspective must filter like mutual, not skip filtering")

	req.Perspective = availability.Perspective("counterpart-only")
	slots, err = r.AvailableSlots(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, slots, "the -only alias must select the counterpart overlay")
}

func TestParsePerspective(t *testing.T) {
	cases := []struct {
		in   string
		want availability.Perspective
	}{
		{"", availability.PerspectiveMutual},
		{"mutual", availability.PerspectiveMutual},
		{"initiator", availability.PerspectiveInitiator},
		{"initiator-only", availability.PerspectiveInitiator},
		{"counterpart", availability.PerspectiveCounterpart},
		{"counterpart-only", availability.PerspectiveCounterpart},
	}
	for _, tc := range cases {
		got, err := availability.ParsePerspective(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := availability.ParsePerspective("reverse")
	assert.Error(t, err)
}

func TestConflicts_CombinesDateAndTime(t *testing.T) {
	party := uuid.New()
	store := &fakeStore{invites: map[uuid.UUID][]domain.Invite{
		party: {
			{Status: domain.InviteAccepted, Date: testDay, StartTime: "14:00", DurationMin: 90},
			{Status: domain.InviteCompleted, Date: testDay, StartTime: "18:00", Context: domain.ContextSocial},
		},
	}}
	r := newResolver(store, &fakeCalendar{}, &fakeCatalog{})

	conflicts, err := r.Conflicts(context.Background(), party, testDay)
	require.NoError(t, err)
	require.Len(t, conflicts, 2)
	assert.Equal(t, dayAt("14:00"), conflicts[0].Start)
	assert.Equal(t, dayAt("15:30"), conflicts[0].End)
	// No explicit duration: the social default of 90 minutes applies.
	assert.Equal(t, dayAt("19:30"), conflicts[1].End)
}
