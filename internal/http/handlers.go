package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tablemeet/venue-scheduler/internal/availability"
	"github.com/tablemeet/venue-scheduler/internal/booking"
	"github.com/tablemeet/venue-scheduler/internal/config"
	"github.com/tablemeet/venue-scheduler/internal/domain"
	"github.com/tablemeet/venue-scheduler/internal/idempotency"
)

type AvailabilityResolver interface {
	AvailableSlots(ctx context.Context, req availability.Request) ([]time.Time, error)
}

type BookingService interface {
	CreateHold(ctx context.Context, in booking.CreateHoldInput) (domain.Hold, error)
	Confirm(ctx context.Context, holdID, inviteID uuid.UUID) (domain.Booking, error)
}

type SwapCoordinator interface {
	CanSwap(ctx context.Context, inviteID, newVenueID uuid.UUID, newRange domain.TimeRange) (domain.SwapEligibility, error)
	ChargeAndExecuteSwap(ctx context.Context, callerID, inviteID, newVenueID uuid.UUID, newRange domain.TimeRange) error
	Fee() decimal.Decimal
}

type CreditIssuer interface {
	Issue(ctx context.Context, callerID, inviteID uuid.UUID) (domain.CreditCode, error)
}

type MeetingWindows interface {
	MeetingWindowOpen(ctx context.Context, inviteID uuid.UUID) (bool, error)
}

type VenueCatalog interface {
	GetVenue(ctx context.Context, id uuid.UUID) (domain.Venue, error)
}

type Handlers struct {
	cfg      *config.Config
	resolver AvailabilityResolver
	bookings BookingService
	swaps    SwapCoordinator
	credits  CreditIssuer
	windows  MeetingWindows
	venues   VenueCatalog
	idemp    *idempotency.Idempotency
}

func NewHandlers(cfg *config.Config, resolver AvailabilityResolver, bookings BookingService, swaps SwapCoordinator, credits CreditIssuer, windows MeetingWindows, venues VenueCatalog, idemp *idempotency.Idempotency) *Handlers {
	return &Handlers{
		cfg:      cfg,
		resolver: resolver,
		bookings: bookings,
		swaps:    swaps,
		credits:  credits,
		windows:  windows,
		venues:   venues,
		idemp:    idemp,
	}
}

// callerID reads the authenticated party from the gateway-injected header.
func callerID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.Header.Get("X-Party-ID"))
	return id, err == nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) []byte {
	data, _ := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
	return data
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotAuthorized):
		http.Error(w, "not authorized", http.StatusForbidden)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrInsufficientFunds):
		http.Error(w, "insufficient funds", http.StatusPaymentRequired)
	case errors.Is(err, domain.ErrHoldExpired):
		http.Error(w, "hold expired, restart the availability search", http.StatusConflict)
	case errors.Is(err, domain.ErrHoldConsumed):
		http.Error(w, "hold already consumed", http.StatusConflict)
	case errors.Is(err, domain.ErrIneligible):
		// The store's reason is user-facing; pass it through verbatim.
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrSerializationFailure), errors.Is(err, domain.ErrConflict):
		http.Error(w, "conflict, try again", http.StatusConflict)
	case errors.Is(err, domain.ErrInvalidInput):
		http.Error(w, "invalid input", http.StatusBadRequest)
	case errors.Is(err, domain.ErrExternalService):
		http.Error(w, "upstream service unavailable", http.StatusBadGateway)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handlers) GetAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	counterpartID, err := uuid.Parse(q.Get("counterpart"))
	if err != nil {
		http.Error(w, "invalid counterpart", http.StatusBadRequest)
		return
	}
	date, err := time.Parse("2006-01-02", q.Get("date"))
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	perspective, err := availability.ParsePerspective(q.Get("perspective"))
	if err != nil {
		http.Error(w, "invalid perspective", http.StatusBadRequest)
		return
	}

	req := availability.Request{
		CounterpartID: counterpartID,
		Date:          date,
		Context:       domain.MeetingContext(q.Get("context")),
		Perspective:   perspective,
	}
	if v := q.Get("venue"); v != "" {
		if req.VenueID, err = uuid.Parse(v); err != nil {
			http.Error(w, "invalid venue", http.StatusBadRequest)
			return
		}
	}
	if caller, ok := callerID(r); ok {
		req.InitiatorID = caller
	}

	slots, err := h.resolver.AvailableSlots(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Format(time.RFC3339))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"slots": out})
}

func (h *Handlers) CreateHold(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	existing, err := h.idemp.Get(r.Context(), key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if existing != nil {
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return
	}

	caller, ok := callerID(r)
	if !ok {
		http.Error(w, "missing caller identity", http.StatusUnauthorized)
		return
	}

	var req struct {
		GuestID     uuid.UUID `json:"guest_id"`
		VenueID     uuid.UUID `json:"venue_id"`
		Start       time.Time `json:"start"`
		DurationMin int       `json:"duration_min"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	hold, err := h.bookings.CreateHold(r.Context(), booking.CreateHoldInput{
		HostID:  caller,
		GuestID: req.GuestID,
		VenueID: req.VenueID,
		Start:   req.Start,
		Dur:     time.Duration(req.DurationMin) * time.Minute,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	data := writeJSON(w, http.StatusCreated, map[string]interface{}{
		"hold_id":    hold.ID,
		"expires_at": hold.ExpiresAt.Format(time.RFC3339),
	})
	h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusCreated, Result: data})
}

func (h *Handlers) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	existing, err := h.idemp.Get(r.Context(), key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if existing != nil {
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return
	}

	var req struct {
		HoldID   uuid.UUID `json:"hold_id"`
		InviteID uuid.UUID `json:"invite_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	b, err := h.bookings.Confirm(r.Context(), req.HoldID, req.InviteID)
	if err != nil {
		writeError(w, err)
		return
	}

	data := writeJSON(w, http.StatusCreated, map[string]interface{}{
		"booking_id": b.ID,
		"invite_id":  b.InviteID,
		"venue_id":   b.VenueID,
		"start":      b.Range.Start.Format(time.RFC3339),
		"end":        b.Range.End.Format(time.RFC3339),
	})
	h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusCreated, Result: data})
}

func (h *Handlers) SwapEligibility(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	inviteID, err := uuid.Parse(q.Get("invite"))
	if err != nil {
		http.Error(w, "invalid invite", http.StatusBadRequest)
		return
	}
	venueID, err := uuid.Parse(q.Get("venue"))
	if err != nil {
		http.Error(w, "invalid venue", http.StatusBadRequest)
		return
	}
	newRange, err := parseRangeParams(q.Get("start"), q.Get("end"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	elig, err := h.swaps.CanSwap(r.Context(), inviteID, venueID, newRange)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"allowed": elig.Allowed,
		"message": elig.Message,
		"fee":     h.swaps.Fee().StringFixed(2),
	})
}

func (h *Handlers) ExecuteSwap(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(r)
	if !ok {
		http.Error(w, "missing caller identity", http.StatusUnauthorized)
		return
	}

	var req struct {
		InviteID uuid.UUID `json:"invite_id"`
		VenueID  uuid.UUID `json:"venue_id"`
		Start    time.Time `json:"start"`
		End      time.Time `json:"end"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err := h.swaps.ChargeAndExecuteSwap(r.Context(), caller, req.InviteID, req.VenueID,
		domain.TimeRange{Start: req.Start, End: req.End})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "rescheduled"})
}

func (h *Handlers) IssueCredit(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(r)
	if !ok {
		http.Error(w, "missing caller identity", http.StatusUnauthorized)
		return
	}

	var req struct {
		InviteID uuid.UUID `json:"invite_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	code, err := h.credits.Issue(r.Context(), caller, req.InviteID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"code":        code.Code,
		"valid_from":  code.ValidFrom.Format(time.RFC3339),
		"valid_until": code.ValidUntil.Format(time.RFC3339),
	})
}

func (h *Handlers) MeetingWindow(w http.ResponseWriter, r *http.Request) {
	inviteID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	open, err := h.windows.MeetingWindowOpen(r.Context(), inviteID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"open": open})
}

func (h *Handlers) GetVenue(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	venue, err := h.venues.GetVenue(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":        venue.ID,
		"name":      venue.Name,
		"address":   venue.Address,
		"opens_at":  venue.Hours.OpensAt,
		"closes_at": venue.Hours.ClosesAt,
		"timezone":  venue.Timezone,
	})
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

func parseRangeParams(start, end string) (domain.TimeRange, error) {
	s, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return domain.TimeRange{}, errors.New("invalid start")
	}
	e, err := time.Parse(time.RFC3339, end)
	if err != nil {
		return domain.TimeRange{}, errors.New("invalid end")
	}
	if !s.Before(e) {
		return domain.TimeRange{}, errors.New("start must precede end")
	}
	return domain.TimeRange{Start: s, End: e}, nil
}
