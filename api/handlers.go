/*
handlers.go - HTTP API handlers for the game room booking service

PURPOSE:
  Exposes the booking flow and the operator actions via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to gameroom.Service.

ENDPOINTS:
  Booking:
    GET    /api/rules                        Current booking rules
    GET    /api/days                         Bookable days
    GET    /api/days/{date}/slots?duration=  Free start times
    POST   /api/quotes                       Price a draft
    POST   /api/reservations                 Commit a draft (pending)
    GET    /api/reservations?customer=       A customer's latest reservations

  Operator:
    GET    /api/admin/agenda?from=&to=       Reservations by start date
    POST   /api/admin/blocks                 Technical block
    POST   /api/admin/reservations/{id}/confirm
    POST   /api/admin/reservations/{id}/cancel

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Reservation not found
  - 409: Slot taken; body carries the fresh slot list
  - 500: Internal errors

SECURITY NOTE:
  No authentication on operator routes. Put them behind the operator
  network or a gateway.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/gameroom-engine/factory"
	"github.com/warp/gameroom-engine/gameroom"
	"github.com/warp/gameroom-engine/schedule"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *gameroom.Service
	Logger  *zap.Logger
}

// NewHandler creates a new handler around the booking service.
func NewHandler(service *gameroom.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Service: service, Logger: logger}
}

func (h *Handler) location() *time.Location {
	return h.Service.Rules.Location
}

// =============================================================================
// BOOKING HANDLERS
// =============================================================================

// GetRules returns the active rules document.
func (h *Handler) GetRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, factory.ToJSON(h.Service.Rules))
}

// ListDays returns the bookable business days.
func (h *Handler) ListDays(w http.ResponseWriter, r *http.Request) {
	days := h.Service.Days()
	dtos := make([]DayDTO, len(days))
	for i, d := range days {
		dtos[i] = DayDTO{
			Date:    d.String(),
			Opening: d.Opening().Format(time.RFC3339),
			Closing: d.Closing().Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListSlots returns the free slots of a day.
// GET /api/days/{date}/slots?duration=90
func (h *Handler) ListSlots(w http.ResponseWriter, r *http.Request) {
	date, err := h.parseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	minutes, err := strconv.Atoi(r.URL.Query().Get("duration"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid duration (minutes)", err)
		return
	}
	duration := time.Duration(minutes) * time.Minute

	slots, err := h.Service.Offer(r.Context(), date, duration)
	if err != nil {
		h.writeServiceError(w, "Failed to list slots", err)
		return
	}

	writeJSON(w, http.StatusOK, SlotsResponse{
		Date:            date.Format(dateLayout),
		DurationMinutes: minutes,
		Slots:           toSlotDTOs(slots, h.location()),
	})
}

// CreateQuote prices a draft.
func (h *Handler) CreateQuote(w http.ResponseWriter, r *http.Request) {
	draft, ok := h.decodeDraft(w, r)
	if !ok {
		return
	}

	q, err := h.Service.Quote(draft)
	if err != nil {
		h.writeServiceError(w, "Failed to price draft", err)
		return
	}

	local := q.Interval.In(h.location())
	writeJSON(w, http.StatusOK, QuoteDTO{
		StartAt: local.Start.Format(time.RFC3339),
		EndAt:   local.End.Format(time.RFC3339),
		Addons:  q.Addons.Keys(),
		Price:   q.Price,
	})
}

// CreateReservation commits a draft as a pending reservation.
func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	draft, ok := h.decodeDraft(w, r)
	if !ok {
		return
	}

	res, err := h.Service.Commit(r.Context(), draft)
	if err != nil {
		h.writeServiceError(w, "Failed to create reservation", err)
		return
	}

	writeJSON(w, http.StatusCreated, toReservationDTO(res, h.location()))
}

// ListCustomerReservations returns a customer's latest reservations.
// GET /api/reservations?customer=handle
func (h *Handler) ListCustomerReservations(w http.ResponseWriter, r *http.Request) {
	handle := r.URL.Query().Get("customer")
	if handle == "" {
		writeError(w, http.StatusBadRequest, "customer is required", nil)
		return
	}

	rs, err := h.Service.CustomerReservations(r.Context(), handle)
	if err != nil {
		h.writeServiceError(w, "Failed to list reservations", err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationDTOs(rs, h.location()))
}

// =============================================================================
// OPERATOR HANDLERS
// =============================================================================

// GetAgenda lists reservations whose start falls in [from, to+1 day).
// Defaults to today and tomorrow.
func (h *Handler) GetAgenda(w http.ResponseWriter, r *http.Request) {
	today := schedule.Today(h.Service.Clock)
	from, to := today, today.AddDate(0, 0, 1)

	var err error
	if s := r.URL.Query().Get("from"); s != "" {
		if from, err = h.parseDate(s); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from date", err)
			return
		}
	}
	if s := r.URL.Query().Get("to"); s != "" {
		if to, err = h.parseDate(s); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to date", err)
			return
		}
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to is before from", nil)
		return
	}

	rs, err := h.Service.Agenda(r.Context(), from, to.AddDate(0, 0, 1))
	if err != nil {
		h.writeServiceError(w, "Failed to load agenda", err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationDTOs(rs, h.location()))
}

// CreateBlock reserves time for maintenance.
func (h *Handler) CreateBlock(w http.ResponseWriter, r *http.Request) {
	var req BlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, err := h.parseDateTime(req.Date, req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date or start (use YYYY-MM-DD and HH:MM)", err)
		return
	}

	res, err := h.Service.Block(r.Context(), start, time.Duration(req.DurationMinutes)*time.Minute, req.Note)
	if err != nil {
		h.writeServiceError(w, "Failed to block time", err)
		return
	}
	writeJSON(w, http.StatusCreated, toReservationDTO(res, h.location()))
}

// ConfirmReservation moves a pending reservation to confirmed.
func (h *Handler) ConfirmReservation(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.Confirm(r.Context(), schedule.ReservationID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeServiceError(w, "Failed to confirm reservation", err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationDTO(res, h.location()))
}

// CancelReservation cancels a reservation or block.
func (h *Handler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.Cancel(r.Context(), schedule.ReservationID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeServiceError(w, "Failed to cancel reservation", err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationDTO(res, h.location()))
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) decodeDraft(w http.ResponseWriter, r *http.Request) (*gameroom.Draft, bool) {
	var req DraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return nil, false
	}

	date, err := h.parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return nil, false
	}
	start, err := h.parseDateTime(req.Date, req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start format (use HH:MM)", err)
		return nil, false
	}

	return &gameroom.Draft{
		Date:     date,
		Duration: time.Duration(req.DurationMinutes) * time.Minute,
		Start:    start,
		Addons:   schedule.NewAddonSet(req.Addons...),
		Customer: schedule.Customer{
			Handle: req.CustomerHandle,
			Name:   req.CustomerName,
			Phone:  req.CustomerPhone,
		},
	}, true
}

func (h *Handler) parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, h.location())
}

// parseDateTime resolves HH:MM inside the business day of date, so times
// before the opening hour land on the following calendar date.
func (h *Handler) parseDateTime(date, hhmm string) (time.Time, error) {
	d, err := h.parseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	tod, err := schedule.ParseTimeOfDay(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return h.Service.Rules.Day(d).At(tod), nil
}

func (h *Handler) writeServiceError(w http.ResponseWriter, message string, err error) {
	var taken *gameroom.SlotTakenError
	switch {
	case errors.As(err, &taken):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:   "Slot was just taken, choose another time",
			Code:    "slot_taken",
			Details: toSlotDTOs(taken.Offer, h.location()),
		})
	case schedule.IsConflict(err):
		writeErrorCode(w, http.StatusConflict, message, "conflict", err)
	case schedule.IsNotFound(err):
		writeErrorCode(w, http.StatusNotFound, message, "not_found", err)
	case gameroom.IsClientError(err):
		writeErrorCode(w, http.StatusBadRequest, message, "invalid_request", err)
	default:
		h.Logger.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeErrorCode(w http.ResponseWriter, status int, message, code string, err error) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code, Details: fmt.Sprint(err)})
}
