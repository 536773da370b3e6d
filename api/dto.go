/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the booking core from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TIME FORMAT:
  Dates are "YYYY-MM-DD", wall-clock times are "HH:MM", both in the room's
  timezone. Instants in responses are RFC 3339 with the local offset.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/rules.go: RulesJSON type
*/
package api

import (
	"time"

	"github.com/warp/gameroom-engine/schedule"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// DayDTO is one bookable business day.
type DayDTO struct {
	Date    string `json:"date"`
	Opening string `json:"opening"`
	Closing string `json:"closing"`
}

// SlotDTO is one offered start time.
type SlotDTO struct {
	Start   string `json:"start"` // HH:MM
	StartAt string `json:"start_at"`
	EndAt   string `json:"end_at"`
}

// SlotsResponse lists the free slots of a day.
type SlotsResponse struct {
	Date            string    `json:"date"`
	DurationMinutes int       `json:"duration_minutes"`
	Slots           []SlotDTO `json:"slots"`
}

// DraftRequest is a booking draft as sent by the client.
type DraftRequest struct {
	Date            string   `json:"date"`
	Start           string   `json:"start"` // HH:MM
	DurationMinutes int      `json:"duration_minutes"`
	Addons          []string `json:"addons"`
	CustomerHandle  string   `json:"customer_handle"`
	CustomerName    string   `json:"customer_name"`
	CustomerPhone   string   `json:"customer_phone"`
}

// QuoteDTO is the priced draft.
type QuoteDTO struct {
	StartAt string   `json:"start_at"`
	EndAt   string   `json:"end_at"`
	Addons  []string `json:"addons"`
	Price   int64    `json:"price"`
}

// BlockRequest reserves time for maintenance.
type BlockRequest struct {
	Date            string `json:"date"`
	Start           string `json:"start"`
	DurationMinutes int    `json:"duration_minutes"`
	Note            string `json:"note"`
}

// ReservationDTO represents a reservation in API responses.
type ReservationDTO struct {
	ID              string   `json:"id"`
	StartAt         string   `json:"start_at"`
	EndAt           string   `json:"end_at"`
	DurationMinutes int      `json:"duration_minutes"`
	Status          string   `json:"status"`
	Price           int64    `json:"price"`
	Addons          []string `json:"addons"`
	CustomerHandle  string   `json:"customer_handle,omitempty"`
	CustomerName    string   `json:"customer_name,omitempty"`
	CustomerPhone   string   `json:"customer_phone,omitempty"`
	Note            string   `json:"note,omitempty"`
	CreatedAt       string   `json:"created_at"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toSlotDTOs(slots []schedule.Interval, loc *time.Location) []SlotDTO {
	dtos := make([]SlotDTO, len(slots))
	for i, s := range slots {
		local := s.In(loc)
		dtos[i] = SlotDTO{
			Start:   local.Start.Format(timeLayout),
			StartAt: local.Start.Format(time.RFC3339),
			EndAt:   local.End.Format(time.RFC3339),
		}
	}
	return dtos
}

func toReservationDTO(r schedule.Reservation, loc *time.Location) ReservationDTO {
	local := r.Interval.In(loc)
	addons := r.Addons.Keys()
	if addons == nil {
		addons = []string{}
	}
	return ReservationDTO{
		ID:              string(r.ID),
		StartAt:         local.Start.Format(time.RFC3339),
		EndAt:           local.End.Format(time.RFC3339),
		DurationMinutes: r.DurationMinutes(),
		Status:          string(r.Status),
		Price:           r.Price,
		Addons:          addons,
		CustomerHandle:  r.Customer.Handle,
		CustomerName:    r.Customer.Name,
		CustomerPhone:   r.Customer.Phone,
		Note:            r.Note,
		CreatedAt:       r.CreatedAt.In(loc).Format(time.RFC3339),
	}
}

func toReservationDTOs(rs []schedule.Reservation, loc *time.Location) []ReservationDTO {
	dtos := make([]ReservationDTO, len(rs))
	for i, r := range rs {
		dtos[i] = toReservationDTO(r, loc)
	}
	return dtos
}
