/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Slot listing and quoting
- Reservation commit, including the lost-race 409 with a fresh offer
- Operator confirm/cancel and error mapping
- Per-IP rate limiting on booking writes
*/
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/gameroom-engine/gameroom"
	"github.com/warp/gameroom-engine/schedule"
	"github.com/warp/gameroom-engine/schedule/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T, perMin int) http.Handler {
	rules, err := gameroom.DefaultRules()
	require.NoError(t, err)

	clock := schedule.FixedClock{At: time.Date(2025, time.March, 10, 15, 30, 0, 0, rules.Location)}
	ledger := schedule.NewLedger(store.NewTxMemory(), rules.Buffer)
	service := gameroom.NewService(rules, ledger, clock, nil, nil)

	return NewRouter(NewHandler(service, nil), RouterOptions{
		AllowedOrigins:  []string{"*"},
		RateLimitPerMin: perMin,
	})
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func draftBody(start string, minutes int, handle string, addons ...string) DraftRequest {
	return DraftRequest{
		Date:            "2025-03-10",
		Start:           start,
		DurationMinutes: minutes,
		Addons:          addons,
		CustomerHandle:  handle,
		CustomerName:    "Alice",
		CustomerPhone:   "+7 900 000-00-00",
	}
}

// =============================================================================
// BOOKING FLOW TESTS
// =============================================================================

func TestListDaysAndSlots(t *testing.T) {
	srv := newTestServer(t, 100)

	rec := do(t, srv, http.MethodGet, "/api/days", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	days := decode[[]DayDTO](t, rec)
	require.Len(t, days, 7)
	assert.Equal(t, "2025-03-10", days[0].Date)

	rec = do(t, srv, http.MethodGet, "/api/days/2025-03-10/slots?duration=60", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	slots := decode[SlotsResponse](t, rec)
	require.NotEmpty(t, slots.Slots)
	assert.Equal(t, "16:00", slots.Slots[0].Start)
	assert.Equal(t, "00:00", slots.Slots[len(slots.Slots)-1].Start)

	rec = do(t, srv, http.MethodGet, "/api/days/10-03-2025/slots?duration=60", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/days/2025-03-10/slots?duration=45", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/days/2025-03-20/slots?duration=60", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "beyond the horizon")
}

func TestCreateQuote(t *testing.T) {
	srv := newTestServer(t, 100)

	rec := do(t, srv, http.MethodPost, "/api/quotes", draftBody("17:00", 120, "alice", "squad", "headsets"))
	require.Equal(t, http.StatusOK, rec.Code)
	q := decode[QuoteDTO](t, rec)
	assert.Equal(t, int64(1250), q.Price)
	assert.Equal(t, []string{"headsets", "squad"}, q.Addons)

	rec = do(t, srv, http.MethodPost, "/api/quotes", draftBody("17:00", 120, "alice", "duo", "squad"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/quotes", draftBody("5pm", 120, "alice"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateReservation_SlotTaken(t *testing.T) {
	// GIVEN: Alice booked 17:00
	srv := newTestServer(t, 100)

	rec := do(t, srv, http.MethodPost, "/api/reservations", draftBody("17:00", 60, "alice", "duo"))
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[ReservationDTO](t, rec)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, int64(400), created.Price)
	assert.Equal(t, 60, created.DurationMinutes)

	// WHEN: Bob commits the same slot
	rec = do(t, srv, http.MethodPost, "/api/reservations", draftBody("17:00", 60, "bob", "duo"))

	// THEN: 409 with a fresh slot list that no longer has 17:00
	require.Equal(t, http.StatusConflict, rec.Code)
	var resp struct {
		Code    string    `json:"code"`
		Details []SlotDTO `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "slot_taken", resp.Code)
	require.NotEmpty(t, resp.Details)
	for _, s := range resp.Details {
		assert.NotEqual(t, "17:00", s.Start)
	}

	rec = do(t, srv, http.MethodGet, "/api/reservations?customer=alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]ReservationDTO](t, rec), 1)

	rec = do(t, srv, http.MethodGet, "/api/reservations", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateReservation_AfterMidnightStart(t *testing.T) {
	srv := newTestServer(t, 100)

	rec := do(t, srv, http.MethodPost, "/api/reservations", draftBody("00:00", 60, "alice"))
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[ReservationDTO](t, rec)
	assert.Equal(t, "2025-03-11T00:00:00+03:00", created.StartAt)
}

// =============================================================================
// OPERATOR TESTS
// =============================================================================

func TestOperatorActions(t *testing.T) {
	srv := newTestServer(t, 100)

	rec := do(t, srv, http.MethodPost, "/api/reservations", draftBody("18:00", 90, "alice"))
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[ReservationDTO](t, rec).ID

	rec = do(t, srv, http.MethodPost, "/api/admin/reservations/"+id+"/confirm", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "confirmed", decode[ReservationDTO](t, rec).Status)

	rec = do(t, srv, http.MethodPost, "/api/admin/reservations/"+id+"/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", decode[ReservationDTO](t, rec).Status)

	rec = do(t, srv, http.MethodPost, "/api/admin/reservations/"+id+"/confirm", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/admin/reservations/missing/cancel", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/admin/blocks", BlockRequest{Date: "2025-03-11", Start: "20:00", DurationMinutes: 120, Note: "cleaning"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "blocked", decode[ReservationDTO](t, rec).Status)

	rec = do(t, srv, http.MethodPost, "/api/admin/blocks", BlockRequest{Date: "2025-03-11", Start: "21:00", DurationMinutes: 60})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/admin/agenda?from=2025-03-10&to=2025-03-11", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]ReservationDTO](t, rec), 2)

	rec = do(t, srv, http.MethodGet, "/api/admin/agenda?from=2025-03-11&to=2025-03-10", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRules(t *testing.T) {
	srv := newTestServer(t, 100)

	rec := do(t, srv, http.MethodGet, "/api/rules", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Europe/Moscow", body["timezone"])
	assert.Equal(t, "13:00", body["open_time"])
}

// =============================================================================
// RATE LIMIT TESTS
// =============================================================================

func TestRateLimit_BookingWrites(t *testing.T) {
	srv := newTestServer(t, 1)

	rec := do(t, srv, http.MethodPost, "/api/reservations", draftBody("17:00", 60, "alice"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/reservations", draftBody("20:00", 60, "alice"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Reads are not limited
	rec = do(t, srv, http.MethodGet, "/api/days", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
