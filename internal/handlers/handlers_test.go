package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ovation/internal/clock"
	"ovation/internal/models"
	"ovation/internal/repository"
	"ovation/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// Pass-through transaction runner for stub-backed services.
type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type stubLedger struct {
	units  []models.InventoryUnit
	claims map[string]int
}

func (s *stubLedger) LockUnits(ctx context.Context, eventID, scheduleID int64, unitKeys []string) ([]models.InventoryUnit, error) {
	return s.units, nil
}

func (s *stubLedger) ActiveClaims(ctx context.Context, eventID, scheduleID int64, now time.Time) (map[string]int, error) {
	if s.claims == nil {
		return map[string]int{}, nil
	}
	return s.claims, nil
}

type stubHolds struct {
	hold *models.Hold
}

func (s *stubHolds) GetByCodeForUpdate(ctx context.Context, code string) (*models.Hold, error) {
	if s.hold != nil && s.hold.Code == code {
		return s.hold, nil
	}
	return nil, nil
}
func (s *stubHolds) Create(ctx context.Context, hold *models.Hold) error { return nil }
func (s *stubHolds) Renew(ctx context.Context, hold *models.Hold) error  { return nil }
func (s *stubHolds) Close(ctx context.Context, code string, closedAt time.Time) error {
	return nil
}
func (s *stubHolds) DeleteStale(ctx context.Context, olderThan time.Time) (int64, error) {
	return 0, nil
}

type stubCheckins struct {
	ticket      *models.Ticket
	orderStatus string
	record      *models.CheckinRecord
}

func (s *stubCheckins) GetTicketByCode(ctx context.Context, ticketCode string) (*models.Ticket, error) {
	if s.ticket != nil && s.ticket.TicketCode == ticketCode {
		return s.ticket, nil
	}
	return nil, nil
}
func (s *stubCheckins) GetOrderStatus(ctx context.Context, orderID string) (string, error) {
	return s.orderStatus, nil
}
func (s *stubCheckins) InsertRecord(ctx context.Context, record *models.CheckinRecord) error {
	if s.record != nil {
		return repository.ErrDuplicateCheckin
	}
	record.ID = 1
	s.record = record
	return nil
}
func (s *stubCheckins) GetActiveRecord(ctx context.Context, ticketCode string) (*models.CheckinRecord, error) {
	return s.record, nil
}

func setupRouter(services *service.Services) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(services)

	r := gin.New()
	api := r.Group("/api")
	{
		api.POST("/holds", handler.AcquireHold)
		api.PATCH("/holds/release", handler.ReleaseHold)
		api.GET("/availability", handler.Availability)
		api.POST("/checkin", handler.Checkin)
	}
	return r
}

func holdServices(ledger *stubLedger, holds *stubHolds) *service.Services {
	return &service.Services{
		Holds: service.NewHoldService(stubTx{}, holds, ledger, nil, nil, clock.Fixed(testNow), 30*time.Minute),
	}
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	jsonBody, _ := json.Marshal(body)
	req, _ := http.NewRequest(method, path, bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func postJSON(r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	return doJSON(r, "POST", path, body)
}

func TestAcquireHold(t *testing.T) {
	ledger := &stubLedger{units: []models.InventoryUnit{
		{EventID: 1, ScheduleID: 1, UnitKey: "A-1", Kind: models.UnitSeat, Capacity: 1},
	}}
	r := setupRouter(holdServices(ledger, &stubHolds{}))

	w := postJSON(r, "/api/holds", models.AcquireHoldRequest{
		EventID: 1, ScheduleID: 1,
		Units: []models.UnitRequest{{UnitKey: "A-1"}},
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.AcquireHoldResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.HoldCode, 32)
	assert.Equal(t, testNow.Add(30*time.Minute), resp.ExpiresAt)
}

func TestAcquireHold_ValidationFailed(t *testing.T) {
	r := setupRouter(holdServices(&stubLedger{}, &stubHolds{}))

	w := postJSON(r, "/api/holds", map[string]interface{}{"event_id": 1})

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_FAILED", resp.Error.Code)
}

func TestAcquireHold_CapacityExceeded(t *testing.T) {
	ledger := &stubLedger{
		units: []models.InventoryUnit{
			{EventID: 1, ScheduleID: 1, UnitKey: "A-1", Kind: models.UnitSeat, Capacity: 1},
		},
		claims: map[string]int{"A-1": 1},
	}
	r := setupRouter(holdServices(ledger, &stubHolds{}))

	w := postJSON(r, "/api/holds", models.AcquireHoldRequest{
		EventID: 1, ScheduleID: 1,
		Units: []models.UnitRequest{{UnitKey: "A-1"}},
	})

	assert.Equal(t, http.StatusConflict, w.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "CAPACITY_EXCEEDED", resp.Error.Code)
	assert.Equal(t, []string{"A-1"}, resp.Error.Units)
}

func TestReleaseHold_UnknownCodeStillOK(t *testing.T) {
	r := setupRouter(holdServices(&stubLedger{}, &stubHolds{}))

	w := doJSON(r, "PATCH", "/api/holds/release", models.ReleaseHoldRequest{HoldCode: "gone"})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.ReleaseHoldResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
}

func TestAvailability_BadQuery(t *testing.T) {
	r := setupRouter(holdServices(&stubLedger{}, &stubHolds{}))

	req, _ := http.NewRequest("GET", "/api/availability?event_id=abc", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func checkinServices(checkins *stubCheckins) *service.Services {
	return &service.Services{
		Checkin: service.NewCheckinService(checkins, nil, clock.Fixed(testNow)),
	}
}

func TestCheckin(t *testing.T) {
	checkins := &stubCheckins{
		ticket: &models.Ticket{
			OrderID: "order-1", TicketCode: "tick-abc", Status: models.TicketBooked,
		},
		orderStatus: models.OrderCompleted,
	}
	r := setupRouter(checkinServices(checkins))

	w := postJSON(r, "/api/checkin", models.CheckinRequest{
		TicketCode: "tick-abc", OperatorID: "gate-7",
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.CheckinResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.AlreadyCheckedIn)
	assert.Equal(t, "gate-7", resp.OperatorID)
}

func TestCheckin_UnknownTicket(t *testing.T) {
	r := setupRouter(checkinServices(&stubCheckins{}))

	w := postJSON(r, "/api/checkin", models.CheckinRequest{
		TicketCode: "nope", OperatorID: "gate-7",
	})

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "TICKET_NOT_FOUND", resp.Error.Code)
}

func TestCheckin_Duplicate(t *testing.T) {
	checkins := &stubCheckins{
		ticket: &models.Ticket{
			OrderID: "order-1", TicketCode: "tick-abc", Status: models.TicketBooked,
		},
		orderStatus: models.OrderCompleted,
		record: &models.CheckinRecord{
			ID: 1, TicketCode: "tick-abc", OperatorID: "gate-1", CheckedInAt: testNow.Add(-time.Hour),
		},
	}
	r := setupRouter(checkinServices(checkins))

	w := postJSON(r, "/api/checkin", models.CheckinRequest{
		TicketCode: "tick-abc", OperatorID: "gate-7",
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.CheckinResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.AlreadyCheckedIn)
	assert.Equal(t, "gate-1", resp.OperatorID, "the original record is reported")
}
