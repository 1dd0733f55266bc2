package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/schedule"
)

func TestHealthHandler_Check(t *testing.T) {
	// Setup
	e := NewTestEcho()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := NewHealthHandler()

	// Act
	err := h.Check(c)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"timestamp"`)
}

func TestNewHealthHandler(t *testing.T) {
	h := NewHealthHandler()
	assert.NotNil(t, h)
}

func TestHealthHandler_Dependencies(t *testing.T) {
	e := NewTestEcho()

	t.Run("依存先がすべて正常", func(t *testing.T) {
		h := NewHealthHandler(map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return nil },
		})
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)

		require.NoError(t, h.Check(c))

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, map[string]string{"postgres": "ok", "redis": "ok"}, resp.Dependencies)
	})

	t.Run("依存先の障害は503", func(t *testing.T) {
		h := NewHealthHandler(map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		})
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)

		require.NoError(t, h.Check(c))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "degraded", resp.Status)
		assert.Equal(t, "unavailable", resp.Dependencies["redis"])
	})
}

func TestToScheduleResponse(t *testing.T) {
	s := schedule.NewSchedule("TR-101", time.Date(2026, 11, 1, 9, 0, 0, 0, time.UTC), "Udarata Menike", "08:30",
		[]schedule.Station{{Name: "Colombo Fort", Position: 1}, {Name: "Kandy", Position: 4}}, 100)
	s.RemainingSeats = 42

	resp := toScheduleResponse(s)

	assert.Equal(t, "TR-101", resp.ID)
	assert.Equal(t, "2026-11-01", resp.Date)
	assert.Equal(t, "Udarata Menike", resp.TrainName)
	assert.Equal(t, 100, resp.Capacity)
	assert.Equal(t, 42, resp.RemainingSeats)
	assert.Equal(t, []StationResponse{{Name: "Colombo Fort", Position: 1}, {Name: "Kandy", Position: 4}}, resp.Stations)
}

func TestToReservationResponse(t *testing.T) {
	r := testReservation(reservation.StatusPending)

	resp := toReservationResponse(r)

	assert.Equal(t, "res-123", resp.ID)
	assert.Equal(t, "199012345678", resp.TravelerID)
	assert.Equal(t, "TR-101", resp.ScheduleID)
	assert.Equal(t, "2026-11-01", resp.ReservationDate)
	assert.Equal(t, "2026-10-19", resp.BookingDate)
	assert.Equal(t, "A", resp.Class)
	assert.Equal(t, 2, resp.SeatCount)
	assert.Equal(t, 600, resp.Price)
	assert.Equal(t, "pending", resp.Status)
	assert.Nil(t, resp.ConfirmedAt)
}
