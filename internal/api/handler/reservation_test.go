package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-train-seat-reservation/internal/api"
	"github.com/sanosuguru/go-train-seat-reservation/internal/application"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/fare"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/schedule"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/window"
)

// MockReservationService はReservationServiceInterfaceのモック
type MockReservationService struct {
	mock.Mock
}

func (m *MockReservationService) reservationResult(args mock.Arguments) (*reservation.Reservation, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *MockReservationService) listResult(args mock.Arguments) ([]*reservation.Reservation, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*reservation.Reservation), args.Error(1)
}

func (m *MockReservationService) CreateReservation(ctx context.Context, input application.CreateReservationInput) (*reservation.Reservation, error) {
	return m.reservationResult(m.Called(ctx, input))
}

func (m *MockReservationService) UpdateReservation(ctx context.Context, id string, input application.UpdateReservationInput) (*reservation.Reservation, error) {
	return m.reservationResult(m.Called(ctx, id, input))
}

func (m *MockReservationService) CancelReservation(ctx context.Context, id string) (*reservation.Reservation, error) {
	return m.reservationResult(m.Called(ctx, id))
}

func (m *MockReservationService) ConfirmReservation(ctx context.Context, id string) (*reservation.Reservation, error) {
	return m.reservationResult(m.Called(ctx, id))
}

func (m *MockReservationService) CompleteReservation(ctx context.Context, id string) (*reservation.Reservation, error) {
	return m.reservationResult(m.Called(ctx, id))
}

func (m *MockReservationService) GetReservation(ctx context.Context, id string) (*reservation.Reservation, error) {
	return m.reservationResult(m.Called(ctx, id))
}

func (m *MockReservationService) ListActiveReservations(ctx context.Context) ([]*reservation.Reservation, error) {
	return m.listResult(m.Called(ctx))
}

func (m *MockReservationService) ListReservationsForTraveler(ctx context.Context, travelerID string) ([]*reservation.Reservation, error) {
	return m.listResult(m.Called(ctx, travelerID))
}

func (m *MockReservationService) ListReservationHistory(ctx context.Context, travelerID string) ([]*reservation.Reservation, error) {
	return m.listResult(m.Called(ctx, travelerID))
}

// serve はハンドラーを実行し、エラーがあればエラーハンドラーでレスポンスに変換する
func serve(e *echo.Echo, c echo.Context, h echo.HandlerFunc) {
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func testReservation(status reservation.Status) *reservation.Reservation {
	now := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	return &reservation.Reservation{
		ID:              "res-123",
		TravelerID:      "199012345678",
		ScheduleID:      "TR-101",
		TrainName:       "Udarata Menike",
		DepartureTime:   "08:30",
		ReservationDate: time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC),
		BookingDate:     window.Day(now),
		StartStation:    "Colombo Fort",
		Destination:     "Kandy",
		Class:           fare.ClassA,
		SeatCount:       2,
		Price:           600,
		Status:          status,
		CreatedAt:       now,
		UpdatedAt:       now,
		Version:         1,
	}
}

const validCreateBody = `{
	"schedule_id": "TR-101",
	"reservation_date": "2026-11-01",
	"start_station": "Colombo Fort",
	"destination": "Kandy",
	"class": "A",
	"seat_count": 2
}`

func newCreateRequest(body string, travelerID string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if travelerID != "" {
		req.Header.Set(TravelerIDHeader, travelerID)
	}
	return req
}

func TestReservationHandler_Create(t *testing.T) {
	e := NewTestEcho()

	t.Run("正常に予約を作成できる", func(t *testing.T) {
		mockService := new(MockReservationService)
		expected := application.CreateReservationInput{
			TravelerID:      "199012345678",
			ScheduleID:      "TR-101",
			ReservationDate: time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC),
			StartStation:    "Colombo Fort",
			Destination:     "Kandy",
			Class:           fare.ClassA,
			SeatCount:       2,
		}
		mockService.On("CreateReservation", mock.Anything, expected).
			Return(testReservation(reservation.StatusConfirmed), nil)

		handler := NewReservationHandler(mockService)
		rec := httptest.NewRecorder()
		c := e.NewContext(newCreateRequest(validCreateBody, "199012345678"), rec)

		err := handler.Create(c)

		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, rec.Code)

		var resp ReservationResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "res-123", resp.ID)
		assert.Equal(t, "confirmed", resp.Status)
		assert.Equal(t, "2026-11-01", resp.ReservationDate)
		assert.Equal(t, "2026-10-19", resp.BookingDate)
		assert.Equal(t, 600, resp.Price)

		mockService.AssertExpectations(t)
	})

	t.Run("旅行者IDがない場合401", func(t *testing.T) {
		mockService := new(MockReservationService)
		handler := NewReservationHandler(mockService)
		rec := httptest.NewRecorder()
		c := e.NewContext(newCreateRequest(validCreateBody, ""), rec)

		err := handler.Create(c)

		require.Error(t, err)
		he, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, he.Code)
		mockService.AssertNotCalled(t, "CreateReservation", mock.Anything, mock.Anything)
	})

	t.Run("不正なリクエストでエラー", func(t *testing.T) {
		mockService := new(MockReservationService)
		handler := NewReservationHandler(mockService)
		rec := httptest.NewRecorder()
		c := e.NewContext(newCreateRequest("invalid", "199012345678"), rec)

		err := handler.Create(c)

		require.Error(t, err)
		he, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, he.Code)
	})

	t.Run("バリデーションエラー", func(t *testing.T) {
		tests := []struct {
			name string
			body string
		}{
			{"クラスが不正", `{"schedule_id":"TR-101","reservation_date":"2026-11-01","start_station":"A","destination":"B","class":"D","seat_count":1}`},
			{"座席数が0", `{"schedule_id":"TR-101","reservation_date":"2026-11-01","start_station":"A","destination":"B","class":"A","seat_count":0}`},
			{"日付形式が不正", `{"schedule_id":"TR-101","reservation_date":"11/01/2026","start_station":"A","destination":"B","class":"A","seat_count":1}`},
			{"スケジュールIDなし", `{"reservation_date":"2026-11-01","start_station":"A","destination":"B","class":"A","seat_count":1}`},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				mockService := new(MockReservationService)
				handler := NewReservationHandler(mockService)
				rec := httptest.NewRecorder()
				c := e.NewContext(newCreateRequest(tt.body, "199012345678"), rec)

				serve(e, c, handler.Create)

				assert.Equal(t, http.StatusBadRequest, rec.Code)
				mockService.AssertNotCalled(t, "CreateReservation", mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("ドメインエラーがステータスと理由コードに変換される", func(t *testing.T) {
		tests := []struct {
			name       string
			err        error
			wantStatus int
			wantReason string
		}{
			{"予約可能期間外", window.ErrWindowTooFar, http.StatusBadRequest, "WINDOW_TOO_FAR"},
			{"区間が不正", fare.ErrInvalidRoute, http.StatusBadRequest, "INVALID_ROUTE"},
			{"スケジュールなし", schedule.ErrScheduleNotFound, http.StatusNotFound, "SCHEDULE_NOT_FOUND"},
			{"停車しない駅", fare.ErrStationNotOnRoute, http.StatusNotFound, "STATION_NOT_ON_ROUTE"},
			{"有効な予約の上限", reservation.ErrActiveLimitExceeded, http.StatusForbidden, "ACTIVE_RESERVATION_LIMIT"},
			{"残席不足", schedule.ErrInsufficientSeats, http.StatusConflict, "INSUFFICIENT_SEATS"},
			{"在庫更新の競合", schedule.ErrInventoryConflict, http.StatusConflict, "INVENTORY_CONFLICT"},
			{"ラップされたエラー", fmt.Errorf("予約の作成: %w", schedule.ErrInsufficientSeats), http.StatusConflict, "INSUFFICIENT_SEATS"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				mockService := new(MockReservationService)
				mockService.On("CreateReservation", mock.Anything, mock.Anything).Return(nil, tt.err)

				handler := NewReservationHandler(mockService)
				rec := httptest.NewRecorder()
				c := e.NewContext(newCreateRequest(validCreateBody, "199012345678"), rec)

				serve(e, c, handler.Create)

				assert.Equal(t, tt.wantStatus, rec.Code)
				resp := decodeError(t, rec)
				assert.Equal(t, tt.wantReason, resp.Reason)
				assert.Equal(t, tt.wantStatus, resp.Code)
			})
		}
	})

	t.Run("インフラエラーは500", func(t *testing.T) {
		mockService := new(MockReservationService)
		mockService.On("CreateReservation", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

		handler := NewReservationHandler(mockService)
		rec := httptest.NewRecorder()
		c := e.NewContext(newCreateRequest(validCreateBody, "199012345678"), rec)

		serve(e, c, handler.Create)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		resp := decodeError(t, rec)
		assert.NotContains(t, resp.Error, "connection refused")
	})
}

func TestReservationHandler_GetByID(t *testing.T) {
	e := NewTestEcho()

	t.Run("正常に予約を取得できる", func(t *testing.T) {
		mockService := new(MockReservationService)
		mockService.On("GetReservation", mock.Anything, "res-123").Return(testReservation(reservation.StatusConfirmed), nil)

		handler := NewReservationHandler(mockService)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/reservations/res-123", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("res-123")

		err := handler.GetByID(c)

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("予約が見つからない場合404", func(t *testing.T) {
		mockService := new(MockReservationService)
		mockService.On("GetReservation", mock.Anything, "nonexistent").Return(nil, reservation.ErrReservationNotFound)

		handler := NewReservationHandler(mockService)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/reservations/nonexistent", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("nonexistent")

		serve(e, c, handler.GetByID)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "RESERVATION_NOT_FOUND", decodeError(t, rec).Reason)
		mockService.AssertExpectations(t)
	})
}

func TestReservationHandler_Update(t *testing.T) {
	e := NewTestEcho()

	newUpdateContext := func(body string) (echo.Context, *httptest.ResponseRecorder) {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/reservations/res-123", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("res-123")
		return c, rec
	}

	t.Run("座席数と乗車日を変更できる", func(t *testing.T) {
		mockService := new(MockReservationService)
		updated := testReservation(reservation.StatusPending)
		updated.SeatCount = 3
		updated.Price = 900
		mockService.On("UpdateReservation", mock.Anything, "res-123", mock.MatchedBy(func(in application.UpdateReservationInput) bool {
			return in.SeatCount != nil && *in.SeatCount == 3 &&
				in.ReservationDate != nil && in.ReservationDate.Equal(time.Date(2026, 11, 5, 0, 0, 0, 0, time.UTC))
		})).Return(updated, nil)

		handler := NewReservationHandler(mockService)
		c, rec := newUpdateContext(`{"reservation_date":"2026-11-05","seat_count":3}`)

		err := handler.Update(c)

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		var resp ReservationResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 3, resp.SeatCount)
		assert.Equal(t, 900, resp.Price)
		mockService.AssertExpectations(t)
	})

	t.Run("座席数のみ変更する場合は乗車日を渡さない", func(t *testing.T) {
		mockService := new(MockReservationService)
		mockService.On("UpdateReservation", mock.Anything, "res-123", mock.MatchedBy(func(in application.UpdateReservationInput) bool {
			return in.ReservationDate == nil && in.SeatCount != nil && *in.SeatCount == 1
		})).Return(testReservation(reservation.StatusPending), nil)

		handler := NewReservationHandler(mockService)
		c, rec := newUpdateContext(`{"seat_count":1}`)

		require.NoError(t, handler.Update(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("変更内容がない場合400", func(t *testing.T) {
		mockService := new(MockReservationService)
		handler := NewReservationHandler(mockService)
		c, rec := newUpdateContext(`{}`)

		serve(e, c, handler.Update)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "UpdateReservation", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("保留中でない予約は422", func(t *testing.T) {
		mockService := new(MockReservationService)
		mockService.On("UpdateReservation", mock.Anything, "res-123", mock.Anything).Return(nil, reservation.ErrReservationNotPending)

		handler := NewReservationHandler(mockService)
		c, rec := newUpdateContext(`{"seat_count":1}`)

		serve(e, c, handler.Update)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("変更期限を過ぎた場合400", func(t *testing.T) {
		mockService := new(MockReservationService)
		mockService.On("UpdateReservation", mock.Anything, "res-123", mock.Anything).Return(nil, window.ErrWindowTooClose)

		handler := NewReservationHandler(mockService)
		c, rec := newUpdateContext(`{"reservation_date":"2026-10-21"}`)

		serve(e, c, handler.Update)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "WINDOW_TOO_CLOSE", decodeError(t, rec).Reason)
	})
}

func TestReservationHandler_StateTransitions(t *testing.T) {
	e := NewTestEcho()

	newContext := func(path string) (echo.Context, *httptest.ResponseRecorder) {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("res-123")
		return c, rec
	}

	tests := []struct {
		name       string
		method     string
		call       func(h *ReservationHandler) echo.HandlerFunc
		result     *reservation.Reservation
		err        error
		wantStatus int
	}{
		{"確定できる", "ConfirmReservation", func(h *ReservationHandler) echo.HandlerFunc { return h.Confirm },
			testReservation(reservation.StatusConfirmed), nil, http.StatusOK},
		{"確定済みの確定は422", "ConfirmReservation", func(h *ReservationHandler) echo.HandlerFunc { return h.Confirm },
			nil, reservation.ErrReservationAlreadyConfirmed, http.StatusUnprocessableEntity},
		{"キャンセルできる", "CancelReservation", func(h *ReservationHandler) echo.HandlerFunc { return h.Cancel },
			testReservation(reservation.StatusCancelled), nil, http.StatusOK},
		{"キャンセル済みのキャンセルは422", "CancelReservation", func(h *ReservationHandler) echo.HandlerFunc { return h.Cancel },
			nil, reservation.ErrReservationAlreadyCancelled, http.StatusUnprocessableEntity},
		{"存在しない予約のキャンセルは404", "CancelReservation", func(h *ReservationHandler) echo.HandlerFunc { return h.Cancel },
			nil, reservation.ErrReservationNotFound, http.StatusNotFound},
		{"同時更新の競合は409", "CancelReservation", func(h *ReservationHandler) echo.HandlerFunc { return h.Cancel },
			nil, reservation.ErrVersionConflict, http.StatusConflict},
		{"完了にできる", "CompleteReservation", func(h *ReservationHandler) echo.HandlerFunc { return h.Complete },
			testReservation(reservation.StatusCompleted), nil, http.StatusOK},
		{"完了済みの完了は422", "CompleteReservation", func(h *ReservationHandler) echo.HandlerFunc { return h.Complete },
			nil, reservation.ErrReservationAlreadyCompleted, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockReservationService)
			if tt.result != nil {
				mockService.On(tt.method, mock.Anything, "res-123").Return(tt.result, nil)
			} else {
				mockService.On(tt.method, mock.Anything, "res-123").Return(nil, tt.err)
			}

			handler := NewReservationHandler(mockService)
			c, rec := newContext("/api/v1/reservations/res-123")

			serve(e, c, tt.call(handler))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.result != nil {
				var resp ReservationResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, string(tt.result.Status), resp.Status)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestReservationHandler_Lists(t *testing.T) {
	e := NewTestEcho()

	t.Run("有効な予約の一覧を取得できる", func(t *testing.T) {
		mockService := new(MockReservationService)
		mockService.On("ListActiveReservations", mock.Anything).Return([]*reservation.Reservation{
			testReservation(reservation.StatusConfirmed),
			testReservation(reservation.StatusPending),
		}, nil)

		handler := NewReservationHandler(mockService)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/reservations", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, handler.ListActive(c))

		var resp []ReservationResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Len(t, resp, 2)
		mockService.AssertExpectations(t)
	})

	t.Run("旅行者の予約を取得できる", func(t *testing.T) {
		mockService := new(MockReservationService)
		mockService.On("ListReservationsForTraveler", mock.Anything, "199012345678").
			Return([]*reservation.Reservation{testReservation(reservation.StatusConfirmed)}, nil)

		handler := NewReservationHandler(mockService)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/travelers/199012345678/reservations", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("nic")
		c.SetParamValues("199012345678")

		require.NoError(t, handler.ListForTraveler(c))

		var resp []ReservationResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp, 1)
		assert.Equal(t, "199012345678", resp[0].TravelerID)
		mockService.AssertExpectations(t)
	})

	t.Run("予約履歴が空の場合は空配列", func(t *testing.T) {
		mockService := new(MockReservationService)
		mockService.On("ListReservationHistory", mock.Anything, "199012345678").
			Return([]*reservation.Reservation{}, nil)

		handler := NewReservationHandler(mockService)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/travelers/199012345678/reservations/history", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("nic")
		c.SetParamValues("199012345678")

		require.NoError(t, handler.History(c))
		assert.JSONEq(t, `[]`, rec.Body.String())
		mockService.AssertExpectations(t)
	})
}
