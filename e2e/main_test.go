package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-train-seat-reservation/internal/api"
	"github.com/sanosuguru/go-train-seat-reservation/internal/api/handler"
	"github.com/sanosuguru/go-train-seat-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-train-seat-reservation/internal/application"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/schedule"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/window"
	"github.com/sanosuguru/go-train-seat-reservation/internal/infrastructure/memory"
	"github.com/sanosuguru/go-train-seat-reservation/internal/pkg/logger"
)

// TestMain はE2Eテストのエントリポイント
func TestMain(m *testing.M) {
	// リクエストログでテスト出力が埋まらないようにする
	logger.Set(zap.NewNop())
	os.Exit(m.Run())
}

// TestServer はE2Eテスト用のサーバー
type TestServer struct {
	Echo         *echo.Echo
	Schedules    *memory.ScheduleRepository
	Reservations *memory.ReservationRepository
	Today        time.Time
}

// NewTestServer はインメモリストレージでサーバーを組み立てる
// テストごとに独立した状態を持つ
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	schedules := memory.NewScheduleRepository()
	reservations := memory.NewReservationRepository()

	inventory := application.NewSeatInventoryCoordinator(schedules,
		application.InventoryConfig{MaxRetries: 100, RetryDelay: 0}, nil, nil)
	reservationService := application.NewReservationService(reservations, schedules, inventory,
		application.DefaultReservationConfig())
	scheduleService := application.NewScheduleService(schedules, nil)

	e := echo.New()
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	middleware.SetupMiddleware(e, nil)
	handler.RegisterRoutes(e, handler.Handlers{
		Health:      handler.NewHealthHandler(),
		Schedule:    handler.NewScheduleHandler(scheduleService),
		Reservation: handler.NewReservationHandler(reservationService),
	})

	return &TestServer{
		Echo:         e,
		Schedules:    schedules,
		Reservations: reservations,
		Today:        window.Day(time.Now()),
	}
}

// AddSchedule は today から days 日後の運行スケジュールを登録し、運行日を返す
func (s *TestServer) AddSchedule(t *testing.T, id string, days, capacity int) time.Time {
	t.Helper()
	date := s.Today.AddDate(0, 0, days)
	sch := schedule.NewSchedule(id, date, "Udarata Menike", "08:30", []schedule.Station{
		{Name: "Colombo Fort", Position: 1},
		{Name: "Ragama", Position: 2},
		{Name: "Rambukkana", Position: 3},
		{Name: "Kandy", Position: 4},
		{Name: "Nanu Oya", Position: 5},
		{Name: "Badulla", Position: 6},
	}, capacity)
	require.NoError(t, s.Schedules.Create(context.Background(), sch))
	return date
}

// Request はHTTPリクエストを実行
func (s *TestServer) Request(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
