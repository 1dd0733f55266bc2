package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-train-seat-reservation/internal/application"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/fare"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/window"
)

// TravelerIDHeader は旅行者ID（NIC）を渡すヘッダー
const TravelerIDHeader = "X-Traveler-ID"

type ReservationHandler struct {
	service ReservationServiceInterface
}

func NewReservationHandler(s ReservationServiceInterface) *ReservationHandler {
	return &ReservationHandler{service: s}
}

type CreateReservationRequest struct {
	ScheduleID      string `json:"schedule_id" validate:"required" example:"TR-101"`
	ReservationDate string `json:"reservation_date" validate:"required,datetime=2006-01-02" example:"2026-11-01"`
	StartStation    string `json:"start_station" validate:"required" example:"Colombo Fort"`
	Destination     string `json:"destination" validate:"required" example:"Kandy"`
	Class           string `json:"class" validate:"required,oneof=A B C" example:"A"`
	SeatCount       int    `json:"seat_count" validate:"required,min=1" example:"2"`
}

type UpdateReservationRequest struct {
	ReservationDate *string `json:"reservation_date,omitempty" validate:"omitempty,datetime=2006-01-02" example:"2026-11-05"`
	SeatCount       *int    `json:"seat_count,omitempty" validate:"omitempty,min=1" example:"3"`
}

type ReservationResponse struct {
	ID              string     `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	TravelerID      string     `json:"traveler_id" example:"199012345678"`
	ScheduleID      string     `json:"schedule_id" example:"TR-101"`
	TrainName       string     `json:"train_name" example:"Udarata Menike"`
	DepartureTime   string     `json:"departure_time" example:"08:30"`
	ReservationDate string     `json:"reservation_date" example:"2026-11-01"`
	BookingDate     string     `json:"booking_date" example:"2026-10-19"`
	StartStation    string     `json:"start_station" example:"Colombo Fort"`
	Destination     string     `json:"destination" example:"Kandy"`
	Class           string     `json:"class" example:"A"`
	SeatCount       int        `json:"seat_count" example:"2"`
	Price           int        `json:"price" example:"600"`
	Status          string     `json:"status" example:"confirmed"`
	ConfirmedAt     *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func toReservationResponse(r *reservation.Reservation) ReservationResponse {
	return ReservationResponse{
		ID: r.ID, TravelerID: r.TravelerID, ScheduleID: r.ScheduleID,
		TrainName: r.TrainName, DepartureTime: r.DepartureTime,
		ReservationDate: r.ReservationDate.Format(window.DateLayout),
		BookingDate:     r.BookingDate.Format(window.DateLayout),
		StartStation:    r.StartStation, Destination: r.Destination,
		Class: string(r.Class), SeatCount: r.SeatCount, Price: r.Price,
		Status:      string(r.Status),
		ConfirmedAt: r.ConfirmedAt, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func toReservationResponses(rs []*reservation.Reservation) []ReservationResponse {
	resp := make([]ReservationResponse, len(rs))
	for i, r := range rs {
		resp[i] = toReservationResponse(r)
	}
	return resp
}

// Create godoc
// @Summary 予約を作成
// @Description 座席を確保して確定済みの予約を作成します
// @Tags reservations
// @Accept json
// @Produce json
// @Param X-Traveler-ID header string true "旅行者ID（NIC）"
// @Param request body CreateReservationRequest true "予約情報"
// @Success 201 {object} ReservationResponse
// @Failure 400 {object} api.ErrorResponse "予約可能期間外・区間不正"
// @Failure 401 {object} api.ErrorResponse
// @Failure 403 {object} api.ErrorResponse "有効な予約数の上限"
// @Failure 404 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse "残席不足・競合"
// @Router /reservations [post]
func (h *ReservationHandler) Create(c echo.Context) error {
	travelerID := c.Request().Header.Get(TravelerIDHeader)
	if travelerID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "旅行者IDが必要です")
	}
	var req CreateReservationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	date, err := window.ParseDate(req.ReservationDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効な日付です")
	}
	r, err := h.service.CreateReservation(c.Request().Context(), application.CreateReservationInput{
		TravelerID:      travelerID,
		ScheduleID:      req.ScheduleID,
		ReservationDate: date,
		StartStation:    req.StartStation,
		Destination:     req.Destination,
		Class:           fare.Class(req.Class),
		SeatCount:       req.SeatCount,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toReservationResponse(r))
}

// GetByID godoc
// @Summary 予約を取得
// @Description 指定IDの予約を取得します
// @Tags reservations
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} ReservationResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /reservations/{id} [get]
func (h *ReservationHandler) GetByID(c echo.Context) error {
	r, err := h.service.GetReservation(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}

// ListActive godoc
// @Summary 有効な予約の一覧
// @Description 保留中・確定済みのすべての予約を取得します
// @Tags reservations
// @Produce json
// @Success 200 {array} ReservationResponse
// @Router /reservations [get]
func (h *ReservationHandler) ListActive(c echo.Context) error {
	rs, err := h.service.ListActiveReservations(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReservationResponses(rs))
}

// Update godoc
// @Summary 予約を変更
// @Description 保留中の予約の乗車日・座席数を変更します（乗車日の5日前まで）
// @Tags reservations
// @Accept json
// @Produce json
// @Param id path string true "予約ID"
// @Param request body UpdateReservationRequest true "変更内容"
// @Success 200 {object} ReservationResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse
// @Failure 422 {object} api.ErrorResponse "保留中でない予約"
// @Router /reservations/{id} [put]
func (h *ReservationHandler) Update(c echo.Context) error {
	var req UpdateReservationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.ReservationDate == nil && req.SeatCount == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "変更内容がありません")
	}

	input := application.UpdateReservationInput{SeatCount: req.SeatCount}
	if req.ReservationDate != nil {
		date, err := window.ParseDate(*req.ReservationDate)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "無効な日付です")
		}
		input.ReservationDate = &date
	}

	r, err := h.service.UpdateReservation(c.Request().Context(), c.Param("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}

// Confirm godoc
// @Summary 予約を確定
// @Description 保留中の予約を確定します
// @Tags reservations
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} ReservationResponse
// @Failure 404 {object} api.ErrorResponse
// @Failure 422 {object} api.ErrorResponse
// @Router /reservations/{id}/confirm [post]
func (h *ReservationHandler) Confirm(c echo.Context) error {
	r, err := h.service.ConfirmReservation(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}

// Cancel godoc
// @Summary 予約をキャンセル
// @Description 予約をキャンセルし、座席を解放します（乗車日の5日前まで）
// @Tags reservations
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} ReservationResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Failure 422 {object} api.ErrorResponse
// @Router /reservations/{id}/cancel [post]
func (h *ReservationHandler) Cancel(c echo.Context) error {
	r, err := h.service.CancelReservation(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}

// Complete godoc
// @Summary 乗車完了
// @Description 確定済みの予約を完了にし、座席を解放します
// @Tags reservations
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} ReservationResponse
// @Failure 404 {object} api.ErrorResponse
// @Failure 422 {object} api.ErrorResponse
// @Router /reservations/{id}/complete [post]
func (h *ReservationHandler) Complete(c echo.Context) error {
	r, err := h.service.CompleteReservation(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}

// ListForTraveler godoc
// @Summary 旅行者の有効な予約
// @Tags travelers
// @Produce json
// @Param nic path string true "旅行者ID（NIC）"
// @Success 200 {array} ReservationResponse
// @Router /travelers/{nic}/reservations [get]
func (h *ReservationHandler) ListForTraveler(c echo.Context) error {
	rs, err := h.service.ListReservationsForTraveler(c.Request().Context(), c.Param("nic"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReservationResponses(rs))
}

// History godoc
// @Summary 旅行者の予約履歴
// @Description 完了・キャンセル済みの予約を取得します
// @Tags travelers
// @Produce json
// @Param nic path string true "旅行者ID（NIC）"
// @Success 200 {array} ReservationResponse
// @Router /travelers/{nic}/reservations/history [get]
func (h *ReservationHandler) History(c echo.Context) error {
	rs, err := h.service.ListReservationHistory(c.Request().Context(), c.Param("nic"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReservationResponses(rs))
}
