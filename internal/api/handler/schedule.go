package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/schedule"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/window"
)

type ScheduleHandler struct {
	service ScheduleServiceInterface
}

func NewScheduleHandler(s ScheduleServiceInterface) *ScheduleHandler {
	return &ScheduleHandler{service: s}
}

type StationResponse struct {
	Name     string `json:"name" example:"Kandy"`
	Position int    `json:"position" example:"3"`
}

type ScheduleResponse struct {
	ID             string            `json:"id" example:"TR-101"`
	Date           string            `json:"date" example:"2026-11-01"`
	TrainName      string            `json:"train_name" example:"Udarata Menike"`
	DepartureTime  string            `json:"departure_time" example:"08:30"`
	Stations       []StationResponse `json:"stations"`
	Capacity       int               `json:"capacity" example:"100"`
	RemainingSeats int               `json:"remaining_seats" example:"42"`
}

type AvailabilityResponse struct {
	ScheduleID     string `json:"schedule_id" example:"TR-101"`
	Date           string `json:"date" example:"2026-11-01"`
	RemainingSeats int    `json:"remaining_seats" example:"42"`
}

func toScheduleResponse(s *schedule.Schedule) ScheduleResponse {
	stations := make([]StationResponse, len(s.Stations))
	for i, st := range s.Stations {
		stations[i] = StationResponse{Name: st.Name, Position: st.Position}
	}
	return ScheduleResponse{
		ID: s.ID, Date: s.Date.Format(window.DateLayout),
		TrainName: s.TrainName, DepartureTime: s.DepartureTime,
		Stations: stations, Capacity: s.Capacity, RemainingSeats: s.RemainingSeats,
	}
}

// GetByIDAndDate godoc
// @Summary 運行スケジュールを取得
// @Tags schedules
// @Produce json
// @Param id path string true "スケジュールID"
// @Param date path string true "運行日（YYYY-MM-DD）"
// @Success 200 {object} ScheduleResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /schedules/{id}/{date} [get]
func (h *ScheduleHandler) GetByIDAndDate(c echo.Context) error {
	date, err := window.ParseDate(c.Param("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効な日付です")
	}
	s, err := h.service.GetSchedule(c.Request().Context(), c.Param("id"), date)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toScheduleResponse(s))
}

// Availability godoc
// @Summary 残席数を取得
// @Description キャッシュがあればキャッシュから返します
// @Tags schedules
// @Produce json
// @Param id path string true "スケジュールID"
// @Param date path string true "運行日（YYYY-MM-DD）"
// @Success 200 {object} AvailabilityResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /schedules/{id}/{date}/availability [get]
func (h *ScheduleHandler) Availability(c echo.Context) error {
	date, err := window.ParseDate(c.Param("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効な日付です")
	}
	id := c.Param("id")
	remaining, err := h.service.RemainingSeats(c.Request().Context(), id, date)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, AvailabilityResponse{
		ScheduleID: id, Date: date.Format(window.DateLayout), RemainingSeats: remaining,
	})
}
