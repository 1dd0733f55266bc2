package handler

import "github.com/labstack/echo/v4"

// Handlers はルーティング対象のハンドラー一式
type Handlers struct {
	Health      *HealthHandler
	Schedule    *ScheduleHandler
	Reservation *ReservationHandler
}

// RegisterRoutes は API のルートを登録する
func RegisterRoutes(e *echo.Echo, h Handlers) {
	e.GET("/health", h.Health.Check)

	v1 := e.Group("/api/v1")
	v1.GET("/schedules/:id/:date", h.Schedule.GetByIDAndDate)
	v1.GET("/schedules/:id/:date/availability", h.Schedule.Availability)

	v1.POST("/reservations", h.Reservation.Create)
	v1.GET("/reservations", h.Reservation.ListActive)
	v1.GET("/reservations/:id", h.Reservation.GetByID)
	v1.PUT("/reservations/:id", h.Reservation.Update)
	v1.POST("/reservations/:id/confirm", h.Reservation.Confirm)
	v1.POST("/reservations/:id/cancel", h.Reservation.Cancel)
	v1.POST("/reservations/:id/complete", h.Reservation.Complete)

	v1.GET("/travelers/:nic/reservations", h.Reservation.ListForTraveler)
	v1.GET("/travelers/:nic/reservations/history", h.Reservation.History)
}
