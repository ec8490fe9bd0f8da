package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"wedding/guesthub/internal/model"
	"wedding/guesthub/internal/service"
	"wedding/guesthub/pkg/response"
)

type BookingHandler struct {
	seatService service.SeatService
}

func NewBookingHandler(seatService service.SeatService) *BookingHandler {
	return &BookingHandler{seatService: seatService}
}

type BookSeatsRequest struct {
	ScheduleID     string   `json:"schedule_id" binding:"required"`
	PassengerNames []string `json:"passenger_names" binding:"required"`
	ContactPhone   string   `json:"contact_phone"`
	Notes          string   `json:"notes"`
}

func (h *BookingHandler) ListSchedules(c *gin.Context) {
	routeType := model.RouteType(c.Query("route_type"))
	if routeType != "" && routeType != model.RouteTypeArrival && routeType != model.RouteTypeDeparture {
		response.BadRequest(c, "invalid route_type")
		return
	}

	schedules, err := h.seatService.ListSchedules(c.Request.Context(), routeType)
	if err != nil {
		respondError(c, err, "failed to list schedules")
		return
	}
	response.Success(c, schedules)
}

func (h *BookingHandler) Book(c *gin.Context) {
	accountID, err := getAccountIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}

	var req BookSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	scheduleID, err := uuid.Parse(req.ScheduleID)
	if err != nil {
		response.BadRequest(c, "invalid schedule_id")
		return
	}

	booking, err := h.seatService.BookSeats(c.Request.Context(), service.BookSeatsInput{
		ScheduleID:     scheduleID,
		AccountID:      accountID,
		PassengerNames: req.PassengerNames,
		ContactPhone:   req.ContactPhone,
		Notes:          req.Notes,
	})
	if err != nil {
		respondError(c, err, "seat booking failed")
		return
	}
	response.Success(c, booking)
}

func (h *BookingHandler) List(c *gin.Context) {
	accountID, err := getAccountIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}

	bookings, err := h.seatService.ListBookings(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err, "failed to list bookings")
		return
	}
	response.Success(c, bookings)
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	accountID, err := getAccountIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}
	bookingID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	booking, err := h.seatService.CancelBooking(c.Request.Context(), accountID, bookingID)
	if err != nil {
		respondError(c, err, "failed to cancel booking")
		return
	}
	response.Success(c, booking)
}
