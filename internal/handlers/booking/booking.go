// internal/handlers/booking/booking.go
package booking

import (
	"net/http"

	"dispatch-console/internal/domain/booking"
	wstypes "dispatch-console/internal/domain/websocket"
	"dispatch-console/internal/pkg/response"
	"dispatch-console/internal/repository/memory"
	ws "dispatch-console/internal/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type BookingHandler struct {
	bookings *memory.BookingRepository
	drivers  *memory.DriverRepository
	events   ws.Publisher
	logger   *zap.Logger
}

func NewBookingHandler(bookings *memory.BookingRepository, drivers *memory.DriverRepository, events ws.Publisher, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{
		bookings: bookings,
		drivers:  drivers,
		events:   events,
		logger:   logger,
	}
}

// ListBookings retrieves bookings with filters
func (h *BookingHandler) ListBookings(c *gin.Context) {
	var filters booking.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.ValidationError(c, err)
		return
	}

	result := h.bookings.List(c.Request.Context(), filters)
	response.Success(c, http.StatusOK, "bookings retrieved", result)
}

// GetBooking retrieves a booking by ID
func (h *BookingHandler) GetBooking(c *gin.Context) {
	result, err := h.bookings.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "booking retrieved", result)
}

// UpdateStatus moves a booking along its lifecycle
func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	var req booking.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	result, err := h.bookings.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		response.FromError(c, err)
		return
	}

	event := wstypes.EventTypeBookingUpdated
	if result.Status == booking.StatusCancelled {
		event = wstypes.EventTypeBookingCancelled
	}
	h.publish(event, result)
	response.Success(c, http.StatusOK, "booking status updated", result)
}

// CancelBooking cancels an open booking
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	var req booking.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	result, err := h.bookings.Cancel(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		response.FromError(c, err)
		return
	}

	h.logger.Info("booking cancelled", zap.String("booking_id", result.ID), zap.String("reason", req.Reason))
	h.publish(wstypes.EventTypeBookingCancelled, result)
	response.Success(c, http.StatusOK, "booking cancelled", result)
}

// AssignDriver attaches an active driver to a booking
func (h *BookingHandler) AssignDriver(c *gin.Context) {
	var req booking.AssignDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	ctx := c.Request.Context()
	d, err := h.drivers.FindByID(ctx, req.DriverID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	if d.IsSuspended() {
		response.Error(c, http.StatusUnprocessableEntity, "DRIVER_SUSPENDED", "driver is suspended")
		return
	}

	result, err := h.bookings.AssignDriver(ctx, c.Param("id"), d.ID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	h.publish(wstypes.EventTypeBookingAssigned, result, wstypes.RoomDriver(d.ID))
	response.Success(c, http.StatusOK, "driver assigned", result)
}

// GetStats summarises all bookings
func (h *BookingHandler) GetStats(c *gin.Context) {
	response.Success(c, http.StatusOK, "booking stats retrieved", h.bookings.Stats(c.Request.Context()))
}

// --- Helper functions ---

func (h *BookingHandler) publish(event wstypes.EventType, b *booking.Booking, extra ...string) {
	rooms := append([]string{wstypes.RoomBooking(b.ID), wstypes.RoomAdmins}, extra...)
	h.events.Publish(event, b, rooms...)
}
