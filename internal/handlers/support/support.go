// internal/handlers/support/support.go
package support

import (
	"net/http"

	"dispatch-console/internal/domain/support"
	wstypes "dispatch-console/internal/domain/websocket"
	"dispatch-console/internal/middleware"
	"dispatch-console/internal/pkg/response"
	"dispatch-console/internal/repository/memory"
	ws "dispatch-console/internal/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SupportHandler struct {
	tickets *memory.SupportRepository
	events  ws.Publisher
	logger  *zap.Logger
}

func NewSupportHandler(tickets *memory.SupportRepository, events ws.Publisher, logger *zap.Logger) *SupportHandler {
	return &SupportHandler{
		tickets: tickets,
		events:  events,
		logger:  logger,
	}
}

// ListTickets retrieves tickets with filters
func (h *SupportHandler) ListTickets(c *gin.Context) {
	var filters support.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.ValidationError(c, err)
		return
	}

	result := h.tickets.List(c.Request.Context(), filters)
	response.Success(c, http.StatusOK, "tickets retrieved", result)
}

// GetTicket retrieves a ticket with its conversation
func (h *SupportHandler) GetTicket(c *gin.Context) {
	result, err := h.tickets.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "ticket retrieved", result)
}

// Reply posts an admin message on a ticket
func (h *SupportHandler) Reply(c *gin.Context) {
	var req support.ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	ticketID := c.Param("id")
	msg, err := h.tickets.AddMessage(c.Request.Context(), ticketID, middleware.GetUserID(c), "admin", req.Message)
	if err != nil {
		response.FromError(c, err)
		return
	}

	h.events.Publish(wstypes.EventTypeSupportMessage, wstypes.SupportMessageData{
		TicketID: ticketID,
		Message:  msg.Body,
		SenderID: msg.SenderID,
	}, wstypes.RoomSupportTicket(ticketID))
	response.Success(c, http.StatusCreated, "reply sent", msg)
}

// UpdateStatus sets a ticket's status
func (h *SupportHandler) UpdateStatus(c *gin.Context) {
	var req support.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	result, err := h.tickets.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		response.FromError(c, err)
		return
	}

	h.events.Publish(wstypes.EventTypeSupportTicket, result, wstypes.RoomSupportTicket(result.ID), wstypes.RoomAdmins)
	response.Success(c, http.StatusOK, "ticket status updated", result)
}

// AssignTicket hands a ticket to an admin
func (h *SupportHandler) AssignTicket(c *gin.Context) {
	var req support.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	result, err := h.tickets.Assign(c.Request.Context(), c.Param("id"), req.AdminID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	h.logger.Info("ticket assigned", zap.String("ticket_id", result.ID), zap.String("admin_id", req.AdminID))
	h.events.Publish(wstypes.EventTypeSupportTicket, result, wstypes.RoomSupportTicket(result.ID), wstypes.RoomAdmins)
	response.Success(c, http.StatusOK, "ticket assigned", result)
}
