// internal/handlers/emergency/emergency.go
package emergency

import (
	"net/http"

	"dispatch-console/internal/domain/emergency"
	wstypes "dispatch-console/internal/domain/websocket"
	"dispatch-console/internal/middleware"
	"dispatch-console/internal/pkg/response"
	"dispatch-console/internal/repository/memory"
	ws "dispatch-console/internal/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type EmergencyHandler struct {
	alerts *memory.EmergencyRepository
	events ws.Publisher
	logger *zap.Logger
}

func NewEmergencyHandler(alerts *memory.EmergencyRepository, events ws.Publisher, logger *zap.Logger) *EmergencyHandler {
	return &EmergencyHandler{
		alerts: alerts,
		events: events,
		logger: logger,
	}
}

// ListEmergencies retrieves alerts with filters
func (h *EmergencyHandler) ListEmergencies(c *gin.Context) {
	var filters emergency.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.ValidationError(c, err)
		return
	}

	result := h.alerts.List(c.Request.Context(), filters)
	response.Success(c, http.StatusOK, "emergencies retrieved", result)
}

// GetActive returns every unresolved alert
func (h *EmergencyHandler) GetActive(c *gin.Context) {
	alerts := h.alerts.Active(c.Request.Context())
	response.Success(c, http.StatusOK, "active emergencies retrieved", emergency.ListResponse{
		Alerts: alerts,
		Total:  int64(len(alerts)),
	})
}

// GetEmergency retrieves an alert by ID
func (h *EmergencyHandler) GetEmergency(c *gin.Context) {
	result, err := h.alerts.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "emergency retrieved", result)
}

// Acknowledge marks an alert as being handled by the caller
func (h *EmergencyHandler) Acknowledge(c *gin.Context) {
	var req emergency.AcknowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.ValidationError(c, err)
		return
	}

	result, err := h.alerts.Acknowledge(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), req.Notes)
	if err != nil {
		response.FromError(c, err)
		return
	}

	h.events.Publish(wstypes.EventTypeEmergencyUpdated, result, wstypes.RoomEmergencies)
	response.Success(c, http.StatusOK, "emergency acknowledged", result)
}

// Resolve closes an alert
func (h *EmergencyHandler) Resolve(c *gin.Context) {
	var req emergency.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	result, err := h.alerts.Resolve(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), req.Resolution)
	if err != nil {
		response.FromError(c, err)
		return
	}

	h.logger.Info("emergency resolved", zap.String("alert_id", result.ID), zap.String("by", result.HandledBy))
	h.events.Publish(wstypes.EventTypeEmergencyResolved, result, wstypes.RoomEmergencies)
	response.Success(c, http.StatusOK, "emergency resolved", result)
}

// Escalate hands an alert to an outside responder
func (h *EmergencyHandler) Escalate(c *gin.Context) {
	var req emergency.EscalateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	result, err := h.alerts.Escalate(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	h.logger.Warn("emergency escalated", zap.String("alert_id", result.ID), zap.String("to", req.To))
	h.events.Publish(wstypes.EventTypeEmergencyUpdated, result, wstypes.RoomEmergencies)
	response.Success(c, http.StatusOK, "emergency escalated", result)
}
