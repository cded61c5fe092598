// internal/handlers/settings/settings.go
package settings

import (
	"net/http"

	"dispatch-console/internal/domain/settings"
	wstypes "dispatch-console/internal/domain/websocket"
	"dispatch-console/internal/middleware"
	"dispatch-console/internal/pkg/response"
	"dispatch-console/internal/repository/memory"
	ws "dispatch-console/internal/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SettingsHandler struct {
	settings *memory.SettingsRepository
	events   ws.Publisher
	logger   *zap.Logger
}

func NewSettingsHandler(settings *memory.SettingsRepository, events ws.Publisher, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{
		settings: settings,
		events:   events,
		logger:   logger,
	}
}

// GetSettings returns the platform configuration
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	response.Success(c, http.StatusOK, "settings retrieved", h.settings.Get(c.Request.Context()))
}

// UpdateSettings applies a partial update. Toggling maintenance mode is
// announced to every connected client.
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req settings.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	ctx := c.Request.Context()
	before := h.settings.Get(ctx).MaintenanceMode
	result := h.settings.Update(ctx, &req, middleware.GetUserID(c))

	h.logger.Info("settings updated", zap.String("by", result.UpdatedBy))
	if result.MaintenanceMode != before {
		h.events.Publish(wstypes.EventTypeSystemMaintenance, map[string]any{
			"enabled":    result.MaintenanceMode,
			"updated_by": result.UpdatedBy,
		})
	}
	response.Success(c, http.StatusOK, "settings updated", result)
}
