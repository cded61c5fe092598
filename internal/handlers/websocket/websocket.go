// internal/handlers/websocket/websocket.go
package handlers

import (
	"net/http"
	"time"

	wstypes "dispatch-console/internal/domain/websocket"
	"dispatch-console/internal/middleware"
	"dispatch-console/internal/pkg/response"
	ws "dispatch-console/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const authTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The mock serves local development only
		return true
	},
}

type WebSocketHandler struct {
	hub    *ws.Hub
	logger *zap.Logger
}

func NewWebSocketHandler(hub *ws.Hub, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		logger: logger,
	}
}

// HandleConnection upgrades the request and authenticates the first frame.
// A rejected client receives auth_error and is closed.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed",
			zap.Error(err),
			zap.String("ip", c.ClientIP()),
		)
		return
	}

	authData, err := ws.ReadAuthFrame(conn, authTimeout)
	if err != nil {
		h.reject(conn, c.ClientIP(), "AUTH_REQUIRED", err)
		return
	}

	auth, err := h.hub.AuthenticateClient(c.Request.Context(), authData)
	if err != nil {
		h.reject(conn, c.ClientIP(), "AUTH_FAILED", err)
		return
	}

	client := ws.NewClient(h.hub, conn, auth)
	h.hub.Register <- client

	h.logger.Info("WebSocket client connected",
		zap.String("user_id", auth.UserID),
		zap.String("session_id", auth.SessionID),
		zap.String("email", auth.Email),
		zap.String("role", auth.Role),
	)

	go client.WritePump()
	go client.ReadPump()
}

// GetStats returns WebSocket connection statistics
func (h *WebSocketHandler) GetStats(c *gin.Context) {
	stats := map[string]any{
		"total_connections": h.hub.TotalClients(),
		"admins_online":     h.hub.RoomSize(wstypes.RoomAdmins),
		"timestamp":         time.Now().UTC(),
	}

	response.Success(c, http.StatusOK, "WebSocket stats", stats)
}

type disconnectRequest struct {
	Reason string `json:"reason" binding:"max=200"`
}

// DisconnectUser force-disconnects every session of a user
func (h *WebSocketHandler) DisconnectUser(c *gin.Context) {
	var req disconnectRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.ValidationError(c, err)
		return
	}
	if req.Reason == "" {
		req.Reason = "disconnected by administrator"
	}

	userID := c.Param("id")
	n := h.hub.DisconnectUser(userID, req.Reason)

	h.logger.Info("force disconnect requested",
		zap.String("user_id", userID),
		zap.String("by", middleware.GetUserID(c)),
		zap.Int("sessions", n),
	)
	response.Success(c, http.StatusOK, "User disconnected", gin.H{"sessions": n})
}

// --- Helper functions ---

func (h *WebSocketHandler) reject(conn *websocket.Conn, ip, code string, err error) {
	h.logger.Warn("WebSocket authentication failed",
		zap.Error(err),
		zap.String("ip", ip),
	)
	_ = ws.WriteFrame(conn, wstypes.EventTypeAuthError, wstypes.ErrorData{
		Code:    code,
		Message: "authentication failed",
	})
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication failed"),
		time.Now().Add(time.Second))
	conn.Close()
}
