// internal/websocket/handler/broadcast.go
package handlers

import (
	"context"
	"fmt"
	"strings"

	wstypes "dispatch-console/internal/domain/websocket"
	ws "dispatch-console/internal/websocket"
)

// BroadcastHandler relays operator announcements to the drivers room
type BroadcastHandler struct {
	hub *ws.Hub
}

func NewBroadcastHandler(hub *ws.Hub) *BroadcastHandler {
	return &BroadcastHandler{hub: hub}
}

// SupportedEvents returns events this handler supports
func (h *BroadcastHandler) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{wstypes.EventTypeBroadcastDrivers}
}

// HandleMessage validates and fans out a driver broadcast
func (h *BroadcastHandler) HandleMessage(ctx context.Context, client *ws.Client, msg *wstypes.Message) error {
	if !client.IsAdmin() {
		return ws.ErrForbidden
	}

	var req wstypes.DriverBroadcastData
	if err := msg.DecodeData(&req); err != nil {
		return fmt.Errorf("invalid broadcast request: %w", err)
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return fmt.Errorf("broadcast message is required")
	}

	if len(req.DriverIDs) == 0 {
		h.hub.Publish(wstypes.EventTypeBroadcastDrivers, req, wstypes.RoomDrivers)
		return nil
	}
	rooms := make([]string, 0, len(req.DriverIDs))
	for _, id := range req.DriverIDs {
		rooms = append(rooms, wstypes.RoomDriver(id))
	}
	h.hub.Publish(wstypes.EventTypeBroadcastDrivers, req, rooms...)
	return nil
}
