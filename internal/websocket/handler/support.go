// internal/websocket/handler/support.go
package handlers

import (
	"context"
	"fmt"
	"strings"

	wstypes "dispatch-console/internal/domain/websocket"
	"dispatch-console/internal/repository/memory"
	ws "dispatch-console/internal/websocket"
)

// SupportHandler appends live chat lines to support tickets
type SupportHandler struct {
	hub     *ws.Hub
	tickets *memory.SupportRepository
}

func NewSupportHandler(hub *ws.Hub, tickets *memory.SupportRepository) *SupportHandler {
	return &SupportHandler{hub: hub, tickets: tickets}
}

// SupportedEvents returns events this handler supports
func (h *SupportHandler) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{wstypes.EventTypeSendSupportMessage}
}

// HandleMessage stores the message and echoes it to the ticket room
func (h *SupportHandler) HandleMessage(ctx context.Context, client *ws.Client, msg *wstypes.Message) error {
	var req wstypes.SupportMessageData
	if err := msg.DecodeData(&req); err != nil {
		return fmt.Errorf("invalid support message: %w", err)
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.TicketID == "" || req.Message == "" {
		return fmt.Errorf("ticketId and message are required")
	}

	senderType := "admin"
	if !client.IsAdmin() {
		senderType = "customer"
	}
	stored, err := h.tickets.AddMessage(ctx, req.TicketID, client.GetUserID(), senderType, req.Message)
	if err != nil {
		return err
	}

	h.hub.Publish(wstypes.EventTypeSupportMessage, wstypes.SupportMessageData{
		TicketID: stored.TicketID,
		Message:  stored.Body,
		SenderID: stored.SenderID,
	}, wstypes.RoomSupportTicket(req.TicketID), wstypes.RoomAdmins)
	return nil
}
