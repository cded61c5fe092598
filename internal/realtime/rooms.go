package realtime

import (
	"sort"
	"strings"

	wstypes "dispatch-console/internal/domain/websocket"
	xerrors "dispatch-console/internal/pkg/errors"
)

// JoinRoom records room and joins it now if connected. Recorded rooms are
// re-joined after every reconnect.
func (c *Client) JoinRoom(room string) error {
	if strings.TrimSpace(room) == "" {
		return xerrors.Invalid("room is required")
	}
	c.mu.Lock()
	c.rooms[room] = struct{}{}
	connected := c.state == StateConnected
	c.mu.Unlock()

	if !connected {
		return nil
	}
	return c.Emit(wstypes.EventTypeJoinRoom, wstypes.RoomRequest{Room: room})
}

func (c *Client) LeaveRoom(room string) error {
	c.mu.Lock()
	_, joined := c.rooms[room]
	delete(c.rooms, room)
	connected := c.state == StateConnected
	c.mu.Unlock()

	if !joined || !connected {
		return nil
	}
	return c.Emit(wstypes.EventTypeLeaveRoom, wstypes.RoomRequest{Room: room})
}

// Rooms returns the joined rooms, sorted.
func (c *Client) Rooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomsLocked()
}

func (c *Client) SubscribeToBooking(id string) error { return c.JoinRoom(wstypes.RoomBooking(id)) }
func (c *Client) UnsubscribeFromBooking(id string) error { return c.LeaveRoom(wstypes.RoomBooking(id)) }
func (c *Client) SubscribeToDriver(id string) error { return c.JoinRoom(wstypes.RoomDriver(id)) }
func (c *Client) UnsubscribeFromDriver(id string) error { return c.LeaveRoom(wstypes.RoomDriver(id)) }

func (c *Client) SubscribeToEmergencies() error { return c.JoinRoom(wstypes.RoomEmergencies) }
func (c *Client) UnsubscribeFromEmergencies() error { return c.LeaveRoom(wstypes.RoomEmergencies) }

func (c *Client) SubscribeToSupportTicket(id string) error {
	return c.JoinRoom(wstypes.RoomSupportTicket(id))
}

func (c *Client) UnsubscribeFromSupportTicket(id string) error {
	return c.LeaveRoom(wstypes.RoomSupportTicket(id))
}

func (c *Client) SubscribeToSystemAlerts() error { return c.JoinRoom(wstypes.RoomSystemAlerts) }
func (c *Client) UnsubscribeFromSystemAlerts() error { return c.LeaveRoom(wstypes.RoomSystemAlerts) }

// BroadcastToDrivers asks the server to relay an announcement to drivers.
func (c *Client) BroadcastToDrivers(data wstypes.DriverBroadcastData) error {
	if strings.TrimSpace(data.Message) == "" {
		return xerrors.Invalid("broadcast message is required")
	}
	return c.Emit(wstypes.EventTypeBroadcastDrivers, data)
}

func (c *Client) SendSupportMessage(ticketID, message string) error {
	if strings.TrimSpace(ticketID) == "" || strings.TrimSpace(message) == "" {
		return xerrors.Invalid("ticket id and message are required")
	}
	return c.Emit(wstypes.EventTypeSendSupportMessage, wstypes.SupportMessageData{
		TicketID: ticketID,
		Message:  message,
	})
}

// --- Helper functions ---

func (c *Client) roomsLocked() []string {
	rooms := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)
	return rooms
}

func roomFrame(event wstypes.EventType, room string) ([]byte, error) {
	msg, err := wstypes.NewMessage(event, wstypes.RoomRequest{Room: room})
	if err != nil {
		return nil, err
	}
	return msg.ToJSON()
}
