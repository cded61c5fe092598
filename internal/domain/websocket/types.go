// internal/domain/websocket/types.go
package websocket

import (
	"encoding/json"
	"time"
)

// EventType represents different real-time event types
type EventType string

const (
	// Connection events
	EventTypeAuth            EventType = "auth"
	EventTypeConnected       EventType = "connected"
	EventTypeAuthError       EventType = "auth_error"
	EventTypeForceDisconnect EventType = "force_disconnect"
	EventTypeError           EventType = "error"
	EventTypePing            EventType = "ping"
	EventTypePong            EventType = "pong"

	// Room events (client -> server)
	EventTypeJoinRoom  EventType = "join_room"
	EventTypeLeaveRoom EventType = "leave_room"

	// Booking events
	EventTypeBookingCreated   EventType = "booking:created"
	EventTypeBookingUpdated   EventType = "booking:updated"
	EventTypeBookingCancelled EventType = "booking:cancelled"
	EventTypeBookingAssigned  EventType = "booking:assigned"

	// Driver events
	EventTypeDriverLocation EventType = "driver:location"
	EventTypeDriverStatus   EventType = "driver:status"
	EventTypeDriverVerified EventType = "driver:verified"

	// Emergency events
	EventTypeEmergencyAlert    EventType = "emergency:alert"
	EventTypeEmergencyUpdated  EventType = "emergency:updated"
	EventTypeEmergencyResolved EventType = "emergency:resolved"

	// Support events
	EventTypeSupportTicket  EventType = "support:ticket"
	EventTypeSupportMessage EventType = "support:message"

	// System events
	EventTypeSystemAlert       EventType = "system:alert"
	EventTypeSystemMaintenance EventType = "system:maintenance"

	// Admin emissions (client -> server)
	EventTypeBroadcastDrivers   EventType = "admin:broadcast_drivers"
	EventTypeSendSupportMessage EventType = "support:send_message"

	// Local events, never sent on the wire
	EventTypeReconnectFailed EventType = "reconnect_failed"
	EventTypeStateChange     EventType = "state_change"
)

// Room names. Joining a room is what subscribing to an entity means.
const (
	RoomEmergencies  = "emergencies"
	RoomSystemAlerts = "system_alerts"
	RoomAdmins       = "admins"
	RoomDrivers      = "drivers"
)

func RoomBooking(id string) string       { return "booking:" + id }
func RoomDriver(id string) string        { return "driver:" + id }
func RoomSupportTicket(id string) string { return "support:" + id }

// Message is the universal frame format
type Message struct {
	Event     EventType       `json:"event"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp *time.Time      `json:"timestamp,omitempty"`
}

// AuthData is the handshake payload
type AuthData struct {
	Token    string `json:"token"`
	UserType string `json:"userType"`
}

// ConnectedData acknowledges a successful handshake
type ConnectedData struct {
	UserID   string `json:"userId"`
	UserType string `json:"userType"`
	Role     string `json:"role,omitempty"`
}

// RoomRequest joins or leaves a room
type RoomRequest struct {
	Room string `json:"room"`
}

// ErrorData for error and auth_error events
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ForceDisconnectData explains a server-initiated close
type ForceDisconnectData struct {
	Reason string `json:"reason"`
}

// DriverBroadcastData is an admin announcement to drivers
type DriverBroadcastData struct {
	Message   string   `json:"message"`
	Priority  string   `json:"priority,omitempty"`
	Region    string   `json:"region,omitempty"`
	DriverIDs []string `json:"driverIds,omitempty"`
}

// SupportMessageData is a chat line on a support ticket
type SupportMessageData struct {
	TicketID string `json:"ticketId"`
	Message  string `json:"message"`
	SenderID string `json:"senderId,omitempty"`
}

// SystemAlertData for system-wide alerts
type SystemAlertData struct {
	Severity string `json:"severity"` // info, warning, critical
	Title    string `json:"title"`
	Message  string `json:"message"`
}

// StateChangeData is dispatched locally on every connection state change
type StateChangeData struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// NewMessage builds a frame, encoding data as JSON.
func NewMessage(event EventType, data any) (*Message, error) {
	now := time.Now().UTC()
	msg := &Message{Event: event, Timestamp: &now}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		msg.Data = raw
	}
	return msg, nil
}

func (m *Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeData unmarshals the frame payload into target.
func (m *Message) DecodeData(target any) error {
	if len(m.Data) == 0 {
		return nil
	}
	return json.Unmarshal(m.Data, target)
}

func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	err := json.Unmarshal(data, &msg)
	return &msg, err
}
