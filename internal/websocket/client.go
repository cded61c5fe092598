// internal/websocket/client.go
package websocket

import (
	"context"
	"slices"
	"sync"
	"time"

	wstypes "dispatch-console/internal/domain/websocket"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024 // 512KB
)

// ClientAuth holds authentication information
type ClientAuth struct {
	UserID      string
	SessionID   string
	UserType    string
	Role        string
	Permissions []string
	Email       string
}

type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	userID      string
	sessionID   string
	userType    string
	role        string
	permissions []string
	email       string
	logger      *zap.Logger

	mu     sync.Mutex
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, auth *ClientAuth) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, 256),
		userID:      auth.UserID,
		sessionID:   auth.SessionID,
		userType:    auth.UserType,
		role:        auth.Role,
		permissions: auth.Permissions,
		email:       auth.Email,
		logger:      hub.logger.With(zap.String("user_id", auth.UserID)),
	}
}

// IsAdmin reports whether the client is a console operator
func (c *Client) IsAdmin() bool {
	return c.userType == "admin"
}

// HasRole checks if client has a specific role
func (c *Client) HasRole(role string) bool {
	return c.role == role
}

// HasPermission checks if client has a specific permission
func (c *Client) HasPermission(permission string) bool {
	return c.role == "super_admin" || slices.Contains(c.permissions, permission)
}

// CanJoin checks whether the client may join a room. Operator rooms are
// closed to drivers and riders.
func (c *Client) CanJoin(room string) bool {
	switch room {
	case wstypes.RoomAdmins, wstypes.RoomEmergencies, wstypes.RoomSystemAlerts:
		return c.IsAdmin()
	case wstypes.RoomDrivers:
		return c.IsAdmin() || c.userType == "driver"
	}
	return room != ""
}

// GetUserID returns the client's user ID
func (c *Client) GetUserID() string {
	return c.userID
}

// GetSessionID returns the client's session ID
func (c *Client) GetSessionID() string {
	return c.sessionID
}

// ReadPump handles incoming messages from client
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.handleMessage(message)
	}
}

// WritePump handles outgoing messages to client. It drains queued frames
// before sending the close frame.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes incoming messages from client
func (c *Client) handleMessage(data []byte) {
	msg, err := wstypes.ParseMessage(data)
	if err != nil {
		c.SendError("invalid_message", "Failed to parse message")
		return
	}

	handled, err := c.hub.HandleClientMessage(context.Background(), c, msg)
	if err != nil {
		c.SendError("handler_error", err.Error())
		return
	}
	if handled {
		return
	}

	// Built-in message handling
	switch msg.Event {
	case wstypes.EventTypePing:
		c.Send(wstypes.EventTypePong, nil)

	case wstypes.EventTypeJoinRoom:
		var req wstypes.RoomRequest
		if err := msg.DecodeData(&req); err != nil || req.Room == "" {
			c.SendError("invalid_room", "Invalid join request")
			return
		}
		if !c.CanJoin(req.Room) {
			c.SendError("forbidden_room", "Not allowed to join "+req.Room)
			return
		}
		c.hub.JoinRoom(c, req.Room)

	case wstypes.EventTypeLeaveRoom:
		var req wstypes.RoomRequest
		if err := msg.DecodeData(&req); err != nil || req.Room == "" {
			c.SendError("invalid_room", "Invalid leave request")
			return
		}
		c.hub.LeaveRoom(c, req.Room)

	default:
		c.SendError("unknown_event", "Unsupported event "+string(msg.Event))
	}
}

// Send encodes and queues an event for the client
func (c *Client) Send(event wstypes.EventType, data any) {
	msg, err := wstypes.NewMessage(event, data)
	if err != nil {
		c.logger.Error("failed to encode message", zap.Error(err))
		return
	}
	c.SendMessage(msg)
}

// SendMessage queues a frame for the client. A client too slow to keep up
// is closed.
func (c *Client) SendMessage(msg *wstypes.Message) {
	data, err := msg.ToJSON()
	if err != nil {
		c.logger.Error("failed to marshal message", zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		c.logger.Warn("ws send buffer full, closing client")
		c.closed = true
		close(c.send)
	}
}

// SendError sends an error message to the client
func (c *Client) SendError(code, message string) {
	c.Send(wstypes.EventTypeError, wstypes.ErrorData{
		Code:    code,
		Message: message,
	})
}

// Close gracefully closes the client connection. Queued frames are still
// written. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
