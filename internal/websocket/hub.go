// internal/websocket/hub.go
package websocket

import (
	"context"
	"sync"

	wstypes "dispatch-console/internal/domain/websocket"
	"dispatch-console/internal/pkg/jwt"

	"go.uber.org/zap"
)

// Publisher fans events out to rooms. *Hub implements it.
type Publisher interface {
	Publish(event wstypes.EventType, data any, rooms ...string)
}

type Hub struct {
	// Registered clients by user ID
	clients map[string]map[*Client]bool
	// Room membership
	rooms map[string]map[*Client]bool
	mu    sync.RWMutex

	// Registration/unregistration
	Register   chan *Client
	unregister chan *Client

	// Broadcasting
	broadcast chan *BroadcastMessage

	// Handler registry for modular message handling
	handlerRegistry *HandlerRegistry

	jwtVerifier *jwt.Verifier
	logger      *zap.Logger
}

// BroadcastMessage targets rooms, users, or everyone when both are empty.
type BroadcastMessage struct {
	Rooms   []string
	UserIDs []string
	Message *wstypes.Message
}

func NewHub(jwtVerifier *jwt.Verifier, logger *zap.Logger) *Hub {
	return &Hub{
		clients:         make(map[string]map[*Client]bool),
		rooms:           make(map[string]map[*Client]bool),
		Register:        make(chan *Client),
		unregister:      make(chan *Client, 16),
		broadcast:       make(chan *BroadcastMessage, 256),
		handlerRegistry: NewHandlerRegistry(),
		jwtVerifier:     jwtVerifier,
		logger:          logger,
	}
}

// AuthenticateClient validates the session token sent in the auth frame
func (h *Hub) AuthenticateClient(ctx context.Context, auth wstypes.AuthData) (*ClientAuth, error) {
	if auth.Token == "" {
		return nil, ErrInvalidToken
	}
	claims, err := h.jwtVerifier.Verify(auth.Token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	userType := auth.UserType
	if userType == "" {
		userType = claims.UserType
	}
	if userType != claims.UserType {
		return nil, ErrUnauthorized
	}

	return &ClientAuth{
		UserID:      claims.Subject,
		SessionID:   claims.ID,
		UserType:    claims.UserType,
		Role:        claims.Role,
		Permissions: claims.Permissions,
		Email:       claims.Email,
	}, nil
}

// RegisterHandler registers a message handler
func (h *Hub) RegisterHandler(handler MessageHandler) {
	h.handlerRegistry.Register(handler)
}

// HandleClientMessage processes a message from a client using registered
// handlers. handled is false when no handler claims the event.
func (h *Hub) HandleClientMessage(ctx context.Context, client *Client, msg *wstypes.Message) (handled bool, err error) {
	return h.handlerRegistry.Dispatch(ctx, client, msg)
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.BroadcastMessage(msg)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	if h.clients[client.userID] == nil {
		h.clients[client.userID] = make(map[*Client]bool)
	}
	h.clients[client.userID][client] = true
	if client.IsAdmin() {
		h.joinLocked(client, wstypes.RoomAdmins)
	}
	total := h.totalClients()
	h.mu.Unlock()

	h.logger.Info("ws client connected",
		zap.String("user_id", client.userID),
		zap.String("session_id", client.sessionID),
		zap.Int("total", total))

	client.Send(wstypes.EventTypeConnected, wstypes.ConnectedData{
		UserID:   client.userID,
		UserType: client.userType,
		Role:     client.role,
	})
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.userID]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			h.leaveAllLocked(client)
			client.Close()

			if len(clients) == 0 {
				delete(h.clients, client.userID)
			}

			h.logger.Info("ws client disconnected",
				zap.String("user_id", client.userID),
				zap.String("session_id", client.sessionID),
				zap.Int("total", h.totalClients()))
		}
	}
}

// JoinRoom adds the client to a room
func (h *Hub) JoinRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.joinLocked(client, room)
}

// LeaveRoom removes the client from a room
func (h *Hub) LeaveRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) BroadcastMessage(msg *BroadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	targets := make(map[*Client]bool)
	for _, room := range msg.Rooms {
		for client := range h.rooms[room] {
			targets[client] = true
		}
	}
	for _, userID := range msg.UserIDs {
		for client := range h.clients[userID] {
			targets[client] = true
		}
	}
	if len(msg.Rooms) == 0 && len(msg.UserIDs) == 0 {
		for _, clients := range h.clients {
			for client := range clients {
				targets[client] = true
			}
		}
	}
	for client := range targets {
		client.SendMessage(msg.Message)
	}
}

// Publish queues an event for every member of the given rooms. With no
// rooms the event goes to every connected client.
func (h *Hub) Publish(event wstypes.EventType, data any, rooms ...string) {
	msg, err := wstypes.NewMessage(event, data)
	if err != nil {
		h.logger.Error("failed to encode ws event", zap.String("event", string(event)), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- &BroadcastMessage{Rooms: rooms, Message: msg}:
	default:
		h.logger.Warn("ws broadcast queue full, event dropped", zap.String("event", string(event)))
	}
}

func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) GetConnectedClients(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalClients()
}

// IsUserConnected checks if a user has any active connections
func (h *Hub) IsUserConnected(userID string) bool {
	return h.GetConnectedClients(userID) > 0
}

// DisconnectUser sends force_disconnect to every session of a user and
// closes them. Clients treat force_disconnect as final and do not reconnect.
func (h *Hub) DisconnectUser(userID string, reason string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[userID]
	if !ok {
		return 0
	}
	n := len(clients)
	for client := range clients {
		client.Send(wstypes.EventTypeForceDisconnect, wstypes.ForceDisconnectData{Reason: reason})
		h.leaveAllLocked(client)
		client.Close()
	}
	delete(h.clients, userID)
	h.logger.Info("disconnected all ws clients for user",
		zap.String("user_id", userID),
		zap.String("reason", reason),
		zap.Int("sessions", n))
	return n
}

// --- Helper functions ---

func (h *Hub) joinLocked(client *Client, room string) {
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][client] = true
}

func (h *Hub) leaveAllLocked(client *Client) {
	for room, members := range h.rooms {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) totalClients() int {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.clients {
		for client := range clients {
			client.Close()
		}
	}
	h.clients = make(map[string]map[*Client]bool)
	h.rooms = make(map[string]map[*Client]bool)
}
