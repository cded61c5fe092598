// internal/websocket/utils.go
package websocket

import (
	"fmt"
	"time"

	wstypes "dispatch-console/internal/domain/websocket"

	"github.com/gorilla/websocket"
)

// ReadAuthFrame waits up to timeout for the client's auth frame
func ReadAuthFrame(conn *websocket.Conn, timeout time.Duration) (wstypes.AuthData, error) {
	var auth wstypes.AuthData

	conn.SetReadDeadline(time.Now().Add(timeout))
	defer conn.SetReadDeadline(time.Time{})

	_, data, err := conn.ReadMessage()
	if err != nil {
		return auth, fmt.Errorf("%w: %v", ErrHandshakeTimeout, err)
	}
	msg, err := wstypes.ParseMessage(data)
	if err != nil {
		return auth, fmt.Errorf("invalid auth frame: %w", err)
	}
	if msg.Event != wstypes.EventTypeAuth {
		return auth, fmt.Errorf("expected %s frame, got %q", wstypes.EventTypeAuth, msg.Event)
	}
	if err := msg.DecodeData(&auth); err != nil {
		return auth, fmt.Errorf("invalid auth frame: %w", err)
	}
	return auth, nil
}

// WriteFrame writes one event directly to a connection that has no pumps
func WriteFrame(conn *websocket.Conn, event wstypes.EventType, data any) error {
	msg, err := wstypes.NewMessage(event, data)
	if err != nil {
		return err
	}
	b, err := msg.ToJSON()
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, b)
}
