// internal/websocket/errors.go
package websocket

import "errors"

var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidToken     = errors.New("invalid token")
	ErrHandshakeTimeout = errors.New("no auth frame received")
	ErrForbidden        = errors.New("insufficient permissions")
)
