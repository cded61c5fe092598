package realtime

import "errors"

var (
	errHandshake  = errors.New("unexpected handshake reply")
	errServerGone = errors.New("server closed the connection")
)
