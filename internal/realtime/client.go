package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	wstypes "dispatch-console/internal/domain/websocket"
	xerrors "dispatch-console/internal/pkg/errors"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024 // 512KB
	sendBuffer     = 64
)

// State is the connection lifecycle state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

// TokenSource yields the current session token.
type TokenSource interface {
	GetToken() string
}

type Config struct {
	URL              string
	UserType         string
	BaseDelay        time.Duration
	MaxAttempts      int
	TokenRetryDelay  time.Duration
	HandshakeTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.UserType == "" {
		c.UserType = "admin"
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.TokenRetryDelay <= 0 {
		c.TokenRetryDelay = 30 * time.Second
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	return c
}

// AfterFunc schedules f after d and returns a stop func.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

func defaultAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

type Option func(*Client)

func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// WithAfterFunc replaces the reconnect timer.
func WithAfterFunc(fn AfterFunc) Option {
	return func(c *Client) { c.afterFunc = fn }
}

func WithHeader(h http.Header) Option {
	return func(c *Client) { c.header = h }
}

// Client is the console's single realtime connection.
type Client struct {
	cfg       Config
	tokens    TokenSource
	logger    *zap.Logger
	dialer    *websocket.Dialer
	header    http.Header
	afterFunc AfterFunc
	listeners *registry

	mu       sync.Mutex
	state    State
	conn     *websocket.Conn
	send     chan []byte
	cancel   context.CancelFunc
	gen      uint64
	attempts int
	stop     func() bool
	closed   bool
	rooms    map[string]struct{}
}

func NewClient(cfg Config, tokens TokenSource, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		cfg:       cfg.withDefaults(),
		tokens:    tokens,
		logger:    logger,
		dialer:    websocket.DefaultDialer,
		afterFunc: defaultAfterFunc,
		listeners: newRegistry(logger),
		state:     StateDisconnected,
		rooms:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Backoff returns the reconnect delay for a 1-based attempt.
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base << (attempt - 1)
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect dials and authenticates. It is a no-op while a connection is
// established or in progress. A failed dial schedules the reconnect cycle and
// still returns the error.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateConnected || c.state == StateConnecting {
		c.mu.Unlock()
		return nil
	}
	c.closed = false
	c.attempts = 0
	c.stopTimerLocked()
	c.mu.Unlock()

	if c.tokens.GetToken() == "" {
		return xerrors.ErrNotAuthenticated
	}

	err := c.dial(ctx)
	if err != nil {
		c.retry(err)
	}
	return err
}

// Disconnect closes the connection and cancels any pending reconnect. The
// client stays down until the next Connect.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.closed = true
	c.stopTimerLocked()
	c.rooms = make(map[string]struct{})
	conn := c.teardownLocked()
	transition := c.setStateLocked(StateDisconnected)
	c.mu.Unlock()

	if conn != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		conn.Close()
	}
	c.emitLocal(transition)
	c.logger.Info("realtime disconnected")
}

// On registers fn for event; AnyEvent receives everything.
func (c *Client) On(event wstypes.EventType, fn Handler) *Listener {
	return c.listeners.add(event, fn)
}

// Off unregisters l, or all listeners for event when l is nil.
func (c *Client) Off(event wstypes.EventType, l *Listener) {
	c.listeners.remove(event, l)
}

// Subscribe delivers events on a buffered channel. Events are dropped while
// the buffer is full. Call the returned func to stop delivery.
func (c *Client) Subscribe(event wstypes.EventType, buf int) (<-chan Event, func()) {
	ch := make(chan Event, buf)
	var once sync.Once
	done := make(chan struct{})
	l := c.On(event, func(ev Event) {
		select {
		case <-done:
		case ch <- ev:
		default:
			c.logger.Warn("realtime subscriber lagging, event dropped",
				zap.String("event", string(ev.Name)))
		}
	})
	return ch, func() {
		once.Do(func() {
			c.Off(event, l)
			close(done)
		})
	}
}

// Emit sends an event over the live connection.
func (c *Client) Emit(event wstypes.EventType, data any) error {
	msg, err := wstypes.NewMessage(event, data)
	if err != nil {
		return xerrors.Wrap(xerrors.ErrInvalidInput, err.Error())
	}
	frame, err := msg.ToJSON()
	if err != nil {
		return xerrors.Wrap(xerrors.ErrInvalidInput, err.Error())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected || c.send == nil {
		return xerrors.ErrNotConnected
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return fmt.Errorf("realtime send buffer full: %w", xerrors.ErrNotConnected)
	}
}

// dial opens a connection and performs the auth handshake.
func (c *Client) dial(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return xerrors.ErrNotConnected
	}
	transition := c.setStateLocked(StateConnecting)
	c.mu.Unlock()
	c.emitLocal(transition)

	token := c.tokens.GetToken()
	if token == "" {
		return xerrors.ErrAuthRejected
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
	defer cancel()

	conn, _, err := c.dialer.DialContext(dialCtx, c.cfg.URL, c.header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}

	connected, err := c.handshake(conn, token)
	if err != nil {
		conn.Close()
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return xerrors.ErrNotConnected
	}
	c.gen++
	gen := c.gen
	pumpCtx, pumpCancel := context.WithCancel(context.Background())
	c.conn = conn
	c.cancel = pumpCancel
	c.send = make(chan []byte, sendBuffer)
	c.attempts = 0
	rooms := c.roomsLocked()
	for _, room := range rooms {
		frame, err := roomFrame(wstypes.EventTypeJoinRoom, room)
		if err != nil {
			continue
		}
		select {
		case c.send <- frame:
		default:
			c.logger.Warn("realtime rejoin dropped", zap.String("room", room))
		}
	}
	send := c.send
	transition = c.setStateLocked(StateConnected)
	c.mu.Unlock()

	go c.writePump(pumpCtx, conn, send)
	go c.readPump(pumpCtx, conn, gen)

	c.logger.Info("realtime connected",
		zap.String("url", c.cfg.URL),
		zap.Int("rooms", len(rooms)),
	)
	c.emitLocal(transition)
	c.listeners.dispatch(connected)
	return nil
}

func (c *Client) handshake(conn *websocket.Conn, token string) (Event, error) {
	msg, err := wstypes.NewMessage(wstypes.EventTypeAuth, wstypes.AuthData{
		Token:    token,
		UserType: c.cfg.UserType,
	})
	if err != nil {
		return Event{}, err
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		return Event{}, fmt.Errorf("send auth: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(c.cfg.HandshakeTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return Event{}, fmt.Errorf("read handshake: %w", err)
	}
	conn.SetReadDeadline(time.Time{})

	reply, err := wstypes.ParseMessage(data)
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", errHandshake, err)
	}

	switch reply.Event {
	case wstypes.EventTypeConnected:
		return toEvent(reply), nil
	case wstypes.EventTypeAuthError:
		var detail wstypes.ErrorData
		if err := reply.DecodeData(&detail); err != nil {
			c.logger.Debug("auth_error frame without readable detail", zap.Error(err))
		}
		c.logger.Warn("realtime auth rejected",
			zap.String("code", detail.Code),
			zap.String("message", detail.Message),
		)
		return Event{}, xerrors.ErrAuthRejected
	default:
		return Event{}, fmt.Errorf("%w: %s", errHandshake, reply.Event)
	}
}

// readPump handles incoming messages from the server
func (c *Client) readPump(ctx context.Context, conn *websocket.Conn, gen uint64) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.drop(gen, errServerGone, true)
				return
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("realtime read failed", zap.Error(err))
			}
			c.drop(gen, err, false)
			return
		}

		msg, err := wstypes.ParseMessage(data)
		if err != nil {
			c.logger.Warn("realtime frame ignored", zap.Error(err))
			continue
		}

		ev := toEvent(msg)
		if msg.Event == wstypes.EventTypeForceDisconnect {
			c.listeners.dispatch(ev)
			c.drop(gen, errServerGone, true)
			return
		}
		c.listeners.dispatch(ev)
	}
}

// writePump handles outgoing messages to the server
func (c *Client) writePump(ctx context.Context, conn *websocket.Conn, send <-chan []byte) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case message := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Debug("realtime write failed", zap.Error(err))
				conn.Close()
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}

// drop handles the loss of connection gen. Terminal drops leave the client
// disconnected; others enter the reconnect cycle.
func (c *Client) drop(gen uint64, cause error, terminal bool) {
	c.mu.Lock()
	if gen != c.gen || c.closed {
		c.mu.Unlock()
		return
	}
	conn := c.teardownLocked()
	if terminal {
		c.closed = true
		transition := c.setStateLocked(StateDisconnected)
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		c.logger.Info("realtime closed by server", zap.Error(cause))
		c.emitLocal(transition)
		return
	}
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	c.logger.Warn("realtime connection lost", zap.Error(cause))
	c.retry(cause)
}

// retry schedules the next attempt after a failed dial or a dropped
// connection. Auth rejections wait the token-retry delay instead of backing
// off; both consume an attempt.
func (c *Client) retry(cause error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.attempts >= c.cfg.MaxAttempts {
		attempts := c.attempts
		transition := c.setStateLocked(StateDisconnected)
		c.mu.Unlock()

		c.logger.Error("realtime reconnect attempts exhausted",
			zap.Int("attempts", attempts),
			zap.Error(cause),
		)
		c.emitLocal(transition)
		c.listeners.dispatch(Event{
			Name:      wstypes.EventTypeReconnectFailed,
			Data:      map[string]any{"attempts": attempts},
			Timestamp: time.Now().UTC(),
		})
		return
	}

	c.attempts++
	delay := Backoff(c.cfg.BaseDelay, c.attempts)
	if errors.Is(cause, xerrors.ErrAuthRejected) {
		delay = c.cfg.TokenRetryDelay
	}
	attempt := c.attempts
	transition := c.setStateLocked(StateReconnecting)
	c.stopTimerLocked()
	c.stop = c.afterFunc(delay, c.reconnect)
	c.mu.Unlock()

	c.logger.Info("realtime reconnect scheduled",
		zap.Int("attempt", attempt),
		zap.Duration("delay", delay),
	)
	c.emitLocal(transition)
}

func (c *Client) reconnect() {
	c.mu.Lock()
	if c.closed || c.state != StateReconnecting {
		c.mu.Unlock()
		return
	}
	c.stop = nil
	c.mu.Unlock()

	if err := c.dial(context.Background()); err != nil {
		c.retry(err)
	}
}

// --- Helper functions ---

func (c *Client) stopTimerLocked() {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
}

// teardownLocked detaches the live connection and stops its pumps.
func (c *Client) teardownLocked() *websocket.Conn {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	conn := c.conn
	c.conn = nil
	c.send = nil
	return conn
}

// setStateLocked returns the state_change event to dispatch once unlocked,
// or a zero Event when nothing changed.
func (c *Client) setStateLocked(to State) Event {
	from := c.state
	if from == to {
		return Event{}
	}
	c.state = to
	return Event{
		Name:      wstypes.EventTypeStateChange,
		Data:      map[string]any{"from": string(from), "to": string(to)},
		Timestamp: time.Now().UTC(),
	}
}

func (c *Client) emitLocal(ev Event) {
	if ev.Name == "" {
		return
	}
	c.listeners.dispatch(ev)
}

// toEvent decodes and sanitizes a frame's payload.
func toEvent(msg *wstypes.Message) Event {
	ev := Event{Name: msg.Event, Timestamp: time.Now().UTC()}
	if msg.Timestamp != nil {
		ev.Timestamp = msg.Timestamp.UTC()
	}
	if len(msg.Data) > 0 {
		var raw any
		if err := json.Unmarshal(msg.Data, &raw); err == nil {
			ev.Data = Sanitize(raw)
		}
	}
	return ev
}
