package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	wstypes "dispatch-console/internal/domain/websocket"
	xerrors "dispatch-console/internal/pkg/errors"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type staticToken string

func (s staticToken) GetToken() string { return string(s) }

// wsServer authenticates with a fixed token, records joined rooms and hands
// each session to a script. A session ends when the client goes away.
type wsServer struct {
	*httptest.Server
	token    string
	sessions atomic.Int32
	joins    chan string
	script   func(n int32, conn *websocket.Conn)
}

func newWSServer(t *testing.T, token string, script func(n int32, conn *websocket.Conn)) *wsServer {
	t.Helper()
	s := &wsServer{token: token, joins: make(chan string, 16), script: script}
	upgrader := websocket.Upgrader{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var auth wstypes.Message
		if err := conn.ReadJSON(&auth); err != nil {
			return
		}
		var data wstypes.AuthData
		auth.DecodeData(&data)
		if auth.Event != wstypes.EventTypeAuth || data.Token != s.token || data.UserType != "admin" {
			writeFrame(conn, wstypes.EventTypeAuthError, wstypes.ErrorData{Code: "INVALID_TOKEN", Message: "bad token"})
			return
		}
		writeFrame(conn, wstypes.EventTypeConnected, wstypes.ConnectedData{UserID: "admin-1", UserType: "admin"})

		n := s.sessions.Add(1)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				var msg wstypes.Message
				if err := conn.ReadJSON(&msg); err != nil {
					return
				}
				if msg.Event == wstypes.EventTypeJoinRoom {
					var req wstypes.RoomRequest
					msg.DecodeData(&req)
					s.joins <- req.Room
				}
			}
		}()
		if s.script != nil {
			s.script(n, conn)
		}
		<-done
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *wsServer) url() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func writeFrame(conn *websocket.Conn, event wstypes.EventType, data any) {
	msg, _ := wstypes.NewMessage(event, data)
	conn.WriteJSON(msg)
}

// recordingTimer captures scheduled delays and runs callbacks on demand or
// immediately.
type recordingTimer struct {
	mu        sync.Mutex
	delays    []time.Duration
	pending   []func()
	immediate bool
	stopped   int
}

func (r *recordingTimer) after(d time.Duration, f func()) func() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	if r.immediate {
		go f()
	} else {
		r.pending = append(r.pending, f)
	}
	return func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.stopped++
		return true
	}
}

func (r *recordingTimer) snapshot() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func waitFor(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func deadURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()
	return url
}

func TestBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	assert.Equal(t, 100*time.Millisecond, Backoff(base, 1))
	assert.Equal(t, 200*time.Millisecond, Backoff(base, 2))
	assert.Equal(t, 400*time.Millisecond, Backoff(base, 3))
	assert.Equal(t, 800*time.Millisecond, Backoff(base, 4))
	assert.Equal(t, 1600*time.Millisecond, Backoff(base, 5))
}

func TestReconnect_ExponentialThenGivesUp(t *testing.T) {
	timer := &recordingTimer{immediate: true}
	c := NewClient(Config{URL: deadURL(t), BaseDelay: time.Second}, staticToken("tok"), nil,
		WithAfterFunc(timer.after))

	failed, stop := c.Subscribe(wstypes.EventTypeReconnectFailed, 1)
	defer stop()

	err := c.Connect(context.Background())
	require.Error(t, err)

	waitFor(t, failed)
	assert.Equal(t, []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}, timer.snapshot())
	assert.Equal(t, StateDisconnected, c.State())
}

func TestDisconnect_CancelsPendingReconnect(t *testing.T) {
	timer := &recordingTimer{}
	c := NewClient(Config{URL: deadURL(t)}, staticToken("tok"), nil, WithAfterFunc(timer.after))

	require.Error(t, c.Connect(context.Background()))
	assert.Equal(t, StateReconnecting, c.State())
	require.Len(t, timer.pending, 1)

	c.Disconnect()
	assert.Equal(t, 1, timer.stopped)
	assert.Equal(t, StateDisconnected, c.State())

	// A timer that fires anyway must not reconnect.
	timer.pending[0]()
	assert.Equal(t, StateDisconnected, c.State())
	assert.Len(t, timer.snapshot(), 1)
}

func TestConnect_RequiresToken(t *testing.T) {
	c := NewClient(Config{URL: deadURL(t)}, staticToken(""), nil)
	err := c.Connect(context.Background())
	assert.ErrorIs(t, err, xerrors.ErrNotAuthenticated)
	assert.Equal(t, StateDisconnected, c.State())
}

func TestConnect_SanitizesInboundEvents(t *testing.T) {
	srv := newWSServer(t, "good-token", func(_ int32, conn *websocket.Conn) {
		writeFrame(conn, wstypes.EventTypeBookingCreated, map[string]any{
			"id":        "b1",
			"note":      "pickup <script>alert(1)</script>at gate",
			"link":      "javascript:alert(1)",
			"__proto__": map[string]any{"admin": true},
			"stops": []any{
				map[string]any{"label": `<img src=x onerror=alert(1)>`, "constructor": "x"},
			},
		})
	})

	c := NewClient(Config{URL: srv.url()}, staticToken("good-token"), nil)
	events, stop := c.Subscribe(wstypes.EventTypeBookingCreated, 1)
	defer stop()

	require.NoError(t, c.Connect(context.Background()))
	defer c.Disconnect()
	assert.Equal(t, StateConnected, c.State())

	ev := waitFor(t, events)
	data, ok := ev.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "b1", data["id"])
	assert.Equal(t, "pickup at gate", data["note"])
	assert.Equal(t, "alert(1)", data["link"])
	assert.NotContains(t, data, "__proto__")

	stops := data["stops"].([]any)
	stop0 := stops[0].(map[string]any)
	assert.NotContains(t, stop0, "constructor")
	assert.NotContains(t, stop0["label"], "onerror")
}

func TestConnect_AuthRejectedWaitsTokenRetryDelay(t *testing.T) {
	srv := newWSServer(t, "good-token", nil)
	timer := &recordingTimer{}
	c := NewClient(Config{URL: srv.url(), TokenRetryDelay: 45 * time.Second}, staticToken("stale"), nil,
		WithAfterFunc(timer.after))

	err := c.Connect(context.Background())
	assert.ErrorIs(t, err, xerrors.ErrAuthRejected)
	assert.Equal(t, []time.Duration{45 * time.Second}, timer.snapshot())
	assert.Equal(t, StateReconnecting, c.State())
	c.Disconnect()
}

func TestConnect_AuthErrorWithUnreadableDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := (&websocket.Upgrader{}).Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var auth wstypes.Message
		if err := conn.ReadJSON(&auth); err != nil {
			return
		}
		conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"auth_error","data":"token revoked"}`))
	}))
	t.Cleanup(srv.Close)

	core, logs := observer.New(zapcore.DebugLevel)
	timer := &recordingTimer{}
	c := NewClient(Config{URL: "ws" + strings.TrimPrefix(srv.URL, "http")}, staticToken("stale"), zap.New(core),
		WithAfterFunc(timer.after))

	err := c.Connect(context.Background())
	assert.ErrorIs(t, err, xerrors.ErrAuthRejected)
	assert.Equal(t, 1, logs.FilterMessage("auth_error frame without readable detail").Len())
	assert.Equal(t, 1, logs.FilterMessage("realtime auth rejected").Len())
	c.Disconnect()
}

func TestReconnect_RejoinsRooms(t *testing.T) {
	srv := newWSServer(t, "good-token", func(n int32, conn *websocket.Conn) {
		if n == 1 {
			time.Sleep(100 * time.Millisecond)
			// Drop without a close frame.
			conn.UnderlyingConn().Close()
		}
	})
	timer := &recordingTimer{immediate: true}
	c := NewClient(Config{URL: srv.url(), BaseDelay: time.Millisecond}, staticToken("good-token"), nil,
		WithAfterFunc(timer.after))

	connected, stop := c.Subscribe(wstypes.EventTypeConnected, 2)
	defer stop()

	require.NoError(t, c.SubscribeToBooking("b1"))
	require.NoError(t, c.Connect(context.Background()))
	defer c.Disconnect()
	waitFor(t, connected)

	select {
	case room := <-srv.joins:
		assert.Equal(t, "booking:b1", room)
	case <-time.After(3 * time.Second):
		t.Fatal("room not joined on first connect")
	}

	waitFor(t, connected)
	select {
	case room := <-srv.joins:
		assert.Equal(t, "booking:b1", room)
	case <-time.After(3 * time.Second):
		t.Fatal("room not re-joined after reconnect")
	}
	assert.Equal(t, []time.Duration{time.Millisecond}, timer.snapshot())
}

func TestForceDisconnect_IsTerminal(t *testing.T) {
	srv := newWSServer(t, "good-token", func(_ int32, conn *websocket.Conn) {
		writeFrame(conn, wstypes.EventTypeForceDisconnect, wstypes.ForceDisconnectData{Reason: "account suspended"})
	})
	timer := &recordingTimer{}
	c := NewClient(Config{URL: srv.url()}, staticToken("good-token"), nil, WithAfterFunc(timer.after))

	forced, stop := c.Subscribe(wstypes.EventTypeForceDisconnect, 1)
	defer stop()

	require.NoError(t, c.Connect(context.Background()))
	ev := waitFor(t, forced)

	var data wstypes.ForceDisconnectData
	require.NoError(t, ev.Decode(&data))
	assert.Equal(t, "account suspended", data.Reason)

	require.Eventually(t, func() bool { return c.State() == StateDisconnected }, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, timer.snapshot())
}

func TestEmit_RequiresConnection(t *testing.T) {
	c := NewClient(Config{URL: deadURL(t)}, staticToken("tok"), nil)
	err := c.BroadcastToDrivers(wstypes.DriverBroadcastData{Message: "hello"})
	assert.ErrorIs(t, err, xerrors.ErrNotConnected)

	err = c.BroadcastToDrivers(wstypes.DriverBroadcastData{})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)

	err = c.SendSupportMessage("", "hi")
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestRooms_RecordedWhileOffline(t *testing.T) {
	c := NewClient(Config{URL: deadURL(t)}, staticToken("tok"), nil)
	require.NoError(t, c.SubscribeToEmergencies())
	require.NoError(t, c.SubscribeToDriver("d9"))
	require.NoError(t, c.SubscribeToSupportTicket("t3"))
	assert.Equal(t, []string{"driver:d9", "emergencies", "support:t3"}, c.Rooms())

	require.NoError(t, c.UnsubscribeFromDriver("d9"))
	assert.Equal(t, []string{"emergencies", "support:t3"}, c.Rooms())

	assert.Error(t, c.JoinRoom("  "))
}

func TestOnOff(t *testing.T) {
	c := NewClient(Config{URL: deadURL(t)}, staticToken("tok"), nil)

	var hits atomic.Int32
	l := c.On(wstypes.EventTypeDriverStatus, func(Event) { hits.Add(1) })
	c.On(AnyEvent, func(Event) { hits.Add(10) })
	c.On(wstypes.EventTypeDriverStatus, func(Event) { panic("listener bug") })

	c.listeners.dispatch(Event{Name: wstypes.EventTypeDriverStatus})
	assert.Equal(t, int32(11), hits.Load())

	c.Off(wstypes.EventTypeDriverStatus, l)
	assert.Equal(t, 1, c.listeners.count(wstypes.EventTypeDriverStatus))

	c.Off(wstypes.EventTypeDriverStatus, nil)
	assert.Equal(t, 0, c.listeners.count(wstypes.EventTypeDriverStatus))
}
