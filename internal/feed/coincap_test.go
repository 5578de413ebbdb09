package feed

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// wsServer is a minimal upgrade-and-hold endpoint; each accepted connection
// is handed to the test for scripting.
type wsServer struct {
	srv   *httptest.Server
	conns chan *websocket.Conn
}

func newWSServer(t *testing.T) *wsServer {
	t.Helper()
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	ws := &wsServer{conns: make(chan *websocket.Conn, 4)}
	ws.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ws.conns <- c
		// Drain until the peer goes away.
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(ws.srv.Close)
	return ws
}

func (ws *wsServer) url() string {
	return "ws" + strings.TrimPrefix(ws.srv.URL, "http")
}

func (ws *wsServer) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-ws.conns:
		return c
	case <-time.After(3 * time.Second):
		t.Fatal("no connection accepted")
		return nil
	}
}

func expectEvent(t *testing.T, ch <-chan Event, kind EventKind) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("events channel closed")
		}
		if ev.Kind != kind {
			t.Fatalf("event kind got %v want %v (err=%v)", ev.Kind, kind, ev.Err)
		}
		return ev
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for event kind %v", kind)
		return Event{}
	}
}

func expectQuiet(t *testing.T, ch <-chan Event, d time.Duration) {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if ok {
			t.Fatalf("unexpected event %v (err=%v)", ev.Kind, ev.Err)
		}
	case <-time.After(d):
	}
}

func startFeed(t *testing.T, url string, delay time.Duration) *CoinCapFeed {
	t.Helper()
	f := NewCoinCapFeed(url, delay, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go f.Run(ctx)
	return f
}

func TestConnectDeliversTicks(t *testing.T) {
	ws := newWSServer(t)
	f := startFeed(t, ws.url(), 100*time.Millisecond)

	f.Connect()
	conn := ws.accept(t)
	expectEvent(t, f.Events(), EventConnected)
	if f.Phase() != PhaseConnected {
		t.Fatalf("phase got %s", f.Phase())
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"bitcoin":"100"}`)); err != nil {
		t.Fatal(err)
	}
	ev := expectEvent(t, f.Events(), EventTick)
	if ev.Tick.Asset != "bitcoin" || ev.Tick.Price != 100 {
		t.Fatalf("tick got %+v", ev.Tick)
	}
}

func TestMalformedFrameDoesNotDisruptStream(t *testing.T) {
	ws := newWSServer(t)
	f := startFeed(t, ws.url(), 100*time.Millisecond)

	f.Connect()
	conn := ws.accept(t)
	expectEvent(t, f.Events(), EventConnected)

	_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"bitcoin":"100"}`))
	_ = conn.WriteMessage(websocket.TextMessage, []byte(`garbage`))
	_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"bitcoin":"103"}`))

	if ev := expectEvent(t, f.Events(), EventTick); ev.Tick.Price != 100 {
		t.Fatalf("tick got %+v", ev.Tick)
	}
	expectEvent(t, f.Events(), EventError)
	if ev := expectEvent(t, f.Events(), EventTick); ev.Tick.Price != 103 {
		t.Fatalf("tick got %+v", ev.Tick)
	}
	if f.Phase() != PhaseConnected {
		t.Fatalf("decode error must not drop the connection, phase %s", f.Phase())
	}
}

func TestAbnormalCloseReconnects(t *testing.T) {
	ws := newWSServer(t)
	f := startFeed(t, ws.url(), 100*time.Millisecond)

	f.Connect()
	conn := ws.accept(t)
	expectEvent(t, f.Events(), EventConnected)

	// Abrupt TCP close, no close handshake: abnormal closure.
	_ = conn.Close()
	expectEvent(t, f.Events(), EventDisconnected)
	expectEvent(t, f.Events(), EventError)

	// The fixed-delay timer brings a new connection up.
	ws.accept(t)
	expectEvent(t, f.Events(), EventConnected)
	if f.LastError() != nil {
		t.Fatal("error must clear on successful reconnect")
	}
}

func TestCleanCloseDoesNotReconnect(t *testing.T) {
	ws := newWSServer(t)
	f := startFeed(t, ws.url(), 100*time.Millisecond)

	f.Connect()
	conn := ws.accept(t)
	expectEvent(t, f.Events(), EventConnected)

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	_ = conn.WriteMessage(websocket.CloseMessage, msg)
	_ = conn.Close()

	expectEvent(t, f.Events(), EventDisconnected)
	expectQuiet(t, f.Events(), 400*time.Millisecond)
	if f.Phase() != PhaseDisconnected {
		t.Fatalf("phase got %s", f.Phase())
	}
}

func TestDisconnectCancelsPendingReconnect(t *testing.T) {
	ws := newWSServer(t)
	f := startFeed(t, ws.url(), 200*time.Millisecond)

	f.Connect()
	conn := ws.accept(t)
	expectEvent(t, f.Events(), EventConnected)

	_ = conn.Close()
	expectEvent(t, f.Events(), EventDisconnected)
	expectEvent(t, f.Events(), EventError)

	// Reconnect is now scheduled; an explicit disconnect must cancel it and
	// silence the old connection for good.
	f.Disconnect()
	expectQuiet(t, f.Events(), 600*time.Millisecond)
	if f.Phase() != PhaseDisconnected {
		t.Fatalf("phase got %s", f.Phase())
	}
	select {
	case <-ws.conns:
		t.Fatal("reconnect fired after explicit disconnect")
	default:
	}
}

func TestDisconnectWhileConnected(t *testing.T) {
	ws := newWSServer(t)
	f := startFeed(t, ws.url(), 100*time.Millisecond)

	f.Connect()
	ws.accept(t)
	expectEvent(t, f.Events(), EventConnected)

	f.Disconnect()
	expectEvent(t, f.Events(), EventDisconnected)
	expectQuiet(t, f.Events(), 400*time.Millisecond)
}

func TestConnectIsIdempotent(t *testing.T) {
	ws := newWSServer(t)
	f := startFeed(t, ws.url(), 100*time.Millisecond)

	f.Connect()
	ws.accept(t)
	expectEvent(t, f.Events(), EventConnected)

	// A second Connect tears the first transport down and opens a new one.
	f.Connect()
	ws.accept(t)
	expectEvent(t, f.Events(), EventConnected)
	if f.Phase() != PhaseConnected {
		t.Fatalf("phase got %s", f.Phase())
	}
}

func TestMockFeed(t *testing.T) {
	m := NewMockFeed()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	m.Connect()
	expectEvent(t, m.Events(), EventConnected)
	if !m.Connected() {
		t.Fatal("mock should report connected")
	}
	m.SendTick("bitcoin", 42)
	if ev := expectEvent(t, m.Events(), EventTick); ev.Tick.Price != 42 {
		t.Fatalf("tick got %+v", ev.Tick)
	}
	m.Disconnect()
	expectEvent(t, m.Events(), EventDisconnected)
}
