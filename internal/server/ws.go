package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	viewerQueue   = 256
	writeDeadline = 10 * time.Second
	pongDeadline  = 60 * time.Second
	pingEvery     = 25 * time.Second
)

// frame is the envelope for every message pushed to the dashboard:
// status, price, notification, toast, error.
type frame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func marshalFrame(t string, v any) []byte {
	b, _ := json.Marshal(frame{Type: t, Data: v})
	return b
}

// viewer is one open dashboard tab.
type viewer struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// hub fans pipeline output out to every open dashboard. A new viewer gets a
// snapshot (feed status, last prices, recent notifications) before any live
// frame, so the page renders without an extra REST round trip.
type hub struct {
	join     chan *viewer
	leave    chan *viewer
	out      chan []byte
	snapshot func() [][]byte
	viewers  map[*viewer]struct{}
	logger   *slog.Logger
}

func newHub(logger *slog.Logger) *hub {
	return &hub{
		join:     make(chan *viewer),
		leave:    make(chan *viewer),
		out:      make(chan []byte, 1024),
		snapshot: func() [][]byte { return nil },
		viewers:  map[*viewer]struct{}{},
		logger:   logger,
	}
}

func (h *hub) send(t string, v any) {
	h.out <- marshalFrame(t, v)
}

func (h *hub) run() {
	for {
		select {
		case v := <-h.join:
			h.viewers[v] = struct{}{}
			for _, b := range h.snapshot() {
				select {
				case v.send <- b:
				default:
				}
			}
			h.logger.Debug("dashboard connected",
				slog.String("viewer", v.id), slog.Int("viewers", len(h.viewers)))
		case v := <-h.leave:
			if _, ok := h.viewers[v]; ok {
				delete(h.viewers, v)
				close(v.send)
			}
		case b := <-h.out:
			for v := range h.viewers {
				select {
				case v.send <- b:
				default:
					// Queue full: the tab stopped reading. Cut it loose
					// rather than stall price updates for everyone else.
					h.logger.Warn("dropping stalled dashboard",
						slog.String("viewer", v.id))
					delete(h.viewers, v)
					close(v.send)
				}
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	HandshakeTimeout:  10 * time.Second,
	ReadBufferSize:    4096,
	WriteBufferSize:   4096,
	CheckOrigin:       func(r *http.Request) bool { return true }, // same-origin SPA
	EnableCompression: true,
}

func (h *hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade", slog.String("err", err.Error()))
		return
	}
	v := &viewer{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, viewerQueue),
	}
	h.join <- v
	go v.writeLoop()
	go v.readLoop(h)
}

// readLoop only services pongs and close frames; the dashboard never sends
// application messages upstream (commands go over the REST API).
func (v *viewer) readLoop(h *hub) {
	defer func() {
		h.leave <- v
		_ = v.conn.Close()
	}()
	v.conn.SetReadLimit(512)
	_ = v.conn.SetReadDeadline(time.Now().Add(pongDeadline))
	v.conn.SetPongHandler(func(string) error {
		return v.conn.SetReadDeadline(time.Now().Add(pongDeadline))
	})
	for {
		if _, _, err := v.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (v *viewer) writeLoop() {
	ping := time.NewTicker(pingEvery)
	defer func() {
		ping.Stop()
		_ = v.conn.Close()
	}()
	for {
		select {
		case b, ok := <-v.send:
			_ = v.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				_ = v.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := v.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ping.C:
			_ = v.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := v.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
