package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// CoinCapFeed implements PriceFeed against the CoinCap prices stream. The
// subscription (asset set) is encoded in the endpoint URL; no outbound
// messages are needed after dialing.
//
// All lifecycle state (phase, transport, reconnect timer) is owned by a single
// run loop consuming internal events, so transitions never race. Every
// transport goroutine and timer is tagged with a generation number; teardown
// bumps the generation, which drops any event a stale goroutine still posts.
// That is the cancellation guarantee: after Disconnect, nothing from the old
// connection can reach the Events channel.
type CoinCapFeed struct {
	url   string
	delay time.Duration
	log   *slog.Logger

	// dial is swappable in tests.
	dial func(ctx context.Context, url string) (*websocket.Conn, error)

	mu      sync.RWMutex
	phase   Phase
	lastErr error

	cmds chan cmdKind
	raw  chan rawEvent
	out  chan Event

	// Owned exclusively by the run loop.
	gen   int
	conn  *websocket.Conn
	timer *time.Timer

	ctx  context.Context
	done chan struct{}
}

type cmdKind int

const (
	cmdConnect cmdKind = iota
	cmdDisconnect
)

type rawKind int

const (
	rawDialed rawKind = iota
	rawMessage
	rawClosed
	rawTimer
)

type rawEvent struct {
	gen   int
	kind  rawKind
	conn  *websocket.Conn // rawDialed
	data  []byte          // rawMessage
	err   error           // rawDialed failure, rawClosed cause
	clean bool            // rawClosed: closure acknowledged by the peer
}

func NewCoinCapFeed(url string, reconnectDelay time.Duration, logger *slog.Logger) *CoinCapFeed {
	return &CoinCapFeed{
		url:   url,
		delay: reconnectDelay,
		log:   logger,
		dial: func(ctx context.Context, url string) (*websocket.Conn, error) {
			c, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
			return c, err
		},
		phase: PhaseDisconnected,
		cmds:  make(chan cmdKind, 8),
		raw:   make(chan rawEvent, 256),
		out:   make(chan Event, 1024),
		done:  make(chan struct{}),
	}
}

func (f *CoinCapFeed) Events() <-chan Event { return f.out }

func (f *CoinCapFeed) Connected() bool { return f.Phase() == PhaseConnected }

func (f *CoinCapFeed) Phase() Phase {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.phase
}

func (f *CoinCapFeed) LastError() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lastErr
}

func (f *CoinCapFeed) Connect()    { f.post(cmdConnect) }
func (f *CoinCapFeed) Disconnect() { f.post(cmdDisconnect) }

// post queues a command. The channel is buffered so commands issued before
// Run starts are not lost.
func (f *CoinCapFeed) post(c cmdKind) {
	select {
	case f.cmds <- c:
	case <-f.done:
	}
}

// Run is the dispatch loop. It returns when ctx is done, after tearing down
// any live transport and closing the Events channel.
func (f *CoinCapFeed) Run(ctx context.Context) {
	f.ctx = ctx
	defer close(f.out)
	defer close(f.done)
	for {
		select {
		case <-ctx.Done():
			f.teardown()
			f.setPhase(PhaseDisconnected)
			return
		case c := <-f.cmds:
			switch c {
			case cmdConnect:
				f.teardown()
				f.startConnect()
			case cmdDisconnect:
				wasConnected := f.Phase() == PhaseConnected
				f.teardown()
				f.setPhase(PhaseDisconnected)
				if wasConnected {
					f.emit(Event{Kind: EventDisconnected})
				}
			}
		case ev := <-f.raw:
			f.dispatch(ev)
		}
	}
}

// dispatch handles one internal event on the run loop. Stale generations are
// dropped before anything else.
func (f *CoinCapFeed) dispatch(ev rawEvent) {
	if ev.gen != f.gen {
		if ev.kind == rawDialed && ev.conn != nil {
			_ = ev.conn.Close()
		}
		return
	}
	switch ev.kind {
	case rawDialed:
		if ev.err != nil {
			// Instantiation error: same retry path as a transport failure.
			f.setError(ev.err)
			f.emit(Event{Kind: EventError, Err: fmt.Errorf("dial: %w", ev.err)})
			f.scheduleReconnect()
			return
		}
		f.conn = ev.conn
		f.stopTimer()
		f.setPhase(PhaseConnected)
		f.setError(nil)
		f.log.Info("price feed connected", slog.String("url", f.url))
		f.emit(Event{Kind: EventConnected})
		go f.readPump(f.gen, ev.conn)
	case rawMessage:
		ticks, err := decodeTicks(ev.data)
		if err != nil {
			// One bad frame never disrupts the next.
			f.emit(Event{Kind: EventError, Err: err})
			return
		}
		for _, t := range ticks {
			f.emit(Event{Kind: EventTick, Tick: t})
		}
	case rawClosed:
		f.conn = nil
		f.emit(Event{Kind: EventDisconnected})
		if ev.clean {
			f.log.Info("price feed closed cleanly")
			f.setPhase(PhaseDisconnected)
			return
		}
		f.setError(ev.err)
		f.emit(Event{Kind: EventError, Err: fmt.Errorf("transport: %w", ev.err)})
		f.scheduleReconnect()
	case rawTimer:
		f.timer = nil
		f.startConnect()
	}
}

// startConnect opens a new generation and dials off the run loop so commands
// stay responsive during slow dials.
func (f *CoinCapFeed) startConnect() {
	f.gen++
	g := f.gen
	f.setPhase(PhaseConnecting)
	f.log.Info("connecting to price feed", slog.String("url", f.url))
	go func() {
		c, err := f.dial(f.ctx, f.url)
		f.postRaw(rawEvent{gen: g, kind: rawDialed, conn: c, err: err})
	}()
}

// scheduleReconnect arms the single reconnect timer. Fixed delay, no backoff
// growth, no retry limit: the feed is best-effort and total failure is never
// fatal to the host. No-op when a timer is already pending.
func (f *CoinCapFeed) scheduleReconnect() {
	if f.timer != nil {
		return
	}
	f.setPhase(PhaseReconnectScheduled)
	g := f.gen
	f.log.Info("reconnect scheduled", slog.Duration("delay", f.delay))
	f.timer = time.AfterFunc(f.delay, func() {
		f.postRaw(rawEvent{gen: g, kind: rawTimer})
	})
}

// teardown invalidates the current generation: stops the timer, closes the
// transport, and makes every in-flight goroutine's future events stale.
func (f *CoinCapFeed) teardown() {
	f.gen++
	f.stopTimer()
	if f.conn != nil {
		_ = f.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "teardown"))
		_ = f.conn.Close()
		f.conn = nil
	}
}

func (f *CoinCapFeed) stopTimer() {
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}

func (f *CoinCapFeed) readPump(g int, conn *websocket.Conn) {
	conn.SetReadLimit(1 << 20)
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			clean := websocket.IsCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway)
			f.postRaw(rawEvent{gen: g, kind: rawClosed, err: err, clean: clean})
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		f.postRaw(rawEvent{gen: g, kind: rawMessage, data: data})
	}
}

func (f *CoinCapFeed) postRaw(ev rawEvent) {
	select {
	case f.raw <- ev:
	case <-f.ctx.Done():
	}
}

func (f *CoinCapFeed) emit(ev Event) {
	select {
	case f.out <- ev:
	case <-f.ctx.Done():
	}
}

func (f *CoinCapFeed) setPhase(p Phase) {
	f.mu.Lock()
	f.phase = p
	f.mu.Unlock()
}

func (f *CoinCapFeed) setError(err error) {
	f.mu.Lock()
	f.lastErr = err
	f.mu.Unlock()
}

// decodeTicks parses one inbound frame, a flat object of asset id to
// string-encoded decimal price, e.g. {"bitcoin":"29000.12"}. Entries whose
// price is not a finite number are skipped; an unparseable envelope is a
// decode error and the frame is dropped.
func decodeTicks(data []byte) ([]Tick, error) {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	ticks := make([]Tick, 0, len(m))
	for asset, raw := range m {
		p, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(p) || math.IsInf(p, 0) {
			continue
		}
		ticks = append(ticks, Tick{Asset: asset, Price: p})
	}
	return ticks, nil
}
