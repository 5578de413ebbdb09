package feed

import (
	"context"
	"sync"
)

// Phase is the connection lifecycle phase of a price feed.
type Phase string

const (
	PhaseDisconnected       Phase = "disconnected"
	PhaseConnecting         Phase = "connecting"
	PhaseConnected          Phase = "connected"
	PhaseReconnectScheduled Phase = "reconnect-scheduled"
)

// Tick is one (asset id, price) observation delivered by the feed.
type Tick struct {
	Asset string
	Price float64
}

type EventKind int

const (
	// EventConnected fires once per successful (re)connection, before any tick
	// from that connection. Consumers reset per-asset comparison state on it.
	EventConnected EventKind = iota
	// EventDisconnected fires when an established connection is lost or torn down.
	EventDisconnected
	// EventTick carries one decoded price observation.
	EventTick
	// EventError carries a transport, dial or decode error. Errors are
	// informational; recovery happens inside the feed.
	EventError
)

// Event is the ordered outward message of a feed. Within one connection's
// lifetime ticks are delivered in transport order, and EventConnected always
// precedes the first tick of that connection.
type Event struct {
	Kind EventKind
	Tick Tick
	Err  error
}

// PriceFeed is a self-healing streaming source of price ticks.
type PriceFeed interface {
	// Run owns the connection lifecycle until ctx is done. It must be started
	// before Connect has any effect.
	Run(ctx context.Context)
	// Connect opens the transport. Idempotent: an existing connection or
	// in-flight attempt is torn down first.
	Connect()
	// Disconnect tears everything down, cancels any pending reconnect, and
	// guarantees no further event from the old connection is delivered. The
	// feed stays down until Connect is called again.
	Disconnect()
	Events() <-chan Event
	Connected() bool
	Phase() Phase
	// LastError reports the most recent transport or dial error, cleared on
	// successful connect.
	LastError() error
}

// ---------- Test/mock feed (handy for server tests & demos) ----------

type MockFeed struct {
	mu     sync.Mutex
	events chan Event
	phase  Phase
	ctx    context.Context
	cancel context.CancelFunc
}

func NewMockFeed() *MockFeed {
	return &MockFeed{
		events: make(chan Event, 64),
		phase:  PhaseDisconnected,
	}
}

func (m *MockFeed) Run(ctx context.Context) {
	m.ctx, m.cancel = context.WithCancel(ctx)
	<-m.ctx.Done()
	close(m.events)
}

func (m *MockFeed) Connect() {
	m.mu.Lock()
	m.phase = PhaseConnected
	m.mu.Unlock()
	m.events <- Event{Kind: EventConnected}
}

func (m *MockFeed) Disconnect() {
	m.mu.Lock()
	m.phase = PhaseDisconnected
	m.mu.Unlock()
	m.events <- Event{Kind: EventDisconnected}
}

func (m *MockFeed) Events() <-chan Event { return m.events }

func (m *MockFeed) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase == PhaseConnected
}

func (m *MockFeed) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

func (m *MockFeed) LastError() error { return nil }

// Helpers for tests
func (m *MockFeed) SendTick(asset string, price float64) {
	m.events <- Event{Kind: EventTick, Tick: Tick{Asset: asset, Price: price}}
}
func (m *MockFeed) SendError(err error) { m.events <- Event{Kind: EventError, Err: err} }
