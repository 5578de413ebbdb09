package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"pulse-dashboard/internal/alert"
	"pulse-dashboard/internal/feed"
	"pulse-dashboard/internal/notify"
	"pulse-dashboard/internal/state"
)

type recordingBroadcaster struct {
	mu     sync.Mutex
	prices []float64
	errs   []string
	status int
}

func (r *recordingBroadcaster) BroadcastStatus() {
	r.mu.Lock()
	r.status++
	r.mu.Unlock()
}

func (r *recordingBroadcaster) BroadcastPrice(_ string, price float64) {
	r.mu.Lock()
	r.prices = append(r.prices, price)
	r.mu.Unlock()
}

func (r *recordingBroadcaster) BroadcastError(msg string) {
	r.mu.Lock()
	r.errs = append(r.errs, msg)
	r.mu.Unlock()
}

type harness struct {
	mock   *feed.MockFeed
	st     *state.State
	notifs *notify.Log
	bc     *recordingBroadcaster
	done   chan struct{}
	cancel context.CancelFunc
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{
		mock:   feed.NewMockFeed(),
		st:     state.NewState(),
		notifs: notify.NewLog(50),
		bc:     &recordingBroadcaster{},
		done:   make(chan struct{}),
		cancel: cancel,
	}
	eng := alert.NewEngine(2.0, 5*time.Minute)
	pub := notify.NewPublisher(h.notifs, slog.Default())
	go h.mock.Run(ctx)
	go func() {
		Run(h.mock.Events(), eng, h.st, pub, h.bc, slog.Default())
		close(h.done)
	}()
	t.Cleanup(func() {
		cancel()
		<-h.done
	})
	return h
}

// settle waits until the pipeline has drained everything sent so far.
func (h *harness) settle(t *testing.T, check func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never reached")
}

func TestTickFlowProducesAlertAndStateUpdate(t *testing.T) {
	h := newHarness(t)

	h.mock.Connect()
	h.mock.SendTick("bitcoin", 100)
	h.mock.SendTick("bitcoin", 103)

	h.settle(t, func() bool { return h.notifs.Len() == 1 })
	n := h.notifs.List()[0]
	for _, want := range []string{"BITCOIN", "increased", "3.00%", "$103.00"} {
		if !strings.Contains(n.Message, want) {
			t.Fatalf("message %q missing %q", n.Message, want)
		}
	}
	if p, _ := h.st.Price("bitcoin"); p != 103 {
		t.Fatalf("state price got %v", p)
	}
}

func TestSubThresholdTickUpdatesStateOnly(t *testing.T) {
	h := newHarness(t)

	h.mock.Connect()
	h.mock.SendTick("bitcoin", 100)
	h.mock.SendTick("bitcoin", 100.5)

	h.settle(t, func() bool {
		p, ok := h.st.Price("bitcoin")
		return ok && p == 100.5
	})
	if h.notifs.Len() != 0 {
		t.Fatal("+0.5% must not alert")
	}
}

func TestReconnectResetsComparisonState(t *testing.T) {
	h := newHarness(t)

	h.mock.Connect()
	h.mock.SendTick("bitcoin", 100)
	h.mock.Disconnect()
	h.mock.Connect()
	// First tick of the new era: no alert even though it is +50% vs the
	// pre-disconnect price.
	h.mock.SendTick("bitcoin", 150)

	h.settle(t, func() bool {
		p, ok := h.st.Price("bitcoin")
		return ok && p == 150
	})
	if h.notifs.Len() != 0 {
		t.Fatal("tick straddling a reconnect must not alert")
	}
	if !h.st.Connected() {
		t.Fatal("connected flag should track the feed")
	}
}

func TestFeedErrorsAreSurfacedNotFatal(t *testing.T) {
	h := newHarness(t)

	h.mock.Connect()
	h.mock.SendError(errors.New("decode frame: boom"))
	h.mock.SendTick("bitcoin", 100)

	h.settle(t, func() bool {
		_, ok := h.st.Price("bitcoin")
		return ok
	})
	h.bc.mu.Lock()
	defer h.bc.mu.Unlock()
	if len(h.bc.errs) != 1 || !strings.Contains(h.bc.errs[0], "boom") {
		t.Fatalf("errs got %v", h.bc.errs)
	}
}
