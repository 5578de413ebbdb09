package alert

import (
	"math"
	"sync"
	"time"
)

// Change describes a significant, admitted price movement for one asset.
type Change struct {
	Asset     string
	Price     float64
	Percent   float64 // signed percentage vs the immediately preceding tick
	Increased bool
	Time      time.Time
}

type assetState struct {
	prevPrice *float64
	lastAlert time.Time // zero value = never alerted, always admits
}

// Engine is the per-asset price change detector and alert throttler. Asset
// state is created lazily on first tick and cleared wholesale on Reset, so a
// comparison never spans a reconnect boundary.
type Engine struct {
	threshold float64 // percent
	cooldown  time.Duration

	mu     sync.Mutex
	assets map[string]*assetState
}

func NewEngine(thresholdPercent float64, cooldown time.Duration) *Engine {
	return &Engine{
		threshold: thresholdPercent,
		cooldown:  cooldown,
		assets:    make(map[string]*assetState),
	}
}

// Evaluate processes one tick. It returns the admitted change, or ok=false
// when the tick is a first observation, below threshold, or inside the
// cooldown window. The stored previous price is always overwritten, and
// admission updates the cooldown timestamp under the same lock, so two
// concurrent ticks for one asset can never both be admitted in one window.
func (e *Engine) Evaluate(asset string, price float64, now time.Time) (Change, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, exists := e.assets[asset]
	if !exists {
		st = &assetState{}
		e.assets[asset] = st
	}
	if st.prevPrice == nil {
		// First observation: nothing to compare against.
		p := price
		st.prevPrice = &p
		return Change{}, false
	}

	prev := *st.prevPrice
	changePercent := (price - prev) / prev * 100
	p := price
	st.prevPrice = &p

	if math.Abs(changePercent) < e.threshold {
		return Change{}, false
	}
	if !st.lastAlert.IsZero() && now.Sub(st.lastAlert) <= e.cooldown {
		return Change{}, false
	}
	st.lastAlert = now
	return Change{
		Asset:     asset,
		Price:     price,
		Percent:   changePercent,
		Increased: changePercent > 0,
		Time:      now,
	}, true
}

// Reset clears all per-asset state. Called on every successful (re)connect so
// stale deltas and cooldowns never survive a disconnect.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.assets = make(map[string]*assetState)
	e.mu.Unlock()
}
