// Package pipeline connects the price feed to the rest of the system: the
// state sink, the change detector and the notification publisher.
package pipeline

import (
	"log/slog"
	"time"

	"pulse-dashboard/internal/alert"
	"pulse-dashboard/internal/feed"
	"pulse-dashboard/internal/notify"
	"pulse-dashboard/internal/state"
)

// Broadcaster pushes pipeline effects to connected dashboard clients.
type Broadcaster interface {
	BroadcastStatus()
	BroadcastPrice(asset string, price float64)
	BroadcastError(msg string)
}

// Run consumes feed events until the channel closes. It is the single
// consumer, so every tick is fully processed (state sink first, then alert
// evaluation) before the next one starts; both effects observe ticks exactly
// once, in delivery order.
func Run(events <-chan feed.Event, eng *alert.Engine, st *state.State,
	pub *notify.Publisher, b Broadcaster, logger *slog.Logger) {
	for ev := range events {
		switch ev.Kind {
		case feed.EventConnected:
			// Fresh connection era: comparisons and cooldowns never span a
			// disconnect boundary.
			eng.Reset()
			st.SetConnected(true)
			b.BroadcastStatus()
		case feed.EventDisconnected:
			st.SetConnected(false)
			b.BroadcastStatus()
		case feed.EventTick:
			// The state sink always sees the tick, whatever alerting decides.
			st.SetPrice(ev.Tick.Asset, ev.Tick.Price)
			b.BroadcastPrice(ev.Tick.Asset, ev.Tick.Price)
			if ch, ok := eng.Evaluate(ev.Tick.Asset, ev.Tick.Price, time.Now()); ok {
				pub.PriceAlert(ch)
			}
		case feed.EventError:
			logger.Error("price feed error", slog.String("err", ev.Err.Error()))
			b.BroadcastError(ev.Err.Error())
		}
	}
}
