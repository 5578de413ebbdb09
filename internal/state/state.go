package state

import (
	"sync"
	"sync/atomic"
)

// State is the display-facing shared state: the latest live price per asset
// and the feed connectivity flag. It is the source of truth for the UI,
// independent of the alerting path; readers only ever see snapshot copies.
type State struct {
	mu     sync.RWMutex
	prices map[string]float64

	connected atomic.Bool
}

func NewState() *State {
	return &State{prices: make(map[string]float64)}
}

// SetPrice records the most recently processed price for an asset,
// overwriting any prior value.
func (s *State) SetPrice(asset string, price float64) {
	s.mu.Lock()
	s.prices[asset] = price
	s.mu.Unlock()
}

// Price returns the latest price for an asset, if one has been observed.
func (s *State) Price(asset string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prices[asset]
	return p, ok
}

// Prices returns a snapshot copy of the live price map.
func (s *State) Prices() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]float64, len(s.prices))
	for k, v := range s.prices {
		out[k] = v
	}
	return out
}

func (s *State) SetConnected(v bool) { s.connected.Store(v) }
func (s *State) Connected() bool     { return s.connected.Load() }
