package notify

import (
	"fmt"
	"sync"
	"time"
)

type Category string

const (
	CategoryPriceAlert   Category = "price_alert"
	CategoryWeatherAlert Category = "weather_alert"
	CategoryInfo         Category = "info"
	CategoryError        Category = "error"
)

// Notification is an immutable alert record; only the read flag ever changes
// after creation.
type Notification struct {
	ID            string   `json:"id"`
	Category      Category `json:"type"`
	Message       string   `json:"message"`
	Timestamp     int64    `json:"timestamp"` // unix millis
	Read          bool     `json:"read"`
	RelatedItemID string   `json:"relatedItemId,omitempty"`
}

// Log is a bounded, newest-first notification log. Appending beyond capacity
// evicts the oldest entry. IDs are unique within a process run, assigned from
// a counter owned by the log.
type Log struct {
	mu       sync.RWMutex
	capacity int
	items    []Notification // index 0 is newest
	nextID   int
}

func NewLog(capacity int) *Log {
	if capacity < 1 {
		capacity = 1
	}
	return &Log{capacity: capacity}
}

// Add builds and stores a new unread notification, returning a copy of it.
func (l *Log) Add(category Category, message, relatedItemID string) Notification {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := Notification{
		ID:            fmt.Sprintf("notif-%d", l.nextID),
		Category:      category,
		Message:       message,
		Timestamp:     time.Now().UnixMilli(),
		RelatedItemID: relatedItemID,
	}
	l.nextID++
	l.items = append([]Notification{n}, l.items...)
	if len(l.items) > l.capacity {
		l.items = l.items[:l.capacity]
	}
	return n
}

// MarkRead flips the read flag for one notification. Reports whether the id
// was found.
func (l *Log) MarkRead(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.items {
		if l.items[i].ID == id {
			l.items[i].Read = true
			return true
		}
	}
	return false
}

func (l *Log) ClearAll() {
	l.mu.Lock()
	l.items = nil
	l.mu.Unlock()
}

// ClearRead removes read notifications, keeping unread ones in order.
func (l *Log) ClearRead() {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.items[:0]
	for _, n := range l.items {
		if !n.Read {
			kept = append(kept, n)
		}
	}
	l.items = kept
}

// List returns a copy of the log, newest first.
func (l *Log) List() []Notification {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Notification, len(l.items))
	copy(out, l.items)
	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}
