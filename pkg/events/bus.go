package events

import (
	"sync"
	"time"
)

// EventBus provides publish/subscribe for scan events.
type EventBus interface {
	Publish(event Event)
	Subscribe(filter ...EventType) <-chan Event
	Unsubscribe(ch <-chan Event)
	History(since time.Time) []Event
	Scan(scanID string) []Event
}

// DefaultHistoryLimit bounds how many events a MemoryBus retains.
const DefaultHistoryLimit = 4096

type subscriber struct {
	ch     chan Event
	filter map[EventType]bool // empty means all events
}

func (s subscriber) wants(t EventType) bool {
	return len(s.filter) == 0 || s.filter[t]
}

// MemoryBus is an in-memory EventBus. It keeps the most recent events
// up to its history limit.
type MemoryBus struct {
	mu          sync.RWMutex
	subscribers []subscriber
	history     []Event
	limit       int
}

// NewMemoryBus creates a bus that retains up to limit events. A
// non-positive limit uses DefaultHistoryLimit.
func NewMemoryBus(limit int) *MemoryBus {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &MemoryBus{
		history: make([]Event, 0, 256),
		limit:   limit,
	}
}

func (b *MemoryBus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.Lock()
	b.history = append(b.history, event)
	if over := len(b.history) - b.limit; over > 0 {
		b.history = append(b.history[:0:0], b.history[over:]...)
	}
	subs := make([]subscriber, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.Unlock()

	for _, sub := range subs {
		if !sub.wants(event.Type) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			// Slow subscribers miss events rather than stall the scan.
		}
	}
}

func (b *MemoryBus) Subscribe(filter ...EventType) <-chan Event {
	ch := make(chan Event, 64)
	sub := subscriber{ch: ch}
	if len(filter) > 0 {
		sub.filter = make(map[EventType]bool, len(filter))
		for _, f := range filter {
			sub.filter[f] = true
		}
	}

	b.mu.Lock()
	b.subscribers = append(b.subscribers, sub)
	b.mu.Unlock()

	return ch
}

func (b *MemoryBus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subscribers {
		if sub.ch == ch {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			close(sub.ch)
			return
		}
	}
}

func (b *MemoryBus) History(since time.Time) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var result []Event
	for _, e := range b.history {
		if !e.Timestamp.Before(since) {
			result = append(result, e)
		}
	}
	return result
}

// Scan returns the retained events of one scan in publish order.
func (b *MemoryBus) Scan(scanID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var result []Event
	for _, e := range b.history {
		if e.ScanID == scanID {
			result = append(result, e)
		}
	}
	return result
}

// Discard is an EventBus that drops everything.
type Discard struct{}

func (Discard) Publish(Event) {}

func (Discard) Subscribe(...EventType) <-chan Event { return make(chan Event) }

func (Discard) Unsubscribe(<-chan Event) {}

func (Discard) History(time.Time) []Event { return nil }

func (Discard) Scan(string) []Event { return nil }
