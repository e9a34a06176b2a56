package eventlog

import (
	"context"
	"sync"
)

const defaultBufferSize = 100

type subscription struct {
	draftID string
	ch      chan Event
}

// Bus is an in-memory publish/subscribe fan-out. Publishing never blocks: a
// subscriber whose buffer is full misses the event.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]subscription
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]subscription)}
}

// Subscribe registers interest in events for draftID, or in every event when
// draftID is empty. The returned cancel function closes the channel.
func (b *Bus) Subscribe(draftID string) (<-chan Event, func()) {
	ch := make(chan Event, defaultBufferSize)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = subscription{draftID: draftID, ch: ch}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Subscribers returns the number of live subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Log publishes ev to matching subscribers.
func (b *Bus) Log(_ context.Context, ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if sub.draftID != "" && sub.draftID != ev.DraftID {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
		}
	}
}
