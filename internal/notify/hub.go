package notify

import (
	"context"
	"sync"
)

// MaxPending bounds how many toasts a hub keeps while nobody listens.
const MaxPending = 32

// Hub delivers toasts of one browser session. With live subscribers every
// toast goes to each of them that has room; a toast no subscriber accepted
// queues until the next page render drains it or a subscriber connects.
type Hub struct {
	mu      sync.Mutex
	pending []Toast
	subs    map[chan Toast]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Toast]struct{})}
}

func (h *Hub) Notify(_ context.Context, t Toast) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.subs) == 0 {
		h.enqueue(t)
		return
	}
	delivered := false
	for ch := range h.subs {
		select {
		case ch <- t:
			delivered = true
		default:
			// slow subscriber; skip it rather than block
		}
	}
	if !delivered {
		h.enqueue(t)
	}
}

func (h *Hub) enqueue(t Toast) {
	if len(h.pending) == MaxPending {
		h.pending = h.pending[1:]
	}
	h.pending = append(h.pending, t)
}

// Drain returns the queued toasts and empties the queue.
func (h *Hub) Drain() []Toast {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.pending
	h.pending = nil
	return out
}

// Subscribe registers a listener. Queued toasts are delivered first. The
// returned cancel func unregisters and closes the channel; it is safe to
// call more than once.
func (h *Hub) Subscribe() (<-chan Toast, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Toast, MaxPending)
	for _, t := range h.pending {
		ch <- t
	}
	h.pending = nil
	h.subs[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers reports how many listeners are attached.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
