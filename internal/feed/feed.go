package feed

import (
	"context"
	"sync"
)

// Collections that emit changes.
const (
	Orders       = "orders"
	ServedItems  = "served_items"
	PopularItems = "popular_items"
)

// Change says a document in Collection was written. Partition is the report
// date for aggregate collections and empty for orders.
type Change struct {
	Collection string `json:"collection"`
	Key        string `json:"key"`
	Partition  string `json:"partition,omitempty"`
	Op         string `json:"op,omitempty"`
}

// OpResync marks a change without a concrete document. Every matcher on the
// collection accepts it.
const OpResync = "RESYNC"

// Matcher filters the changes a subscriber cares about.
type Matcher func(Change) bool

func InCollection(name string) Matcher {
	return func(c Change) bool { return c.Collection == name }
}

func InPartition(name, partition string) Matcher {
	return func(c Change) bool {
		return c.Collection == name && (c.Partition == partition || c.Op == OpResync)
	}
}

func Document(name, key string) Matcher {
	return func(c Change) bool {
		return c.Collection == name && (c.Key == key || c.Op == OpResync)
	}
}

// Source is the change subscription primitive of the backing store.
type Source interface {
	Subscribe(match Matcher) (<-chan Change, func())
}

// Publisher receives changes from a store implementation.
type Publisher interface {
	Publish(ctx context.Context, c Change) error
}

// Hub fans changes out to in-process subscribers. Delivery per subscriber is
// coalescing: while a change is pending further matches are dropped, so a
// receive means "at least one matching change since the last receive".
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]*subscriber
}

type subscriber struct {
	match Matcher
	ch    chan Change
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]*subscriber)}
}

func (h *Hub) Subscribe(match Matcher) (<-chan Change, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	s := &subscriber{match: match, ch: make(chan Change, 1)}
	h.subs[id] = s

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

func (h *Hub) Publish(_ context.Context, c Change) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs {
		if s.match != nil && !s.match(c) {
			continue
		}
		select {
		case s.ch <- c:
		default:
		}
	}
	return nil
}

// Len is the number of live registrations.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
