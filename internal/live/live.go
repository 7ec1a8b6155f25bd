// Package live turns a change feed plus a query into a live query: the handler
// sees the full result once on start and again after every matching change.
package live

import (
	"context"
	"sync"

	"restaurant-orders/internal/common/logger"
	"restaurant-orders/internal/feed"
)

// Fetch runs the query. It is called on the subscription goroutine.
type Fetch[T any] func(ctx context.Context) (T, error)

// Subscription is a running live query.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Watch registers on src and starts delivering. The registration happens
// before the initial fetch, so a write that lands between the two is seen.
// A failed fetch is logged and skipped; the previous result stays current
// for the handler until the next change.
//
// handle runs on one goroutine, never concurrently with itself. It must not
// call Stop on its own subscription.
func Watch[T any](ctx context.Context, src feed.Source, match feed.Matcher, fetch Fetch[T], handle func(T)) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{cancel: cancel, done: make(chan struct{})}
	changes, unsubscribe := src.Subscribe(match)
	log := logger.New("live")

	go func() {
		defer close(s.done)
		defer unsubscribe()

		deliver := func() {
			v, err := fetch(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Error("live_fetch_failed", err, nil)
				}
				return
			}
			if ctx.Err() != nil {
				return
			}
			handle(v)
		}

		deliver()
		for {
			select {
			case <-ctx.Done():
				return
			case <-changes:
				deliver()
			}
		}
	}()
	return s
}

// Stop cancels the subscription and waits until the handler is no longer
// running. No handler call starts after Stop returns. Safe to call more than once.
func (s *Subscription) Stop() {
	s.once.Do(s.cancel)
	<-s.done
}

// Done is closed once the subscription has fully stopped, either through
// Stop or because the parent context ended.
func (s *Subscription) Done() <-chan struct{} { return s.done }
