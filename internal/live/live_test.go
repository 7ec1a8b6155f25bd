package live

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-orders/internal/feed"
)

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}
	var zero T
	return zero
}

func TestWatch_InitialAndOnChange(t *testing.T) {
	hub := feed.NewHub()
	var n atomic.Int32
	got := make(chan int32, 8)

	sub := Watch(context.Background(), hub, feed.InCollection(feed.Orders),
		func(context.Context) (int32, error) { return n.Add(1), nil },
		func(v int32) { got <- v })
	defer sub.Stop()

	assert.Equal(t, int32(1), recv(t, got))

	require.NoError(t, hub.Publish(context.Background(), feed.Change{Collection: feed.ServedItems}))
	require.NoError(t, hub.Publish(context.Background(), feed.Change{Collection: feed.Orders, Key: "a"}))
	assert.Equal(t, int32(2), recv(t, got))
}

func TestWatch_StopIsFinal(t *testing.T) {
	hub := feed.NewHub()
	var after atomic.Bool
	var stopped atomic.Bool
	started := make(chan struct{}, 1)

	sub := Watch(context.Background(), hub, nil,
		func(context.Context) (int, error) { return 0, nil },
		func(int) {
			if stopped.Load() {
				after.Store(true)
			}
			select {
			case started <- struct{}{}:
			default:
			}
			time.Sleep(5 * time.Millisecond)
		})
	recv(t, started)

	for i := 0; i < 20; i++ {
		_ = hub.Publish(context.Background(), feed.Change{Collection: feed.Orders})
	}
	sub.Stop()
	stopped.Store(true)

	for i := 0; i < 20; i++ {
		_ = hub.Publish(context.Background(), feed.Change{Collection: feed.Orders})
	}
	time.Sleep(20 * time.Millisecond)
	assert.False(t, after.Load(), "handler ran after Stop returned")
	assert.Equal(t, 0, hub.Len())
	sub.Stop()
}

func TestWatch_ParentContextStops(t *testing.T) {
	hub := feed.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	sub := Watch(ctx, hub, nil,
		func(context.Context) (int, error) { return 0, nil },
		func(int) {})
	cancel()
	recv(t, sub.Done())
	assert.Equal(t, 0, hub.Len())
}

func TestWatch_FetchErrorSkipsHandler(t *testing.T) {
	hub := feed.NewHub()
	var calls atomic.Int32
	fail := atomic.Bool{}
	fail.Store(true)
	got := make(chan string, 4)

	sub := Watch(context.Background(), hub, nil,
		func(context.Context) (string, error) {
			calls.Add(1)
			if fail.Load() {
				return "", errors.New("store down")
			}
			return "ok", nil
		},
		func(v string) { got <- v })
	defer sub.Stop()

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	fail.Store(false)
	_ = hub.Publish(context.Background(), feed.Change{Collection: feed.Orders})
	assert.Equal(t, "ok", recv(t, got))
}

func TestWatch_OverlappingSubscriptionsAreIndependent(t *testing.T) {
	hub := feed.NewHub()
	a := make(chan int, 4)
	b := make(chan int, 4)
	fetch := func(context.Context) (int, error) { return 1, nil }

	subA := Watch(context.Background(), hub, nil, fetch, func(v int) { a <- v })
	subB := Watch(context.Background(), hub, nil, fetch, func(v int) { b <- v })
	recv(t, a)
	recv(t, b)

	subA.Stop()
	_ = hub.Publish(context.Background(), feed.Change{Collection: feed.Orders})
	recv(t, b)
	subB.Stop()
}
