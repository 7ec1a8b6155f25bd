package feed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_FiltersAndCoalesces(t *testing.T) {
	h := NewHub()
	ctx := context.Background()

	orders, cancelOrders := h.Subscribe(InCollection(Orders))
	defer cancelOrders()
	one, cancelOne := h.Subscribe(Document(Orders, "o-1"))
	defer cancelOne()

	require.NoError(t, h.Publish(ctx, Change{Collection: Orders, Key: "o-2"}))
	require.NoError(t, h.Publish(ctx, Change{Collection: Orders, Key: "o-3"}))
	require.NoError(t, h.Publish(ctx, Change{Collection: ServedItems, Key: "Pizza", Partition: "2025-03-14"}))

	got := <-orders
	assert.Equal(t, "o-2", got.Key)
	select {
	case c := <-orders:
		t.Fatalf("expected coalesced delivery, got %+v", c)
	default:
	}
	select {
	case c := <-one:
		t.Fatalf("unexpected change for o-1 subscriber: %+v", c)
	default:
	}

	require.NoError(t, h.Publish(ctx, Change{Collection: Orders, Key: "o-1"}))
	assert.Equal(t, "o-1", (<-one).Key)
}

func TestHub_Cancel(t *testing.T) {
	h := NewHub()
	_, cancel := h.Subscribe(nil)
	assert.Equal(t, 1, h.Len())
	cancel()
	cancel()
	assert.Equal(t, 0, h.Len())
}

func TestInPartition(t *testing.T) {
	m := InPartition(PopularItems, "2025-03-14")
	assert.True(t, m(Change{Collection: PopularItems, Partition: "2025-03-14"}))
	assert.False(t, m(Change{Collection: PopularItems, Partition: "2025-03-15"}))
	assert.False(t, m(Change{Collection: ServedItems, Partition: "2025-03-14"}))
}

func TestParseNotification(t *testing.T) {
	c, err := ParseNotification(`{"collection":"served_items","key":"Pizza","partition":"2024-03-09","op":"UPDATE"}`)
	require.NoError(t, err)
	assert.Equal(t, Change{Collection: ServedItems, Key: "Pizza", Partition: "2024-03-09", Op: "UPDATE"}, c)

	_, err = ParseNotification(`{"key":"x"}`)
	assert.Error(t, err)
	_, err = ParseNotification(`not json`)
	assert.Error(t, err)
}

func TestResyncReachesDocumentMatchers(t *testing.T) {
	resync := Change{Collection: Orders, Op: OpResync}
	assert.True(t, Document(Orders, "o-1")(resync))
	assert.False(t, Document(ServedItems, "o-1")(resync))
	assert.True(t, InPartition(PopularItems, "2024-03-09")(Change{Collection: PopularItems, Op: OpResync}))
}
