package seed

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-orders/internal/domain"
	"restaurant-orders/internal/store"
	"restaurant-orders/internal/store/memory"
)

var now = time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

func TestInitializeMockData(t *testing.T) {
	st := memory.New(nil)
	ctx := context.Background()

	ids, err := InitializeMockData(ctx, st, st, now, time.UTC)
	require.NoError(t, err)
	assert.Len(t, ids, len(samples))

	active, err := st.FindOrders(ctx, store.Active())
	require.NoError(t, err)
	require.Len(t, active, len(samples))
	assert.Equal(t, 15, active[0].TableNumber, "oldest first")
	assert.Equal(t, domain.StatusReady, active[0].Status)

	var withETA int
	for _, o := range active {
		if _, ok := o.RemainingETA(now); ok {
			withETA++
		}
	}
	assert.Equal(t, 3, withETA)

	served, err := st.ServedItems(ctx, "2024-03-09")
	require.NoError(t, err)
	assert.Len(t, served, 3)
}

type captured struct{ in domain.OrderInput }

func (c *captured) CreateOrder(_ context.Context, in domain.OrderInput) (string, error) {
	c.in = in
	return "o-1", nil
}

func TestSimulateNewOrder(t *testing.T) {
	c := &captured{}
	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		id, err := SimulateNewOrder(context.Background(), c, rnd)
		require.NoError(t, err)
		assert.Equal(t, "o-1", id)

		require.Len(t, c.in.Items, 1)
		q := c.in.Items[0].Quantity
		assert.True(t, q >= 1 && q <= 3)
		assert.True(t, c.in.TableNumber >= 1 && c.in.TableNumber <= 20)
		_, err = domain.NewOrder(c.in, now)
		assert.NoError(t, err)
	}
}
