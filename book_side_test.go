package lit

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustOrder(t *testing.T, id uint64, side Side, price string, quantity uint64, owner int64) *Order {
	t.Helper()
	order, err := newOrder(id, side, decimal.RequireFromString(price), quantity, owner, Limit, 0)
	require.NoError(t, err)
	return order
}

func TestBookSideInsertAndPeek(t *testing.T) {
	ticks := newTickTable(DefaultTickSize)

	t.Run("bids best is highest tick", func(t *testing.T) {
		bids := newBidSide(ticks)
		for i, price := range []string{"10.00", "12.00", "11.00"} {
			order := mustOrder(t, uint64(i), Buy, price, 100, 1)
			bids.insertOrder(order, ticks.tick(order.Price))
		}

		best := bids.peekBest()
		require.NotNil(t, best)
		assert.True(t, decimal.RequireFromString("12.00").Equal(best.Price))
		assert.Equal(t, int64(3), bids.orderCount())
		assert.Equal(t, int64(3), bids.depthCount())
	})

	t.Run("asks best is lowest tick", func(t *testing.T) {
		asks := newAskSide(ticks)
		for i, price := range []string{"10.00", "12.00", "11.00"} {
			order := mustOrder(t, uint64(i), Sell, price, 100, 1)
			asks.insertOrder(order, ticks.tick(order.Price))
		}

		best := asks.peekBest()
		require.NotNil(t, best)
		assert.True(t, decimal.RequireFromString("10.00").Equal(best.Price))
	})

	t.Run("time priority within a level", func(t *testing.T) {
		bids := newBidSide(ticks)
		for id := uint64(0); id < 5; id++ {
			order := mustOrder(t, id, Buy, "10.00", 100+id, 1)
			bids.insertOrder(order, ticks.tick(order.Price))
		}

		assert.Equal(t, int64(1), bids.depthCount())
		assert.Equal(t, uint64(0), bids.peekBest().ID)

		// Remove from the front, arrival order must hold.
		for id := uint64(0); id < 5; id++ {
			assert.Equal(t, id, bids.peekBest().ID)
			require.NoError(t, bids.removeOrder(id))
		}
		assert.Nil(t, bids.peekBest())
	})

	t.Run("empty side", func(t *testing.T) {
		asks := newAskSide(ticks)
		assert.Nil(t, asks.peekBest())
		assert.Nil(t, asks.bestLevel())
		assert.Equal(t, int64(0), asks.orderCount())
	})
}

func TestBookSideRemove(t *testing.T) {
	ticks := newTickTable(DefaultTickSize)
	bids := newBidSide(ticks)

	o1 := mustOrder(t, 1, Buy, "10.00", 100, 1)
	o2 := mustOrder(t, 2, Buy, "10.00", 200, 2)
	o3 := mustOrder(t, 3, Buy, "9.00", 300, 3)
	for _, o := range []*Order{o1, o2, o3} {
		bids.insertOrder(o, ticks.tick(o.Price))
	}

	t.Run("remove middle keeps level intact", func(t *testing.T) {
		require.NoError(t, bids.removeOrder(1))
		assert.Nil(t, bids.order(1))
		assert.Equal(t, int64(2), bids.orderCount())

		level := bids.bestLevel()
		require.NotNil(t, level)
		assert.Equal(t, uint64(200), level.totalQuantity)
		assert.Equal(t, int64(1), level.count)
	})

	t.Run("removing last order drops the level", func(t *testing.T) {
		require.NoError(t, bids.removeOrder(2))
		assert.Equal(t, int64(1), bids.depthCount())
		assert.Equal(t, uint64(3), bids.peekBest().ID)
	})

	t.Run("unknown id", func(t *testing.T) {
		assert.ErrorIs(t, bids.removeOrder(42), ErrNotFound)
	})
}

func TestBookSideReduceQuantity(t *testing.T) {
	ticks := newTickTable(DefaultTickSize)
	asks := newAskSide(ticks)

	o1 := mustOrder(t, 1, Sell, "10.00", 100, 1)
	o2 := mustOrder(t, 2, Sell, "10.00", 200, 2)
	asks.insertOrder(o1, ticks.tick(o1.Price))
	asks.insertOrder(o2, ticks.tick(o2.Price))

	t.Run("reduce preserves queue position", func(t *testing.T) {
		require.NoError(t, asks.reduceQuantity(1, 40))
		assert.Equal(t, uint64(40), asks.order(1).Quantity)
		assert.Equal(t, uint64(1), asks.peekBest().ID)

		level := asks.bestLevel()
		assert.Equal(t, uint64(240), level.totalQuantity)
		assert.Equal(t, int64(2), level.count)
	})

	t.Run("reduce to zero or up is invalid", func(t *testing.T) {
		assert.ErrorIs(t, asks.reduceQuantity(1, 0), ErrInvalidParam)
		assert.ErrorIs(t, asks.reduceQuantity(1, 40), ErrInvalidParam)
		assert.ErrorIs(t, asks.reduceQuantity(1, 500), ErrInvalidParam)
	})

	t.Run("unknown id", func(t *testing.T) {
		assert.ErrorIs(t, asks.reduceQuantity(9, 10), ErrNotFound)
	})
}

func TestBookSideIndexConsistency(t *testing.T) {
	ticks := newTickTable(DefaultTickSize)
	bids := newBidSide(ticks)

	for id := uint64(0); id < 10; id++ {
		price := "10.00"
		if id%2 == 0 {
			price = "11.00"
		}
		order := mustOrder(t, id, Buy, price, 100, 1)
		bids.insertOrder(order, ticks.tick(order.Price))
	}

	// Every indexed order must be reachable by walking the levels, and the
	// walk must find nothing the index does not know.
	walked := 0
	for _, order := range bids.snapshotOrders() {
		walked++
		assert.NotNil(t, bids.order(order.ID))
	}
	assert.Equal(t, int(bids.orderCount()), walked)

	require.NoError(t, bids.removeOrder(4))
	assert.Nil(t, bids.order(4))
	assert.Equal(t, int(bids.orderCount()), len(bids.snapshotOrders()))
}

func TestBookSideDepth(t *testing.T) {
	ticks := newTickTable(DefaultTickSize)
	asks := newAskSide(ticks)

	prices := []string{"10.00", "10.00", "11.00", "12.00"}
	for i, price := range prices {
		order := mustOrder(t, uint64(i), Sell, price, 100, 1)
		asks.insertOrder(order, ticks.tick(order.Price))
	}

	depth := asks.depth(0)
	require.Len(t, depth, 3)
	assert.True(t, decimal.RequireFromString("10.00").Equal(depth[0].Price))
	assert.Equal(t, uint64(200), depth[0].Quantity)
	assert.Equal(t, int64(2), depth[0].Orders)
	assert.True(t, decimal.RequireFromString("12.00").Equal(depth[2].Price))

	limited := asks.depth(2)
	assert.Len(t, limited, 2)
}
