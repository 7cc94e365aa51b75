package lit

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregatedBookFollowsEngine(t *testing.T) {
	engine := newOpenEngine()
	book := NewAggregatedBook()

	placeLimit(t, engine, Buy, "10.00", 100, 1)
	placeLimit(t, engine, Buy, "9.00", 200, 2)
	placeLimit(t, engine, Sell, "11.00", 50, 3)

	book.Rebuild(engine.L2())
	assert.Equal(t, engine.L2().UpdateID, book.UpdateID())

	local := book.L2()
	require.Len(t, local.Bids, 2)
	require.Len(t, local.Asks, 1)
	assert.True(t, decimal.RequireFromString("10.00").Equal(local.Bids[0].Price))
	assert.Equal(t, uint64(100), local.Bids[0].Quantity)
	assert.True(t, decimal.RequireFromString("9.00").Equal(local.Bids[1].Price))

	// Trade eats into the 10.00 bid; replay the touched level as a delta.
	_, trades := placeLimit(t, engine, Sell, "10.00", 30, 4)
	require.Len(t, trades, 1)

	delta := engine.LevelDelta(Buy, decimal.RequireFromString("10.00"))
	require.NoError(t, book.Apply(engine.L2().UpdateID, delta))

	level := book.Depth(Buy, decimal.RequireFromString("10.00"))
	assert.Equal(t, uint64(70), level.Quantity)
	assert.Equal(t, int64(1), level.Orders)
}

func TestAggregatedBookApply(t *testing.T) {
	book := NewAggregatedBook()

	t.Run("set and remove a level", func(t *testing.T) {
		delta := L2Delta{Side: Buy, Price: decimal.RequireFromString("10.00"), Quantity: 100, Orders: 2}
		require.NoError(t, book.Apply(1, delta))
		assert.Equal(t, uint64(100), book.Depth(Buy, delta.Price).Quantity)

		delta.Quantity = 0
		delta.Orders = 0
		require.NoError(t, book.Apply(2, delta))
		assert.Equal(t, uint64(0), book.Depth(Buy, delta.Price).Quantity)
		assert.Equal(t, uint64(2), book.UpdateID())
	})

	t.Run("stale update id reports a gap", func(t *testing.T) {
		delta := L2Delta{Side: Sell, Price: decimal.RequireFromString("11.00"), Quantity: 10, Orders: 1}
		require.NoError(t, book.Apply(5, delta))

		err := book.Apply(3, delta)
		assert.ErrorIs(t, err, ErrSequenceGap)
		assert.Equal(t, uint64(5), book.UpdateID())
	})
}

func TestAggregatedBookOrdering(t *testing.T) {
	book := NewAggregatedBook()

	updateID := uint64(0)
	for _, price := range []string{"9.00", "11.00", "10.00"} {
		for _, side := range []Side{Buy, Sell} {
			updateID++
			require.NoError(t, book.Apply(updateID, L2Delta{
				Side:     side,
				Price:    decimal.RequireFromString(price),
				Quantity: 100,
				Orders:   1,
			}))
		}
	}

	snapshot := book.L2()
	require.Len(t, snapshot.Bids, 3)
	require.Len(t, snapshot.Asks, 3)

	assert.True(t, decimal.RequireFromString("11.00").Equal(snapshot.Bids[0].Price))
	assert.True(t, decimal.RequireFromString("9.00").Equal(snapshot.Bids[2].Price))
	assert.True(t, decimal.RequireFromString("9.00").Equal(snapshot.Asks[0].Price))
	assert.True(t, decimal.RequireFromString("11.00").Equal(snapshot.Asks[2].Price))
}
