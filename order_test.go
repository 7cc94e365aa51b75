package lit

import (
	"testing"

	"github.com/0x5487/lit-engine/protocol"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderConstruction(t *testing.T) {
	t.Run("valid limit order", func(t *testing.T) {
		order, err := newOrder(1, Buy, decimal.RequireFromString("10.00"), 1000, 1, Limit, 0)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), order.ID)
		assert.Equal(t, uint64(1000), order.Quantity)
		assert.True(t, decimal.RequireFromString("10.00").Equal(order.Price))
	})

	t.Run("market order allows non-positive price", func(t *testing.T) {
		order, err := newOrder(2, Sell, decimal.Zero, 100, 1, Market, 0)
		require.NoError(t, err)
		assert.True(t, order.isMarket())
	})

	t.Run("zero quantity rejected", func(t *testing.T) {
		_, err := newOrder(3, Buy, decimal.RequireFromString("1.00"), 0, 1, Limit, 0)
		var reject *RejectError
		require.ErrorAs(t, err, &reject)
		assert.Equal(t, protocol.RejectReasonInvalidQuantity, reject.Reason)
	})

	t.Run("non-positive price rejected for non-market", func(t *testing.T) {
		_, err := newOrder(4, Buy, decimal.RequireFromString("-1.00"), 100, 1, Limit, 0)
		var reject *RejectError
		require.ErrorAs(t, err, &reject)
		assert.Equal(t, protocol.RejectReasonInvalidPrice, reject.Reason)

		_, err = newOrder(5, Buy, decimal.Zero, 100, 1, Limit, 0)
		require.ErrorAs(t, err, &reject)
		assert.Equal(t, protocol.RejectReasonInvalidPrice, reject.Reason)
	})

	t.Run("dark order rejected distinctly", func(t *testing.T) {
		_, err := newOrder(6, Buy, decimal.RequireFromString("11.00"), 100, 10, Dark, 0)
		assert.True(t, IsDarkOrderReject(err))

		_, plainErr := newOrder(7, Buy, decimal.Zero, 100, 10, Limit, 0)
		assert.False(t, IsDarkOrderReject(plainErr))
	})
}
