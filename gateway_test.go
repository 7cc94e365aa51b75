package lit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x5487/lit-engine/protocol"
)

func newTestGateway(t *testing.T, events EventPublisher, trades TradePublisher) *MatchingGateway {
	t.Helper()
	gateway := NewMatchingGateway(events, trades)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = gateway.Shutdown(ctx)
	})
	return gateway
}

func TestGatewayRouting(t *testing.T) {
	trades := NewMemoryTradePublisher()
	gateway := newTestGateway(t, nil, trades)
	ctx := context.Background()

	t.Run("unknown instrument", func(t *testing.T) {
		err := gateway.PlaceOrder(ctx, 42, &protocol.PlaceOrderCommand{
			Side:      Buy,
			OrderType: Limit,
			Price:     "10.00",
			Quantity:  100,
		})
		assert.ErrorIs(t, err, ErrUnknownInstrument)
	})

	require.NoError(t, gateway.CreateInstrument(1001, ""))
	require.NoError(t, gateway.CreateInstrument(1002, "0.25"))
	require.NotNil(t, gateway.Instrument(1001))
	require.NotNil(t, gateway.Instrument(1002))
	assert.Nil(t, gateway.Instrument(42))

	t.Run("duplicate listing is ignored", func(t *testing.T) {
		existing := gateway.Instrument(1001)
		require.NoError(t, gateway.CreateInstrument(1001, ""))
		assert.Same(t, existing, gateway.Instrument(1001))
	})

	require.NoError(t, gateway.SetMarketState(ctx, 1001, Open))
	require.NoError(t, gateway.SetMarketState(ctx, 1002, Open))

	// Orders on different instruments never cross each other.
	require.NoError(t, gateway.PlaceOrder(ctx, 1001, &protocol.PlaceOrderCommand{
		Side:      Buy,
		OrderType: Limit,
		Price:     "10.00",
		Quantity:  100,
		Owner:     1,
	}))
	require.NoError(t, gateway.PlaceOrder(ctx, 1002, &protocol.PlaceOrderCommand{
		Side:      Sell,
		OrderType: Limit,
		Price:     "10.00",
		Quantity:  100,
		Owner:     2,
	}))

	assert.Eventually(t, func() bool {
		stats1, err1 := gateway.Instrument(1001).Stats()
		stats2, err2 := gateway.Instrument(1002).Stats()
		return err1 == nil && err2 == nil &&
			stats1.BidOrderCount == 1 && stats2.AskOrderCount == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, trades.Count())

	// A crossing order on the same instrument trades.
	require.NoError(t, gateway.PlaceOrder(ctx, 1001, &protocol.PlaceOrderCommand{
		Side:      Sell,
		OrderType: Limit,
		Price:     "10.00",
		Quantity:  100,
		Owner:     3,
	}))
	assert.Eventually(t, func() bool {
		return trades.Count() == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, uint32(1001), trades.Get(0).SecurityID)
}

func TestGatewayShutdown(t *testing.T) {
	gateway := NewMatchingGateway(nil, nil)
	require.NoError(t, gateway.CreateInstrument(1001, ""))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, gateway.Shutdown(ctx))

	err := gateway.PlaceOrder(context.Background(), 1001, &protocol.PlaceOrderCommand{
		Side:      Buy,
		OrderType: Limit,
		Price:     "10.00",
		Quantity:  100,
	})
	assert.ErrorIs(t, err, ErrShutdown)
}

func TestSnapshotRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snapshot")
	ctx := context.Background()

	events := NewMemoryEventPublisher()
	source := newTestGateway(t, events, nil)
	require.NoError(t, source.CreateInstrument(1001, ""))
	require.NoError(t, source.CreateInstrument(1002, "0.25"))
	require.NoError(t, source.SetMarketState(ctx, 1001, Open))

	for i, price := range []string{"10.00", "10.00", "9.00"} {
		require.NoError(t, source.PlaceOrder(ctx, 1001, &protocol.PlaceOrderCommand{
			Side:      Buy,
			OrderType: Limit,
			Price:     price,
			Quantity:  uint64(100 * (i + 1)),
			Owner:     int64(i),
		}))
	}
	require.NoError(t, source.PlaceOrder(ctx, 1001, &protocol.PlaceOrderCommand{
		Side:      Sell,
		OrderType: Limit,
		Price:     "11.00",
		Quantity:  50,
		Owner:     9,
	}))
	require.NoError(t, source.PlaceOrder(ctx, 1002, &protocol.PlaceOrderCommand{
		Side:      Sell,
		OrderType: Limit,
		Price:     "7.25",
		Quantity:  30,
		Owner:     9,
	}))

	require.Eventually(t, func() bool {
		return events.Count() == 5
	}, time.Second, 10*time.Millisecond)

	meta, err := source.TakeSnapshot(dir)
	require.NoError(t, err)
	assert.Equal(t, SnapshotSchemaVersion, meta.SchemaVersion)
	assert.Equal(t, EngineVersion, meta.EngineVersion)
	assert.NotZero(t, meta.SnapshotChecksum)

	restored := newTestGateway(t, nil, nil)
	restoredMeta, err := restored.RestoreFromSnapshot(dir)
	require.NoError(t, err)
	assert.Equal(t, meta.SnapshotChecksum, restoredMeta.SnapshotChecksum)

	first := restored.Instrument(1001)
	require.NotNil(t, first)
	stats, err := first.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.BidOrderCount)
	assert.Equal(t, int64(2), stats.BidDepthCount)
	assert.Equal(t, int64(1), stats.AskOrderCount)

	quote, err := first.L1()
	require.NoError(t, err)
	assert.Equal(t, uint64(300), quote.Bid.Quantity)
	assert.Equal(t, int64(2), quote.Bid.Orders)

	second := restored.Instrument(1002)
	require.NotNil(t, second)
	depth, err := second.Depth(0)
	require.NoError(t, err)
	require.Len(t, depth.Asks, 1)
	assert.True(t, decimal.RequireFromString("7.25").Equal(depth.Asks[0].Price))

	t.Run("restore resumes the order id sequence", func(t *testing.T) {
		require.NoError(t, restored.PlaceOrder(ctx, 1001, &protocol.PlaceOrderCommand{
			Side:      Buy,
			OrderType: Limit,
			Price:     "8.00",
			Quantity:  10,
			Owner:     1,
		}))
		assert.Eventually(t, func() bool {
			stats, err := restored.Instrument(1001).Stats()
			return err == nil && stats.BidOrderCount == 4
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("tampered snapshot is refused", func(t *testing.T) {
		binPath := filepath.Join(dir, "snapshot.bin")
		f, err := os.OpenFile(binPath, os.O_APPEND|os.O_WRONLY, 0600)
		require.NoError(t, err)
		_, err = f.Write([]byte{0xff})
		require.NoError(t, err)
		require.NoError(t, f.Close())

		corrupt := newTestGateway(t, nil, nil)
		_, err = corrupt.RestoreFromSnapshot(dir)
		assert.Error(t, err)
	})
}
