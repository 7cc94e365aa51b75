package lit

import (
	"errors"
	"sync/atomic"

	"github.com/igrmk/treemap/v2"
	"github.com/shopspring/decimal"
)

// ErrSequenceGap is returned when a delta arrives out of order.
var ErrSequenceGap = errors.New("aggregated book: sequence gap")

type aggregatedLevel struct {
	quantity uint64
	orders   int64
}

// AggregatedBook maintains a simplified view of the order book, tracking
// only price levels and their aggregated sizes. It is designed for
// downstream services that rebuild book state from the L2 delta stream
// without holding individual orders.
type AggregatedBook struct {
	updateID atomic.Uint64
	ticks    tickTable
	bids     *treemap.TreeMap[int64, aggregatedLevel]
	asks     *treemap.TreeMap[int64, aggregatedLevel]
}

// NewAggregatedBook creates an empty aggregated book at the default tick
// granularity.
func NewAggregatedBook() *AggregatedBook {
	return NewAggregatedBookWithTickSize(DefaultTickSize)
}

// NewAggregatedBookWithTickSize creates an empty aggregated book at the
// given granularity, which must match the source engine's.
func NewAggregatedBookWithTickSize(size decimal.Decimal) *AggregatedBook {
	return &AggregatedBook{
		ticks: newTickTable(size),
		// Bids iterate from the back (highest tick is best).
		bids: treemap.New[int64, aggregatedLevel](),
		asks: treemap.New[int64, aggregatedLevel](),
	}
}

// UpdateID returns the id of the last applied snapshot or delta.
func (ab *AggregatedBook) UpdateID() uint64 {
	return ab.updateID.Load()
}

func (ab *AggregatedBook) treeFor(side Side) *treemap.TreeMap[int64, aggregatedLevel] {
	if side == Buy {
		return ab.bids
	}
	return ab.asks
}

// Apply replaces one level with the absolute state carried by the delta.
// A zero quantity removes the level. updateID must not be lower than the
// last applied id; gaps are the caller's signal to resync from a snapshot.
func (ab *AggregatedBook) Apply(updateID uint64, delta L2Delta) error {
	last := ab.updateID.Load()
	if updateID < last {
		return ErrSequenceGap
	}

	tree := ab.treeFor(delta.Side)
	tick := ab.ticks.tick(delta.Price)

	if delta.Quantity == 0 {
		tree.Del(tick)
	} else {
		tree.Set(tick, aggregatedLevel{quantity: delta.Quantity, orders: delta.Orders})
	}

	ab.updateID.Store(updateID)
	return nil
}

// Rebuild resets the book from a full L2 snapshot. Call it before replaying
// deltas, or after Apply reported a gap.
func (ab *AggregatedBook) Rebuild(snapshot L2Snapshot) {
	ab.bids.Clear()
	ab.asks.Clear()

	for _, level := range snapshot.Bids {
		ab.bids.Set(ab.ticks.tick(level.Price), aggregatedLevel{quantity: level.Quantity, orders: level.Orders})
	}
	for _, level := range snapshot.Asks {
		ab.asks.Set(ab.ticks.tick(level.Price), aggregatedLevel{quantity: level.Quantity, orders: level.Orders})
	}

	ab.updateID.Store(snapshot.UpdateID)
}

// Depth returns the aggregated level at the given price, or a zero level if
// it does not exist.
func (ab *AggregatedBook) Depth(side Side, price decimal.Decimal) BookLevel {
	tick := ab.ticks.tick(price)
	result := BookLevel{Price: ab.ticks.price(tick)}

	if level, ok := ab.treeFor(side).Get(tick); ok {
		result.Quantity = level.quantity
		result.Orders = level.orders
	}

	return result
}

// L2 returns both sides best price first.
func (ab *AggregatedBook) L2() L2Snapshot {
	snapshot := L2Snapshot{UpdateID: ab.updateID.Load()}

	// Best bid is the highest tick, so walk bids in reverse.
	for it := ab.bids.Reverse(); it.Valid(); it.Next() {
		snapshot.Bids = append(snapshot.Bids, BookLevel{
			Price:    ab.ticks.price(it.Key()),
			Quantity: it.Value().quantity,
			Orders:   it.Value().orders,
		})
	}
	for it := ab.asks.Iterator(); it.Valid(); it.Next() {
		snapshot.Asks = append(snapshot.Asks, BookLevel{
			Price:    ab.ticks.price(it.Key()),
			Quantity: it.Value().quantity,
			Orders:   it.Value().orders,
		})
	}

	return snapshot
}
