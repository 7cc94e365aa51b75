package lit

import (
	"github.com/shopspring/decimal"
)

// BookLevel is one price level's aggregate: tick-aligned price, total
// resting quantity and the number of orders queued there.
type BookLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity uint64          `json:"quantity"`
	Orders   int64           `json:"orders"`
}

// L1Quote is the top-of-book view on both sides. A side with no liquidity
// reports a zero level.
type L1Quote struct {
	Bid BookLevel `json:"bid"`
	Ask BookLevel `json:"ask"`
}

// L2Snapshot is the full per-level depth of both sides, best price first.
type L2Snapshot struct {
	UpdateID uint64      `json:"update_id"`
	Bids     []BookLevel `json:"bids"`
	Asks     []BookLevel `json:"asks"`
}

// L2Delta is the post-mutation state of a single price level. Quantity and
// Orders are absolute values, not differences; a zero quantity means the
// level is gone. A publisher reads deltas for the levels an operation
// touched and forwards them downstream.
type L2Delta struct {
	Side     Side            `json:"side"`
	Price    decimal.Decimal `json:"price"`
	Quantity uint64          `json:"quantity"`
	Orders   int64           `json:"orders"`
}

// L1 returns the best bid and ask aggregates.
func (e *LitEngine) L1() L1Quote {
	quote := L1Quote{}

	if level := e.bids.bestLevel(); level != nil {
		quote.Bid = BookLevel{
			Price:    e.ticks.price(level.tick),
			Quantity: level.totalQuantity,
			Orders:   level.count,
		}
	}
	if level := e.asks.bestLevel(); level != nil {
		quote.Ask = BookLevel{
			Price:    e.ticks.price(level.tick),
			Quantity: level.totalQuantity,
			Orders:   level.count,
		}
	}

	return quote
}

// L2 returns the full depth of both sides.
func (e *LitEngine) L2() L2Snapshot {
	return L2Snapshot{
		UpdateID: e.seqID,
		Bids:     e.bids.depth(0),
		Asks:     e.asks.depth(0),
	}
}

// Depth returns both sides limited to the given number of levels.
func (e *LitEngine) Depth(limit uint32) L2Snapshot {
	return L2Snapshot{
		UpdateID: e.seqID,
		Bids:     e.bids.depth(limit),
		Asks:     e.asks.depth(limit),
	}
}

// LevelDelta reads the current state of the level the given price maps to,
// as an L2Delta. Call it after a mutating operation for each touched price
// to derive the per-level delta stream.
func (e *LitEngine) LevelDelta(side Side, price decimal.Decimal) L2Delta {
	tick := e.ticks.tick(price)
	delta := L2Delta{
		Side:  side,
		Price: e.ticks.price(tick),
	}

	if level := e.sideFor(side).levelAt(tick); level != nil {
		delta.Quantity = level.totalQuantity
		delta.Orders = level.count
	}

	return delta
}
