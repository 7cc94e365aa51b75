package lit

import (
	"math"

	"github.com/shopspring/decimal"
)

// DefaultTickSize is the reference price granularity of 0.01 currency units.
var DefaultTickSize = decimal.New(1, -2)

// Sentinel ticks for resting Market orders. A Market buy files at the top of
// the bid side and a Market sell at the top of the ask side, so they always
// cross any opposing liquidity.
const (
	marketBuyTick  = math.MaxInt64
	marketSellTick = math.MinInt64
)

// tickTable converts decimal prices into integer ticks at a fixed
// granularity. All book ordering, map keys and overlap checks use ticks, so
// price comparisons are exact; raw decimals are kept only for trade prints.
type tickTable struct {
	size decimal.Decimal
}

func newTickTable(size decimal.Decimal) tickTable {
	if size.LessThanOrEqual(decimal.Zero) {
		size = DefaultTickSize
	}
	return tickTable{size: size}
}

// tick floors price toward negative infinity onto the tick grid.
func (t tickTable) tick(price decimal.Decimal) int64 {
	return price.Div(t.size).Floor().IntPart()
}

// price converts a tick back to its decimal grid price.
func (t tickTable) price(tick int64) decimal.Decimal {
	return decimal.NewFromInt(tick).Mul(t.size)
}
