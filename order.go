package lit

import (
	"github.com/0x5487/lit-engine/protocol"
	"github.com/shopspring/decimal"
)

type Side = protocol.Side

const (
	Buy  Side = protocol.SideBuy
	Sell Side = protocol.SideSell
)

type OrderType = protocol.OrderType

const (
	Limit  OrderType = protocol.OrderTypeLimit
	Market OrderType = protocol.OrderTypeMarket
	Dark   OrderType = protocol.OrderTypeDark
)

// Order is a resting order in the book: an immutable identity plus the
// price/quantity state the amend operations mutate.
type Order struct {
	ID        uint64          `json:"id"`
	Side      Side            `json:"side"`
	Price     decimal.Decimal `json:"price"`
	Quantity  uint64          `json:"quantity"` // remaining quantity, always > 0 while resting
	Owner     int64           `json:"owner"`
	Type      OrderType       `json:"type"`
	Timestamp int64           `json:"timestamp"` // unix nano, creation time

	// tick is the price level the order is filed under. It is assigned at
	// insert time and only changes when the order is re-filed; an in-place
	// price amend deliberately leaves it alone.
	tick int64

	// Intrusive linked list pointers (ignored by JSON).
	next *Order
	prev *Order
}

// newOrder validates and builds an order. The id is assigned by the engine.
func newOrder(id uint64, side Side, price decimal.Decimal, quantity uint64, owner int64, orderType OrderType, timestamp int64) (*Order, error) {
	if orderType == Dark {
		return nil, &RejectError{Reason: protocol.RejectReasonDarkOrder}
	}
	if quantity == 0 {
		return nil, &RejectError{Reason: protocol.RejectReasonInvalidQuantity}
	}
	if orderType != Market && price.LessThanOrEqual(decimal.Zero) {
		return nil, &RejectError{Reason: protocol.RejectReasonInvalidPrice}
	}

	return &Order{
		ID:        id,
		Side:      side,
		Price:     price,
		Quantity:  quantity,
		Owner:     owner,
		Type:      orderType,
		Timestamp: timestamp,
	}, nil
}

// isMarket reports whether the order crosses unconditionally.
func (o *Order) isMarket() bool {
	return o.Type == Market
}
