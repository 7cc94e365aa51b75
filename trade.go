package lit

import (
	"github.com/0x5487/lit-engine/protocol"
	"github.com/shopspring/decimal"
)

type TradeType = protocol.TradeType

const (
	BidInitiated TradeType = protocol.TradeTypeBidInitiated
	AskInitiated TradeType = protocol.TradeTypeAskInitiated
	MidPoint     TradeType = protocol.TradeTypeMidPoint
	Auction      TradeType = protocol.TradeTypeAuction
)

// Trade is an execution derived by the matching loop. Trades are immutable
// once produced; the engine hands them to the caller and keeps nothing.
type Trade struct {
	SecurityID uint32          `json:"security_id"`
	Price      decimal.Decimal `json:"price"` // tick-aligned
	Quantity   uint64          `json:"quantity"`
	BuyOwner   int64           `json:"buy_owner"`
	SellOwner  int64           `json:"sell_owner"`
	Type       TradeType       `json:"type"`

	// Order identities, carried for downstream fill reporting.
	BuyOrderID  uint64 `json:"buy_order_id"`
	SellOrderID uint64 `json:"sell_order_id"`

	Timestamp int64 `json:"timestamp"` // unix nano
}
