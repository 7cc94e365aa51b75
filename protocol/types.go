package protocol

// Side represents the order side (Buy/Sell).
type Side int8

const (
	SideBuy  Side = 1
	SideSell Side = 2
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	}
	return "unknown"
}

// OrderType represents the type of order.
type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
	// OrderTypeDark marks an order meant for hidden execution. The lit
	// engine never processes these; submitting one is a routing error.
	OrderTypeDark OrderType = "dark"
)

// TradeType tags how a trade was initiated.
type TradeType string

const (
	TradeTypeBidInitiated TradeType = "bid_initiated"
	TradeTypeAskInitiated TradeType = "ask_initiated"
	TradeTypeMidPoint     TradeType = "mid_point"
	TradeTypeAuction      TradeType = "auction"
)

// MarketState is the trading session state of a single instrument.
// Continuous matching runs only while the market is Open; in every other
// state order entry mutates the book without producing trades.
type MarketState uint8

const (
	MarketStatePreOpen MarketState = iota
	MarketStateMatching
	MarketStateOpen
	MarketStatePreClose
	MarketStateClosed
)

func (s MarketState) String() string {
	switch s {
	case MarketStatePreOpen:
		return "pre_open"
	case MarketStateMatching:
		return "matching"
	case MarketStateOpen:
		return "open"
	case MarketStatePreClose:
		return "pre_close"
	case MarketStateClosed:
		return "closed"
	}
	return "unknown"
}

// RejectReason represents the reason why an order entry command was rejected.
type RejectReason string

const (
	RejectReasonNone            RejectReason = ""
	RejectReasonInvalidQuantity RejectReason = "invalid_quantity"
	RejectReasonInvalidPrice    RejectReason = "invalid_price"
	// RejectReasonDarkOrder is distinct from the plain validation rejects:
	// it signals an upstream routing error, not a malformed order.
	RejectReasonDarkOrder     RejectReason = "dark_order"
	RejectReasonOrderNotFound RejectReason = "order_not_found"
	RejectReasonEngineHalted  RejectReason = "engine_halted"
	RejectReasonInvalidPayload RejectReason = "invalid_payload"
)
