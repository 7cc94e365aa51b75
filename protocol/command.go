package protocol

// CommandType defines the type of the command (uint8 for compact envelopes).
type CommandType uint8

// Command Type Numbering Strategy:
// - 0-50:  instrument management commands (internal, low-frequency)
// - 51+:   order entry commands (external, hot path)
const (
	CmdUnknown          CommandType = 0
	CmdCreateInstrument CommandType = 1
	CmdSetMarketState   CommandType = 2

	CmdPlaceOrder    CommandType = 51
	CmdCancelOrder   CommandType = 52
	CmdAmendPrice    CommandType = 53
	CmdAmendQuantity CommandType = 54
)

// Command is the standard carrier for commands entering the engine.
// Payloads stay serialized until the owning instrument's loop consumes them,
// so routing never pays deserialization cost.
type Command struct {
	// Version is the protocol version for backward compatibility.
	Version uint8 `json:"version"`

	// SecurityID is the target instrument for this command (routing header).
	SecurityID uint32 `json:"security_id"`

	// CorrelationID ties acks and rejects back to the submitting client.
	CorrelationID string `json:"correlation_id,omitempty"`

	// Type identifies the payload type for fast routing.
	Type CommandType `json:"type"`

	// Payload contains the serialized command data.
	Payload []byte `json:"payload"`
}

// PlaceOrderCommand is the payload for entering a new order.
type PlaceOrderCommand struct {
	Side      Side      `json:"side"`
	OrderType OrderType `json:"order_type"`
	Price     string    `json:"price"` // string to prevent precision loss in JSON
	Quantity  uint64    `json:"quantity"`
	Owner     int64     `json:"owner"`
	Timestamp int64     `json:"timestamp"`
}

// CancelOrderCommand is the payload for cancelling a resting order.
type CancelOrderCommand struct {
	OrderID   uint64 `json:"order_id"`
	Side      Side   `json:"side"`
	Owner     int64  `json:"owner"`
	Timestamp int64  `json:"timestamp"`
}

// AmendPriceCommand is the payload for repricing a resting order.
type AmendPriceCommand struct {
	OrderID   uint64 `json:"order_id"`
	Side      Side   `json:"side"`
	NewPrice  string `json:"new_price"`
	Timestamp int64  `json:"timestamp"`
}

// AmendQuantityCommand is the payload for resizing a resting order.
type AmendQuantityCommand struct {
	OrderID     uint64 `json:"order_id"`
	Side        Side   `json:"side"`
	NewQuantity uint64 `json:"new_quantity"`
	Timestamp   int64  `json:"timestamp"`
}

// SetMarketStateCommand is the payload for a session state transition.
type SetMarketStateCommand struct {
	State     MarketState `json:"state"`
	Timestamp int64       `json:"timestamp"`
}

// CreateInstrumentCommand is the payload for listing a new instrument.
type CreateInstrumentCommand struct {
	SecurityID uint32 `json:"security_id"`
	TickSize   string `json:"tick_size,omitempty"` // e.g. "0.01"
}

// GetDepthRequest is the payload for querying book depth.
// Used for synchronous queries, separate from the async command stream.
type GetDepthRequest struct {
	SecurityID uint32 `json:"security_id"`
	Limit      uint32 `json:"limit"`
}

// GetStatsRequest is the payload for querying book statistics.
type GetStatsRequest struct {
	SecurityID uint32 `json:"security_id"`
}
