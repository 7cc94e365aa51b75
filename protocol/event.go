package protocol

// EventType identifies an order lifecycle event.
type EventType string

const (
	EventNewAck       EventType = "new_ack"
	EventNewReject    EventType = "new_reject"
	EventAmendAck     EventType = "amend_ack"
	EventAmendReject  EventType = "amend_reject"
	EventCancel       EventType = "cancel"
	EventCancelReject EventType = "cancel_reject"
	EventPartialFill  EventType = "partial_fill"
	EventFullFill     EventType = "full_fill"
)

// OrderEvent is the client-facing outcome of an order entry command.
// Every mutating call on the engine yields exactly one ack/reject/cancel
// event; each trade additionally yields a PartialFill or FullFill for every
// resting order it touched.
type OrderEvent struct {
	SequenceID uint64    `json:"seq_id"`
	SecurityID uint32    `json:"security_id"`
	Type       EventType `json:"type"`
	OrderID    uint64    `json:"order_id"`
	Owner      int64     `json:"owner"`
	Side       Side      `json:"side"`

	// Reason is set for rejects and cancels.
	Reason RejectReason `json:"reason,omitempty"`

	// Fill fields, set for PartialFill and FullFill.
	Price     string `json:"price,omitempty"` // tick-aligned decimal string
	Quantity  uint64 `json:"quantity,omitempty"`
	Remaining uint64 `json:"remaining,omitempty"`

	// NewOrderID is set on AmendAck when a quantity increase re-filed the
	// order under a fresh id at the back of its price level.
	NewOrderID uint64 `json:"new_order_id,omitempty"`

	Timestamp int64 `json:"timestamp"`
}
