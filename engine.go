package lit

import (
	"errors"
	"fmt"
	"time"

	"github.com/0x5487/lit-engine/protocol"
	"github.com/shopspring/decimal"
)

type MarketState = protocol.MarketState

const (
	PreOpen  MarketState = protocol.MarketStatePreOpen
	Matching MarketState = protocol.MarketStateMatching
	Open     MarketState = protocol.MarketStateOpen
	PreClose MarketState = protocol.MarketStatePreClose
	Closed   MarketState = protocol.MarketStateClosed
)

// matchingEnabled is the market-state gate: continuous matching runs only
// while the session is Open. The auction states accept orders without
// producing trades.
func matchingEnabled(state MarketState) bool {
	return state == Open
}

// LitEngine is the synchronous matching core for a single instrument. It
// owns both book sides, the monotonically increasing order id generator and
// the market state. It holds no locks: callers must serialize all mutating
// operations externally (see Instrument for the single-writer wrapper).
type LitEngine struct {
	securityID  uint32
	ticks       tickTable
	bids        *bookSide
	asks        *bookSide
	nextOrderID uint64
	state       MarketState
	halted      bool
	seqID       uint64
	events      EventPublisher
	metrics     *Metrics
}

// EngineOption configures a LitEngine.
type EngineOption func(*LitEngine)

// WithTickSize overrides the default 0.01 price granularity.
func WithTickSize(size decimal.Decimal) EngineOption {
	return func(e *LitEngine) {
		e.ticks = newTickTable(size)
	}
}

// WithEventPublisher wires the order lifecycle event stream.
func WithEventPublisher(p EventPublisher) EngineOption {
	return func(e *LitEngine) {
		e.events = p
	}
}

// WithMetrics wires engine counters and depth gauges.
func WithMetrics(m *Metrics) EngineOption {
	return func(e *LitEngine) {
		e.metrics = m
	}
}

// NewLitEngine creates the matching core for one instrument. The market
// starts in PreOpen; matching begins once the state is set to Open.
func NewLitEngine(securityID uint32, opts ...EngineOption) *LitEngine {
	engine := &LitEngine{
		securityID: securityID,
		ticks:      newTickTable(DefaultTickSize),
		state:      PreOpen,
		events:     NewDiscardEventPublisher(),
	}

	for _, opt := range opts {
		opt(engine)
	}

	engine.bids = newBidSide(engine.ticks)
	engine.asks = newAskSide(engine.ticks)

	return engine
}

// SecurityID returns the instrument this engine serves.
func (e *LitEngine) SecurityID() uint32 {
	return e.securityID
}

// MarketState returns the current session state.
func (e *LitEngine) MarketState() MarketState {
	return e.state
}

// SetMarketState applies a session transition. Transition policy (who may
// transition, and when) lives upstream; the engine only records the state
// and consults it before matching.
func (e *LitEngine) SetMarketState(state MarketState) {
	logger.Info("market state transition",
		"security_id", e.securityID,
		"from", e.state.String(),
		"to", state.String())
	e.state = state
}

// Halted reports whether a previous internal fault stopped matching. Order
// entry keeps mutating the book while halted; only trade derivation stops.
func (e *LitEngine) Halted() bool {
	return e.halted
}

// ClearFault re-enables matching after a supervisor has investigated a
// fault. The book is not repaired here.
func (e *LitEngine) ClearFault() {
	e.halted = false
}

func (e *LitEngine) sideFor(side Side) *bookSide {
	if side == Buy {
		return e.bids
	}
	return e.asks
}

// fileTick returns the tick an order is filed under. Market orders take a
// sentinel extreme tick so they sit at the top of their side and cross any
// opposing liquidity.
func (e *LitEngine) fileTick(order *Order) int64 {
	if order.isMarket() {
		if order.Side == Buy {
			return marketBuyTick
		}
		return marketSellTick
	}
	return e.ticks.tick(order.Price)
}

// CreateOrder validates, assigns the next id, files the order on its side
// and, while the market is Open, runs the matching loop. It returns the new
// id and the trades produced (nil when nothing crossed or matching is not
// permitted). Dark orders are rejected before an id is consumed.
func (e *LitEngine) CreateOrder(price decimal.Decimal, quantity uint64, side Side, owner int64, orderType OrderType) (uint64, []*Trade, error) {
	now := time.Now().UnixNano()

	order, err := newOrder(e.nextOrderID, side, price, quantity, owner, orderType, now)
	if err != nil {
		reason := protocol.RejectReasonNone
		var reject *RejectError
		if errors.As(err, &reject) {
			reason = reject.Reason
		}
		e.emit(&protocol.OrderEvent{
			Type:      protocol.EventNewReject,
			Owner:     owner,
			Side:      side,
			Reason:    reason,
			Timestamp: now,
		})
		e.metrics.orderRejected(string(reason))
		return 0, nil, err
	}

	e.nextOrderID++
	e.sideFor(side).insertOrder(order, e.fileTick(order))

	e.emit(&protocol.OrderEvent{
		Type:      protocol.EventNewAck,
		OrderID:   order.ID,
		Owner:     owner,
		Side:      side,
		Price:     order.Price.String(),
		Quantity:  order.Quantity,
		Timestamp: now,
	})
	e.metrics.orderPlaced()
	e.observeDepth()

	if !matchingEnabled(e.state) {
		return order.ID, nil, nil
	}
	if e.halted {
		logger.Warn("matching suspended by engine fault, order rests unmatched",
			"security_id", e.securityID, "order_id", order.ID)
		return order.ID, nil, nil
	}

	initiation := BidInitiated
	if side == Sell {
		initiation = AskInitiated
	}

	trades, err := e.match(initiation)
	e.observeDepth()
	return order.ID, trades, err
}

// CancelOrder removes a resting order from the given side and its index
// entry. Returns ErrNotFound if the id is not resting there.
func (e *LitEngine) CancelOrder(id uint64, side Side) error {
	now := time.Now().UnixNano()
	book := e.sideFor(side)

	order := book.order(id)
	if order == nil {
		e.emit(&protocol.OrderEvent{
			Type:      protocol.EventCancelReject,
			OrderID:   id,
			Side:      side,
			Reason:    protocol.RejectReasonOrderNotFound,
			Timestamp: now,
		})
		return ErrNotFound
	}

	if err := book.removeOrder(id); err != nil {
		return err
	}

	e.emit(&protocol.OrderEvent{
		Type:      protocol.EventCancel,
		OrderID:   id,
		Owner:     order.Owner,
		Side:      side,
		Price:     order.Price.String(),
		Quantity:  order.Quantity,
		Timestamp: now,
	})
	e.metrics.orderCancelled()
	e.observeDepth()
	return nil
}

// AmendOrderPrice mutates a resting order's price in place. The order keeps
// its queue slot and stays filed under its original tick, even when the new
// price maps to a different level; matching overlap keeps using the filed
// tick while trade prints use the current price.
func (e *LitEngine) AmendOrderPrice(id uint64, newPrice decimal.Decimal, side Side) error {
	now := time.Now().UnixNano()
	book := e.sideFor(side)

	order := book.order(id)
	if order == nil {
		e.emit(&protocol.OrderEvent{
			Type:      protocol.EventAmendReject,
			OrderID:   id,
			Side:      side,
			Reason:    protocol.RejectReasonOrderNotFound,
			Timestamp: now,
		})
		return ErrNotFound
	}

	if !order.isMarket() && newPrice.LessThanOrEqual(decimal.Zero) {
		e.emit(&protocol.OrderEvent{
			Type:      protocol.EventAmendReject,
			OrderID:   id,
			Owner:     order.Owner,
			Side:      side,
			Reason:    protocol.RejectReasonInvalidPrice,
			Timestamp: now,
		})
		return &RejectError{Reason: protocol.RejectReasonInvalidPrice}
	}

	order.Price = newPrice

	e.emit(&protocol.OrderEvent{
		Type:      protocol.EventAmendAck,
		OrderID:   id,
		Owner:     order.Owner,
		Side:      side,
		Price:     order.Price.String(),
		Quantity:  order.Quantity,
		Timestamp: now,
	})
	e.metrics.orderAmended()
	return nil
}

// AmendOrderQuantity resizes a resting order. A reduction mutates in place
// and keeps time priority (the same path partial fills use). An increase
// loses priority: the order is removed and re-filed under a fresh id at the
// back of its price level. The surviving id is returned.
func (e *LitEngine) AmendOrderQuantity(id uint64, newQuantity uint64, side Side) (uint64, error) {
	now := time.Now().UnixNano()
	book := e.sideFor(side)

	order := book.order(id)
	if order == nil {
		e.emit(&protocol.OrderEvent{
			Type:      protocol.EventAmendReject,
			OrderID:   id,
			Side:      side,
			Reason:    protocol.RejectReasonOrderNotFound,
			Timestamp: now,
		})
		return 0, ErrNotFound
	}

	if newQuantity == 0 {
		e.emit(&protocol.OrderEvent{
			Type:      protocol.EventAmendReject,
			OrderID:   id,
			Owner:     order.Owner,
			Side:      side,
			Reason:    protocol.RejectReasonInvalidQuantity,
			Timestamp: now,
		})
		return 0, &RejectError{Reason: protocol.RejectReasonInvalidQuantity}
	}

	survivingID := id

	switch {
	case newQuantity < order.Quantity:
		if err := book.reduceQuantity(id, newQuantity); err != nil {
			return 0, err
		}
	case newQuantity > order.Quantity:
		// Remove and recreate: a priority-preserving size increase would
		// let a resting participant grow without losing queue position.
		if err := book.removeOrder(id); err != nil {
			return 0, err
		}

		replacement := &Order{
			ID:        e.nextOrderID,
			Side:      order.Side,
			Price:     order.Price,
			Quantity:  newQuantity,
			Owner:     order.Owner,
			Type:      order.Type,
			Timestamp: now,
		}
		e.nextOrderID++
		book.insertOrder(replacement, e.fileTick(replacement))
		survivingID = replacement.ID
	}

	ev := &protocol.OrderEvent{
		Type:      protocol.EventAmendAck,
		OrderID:   id,
		Owner:     order.Owner,
		Side:      side,
		Price:     order.Price.String(),
		Quantity:  newQuantity,
		Timestamp: now,
	}
	if survivingID != id {
		ev.NewOrderID = survivingID
	}
	e.emit(ev)
	e.metrics.orderAmended()
	e.observeDepth()
	return survivingID, nil
}

// match runs the continuous matching loop: while the best bid tick crosses
// the best ask tick, trade the two top-of-book orders at the passive side's
// price and shrink or remove them. A single invocation may produce zero, one
// or many trades. A bid price observed below the ask price inside the loop
// is book corruption: the engine halts matching and reports a FaultError.
func (e *LitEngine) match(initiation TradeType) ([]*Trade, error) {
	var trades []*Trade
	now := time.Now().UnixNano()

	for {
		bid := e.bids.peekBest()
		ask := e.asks.peekBest()
		if bid == nil || ask == nil {
			break
		}
		if bid.tick < ask.tick {
			break
		}

		if !bid.isMarket() && !ask.isMarket() && bid.Price.LessThan(ask.Price) {
			e.halted = true
			fault := &FaultError{
				SecurityID: e.securityID,
				Detail: fmt.Sprintf("crossed ticks with bid price below ask price: bid %s (tick %d) < ask %s (tick %d)",
					bid.Price.String(), bid.tick, ask.Price.String(), ask.tick),
			}
			logger.Error("matching halted", "security_id", e.securityID, "detail", fault.Detail)
			e.metrics.engineFault()
			return trades, fault
		}

		// The aggressor always receives the passive side's price. When the
		// passive order is a Market order the print falls back to the
		// aggressor's limit price; two Market orders cannot form a price.
		var price decimal.Decimal
		switch {
		case initiation == BidInitiated && !ask.isMarket():
			price = ask.Price
		case initiation == AskInitiated && !bid.isMarket():
			price = bid.Price
		case !ask.isMarket():
			price = ask.Price
		case !bid.isMarket():
			price = bid.Price
		default:
			return trades, nil
		}

		tradeSize := bid.Quantity
		if ask.Quantity < tradeSize {
			tradeSize = ask.Quantity
		}

		trades = append(trades, &Trade{
			SecurityID:  e.securityID,
			Price:       price,
			Quantity:    tradeSize,
			BuyOwner:    bid.Owner,
			SellOwner:   ask.Owner,
			Type:        initiation,
			BuyOrderID:  bid.ID,
			SellOrderID: ask.ID,
			Timestamp:   now,
		})
		e.metrics.tradeExecuted(tradeSize)

		e.applyFill(e.bids, bid, tradeSize, price, now)
		e.applyFill(e.asks, ask, tradeSize, price, now)
	}

	return trades, nil
}

// applyFill removes a fully filled order or shrinks a partially filled one
// in place, and emits the corresponding fill event.
func (e *LitEngine) applyFill(side *bookSide, order *Order, tradeSize uint64, price decimal.Decimal, now int64) {
	if order.Quantity == tradeSize {
		_ = side.removeOrder(order.ID)
		e.emit(&protocol.OrderEvent{
			Type:      protocol.EventFullFill,
			OrderID:   order.ID,
			Owner:     order.Owner,
			Side:      order.Side,
			Price:     price.String(),
			Quantity:  tradeSize,
			Timestamp: now,
		})
		return
	}

	_ = side.reduceQuantity(order.ID, order.Quantity-tradeSize)
	e.emit(&protocol.OrderEvent{
		Type:      protocol.EventPartialFill,
		OrderID:   order.ID,
		Owner:     order.Owner,
		Side:      order.Side,
		Price:     price.String(),
		Quantity:  tradeSize,
		Remaining: order.Quantity,
		Timestamp: now,
	})
}

func (e *LitEngine) emit(ev *protocol.OrderEvent) {
	if e.events == nil {
		return
	}
	e.seqID++
	ev.SequenceID = e.seqID
	ev.SecurityID = e.securityID
	e.events.Publish(ev)
}

func (e *LitEngine) observeDepth() {
	if e.metrics == nil {
		return
	}
	e.metrics.setResting(Buy, e.bids.orderCount())
	e.metrics.setResting(Sell, e.asks.orderCount())
}

// Stats returns per-side order and level counts.
func (e *LitEngine) Stats() BookStats {
	return BookStats{
		BidOrderCount: e.bids.orderCount(),
		BidDepthCount: e.bids.depthCount(),
		AskOrderCount: e.asks.orderCount(),
		AskDepthCount: e.asks.depthCount(),
	}
}

// BookStats contains statistics about the two book sides.
type BookStats struct {
	BidOrderCount int64 `json:"bid_order_count"`
	BidDepthCount int64 `json:"bid_depth_count"`
	AskOrderCount int64 `json:"ask_order_count"`
	AskDepthCount int64 `json:"ask_depth_count"`
}
