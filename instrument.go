package lit

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/0x5487/lit-engine/protocol"
	"github.com/shopspring/decimal"
)

type queryType uint8

const (
	queryDepth queryType = iota
	queryL1
	queryStats
	querySnapshot
)

// inputEvent is the internal wrapper for everything entering the actor loop.
type inputEvent struct {
	cmd *protocol.Command

	// Read path.
	query queryType
	arg   uint32
	resp  chan any
}

// Instrument is the single-writer actor around one LitEngine. All mutating
// commands flow through one channel and are applied by one goroutine, which
// serializes matching relative to order arrival without any locking inside
// the engine. Command outcomes surface through the engine's event stream;
// trades go to the trade publisher.
type Instrument struct {
	engine           *LitEngine
	serializer       protocol.Serializer
	trades           TradePublisher
	isShutdown       atomic.Bool
	cmdChan          chan inputEvent
	done             chan struct{}
	shutdownComplete chan struct{}
}

// NewInstrument creates the actor for one instrument. Engine options are
// forwarded to the underlying LitEngine.
func NewInstrument(securityID uint32, trades TradePublisher, opts ...EngineOption) *Instrument {
	if trades == nil {
		trades = NewDiscardTradePublisher()
	}

	return &Instrument{
		engine:           NewLitEngine(securityID, opts...),
		serializer:       &protocol.DefaultJSONSerializer{},
		trades:           trades,
		cmdChan:          make(chan inputEvent, 32768),
		done:             make(chan struct{}),
		shutdownComplete: make(chan struct{}),
	}
}

// SecurityID returns the instrument this actor serves.
func (ins *Instrument) SecurityID() uint32 {
	return ins.engine.SecurityID()
}

// EnqueueCommand submits a command to the actor loop. Returns ErrShutdown
// when the instrument is shutting down.
func (ins *Instrument) EnqueueCommand(ctx context.Context, cmd *protocol.Command) error {
	if ins.isShutdown.Load() {
		return ErrShutdown
	}
	if cmd == nil || cmd.Type == protocol.CmdUnknown {
		return ErrInvalidParam
	}

	select {
	case ins.cmdChan <- inputEvent{cmd: cmd}:
		return nil
	case <-ctx.Done():
		return ErrTimeout
	}
}

// Start runs the actor loop to process commands and queries.
// Returns nil when Shutdown() is called and all pending commands are drained.
func (ins *Instrument) Start() error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		select {
		case <-ins.done:
			return ins.drain()
		case ev := <-ins.cmdChan:
			ins.apply(ev)
		}
	}
}

// Shutdown signals the loop to stop accepting commands and waits until the
// pending ones are drained or the context is cancelled.
func (ins *Instrument) Shutdown(ctx context.Context) error {
	if ins.isShutdown.CompareAndSwap(false, true) {
		close(ins.done)
	}

	select {
	case <-ins.shutdownComplete:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drain processes all remaining events in the channel before returning.
func (ins *Instrument) drain() error {
	defer close(ins.shutdownComplete)

	for {
		select {
		case ev := <-ins.cmdChan:
			ins.apply(ev)
		default:
			return nil
		}
	}
}

func (ins *Instrument) apply(ev inputEvent) {
	if ev.cmd != nil {
		ins.applyCommand(ev.cmd)
		return
	}

	if ev.resp == nil {
		return
	}

	var result any
	switch ev.query {
	case queryDepth:
		depth := ins.engine.Depth(ev.arg)
		result = &depth
	case queryL1:
		quote := ins.engine.L1()
		result = &quote
	case queryStats:
		stats := ins.engine.Stats()
		result = &stats
	case querySnapshot:
		result = ins.engine.snapshot()
	}

	select {
	case ev.resp <- result:
	default:
		// Non-blocking send, if no one is listening, just drop it.
	}
}

// applyCommand deserializes and applies one mutating command. Outcomes are
// not returned: rejects and acks surface on the event stream, trades on the
// trade publisher. Malformed payloads are logged and dropped.
func (ins *Instrument) applyCommand(cmd *protocol.Command) {
	switch cmd.Type {
	case protocol.CmdPlaceOrder:
		payload := &protocol.PlaceOrderCommand{}
		if err := ins.serializer.Unmarshal(cmd.Payload, payload); err != nil {
			logger.Error("failed to unmarshal PlaceOrder command", "error", err, "correlation_id", cmd.CorrelationID)
			return
		}

		price, err := decimal.NewFromString(payload.Price)
		if err != nil && payload.OrderType != protocol.OrderTypeMarket {
			logger.Error("invalid price in PlaceOrder command", "error", err, "correlation_id", cmd.CorrelationID)
			return
		}

		_, trades, err := ins.engine.CreateOrder(price, payload.Quantity, payload.Side, payload.Owner, payload.OrderType)
		if err != nil {
			var fault *FaultError
			if errors.As(err, &fault) {
				logger.Error("instrument halted", "security_id", ins.SecurityID(), "error", err)
			}
		}
		if len(trades) > 0 {
			ins.trades.PublishTrades(trades...)
		}

	case protocol.CmdCancelOrder:
		payload := &protocol.CancelOrderCommand{}
		if err := ins.serializer.Unmarshal(cmd.Payload, payload); err != nil {
			logger.Error("failed to unmarshal CancelOrder command", "error", err, "correlation_id", cmd.CorrelationID)
			return
		}

		_ = ins.engine.CancelOrder(payload.OrderID, payload.Side)

	case protocol.CmdAmendPrice:
		payload := &protocol.AmendPriceCommand{}
		if err := ins.serializer.Unmarshal(cmd.Payload, payload); err != nil {
			logger.Error("failed to unmarshal AmendPrice command", "error", err, "correlation_id", cmd.CorrelationID)
			return
		}

		newPrice, err := decimal.NewFromString(payload.NewPrice)
		if err != nil {
			logger.Error("invalid price in AmendPrice command", "error", err, "correlation_id", cmd.CorrelationID)
			return
		}

		_ = ins.engine.AmendOrderPrice(payload.OrderID, newPrice, payload.Side)

	case protocol.CmdAmendQuantity:
		payload := &protocol.AmendQuantityCommand{}
		if err := ins.serializer.Unmarshal(cmd.Payload, payload); err != nil {
			logger.Error("failed to unmarshal AmendQuantity command", "error", err, "correlation_id", cmd.CorrelationID)
			return
		}

		_, _ = ins.engine.AmendOrderQuantity(payload.OrderID, payload.NewQuantity, payload.Side)

	case protocol.CmdSetMarketState:
		payload := &protocol.SetMarketStateCommand{}
		if err := ins.serializer.Unmarshal(cmd.Payload, payload); err != nil {
			logger.Error("failed to unmarshal SetMarketState command", "error", err, "correlation_id", cmd.CorrelationID)
			return
		}

		ins.engine.SetMarketState(payload.State)
	}
}

func (ins *Instrument) query(qt queryType, arg uint32, timeout time.Duration) (any, error) {
	respChan := make(chan any, 1)

	select {
	case ins.cmdChan <- inputEvent{query: qt, arg: arg, resp: respChan}:
	case <-ins.done:
		return nil, ErrShutdown
	case <-time.After(timeout):
		return nil, ErrTimeout
	}

	select {
	case res := <-respChan:
		return res, nil
	case <-time.After(timeout):
		return nil, ErrTimeout
	}
}

// Depth returns the current book depth up to limit levels (0 means all).
// It is thread-safe and interacts with the actor loop via a channel.
func (ins *Instrument) Depth(limit uint32) (*L2Snapshot, error) {
	res, err := ins.query(queryDepth, limit, time.Second)
	if err != nil {
		return nil, err
	}

	depth, _ := res.(*L2Snapshot)
	return depth, nil
}

// L1 returns the current top of book on both sides.
func (ins *Instrument) L1() (*L1Quote, error) {
	res, err := ins.query(queryL1, 0, time.Second)
	if err != nil {
		return nil, err
	}

	quote, _ := res.(*L1Quote)
	return quote, nil
}

// Stats returns usage statistics for the instrument's book.
func (ins *Instrument) Stats() (*BookStats, error) {
	res, err := ins.query(queryStats, 0, time.Second)
	if err != nil {
		return nil, err
	}

	stats, _ := res.(*BookStats)
	return stats, nil
}

// TakeSnapshot captures the engine state through the actor loop, so it is
// consistent with command processing.
func (ins *Instrument) TakeSnapshot() (*EngineSnapshot, error) {
	res, err := ins.query(querySnapshot, 0, 5*time.Second)
	if err != nil {
		return nil, err
	}

	snap, _ := res.(*EngineSnapshot)
	return snap, nil
}

// Restore rebuilds the engine from a snapshot. Must be called before Start.
func (ins *Instrument) Restore(snap *EngineSnapshot) {
	ins.engine.restore(snap)
}
