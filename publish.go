package lit

import (
	"sync"

	"github.com/0x5487/lit-engine/protocol"
)

// EventPublisher receives the order lifecycle event stream.
//
// Implementations must either process events synchronously before returning
// or copy them: the engine may reuse event memory after Publish returns.
type EventPublisher interface {
	Publish(...*protocol.OrderEvent)
}

// TradePublisher receives trades derived by the matching loop. Used by the
// Instrument actor, where trades cannot be returned to the submitting call.
type TradePublisher interface {
	PublishTrades(...*Trade)
}

// MemoryEventPublisher stores events in memory, useful for testing.
type MemoryEventPublisher struct {
	mu     sync.RWMutex
	events []*protocol.OrderEvent
}

// NewMemoryEventPublisher creates a new MemoryEventPublisher.
func NewMemoryEventPublisher() *MemoryEventPublisher {
	return &MemoryEventPublisher{
		events: make([]*protocol.OrderEvent, 0),
	}
}

// Publish appends copies of the events to the in-memory slice.
func (m *MemoryEventPublisher) Publish(events ...*protocol.OrderEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range events {
		cpy := new(protocol.OrderEvent)
		*cpy = *ev
		m.events = append(m.events, cpy)
	}
}

// Count returns the number of events stored.
func (m *MemoryEventPublisher) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}

// Get returns the event at the specified index.
func (m *MemoryEventPublisher) Get(index int) *protocol.OrderEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.events[index]
}

// Events returns a copy of all events stored.
func (m *MemoryEventPublisher) Events() []*protocol.OrderEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*protocol.OrderEvent, len(m.events))
	copy(events, m.events)
	return events
}

// DiscardEventPublisher drops all events, useful for benchmarking.
type DiscardEventPublisher struct{}

// NewDiscardEventPublisher creates a new DiscardEventPublisher.
func NewDiscardEventPublisher() *DiscardEventPublisher {
	return &DiscardEventPublisher{}
}

// Publish does nothing.
func (p *DiscardEventPublisher) Publish(events ...*protocol.OrderEvent) {
}

// MemoryTradePublisher stores trades in memory, useful for testing.
type MemoryTradePublisher struct {
	mu     sync.RWMutex
	trades []*Trade
}

// NewMemoryTradePublisher creates a new MemoryTradePublisher.
func NewMemoryTradePublisher() *MemoryTradePublisher {
	return &MemoryTradePublisher{
		trades: make([]*Trade, 0),
	}
}

// PublishTrades appends trades to the in-memory slice.
func (m *MemoryTradePublisher) PublishTrades(trades ...*Trade) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append(m.trades, trades...)
}

// Count returns the number of trades stored.
func (m *MemoryTradePublisher) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.trades)
}

// Get returns the trade at the specified index.
func (m *MemoryTradePublisher) Get(index int) *Trade {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.trades[index]
}

// DiscardTradePublisher drops all trades, useful for benchmarking.
type DiscardTradePublisher struct{}

// NewDiscardTradePublisher creates a new DiscardTradePublisher.
func NewDiscardTradePublisher() *DiscardTradePublisher {
	return &DiscardTradePublisher{}
}

// PublishTrades does nothing.
func (p *DiscardTradePublisher) PublishTrades(trades ...*Trade) {
}
