package lit

import (
	"github.com/huandu/skiplist"
)

// priceLevel is one tick's FIFO queue of resting orders. Arrival order is
// strict time priority; nothing here ever reorders a level.
type priceLevel struct {
	tick          int64
	totalQuantity uint64
	head          *Order
	tail          *Order
	count         int64
}

// bookSide holds one side of the book: a skiplist of price levels keyed by
// integer tick plus an id index for O(1) cancel/amend lookup. Every order in
// a level has an entry in the index and vice versa; the two are mutated
// together so no caller ever observes them out of sync.
type bookSide struct {
	side        Side
	ticks       tickTable
	totalOrders int64
	depths      int64
	depthList   *skiplist.SkipList
	levels      map[int64]*skiplist.Element
	orders      map[uint64]*Order
}

// newBidSide creates the buy side. Levels are sorted by tick in descending
// order, so the front of the skiplist is the highest bid.
func newBidSide(ticks tickTable) *bookSide {
	return &bookSide{
		side:  Buy,
		ticks: ticks,
		depthList: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			t1, _ := lhs.(int64)
			t2, _ := rhs.(int64)

			if t1 < t2 {
				return 1
			} else if t1 > t2 {
				return -1
			}

			return 0
		})),
		levels: make(map[int64]*skiplist.Element),
		orders: make(map[uint64]*Order),
	}
}

// newAskSide creates the sell side. Levels are sorted by tick in ascending
// order, so the front of the skiplist is the lowest ask.
func newAskSide(ticks tickTable) *bookSide {
	return &bookSide{
		side:  Sell,
		ticks: ticks,
		depthList: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			t1, _ := lhs.(int64)
			t2, _ := rhs.(int64)

			if t1 > t2 {
				return 1
			} else if t1 < t2 {
				return -1
			}

			return 0
		})),
		levels: make(map[int64]*skiplist.Element),
		orders: make(map[uint64]*Order),
	}
}

// order finds an order by its ID.
func (s *bookSide) order(id uint64) *Order {
	return s.orders[id]
}

// insertOrder files the order under the given tick at the back of the
// level's queue, creating the level if absent, and records the id index
// entry.
func (s *bookSide) insertOrder(order *Order, tick int64) {
	order.tick = tick

	el, ok := s.levels[tick]
	if ok {
		level, _ := el.Value.(*priceLevel)
		order.prev = level.tail
		order.next = nil
		if level.tail != nil {
			level.tail.next = order
		}
		level.tail = order
		if level.head == nil {
			level.head = order
		}

		level.totalQuantity += order.Quantity
		level.count++
		s.orders[order.ID] = order
		s.totalOrders++
	} else {
		level := &priceLevel{
			tick:          tick,
			head:          order,
			tail:          order,
			totalQuantity: order.Quantity,
			count:         1,
		}
		order.next = nil
		order.prev = nil

		s.orders[order.ID] = order

		el := s.depthList.Set(tick, level)
		s.levels[tick] = el

		s.totalOrders++
		s.depths++
	}
}

// removeOrder unlinks the order from its level and drops the index entry.
// The empty level is cleaned up with it.
func (s *bookSide) removeOrder(id uint64) error {
	order, ok := s.orders[id]
	if !ok {
		return ErrNotFound
	}

	el, ok := s.levels[order.tick]
	if !ok {
		return ErrNotFound
	}
	level, _ := el.Value.(*priceLevel)

	if order.prev != nil {
		order.prev.next = order.next
	} else {
		level.head = order.next
	}

	if order.next != nil {
		order.next.prev = order.prev
	} else {
		level.tail = order.prev
	}

	order.next = nil
	order.prev = nil

	level.totalQuantity -= order.Quantity
	level.count--
	delete(s.orders, id)
	s.totalOrders--

	if level.count == 0 {
		s.depthList.RemoveElement(el)
		delete(s.levels, order.tick)
		s.depths--
	}

	return nil
}

// reduceQuantity shrinks an order in place, preserving its queue position.
// Used for partial fills and amend-down. newQuantity must be positive and
// strictly smaller than the current quantity.
func (s *bookSide) reduceQuantity(id uint64, newQuantity uint64) error {
	order, ok := s.orders[id]
	if !ok {
		return ErrNotFound
	}
	if newQuantity == 0 || newQuantity >= order.Quantity {
		return ErrInvalidParam
	}

	if el, ok := s.levels[order.tick]; ok {
		level, _ := el.Value.(*priceLevel)
		level.totalQuantity -= order.Quantity - newQuantity
	}
	order.Quantity = newQuantity

	return nil
}

// peekBest returns the earliest-arriving order at the best-priced non-empty
// level, or nil if the side is empty.
func (s *bookSide) peekBest() *Order {
	el := s.depthList.Front()
	if el == nil {
		return nil
	}

	level, _ := el.Value.(*priceLevel)
	return level.head
}

// bestLevel returns the best-priced level, or nil if the side is empty.
func (s *bookSide) bestLevel() *priceLevel {
	el := s.depthList.Front()
	if el == nil {
		return nil
	}

	level, _ := el.Value.(*priceLevel)
	return level
}

// levelAt returns the level filed at the given tick.
func (s *bookSide) levelAt(tick int64) *priceLevel {
	el, ok := s.levels[tick]
	if !ok {
		return nil
	}

	level, _ := el.Value.(*priceLevel)
	return level
}

// orderCount returns the total number of orders on this side.
func (s *bookSide) orderCount() int64 {
	return s.totalOrders
}

// depthCount returns the number of price levels on this side.
func (s *bookSide) depthCount() int64 {
	return s.depths
}

// depth returns per-level aggregates from the best price outward, up to
// limit levels (0 means all).
func (s *bookSide) depth(limit uint32) []BookLevel {
	result := make([]BookLevel, 0, limit)

	el := s.depthList.Front()
	var i uint32
	for el != nil && (limit == 0 || i < limit) {
		level, _ := el.Value.(*priceLevel)
		result = append(result, BookLevel{
			Price:    s.ticks.price(level.tick),
			Quantity: level.totalQuantity,
			Orders:   level.count,
		})

		el = el.Next()
		i++
	}

	return result
}

// snapshotOrders serializes the side into a flat slice, best price first,
// time priority preserved within each level.
func (s *bookSide) snapshotOrders() []Order {
	snapshots := make([]Order, 0, s.totalOrders)

	el := s.depthList.Front()
	for el != nil {
		level := el.Value.(*priceLevel)

		order := level.head
		for order != nil {
			snapshots = append(snapshots, Order{
				ID:        order.ID,
				Side:      order.Side,
				Price:     order.Price,
				Quantity:  order.Quantity,
				Owner:     order.Owner,
				Type:      order.Type,
				Timestamp: order.Timestamp,
			})
			order = order.next
		}

		el = el.Next()
	}

	return snapshots
}
