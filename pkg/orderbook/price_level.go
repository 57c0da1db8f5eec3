package orderbook

import (
	"fmt"

	"github.com/gammazero/deque"
	"github.com/shopspring/decimal"
)

// PriceLevel is the FIFO of resting order ids at one price.
type PriceLevel struct {
	Price decimal.Decimal

	orders *deque.Deque[uint64]
	total  decimal.Decimal
}

func newPriceLevel(price decimal.Decimal) *PriceLevel {
	return &PriceLevel{
		Price:  price,
		orders: &deque.Deque[uint64]{},
		total:  decimal.Zero,
	}
}

// Add appends o at the back of the queue.
func (lvl *PriceLevel) Add(o *Order) {
	lvl.orders.PushBack(o.ID)
	lvl.total = lvl.total.Add(o.Remaining())
}

// Purge drops filled and cancelled entries and recomputes the aggregate
// from the orders still live in arena.
func (lvl *PriceLevel) Purge(arena map[uint64]*Order) {
	kept := &deque.Deque[uint64]{}
	total := decimal.Zero
	for i := 0; i < lvl.orders.Len(); i++ {
		o, ok := arena[lvl.orders.At(i)]
		if !ok || !o.IsLive() {
			continue
		}
		kept.PushBack(o.ID)
		total = total.Add(o.Remaining())
	}
	lvl.orders = kept
	lvl.total = total
}

// consume lowers the aggregate after one of the level's orders was filled by qty.
func (lvl *PriceLevel) consume(qty decimal.Decimal) {
	lvl.total = lvl.total.Sub(qty)
}

// TotalQuantity is the sum of remaining quantity of the level's live orders.
func (lvl *PriceLevel) TotalQuantity() decimal.Decimal {
	return lvl.total
}

func (lvl *PriceLevel) Len() int {
	return lvl.orders.Len()
}

func (lvl *PriceLevel) IsEmpty() bool {
	return lvl.orders.Len() == 0 || lvl.total.IsZero()
}

// OrderIDs returns the queued ids, oldest first.
func (lvl *PriceLevel) OrderIDs() []uint64 {
	ids := make([]uint64, 0, lvl.orders.Len())
	for i := 0; i < lvl.orders.Len(); i++ {
		ids = append(ids, lvl.orders.At(i))
	}
	return ids
}

func (lvl *PriceLevel) String() string {
	return fmt.Sprintf("PriceLevel(price=%s, qty=%s, orders=%d)", lvl.Price, lvl.total.StringFixed(4), lvl.orders.Len())
}
