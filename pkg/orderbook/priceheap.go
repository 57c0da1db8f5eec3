package orderbook

import (
	"time"

	"github.com/shopspring/decimal"
)

// heapEntry keys one resting order into a side's priority queue.
// The order itself lives in the book's arena.
type heapEntry struct {
	price     decimal.Decimal
	timestamp time.Time
	orderID   uint64
}

// PriceHeap implements heap.Interface over resting orders.
// Better prices come first, ties go to the earlier timestamp, then the lower id.
type PriceHeap struct {
	entries []heapEntry
	better  func(a, b decimal.Decimal) bool
}

func NewPriceHeap(better func(a, b decimal.Decimal) bool) *PriceHeap {
	return &PriceHeap{
		entries: []heapEntry{},
		better:  better,
	}
}

func newBidHeap() *PriceHeap {
	return NewPriceHeap(func(a, b decimal.Decimal) bool { return a.GreaterThan(b) }) // Max-heap
}

func newAskHeap() *PriceHeap {
	return NewPriceHeap(func(a, b decimal.Decimal) bool { return a.LessThan(b) }) // Min-heap
}

func (h PriceHeap) Len() int {
	return len(h.entries)
}

func (h PriceHeap) Less(i, j int) bool {
	a, b := h.entries[i], h.entries[j]
	if !a.price.Equal(b.price) {
		return h.better(a.price, b.price)
	}
	if !a.timestamp.Equal(b.timestamp) {
		return a.timestamp.Before(b.timestamp)
	}
	return a.orderID < b.orderID
}

func (h PriceHeap) Swap(i, j int) {
	h.entries[i], h.entries[j] = h.entries[j], h.entries[i]
}

func (h *PriceHeap) Push(x any) {
	h.entries = append(h.entries, x.(heapEntry))
}

func (h *PriceHeap) Pop() any {
	n := len(h.entries)
	e := h.entries[n-1]
	h.entries = h.entries[:n-1]
	return e
}

func (h *PriceHeap) Peek() (heapEntry, bool) {
	if len(h.entries) == 0 {
		return heapEntry{}, false
	}
	return h.entries[0], true
}
