package orderbook

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Synchronized serialises every call into one OrderBook behind a single mutex.
type Synchronized struct {
	mu   sync.Mutex
	book *OrderBook
}

func NewSynchronized(book *OrderBook) *Synchronized {
	return &Synchronized{book: book}
}

func (s *Synchronized) AddOrder(o *Order) ([]Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.AddOrder(o)
}

// Submit creates and adds an order under one lock so ids and arrival order agree.
func (s *Synchronized) Submit(side Side, typ OrderType, qty decimal.Decimal, price decimal.NullDecimal, traderID string) (*Order, []Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.book.NewOrder(side, typ, qty, price, traderID)
	trades, err := s.book.AddOrder(o)
	return o, trades, err
}

func (s *Synchronized) CancelOrder(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.CancelOrder(id)
}

func (s *Synchronized) BestBid() (decimal.Decimal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.BestBid()
}

func (s *Synchronized) BestAsk() (decimal.Decimal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.BestAsk()
}

func (s *Synchronized) Depth(levels int) (bids, asks []DepthLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.Depth(levels)
}

func (s *Synchronized) TradeHistory(n int) []Trade {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.TradeHistory(n)
}

// Do runs fn with exclusive access to the underlying book.
func (s *Synchronized) Do(fn func(*OrderBook)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.book)
}
