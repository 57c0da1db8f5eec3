// file: pkg/orderbook/orderbook.go

package orderbook

import (
	"container/heap"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DepthLevel is the live quantity aggregated at one price.
type DepthLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Orders   int
}

type bookSide struct {
	side   Side
	heap   *PriceHeap
	levels map[string]*PriceLevel
}

func newBookSide(side Side) *bookSide {
	h := newAskHeap()
	if side == BUY {
		h = newBidHeap()
	}
	return &bookSide{
		side:   side,
		heap:   h,
		levels: make(map[string]*PriceLevel),
	}
}

func priceKey(p decimal.Decimal) string {
	return p.String()
}

// OrderBook is a single-instrument matching engine with price-time priority.
// It is not safe for concurrent use; see Synchronized.
type OrderBook struct {
	symbol string

	bids *bookSide
	asks *bookSide

	// orders owns every order ever submitted. Heaps and levels only hold ids.
	orders map[uint64]*Order

	trades      []Trade
	totalTrades int
	totalVolume decimal.Decimal

	ids      IDGenerator
	clock    func() time.Time
	logger   *zap.Logger
	handlers []func([]Trade)
	checks   []OrderCheck
}

// OrderCheck is a pre-trade rule. A non-nil error rejects the order.
type OrderCheck interface {
	Check(o *Order) error
}

type Option func(*OrderBook)

// WithSequencer injects the id generator used by NewOrder.
func WithSequencer(ids IDGenerator) Option {
	return func(ob *OrderBook) { ob.ids = ids }
}

// WithClock injects the time source for order and trade timestamps.
func WithClock(clock func() time.Time) Option {
	return func(ob *OrderBook) { ob.clock = clock }
}

func WithLogger(logger *zap.Logger) Option {
	return func(ob *OrderBook) { ob.logger = logger }
}

// WithTradeHandler registers fn to receive the trades of every AddOrder call that matched.
func WithTradeHandler(fn func([]Trade)) Option {
	return func(ob *OrderBook) { ob.handlers = append(ob.handlers, fn) }
}

// WithOrderChecks runs checks, in order, on every order AddOrder accepts as well formed.
func WithOrderChecks(checks ...OrderCheck) Option {
	return func(ob *OrderBook) { ob.checks = append(ob.checks, checks...) }
}

func NewOrderBook(symbol string, opts ...Option) *OrderBook {
	ob := &OrderBook{
		symbol:      symbol,
		bids:        newBookSide(BUY),
		asks:        newBookSide(SELL),
		orders:      make(map[uint64]*Order),
		totalVolume: decimal.Zero,
		ids:         NewSequencer(0),
		clock:       time.Now,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ob)
	}
	return ob
}

func (ob *OrderBook) Symbol() string {
	return ob.symbol
}

// RegisterTradeCallback adds a trade handler after construction.
func (ob *OrderBook) RegisterTradeCallback(fn func([]Trade)) {
	ob.handlers = append(ob.handlers, fn)
}

// NewOrder creates an order with the next id of this book.
func (ob *OrderBook) NewOrder(side Side, typ OrderType, qty decimal.Decimal, price decimal.NullDecimal, traderID string) *Order {
	return NewOrder(ob.ids.Next(), side, typ, qty, price, traderID, ob.clock())
}

func (ob *OrderBook) NewLimitOrder(side Side, qty, price decimal.Decimal, traderID string) *Order {
	return ob.NewOrder(side, LIMIT, qty, decimal.NewNullDecimal(price), traderID)
}

func (ob *OrderBook) NewMarketOrder(side Side, qty decimal.Decimal, traderID string) *Order {
	return ob.NewOrder(side, MARKET, qty, decimal.NullDecimal{}, traderID)
}

func validate(o *Order) error {
	if o == nil {
		return ErrNilOrder
	}
	if o.Side != BUY && o.Side != SELL {
		return fmt.Errorf("%w: %q", ErrInvalidSide, o.Side)
	}
	if o.Type != LIMIT && o.Type != MARKET {
		return fmt.Errorf("%w: %q", ErrInvalidOrderType, o.Type)
	}
	if !o.Quantity.IsPositive() {
		return fmt.Errorf("%w: got %s", ErrInvalidQuantity, o.Quantity)
	}
	if o.Type == LIMIT && (!o.Price.Valid || !o.Price.Decimal.IsPositive()) {
		return fmt.Errorf("%w: order %d", ErrInvalidPrice, o.ID)
	}
	// a struct literal has no status and no remaining quantity
	if o.status == "" || !o.filled.Add(o.remaining).Equal(o.Quantity) {
		return fmt.Errorf("%w: order %d", ErrUninitialized, o.ID)
	}
	return nil
}

// check runs the pre-trade rules against o.
func (ob *OrderBook) check(o *Order) error {
	for _, c := range ob.checks {
		if err := c.Check(o); err != nil {
			return fmt.Errorf("%w: order %d: %w", ErrRejected, o.ID, err)
		}
	}
	return nil
}

// AddOrder registers o and matches it against the opposite side.
// An error means the order was rejected and never entered the book.
func (ob *OrderBook) AddOrder(o *Order) ([]Trade, error) {
	if err := validate(o); err != nil {
		ob.logger.Debug("reject order", zap.Error(err))
		return nil, err
	}
	if _, ok := ob.orders[o.ID]; ok {
		return nil, fmt.Errorf("%w: %d", ErrDuplicateOrder, o.ID)
	}
	if err := ob.check(o); err != nil {
		ob.logger.Debug("order rejected by check", zap.Uint64("order_id", o.ID), zap.Error(err))
		return nil, err
	}
	ob.orders[o.ID] = o

	var trades []Trade
	switch o.Type {
	case MARKET:
		trades = ob.executeMarket(o)
	case LIMIT:
		trades = ob.executeLimit(o)
	}

	ob.trades = append(ob.trades, trades...)
	ob.totalTrades += len(trades)
	for _, t := range trades {
		ob.totalVolume = ob.totalVolume.Add(t.Quantity)
	}

	if len(trades) > 0 {
		for _, cb := range ob.handlers {
			cb(trades)
		}
	}

	return trades, nil
}

func (ob *OrderBook) executeMarket(o *Order) []Trade {
	trades := ob.matchOrder(o, ob.sideOf(o.Side.Opposite()))
	if o.Remaining().IsPositive() {
		// unfilled market quantity is discarded, never queued
		o.expire()
		ob.logger.Debug("market order not fully filled",
			zap.Uint64("order_id", o.ID),
			zap.String("remaining", o.Remaining().String()))
	}
	return trades
}

func (ob *OrderBook) executeLimit(o *Order) []Trade {
	trades := ob.matchOrder(o, ob.sideOf(o.Side.Opposite()))
	if o.Remaining().IsPositive() && o.Status() != FILLED {
		ob.addToBook(o)
	}
	return trades
}

// marketable reports whether a limit order may trade at the resting price.
func marketable(o *Order, restingPrice decimal.Decimal) bool {
	if o.Type == MARKET {
		return true
	}
	if o.Side == BUY {
		return restingPrice.LessThanOrEqual(o.Price.Decimal)
	}
	return restingPrice.GreaterThanOrEqual(o.Price.Decimal)
}

func (ob *OrderBook) matchOrder(o *Order, counter *bookSide) []Trade {
	var trades []Trade

	for o.Remaining().IsPositive() {
		best, passive, ok := ob.peekLive(counter)
		if !ok || !marketable(o, best.price) {
			break
		}

		qty := decimal.Min(o.Remaining(), passive.Remaining())
		o.Fill(qty)
		passive.Fill(qty)

		key := priceKey(best.price)
		lvl := counter.levels[key]
		if lvl != nil {
			lvl.consume(qty)
		}

		t := Trade{
			Price:         best.price,
			Quantity:      qty,
			AggressorSide: o.Side,
			Timestamp:     ob.clock(),
		}
		if o.Side == BUY {
			t.BuyOrderID, t.SellOrderID = o.ID, passive.ID
		} else {
			t.BuyOrderID, t.SellOrderID = passive.ID, o.ID
		}
		trades = append(trades, t)

		if passive.Remaining().IsZero() {
			heap.Pop(counter.heap)
			if lvl != nil {
				lvl.Purge(ob.orders)
				if lvl.IsEmpty() {
					delete(counter.levels, key)
				}
			}
		}
	}

	return trades
}

// peekLive is the one primitive every reader of "best price" goes through.
// It discards heap heads that reference terminal orders, then returns the head.
func (ob *OrderBook) peekLive(s *bookSide) (heapEntry, *Order, bool) {
	for {
		e, ok := s.heap.Peek()
		if !ok {
			return heapEntry{}, nil, false
		}
		if o, found := ob.orders[e.orderID]; found && o.IsLive() {
			return e, o, true
		}
		heap.Pop(s.heap)
	}
}

func (ob *OrderBook) addToBook(o *Order) {
	s := ob.sideOf(o.Side)
	price := o.Price.Decimal
	key := priceKey(price)
	lvl, ok := s.levels[key]
	if !ok {
		lvl = newPriceLevel(price)
		s.levels[key] = lvl
	}
	lvl.Add(o)
	heap.Push(s.heap, heapEntry{price: price, timestamp: o.CreatedAt, orderID: o.ID})

	ob.logger.Debug("order rested",
		zap.Uint64("order_id", o.ID),
		zap.String("side", string(o.Side)),
		zap.String("price", price.String()),
		zap.String("remaining", o.Remaining().String()))
}

func (ob *OrderBook) sideOf(side Side) *bookSide {
	if side == BUY {
		return ob.bids
	}
	return ob.asks
}

// CancelOrder marks the order cancelled and reports whether it was known.
// Heap entries are left in place and discarded the next time they reach the head.
func (ob *OrderBook) CancelOrder(id uint64) bool {
	o, ok := ob.orders[id]
	if !ok {
		return false
	}
	o.Cancel()

	if o.Price.Valid {
		s := ob.sideOf(o.Side)
		key := priceKey(o.Price.Decimal)
		if lvl, found := s.levels[key]; found {
			lvl.Purge(ob.orders)
			if lvl.IsEmpty() {
				delete(s.levels, key)
			}
		}
	}

	ob.logger.Debug("order cancelled", zap.Uint64("order_id", id))
	return true
}

// Order looks up any order the book has seen, terminal or not.
func (ob *OrderBook) Order(id uint64) (*Order, bool) {
	o, ok := ob.orders[id]
	return o, ok
}

// Level returns the price level resting at price on side, if any.
func (ob *OrderBook) Level(side Side, price decimal.Decimal) (*PriceLevel, bool) {
	lvl, ok := ob.sideOf(side).levels[priceKey(price)]
	return lvl, ok
}

func (ob *OrderBook) BestBid() (decimal.Decimal, bool) {
	e, _, ok := ob.peekLive(ob.bids)
	return e.price, ok
}

func (ob *OrderBook) BestAsk() (decimal.Decimal, bool) {
	e, _, ok := ob.peekLive(ob.asks)
	return e.price, ok
}

func (ob *OrderBook) Spread() (decimal.Decimal, bool) {
	bid, okBid := ob.BestBid()
	ask, okAsk := ob.BestAsk()
	if !okBid || !okAsk {
		return decimal.Zero, false
	}
	return ask.Sub(bid), true
}

func (ob *OrderBook) MidPrice() (decimal.Decimal, bool) {
	bid, okBid := ob.BestBid()
	ask, okAsk := ob.BestAsk()
	if !okBid || !okAsk {
		return decimal.Zero, false
	}
	return bid.Add(ask).Div(decimal.NewFromInt(2)), true
}

// Depth aggregates live quantity per price, bids descending and asks ascending,
// truncated to levels entries per side.
func (ob *OrderBook) Depth(levels int) (bids, asks []DepthLevel) {
	return ob.depth(ob.bids, levels), ob.depth(ob.asks, levels)
}

func (ob *OrderBook) depth(s *bookSide, levels int) []DepthLevel {
	agg := make(map[string]*DepthLevel)
	for _, e := range s.heap.entries {
		o, ok := ob.orders[e.orderID]
		if !ok || !o.IsLive() {
			continue
		}
		key := priceKey(e.price)
		d, found := agg[key]
		if !found {
			d = &DepthLevel{Price: e.price, Quantity: decimal.Zero}
			agg[key] = d
		}
		d.Quantity = d.Quantity.Add(o.Remaining())
		d.Orders++
	}

	out := make([]DepthLevel, 0, len(agg))
	for _, d := range agg {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return s.heap.better(out[i].Price, out[j].Price) })
	if levels >= 0 && len(out) > levels {
		out = out[:levels]
	}
	return out
}

// TradeHistory returns the last n trades in execution order. n <= 0 returns all of them.
func (ob *OrderBook) TradeHistory(n int) []Trade {
	start := 0
	if n > 0 && n < len(ob.trades) {
		start = len(ob.trades) - n
	}
	out := make([]Trade, len(ob.trades)-start)
	copy(out, ob.trades[start:])
	return out
}

func (ob *OrderBook) TotalTrades() int {
	return ob.totalTrades
}

func (ob *OrderBook) TotalVolume() decimal.Decimal {
	return ob.totalVolume
}

// OrderCount is the number of orders the book has registered, terminal ones included.
func (ob *OrderBook) OrderCount() int {
	return len(ob.orders)
}

// RestingCount is the number of live orders waiting in the book.
func (ob *OrderBook) RestingCount() int {
	n := 0
	for _, o := range ob.orders {
		if o.IsLive() {
			n++
		}
	}
	return n
}
