package orderbook

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestScenarioExactCross(t *testing.T) {
	ob := newTestBook()

	buy := ob.NewLimitOrder(BUY, d("0.5"), d("68000"), "B")
	sell := ob.NewLimitOrder(SELL, d("0.5"), d("68000"), "S")
	mustAdd(t, ob, buy)
	trades := mustAdd(t, ob, sell)

	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if !trades[0].Quantity.Equal(d("0.5")) || !trades[0].Price.Equal(d("68000")) {
		t.Fatalf("unexpected trade %+v", trades[0])
	}
	if buy.Status() != FILLED || sell.Status() != FILLED {
		t.Fatalf("expected both FILLED, got %s/%s", buy.Status(), sell.Status())
	}
	if ob.TotalTrades() != 1 {
		t.Fatalf("expected total_trades 1, got %d", ob.TotalTrades())
	}
	if _, ok := ob.BestBid(); ok {
		t.Fatalf("bid side should be empty after round trip")
	}
	if _, ok := ob.BestAsk(); ok {
		t.Fatalf("ask side should be empty after round trip")
	}
	if _, ok := ob.Level(BUY, d("68000")); ok {
		t.Fatalf("exhausted level should be removed")
	}
}

func TestScenarioMarketSweepsTwoLevels(t *testing.T) {
	ob := newTestBook()
	mustAdd(t, ob, ob.NewLimitOrder(SELL, d("0.5"), d("68010"), "S1"))
	mustAdd(t, ob, ob.NewLimitOrder(SELL, d("1.0"), d("68020"), "S2"))

	buy := ob.NewMarketOrder(BUY, d("0.6"), "B")
	trades := mustAdd(t, ob, buy)

	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	if !trades[0].Quantity.Equal(d("0.5")) || !trades[0].Price.Equal(d("68010")) {
		t.Fatalf("unexpected first trade %+v", trades[0])
	}
	if !trades[1].Quantity.Equal(d("0.1")) || !trades[1].Price.Equal(d("68020")) {
		t.Fatalf("unexpected second trade %+v", trades[1])
	}
	_, asks := ob.Depth(10)
	if len(asks) != 1 || !asks[0].Price.Equal(d("68020")) || !asks[0].Quantity.Equal(d("0.9")) {
		t.Fatalf("expected 0.9 left at 68020, got %+v", asks)
	}
	if lvl, ok := ob.Level(SELL, d("68020")); !ok || !lvl.TotalQuantity().Equal(d("0.9")) {
		t.Fatalf("expected level aggregate 0.9, got %v", lvl)
	}
	if buy.Status() != FILLED {
		t.Fatalf("expected aggressor FILLED, got %s", buy.Status())
	}
}

func TestScenarioMarketWithoutLiquidity(t *testing.T) {
	ob := newTestBook()

	buy := ob.NewMarketOrder(BUY, d("0.6"), "B")
	trades := mustAdd(t, ob, buy)

	if len(trades) != 0 {
		t.Fatalf("expected no trades, got %d", len(trades))
	}
	if buy.Status() != PARTIAL {
		t.Fatalf("expected PARTIAL, got %s", buy.Status())
	}
	if !buy.Remaining().Equal(d("0.6")) {
		t.Fatalf("expected remaining 0.6, got %s", buy.Remaining())
	}
	if _, ok := ob.BestBid(); ok {
		t.Fatalf("market remainder must never be queued")
	}
}

func TestMarketSellPartialAgainstThinBids(t *testing.T) {
	ob := newTestBook()
	mustAdd(t, ob, ob.NewLimitOrder(BUY, d("0.2"), d("67990"), "B1"))
	mustAdd(t, ob, ob.NewLimitOrder(BUY, d("0.3"), d("68000"), "B2"))

	sell := ob.NewMarketOrder(SELL, d("1"), "S")
	trades := mustAdd(t, ob, sell)
	if len(trades) != 2 || !trades[0].Price.Equal(d("68000")) || !trades[1].Price.Equal(d("67990")) {
		t.Fatalf("expected best bid first, got %+v", trades)
	}
	if sell.Status() != PARTIAL || !sell.Remaining().Equal(d("0.5")) {
		t.Fatalf("expected PARTIAL with 0.5 discarded, got %s %s", sell.Status(), sell.Remaining())
	}
	if sell.IsLive() {
		t.Fatalf("discarded market remainder must not be live")
	}
	if _, ok := ob.BestAsk(); ok {
		t.Fatalf("market remainder must never be queued")
	}
}

func TestScenarioCancelHidesBestBid(t *testing.T) {
	ob := newTestBook()
	mustAdd(t, ob, ob.NewLimitOrder(BUY, d("0.5"), d("67990"), "B1"))
	buy := ob.NewLimitOrder(BUY, d("1.0"), d("68000"), "B2")
	mustAdd(t, ob, buy)

	if !ob.CancelOrder(buy.ID) {
		t.Fatalf("expected cancel success")
	}
	if buy.Status() != CANCELLED {
		t.Fatalf("expected CANCELLED, got %s", buy.Status())
	}
	// the heap entry is still there until a best-price read discards it
	if ob.bids.heap.Len() != 2 {
		t.Fatalf("expected lazy deletion to keep the entry, heap len %d", ob.bids.heap.Len())
	}

	for i := 0; i < 3; i++ {
		bid, ok := ob.BestBid()
		if !ok || !bid.Equal(d("67990")) {
			t.Fatalf("read %d: expected 67990, got %s (%v)", i, bid, ok)
		}
	}
	if ob.bids.heap.Len() != 1 {
		t.Fatalf("expected stale head discarded, heap len %d", ob.bids.heap.Len())
	}
	if _, ok := ob.Level(BUY, d("68000")); ok {
		t.Fatalf("cancelled order's level should be purged")
	}
}

func TestCancelUnknownOrder(t *testing.T) {
	ob := newTestBook()
	if ob.CancelOrder(42) {
		t.Fatalf("expected cancel of unknown id to fail")
	}
}

func TestCancelledOrderIsSkippedDuringMatching(t *testing.T) {
	ob := newTestBook()
	s1 := ob.NewLimitOrder(SELL, d("1"), d("100"), "S1")
	s2 := ob.NewLimitOrder(SELL, d("1"), d("100"), "S2")
	mustAdd(t, ob, s1)
	mustAdd(t, ob, s2)
	ob.CancelOrder(s1.ID)

	trades := mustAdd(t, ob, ob.NewLimitOrder(BUY, d("1"), d("100"), "B"))
	if len(trades) != 1 || trades[0].SellOrderID != s2.ID {
		t.Fatalf("expected the stale head to be skipped, got %+v", trades)
	}
	if !s1.Filled().IsZero() {
		t.Fatalf("cancelled order must never fill")
	}
}

func TestCancelFilledOrderKeepsFills(t *testing.T) {
	ob := newTestBook()
	s := ob.NewLimitOrder(SELL, d("1"), d("100"), "S")
	mustAdd(t, ob, s)
	mustAdd(t, ob, ob.NewLimitOrder(BUY, d("1"), d("100"), "B"))

	if !ob.CancelOrder(s.ID) {
		t.Fatalf("known id should report true")
	}
	if !s.Filled().Equal(d("1")) || ob.TotalTrades() != 1 {
		t.Fatalf("cancel must not undo fills")
	}
}

func TestDepthAggregatesAllEntriesAtPrice(t *testing.T) {
	ob := newTestBook()
	mustAdd(t, ob, ob.NewLimitOrder(BUY, d("1"), d("100"), "B1"))
	mustAdd(t, ob, ob.NewLimitOrder(BUY, d("2"), d("100"), "B2"))
	cancelled := ob.NewLimitOrder(BUY, d("4"), d("100"), "B3")
	mustAdd(t, ob, cancelled)
	mustAdd(t, ob, ob.NewLimitOrder(BUY, d("1"), d("99"), "B4"))
	mustAdd(t, ob, ob.NewLimitOrder(BUY, d("1"), d("98"), "B5"))
	mustAdd(t, ob, ob.NewLimitOrder(SELL, d("3"), d("102"), "S1"))
	mustAdd(t, ob, ob.NewLimitOrder(SELL, d("2"), d("101"), "S2"))
	ob.CancelOrder(cancelled.ID)

	bids, asks := ob.Depth(2)
	if len(bids) != 2 {
		t.Fatalf("expected 2 bid levels, got %d", len(bids))
	}
	if !bids[0].Price.Equal(d("100")) || !bids[0].Quantity.Equal(d("3")) || bids[0].Orders != 2 {
		t.Fatalf("unexpected top bid level %+v", bids[0])
	}
	if !bids[1].Price.Equal(d("99")) {
		t.Fatalf("expected bids descending, got %+v", bids)
	}
	if len(asks) != 2 || !asks[0].Price.Equal(d("101")) || !asks[1].Price.Equal(d("102")) {
		t.Fatalf("expected asks ascending, got %+v", asks)
	}

	if all, _ := ob.Depth(-1); len(all) != 3 {
		t.Fatalf("expected negative levels to return every level, got %d", len(all))
	}
}

func TestSpreadAndMid(t *testing.T) {
	ob := newTestBook()
	if _, ok := ob.Spread(); ok {
		t.Fatalf("expected no spread on empty book")
	}
	if _, ok := ob.MidPrice(); ok {
		t.Fatalf("expected no mid on empty book")
	}

	mustAdd(t, ob, ob.NewLimitOrder(BUY, d("1"), d("68000"), "B"))
	if _, ok := ob.Spread(); ok {
		t.Fatalf("expected no spread with one side")
	}
	mustAdd(t, ob, ob.NewLimitOrder(SELL, d("1"), d("68010"), "S"))

	spread, _ := ob.Spread()
	mid, _ := ob.MidPrice()
	if !spread.Equal(d("10")) || !mid.Equal(d("68005")) {
		t.Fatalf("expected spread 10 mid 68005, got %s %s", spread, mid)
	}
}

func TestAddOrderRejectsInvalidInput(t *testing.T) {
	ob := newTestBook()

	cases := []struct {
		name  string
		order *Order
		want  error
	}{
		{"nil", nil, ErrNilOrder},
		{"zero qty", ob.NewLimitOrder(BUY, decimal.Zero, d("1"), "x"), ErrInvalidQuantity},
		{"negative qty", ob.NewMarketOrder(SELL, d("-1"), "x"), ErrInvalidQuantity},
		{"negative price", ob.NewLimitOrder(BUY, d("1"), d("-5"), "x"), ErrInvalidPrice},
		{"limit without price", ob.NewOrder(BUY, LIMIT, d("1"), decimal.NullDecimal{}, "x"), ErrInvalidPrice},
		{"bad side", ob.NewOrder("HOLD", MARKET, d("1"), decimal.NullDecimal{}, "x"), ErrInvalidSide},
		{"bad type", ob.NewOrder(BUY, "STOP", d("1"), decimal.NullDecimal{}, "x"), ErrInvalidOrderType},
		{"struct literal", &Order{ID: 99, Side: BUY, Type: LIMIT, Quantity: d("1"), Price: decimal.NewNullDecimal(d("1"))}, ErrUninitialized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ob.AddOrder(tc.order)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	if ob.OrderCount() != 0 {
		t.Fatalf("rejected orders must not enter the index, got %d", ob.OrderCount())
	}

	o := ob.NewLimitOrder(BUY, d("1"), d("1"), "x")
	mustAdd(t, ob, o)
	if _, err := ob.AddOrder(o); !errors.Is(err, ErrDuplicateOrder) {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}
}

func TestSeed(t *testing.T) {
	ob := newTestBook()
	_, err := ob.Seed([]Level{
		{Price: d("68000"), Quantity: d("0.5"), Side: BUY},
		{Price: d("67990"), Quantity: d("1.0"), Side: BUY},
		{Price: d("68010"), Quantity: d("0.5"), Side: SELL},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	bid, _ := ob.BestBid()
	ask, _ := ob.BestAsk()
	if !bid.Equal(d("68000")) || !ask.Equal(d("68010")) {
		t.Fatalf("unexpected top of book %s/%s", bid, ask)
	}
	o, ok := ob.Order(1)
	if !ok || o.TraderID != SeedTraderID {
		t.Fatalf("expected seeded order owned by %s", SeedTraderID)
	}

	fresh := newTestBook()
	_, err = fresh.Seed([]Level{
		{Price: d("68000"), Quantity: d("0.5"), Side: BUY},
		{Price: d("0"), Quantity: d("1"), Side: SELL},
	})
	if !errors.Is(err, ErrInvalidSeedLevel) {
		t.Fatalf("expected seed rejection, got %v", err)
	}
	if fresh.OrderCount() != 0 {
		t.Fatalf("rejected snapshot must leave the book untouched")
	}
}

func TestAddOrderRejectsLiteralAgainstRestingAsk(t *testing.T) {
	ob := newTestBook()
	mustAdd(t, ob, ob.NewLimitOrder(SELL, d("1"), d("100"), "s"))

	literal := &Order{ID: 99, Side: BUY, Type: LIMIT, Quantity: d("1"), Price: decimal.NewNullDecimal(d("100"))}
	trades, err := ob.AddOrder(literal)
	if !errors.Is(err, ErrUninitialized) {
		t.Fatalf("expected ErrUninitialized, got %v", err)
	}
	if len(trades) != 0 {
		t.Fatalf("expected no trades, got %d", len(trades))
	}
	if _, ok := ob.Order(99); ok {
		t.Fatalf("rejected order must not be indexed")
	}
	ask, ok := ob.BestAsk()
	if !ok || !ask.Equal(d("100")) {
		t.Fatalf("resting ask should be untouched, got %s %v", ask, ok)
	}
}

type rejectPrice struct{ price decimal.Decimal }

func (r rejectPrice) Check(o *Order) error {
	if o.Price.Valid && o.Price.Decimal.Equal(r.price) {
		return errors.New("price not allowed")
	}
	return nil
}

func TestSeedRunsOrderChecksBeforeInserting(t *testing.T) {
	ob := NewOrderBook("XBTUSD", WithClock(stepClock()), WithOrderChecks(rejectPrice{price: d("101")}))
	_, err := ob.Seed([]Level{
		{Price: d("100"), Quantity: d("1"), Side: BUY},
		{Price: d("101"), Quantity: d("1"), Side: SELL},
	})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if ob.OrderCount() != 0 {
		t.Fatalf("rejected snapshot must leave the book untouched, got %d orders", ob.OrderCount())
	}
	if _, ok := ob.BestBid(); ok {
		t.Fatalf("no bid should rest after a rejected snapshot")
	}

	// ids start fresh for the next accepted order
	o := ob.NewLimitOrder(BUY, d("1"), d("100"), "x")
	if o.ID != 1 {
		t.Fatalf("expected id 1 after rejected seed, got %d", o.ID)
	}
}
