package simulator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/joripage/lobsim/pkg/marketdata"
	"github.com/joripage/lobsim/pkg/orderbook"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func fixedClock() func() time.Time {
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Millisecond)
		return t
	}
}

func snapshotLevels() []orderbook.Level {
	return []orderbook.Level{
		{Price: d("68000"), Quantity: d("0.5"), Side: orderbook.BUY},
		{Price: d("67990"), Quantity: d("1"), Side: orderbook.BUY},
		{Price: d("68010"), Quantity: d("0.5"), Side: orderbook.SELL},
		{Price: d("68020"), Quantity: d("1"), Side: orderbook.SELL},
	}
}

type recordingSleeper struct {
	delays []time.Duration
}

func (r *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func newTestSimulator(t *testing.T, cfg Config, opts ...SimulatorOption) *Simulator {
	t.Helper()
	opts = append([]SimulatorOption{WithBookOptions(orderbook.WithClock(fixedClock()))}, opts...)
	sim, err := NewSimulator("XBTUSD", cfg, opts...)
	require.NoError(t, err)
	return sim
}

func TestSeedFromSnapshot(t *testing.T) {
	sim := newTestSimulator(t, DefaultConfig())
	require.NoError(t, sim.SeedFromSnapshot(snapshotLevels()))

	bid, ok := sim.Book().BestBid()
	require.True(t, ok)
	ask, ok := sim.Book().BestAsk()
	require.True(t, ok)
	assert.True(t, bid.Equal(d("68000")))
	assert.True(t, ask.Equal(d("68010")))
	assert.Equal(t, 4, sim.Book().OrderCount())
}

func TestSeedFromSnapshotRejectsBadLevel(t *testing.T) {
	sim := newTestSimulator(t, DefaultConfig())
	levels := append(snapshotLevels(), orderbook.Level{Price: d("0"), Quantity: d("1"), Side: orderbook.BUY})

	err := sim.SeedFromSnapshot(levels)
	assert.True(t, errors.Is(err, orderbook.ErrInvalidSeedLevel))
	assert.Equal(t, 0, sim.Book().OrderCount())
}

func TestReplayTrades(t *testing.T) {
	sleeper := &recordingSleeper{}
	sim := newTestSimulator(t, DefaultConfig(), WithSleeper(sleeper.sleep))
	require.NoError(t, sim.SeedFromSnapshot(snapshotLevels()))

	base := time.Unix(1712345600, 0)
	trades := []marketdata.Trade{
		{Time: base.Add(2 * time.Second), Price: d("68000"), Quantity: d("0.2"), Side: orderbook.SELL},
		{Time: base, Price: d("68010"), Quantity: d("0.3"), Side: orderbook.BUY},
		{Time: base.Add(30 * time.Second), Price: d("68010"), Quantity: d("0.1"), Side: orderbook.BUY},
	}
	require.NoError(t, sim.ReplayTrades(context.Background(), trades, 2))

	// sorted by time: 2s gap at 2x, then a 28s gap that is not reproduced
	assert.Equal(t, []time.Duration{time.Second}, sleeper.delays)

	tape := sim.Metrics().Tape()
	require.Len(t, tape, 3)
	assert.Equal(t, orderbook.BUY, tape[0].Side)
	assert.True(t, tape[0].Price.Equal(d("68010")))
	assert.Equal(t, orderbook.SELL, tape[1].Side)
	assert.True(t, tape[1].Price.Equal(d("68000")))

	assert.True(t, sim.Metrics().BuyVolume().Equal(d("0.4")))
	assert.True(t, sim.Metrics().SellVolume().Equal(d("0.2")))

	series := sim.Metrics().Series()
	require.Len(t, series, 3)
	assert.True(t, series[0].OrderFlowImbalance.Equal(d("0.3")))
	assert.True(t, series[1].OrderFlowImbalance.Equal(d("0.1")))
	assert.Equal(t, float64(base.Unix()), series[0].Timestamp)

	for _, tr := range sim.Book().TradeHistory(0) {
		o, ok := sim.Book().Order(tr.BuyOrderID)
		require.True(t, ok)
		if o.Type == orderbook.MARKET {
			assert.Equal(t, ReplayTraderID, o.TraderID)
		}
	}
}

func TestReplayTradesRejectsSpeed(t *testing.T) {
	sim := newTestSimulator(t, DefaultConfig())
	err := sim.ReplayTrades(context.Background(), nil, 0)
	assert.True(t, errors.Is(err, ErrInvalidSpeed))
}

func TestReplayMarketOrderEndsPartial(t *testing.T) {
	sim := newTestSimulator(t, DefaultConfig(), WithSleeper((&recordingSleeper{}).sleep))
	require.NoError(t, sim.SeedFromSnapshot(snapshotLevels()))

	trades := []marketdata.Trade{{Time: time.Unix(1712345600, 0), Quantity: d("5"), Side: orderbook.BUY}}
	require.NoError(t, sim.ReplayTrades(context.Background(), trades, 1))

	_, ok := sim.Book().BestAsk()
	assert.False(t, ok)
	assert.True(t, sim.Book().TotalVolume().Equal(d("1.5")))
	// an empty ask side leaves no spread to sample
	assert.Empty(t, sim.Metrics().Series())
}

func TestReplayStopsOnCancel(t *testing.T) {
	sim := newTestSimulator(t, DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sim.ReplayTrades(ctx, []marketdata.Trade{{Time: time.Now(), Quantity: d("1"), Side: orderbook.BUY}}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func runSeeded(t *testing.T, seed int64, n int) ([]orderbook.Trade, []Sample) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Seed = seed
	sim := newTestSimulator(t, cfg, WithBookOptions(orderbook.WithSequencer(orderbook.NewSequencer(0))))
	require.NoError(t, sim.SeedFromSnapshot(snapshotLevels()))
	require.NoError(t, sim.SimulateHawkes(context.Background(), n))
	return sim.Book().TradeHistory(0), sim.Metrics().Series()
}

func TestHawkesSimulationIsReproducible(t *testing.T) {
	tradesA, seriesA := runSeeded(t, 42, 300)
	tradesB, seriesB := runSeeded(t, 42, 300)

	require.NotEmpty(t, tradesA)
	require.Equal(t, len(tradesA), len(tradesB))
	for i := range tradesA {
		a, b := tradesA[i], tradesB[i]
		assert.Equal(t, a.BuyOrderID, b.BuyOrderID)
		assert.Equal(t, a.SellOrderID, b.SellOrderID)
		assert.True(t, a.Price.Equal(b.Price), "trade %d price", i)
		assert.True(t, a.Quantity.Equal(b.Quantity), "trade %d qty", i)
		assert.Equal(t, a.Timestamp, b.Timestamp)
	}
	require.Equal(t, len(seriesA), len(seriesB))
	for i := range seriesA {
		assert.Equal(t, seriesA[i].Timestamp, seriesB[i].Timestamp)
		assert.True(t, seriesA[i].MidPrice.Equal(seriesB[i].MidPrice))
	}
}

func TestHawkesSimulationConservesVolume(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 7
	sim := newTestSimulator(t, cfg)
	require.NoError(t, sim.SeedFromSnapshot(snapshotLevels()))
	require.NoError(t, sim.SimulateHawkes(context.Background(), 500))

	book := sim.Book()
	total := decimal.Zero
	for _, tr := range book.TradeHistory(0) {
		assert.True(t, tr.Quantity.IsPositive())
		total = total.Add(tr.Quantity)
	}
	assert.True(t, total.Equal(book.TotalVolume()))

	bid, okBid := book.BestBid()
	ask, okAsk := book.BestAsk()
	if okBid && okAsk {
		assert.True(t, bid.LessThan(ask), "crossed book %s >= %s", bid, ask)
	}

	gen, err := sim.Generator()
	require.NoError(t, err)
	assert.Equal(t, int64(7), gen.Seed())
}

func TestGeneratorUsesBookMid(t *testing.T) {
	sim := newTestSimulator(t, DefaultConfig())
	require.NoError(t, sim.SeedFromSnapshot(snapshotLevels()))

	gen, err := sim.Generator()
	require.NoError(t, err)
	assert.Equal(t, 68005.0, gen.ReferenceMid())
	assert.NotZero(t, gen.Seed())
}

func TestGeneratorStopsOnCancel(t *testing.T) {
	sim := newTestSimulator(t, DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sim.SimulateHawkes(ctx, 10), context.Canceled)
}

func TestGeneratorStepOrders(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 11
	book := orderbook.NewOrderBook("XBTUSD", orderbook.WithClock(fixedClock()))
	gen, err := NewGenerator(book, cfg, nil, nil)
	require.NoError(t, err)

	minQty := decimal.NewFromFloat(cfg.MinQty)
	prevTime := 0.0
	for i := 0; i < 200; i++ {
		ev, err := gen.Step()
		require.NoError(t, err)
		assert.Equal(t, i, ev.Index)
		assert.Greater(t, ev.Time, prevTime)
		prevTime = ev.Time

		o := ev.Order
		assert.True(t, o.Quantity.GreaterThanOrEqual(minQty))
		assert.LessOrEqual(t, o.Quantity.Exponent(), int32(0))
		assert.GreaterOrEqual(t, o.Quantity.Exponent(), -cfg.QtyDecimals)
		if o.Type == orderbook.LIMIT {
			require.True(t, o.Price.Valid)
			assert.True(t, o.Price.Decimal.Equal(o.Price.Decimal.Round(cfg.PriceDecimals)))
		} else {
			assert.False(t, o.Price.Valid)
		}
	}
}

type rejectLimits struct{}

func (rejectLimits) Check(o *orderbook.Order) error {
	if o.Type == orderbook.LIMIT {
		return errors.New("limits disabled")
	}
	return nil
}

func TestGeneratorSkipsRejectedOrders(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 9
	book := orderbook.NewOrderBook("XBTUSD", orderbook.WithOrderChecks(rejectLimits{}))
	gen, err := NewGenerator(book, cfg, nil, nil)
	require.NoError(t, err)

	rejected := 0
	for i := 0; i < 50; i++ {
		ev, err := gen.Step()
		require.NoError(t, err)
		if ev.Rejected != nil {
			rejected++
			assert.ErrorIs(t, ev.Rejected, orderbook.ErrRejected)
			assert.Equal(t, orderbook.LIMIT, ev.Order.Type)
		}
	}
	assert.Greater(t, rejected, 0)
	assert.Equal(t, 50, gen.Events())
	assert.Equal(t, 50-rejected, book.OrderCount())
}

func TestSyntheticLadder(t *testing.T) {
	levels := SyntheticLadder(d("100"), d("0.5"), d("2"), 3)
	require.Len(t, levels, 6)
	assert.True(t, levels[0].Price.Equal(d("99.5")))
	assert.True(t, levels[0].Quantity.Equal(d("2")))
	assert.Equal(t, orderbook.BUY, levels[0].Side)
	assert.True(t, levels[1].Price.Equal(d("100.5")))
	assert.Equal(t, orderbook.SELL, levels[1].Side)
	assert.True(t, levels[4].Price.Equal(d("98.5")))
	assert.True(t, levels[4].Quantity.Equal(d("6")))
}

func TestSeedSynthetic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartMid = 68000.04
	sim := newTestSimulator(t, cfg)
	require.NoError(t, sim.SeedSynthetic())

	book := sim.Book()
	assert.Equal(t, 2*cfg.LadderLevels, book.RestingCount())
	bid, ok := book.BestBid()
	require.True(t, ok)
	ask, ok := book.BestAsk()
	require.True(t, ok)
	assert.True(t, bid.Equal(d("67999")), "best bid %s", bid)
	assert.True(t, ask.Equal(d("68001")), "best ask %s", ask)
	assert.Empty(t, book.TradeHistory(0))
}

func TestSubmitAndCancel(t *testing.T) {
	sim := newTestSimulator(t, DefaultConfig())
	require.NoError(t, sim.SeedFromSnapshot(snapshotLevels()))

	o, trades, err := sim.Submit(orderbook.BUY, orderbook.MARKET, d("0.2"), decimal.NullDecimal{})
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, ManualTraderID, o.TraderID)
	assert.Equal(t, orderbook.FILLED, o.Status())
	assert.True(t, sim.Metrics().BuyVolume().Equal(d("0.2")))
	require.Len(t, sim.Metrics().Tape(), 1)

	bid, _, err := sim.Submit(orderbook.BUY, orderbook.LIMIT, d("1"), decimal.NewNullDecimal(d("68005")))
	require.NoError(t, err)
	best, _ := sim.Book().BestBid()
	assert.True(t, best.Equal(d("68005")))

	assert.True(t, sim.Cancel(bid.ID))
	assert.False(t, sim.Cancel(bid.ID), "already cancelled")
	assert.False(t, sim.Cancel(o.ID), "filled")
	assert.False(t, sim.Cancel(999), "unknown")
	best, _ = sim.Book().BestBid()
	assert.True(t, best.Equal(d("68000")))

	_, _, err = sim.Submit(orderbook.BUY, orderbook.LIMIT, d("0"), decimal.NewNullDecimal(d("1")))
	assert.ErrorIs(t, err, orderbook.ErrInvalidQuantity)
	assert.True(t, sim.Metrics().BuyVolume().Equal(d("1.2")))
}
