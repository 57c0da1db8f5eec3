package simulator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/joripage/lobsim/pkg/marketdata"
	"github.com/joripage/lobsim/pkg/orderbook"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReplayTraderID tags market orders built from recorded trades.
const ReplayTraderID = "replayer"

// ManualTraderID tags orders entered by hand.
const ManualTraderID = "manual"

// maxReplayPause caps how long a replay waits between two recorded trades.
const maxReplayPause = 5 * time.Second

// Sleeper pauses a replay. Tests swap it for one that records instead of waiting.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type SimulatorOption func(*Simulator)

// WithBookOptions passes options through to the underlying order book.
func WithBookOptions(opts ...orderbook.Option) SimulatorOption {
	return func(s *Simulator) { s.bookOpts = append(s.bookOpts, opts...) }
}

func WithLogger(logger *zap.Logger) SimulatorOption {
	return func(s *Simulator) { s.logger = logger }
}

func WithSleeper(sleep Sleeper) SimulatorOption {
	return func(s *Simulator) { s.sleep = sleep }
}

// Simulator drives one order book from a market snapshot, recorded trades
// or synthetic Hawkes flow, and keeps the metrics of everything it did.
type Simulator struct {
	cfg      Config
	book     *orderbook.OrderBook
	bookOpts []orderbook.Option
	metrics  *Metrics
	gen      *Generator
	logger   *zap.Logger
	sleep    Sleeper
}

func NewSimulator(symbol string, cfg Config, opts ...SimulatorOption) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Simulator{
		cfg:     cfg,
		metrics: NewMetrics(),
		logger:  zap.NewNop(),
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.book = orderbook.NewOrderBook(symbol, append([]orderbook.Option{orderbook.WithLogger(s.logger)}, s.bookOpts...)...)
	return s, nil
}

func (s *Simulator) Book() *orderbook.OrderBook { return s.book }
func (s *Simulator) Metrics() *Metrics          { return s.metrics }
func (s *Simulator) Config() Config             { return s.cfg }

// SeedFromSnapshot rests every snapshot level as a market maker limit order.
func (s *Simulator) SeedFromSnapshot(levels []orderbook.Level) error {
	if _, err := s.book.Seed(levels); err != nil {
		return fmt.Errorf("seed %s: %w", s.book.Symbol(), err)
	}

	fields := []zap.Field{zap.String("symbol", s.book.Symbol()), zap.Int("levels", len(levels))}
	if bid, ok := s.book.BestBid(); ok {
		fields = append(fields, zap.String("best_bid", bid.StringFixed(2)))
	}
	if ask, ok := s.book.BestAsk(); ok {
		fields = append(fields, zap.String("best_ask", ask.StringFixed(2)))
	}
	if spread, ok := s.book.Spread(); ok {
		fields = append(fields, zap.String("spread", spread.StringFixed(2)))
	}
	s.logger.Info("seeded order book", fields...)
	return nil
}

// SyntheticLadder builds levels evenly spaced by step on both sides of mid.
// Level i from the touch carries i*qty.
func SyntheticLadder(mid, step, qty decimal.Decimal, levels int) []orderbook.Level {
	out := make([]orderbook.Level, 0, 2*levels)
	for i := 1; i <= levels; i++ {
		offset := step.Mul(decimal.NewFromInt(int64(i)))
		size := qty.Mul(decimal.NewFromInt(int64(i)))
		out = append(out,
			orderbook.Level{Price: mid.Sub(offset), Quantity: size, Side: orderbook.BUY},
			orderbook.Level{Price: mid.Add(offset), Quantity: size, Side: orderbook.SELL})
	}
	return out
}

// SeedSynthetic seeds the book with a SyntheticLadder around the configured start mid.
func (s *Simulator) SeedSynthetic() error {
	mid := decimal.NewFromFloat(s.cfg.StartMid).Round(s.cfg.PriceDecimals)
	step := decimal.NewFromFloat(s.cfg.LadderStep).Round(s.cfg.PriceDecimals)
	qty := decimal.NewFromFloat(s.cfg.LadderQty).Round(s.cfg.QtyDecimals)
	if !step.IsPositive() || !qty.IsPositive() {
		return fmt.Errorf("%w: ladder step %v and qty %v vanish at configured precision", ErrInvalidConfig, s.cfg.LadderStep, s.cfg.LadderQty)
	}
	return s.SeedFromSnapshot(SyntheticLadder(mid, step, qty, s.cfg.LadderLevels))
}

// ReplayTrades submits each recorded trade, oldest first, as a market order on
// the trade's aggressor side. With speed > 0 the gaps between trades are
// reproduced, divided by speed, when they are shorter than five seconds.
func (s *Simulator) ReplayTrades(ctx context.Context, trades []marketdata.Trade, speed float64) error {
	if speed <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidSpeed, speed)
	}
	if len(trades) == 0 {
		return nil
	}

	sorted := make([]marketdata.Trade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	s.logger.Info("replaying trades",
		zap.Int("trades", len(sorted)),
		zap.Time("from", sorted[0].Time),
		zap.Time("to", sorted[len(sorted)-1].Time),
		zap.Float64("speed", speed))

	executed := 0
	for i, rec := range sorted {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i > 0 {
			delay := time.Duration(float64(rec.Time.Sub(sorted[i-1].Time)) / speed)
			if delay > 0 && delay < maxReplayPause {
				if err := s.sleep(ctx, delay); err != nil {
					return err
				}
			}
		}

		o := s.book.NewMarketOrder(rec.Side, rec.Quantity, ReplayTraderID)
		fills, err := s.book.AddOrder(o)
		if err != nil {
			return fmt.Errorf("replay trade %d: %w", i, err)
		}
		s.metrics.RecordFlow(rec.Side, rec.Quantity)
		s.metrics.Observe(float64(rec.Time.UnixNano())/1e9, s.book)
		s.metrics.RecordTrades(fills)
		executed += len(fills)
	}

	s.logger.Info("replay done", zap.Int("trades", len(sorted)), zap.Int("fills", executed))
	return nil
}

// Submit places a hand-entered order and records its flow and trades.
// A rejected order leaves the metrics untouched.
func (s *Simulator) Submit(side orderbook.Side, typ orderbook.OrderType, qty decimal.Decimal, price decimal.NullDecimal) (*orderbook.Order, []orderbook.Trade, error) {
	o := s.book.NewOrder(side, typ, qty, price, ManualTraderID)
	trades, err := s.book.AddOrder(o)
	if err != nil {
		return o, nil, err
	}
	s.metrics.RecordFlow(side, qty)
	s.metrics.RecordTrades(trades)
	s.logger.Debug("manual order",
		zap.Uint64("order_id", o.ID),
		zap.String("status", string(o.Status())),
		zap.Int("trades", len(trades)))
	return o, trades, nil
}

// Cancel cancels a live order. Unknown, filled and already cancelled orders report false.
func (s *Simulator) Cancel(id uint64) bool {
	o, ok := s.book.Order(id)
	if !ok || !o.IsLive() {
		return false
	}
	return s.book.CancelOrder(id)
}

// Generator returns the Hawkes generator bound to this book, creating it on
// first use. Its random walk starts at the book mid when there is one.
func (s *Simulator) Generator() (*Generator, error) {
	if s.gen != nil {
		return s.gen, nil
	}
	cfg := s.cfg
	if mid, ok := s.book.MidPrice(); ok {
		cfg.StartMid = mid.InexactFloat64()
	}
	gen, err := NewGenerator(s.book, cfg, s.metrics, s.logger)
	if err != nil {
		return nil, err
	}
	s.gen = gen
	return gen, nil
}

// SimulateHawkes generates n synthetic events against the book.
func (s *Simulator) SimulateHawkes(ctx context.Context, n int) error {
	gen, err := s.Generator()
	if err != nil {
		return err
	}
	return gen.Run(ctx, n)
}

// Analytics summarises everything recorded so far.
func (s *Simulator) Analytics() Analytics {
	return ComputeAnalytics(s.metrics, s.book)
}
