package simulator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/joripage/lobsim/pkg/orderbook"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Event is one generated arrival and what it did to the book.
type Event struct {
	Index    int
	Time     float64
	Order    *orderbook.Order
	Trades   []orderbook.Trade
	Rejected error // set when a pre-trade check refused the order
}

// Generator synthesises orders at Hawkes event times and submits them to a book.
// The book never influences what the generator draws next.
type Generator struct {
	cfg     Config
	seed    int64
	book    *orderbook.OrderBook
	metrics *Metrics
	rng     *rand.Rand
	hawkes  *HawkesProcess
	logger  *zap.Logger

	mid      float64
	events   int
	rejected int
}

// NewGenerator builds a generator whose draws all come from one source seeded with cfg.Seed.
func NewGenerator(book *orderbook.OrderBook, cfg Config, metrics *Metrics, logger *zap.Logger) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	return &Generator{
		cfg:     cfg,
		seed:    seed,
		book:    book,
		metrics: metrics,
		rng:     rng,
		hawkes:  NewHawkesProcess(cfg.Mu, cfg.Alpha, cfg.Beta, cfg.Window, rng),
		logger:  logger,
		mid:     cfg.StartMid,
	}, nil
}

// Seed returns the seed actually used, which differs from Config.Seed when that was 0.
func (g *Generator) Seed() int64 {
	return g.seed
}

func (g *Generator) Metrics() *Metrics {
	return g.metrics
}

// Intensity is the Hawkes intensity right after the latest event.
func (g *Generator) Intensity() float64 {
	return g.hawkes.Lambda()
}

// Events is how many events have been generated.
func (g *Generator) Events() int {
	return g.events
}

// ReferenceMid is the random-walk mid used to place limit prices.
func (g *Generator) ReferenceMid() float64 {
	return g.mid
}

// Step draws the next event, submits its order and records the outcome.
func (g *Generator) Step() (Event, error) {
	t := g.hawkes.Next()
	o := g.nextOrder()
	idx := g.events
	g.events++

	trades, err := g.book.AddOrder(o)
	if errors.Is(err, orderbook.ErrRejected) {
		g.rejected++
		return Event{Index: idx, Time: t, Order: o, Rejected: err}, nil
	}
	if err != nil {
		return Event{}, fmt.Errorf("event %d: %w", idx, err)
	}

	g.metrics.RecordFlow(o.Side, o.Quantity)
	g.metrics.Observe(t, g.book)
	g.metrics.RecordTrades(trades)

	return Event{Index: idx, Time: t, Order: o, Trades: trades}, nil
}

// Run generates n events, stopping early if ctx is done.
func (g *Generator) Run(ctx context.Context, n int) error {
	g.logger.Info("simulating hawkes order flow",
		zap.Int("events", n),
		zap.Int64("seed", g.seed),
		zap.Float64("mu", g.cfg.Mu),
		zap.Float64("alpha", g.cfg.Alpha),
		zap.Float64("beta", g.cfg.Beta))

	trades := 0
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		ev, err := g.Step()
		if err != nil {
			return err
		}
		trades += len(ev.Trades)
	}

	g.logger.Info("hawkes simulation done",
		zap.Int("events", n),
		zap.Int("trades", trades),
		zap.Int("rejected", g.rejected),
		zap.Float64("final_intensity", g.hawkes.Lambda()))
	return nil
}

func (g *Generator) nextOrder() *orderbook.Order {
	g.mid += g.rng.NormFloat64() * g.cfg.Volatility * 0.01

	side := orderbook.SELL
	if g.rng.Float64() > 0.5 {
		side = orderbook.BUY
	}
	typ := orderbook.LIMIT
	if g.rng.Float64() < g.cfg.MarketProbability {
		typ = orderbook.MARKET
	}

	raw := math.Exp(g.cfg.QtyMu + g.cfg.QtySigma*g.rng.NormFloat64())
	qty := decimal.NewFromFloat(raw).Round(g.cfg.QtyDecimals)
	if minQty := decimal.NewFromFloat(g.cfg.MinQty); qty.LessThan(minQty) {
		qty = minQty
	}

	trader := fmt.Sprintf("trader_%d", g.events%g.cfg.Traders)
	if typ == orderbook.MARKET {
		return g.book.NewMarketOrder(side, qty, trader)
	}

	offset := g.rng.Float64() * g.cfg.SpreadOffset * 2
	price := g.mid - offset
	if side == orderbook.SELL {
		price = g.mid + offset
	}
	return g.book.NewLimitOrder(side, qty, decimal.NewFromFloat(price).Round(g.cfg.PriceDecimals), trader)
}
