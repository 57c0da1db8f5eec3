package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/joripage/lobsim/pkg/orderbook"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// TradeEvent is the wire form of an executed trade.
type TradeEvent struct {
	Symbol        string    `json:"symbol"`
	BuyOrderID    uint64    `json:"buy_order_id"`
	SellOrderID   uint64    `json:"sell_order_id"`
	Price         string    `json:"price"`
	Quantity      string    `json:"quantity"`
	AggressorSide string    `json:"aggressor_side"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTradeEvent(symbol string, t orderbook.Trade) TradeEvent {
	return TradeEvent{
		Symbol:        symbol,
		BuyOrderID:    t.BuyOrderID,
		SellOrderID:   t.SellOrderID,
		Price:         t.Price.String(),
		Quantity:      t.Quantity.String(),
		AggressorSide: string(t.AggressorSide),
		Timestamp:     t.Timestamp,
	}
}

func encode(symbol string, t orderbook.Trade) ([]byte, error) {
	b, err := json.Marshal(NewTradeEvent(symbol, t))
	if err != nil {
		return nil, errors.Wrap(err, "encode trade")
	}
	return b, nil
}

// TradePublisher ships executed trades somewhere outside the process.
type TradePublisher interface {
	Publish(ctx context.Context, symbol string, trades []orderbook.Trade) error
	Close() error
}

// Multi fans trades out to every publisher and reports all failures.
type Multi []TradePublisher

func (m Multi) Publish(ctx context.Context, symbol string, trades []orderbook.Trade) error {
	var err error
	for _, p := range m {
		err = multierr.Append(err, p.Publish(ctx, symbol, trades))
	}
	return err
}

func (m Multi) Close() error {
	var err error
	for _, p := range m {
		err = multierr.Append(err, p.Close())
	}
	return err
}

// Handler adapts p to an order book trade callback. Publish errors are
// logged; matching never waits on a failed sink.
func Handler(ctx context.Context, p TradePublisher, symbol string, logger *zap.Logger) func([]orderbook.Trade) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(trades []orderbook.Trade) {
		if len(trades) == 0 {
			return
		}
		if err := p.Publish(ctx, symbol, trades); err != nil {
			logger.Warn("publish trades failed", zap.String("symbol", symbol), zap.Int("trades", len(trades)), zap.Error(err))
		}
	}
}

// LogPublisher writes each trade to a zap logger at debug level.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, symbol string, trades []orderbook.Trade) error {
	for _, t := range trades {
		p.logger.Debug("trade",
			zap.String("symbol", symbol),
			zap.Uint64("buy_order_id", t.BuyOrderID),
			zap.Uint64("sell_order_id", t.SellOrderID),
			zap.String("price", t.Price.String()),
			zap.String("quantity", t.Quantity.String()),
			zap.String("aggressor", string(t.AggressorSide)))
	}
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
