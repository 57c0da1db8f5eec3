package orderbook

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const SeedTraderID = "market_maker"

// Level describes one resting order taken from an external snapshot.
type Level struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Side     Side
}

// Seed rests one limit order per level under SeedTraderID. All levels are
// validated and run through the book's order checks before any is added, so a
// bad snapshot leaves the book untouched.
func (ob *OrderBook) Seed(levels []Level) ([]Trade, error) {
	for i, l := range levels {
		if !l.Price.IsPositive() || !l.Quantity.IsPositive() {
			return nil, fmt.Errorf("%w: level %d price=%s qty=%s", ErrInvalidSeedLevel, i, l.Price, l.Quantity)
		}
		if l.Side != BUY && l.Side != SELL {
			return nil, fmt.Errorf("%w: level %d side %q", ErrInvalidSide, i, l.Side)
		}
		// checked without an id so a rejected snapshot does not consume the sequencer
		draft := NewOrder(0, l.Side, LIMIT, l.Quantity, decimal.NewNullDecimal(l.Price), SeedTraderID, time.Time{})
		if err := ob.check(draft); err != nil {
			return nil, fmt.Errorf("level %d: %w", i, err)
		}
	}

	var trades []Trade
	for _, l := range levels {
		executed, err := ob.AddOrder(ob.NewLimitOrder(l.Side, l.Quantity, l.Price, SeedTraderID))
		if err != nil {
			return trades, err
		}
		trades = append(trades, executed...)
	}
	return trades, nil
}
