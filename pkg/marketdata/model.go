package marketdata

import (
	"time"

	"github.com/joripage/lobsim/pkg/orderbook"
	"github.com/shopspring/decimal"
)

// DepthEntry is one price level of an exchange order book snapshot.
type DepthEntry struct {
	Price     decimal.Decimal
	Quantity  decimal.Decimal
	Timestamp time.Time
}

// Trade is one public trade print.
type Trade struct {
	Time     time.Time
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Side     orderbook.Side
}

// Kline is one OHLCV candle.
type Kline struct {
	OpenTime time.Time
	Open     decimal.Decimal
	High     decimal.Decimal
	Low      decimal.Decimal
	Close    decimal.Decimal
	VWAP     decimal.Decimal
	Volume   decimal.Decimal
	Trades   int64
}

// Ticker is the 24h summary for a pair.
type Ticker struct {
	Bid       decimal.Decimal
	Ask       decimal.Decimal
	Last      decimal.Decimal
	Volume24h decimal.Decimal
	High24h   decimal.Decimal
	Low24h    decimal.Decimal
	VWAP24h   decimal.Decimal
	Trades24h int64
}

// Snapshot is everything the simulator needs from the market.
type Snapshot struct {
	Symbol string
	Bids   []DepthEntry
	Asks   []DepthEntry
	Trades []Trade
	Klines []Kline
}

// Levels converts the snapshot's depth into seed levels for an order book.
func (s *Snapshot) Levels() []orderbook.Level {
	levels := make([]orderbook.Level, 0, len(s.Bids)+len(s.Asks))
	for _, b := range s.Bids {
		levels = append(levels, orderbook.Level{Price: b.Price, Quantity: b.Quantity, Side: orderbook.BUY})
	}
	for _, a := range s.Asks {
		levels = append(levels, orderbook.Level{Price: a.Price, Quantity: a.Quantity, Side: orderbook.SELL})
	}
	return levels
}
