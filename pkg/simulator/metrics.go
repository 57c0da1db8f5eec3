package simulator

import (
	"github.com/joripage/lobsim/pkg/orderbook"
	"github.com/shopspring/decimal"
)

// Sample is one observation of the book after an event.
type Sample struct {
	Timestamp          float64 // seconds: event time for Hawkes flow, unix time for replays
	MidPrice           decimal.Decimal
	Spread             decimal.Decimal
	OrderFlowImbalance decimal.Decimal
}

// TapeEntry is an executed trade tagged with the aggressor side.
type TapeEntry struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Side     orderbook.Side
}

// Metrics accumulates the observability series. It never feeds back into order generation.
type Metrics struct {
	samples    []Sample
	tape       []TapeEntry
	buyVolume  decimal.Decimal
	sellVolume decimal.Decimal
}

func NewMetrics() *Metrics {
	return &Metrics{
		buyVolume:  decimal.Zero,
		sellVolume: decimal.Zero,
	}
}

// RecordFlow adds submitted quantity to the cumulative volume of side.
func (m *Metrics) RecordFlow(side orderbook.Side, qty decimal.Decimal) {
	if side == orderbook.BUY {
		m.buyVolume = m.buyVolume.Add(qty)
		return
	}
	m.sellVolume = m.sellVolume.Add(qty)
}

func (m *Metrics) RecordTrades(trades []orderbook.Trade) {
	for _, t := range trades {
		m.tape = append(m.tape, TapeEntry{Price: t.Price, Quantity: t.Quantity, Side: t.AggressorSide})
	}
}

// Observe appends a sample when the book has both a mid price and a spread.
func (m *Metrics) Observe(ts float64, book *orderbook.OrderBook) bool {
	mid, ok := book.MidPrice()
	if !ok {
		return false
	}
	spread, ok := book.Spread()
	if !ok {
		return false
	}
	m.samples = append(m.samples, Sample{
		Timestamp:          ts,
		MidPrice:           mid,
		Spread:             spread,
		OrderFlowImbalance: m.Imbalance(),
	})
	return true
}

func (m *Metrics) Series() []Sample {
	out := make([]Sample, len(m.samples))
	copy(out, m.samples)
	return out
}

func (m *Metrics) Tape() []TapeEntry {
	out := make([]TapeEntry, len(m.tape))
	copy(out, m.tape)
	return out
}

func (m *Metrics) BuyVolume() decimal.Decimal  { return m.buyVolume }
func (m *Metrics) SellVolume() decimal.Decimal { return m.sellVolume }

// Imbalance is cumulative buy volume minus cumulative sell volume.
func (m *Metrics) Imbalance() decimal.Decimal {
	return m.buyVolume.Sub(m.sellVolume)
}
