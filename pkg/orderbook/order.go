package orderbook

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	BUY  Side = "BUY"
	SELL Side = "SELL"
)

// Opposite returns the side an order of s matches against.
func (s Side) Opposite() Side {
	if s == BUY {
		return SELL
	}
	return BUY
}

type OrderType string

const (
	LIMIT  OrderType = "LIMIT"
	MARKET OrderType = "MARKET"
)

type OrderStatus string

const (
	OPEN      OrderStatus = "OPEN"
	PARTIAL   OrderStatus = "PARTIAL"
	FILLED    OrderStatus = "FILLED"
	CANCELLED OrderStatus = "CANCELLED"
)

// nextStatus is the only place an order status is derived.
// expired marks a market order whose unfilled quantity was discarded.
func nextStatus(remaining, quantity decimal.Decimal, cancelled, expired bool) OrderStatus {
	switch {
	case cancelled:
		return CANCELLED
	case remaining.IsZero():
		return FILLED
	case remaining.LessThan(quantity), expired:
		return PARTIAL
	default:
		return OPEN
	}
}

type Order struct {
	ID        uint64
	Side      Side
	Type      OrderType
	Quantity  decimal.Decimal
	Price     decimal.NullDecimal // invalid for MARKET
	TraderID  string
	CreatedAt time.Time

	remaining decimal.Decimal
	filled    decimal.Decimal
	status    OrderStatus
	cancelled bool
	expired   bool
}

// NewOrder builds an order with the given identity. Most callers should use
// OrderBook.NewOrder so ids come from the book's sequencer.
func NewOrder(id uint64, side Side, typ OrderType, qty decimal.Decimal, price decimal.NullDecimal, traderID string, createdAt time.Time) *Order {
	if traderID == "" {
		traderID = "anonymous"
	}
	o := &Order{
		ID:        id,
		Side:      side,
		Type:      typ,
		Quantity:  qty,
		Price:     price,
		TraderID:  traderID,
		CreatedAt: createdAt,
		remaining: qty,
		filled:    decimal.Zero,
	}
	o.status = nextStatus(o.remaining, o.Quantity, false, false)
	return o
}

func (o *Order) Remaining() decimal.Decimal { return o.remaining }
func (o *Order) Filled() decimal.Decimal    { return o.filled }
func (o *Order) Status() OrderStatus        { return o.status }

// Fill applies up to qty to the order and returns the quantity actually applied.
func (o *Order) Fill(qty decimal.Decimal) decimal.Decimal {
	if qty.GreaterThan(o.remaining) {
		qty = o.remaining
	}
	if qty.IsNegative() {
		qty = decimal.Zero
	}
	o.filled = o.filled.Add(qty)
	o.remaining = o.remaining.Sub(qty)
	o.status = nextStatus(o.remaining, o.Quantity, o.cancelled, o.expired)
	return qty
}

// Cancel marks the order cancelled. Callers treat cancel of a filled order as a no-op.
func (o *Order) Cancel() {
	o.cancelled = true
	o.status = nextStatus(o.remaining, o.Quantity, o.cancelled, o.expired)
}

// expire discards the unfilled remainder of a market order.
func (o *Order) expire() {
	o.expired = true
	o.status = nextStatus(o.remaining, o.Quantity, o.cancelled, o.expired)
}

// FillPct returns the filled share of the original quantity in percent.
func (o *Order) FillPct() float64 {
	if !o.Quantity.IsPositive() {
		return 0
	}
	return o.filled.Div(o.Quantity).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

func (o *Order) IsTerminal() bool {
	return o.status == FILLED || o.status == CANCELLED
}

// IsLive reports whether the order can still be matched. A market order
// whose remainder was discarded is not live.
func (o *Order) IsLive() bool {
	return !o.IsTerminal() && !o.expired && o.remaining.IsPositive()
}

func (o *Order) String() string {
	price := "MKT"
	if o.Price.Valid {
		price = o.Price.Decimal.String()
	}
	return fmt.Sprintf("Order(id=%d, side=%s, type=%s, qty=%s, price=%s, filled=%s, status=%s)",
		o.ID, o.Side, o.Type, o.Quantity.StringFixed(4), price, o.filled.StringFixed(4), o.status)
}
