package orderbook

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Trade is one execution between a resting order and an aggressor.
// Price is always the resting order's price.
type Trade struct {
	BuyOrderID    uint64
	SellOrderID   uint64
	Price         decimal.Decimal
	Quantity      decimal.Decimal
	AggressorSide Side
	Timestamp     time.Time
}

func (t Trade) String() string {
	return fmt.Sprintf("Trade(buy=%d, sell=%d, price=%s, qty=%s)",
		t.BuyOrderID, t.SellOrderID, t.Price.StringFixed(2), t.Quantity.StringFixed(4))
}
