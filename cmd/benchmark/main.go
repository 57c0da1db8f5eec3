package main

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/joripage/lobsim/pkg/orderbook"
	"github.com/shopspring/decimal"
)

const (
	numOrders   = 1_000_000
	minPrice    = 100.0
	maxPrice    = 200.0
	minQty      = 1
	maxQty      = 100
	marketShare = 0.1
	cancelShare = 0.05
)

func randomOrder(ob *orderbook.OrderBook, rng *rand.Rand) *orderbook.Order {
	side := orderbook.BUY
	if rng.Intn(2) == 0 {
		side = orderbook.SELL
	}
	qty := decimal.NewFromInt(int64(rng.Intn(maxQty-minQty+1) + minQty))
	if rng.Float64() < marketShare {
		return ob.NewMarketOrder(side, qty, "bench")
	}
	price := decimal.NewFromFloat(minPrice + rng.Float64()*(maxPrice-minPrice)).Round(2)
	return ob.NewLimitOrder(side, qty, price, "bench")
}

func main() {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	totalMatched := 0
	totalQty := decimal.Zero
	cb := func(trades []orderbook.Trade) {
		for _, t := range trades {
			totalMatched++
			totalQty = totalQty.Add(t.Quantity)
			if totalMatched <= 5 {
				log.Printf("Match: BUY[%d] <=> SELL[%d] @ %s Qty %s\n",
					t.BuyOrderID, t.SellOrderID, t.Price.StringFixed(2), t.Quantity)
			}
		}
	}
	ob := orderbook.NewOrderBook("ABC", orderbook.WithTradeHandler(cb))

	var resting []uint64
	cancelled := 0
	start := time.Now()
	for i := 0; i < numOrders; i++ {
		if len(resting) > 0 && rng.Float64() < cancelShare {
			j := rng.Intn(len(resting))
			if ob.CancelOrder(resting[j]) {
				cancelled++
			}
			resting[j] = resting[len(resting)-1]
			resting = resting[:len(resting)-1]
			continue
		}
		o := randomOrder(ob, rng)
		if _, err := ob.AddOrder(o); err != nil {
			log.Fatalf("add order %d: %v", o.ID, err)
		}
		if o.IsLive() {
			resting = append(resting, o.ID)
		}
	}
	elapsed := time.Since(start)

	fmt.Println("--------")
	fmt.Printf("Total Orders     : %d\n", numOrders)
	fmt.Printf("Cancelled        : %d\n", cancelled)
	fmt.Printf("Total Matches    : %d\n", totalMatched)
	fmt.Printf("Total Matched Qty: %s\n", totalQty)
	fmt.Printf("Orders Accepted  : %d\n", ob.OrderCount())
	fmt.Printf("Time Taken       : %s (%.0f ops/sec)\n", elapsed, float64(numOrders)/elapsed.Seconds())
}
