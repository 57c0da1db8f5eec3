package orderbook

import "errors"

var (
	ErrNilOrder         = errors.New("order is nil")
	ErrInvalidQuantity  = errors.New("order quantity must be positive")
	ErrInvalidPrice     = errors.New("limit order price must be positive")
	ErrInvalidSide      = errors.New("invalid order side")
	ErrInvalidOrderType = errors.New("invalid order type")
	ErrDuplicateOrder   = errors.New("duplicate order id")
	ErrInvalidSeedLevel = errors.New("seed level price and quantity must be positive")
	ErrRejected         = errors.New("order rejected")
	ErrUninitialized    = errors.New("order was not built with NewOrder")
)
