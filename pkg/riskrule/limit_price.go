package riskrule

import (
	"github.com/joripage/lobsim/pkg/orderbook"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// PriceBand bounds acceptable limit prices, inclusive.
type PriceBand struct {
	Floor decimal.Decimal `yaml:"floor"`
	Ceil  decimal.Decimal `yaml:"ceil"`
}

// LimitPriceRule rejects limit orders priced outside the band. Market orders pass.
type LimitPriceRule struct {
	band PriceBand
}

func NewLimitPriceRule(band PriceBand) (*LimitPriceRule, error) {
	if band.Floor.IsNegative() || !band.Ceil.GreaterThan(band.Floor) {
		return nil, errors.Errorf("price band needs 0 <= floor < ceil, got [%s, %s]", band.Floor, band.Ceil)
	}
	return &LimitPriceRule{band: band}, nil
}

func (r *LimitPriceRule) Check(order *orderbook.Order) error {
	if !order.Price.Valid {
		return nil
	}
	if p := order.Price.Decimal; p.GreaterThan(r.band.Ceil) || p.LessThan(r.band.Floor) {
		return errors.Wrapf(ErrPriceLimit, "price %s outside [%s, %s]", p, r.band.Floor, r.band.Ceil)
	}
	return nil
}
