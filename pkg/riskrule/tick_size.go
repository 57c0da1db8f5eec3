package riskrule

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/joripage/lobsim/pkg/orderbook"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// TickSizeTier applies Step to prices up to MaxPrice. A zero MaxPrice has no upper bound.
type TickSizeTier struct {
	MaxPrice decimal.Decimal `json:"maxPrice" yaml:"max_price"`
	Step     decimal.Decimal `json:"step" yaml:"step"`
}

// TickSizeRule rejects limit prices that are not a multiple of their tier's step.
type TickSizeRule struct {
	tiers []TickSizeTier
}

func NewTickSizeRule(tiers []TickSizeTier) (*TickSizeRule, error) {
	sorted := make([]TickSizeTier, len(tiers))
	copy(sorted, tiers)
	for _, t := range sorted {
		if !t.Step.IsPositive() {
			return nil, errors.Errorf("tick step must be positive, got %s", t.Step)
		}
	}
	// bounded tiers ascending, the unbounded one last
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].MaxPrice.IsZero() != sorted[j].MaxPrice.IsZero() {
			return sorted[j].MaxPrice.IsZero()
		}
		return sorted[i].MaxPrice.LessThan(sorted[j].MaxPrice)
	})
	return &TickSizeRule{tiers: sorted}, nil
}

// NewTickSizeRuleFromFile loads tiers from a JSON array.
func NewTickSizeRuleFromFile(path string) (*TickSizeRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}

	var tiers []TickSizeTier
	if err := json.Unmarshal(data, &tiers); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}

	return NewTickSizeRule(tiers)
}

func (r *TickSizeRule) Check(order *orderbook.Order) error {
	if !order.Price.Valid {
		return nil
	}

	price := order.Price.Decimal
	for _, tier := range r.tiers {
		if tier.MaxPrice.IsZero() || price.LessThanOrEqual(tier.MaxPrice) {
			if !price.Mod(tier.Step).IsZero() {
				return errors.Wrapf(ErrTickSize, "price %s step %s", price, tier.Step)
			}
			return nil
		}
	}

	return nil
}
