package riskrule

import (
	"strings"

	"github.com/joripage/lobsim/pkg/orderbook"
	"github.com/pkg/errors"
)

var (
	ErrTickSize   = errors.New("invalid tick size")
	ErrPriceLimit = errors.New("price limit violation")
)

var (
	_ orderbook.OrderCheck = (*TickSizeRule)(nil)
	_ orderbook.OrderCheck = (*LimitPriceRule)(nil)
)

// Config is the yaml form of the rules. Empty sections add no rule.
type Config struct {
	TickSize   []TickSizeTier `yaml:"tick_size"`
	PriceLimit *PriceBand     `yaml:"price_limit"`
}

// Rules builds the configured rules in a fixed order: tick size first.
func (c Config) Rules() ([]orderbook.OrderCheck, error) {
	var rules []orderbook.OrderCheck
	if len(c.TickSize) > 0 {
		r, err := NewTickSizeRule(c.TickSize)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	if c.PriceLimit != nil {
		r, err := NewLimitPriceRule(*c.PriceLimit)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// SymbolConfig holds one rule set per symbol. A symbol without an entry trades unchecked.
type SymbolConfig map[string]Config

// Rules builds the rules configured for symbol. Lookup ignores case.
func (c SymbolConfig) Rules(symbol string) ([]orderbook.OrderCheck, error) {
	if cfg, ok := c[symbol]; ok {
		return cfg.Rules()
	}
	for name, cfg := range c {
		if strings.EqualFold(name, symbol) {
			return cfg.Rules()
		}
	}
	return nil, nil
}

// Validate builds every configured rule set once.
func (c SymbolConfig) Validate() error {
	for name, cfg := range c {
		if _, err := cfg.Rules(); err != nil {
			return errors.Wrap(err, name)
		}
	}
	return nil
}
