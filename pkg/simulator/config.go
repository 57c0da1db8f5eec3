package simulator

import "fmt"

// Config holds the order-flow parameters. The Hawkes window and decay are
// tuning knobs, not calibrated against any target statistic.
type Config struct {
	Mu     float64 `yaml:"mu"`     // base arrival rate
	Alpha  float64 `yaml:"alpha"`  // self-excitation
	Beta   float64 `yaml:"beta"`   // decay rate
	Window int     `yaml:"window"` // recent events that contribute to intensity

	MarketProbability float64 `yaml:"market_probability"`
	QtyMu             float64 `yaml:"qty_mu"`
	QtySigma          float64 `yaml:"qty_sigma"`
	MinQty            float64 `yaml:"min_qty"`
	QtyDecimals       int32   `yaml:"qty_decimals"`
	SpreadOffset      float64 `yaml:"spread_offset"`
	Volatility        float64 `yaml:"volatility"`
	PriceDecimals     int32   `yaml:"price_decimals"`
	Traders           int     `yaml:"traders"`
	StartMid          float64 `yaml:"start_mid"`
	Seed              int64   `yaml:"seed"` // 0 picks a time based seed

	// synthetic ladder used when no market snapshot is available
	LadderLevels int     `yaml:"ladder_levels"`
	LadderStep   float64 `yaml:"ladder_step"`
	LadderQty    float64 `yaml:"ladder_qty"`
}

func DefaultConfig() Config {
	return Config{
		Mu:                0.5,
		Alpha:             0.8,
		Beta:              1.0,
		Window:            20,
		MarketProbability: 0.3,
		QtyMu:             -2,
		QtySigma:          1,
		MinQty:            0.001,
		QtyDecimals:       4,
		SpreadOffset:      10,
		Volatility:        50,
		PriceDecimals:     1,
		Traders:           20,
		StartMid:          68000,
		LadderLevels:      10,
		LadderStep:        1,
		LadderQty:         0.5,
	}
}

func (c Config) Validate() error {
	switch {
	case c.Mu <= 0:
		return fmt.Errorf("%w: mu must be positive, got %v", ErrInvalidConfig, c.Mu)
	case c.Alpha < 0:
		return fmt.Errorf("%w: alpha must not be negative, got %v", ErrInvalidConfig, c.Alpha)
	case c.Beta <= 0:
		return fmt.Errorf("%w: beta must be positive, got %v", ErrInvalidConfig, c.Beta)
	case c.Window < 1:
		return fmt.Errorf("%w: window must be at least 1, got %d", ErrInvalidConfig, c.Window)
	case c.MarketProbability < 0 || c.MarketProbability > 1:
		return fmt.Errorf("%w: market_probability must be in [0,1], got %v", ErrInvalidConfig, c.MarketProbability)
	case c.MinQty <= 0:
		return fmt.Errorf("%w: min_qty must be positive, got %v", ErrInvalidConfig, c.MinQty)
	case c.QtySigma < 0 || c.SpreadOffset < 0 || c.Volatility < 0:
		return fmt.Errorf("%w: qty_sigma, spread_offset and volatility must not be negative", ErrInvalidConfig)
	case c.Traders < 1:
		return fmt.Errorf("%w: traders must be at least 1, got %d", ErrInvalidConfig, c.Traders)
	case c.StartMid <= 0:
		return fmt.Errorf("%w: start_mid must be positive, got %v", ErrInvalidConfig, c.StartMid)
	case c.LadderLevels < 1 || c.LadderStep <= 0 || c.LadderQty <= 0:
		return fmt.Errorf("%w: ladder_levels, ladder_step and ladder_qty must be positive", ErrInvalidConfig)
	case c.StartMid <= c.LadderStep*float64(c.LadderLevels):
		return fmt.Errorf("%w: ladder of %d levels at step %v does not fit below start_mid %v", ErrInvalidConfig, c.LadderLevels, c.LadderStep, c.StartMid)
	}
	return nil
}
