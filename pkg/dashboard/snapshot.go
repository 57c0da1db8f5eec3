package dashboard

import (
	"time"

	"github.com/joripage/lobsim/pkg/orderbook"
	"github.com/joripage/lobsim/pkg/simulator"
	"github.com/shopspring/decimal"
)

type Config struct {
	Refresh       time.Duration `yaml:"refresh"`
	EventsPerTick int           `yaml:"events_per_tick"`
	DepthLevels   int           `yaml:"depth_levels"`
	TapeSize      int           `yaml:"tape_size"`
}

func DefaultConfig() Config {
	return Config{
		Refresh:       500 * time.Millisecond,
		EventsPerTick: 5,
		DepthLevels:   10,
		TapeSize:      15,
	}
}

// Snapshot is what one frame of the dashboard shows.
type Snapshot struct {
	Symbol    string
	Bids      []orderbook.DepthLevel
	Asks      []orderbook.DepthLevel
	BestBid   decimal.NullDecimal
	BestAsk   decimal.NullDecimal
	Mid       decimal.NullDecimal
	Spread    decimal.NullDecimal
	Tape      []simulator.TapeEntry // newest first
	Analytics simulator.Analytics
	Events    int
	Intensity float64
	Paused    bool
	Err       error
	Time      time.Time
	Prompt    string // open input form, if any
	Notice    string // outcome of the last manual action
}

func nullable(d decimal.Decimal, ok bool) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: ok}
}

// Capture reads the current state of sim.
func Capture(sim *simulator.Simulator, gen *simulator.Generator, cfg Config) Snapshot {
	book := sim.Book()
	bids, asks := book.Depth(cfg.DepthLevels)

	tape := sim.Metrics().Tape()
	n := cfg.TapeSize
	if n <= 0 || n > len(tape) {
		n = len(tape)
	}
	recent := make([]simulator.TapeEntry, 0, n)
	for i := len(tape) - 1; i >= len(tape)-n; i-- {
		recent = append(recent, tape[i])
	}

	snap := Snapshot{
		Symbol:    book.Symbol(),
		Bids:      bids,
		Asks:      asks,
		BestBid:   nullable(book.BestBid()),
		BestAsk:   nullable(book.BestAsk()),
		Mid:       nullable(book.MidPrice()),
		Spread:    nullable(book.Spread()),
		Tape:      recent,
		Analytics: sim.Analytics(),
		Time:      time.Now(),
	}
	if gen != nil {
		snap.Events = gen.Events()
		snap.Intensity = gen.Intensity()
	}
	return snap
}
