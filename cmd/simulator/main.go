package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joripage/lobsim/config"
	"github.com/joripage/lobsim/pkg/app"
	"github.com/joripage/lobsim/pkg/logging"
	"go.uber.org/zap"
)

func main() {
	var configFile string
	var events int
	var seed int64
	var replay bool
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.IntVar(&events, "events", -1, "Number of Hawkes events, overrides config")
	flag.Int64Var(&seed, "seed", 0, "Random seed, overrides config when non zero")
	flag.BoolVar(&replay, "replay", false, "Replay the stored trades before simulating")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}
	if events >= 0 {
		cfg.Events = events
	}
	if seed != 0 {
		cfg.Simulator.Seed = seed
	}
	if replay {
		cfg.Replay.Enabled = true
	}

	base, err := logging.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer base.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	logger, ctx := base.ForRun(ctx)

	if err := run(ctx, cfg, logger.Zap()); err != nil {
		logger.Error("simulation failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) error {
	pub, err := app.NewPublisher(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if pub != nil {
		defer pub.Close()
	}

	sim, snap, err := app.NewSimulator(ctx, cfg, pub, logger)
	if err != nil {
		return err
	}

	if cfg.Replay.Enabled {
		if err := sim.ReplayTrades(ctx, snap.Trades, cfg.Replay.Speed); err != nil {
			return err
		}
	}
	if err := sim.SimulateHawkes(ctx, cfg.Events); err != nil {
		return err
	}

	app.LogAnalytics(logger, sim.Analytics())

	bids, asks := sim.Book().Depth(5)
	fmt.Printf("%s  trades=%d volume=%s resting=%d\n",
		sim.Book().Symbol(), sim.Book().TotalTrades(), sim.Book().TotalVolume().StringFixed(4), sim.Book().RestingCount())
	for i := len(asks) - 1; i >= 0; i-- {
		fmt.Printf("  ASK %12s %10s (%d)\n", asks[i].Price.StringFixed(2), asks[i].Quantity.StringFixed(4), asks[i].Orders)
	}
	for _, b := range bids {
		fmt.Printf("  BID %12s %10s (%d)\n", b.Price.StringFixed(2), b.Quantity.StringFixed(4), b.Orders)
	}
	return nil
}
