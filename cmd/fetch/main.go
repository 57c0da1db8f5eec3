package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joripage/lobsim/config"
	"github.com/joripage/lobsim/pkg/logging"
	"github.com/joripage/lobsim/pkg/marketdata"
	"go.uber.org/zap"
)

func main() {
	var configFile, symbol string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.StringVar(&symbol, "symbol", "", "Override the configured symbol")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}
	if symbol != "" {
		cfg.Symbol = symbol
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := marketdata.NewKrakenClient(cfg.Kraken, logger.Zap())
	snap, err := client.Snapshot(ctx, cfg.Symbol, cfg.Fetch.Depth, cfg.Fetch.Trades)
	if err != nil {
		logger.Error("fetch snapshot failed", zap.Error(err))
		os.Exit(1)
	}

	if tk, err := client.Ticker(ctx, cfg.Symbol); err != nil {
		logger.Warn("fetch ticker failed", zap.Error(err))
	} else {
		logger.Info("ticker",
			zap.String("bid", tk.Bid.String()),
			zap.String("ask", tk.Ask.String()),
			zap.String("last", tk.Last.String()),
			zap.String("volume_24h", tk.Volume24h.String()),
			zap.String("high_24h", tk.High24h.String()),
			zap.String("low_24h", tk.Low24h.String()))
	}

	if err := marketdata.NewStore(cfg.DataDir).Save(snap); err != nil {
		logger.Error("save snapshot failed", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("snapshot saved", zap.String("dir", cfg.DataDir), zap.String("symbol", cfg.Symbol))
}
