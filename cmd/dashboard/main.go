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
	"github.com/joripage/lobsim/pkg/dashboard"
	"github.com/joripage/lobsim/pkg/logging"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}
	// the terminal belongs to the dashboard, keep the logs quiet
	cfg.Log.Level = "error"
	logger, err := logging.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pub, err := app.NewPublisher(ctx, cfg, logger.Zap())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if pub != nil {
		defer pub.Close()
	}

	sim, _, err := app.NewSimulator(ctx, cfg, pub, logger.Zap())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := dashboard.Run(ctx, sim, cfg.Dashboard, logger.Zap()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
