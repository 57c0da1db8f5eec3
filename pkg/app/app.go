package app

import (
	"context"

	"github.com/joripage/lobsim/config"
	redis_wrapper "github.com/joripage/lobsim/pkg/infra/redis"
	"github.com/joripage/lobsim/pkg/marketdata"
	"github.com/joripage/lobsim/pkg/orderbook"
	"github.com/joripage/lobsim/pkg/publisher"
	"github.com/joripage/lobsim/pkg/simulator"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// NewPublisher builds the trade sinks enabled in cfg. It returns nil when none are.
func NewPublisher(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (publisher.TradePublisher, error) {
	var sinks publisher.Multi
	if cfg.Publisher.Log {
		sinks = append(sinks, publisher.NewLogPublisher(logger))
	}
	if cfg.Publisher.Redis {
		client, err := redis_wrapper.InitRedisWithBackoff(ctx, cfg.Redis)
		if err != nil {
			sinks.Close()
			return nil, errors.Wrap(err, "redis publisher")
		}
		sinks = append(sinks, publisher.NewRedisPublisher(client, cfg.Publisher.ChannelPrefix))
	}
	if cfg.Publisher.Kafka {
		p, err := publisher.NewKafkaPublisher(*cfg.Kafka)
		if err != nil {
			sinks.Close()
			return nil, errors.Wrap(err, "kafka publisher")
		}
		sinks = append(sinks, p)
	}
	if len(sinks) == 0 {
		return nil, nil
	}
	return sinks, nil
}

// NewSimulator builds a simulator for cfg.Symbol and seeds it from the stored
// snapshot, or from a synthetic ladder around the start mid when none exists.
// The snapshot is returned so callers can replay its trades; a synthetic seed
// returns one without trades.
func NewSimulator(ctx context.Context, cfg *config.AppConfig, pub publisher.TradePublisher, logger *zap.Logger) (*simulator.Simulator, *marketdata.Snapshot, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rules, err := cfg.Risk.Rules(cfg.Symbol)
	if err != nil {
		return nil, nil, errors.Wrap(err, "risk rules")
	}
	bookOpts := []orderbook.Option{orderbook.WithOrderChecks(rules...)}
	if pub != nil {
		bookOpts = append(bookOpts, orderbook.WithTradeHandler(publisher.Handler(ctx, pub, cfg.Symbol, logger)))
	}
	sim, err := simulator.NewSimulator(cfg.Symbol, cfg.Simulator,
		simulator.WithLogger(logger),
		simulator.WithBookOptions(bookOpts...))
	if err != nil {
		return nil, nil, err
	}

	snap, err := marketdata.NewStore(cfg.DataDir).Load(cfg.Symbol)
	if errors.Is(err, marketdata.ErrNoSnapshot) {
		logger.Warn("no stored snapshot, seeding a synthetic ladder",
			zap.String("symbol", cfg.Symbol),
			zap.String("data_dir", cfg.DataDir),
			zap.Float64("start_mid", cfg.Simulator.StartMid))
		if err := sim.SeedSynthetic(); err != nil {
			return nil, nil, err
		}
		return sim, &marketdata.Snapshot{Symbol: cfg.Symbol}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	if err := sim.SeedFromSnapshot(snap.Levels()); err != nil {
		return nil, nil, err
	}
	return sim, snap, nil
}

// LogAnalytics writes the run summary.
func LogAnalytics(logger *zap.Logger, a simulator.Analytics) {
	fields := []zap.Field{
		zap.Int("samples", a.Samples),
		zap.Int("trades", a.TotalTrades),
		zap.String("volume", a.TotalVolume.StringFixed(4)),
		zap.Int("resting_orders", a.RestingOrders),
		zap.String("buy_volume", a.BuyVolume.StringFixed(4)),
		zap.String("sell_volume", a.SellVolume.StringFixed(4)),
		zap.String("net_imbalance", a.NetImbalance.StringFixed(4)),
	}
	if a.Samples > 0 {
		fields = append(fields,
			zap.Float64("start_mid", a.StartMid),
			zap.Float64("end_mid", a.EndMid),
			zap.Float64("min_mid", a.MinMid),
			zap.Float64("max_mid", a.MaxMid),
			zap.Float64("volatility", a.Volatility),
			zap.Float64("mean_spread", a.MeanSpread),
			zap.Float64("min_spread", a.MinSpread),
			zap.Float64("max_spread", a.MaxSpread))
	}
	if a.HasCorrelation {
		fields = append(fields, zap.Float64("ofi_correlation", a.OFICorrelation))
	}
	logger.Info("market microstructure analytics", fields...)
}
