package config

import (
	"os"

	"github.com/joripage/lobsim/pkg/dashboard"
	redis_wrapper "github.com/joripage/lobsim/pkg/infra/redis"
	"github.com/joripage/lobsim/pkg/logging"
	"github.com/joripage/lobsim/pkg/marketdata"
	"github.com/joripage/lobsim/pkg/publisher"
	"github.com/joripage/lobsim/pkg/riskrule"
	"github.com/joripage/lobsim/pkg/simulator"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type FetchConfig struct {
	Depth  int `yaml:"depth"`
	Trades int `yaml:"trades"`
}

type ReplayConfig struct {
	Enabled bool    `yaml:"enabled"`
	Speed   float64 `yaml:"speed"`
}

// PublisherConfig selects the sinks executed trades are sent to.
type PublisherConfig struct {
	Log           bool   `yaml:"log"`
	Redis         bool   `yaml:"redis"`
	Kafka         bool   `yaml:"kafka"`
	ChannelPrefix string `yaml:"channel_prefix"`
}

type AppConfig struct {
	ServiceName string                     `yaml:"service_name"`
	Symbol      string                     `yaml:"symbol"`
	DataDir     string                     `yaml:"data_dir"`
	Events      int                        `yaml:"events"`
	Log         logging.Config             `yaml:"log"`
	Simulator   simulator.Config           `yaml:"simulator"`
	Kraken      marketdata.KrakenConfig    `yaml:"kraken"`
	Fetch       FetchConfig                `yaml:"fetch"`
	Replay      ReplayConfig               `yaml:"replay"`
	Dashboard   dashboard.Config           `yaml:"dashboard"`
	Publisher   PublisherConfig            `yaml:"publisher"`
	Risk        riskrule.SymbolConfig      `yaml:"risk"`
	Redis       *redis_wrapper.RedisConfig `yaml:"redis"`
	Kafka       *publisher.KafkaConfig     `yaml:"kafka"`
}

// Default is the configuration used when no file is given.
func Default() *AppConfig {
	return &AppConfig{
		ServiceName: "lobsim",
		Symbol:      "XBTUSD",
		DataDir:     "data",
		Events:      300,
		Log:         logging.Config{Level: "info", Format: "json"},
		Simulator:   simulator.DefaultConfig(),
		Kraken:      marketdata.DefaultKrakenConfig(),
		Fetch:       FetchConfig{Depth: 25, Trades: 500},
		Replay:      ReplayConfig{Speed: 10},
		Dashboard:   dashboard.DefaultConfig(),
		Publisher:   PublisherConfig{ChannelPrefix: "trades"},
	}
}

func (c *AppConfig) Validate() error {
	if c.Symbol == "" {
		return errors.New("symbol is required")
	}
	if c.Events < 0 {
		return errors.Errorf("events must not be negative, got %d", c.Events)
	}
	if err := c.Simulator.Validate(); err != nil {
		return errors.Wrap(err, "simulator")
	}
	if c.Replay.Enabled && c.Replay.Speed <= 0 {
		return errors.Errorf("replay speed must be positive, got %v", c.Replay.Speed)
	}
	if c.Fetch.Depth <= 0 || c.Fetch.Trades <= 0 {
		return errors.New("fetch depth and trades must be positive")
	}
	if c.Dashboard.Refresh <= 0 || c.Dashboard.EventsPerTick <= 0 {
		return errors.New("dashboard refresh and events_per_tick must be positive")
	}
	if err := c.Risk.Validate(); err != nil {
		return errors.Wrap(err, "risk")
	}
	if c.Publisher.Redis && (c.Redis == nil || c.Redis.ConnectionURL == "") {
		return errors.New("publisher.redis needs a redis.connection_url")
	}
	if c.Publisher.Kafka && (c.Kafka == nil || len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return errors.New("publisher.kafka needs kafka.brokers and kafka.topic")
	}
	return nil
}

// Load load config from file and environment variables.
// Values missing from the file keep their Default.
func Load(filePath string) (*AppConfig, error) {
	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	cfg := Default()
	if len(filePath) == 0 {
		zap.S().Debug("no config file, using defaults")
		return cfg, cfg.Validate()
	}

	sugar := zap.S().With("func", "config.Load", "filePath", filePath)
	sugar.Debug("Load config...")

	configBytes, err := os.ReadFile(filePath)
	if err != nil {
		sugar.Error("Failed to load config file")
		return nil, errors.Wrapf(err, "read config %s", filePath)
	}
	configBytes = []byte(os.ExpandEnv(string(configBytes)))

	if err := yaml.Unmarshal(configBytes, cfg); err != nil {
		sugar.Error("Failed to parse config file")
		return nil, errors.Wrapf(err, "parse config %s", filePath)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", filePath)
	}

	zap.S().Debugf("config: %+v", cfg)
	return cfg, nil
}
