package marketdata

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/go-resty/resty/v2"
	"github.com/joripage/lobsim/pkg/orderbook"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const DefaultKrakenURL = "https://api.kraken.com/0/public"

type KrakenConfig struct {
	BaseURL         string        `yaml:"base_url"`
	Timeout         time.Duration `yaml:"timeout"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxElapsedTime  time.Duration `yaml:"max_elapsed_time"`
	MaxRetries      uint64        `yaml:"max_retries"`
}

func DefaultKrakenConfig() KrakenConfig {
	return KrakenConfig{
		BaseURL:         DefaultKrakenURL,
		Timeout:         10 * time.Second,
		InitialInterval: 500 * time.Millisecond,
		MaxElapsedTime:  30 * time.Second,
		MaxRetries:      3,
	}
}

// KrakenClient reads public market data. Transport failures and 5xx answers
// are retried with exponential backoff; API level errors are not.
type KrakenClient struct {
	cfg    KrakenConfig
	client *resty.Client
	logger *zap.Logger
}

func NewKrakenClient(cfg KrakenConfig, logger *zap.Logger) *KrakenClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultKrakenURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	return &KrakenClient{cfg: cfg, client: client, logger: logger}
}

type krakenEnvelope struct {
	Error  []string                   `json:"error"`
	Result map[string]json.RawMessage `json:"result"`
}

func (c *KrakenClient) get(ctx context.Context, endpoint string, params map[string]string) (json.RawMessage, error) {
	var payload json.RawMessage

	op := func() error {
		var env krakenEnvelope
		resp, err := c.client.R().
			SetContext(ctx).
			SetQueryParams(params).
			SetResult(&env).
			Get(endpoint)
		if err != nil {
			c.logger.Warn("kraken request failed", zap.String("endpoint", endpoint), zap.Error(err))
			return errors.Wrapf(err, "get %s", endpoint)
		}
		if resp.StatusCode() >= http.StatusInternalServerError || resp.StatusCode() == http.StatusTooManyRequests {
			c.logger.Warn("kraken unavailable", zap.String("endpoint", endpoint), zap.Int("status", resp.StatusCode()))
			return errors.Errorf("get %s: http %d", endpoint, resp.StatusCode())
		}
		if !resp.IsSuccess() {
			return backoff.Permanent(errors.Wrapf(ErrAPI, "get %s: http %d", endpoint, resp.StatusCode()))
		}
		if len(env.Error) > 0 {
			return backoff.Permanent(errors.Wrapf(ErrAPI, "%s: %s", endpoint, strings.Join(env.Error, ", ")))
		}
		payload = nil
		for key, raw := range env.Result {
			if key == "last" {
				continue
			}
			payload = raw
			break
		}
		if payload == nil {
			return backoff.Permanent(errors.Wrap(ErrEmptyResult, endpoint))
		}
		return nil
	}

	boff := backoff.NewExponentialBackOff()
	if c.cfg.InitialInterval > 0 {
		boff.InitialInterval = c.cfg.InitialInterval
	}
	if c.cfg.MaxElapsedTime > 0 {
		boff.MaxElapsedTime = c.cfg.MaxElapsedTime
	}
	var policy backoff.BackOff = boff
	if c.cfg.MaxRetries > 0 {
		policy = backoff.WithMaxRetries(policy, c.cfg.MaxRetries)
	}
	if err := backoff.Retry(op, backoff.WithContext(policy, ctx)); err != nil {
		return nil, err
	}
	return payload, nil
}

// OrderBook returns up to depth levels per side, bids best first and asks best first.
func (c *KrakenClient) OrderBook(ctx context.Context, pair string, depth int) ([]DepthEntry, []DepthEntry, error) {
	raw, err := c.get(ctx, "/Depth", map[string]string{"pair": pair, "count": strconv.Itoa(depth)})
	if err != nil {
		return nil, nil, err
	}
	var book struct {
		Bids [][]json.RawMessage `json:"bids"`
		Asks [][]json.RawMessage `json:"asks"`
	}
	if err := json.Unmarshal(raw, &book); err != nil {
		return nil, nil, errors.Wrap(err, "decode depth")
	}
	bids, err := parseDepth(book.Bids)
	if err != nil {
		return nil, nil, errors.Wrap(err, "bids")
	}
	asks, err := parseDepth(book.Asks)
	if err != nil {
		return nil, nil, errors.Wrap(err, "asks")
	}
	sort.SliceStable(bids, func(i, j int) bool { return bids[i].Price.GreaterThan(bids[j].Price) })
	sort.SliceStable(asks, func(i, j int) bool { return asks[i].Price.LessThan(asks[j].Price) })
	return bids, asks, nil
}

// RecentTrades returns the latest public trades, oldest first.
func (c *KrakenClient) RecentTrades(ctx context.Context, pair string, count int) ([]Trade, error) {
	raw, err := c.get(ctx, "/Trades", map[string]string{"pair": pair, "count": strconv.Itoa(count)})
	if err != nil {
		return nil, err
	}
	var rows [][]json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, errors.Wrap(err, "decode trades")
	}
	trades := make([]Trade, 0, len(rows))
	for i, row := range rows {
		if len(row) < 4 {
			return nil, errors.Wrapf(ErrMalformedRow, "trade %d has %d fields", i, len(row))
		}
		price, err := rawDecimal(row[0])
		if err != nil {
			return nil, errors.Wrapf(err, "trade %d price", i)
		}
		qty, err := rawDecimal(row[1])
		if err != nil {
			return nil, errors.Wrapf(err, "trade %d volume", i)
		}
		ts, err := rawTime(row[2])
		if err != nil {
			return nil, errors.Wrapf(err, "trade %d time", i)
		}
		var side string
		if err := json.Unmarshal(row[3], &side); err != nil {
			return nil, errors.Wrapf(err, "trade %d side", i)
		}
		s := orderbook.SELL
		if side == "b" {
			s = orderbook.BUY
		}
		trades = append(trades, Trade{Time: ts, Price: price, Quantity: qty, Side: s})
	}
	sort.SliceStable(trades, func(i, j int) bool { return trades[i].Time.Before(trades[j].Time) })
	return trades, nil
}

// Klines returns OHLC candles of interval minutes.
func (c *KrakenClient) Klines(ctx context.Context, pair string, interval int) ([]Kline, error) {
	raw, err := c.get(ctx, "/OHLC", map[string]string{"pair": pair, "interval": strconv.Itoa(interval)})
	if err != nil {
		return nil, err
	}
	var rows [][]json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, errors.Wrap(err, "decode ohlc")
	}
	klines := make([]Kline, 0, len(rows))
	for i, row := range rows {
		if len(row) < 8 {
			return nil, errors.Wrapf(ErrMalformedRow, "candle %d has %d fields", i, len(row))
		}
		ts, err := rawTime(row[0])
		if err != nil {
			return nil, errors.Wrapf(err, "candle %d time", i)
		}
		vals := make([]decimal.Decimal, 6)
		for j := range vals {
			if vals[j], err = rawDecimal(row[j+1]); err != nil {
				return nil, errors.Wrapf(err, "candle %d field %d", i, j+1)
			}
		}
		var count int64
		if err := json.Unmarshal(row[7], &count); err != nil {
			return nil, errors.Wrapf(err, "candle %d count", i)
		}
		klines = append(klines, Kline{
			OpenTime: ts,
			Open:     vals[0],
			High:     vals[1],
			Low:      vals[2],
			Close:    vals[3],
			VWAP:     vals[4],
			Volume:   vals[5],
			Trades:   count,
		})
	}
	return klines, nil
}

// Ticker returns the 24h summary for pair.
func (c *KrakenClient) Ticker(ctx context.Context, pair string) (Ticker, error) {
	raw, err := c.get(ctx, "/Ticker", map[string]string{"pair": pair})
	if err != nil {
		return Ticker{}, err
	}
	var t struct {
		A []string `json:"a"`
		B []string `json:"b"`
		C []string `json:"c"`
		V []string `json:"v"`
		P []string `json:"p"`
		T []int64  `json:"t"`
		L []string `json:"l"`
		H []string `json:"h"`
	}
	if err := json.Unmarshal(raw, &t); err != nil {
		return Ticker{}, errors.Wrap(err, "decode ticker")
	}
	if len(t.A) < 1 || len(t.B) < 1 || len(t.C) < 1 || len(t.V) < 2 || len(t.P) < 2 || len(t.T) < 2 || len(t.L) < 2 || len(t.H) < 2 {
		return Ticker{}, errors.Wrap(ErrMalformedRow, "ticker")
	}
	var out Ticker
	fields := []struct {
		dst *decimal.Decimal
		src string
	}{
		{&out.Ask, t.A[0]},
		{&out.Bid, t.B[0]},
		{&out.Last, t.C[0]},
		{&out.Volume24h, t.V[1]},
		{&out.VWAP24h, t.P[1]},
		{&out.Low24h, t.L[1]},
		{&out.High24h, t.H[1]},
	}
	for _, f := range fields {
		v, err := decimal.NewFromString(f.src)
		if err != nil {
			return Ticker{}, errors.Wrap(err, "ticker")
		}
		*f.dst = v
	}
	out.Trades24h = t.T[1]
	return out, nil
}

// Snapshot fetches depth, recent trades and hourly candles for pair.
func (c *KrakenClient) Snapshot(ctx context.Context, pair string, depth, trades int) (*Snapshot, error) {
	bids, asks, err := c.OrderBook(ctx, pair, depth)
	if err != nil {
		return nil, errors.Wrap(err, "fetch order book")
	}
	recent, err := c.RecentTrades(ctx, pair, trades)
	if err != nil {
		return nil, errors.Wrap(err, "fetch trades")
	}
	klines, err := c.Klines(ctx, pair, 60)
	if err != nil {
		return nil, errors.Wrap(err, "fetch klines")
	}
	c.logger.Info("fetched snapshot",
		zap.String("pair", pair),
		zap.Int("bids", len(bids)),
		zap.Int("asks", len(asks)),
		zap.Int("trades", len(recent)),
		zap.Int("klines", len(klines)))
	return &Snapshot{Symbol: pair, Bids: bids, Asks: asks, Trades: recent, Klines: klines}, nil
}

func parseDepth(rows [][]json.RawMessage) ([]DepthEntry, error) {
	out := make([]DepthEntry, 0, len(rows))
	for i, row := range rows {
		if len(row) < 3 {
			return nil, errors.Wrapf(ErrMalformedRow, "level %d has %d fields", i, len(row))
		}
		price, err := rawDecimal(row[0])
		if err != nil {
			return nil, errors.Wrapf(err, "level %d price", i)
		}
		qty, err := rawDecimal(row[1])
		if err != nil {
			return nil, errors.Wrapf(err, "level %d volume", i)
		}
		ts, err := rawTime(row[2])
		if err != nil {
			return nil, errors.Wrapf(err, "level %d time", i)
		}
		out = append(out, DepthEntry{Price: price, Quantity: qty, Timestamp: ts})
	}
	return out, nil
}

// rawDecimal accepts both quoted and bare JSON numbers.
func rawDecimal(raw json.RawMessage) (decimal.Decimal, error) {
	s := strings.Trim(string(raw), `"`)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrap(ErrMalformedRow, err.Error())
	}
	return d, nil
}

func rawTime(raw json.RawMessage) (time.Time, error) {
	s := strings.Trim(string(raw), `"`)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, errors.Wrap(ErrMalformedRow, err.Error())
	}
	return unixFloat(f), nil
}

func unixFloat(f float64) time.Time {
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC()
}
