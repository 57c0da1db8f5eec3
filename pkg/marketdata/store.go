package marketdata

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joripage/lobsim/pkg/orderbook"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	depthHeader = []string{"price", "quantity", "timestamp", "side"}
	tradeHeader = []string{"time", "price", "qty", "side"}
	klineHeader = []string{"open_time", "open", "high", "low", "close", "vwap", "volume", "trades"}
)

// Trade and kline times are written the way pandas writes datetimes.
const datetimeLayout = "2006-01-02 15:04:05.000000"

// Store keeps snapshots as CSV files named <dir>/<SYMBOL>_<kind>.csv.
type Store struct {
	dir    string
	create func(path string) (io.WriteCloser, error)
}

func NewStore(dir string) *Store {
	return &Store{
		dir:    dir,
		create: func(path string) (io.WriteCloser, error) { return os.Create(path) },
	}
}

func (s *Store) path(symbol, kind string) string {
	return filepath.Join(s.dir, strings.ToUpper(symbol)+"_"+kind+".csv")
}

// Save writes every part of snap, creating the directory if needed.
func (s *Store) Save(snap *Snapshot) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", s.dir)
	}

	if err := s.write(s.path(snap.Symbol, "bids"), depthHeader, depthRows(snap.Bids, "bid")); err != nil {
		return err
	}
	if err := s.write(s.path(snap.Symbol, "asks"), depthHeader, depthRows(snap.Asks, "ask")); err != nil {
		return err
	}

	trades := make([][]string, 0, len(snap.Trades))
	for _, t := range snap.Trades {
		side := "sell"
		if t.Side == orderbook.BUY {
			side = "buy"
		}
		trades = append(trades, []string{formatDatetime(t.Time), t.Price.String(), t.Quantity.String(), side})
	}
	if err := s.write(s.path(snap.Symbol, "trades"), tradeHeader, trades); err != nil {
		return err
	}

	if len(snap.Klines) == 0 {
		return nil
	}
	klines := make([][]string, 0, len(snap.Klines))
	for _, k := range snap.Klines {
		klines = append(klines, []string{
			formatDatetime(k.OpenTime), k.Open.String(), k.High.String(), k.Low.String(),
			k.Close.String(), k.VWAP.String(), k.Volume.String(), strconv.FormatInt(k.Trades, 10),
		})
	}
	return s.write(s.path(snap.Symbol, "klines"), klineHeader, klines)
}

// Load reads a snapshot saved by Save or by the original fetch script.
// Columns are matched by header name. A missing bids or asks file is
// ErrNoSnapshot; trades and klines are optional.
func (s *Store) Load(symbol string) (*Snapshot, error) {
	snap := &Snapshot{Symbol: symbol}

	var err error
	if snap.Bids, err = s.loadDepth(s.path(symbol, "bids")); err != nil {
		return nil, err
	}
	if snap.Asks, err = s.loadDepth(s.path(symbol, "asks")); err != nil {
		return nil, err
	}

	tbl, err := s.read(s.path(symbol, "trades"))
	switch {
	case errors.Is(err, ErrNoSnapshot):
	case err != nil:
		return nil, err
	default:
		if snap.Trades, err = parseTrades(tbl); err != nil {
			return nil, err
		}
	}

	tbl, err = s.read(s.path(symbol, "klines"))
	switch {
	case errors.Is(err, ErrNoSnapshot):
	case err != nil:
		return nil, err
	default:
		if snap.Klines, err = parseKlines(tbl); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

func (s *Store) loadDepth(path string) ([]DepthEntry, error) {
	tbl, err := s.read(path)
	if err != nil {
		return nil, err
	}
	if len(tbl.rows) == 0 {
		return nil, nil
	}
	priceCol, err := tbl.column("price")
	if err != nil {
		return nil, err
	}
	qtyCol, err := tbl.column("quantity", "volume", "qty")
	if err != nil {
		return nil, err
	}
	tsCol, _ := tbl.column("timestamp", "time")

	out := make([]DepthEntry, 0, len(tbl.rows))
	for i, row := range tbl.rows {
		price, err := decimal.NewFromString(row[priceCol])
		if err != nil {
			return nil, tbl.malformed(i, "price", err)
		}
		qty, err := decimal.NewFromString(row[qtyCol])
		if err != nil {
			return nil, tbl.malformed(i, "quantity", err)
		}
		entry := DepthEntry{Price: price, Quantity: qty}
		if tsCol >= 0 {
			if entry.Timestamp, err = parseTime(row[tsCol]); err != nil {
				return nil, tbl.malformed(i, "timestamp", err)
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

func (s *Store) write(path string, header []string, rows [][]string) (err error) {
	f, err := s.create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "close %s", path)
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	if err := w.WriteAll(rows); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

// table is a parsed CSV file: header positions plus data rows.
type table struct {
	name string
	cols map[string]int
	rows [][]string
}

// column returns the position of the first header found among names, or -1.
func (t *table) column(names ...string) (int, error) {
	for _, n := range names {
		if i, ok := t.cols[n]; ok {
			return i, nil
		}
	}
	return -1, errors.Wrapf(ErrMalformedRow, "%s: missing column %q", t.name, names[0])
}

func (t *table) malformed(row int, field string, err error) error {
	return errors.Wrapf(ErrMalformedRow, "%s row %d %s: %v", t.name, row+1, field, err)
}

func (s *Store) read(path string) (*table, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(ErrNoSnapshot, path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	tbl := &table{name: filepath.Base(path), cols: make(map[string]int)}
	r := csv.NewReader(f)
	header, err := r.Read()
	if err == io.EOF {
		return tbl, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read header %s", path)
	}
	for i, h := range header {
		tbl.cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if tbl.rows, err = r.ReadAll(); err != nil {
		return nil, errors.Wrapf(ErrMalformedRow, "%s: %v", path, err)
	}
	return tbl, nil
}

func depthRows(entries []DepthEntry, side string) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Price.String(), e.Quantity.String(), formatTime(e.Timestamp), side})
	}
	return rows
}

func parseTrades(tbl *table) ([]Trade, error) {
	if len(tbl.rows) == 0 {
		return nil, nil
	}
	var cols [4]int
	for i, names := range [][]string{{"time"}, {"price"}, {"qty", "quantity", "volume"}, {"side"}} {
		c, err := tbl.column(names...)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}

	out := make([]Trade, 0, len(tbl.rows))
	for i, row := range tbl.rows {
		ts, err := parseTime(row[cols[0]])
		if err != nil {
			return nil, tbl.malformed(i, "time", err)
		}
		price, err := decimal.NewFromString(row[cols[1]])
		if err != nil {
			return nil, tbl.malformed(i, "price", err)
		}
		qty, err := decimal.NewFromString(row[cols[2]])
		if err != nil {
			return nil, tbl.malformed(i, "qty", err)
		}
		side, err := parseSide(row[cols[3]])
		if err != nil {
			return nil, tbl.malformed(i, "side", err)
		}
		out = append(out, Trade{Time: ts, Price: price, Quantity: qty, Side: side})
	}
	return out, nil
}

// parseSide accepts Kraken's b/s and the spelled out buy/sell.
func parseSide(s string) (orderbook.Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "b", "buy":
		return orderbook.BUY, nil
	case "s", "sell":
		return orderbook.SELL, nil
	}
	return "", errors.Errorf("unknown side %q", s)
}

func parseKlines(tbl *table) ([]Kline, error) {
	if len(tbl.rows) == 0 {
		return nil, nil
	}
	names := [][]string{{"open_time", "time"}, {"open"}, {"high"}, {"low"}, {"close"}, {"vwap"}, {"volume"}, {"trades", "count"}}
	cols := make([]int, len(names))
	for i, n := range names {
		c, err := tbl.column(n...)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}

	out := make([]Kline, 0, len(tbl.rows))
	for i, row := range tbl.rows {
		ts, err := parseTime(row[cols[0]])
		if err != nil {
			return nil, tbl.malformed(i, "open_time", err)
		}
		vals := make([]decimal.Decimal, 6)
		for j := range vals {
			if vals[j], err = decimal.NewFromString(row[cols[j+1]]); err != nil {
				return nil, tbl.malformed(i, names[j+1][0], err)
			}
		}
		count, err := decimal.NewFromString(row[cols[7]])
		if err != nil {
			return nil, tbl.malformed(i, "trades", err)
		}
		out = append(out, Kline{
			OpenTime: ts, Open: vals[0], High: vals[1], Low: vals[2],
			Close: vals[3], VWAP: vals[4], Volume: vals[5], Trades: count.IntPart(),
		})
	}
	return out, nil
}

// Depth timestamps are stored as fractional unix seconds, the way the exchange reports them.
func formatTime(t time.Time) string {
	return strconv.FormatFloat(float64(t.UnixNano())/1e9, 'f', 6, 64)
}

func formatDatetime(t time.Time) string {
	return t.UTC().Format(datetimeLayout)
}

// parseTime accepts fractional unix seconds or a datetime, with or without fractional seconds.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return unixFloat(f), nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.Errorf("unrecognised time %q", s)
}
