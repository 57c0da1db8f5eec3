package simulator

import (
	"github.com/joripage/lobsim/pkg/orderbook"
	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"
)

// minCorrelationSamples is how many samples the imbalance correlation needs.
const minCorrelationSamples = 10

// Analytics is the microstructure summary of a run. Price statistics are
// only meaningful when Samples > 0.
type Analytics struct {
	Samples       int
	TotalTrades   int
	TotalVolume   decimal.Decimal
	RestingOrders int // live orders still waiting in the book

	StartMid   float64
	EndMid     float64
	MinMid     float64
	MaxMid     float64
	Volatility float64 // population std of the mid series

	MeanSpread float64
	MinSpread  float64
	MaxSpread  float64

	BuyVolume    decimal.Decimal
	SellVolume   decimal.Decimal
	NetImbalance decimal.Decimal

	// OFICorrelation is the Pearson correlation between the imbalance at each
	// sample and the next change in mid. Valid only when HasCorrelation.
	OFICorrelation float64
	HasCorrelation bool
}

func ComputeAnalytics(m *Metrics, book *orderbook.OrderBook) Analytics {
	a := Analytics{
		TotalTrades:   book.TotalTrades(),
		TotalVolume:   book.TotalVolume(),
		RestingOrders: book.RestingCount(),
		BuyVolume:     m.BuyVolume(),
		SellVolume:    m.SellVolume(),
		NetImbalance:  m.Imbalance(),
	}

	series := m.Series()
	a.Samples = len(series)
	if len(series) == 0 {
		return a
	}

	mids := make(stats.Float64Data, len(series))
	spreads := make(stats.Float64Data, len(series))
	ofi := make(stats.Float64Data, len(series))
	for i, s := range series {
		mids[i] = s.MidPrice.InexactFloat64()
		spreads[i] = s.Spread.InexactFloat64()
		ofi[i] = s.OrderFlowImbalance.InexactFloat64()
	}

	a.StartMid = mids[0]
	a.EndMid = mids[len(mids)-1]
	a.MinMid, _ = mids.Min()
	a.MaxMid, _ = mids.Max()
	a.Volatility, _ = mids.StandardDeviationPopulation()
	a.MeanSpread, _ = spreads.Mean()
	a.MinSpread, _ = spreads.Min()
	a.MaxSpread, _ = spreads.Max()

	a.OFICorrelation, a.HasCorrelation = imbalanceCorrelation(ofi, mids)
	return a
}

// imbalanceCorrelation pairs ofi[i] with mids[i+1]-mids[i].
func imbalanceCorrelation(ofi, mids stats.Float64Data) (float64, bool) {
	if len(ofi) <= minCorrelationSamples || len(mids) <= minCorrelationSamples {
		return 0, false
	}
	n := len(ofi)
	if len(mids)-1 < n {
		n = len(mids) - 1
	}
	changes := make(stats.Float64Data, n)
	for i := 0; i < n; i++ {
		changes[i] = mids[i+1] - mids[i]
	}
	x := ofi[:n]
	if sd, _ := x.StandardDeviationPopulation(); sd == 0 {
		return 0, false
	}
	if sd, _ := changes.StandardDeviationPopulation(); sd == 0 {
		return 0, false
	}
	corr, err := stats.Pearson(x, changes)
	if err != nil {
		return 0, false
	}
	return corr, true
}
