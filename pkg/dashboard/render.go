package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/joripage/lobsim/pkg/orderbook"
	"github.com/joripage/lobsim/pkg/simulator"
	"github.com/shopspring/decimal"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Padding(0, 1)
	bidStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	askStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	panelStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")).
			Padding(0, 1)
)

func price(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return "$" + d.Decimal.StringFixed(2)
}

func rule(width int) string {
	if width < 8 {
		width = 8
	}
	return strings.Repeat("─", width-4)
}

func renderHeader(snap Snapshot) string {
	status := "running"
	if snap.Paused {
		status = "paused"
	}
	return headerStyle.Render(fmt.Sprintf("%s | Mid: %s | Spread: %s | Events: %d | λ: %.3f | %s",
		snap.Symbol, price(snap.Mid), price(snap.Spread), snap.Events, snap.Intensity, status))
}

// renderLadder shows asks above bids, best prices next to the spread line.
func renderLadder(snap Snapshot, width int) string {
	lines := []string{titleStyle.Render("Order Book"), rule(width)}
	lines = append(lines, mutedStyle.Render(fmt.Sprintf("%12s %12s %6s", "PRICE", "QTY", "ORDERS")))
	for i := len(snap.Asks) - 1; i >= 0; i-- {
		lines = append(lines, askStyle.Render(ladderRow(snap.Asks[i])))
	}
	lines = append(lines, mutedStyle.Render(fmt.Sprintf("---- spread %s ----", price(snap.Spread))))
	for _, lvl := range snap.Bids {
		lines = append(lines, bidStyle.Render(ladderRow(lvl)))
	}
	return strings.Join(lines, "\n")
}

func ladderRow(lvl orderbook.DepthLevel) string {
	return fmt.Sprintf("%12s %12s %6d", lvl.Price.StringFixed(2), lvl.Quantity.StringFixed(4), lvl.Orders)
}

func renderTape(tape []simulator.TapeEntry, width int) string {
	lines := []string{titleStyle.Render("Recent Trades"), rule(width)}
	if len(tape) == 0 {
		lines = append(lines, mutedStyle.Render("no trades yet"))
	}
	for _, t := range tape {
		style := askStyle
		if t.Side == orderbook.BUY {
			style = bidStyle
		}
		lines = append(lines, style.Render(fmt.Sprintf("%-4s %12s %10s", t.Side, t.Price.StringFixed(2), t.Quantity.StringFixed(4))))
	}
	return strings.Join(lines, "\n")
}

func renderAnalytics(a simulator.Analytics, width int) string {
	lines := []string{titleStyle.Render("Analytics"), rule(width)}
	lines = append(lines,
		fmt.Sprintf("Trades: %d  Volume: %s  Resting: %d", a.TotalTrades, a.TotalVolume.StringFixed(4), a.RestingOrders),
		fmt.Sprintf("Buy: %s  Sell: %s  Net: %s", a.BuyVolume.StringFixed(4), a.SellVolume.StringFixed(4), a.NetImbalance.StringFixed(4)))
	if a.Samples == 0 {
		lines = append(lines, mutedStyle.Render("no samples yet"))
		return strings.Join(lines, "\n")
	}
	lines = append(lines,
		fmt.Sprintf("Mid: %.2f -> %.2f  Range: %.2f - %.2f", a.StartMid, a.EndMid, a.MinMid, a.MaxMid),
		fmt.Sprintf("Volatility: %.2f", a.Volatility),
		fmt.Sprintf("Spread mean/min/max: %.2f / %.2f / %.2f", a.MeanSpread, a.MinSpread, a.MaxSpread))
	if a.HasCorrelation {
		lines = append(lines, fmt.Sprintf("OFI -> Δmid corr: %.4f", a.OFICorrelation))
	} else {
		lines = append(lines, mutedStyle.Render("OFI -> Δmid corr: n/a"))
	}
	return strings.Join(lines, "\n")
}

// Render lays a snapshot out in two columns within width.
func Render(snap Snapshot, width int) string {
	available := width - 4
	if available < 80 {
		available = 80
	}
	colWidth := available/2 - 1

	left := panelStyle.Width(colWidth).Render(renderLadder(snap, colWidth))
	right := panelStyle.Width(colWidth).Render(strings.Join([]string{
		renderTape(snap.Tape, colWidth),
		"",
		renderAnalytics(snap.Analytics, colWidth),
	}, "\n"))

	parts := []string{renderHeader(snap), lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right)}
	if snap.Err != nil {
		parts = append(parts, errStyle.Render("error: "+snap.Err.Error()))
	}
	if snap.Prompt != "" {
		parts = append(parts, snap.Prompt)
	}
	if snap.Notice != "" {
		parts = append(parts, snap.Notice)
	}
	parts = append(parts, mutedStyle.Render("space: pause  s: step  o: order  c: cancel  q: quit"))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
