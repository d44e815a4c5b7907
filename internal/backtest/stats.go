package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Metrics is the aggregate performance record for one backtest run.
type Metrics struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64

	TotalPnL   decimal.Decimal
	ROIPercent float64
	AvgWin     decimal.Decimal
	AvgLoss    decimal.Decimal

	AvgTradeDurationHours float64

	MaxDrawdown        decimal.Decimal
	MaxDrawdownPercent float64

	ProfitFactor float64
	SharpeRatio  float64

	BestTrade  Trade
	WorstTrade Trade
}

// Calculate computes the final metrics for the run. A run with zero trades
// yields the all-zero record. The result is cached.
func (r *Results) Calculate() *Metrics {
	if r.metrics != nil {
		return r.metrics
	}

	m := &Metrics{
		TotalTrades: len(r.Trades),
		TotalPnL:    decimal.Zero,
		AvgWin:      decimal.Zero,
		AvgLoss:     decimal.Zero,
		MaxDrawdown: decimal.Zero,
	}

	if len(r.Trades) == 0 {
		r.metrics = m
		return m
	}

	grossProfit := decimal.Zero
	grossLoss := decimal.Zero
	var totalDuration time.Duration
	best := r.Trades[0]
	worst := r.Trades[0]

	for _, t := range r.Trades {
		m.TotalPnL = m.TotalPnL.Add(t.PnL)
		totalDuration += t.Duration()

		// A P/L of exactly zero counts as a loss.
		if t.PnL.IsPositive() {
			m.WinningTrades++
			grossProfit = grossProfit.Add(t.PnL)
		} else {
			m.LosingTrades++
			grossLoss = grossLoss.Add(t.PnL.Abs())
		}

		if t.PnL.GreaterThan(best.PnL) {
			best = t
		}
		if t.PnL.LessThan(worst.PnL) {
			worst = t
		}
	}
	m.BestTrade = best
	m.WorstTrade = worst

	m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100

	if r.InitialCapital.IsPositive() {
		m.ROIPercent = m.TotalPnL.Div(r.InitialCapital).InexactFloat64() * 100
	}

	if m.WinningTrades > 0 {
		m.AvgWin = grossProfit.Div(decimal.NewFromInt(int64(m.WinningTrades)))
	}
	if m.LosingTrades > 0 {
		// AvgLoss is reported as a negative amount.
		m.AvgLoss = grossLoss.Neg().Div(decimal.NewFromInt(int64(m.LosingTrades)))
	}

	m.AvgTradeDurationHours = totalDuration.Hours() / float64(m.TotalTrades)

	for _, p := range r.EquityCurve {
		if p.Drawdown.GreaterThan(m.MaxDrawdown) {
			m.MaxDrawdown = p.Drawdown
		}
	}
	if r.InitialCapital.IsPositive() {
		m.MaxDrawdownPercent = m.MaxDrawdown.Div(r.InitialCapital).InexactFloat64() * 100
	}

	if grossLoss.IsPositive() {
		m.ProfitFactor = grossProfit.Div(grossLoss).InexactFloat64()
	}

	m.SharpeRatio = sharpeRatio(r.Trades)

	r.metrics = m
	return m
}

// sharpeRatio computes mean over population standard deviation of the trades'
// percentage returns. The denominator falls back to 1 with a single trade,
// and a zero stdev yields 0.
func sharpeRatio(trades []Trade) float64 {
	n := len(trades)
	if n == 0 {
		return 0
	}

	returns := make([]float64, n)
	mean := 0.0
	for i, t := range trades {
		returns[i] = t.PnLPercent.InexactFloat64()
		mean += returns[i]
	}
	mean /= float64(n)

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	denom := float64(n)
	if n == 1 {
		denom = 1
	}
	stdev := math.Sqrt(variance / denom)
	if stdev == 0 {
		return 0
	}
	return mean / stdev
}

func (m *Metrics) Print() {
	fmt.Println("\n=== Backtest Results ===")
	fmt.Printf("Total Trades:     %d\n", m.TotalTrades)
	fmt.Printf("Winning Trades:   %d (%.2f%%)\n", m.WinningTrades, m.WinRate)
	fmt.Printf("Losing Trades:    %d\n\n", m.LosingTrades)

	fmt.Printf("Total P&L:        %s (%.2f%% ROI)\n", m.TotalPnL.StringFixed(2), m.ROIPercent)
	fmt.Printf("Avg Win:          %s\n", m.AvgWin.StringFixed(2))
	fmt.Printf("Avg Loss:         %s\n", m.AvgLoss.StringFixed(2))
	fmt.Printf("Profit Factor:    %.2f\n", m.ProfitFactor)
	fmt.Printf("Sharpe Ratio:     %.2f\n\n", m.SharpeRatio)

	fmt.Printf("Max Drawdown:     %s (%.2f%%)\n", m.MaxDrawdown.StringFixed(2), m.MaxDrawdownPercent)
	fmt.Printf("Avg Duration:     %.1fh\n", m.AvgTradeDurationHours)

	if m.TotalTrades > 0 {
		fmt.Printf("Best Trade:       %s %s %s\n", m.BestTrade.Symbol, m.BestTrade.Direction, m.BestTrade.PnL.StringFixed(2))
		fmt.Printf("Worst Trade:      %s %s %s\n", m.WorstTrade.Symbol, m.WorstTrade.Direction, m.WorstTrade.PnL.StringFixed(2))
	}
}

func (r *Results) PrintTrades() {
	fmt.Println("\n=== Trade List ===")
	for i, t := range r.Trades {
		fmt.Printf("#%d | %s | %s | Entry: %s | Exit: %s | P&L: %s (%s%%) | %s | %s\n",
			i+1,
			t.Symbol,
			t.Direction,
			t.EntryPrice.StringFixed(5),
			t.ExitPrice.StringFixed(5),
			t.PnL.StringFixed(2),
			t.PnLPercent.StringFixed(2),
			t.CloseReason,
			t.EntryTime.Format("2006-01-02 15:04"),
		)
	}
}
