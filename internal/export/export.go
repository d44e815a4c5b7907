// Package export writes backtest artifacts as CSV for spreadsheet or
// plotting tools.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/quantkit/sigbench/internal/backtest"
)

// WriteTrades writes the closed-trade list as CSV.
func WriteTrades(w io.Writer, trades []backtest.Trade) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{
		"symbol", "direction", "entry_time", "exit_time", "entry", "exit",
		"qty", "position_size", "stop_loss", "take_profit",
		"pnl", "pnl_pct", "risk_reward", "confidence", "close_reason",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, t := range trades {
		row := []string{
			t.Symbol,
			string(t.Direction),
			t.EntryTime.Format(time.RFC3339),
			t.ExitTime.Format(time.RFC3339),
			t.EntryPrice.String(),
			t.ExitPrice.String(),
			t.Quantity.String(),
			t.PositionSize.String(),
			t.StopLoss.String(),
			t.TakeProfit.String(),
			t.PnL.String(),
			t.PnLPercent.String(),
			formatF(t.RiskReward),
			formatF(t.Confidence),
			t.CloseReason,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return cw.Error()
}

// WriteEquityCurve writes the equity time series as CSV.
func WriteEquityCurve(w io.Writer, curve []backtest.EquityPoint) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"timestamp", "equity", "cash", "open_positions", "total_trades", "drawdown"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, p := range curve {
		row := []string{
			p.Timestamp.Format(time.RFC3339),
			p.Equity.String(),
			p.Cash.String(),
			strconv.Itoa(p.OpenPositions),
			strconv.Itoa(p.TotalTrades),
			p.Drawdown.String(),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return cw.Error()
}

// WriteResults writes both trade and equity-curve CSVs into a directory.
func WriteResults(dir string, results *backtest.Results) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export dir: %w", err)
	}

	tf, err := os.Create(filepath.Join(dir, "trades.csv"))
	if err != nil {
		return err
	}
	defer tf.Close()
	if err := WriteTrades(tf, results.Trades); err != nil {
		return fmt.Errorf("failed to write trades csv: %w", err)
	}

	ef, err := os.Create(filepath.Join(dir, "equity.csv"))
	if err != nil {
		return err
	}
	defer ef.Close()
	if err := WriteEquityCurve(ef, results.EquityCurve); err != nil {
		return fmt.Errorf("failed to write equity csv: %w", err)
	}
	return nil
}

func formatF(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
