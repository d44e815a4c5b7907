package backtest

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantkit/sigbench/internal/types"
)

// Trade is a closed-trade record.
type Trade struct {
	Symbol       string
	Direction    types.Direction
	EntryTime    time.Time
	ExitTime     time.Time
	EntryPrice   decimal.Decimal
	ExitPrice    decimal.Decimal
	Quantity     decimal.Decimal
	PositionSize decimal.Decimal
	StopLoss     decimal.Decimal
	TakeProfit   decimal.Decimal
	PnL          decimal.Decimal
	PnLPercent   decimal.Decimal
	RiskReward   float64
	Confidence   float64
	Conditions   types.Conditions
	CloseReason  string
}

// Duration is the holding time of the trade.
func (t Trade) Duration() time.Duration {
	return t.ExitTime.Sub(t.EntryTime)
}

// EquityPoint is one observation of the metrics time series, appended after
// every close.
type EquityPoint struct {
	Timestamp     time.Time
	Equity        decimal.Decimal
	Cash          decimal.Decimal
	OpenPositions int
	TotalTrades   int
	Drawdown      decimal.Decimal
}

// Results is the raw output of a backtest run.
type Results struct {
	InitialCapital decimal.Decimal
	FinalEquity    decimal.Decimal
	Trades         []Trade
	EquityCurve    []EquityPoint

	metrics *Metrics
}
