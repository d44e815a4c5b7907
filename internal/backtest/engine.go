package backtest

import (
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantkit/sigbench/internal/logging"
	"github.com/quantkit/sigbench/internal/types"
)

var btLog = logging.New("backtest")

const (
	CloseStopLoss      = "stop_loss"
	CloseTakeProfit    = "take_profit"
	CloseEndOfBacktest = "end_of_backtest"
)

// Position is an open simulated position. It is valued at allocated cost
// until closed; the engine never marks open positions to market.
type Position struct {
	Symbol       string
	Direction    types.Direction
	EntryTime    time.Time
	EntryPrice   decimal.Decimal
	Quantity     decimal.Decimal
	PositionSize decimal.Decimal
	StopLoss     decimal.Decimal
	TakeProfit   decimal.Decimal
	Confidence   float64
	Conditions   types.Conditions
}

// Engine replays a chronological signal list against historical candles and
// simulates capital allocation, exits and aggregate metrics. One engine
// instance serves exactly one run; sweeps create a fresh engine per run.
type Engine struct {
	initialCapital   decimal.Decimal
	positionSize     decimal.Decimal
	maxOpenPositions int

	history map[string][]types.Candle

	cash        decimal.Decimal
	equity      decimal.Decimal
	peakEquity  decimal.Decimal
	drawdown    decimal.Decimal
	maxDrawdown decimal.Decimal

	open   []*Position
	trades []Trade
	curve  []EquityPoint
}

func NewEngine(initialCapital, positionSize float64, maxOpenPositions int) *Engine {
	capital := decimal.NewFromFloat(initialCapital)
	return &Engine{
		initialCapital:   capital,
		positionSize:     decimal.NewFromFloat(positionSize),
		maxOpenPositions: maxOpenPositions,
		cash:             capital,
		equity:           capital,
		peakEquity:       capital,
	}
}

// Run processes the signals in timestamp order (stable for ties) against the
// historical candles, force-closes whatever is left at end of data, and
// returns the complete result set.
func (e *Engine) Run(history map[string][]types.Candle, signals []types.SignalRecord) *Results {
	e.history = history

	sorted := make([]types.SignalRecord, len(signals))
	copy(sorted, signals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var start time.Time
	if len(sorted) > 0 {
		start = sorted[0].Timestamp
	}
	e.snapshot(start)

	slog.Info("Starting backtest",
		"signals", len(sorted),
		"symbols", len(history),
		"initialCapital", e.initialCapital,
		"positionSize", e.positionSize,
		"maxOpenPositions", e.maxOpenPositions)

	for _, sig := range sorted {
		e.processSignal(sig)
	}

	e.liquidate()

	results := &Results{
		InitialCapital: e.initialCapital,
		FinalEquity:    e.equity,
		Trades:         e.trades,
		EquityCurve:    e.curve,
	}

	slog.Info("Backtest complete", "trades", len(e.trades), "finalEquity", e.equity)
	return results
}

// processSignal opens a position for the signal if capital and slot limits
// allow, then sweeps every open position for exits.
func (e *Engine) processSignal(sig types.SignalRecord) {
	if len(e.open) >= e.maxOpenPositions {
		btLog.Debug("Signal rejected: max open positions", "symbol", sig.Symbol, "open", len(e.open))
		return
	}
	if e.cash.LessThan(e.positionSize) {
		btLog.Debug("Signal rejected: insufficient cash", "symbol", sig.Symbol, "cash", e.cash)
		return
	}

	entry := decimal.NewFromFloat(sig.Entry)
	if !entry.IsPositive() {
		slog.Warn("Signal rejected: non-positive entry price", "symbol", sig.Symbol, "entry", sig.Entry)
		return
	}

	pos := &Position{
		Symbol:       sig.Symbol,
		Direction:    sig.Direction,
		EntryTime:    sig.Timestamp,
		EntryPrice:   entry,
		Quantity:     e.positionSize.Div(entry),
		PositionSize: e.positionSize,
		StopLoss:     decimal.NewFromFloat(sig.StopLoss),
		TakeProfit:   decimal.NewFromFloat(sig.TakeProfit),
		Confidence:   sig.Confidence,
		Conditions:   sig.Conditions,
	}
	e.open = append(e.open, pos)
	e.cash = e.cash.Sub(e.positionSize)

	btLog.Debug("Position opened",
		"symbol", pos.Symbol,
		"direction", pos.Direction,
		"entry", pos.EntryPrice,
		"qty", pos.Quantity,
		"cash", e.cash)

	e.updatePositions(sig.Timestamp)
}

// updatePositions scans candles at or after each position's entry time and
// the current processing timestamp, resolving exits with pessimistic
// ordering: on any candle where both levels are touched, the stop wins.
// Each exiting position leaves the open set before its trade is recorded so
// equity accounting only ever counts the still-open remainder.
func (e *Engine) updatePositions(now time.Time) {
	open := make([]*Position, len(e.open))
	copy(open, e.open)

	for _, pos := range open {
		candles, ok := e.history[pos.Symbol]
		if !ok {
			// No exit candles: the position stays open until liquidation.
			continue
		}

		for _, c := range candles {
			if c.Timestamp.Before(pos.EntryTime) || c.Timestamp.Before(now) {
				continue
			}
			if price, reason, hit := checkExit(pos, c); hit {
				e.removeOpen(pos)
				e.closePosition(pos, price, c.Timestamp, reason)
				break
			}
		}
	}
}

func (e *Engine) removeOpen(target *Position) {
	for i, pos := range e.open {
		if pos == target {
			e.open = append(e.open[:i], e.open[i+1:]...)
			return
		}
	}
}

// checkExit applies the exit-priority rule to one candle: stop-loss is always
// checked before take-profit, so a candle touching both resolves as a stop.
func checkExit(pos *Position, c types.Candle) (decimal.Decimal, string, bool) {
	low := decimal.NewFromFloat(c.Low)
	high := decimal.NewFromFloat(c.High)

	if pos.Direction == types.Long {
		if low.LessThanOrEqual(pos.StopLoss) {
			return pos.StopLoss, CloseStopLoss, true
		}
		if high.GreaterThanOrEqual(pos.TakeProfit) {
			return pos.TakeProfit, CloseTakeProfit, true
		}
		return decimal.Zero, "", false
	}

	if high.GreaterThanOrEqual(pos.StopLoss) {
		return pos.StopLoss, CloseStopLoss, true
	}
	if low.LessThanOrEqual(pos.TakeProfit) {
		return pos.TakeProfit, CloseTakeProfit, true
	}
	return decimal.Zero, "", false
}

// closePosition converts a position into a closed-trade record, credits cash
// and updates equity, drawdown and the equity curve.
func (e *Engine) closePosition(pos *Position, exitPrice decimal.Decimal, exitTime time.Time, reason string) {
	var pnl decimal.Decimal
	if pos.Direction == types.Long {
		pnl = exitPrice.Sub(pos.EntryPrice).Mul(pos.Quantity)
	} else {
		pnl = pos.EntryPrice.Sub(exitPrice).Mul(pos.Quantity)
	}

	pnlPercent := decimal.Zero
	if pos.PositionSize.IsPositive() {
		pnlPercent = pnl.Div(pos.PositionSize).Mul(decimal.NewFromInt(100))
	}

	e.cash = e.cash.Add(pos.PositionSize).Add(pnl)

	trade := Trade{
		Symbol:       pos.Symbol,
		Direction:    pos.Direction,
		EntryTime:    pos.EntryTime,
		ExitTime:     exitTime,
		EntryPrice:   pos.EntryPrice,
		ExitPrice:    exitPrice,
		Quantity:     pos.Quantity,
		PositionSize: pos.PositionSize,
		StopLoss:     pos.StopLoss,
		TakeProfit:   pos.TakeProfit,
		PnL:          pnl,
		PnLPercent:   pnlPercent,
		RiskReward:   riskReward(pos),
		Confidence:   pos.Confidence,
		Conditions:   pos.Conditions,
		CloseReason:  reason,
	}
	e.trades = append(e.trades, trade)

	e.updateEquity(exitTime)

	slog.Info("Position closed",
		"symbol", pos.Symbol,
		"direction", pos.Direction,
		"exit", exitPrice,
		"pnl", pnl,
		"reason", reason)
}

// riskReward computes the reward/risk ratio from the position's levels,
// returning 0 when the stop is on the wrong side of entry.
func riskReward(pos *Position) float64 {
	entry := pos.EntryPrice.InexactFloat64()
	sl := pos.StopLoss.InexactFloat64()
	tp := pos.TakeProfit.InexactFloat64()

	var risk, reward float64
	if pos.Direction == types.Long {
		risk = entry - sl
		reward = tp - entry
	} else {
		risk = sl - entry
		reward = entry - tp
	}
	if risk <= 0 {
		return 0
	}
	return reward / risk
}

// updateEquity recomputes equity as cash plus the allocated cost of open
// positions, advances the peak, tracks drawdown and appends a snapshot.
func (e *Engine) updateEquity(ts time.Time) {
	allocated := decimal.Zero
	for _, pos := range e.open {
		allocated = allocated.Add(pos.PositionSize)
	}
	e.equity = e.cash.Add(allocated)

	if e.equity.GreaterThan(e.peakEquity) {
		e.peakEquity = e.equity
		e.drawdown = decimal.Zero
	} else {
		e.drawdown = e.peakEquity.Sub(e.equity)
		if e.drawdown.GreaterThan(e.maxDrawdown) {
			e.maxDrawdown = e.drawdown
		}
	}

	e.snapshot(ts)
}

func (e *Engine) snapshot(ts time.Time) {
	e.curve = append(e.curve, EquityPoint{
		Timestamp:     ts,
		Equity:        e.equity,
		Cash:          e.cash,
		OpenPositions: len(e.open),
		TotalTrades:   len(e.trades),
		Drawdown:      e.drawdown,
	})
}

// liquidate force-closes every remaining open position at the last available
// candle close for its symbol. A symbol with no history closes at entry, the
// only price ever observed for it.
func (e *Engine) liquidate() {
	for len(e.open) > 0 {
		// Remove before closing so equity accounting sees only the
		// still-open remainder.
		pos := e.open[0]
		e.open = e.open[1:]

		price := pos.EntryPrice
		ts := pos.EntryTime
		if candles := e.history[pos.Symbol]; len(candles) > 0 {
			last := candles[len(candles)-1]
			price = decimal.NewFromFloat(last.Close)
			ts = last.Timestamp
		}
		e.closePosition(pos, price, ts, CloseEndOfBacktest)
	}
}
