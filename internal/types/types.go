package types

import "time"

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

type Direction string

// Indicator keys carried on an annotated candle. Boolean indicators
// (psar_bullish, ha_bullish) are stored as 1/0.
const (
	IndRSI           = "rsi"
	IndMACDHist      = "macd_hist"
	IndADX           = "adx"
	IndATR           = "atr"
	IndEMA9          = "ema_9"
	IndEMA21         = "ema_21"
	IndEMA50         = "ema_50"
	IndPlusDI        = "plus_di"
	IndMinusDI       = "minus_di"
	IndBBUpper       = "bb_upper"
	IndBBLower       = "bb_lower"
	IndMFI           = "mfi"
	IndSuperTrendDir = "supertrend_direction"
	IndPSARBullish   = "psar_bullish"
	IndHABullish     = "ha_bullish"
	IndVolumeTrend   = "volume_trend"
)

// Candle is a single OHLCV bar annotated with precomputed indicator values.
// Immutable once produced.
type Candle struct {
	Symbol     string
	Timeframe  string
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     float64
	Indicators map[string]float64
}

// Indicator returns the named indicator value and whether it is present.
func (c Candle) Indicator(name string) (float64, bool) {
	v, ok := c.Indicators[name]
	return v, ok
}

// Conditions records which scoring criteria fired for a signal. The set is
// closed: one field per weighted check.
type Conditions struct {
	MACDCrossover    bool
	RSIInBand        bool
	PriceVsEMA       bool
	ADXStrength      bool
	HeikinAshi       bool
	VolumeTrend      bool
	EMAAlignment     bool
	DirectionalIndex bool
	Bollinger        bool
	Volatility       bool
	SuperTrend       bool
	MFI              bool
	PSAR             bool
}

// SignalRecord is the detection engine's output as consumed by the backtest
// engine: a flat, self-contained record with no reference back to engine state.
type SignalRecord struct {
	Symbol     string
	Timestamp  time.Time
	Direction  Direction
	Entry      float64
	StopLoss   float64
	TakeProfit float64
	Confidence float64
	Timeframe  string
	Conditions Conditions
}
