package signal

import (
	"fmt"
	"strings"

	"github.com/quantkit/sigbench/internal/config"
	"github.com/quantkit/sigbench/internal/logging"
	"github.com/quantkit/sigbench/internal/types"
)

var scoreLog = logging.New("score")

const (
	// partialCredit is awarded when a check is directionally favorable but
	// not fully confirmed.
	partialCredit = 0.5

	// diGapCap caps the +DI/-DI dominance gap used for proportional credit.
	diGapCap = 10.0

	// Bollinger position band. Full credit inside [bbBandLow, bbBandHigh],
	// partial credit out to the edge margins.
	bbBandLow  = 0.30
	bbBandHigh = 0.70
	bbEdgeLow  = 0.20
	bbEdgeHigh = 0.80

	// ATR as a percentage of price. Full credit under calmVolatilityPct,
	// partial credit under maxVolatilityPct.
	calmVolatilityPct = 2.0
	maxVolatilityPct  = 4.0

	// MFI oversold/overbought bounds for the favorable-zone check.
	mfiLowerBound = 20.0
	mfiUpperBound = 80.0
	mfiMidline    = 50.0
)

// Confidence calibration constants. The piecewise remap spreads raw scores
// away from the top of the range; the exact break points are tuned values
// and must not be changed independently of each other.
const (
	calibrationCap = 0.92

	calHighBreak = 0.88
	calMidBreak  = 0.75

	calHighFloor = 0.78
	calMidFloor  = 0.68

	calLowScale = 0.91
)

// scoreDirection runs the 13 weighted entry checks for one direction against
// the current and previous candle. It returns the raw score and the fired
// condition flags; a flag is set whenever its check earned any credit.
// Missing indicator values simply earn no credit.
func scoreDirection(cfg config.SignalConfig, dir types.Direction, cur, prev types.Candle) (float64, types.Conditions) {
	var cond types.Conditions
	score := 0.0

	// MACD histogram sign crossover. Full credit on the cross itself,
	// partial while the histogram holds the favorable sign.
	if macd, ok := cur.Indicator(types.IndMACDHist); ok {
		prevMACD, prevOK := prev.Indicator(types.IndMACDHist)
		credit := 0.0
		if dir == types.Long {
			if prevOK && prevMACD <= 0 && macd > 0 {
				credit = 1
			} else if macd > 0 {
				credit = partialCredit
			}
		} else {
			if prevOK && prevMACD >= 0 && macd < 0 {
				credit = 1
			} else if macd < 0 {
				credit = partialCredit
			}
		}
		if credit > 0 {
			cond.MACDCrossover = true
			score += credit * cfg.Weights.MACD
		}
	}

	// RSI inside the directional band, partial credit when moving favorably.
	if rsi, ok := cur.Indicator(types.IndRSI); ok {
		prevRSI, prevOK := prev.Indicator(types.IndRSI)
		credit := 0.0
		if dir == types.Long {
			if rsi >= cfg.LongRSIMin && rsi <= cfg.LongRSIMax {
				credit = 1
			} else if prevOK && rsi > prevRSI {
				credit = partialCredit
			}
		} else {
			if rsi >= cfg.ShortRSIMin && rsi <= cfg.ShortRSIMax {
				credit = 1
			} else if prevOK && rsi < prevRSI {
				credit = partialCredit
			}
		}
		if credit > 0 {
			cond.RSIInBand = true
			score += credit * cfg.Weights.RSI
		}
	}

	// Price relative to the 50-period EMA.
	if ema50, ok := cur.Indicator(types.IndEMA50); ok {
		if (dir == types.Long && cur.Close > ema50) || (dir == types.Short && cur.Close < ema50) {
			cond.PriceVsEMA = true
			score += cfg.Weights.PriceVsEMA
		}
	}

	// ADX above the directional minimum.
	if adx, ok := cur.Indicator(types.IndADX); ok {
		min := cfg.LongADXMin
		if dir == types.Short {
			min = cfg.ShortADXMin
		}
		if adx >= min {
			cond.ADXStrength = true
			score += cfg.Weights.ADX
		}
	}

	// Heikin-Ashi trend direction.
	if ha, ok := cur.Indicator(types.IndHABullish); ok {
		if (dir == types.Long && ha > 0) || (dir == types.Short && ha == 0) {
			cond.HeikinAshi = true
			score += cfg.Weights.HeikinAshi
		}
	}

	// Volume trend vs the directional multiplier, partial credit above 1.0x.
	if vt, ok := cur.Indicator(types.IndVolumeTrend); ok {
		mult := cfg.LongVolumeMult
		if dir == types.Short {
			mult = cfg.ShortVolumeMult
		}
		credit := 0.0
		if vt >= mult {
			credit = 1
		} else if vt > 1.0 {
			credit = partialCredit
		}
		if credit > 0 {
			cond.VolumeTrend = true
			score += credit * cfg.Weights.Volume
		}
	}

	// EMA 9/21/50 monotonic alignment.
	ema9, ok9 := cur.Indicator(types.IndEMA9)
	ema21, ok21 := cur.Indicator(types.IndEMA21)
	ema50, ok50 := cur.Indicator(types.IndEMA50)
	if ok9 && ok21 && ok50 {
		aligned := ema9 > ema21 && ema21 > ema50
		if dir == types.Short {
			aligned = ema9 < ema21 && ema21 < ema50
		}
		if aligned {
			cond.EMAAlignment = true
			score += cfg.Weights.EMAAlignment
		}
	}

	// Directional index dominance, scaled by the gap up to a cap.
	plusDI, okP := cur.Indicator(types.IndPlusDI)
	minusDI, okM := cur.Indicator(types.IndMinusDI)
	if okP && okM {
		gap := plusDI - minusDI
		if dir == types.Short {
			gap = minusDI - plusDI
		}
		if gap > 0 {
			credit := gap / diGapCap
			if credit > 1 {
				credit = 1
			}
			cond.DirectionalIndex = true
			score += credit * cfg.Weights.DirectionalIndex
		}
	}

	// Position inside the Bollinger band: full credit in the middle band,
	// partial credit near the edges.
	bbUpper, okU := cur.Indicator(types.IndBBUpper)
	bbLower, okL := cur.Indicator(types.IndBBLower)
	if okU && okL && bbUpper > bbLower {
		pos := (cur.Close - bbLower) / (bbUpper - bbLower)
		credit := 0.0
		if pos >= bbBandLow && pos <= bbBandHigh {
			credit = 1
		} else if pos >= bbEdgeLow && pos <= bbEdgeHigh {
			credit = partialCredit
		}
		if credit > 0 {
			cond.Bollinger = true
			score += credit * cfg.Weights.Bollinger
		}
	}

	// ATR-derived volatility as a percentage of price.
	if atr, ok := cur.Indicator(types.IndATR); ok && cur.Close > 0 {
		pct := atr / cur.Close * 100
		credit := 0.0
		if pct < calmVolatilityPct {
			credit = 1
		} else if pct < maxVolatilityPct {
			credit = partialCredit
		}
		if credit > 0 {
			cond.Volatility = true
			score += credit * cfg.Weights.Volatility
		}
	}

	// SuperTrend direction flag.
	if st, ok := cur.Indicator(types.IndSuperTrendDir); ok {
		if (dir == types.Long && st > 0) || (dir == types.Short && st < 0) {
			cond.SuperTrend = true
			score += cfg.Weights.SuperTrend
		}
	}

	// MFI in the favorable zone, partial credit when trending favorably.
	if mfi, ok := cur.Indicator(types.IndMFI); ok {
		prevMFI, prevOK := prev.Indicator(types.IndMFI)
		credit := 0.0
		if dir == types.Long {
			if mfi > mfiMidline && mfi < mfiUpperBound {
				credit = 1
			} else if prevOK && mfi > prevMFI {
				credit = partialCredit
			}
		} else {
			if mfi < mfiMidline && mfi > mfiLowerBound {
				credit = 1
			} else if prevOK && mfi < prevMFI {
				credit = partialCredit
			}
		}
		if credit > 0 {
			cond.MFI = true
			score += credit * cfg.Weights.MFI
		}
	}

	// Parabolic SAR direction flag.
	if psar, ok := cur.Indicator(types.IndPSARBullish); ok {
		if (dir == types.Long && psar > 0) || (dir == types.Short && psar == 0) {
			cond.PSAR = true
			score += cfg.Weights.PSAR
		}
	}

	scoreLog.Debug("Scored direction",
		"symbol", cur.Symbol,
		"direction", dir,
		"score", score,
		"maxScore", cfg.Weights.Total())

	return score, cond
}

// calibrateConfidence remaps a raw score ratio onto a realistic confidence
// distribution so values do not cluster near 100%.
func calibrateConfidence(raw float64) float64 {
	var c float64
	switch {
	case raw > calHighBreak:
		c = calHighFloor + (raw-calHighBreak)/(1-calHighBreak)*(calibrationCap-calHighFloor)
	case raw > calMidBreak:
		c = calMidFloor + (raw-calMidBreak)/(calHighBreak-calMidBreak)*(calHighFloor-calMidFloor)
	default:
		c = raw * calLowScale
	}
	if c > calibrationCap {
		c = calibrationCap
	}
	if c < 0 {
		c = 0
	}
	return c
}

var conditionNames = []struct {
	name string
	get  func(types.Conditions) bool
}{
	{"macd crossover", func(c types.Conditions) bool { return c.MACDCrossover }},
	{"rsi band", func(c types.Conditions) bool { return c.RSIInBand }},
	{"price vs ema50", func(c types.Conditions) bool { return c.PriceVsEMA }},
	{"adx strength", func(c types.Conditions) bool { return c.ADXStrength }},
	{"heikin-ashi", func(c types.Conditions) bool { return c.HeikinAshi }},
	{"volume trend", func(c types.Conditions) bool { return c.VolumeTrend }},
	{"ema alignment", func(c types.Conditions) bool { return c.EMAAlignment }},
	{"di dominance", func(c types.Conditions) bool { return c.DirectionalIndex }},
	{"bollinger position", func(c types.Conditions) bool { return c.Bollinger }},
	{"low volatility", func(c types.Conditions) bool { return c.Volatility }},
	{"supertrend", func(c types.Conditions) bool { return c.SuperTrend }},
	{"mfi zone", func(c types.Conditions) bool { return c.MFI }},
	{"psar", func(c types.Conditions) bool { return c.PSAR }},
}

// describeSignal renders the fired conditions as a short audit string. It is
// never used in scoring.
func describeSignal(symbol string, dir types.Direction, confidence float64, cond types.Conditions) string {
	fired := make([]string, 0, len(conditionNames))
	for _, cn := range conditionNames {
		if cn.get(cond) {
			fired = append(fired, cn.name)
		}
	}
	if len(fired) == 0 {
		return fmt.Sprintf("%s %s (%.0f%%): no conditions fired", dir, symbol, confidence*100)
	}
	return fmt.Sprintf("%s %s (%.0f%%): %s", dir, symbol, confidence*100, strings.Join(fired, ", "))
}
