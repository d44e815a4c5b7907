// Package annotate computes the per-candle indicator values that the signal
// detection engine consumes. The engine itself never computes indicators; it
// only reads the annotated map.
package annotate

import (
	talib "github.com/markcheno/go-talib"

	"github.com/quantkit/sigbench/internal/types"
)

const (
	rsiPeriod    = 14
	adxPeriod    = 14
	atrPeriod    = 14
	mfiPeriod    = 14
	bbPeriod     = 20
	bbDeviation  = 2.0
	volumePeriod = 20

	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9

	sarAcceleration = 0.02
	sarMaximum      = 0.2

	supertrendPeriod = 10
	supertrendFactor = 3.0
)

// Series annotates a chronological candle slice with every indicator the
// detection engine scores on. The input is not mutated; annotated copies are
// returned. Values inside an indicator's warm-up window are left unset so the
// engine sees them as missing rather than as zeros.
func Series(candles []types.Candle) []types.Candle {
	n := len(candles)
	out := make([]types.Candle, n)
	copy(out, candles)
	if n == 0 {
		return out
	}

	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i, c := range candles {
		highs[i] = c.High
		lows[i] = c.Low
		closes[i] = c.Close
		volumes[i] = c.Volume
	}

	rsi := talib.Rsi(closes, rsiPeriod)
	_, _, macdHist := talib.Macd(closes, macdFast, macdSlow, macdSignal)
	adx := talib.Adx(highs, lows, closes, adxPeriod)
	plusDI := talib.PlusDI(highs, lows, closes, adxPeriod)
	minusDI := talib.MinusDI(highs, lows, closes, adxPeriod)
	atr := talib.Atr(highs, lows, closes, atrPeriod)
	ema9 := talib.Ema(closes, 9)
	ema21 := talib.Ema(closes, 21)
	ema50 := talib.Ema(closes, 50)
	bbUpper, _, bbLower := talib.BBands(closes, bbPeriod, bbDeviation, bbDeviation, talib.SMA)
	mfi := talib.Mfi(highs, lows, closes, volumes, mfiPeriod)
	sar := talib.Sar(highs, lows, sarAcceleration, sarMaximum)
	volSMA := talib.Sma(volumes, volumePeriod)

	stDir := supertrendDirections(highs, lows, closes)
	haBullish := heikinAshiBullish(candles)

	for i := range out {
		ind := make(map[string]float64, 16)

		set(ind, types.IndRSI, rsi, i, rsiPeriod)
		set(ind, types.IndMACDHist, macdHist, i, macdSlow+macdSignal-1)
		set(ind, types.IndADX, adx, i, 2*adxPeriod-1)
		set(ind, types.IndPlusDI, plusDI, i, adxPeriod)
		set(ind, types.IndMinusDI, minusDI, i, adxPeriod)
		set(ind, types.IndATR, atr, i, atrPeriod)
		set(ind, types.IndEMA9, ema9, i, 9-1)
		set(ind, types.IndEMA21, ema21, i, 21-1)
		set(ind, types.IndEMA50, ema50, i, 50-1)
		set(ind, types.IndBBUpper, bbUpper, i, bbPeriod-1)
		set(ind, types.IndBBLower, bbLower, i, bbPeriod-1)
		set(ind, types.IndMFI, mfi, i, mfiPeriod)

		if i >= supertrendPeriod {
			ind[types.IndSuperTrendDir] = float64(stDir[i])
		}
		if i >= 1 && i < len(sar) {
			if candles[i].Close > sar[i] {
				ind[types.IndPSARBullish] = 1
			} else {
				ind[types.IndPSARBullish] = 0
			}
		}
		if haBullish[i] {
			ind[types.IndHABullish] = 1
		} else {
			ind[types.IndHABullish] = 0
		}
		if i >= volumePeriod-1 && volSMA[i] > 0 {
			ind[types.IndVolumeTrend] = candles[i].Volume / volSMA[i]
		}

		out[i].Indicators = ind
	}
	return out
}

// set assigns arr[i] once i is past the indicator's warm-up window.
func set(ind map[string]float64, key string, arr []float64, i, lookback int) {
	if i < lookback || i >= len(arr) {
		return
	}
	ind[key] = arr[i]
}

// supertrendDirections runs the standard SuperTrend band-flipping algorithm
// and reports +1 (bullish) or -1 (bearish) per candle.
func supertrendDirections(highs, lows, closes []float64) []int {
	n := len(closes)
	dir := make([]int, n)
	if n == 0 {
		return dir
	}

	atr := talib.Atr(highs, lows, closes, supertrendPeriod)
	finalUpper := make([]float64, n)
	finalLower := make([]float64, n)

	for i := 0; i < n; i++ {
		mid := (highs[i] + lows[i]) / 2
		basicUpper := mid + supertrendFactor*atr[i]
		basicLower := mid - supertrendFactor*atr[i]

		if i == 0 {
			finalUpper[i] = basicUpper
			finalLower[i] = basicLower
			dir[i] = 1
			continue
		}

		if basicUpper < finalUpper[i-1] || closes[i-1] > finalUpper[i-1] {
			finalUpper[i] = basicUpper
		} else {
			finalUpper[i] = finalUpper[i-1]
		}
		if basicLower > finalLower[i-1] || closes[i-1] < finalLower[i-1] {
			finalLower[i] = basicLower
		} else {
			finalLower[i] = finalLower[i-1]
		}

		if dir[i-1] == 1 {
			if closes[i] < finalLower[i] {
				dir[i] = -1
			} else {
				dir[i] = 1
			}
		} else {
			if closes[i] > finalUpper[i] {
				dir[i] = 1
			} else {
				dir[i] = -1
			}
		}
	}
	return dir
}

// heikinAshiBullish computes the smoothed Heikin-Ashi candles and reports
// whether each closes above its open.
func heikinAshiBullish(candles []types.Candle) []bool {
	n := len(candles)
	out := make([]bool, n)
	if n == 0 {
		return out
	}

	haOpen := (candles[0].Open + candles[0].Close) / 2
	haClose := (candles[0].Open + candles[0].High + candles[0].Low + candles[0].Close) / 4
	out[0] = haClose > haOpen

	for i := 1; i < n; i++ {
		haOpen = (haOpen + haClose) / 2
		haClose = (candles[i].Open + candles[i].High + candles[i].Low + candles[i].Close) / 4
		out[i] = haClose > haOpen
	}
	return out
}
