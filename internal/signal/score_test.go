package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quantkit/sigbench/internal/config"
	"github.com/quantkit/sigbench/internal/types"
)

// bullishIndicators returns a full indicator map that satisfies every LONG
// check at full credit when paired with a previous candle whose MACD
// histogram is negative.
func bullishIndicators() map[string]float64 {
	return map[string]float64{
		types.IndMACDHist:      0.5,
		types.IndRSI:           55,
		types.IndADX:           30,
		types.IndATR:           1,
		types.IndEMA9:          99,
		types.IndEMA21:         97,
		types.IndEMA50:         95,
		types.IndPlusDI:        30,
		types.IndMinusDI:       10,
		types.IndBBUpper:       110,
		types.IndBBLower:       90,
		types.IndMFI:           60,
		types.IndSuperTrendDir: 1,
		types.IndPSARBullish:   1,
		types.IndHABullish:     1,
		types.IndVolumeTrend:   1.5,
	}
}

func bearishIndicators() map[string]float64 {
	return map[string]float64{
		types.IndMACDHist:      -0.5,
		types.IndRSI:           45,
		types.IndADX:           30,
		types.IndATR:           1,
		types.IndEMA9:          91,
		types.IndEMA21:         93,
		types.IndEMA50:         105,
		types.IndPlusDI:        10,
		types.IndMinusDI:       30,
		types.IndBBUpper:       110,
		types.IndBBLower:       90,
		types.IndMFI:           40,
		types.IndSuperTrendDir: -1,
		types.IndPSARBullish:   0,
		types.IndHABullish:     0,
		types.IndVolumeTrend:   1.5,
	}
}

func indicatorCandle(ts time.Time, close float64, ind map[string]float64) types.Candle {
	return types.Candle{
		Symbol:     "BTCUSDT",
		Timeframe:  "1h",
		Timestamp:  ts,
		Open:       close,
		High:       close,
		Low:        close,
		Close:      close,
		Volume:     100,
		Indicators: ind,
	}
}

func TestScoreDirection_FullBullishCandle(t *testing.T) {
	cfg := config.Default()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	prevInd := bullishIndicators()
	prevInd[types.IndMACDHist] = -0.2
	prev := indicatorCandle(ts, 100, prevInd)
	cur := indicatorCandle(ts.Add(time.Hour), 100, bullishIndicators())

	score, cond := scoreDirection(cfg, types.Long, cur, prev)

	assert.InDelta(t, cfg.Weights.Total(), score, 1e-9, "every check should earn full credit")
	assert.True(t, cond.MACDCrossover)
	assert.True(t, cond.RSIInBand)
	assert.True(t, cond.PriceVsEMA)
	assert.True(t, cond.ADXStrength)
	assert.True(t, cond.HeikinAshi)
	assert.True(t, cond.VolumeTrend)
	assert.True(t, cond.EMAAlignment)
	assert.True(t, cond.DirectionalIndex)
	assert.True(t, cond.Bollinger)
	assert.True(t, cond.Volatility)
	assert.True(t, cond.SuperTrend)
	assert.True(t, cond.MFI)
	assert.True(t, cond.PSAR)
}

func TestScoreDirection_MirroredShort(t *testing.T) {
	cfg := config.Default()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	prevInd := bearishIndicators()
	prevInd[types.IndMACDHist] = 0.2
	prevInd[types.IndRSI] = 50
	prevInd[types.IndMFI] = 45
	prev := indicatorCandle(ts, 100, prevInd)
	cur := indicatorCandle(ts.Add(time.Hour), 100, bearishIndicators())

	score, cond := scoreDirection(cfg, types.Short, cur, prev)

	assert.InDelta(t, cfg.Weights.Total(), score, 1e-9)
	assert.True(t, cond.MACDCrossover)
	assert.True(t, cond.SuperTrend)
	assert.True(t, cond.PSAR)
}

func TestScoreDirection_MissingIndicatorsEarnNothing(t *testing.T) {
	cfg := config.Default()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	prev := indicatorCandle(ts, 100, nil)
	cur := indicatorCandle(ts.Add(time.Hour), 100, nil)

	score, cond := scoreDirection(cfg, types.Long, cur, prev)

	assert.Zero(t, score)
	assert.Equal(t, types.Conditions{}, cond)
}

func TestScoreDirection_BoundedRatio(t *testing.T) {
	cfg := config.Default()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	maxScore := cfg.Weights.Total()

	cases := []map[string]float64{
		nil,
		bullishIndicators(),
		bearishIndicators(),
		{types.IndRSI: 55, types.IndADX: 25},
	}
	for _, ind := range cases {
		prev := indicatorCandle(ts, 100, ind)
		cur := indicatorCandle(ts.Add(time.Hour), 100, ind)
		for _, dir := range []types.Direction{types.Long, types.Short} {
			score, _ := scoreDirection(cfg, dir, cur, prev)
			ratio := score / maxScore
			assert.GreaterOrEqual(t, ratio, 0.0)
			assert.LessOrEqual(t, ratio, 1.0)
		}
	}
}

func TestCalibrateConfidence_PiecewiseBreaks(t *testing.T) {
	// Low segment scales by 0.91.
	assert.InDelta(t, 0.455, calibrateConfidence(0.5), 1e-9)
	assert.InDelta(t, 0.75*0.91, calibrateConfidence(0.75), 1e-9)

	// Middle segment maps (0.75, 0.88] onto (0.68, 0.78].
	assert.InDelta(t, 0.78, calibrateConfidence(0.88), 1e-9)
	assert.InDelta(t, 0.73, calibrateConfidence(0.815), 1e-9)

	// High segment maps (0.88, 1.0] onto (0.78, 0.92].
	assert.InDelta(t, 0.92, calibrateConfidence(1.0), 1e-9)
	assert.InDelta(t, 0.85, calibrateConfidence(0.94), 1e-9)
}

func TestCalibrateConfidence_NeverExceedsCap(t *testing.T) {
	for raw := 0.0; raw <= 1.0; raw += 0.01 {
		c := calibrateConfidence(raw)
		assert.GreaterOrEqual(t, c, 0.0)
		assert.LessOrEqual(t, c, 0.92)
	}
}

func TestCalibrateConfidence_Monotonic(t *testing.T) {
	prev := calibrateConfidence(0)
	for raw := 0.01; raw <= 1.0; raw += 0.01 {
		c := calibrateConfidence(raw)
		assert.GreaterOrEqual(t, c, prev, "calibration must be monotonic at raw=%.2f", raw)
		prev = c
	}
}

func TestDescribeSignal(t *testing.T) {
	desc := describeSignal("BTCUSDT", types.Long, 0.74, types.Conditions{
		MACDCrossover: true,
		EMAAlignment:  true,
	})
	assert.Contains(t, desc, "LONG BTCUSDT")
	assert.Contains(t, desc, "74%")
	assert.Contains(t, desc, "macd crossover")
	assert.Contains(t, desc, "ema alignment")
	assert.NotContains(t, desc, "psar")

	empty := describeSignal("ETHUSDT", types.Short, 0, types.Conditions{})
	assert.Contains(t, empty, "no conditions fired")
}
