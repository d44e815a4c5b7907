package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quantkit/sigbench/internal/config"
	"github.com/quantkit/sigbench/internal/types"
)

func atrCandles(n int, atr, close float64) []types.Candle {
	out := make([]types.Candle, n)
	for i := range out {
		out[i] = types.Candle{
			Symbol: "BTCUSDT",
			Close:  close,
			Indicators: map[string]float64{
				types.IndATR: atr,
			},
		}
	}
	return out
}

func TestATRClassifier_Buckets(t *testing.T) {
	var c ATRClassifier

	low := c.Classify("BTCUSDT", atrCandles(50, 0.5, 100)) // 0.5% avg ATR
	assert.Equal(t, "low", low.Level)
	assert.Equal(t, 1.2, low.SLMultiplier)
	assert.Equal(t, 2.5, low.TPMultiplier)
	assert.Equal(t, 18.0, low.ADXThreshold)
	assert.Equal(t, 0.55, low.MinConfidence)

	normal := c.Classify("BTCUSDT", atrCandles(50, 2, 100)) // 2% avg ATR
	assert.Equal(t, "normal", normal.Level)
	assert.Zero(t, normal.SLMultiplier)

	high := c.Classify("BTCUSDT", atrCandles(50, 5, 100)) // 5% avg ATR
	assert.Equal(t, "high", high.Level)
	assert.Equal(t, 2.0, high.SLMultiplier)
	assert.Equal(t, 4.0, high.TPMultiplier)
	assert.Equal(t, 25.0, high.ADXThreshold)
	assert.Equal(t, 0.65, high.MinConfidence)
}

func TestATRClassifier_DegradesToNormal(t *testing.T) {
	var c ATRClassifier

	assert.Equal(t, "normal", c.Classify("BTCUSDT", nil).Level)

	// Candles without ATR readings cannot be classified.
	bare := make([]types.Candle, 10)
	assert.Equal(t, "normal", c.Classify("BTCUSDT", bare).Level)
}

func TestVolatilityResolver_OverlaysClassification(t *testing.T) {
	base := config.Default()
	r := VolatilityResolver{Base: base, Classifier: ATRClassifier{}}

	cfg := r.Resolve("BTCUSDT", atrCandles(50, 5, 100))
	assert.Equal(t, 2.0, cfg.StopLossATRMult)
	assert.Equal(t, 4.0, cfg.TakeProfitATRMult)
	assert.Equal(t, 25.0, cfg.LongADXMin)
	assert.Equal(t, 25.0, cfg.ShortADXMin)
	assert.Equal(t, 0.65, cfg.MinConfidence)

	// Untouched parameters come straight from the base.
	assert.Equal(t, base.Weights, cfg.Weights)
	assert.Equal(t, base.LongRSIMin, cfg.LongRSIMin)
}

func TestVolatilityResolver_NormalLeavesBaseIntact(t *testing.T) {
	base := config.Default()
	r := VolatilityResolver{Base: base, Classifier: ATRClassifier{}}

	cfg := r.Resolve("BTCUSDT", atrCandles(50, 2, 100))
	assert.Equal(t, base, cfg)
}

func TestVolatilityResolver_NilClassifier(t *testing.T) {
	base := config.Default()
	r := VolatilityResolver{Base: base}
	assert.Equal(t, base, r.Resolve("BTCUSDT", nil))
}

func TestStaticResolver(t *testing.T) {
	cfg := config.Default()
	cfg.MinConfidence = 0.75
	r := StaticResolver{Config: cfg}
	assert.Equal(t, cfg, r.Resolve("ANY", nil))
}
