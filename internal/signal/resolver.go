package signal

import (
	"github.com/quantkit/sigbench/internal/config"
	"github.com/quantkit/sigbench/internal/logging"
	"github.com/quantkit/sigbench/internal/types"
)

var resolverLog = logging.New("resolver")

// ConfigResolver resolves the effective signal configuration for a symbol.
// The engine caches the result per symbol after the first call.
type ConfigResolver interface {
	Resolve(symbol string, recent []types.Candle) config.SignalConfig
}

// StaticResolver returns the same configuration for every symbol.
type StaticResolver struct {
	Config config.SignalConfig
}

func (r StaticResolver) Resolve(string, []types.Candle) config.SignalConfig {
	return r.Config
}

// Volatility is the classification a VolatilityClassifier produces for a
// symbol. Its fields override the matching base-config parameters.
type Volatility struct {
	SLMultiplier  float64
	TPMultiplier  float64
	ADXThreshold  float64
	MinConfidence float64
	Level         string
}

// VolatilityClassifier inspects a symbol's recent candles and produces
// per-symbol risk parameters.
type VolatilityClassifier interface {
	Classify(symbol string, recent []types.Candle) Volatility
}

// VolatilityResolver overlays a classifier's output on a base configuration.
type VolatilityResolver struct {
	Base       config.SignalConfig
	Classifier VolatilityClassifier
}

func (r VolatilityResolver) Resolve(symbol string, recent []types.Candle) config.SignalConfig {
	cfg := r.Base
	if r.Classifier == nil {
		return cfg
	}
	v := r.Classifier.Classify(symbol, recent)
	if v.SLMultiplier > 0 {
		cfg.StopLossATRMult = v.SLMultiplier
	}
	if v.TPMultiplier > 0 {
		cfg.TakeProfitATRMult = v.TPMultiplier
	}
	if v.ADXThreshold > 0 {
		cfg.LongADXMin = v.ADXThreshold
		cfg.ShortADXMin = v.ADXThreshold
	}
	if v.MinConfidence > 0 {
		cfg.MinConfidence = v.MinConfidence
	}
	resolverLog.Debug("Resolved symbol config",
		"symbol", symbol,
		"level", v.Level,
		"slMult", cfg.StopLossATRMult,
		"tpMult", cfg.TakeProfitATRMult,
		"adxMin", cfg.LongADXMin,
		"minConfidence", cfg.MinConfidence)
	return cfg
}

// ATRClassifier buckets symbols by average ATR as a percentage of price.
// Higher volatility gets wider stops and stricter entry gates.
type ATRClassifier struct{}

func (ATRClassifier) Classify(symbol string, recent []types.Candle) Volatility {
	if len(recent) == 0 {
		return Volatility{Level: "normal"}
	}

	var sum float64
	var n int
	for _, c := range recent {
		atr, ok := c.Indicator(types.IndATR)
		if !ok || c.Close <= 0 {
			continue
		}
		sum += atr / c.Close * 100
		n++
	}
	if n == 0 {
		return Volatility{Level: "normal"}
	}

	switch avg := sum / float64(n); {
	case avg < 1.0:
		return Volatility{
			SLMultiplier:  1.2,
			TPMultiplier:  2.5,
			ADXThreshold:  18,
			MinConfidence: 0.55,
			Level:         "low",
		}
	case avg > 3.0:
		return Volatility{
			SLMultiplier:  2.0,
			TPMultiplier:  4.0,
			ADXThreshold:  25,
			MinConfidence: 0.65,
			Level:         "high",
		}
	default:
		return Volatility{Level: "normal"}
	}
}
