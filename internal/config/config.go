package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Weights is the indicator weight table used by the scoring function.
// Every weight must be positive; the maximum achievable score is the sum.
type Weights struct {
	MACD             float64
	RSI              float64
	PriceVsEMA       float64
	ADX              float64
	HeikinAshi       float64
	Volume           float64
	EMAAlignment     float64
	DirectionalIndex float64
	Bollinger        float64
	Volatility       float64
	SuperTrend       float64
	MFI              float64
	PSAR             float64
}

// Total returns the maximum achievable raw score.
func (w Weights) Total() float64 {
	return w.MACD + w.RSI + w.PriceVsEMA + w.ADX + w.HeikinAshi + w.Volume +
		w.EMAAlignment + w.DirectionalIndex + w.Bollinger + w.Volatility +
		w.SuperTrend + w.MFI + w.PSAR
}

// SignalConfig is the immutable parameter bundle for the detection engine.
// A copy is cheap; the engine never mutates one after resolution.
type SignalConfig struct {
	LongRSIMin  float64
	LongRSIMax  float64
	ShortRSIMin float64
	ShortRSIMax float64

	LongADXMin  float64
	ShortADXMin float64

	LongVolumeMult  float64
	ShortVolumeMult float64

	StopLossATRMult   float64
	TakeProfitATRMult float64

	MinConfidence float64

	Weights Weights

	CacheSize    int
	SignalExpiry time.Duration
}

// Default returns the baseline configuration used when no volatility
// classifier overrides are in play.
func Default() SignalConfig {
	return SignalConfig{
		LongRSIMin:  40,
		LongRSIMax:  70,
		ShortRSIMin: 30,
		ShortRSIMax: 60,

		LongADXMin:  20,
		ShortADXMin: 20,

		LongVolumeMult:  1.2,
		ShortVolumeMult: 1.2,

		StopLossATRMult:   1.5,
		TakeProfitATRMult: 3.0,

		MinConfidence: 0.60,

		Weights: Weights{
			MACD:             1.5,
			RSI:              1.2,
			PriceVsEMA:       1.0,
			ADX:              1.0,
			HeikinAshi:       0.8,
			Volume:           1.0,
			EMAAlignment:     1.2,
			DirectionalIndex: 1.0,
			Bollinger:        0.8,
			Volatility:       0.7,
			SuperTrend:       1.3,
			MFI:              0.8,
			PSAR:             0.7,
		},

		CacheSize:    500,
		SignalExpiry: 4 * time.Hour,
	}
}

// Validate checks the structural invariants of a config.
func (c SignalConfig) Validate() error {
	if c.LongRSIMin >= c.LongRSIMax {
		return fmt.Errorf("long RSI band invalid: min %.2f >= max %.2f", c.LongRSIMin, c.LongRSIMax)
	}
	if c.ShortRSIMin >= c.ShortRSIMax {
		return fmt.Errorf("short RSI band invalid: min %.2f >= max %.2f", c.ShortRSIMin, c.ShortRSIMax)
	}
	if c.TakeProfitATRMult <= c.StopLossATRMult {
		return fmt.Errorf("take profit multiplier %.2f must exceed stop loss multiplier %.2f", c.TakeProfitATRMult, c.StopLossATRMult)
	}
	if c.MinConfidence <= 0 || c.MinConfidence >= 1 {
		return fmt.Errorf("min confidence %.2f out of range (0,1)", c.MinConfidence)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("cache size must be positive, got %d", c.CacheSize)
	}
	if c.SignalExpiry <= 0 {
		return fmt.Errorf("signal expiry must be positive, got %s", c.SignalExpiry)
	}
	for name, w := range map[string]float64{
		"macd":              c.Weights.MACD,
		"rsi":               c.Weights.RSI,
		"price_vs_ema":      c.Weights.PriceVsEMA,
		"adx":               c.Weights.ADX,
		"heikin_ashi":       c.Weights.HeikinAshi,
		"volume":            c.Weights.Volume,
		"ema_alignment":     c.Weights.EMAAlignment,
		"directional_index": c.Weights.DirectionalIndex,
		"bollinger":         c.Weights.Bollinger,
		"volatility":        c.Weights.Volatility,
		"supertrend":        c.Weights.SuperTrend,
		"mfi":               c.Weights.MFI,
		"psar":              c.Weights.PSAR,
	} {
		if w <= 0 {
			return fmt.Errorf("weight %q must be positive, got %.2f", name, w)
		}
	}
	return nil
}

// App holds the process-level settings for the sigbench CLI.
type App struct {
	Symbols        []string
	Interval       string
	LookbackDays   int
	InitialCapital float64
	PositionSize   float64
	MaxPositions   int

	BinanceAPIKey    string
	BinanceSecretKey string

	DatabaseDSN string
	ExportDir   string
}

// Load reads the CLI configuration from the environment. A missing .env file
// is fine; explicit environment variables still apply.
func Load() (*App, error) {
	_ = godotenv.Load()

	app := &App{
		Symbols:          envSymbols(),
		Interval:         envOr("SIGBENCH_INTERVAL", "1h"),
		LookbackDays:     envInt("SIGBENCH_LOOKBACK_DAYS", 30),
		InitialCapital:   envFloat("SIGBENCH_INITIAL_CAPITAL", 10000),
		PositionSize:     envFloat("SIGBENCH_POSITION_SIZE", 100),
		MaxPositions:     envInt("SIGBENCH_MAX_POSITIONS", 5),
		BinanceAPIKey:    os.Getenv("BINANCE_API_KEY"),
		BinanceSecretKey: os.Getenv("BINANCE_SECRET_KEY"),
		DatabaseDSN:      os.Getenv("DATABASE_DSN"),
		ExportDir:        os.Getenv("SIGBENCH_EXPORT_DIR"),
	}

	if app.InitialCapital <= 0 {
		return nil, fmt.Errorf("initial capital must be positive, got %.2f", app.InitialCapital)
	}
	if app.PositionSize <= 0 || app.PositionSize > app.InitialCapital {
		return nil, fmt.Errorf("position size %.2f must be positive and at most initial capital %.2f", app.PositionSize, app.InitialCapital)
	}
	if app.MaxPositions <= 0 {
		return nil, fmt.Errorf("max positions must be positive, got %d", app.MaxPositions)
	}
	return app, nil
}

func envSymbols() []string {
	raw := os.Getenv("SIGBENCH_SYMBOLS")
	if raw == "" {
		return []string{"BTCUSDT", "ETHUSDT"}
	}
	parts := strings.Split(raw, ",")
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
