package signal

import (
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quantkit/sigbench/internal/config"
	"github.com/quantkit/sigbench/internal/logging"
	"github.com/quantkit/sigbench/internal/types"
)

var engineLog = logging.New("signal")

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"

	ReasonInvalidated = "invalidated"
	ReasonExpired     = "expired"

	// minCandles is the history required before a symbol is processed at all.
	minCandles = 50

	// rangingADXMin gates out low trend-strength markets before scoring;
	// below this breakouts are mostly noise.
	rangingADXMin = 18.0

	// Volume spike confirmation: current volume must exceed this multiple
	// of the rolling volume average.
	volumeSpikePeriod = 20
	volumeSpikeMult   = 1.2

	// invalidationTolerance keeps an active signal alive until its raw
	// confidence decays 30% below the entry threshold.
	invalidationTolerance = 0.70

	// confidenceDelta is the minimum absolute confidence shift that
	// produces an update event.
	confidenceDelta = 0.05
)

// ActiveSignal is a live entry signal for one symbol. Exactly one may exist
// per symbol at a time.
type ActiveSignal struct {
	ID          string
	Symbol      string
	Direction   types.Direction
	EntryPrice  decimal.Decimal
	StopLoss    decimal.Decimal
	TakeProfit  decimal.Decimal
	Confidence  float64
	Timeframe   string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Conditions  types.Conditions
}

// Record flattens the signal into the form the backtest engine consumes.
func (s *ActiveSignal) Record() types.SignalRecord {
	return types.SignalRecord{
		Symbol:     s.Symbol,
		Timestamp:  s.CreatedAt,
		Direction:  s.Direction,
		Entry:      s.EntryPrice.InexactFloat64(),
		StopLoss:   s.StopLoss.InexactFloat64(),
		TakeProfit: s.TakeProfit.InexactFloat64(),
		Confidence: s.Confidence,
		Timeframe:  s.Timeframe,
		Conditions: s.Conditions,
	}
}

// Event is a discrete lifecycle transition emitted by ProcessSymbol.
type Event struct {
	Action string
	Reason string
	Signal ActiveSignal
}

// Engine turns annotated candle streams into scored entry signals and manages
// each symbol's single active signal. All state is keyed by symbol with no
// cross-symbol interaction; callers processing symbols concurrently must
// serialize calls per symbol.
type Engine struct {
	defaults config.SignalConfig
	resolver ConfigResolver

	caches   map[string]*candleCache
	active   map[string]*ActiveSignal
	resolved map[string]config.SignalConfig
}

func NewEngine(defaults config.SignalConfig, resolver ConfigResolver) *Engine {
	if resolver == nil {
		resolver = StaticResolver{Config: defaults}
	}
	return &Engine{
		defaults: defaults,
		resolver: resolver,
		caches:   make(map[string]*candleCache),
		active:   make(map[string]*ActiveSignal),
		resolved: make(map[string]config.SignalConfig),
	}
}

// UpdateCandles appends candles to the symbol's bounded cache, evicting the
// oldest entries beyond the configured depth.
func (e *Engine) UpdateCandles(symbol string, candles []types.Candle) {
	cache, ok := e.caches[symbol]
	if !ok {
		cache = newCandleCache(e.defaults.CacheSize)
		e.caches[symbol] = cache
	}
	for _, c := range candles {
		cache.Append(c)
	}
}

// ActiveSignals returns a snapshot of all live signals.
func (e *Engine) ActiveSignals() []ActiveSignal {
	out := make([]ActiveSignal, 0, len(e.active))
	for _, s := range e.active {
		out = append(out, *s)
	}
	return out
}

// ActiveSignal returns the live signal for a symbol, if any.
func (e *Engine) ActiveSignal(symbol string) (ActiveSignal, bool) {
	s, ok := e.active[symbol]
	if !ok {
		return ActiveSignal{}, false
	}
	return *s, true
}

// ProcessSymbol evaluates the symbol against its newest candle and returns a
// lifecycle event, or nil when nothing changed. Fewer than 50 cached candles
// is a normal not-ready condition. Malformed indicator data degrades to "no
// signal" for this cycle and never halts other symbols.
func (e *Engine) ProcessSymbol(symbol, timeframe string) *Event {
	cache, ok := e.caches[symbol]
	if !ok || cache.Len() < minCandles {
		return nil
	}

	cfg := e.configFor(symbol, cache)
	cur := cache.At(cache.Len() - 1)
	prev := cache.At(cache.Len() - 2)

	if sig, exists := e.active[symbol]; exists {
		return e.reevaluate(sig, cfg, cur, prev)
	}
	return e.detect(symbol, timeframe, cfg, cache, cur, prev)
}

// configFor resolves the effective config for a symbol, caching the result
// after the first computation.
func (e *Engine) configFor(symbol string, cache *candleCache) config.SignalConfig {
	if cfg, ok := e.resolved[symbol]; ok {
		return cfg
	}
	cfg := e.resolver.Resolve(symbol, cache.Recent(minCandles))
	e.resolved[symbol] = cfg
	return cfg
}

func (e *Engine) detect(symbol, timeframe string, cfg config.SignalConfig, cache *candleCache, cur, prev types.Candle) *Event {
	// Ranging-market gate: low trend strength produces false breakouts.
	adx, ok := cur.Indicator(types.IndADX)
	if !ok {
		slog.Warn("Candle missing ADX, skipping cycle", "symbol", symbol)
		return nil
	}
	if adx < rangingADXMin {
		engineLog.Debug("Skipping ranging market", "symbol", symbol, "adx", adx)
		return nil
	}

	// Volume spike confirmation against the rolling volume average.
	volMA := cache.VolumeSMA(volumeSpikePeriod)
	if volMA <= 0 || cur.Volume < volumeSpikeMult*volMA {
		engineLog.Debug("No volume confirmation", "symbol", symbol, "volume", cur.Volume, "volMA", volMA)
		return nil
	}

	maxScore := cfg.Weights.Total()
	threshold := maxScore * cfg.MinConfidence

	for _, dir := range []types.Direction{types.Long, types.Short} {
		score, cond := scoreDirection(cfg, dir, cur, prev)
		if score < threshold {
			continue
		}
		confidence := calibrateConfidence(score / maxScore)
		if confidence < cfg.MinConfidence {
			continue
		}

		sig, ok := e.buildSignal(symbol, timeframe, dir, cfg, cur, confidence, cond)
		if !ok {
			return nil
		}
		e.active[symbol] = sig

		slog.Info("Signal created",
			"symbol", symbol,
			"direction", dir,
			"entry", sig.EntryPrice,
			"sl", sig.StopLoss,
			"tp", sig.TakeProfit,
			"confidence", confidence)

		return &Event{Action: ActionCreated, Signal: *sig}
	}
	return nil
}

func (e *Engine) buildSignal(symbol, timeframe string, dir types.Direction, cfg config.SignalConfig, cur types.Candle, confidence float64, cond types.Conditions) (*ActiveSignal, bool) {
	atr, ok := cur.Indicator(types.IndATR)
	if !ok || atr <= 0 {
		slog.Warn("Candle missing usable ATR, cannot size stops", "symbol", symbol, "atr", atr)
		return nil, false
	}

	entry := decimal.NewFromFloat(cur.Close)
	slDist := decimal.NewFromFloat(atr * cfg.StopLossATRMult)
	tpDist := decimal.NewFromFloat(atr * cfg.TakeProfitATRMult)

	var sl, tp decimal.Decimal
	if dir == types.Long {
		sl = entry.Sub(slDist)
		tp = entry.Add(tpDist)
	} else {
		sl = entry.Add(slDist)
		tp = entry.Sub(tpDist)
	}

	sig := &ActiveSignal{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		Direction:  dir,
		EntryPrice: entry,
		StopLoss:   sl,
		TakeProfit: tp,
		Confidence: confidence,
		Timeframe:  timeframe,
		CreatedAt:  cur.Timestamp,
		UpdatedAt:  cur.Timestamp,
		Conditions: cond,
	}
	sig.Description = describeSignal(symbol, dir, confidence, cond)
	return sig, true
}

func (e *Engine) reevaluate(sig *ActiveSignal, cfg config.SignalConfig, cur, prev types.Candle) *Event {
	maxScore := cfg.Weights.Total()
	score, cond := scoreDirection(cfg, sig.Direction, cur, prev)
	raw := score / maxScore

	// Conditions decayed past tolerance: the signal no longer holds.
	if raw < cfg.MinConfidence*invalidationTolerance {
		deleted := *sig
		delete(e.active, sig.Symbol)
		slog.Info("Signal invalidated", "symbol", sig.Symbol, "direction", sig.Direction, "raw", raw)
		return &Event{Action: ActionDeleted, Reason: ReasonInvalidated, Signal: deleted}
	}

	if cur.Timestamp.Sub(sig.CreatedAt) > cfg.SignalExpiry {
		deleted := *sig
		delete(e.active, sig.Symbol)
		slog.Info("Signal expired", "symbol", sig.Symbol, "direction", sig.Direction, "age", cur.Timestamp.Sub(sig.CreatedAt))
		return &Event{Action: ActionDeleted, Reason: ReasonExpired, Signal: deleted}
	}

	confidence := calibrateConfidence(raw)
	if math.Abs(confidence-sig.Confidence) <= confidenceDelta {
		return nil
	}

	sig.Confidence = confidence
	sig.Conditions = cond
	sig.UpdatedAt = cur.Timestamp
	sig.Description = describeSignal(sig.Symbol, sig.Direction, confidence, cond)

	// Refresh stop and target from the latest ATR reading. Entry is fixed at
	// creation and never moves.
	if atr, ok := cur.Indicator(types.IndATR); ok && atr > 0 {
		slDist := decimal.NewFromFloat(atr * cfg.StopLossATRMult)
		tpDist := decimal.NewFromFloat(atr * cfg.TakeProfitATRMult)
		if sig.Direction == types.Long {
			sig.StopLoss = sig.EntryPrice.Sub(slDist)
			sig.TakeProfit = sig.EntryPrice.Add(tpDist)
		} else {
			sig.StopLoss = sig.EntryPrice.Add(slDist)
			sig.TakeProfit = sig.EntryPrice.Sub(tpDist)
		}
	}

	slog.Info("Signal updated", "symbol", sig.Symbol, "direction", sig.Direction, "confidence", confidence)
	return &Event{Action: ActionUpdated, Signal: *sig}
}
