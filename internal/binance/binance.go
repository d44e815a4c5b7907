// Package binance fetches historical klines for backtest datasets. It is a
// data adapter only; nothing in here touches order endpoints.
package binance

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/jpillora/backoff"

	"github.com/quantkit/sigbench/internal/types"
)

const (
	// MaxKlinesPerRequest is below the exchange limit of 1500 to keep a buffer.
	MaxKlinesPerRequest = 1000

	maxFetchAttempts = 5
)

var intervalToDuration = map[string]time.Duration{
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
}

// IntervalDuration returns the bar duration for a supported kline interval.
func IntervalDuration(interval string) (time.Duration, error) {
	d, ok := intervalToDuration[interval]
	if !ok {
		return 0, fmt.Errorf("unsupported interval: %s", interval)
	}
	return d, nil
}

type Service struct {
	client *binance.Client
}

func NewService(apiKey, secretKey string) *Service {
	return &Service{client: binance.NewClient(apiKey, secretKey)}
}

// FetchCandles iteratively fetches all klines for a symbol between two
// timestamps, batching below the per-request limit and retrying transient
// failures with exponential backoff.
func (s *Service) FetchCandles(ctx context.Context, symbol, interval string, from, to time.Time) ([]types.Candle, error) {
	slog.Info("Initiating batched kline fetch", "symbol", symbol, "interval", interval, "from", from, "to", to)

	period, err := IntervalDuration(interval)
	if err != nil {
		return nil, err
	}

	if to.After(time.Now()) {
		to = time.Now()
		slog.Warn("Adjusted 'to' time to current time as it was in the future", "newTo", to)
	}

	var all []types.Candle
	currentFrom := from

	for currentFrom.Before(to) {
		batchTo := currentFrom.Add(period * MaxKlinesPerRequest)
		if batchTo.After(to) {
			batchTo = to
		}

		klines, err := s.fetchBatch(ctx, symbol, interval, currentFrom, batchTo)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch klines between %s and %s: %w", currentFrom, batchTo, err)
		}
		if len(klines) == 0 {
			break // no more data available
		}

		candles, err := klinesToCandles(symbol, interval, klines)
		if err != nil {
			return nil, err
		}
		all = append(all, candles...)

		currentFrom = candles[len(candles)-1].Timestamp.Add(period)
	}

	slog.Info("Completed kline fetch", "symbol", symbol, "total", len(all))
	return all, nil
}

func (s *Service) fetchBatch(ctx context.Context, symbol, interval string, from, to time.Time) ([]*binance.Kline, error) {
	b := &backoff.Backoff{
		Min:    250 * time.Millisecond,
		Max:    10 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		klines, err := s.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(from.UnixMilli()).
			EndTime(to.UnixMilli()).
			Limit(MaxKlinesPerRequest).
			Do(ctx)
		if err == nil {
			return klines, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		wait := b.Duration()
		slog.Warn("Kline fetch failed, retrying", "symbol", symbol, "attempt", attempt, "wait", wait, "error", err)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("giving up after %d attempts: %w", maxFetchAttempts, lastErr)
}

func klinesToCandles(symbol, interval string, klines []*binance.Kline) ([]types.Candle, error) {
	candles := make([]types.Candle, 0, len(klines))
	for _, k := range klines {
		o, err := strconv.ParseFloat(k.Open, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse kline open %q: %w", k.Open, err)
		}
		h, err := strconv.ParseFloat(k.High, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse kline high %q: %w", k.High, err)
		}
		l, err := strconv.ParseFloat(k.Low, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse kline low %q: %w", k.Low, err)
		}
		c, err := strconv.ParseFloat(k.Close, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse kline close %q: %w", k.Close, err)
		}
		v, err := strconv.ParseFloat(k.Volume, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse kline volume %q: %w", k.Volume, err)
		}

		candles = append(candles, types.Candle{
			Symbol:    symbol,
			Timeframe: interval,
			Timestamp: time.UnixMilli(k.OpenTime).UTC(),
			Open:      o,
			High:      h,
			Low:       l,
			Close:     c,
			Volume:    v,
		})
	}
	return candles, nil
}
