package binance

import (
	"testing"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalDuration(t *testing.T) {
	d, err := IntervalDuration("1h")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, d)

	d, err = IntervalDuration("4h")
	require.NoError(t, err)
	assert.Equal(t, 4*time.Hour, d)

	_, err = IntervalDuration("3w")
	assert.ErrorContains(t, err, "unsupported interval")
}

func TestKlinesToCandles(t *testing.T) {
	open := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	klines := []*binance.Kline{
		{
			OpenTime: open.UnixMilli(),
			Open:     "100.5",
			High:     "101.25",
			Low:      "99.75",
			Close:    "101",
			Volume:   "1234.5",
		},
	}

	candles, err := klinesToCandles("BTCUSDT", "1h", klines)
	require.NoError(t, err)
	require.Len(t, candles, 1)

	c := candles[0]
	assert.Equal(t, "BTCUSDT", c.Symbol)
	assert.Equal(t, "1h", c.Timeframe)
	assert.Equal(t, open, c.Timestamp)
	assert.Equal(t, 100.5, c.Open)
	assert.Equal(t, 101.25, c.High)
	assert.Equal(t, 99.75, c.Low)
	assert.Equal(t, 101.0, c.Close)
	assert.Equal(t, 1234.5, c.Volume)
	assert.Nil(t, c.Indicators)
}

func TestKlinesToCandles_MalformedValue(t *testing.T) {
	klines := []*binance.Kline{
		{Open: "not-a-number", High: "1", Low: "1", Close: "1", Volume: "1"},
	}
	_, err := klinesToCandles("BTCUSDT", "1h", klines)
	assert.ErrorContains(t, err, "failed to parse kline open")
}
