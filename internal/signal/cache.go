package signal

import "github.com/quantkit/sigbench/internal/types"

// candleCache is a fixed-capacity, insertion-ordered ring buffer of candles.
// Once full, every append evicts the oldest entry. No validation is done on
// ordering or duplicates; that is the feeder's responsibility.
type candleCache struct {
	buf   []types.Candle
	head  int // index of the oldest entry
	count int
}

func newCandleCache(capacity int) *candleCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &candleCache{buf: make([]types.Candle, capacity)}
}

func (c *candleCache) Append(candle types.Candle) {
	if c.count < len(c.buf) {
		c.buf[(c.head+c.count)%len(c.buf)] = candle
		c.count++
		return
	}
	c.buf[c.head] = candle
	c.head = (c.head + 1) % len(c.buf)
}

func (c *candleCache) Len() int {
	return c.count
}

// At returns the i-th candle counting from the oldest.
func (c *candleCache) At(i int) types.Candle {
	return c.buf[(c.head+i)%len(c.buf)]
}

// Last returns the most recent candle. Callers must check Len first.
func (c *candleCache) Last() types.Candle {
	return c.At(c.count - 1)
}

// Recent copies out the newest n candles in chronological order. If fewer
// than n are cached, all of them are returned.
func (c *candleCache) Recent(n int) []types.Candle {
	if n > c.count {
		n = c.count
	}
	out := make([]types.Candle, n)
	for i := 0; i < n; i++ {
		out[i] = c.At(c.count - n + i)
	}
	return out
}

// VolumeSMA returns the simple moving average of volume over the newest
// period candles, or 0 if not enough candles are cached.
func (c *candleCache) VolumeSMA(period int) float64 {
	if period <= 0 || c.count < period {
		return 0
	}
	sum := 0.0
	for i := c.count - period; i < c.count; i++ {
		sum += c.At(i).Volume
	}
	return sum / float64(period)
}
