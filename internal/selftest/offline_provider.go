package selftest

import (
	"context"
	"time"

	"github.com/sawpanic/papertick/internal/providers"
)

// offlineProvider is a deterministic, no-network Provider used by every
// validator here: selftest must never touch a real exchange.
type offlineProvider struct {
	name  string
	bars  []providers.Bar
	fails bool
}

func (p *offlineProvider) Name() string { return p.name }

func (p *offlineProvider) FetchKlines(ctx context.Context, symbol, timeframe string, limit int) ([]providers.Bar, error) {
	if p.fails {
		return nil, providers.NewFetchError(429, context.DeadlineExceeded)
	}
	if len(p.bars) <= limit {
		return p.bars, nil
	}
	return p.bars[len(p.bars)-limit:], nil
}

// syntheticBars builds n deterministic 15m bars ending strictly before
// now, each closed (no trimming), walking a small fixed price path so
// the regime classifier and signal registry have real numbers to chew
// on without hitting the network.
func syntheticBars(n int, now time.Time) []providers.Bar {
	const stepSeconds = 900
	start := now.Add(-time.Duration(n+1) * stepSeconds * time.Second).Truncate(time.Second)
	price := 50000.0
	bars := make([]providers.Bar, 0, n)
	for i := 0; i < n; i++ {
		ts := start.Add(time.Duration(i) * stepSeconds * time.Second)
		open := price
		price += 5.0 * float64((i%5)-2)
		high := open + 15
		low := open - 15
		if price > high {
			high = price
		}
		if price < low {
			low = price
		}
		bars = append(bars, providers.Bar{
			Ts: ts, Open: open, High: high, Low: low, Close: price, Volume: 10 + float64(i%7),
		})
	}
	return bars
}
