package regime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sawpanic/papertick/internal/providers"
)

func flatBars(n int, price float64) []providers.Bar {
	bars := make([]providers.Bar, n)
	ts := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = providers.Bar{Ts: ts.Add(time.Duration(i) * 15 * time.Minute), Open: price, High: price + 0.1, Low: price - 0.1, Close: price}
	}
	return bars
}

func TestClassifyUnknownWhenTooFewBars(t *testing.T) {
	cfg := DefaultConfig()
	res := Classify(cfg, flatBars(5, 100), false)
	assert.Equal(t, Unknown, res.Regime)
}

func TestClassifyUnknownWhenTrimmed(t *testing.T) {
	cfg := DefaultConfig()
	res := Classify(cfg, flatBars(40, 100), true)
	assert.Equal(t, Unknown, res.Regime)
}

func TestClassifyChopOnFlatMarket(t *testing.T) {
	cfg := DefaultConfig()
	res := Classify(cfg, flatBars(40, 100), false)
	assert.Equal(t, Chop, res.Regime)
}

func TestClassifyTrendUpOnSustainedRally(t *testing.T) {
	cfg := DefaultConfig()
	bars := make([]providers.Bar, 40)
	ts := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	price := 100.0
	for i := range bars {
		bars[i] = providers.Bar{Ts: ts.Add(time.Duration(i) * 15 * time.Minute), Open: price, High: price * 1.01, Low: price * 0.995, Close: price}
		price *= 1.01
	}
	res := Classify(cfg, bars, false)
	assert.Equal(t, TrendUp, res.Regime)
}

func TestClassifyPanicDownOnSharpDrop(t *testing.T) {
	cfg := DefaultConfig()
	bars := flatBars(40, 100)
	// crash the last 4 bars hard
	for i := len(bars) - 4; i < len(bars); i++ {
		bars[i].Close = bars[i-1].Close * 0.95
		bars[i].High = bars[i].Close * 1.01
		bars[i].Low = bars[i].Close * 0.9
	}
	res := Classify(cfg, bars, false)
	assert.Equal(t, PanicDown, res.Regime)
}

func TestClassifyZScoreMajorityVote(t *testing.T) {
	th := DefaultZScoreThresholds()
	res := ClassifyZScore(ZScoreInputs{RealizedVol7d: 0.1, BreadthAbove20MA: 0.8, BreadthThrustProxy: 0.9}, th)
	assert.Equal(t, TrendUp, res.Regime)
}
