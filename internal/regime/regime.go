// Package regime classifies the current bar into a discrete market
// state using bounded rolling statistics of the OHLCV window.
// Grounded on cryptorun's internal/regime/detector.go
// (rolling-stat classifier) and internal/domain/regime/detector.go
// (z-score/voting classifier) — both are kept, since the z-score
// classifier survives for interop with downstream research.
package regime

import (
	"math"

	"github.com/sawpanic/papertick/internal/providers"
)

// Regime is the discrete market-state label.
type Regime string

const (
	TrendUp Regime = "trend_up"
	TrendDown Regime = "trend_down"
	Chop Regime = "chop"
	HighVol Regime = "high_vol"
	PanicDown Regime = "panic_down"
	Unknown Regime = "unknown"
)

// Config holds the rolling-window sizes and thresholds. Defaults are
// conservative; production values come from internal/config.
type Config struct {
	MinBars           int // minimum bars required, else Unknown
	ATRWindow         int
	BBWindow          int
	ReturnWindow      int
	HighVolZThresh    float64 // ATR z-score at or above this forces high_vol
	PanicReturnThresh float64 // short-horizon return below this (negative) => panic_down
	TrendReturnThresh float64 // |short-horizon return| above this => trending
}

func DefaultConfig() Config {
	return Config{
		MinBars: 30,
		ATRWindow: 14,
		BBWindow: 20,
		ReturnWindow: 4,
		HighVolZThresh: 2.0,
		PanicReturnThresh: -0.05,
		TrendReturnThresh: 0.015,
	}
}

// Result is the classifier's output.
type Result struct {
	Regime     Regime  `json:"regime"`
	ATRPct     float64 `json:"atr_pct"`
	BBWidthPct float64 `json:"bb_width_pct"`
	ShortRet   float64 `json:"short_return"`
	VolZ       float64 `json:"vol_z"`
}

// Classify is the primary regime classifier. trimmed reports whether
// the fetcher dropped the newest bar as incomplete.
func Classify(cfg Config, bars []providers.Bar, trimmed bool) Result {
	if trimmed || len(bars) < cfg.MinBars {
		return Result{Regime: Unknown}
	}

	atrPct := atrPercent(bars, cfg.ATRWindow)
	bbPct := bbWidthPercent(bars, cfg.BBWindow)
	shortRet := shortReturn(bars, cfg.ReturnWindow)
	volZ := atrZScore(bars, cfg.ATRWindow)

	res := Result{ATRPct: atrPct, BBWidthPct: bbPct, ShortRet: shortRet, VolZ: volZ}

	// high_vol overrides directional labels when volatility z exceeds
	// the threshold.
	if volZ >= cfg.HighVolZThresh {
		if shortRet <= cfg.PanicReturnThresh {
			res.Regime = PanicDown
			return res
		}
		res.Regime = HighVol
		return res
	}

	switch {
	case shortRet <= cfg.PanicReturnThresh:
		res.Regime = PanicDown
	case shortRet >= cfg.TrendReturnThresh:
		res.Regime = TrendUp
	case shortRet <= -cfg.TrendReturnThresh:
		res.Regime = TrendDown
	default:
		res.Regime = Chop
	}
	return res
}

func trueRange(prev, cur providers.Bar) float64 {
	hl := cur.High - cur.Low
	hc := math.Abs(cur.High - prev.Close)
	lc := math.Abs(cur.Low - prev.Close)
	return math.Max(hl, math.Max(hc, lc))
}

func atrSeries(bars []providers.Bar, window int) []float64 {
	if len(bars) < window+1 {
		return nil
	}
	trs := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		trs = append(trs, trueRange(bars[i-1], bars[i]))
	}
	atrs := make([]float64, 0, len(trs)-window+1)
	for i := window - 1; i < len(trs); i++ {
		sum := 0.0
		for j := i - window + 1; j <= i; j++ {
			sum += trs[j]
		}
		atrs = append(atrs, sum/float64(window))
	}
	return atrs
}

func atrPercent(bars []providers.Bar, window int) float64 {
	atrs := atrSeries(bars, window)
	if len(atrs) == 0 {
		return 0
	}
	last := bars[len(bars)-1].Close
	if last == 0 {
		return 0
	}
	return atrs[len(atrs)-1] / last * 100
}

// atrZScore is the z-score of the latest ATR against the ATR series
// built over the window, a bounded proxy for "how unusual is current
// volatility."
func atrZScore(bars []providers.Bar, window int) float64 {
	atrs := atrSeries(bars, window)
	if len(atrs) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range atrs {
		mean += v
	}
	mean /= float64(len(atrs))
	variance := 0.0
	for _, v := range atrs {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(atrs))
	sd := math.Sqrt(variance)
	if sd == 0 {
		return 0
	}
	return (atrs[len(atrs)-1] - mean) / sd
}

func bbWidthPercent(bars []providers.Bar, window int) float64 {
	if len(bars) < window {
		return 0
	}
	win := bars[len(bars)-window:]
	sum, sumSq := 0.0, 0.0
	for _, b := range win {
		sum += b.Close
		sumSq += b.Close * b.Close
	}
	n := float64(window)
	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	sd := math.Sqrt(variance)
	if mean == 0 {
		return 0
	}
	upper := mean + 2*sd
	lower := mean - 2*sd
	return (upper - lower) / mean * 100
}

// ATRPercent exposes the ATR% computation for a given window so
// callers outside this package (internal/primitives' compression
// baseline) can reuse the exact same statistic instead of
// reimplementing it.
func ATRPercent(bars []providers.Bar, window int) float64 { return atrPercent(bars, window) }

// BBWidthPercent exposes the Bollinger-band-width% computation for a
// given window, see ATRPercent.
func BBWidthPercent(bars []providers.Bar, window int) float64 { return bbWidthPercent(bars, window) }

func shortReturn(bars []providers.Bar, window int) float64 {
	if len(bars) < window+1 {
		return 0
	}
	from := bars[len(bars)-1-window].Close
	to := bars[len(bars)-1].Close
	if from == 0 {
		return 0
	}
	return (to - from) / from
}
