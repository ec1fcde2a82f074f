package signals

import "fmt"

// BuiltinDefinitions is the compile-time registry this repo ships with:
// signals for the five voting buckets (momentum, meanrev, flow,
// positioning, timing). The reserved zero-weight buckets (sentiment,
// onchain_flow) have no signals here.
// Weights here are the per-signal contribution inside its bucket;
// council.go applies the regime-specific bucket weights on top.
func BuiltinDefinitions() []Definition {
	return []Definition{
		{
			Name: "momentum_1h", Category: "momentum", Weight: 0.6,
			Method: NormZScoreTanh, Center: 0, Scale: 0.02,
			Compute: func(c Context) (float64, error) { return returnOver(c.Bars, 4) },
		},
		{
			Name: "momentum_4h", Category: "momentum", Weight: 0.4,
			Method: NormZScoreTanh, Center: 0, Scale: 0.05,
			Compute: func(c Context) (float64, error) { return returnOver(c.Bars, 16) },
		},
		{
			Name: "meanrev_zscore", Category: "meanrev", Weight: 1.0,
			Method: NormLinear, Min: -3, Max: 3,
			Compute: computeMeanRevZScore,
		},
		{
			Name: "flow_volume_delta", Category: "flow", Weight: 0.5,
			Method: NormZScoreTanh, Center: 0, Scale: 0.75,
			Compute: computeVolumeDelta,
		},
		{
			Name: "flow_funding_divergence", Category: "flow", Weight: 0.5,
			Method: NormZScoreTanh, Center: 0, Scale: 2.0,
			Compute: computeFundingDivergence,
		},
		{
			Name: "positioning_beta", Category: "positioning", Weight: 1.0,
			Method: NormLinear, Min: -2, Max: 2,
			Compute: computeBeta,
		},
		{
			Name: "timing_acceleration", Category: "timing", Weight: 1.0,
			Method: NormZScoreTanh, Center: 0, Scale: 0.01,
			Compute: computeAcceleration,
		},
	}
}

func computeMeanRevZScore(c Context) (float64, error) {
	const window = 20
	series := closes(c.Bars)
	if len(series) < window+1 {
		return 0, fmt.Errorf("signals: meanrev needs %d bars, have %d", window+1, len(series))
	}
	win := tail(series[:len(series)-1], window)
	mean := sma(win)
	sd := stddev(win)
	if sd == 0 {
		return 0, fmt.Errorf("signals: meanrev zero variance window")
	}
	last, _ := c.latest()
	// Positive z-score (price above mean) votes mean-reversion *down*,
	// hence the sign flip: meanrev is a fade signal, not a trend signal.
	return -(last.Close - mean) / sd, nil
}

func computeVolumeDelta(c Context) (float64, error) {
	const window = 20
	if len(c.Bars) < window+1 {
		return 0, fmt.Errorf("signals: volume delta needs %d bars, have %d", window+1, len(c.Bars))
	}
	vols := make([]float64, 0, window)
	for _, b := range tail(c.Bars[:len(c.Bars)-1], window) {
		vols = append(vols, b.Volume)
	}
	avg := sma(vols)
	if avg == 0 {
		return 0, fmt.Errorf("signals: zero average volume")
	}
	last, _ := c.latest()
	return (last.Volume - avg) / avg, nil
}

func computeFundingDivergence(c Context) (float64, error) {
	if !c.Derivs.Available {
		return 0, fmt.Errorf("signals: derivatives data unavailable")
	}
	return c.Derivs.FundingZScore, nil
}

func computeBeta(c Context) (float64, error) {
	if !c.Cross.Available {
		return 0, fmt.Errorf("signals: cross-asset data unavailable")
	}
	return c.Cross.BetaToBTC, nil
}

func computeAcceleration(c Context) (float64, error) {
	r1, err := returnOver(c.Bars, 1)
	if err != nil {
		return 0, err
	}
	r2, err := returnOver(c.Bars[:len(c.Bars)-1], 1)
	if err != nil {
		return 0, err
	}
	return r1 - r2, nil
}
