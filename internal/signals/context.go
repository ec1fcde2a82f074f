package signals

import "github.com/sawpanic/papertick/internal/providers"

// Context is the structured record every signal function receives.
// Signals are pure functions of Context — no network or disk access —
// so the pipeline can compute the full vector deterministically from
// one bar's inputs.
type Context struct {
	Symbol    string
	Timeframe string
	Bars      []providers.Bar // OHLCV window, oldest first, newest bar already trimmed if incomplete
	Derivs    DerivsContext
	Micro     MicrostructureContext
	Cross     CrossAssetContext
}

// DerivsContext carries perpetual-market derivatives data a signal may
// read (funding, open interest). Zero values mean "not available" and
// signals must treat that as a computation error, not a zero reading.
type DerivsContext struct {
	Available         bool
	FundingRate       float64
	FundingZScore     float64
	OpenInterestDelta float64
}

// MicrostructureContext carries book-level data.
type MicrostructureContext struct {
	Available bool
	SpreadBps float64
	DepthUSD  float64
	VADR      float64 // volume-adjusted daily range
}

// CrossAssetContext carries a snapshot of correlated-market signals
// (e.g. BTC dominance, broad-market beta) for positioning-bucket signals.
type CrossAssetContext struct {
	Available  bool
	BetaToBTC  float64
	Dispersion float64
}

func (c Context) latest() (providers.Bar, bool) {
	if len(c.Bars) == 0 {
		return providers.Bar{}, false
	}
	return c.Bars[len(c.Bars)-1], true
}
