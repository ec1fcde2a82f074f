package providers

import (
	"context"
	"time"
)

// Bar is one OHLCV candle, timestamp-aligned to its timeframe boundary.
type Bar struct {
	Ts     time.Time `json:"ts"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Provider is a read-only public OHLCV source. Implementations (e.g.
// internal/providers/kraken) must treat HTTP 4xx/5xx, TLS failures and
// timeouts as FetchErrors so the fetcher can classify them.
type Provider interface {
	Name() string
	FetchKlines(ctx context.Context, symbol, timeframe string, limit int) ([]Bar, error)
}

// FetchError wraps a provider failure with the classification the
// cooldown store needs.
type FetchError struct {
	Class ErrorClass
	Err   error
}

func (e *FetchError) Error() string { return e.Err.Error() }
func (e *FetchError) Unwrap() error { return e.Err }

// Meta describes which source produced a FetchResult and how stale its
// newest bar is.
type Meta struct {
	Source  string        `json:"source"`
	Age     time.Duration `json:"age"`
	Trimmed bool          `json:"trimmed"`
	Stale   bool          `json:"stale"`
}

// FetchResult is the fetcher's output: ordered bars plus provenance.
type FetchResult struct {
	Bars []Bar
	Meta Meta
}
