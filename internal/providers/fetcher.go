package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// timeframeSeconds maps the fixed set of supported bar intervals to
// their duration in seconds. An unknown timeframe is a configuration
// error caught at startup, not a runtime branch.
var timeframeSeconds = map[string]int64{
	"1m": 60, "5m": 300, "15m": 900, "1h": 3600, "4h": 14400, "1d": 86400,
}

// Fetcher implements the stickiness + cooldown + fallback OHLCV read
// path over a fixed priority-ordered provider list.
type Fetcher struct {
	providers  []Provider
	cooldown   *CooldownStore
	stickiness *StickinessStore
	cache      PayloadCache
	breakers   *breakers
}

func NewFetcher(providerList []Provider, cooldown *CooldownStore, stickiness *StickinessStore, cache PayloadCache) *Fetcher {
	names := make([]string, len(providerList))
	for i, p := range providerList {
		names[i] = p.Name()
	}
	return &Fetcher{
		providers: providerList,
		cooldown: cooldown,
		stickiness: stickiness,
		cache: cache,
		breakers: newBreakers(names),
	}
}

// Fetch runs the five-step stickiness/cooldown/fallback algorithm for
// (symbol, timeframe, limit) at wall-clock now.
func (f *Fetcher) Fetch(ctx context.Context, symbol, timeframe string, limit int, now time.Time) (FetchResult, error) {
	tfSecs, ok := timeframeSeconds[timeframe]
	if !ok {
		return FetchResult{}, fmt.Errorf("providers: unknown timeframe %q", timeframe)
	}

	order := f.orderedProviders(symbol, timeframe, now)

	var lastErr error
	for _, p := range order {
		if f.cooldown.InCooldown(p.Name(), now) {
			continue
		}
		bars, err := f.tryProvider(ctx, p, symbol, timeframe, limit)
		if err != nil {
			lastErr = err
			class := classify(err)
			f.cooldown.SetCooldown(p.Name(), now, class, err.Error(), true)
			if serr := f.cooldown.Save(); serr != nil {
				log.Warn().Err(serr).Msg("providers: save cooldown state failed")
			}
			log.Warn().Err(err).Str("provider", p.Name()).Str("symbol", symbol).Msg("providers: fetch failed, trying next")
			continue
		}

		f.cooldown.ClearCooldown(p.Name())
		if serr := f.cooldown.Save(); serr != nil {
			log.Warn().Err(serr).Msg("providers: save cooldown state failed")
		}
		changed := f.stickiness.Record(symbol, timeframe, p.Name(), now)
		if changed {
			log.Info().Str("symbol", symbol).Str("timeframe", timeframe).Str("source", p.Name()).Msg("providers: stickiness switched")
			if serr := f.stickiness.Save(); serr != nil {
				log.Warn().Err(serr).Msg("providers: save stickiness state failed")
			}
		}

		bars, trimmed := trimIncompleteBar(bars, tfSecs, now)
		result := FetchResult{Bars: bars, Meta: Meta{Source: p.Name(), Trimmed: trimmed}}
		if len(bars) > 0 {
			result.Meta.Age = now.Sub(bars[len(bars)-1].Ts)
		}
		cacheKey := symbol + ":" + timeframe
		f.cache.Set(ctx, cacheKey, result, 10*time.Minute)
		return result, nil
	}

	// every provider failed: fall back to cache
	cacheKey := symbol + ":" + timeframe
	if cached, ok := f.cache.Get(ctx, cacheKey); ok {
		cached.Meta.Stale = true
		return cached, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no providers configured")
	}
	return FetchResult{Meta: Meta{Stale: true}}, fmt.Errorf("providers: all providers failed: %w", lastErr)
}

// orderedProviders puts the sticky source (if any and not cooled down)
// first, then the fixed priority order.
func (f *Fetcher) orderedProviders(symbol, timeframe string, now time.Time) []Provider {
	preferred, ok := f.stickiness.Preferred(symbol, timeframe)
	if !ok {
		return f.providers
	}
	ordered := make([]Provider, 0, len(f.providers))
	var rest []Provider
	for _, p := range f.providers {
		if p.Name() == preferred && !f.cooldown.InCooldown(preferred, now) {
			ordered = append(ordered, p)
		} else {
			rest = append(rest, p)
		}
	}
	return append(ordered, rest...)
}

func (f *Fetcher) tryProvider(ctx context.Context, p Provider, symbol, timeframe string, limit int) ([]Bar, error) {
	return f.breakers.execute(p.Name(), func() ([]Bar, error) {
		return p.FetchKlines(ctx, symbol, timeframe, limit)
	})
}

// trimIncompleteBar drops the newest bar if it has not yet closed:
// last_bar_ts + timeframe_seconds > now.
func trimIncompleteBar(bars []Bar, tfSecs int64, now time.Time) ([]Bar, bool) {
	if len(bars) == 0 {
		return bars, false
	}
	last := bars[len(bars)-1]
	if last.Ts.Add(time.Duration(tfSecs) * time.Second).After(now) {
		return bars[:len(bars)-1], true
	}
	return bars, false
}

// classify maps a provider error to the cooldown backoff curve it
// should use. Only 429 and 403 change the curve; everything else
// (timeout, malformed body, other 4xx/5xx, TLS failure) uses the
// rate-limited curve
func classify(err error) ErrorClass {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Class
	}
	return ErrorRateLimited
}

// NewFetchError classifies a raw HTTP status into the ErrorClass the
// cooldown store expects.
func NewFetchError(statusCode int, err error) error {
	class := ErrorRateLimited
	if statusCode == http.StatusForbidden {
		class = ErrorForbidden
	}
	return &FetchError{Class: class, Err: err}
}
