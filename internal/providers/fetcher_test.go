package providers

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name string
	bars []Bar
	err  error
}

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) FetchKlines(_ context.Context, _, _ string, _ int) ([]Bar, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.bars, nil
}

func newStores(t *testing.T) (*CooldownStore, *StickinessStore) {
	dir := t.TempDir()
	cd, err := LoadCooldownStore(filepath.Join(dir, "provider_cooldown.json"))
	require.NoError(t, err)
	st, err := LoadStickinessStore(filepath.Join(dir, "ohlcv_provider_state.json"))
	require.NoError(t, err)
	return cd, st
}

func barsEndingAt(ts time.Time, n int) []Bar {
	bars := make([]Bar, n)
	for i := 0; i < n; i++ {
		bars[i] = Bar{Ts: ts.Add(-time.Duration(n-1-i) * 15 * time.Minute), Close: 100}
	}
	return bars
}

func TestFetcherSuccessTrimsIncompleteBar(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 7, 0, 0, time.UTC) // 7 minutes into the current 15m bar
	closed := now.Truncate(15 * time.Minute).Add(-15 * time.Minute)
	open := now.Truncate(15 * time.Minute)

	bars := append(barsEndingAt(closed, 5), Bar{Ts: open, Close: 101})

	cd, st := newStores(t)
	f := NewFetcher([]Provider{&fakeProvider{name: "kraken", bars: bars}}, cd, st, NewPayloadCache())

	result, err := f.Fetch(context.Background(), "BTC-USD", "15m", 10, now)
	require.NoError(t, err)
	assert.True(t, result.Meta.Trimmed)
	assert.True(t, result.Bars[len(result.Bars)-1].Ts.Equal(closed))
}

func TestFetcherCascadesOnFailure(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	closed := now.Add(-15 * time.Minute)

	cd, st := newStores(t)
	primary := &fakeProvider{name: "kraken", err: NewFetchError(http.StatusTooManyRequests, assertErr("rate limited"))}
	fallback := &fakeProvider{name: "binance", bars: barsEndingAt(closed, 5)}

	f := NewFetcher([]Provider{primary, fallback}, cd, st, NewPayloadCache())

	result, err := f.Fetch(context.Background(), "BTC-USD", "15m", 10, now)
	require.NoError(t, err)
	assert.Equal(t, "binance", result.Meta.Source)

	assert.True(t, cd.InCooldown("kraken", now))
	source, ok := st.Preferred("BTC-USD", "15m")
	require.True(t, ok)
	assert.Equal(t, "binance", source)
}

func TestFetcherPrefersStickySourceWhenNotCooledDown(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	closed := now.Add(-15 * time.Minute)

	cd, st := newStores(t)
	st.Record("BTC-USD", "15m", "binance", now.Add(-time.Hour))

	kraken := &fakeProvider{name: "kraken", bars: barsEndingAt(closed, 5)}
	binanceProvider := &fakeProvider{name: "binance", bars: barsEndingAt(closed, 5)}

	f := NewFetcher([]Provider{kraken, binanceProvider}, cd, st, NewPayloadCache())
	result, err := f.Fetch(context.Background(), "BTC-USD", "15m", 10, now)
	require.NoError(t, err)
	assert.Equal(t, "binance", result.Meta.Source)
}

func TestFetcherAllFailReturnsStaleCacheOrError(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	cd, st := newStores(t)

	failing := &fakeProvider{name: "kraken", err: assertErr("boom")}
	f := NewFetcher([]Provider{failing}, cd, st, NewPayloadCache())

	_, err := f.Fetch(context.Background(), "BTC-USD", "15m", 10, now)
	assert.Error(t, err)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
