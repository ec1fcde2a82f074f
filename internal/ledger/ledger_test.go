package ledger

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendCloseUpdatesEquityMultiplicatively(t *testing.T) {
	dir := t.TempDir()
	l := New(filepath.Join(dir, "trades.jsonl"), filepath.Join(dir, "equity_curve.jsonl"))

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, l.AppendClose(CloseEvent{Symbol: "BTC", Timeframe: "1h", Pct: 1.0}, now))
	last, err := l.LastEquity()
	require.NoError(t, err)
	assert.InDelta(t, 1.01, last, 1e-9)

	require.NoError(t, l.AppendClose(CloseEvent{Symbol: "BTC", Timeframe: "1h", Pct: -0.5}, now.Add(time.Hour)))
	last2, err := l.LastEquity()
	require.NoError(t, err)
	assert.InDelta(t, 1.01*0.995, last2, 1e-9)
}

func TestPeakEquityTracksMaximum(t *testing.T) {
	dir := t.TempDir()
	l := New(filepath.Join(dir, "trades.jsonl"), filepath.Join(dir, "equity_curve.jsonl"))
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, l.AppendClose(CloseEvent{Symbol: "BTC", Timeframe: "1h", Pct: 5.0}, now))
	require.NoError(t, l.AppendClose(CloseEvent{Symbol: "BTC", Timeframe: "1h", Pct: -10.0}, now.Add(time.Hour)))

	peak, err := l.PeakEquity()
	require.NoError(t, err)
	assert.InDelta(t, 1.05, peak, 1e-9)

	last, err := l.LastEquity()
	require.NoError(t, err)
	assert.Less(t, last, peak)
}

func TestReadLastClosesReturnsMostRecentN(t *testing.T) {
	dir := t.TempDir()
	l := New(filepath.Join(dir, "trades.jsonl"), filepath.Join(dir, "equity_curve.jsonl"))
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, l.AppendOpen(OpenEvent{Symbol: "BTC", Timeframe: "1h", Dir: 1, EntryPx: 100}))
	for i := 0; i < 5; i++ {
		require.NoError(t, l.AppendClose(CloseEvent{Symbol: "BTC", Timeframe: "1h", Pct: float64(i)}, now))
	}

	closes, err := ReadLastCloses(filepath.Join(dir, "trades.jsonl"), 3)
	require.NoError(t, err)
	require.Len(t, closes, 3)
	assert.Equal(t, 2.0, closes[0].Pct)
	assert.Equal(t, 4.0, closes[2].Pct)
}

func TestReadEquityCurveMissingFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	points, err := ReadEquityCurve(filepath.Join(dir, "nope.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, points)
}
