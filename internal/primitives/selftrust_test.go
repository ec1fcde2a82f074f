package primitives

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTradesLog(t *testing.T, path string, lines []string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	for _, l := range lines {
		_, err := f.WriteString(l + "\n")
		require.NoError(t, err)
	}
}

func TestSelfTrustScoreNullUntilFirstClose(t *testing.T) {
	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.jsonl")
	writeTradesLog(t, tradesPath, []string{
		`{"type":"open","symbol":"BTC","timeframe":"1h","confidence":0.8}`,
	})

	st, err := LoadSelfTrustStore(filepath.Join(dir, "self_trust.json"))
	require.NoError(t, err)
	require.NoError(t, st.Replay(tradesPath))

	_, ok := st.Score()
	assert.False(t, ok)
}

func TestSelfTrustScoreUpdatesOnClose(t *testing.T) {
	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.jsonl")
	writeTradesLog(t, tradesPath, []string{
		`{"type":"open","symbol":"BTC","timeframe":"1h","confidence":0.9}`,
		`{"type":"close","symbol":"BTC","timeframe":"1h","pct":-0.01}`,
	})

	st, err := LoadSelfTrustStore(filepath.Join(dir, "self_trust.json"))
	require.NoError(t, err)
	require.NoError(t, st.Replay(tradesPath))

	score, ok := st.Score()
	require.True(t, ok)
	// conf=0.9, outcome=0: brier=0.81, overconfidence indicator=1 (conf
	// >= 0.60 and wrong), so raw score is 1-0.9-0.5 = -0.4, clamped to 0.
	assert.Equal(t, 0.0, score)
}

func TestSelfTrustOrphanCloseFallsBackToHalfConfidence(t *testing.T) {
	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.jsonl")
	writeTradesLog(t, tradesPath, []string{
		`{"type":"close","symbol":"ETH","timeframe":"1h","pct":0.02}`,
	})

	st, err := LoadSelfTrustStore(filepath.Join(dir, "self_trust.json"))
	require.NoError(t, err)
	require.NoError(t, st.Replay(tradesPath))

	score, ok := st.Score()
	require.True(t, ok)
	// outcome=1, conf=0.5 fallback -> brier = 0.25, overconf = 0
	assert.InDelta(t, 0.5, score, 0.01)
}

func TestSelfTrustReplayIsIncrementalViaOffsetCursor(t *testing.T) {
	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.jsonl")
	writeTradesLog(t, tradesPath, []string{
		`{"type":"open","symbol":"BTC","timeframe":"1h","confidence":0.6}`,
		`{"type":"close","symbol":"BTC","timeframe":"1h","pct":0.01}`,
	})

	st, err := LoadSelfTrustStore(filepath.Join(dir, "self_trust.json"))
	require.NoError(t, err)
	require.NoError(t, st.Replay(tradesPath))
	require.EqualValues(t, 1, st.State.N)

	f, err := os.OpenFile(tradesPath, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"type":"open","symbol":"ETH","timeframe":"1h","confidence":0.4}` + "\n")
	require.NoError(t, err)
	_, err = f.WriteString(`{"type":"close","symbol":"ETH","timeframe":"1h","pct":-0.01}` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, st.Replay(tradesPath))
	require.EqualValues(t, 2, st.State.N)
}
