package reflect

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/papertick/internal/ledger"
	"github.com/sawpanic/papertick/internal/state"
)

func TestBuildPacketWritesUnderReflectionDir(t *testing.T) {
	dir := t.TempDir()
	paths := state.NewPaths(dir, state.ModePaper)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	closes := []ledger.CloseEvent{{Pct: 0.5}}
	pkt, err := BuildPacket(paths, now, "BTCUSD", "15m", nil, closes, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "BTCUSD", pkt.Symbol)
	assert.Equal(t, "15m", pkt.Timeframe)
	assert.Equal(t, closes, pkt.RecentCloses)
	assert.DirExists(t, paths.ReflectionDir())
}

func TestBuildPacketNameIncludesSymbolTimeframeAndTimestamp(t *testing.T) {
	dir := t.TempDir()
	paths := state.NewPaths(dir, state.ModePaper)
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	_, err := BuildPacket(paths, now, "ETHUSD", "1h", nil, nil, nil, nil)
	require.NoError(t, err)

	entries, err := os.ReadDir(paths.ReflectionDir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ETHUSD_1h_20260304T050607.json", entries[0].Name())
}
