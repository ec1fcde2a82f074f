package trading

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionStoreGetReturnsNilWhenFlat(t *testing.T) {
	ps, err := LoadPositionStore(filepath.Join(t.TempDir(), "positions.json"))
	require.NoError(t, err)
	assert.Nil(t, ps.Get("BTCUSD", "15m"))
}

func TestPositionStoreSetThenGetRoundTrips(t *testing.T) {
	ps, err := LoadPositionStore(filepath.Join(t.TempDir(), "positions.json"))
	require.NoError(t, err)

	pos := &Position{Dir: 1, EntryPx: 100}
	ps.Set("BTCUSD", "15m", pos)

	got := ps.Get("BTCUSD", "15m")
	require.NotNil(t, got)
	assert.Equal(t, 1, got.Dir)
	assert.Equal(t, 100.0, got.EntryPx)
}

func TestPositionStoreSetNilClearsPosition(t *testing.T) {
	ps, err := LoadPositionStore(filepath.Join(t.TempDir(), "positions.json"))
	require.NoError(t, err)

	ps.Set("BTCUSD", "15m", &Position{Dir: 1, EntryPx: 100})
	ps.Set("BTCUSD", "15m", nil)
	assert.Nil(t, ps.Get("BTCUSD", "15m"))
}

func TestPositionStorePersistsAcrossLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "positions.json")
	ps, err := LoadPositionStore(path)
	require.NoError(t, err)
	ps.Set("ETHUSD", "1h", &Position{Dir: -1, EntryPx: 2500})
	require.NoError(t, ps.Save())

	reloaded, err := LoadPositionStore(path)
	require.NoError(t, err)
	got := reloaded.Get("ETHUSD", "1h")
	require.NotNil(t, got)
	assert.Equal(t, -1, got.Dir)
	assert.Equal(t, 2500.0, got.EntryPx)
}

func TestPositionStoreKeysDistinguishByTimeframe(t *testing.T) {
	ps, err := LoadPositionStore(filepath.Join(t.TempDir(), "positions.json"))
	require.NoError(t, err)
	ps.Set("BTCUSD", "15m", &Position{Dir: 1})
	assert.Nil(t, ps.Get("BTCUSD", "1h"))
}
