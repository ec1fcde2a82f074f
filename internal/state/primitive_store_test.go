package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimitiveStoreFreshStartIsEmpty(t *testing.T) {
	ps, err := LoadPrimitiveStore(filepath.Join(t.TempDir(), "primitive_state.json"))
	require.NoError(t, err)

	_, ok := ps.Get("confidence")
	assert.False(t, ok)
}

func TestPrimitiveStorePersistsAcrossLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "primitive_state.json")

	ps, err := LoadPrimitiveStore(path)
	require.NoError(t, err)

	ts := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	ps.Put("pci", ts, 0.5)
	require.NoError(t, ps.Save())

	reloaded, err := LoadPrimitiveStore(path)
	require.NoError(t, err)

	e, ok := reloaded.Get("pci")
	require.True(t, ok)
	assert.Equal(t, 0.5, e.Value)
	assert.True(t, e.Ts.Equal(ts))
}
