package primitives

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateCompressionEntersAndTracksDuration(t *testing.T) {
	dir := t.TempDir()
	cs, err := LoadCompressionStore(filepath.Join(dir, "compression.json"))
	require.NoError(t, err)

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r1 := UpdateCompression(cs, t0, 0.1, 1.0, 0.1, 1.0, DefaultCompressionThreshold)
	assert.True(t, r1.Compressed)
	require.NotNil(t, r1.TimeInCompressionS)
	assert.Equal(t, 0.0, *r1.TimeInCompressionS)

	t1 := t0.Add(30 * time.Second)
	r2 := UpdateCompression(cs, t1, 0.1, 1.0, 0.1, 1.0, DefaultCompressionThreshold)
	require.NotNil(t, r2.TimeInCompressionS)
	assert.Equal(t, 30.0, *r2.TimeInCompressionS)
}

func TestUpdateCompressionExitsClearsEnteredTs(t *testing.T) {
	dir := t.TempDir()
	cs, err := LoadCompressionStore(filepath.Join(dir, "compression.json"))
	require.NoError(t, err)

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_ = UpdateCompression(cs, t0, 0.1, 1.0, 0.1, 1.0, DefaultCompressionThreshold)

	t1 := t0.Add(time.Minute)
	r2 := UpdateCompression(cs, t1, 1.0, 1.0, 1.0, 1.0, DefaultCompressionThreshold)
	assert.False(t, r2.Compressed)
	assert.Nil(t, r2.TimeInCompressionS)
	assert.Nil(t, cs.State.EnteredTs)
}

func TestClampRatioBounds(t *testing.T) {
	assert.Equal(t, 0.0, clampRatio(0, 0))
	assert.Equal(t, 2.0, clampRatio(10, 1))
	assert.Equal(t, 0.5, clampRatio(0.5, 1))
}
