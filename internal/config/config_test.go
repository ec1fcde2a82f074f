package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/papertick/internal/primitives"
	"github.com/sawpanic/papertick/internal/state"
	"github.com/sawpanic/papertick/internal/trading"
)

func TestDefaultReturnsBakedInValues(t *testing.T) {
	cfg := Default()
	assert.Equal(t, []string{"BTCUSD", "ETHUSD"}, cfg.Universe.Symbols)
	assert.Equal(t, "15m", cfg.Universe.Timeframe)
	assert.Equal(t, primitives.DefaultCompressionThreshold, cfg.Compression.Threshold)
}

func TestLoadWithEmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadWithMissingFileIsNonFatal(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesOnlyProvidedKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "papertick.yaml")
	doc := "universe:\n  symbols: [\"SOLUSD\"]\n  timeframe: \"1h\"\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"SOLUSD"}, cfg.Universe.Symbols)
	assert.Equal(t, "1h", cfg.Universe.Timeframe)
	assert.Equal(t, 200, cfg.Universe.BarsLimit) // untouched, stays at default
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "papertick.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestTradingConfigResolveOnlyOverridesPositiveFields(t *testing.T) {
	tc := TradingConfig{StopLossMinConf: 0.5}
	resolved := tc.Resolve()
	assert.Equal(t, 0.5, resolved.StopLossMinConf)
	assert.Equal(t, trading.DefaultConfig().DecayBars, resolved.DecayBars)
}

func TestModeFromEnvDefaultsToPaper(t *testing.T) {
	assert.Equal(t, state.ModePaper, ModeFromEnv(""))
	assert.Equal(t, state.ModePaper, ModeFromEnv("bogus"))
	assert.Equal(t, state.ModeLive, ModeFromEnv(string(state.ModeLive)))
	assert.Equal(t, state.ModeDryRun, ModeFromEnv(string(state.ModeDryRun)))
}
