package trading

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/papertick/internal/council"
	"github.com/sawpanic/papertick/internal/regime"
)

var gates = council.Gates{EntryMinConf: 0.55, ExitMinConf: 0.25, ReverseMinConf: 0.60}

func TestStepOpensFromFlatWhenEligible(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	final := council.Final{Dir: 1, Conf: 0.70}

	d := Step(cfg, nil, "BTC", "1h", regime.TrendUp, final, gates, 1.0, "A", 100, now)
	require.True(t, d.Opened)
	require.NotNil(t, d.Position)
	assert.Equal(t, 1, d.Position.Dir)
	assert.Equal(t, 100.0, d.Position.EntryPx)
	require.NotNil(t, d.OpenEvent)
}

func TestStepDoesNotOpenBelowEntryMinConf(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	final := council.Final{Dir: 1, Conf: 0.40}

	d := Step(cfg, nil, "BTC", "1h", regime.TrendUp, final, gates, 1.0, "A", 100, now)
	assert.False(t, d.Opened)
	assert.Nil(t, d.Position)
}

func TestStepHoldsAndIncrementsBarsOpen(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	pos := &Position{Dir: 1, EntryPx: 100, EntryTs: now, BarsOpen: 0, Regime: regime.TrendUp}
	final := council.Final{Dir: 1, Conf: 0.50} // below TP conf, above exit_min_conf, not counter-dir

	d := Step(cfg, pos, "BTC", "1h", regime.TrendUp, final, gates, 1.0, "A", 100.03, now)
	assert.False(t, d.Closed)
	require.NotNil(t, d.Position)
	assert.Equal(t, 1, d.Position.BarsOpen)
}

func TestStepTakeProfitClosesWithIsScratchFalse(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	pos := &Position{Dir: 1, EntryPx: 100, EntryTs: now, BarsOpen: 1, Regime: regime.TrendUp}
	final := council.Final{Dir: 1, Conf: 0.85} // same-dir, very high conf

	priceAfterMove := 100 * 1.003 // +0.3%
	d := Step(cfg, pos, "BTC", "1h", regime.TrendUp, final, gates, 1.0, "A", priceAfterMove, now)
	require.True(t, d.Closed)
	assert.Equal(t, ExitTakeProfit, d.ExitReason)
	require.NotNil(t, d.CloseEvent)
	assert.False(t, d.CloseEvent.IsScratch)
	assert.InDelta(t, 0.3-2*2.0/100-1.0/100, d.CloseEvent.Pct, 1e-9) // default 2 bps taker fee, 1 bp slippage
}

func TestStepScratchCloseBelowThreshold(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	pos := &Position{Dir: 1, EntryPx: 100, EntryTs: now, BarsOpen: 1, Regime: regime.TrendUp}
	final := council.Final{Dir: 1, Conf: 0.85}

	priceAfterMove := 100 * 1.0003 // +0.03%, well under costs -> scratch
	d := Step(cfg, pos, "BTC", "1h", regime.TrendUp, final, gates, 1.0, "A", priceAfterMove, now)
	require.True(t, d.Closed)
	require.NotNil(t, d.CloseEvent)
	assert.True(t, d.CloseEvent.IsScratch)
}

func TestStepTimeoutExitsAfterDecayBars(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	pos := &Position{Dir: 1, EntryPx: 100, EntryTs: now, BarsOpen: cfg.DecayBars, Regime: regime.TrendUp}
	final := council.Final{Dir: 1, Conf: 0.50}

	d := Step(cfg, pos, "BTC", "1h", regime.TrendUp, final, gates, 1.0, "A", 100, now)
	require.True(t, d.Closed)
	assert.Equal(t, ExitTimeout, d.ExitReason)
}

func TestStepFlipOnReverseSharesExitTickTimestamp(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	pos := &Position{Dir: 1, EntryPx: 100, EntryTs: now.Add(-time.Hour), BarsOpen: 1, Regime: regime.TrendUp}
	final := council.Final{Dir: -1, Conf: 0.65} // counter-dir, conf >= reverse_min_conf but < stop-loss conf

	d := Step(cfg, pos, "BTC", "1h", regime.TrendUp, final, gates, 1.0, "A", 100, now)
	require.True(t, d.Closed)
	assert.Equal(t, ExitReverse, d.ExitReason)
	require.True(t, d.Flipped)
	require.NotNil(t, d.Position)
	assert.Equal(t, -1, d.Position.Dir)
	assert.Equal(t, now, d.Position.EntryTs)
	assert.Equal(t, now, d.CloseEvent.Ts)
}

func TestStepStopLossTakesPriorityOverReverse(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	pos := &Position{Dir: 1, EntryPx: 100, EntryTs: now, BarsOpen: 1, Regime: regime.TrendUp}
	final := council.Final{Dir: -1, Conf: 0.90} // counter-dir, high enough for stop-loss

	d := Step(cfg, pos, "BTC", "1h", regime.TrendUp, final, gates, 1.0, "A", 100, now)
	require.True(t, d.Closed)
	assert.Equal(t, ExitStopLoss, d.ExitReason)
}

func TestStepDropExitsWhenConfidenceBelowExitMinConf(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	pos := &Position{Dir: 1, EntryPx: 100, EntryTs: now, BarsOpen: 1, Regime: regime.TrendUp}
	final := council.Final{Dir: 1, Conf: 0.10} // below exit_min_conf 0.25

	d := Step(cfg, pos, "BTC", "1h", regime.TrendUp, final, gates, 1.0, "A", 100, now)
	require.True(t, d.Closed)
	assert.Equal(t, ExitDrop, d.ExitReason)
}

func TestStepIneligibleWhenOpensDisallowed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowOpens = false
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	final := council.Final{Dir: 1, Conf: 0.90}

	d := Step(cfg, nil, "BTC", "1h", regime.TrendUp, final, gates, 1.0, "A", 100, now)
	assert.False(t, d.Opened)
	assert.False(t, d.Eligible) // AllowOpens=false makes it ineligible too, per this design
}
