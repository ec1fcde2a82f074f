package risk

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sawpanic/papertick/internal/ledger"
	"github.com/sawpanic/papertick/internal/state"
)

func newTestAdapter(t *testing.T, mode state.Mode) *Adapter {
	t.Helper()
	paths := state.NewPaths(t.TempDir(), mode)
	return NewAdapter(paths)
}

func closesWithPct(pcts...float64) []ledger.CloseEvent {
	out := make([]ledger.CloseEvent, len(pcts))
	for i, p := range pcts {
		out[i] = ledger.CloseEvent{Pct: p}
	}
	return out
}

func TestEvaluateBandFromDrawdownNoPromotionOutsidePaper(t *testing.T) {
	a := newTestAdapter(t, state.ModeLive)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	r := a.Evaluate(now, 0.93, 1.0, nil) // DD = 7% -> band B
	assert.Equal(t, BandB, r.Band)
	assert.Equal(t, 0.70, r.Mult)
	assert.False(t, r.Promoted)
}

func TestEvaluateClampsMultToRange(t *testing.T) {
	a := newTestAdapter(t, state.ModeLive)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := a.Evaluate(now, 0.50, 1.0, nil) // DD = 50% -> band C
	assert.Equal(t, BandC, r.Band)
	assert.Equal(t, 0.50, r.Mult)
}

func TestApplyPromotionCtoBWithPFGateSatisfied(t *testing.T) {
	a := newTestAdapter(t, state.ModePaper)

	pcts := make([]float64, 0, 25)
	for i := 0; i < 15; i++ {
		pcts = append(pcts, 1.0)
	}
	for i := 0; i < 10; i++ {
		pcts = append(pcts, -0.5)
	}
	closes := closesWithPct(pcts...)

	band, promoted, rationale := a.applyPromotion(BandC, 0.03, closes) // DD=3% < 8% ceiling
	assert.Equal(t, BandB, band)
	assert.True(t, promoted)
	assert.Contains(t, rationale, "PF gate satisfied")
}

func TestApplyPromotionCtoBDeniedWhenDDTooDeep(t *testing.T) {
	a := newTestAdapter(t, state.ModePaper)
	pcts := make([]float64, 0, 25)
	for i := 0; i < 15; i++ {
		pcts = append(pcts, 1.0)
	}
	for i := 0; i < 10; i++ {
		pcts = append(pcts, -0.5)
	}
	closes := closesWithPct(pcts...)

	band, promoted, _ := a.applyPromotion(BandC, 0.15, closes) // DD=15% exceeds the 8% promotion ceiling
	assert.Equal(t, BandC, band)
	assert.False(t, promoted)
}

func TestEvaluateFallsBackToDDOnlyWhenNoPFDataAtAll(t *testing.T) {
	a := newTestAdapter(t, state.ModePaper)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// DD = 7.5%, base band B (not C), so to exercise the C->B path we
	// need a drawdown that lands in C territory but under the 8% promo
	// ceiling -- impossible since C starts at 10%. The fallback instead
	// is exercised directly against applyPromotion's C branch logic.
	band, promoted, rationale := a.applyPromotion(BandC, 0.03, nil)
	assert.Equal(t, BandB, band)
	assert.True(t, promoted)
	assert.Contains(t, rationale, "no PF data")
}

func TestEvaluateDoesNotPromoteOnInsufficientSamples(t *testing.T) {
	a := newTestAdapter(t, state.ModePaper)
	closes := closesWithPct(1.0, 1.0, 1.0) // only 3 samples, below the 20-sample C->B floor
	band, promoted, _ := a.applyPromotion(BandC, 0.03, closes)
	assert.Equal(t, BandC, band)
	assert.False(t, promoted)
}

func TestProfitFactorRequiresMinSamples(t *testing.T) {
	_, ok := profitFactor(closesWithPct(1, 2, 3), 10)
	assert.False(t, ok)
}

func TestRiskAdapterPersistWritesStateAndLog(t *testing.T) {
	dir := t.TempDir()
	paths := state.NewPaths(dir, state.ModePaper)
	a := NewAdapter(paths)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	r := a.Evaluate(now, 1.0, 1.0, nil)
	assert.NoError(t, a.Persist(r))
	assert.FileExists(t, filepath.Join(dir, "risk_adapter.json"))
	assert.FileExists(t, filepath.Join(dir, "risk_adapter.jsonl"))
}
