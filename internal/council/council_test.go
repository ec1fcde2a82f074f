package council

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sawpanic/papertick/internal/regime"
	"github.com/sawpanic/papertick/internal/signals"
)

func rawEntry(value float64, category string, weight float64) signals.RawEntry {
	return signals.RawEntry{Value: value, Category: category, Weight: weight}
}

func TestEvaluateStrongMomentumYieldsPositiveDir(t *testing.T) {
	cfg := DefaultConfig()
	raw := map[string]signals.RawEntry{
		"momentum_1h": rawEntry(0.9, BucketMomentum, 1.0),
		"flow_x": rawEntry(0.8, BucketFlow, 1.0),
		"timing_x": rawEntry(0.5, BucketTiming, 1.0),
	}

	result := Evaluate(cfg, raw, regime.TrendUp, false)
	assert.Equal(t, 1, result.Final.Dir)
	assert.Greater(t, result.Final.Conf, 0.0)
}

func TestEvaluateNeutralZoneCollapsesSmallScore(t *testing.T) {
	cfg := DefaultConfig()
	raw := map[string]signals.RawEntry{
		"momentum_1h": rawEntry(0.05, BucketMomentum, 1.0),
	}
	result := Evaluate(cfg, raw, regime.TrendUp, false)
	assert.Equal(t, 0, result.Final.Dir)
}

func TestEvaluatePaperModeMasksBuckets(t *testing.T) {
	cfg := DefaultConfig()
	raw := map[string]signals.RawEntry{
		"meanrev_x": rawEntry(0.9, BucketMeanRev, 1.0), // meanrev is masked out in trend_up
	}
	result := Evaluate(cfg, raw, regime.TrendUp, true)
	// meanrev excluded under the trend_up mask -> no contribution -> neutral
	assert.Equal(t, 0, result.Final.Dir)
}

func TestEvaluateTrendExcludesDisagreeingFlow(t *testing.T) {
	cfg := DefaultConfig()
	raw := map[string]signals.RawEntry{
		"momentum_1h": rawEntry(0.9, BucketMomentum, 1.0),
		"flow_x": rawEntry(-0.9, BucketFlow, 1.0), // disagrees with trend_up
	}
	result := Evaluate(cfg, raw, regime.TrendUp, true)
	assert.Equal(t, 1, result.Final.Dir) // momentum alone still carries it positive
}

func TestEffectiveEntryMinConfSoftensUnderDefensiveRisk(t *testing.T) {
	gates := Gates{EntryMinConf: 0.55}
	assert.Equal(t, 0.48, round2(EffectiveEntryMinConf(gates, 0.7)))
	assert.Equal(t, 0.55, EffectiveEntryMinConf(gates, 1.0))
}

func TestBucketScoresDeterministic(t *testing.T) {
	raw := map[string]signals.RawEntry{
		"a": rawEntry(0.5, BucketMomentum, 0.5),
		"b": rawEntry(0.5, BucketMomentum, 0.5),
	}
	b1 := bucketScores(raw)
	b2 := bucketScores(raw)
	assert.Equal(t, b1, b2)
}
