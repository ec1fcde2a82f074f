// Package council implements the confidence engine:
// fixed voting buckets aggregated under regime-specific weights and
// masks into a single (direction, confidence) decision. Grounded on
// cryptorun's internal/score/composite/scorer.go (weighted bucket
// aggregation) and internal/domain/regime/weights.go (regime-keyed
// weight tables).
package council

import (
	"math"
	"sort"

	"github.com/sawpanic/papertick/internal/regime"
	"github.com/sawpanic/papertick/internal/signals"
)

// Bucket names are fixed; sentiment and onchain_flow are reserved with
// zero weight until enabled
const (
	BucketMomentum    = "momentum"
	BucketMeanRev     = "meanrev"
	BucketFlow        = "flow"
	BucketPositioning = "positioning"
	BucketTiming      = "timing"
	BucketSentiment   = "sentiment"
	BucketOnchainFlow = "onchain_flow"
)

var allBuckets = []string{BucketMomentum, BucketMeanRev, BucketFlow, BucketPositioning, BucketTiming, BucketSentiment, BucketOnchainFlow}

const (
	deadZone           = 0.05
	defaultNeutralZone = 0.30
)

// BucketResult is one bucket's (dir, conf, score)
type BucketResult struct {
	Dir   int     `json:"dir"`
	Conf  float64 `json:"conf"`
	Score float64 `json:"score"`
}

// Final is the council's aggregate decision.
type Final struct {
	Dir  int     `json:"dir"`
	Conf float64 `json:"conf"`
}

// Gates carries the regime-specific thresholds consumed by the
// entry/exit state machine.
type Gates struct {
	EntryMinConf   float64 `json:"entry_min_conf"`
	ExitMinConf    float64 `json:"exit_min_conf"`
	ReverseMinConf float64 `json:"reverse_min_conf"`
}

// Result is the full council output threaded into the snapshot's
// decision group.
type Result struct {
	Regime  regime.Regime           `json:"regime"`
	Buckets map[string]BucketResult `json:"buckets"`
	Final   Final                   `json:"final"`
	Gates   Gates                   `json:"gates"`
}

// Weights is a regime -> bucket -> weight table.
type Weights map[regime.Regime]map[string]float64

// BucketMask restricts which buckets may vote per regime, PAPER-only.
type BucketMask map[regime.Regime][]string

// Config bundles everything Evaluate needs besides the live signal data.
type Config struct {
	Weights       Weights
	Masks         BucketMask
	GatesByRegime map[regime.Regime]Gates
	NeutralZone   float64
}

func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			regime.TrendUp: {BucketMomentum: 0.40, BucketMeanRev: 0.05, BucketFlow: 0.25, BucketPositioning: 0.15, BucketTiming: 0.15},
			regime.TrendDown: {BucketMomentum: 0.40, BucketMeanRev: 0.05, BucketFlow: 0.25, BucketPositioning: 0.15, BucketTiming: 0.15},
			regime.Chop: {BucketMomentum: 0.10, BucketMeanRev: 0.45, BucketFlow: 0.15, BucketPositioning: 0.15, BucketTiming: 0.15},
			regime.HighVol: {BucketMomentum: 0.20, BucketMeanRev: 0.20, BucketFlow: 0.30, BucketPositioning: 0.10, BucketTiming: 0.20},
			regime.PanicDown: {BucketMomentum: 0.15, BucketMeanRev: 0.10, BucketFlow: 0.40, BucketPositioning: 0.15, BucketTiming: 0.20},
			regime.Unknown: {BucketMomentum: 0.20, BucketMeanRev: 0.20, BucketFlow: 0.20, BucketPositioning: 0.20, BucketTiming: 0.20},
		},
		Masks: BucketMask{
			regime.TrendUp: {BucketMomentum, BucketFlow, BucketPositioning, BucketTiming},
			regime.TrendDown: {BucketMomentum, BucketFlow, BucketPositioning, BucketTiming},
			regime.Chop: {BucketMeanRev, BucketFlow, BucketPositioning, BucketTiming},
			regime.HighVol: allBuckets,
			regime.PanicDown: allBuckets,
			regime.Unknown: allBuckets,
		},
		GatesByRegime: map[regime.Regime]Gates{
			regime.TrendUp: {EntryMinConf: 0.55, ExitMinConf: 0.25, ReverseMinConf: 0.60},
			regime.TrendDown: {EntryMinConf: 0.55, ExitMinConf: 0.25, ReverseMinConf: 0.60},
			regime.Chop: {EntryMinConf: 0.65, ExitMinConf: 0.30, ReverseMinConf: 0.65},
			regime.HighVol: {EntryMinConf: 0.70, ExitMinConf: 0.35, ReverseMinConf: 0.70},
			regime.PanicDown: {EntryMinConf: 0.75, ExitMinConf: 0.40, ReverseMinConf: 0.75},
			regime.Unknown: {EntryMinConf: 0.90, ExitMinConf: 0.50, ReverseMinConf: 0.90},
		},
		NeutralZone: defaultNeutralZone,
	}
}

// Evaluate runs the council for one tick. raw is the signal registry's
// per-name output (internal/signals.Registry.Build); rgm is this
// tick's classified regime; paperMode gates the bucket mask and the
// trend-direction flow filter.
func Evaluate(cfg Config, raw map[string]signals.RawEntry, rgm regime.Regime, paperMode bool) Result {
	buckets := bucketScores(raw)

	weights := cfg.Weights[rgm]
	if weights == nil {
		weights = cfg.Weights[regime.Unknown]
	}
	active := map[string]bool{}
	for name := range weights {
		active[name] = true
	}

	if paperMode {
		mask := cfg.Masks[rgm]
		if mask != nil {
			masked := map[string]bool{}
			for _, b := range mask {
				masked[b] = true
			}
			for name := range active {
				if !masked[name] {
					delete(active, name)
				}
			}
		}

		if (rgm == regime.TrendUp || rgm == regime.TrendDown) && active[BucketFlow] {
			trendDir := 1
			if rgm == regime.TrendDown {
				trendDir = -1
			}
			if flow, ok := buckets[BucketFlow]; ok && flow.Dir != 0 && flow.Dir != trendDir {
				delete(active, BucketFlow)
			}
		}
	}

	weights = renormalize(weights, active)

	finalScore := 0.0
	for name, w := range weights {
		b := buckets[name]
		finalScore += w * float64(b.Dir) * b.Conf
	}

	final := Final{}
	if math.Abs(finalScore) < cfg.NeutralZone {
		final.Dir = 0
		final.Conf = round2(math.Abs(finalScore))
	} else {
		final.Dir = sign(finalScore, 0)
		conf := math.Abs(finalScore)
		if conf > 1 {
			conf = 1
		}
		final.Conf = round2(conf)
	}

	gates := cfg.GatesByRegime[rgm]
	if gates == (Gates{}) {
		gates = cfg.GatesByRegime[regime.Unknown]
	}

	return Result{Regime: rgm, Buckets: buckets, Final: final, Gates: gates}
}

func bucketScores(raw map[string]signals.RawEntry) map[string]BucketResult {
	sums := map[string]float64{}
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names) // deterministic iteration for reproducible sums
	for _, name := range names {
		entry := raw[name]
		if entry.Error != "" {
			continue
		}
		sums[entry.Category] += entry.Weight * entry.Value
	}

	out := map[string]BucketResult{}
	for _, name := range allBuckets {
		score := sums[name]
		out[name] = BucketResult{
			Dir: sign(score, deadZone),
			Conf: math.Min(1, math.Abs(score)),
			Score: score,
		}
	}
	return out
}

func sign(v, deadzone float64) int {
	if math.Abs(v) <= deadzone {
		return 0
	}
	if v > 0 {
		return 1
	}
	return -1
}

func renormalize(weights map[string]float64, active map[string]bool) map[string]float64 {
	total := 0.0
	for name, w := range weights {
		if active[name] {
			total += w
		}
	}
	out := map[string]float64{}
	if total == 0 {
		return out
	}
	for name, w := range weights {
		if active[name] {
			out[name] = w / total
		}
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// EntrySoftening is the PAPER-only defensive-mode threshold relaxation,
// applied in addition to the risk multiplier already scaling size.
const EntrySoftening = 0.07

// EffectiveEntryMinConf applies the softening when riskMult < 1.0.
func EffectiveEntryMinConf(gates Gates, riskMult float64) float64 {
	if riskMult < 1.0 {
		v := gates.EntryMinConf - EntrySoftening
		if v < 0 {
			return 0
		}
		return v
	}
	return gates.EntryMinConf
}
