package primitives

import (
	"math"
	"time"

	"github.com/sawpanic/papertick/internal/ioatomic"
	"github.com/sawpanic/papertick/internal/regime"
)

const (
	defaultHalfLifeMinutes = 120.0
	alphaMin               = 0.01
	alphaMax               = 0.5
)

// RegimeCounters tracks one regime's raw and EWMA eligibility rate.
type RegimeCounters struct {
	Ticks        int64      `json:"ticks"`
	Eligible     int64      `json:"eligible"`
	TicksEWMA    float64    `json:"ticks_ewma"`
	EligibleEWMA float64    `json:"eligible_ewma"`
	LastTs       *time.Time `json:"last_ts"`
}

// OpportunityState is the persistent per-regime + global density
// record
type OpportunityState struct {
	ByRegime       map[regime.Regime]RegimeCounters `json:"by_regime"`
	GlobalTicks    int64                            `json:"global_ticks"`
	GlobalEligible int64                            `json:"global_eligible"`
	GlobalDensity  float64                          `json:"global_density"`
	DensityFloors  map[regime.Regime]float64        `json:"density_floors"`
}

func newOpportunityState() OpportunityState {
	return OpportunityState{
		ByRegime: map[regime.Regime]RegimeCounters{},
		DensityFloors: map[regime.Regime]float64{
			regime.TrendUp: 0.10,
			regime.TrendDown: 0.10,
			regime.Chop: 0.03,
			regime.HighVol: 0.05,
			regime.PanicDown: 0.02,
			regime.Unknown: 0.0,
		},
	}
}

type OpportunityStore struct {
	path  string
	State OpportunityState
}

func LoadOpportunityStore(path string) (*OpportunityStore, error) {
	os := &OpportunityStore{path: path, State: newOpportunityState()}
	if err := ioatomic.ReadJSON(path, &os.State); err != nil {
		os.State = newOpportunityState()
	}
	if os.State.ByRegime == nil {
		os.State.ByRegime = map[regime.Regime]RegimeCounters{}
	}
	if os.State.DensityFloors == nil {
		os.State.DensityFloors = newOpportunityState().DensityFloors
	}
	return os, nil
}

func (os *OpportunityStore) Save() error {
	return ioatomic.WriteJSON(os.path, os.State)
}

// timeAwareAlpha computes alpha = 1 - exp(-Δt / T½), clamped to
// [0.01, 0.5]
func timeAwareAlpha(dt time.Duration, halfLifeMinutes float64) float64 {
	if halfLifeMinutes <= 0 {
		halfLifeMinutes = defaultHalfLifeMinutes
	}
	deltaMinutes := dt.Minutes()
	if deltaMinutes < 0 {
		deltaMinutes = 0
	}
	alpha := 1 - math.Exp(-deltaMinutes/halfLifeMinutes)
	if alpha < alphaMin {
		alpha = alphaMin
	}
	if alpha > alphaMax {
		alpha = alphaMax
	}
	return alpha
}

func ewmaUpdate(prev, observation, alpha float64) float64 {
	return alpha*observation + (1-alpha)*prev
}

// Record updates the opportunity density state for this tick's regime
// and eligibility outcome, returning the per-regime and global density.
func (os *OpportunityStore) Record(rgm regime.Regime, eligible bool, now time.Time, halfLifeMinutes float64) (regimeDensity, globalDensity float64) {
	rc := os.State.ByRegime[rgm]
	rc.Ticks++
	if eligible {
		rc.Eligible++
	}

	eligibleObs := 0.0
	if eligible {
		eligibleObs = 1.0
	}

	if rc.LastTs == nil {
		rc.TicksEWMA = 1
		rc.EligibleEWMA = eligibleObs
	} else {
		alpha := timeAwareAlpha(now.Sub(*rc.LastTs), halfLifeMinutes)
		rc.TicksEWMA = ewmaUpdate(rc.TicksEWMA, 1, alpha)
		rc.EligibleEWMA = ewmaUpdate(rc.EligibleEWMA, eligibleObs, alpha)
	}
	t := now
	rc.LastTs = &t
	os.State.ByRegime[rgm] = rc

	os.State.GlobalTicks++
	if eligible {
		os.State.GlobalEligible++
	}
	if os.State.GlobalTicks > 0 {
		os.State.GlobalDensity = float64(os.State.GlobalEligible) / float64(os.State.GlobalTicks)
	}

	regimeDensity = clamp01(rc.EligibleEWMA / math.Max(rc.TicksEWMA, 1e-9))
	return regimeDensity, clamp01(os.State.GlobalDensity)
}

// BelowFloor reports whether rgm's current density is under its
// configured floor — downstream policy may use this to widen filters.
func (os *OpportunityStore) BelowFloor(rgm regime.Regime, density float64) bool {
	floor, ok := os.State.DensityFloors[rgm]
	if !ok {
		return false
	}
	return density < floor
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
