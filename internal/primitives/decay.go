package primitives

import (
	"math"
	"time"
)

// Decay computes the exponential-decay view of the last confirmed
// value of a key, independent of whether the current tick produced a
// fresh observation. refreshed reports whether this
// tick supplied a new observation (age == 0).
type Decay struct {
	Value     float64 `json:"value"`
	AgeS      float64 `json:"age_s"`
	Refreshed bool    `json:"refreshed"`
}

// ComputeDecay decays lastValue observed at lastTs to now using
// half-life halfLifeSeconds: v_prev * 0.5^(age_s / T½).
func ComputeDecay(lastValue float64, lastTs, now time.Time, halfLifeSeconds float64) Decay {
	age := now.Sub(lastTs).Seconds()
	if age < 0 {
		age = 0
	}
	refreshed := age == 0
	if halfLifeSeconds <= 0 {
		return Decay{Value: lastValue, AgeS: age, Refreshed: refreshed}
	}
	decayed := lastValue * math.Pow(0.5, age/halfLifeSeconds)
	return Decay{Value: decayed, AgeS: age, Refreshed: refreshed}
}
