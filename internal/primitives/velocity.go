// Package primitives computes the derived scalars:
// velocity, exponential decay, compression, opportunity density, and
// self-trust. Grounded on cryptorun's internal/domain/indicators and
// internal/score/calibration packages for the general shape (rolling
// state object + pure compute function), adapted to this engine's exact
// formulas.
package primitives

import (
	"time"

	"github.com/sawpanic/papertick/internal/state"
)

// Velocity computes the per-second rate of change of a tracked scalar
// given its previous primitive-state entry and the current
// observation, then unconditionally reseeds the store with the current
// observation.
//
// Returns (velocity, ok); ok is false when there is no prior entry, or
// tsCur does not strictly advance past the prior ts — a null velocity,
// not an error.
func Velocity(store *state.PrimitiveStore, key string, tsCur time.Time, vCur float64) (float64, bool) {
	prev, hadPrev := store.Get(key)
	store.Put(key, tsCur, vCur)

	if !hadPrev {
		return 0, false
	}
	if !tsCur.After(prev.Ts) {
		return 0, false
	}
	dt := tsCur.Sub(prev.Ts).Seconds()
	if dt <= 0 {
		return 0, false
	}
	return (vCur - prev.Value) / dt, true
}
