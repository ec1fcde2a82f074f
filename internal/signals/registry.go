// Package signals fixes the ordered list of named signals, their
// bucket/weight assignment, and normalization method, and produces the
// two parallel outputs: a fixed-length normalized
// vector and a raw registry keyed by name.
//
// Unlike cryptorun's dynamic dispatch-by-string-name fetcher module,
// signal functions are registered at init time into a compile-time
// table: an unknown name is a build-time error,
// not a runtime-skipped signal.
package signals

import (
	"fmt"
	"math"
)

// NormMethod selects how a raw value is mapped into [-1, 1].
type NormMethod int

const (
	// NormZScoreTanh scales (value-center)/scale then squashes with
	// tanh, for unbounded inputs like momentum returns.
	NormZScoreTanh NormMethod = iota
	// NormLinear maps value linearly onto [-1,1] given an explicit
	// [min,max] range, for already-bounded inputs like RSI-style oscillators.
	NormLinear
)

// ComputeFunc is a pure function of Context producing a raw (unnormalized)
// value plus an error if the signal could not be computed (e.g. too few bars).
type ComputeFunc func(Context) (float64, error)

// Definition is one entry in the compile-time registry.
type Definition struct {
	Name string
	Category string // bucket name: momentum, meanrev, flow, positioning, timing, sentiment, onchain_flow
	Weight float64
	Method NormMethod
	Center float64 // NormZScoreTanh center
	Scale float64 // NormZScoreTanh scale heuristic
	Min, Max float64 // NormLinear range
	Compute ComputeFunc
}

func (d Definition) normalize(raw float64) float64 {
	var v float64
	switch d.Method {
	case NormLinear:
		span := d.Max - d.Min
		if span == 0 {
			return 0
		}
		v = 2*(raw-d.Min)/span - 1
	default: // NormZScoreTanh
		scale := d.Scale
		if scale == 0 {
			scale = 1
		}
		v = math.Tanh((raw - d.Center) / scale)
	}
	if v > 1 {
		v = 1
	}
	if v < -1 {
		v = -1
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	return v
}

// Registry is the fixed, ordered list of signal definitions.
type Registry struct {
	defs []Definition
}

// NewRegistry builds a registry from the compile-time definition list
// (see builtin.go). It panics on a duplicate name since that is a
// programming error caught long before any tick runs.
func NewRegistry(defs []Definition) *Registry {
	seen := map[string]bool{}
	for _, d := range defs {
		if seen[d.Name] {
			panic(fmt.Sprintf("signals: duplicate definition %q", d.Name))
		}
		seen[d.Name] = true
	}
	return &Registry{defs: append([]Definition(nil), defs...)}
}

func (r *Registry) Len() int { return len(r.defs) }

func (r *Registry) Definitions() []Definition { return r.defs }

// RawEntry is one signal's raw_registry record.
type RawEntry struct {
	Value    float64 `json:"value"`
	Source   string  `json:"source"`
	Category string  `json:"category"`
	Weight   float64 `json:"weight"`
	Error    string  `json:"error,omitempty"`
}

// Build computes the fixed-length normalized vector and the raw
// registry for ctx. A signal that errors contributes 0.0 to the
// vector and records the error in its raw entry — it never shortens
// the vector.
func (r *Registry) Build(ctx Context) ([]float64, map[string]RawEntry) {
	vector := make([]float64, len(r.defs))
	raw := make(map[string]RawEntry, len(r.defs))

	for i, d := range r.defs {
		value, err := d.Compute(ctx)
		entry := RawEntry{Source: d.Name, Category: d.Category, Weight: d.Weight}
		if err != nil {
			entry.Error = err.Error()
			vector[i] = 0.0
			raw[d.Name] = entry
			continue
		}
		normalized := d.normalize(value)
		entry.Value = normalized
		vector[i] = normalized
		raw[d.Name] = entry
	}
	return vector, raw
}
