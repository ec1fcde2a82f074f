package primitives

import (
	"time"

	"github.com/sawpanic/papertick/internal/ioatomic"
)

const DefaultCompressionThreshold = 0.6

// CompressionState is the persistent {in_compression, entered_ts,
// last_ts} record, owned exclusively by the component
// that calls UpdateCompression.
type CompressionState struct {
	InCompression bool       `json:"in_compression"`
	EnteredTs     *time.Time `json:"entered_ts"`
	LastTs        time.Time  `json:"last_ts"`
}

// CompressionStore persists CompressionState atomically.
type CompressionStore struct {
	path  string
	State CompressionState
}

func LoadCompressionStore(path string) (*CompressionStore, error) {
	cs := &CompressionStore{path: path}
	_ = ioatomic.ReadJSON(path, &cs.State) // zero-value State on fresh start
	return cs, nil
}

func (cs *CompressionStore) Save() error {
	return ioatomic.WriteJSON(cs.path, cs.State)
}

// CompressionResult is the per-tick compression readout.
type CompressionResult struct {
	Score              float64  `json:"score"`
	Compressed         bool     `json:"compressed"`
	TimeInCompressionS *float64 `json:"time_in_compression_s"`
}

// clampRatio bounds current/baseline to [0, 2]
func clampRatio(current, baseline float64) float64 {
	if baseline == 0 {
		return 0
	}
	r := current / baseline
	if r < 0 {
		return 0
	}
	if r > 2 {
		return 2
	}
	return r
}

func componentCompression(ratio float64) float64 {
	if ratio > 1 {
		return 0
	}
	c := 1 - ratio
	if c < 0 {
		return 0
	}
	return c
}

// UpdateCompression computes this tick's compression score from ATR%
// and BB-width% against their longer-window baselines, updates the
// persistent compression state's entered/last timestamps, and returns
// the tick's readout.
func UpdateCompression(cs *CompressionStore, now time.Time, atrPct, atrBaseline, bbPct, bbBaseline, threshold float64) CompressionResult {
	atrRatio := clampRatio(atrPct, atrBaseline)
	bbRatio := clampRatio(bbPct, bbBaseline)
	score := 0.5*componentCompression(atrRatio) + 0.5*componentCompression(bbRatio)
	compressed := score >= threshold

	if compressed && !cs.State.InCompression {
		t := now
		cs.State.EnteredTs = &t
	} else if !compressed {
		cs.State.EnteredTs = nil
	}
	cs.State.InCompression = compressed
	cs.State.LastTs = now

	result := CompressionResult{Score: score, Compressed: compressed}
	if compressed && cs.State.EnteredTs != nil {
		secs := now.Sub(*cs.State.EnteredTs).Seconds()
		if secs < 0 {
			secs = 0
		}
		result.TimeInCompressionS = &secs
	}
	return result
}
