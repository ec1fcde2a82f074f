// Package risk maps the equity curve's drawdown to a discrete risk
// band and multiplier, with a PAPER-only profit-factor promotion rule.
// Grounded on cryptorun's internal/score/portfolio/aware_scorer_simple.go
// (RiskEnvelopeInterface.GetMaxDrawdown) for the drawdown-as-limiter
// shape and internal/gates/policy_matrix.go's RiskOffDetector/cooldown
// state for the band-promotion/cooldown pattern, adapted from a
// portfolio exposure envelope to a single drawdown band.
package risk

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/papertick/internal/ioatomic"
	"github.com/sawpanic/papertick/internal/ledger"
	"github.com/sawpanic/papertick/internal/state"
)

type Band string

const (
	BandA Band = "A"
	BandB Band = "B"
	BandC Band = "C"
)

var bandMultiplier = map[Band]float64{
	BandA: 1.00,
	BandB: 0.70,
	BandC: 0.50,
}

const (
	MultMin = 0.5
	MultMax = 1.25

	ddBandAThresh = 0.05
	ddBandBThresh = 0.10

	cToBMaxDD     = 0.08
	cToBPFMin     = 1.05
	cToBMinSample = 20
	cToBWindow    = 30

	bToALongDD      = 0.05
	bToALongPFMin   = 1.15
	bToALongMin     = 40
	bToALongWindow  = 50
	bToAShortPFMin  = 1.10
	bToAShortMin    = 15
	bToAShortWindow = 20
)

// Result is the per-tick risk-adapter readout, persisted verbatim.
type Result struct {
	Ts        time.Time `json:"ts"`
	Band      Band      `json:"band"`
	Mult      float64   `json:"mult"`
	Drawdown  float64   `json:"drawdown"`
	Equity    float64   `json:"equity"`
	Peak      float64   `json:"peak"`
	Promoted  bool      `json:"promoted"`
	Rationale string    `json:"rationale"`
}

// Adapter computes and persists the risk-adapter state.
type Adapter struct {
	path    string
	logPath string
	mode    state.Mode
}

func NewAdapter(paths state.Paths) *Adapter {
	return &Adapter{path: paths.RiskAdapterState(), logPath: paths.RiskAdapterLog(), mode: paths.Mode}
}

func ddBand(drawdown float64) Band {
	switch {
	case drawdown < ddBandAThresh:
		return BandA
	case drawdown < ddBandBThresh:
		return BandB
	default:
		return BandC
	}
}

// profitFactor computes gross-gains / gross-losses over closes,
// excluding scratch closes from both the sample count and the
// gains/losses sums. It returns ok=false if fewer than minSamples
// non-scratch closes are available or if there are neither gains nor
// losses; with gains but zero losing closes it returns the gross gains
// as the PF with ok=true.
func profitFactor(closes []ledger.CloseEvent, minSamples int) (pf float64, ok bool) {
	gains, losses := 0.0, 0.0
	samples := 0
	for _, c := range closes {
		if c.IsScratch {
			continue
		}
		samples++
		if c.Pct > 0 {
			gains += c.Pct
		} else {
			losses += -c.Pct
		}
	}
	if samples < minSamples {
		return 0, false
	}
	if losses == 0 {
		if gains == 0 {
			return 0, false
		}
		return gains, true // all wins: PF is unbounded above, report gross gains as a large finite PF
	}
	return gains / losses, true
}

// Evaluate computes this tick's band and multiplier from the equity
// curve, applying the PAPER-only promotion rule.
func (a *Adapter) Evaluate(now time.Time, equity, peak float64, closesAll []ledger.CloseEvent) Result {
	drawdown := 0.0
	if peak > 0 {
		drawdown = 1 - equity/peak
		if drawdown < 0 {
			drawdown = 0
		}
	}

	band := ddBand(drawdown)
	promoted := false
	rationale := "drawdown band"

	if a.mode == state.ModePaper {
		band, promoted, rationale = a.applyPromotion(band, drawdown, closesAll)
	}

	mult := bandMultiplier[band]
	if mult < MultMin {
		mult = MultMin
	}
	if mult > MultMax {
		mult = MultMax
	}

	result := Result{
		Ts: now, Band: band, Mult: mult, Drawdown: drawdown,
		Equity: equity, Peak: peak, Promoted: promoted, Rationale: rationale,
	}
	return result
}

func (a *Adapter) applyPromotion(ddBandResult Band, drawdown float64, closesAll []ledger.CloseEvent) (Band, bool, string) {
	band := ddBandResult

	if band == BandC {
		if drawdown < cToBMaxDD {
			window := tailWindow(closesAll, cToBWindow)
			pf, ok := profitFactor(window, cToBMinSample)
			switch {
			case !ok && len(closesAll) == 0:
				// No PF data at all: fall back to DD-only promotion.
				return BandB, true, "C->B: no PF data, DD-only fallback"
			case ok && pf >= cToBPFMin:
				return BandB, true, "C->B: PF gate satisfied"
			}
		}
		return band, false, "drawdown band (C, promotion not satisfied)"
	}

	if band == BandB {
		if drawdown < bToALongDD {
			longWindow := tailWindow(closesAll, bToALongWindow)
			longPF, longOK := profitFactor(longWindow, bToALongMin)
			shortWindow := tailWindow(closesAll, bToAShortWindow)
			shortPF, shortOK := profitFactor(shortWindow, bToAShortMin)
			if longOK && shortOK && longPF >= bToALongPFMin && shortPF >= bToAShortPFMin {
				return BandA, true, "B->A: long+short PF gates satisfied"
			}
		}
		return band, false, "drawdown band (B, promotion not satisfied)"
	}

	return band, false, "drawdown band"
}

func tailWindow(closes []ledger.CloseEvent, n int) []ledger.CloseEvent {
	if len(closes) <= n {
		return closes
	}
	return closes[len(closes)-n:]
}

// Persist writes the risk-adapter state file and appends the
// rationale line to risk_adapter.jsonl.
func (a *Adapter) Persist(r Result) error {
	if err := ioatomic.WriteJSON(a.path, r); err != nil {
		log.Error().Err(err).Msg("risk: persist state failed")
		return err
	}
	if err := ioatomic.AppendJSONL(a.logPath, r); err != nil {
		log.Error().Err(err).Msg("risk: append rationale log failed")
		return err
	}
	return nil
}
