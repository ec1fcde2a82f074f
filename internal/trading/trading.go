// Package trading implements the entry/exit state machine: a
// flat/long/short position per (symbol, timeframe) driven by the
// council's (dir, conf) decision, the classified regime, and the risk
// adapter's multiplier. Grounded on cryptorun's
// internal/score/portfolio/aware_scorer_simple.go (approve/size/reject
// decision shape) and tests/unit/premove/portfolio_test.go for the
// open/hold/close state-transition shape, adapted to a single-
// position-per-key machine instead of a multi-asset portfolio.
package trading

import (
	"time"

	"github.com/sawpanic/papertick/internal/council"
	"github.com/sawpanic/papertick/internal/ledger"
	"github.com/sawpanic/papertick/internal/regime"
)

// ExitReason enumerates the fixed exit priority. The order below is
// also the evaluation order — see evaluateExit.
type ExitReason string

const (
	ExitStopLoss   ExitReason = "sl"
	ExitTimeout    ExitReason = "decay"
	ExitTakeProfit ExitReason = "tp"
	ExitReverse    ExitReason = "reverse"
	ExitDrop       ExitReason = "drop"
)

// ScratchThresholdBps is the |effective pnl| floor below which a close
// is flagged as a scratch.
const ScratchThresholdBps = 5.0

// Config bundles the thresholds the state machine needs beyond the
// council's regime-keyed gates. Values are conservative defaults;
// exit-priority ordering is pinned to the fixed order
// {sl, decay, tp, reverse, drop}: stop-loss protects capital first,
// then a stale position times out, then take-profit, then a
// confidence reversal, with a plain confidence-drop exit as the
// catch-all.
type Config struct {
	AllowOpens        bool
	RegimeAllowList   map[regime.Regime]bool
	DecayBars         int
	StopLossMinConf   float64
	TakeProfitMinConf float64
	// TakeProfitPriceMinPct is the minimum favorable price move (as a
	// percentage) required alongside TakeProfitMinConf, standing in for
	// a risk-unit-relative take-profit threshold in the absence of a
	// modeled per-trade risk unit (R).
	TakeProfitPriceMinPct float64
	TakerFeeBps           float64
	SlipBps               float64
}

func DefaultConfig() Config {
	return Config{
		AllowOpens: true,
		RegimeAllowList: map[regime.Regime]bool{
			regime.TrendUp: true,
			regime.TrendDown: true,
			regime.Chop: true,
			regime.HighVol: true,
			regime.PanicDown: false,
			regime.Unknown: false,
		},
		DecayBars: 12,
		StopLossMinConf: 0.80,
		TakeProfitMinConf: 0.80,
		TakeProfitPriceMinPct: 0.20,
		TakerFeeBps: 2,
		SlipBps: 1,
	}
}

// Position is the per-(symbol, timeframe) open-position record,
// persisted by PositionStore in positions.json.
type Position struct {
	Dir      int           `json:"dir"`
	EntryPx  float64       `json:"entry_px"`
	EntryTs  time.Time     `json:"entry_ts"`
	BarsOpen int           `json:"bars_open"`
	Regime   regime.Regime `json:"regime"`
	RiskBand string        `json:"risk_band"`
	RiskMult float64       `json:"risk_mult"`
}

// Decision is the per-tick outcome: what the state machine did and
// why, and whether the tick was "eligible" for opportunity density
// purposes independent of whether an open was actually placed.
type Decision struct {
	Position   *Position // nil if flat after this tick
	Opened     bool
	Closed     bool
	Flipped    bool
	ExitReason ExitReason
	Eligible   bool
	CloseEvent *ledger.CloseEvent
	OpenEvent  *ledger.OpenEvent
}

// Step advances one (symbol, timeframe)'s position by one tick.
// current is nil when flat. price is the bar's close used both as the
// next entry price and the exit price for an open position.
func Step(cfg Config, current *Position, symbol, timeframe string, rgm regime.Regime, final council.Final, gates council.Gates, riskMult float64, riskBand string, price float64, now time.Time) Decision {
	effectiveEntryMinConf := council.EffectiveEntryMinConf(gates, riskMult)
	allowListOK := cfg.RegimeAllowList[rgm]
	eligible := cfg.AllowOpens && allowListOK && final.Dir != 0 && final.Conf >= effectiveEntryMinConf

	if current == nil {
		if eligible {
			pos := &Position{Dir: final.Dir, EntryPx: price, EntryTs: now, BarsOpen: 0, Regime: rgm, RiskBand: riskBand, RiskMult: riskMult}
			openEv := &ledger.OpenEvent{
				Ts: now, Symbol: symbol, Timeframe: timeframe, Dir: final.Dir, EntryPx: price,
				RiskMult: riskMult, Regime: string(rgm), RiskBand: riskBand, Confidence: final.Conf,
			}
			return Decision{Position: pos, Opened: true, Eligible: true, OpenEvent: openEv}
		}
		return Decision{Position: nil, Eligible: eligible}
	}

	reason, shouldExit := evaluateExit(cfg, current, final, gates, price)
	if !shouldExit {
		held := *current
		held.BarsOpen++
		return Decision{Position: &held, Eligible: eligible}
	}

	pnlPct, isScratch := closePnL(cfg, current, price)
	closeEv := &ledger.CloseEvent{
		Ts: now, Symbol: symbol, Timeframe: timeframe, Pct: pnlPct,
		FeeBps: cfg.TakerFeeBps, SlipBps: cfg.SlipBps, EntryPx: current.EntryPx, ExitPx: price,
		ExitReason: string(reason), ExitConf: final.Conf, Regime: string(rgm), RiskBand: riskBand,
		RiskMult: riskMult, IsScratch: isScratch,
	}

	decision := Decision{Position: nil, Closed: true, ExitReason: reason, Eligible: eligible, CloseEvent: closeEv}

	if reason == ExitReverse && eligible {
		flipPos := &Position{Dir: final.Dir, EntryPx: price, EntryTs: now, BarsOpen: 0, Regime: rgm, RiskBand: riskBand, RiskMult: riskMult}
		openEv := &ledger.OpenEvent{
			Ts: now, Symbol: symbol, Timeframe: timeframe, Dir: final.Dir, EntryPx: price,
			RiskMult: riskMult, Regime: string(rgm), RiskBand: riskBand, Confidence: final.Conf,
		}
		decision.Position = flipPos
		decision.Flipped = true
		decision.OpenEvent = openEv
	}
	return decision
}

// evaluateExit checks the fixed priority order {sl, decay, tp, reverse, drop}.
func evaluateExit(cfg Config, pos *Position, final council.Final, gates council.Gates, price float64) (ExitReason, bool) {
	counterDir := final.Dir != 0 && final.Dir != pos.Dir
	sameDir := final.Dir == pos.Dir

	if counterDir && final.Conf >= cfg.StopLossMinConf {
		return ExitStopLoss, true
	}
	if pos.BarsOpen >= cfg.DecayBars {
		return ExitTimeout, true
	}
	if sameDir && final.Conf >= cfg.TakeProfitMinConf {
		move := priceMovePct(pos, price)
		if move >= cfg.TakeProfitPriceMinPct {
			return ExitTakeProfit, true
		}
	}
	if counterDir && final.Conf >= gates.ReverseMinConf {
		return ExitReverse, true
	}
	if final.Conf < gates.ExitMinConf {
		return ExitDrop, true
	}
	return "", false
}

func priceMovePct(pos *Position, price float64) float64 {
	if pos.EntryPx == 0 {
		return 0
	}
	return (price - pos.EntryPx) / pos.EntryPx * float64(pos.Dir) * 100
}

// closePnL computes the net-of-accounting percentage return and
// whether it is a scratch.
func closePnL(cfg Config, pos *Position, exitPx float64) (pct float64, isScratch bool) {
	raw := priceMovePct(pos, exitPx)
	costBps := 2*cfg.TakerFeeBps + cfg.SlipBps
	net := raw - costBps/100 // net is a percentage; costBps/100 converts bps to percentage points
	netBps := net * 100
	isScratch = netBps < ScratchThresholdBps && netBps > -ScratchThresholdBps
	return net, isScratch
}
