package pipeline

import (
	"context"
	"time"

	"github.com/sawpanic/papertick/internal/council"
	"github.com/sawpanic/papertick/internal/incident"
	"github.com/sawpanic/papertick/internal/ledger"
	"github.com/sawpanic/papertick/internal/primitives"
	"github.com/sawpanic/papertick/internal/regime"
	"github.com/sawpanic/papertick/internal/signals"
	"github.com/sawpanic/papertick/internal/state"
	"github.com/sawpanic/papertick/internal/trading"
)

// Default half-lives for the two primitive-state keys this pipeline
// tracks.
const (
	confidenceHalfLifeSeconds = 900.0
	pciHalfLifeSeconds        = 1800.0

	// baselineWindowMultiple sets the longer baseline window
	// compression compares its current reading against: current ATR%
	// and BB-width% plus their longer-window baselines.
	baselineWindowMultiple = 4

	// closesWindowForPF bounds how many trailing closes are read back
	// for the risk adapter's PF gates.
	closesWindowForPF = 200
)

// RunTick executes one full tick for (symbol, timeframe) at wall-clock
// now, in the engine's fixed dependency order. It never panics on a
// handled error: callers at the scheduler level are responsible for
// catching anything RunTick does not itself recover from and logging
// it as an incident.Unexpected. When the newest closed bar is the same
// one already processed, it returns immediately without running the
// rest of the pipeline: TickResult.Skipped is true and Snapshot is nil.
func (e *Engine) RunTick(ctx context.Context, symbol, timeframe string, now time.Time) (TickResult, error) {
	timer := e.Metrics.StartTick(symbol, timeframe)
	defer timer.Stop()

	// Fetch bars.
	fetchResult, err := e.Fetcher.Fetch(ctx, symbol, timeframe, e.Cfg.Universe.BarsLimit, now)
	bars := fetchResult.Bars

	barKey := symbol + ":" + timeframe
	if err == nil && len(bars) > 0 {
		latest := bars[len(bars)-1].Ts
		if prev, ok := e.lastBarTs[barKey]; ok && prev.Equal(latest) {
			return TickResult{Skipped: true}, nil
		}
		e.lastBarTs[barKey] = latest
	}

	snap := state.NewSnapshot(now, symbol, timeframe, e.Paths.Mode)
	var issues []incident.Issue

	if err != nil {
		issues = append(issues, incident.IssueFeedStale)
		e.Obs.LogIncident(incident.New(incident.KindTransientExternal, "pipeline.fetch", err).WithSymbol(symbol, timeframe).WithTickID(tickID(snap)))
	}
	snap.Set("market.source", fetchResult.Meta.Source)
	snap.Set("market.bars_count", len(bars))
	snap.Set("market.age_seconds", fetchResult.Meta.Age.Seconds())
	snap.Set("market.trimmed", fetchResult.Meta.Trimmed)
	snap.Set("market.stale", fetchResult.Meta.Stale)
	if fetchResult.Meta.Stale && !contains(issues, incident.IssueFeedStale) {
		issues = append(issues, incident.IssueFeedStale)
	}

	// Signal vector + raw registry.
	sigCtx := signals.Context{Symbol: symbol, Timeframe: timeframe, Bars: bars}
	vector, raw := e.SignalReg.Build(sigCtx)
	snap.Set("signals.vector", vector)
	snap.Set("signals.raw", raw)

	// Regime classification.
	regResult := regime.Classify(e.RegimeCfg, bars, fetchResult.Meta.Trimmed)
	snap.Set("regime.label", string(regResult.Regime))
	snap.Set("regime.atr_pct", regResult.ATRPct)
	snap.Set("regime.bb_width_pct", regResult.BBWidthPct)
	snap.Set("regime.short_return", regResult.ShortRet)
	snap.Set("regime.vol_z", regResult.VolZ)
	if regResult.Regime == regime.Unknown {
		issues = append(issues, incident.IssueRegimeUnknown)
	}

	// Council.
	councilResult := council.Evaluate(e.CouncilCfg, raw, regResult.Regime, e.Paths.Mode == state.ModePaper)
	snap.Set("decision.regime", councilResult.Regime)
	snap.Set("decision.buckets", councilResult.Buckets)
	snap.Set("decision.final", councilResult.Final)
	snap.Set("decision.gates", councilResult.Gates)
	if len(raw) == 0 {
		issues = append(issues, incident.IssueConfidenceMissing)
	}

	// Primitives. Velocity/decay track "confidence" (the council's
	// final.Conf) and "pci" (the compression score); compression needs
	// a longer-window baseline alongside the classifier's
	// already-computed current-window statistics. A baseline that
	// needs more bars than are on hand yields no compression reading
	// at all this tick (COMPRESSION_NULL) rather than a spurious
	// "fully compressed" score from dividing by an empty baseline.
	baselineBars := e.RegimeCfg.ATRWindow * baselineWindowMultiple
	if bbBars := e.RegimeCfg.BBWindow * baselineWindowMultiple; bbBars > baselineBars {
		baselineBars = bbBars
	}
	haveBaseline := len(bars) > baselineBars

	var compResult primitives.CompressionResult
	if haveBaseline {
		atrBaseline := regime.ATRPercent(bars, e.RegimeCfg.ATRWindow*baselineWindowMultiple)
		bbBaseline := regime.BBWidthPercent(bars, e.RegimeCfg.BBWindow*baselineWindowMultiple)
		compResult = primitives.UpdateCompression(e.CompressionStore, now, regResult.ATRPct, atrBaseline, regResult.BBWidthPct, bbBaseline, e.Cfg.Compression.Resolve())
		snap.Set("primitives.compression.score", compResult.Score)
		snap.Set("primitives.compression.compressed", compResult.Compressed)
		snap.Set("primitives.compression.time_in_compression_s", compResult.TimeInCompressionS)
	} else {
		issues = append(issues, incident.IssueCompressionNull)
	}

	prevConf, hadPrevConf := e.PrimitiveStore.Get("confidence")
	confVelocity, confVelOK := primitives.Velocity(e.PrimitiveStore, "confidence", now, councilResult.Final.Conf)
	snap.Set("primitives.confidence.velocity", nullableFloat(confVelocity, confVelOK))
	if hadPrevConf {
		decay := primitives.ComputeDecay(prevConf.Value, prevConf.Ts, now, confidenceHalfLifeSeconds)
		snap.Set("primitives.confidence.decay", decay)
	}

	if haveBaseline {
		prevPci, hadPrevPci := e.PrimitiveStore.Get("pci")
		pciVelocity, pciVelOK := primitives.Velocity(e.PrimitiveStore, "pci", now, compResult.Score)
		snap.Set("primitives.pci.velocity", nullableFloat(pciVelocity, pciVelOK))
		if hadPrevPci {
			decay := primitives.ComputeDecay(prevPci.Value, prevPci.Ts, now, pciHalfLifeSeconds)
			snap.Set("primitives.pci.decay", decay)
		}
	}

	if err := e.SelfTrustStore.Replay(e.Paths.TradeLog()); err != nil {
		e.Obs.LogIncident(incident.New(incident.KindDataIntegrity, "pipeline.selftrust_replay", err).WithSymbol(symbol, timeframe).WithTickID(tickID(snap)))
	}
	trustScore, trustOK := e.SelfTrustStore.Score()
	snap.Set("primitives.self_trust.score", nullableFloat(trustScore, trustOK))
	if !trustOK {
		issues = append(issues, incident.IssueSelfTrustUnavailable)
	} else {
		e.Metrics.SelfTrustScore.Set(trustScore)
	}

	// Risk adapter.
	equity, _ := e.Ledger.LastEquity()
	peak, _ := e.Ledger.PeakEquity()
	closesAll, _ := ledger.ReadLastCloses(e.Paths.TradeLog(), closesWindowForPF)
	riskResult := e.RiskAdapter.Evaluate(now, equity, peak, closesAll)
	if err := e.RiskAdapter.Persist(riskResult); err != nil {
		e.Obs.LogIncident(incident.New(incident.KindUnexpected, "pipeline.risk_persist", err).WithSymbol(symbol, timeframe).WithTickID(tickID(snap)))
	}
	snap.Set("risk.band", riskResult.Band)
	snap.Set("risk.mult", riskResult.Mult)
	snap.Set("risk.drawdown", riskResult.Drawdown)
	snap.Set("risk.equity", riskResult.Equity)
	snap.Set("risk.peak", riskResult.Peak)
	snap.Set("risk.promoted", riskResult.Promoted)
	snap.Set("risk.rationale", riskResult.Rationale)

	// Entry/exit state machine.
	current := e.PositionStore.Get(symbol, timeframe)
	price := 0.0
	if len(bars) > 0 {
		price = bars[len(bars)-1].Close
	}
	decision := trading.Step(e.TradingCfg, current, symbol, timeframe, regResult.Regime, councilResult.Final, councilResult.Gates, riskResult.Mult, string(riskResult.Band), price, now)
	e.PositionStore.Set(symbol, timeframe, decision.Position)
	snap.Set("execution.opened", decision.Opened)
	snap.Set("execution.closed", decision.Closed)
	snap.Set("execution.flipped", decision.Flipped)
	snap.Set("execution.exit_reason", decision.ExitReason)
	snap.Set("execution.eligible", decision.Eligible)
	snap.Set("execution.position", decision.Position)

	// Trade log + equity curve.
	if decision.OpenEvent != nil {
		if err := e.Ledger.AppendOpen(*decision.OpenEvent); err != nil {
			e.Obs.LogIncident(incident.New(incident.KindUnexpected, "pipeline.ledger_open", err).WithSymbol(symbol, timeframe).WithTickID(tickID(snap)))
		} else if e.Mirror != nil {
			e.Mirror.LogFailure(e.Mirror.MirrorOpen(ctx, *decision.OpenEvent), "open")
		}
	}
	if decision.CloseEvent != nil {
		if err := e.Ledger.AppendClose(*decision.CloseEvent, now); err != nil {
			e.Obs.LogIncident(incident.New(incident.KindUnexpected, "pipeline.ledger_close", err).WithSymbol(symbol, timeframe).WithTickID(tickID(snap)))
		} else if e.Mirror != nil {
			e.Mirror.LogFailure(e.Mirror.MirrorClose(ctx, *decision.CloseEvent), "close")
		}
	}

	// Opportunity density is driven by this tick's gating outcome.
	regDensity, globalDensity := e.OpportunityStore.Record(regResult.Regime, decision.Eligible, now, e.Cfg.Opportunity.HalfLifeMinutes)
	snap.Set("primitives.opportunity.regime_density", regDensity)
	snap.Set("primitives.opportunity.global_density", globalDensity)
	if e.OpportunityStore.BelowFloor(regResult.Regime, regDensity) {
		issues = append(issues, incident.IssueOpportunityLow)
	}
	e.Metrics.OpportunityDensity.WithLabelValues(string(regResult.Regime)).Set(regDensity)

	openCount := 0
	if decision.Position != nil {
		openCount = 1
	}
	e.Metrics.OpenPositions.Set(float64(openCount))

	// Persist every store this tick advanced.
	for _, saver := range []func() error{
		e.PrimitiveStore.Save,
		e.OpportunityStore.Save,
		e.CompressionStore.Save,
		e.SelfTrustStore.Save,
		e.PositionStore.Save,
	} {
		if err := saver(); err != nil {
			e.Obs.LogIncident(incident.New(incident.KindUnexpected, "pipeline.state_save", err).WithSymbol(symbol, timeframe).WithTickID(tickID(snap)))
		}
	}

	snap.Set("meta.issues", issues)
	e.Obs.WriteLatestSnapshot(snap)

	return TickResult{Snapshot: snap, Issues: issues}, nil
}

func tickID(snap *state.Snapshot) string {
	if v, ok := snap.Get("meta.tick_id"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func nullableFloat(v float64, ok bool) any {
	if !ok {
		return nil
	}
	return v
}

func contains(issues []incident.Issue, target incident.Issue) bool {
	for _, i := range issues {
		if i == target {
			return true
		}
	}
	return false
}
