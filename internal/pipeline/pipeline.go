// Package pipeline wires the engine's components into a single
// per-tick dependency chain: Paths/Snapshot -> the OHLCV fetcher ->
// the signal registry -> the regime classifier -> the council -> the
// primitive computations -> the risk adapter -> the entry/exit state
// machine -> the trade log -> observability. No component here
// advances state out of this order; RunTick is the only entry point
// that may call Step and the state-store Save methods.
package pipeline

import (
	"fmt"
	"time"

	"github.com/sawpanic/papertick/internal/config"
	"github.com/sawpanic/papertick/internal/council"
	"github.com/sawpanic/papertick/internal/incident"
	"github.com/sawpanic/papertick/internal/ledger"
	"github.com/sawpanic/papertick/internal/observability"
	"github.com/sawpanic/papertick/internal/primitives"
	"github.com/sawpanic/papertick/internal/providers"
	"github.com/sawpanic/papertick/internal/regime"
	"github.com/sawpanic/papertick/internal/risk"
	"github.com/sawpanic/papertick/internal/signals"
	"github.com/sawpanic/papertick/internal/state"
	"github.com/sawpanic/papertick/internal/trading"
)

// Engine bundles every per-process store and stateless config needed
// to run ticks for any (symbol, timeframe) pair under one mode. It is
// constructed once in main and reused across the scheduler's lifetime.
type Engine struct {
	Paths state.Paths
	Cfg   config.Config

	Fetcher    *providers.Fetcher
	SignalReg  *signals.Registry
	CouncilCfg council.Config
	RegimeCfg  regime.Config
	TradingCfg trading.Config

	PrimitiveStore   *state.PrimitiveStore
	OpportunityStore *primitives.OpportunityStore
	CompressionStore *primitives.CompressionStore
	SelfTrustStore   *primitives.SelfTrustStore
	PositionStore    *trading.PositionStore
	RiskAdapter      *risk.Adapter

	Ledger  *ledger.Ledger
	Mirror  *ledger.PostgresMirror
	Obs     *observability.Recorder
	Metrics *observability.Metrics

	ConsecutiveFails int

	// lastBarTs backs the scheduler's bar-edge detection: it calls
	// RunTick every jittered interval, but the full pipeline only runs
	// when the newest closed bar for this (symbol, timeframe) differs
	// from the last one processed. In-memory only; a restart
	// re-processes the current bar once.
	lastBarTs map[string]time.Time
}

// TickResult is what RunTick hands back to the scheduler for logging
// and loop-health bookkeeping. Skipped is true when the bar-edge check
// found no new closed bar; Snapshot and Issues are only meaningful
// when Skipped is false.
type TickResult struct {
	Snapshot *state.Snapshot
	Issues   []incident.Issue
	Skipped  bool
}

// NewEngine builds an Engine from already-loaded stores. Construction
// (loading every on-disk store) is split out of RunTick so a restart
// only pays that cost once.
func NewEngine(paths state.Paths, cfg config.Config, fetcher *providers.Fetcher, reg *signals.Registry, l *ledger.Ledger, mirror *ledger.PostgresMirror, obs *observability.Recorder, metrics *observability.Metrics) (*Engine, error) {
	primStore, err := state.LoadPrimitiveStore(paths.PrimitiveState())
	if err != nil {
		return nil, fmt.Errorf("pipeline: load primitive store: %w", err)
	}
	oppStore, err := primitives.LoadOpportunityStore(paths.OpportunityState())
	if err != nil {
		return nil, fmt.Errorf("pipeline: load opportunity store: %w", err)
	}
	compStore, err := primitives.LoadCompressionStore(paths.CompressionState())
	if err != nil {
		return nil, fmt.Errorf("pipeline: load compression store: %w", err)
	}
	trustStore, err := primitives.LoadSelfTrustStore(paths.SelfTrustState())
	if err != nil {
		return nil, fmt.Errorf("pipeline: load self-trust store: %w", err)
	}
	posStore, err := trading.LoadPositionStore(paths.Positions())
	if err != nil {
		return nil, fmt.Errorf("pipeline: load position store: %w", err)
	}

	return &Engine{
		Paths: paths,
		Cfg: cfg,
		Fetcher: fetcher,
		SignalReg: reg,
		CouncilCfg: cfg.Council.Resolve(),
		RegimeCfg: cfg.Regime.Resolve(),
		TradingCfg: cfg.Trading.Resolve(),
		PrimitiveStore: primStore,
		OpportunityStore: oppStore,
		CompressionStore: compStore,
		SelfTrustStore: trustStore,
		PositionStore: posStore,
		RiskAdapter: risk.NewAdapter(paths),
		Ledger: l,
		Mirror: mirror,
		Obs: obs,
		Metrics: metrics,
		lastBarTs: map[string]time.Time{},
	}, nil
}
