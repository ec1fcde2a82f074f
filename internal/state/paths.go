// Package state owns the on-disk layout of papertick's reports root and
// the nested tick snapshot schema. Every other package reads or writes
// through the paths and types defined here.
package state

import "path/filepath"

// Mode selects the persistence target and whether the PAPER-only risk
// promotion rule (see internal/risk) is active.
type Mode string

const (
	ModePaper Mode = "PAPER"
	ModeDryRun Mode = "DRY_RUN"
	ModeLive Mode = "LIVE"
)

// Paths resolves the canonical file layout relative to a reports root.
// DRY_RUN mode redirects the trade log and equity curve to dedicated
// paths; every other file is shared across modes.
type Paths struct {
	Root string
	Mode Mode
}

func NewPaths(root string, mode Mode) Paths {
	return Paths{Root: root, Mode: mode}
}

func (p Paths) join(elem...string) string {
	return filepath.Join(append([]string{p.Root}, elem...)...)
}

func (p Paths) LoopHealth() string { return p.join("loop_health.json") }
func (p Paths) LoopHealthMirror() string { return p.join("loop", "loop_health.json") }
func (p Paths) Heartbeat() string { return p.join("loop", "heartbeat.json") }
func (p Paths) LatestSnapshot() string { return p.join("latest_snapshot.json") }
func (p Paths) Incidents() string { return p.join("incidents.jsonl") }
func (p Paths) PrimitiveState() string { return p.join("primitive_state.json") }
func (p Paths) OpportunityState() string { return p.join("opportunity_state.json") }
func (p Paths) CompressionState() string { return p.join("compression_state.json") }
func (p Paths) SelfTrustState() string { return p.join("self_trust_state.json") }
func (p Paths) ProviderCooldown() string { return p.join("provider_cooldown.json") }
func (p Paths) OHLCVProviderState() string { return p.join("ohlcv_provider_state.json") }
func (p Paths) RiskAdapterState() string { return p.join("risk_adapter.json") }
func (p Paths) RiskAdapterLog() string { return p.join("risk_adapter.jsonl") }
func (p Paths) PFLocal() string { return p.join("pf_local.json") }
func (p Paths) PFLive() string { return p.join("pf_live.json") }
func (p Paths) ReflectionDir() string { return p.join("reflection") }

// Positions holds the per-(symbol, timeframe) open-position state.
// It must survive restarts the same way every other owned store
// does; it follows the same atomic-write discipline as the rest of
// this file.
func (p Paths) Positions() string { return p.join("positions.json") }

// TradeLog returns trades.jsonl, or a dedicated dry-run path in
// DRY_RUN mode
func (p Paths) TradeLog() string {
	if p.Mode == ModeDryRun {
		return p.join("dry_run", "trades.jsonl")
	}
	return p.join("trades.jsonl")
}

// EquityCurve returns equity_curve.jsonl, dry-run-redirected like TradeLog.
func (p Paths) EquityCurve() string {
	if p.Mode == ModeDryRun {
		return p.join("dry_run", "equity_curve.jsonl")
	}
	return p.join("equity_curve.jsonl")
}
