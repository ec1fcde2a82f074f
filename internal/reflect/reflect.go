// Package reflect assembles the read-only reflection packet an
// external GPT-assisted tuner consumes. This package only builds the
// artifact; it never calls out to any LLM and never applies a
// proposal back to the running engine.
package reflect

import (
	"path/filepath"
	"time"

	"github.com/sawpanic/papertick/internal/ioatomic"
	"github.com/sawpanic/papertick/internal/ledger"
	"github.com/sawpanic/papertick/internal/state"
)

// Packet is the stable on-disk contract the tuner reads. Every field
// is a straight read of already-persisted state; Packet adds no new
// derived values of its own.
type Packet struct {
	GeneratedAt     time.Time           `json:"generated_at"`
	Symbol          string              `json:"symbol"`
	Timeframe       string              `json:"timeframe"`
	RecentSnapshots []*state.Snapshot   `json:"recent_snapshots"`
	RecentCloses    []ledger.CloseEvent `json:"recent_closes"`
	PrimitiveState  map[string]any      `json:"primitive_state,omitempty"`
	RiskState       map[string]any      `json:"risk_state,omitempty"`
}

// BuildPacket assembles a Packet from already-loaded inputs and
// atomically writes it under reports/reflection/<symbol>_<timeframe>_<ts>.json.
// Callers supply the recent-snapshot ring and close-event tail; this
// function does no I/O beyond the final write, so it never re-reads
// trades.jsonl mid-build.
func BuildPacket(paths state.Paths, now time.Time, symbol, timeframe string, snapshots []*state.Snapshot, closes []ledger.CloseEvent, primitiveState, riskState map[string]any) (Packet, error) {
	pkt := Packet{
		GeneratedAt: now,
		Symbol: symbol,
		Timeframe: timeframe,
		RecentSnapshots: snapshots,
		RecentCloses: closes,
		PrimitiveState: primitiveState,
		RiskState: riskState,
	}
	name := symbol + "_" + timeframe + "_" + now.UTC().Format("20060102T150405") + ".json"
	path := filepath.Join(paths.ReflectionDir(), name)
	if err := ioatomic.WriteJSON(path, pkt); err != nil {
		return pkt, err
	}
	return pkt, nil
}
