package selftest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sawpanic/papertick/internal/config"
	"github.com/sawpanic/papertick/internal/ioatomic"
	"github.com/sawpanic/papertick/internal/ledger"
	"github.com/sawpanic/papertick/internal/observability"
	"github.com/sawpanic/papertick/internal/pipeline"
	"github.com/sawpanic/papertick/internal/primitives"
	"github.com/sawpanic/papertick/internal/providers"
	"github.com/sawpanic/papertick/internal/regime"
	"github.com/sawpanic/papertick/internal/signals"
	"github.com/sawpanic/papertick/internal/state"
)

func newEngine(root string, offline providers.Provider) (*pipeline.Engine, error) {
	cfg := config.Default()
	cfg.Universe.Symbols = []string{"BTCUSD"}
	paths := state.NewPaths(root, state.ModePaper)

	cooldown, err := providers.LoadCooldownStore(paths.ProviderCooldown())
	if err != nil {
		return nil, err
	}
	stickiness, err := providers.LoadStickinessStore(paths.OHLCVProviderState())
	if err != nil {
		return nil, err
	}
	cache := providers.NewPayloadCache()
	fetcher := providers.NewFetcher([]providers.Provider{offline}, cooldown, stickiness, cache)
	reg := signals.NewRegistry(signals.BuiltinDefinitions())
	l := ledger.New(paths.TradeLog(), paths.EquityCurve())
	metrics := observability.NewMetrics()
	obs := observability.NewRecorder(paths, metrics)

	return pipeline.NewEngine(paths, cfg, fetcher, reg, l, nil, obs, metrics)
}

// FreshStartValidator checks the very first tick on an empty reports
// directory.
type FreshStartValidator struct{ root string }

func NewFreshStartValidator(root string) *FreshStartValidator {
	return &FreshStartValidator{root: filepath.Join(root, "fresh_start")}
}

func (v *FreshStartValidator) Name() string { return "fresh_start_no_state" }

func (v *FreshStartValidator) Validate() TestResult {
	start := time.Now()
	result := TestResult{Name: v.Name(), Timestamp: start}

	now := time.Now().UTC()
	minBars := regime.DefaultConfig().MinBars
	offline := &offlineProvider{name: "offline", bars: syntheticBars(minBars-5, now)}

	engine, err := newEngine(v.root, offline)
	if err != nil {
		return v.fail(result, start, fmt.Sprintf("construct engine: %v", err))
	}

	tick, err := engine.RunTick(context.Background(), "BTCUSD", cfgTimeframe(), now)
	if err != nil {
		return v.fail(result, start, fmt.Sprintf("run tick: %v", err))
	}
	if tick.Skipped {
		return v.fail(result, start, "first tick on empty state was unexpectedly skipped")
	}

	var details []string
	ok := true

	if vel, got := tick.Snapshot.Get("primitives.confidence.velocity"); !got || vel != nil {
		ok      = false
		details = append(details, fmt.Sprintf("expected null confidence velocity, got present=%v value=%v", got, vel))
	}
	if trust, got := tick.Snapshot.Get("primitives.self_trust.score"); !got || trust != nil {
		ok      = false
		details = append(details, fmt.Sprintf("expected null self-trust score, got present=%v value=%v", got, trust))
	}
	if rgm, _ := tick.Snapshot.Get("regime.label"); rgm != string(regime.Unknown) {
		ok      = false
		details = append(details, fmt.Sprintf("expected regime=unknown with insufficient bars, got %v", rgm))
	}

	for _, p := range []string{
		engine.Paths.PrimitiveState(), engine.Paths.OpportunityState(),
		engine.Paths.CompressionState(), engine.Paths.SelfTrustState(),
		engine.Paths.Positions(), engine.Paths.LatestSnapshot(),
	} {
		if _, statErr := os.Stat(p); statErr != nil {
			ok      = false
			details = append(details, fmt.Sprintf("expected state file %s to exist: %v", p, statErr))
		}
	}

	if _, statErr := os.Stat(engine.Paths.Incidents()); statErr == nil {
		data, _ := os.ReadFile(engine.Paths.Incidents())
		if len(data) > 0 {
			ok      = false
			details = append(details, "expected no incidents on a fresh, bar-edge-only tick")
		}
	}

	result.Duration = time.Since(start)
	result.Details = details
	if ok {
		result.Status = "PASS"
		result.Message = "fresh start produced null primitives, regime=unknown, and wrote all state files"
	} else {
		result.Status = "FAIL"
	}
	return result
}

func (v *FreshStartValidator) fail(result TestResult, start time.Time, msg string) TestResult {
	result.Status = "FAIL"
	result.Message = msg
	result.Duration = time.Since(start)
	return result
}

// AtomicityValidator checks the write-then-rename round-trip of
// internal/ioatomic, adapted from cryptorun's
// internal/application/selftest.AtomicityValidator (temp-then-rename
// check) against this repo's own atomic writer instead of a generic
// file-write helper.
type AtomicityValidator struct{ root string }

func NewAtomicityValidator(root string) *AtomicityValidator {
	return &AtomicityValidator{root: filepath.Join(root, "atomicity")}
}

func (v *AtomicityValidator) Name() string { return "atomic_write_roundtrip" }

func (v *AtomicityValidator) Validate() TestResult {
	start := time.Now()
	result := TestResult{Name: v.Name(), Timestamp: start}

	if err := os.MkdirAll(v.root, 0o755); err != nil {
		return TestResult{Name: v.Name(), Status: "FAIL", Message: err.Error(), Timestamp: start, Duration: time.Since(start)}
	}

	path := filepath.Join(v.root, "snapshot.json")
	type payload struct {
		Ts time.Time `json:"ts"`
		Symbol string `json:"symbol"`
		Value float64 `json:"value"`
	}
	want := payload{Ts: time.Now().UTC().Truncate(time.Second), Symbol: "BTCUSD", Value: 42.5}

	if err := ioatomic.WriteJSON(path, want); err != nil {
		return TestResult{Name: v.Name(), Status: "FAIL", Message: fmt.Sprintf("write: %v", err), Timestamp: start, Duration: time.Since(start)}
	}
	if _, err := os.Stat(path + ".tmp"); err == nil {
		return TestResult{Name: v.Name(), Status: "FAIL", Message: "leftover.tmp file after atomic write", Timestamp: start, Duration: time.Since(start)}
	}

	var got payload
	if err := ioatomic.ReadJSON(path, &got); err != nil {
		return TestResult{Name: v.Name(), Status: "FAIL", Message: fmt.Sprintf("read back: %v", err), Timestamp: start, Duration: time.Since(start)}
	}

	rawWant, _ := json.Marshal(want)
	rawGot, _ := json.Marshal(got)

	result.Duration = time.Since(start)
	if string(rawWant) != string(rawGot) {
		result.Status = "FAIL"
		result.Message = "round-tripped content does not match"
		result.Details = []string{string(rawWant), string(rawGot)}
		return result
	}
	result.Status = "PASS"
	result.Message = "atomic write + re-read is byte-equal"
	return result
}

// SelfTrustReplayValidator seeds trades.jsonl with ten paired
// open/close events at a fixed confidence with alternating win/loss
// outcomes, and checks the replayed calibration converges to the
// expected self-trust score for that distribution.
type SelfTrustReplayValidator struct{ root string }

func NewSelfTrustReplayValidator(root string) *SelfTrustReplayValidator {
	return &SelfTrustReplayValidator{root: filepath.Join(root, "self_trust")}
}

func (v *SelfTrustReplayValidator) Name() string { return "self_trust_calibration_replay" }

func (v *SelfTrustReplayValidator) Validate() TestResult {
	start := time.Now()
	result := TestResult{Name: v.Name(), Timestamp: start}

	if err := os.MkdirAll(v.root, 0o755); err != nil {
		return TestResult{Name: v.Name(), Status: "FAIL", Message: err.Error(), Timestamp: start, Duration: time.Since(start)}
	}
	tradesPath := filepath.Join(v.root, "trades.jsonl")
	l := ledger.New(tradesPath, filepath.Join(v.root, "equity_curve.jsonl"))

	now := time.Now().UTC()
	for i := 0; i < 10; i++ {
		ts := now.Add(time.Duration(i) * 15 * time.Minute)
		if err := l.AppendOpen(ledger.OpenEvent{Ts: ts, Symbol: "BTCUSD", Timeframe: "15m", Dir: 1, EntryPx: 50000, Confidence: 0.8}); err != nil {
			return TestResult{Name: v.Name(), Status: "FAIL", Message: err.Error(), Timestamp: start, Duration: time.Since(start)}
		}
		pct := 0.3
		if i%2 == 1 {
			pct = -0.3
		}
		if err := l.AppendClose(ledger.CloseEvent{Ts: ts.Add(time.Minute), Symbol: "BTCUSD", Timeframe: "15m", Pct: pct}, ts.Add(time.Minute)); err != nil {
			return TestResult{Name: v.Name(), Status: "FAIL", Message: err.Error(), Timestamp: start, Duration: time.Since(start)}
		}
	}

	store, err := primitives.LoadSelfTrustStore(filepath.Join(v.root, "self_trust_state.json"))
	if err != nil {
		return TestResult{Name: v.Name(), Status: "FAIL", Message: err.Error(), Timestamp: start, Duration: time.Since(start)}
	}
	if err := store.Replay(tradesPath); err != nil {
		return TestResult{Name: v.Name(), Status: "FAIL", Message: err.Error(), Timestamp: start, Duration: time.Since(start)}
	}

	score, ok := store.Score()
	result.Duration = time.Since(start)
	if !ok {
		result.Status = "FAIL"
		result.Message = "expected a non-null self-trust score after 10 closes"
		return result
	}
	const want = 0.25
	const tol = 0.05
	diff := score - want
	if diff < 0 {
		diff = -diff
	}
	result.Details = []string{fmt.Sprintf("brier_ewma=%.4f overconfidence_ewma=%.4f score=%.4f", store.State.BrierEWMA, store.State.OverconfEWMA, score)}
	if diff > tol {
		result.Status = "FAIL"
		result.Message = fmt.Sprintf("self_trust_score=%.4f not within %.2f of expected %.2f", score, tol, want)
		return result
	}
	result.Status = "PASS"
	result.Message = fmt.Sprintf("self_trust_score=%.4f converged near the expected %.2f", score, want)
	return result
}

func cfgTimeframe() string { return config.Default().Universe.Timeframe }
