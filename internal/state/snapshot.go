package state

import (
	"fmt"
	"strings"
	"time"
)

// Snapshot is the per-tick record written to latest_snapshot.json and,
// in full, threaded through the pipeline in memory. The header fields
// (Ts, Symbol, Timeframe, Mode, TickID) are set once at creation and
// never mutated afterwards; only the nested groups are filled in as
// the tick progresses through each pipeline stage.
type Snapshot struct {
	Ts         time.Time      `json:"ts"`
	Symbol     string         `json:"symbol"`
	Timeframe  string         `json:"timeframe"`
	Mode       Mode           `json:"mode"`
	Market     map[string]any `json:"market"`
	Signals    map[string]any `json:"signals"`
	Primitives map[string]any `json:"primitives"`
	Regime     map[string]any `json:"regime"`
	Risk       map[string]any `json:"risk"`
	Decision   map[string]any `json:"decision"`
	Execution  map[string]any `json:"execution"`
	Metrics    map[string]any `json:"metrics"`
	Meta       map[string]any `json:"meta"`
}

// NewSnapshot creates a snapshot with an immutable header and an empty
// set of nested groups, plus a filesystem-safe tick_id in meta.
func NewSnapshot(ts time.Time, symbol, timeframe string, mode Mode) *Snapshot {
	s := &Snapshot{
		Ts: ts,
		Symbol: symbol,
		Timeframe: timeframe,
		Mode: mode,
		Market: map[string]any{},
		Signals: map[string]any{},
		Primitives: map[string]any{},
		Regime: map[string]any{},
		Risk: map[string]any{},
		Decision: map[string]any{},
		Execution: map[string]any{},
		Metrics: map[string]any{},
		Meta: map[string]any{},
	}
	s.Meta["tick_id"] = TickID(ts, symbol, timeframe, mode)
	return s
}

// TickID derives a filesystem-safe unique identifier from the header
// fields: a colon/space-free slug plus a nanosecond-resolution
// timestamp, so two ticks for the same (symbol, timeframe) never collide.
func TickID(ts time.Time, symbol, timeframe string, mode Mode) string {
	clean := func(s string) string {
		s = strings.ToLower(s)
		s = strings.ReplaceAll(s, "/", "-")
		s = strings.ReplaceAll(s, " ", "-")
		s = strings.ReplaceAll(s, ":", "")
		return s
	}
	return fmt.Sprintf("%s-%s-%s-%s",
		clean(symbol), clean(timeframe), strings.ToLower(string(mode)),
		ts.UTC().Format("20060102T150405.000000000"))
}

// group selects one of the nested top-level maps by name.
func (s *Snapshot) group(name string) (map[string]any, error) {
	switch name {
	case "market":
		return s.Market, nil
	case "signals":
		return s.Signals, nil
	case "primitives":
		return s.Primitives, nil
	case "regime":
		return s.Regime, nil
	case "risk":
		return s.Risk, nil
	case "decision":
		return s.Decision, nil
	case "execution":
		return s.Execution, nil
	case "metrics":
		return s.Metrics, nil
	case "meta":
		return s.Meta, nil
	default:
		return nil, fmt.Errorf("state: unknown snapshot group %q", name)
	}
}

// Set writes value at a dot-notation path, e.g. "signals.momentum_1h".
// The first segment must name one of the nested groups; intermediate
// segments are created as nested maps on demand. The header fields are
// not addressable through Set — they are fixed by NewSnapshot.
func (s *Snapshot) Set(path string, value any) error {
	parts := strings.Split(path, ".")
	if len(parts) < 2 {
		return fmt.Errorf("state: path %q must address a field within a group", path)
	}
	m, err := s.group(parts[0])
	if err != nil {
		return err
	}
	for _, key := range parts[1: len(parts)-1] {
		next, ok := m[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[key] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
	return nil
}

// Get reads a dot-notation path, returning (nil, false) if any segment
// is absent.
func (s *Snapshot) Get(path string) (any, bool) {
	parts := strings.Split(path, ".")
	if len(parts) < 2 {
		return nil, false
	}
	m, err := s.group(parts[0])
	if err != nil {
		return nil, false
	}
	var cur any = m
	for _, key := range parts[1:] {
		cm, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = cm[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
