// Package ledger owns the append-only trade log and equity curve,
// plus the PF summaries the risk adapter reads back.
// Grounded on cryptorun's internal/application/bench/spec_pnl.go
// (entry/exit P&L event shape, zerolog call sites) adapted from a
// one-shot backtest calculator into an append-only open/close log, and
// on internal/io/atomic.go for the append-fsync discipline.
package ledger

import (
	"bufio"
	"encoding/json"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/papertick/internal/ioatomic"
)

// OpenEvent is logged when a position is opened.
type OpenEvent struct {
	Ts         time.Time `json:"ts"`
	Type       string    `json:"type"`
	Symbol     string    `json:"symbol"`
	Timeframe  string    `json:"timeframe"`
	Dir        int       `json:"dir"`
	EntryPx    float64   `json:"entry_px"`
	RiskMult   float64   `json:"risk_mult"`
	Regime     string    `json:"regime,omitempty"`
	RiskBand   string    `json:"risk_band,omitempty"`
	Confidence float64   `json:"confidence"`
}

// CloseEvent is logged when a position is closed.
type CloseEvent struct {
	Ts         time.Time `json:"ts"`
	Type       string    `json:"type"`
	Symbol     string    `json:"symbol"`
	Timeframe  string    `json:"timeframe"`
	Pct        float64   `json:"pct"`
	FeeBps     float64   `json:"fee_bps"`
	SlipBps    float64   `json:"slip_bps"`
	EntryPx    float64   `json:"entry_px,omitempty"`
	ExitPx     float64   `json:"exit_px,omitempty"`
	ExitReason string    `json:"exit_reason,omitempty"`
	ExitConf   float64   `json:"exit_conf,omitempty"`
	Regime     string    `json:"regime,omitempty"`
	RiskBand   string    `json:"risk_band,omitempty"`
	RiskMult   float64   `json:"risk_mult,omitempty"`
	IsScratch  bool      `json:"is_scratch,omitempty"`
}

// EquityPoint is one line of equity_curve.jsonl.
type EquityPoint struct {
	Ts     time.Time `json:"ts"`
	Equity float64   `json:"equity"`
}

// Ledger appends trade events and the derived equity curve. It never
// rewrites history; every method is an append.
type Ledger struct {
	tradesPath string
	equityPath string
}

func New(tradesPath, equityPath string) *Ledger {
	return &Ledger{tradesPath: tradesPath, equityPath: equityPath}
}

// AppendOpen appends an open event.
func (l *Ledger) AppendOpen(ev OpenEvent) error {
	ev.Type = "open"
	if err := ioatomic.AppendJSONL(l.tradesPath, ev); err != nil {
		log.Error().Err(err).Str("symbol", ev.Symbol).Msg("ledger: append open failed")
		return err
	}
	return nil
}

// AppendClose appends a close event and advances the equity curve by
// equity *= (1 + pnl), reading the last equity point (defaulting to
// 1.0 on a fresh ledger) as the prior value.
func (l *Ledger) AppendClose(ev CloseEvent, now time.Time) error {
	ev.Type = "close"
	if err := ioatomic.AppendJSONL(l.tradesPath, ev); err != nil {
		log.Error().Err(err).Str("symbol", ev.Symbol).Msg("ledger: append close failed")
		return err
	}

	last, err := l.LastEquity()
	if err != nil {
		log.Warn().Err(err).Msg("ledger: reading last equity failed, assuming 1.0")
		last = 1.0
	}
	pnl := ev.Pct / 100.0
	next := last * (1 + pnl)
	if err := ioatomic.AppendJSONL(l.equityPath, EquityPoint{Ts: now, Equity: next}); err != nil {
		log.Error().Err(err).Msg("ledger: append equity point failed")
		return err
	}
	return nil
}

// LastEquity returns the most recent equity_curve.jsonl value, or 1.0
// if the curve does not yet exist.
func (l *Ledger) LastEquity() (float64, error) {
	points, err := ReadEquityCurve(l.equityPath)
	if err != nil {
		return 0, err
	}
	if len(points) == 0 {
		return 1.0, nil
	}
	return points[len(points)-1].Equity, nil
}

// PeakEquity returns the historical maximum equity observed in the
// curve, or 1.0 if it does not yet exist.
func (l *Ledger) PeakEquity() (float64, error) {
	points, err := ReadEquityCurve(l.equityPath)
	if err != nil {
		return 0, err
	}
	peak := 1.0
	for _, p := range points {
		if p.Equity > peak {
			peak = p.Equity
		}
	}
	return peak, nil
}

// ReadEquityCurve reads every point of equity_curve.jsonl in file
// order. A missing file reads as empty, not an error.
func ReadEquityCurve(path string) ([]EquityPoint, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	points := make([]EquityPoint, 0, len(lines))
	for _, line := range lines {
		var p EquityPoint
		if jerr := json.Unmarshal([]byte(line), &p); jerr != nil {
			continue
		}
		points = append(points, p)
	}
	return points, nil
}

// ReadLastCloses reads trades.jsonl and returns up to the last n
// close events, oldest first. Scratch closes (IsScratch) are included;
// callers that gate on profit factor must filter them out themselves
// (see internal/risk.profitFactor).
func ReadLastCloses(path string, n int) ([]CloseEvent, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	closes := make([]CloseEvent, 0, n)
	for _, line := range lines {
		var probe struct {
			Type string `json:"type"`
		}
		if jerr := json.Unmarshal([]byte(line), &probe); jerr != nil || probe.Type != "close" {
			continue
		}
		var c CloseEvent
		if jerr := json.Unmarshal([]byte(line), &c); jerr != nil {
			continue
		}
		closes = append(closes, c)
	}
	if len(closes) > n {
		closes = closes[len(closes)-n:]
	}
	return closes, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}
