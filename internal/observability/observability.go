// Package observability implements the loop-health heartbeat, the
// latest-snapshot mirror, and the incident log. None of these three
// write paths sit on the critical path of decisioning — a failure
// here is logged and swallowed, never propagated back to the caller,
// so it can never block the trade log or state updates.
package observability

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/papertick/internal/incident"
	"github.com/sawpanic/papertick/internal/ioatomic"
	"github.com/sawpanic/papertick/internal/state"
)

// LoopHealth is the body of loop_health.json and its loop/ mirror.
type LoopHealth struct {
	Ts               time.Time        `json:"ts"`
	Alive            bool             `json:"alive"`
	LastTickID       string           `json:"last_tick_id"`
	LastTickSymbol   string           `json:"last_tick_symbol"`
	ConsecutiveFails int              `json:"consecutive_fails"`
	Issues           []incident.Issue `json:"issues,omitempty"`
	Metrics          map[string]any   `json:"metrics,omitempty"`
}

// Heartbeat is the body of loop/heartbeat.json; downstream "loop
// alive" checks use its mtime and this body timestamp together.
type Heartbeat struct {
	Ts time.Time `json:"ts"`
}

// Recorder owns the three write paths above. It is constructed once
// per process and reused across ticks.
type Recorder struct {
	paths   state.Paths
	metrics *Metrics
}

func NewRecorder(paths state.Paths, metrics *Metrics) *Recorder {
	return &Recorder{paths: paths, metrics: metrics}
}

// WriteLoopHealth rewrites loop_health.json and its loop/ mirror. Both
// writes are best-effort: a failure is logged, never returned, so it
// can never block the trade log or state updates.
func (r *Recorder) WriteLoopHealth(now time.Time, lh LoopHealth) {
	lh.Ts = now
	if r.metrics != nil {
		lh.Metrics = r.metrics.Snapshot()
	}
	if err := ioatomic.WriteJSON(r.paths.LoopHealth(), lh); err != nil {
		log.Warn().Err(err).Msg("observability: write loop_health.json failed")
	}
	if err := ioatomic.WriteJSON(r.paths.LoopHealthMirror(), lh); err != nil {
		log.Warn().Err(err).Msg("observability: write loop health mirror failed")
	}
}

// WriteHeartbeat rewrites loop/heartbeat.json after every successful tick.
func (r *Recorder) WriteHeartbeat(now time.Time) {
	if err := ioatomic.WriteJSON(r.paths.Heartbeat(), Heartbeat{Ts: now}); err != nil {
		log.Warn().Err(err).Msg("observability: write heartbeat failed")
	}
}

// WriteLatestSnapshot rewrites latest_snapshot.json. The snapshot is
// frozen once this tick's atomic write completes; it is not appended,
// only replaced.
func (r *Recorder) WriteLatestSnapshot(snap *state.Snapshot) {
	if err := ioatomic.WriteJSON(r.paths.LatestSnapshot(), snap); err != nil {
		log.Warn().Err(err).Msg("observability: write latest_snapshot.json failed")
	}
}

// LogIncident appends one line to incidents.jsonl. The trace id is
// filled in with a fresh uuid when the caller did not already attach a
// tick id, so incidents outside any tick (e.g. startup failures) are
// still individually addressable.
func (r *Recorder) LogIncident(inc incident.Incident) {
	if inc.TickID == "" {
		inc.TickID = uuid.NewString()
	}
	logEvent := log.Warn()
	if inc.Level == "error" {
		logEvent = log.Error()
	}
	logEvent.Str("where", inc.Where).Str("error_type", inc.ErrorType).Str("tick_id", inc.TickID).Msg(inc.Error)

	if r.metrics != nil {
		r.metrics.TickErrors.WithLabelValues(inc.ErrorType).Inc()
	}

	if err := ioatomic.AppendJSONL(r.paths.Incidents(), inc); err != nil {
		log.Error().Err(err).Msg("observability: append incidents.jsonl failed")
	}
}
