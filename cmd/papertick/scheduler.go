package main

import (
	"context"
	"math/rand"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/papertick/internal/incident"
	"github.com/sawpanic/papertick/internal/observability"
	"github.com/sawpanic/papertick/internal/pipeline"
)

// newRunCmd runs the cooperative bar-edge loop, grounded on the
// teacher's internal/scheduler.Scheduler.Start ticker loop, replaced
// with real jitter, exponential backoff, and a bounded
// consecutive-failure exit instead of cryptorun's 1-minute fixed tick.
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler daemon",
		Long: "Drives the tick pipeline for every configured (symbol, timeframe) pair on a jittered bar-edge loop until a process signal or N consecutive failures.",
		RunE: func(cmd *cobra.Command, args []string) error {
			applyLogLevel(cmd)
			engine, cleanup, err := buildEngine(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runScheduler(ctx, engine)
		},
	}
	return cmd
}

func runScheduler(ctx context.Context, engine *pipeline.Engine) error {
	sched := engine.Cfg.Scheduler
	interval := sched.Interval()
	jitter := sched.Jitter()
	maxBackoff := sched.MaxBackoff()
	maxFails := sched.MaxConsecutiveFails
	if maxFails <= 0 {
		maxFails = 10
	}

	consecutiveFails := 0
	backoff := time.Duration(0)

	log.Info().Dur("interval", interval).Dur("jitter", jitter).Int("max_consecutive_fails", maxFails).Msg("scheduler starting")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("scheduler stopped")
			return nil
		default:
		}

		now := time.Now().UTC()
		tickFailed := false
		var lastIssues []incident.Issue
		var lastTickID string
		var lastSymbol string

		for _, symbol := range engine.Cfg.Universe.Symbols {
			timeframe := engine.Cfg.Universe.Timeframe
			result, err := runOneTick(ctx, engine, symbol, timeframe, now)
			if err != nil {
				tickFailed = true
				engine.Obs.LogIncident(incident.New(incident.KindUnexpected, "scheduler.tick", err).WithSymbol(symbol, timeframe))
				continue
			}
			if result.Skipped {
				continue
			}
			lastIssues = result.Issues
			lastSymbol = symbol
			if result.Snapshot != nil {
				if v, ok := result.Snapshot.Get("meta.tick_id"); ok {
					if s, ok := v.(string); ok {
						lastTickID = s
					}
				}
			}
		}

		if tickFailed {
			consecutiveFails++
		} else {
			consecutiveFails = 0
			backoff          = 0
			engine.Obs.WriteHeartbeat(now)
		}

		engine.Obs.WriteLoopHealth(now, observability.LoopHealth{
			Alive: true,
			LastTickID: lastTickID,
			LastTickSymbol: lastSymbol,
			ConsecutiveFails: consecutiveFails,
			Issues: lastIssues,
		})

		if consecutiveFails >= maxFails {
			log.Error().Int("consecutive_fails", consecutiveFails).Msg("scheduler exiting after too many consecutive failures; relying on supervisor restart")
			return nil
		}

		sleep := interval
		if tickFailed {
			sleep   = nextBackoff(backoff, maxBackoff)
			backoff = sleep
		}
		sleep += jitterDuration(jitter)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(sleep):
		}
	}
}

// runOneTick wraps Engine.RunTick with a panic guard: an unhandled bug
// inside the pipeline is caught here, logged as an incident with a
// traceback, and surfaced to the caller as an error rather than
// crashing the whole daemon, per the disposition table.
func runOneTick(ctx context.Context, engine *pipeline.Engine, symbol, timeframe string, now time.Time) (result pipeline.TickResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicToError(r)
		}
	}()
	return engine.RunTick(ctx, symbol, timeframe, now)
}

// nextBackoff doubles the previous backoff (starting at 5s when there
// is no previous backoff) up to max, per the exponential-backoff ceiling.
func nextBackoff(prev, max time.Duration) time.Duration {
	next := prev * 2
	if next <= 0 {
		next = 5 * time.Second
	}
	if next > max {
		next = max
	}
	return next
}

// jitterDuration returns a uniform random duration in [-j, +j].
func jitterDuration(j time.Duration) time.Duration {
	if j <= 0 {
		return 0
	}
	n := int64(j)
	return time.Duration(rand.Int63n(2*n+1) - n)
}
