// Package config loads the human-editable configuration documents
// (council weights, per-regime entry thresholds, gates, tuner policy)
// at process start, merged over baked-in Go-literal defaults. Modeled
// on cryptorun's internal/application.LoadAPIsConfig /
// LoadCacheConfig pattern: a populated default struct is decoded into
// directly, so a YAML document that omits a key leaves the default in
// place and an unknown key is silently ignored by the decoder. Reload
// is process-restart only; there is no hot-reload path in the core.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sawpanic/papertick/internal/council"
	"github.com/sawpanic/papertick/internal/primitives"
	"github.com/sawpanic/papertick/internal/regime"
	"github.com/sawpanic/papertick/internal/state"
	"github.com/sawpanic/papertick/internal/trading"
)

// SchedulerConfig governs the daemon's bar-edge loop.
type SchedulerConfig struct {
	IntervalSeconds     int `yaml:"interval_seconds"`
	JitterSeconds       int `yaml:"jitter_seconds"`
	MaxBackoffSeconds   int `yaml:"max_backoff_seconds"`
	MaxConsecutiveFails int `yaml:"max_consecutive_fails"`
}

func (s SchedulerConfig) Interval() time.Duration { return time.Duration(s.IntervalSeconds) * time.Second }
func (s SchedulerConfig) Jitter() time.Duration { return time.Duration(s.JitterSeconds) * time.Second }
func (s SchedulerConfig) MaxBackoff() time.Duration {
	return time.Duration(s.MaxBackoffSeconds) * time.Second
}

// UniverseConfig names the (symbol, timeframe) pairs the loop drives.
type UniverseConfig struct {
	Symbols   []string `yaml:"symbols"`
	Timeframe string   `yaml:"timeframe"`
	BarsLimit int      `yaml:"bars_limit"`
}

// Config is the full merged configuration threaded through the
// pipeline. Per-tick research overrides are passed as
// function parameters by callers, never read from the environment.
type Config struct {
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
	Universe    UniverseConfig    `yaml:"universe"`
	Council     CouncilConfig     `yaml:"council"`
	Trading     TradingConfig     `yaml:"trading"`
	Regime      RegimeConfig      `yaml:"regime"`
	Opportunity OpportunityConfig `yaml:"opportunity"`
	Compression CompressionConfig `yaml:"compression"`
	Providers   ProvidersConfig   `yaml:"providers"`
}

// CouncilConfig mirrors council.Config with YAML tags; Resolve
// converts it to the package's native type.
type CouncilConfig struct {
	NeutralZone float64 `yaml:"neutral_zone"`
	// Weights/Masks/Gates are deliberately left to council.DefaultConfig
	// unless overridden wholesale below — the regime-keyed maps are
	// cumbersome to express partially in YAML, and a partial override
	// would silently renormalize against an incomplete table. A future
	// revision may add per-regime overrides; until then this tracks
	// only the one scalar cryptorun's tuner is expected to touch.
}

func (c CouncilConfig) Resolve() council.Config {
	cfg := council.DefaultConfig()
	if c.NeutralZone > 0 {
		cfg.NeutralZone = c.NeutralZone
	}
	return cfg
}

// TradingConfig mirrors trading.Config.
type TradingConfig struct {
	AllowOpens            bool    `yaml:"allow_opens"`
	DecayBars             int     `yaml:"decay_bars"`
	StopLossMinConf       float64 `yaml:"stop_loss_min_conf"`
	TakeProfitMinConf     float64 `yaml:"take_profit_min_conf"`
	TakeProfitPriceMinPct float64 `yaml:"take_profit_price_min_pct"`
	TakerFeeBps           float64 `yaml:"taker_fee_bps"`
	SlipBps               float64 `yaml:"slip_bps"`
}

func (t TradingConfig) Resolve() trading.Config {
	cfg := trading.DefaultConfig()
	if !t.AllowOpens {
		cfg.AllowOpens = t.AllowOpens
	}
	if t.DecayBars > 0 {
		cfg.DecayBars = t.DecayBars
	}
	if t.StopLossMinConf > 0 {
		cfg.StopLossMinConf = t.StopLossMinConf
	}
	if t.TakeProfitMinConf > 0 {
		cfg.TakeProfitMinConf = t.TakeProfitMinConf
	}
	if t.TakeProfitPriceMinPct > 0 {
		cfg.TakeProfitPriceMinPct = t.TakeProfitPriceMinPct
	}
	if t.TakerFeeBps > 0 {
		cfg.TakerFeeBps = t.TakerFeeBps
	}
	if t.SlipBps > 0 {
		cfg.SlipBps = t.SlipBps
	}
	return cfg
}

// RegimeConfig mirrors regime.Config.
type RegimeConfig struct {
	MinBars           int     `yaml:"min_bars"`
	ATRWindow         int     `yaml:"atr_window"`
	BBWindow          int     `yaml:"bb_window"`
	ReturnWindow      int     `yaml:"return_window"`
	HighVolZThresh    float64 `yaml:"high_vol_z_thresh"`
	PanicReturnThresh float64 `yaml:"panic_return_thresh"`
	TrendReturnThresh float64 `yaml:"trend_return_thresh"`
}

func (r RegimeConfig) Resolve() regime.Config {
	cfg := regime.DefaultConfig()
	if r.MinBars > 0 {
		cfg.MinBars = r.MinBars
	}
	if r.ATRWindow > 0 {
		cfg.ATRWindow = r.ATRWindow
	}
	if r.BBWindow > 0 {
		cfg.BBWindow = r.BBWindow
	}
	if r.ReturnWindow > 0 {
		cfg.ReturnWindow = r.ReturnWindow
	}
	if r.HighVolZThresh > 0 {
		cfg.HighVolZThresh = r.HighVolZThresh
	}
	if r.PanicReturnThresh < 0 {
		cfg.PanicReturnThresh = r.PanicReturnThresh
	}
	if r.TrendReturnThresh > 0 {
		cfg.TrendReturnThresh = r.TrendReturnThresh
	}
	return cfg
}

// OpportunityConfig governs the time-aware EWMA half-life.
type OpportunityConfig struct {
	HalfLifeMinutes float64 `yaml:"half_life_minutes"`
}

// CompressionConfig governs the compression threshold.
type CompressionConfig struct {
	Threshold float64 `yaml:"threshold"`
}

func (c CompressionConfig) Resolve() float64 {
	if c.Threshold > 0 {
		return c.Threshold
	}
	return primitives.DefaultCompressionThreshold
}

// ProvidersConfig names the fixed priority order.
type ProvidersConfig struct {
	Priority []string `yaml:"priority"`
}

// Default returns the baked-in default configuration.
func Default() Config {
	return Config{
		Scheduler: SchedulerConfig{
			IntervalSeconds: 60,
			JitterSeconds: 3,
			MaxBackoffSeconds: 300,
			MaxConsecutiveFails: 10,
		},
		Universe: UniverseConfig{
			Symbols: []string{"BTCUSD", "ETHUSD"},
			Timeframe: "15m",
			BarsLimit: 200,
		},
		Council: CouncilConfig{NeutralZone: 0.30},
		Trading: TradingConfig{AllowOpens: true},
		Opportunity: OpportunityConfig{HalfLifeMinutes: 120},
		Compression: CompressionConfig{Threshold: primitives.DefaultCompressionThreshold},
		Providers: ProvidersConfig{Priority: []string{"binance", "kraken"}},
	}
}

// Load reads path (if it exists) as YAML over Default(): missing
// file, missing keys, and unknown keys are all non-fatal.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// ModeFromEnv resolves MODE, defaulting to PAPER.
func ModeFromEnv(v string) state.Mode {
	switch v {
	case string(state.ModeLive):
		return state.ModeLive
	case string(state.ModeDryRun):
		return state.ModeDryRun
	default:
		return state.ModePaper
	}
}
