package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/papertick/internal/config"
	"github.com/sawpanic/papertick/internal/ledger"
	"github.com/sawpanic/papertick/internal/observability"
	"github.com/sawpanic/papertick/internal/pipeline"
	"github.com/sawpanic/papertick/internal/providers"
	"github.com/sawpanic/papertick/internal/providers/binance"
	"github.com/sawpanic/papertick/internal/providers/kraken"
	"github.com/sawpanic/papertick/internal/signals"
	"github.com/sawpanic/papertick/internal/state"
)

// buildEngine wires every stateless config value and persistent store
// an Engine needs, reading the --reports-root/--config/--mode flags
// common to every subcommand that touches the pipeline.
func buildEngine(cmd *cobra.Command) (*pipeline.Engine, func(), error) {
	reportsRoot, _ := cmd.Flags().GetString("reports-root")
	configPath, _ := cmd.Flags().GetString("config")
	modeFlag, _ := cmd.Flags().GetString("mode")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	modeStr := modeFlag
	if modeStr == "" {
		modeStr = os.Getenv("MODE")
	}
	mode := config.ModeFromEnv(modeStr)

	if err := os.MkdirAll(reportsRoot, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create reports root: %w", err)
	}
	paths := state.NewPaths(reportsRoot, mode)

	cooldown, err := providers.LoadCooldownStore(paths.ProviderCooldown())
	if err != nil {
		return nil, nil, fmt.Errorf("load cooldown store: %w", err)
	}
	stickiness, err := providers.LoadStickinessStore(paths.OHLCVProviderState())
	if err != nil {
		return nil, nil, fmt.Errorf("load stickiness store: %w", err)
	}
	cache := providers.NewPayloadCache()

	providerList := buildProviders(cfg.Providers.Priority)
	fetcher := providers.NewFetcher(providerList, cooldown, stickiness, cache)

	reg := signals.NewRegistry(signals.BuiltinDefinitions())

	l := ledger.New(paths.TradeLog(), paths.EquityCurve())

	var mirror *ledger.PostgresMirror
	if dsn := os.Getenv("PAPERTICK_POSTGRES_DSN"); dsn != "" {
		mirror, err = ledger.OpenPostgresMirror(dsn, 0)
		if err != nil {
			log.Warn().Err(err).Msg("postgres mirror disabled: connect failed")
			mirror = nil
		}
	}

	metrics := observability.NewMetrics()
	obs := observability.NewRecorder(paths, metrics)

	engine, err := pipeline.NewEngine(paths, cfg, fetcher, reg, l, mirror, obs, metrics)
	if err != nil {
		return nil, nil, fmt.Errorf("construct engine: %w", err)
	}

	cleanup := func() {
		if mirror != nil {
			mirror.Close()
		}
	}
	return engine, cleanup, nil
}

// buildProviders resolves the configured provider priority names
// into concrete clients. An unknown name is skipped rather
// than treated as fatal: operators editing priority order by hand
// should not be able to take the whole loop down with a typo.
func buildProviders(priority []string) []providers.Provider {
	available := map[string]providers.Provider{
		"kraken": kraken.NewClient(kraken.Config{}),
		"binance": binance.NewClient(),
	}
	if len(priority) == 0 {
		priority = []string{"binance", "kraken"}
	}
	out := make([]providers.Provider, 0, len(priority))
	for _, name := range priority {
		if p, ok := available[name]; ok {
			out = append(out, p)
			continue
		}
		log.Warn().Str("provider", name).Msg("unknown provider in priority list, skipping")
	}
	return out
}
