// Command papertick runs the autonomous paper-trading engine: a
// cooperative bar-edge loop driving a regime-aware council of signals
// against OHLCV data, one tick at a time, for a configured universe of
// (symbol, timeframe) pairs. Grounded on cryptorun's
// cmd/cryptorun/main.go: the same zerolog ConsoleWriter setup and
// cobra root command, trimmed to the handful of subcommands a
// single-purpose daemon needs instead of cryptorun's menu-first CLI
// surface.
package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const appName = "papertick"

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out: os.Stderr,
		TimeFormat: time.Kitchen,
		NoColor: !term.IsTerminal(int(os.Stderr.Fd())),
	})

	rootCmd := &cobra.Command{
		Use: appName,
		Short: "Autonomous paper-trading engine for crypto perpetual markets",
		Long: `papertick runs a regime-aware council of signals against live OHLCV
data and executes paper trades on the outcome. There is no interactive
menu: use the subcommands below for both daemon and one-shot use.`,
	}

	rootCmd.PersistentFlags().String("reports-root", "./reports", "Reports root directory for state, logs, and snapshots")
	rootCmd.PersistentFlags().String("config", "./config/papertick.yaml", "Path to the YAML config overlay")
	rootCmd.PersistentFlags().String("mode", "", "Override MODE env var (PAPER|DRY_RUN|LIVE)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug|info|warn|error)")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newTickCmd())
	rootCmd.AddCommand(newSelftestCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func applyLogLevel(cmd *cobra.Command) {
	levelStr, _ := cmd.Flags().GetString("log-level")
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
