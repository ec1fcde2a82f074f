package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// newTickCmd runs exactly one tick per configured symbol and prints
// the resulting snapshot, for scripting and manual inspection without
// standing up the daemon loop.
func newTickCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use: "tick",
		Short: "Run a single tick for every configured symbol and print the snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			applyLogLevel(cmd)
			engine, cleanup, err := buildEngine(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			now := time.Now().UTC()
			timeframe := engine.Cfg.Universe.Timeframe
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", " ")

			for _, symbol := range engine.Cfg.Universe.Symbols {
				result, err := engine.RunTick(cmd.Context(), symbol, timeframe, now)
				if err != nil {
					return fmt.Errorf("tick %s: %w", symbol, err)
				}
				if result.Skipped {
					fmt.Fprintf(os.Stderr, "%s: skipped (no new bar)\n", symbol)
					continue
				}
				if err := enc.Encode(result.Snapshot); err != nil {
					return fmt.Errorf("encode snapshot for %s: %w", symbol, err)
				}
			}
			return nil
		},
	}
	return cmd
}
