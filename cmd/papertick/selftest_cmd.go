package main

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/papertick/internal/selftest"
)

// newSelftestCmd runs the offline resilience checks against a
// throwaway reports root and writes a markdown report, without ever
// touching a real exchange. Adapted from cryptorun's
// cmd_selftest.go: same report-then-exit-code pattern, pointed at this
// engine's own validators.
func newSelftestCmd() *cobra.Command {
	var reportPath string

	cmd := &cobra.Command{
		Use: "selftest",
		Short: "Run offline resilience checks and write a markdown report",
		RunE: func(cmd *cobra.Command, args []string) error {
			applyLogLevel(cmd)

			reportsRoot, _ := cmd.Flags().GetString("reports-root")
			if reportPath == "" {
				reportPath = filepath.Join(reportsRoot, "selftest_report.md")
			}

			runner := selftest.NewRunner()
			results, err := runner.RunAllTests()
			if err != nil {
				return fmt.Errorf("selftest: run: %w", err)
			}
			if err := runner.GenerateReport(results, reportPath); err != nil {
				return fmt.Errorf("selftest: write report: %w", err)
			}

			for _, t := range results.Tests {
				ev := log.Info()
				if t.Status == "FAIL" {
					ev = log.Error()
				}
				ev.Str("test", t.Name).Str("status", t.Status).Dur("duration", t.Duration).Msg(t.Message)
			}
			log.Info().
				Str("overall", results.OverallStatus).
				Int("passed", results.PassedCount).
				Int("failed", results.FailedCount).
				Str("report", reportPath).
				Msg("selftest complete")

			if results.OverallStatus != "PASS" {
				return fmt.Errorf("selftest: %d of %d checks failed", results.FailedCount, results.TotalCount)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&reportPath, "report", "", "Output path for the markdown report (default <reports-root>/selftest_report.md)")
	return cmd
}
