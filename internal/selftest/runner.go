// Package selftest runs offline resilience checks against a throwaway
// reports directory, with no network access. Adapted from cryptorun's
// internal/application/selftest.Runner: the same Validator interface
// and markdown report shape, re-pointed at this engine's scenarios
// (fresh start, atomic-write round-trip, self-trust replay) instead of
// cryptorun's universe/gate/menu checks.
package selftest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TestResult is the outcome of one validator.
type TestResult struct {
	Name      string        `json:"name"`
	Status    string        `json:"status"` // PASS, FAIL
	Duration  time.Duration `json:"duration"`
	Message   string        `json:"message,omitempty"`
	Details   []string      `json:"details,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// TestResults aggregates every validator's outcome.
type TestResults struct {
	OverallStatus string        `json:"overall_status"`
	TotalCount    int           `json:"total_count"`
	PassedCount   int           `json:"passed_count"`
	FailedCount   int           `json:"failed_count"`
	StartTime     time.Time     `json:"start_time"`
	EndTime       time.Time     `json:"end_time"`
	Duration      time.Duration `json:"duration"`
	Tests         []TestResult  `json:"tests"`
}

// Validator is one offline check.
type Validator interface {
	Name() string
	Validate() TestResult
}

// Runner executes every registered Validator against a temp reports
// root that NewRunner creates once and every run reuses.
type Runner struct {
	validators []Validator
}

func NewRunner() *Runner {
	root, err := os.MkdirTemp("", "papertick-selftest-*")
	if err != nil {
		root = filepath.Join(os.TempDir(), "papertick-selftest")
	}
	return &Runner{
		validators: []Validator{
			NewFreshStartValidator(root),
			NewAtomicityValidator(root),
			NewSelfTrustReplayValidator(root),
		},
	}
}

func (r *Runner) RunAllTests() (*TestResults, error) {
	results := &TestResults{
		StartTime: time.Now(),
		Tests: make([]TestResult, 0, len(r.validators)),
	}
	for _, v := range r.validators {
		result := v.Validate()
		results.Tests = append(results.Tests, result)
		switch result.Status {
		case "PASS":
			results.PassedCount++
		case "FAIL":
			results.FailedCount++
		}
	}
	results.EndTime = time.Now()
	results.Duration = results.EndTime.Sub(results.StartTime)
	results.TotalCount = len(results.Tests)
	if results.FailedCount == 0 {
		results.OverallStatus = "PASS"
	} else {
		results.OverallStatus = "FAIL"
	}
	return results, nil
}

func (r *Runner) GenerateReport(results *TestResults, outputPath string) error {
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("selftest: create report dir: %w", err)
		}
	}

	var sb strings.Builder
	sb.WriteString("# papertick Self-Test Report\n\n")
	sb.WriteString(fmt.Sprintf("**Generated:** %s\n", results.EndTime.Format("2006-01-02 15:04:05 UTC")))
	sb.WriteString(fmt.Sprintf("**Duration:** %s\n", results.Duration.Round(time.Millisecond)))
	sb.WriteString(fmt.Sprintf("**Overall Status:** %s\n\n", results.OverallStatus))
	sb.WriteString("## Summary\n\n")
	sb.WriteString(fmt.Sprintf("- **Total:** %d\n", results.TotalCount))
	sb.WriteString(fmt.Sprintf("- **Passed:** %d\n", results.PassedCount))
	sb.WriteString(fmt.Sprintf("- **Failed:** %d\n\n", results.FailedCount))
	sb.WriteString("## Test Results\n\n")
	for _, t := range results.Tests {
		icon := "PASS"
		if t.Status == "FAIL" {
			icon = "FAIL"
		}
		sb.WriteString(fmt.Sprintf("### [%s] %s\n\n", icon, t.Name))
		sb.WriteString(fmt.Sprintf("- **Duration:** %s\n", t.Duration.Round(time.Millisecond)))
		if t.Message != "" {
			sb.WriteString(fmt.Sprintf("- **Message:** %s\n", t.Message))
		}
		for _, d := range t.Details {
			sb.WriteString(fmt.Sprintf(" - %s\n", d))
		}
		sb.WriteString("\n")
	}

	return os.WriteFile(outputPath, []byte(sb.String()), 0o644)
}
