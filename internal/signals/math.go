package signals

import (
	"fmt"
	"math"

	"github.com/sawpanic/papertick/internal/providers"
)

func closes(bars []providers.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

func sma(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := sma(values)
	sumSq := 0.0
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)-1))
}

// returnOver computes the fractional return from lookback bars ago to
// the newest bar. Requires at least lookback+1 bars.
func returnOver(bars []providers.Bar, lookback int) (float64, error) {
	if len(bars) < lookback+1 {
		return 0, fmt.Errorf("signals: need %d bars, have %d", lookback+1, len(bars))
	}
	from := bars[len(bars)-1-lookback].Close
	to := bars[len(bars)-1].Close
	if from == 0 {
		return 0, fmt.Errorf("signals: zero base price")
	}
	return (to - from) / from, nil
}

func tail(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}
