package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Metrics is an in-process Prometheus registry gathered each tick into
// loop_health.json's metrics group. There is no HTTP exposition here;
// a dashboard that wants to scrape /metrics is expected to read the
// gathered snapshot some other way.
// Modeled on cryptorun's internal/interfaces/http/metrics.go
// MetricsRegistry, trimmed to the gauges/counters a tick pipeline
// actually produces.
type Metrics struct {
	registry *prometheus.Registry

	TickDuration       *prometheus.HistogramVec
	TickErrors         *prometheus.CounterVec
	TicksTotal         prometheus.Counter
	ProviderErrors     *prometheus.CounterVec
	OpenPositions      prometheus.Gauge
	SelfTrustScore     prometheus.Gauge
	OpportunityDensity *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		TickDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "papertick_tick_duration_seconds",
			Help: "Duration of one tick pipeline run.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"symbol", "timeframe"}),
		TickErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "papertick_tick_errors_total",
			Help: "Total tick failures by incident kind.",
		}, []string{"kind"}),
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "papertick_ticks_total",
			Help: "Total ticks processed.",
		}),
		ProviderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "papertick_provider_errors_total",
			Help: "Total OHLCV provider fetch failures.",
		}, []string{"provider", "class"}),
		OpenPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "papertick_open_positions",
			Help: "Number of currently open positions across all (symbol, timeframe) pairs.",
		}),
		SelfTrustScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "papertick_self_trust_score",
			Help: "Most recent self-trust calibration score.",
		}),
		OpportunityDensity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "papertick_opportunity_density",
			Help: "Per-regime opportunity density EWMA.",
		}, []string{"regime"}),
	}
	reg.MustRegister(
		m.TickDuration, m.TickErrors, m.TicksTotal, m.ProviderErrors,
		m.OpenPositions, m.SelfTrustScore, m.OpportunityDensity,
	)
	return m
}

// StepTimer times one tick and records it on Stop.
type StepTimer struct {
	m         *Metrics
	symbol    string
	timeframe string
	start     time.Time
}

func (m *Metrics) StartTick(symbol, timeframe string) *StepTimer {
	m.TicksTotal.Inc()
	return &StepTimer{m: m, symbol: symbol, timeframe: timeframe, start: time.Now()}
}

func (t *StepTimer) Stop() time.Duration {
	d := time.Since(t.start)
	t.m.TickDuration.WithLabelValues(t.symbol, t.timeframe).Observe(d.Seconds())
	return d
}

// Snapshot gathers the registry into a flat map suitable for the
// snapshot's metrics group and loop_health.json, since neither the
// core nor its consumers scrape a live /metrics endpoint.
func (m *Metrics) Snapshot() map[string]any {
	families, err := m.registry.Gather()
	out := map[string]any{}
	if err != nil {
		return out
	}
	for _, fam := range families {
		out[fam.GetName()] = flattenFamily(fam)
	}
	return out
}

func flattenFamily(fam *dto.MetricFamily) any {
	if len(fam.Metric) == 1 && len(fam.Metric[0].Label) == 0 {
		return metricValue(fam.Metric[0])
	}
	byLabels := make([]map[string]any, 0, len(fam.Metric))
	for _, mm := range fam.Metric {
		entry := map[string]any{"value": metricValue(mm)}
		for _, lp := range mm.Label {
			entry[lp.GetName()] = lp.GetValue()
		}
		byLabels = append(byLabels, entry)
	}
	return byLabels
}

func metricValue(mm *dto.Metric) float64 {
	switch {
	case mm.Counter != nil:
		return mm.Counter.GetValue()
	case mm.Gauge != nil:
		return mm.Gauge.GetValue()
	case mm.Histogram != nil:
		return mm.Histogram.GetSampleSum()
	default:
		return 0
	}
}
