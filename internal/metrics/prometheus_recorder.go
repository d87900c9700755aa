package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "jellsite"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once              sync.Once
	stageDuration     *prom.HistogramVec
	buildDuration     prom.Histogram
	stageResults      *prom.CounterVec
	buildOutcome      *prom.CounterVec
	units             *prom.GaugeVec
	renderConcurrency prom.Gauge
	rebuildTriggers   *prom.CounterVec
	rebuildCoalesced  prom.Counter
	generation        prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		})
		pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"})
		pr.units = prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "units",
			Help:      "Content units in the last successful build by kind",
		}, []string{"kind"})
		pr.renderConcurrency = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "render_concurrency",
			Help:      "Render workers used by the last build",
		})
		pr.rebuildTriggers = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "rebuild_triggers_total",
			Help:      "Rebuild requests by source",
		}, []string{"source"})
		pr.rebuildCoalesced = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "rebuild_coalesced_total",
			Help:      "Rebuild requests folded into an already pending rerun",
		})
		pr.generation = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "livereload_generation",
			Help:      "Current live-reload generation",
		})
		reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.stageResults, pr.buildOutcome,
			pr.units, pr.renderConcurrency, pr.rebuildTriggers, pr.rebuildCoalesced, pr.generation)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome OutcomeLabel) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) SetUnits(kind string, n int) {
	if p == nil || p.units == nil {
		return
	}
	p.units.WithLabelValues(kind).Set(float64(n))
}

func (p *PrometheusRecorder) SetRenderConcurrency(n int) {
	if p == nil || p.renderConcurrency == nil {
		return
	}
	p.renderConcurrency.Set(float64(n))
}

func (p *PrometheusRecorder) IncRebuildTrigger(source string) {
	if p == nil || p.rebuildTriggers == nil {
		return
	}
	p.rebuildTriggers.WithLabelValues(source).Inc()
}

func (p *PrometheusRecorder) IncRebuildCoalesced() {
	if p == nil || p.rebuildCoalesced == nil {
		return
	}
	p.rebuildCoalesced.Inc()
}

func (p *PrometheusRecorder) SetGeneration(g uint64) {
	if p == nil || p.generation == nil {
		return
	}
	p.generation.Set(float64(g))
}
