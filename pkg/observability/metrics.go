package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loopforge/conveyor/pkg/domain"
)

// Metrics exposes pipeline outcomes as Prometheus collectors, fed through
// the engine's run hooks.
type Metrics struct {
	contextResults *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	decisions      *prometheus.CounterVec
	lastRunSuccess prometheus.Gauge
}

// NewMetrics creates and registers the collectors on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		contextResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conveyor_context_results_total",
				Help: "Execution context terminal states by stage and status",
			},
			[]string{"stage", "status"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "conveyor_stage_duration_seconds",
				Help: "Duration of stage runs",
			},
			[]string{"stage"},
		),
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conveyor_release_decisions_total",
				Help: "Release gate verdicts",
			},
			[]string{"release_created"},
		),
		lastRunSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "conveyor_last_run_success",
				Help: "1 if the most recent run succeeded, 0 otherwise",
			},
		),
	}
	reg.MustRegister(m.contextResults, m.stageDuration, m.decisions, m.lastRunSuccess)
	return m
}

// Hooks returns run hooks that feed the collectors. Combine with other
// hooks via Merge when needed.
func (m *Metrics) Hooks() domain.RunHooks {
	return domain.RunHooks{
		OnStageFinish: func(_ context.Context, e *domain.StageEvent) {
			m.stageDuration.WithLabelValues(e.Stage).Observe(e.Duration.Seconds())
		},
		OnContextFinish: func(_ context.Context, e *domain.ContextEvent) {
			m.contextResults.WithLabelValues(e.Stage, e.Status).Inc()
		},
		OnDecision: func(_ context.Context, e *domain.DecisionEvent) {
			if e.ReleaseCreated {
				m.decisions.WithLabelValues("true").Inc()
			} else {
				m.decisions.WithLabelValues("false").Inc()
			}
		},
	}
}

// LastRunSuccess returns the gauge tracking the most recent run outcome.
func (m *Metrics) LastRunSuccess() prometheus.Gauge {
	return m.lastRunSuccess
}

// ObserveRun records the overall outcome of a finished run.
func (m *Metrics) ObserveRun(summary *domain.RunSummary) {
	if summary.Success {
		m.lastRunSuccess.Set(1)
	} else {
		m.lastRunSuccess.Set(0)
	}
}

// Merge combines hook sets; every non-nil callback of each set runs.
func Merge(sets ...domain.RunHooks) domain.RunHooks {
	var merged domain.RunHooks
	for _, h := range sets {
		h := h
		merged = domain.RunHooks{
			OnStageStart:    chainStage(merged.OnStageStart, h.OnStageStart),
			OnStageFinish:   chainStage(merged.OnStageFinish, h.OnStageFinish),
			OnContextFinish: chainContext(merged.OnContextFinish, h.OnContextFinish),
			OnDecision:      chainDecision(merged.OnDecision, h.OnDecision),
		}
	}
	return merged
}

func chainStage(a, b func(context.Context, *domain.StageEvent)) func(context.Context, *domain.StageEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *domain.StageEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}

func chainContext(a, b func(context.Context, *domain.ContextEvent)) func(context.Context, *domain.ContextEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *domain.ContextEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}

func chainDecision(a, b func(context.Context, *domain.DecisionEvent)) func(context.Context, *domain.DecisionEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *domain.DecisionEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}
