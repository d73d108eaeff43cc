package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/xela07ax/rp-community-console/internal/domain"
)

type Metrics struct {
	// Latency: сколько заняло применение операции (включая ретраи CAS)
	OperationDuration *prometheus.HistogramVec

	// Traffic: завершенные переходы по статусам назначения
	TransitionsTotal *prometheus.CounterVec

	// Решения рецензентов и финальных утверждающих
	DecisionsTotal *prometheus.CounterVec

	// Errors: классификация отказов workflow
	ErrorTotal *prometheus.CounterVec

	// Конфликты оптимистичной блокировки (повод насторожиться при росте)
	VersionConflicts prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern — если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		OperationDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "console_workflow_operation_duration_seconds",
			Help:    "Histogram of workflow operation latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"action", "result"}),

		TransitionsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "console_workflow_transitions_total",
			Help: "Total number of completed status transitions.",
		}, []string{"action", "to_status"}),

		DecisionsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "console_workflow_decisions_total",
			Help: "Total number of recorded decisions by outcome.",
		}, []string{"kind", "outcome"}), // kind: reviewer|final; outcome: approved|denied

		ErrorTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "console_workflow_errors_total",
			Help: "Total number of workflow errors by type.",
		}, []string{"type"}),

		VersionConflicts: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "console_workflow_version_conflicts_total",
			Help: "Total number of optimistic lock conflicts on response records.",
		}),
	}
}

// errorType превращает ошибку workflow в метку метрики.
func errorType(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrDuplicateDecision):
		return "duplicate_decision"
	case errors.Is(err, domain.ErrRecordNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrVersionConflict):
		return "version_conflict"
	case errors.Is(err, domain.ErrInvalidAnswer):
		return "invalid_answer"
	default:
		return "internal"
	}
}
