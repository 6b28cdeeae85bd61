package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метки результата.
const (
	ResultSucceeded   = "succeeded"
	ResultFailed      = "failed"
	ResultInterrupted = "interrupted"
	ResultSkipped     = "skipped"
)

var (
	// StepsFinished — завершённые шаги по результату.
	StepsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cascade_steps_finished_total",
		Help: "Deployment steps finished, by result",
	}, []string{"result"})

	// StackPolls — опросы статуса стека по классифицированному статусу.
	StackPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cascade_stack_polls_total",
		Help: "Stack status polls, by classified status",
	}, []string{"status"})

	// SignalsSent — попытки отправки сигнала завершения.
	SignalsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cascade_completion_signals_total",
		Help: "Completion signal delivery attempts, by result",
	}, []string{"result"})

	// StepDuration — длительность шага в секундах.
	StepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cascade_step_duration_seconds",
		Help:    "Wall-clock duration of a deployment step",
		Buckets: []float64{30, 60, 120, 300, 600, 1200, 1800, 3600},
	})

	// ConditionsResolved — разрешённые условия ожидания по итогу.
	ConditionsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cascade_wait_conditions_resolved_total",
		Help: "Completion wait conditions resolved, by state",
	}, []string{"state"})

	// ActiveJobs — количество выполняющихся заданий.
	ActiveJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cascade_active_jobs",
		Help: "Jobs currently being executed",
	})
)
