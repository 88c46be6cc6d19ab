package metrics

import (
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MetricsNamespace = "callcheck"
)

var (
	Debug bool = true

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "runs_total",
		Help:      "Count of pipeline runs by terminal status",
	}, []string{
		"status",
	})

	runsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "runs_active",
		Help:      "Number of pipeline runs currently executing",
	})

	stageFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "stage_failures_total",
		Help:      "Count of stage failures by stage and kind",
	}, []string{
		"stage",
		"kind",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Duration of the last pipeline run",
	}, []string{
		"run_id",
	})

	runAccuracy = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_accuracy_score",
		Help:      "Accuracy score of the last pipeline run",
	}, []string{
		"run_id",
	})
)

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

func RecordRunStarted() {
	runsActive.Inc()
}

func RecordRun(runID string, status string, accuracy float64, duration time.Duration) {
	if Debug {
		log.Debug("metric record",
			"m", "runs_total",
			"run_id", runID,
			"status", status,
			"accuracy", accuracy,
			"duration", duration)
	}
	runsActive.Dec()
	runsTotal.WithLabelValues(status).Inc()
	runDuration.WithLabelValues(runID).Set(duration.Seconds())
	runAccuracy.WithLabelValues(runID).Set(accuracy)
}

func RecordStageFailure(stage string, kind string) {
	if Debug {
		log.Debug("metric inc",
			"m", "stage_failures_total",
			"stage", stage,
			"kind", kind)
	}
	stageFailuresTotal.WithLabelValues(stage, kind).Inc()
}
