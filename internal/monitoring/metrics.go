package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Evaluation outcomes
const (
	OutcomeValid   = "valid"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

var (
	// Search metrics
	evaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optimizer_evaluations_total",
			Help: "Total number of candidate evaluations by outcome",
		},
		[]string{"outcome"},
	)

	backtestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "optimizer_backtest_duration_seconds",
			Help:    "Distribution of single backtest durations",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
	)

	bestFitness = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "optimizer_best_fitness",
			Help: "Best fitness found so far",
		},
		[]string{"method"},
	)

	progressRatio = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "optimizer_progress_ratio",
			Help: "Completed fraction of the iteration budget",
		},
		[]string{"method"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optimizer_errors_total",
			Help: "Total number of recovered errors by category",
		},
		[]string{"category"},
	)
)

func init() {
	// Register metrics
	prometheus.MustRegister(evaluationsTotal)
	prometheus.MustRegister(backtestDuration)
	prometheus.MustRegister(bestFitness)
	prometheus.MustRegister(progressRatio)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler handles Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordEvaluation records one candidate evaluation and its backtest time
func RecordEvaluation(outcome string, elapsed time.Duration) {
	evaluationsTotal.WithLabelValues(outcome).Inc()
	backtestDuration.Observe(elapsed.Seconds())
}

// UpdateBestFitness updates the best fitness gauge of a search method
func UpdateBestFitness(method string, fitness float64) {
	bestFitness.WithLabelValues(method).Set(fitness)
}

// UpdateProgress updates the progress gauge of a search method
func UpdateProgress(method string, current, total int) {
	if total <= 0 {
		return
	}
	progressRatio.WithLabelValues(method).Set(float64(current) / float64(total))
}

// RecordError records an error metric
func RecordError(category string) {
	errorsTotal.WithLabelValues(category).Inc()
}
