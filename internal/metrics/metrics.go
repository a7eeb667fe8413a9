package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/mikey/phish-guard/internal/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "phish_guard"

// Recorder collects detection metrics on its own registry
type Recorder struct {
	registry     *prometheus.Registry
	urlChecks    *prometheus.CounterVec
	emailChecks  *prometheus.CounterVec
	errors       *prometheus.CounterVec
	checkLatency *prometheus.HistogramVec
}

// NewRecorder creates a recorder with Go runtime and process collectors registered
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		urlChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "url_checks_total",
			Help:      "Total number of URL checks by verdict and source",
		}, []string{"is_phishing", "source"}),
		emailChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_checks_total",
			Help:      "Total number of email checks by label",
		}, []string{"label", "short_circuited"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "check_errors_total",
			Help:      "Total number of failed checks by operation and kind",
		}, []string{"operation", "kind"}),
		checkLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "check_duration_seconds",
			Help:      "Latency of checks by operation",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	r.registry.MustRegister(
		r.urlChecks,
		r.emailChecks,
		r.errors,
		r.checkLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry returns the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveURL records a completed URL check
func (r *Recorder) ObserveURL(result *core.URLAnalysisResult, elapsed time.Duration) {
	r.urlChecks.WithLabelValues(strconv.FormatBool(result.IsPhishing), result.Source).Inc()
	r.checkLatency.WithLabelValues("url").Observe(elapsed.Seconds())
}

// ObserveEmail records a completed email check
func (r *Recorder) ObserveEmail(result *core.EmailAnalysisResult, elapsed time.Duration) {
	r.emailChecks.WithLabelValues(string(result.Label), strconv.FormatBool(result.ShortCircuited)).Inc()
	r.checkLatency.WithLabelValues("email").Observe(elapsed.Seconds())
}

// ObserveError records a failed check
func (r *Recorder) ObserveError(operation string, err error) {
	r.errors.WithLabelValues(operation, ErrorKind(err)).Inc()
}

// ErrorKind maps an error to a low-cardinality label value
func ErrorKind(err error) string {
	var clfErr *core.ClassifierError
	switch {
	case errors.Is(err, core.ErrValidation):
		return "validation"
	case errors.As(err, &clfErr):
		return "classifier"
	default:
		return "internal"
	}
}
