// Package metrics exposes Prometheus collectors for HTTP traffic and the
// outbound PDF and assistant calls.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
	OutcomeEmpty = "empty"
)

var (
	// Registry holds the application collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "facturas",
		Subsystem: "http",
		Name:      "inflight_requests",
		Help:      "Current number of in-flight HTTP requests.",
	})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "facturas",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests handled.",
	}, []string{"method", "path", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "facturas",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"method", "path"})

	pdfRenders = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "facturas",
		Subsystem: "pdf",
		Name:      "renders_total",
		Help:      "PDF generations by outcome.",
	}, []string{"outcome"})

	assistantQueries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "facturas",
		Subsystem: "assistant",
		Name:      "queries_total",
		Help:      "Assistant questions by outcome.",
	}, []string{"outcome"})

	assistantDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "facturas",
		Subsystem: "assistant",
		Name:      "query_duration_seconds",
		Help:      "Duration of assistant round trips.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 8),
	})

	invoicesIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "facturas",
		Subsystem: "invoices",
		Name:      "issued_total",
		Help:      "Invoices issued with a CAI number.",
	})

	caiExpiring = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "facturas",
		Subsystem: "cai",
		Name:      "expiring",
		Help:      "CAIs needing renewal at the last watch run.",
	})
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		pdfRenders,
		assistantQueries,
		assistantDuration,
		invoicesIssued,
		caiExpiring,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler records count, duration and in-flight gauge per route.
// The route label is the ServeMux pattern when one matched.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		path := routeLabel(r)
		method := strings.ToUpper(r.Method)
		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	})
}

func RecordPDF(outcome string) {
	pdfRenders.WithLabelValues(outcome).Inc()
}

func RecordAssistant(outcome string, d time.Duration) {
	assistantQueries.WithLabelValues(outcome).Inc()
	assistantDuration.Observe(d.Seconds())
}

func RecordInvoiceIssued() {
	invoicesIssued.Inc()
}

func SetCAIExpiring(n int) {
	caiExpiring.Set(float64(n))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// routeLabel keeps label cardinality bounded: the matched pattern without
// its method, else the first path segment.
func routeLabel(r *http.Request) string {
	if p := r.Pattern; p != "" {
		if i := strings.IndexByte(p, ' '); i >= 0 {
			p = p[i+1:]
		}
		return p
	}
	trimmed := strings.Trim(r.URL.Path, "/")
	if trimmed == "" {
		return "/"
	}
	return "/" + strings.SplitN(trimmed, "/", 2)[0]
}
