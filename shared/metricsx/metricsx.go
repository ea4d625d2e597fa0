package metricsx

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	queuePublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "incident_queue_published_total",
			Help: "Total processing messages published, by queue provider.",
		},
		[]string{"provider"},
	)
	queueDeleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "incident_queue_deleted_total",
			Help: "Total queue messages acknowledged, by queue provider.",
		},
		[]string{"provider"},
	)
	receiveBatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "incident_worker_receive_batch_size",
			Help:    "Number of messages returned per receive call.",
			Buckets: []float64{0, 1, 2, 5, 10},
		},
	)
	receiveFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "incident_worker_receive_failures_total",
			Help: "Total failed receive calls.",
		},
	)
	messagesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "incident_worker_messages_total",
			Help: "Total processed queue messages, by outcome.",
		},
		[]string{"outcome"},
	)
	processLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "incident_worker_process_duration_seconds",
			Help:    "Per-message processing latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func Register() {
	prometheus.MustRegister(httpRequests, httpLatency, queuePublished, queueDeleted, receiveBatchSize, receiveFailures, messagesProcessed, processLatency)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(lrw, r)
		status := strconv.Itoa(lrw.statusCode)
		httpRequests.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpLatency.WithLabelValues(r.Method, r.URL.Path, status).Observe(time.Since(start).Seconds())
	})
}

func IncQueuePublished(provider string) {
	queuePublished.WithLabelValues(provider).Inc()
}

func IncQueueDeleted(provider string) {
	queueDeleted.WithLabelValues(provider).Inc()
}

func ObserveReceiveBatch(size int) {
	receiveBatchSize.Observe(float64(size))
}

func IncReceiveFailure() {
	receiveFailures.Inc()
}

// IncMessageOutcome records one finished message. Outcome is one of
// processed, failed, skipped.
func IncMessageOutcome(outcome string) {
	messagesProcessed.WithLabelValues(outcome).Inc()
}

func ObserveProcessLatency(d time.Duration) {
	processLatency.Observe(d.Seconds())
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
