package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation plus a lightweight
// snapshot consumed by the admin health endpoint.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	reapplicationsAccepted prometheus.Counter
	reapplicationsDenied   *prometheus.CounterVec
	notificationsTotal     *prometheus.CounterVec
	certificatesIssued     prometheus.Counter

	requestCount         uint64
	reapplicationsOK     uint64
	reapplicationsFailed uint64
	notificationsSent    uint64
	notificationsFailed  uint64
	certificateCount     uint64
}

// HealthSnapshot reports aggregate counters for the admin health endpoint.
type HealthSnapshot struct {
	Requests               uint64 `json:"requests"`
	ReapplicationsAccepted uint64 `json:"reapplications_accepted"`
	ReapplicationsDenied   uint64 `json:"reapplications_denied"`
	NotificationsSent      uint64 `json:"notifications_sent"`
	NotificationsFailed    uint64 `json:"notifications_failed"`
	CertificatesIssued     uint64 `json:"certificates_issued"`
	Goroutines             int    `json:"goroutines"`
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	reapplicationsAccepted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clearance_reapplications_accepted_total",
		Help: "Total accepted per-department reapplications",
	})

	reapplicationsDenied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clearance_reapplications_denied_total",
		Help: "Total denied reapplications by error code",
	}, []string{"code"})

	notificationsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clearance_notifications_total",
		Help: "Total notification deliveries by outcome",
	}, []string{"outcome"})

	certificatesIssued := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clearance_certificates_issued_total",
		Help: "Total clearance certificates issued",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheHits, cacheMisses,
		reapplicationsAccepted, reapplicationsDenied, notificationsTotal, certificatesIssued, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:               registry,
		handler:                handler,
		requestDuration:        requestDuration,
		requestTotal:           requestTotal,
		cacheLatency:           cacheLatency,
		cacheHits:              cacheHits,
		cacheMisses:            cacheMisses,
		reapplicationsAccepted: reapplicationsAccepted,
		reapplicationsDenied:   reapplicationsDenied,
		notificationsTotal:     notificationsTotal,
		certificatesIssued:     certificatesIssued,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
}

// RecordCacheOperation records cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// RecordReapplication counts an accepted or denied reapplication attempt.
func (m *MetricsService) RecordReapplication(accepted bool, code string) {
	if m == nil {
		return
	}
	if accepted {
		m.reapplicationsAccepted.Inc()
		atomic.AddUint64(&m.reapplicationsOK, 1)
		return
	}
	m.reapplicationsDenied.WithLabelValues(code).Inc()
	atomic.AddUint64(&m.reapplicationsFailed, 1)
}

// RecordNotification counts a notification delivery outcome.
func (m *MetricsService) RecordNotification(sent bool) {
	if m == nil {
		return
	}
	if sent {
		m.notificationsTotal.WithLabelValues("sent").Inc()
		atomic.AddUint64(&m.notificationsSent, 1)
		return
	}
	m.notificationsTotal.WithLabelValues("failed").Inc()
	atomic.AddUint64(&m.notificationsFailed, 1)
}

// RecordCertificateIssued counts an issued certificate.
func (m *MetricsService) RecordCertificateIssued() {
	if m == nil {
		return
	}
	m.certificatesIssued.Inc()
	atomic.AddUint64(&m.certificateCount, 1)
}

// Snapshot returns aggregate counters for the health endpoint.
func (m *MetricsService) Snapshot() HealthSnapshot {
	if m == nil {
		return HealthSnapshot{}
	}
	return HealthSnapshot{
		Requests:               atomic.LoadUint64(&m.requestCount),
		ReapplicationsAccepted: atomic.LoadUint64(&m.reapplicationsOK),
		ReapplicationsDenied:   atomic.LoadUint64(&m.reapplicationsFailed),
		NotificationsSent:      atomic.LoadUint64(&m.notificationsSent),
		NotificationsFailed:    atomic.LoadUint64(&m.notificationsFailed),
		CertificatesIssued:     atomic.LoadUint64(&m.certificateCount),
		Goroutines:             runtime.NumGoroutine(),
	}
}
