package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodbridge_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "foodbridge_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "foodbridge_ws_connections",
			Help: "Number of registered realtime connections",
		},
	)

	WSAuthenticatedUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "foodbridge_ws_authenticated_users",
			Help: "Number of users with a bound realtime connection",
		},
	)

	WSMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodbridge_ws_messages_sent_total",
			Help: "Envelopes handed to connections, by message type",
		},
		[]string{"type"},
	)

	WSSendFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "foodbridge_ws_send_failures_total",
			Help: "Sends that failed and purged the connection",
		},
	)

	ChangeEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "foodbridge_change_events_dropped_total",
			Help: "Change events dropped because the bus was full",
		},
	)

	SinkEventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodbridge_sink_events_dropped_total",
			Help: "Change events dropped because a sink queue was full",
		},
		[]string{"sink"},
	)

	hostCPUPercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "foodbridge_host_cpu_percent",
			Help: "Host CPU usage percentage",
		},
	)

	hostMemoryUsedMB = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "foodbridge_host_memory_used_mb",
			Help: "Host memory used in MB",
		},
	)

	hostDiskUsedGB = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "foodbridge_host_disk_used_gb",
			Help: "Host disk used in GB",
		},
	)
)

// UpdateHostMetrics publishes a host sample as gauges.
func UpdateHostMetrics(s models.HostStats) {
	hostCPUPercent.Set(s.CPUPercent)
	hostMemoryUsedMB.Set(float64(s.MemoryUsed) / (1 << 20))
	hostDiskUsedGB.Set(float64(s.DiskUsed) / (1 << 30))
}

// Middleware records request counts and latency keyed by the chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			path = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
