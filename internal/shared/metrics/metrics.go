package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	exportsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "exports_enqueued_total",
		Help: "Export jobs accepted onto the queue.",
	})
	exportsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "exports_completed_total",
		Help: "Export records that reached READY.",
	})
	exportsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exports_failed_total",
		Help: "Export records that reached FAILED, by reason.",
	}, []string{"reason"})
	directDownloads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "exports_direct_downloads_total",
		Help: "Synchronous PDF downloads served.",
	})
	limitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exports_limit_rejections_total",
		Help: "Requests rejected by a rate limit or quota, by kind.",
	}, []string{"kind"})
	stalePending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "exports_stale_pending",
		Help: "PENDING export records older than the stale threshold.",
	})
	renderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "exports_render_duration_seconds",
		Help:    "Time spent rendering a snapshot to PDF.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	})
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "exports_http_request_duration_seconds",
		Help:    "API request latency by method, route and status code.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "code"})
	httpPanics = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exports_http_panics_total",
		Help: "Handler panics recovered, by route.",
	}, []string{"route"})
	artifactBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "exports_artifact_bytes",
		Help:    "Size of stored PDF artifacts.",
		Buckets: prometheus.ExponentialBuckets(16*1024, 2, 10),
	})
)

func IncExportEnqueued()  { exportsEnqueued.Inc() }
func IncExportCompleted() { exportsCompleted.Inc() }
func IncDirectDownload()  { directDownloads.Inc() }

// IncExportFailed counts a FAILED transition.
func IncExportFailed(reason string) { exportsFailed.WithLabelValues(reason).Inc() }

// AddExportsFailed counts n FAILED transitions written in one batch.
func AddExportsFailed(reason string, n int64) {
	exportsFailed.WithLabelValues(reason).Add(float64(n))
}

// IncLimitRejection counts a rejection by kind: rate_limited,
// api_rate_limited, quota_exceeded or export_limit_reached.
func IncLimitRejection(kind string) { limitRejections.WithLabelValues(kind).Inc() }

// SetStalePending records the latest stale PENDING count.
func SetStalePending(n int64) { stalePending.Set(float64(n)) }

// ObserveRenderSeconds records a render duration.
func ObserveRenderSeconds(v float64) {
	if v < 0 {
		v = 0
	}
	renderDuration.Observe(v)
}

// ObserveArtifactBytes records a stored artifact size.
func ObserveArtifactBytes(n int) { artifactBytes.Observe(float64(n)) }

// ObserveHTTP records one API request.
func ObserveHTTP(method, route string, status int, d time.Duration) {
	httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// IncPanic counts a recovered handler panic.
func IncPanic(route string) { httpPanics.WithLabelValues(route).Inc() }

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
