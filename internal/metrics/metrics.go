package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	schedulerTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relsync_scheduler_ticks_total",
			Help: "Total number of scheduler ticks by outcome",
		},
		[]string{"outcome"},
	)

	schedulerSkips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relsync_scheduler_skips_total",
			Help: "Total number of skipped ticks by reason",
		},
		[]string{"reason"},
	)

	syncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relsync_sync_duration_seconds",
			Help:    "Wall-clock duration of a full sync pass in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
	)

	apiRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relsync_api_requests_total",
			Help: "Total number of GitHub API requests by status code",
		},
		[]string{"status"},
	)

	apiQuotaRemaining = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relsync_api_quota_remaining",
			Help: "Remaining GitHub API quota from the last probe",
		},
	)

	assetsUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relsync_assets_uploaded_total",
			Help: "Total number of assets uploaded to the mirror",
		},
	)

	assetsUploadedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relsync_assets_uploaded_bytes_total",
			Help: "Total bytes uploaded to the mirror",
		},
	)

	assetsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relsync_assets_skipped_total",
			Help: "Total number of assets skipped because they already exist",
		},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordTick(outcome string) {
	schedulerTicks.WithLabelValues(outcome).Inc()
}

func RecordSkip(reason string) {
	schedulerSkips.WithLabelValues(reason).Inc()
}

func ObserveSyncDuration(d time.Duration) {
	syncDuration.Observe(d.Seconds())
}

func RecordAPIRequest(status int) {
	apiRequests.WithLabelValues(strconv.Itoa(status)).Inc()
}

func SetQuotaRemaining(remaining int) {
	apiQuotaRemaining.Set(float64(remaining))
}

func RecordUpload(bytes int64) {
	assetsUploaded.Inc()
	assetsUploadedBytes.Add(float64(bytes))
}

func RecordAssetSkip() {
	assetsSkipped.Inc()
}
