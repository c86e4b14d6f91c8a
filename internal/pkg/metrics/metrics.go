package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APILatency measures HTTP request latencies by route pattern.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timecapsule_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// CodesIssued counts one-time codes issued by purpose.
	CodesIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timecapsule_codes_issued_total",
			Help: "Total number of one-time codes issued",
		},
		[]string{"purpose"},
	)

	// CodeRedemptions counts redemption attempts by purpose and outcome kind.
	CodeRedemptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timecapsule_code_redemptions_total",
			Help: "Total number of one-time code redemption attempts",
		},
		[]string{"purpose", "result"},
	)

	CapsulesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "timecapsule_capsules_created_total",
			Help: "Total number of capsules created",
		},
	)

	// MediaUploads counts upload attempts by result (stored|rejected|failed).
	MediaUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timecapsule_media_uploads_total",
			Help: "Total number of media upload attempts",
		},
		[]string{"result"},
	)

	RemindersSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "timecapsule_reminders_sent_total",
			Help: "Total number of unlock reminders delivered",
		},
	)
)
