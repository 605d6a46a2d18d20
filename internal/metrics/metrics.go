package metrics

import "github.com/prometheus/client_golang/prometheus"

// Label values shared by the counters below.
const (
	StatusSent       = "sent"
	StatusFailed     = "failed"
	StatusIgnored    = "ignored"
	StatusSuppressed = "suppressed"
	StatusSkipped    = "skipped"
	StatusScheduled  = "scheduled"
	StatusDuplicate  = "duplicate"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notifier_http_request_duration_seconds",
			Help:    "Histogram of response durations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	// EligibleRecipients counts recipients that passed the preference filter
	EligibleRecipients = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_eligible_recipients_total",
			Help: "Recipients eligible per channel and notification type",
		},
		[]string{"channel", "type"},
	)

	// ChannelDispatch counts one outcome per channel per notify call
	ChannelDispatch = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_channel_dispatch_total",
			Help: "Channel dispatch outcomes",
		},
		[]string{"channel", "status"},
	)

	// ProviderRequests counts provider calls
	ProviderRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_provider_requests_total",
			Help: "Calls made to SMS and email providers",
		},
		[]string{"provider", "status"},
	)

	// Scheduled counts schedule attempts
	Scheduled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_scheduled_total",
			Help: "Scheduled notification enqueue attempts",
		},
		[]string{"type", "status"},
	)

	// SweepRows counts processed queue rows
	SweepRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_sweep_rows_total",
			Help: "Scheduled notification rows handled by the sweep",
		},
		[]string{"type", "status"},
	)

	SweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "notifier_sweep_duration_seconds",
			Help:    "Duration of scheduled notification sweeps",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func Init() {
	prometheus.MustRegister(
		HTTPRequests,
		RequestDuration,
		EligibleRecipients,
		ChannelDispatch,
		ProviderRequests,
		Scheduled,
		SweepRows,
		SweepDuration,
	)
}
