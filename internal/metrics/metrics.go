package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NotificationsCreated tracks in-app notification rows written by the dispatcher
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_notifications_created_total",
			Help: "Total number of notifications persisted",
		},
		[]string{"type", "priority"},
	)

	// ChannelAttempts tracks delivery attempts per channel
	ChannelAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_notifications_channel_attempts_total",
			Help: "Total number of channel delivery attempts",
		},
		[]string{"channel", "status"},
	)

	// ChannelDuration tracks channel send duration
	ChannelDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketplace_notifications_channel_duration_seconds",
			Help:    "Channel send duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"channel"},
	)

	// BulkRecipients tracks recipients processed by bulk sends
	BulkRecipients = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_notifications_bulk_recipients_total",
			Help: "Total number of bulk send recipients",
		},
		[]string{"status"},
	)

	// DetectorRuns tracks detector ticks
	DetectorRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_detector_runs_total",
			Help: "Total number of detector runs",
		},
		[]string{"detector", "status"},
	)

	// DetectorCandidates tracks candidate outcomes
	DetectorCandidates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_detector_candidates_total",
			Help: "Total number of detector candidates by outcome",
		},
		[]string{"detector", "outcome"}, // emitted, skipped, failed
	)

	// DetectorDuration tracks detector tick duration
	DetectorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketplace_detector_duration_seconds",
			Help:    "Detector run duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"detector"},
	)

	// DetectorTransitions tracks status writes made by state-transition detectors
	DetectorTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_detector_transitions_total",
			Help: "Total number of guarded status transitions applied",
		},
		[]string{"detector", "to"},
	)

	// DLQSize tracks the size of the dead letter queue
	DLQSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "marketplace_notifications_dlq_size",
			Help: "Number of failed channel sends in the dead letter queue",
		},
	)

	// RateLimitExceeded tracks rate limit violations
	RateLimitExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_notifications_rate_limit_exceeded_total",
			Help: "Total number of rate limit exceeded events",
		},
		[]string{"scope"},
	)

	// EventsConsumed tracks inbound RabbitMQ events
	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_notifications_events_consumed_total",
			Help: "Total number of consumed business events",
		},
		[]string{"type", "status"},
	)

	// ConsumerRestarts tracks event consumer restart events
	ConsumerRestarts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_notifications_consumer_restarts_total",
			Help: "Total number of event consumer restarts",
		},
	)

	// RealtimeSessions tracks open websocket sessions
	RealtimeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "marketplace_notifications_realtime_sessions",
			Help: "Number of open realtime websocket sessions",
		},
	)
)
