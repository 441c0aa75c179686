package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Vote metrics
	VotesSubmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pollsync_votes_submitted_total",
			Help: "Total number of optimistic vote submissions started",
		},
	)

	VotesConfirmedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pollsync_votes_confirmed_total",
			Help: "Total number of vote submissions confirmed by the server",
		},
	)

	VotesRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pollsync_votes_rejected_total",
			Help: "Total number of vote submissions rejected by the server",
		},
	)

	ResyncsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pollsync_resyncs_total",
			Help: "Total number of full poll re-fetches triggered by failed submissions",
		},
	)

	// Store metrics
	PollsKnown = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pollsync_polls_known",
			Help: "Number of polls currently held in the local state store",
		},
	)

	// Event metrics
	EventsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pollsync_events_received_total",
			Help: "Total number of server-pushed events received by kind",
		},
		[]string{"kind"},
	)

	StaleUpdatesDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pollsync_stale_updates_dropped_total",
			Help: "Total number of poll-updated events dropped for unknown poll ids",
		},
	)

	// Socket metrics
	SocketConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pollsync_socket_connected",
			Help: "Whether the event channel is currently connected (1 = connected)",
		},
	)

	SocketReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pollsync_socket_reconnects_total",
			Help: "Total number of successful reconnects after a channel drop",
		},
	)

	RoomsSubscribed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pollsync_rooms_subscribed",
			Help: "Number of poll rooms with a positive subscriber reference count",
		},
	)

	// API metrics
	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pollsync_api_request_duration_seconds",
			Help:    "REST collaborator request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(VotesSubmittedTotal)
	prometheus.MustRegister(VotesConfirmedTotal)
	prometheus.MustRegister(VotesRejectedTotal)
	prometheus.MustRegister(ResyncsTotal)
	prometheus.MustRegister(PollsKnown)
	prometheus.MustRegister(EventsReceivedTotal)
	prometheus.MustRegister(StaleUpdatesDroppedTotal)
	prometheus.MustRegister(SocketConnected)
	prometheus.MustRegister(SocketReconnectsTotal)
	prometheus.MustRegister(RoomsSubscribed)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// NewTimer starts a timer that records its duration into the given observer
// when ObserveDuration is called.
func NewTimer(o prometheus.Observer) *prometheus.Timer {
	return prometheus.NewTimer(o)
}
