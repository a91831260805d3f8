package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	InteractionEvents      *prometheus.CounterVec
	RecommendationRequests *prometheus.CounterVec
	SourceFailures         *prometheus.CounterVec
	ProfileBuilds          *prometheus.CounterVec
	ChatSends              *prometheus.CounterVec
	SessionRotations       prometheus.Counter
	SessionClears          prometheus.Counter
	WSMessages             *prometheus.CounterVec
	ChatSendLatency        prometheus.Histogram

	stages *stageWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		InteractionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interaction_events_total",
			Help:      "Recorded interaction events by kind.",
		}, []string{"kind"}),
		RecommendationRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendation_requests_total",
			Help:      "Recommendation requests by mode and outcome.",
		}, []string{"mode", "outcome"}),
		SourceFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendation_source_failures_total",
			Help:      "Failed upstream recommendation source calls by source tag.",
		}, []string{"source"}),
		ProfileBuilds: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_builds_total",
			Help:      "Affinity profile derivations by presence.",
		}, []string{"presence"}),
		ChatSends: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_sends_total",
			Help:      "Chat send operations by outcome.",
		}, []string{"outcome"}),
		SessionRotations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_rotations_total",
			Help:      "Server-initiated session id rotations applied.",
		}),
		SessionClears: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_clears_total",
			Help:      "Explicit conversation clears.",
		}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		ChatSendLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chat_send_latency_ms",
			Help:      "End-to-end chat send latency in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 4000, 8000, 16000},
		}),
		stages: newStageWindow(256),
	}
}

// ObserveStage records one stage latency sample in the sliding window
// behind the perf snapshot endpoint.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stages.Observe(stage, float64(d.Milliseconds()))
}

// SnapshotStages returns percentile stats for all recorded stages.
func (m *Metrics) SnapshotStages() StageSnapshot {
	return m.stages.Snapshot()
}

func (m *Metrics) ObserveChatSendLatency(d time.Duration) {
	m.ChatSendLatency.Observe(float64(d.Milliseconds()))
	m.ObserveStage(StageChatSend, d)
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
