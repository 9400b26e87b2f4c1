package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	peerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "peer_client",
		Name:      "requests_total",
		Help:      "Count of requests sent to remote peers.",
	}, []string{"operation", "currency", "status"})
	peerRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "peer_client",
		Name:      "request_duration_seconds",
		Help:      "Duration of requests sent to remote peers, retries included.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "currency", "status"})
	peerRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "peer_client",
		Name:      "retries_total",
		Help:      "Count of retried peer requests.",
	}, []string{"operation", "currency"})
)

// PeerClient tracks metrics for the peer wire protocol client.
type PeerClient struct{}

// NewPeerClient constructs a metrics collector for peer requests.
func NewPeerClient() *PeerClient {
	return &PeerClient{}
}

// Observe records a single request outcome and duration.
func (m PeerClient) Observe(operation, currency string, err error, started time.Time) {
	currency = orUnknown(currency)
	peerRequestsTotal.WithLabelValues(operation, currency, status(err)).Inc()
	peerRequestDuration.WithLabelValues(operation, currency, status(err)).Observe(time.Since(started).Seconds())
}

// ObserveRetry counts a retry of operation.
func (m PeerClient) ObserveRetry(operation, currency string) {
	peerRetriesTotal.WithLabelValues(operation, orUnknown(currency)).Inc()
}
