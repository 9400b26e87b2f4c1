package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	synchroActionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "synchro",
		Name:      "actions_total",
		Help:      "Count of collection synchronizations against a peer.",
	}, []string{"collection", "status"})

	synchroActionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "synchro",
		Name:      "action_duration_seconds",
		Help:      "Duration of collection synchronizations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"collection", "status"})

	synchroDocumentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "synchro",
		Name:      "documents_total",
		Help:      "Count of replicated documents by outcome.",
	}, []string{"collection", "outcome"})

	synchroScrollReopenTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "synchro",
		Name:      "scroll_reopen_total",
		Help:      "Count of scroll cursors reopened after expiry.",
	}, []string{"collection"})

	synchroPeerTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "synchro",
		Name:      "peers_total",
		Help:      "Count of peer synchronizations.",
	}, []string{"currency", "api", "status"})

	synchroLiveEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "synchro",
		Name:      "live_events_total",
		Help:      "Count of change events received from peer feeds.",
	}, []string{"collection"})
)

// Synchro tracks generic document replication.
type Synchro struct{}

func NewSynchro() *Synchro {
	return &Synchro{}
}

// ObserveAction records one collection synchronization.
func (m Synchro) ObserveAction(collection string, err error, started time.Time) {
	synchroActionTotal.WithLabelValues(collection, status(err)).Inc()
	synchroActionDuration.WithLabelValues(collection, status(err)).Observe(time.Since(started).Seconds())
}

// ObserveDocuments adds n documents with the given outcome: insert, update, invalid_signature, invalid_time.
func (m Synchro) ObserveDocuments(collection, outcome string, n int64) {
	if n <= 0 {
		return
	}
	synchroDocumentsTotal.WithLabelValues(collection, outcome).Add(float64(n))
}

func (m Synchro) ObserveScrollReopen(collection string) {
	synchroScrollReopenTotal.WithLabelValues(collection).Inc()
}

func (m Synchro) ObservePeer(currency, api string, err error) {
	synchroPeerTotal.WithLabelValues(orUnknown(currency), api, status(err)).Inc()
}

func (m Synchro) ObserveLiveEvent(collection string) {
	synchroLiveEventsTotal.WithLabelValues(collection).Inc()
}
