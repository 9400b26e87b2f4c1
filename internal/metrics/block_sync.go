package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	blockSyncRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "block_sync",
		Name:      "runs_total",
		Help:      "Count of block synchronization runs by final status.",
	}, []string{"currency", "status"})

	blockSyncRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "block_sync",
		Name:      "run_duration_seconds",
		Help:      "Duration of block synchronization runs.",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
	}, []string{"currency", "status"})

	blockSyncFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "block_sync",
		Name:      "blocks_indexed_total",
		Help:      "Count of blocks written to the store.",
	}, []string{"currency", "mode"})

	blockSyncMissingTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "block_sync",
		Name:      "blocks_missing_total",
		Help:      "Count of blocks that could not be fetched or written.",
	}, []string{"currency", "mode"})

	blockSyncForkProbes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "block_sync",
		Name:      "fork_probes",
		Help:      "Number of backward probes needed to find a common ancestor.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	}, []string{"currency", "resolved"})

	blockSyncRecoveryAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "block_sync",
		Name:      "recovery_attempts_total",
		Help:      "Count of missing block recovery attempts.",
	}, []string{"currency"})

	blockSyncStaleCurrentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "block_sync",
		Name:      "stale_current_total",
		Help:      "Count of bulk runs that ended without moving the current block.",
	}, []string{"currency"})
)

// BlockSync tracks block synchronization runs, labelled by currency.
type BlockSync struct{}

func NewBlockSync() *BlockSync {
	return &BlockSync{}
}

func (m BlockSync) ObserveRun(currency, syncStatus string, started time.Time) {
	blockSyncRunsTotal.WithLabelValues(orUnknown(currency), syncStatus).Inc()
	blockSyncRunDuration.WithLabelValues(orUnknown(currency), syncStatus).Observe(time.Since(started).Seconds())
}

func (m BlockSync) ObserveIndexed(currency, mode string, blocks int) {
	blockSyncFetchedTotal.WithLabelValues(orUnknown(currency), mode).Add(float64(blocks))
}

func (m BlockSync) ObserveMissing(currency, mode string, blocks int) {
	blockSyncMissingTotal.WithLabelValues(orUnknown(currency), mode).Add(float64(blocks))
}

func (m BlockSync) ObserveFork(currency string, probes int, resolved bool) {
	label := "false"
	if resolved {
		label = "true"
	}
	blockSyncForkProbes.WithLabelValues(orUnknown(currency), label).Observe(float64(probes))
}

func (m BlockSync) ObserveRecoveryAttempt(currency string) {
	blockSyncRecoveryAttempts.WithLabelValues(orUnknown(currency)).Inc()
}

// ObserveStaleCurrent counts bulk runs that ended without moving the current block.
func (m BlockSync) ObserveStaleCurrent(currency string) {
	blockSyncStaleCurrentTotal.WithLabelValues(orUnknown(currency)).Inc()
}
