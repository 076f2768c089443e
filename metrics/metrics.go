// Package metrics exposes the node's Prometheus counters/gauges.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BlocksMined = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledgerline_blocks_mined_total",
		Help: "Blocks successfully mined by this node.",
	})

	ForksObserved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledgerline_forks_observed_total",
		Help: "Blocks classified as Fork.",
	})

	OrphansObserved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledgerline_orphans_observed_total",
		Help: "Blocks classified as Orphan.",
	})

	ResolutionsTriggered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledgerline_fork_resolutions_total",
		Help: "Fork resolution sequences started.",
	})

	PeersConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ledgerline_peers_connected",
		Help: "Currently connected peers.",
	})

	MempoolSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ledgerline_mempool_size",
		Help: "Pending transactions in the mempool.",
	})
)
