package replication

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BroadcastsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kv",
		Subsystem: "replication",
		Name:      "broadcasts_total",
		Help:      "Total broadcasts by outcome (commit, abort)",
	}, []string{"outcome"})

	BroadcastDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "kv",
		Subsystem: "replication",
		Name:      "broadcast_duration_seconds",
		Help:      "Time from broadcast start to the client-visible result",
		Buckets:   prometheus.DefBuckets,
	})

	ExclusionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "kv",
		Subsystem: "replication",
		Name:      "exclusions_total",
		Help:      "Total nodes excluded from the directory after failing to respond",
	})

	MembersTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "kv",
		Subsystem: "replication",
		Name:      "members_total",
		Help:      "Number of fully joined replicas in the directory",
	})

	PartialMembersTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "kv",
		Subsystem: "replication",
		Name:      "partial_members_total",
		Help:      "Number of partially joined nodes",
	})

	LogRoundsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kv",
		Subsystem: "paxos",
		Name:      "rounds_total",
		Help:      "Total proposal attempts by outcome (won, lost, failed)",
	}, []string{"outcome"})

	LogAppendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kv",
		Subsystem: "paxos",
		Name:      "log_appends_total",
		Help:      "Total background log appends by outcome (done, timeout, dropped)",
	}, []string{"outcome"})
)
