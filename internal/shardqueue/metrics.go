package shardqueue

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lean",
		Subsystem: "shardqueue",
		Name:      "submissions_total",
		Help:      "Jobs accepted per shard.",
	}, []string{"shard"})

	queueFullTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lean",
		Subsystem: "shardqueue",
		Name:      "queue_full_total",
		Help:      "Submissions rejected because the shard queue was full.",
	}, []string{"shard"})

	queueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "lean",
		Subsystem: "shardqueue",
		Name:      "queue_depth",
		Help:      "Current number of queued jobs per shard.",
	}, []string{"shard"})

	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lean",
		Subsystem: "shardqueue",
		Name:      "run_duration_seconds",
		Help:      "Job execution latency per shard.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"shard"})
)

func labelFor(shard int) string { return strconv.Itoa(shard) }
