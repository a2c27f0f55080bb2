package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Checkpoint metrics
	CheckpointsSaved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_checkpoints_saved_total",
			Help: "Total number of checkpoints saved by job",
		},
		[]string{"job_id"},
	)

	CheckpointsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_checkpoints_failed_total",
			Help: "Total number of checkpoint write failures by medium (local, remote, both)",
		},
		[]string{"medium"},
	)

	CheckpointBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nexus_checkpoint_bytes_total",
			Help: "Total checkpoint bytes written",
		},
	)

	ScheduledJobs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nexus_checkpoint_jobs",
			Help: "Number of jobs with an active checkpoint loop",
		},
	)

	// Alert metrics
	AlertsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_alerts_dispatched_total",
			Help: "Total number of alerts dispatched by severity",
		},
		[]string{"severity"},
	)

	AlertsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nexus_alerts_dropped_total",
			Help: "Total number of alerts dropped by the cooldown window",
		},
	)

	AlertsBatched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nexus_alerts_batched_total",
			Help: "Total number of LOW alerts held for batch summary",
		},
	)

	// Heartbeat metrics
	HeartbeatsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_heartbeats_ingested_total",
			Help: "Total number of heartbeats ingested by agent name",
		},
		[]string{"agent"},
	)

	SilentPeers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nexus_silent_peers",
			Help: "Number of registered peers currently past the silent threshold",
		},
	)

	// Network metrics
	PingLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nexus_ping_latency_ms",
			Help:    "ICMP round-trip time in milliseconds",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200, 500, 1000, 2000},
		},
	)

	PacketLoss = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nexus_packet_loss_pct",
			Help: "Packet loss percentage over the rolling window",
		},
	)

	// Recovery and failover metrics
	FailoversTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_failovers_total",
			Help: "Total number of failovers by result (success, failure)",
		},
		[]string{"result"},
	)

	FailoverDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nexus_failover_duration_seconds",
			Help:    "Failover duration in seconds",
			Buckets: []float64{1, 5, 10, 20, 30, 45, 60, 90, 120},
		},
	)

	RecoveryState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nexus_recovery_incidents",
			Help: "Active recovery incidents by state",
		},
		[]string{"state"},
	)

	// Supervisor metrics
	TaskRestarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_task_restarts_total",
			Help: "Total number of supervised task restarts after a panic",
		},
		[]string{"task"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(CheckpointsSaved)
	prometheus.MustRegister(CheckpointsFailed)
	prometheus.MustRegister(CheckpointBytes)
	prometheus.MustRegister(ScheduledJobs)
	prometheus.MustRegister(AlertsDispatched)
	prometheus.MustRegister(AlertsDropped)
	prometheus.MustRegister(AlertsBatched)
	prometheus.MustRegister(HeartbeatsIngested)
	prometheus.MustRegister(SilentPeers)
	prometheus.MustRegister(PingLatency)
	prometheus.MustRegister(PacketLoss)
	prometheus.MustRegister(FailoversTotal)
	prometheus.MustRegister(FailoverDuration)
	prometheus.MustRegister(RecoveryState)
	prometheus.MustRegister(TaskRestarts)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
