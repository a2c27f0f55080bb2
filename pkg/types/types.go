package types

import (
	"time"
)

// Severity classifies an alert for routing purposes
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Alert is a fire-and-forget notification routed by severity
type Alert struct {
	ID          string
	Severity    Severity
	SourceAgent string
	Title       string
	Message     string
	Metadata    map[string]string
	Timestamp   time.Time
}

// Checkpoint records one committed job snapshot. An empty LocalPath or
// RemoteKey marks that medium as absent (the write failed after the other
// medium committed).
type Checkpoint struct {
	JobID     string    `json:"job_id"`
	Seq       int       `json:"seq"`
	SizeBytes int64     `json:"size"`
	SHA256    string    `json:"sha256"`
	CreatedAt time.Time `json:"saved_at"`
	LocalPath string    `json:"local_path"`
	RemoteKey string    `json:"remote_key"`
}

// HeartbeatRecord is one ingested peer liveness signal. Insert-only.
type HeartbeatRecord struct {
	ID        string         `json:"id"`
	AgentID   string         `json:"agent_id"`
	AgentName string         `json:"agent_name"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"ts_utc"`
}

// AgentStatus is the derived liveness view of one registered peer
type AgentStatus struct {
	AgentName     string     `json:"agent_name"`
	AgentID       string     `json:"agent_id"`
	LastSeen      *time.Time `json:"last_seen"`
	SilentMinutes *float64   `json:"silent_minutes"`
	Alive         bool       `json:"alive"`
	Message       string     `json:"message,omitempty"`
}

// PingSample is one probe result. Success iff LatencyMs is non-nil.
type PingSample struct {
	Timestamp time.Time
	Target    string
	LatencyMs *float64
	Success   bool
}

// LatencyBucket is an hourly latency percentile rollup
type LatencyBucket struct {
	Bucket string  `json:"bucket"` // YYYY-MM-DD-HH
	P50    float64 `json:"p50"`
	P95    float64 `json:"p95"`
	P99    float64 `json:"p99"`
	Count  int     `json:"count"`
}

// FailureType classifies a detected GPU interruption
type FailureType string

const (
	FailureNetworkLoss FailureType = "NETWORK_LOSS"
	FailureThermal     FailureType = "THERMAL"
	FailurePowerLoss   FailureType = "POWER_LOSS"
	FailureTimeout     FailureType = "TIMEOUT"
)

// FailureEvent is the detector's verdict on an unhealthy GPU
type FailureEvent struct {
	Type       FailureType
	DetectedAt time.Time
	Detail     string
}

// RecoveryState represents the current state of one interruption handling
type RecoveryState string

const (
	StateRunning              RecoveryState = "RUNNING"
	StateInterruptionDetected RecoveryState = "INTERRUPTION_DETECTED"
	StateReconnecting         RecoveryState = "RECONNECTING"
	StateFailingOver          RecoveryState = "FAILING_OVER"
	StateEscalating           RecoveryState = "ESCALATING"
	StateResolved             RecoveryState = "RESOLVED"
	StateFailed               RecoveryState = "FAILED"
)

// RecoveryContext is scoped to one interruption and discarded on a
// terminal state (RESOLVED or FAILED)
type RecoveryContext struct {
	JobID             string
	GPUID             string
	State             RecoveryState
	InterruptType     FailureType
	ReconnectAttempts int
	FailoverAttempted bool
	StartedAt         time.Time
	ResolvedAt        *time.Time
}

// JobSpec is a job registered for checkpoint scheduling. Persisted in the
// job registry so scheduling resumes across agent restarts.
type JobSpec struct {
	JobID         string    `json:"job_id"`
	GPUID         string    `json:"gpu_id"`
	ContainerID   string    `json:"container_id"`
	SaveIntervalS int       `json:"save_interval_s"`
	RegisteredAt  time.Time `json:"registered_at"`
}

// GPUStatus is the Mission Control view of one GPU host
type GPUStatus struct {
	ID           string  `json:"id"`
	Status       string  `json:"status"`
	CurrentJobID string  `json:"current_job_id"`
	Host         string  `json:"host"`
	TemperatureC float64 `json:"temperature_c"`
}

// JobStatus is the Mission Control view of one job
type JobStatus struct {
	ID             string         `json:"id"`
	Status         string         `json:"status"`
	GPU            string         `json:"gpu"`
	LastProgressAt *time.Time     `json:"last_progress_at"`
	State          map[string]any `json:"state,omitempty"`
}

// CommandType discriminates agent command variants
type CommandType string

const (
	CommandStartJob      CommandType = "start_job"
	CommandStopJob       CommandType = "stop_job"
	CommandCheckpointNow CommandType = "checkpoint_now"
	CommandStatusReport  CommandType = "status_report"
)

// AgentCommand is one control request received over HTTP. Type selects the
// variant; the remaining fields are variant-specific.
type AgentCommand struct {
	Type          CommandType `json:"command"`
	JobID         string      `json:"job_id,omitempty"`
	GPUID         string      `json:"gpu_id,omitempty"`
	ContainerID   string      `json:"container_id,omitempty"`
	SaveIntervalS int         `json:"save_interval_s,omitempty"`

	// MTDHalala is the month-to-date revenue Mission Control includes
	// with status_report; the report echoes it back split 75/25.
	MTDHalala int64 `json:"mtd_halala,omitempty"`
}
