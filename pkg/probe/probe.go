package probe

import (
	"context"
	"time"
)

// ProbeType represents the type of connectivity probe
type ProbeType string

const (
	// ProbeTypePing probes via a single ICMP echo (system ping binary)
	ProbeTypePing ProbeType = "ping"
	// ProbeTypeSSH probes via an SSH connection attempt
	ProbeTypeSSH ProbeType = "ssh"
)

// Result represents the outcome of a single probe
type Result struct {
	// Healthy indicates if the target responded
	Healthy bool

	// LatencyMs is the measured round-trip time in milliseconds.
	// Only ping probes populate it; nil means no latency was measured.
	LatencyMs *float64

	// Message provides details about the probe outcome
	Message string

	// CheckedAt is when the probe was performed
	CheckedAt time.Time

	// Duration is how long the probe took
	Duration time.Duration
}

// Prober is the interface for connectivity probes against a fixed target
type Prober interface {
	// Check performs the probe and returns the result
	Check(ctx context.Context) Result

	// Type returns the probe type
	Type() ProbeType

	// Target returns the probed host
	Target() string
}
