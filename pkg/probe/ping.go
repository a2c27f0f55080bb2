package probe

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// PingProber performs ping-based connectivity probes by running the
// system ping binary with a single echo request
type PingProber struct {
	// Host is the target to ping (IP or hostname)
	Host string

	// Timeout is the per-echo wait deadline passed to ping -W
	// (default: 5 seconds)
	Timeout time.Duration
}

// NewPingProber creates a new ping prober
func NewPingProber(host string) *PingProber {
	return &PingProber{
		Host:    host,
		Timeout: 5 * time.Second,
	}
}

// Check performs a single ping probe
func (p *PingProber) Check(ctx context.Context) Result {
	start := time.Now()

	waitS := int(p.Timeout.Seconds())
	if waitS < 1 {
		waitS = 1
	}

	// The subprocess gets a hard deadline two seconds past the ping
	// wait so a hung binary cannot stall the probe loop.
	execCtx, cancel := context.WithTimeout(ctx, p.Timeout+2*time.Second)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "ping", "-c", "1", "-W", strconv.Itoa(waitS), p.Host)

	// Capture output
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		message := fmt.Sprintf("ping %s failed: %v", p.Host, err)
		if stderr.Len() > 0 {
			message = fmt.Sprintf("%s, stderr: %s", message, strings.TrimSpace(stderr.String()))
		}

		return Result{
			Healthy:   false,
			Message:   message,
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}

	// Exit code 0 without a parseable time= token still counts as a
	// failed probe; no latency means no usable sample.
	latency, ok := ParseLatency(stdout.String())
	if !ok {
		return Result{
			Healthy:   false,
			Message:   fmt.Sprintf("ping %s: no time= in output", p.Host),
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}

	return Result{
		Healthy:   true,
		LatencyMs: &latency,
		Message:   fmt.Sprintf("ping %s: %.2fms", p.Host, latency),
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

// Type returns the probe type
func (p *PingProber) Type() ProbeType {
	return ProbeTypePing
}

// Target returns the probed host
func (p *PingProber) Target() string {
	return p.Host
}

// WithTimeout sets the per-echo wait deadline
func (p *PingProber) WithTimeout(timeout time.Duration) *PingProber {
	p.Timeout = timeout
	return p
}

// ParseLatency extracts the round-trip time in milliseconds from ping
// output. It scans for the first "time=" token as printed by iputils
// and BSD ping ("time=0.045 ms").
func ParseLatency(out string) (float64, bool) {
	for _, line := range strings.Split(out, "\n") {
		idx := strings.Index(line, "time=")
		if idx < 0 {
			continue
		}

		rest := line[idx+len("time="):]
		if end := strings.Index(rest, "ms"); end >= 0 {
			rest = rest[:end]
		}

		latency, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
		if err != nil {
			continue
		}
		return latency, true
	}

	return 0, false
}
