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

// DefaultSSHUser is the account used for reachability checks against
// provider hosts
const DefaultSSHUser = "dc1"

// SSHProber performs SSH reachability checks by running the system ssh
// binary in batch mode. A single prober is shared across hosts; the
// host is supplied per call.
type SSHProber struct {
	// User is the login account (default: dc1)
	User string

	// Timeout is the connection timeout passed to ssh -o ConnectTimeout
	// (default: 5 seconds)
	Timeout time.Duration
}

// NewSSHProber creates a new SSH prober
func NewSSHProber() *SSHProber {
	return &SSHProber{
		User:    DefaultSSHUser,
		Timeout: 5 * time.Second,
	}
}

// CheckHost probes SSH reachability of the given host
func (s *SSHProber) CheckHost(ctx context.Context, host string) Result {
	start := time.Now()

	if host == "" {
		return Result{
			Healthy:   false,
			Message:   "no host specified",
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}

	connectS := int(s.Timeout.Seconds())
	if connectS < 1 {
		connectS = 1
	}

	// ConnectTimeout only bounds the TCP phase; the context deadline
	// covers a hung auth exchange as well.
	execCtx, cancel := context.WithTimeout(ctx, s.Timeout+2*time.Second)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "ssh",
		"-o", "BatchMode=yes",
		"-o", "StrictHostKeyChecking=no",
		"-o", "ConnectTimeout="+strconv.Itoa(connectS),
		fmt.Sprintf("%s@%s", s.User, host),
		"true")

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		message := fmt.Sprintf("ssh %s failed: %v", host, err)
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

	return Result{
		Healthy:   true,
		Message:   fmt.Sprintf("ssh %s reachable", host),
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

// Type returns the probe type
func (s *SSHProber) Type() ProbeType {
	return ProbeTypeSSH
}

// WithTimeout sets the connection timeout
func (s *SSHProber) WithTimeout(timeout time.Duration) *SSHProber {
	s.Timeout = timeout
	return s
}

// WithUser sets the login account
func (s *SSHProber) WithUser(user string) *SSHProber {
	s.User = user
	return s
}
