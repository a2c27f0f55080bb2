/*
Package probe provides connectivity probes for monitoring ISP links and
provider hosts at a DC1 site.

This package implements two probe types: Ping and SSH. Ping probes drive
the network monitor's packet loss and outage detection; SSH probes drive
reconnect attempts and backup verification during GPU failover.

# Architecture

The probe system follows a modular prober design:

	┌─────────────────────────────────────────────────────────────┐
	│                       Probe System                          │
	└─────┬───────────────────────────────────────────────────────┘
	      │
	      ▼
	┌──────────────────────────────────────────────────────────────┐
	│                      Prober Interface                        │
	│  • Check(ctx) Result                                         │
	│  • Type() ProbeType                                          │
	│  • Target() string                                           │
	└────────┬─────────────────────────────────────────────────────┘
	         │
	    ┌────┴────────┐
	    ▼             ▼
	┌────────┐   ┌────────┐
	│  Ping  │   │  SSH   │
	│ Prober │   │ Prober │
	└────────┘   └────────┘
	     │            │
	     ▼            ▼
	ping -c 1     ssh -o BatchMode=yes
	-W <wait>     <user>@<host> true

Both probes shell out to system binaries rather than opening raw
sockets. Raw ICMP needs CAP_NET_RAW; the ping binary already carries
the right capability on every host we deploy to, and the ssh binary
reuses the operator's key setup without embedding credentials.

# Probe Types

## Ping Probes

Ping probes send a single ICMP echo and parse the round-trip time:

	Command:  ping -c 1 -W <timeout_s> <target>
	Healthy:  exit code 0 AND a "time=" token in stdout
	Latency:  parsed from "time=0.045 ms" into Result.LatencyMs

A zero exit code without a parseable latency still counts as a failed
probe. The subprocess is killed two seconds past the ping wait so a
wedged binary cannot stall the monitor loop.

## SSH Probes

SSH probes attempt a batch-mode login and run /bin/true:

	Command:  ssh -o BatchMode=yes -o StrictHostKeyChecking=no
	          -o ConnectTimeout=<timeout_s> <user>@<host> true
	Healthy:  exit code 0

BatchMode disables password prompts, so an unreachable host or a
missing key fails fast instead of hanging on interactive input. The
host is supplied per call; one SSHProber serves every provider host.

# Usage Examples

## Ping Probe

	import "github.com/dc1-ops/nexus/pkg/probe"

	prober := probe.NewPingProber("8.8.8.8").WithTimeout(5 * time.Second)

	result := prober.Check(ctx)
	if result.Healthy {
		fmt.Printf("latency %.2fms\n", *result.LatencyMs)
	} else {
		fmt.Printf("probe failed: %s\n", result.Message)
	}

## SSH Probe

	prober := probe.NewSSHProber().WithTimeout(5 * time.Second)

	result := prober.CheckHost(ctx, "pc1.dc1.local")
	if !result.Healthy {
		fmt.Printf("host unreachable: %s\n", result.Message)
	}

# Integration Points

## Network Monitor

The network monitor holds one ping prober per target (primary plus
fallback) and probes on a fixed interval. Each Result becomes a sample
in the rolling loss window and a row in the metrics database.

## Recovery Orchestrator

Reconnect attempts during interruption handling are SSH probes against
the failed GPU's host. Five failed probes in a row escalate to
failover.

## Failover Controller

Before relaunching a job, the controller SSH-probes the backup GPU's
host. An unreachable backup aborts the failover immediately rather
than wasting the recovery budget on a doomed relaunch.

# Design Notes

Probers return a Result struct instead of (bool, error): a failed
probe is an expected outcome, not an error, and callers always want
the message and timing alongside the verdict. LatencyMs is a pointer
so "no measurement" is distinguishable from "0ms".

ParseLatency is exported for the network monitor's tests; it accepts
output from both iputils and BSD ping.

# See Also

  - pkg/netmon - Rolling loss window and outage detection on top of ping probes
  - pkg/recovery - Reconnect backoff built on SSH probes
  - pkg/failover - Backup verification before relaunch
*/
package probe
