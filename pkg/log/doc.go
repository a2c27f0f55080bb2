/*
Package log provides structured logging for the nexus agent using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper functions
for common logging patterns. All logs include timestamps and support filtering
by severity level for production debugging.

# Architecture

The agent's logging system provides structured JSON logging with minimal
overhead:

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Thread-safe for concurrent use           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON or console (human)          │          │
	│  │  - Output: stdout, file, or custom writer   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Component Loggers                   │          │
	│  │  - WithComponent("checkpoint")              │          │
	│  │  - WithJobID("job-42")                      │          │
	│  │  - WithGPUID("gpu-a1")                      │          │
	│  │  - WithAgent("GUARDIAN")                    │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            Log Output                       │          │
	│  │                                              │          │
	│  │  JSON Format:                               │          │
	│  │  {                                           │          │
	│  │    "level": "info",                         │          │
	│  │    "component": "checkpoint",               │          │
	│  │    "time": "2026-05-02T10:30:00Z",         │          │
	│  │    "message": "checkpoint committed"        │          │
	│  │  }                                           │          │
	│  │                                              │          │
	│  │  Console Format:                            │          │
	│  │  10:30AM INF checkpoint committed component=checkpoint │ │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init()
  - Accessible from all agent packages
  - Thread-safe concurrent writes

Log Levels:
  - Debug: Detailed debugging information
  - Info: General informational messages
  - Warn: Warning messages (potential issues, retried I/O)
  - Error: Error messages (operation failed)
  - Fatal: Critical errors (process exits)

Context Loggers:
  - WithComponent: Add component name to all logs
  - WithJobID: Add job ID context
  - WithGPUID: Add GPU ID context
  - WithAgent: Add peer agent name context

# Usage

Initializing the Logger:

	import "github.com/dc1-ops/nexus/pkg/log"

	// JSON output (production)
	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

	// Console output (development)
	log.Init(log.Config{
		Level:      log.DebugLevel,
		JSONOutput: false,
		Output:     os.Stdout,
	})

Simple Logging:

	log.Info("agent started")
	log.Warn("remote store slow")
	log.Error("relaunch request rejected")
	log.Fatal("invalid configuration") // Exits process

Structured Logging:

	log.Logger.Info().
		Str("job_id", "job-42").
		Int("seq", 7).
		Msg("checkpoint committed")

	log.Logger.Error().
		Err(err).
		Str("gpu_id", "gpu-a1").
		Msg("SSH probe failed")

Component Loggers:

	ckptLog := log.WithComponent("checkpoint")
	ckptLog.Info().Msg("starting save scheduler")
	ckptLog.Debug().Str("job_id", "job-42").Msg("pruning old entries")

	// Multiple context fields
	jobLog := log.WithComponent("recovery").
		With().Str("job_id", "job-42").
		Str("gpu_id", "gpu-a1").Logger()
	jobLog.Info().Msg("reconnect attempt")

# Integration Points

This package integrates with:

  - pkg/checkpoint: Logs dual-medium writes, integrity failures, pruning
  - pkg/recovery: Logs FSM transitions and reconnect attempts
  - pkg/failover: Logs each failover step with elapsed time
  - pkg/heartbeat: Logs ingest and silent-peer sweeps
  - pkg/netmon: Logs probe failures and outage detection
  - pkg/alert: Logs routing decisions and transport errors
  - pkg/api: Logs HTTP serving lifecycle

# Design Patterns

Global Logger Pattern:
  - Single package-level Logger instance
  - Initialized once at application start
  - Accessible from all packages without passing

Context Logger Pattern:
  - Create child loggers with context fields
  - Pass context loggers to long-lived loops
  - Automatically includes context in all logs

Error Logging Pattern:
  - Always use .Err(err) for error objects
  - Consistent error format across the codebase

# Best Practices

Do:
  - Use Info level for production
  - Use structured fields for queryable data
  - Create component-specific loggers
  - Include context (job ID, GPU ID, agent name)

Don't:
  - Log credentials (MC token, bot token, object-store keys)
  - Use Debug level in production
  - Log in tight loops (the probe loop logs failures only)
  - Concatenate strings (use .Str, .Int)

# See Also

  - Zerolog documentation: https://github.com/rs/zerolog
  - 12-Factor App Logs: https://12factor.net/logs
*/
package log
