package failover

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dc1-ops/nexus/pkg/audit"
	"github.com/dc1-ops/nexus/pkg/log"
	"github.com/dc1-ops/nexus/pkg/metrics"
	"github.com/dc1-ops/nexus/pkg/probe"
	"github.com/dc1-ops/nexus/pkg/types"
)

// source identifies this component on the audit trail
const source = "failover-controller"

// ControlPlane is the slice of the Mission Control API the controller
// needs. *mc.Client satisfies it.
type ControlPlane interface {
	GetGPU(ctx context.Context, gpuID string) (*types.GPUStatus, error)
	GetJob(ctx context.Context, jobID string) (*types.JobStatus, error)
	RelaunchJob(ctx context.Context, jobID, targetGPU, checkpointPath string) error
	NotifyJob(ctx context.Context, jobID, message string) error
	CreateTestJob(ctx context.Context, gpuID string) (string, error)
	DeleteJob(ctx context.Context, jobID string) error
}

// HostProber checks SSH reachability of a provider host. *probe.SSHProber
// satisfies it.
type HostProber interface {
	CheckHost(ctx context.Context, host string) probe.Result
}

// CheckpointSource resolves the newest verified checkpoint for a job.
// *checkpoint.Store satisfies it.
type CheckpointSource interface {
	LoadLatest(ctx context.Context, jobID string) ([]byte, *types.Checkpoint, error)
}

// Alerter routes drill outcome alerts. *alert.Router satisfies it.
type Alerter interface {
	Route(a *types.Alert)
}

// Config bounds the failover sequence
type Config struct {
	// Budget is the hard deadline for the whole sequence (default 60s)
	Budget time.Duration

	// ConfirmInterval is the delay between confirmation polls (default 500ms)
	ConfirmInterval time.Duration

	// ConfirmAttempts is how many confirmation polls to make (default 10)
	ConfirmAttempts int
}

func (c *Config) applyDefaults() {
	if c.Budget == 0 {
		c.Budget = 60 * time.Second
	}
	if c.ConfirmInterval == 0 {
		c.ConfirmInterval = 500 * time.Millisecond
	}
	if c.ConfirmAttempts == 0 {
		c.ConfirmAttempts = 10
	}
}

// Result is the outcome of one failover attempt
type Result struct {
	Success           bool   `json:"success"`
	ElapsedMs         int64  `json:"elapsed_ms"`
	IntegrityVerified bool   `json:"integrity_verified"`
	CheckpointUsed    string `json:"checkpoint_used,omitempty"`
	JobID             string `json:"job_id"`
	FailedGPU         string `json:"failed_gpu"`
	BackupGPU         string `json:"backup_gpu"`
	Error             string `json:"error,omitempty"`
}

// DrillResult is the outcome of one failover drill. DataLoss is -1 when
// no verified checkpoint was available, so loss could not be measured.
type DrillResult struct {
	Success        bool   `json:"success"`
	FailoverTimeMs int64  `json:"failover_time_ms"`
	DataLoss       int    `json:"data_loss"`
	Notes          string `json:"notes"`
}

// Controller executes the failover sequence against Mission Control
type Controller struct {
	cp     ControlPlane
	ssh    HostProber
	ckpts  CheckpointSource
	trail  audit.Recorder
	alerts Alerter
	config Config
	logger zerolog.Logger
}

// NewController creates a failover controller. alerts may be nil when
// drills are not wired.
func NewController(cp ControlPlane, ssh HostProber, ckpts CheckpointSource, trail audit.Recorder, alerts Alerter, config Config) *Controller {
	config.applyDefaults()
	return &Controller{
		cp:     cp,
		ssh:    ssh,
		ckpts:  ckpts,
		trail:  trail,
		alerts: alerts,
		config: config,
		logger: log.WithComponent("failover"),
	}
}

// Failover moves jobID from failedGPU to backupGPU. It never panics and
// never blocks past the configured budget; the caller reads the Result
// rather than an error because a failed attempt is an outcome, not an
// exception.
func (c *Controller) Failover(ctx context.Context, jobID, failedGPU, backupGPU string) *Result {
	start := time.Now()
	result := &Result{JobID: jobID, FailedGPU: failedGPU, BackupGPU: backupGPU}

	ctx, cancel := context.WithTimeout(ctx, c.config.Budget)
	defer cancel()

	c.trail.Record(audit.Event{
		Type:   audit.EventFailoverStarted,
		Source: source,
		Details: map[string]any{
			"job_id": jobID,
			"from":   failedGPU,
			"to":     backupGPU,
		},
	})
	c.logger.Info().
		Str("job_id", jobID).
		Str("from", failedGPU).
		Str("to", backupGPU).
		Msg("Failover started")

	// Step 1: the backup must be reachable, idle, and answering SSH
	backup, err := c.cp.GetGPU(ctx, backupGPU)
	if err != nil {
		return c.fail(result, start, "Backup GPU unreachable")
	}
	if backup.Status != "idle" {
		return c.fail(result, start, "Backup GPU not idle")
	}
	if backup.Host != "" {
		if res := c.ssh.CheckHost(ctx, backup.Host); !res.Healthy {
			return c.fail(result, start, "Backup GPU SSH unreachable")
		}
	}

	// Step 2: newest verified checkpoint. A job that never checkpointed
	// restarts from scratch; that is worse for the tenant but not a
	// reason to leave the job dead on the failed GPU.
	_, meta, err := c.ckpts.LoadLatest(ctx, jobID)
	if err != nil {
		c.logger.Warn().Err(err).Str("job_id", jobID).Msg("Checkpoint lookup failed, relaunching from scratch")
	}
	if meta != nil {
		result.IntegrityVerified = true
		result.CheckpointUsed = meta.LocalPath
		if result.CheckpointUsed == "" {
			result.CheckpointUsed = meta.RemoteKey
		}
	}

	// Step 3: relaunch on the backup
	if err := c.cp.RelaunchJob(ctx, jobID, backupGPU, result.CheckpointUsed); err != nil {
		return c.fail(result, start, fmt.Sprintf("Relaunch API error: %v", err))
	}

	// Step 4: confirm the job is actually running on the backup
	confirmed := false
	for attempt := 0; attempt < c.config.ConfirmAttempts; attempt++ {
		if err := sleepCtx(ctx, c.config.ConfirmInterval); err != nil {
			break
		}
		job, err := c.cp.GetJob(ctx, jobID)
		if err != nil {
			continue
		}
		if job.GPU == backupGPU && job.Status == "running" {
			confirmed = true
			break
		}
	}
	if !confirmed {
		return c.fail(result, start, "Job not confirmed running on backup")
	}

	result.Success = true
	result.ElapsedMs = time.Since(start).Milliseconds()

	// Step 5: tell the tenant, best effort
	minutes := result.ElapsedMs / 60000
	if minutes < 1 {
		minutes = 1
	}
	message := fmt.Sprintf("Brief interruption (%dm), job resumed on backup hardware.", minutes)
	if err := c.cp.NotifyJob(ctx, jobID, message); err != nil {
		c.logger.Warn().Err(err).Str("job_id", jobID).Msg("Tenant notification failed")
	}

	c.trail.Record(audit.Event{
		Type:   audit.EventFailoverComplete,
		Source: source,
		Details: map[string]any{
			"job_id":    jobID,
			"ms":        result.ElapsedMs,
			"integrity": result.IntegrityVerified,
		},
	})
	metrics.FailoversTotal.WithLabelValues("success").Inc()
	metrics.FailoverDuration.Observe(time.Since(start).Seconds())
	c.logger.Info().
		Str("job_id", jobID).
		Str("gpu", backupGPU).
		Int64("elapsed_ms", result.ElapsedMs).
		Msg("Failover complete")

	return result
}

// Drill exercises the full failover path with a disposable test job on
// primaryGPU, failing it over to backupGPU. The test job is deleted
// afterwards whether or not the drill passed.
func (c *Controller) Drill(ctx context.Context, primaryGPU, backupGPU string) *DrillResult {
	c.trail.Record(audit.Event{
		Type:   audit.EventFailoverTestStarted,
		Source: source,
		Details: map[string]any{
			"primary": primaryGPU,
			"backup":  backupGPU,
		},
	})
	c.logger.Info().
		Str("primary", primaryGPU).
		Str("backup", backupGPU).
		Msg("Failover drill started")

	jobID, err := c.cp.CreateTestJob(ctx, primaryGPU)
	if err != nil {
		dr := &DrillResult{
			DataLoss: -1,
			Notes:    fmt.Sprintf("could not create test job: %v", err),
		}
		return c.reportDrill(dr, primaryGPU, backupGPU)
	}

	result := c.Failover(ctx, jobID, primaryGPU, backupGPU)

	if err := c.cp.DeleteJob(ctx, jobID); err != nil {
		c.logger.Warn().Err(err).Str("job_id", jobID).Msg("Drill job cleanup failed")
	}

	c.trail.Record(audit.Event{
		Type:   audit.EventFailoverTestComplete,
		Source: source,
		Details: map[string]any{
			"job_id":  jobID,
			"success": result.Success,
			"ms":      result.ElapsedMs,
		},
	})

	dr := &DrillResult{
		Success:        result.Success,
		FailoverTimeMs: result.ElapsedMs,
		Notes:          "OK",
	}
	if !result.IntegrityVerified {
		dr.DataLoss = -1
	}
	if result.Error != "" {
		dr.Notes = result.Error
	}
	return c.reportDrill(dr, primaryGPU, backupGPU)
}

// fail finalizes a failed attempt: one failover_failed audit event with
// the elapsed time, metrics, and the error on the result.
func (c *Controller) fail(result *Result, start time.Time, reason string) *Result {
	result.Success = false
	result.ElapsedMs = time.Since(start).Milliseconds()
	result.Error = reason

	c.trail.Record(audit.Event{
		Type:   audit.EventFailoverFailed,
		Source: source,
		Details: map[string]any{
			"job_id": result.JobID,
			"error":  reason,
			"ms":     result.ElapsedMs,
		},
	})
	metrics.FailoversTotal.WithLabelValues("failure").Inc()
	metrics.FailoverDuration.Observe(float64(result.ElapsedMs) / 1000)
	c.logger.Error().
		Str("job_id", result.JobID).
		Str("reason", reason).
		Int64("elapsed_ms", result.ElapsedMs).
		Msg("Failover failed")

	return result
}

func (c *Controller) reportDrill(dr *DrillResult, primaryGPU, backupGPU string) *DrillResult {
	outcome := "passed"
	if !dr.Success {
		outcome = "FAILED"
	}
	c.logger.Info().
		Str("primary", primaryGPU).
		Str("backup", backupGPU).
		Bool("success", dr.Success).
		Int64("ms", dr.FailoverTimeMs).
		Msg("Failover drill finished")

	if c.alerts != nil {
		c.alerts.Route(&types.Alert{
			Severity:    types.SeverityMedium,
			SourceAgent: "NEXUS",
			Title:       "Failover Drill",
			Message: fmt.Sprintf("Drill %s -> %s %s in %dms: %s",
				primaryGPU, backupGPU, outcome, dr.FailoverTimeMs, dr.Notes),
			Metadata: map[string]string{
				"primary": primaryGPU,
				"backup":  backupGPU,
			},
		})
	}
	return dr
}

// sleepCtx sleeps for d unless ctx is cancelled first
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
