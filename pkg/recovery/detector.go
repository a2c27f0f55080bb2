package recovery

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dc1-ops/nexus/pkg/log"
	"github.com/dc1-ops/nexus/pkg/mc"
	"github.com/dc1-ops/nexus/pkg/probe"
	"github.com/dc1-ops/nexus/pkg/types"
)

// ControlPlane is the slice of the Mission Control API this package
// needs. *mc.Client satisfies it.
type ControlPlane interface {
	GetGPU(ctx context.Context, gpuID string) (*types.GPUStatus, error)
	GetGPUMetrics(ctx context.Context, gpuID string) (*mc.GPUMetrics, error)
	GetJob(ctx context.Context, jobID string) (*types.JobStatus, error)
}

// HostProber checks SSH reachability of a provider host. *probe.SSHProber
// satisfies it.
type HostProber interface {
	CheckHost(ctx context.Context, host string) probe.Result
}

// DetectorConfig bounds the failure classification checks
type DetectorConfig struct {
	// ThermalThresholdC is the GPU temperature above which the GPU is
	// considered failing (default 80)
	ThermalThresholdC float64

	// StallThreshold is how long a job may go without progress before
	// it counts as hung (default 30m)
	StallThreshold time.Duration
}

func (c *DetectorConfig) applyDefaults() {
	if c.ThermalThresholdC == 0 {
		c.ThermalThresholdC = 80
	}
	if c.StallThreshold == 0 {
		c.StallThreshold = 30 * time.Minute
	}
}

// Detector classifies the health of GPU hosts. Checks run in a fixed
// order and the first hit wins, so one sweep never reports two failure
// types for the same GPU.
type Detector struct {
	cp     ControlPlane
	ssh    HostProber
	config DetectorConfig
	logger zerolog.Logger
}

// NewDetector creates a failure detector
func NewDetector(cp ControlPlane, ssh HostProber, config DetectorConfig) *Detector {
	config.applyDefaults()
	return &Detector{
		cp:     cp,
		ssh:    ssh,
		config: config,
		logger: log.WithComponent("detector"),
	}
}

// Detect returns the failure affecting gpuID, or nil when the GPU looks
// healthy. Check order: status fetch, SSH, temperature, job progress.
func (d *Detector) Detect(ctx context.Context, gpuID string) *types.FailureEvent {
	status, err := d.cp.GetGPU(ctx, gpuID)
	if err != nil {
		d.logger.Debug().Err(err).Str("gpu_id", gpuID).Msg("GPU status fetch failed")
		return failure(types.FailurePowerLoss, "GPU host not responding")
	}

	if status.Host != "" {
		if res := d.ssh.CheckHost(ctx, status.Host); !res.Healthy {
			return failure(types.FailureNetworkLoss, fmt.Sprintf("SSH unreachable: %s", status.Host))
		}
	}

	// Metrics fetch failures do not fail the GPU on their own; the
	// status endpoint already answered above.
	if m, err := d.cp.GetGPUMetrics(ctx, gpuID); err == nil && m.Temperature != nil {
		if *m.Temperature > d.config.ThermalThresholdC {
			return failure(types.FailureThermal,
				fmt.Sprintf("GPU temperature %.1fC exceeds %.1fC", *m.Temperature, d.config.ThermalThresholdC))
		}
	}

	if status.CurrentJobID != "" {
		if job, err := d.cp.GetJob(ctx, status.CurrentJobID); err == nil && job.LastProgressAt != nil {
			silent := time.Since(*job.LastProgressAt)
			if silent > d.config.StallThreshold {
				return failure(types.FailureTimeout,
					fmt.Sprintf("no progress for %d minutes", int(silent.Minutes())))
			}
		}
	}

	return nil
}

func failure(ft types.FailureType, detail string) *types.FailureEvent {
	return &types.FailureEvent{
		Type:       ft,
		DetectedAt: time.Now().UTC(),
		Detail:     detail,
	}
}
