package netmon

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dc1-ops/nexus/pkg/log"
	"github.com/dc1-ops/nexus/pkg/metrics"
	"github.com/dc1-ops/nexus/pkg/probe"
	"github.com/dc1-ops/nexus/pkg/types"
)

// bucketLayout is the hourly rollup key format (YYYY-MM-DD-HH, UTC).
const bucketLayout = "2006-01-02-15"

// Alerter is the slice of the alert router the monitor needs.
type Alerter interface {
	Route(a *types.Alert)
}

// SampleStore is the slice of the metric store the monitor needs.
type SampleStore interface {
	InsertSample(s *types.PingSample) error
	SamplesSince(since time.Time) ([]*types.PingSample, error)
	UpsertBucket(b *types.LatencyBucket) error
	Prune(cutoff time.Time, bucketCutoff string) error
}

// Config tunes the probe loop. Zero values fall back to the defaults
// the site runs with.
type Config struct {
	// Interval is the probe cadence (default 10s).
	Interval time.Duration
	// RollingWindow bounds the loss computation (default 60s).
	RollingWindow time.Duration
	// LossPctAlert is the degraded/loss-alert threshold (default 5.0).
	LossPctAlert float64
	// OutageAfter is how long probes may stay silent before an outage
	// alert fires (default 5s).
	OutageAfter time.Duration
	// Retention bounds raw samples and hourly rollups (default 7 days).
	Retention time.Duration
}

func (c *Config) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = 10 * time.Second
	}
	if c.RollingWindow <= 0 {
		c.RollingWindow = 60 * time.Second
	}
	if c.LossPctAlert <= 0 {
		c.LossPctAlert = 5.0
	}
	if c.OutageAfter <= 0 {
		c.OutageAfter = 5 * time.Second
	}
	if c.Retention <= 0 {
		c.Retention = 7 * 24 * time.Hour
	}
}

// Status is the connectivity snapshot served at GET /status.
type Status struct {
	Status       string     `json:"status"` // healthy | degraded
	LatencyMs    float64    `json:"latency_ms"`
	LossPct      float64    `json:"loss_pct"`
	UptimePct24h float64    `json:"uptime_pct_24h"`
	LastOutage   *time.Time `json:"last_outage"`
}

// Monitor probes the ISP path and keeps a rolling view of its health.
// Run owns the loop; Status may be called from any goroutine.
type Monitor struct {
	primary  probe.Prober
	fallback probe.Prober
	store    SampleStore
	alerts   Alerter
	config   Config
	logger   zerolog.Logger

	mu          sync.Mutex
	samples     []*types.PingSample
	lastLatency float64
	lastSuccess time.Time
	lastOutage  *time.Time
}

// NewMonitor wires a monitor. lastSuccessTs starts at process start so
// the first failed cycle alone cannot look like an hour-long outage.
func NewMonitor(primary, fallback probe.Prober, store SampleStore, alerts Alerter, config Config) *Monitor {
	config.applyDefaults()
	return &Monitor{
		primary:     primary,
		fallback:    fallback,
		store:       store,
		alerts:      alerts,
		config:      config,
		logger:      log.WithComponent("netmon"),
		lastSuccess: time.Now().UTC(),
	}
}

// Run probes until ctx is cancelled, rolling up latency percentiles once
// per hour of process time.
func (m *Monitor) Run(ctx context.Context) {
	probeTicker := time.NewTicker(m.config.Interval)
	defer probeTicker.Stop()
	rollupTicker := time.NewTicker(time.Hour)
	defer rollupTicker.Stop()

	m.logger.Info().
		Str("primary", m.primary.Target()).
		Str("fallback", m.fallback.Target()).
		Dur("interval", m.config.Interval).
		Msg("Network monitor started")

	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("Network monitor stopped")
			return
		case <-probeTicker.C:
			m.cycle(ctx)
		case <-rollupTicker.C:
			m.rollup(time.Now().UTC())
		}
	}
}

// cycle runs one probe round: primary, fallback on failure, then sample
// bookkeeping and alerting.
func (m *Monitor) cycle(ctx context.Context) {
	res := m.primary.Check(ctx)
	target := m.primary.Target()
	if res.LatencyMs == nil {
		if fb := m.fallback.Check(ctx); fb.LatencyMs != nil {
			res = fb
			target = m.fallback.Target()
		}
	}

	now := time.Now().UTC()
	sample := &types.PingSample{
		Timestamp: now,
		Target:    target,
		LatencyMs: res.LatencyMs,
		Success:   res.LatencyMs != nil,
	}
	m.observe(sample)

	if err := m.store.InsertSample(sample); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to persist ping sample")
	}
}

// observe folds one sample into the rolling state and raises whatever
// alerts it implies. Split from cycle so tests can feed samples directly.
func (m *Monitor) observe(sample *types.PingSample) {
	m.mu.Lock()

	m.samples = append(m.samples, sample)
	if limit := m.windowCap(); len(m.samples) > limit {
		m.samples = m.samples[len(m.samples)-limit:]
	}

	now := sample.Timestamp
	var gap time.Duration
	if sample.Success {
		m.lastLatency = *sample.LatencyMs
		m.lastSuccess = now
	} else {
		gap = now.Sub(m.lastSuccess)
	}

	loss := m.lossLocked(now)
	outage := !sample.Success && gap >= m.config.OutageAfter
	if outage {
		t := now
		m.lastOutage = &t
	}
	m.mu.Unlock()

	if sample.Success {
		metrics.PingLatency.Observe(*sample.LatencyMs)
	}
	metrics.PacketLoss.Set(loss)

	if outage {
		m.logger.Error().
			Str("target", sample.Target).
			Dur("gap", gap).
			Msg("Network outage detected")
		m.alerts.Route(&types.Alert{
			Severity:    types.SeverityCritical,
			SourceAgent: "NEXUS",
			Title:       "Network Outage",
			Message:     fmt.Sprintf("Network outage detected — %ds no response", int(gap.Seconds())),
			Metadata:    map[string]string{"target": sample.Target},
		})
		return
	}

	if sample.Success && loss > m.config.LossPctAlert {
		m.logger.Warn().Float64("loss_pct", loss).Msg("High packet loss")
		m.alerts.Route(&types.Alert{
			Severity:    types.SeverityMedium,
			SourceAgent: "NEXUS",
			Title:       "High Packet Loss",
			Message:     fmt.Sprintf("Packet loss %.1f%% over the last %ds", loss, int(m.config.RollingWindow.Seconds())),
			Metadata:    map[string]string{"target": sample.Target},
		})
	}
}

// windowCap bounds the deque at twice the rolling window so the loss
// computation always has a full window even with clock jitter.
func (m *Monitor) windowCap() int {
	n := int(2 * m.config.RollingWindow / m.config.Interval)
	if n < 1 {
		n = 1
	}
	return n
}

// lossLocked computes the loss percentage over samples inside the
// rolling window. An empty window is 0%, not 100%: silence before the
// first probe is not evidence of loss.
func (m *Monitor) lossLocked(now time.Time) float64 {
	horizon := now.Add(-m.config.RollingWindow)
	var total, failed int
	for _, s := range m.samples {
		if s.Timestamp.Before(horizon) {
			continue
		}
		total++
		if !s.Success {
			failed++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(failed) / float64(total) * 100
}

// LossPct reports the current rolling loss percentage.
func (m *Monitor) LossPct() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lossLocked(time.Now().UTC())
}

// rollup aggregates the last hour of successful samples into one
// percentile bucket, then prunes rows past retention.
func (m *Monitor) rollup(now time.Time) {
	samples, err := m.store.SamplesSince(now.Add(-time.Hour))
	if err != nil {
		m.logger.Warn().Err(err).Msg("Rollup skipped, sample query failed")
		return
	}

	var lat []float64
	for _, s := range samples {
		if s.Success && s.LatencyMs != nil {
			lat = append(lat, *s.LatencyMs)
		}
	}
	if len(lat) > 0 {
		sort.Float64s(lat)
		bucket := &types.LatencyBucket{
			Bucket: now.Format(bucketLayout),
			P50:    percentile(lat, 50),
			P95:    percentile(lat, 95),
			P99:    percentile(lat, 99),
			Count:  len(lat),
		}
		if err := m.store.UpsertBucket(bucket); err != nil {
			m.logger.Warn().Err(err).Str("bucket", bucket.Bucket).Msg("Failed to write latency rollup")
		} else {
			m.logger.Debug().
				Str("bucket", bucket.Bucket).
				Float64("p50", bucket.P50).
				Float64("p99", bucket.P99).
				Int("count", bucket.Count).
				Msg("Hourly latency rollup")
		}
	}

	cutoff := now.Add(-m.config.Retention)
	if err := m.store.Prune(cutoff, cutoff.Format(bucketLayout)); err != nil {
		m.logger.Warn().Err(err).Msg("Metric prune failed")
	}
}

// percentile is nearest-rank over a sorted slice.
func percentile(sorted []float64, q int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := len(sorted) * q / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Status assembles the snapshot served at GET /status. The 24h uptime
// comes from the metric store because it outlives the in-memory window;
// no history defaults to 100.
func (m *Monitor) Status() (*Status, error) {
	now := time.Now().UTC()

	m.mu.Lock()
	loss := m.lossLocked(now)
	latency := m.lastLatency
	lastOutage := m.lastOutage
	m.mu.Unlock()

	state := "healthy"
	if loss > m.config.LossPctAlert {
		state = "degraded"
	}

	uptime := 100.0
	samples, err := m.store.SamplesSince(now.Add(-24 * time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to query 24h samples: %w", err)
	}
	if len(samples) > 0 {
		var ok int
		for _, s := range samples {
			if s.Success {
				ok++
			}
		}
		uptime = float64(ok) / float64(len(samples)) * 100
	}

	return &Status{
		Status:       state,
		LatencyMs:    latency,
		LossPct:      loss,
		UptimePct24h: uptime,
		LastOutage:   lastOutage,
	}, nil
}
