package heartbeat

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dc1-ops/nexus/pkg/log"
	"github.com/dc1-ops/nexus/pkg/metrics"
	"github.com/dc1-ops/nexus/pkg/types"
)

// DefaultCheckInterval is how often the silent sweep runs
const DefaultCheckInterval = 600 * time.Second

// Alerter routes alerts raised by the checker. *alert.Router satisfies
// it.
type Alerter interface {
	Route(a *types.Alert)
}

// Checker periodically sweeps the registry for silent peers and raises
// one HIGH alert naming all of them. The alert router's cooldown keeps
// repeat sweeps from flooding the operator.
type Checker struct {
	agg      *Aggregator
	alerts   Alerter
	interval time.Duration
	logger   zerolog.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewChecker creates a silent-peer checker. A zero interval selects the
// default.
func NewChecker(agg *Aggregator, alerts Alerter, interval time.Duration) *Checker {
	if interval <= 0 {
		interval = DefaultCheckInterval
	}

	return &Checker{
		agg:      agg,
		alerts:   alerts,
		interval: interval,
		logger:   log.WithComponent("heartbeat"),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the sweep loop. The first sweep happens one full
// interval after start.
func (c *Checker) Start() {
	go c.run()
}

// Stop halts the sweep loop
func (c *Checker) Stop() {
	close(c.stopCh)
	<-c.doneCh
}

func (c *Checker) run() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.check()
		case <-c.stopCh:
			return
		}
	}
}

// check runs one silent-peer sweep
func (c *Checker) check() {
	silent, err := c.agg.Silent()
	if err != nil {
		c.logger.Error().Err(err).Msg("Silent peer sweep failed")
		return
	}

	metrics.SilentPeers.Set(float64(len(silent)))
	if len(silent) == 0 {
		return
	}

	names := make([]string, 0, len(silent))
	for _, s := range silent {
		names = append(names, s.AgentName)
	}
	joined := strings.Join(names, ", ")

	c.logger.Warn().Str("agents", joined).Msg("Silent agents detected")
	c.alerts.Route(&types.Alert{
		Severity:    types.SeverityHigh,
		SourceAgent: SelfName,
		Title:       "Silent Agents Detected",
		Message:     fmt.Sprintf("The following agents have not checked in: %s", joined),
	})
}
