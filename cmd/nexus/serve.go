package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dc1-ops/nexus/pkg/alert"
	"github.com/dc1-ops/nexus/pkg/api"
	"github.com/dc1-ops/nexus/pkg/audit"
	"github.com/dc1-ops/nexus/pkg/checkpoint"
	"github.com/dc1-ops/nexus/pkg/config"
	"github.com/dc1-ops/nexus/pkg/failover"
	"github.com/dc1-ops/nexus/pkg/heartbeat"
	"github.com/dc1-ops/nexus/pkg/log"
	"github.com/dc1-ops/nexus/pkg/mc"
	"github.com/dc1-ops/nexus/pkg/metrics"
	"github.com/dc1-ops/nexus/pkg/netmon"
	"github.com/dc1-ops/nexus/pkg/notify"
	"github.com/dc1-ops/nexus/pkg/probe"
	"github.com/dc1-ops/nexus/pkg/recovery"
	"github.com/dc1-ops/nexus/pkg/storage"
	"github.com/dc1-ops/nexus/pkg/supervisor"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the site agent",
	Long: `Start the Nexus agent: checkpoint scheduling, failure recovery,
heartbeat aggregation, network monitoring, and the site HTTP API.
Runs until SIGINT or SIGTERM, then drains cleanly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		return runServe(configPath)
	},
}

func init() {
	serveCmd.Flags().String("config", defaultConfigPath(), "Path to the agent config file")
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.Log.Level),
		JSONOutput: cfg.Log.JSON,
	})
	logger := log.WithComponent("agent")
	metrics.SetVersion(Version)

	logger.Info().
		Str("version", Version).
		Str("config", configPath).
		Msg("Nexus agent starting")

	// Mission Control client and audit trail. The trail must start before
	// anything that records events.
	registry := heartbeat.NewRegistry(cfg.Heartbeat.Peers)
	selfID, ok := registry.IDFor(alert.SelfSource)
	if !ok {
		selfID = alert.SelfSource
	}
	mcClient := mc.NewClient(cfg.MC.BaseURL, selfID, cfg.MC.Token)

	trail := audit.NewTrail(audit.NewLogSink(), audit.NewMCSink(mcClient))
	trail.Start()

	chat := notify.NewTelegramSender(cfg.Chat.BotToken)
	alerts := alert.NewRouter(mcClient, chat, alert.Config{
		DMChatID:    cfg.Chat.DMChatID,
		GroupChatID: cfg.Chat.GroupChatID,
		Cooldown:    time.Duration(cfg.Alerts.CooldownS) * time.Second,
		BatchFlush:  time.Duration(cfg.Alerts.BatchFlushS) * time.Second,
	})

	// Durable stores
	hbStore, err := storage.NewSQLiteHeartbeatStore(cfg.HeartbeatDBPath())
	if err != nil {
		return fmt.Errorf("failed to open heartbeat store: %w", err)
	}
	defer hbStore.Close()
	metrics.RegisterComponent("heartbeat-store", true, "")

	metricStore, err := storage.NewSQLiteMetricStore(cfg.MetricsDBPath())
	if err != nil {
		return fmt.Errorf("failed to open metric store: %w", err)
	}
	defer metricStore.Close()
	metrics.RegisterComponent("metric-store", true, "")

	jobs, err := storage.NewBoltJobStore(cfg.JobsDBPath())
	if err != nil {
		return fmt.Errorf("failed to open job registry: %w", err)
	}
	defer jobs.Close()

	// Heartbeats
	agg := heartbeat.NewAggregator(hbStore, registry,
		time.Duration(cfg.Heartbeat.SilentThresholdMin)*time.Minute)
	checker := heartbeat.NewChecker(agg, alerts, 0)

	// Dual-medium checkpoint store
	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	local, err := checkpoint.NewLocalMedium(cfg.Checkpoint.LocalBasePath)
	if err != nil {
		return fmt.Errorf("failed to init local checkpoint medium: %w", err)
	}
	remote, err := checkpoint.NewS3Medium(startCtx, checkpoint.S3Config{
		Bucket:    cfg.Checkpoint.S3Bucket,
		Endpoint:  cfg.Checkpoint.S3Endpoint,
		Region:    cfg.Checkpoint.S3Region,
		AccessKey: cfg.Checkpoint.S3AccessKey,
		SecretKey: cfg.Checkpoint.S3SecretKey,
	})
	if err != nil {
		return fmt.Errorf("failed to init S3 checkpoint medium: %w", err)
	}
	ckptStore := checkpoint.NewStore(local, remote, trail)
	metrics.RegisterComponent("checkpoint-store", true, "")

	sched := checkpoint.NewScheduler(ckptStore, mcClient, alerts, agg, checkpoint.SchedulerConfig{
		SaveInterval: time.Duration(cfg.Checkpoint.SaveIntervalS) * time.Second,
		KeepN:        cfg.Checkpoint.RetentionKeepN,
	})

	// Jobs registered before the last shutdown resume checkpointing
	restored, err := jobs.List()
	if err != nil {
		return fmt.Errorf("failed to list registered jobs: %w", err)
	}
	for _, spec := range restored {
		sched.StartJob(*spec)
	}
	if len(restored) > 0 {
		logger.Info().Int("jobs", len(restored)).Msg("Checkpoint scheduling resumed")
	}

	// Network monitor
	pingTimeout := time.Duration(cfg.Network.PingTimeoutS) * time.Second
	monitor := netmon.NewMonitor(
		probe.NewPingProber(cfg.Network.PrimaryTarget).WithTimeout(pingTimeout),
		probe.NewPingProber(cfg.Network.FallbackTarget).WithTimeout(pingTimeout),
		metricStore,
		alerts,
		netmon.Config{
			Interval:      time.Duration(cfg.Network.PingIntervalS) * time.Second,
			RollingWindow: time.Duration(cfg.Network.RollingWindowS) * time.Second,
			LossPctAlert:  cfg.Network.LossPctAlert,
			OutageAfter:   time.Duration(cfg.Network.OutageConsecutiveS) * time.Second,
			Retention:     time.Duration(cfg.Network.RetentionDays) * 24 * time.Hour,
		},
	)

	// Recovery pipeline: detector finds failures, orchestrator walks the
	// FSM, controller moves jobs to backups
	ssh := probe.NewSSHProber()
	fc := failover.NewController(mcClient, ssh, ckptStore, trail, alerts, failover.Config{
		Budget: time.Duration(cfg.Recovery.FailoverBudgetMs) * time.Millisecond,
	})
	orch := recovery.NewOrchestrator(mcClient, ssh, fc, alerts, trail, recovery.Config{
		ReconnectDelays:   secondsToDurations(cfg.Recovery.ReconnectDelaysS),
		EscalationTimeout: time.Duration(cfg.Recovery.EscalationTimeoutS) * time.Second,
		BackupMap:         cfg.Recovery.BackupMap,
	})
	detector := recovery.NewDetector(mcClient, ssh, recovery.DetectorConfig{
		ThermalThresholdC: cfg.Recovery.ThermalThresholdC,
		StallThreshold:    time.Duration(cfg.Recovery.StallThresholdMin) * time.Minute,
	})
	watcher := recovery.NewWatcher(sched, detector, orch, 0)

	// Long-running loops run under supervision so a panic in one does not
	// take the agent down
	sup := supervisor.New(alerts)
	sup.Go("netmon", monitor.Run)
	sup.Go("recovery-watch", watcher.Run)
	checker.Start()

	apiServer := api.NewServer(cfg.Server.ListenAddr, api.RouterConfig{
		MCToken:    cfg.MC.Token,
		Heartbeats: agg,
		Network:    monitor,
		Scheduler:  sched,
		Jobs:       jobs,
	})
	metrics.RegisterComponent("api", true, "")

	errCh := make(chan error, 1)
	go func() {
		errCh <- apiServer.Start()
	}()

	logger.Info().Str("addr", cfg.Server.ListenAddr).Msg("Nexus agent started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("HTTP server failed")
			serveErr = err
		}
	}

	// Drain order: listener first so nothing new arrives, loops next,
	// alert batch and audit queue after their last producers, stores
	// last via the defers above.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("HTTP shutdown incomplete")
	}

	sup.Stop(10 * time.Second)
	checker.Stop()
	sched.StopAll()
	alerts.FlushBatch()
	trail.Stop()

	logger.Info().Msg("Shutdown complete")
	return serveErr
}

func secondsToDurations(seconds []int) []time.Duration {
	out := make([]time.Duration, 0, len(seconds))
	for _, s := range seconds {
		out = append(out, time.Duration(s)*time.Second)
	}
	return out
}
