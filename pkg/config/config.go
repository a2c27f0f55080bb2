package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the immutable agent configuration, loaded once at startup.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	MC         MCConfig         `yaml:"mc"`
	Chat       ChatConfig       `yaml:"chat"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Network    NetworkConfig    `yaml:"network"`
	Heartbeat  HeartbeatConfig  `yaml:"heartbeat"`
	Alerts     AlertConfig      `yaml:"alerts"`
	Recovery   RecoveryConfig   `yaml:"recovery"`
	Server     ServerConfig     `yaml:"server"`
	DataDir    string           `yaml:"data_dir"`
}

// LogConfig controls structured logging output
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// MCConfig locates the Mission Control API
type MCConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
}

// ChatConfig holds the operator chat transport credentials
type ChatConfig struct {
	BotToken    string `yaml:"bot_token"`
	DMChatID    string `yaml:"dm_chat_id"`
	GroupChatID string `yaml:"group_chat_id"`
}

// CheckpointConfig controls the dual-medium checkpoint store
type CheckpointConfig struct {
	S3Bucket       string `yaml:"s3_bucket"`
	S3Endpoint     string `yaml:"s3_endpoint"`
	S3Region       string `yaml:"s3_region"`
	S3AccessKey    string `yaml:"s3_access_key"`
	S3SecretKey    string `yaml:"s3_secret_key"`
	LocalBasePath  string `yaml:"local_base_path"`
	SaveIntervalS  int    `yaml:"save_interval_s"`
	RetentionKeepN int    `yaml:"retention_keep_n"`
}

// NetworkConfig controls the network monitor probe loop
type NetworkConfig struct {
	PrimaryTarget      string  `yaml:"primary_target"`
	FallbackTarget     string  `yaml:"fallback_target"`
	PingIntervalS      int     `yaml:"ping_interval_s"`
	PingTimeoutS       int     `yaml:"ping_timeout_s"`
	LossPctAlert       float64 `yaml:"loss_pct_alert"`
	OutageConsecutiveS int     `yaml:"outage_consecutive_s"`
	RollingWindowS     int     `yaml:"rolling_window_s"`
	RetentionDays      int     `yaml:"retention_days"`
}

// HeartbeatConfig controls the heartbeat aggregator
type HeartbeatConfig struct {
	SilentThresholdMin int               `yaml:"silent_threshold_min"`
	Peers              map[string]string `yaml:"peers"` // name -> agent id, defaults to the built-in registry
}

// AlertConfig controls alert routing
type AlertConfig struct {
	CooldownS   int `yaml:"alert_cooldown_s"`
	BatchFlushS int `yaml:"batch_flush_s"`
}

// RecoveryConfig controls the recovery FSM and failover controller
type RecoveryConfig struct {
	EscalationTimeoutS int               `yaml:"escalation_timeout_s"`
	ReconnectDelaysS   []int             `yaml:"reconnect_delays_s"`
	FailoverBudgetMs   int               `yaml:"failover_budget_ms"`
	ThermalThresholdC  float64           `yaml:"thermal_threshold_c"`
	StallThresholdMin  int               `yaml:"stall_threshold_min"`
	BackupMap          map[string]string `yaml:"backup_map"` // primary gpu -> backup gpu
}

// ServerConfig controls the HTTP listener
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Load reads the YAML config at path, fills defaults, and validates.
// Validation failures list every problem so a bad deploy is fixed in one
// pass.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.DataDir == "" {
		c.DataDir = "/var/dc1"
	}
	if c.Checkpoint.S3Region == "" {
		c.Checkpoint.S3Region = "us-east-1"
	}
	if c.Checkpoint.LocalBasePath == "" {
		c.Checkpoint.LocalBasePath = "/var/dc1/checkpoints"
	}
	if c.Checkpoint.SaveIntervalS == 0 {
		c.Checkpoint.SaveIntervalS = 3600
	}
	if c.Checkpoint.RetentionKeepN == 0 {
		c.Checkpoint.RetentionKeepN = 3
	}
	if c.Network.PrimaryTarget == "" {
		c.Network.PrimaryTarget = "8.8.8.8"
	}
	if c.Network.FallbackTarget == "" {
		c.Network.FallbackTarget = "1.1.1.1"
	}
	if c.Network.PingIntervalS == 0 {
		c.Network.PingIntervalS = 10
	}
	if c.Network.PingTimeoutS == 0 {
		c.Network.PingTimeoutS = 5
	}
	if c.Network.LossPctAlert == 0 {
		c.Network.LossPctAlert = 5.0
	}
	if c.Network.OutageConsecutiveS == 0 {
		c.Network.OutageConsecutiveS = 5
	}
	if c.Network.RollingWindowS == 0 {
		c.Network.RollingWindowS = 60
	}
	if c.Network.RetentionDays == 0 {
		c.Network.RetentionDays = 7
	}
	if c.Heartbeat.SilentThresholdMin == 0 {
		c.Heartbeat.SilentThresholdMin = 130
	}
	if c.Alerts.CooldownS == 0 {
		c.Alerts.CooldownS = 600
	}
	if c.Alerts.BatchFlushS == 0 {
		c.Alerts.BatchFlushS = 1800
	}
	if c.Recovery.EscalationTimeoutS == 0 {
		c.Recovery.EscalationTimeoutS = 600
	}
	if len(c.Recovery.ReconnectDelaysS) == 0 {
		c.Recovery.ReconnectDelaysS = []int{1, 2, 4, 8, 16}
	}
	if c.Recovery.FailoverBudgetMs == 0 {
		c.Recovery.FailoverBudgetMs = 60000
	}
	if c.Recovery.ThermalThresholdC == 0 {
		c.Recovery.ThermalThresholdC = 80
	}
	if c.Recovery.StallThresholdMin == 0 {
		c.Recovery.StallThresholdMin = 30
	}
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8088"
	}
}

// Validate checks required credentials and value ranges. All problems are
// collected and returned as one error, newline-separated.
func (c *Config) Validate() error {
	var problems []string

	if c.MC.BaseURL == "" {
		problems = append(problems, "mc.base_url is required")
	}
	if c.MC.Token == "" {
		problems = append(problems, "mc.token is required")
	}
	if c.Chat.BotToken == "" {
		problems = append(problems, "chat.bot_token is required")
	}
	if c.Chat.DMChatID == "" {
		problems = append(problems, "chat.dm_chat_id is required")
	}
	if c.Chat.GroupChatID == "" {
		problems = append(problems, "chat.group_chat_id is required")
	}
	if c.Checkpoint.S3Bucket == "" {
		problems = append(problems, "checkpoint.s3_bucket is required")
	}
	if c.Checkpoint.S3AccessKey == "" {
		problems = append(problems, "checkpoint.s3_access_key is required")
	}
	if c.Checkpoint.S3SecretKey == "" {
		problems = append(problems, "checkpoint.s3_secret_key is required")
	}
	if c.Checkpoint.SaveIntervalS < 0 {
		problems = append(problems, "checkpoint.save_interval_s must be positive")
	}
	if c.Checkpoint.RetentionKeepN < 1 {
		problems = append(problems, "checkpoint.retention_keep_n must be at least 1")
	}
	if c.Network.PingIntervalS <= 0 {
		problems = append(problems, "network.ping_interval_s must be positive")
	}
	if c.Network.PingTimeoutS <= 0 {
		problems = append(problems, "network.ping_timeout_s must be positive")
	}
	if c.Network.LossPctAlert < 0 || c.Network.LossPctAlert > 100 {
		problems = append(problems, "network.loss_pct_alert must be between 0 and 100")
	}
	if c.Network.RollingWindowS <= 0 {
		problems = append(problems, "network.rolling_window_s must be positive")
	}
	if c.Network.RetentionDays < 1 {
		problems = append(problems, "network.retention_days must be at least 1")
	}
	if c.Heartbeat.SilentThresholdMin <= 0 {
		problems = append(problems, "heartbeat.silent_threshold_min must be positive")
	}
	for i, d := range c.Recovery.ReconnectDelaysS {
		if d <= 0 {
			problems = append(problems, fmt.Sprintf("recovery.reconnect_delays_s[%d] must be positive", i))
		}
	}
	if c.Recovery.FailoverBudgetMs <= 0 {
		problems = append(problems, "recovery.failover_budget_ms must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n%s", strings.Join(problems, "\n"))
	}

	return nil
}

// HeartbeatDBPath returns the SQLite path for the heartbeat store
func (c *Config) HeartbeatDBPath() string {
	return filepath.Join(c.DataDir, "heartbeats.db")
}

// MetricsDBPath returns the SQLite path for the network metric store
func (c *Config) MetricsDBPath() string {
	return filepath.Join(c.DataDir, "netmon.db")
}

// JobsDBPath returns the bbolt path for the job registry
func (c *Config) JobsDBPath() string {
	return filepath.Join(c.DataDir, "jobs.db")
}
