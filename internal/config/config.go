package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-resolver/internal/patterns"
)

const envPrefix = "MIRADOR_RESOLVER_"

// Config captures the settings required to boot the resolver service.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Engine     EngineConfig     `yaml:"engine"`
	Alerts     AlertsConfig     `yaml:"alerts"`
	Guidance   GuidanceConfig   `yaml:"guidance"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Intake     IntakeConfig     `yaml:"intake"`
	NATS       NATSConfig       `yaml:"nats"`
}

// ServerConfig controls gRPC listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string            `yaml:"level"`
	JSON  bool              `yaml:"json"`
	File  LoggingFileConfig `yaml:"file"`
}

// LoggingFileConfig enables a rotated log file alongside stdout.
type LoggingFileConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
}

// EngineConfig sizes the in-memory stores and tunes strategy selection.
type EngineConfig struct {
	HistoryCapacity          int           `yaml:"historyCapacity"`
	TimestampCapacity        int           `yaml:"timestampCapacity"`
	LedgerCapacity           int           `yaml:"ledgerCapacity"`
	RecurrenceThreshold      int           `yaml:"recurrenceThreshold"`
	AutoFixEnabled           bool          `yaml:"autoFixEnabled"`
	MaintenanceWindow        bool          `yaml:"maintenanceWindow"`
	MaxAverageGenerationTime time.Duration `yaml:"maxAverageGenerationTime"`
	ReportWindow             int           `yaml:"reportWindow"`
}

// AlertsConfig holds alert thresholds and the evaluation schedule.
// A non-positive threshold disables its rule.
type AlertsConfig struct {
	ErrorRatePerHour      float64       `yaml:"errorRatePerHour"`
	TrendingUp            bool          `yaml:"trendingUp"`
	FailedResolutionRatio float64       `yaml:"failedResolutionRatio"`
	FailureWindow         int           `yaml:"failureWindow"`
	CriticalPerDay        int           `yaml:"criticalPerDay"`
	CriticalPerDayStrict  int           `yaml:"criticalPerDayStrict"`
	Schedule              string        `yaml:"schedule"`
	LogEvery              time.Duration `yaml:"logEvery"`
	LogBurst              int           `yaml:"logBurst"`
}

// GuidanceConfig controls guidance-pack loading for guided resolutions.
type GuidanceConfig struct {
	Path string `yaml:"path"`
}

// CheckpointConfig controls persistence of history and ledger snapshots.
type CheckpointConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Path     string `yaml:"path"`
	Schedule string `yaml:"schedule"`
}

// IntakeConfig lists server error logs to follow.
type IntakeConfig struct {
	LogPaths []string `yaml:"logPaths"`
}

// NATSConfig enables alert publication to a NATS subject.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(envPrefix + "CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Server.Address == "":
		return errors.New("server.address is required")
	case c.Engine.HistoryCapacity < patterns.MinRecordsForPrediction:
		return fmt.Errorf("engine.historyCapacity must be at least %d, got %d", patterns.MinRecordsForPrediction, c.Engine.HistoryCapacity)
	case c.Engine.TimestampCapacity <= 0:
		return fmt.Errorf("engine.timestampCapacity must be positive, got %d", c.Engine.TimestampCapacity)
	case c.Engine.LedgerCapacity <= 0:
		return fmt.Errorf("engine.ledgerCapacity must be positive, got %d", c.Engine.LedgerCapacity)
	case c.Checkpoint.Enabled && c.Checkpoint.Path == "":
		return errors.New("checkpoint.path is required when checkpointing is enabled")
	case c.NATS.URL != "" && c.NATS.Subject == "":
		return errors.New("nats.subject is required when nats.url is set")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":50051",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
			JSON:  false,
			File: LoggingFileConfig{
				MaxSizeMB:  100,
				MaxBackups: 3,
				MaxAgeDays: 28,
			},
		},
		Engine: EngineConfig{
			HistoryCapacity:          1000,
			TimestampCapacity:        500,
			LedgerCapacity:           500,
			RecurrenceThreshold:      5,
			AutoFixEnabled:           true,
			MaintenanceWindow:        false,
			MaxAverageGenerationTime: time.Second,
			ReportWindow:             50,
		},
		Alerts: AlertsConfig{
			ErrorRatePerHour:      10,
			TrendingUp:            true,
			FailedResolutionRatio: 0.3,
			FailureWindow:         20,
			CriticalPerDay:        5,
			CriticalPerDayStrict:  3,
			Schedule:              "@every 1m",
			LogEvery:              time.Minute,
			LogBurst:              5,
		},
		Guidance: GuidanceConfig{Path: "configs/guidance/default.yaml"},
		Checkpoint: CheckpointConfig{
			Enabled:  false,
			Path:     "data/resolver.db",
			Schedule: "@every 5m",
		},
		NATS: NATSConfig{Subject: "mirador.resolver.alerts"},
	}
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Server.Address, "SERVER_ADDRESS")
	setString(&cfg.Server.MetricsAddress, "METRICS_ADDRESS")
	setDuration(&cfg.Server.GracefulTimeout, "GRACEFUL_TIMEOUT")

	setString(&cfg.Logging.Level, "LOG_LEVEL")
	if v := os.Getenv(envPrefix + "LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	setString(&cfg.Logging.File.Path, "LOG_FILE")

	setInt(&cfg.Engine.HistoryCapacity, "HISTORY_CAPACITY")
	setInt(&cfg.Engine.TimestampCapacity, "TIMESTAMP_CAPACITY")
	setInt(&cfg.Engine.LedgerCapacity, "LEDGER_CAPACITY")
	setInt(&cfg.Engine.RecurrenceThreshold, "RECURRENCE_THRESHOLD")
	setBool(&cfg.Engine.AutoFixEnabled, "AUTO_FIX_ENABLED")
	setBool(&cfg.Engine.MaintenanceWindow, "MAINTENANCE_WINDOW")
	setDuration(&cfg.Engine.MaxAverageGenerationTime, "MAX_AVERAGE_GENERATION_TIME")
	setInt(&cfg.Engine.ReportWindow, "REPORT_WINDOW")

	setFloat(&cfg.Alerts.ErrorRatePerHour, "ALERT_ERROR_RATE_PER_HOUR")
	setBool(&cfg.Alerts.TrendingUp, "ALERT_TRENDING_UP")
	setFloat(&cfg.Alerts.FailedResolutionRatio, "ALERT_FAILED_RESOLUTION_RATIO")
	setInt(&cfg.Alerts.FailureWindow, "ALERT_FAILURE_WINDOW")
	setInt(&cfg.Alerts.CriticalPerDay, "ALERT_CRITICAL_PER_DAY")
	setInt(&cfg.Alerts.CriticalPerDayStrict, "ALERT_CRITICAL_PER_DAY_STRICT")
	setString(&cfg.Alerts.Schedule, "ALERT_SCHEDULE")

	setString(&cfg.Guidance.Path, "GUIDANCE_PATH")

	setBool(&cfg.Checkpoint.Enabled, "CHECKPOINT_ENABLED")
	setString(&cfg.Checkpoint.Path, "CHECKPOINT_PATH")
	setString(&cfg.Checkpoint.Schedule, "CHECKPOINT_SCHEDULE")

	if v := os.Getenv(envPrefix + "LOG_PATHS"); v != "" {
		cfg.Intake.LogPaths = splitList(v)
	}

	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.Subject, "NATS_SUBJECT")
}

func setString(dst *string, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
