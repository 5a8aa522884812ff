package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"javazone-calendar/pkg/config"
)

// SleepingPillConfig configures the upstream session source.
type SleepingPillConfig struct {
	URLPattern     string `yaml:"url_pattern"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	// FingerprintGeneration is mixed into every hash. Changing it makes the
	// next sync treat every session as changed.
	FingerprintGeneration string `yaml:"fingerprint_generation"`
}

// EmailQueueConfig configures the queue processor.
type EmailQueueConfig struct {
	BatchSize int `yaml:"batch_size"`
	// IntervalSeconds drives the worker's drain ticker. 0 disables it.
	IntervalSeconds int `yaml:"interval_seconds"`
	// FailureTTLSeconds is how long per-entry failure counts are kept in Redis.
	FailureTTLSeconds int `yaml:"failure_ttl_seconds"`
	// LockTTLSeconds bounds how long one drain holds the cross-process lock.
	LockTTLSeconds int `yaml:"lock_ttl_seconds"`
}

// SyncConfig configures scheduled reconciliation.
type SyncConfig struct {
	// IntervalSeconds drives the worker's sync ticker. 0 disables it.
	IntervalSeconds int `yaml:"interval_seconds"`
	LockTTLSeconds  int `yaml:"lock_ttl_seconds"`
}

type Config struct {
	Debug        bool                `yaml:"debug"`
	Year         int                 `yaml:"year"`
	DB           config.DBConfig     `yaml:"db"`
	MQ           config.MQConfig     `yaml:"mq"`
	Redis        config.RedisConfig  `yaml:"redis"`
	JWT          config.JWTConfig    `yaml:"jwt"`
	Server       config.ServerConfig `yaml:"server"`
	Otel         config.OtelConfig   `yaml:"otel"`
	Mail         config.MailConfig   `yaml:"mail"`
	SleepingPill SleepingPillConfig  `yaml:"sleepingpill"`
	EmailQueue   EmailQueueConfig    `yaml:"email_queue"`
	Sync         SyncConfig          `yaml:"sync"`
}

// Load reads config/base.yaml and the overlay for CONFIG_ENV, then applies
// environment overrides.
func Load() (*Config, error) {
	return LoadFrom(config.GetConfigEnv(), config.GetEnv("CONFIG_DIR", "config"))
}

// LoadFrom is Load with an explicit environment and directory.
func LoadFrom(env, dir string) (*Config, error) {
	raw, err := config.LoadConfig(env, dir)
	if err != nil {
		return nil, err
	}

	cfg := defaults()
	if err := config.Decode(raw, cfg); err != nil {
		return nil, err
	}

	// 环境变量覆盖
	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideMailFromEnv(&cfg.Mail)
	if v := os.Getenv("DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = b
		}
	}
	if v := os.Getenv("YEAR"); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			cfg.Year = y
		}
	}

	if cfg.Year <= 0 {
		return nil, fmt.Errorf("invalid conference year %d", cfg.Year)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Year:   time.Now().Year(),
		Server: config.ServerConfig{Port: "8080"},
		SleepingPill: SleepingPillConfig{
			URLPattern:     "https://sleepingpill.javazone.no/public/allSessions/javazone_%d",
			TimeoutSeconds: 30,
		},
		EmailQueue: EmailQueueConfig{BatchSize: 30, FailureTTLSeconds: 86400, LockTTLSeconds: 300},
		Sync:       SyncConfig{LockTTLSeconds: 300},
	}
}

func (c SleepingPillConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c EmailQueueConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

func (c EmailQueueConfig) FailureTTL() time.Duration {
	return time.Duration(c.FailureTTLSeconds) * time.Second
}

func (c EmailQueueConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

func (c SyncConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

func (c SyncConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}
