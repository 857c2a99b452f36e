package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"sentinel-automod/internal/modules/automod"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken           string              `yaml:"discord_token"`
	DatabasePath           string              `yaml:"database_path"`
	LogLevel               string              `yaml:"log_level"`
	RetentionDays          int                 `yaml:"retention_days"`
	SweepIntervalSeconds   int                 `yaml:"sweep_interval_seconds"`
	CleanupIntervalMinutes int                 `yaml:"cleanup_interval_minutes"`
	Health                 HealthConfig        `yaml:"health"`
	Enforcement            EnforcementConfig   `yaml:"enforcement"`
	Cache                  CacheConfig         `yaml:"cache"`
	Automod                automod.GuildConfig `yaml:"automod"`
}

// HealthConfig controls the HTTP listener serving /health and /metrics.
type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type EnforcementConfig struct {
	Workers           int     `yaml:"workers"`
	QueueSize         int     `yaml:"queue_size"`
	APIRatePerSecond  float64 `yaml:"api_rate_per_second"`
	APIBurst          int     `yaml:"api_burst"`
	ForgiveAfterHours int     `yaml:"forgive_after_hours"`
}

type CacheConfig struct {
	MaxGuilds  int `yaml:"max_guilds"`
	TTLMinutes int `yaml:"ttl_minutes"`
}

func DefaultConfig() Config {
	return Config{
		DatabasePath:           "/data/sentinel.db",
		LogLevel:               "info",
		RetentionDays:          14,
		SweepIntervalSeconds:   60,
		CleanupIntervalMinutes: 60,
		Health:                 HealthConfig{Enabled: false, Addr: ":8080"},
		Enforcement: EnforcementConfig{
			Workers:           4,
			QueueSize:         1000,
			APIRatePerSecond:  20,
			APIBurst:          10,
			ForgiveAfterHours: 24,
		},
		Cache:   CacheConfig{MaxGuilds: 10000, TTLMinutes: 10},
		Automod: automod.DefaultGuildConfig(),
	}
}

func Load() (Config, error) {
	// a missing .env is the normal case outside local development
	_ = godotenv.Load()

	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}

	normalize(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.RetentionDays = envInt("RETENTION_DAYS", cfg.RetentionDays)
	cfg.SweepIntervalSeconds = envInt("SWEEP_INTERVAL_SECONDS", cfg.SweepIntervalSeconds)
	cfg.CleanupIntervalMinutes = envInt("CLEANUP_INTERVAL_MINUTES", cfg.CleanupIntervalMinutes)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.Enforcement.Workers = envInt("ENFORCEMENT_WORKERS", cfg.Enforcement.Workers)
	cfg.Enforcement.QueueSize = envInt("ENFORCEMENT_QUEUE_SIZE", cfg.Enforcement.QueueSize)
	cfg.Enforcement.APIRatePerSecond = envFloat("ENFORCEMENT_API_RATE", cfg.Enforcement.APIRatePerSecond)
	cfg.Enforcement.APIBurst = envInt("ENFORCEMENT_API_BURST", cfg.Enforcement.APIBurst)
	cfg.Enforcement.ForgiveAfterHours = envInt("FORGIVE_AFTER_HOURS", cfg.Enforcement.ForgiveAfterHours)
	cfg.Cache.MaxGuilds = envInt("CACHE_MAX_GUILDS", cfg.Cache.MaxGuilds)
	cfg.Cache.TTLMinutes = envInt("CACHE_TTL_MINUTES", cfg.Cache.TTLMinutes)
	cfg.Automod.Spam.MaxMessages = envInt("SPAM_MESSAGES", cfg.Automod.Spam.MaxMessages)
	cfg.Automod.Spam.WindowSeconds = envInt("SPAM_WINDOW_SECONDS", cfg.Automod.Spam.WindowSeconds)
	cfg.Automod.Raid.Enabled = envBool("RAID_ENABLED", cfg.Automod.Raid.Enabled)
	cfg.Automod.Raid.JoinThreshold = envInt("RAID_JOINS", cfg.Automod.Raid.JoinThreshold)
	cfg.Automod.Raid.WindowSeconds = envInt("RAID_WINDOW_SECONDS", cfg.Automod.Raid.WindowSeconds)
}

func normalize(cfg *Config) {
	defaults := DefaultConfig()
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = defaults.RetentionDays
	}
	if cfg.SweepIntervalSeconds <= 0 {
		cfg.SweepIntervalSeconds = defaults.SweepIntervalSeconds
	}
	if cfg.CleanupIntervalMinutes <= 0 {
		cfg.CleanupIntervalMinutes = defaults.CleanupIntervalMinutes
	}
	if cfg.Enforcement.Workers <= 0 {
		cfg.Enforcement.Workers = defaults.Enforcement.Workers
	}
	if cfg.Enforcement.QueueSize <= 0 {
		cfg.Enforcement.QueueSize = defaults.Enforcement.QueueSize
	}
	if cfg.Enforcement.APIRatePerSecond <= 0 {
		cfg.Enforcement.APIRatePerSecond = defaults.Enforcement.APIRatePerSecond
	}
	if cfg.Enforcement.APIBurst <= 0 {
		cfg.Enforcement.APIBurst = defaults.Enforcement.APIBurst
	}
	if cfg.Enforcement.ForgiveAfterHours < 0 {
		cfg.Enforcement.ForgiveAfterHours = 0
	}
	if cfg.Cache.MaxGuilds <= 0 {
		cfg.Cache.MaxGuilds = defaults.Cache.MaxGuilds
	}
	if cfg.Cache.TTLMinutes < 0 {
		cfg.Cache.TTLMinutes = 0
	}
	cfg.Automod = automod.Resolve(cfg.Automod, automod.DefaultGuildConfig())
}

func (c Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

func (c Config) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalMinutes) * time.Minute
}

func (c EnforcementConfig) ForgiveAfter() time.Duration {
	return time.Duration(c.ForgiveAfterHours) * time.Hour
}

func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(strings.ToLower(level)))
	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}
