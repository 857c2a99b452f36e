package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"sentinel-automod/internal/modules/automod"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func writeConfig(t *testing.T, body string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("CONFIG_PATH", path)
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DISCORD_TOKEN", "")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadYAMLAndEnv(t *testing.T) {
	writeConfig(t, `
discord_token: from-file
retention_days: 30
enforcement:
  workers: 8
  api_rate_per_second: 5.5
automod:
  spam_detection:
    max_messages: 7
    action: ban
  link_filter:
    enabled: true
    blacklist: ["Bad.Example"]
`)
	t.Setenv("DISCORD_TOKEN", "from-env")
	t.Setenv("RAID_JOINS", "12")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.DiscordToken)
	assert.Equal(t, 30, cfg.RetentionDays)
	assert.Equal(t, 8, cfg.Enforcement.Workers)
	assert.Equal(t, 1000, cfg.Enforcement.QueueSize)
	assert.InDelta(t, 5.5, cfg.Enforcement.APIRatePerSecond, 0.0001)
	assert.Equal(t, 7, cfg.Automod.Spam.MaxMessages)
	assert.Equal(t, automod.ActionBan, cfg.Automod.Spam.Action)
	assert.Equal(t, 5, cfg.Automod.Spam.WindowSeconds)
	assert.Equal(t, []string{"bad.example"}, cfg.Automod.Links.Blacklist)
	assert.Equal(t, 12, cfg.Automod.Raid.JoinThreshold)
}

func TestLoadNormalizesInvalidValues(t *testing.T) {
	writeConfig(t, `
discord_token: x
sweep_interval_seconds: -1
enforcement:
  workers: 0
  forgive_after_hours: -5
automod:
  raid_protection:
    action: timeout
`)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, time.Minute, cfg.SweepInterval())
	assert.Equal(t, 4, cfg.Enforcement.Workers)
	assert.Zero(t, cfg.Enforcement.ForgiveAfter())
	assert.Equal(t, automod.ActionKick, cfg.Automod.Raid.Action)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	writeConfig(t, "discord_token: [unterminated")
	_, err := Load()
	require.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))

	logger, err := BuildLogger("ERROR")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.WarnLevel))
}
