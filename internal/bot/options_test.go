package bot

import (
	"errors"
	"testing"
	"time"

	"sentinel-automod/internal/modules/automod"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func opt(name string, value interface{}) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Value: value}
}

func opts(options ...*discordgo.ApplicationCommandInteractionDataOption) optionMap {
	return toOptionMap(options)
}

func TestApplySpam(t *testing.T) {
	cfg := automod.DefaultGuildConfig()
	err := applySubcommand("spam", &cfg, opts(
		opt("enabled", false),
		opt("max_messages", float64(8)),
		opt("time_window", float64(12)),
		opt("action", "ban"),
	))
	require.NoError(t, err)
	assert.False(t, cfg.Spam.Enabled)
	assert.Equal(t, 8, cfg.Spam.MaxMessages)
	assert.Equal(t, 12, cfg.Spam.WindowSeconds)
	assert.Equal(t, automod.ActionBan, cfg.Spam.Action)
	assert.Equal(t, 300, cfg.Spam.Duration)
}

func TestApplyRejectsBadInput(t *testing.T) {
	cfg := automod.DefaultGuildConfig()

	err := applySubcommand("spam", &cfg, opts(opt("max_messages", float64(0))))
	var inErr inputError
	require.True(t, errors.As(err, &inErr))

	err = applySubcommand("raid", &cfg, opts(opt("action", "timeout")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kick, ban")
	assert.Equal(t, automod.ActionKick, cfg.Raid.Action)

	err = applySubcommand("links", &cfg, opts(opt("mode", "greylist")))
	require.Error(t, err)

	err = applySubcommand("nope", &cfg, opts())
	require.Error(t, err)
}

func TestApplyLinksUsesNewMode(t *testing.T) {
	cfg := automod.DefaultGuildConfig()
	err := applySubcommand("links", &cfg, opts(
		opt("enabled", true),
		opt("mode", "whitelist"),
		opt("domains", "example.com, docs.example.com ,,"),
	))
	require.NoError(t, err)
	assert.True(t, cfg.Links.Enabled)
	assert.Equal(t, automod.LinkModeWhitelist, cfg.Links.Mode)
	assert.Equal(t, []string{"example.com", "docs.example.com"}, cfg.Links.Whitelist)
	assert.Empty(t, cfg.Links.Blacklist)
}

func TestApplyBadWordsAndMentions(t *testing.T) {
	cfg := automod.DefaultGuildConfig()
	require.NoError(t, applySubcommand("badwords", &cfg, opts(opt("enabled", true), opt("words", "foo,bar"), opt("action", "warn"))))
	assert.Equal(t, []string{"foo", "bar"}, cfg.BadWords.Words)
	assert.Equal(t, automod.ActionWarn, cfg.BadWords.Action)

	require.NoError(t, applySubcommand("mentions", &cfg, opts(opt("max_mentions", float64(10)), opt("duration", float64(60)))))
	assert.Equal(t, 10, cfg.Mentions.MaxMentions)
	assert.Equal(t, 60, cfg.Mentions.Duration)

	require.NoError(t, applySubcommand("duplicates", &cfg, opts(opt("max_duplicates", float64(2)))))
	assert.Equal(t, 2, cfg.Duplicates.MaxDuplicates)
}

func TestApplyActionsAllowedPerRule(t *testing.T) {
	tests := []struct {
		sub    string
		action string
		ok     bool
	}{
		{"spam", "kick", true},
		{"spam", "warn", false},
		{"duplicates", "delete", true},
		{"mentions", "warn", false},
		{"links", "ban", true},
		{"links", "warn", false},
		{"badwords", "timeout", true},
		{"badwords", "kick", false},
		{"badwords", "ban", false},
		{"raid", "ban", true},
		{"raid", "delete", false},
	}
	for _, tt := range tests {
		t.Run(tt.sub+"/"+tt.action, func(t *testing.T) {
			cfg := automod.DefaultGuildConfig()
			err := applySubcommand(tt.sub, &cfg, opts(opt("action", tt.action)))
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			var inErr inputError
			assert.True(t, errors.As(err, &inErr))
		})
	}
}

func TestApplyImmune(t *testing.T) {
	cfg := automod.DefaultGuildConfig()
	require.NoError(t, applySubcommand("immune", &cfg, opts(opt("action", "add"), opt("role", "r1"))))
	require.NoError(t, applySubcommand("immune", &cfg, opts(opt("action", "add"), opt("role", "r1"))))
	require.NoError(t, applySubcommand("immune", &cfg, opts(opt("action", "add"), opt("role", "r2"))))
	assert.Equal(t, []string{"r1", "r2"}, cfg.ImmuneRoles)

	require.NoError(t, applySubcommand("immune", &cfg, opts(opt("action", "remove"), opt("role", "r1"))))
	assert.Equal(t, []string{"r2"}, cfg.ImmuneRoles)

	require.Error(t, applySubcommand("immune", &cfg, opts(opt("action", "add"))))
}

func TestApplyLogChannel(t *testing.T) {
	cfg := automod.DefaultGuildConfig()
	require.NoError(t, applySubcommand("logchannel", &cfg, opts(opt("channel", "c1"))))
	assert.Equal(t, "c1", cfg.LogChannelID)
	require.NoError(t, applySubcommand("logchannel", &cfg, opts()))
	assert.Empty(t, cfg.LogChannelID)
}

func TestMessageEventCountsUserAndRoleMentions(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	msg := &discordgo.Message{
		GuildID:      "g1",
		Author:       &discordgo.User{ID: "u1"},
		Content:      "hi",
		Mentions:     []*discordgo.User{{ID: "a"}, {ID: "b"}},
		MentionRoles: []string{"r1"},
	}
	event := messageEvent(msg, at)
	assert.Equal(t, automod.MessageEvent{Timestamp: at, GuildID: "g1", UserID: "u1", Content: "hi", MentionCount: 3}, event)
}

func TestSettingsEmbedFields(t *testing.T) {
	cfg := automod.DefaultGuildConfig()
	cfg.LogChannelID = "c9"
	embed := settingsEmbed(cfg)
	require.Len(t, embed.Fields, 7)
	assert.Contains(t, embed.Fields[0].Value, "Max messages: 5")
	assert.Equal(t, "<#c9>", embed.Fields[6].Value)
}
