package automod

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveFillsInvalidValues(t *testing.T) {
	defaults := DefaultGuildConfig()
	cfg := GuildConfig{
		Spam:       SpamConfig{Enabled: true, MaxMessages: -1, WindowSeconds: 0, Action: "explode", Duration: -5},
		Duplicates: DuplicateConfig{MaxDuplicates: 2, WindowSeconds: 12, Action: "WARN", Duration: 10},
		Links:      LinkConfig{Mode: "graylist", Blacklist: []string{" Bad.com ", "bad.com", "", "https://Evil.net/path"}},
		BadWords:   BadWordsConfig{Words: []string{"  heck ", "HECK", ""}},
		Raid:       RaidConfig{Enabled: true, JoinThreshold: 0, WindowSeconds: -1, Action: ActionTimeout},
		ImmuneRoles: []string{
			"r1", " r1", "",
		},
		LogChannelID: " c1 ",
	}

	got := Resolve(cfg, defaults)

	assert.True(t, got.Spam.Enabled)
	assert.Equal(t, defaults.Spam.MaxMessages, got.Spam.MaxMessages)
	assert.Equal(t, defaults.Spam.WindowSeconds, got.Spam.WindowSeconds)
	assert.Equal(t, defaults.Spam.Action, got.Spam.Action)
	assert.Equal(t, defaults.Spam.Duration, got.Spam.Duration)

	assert.Equal(t, 2, got.Duplicates.MaxDuplicates)
	assert.Equal(t, 12, got.Duplicates.WindowSeconds)
	assert.Equal(t, ActionWarn, got.Duplicates.Action)
	assert.Equal(t, 10, got.Duplicates.Duration)

	assert.Equal(t, LinkModeBlacklist, got.Links.Mode)
	assert.Equal(t, []string{"bad.com", "evil.net"}, got.Links.Blacklist)
	assert.Equal(t, defaults.Links.Action, got.Links.Action)

	assert.Equal(t, []string{"heck"}, got.BadWords.Words)

	assert.Equal(t, 0, got.Raid.JoinThreshold)
	assert.Equal(t, defaults.Raid.WindowSeconds, got.Raid.WindowSeconds)
	assert.Equal(t, ActionKick, got.Raid.Action)

	assert.Equal(t, []string{"r1"}, got.ImmuneRoles)
	assert.Equal(t, "c1", got.LogChannelID)
}

func TestResolveKeepsValidConfig(t *testing.T) {
	cfg := DefaultGuildConfig()
	cfg.Links.Mode = LinkModeWhitelist
	cfg.Links.Whitelist = []string{"youtube.com"}
	cfg.Raid.Action = ActionBan
	assert.Equal(t, cfg, Resolve(cfg, DefaultGuildConfig()))
}

func TestParseAction(t *testing.T) {
	kind, ok := ParseAction(" Timeout ")
	assert.True(t, ok)
	assert.Equal(t, ActionTimeout, kind)

	_, ok = ParseAction("mute")
	assert.False(t, ok)
}
