package automod

import (
	"slices"
	"strings"
	"time"

	"sentinel-automod/internal/utils"
)

type ActionKind string

const (
	ActionNone    ActionKind = ""
	ActionDelete  ActionKind = "delete"
	ActionTimeout ActionKind = "timeout"
	ActionKick    ActionKind = "kick"
	ActionBan     ActionKind = "ban"
	ActionWarn    ActionKind = "warn"
)

func ParseAction(value string) (ActionKind, bool) {
	switch kind := ActionKind(strings.ToLower(strings.TrimSpace(value))); kind {
	case ActionDelete, ActionTimeout, ActionKick, ActionBan, ActionWarn:
		return kind, true
	default:
		return ActionNone, false
	}
}

type LinkMode string

const (
	LinkModeBlacklist LinkMode = "blacklist"
	LinkModeWhitelist LinkMode = "whitelist"
)

func ParseLinkMode(value string) (LinkMode, bool) {
	switch mode := LinkMode(strings.ToLower(strings.TrimSpace(value))); mode {
	case LinkModeBlacklist, LinkModeWhitelist:
		return mode, true
	default:
		return "", false
	}
}

type SpamConfig struct {
	Enabled       bool       `json:"enabled" yaml:"enabled"`
	MaxMessages   int        `json:"max_messages" yaml:"max_messages"`
	WindowSeconds int        `json:"time_window" yaml:"time_window"`
	Action        ActionKind `json:"action" yaml:"action"`
	Duration      int        `json:"duration" yaml:"duration"`
}

type DuplicateConfig struct {
	Enabled       bool       `json:"enabled" yaml:"enabled"`
	MaxDuplicates int        `json:"max_duplicates" yaml:"max_duplicates"`
	WindowSeconds int        `json:"time_window" yaml:"time_window"`
	Action        ActionKind `json:"action" yaml:"action"`
	Duration      int        `json:"duration" yaml:"duration"`
}

type MentionConfig struct {
	Enabled     bool       `json:"enabled" yaml:"enabled"`
	MaxMentions int        `json:"max_mentions" yaml:"max_mentions"`
	Action      ActionKind `json:"action" yaml:"action"`
	Duration    int        `json:"duration" yaml:"duration"`
}

type LinkConfig struct {
	Enabled   bool       `json:"enabled" yaml:"enabled"`
	Mode      LinkMode   `json:"mode" yaml:"mode"`
	Blacklist []string   `json:"blacklist" yaml:"blacklist"`
	Whitelist []string   `json:"whitelist" yaml:"whitelist"`
	Action    ActionKind `json:"action" yaml:"action"`
	Duration  int        `json:"duration" yaml:"duration"`
}

type BadWordsConfig struct {
	Enabled  bool       `json:"enabled" yaml:"enabled"`
	Words    []string   `json:"words" yaml:"words"`
	Action   ActionKind `json:"action" yaml:"action"`
	Duration int        `json:"duration" yaml:"duration"`
}

type RaidConfig struct {
	Enabled       bool       `json:"enabled" yaml:"enabled"`
	JoinThreshold int        `json:"join_threshold" yaml:"join_threshold"`
	WindowSeconds int        `json:"time_window" yaml:"time_window"`
	Action        ActionKind `json:"action" yaml:"action"`
}

// GuildConfig is the per-guild automod record. Durations and windows are
// whole seconds.
type GuildConfig struct {
	Spam         SpamConfig      `json:"spam_detection" yaml:"spam_detection"`
	Duplicates   DuplicateConfig `json:"duplicate_spam" yaml:"duplicate_spam"`
	Mentions     MentionConfig   `json:"mass_mentions" yaml:"mass_mentions"`
	Links        LinkConfig      `json:"link_filter" yaml:"link_filter"`
	BadWords     BadWordsConfig  `json:"bad_words" yaml:"bad_words"`
	Raid         RaidConfig      `json:"raid_protection" yaml:"raid_protection"`
	ImmuneRoles  []string        `json:"immune_roles" yaml:"immune_roles"`
	LogChannelID string          `json:"log_channel_id" yaml:"log_channel_id"`
}

func DefaultGuildConfig() GuildConfig {
	return GuildConfig{
		Spam:       SpamConfig{Enabled: true, MaxMessages: 5, WindowSeconds: 5, Action: ActionTimeout, Duration: 300},
		Duplicates: DuplicateConfig{Enabled: true, MaxDuplicates: 3, WindowSeconds: 30, Action: ActionTimeout, Duration: 600},
		Mentions:   MentionConfig{Enabled: true, MaxMentions: 5, Action: ActionTimeout, Duration: 600},
		Links:      LinkConfig{Enabled: false, Mode: LinkModeBlacklist, Action: ActionDelete, Duration: 300},
		BadWords:   BadWordsConfig{Enabled: false, Action: ActionDelete, Duration: 300},
		Raid:       RaidConfig{Enabled: true, JoinThreshold: 5, WindowSeconds: 10, Action: ActionKick},
	}
}

// Clone returns a copy that shares no slices with c.
func (c GuildConfig) Clone() GuildConfig {
	out := c
	out.Links.Blacklist = slices.Clone(c.Links.Blacklist)
	out.Links.Whitelist = slices.Clone(c.Links.Whitelist)
	out.BadWords.Words = slices.Clone(c.BadWords.Words)
	out.ImmuneRoles = slices.Clone(c.ImmuneRoles)
	return out
}

// Resolve returns a fully populated copy of cfg. Every value the detector
// relies on that is missing or out of range is taken from defaults, and
// word and domain lists are cleaned. defaults must itself be valid; pass
// DefaultGuildConfig() when in doubt.
func Resolve(cfg, defaults GuildConfig) GuildConfig {
	out := cfg

	out.Spam.MaxMessages = nonNegative(cfg.Spam.MaxMessages, defaults.Spam.MaxMessages)
	out.Spam.WindowSeconds = positive(cfg.Spam.WindowSeconds, defaults.Spam.WindowSeconds)
	out.Spam.Action = validAction(cfg.Spam.Action, defaults.Spam.Action)
	out.Spam.Duration = positive(cfg.Spam.Duration, defaults.Spam.Duration)

	out.Duplicates.MaxDuplicates = nonNegative(cfg.Duplicates.MaxDuplicates, defaults.Duplicates.MaxDuplicates)
	out.Duplicates.WindowSeconds = positive(cfg.Duplicates.WindowSeconds, defaults.Duplicates.WindowSeconds)
	out.Duplicates.Action = validAction(cfg.Duplicates.Action, defaults.Duplicates.Action)
	out.Duplicates.Duration = positive(cfg.Duplicates.Duration, defaults.Duplicates.Duration)

	out.Mentions.MaxMentions = nonNegative(cfg.Mentions.MaxMentions, defaults.Mentions.MaxMentions)
	out.Mentions.Action = validAction(cfg.Mentions.Action, defaults.Mentions.Action)
	out.Mentions.Duration = positive(cfg.Mentions.Duration, defaults.Mentions.Duration)

	if mode, ok := ParseLinkMode(string(cfg.Links.Mode)); ok {
		out.Links.Mode = mode
	} else {
		out.Links.Mode = defaults.Links.Mode
	}
	out.Links.Blacklist = cleanDomains(cfg.Links.Blacklist)
	out.Links.Whitelist = cleanDomains(cfg.Links.Whitelist)
	out.Links.Action = validAction(cfg.Links.Action, defaults.Links.Action)
	out.Links.Duration = positive(cfg.Links.Duration, defaults.Links.Duration)

	out.BadWords.Words = cleanWords(cfg.BadWords.Words)
	out.BadWords.Action = validAction(cfg.BadWords.Action, defaults.BadWords.Action)
	out.BadWords.Duration = positive(cfg.BadWords.Duration, defaults.BadWords.Duration)

	out.Raid.JoinThreshold = nonNegative(cfg.Raid.JoinThreshold, defaults.Raid.JoinThreshold)
	out.Raid.WindowSeconds = positive(cfg.Raid.WindowSeconds, defaults.Raid.WindowSeconds)
	switch cfg.Raid.Action {
	case ActionKick, ActionBan:
	default:
		out.Raid.Action = defaults.Raid.Action
	}

	out.ImmuneRoles = cleanIDs(cfg.ImmuneRoles)
	out.LogChannelID = strings.TrimSpace(cfg.LogChannelID)
	return out
}

func (c SpamConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

func (c DuplicateConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

func (c RaidConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

func seconds(value int) time.Duration {
	return time.Duration(value) * time.Second
}

func nonNegative(value, fallback int) int {
	if value < 0 {
		return fallback
	}
	return value
}

func positive(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func validAction(value, fallback ActionKind) ActionKind {
	if kind, ok := ParseAction(string(value)); ok {
		return kind
	}
	return fallback
}

func cleanDomains(values []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		domain := utils.NormalizeDomain(value)
		if domain == "" {
			continue
		}
		if _, ok := seen[domain]; ok {
			continue
		}
		seen[domain] = struct{}{}
		out = append(out, domain)
	}
	return out
}

func cleanWords(values []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		word := strings.TrimSpace(value)
		if word == "" {
			continue
		}
		key := strings.ToLower(word)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, word)
	}
	return out
}

func cleanIDs(values []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		id := strings.TrimSpace(value)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
