package bot

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"sentinel-automod/internal/modules/automod"

	"github.com/bwmarrin/discordgo"
)

// inputError is a configuration problem the moderator can fix; its text is
// shown back to them.
type inputError string

func (e inputError) Error() string {
	return string(e)
}

var (
	messageActions = []automod.ActionKind{automod.ActionDelete, automod.ActionTimeout, automod.ActionKick, automod.ActionBan}
	badWordActions = []automod.ActionKind{automod.ActionDelete, automod.ActionTimeout, automod.ActionWarn}
	raidActions    = []automod.ActionKind{automod.ActionKick, automod.ActionBan}
)

type optionMap map[string]*discordgo.ApplicationCommandInteractionDataOption

func toOptionMap(options []*discordgo.ApplicationCommandInteractionDataOption) optionMap {
	m := make(optionMap, len(options))
	for _, opt := range options {
		if opt != nil {
			m[opt.Name] = opt
		}
	}
	return m
}

func (m optionMap) boolValue(name string) (bool, bool) {
	opt, ok := m[name]
	if !ok {
		return false, false
	}
	value, ok := opt.Value.(bool)
	return value, ok
}

func (m optionMap) intValue(name string) (int, bool) {
	opt, ok := m[name]
	if !ok {
		return 0, false
	}
	switch v := opt.Value.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	}
	return 0, false
}

func (m optionMap) stringValue(name string) (string, bool) {
	opt, ok := m[name]
	if !ok {
		return "", false
	}
	value, ok := opt.Value.(string)
	return strings.TrimSpace(value), ok
}

// idValue reads a role, channel or user option. Discord sends these as
// snowflake strings.
func (m optionMap) idValue(name string) (string, bool) {
	return m.stringValue(name)
}

func applySubcommand(name string, cfg *automod.GuildConfig, opts optionMap) error {
	switch name {
	case "spam":
		return applySpam(&cfg.Spam, opts)
	case "duplicates":
		return applyDuplicates(&cfg.Duplicates, opts)
	case "mentions":
		return applyMentions(&cfg.Mentions, opts)
	case "links":
		return applyLinks(&cfg.Links, opts)
	case "badwords":
		return applyBadWords(&cfg.BadWords, opts)
	case "raid":
		return applyRaid(&cfg.Raid, opts)
	case "immune":
		return applyImmune(cfg, opts)
	case "logchannel":
		channelID, _ := opts.idValue("channel")
		cfg.LogChannelID = channelID
		return nil
	}
	return inputError("Unknown subcommand.")
}

func applySpam(cfg *automod.SpamConfig, opts optionMap) error {
	if v, ok := opts.boolValue("enabled"); ok {
		cfg.Enabled = v
	}
	if err := positiveOption(opts, "max_messages", &cfg.MaxMessages); err != nil {
		return err
	}
	if err := positiveOption(opts, "time_window", &cfg.WindowSeconds); err != nil {
		return err
	}
	if err := actionOption(opts, messageActions, &cfg.Action); err != nil {
		return err
	}
	return positiveOption(opts, "duration", &cfg.Duration)
}

func applyDuplicates(cfg *automod.DuplicateConfig, opts optionMap) error {
	if v, ok := opts.boolValue("enabled"); ok {
		cfg.Enabled = v
	}
	if err := positiveOption(opts, "max_duplicates", &cfg.MaxDuplicates); err != nil {
		return err
	}
	if err := positiveOption(opts, "time_window", &cfg.WindowSeconds); err != nil {
		return err
	}
	if err := actionOption(opts, messageActions, &cfg.Action); err != nil {
		return err
	}
	return positiveOption(opts, "duration", &cfg.Duration)
}

func applyMentions(cfg *automod.MentionConfig, opts optionMap) error {
	if v, ok := opts.boolValue("enabled"); ok {
		cfg.Enabled = v
	}
	if err := positiveOption(opts, "max_mentions", &cfg.MaxMentions); err != nil {
		return err
	}
	if err := actionOption(opts, messageActions, &cfg.Action); err != nil {
		return err
	}
	return positiveOption(opts, "duration", &cfg.Duration)
}

// applyLinks stores the domain list under the mode in effect after this
// command, so setting mode and domains together targets the new list.
func applyLinks(cfg *automod.LinkConfig, opts optionMap) error {
	if v, ok := opts.boolValue("enabled"); ok {
		cfg.Enabled = v
	}
	if raw, ok := opts.stringValue("mode"); ok {
		mode, valid := automod.ParseLinkMode(raw)
		if !valid {
			return inputError("Invalid mode! Use: blacklist or whitelist")
		}
		cfg.Mode = mode
	}
	if raw, ok := opts.stringValue("domains"); ok {
		domains := splitList(raw)
		if cfg.Mode == automod.LinkModeWhitelist {
			cfg.Whitelist = domains
		} else {
			cfg.Blacklist = domains
		}
	}
	if err := actionOption(opts, messageActions, &cfg.Action); err != nil {
		return err
	}
	return positiveOption(opts, "duration", &cfg.Duration)
}

func applyBadWords(cfg *automod.BadWordsConfig, opts optionMap) error {
	if v, ok := opts.boolValue("enabled"); ok {
		cfg.Enabled = v
	}
	if raw, ok := opts.stringValue("words"); ok {
		cfg.Words = splitList(raw)
	}
	if err := actionOption(opts, badWordActions, &cfg.Action); err != nil {
		return err
	}
	return positiveOption(opts, "duration", &cfg.Duration)
}

func applyRaid(cfg *automod.RaidConfig, opts optionMap) error {
	if v, ok := opts.boolValue("enabled"); ok {
		cfg.Enabled = v
	}
	if err := positiveOption(opts, "join_threshold", &cfg.JoinThreshold); err != nil {
		return err
	}
	if err := positiveOption(opts, "time_window", &cfg.WindowSeconds); err != nil {
		return err
	}
	return actionOption(opts, raidActions, &cfg.Action)
}

func applyImmune(cfg *automod.GuildConfig, opts optionMap) error {
	roleID, ok := opts.idValue("role")
	if !ok || roleID == "" {
		return inputError("A role is required.")
	}
	op, _ := opts.stringValue("action")
	switch op {
	case "add":
		if !slices.Contains(cfg.ImmuneRoles, roleID) {
			cfg.ImmuneRoles = append(cfg.ImmuneRoles, roleID)
		}
	case "remove":
		cfg.ImmuneRoles = slices.DeleteFunc(cfg.ImmuneRoles, func(id string) bool { return id == roleID })
	default:
		return inputError("Invalid action! Use: add or remove")
	}
	return nil
}

func positiveOption(opts optionMap, name string, dst *int) error {
	v, ok := opts.intValue(name)
	if !ok {
		return nil
	}
	if v < 1 {
		return inputError(fmt.Sprintf("%s must be at least 1.", name))
	}
	*dst = v
	return nil
}

func actionOption(opts optionMap, allowed []automod.ActionKind, dst *automod.ActionKind) error {
	raw, ok := opts.stringValue("action")
	if !ok {
		return nil
	}
	action, valid := automod.ParseAction(raw)
	if !valid || !slices.Contains(allowed, action) {
		return inputError("Invalid action! Use: " + strings.Join(actionNames(allowed), ", "))
	}
	*dst = action
	return nil
}

func actionNames(actions []automod.ActionKind) []string {
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = string(a)
	}
	return names
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// messageEvent converts a gateway message into detector input. Mentions
// count users and roles.
func messageEvent(msg *discordgo.Message, receivedAt time.Time) automod.MessageEvent {
	userID := ""
	if msg.Author != nil {
		userID = msg.Author.ID
	}
	return automod.MessageEvent{
		Timestamp:    receivedAt,
		GuildID:      msg.GuildID,
		UserID:       userID,
		Content:      msg.Content,
		MentionCount: len(msg.Mentions) + len(msg.MentionRoles),
	}
}
