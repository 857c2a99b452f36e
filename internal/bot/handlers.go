package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"sentinel-automod/internal/analytics"
	"sentinel-automod/internal/modules/audit"
	"sentinel-automod/internal/modules/automod"
	"sentinel-automod/internal/modules/immunity"
	"sentinel-automod/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	colorInfo    = 0x3498DB
	colorSuccess = 0x2ECC71
	colorError   = 0xE74C3C
)

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := interaction.ApplicationCommandData()
	if data.Name != "automod" {
		return
	}
	b.handleAutomodCommand(context.Background(), session, interaction, data.Options)
}

func (b *Bot) handleAutomodCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if interaction.GuildID == "" || interaction.Member == nil {
		b.respondEmbed(session, interaction, b.commandEmbed("AutoMod", "This command only works in a server.", colorError, nil), true)
		return
	}
	if !immunity.IsModerator(b.guild(interaction.GuildID), interaction.Member) {
		b.respondEmbed(session, interaction, b.commandEmbed("AutoMod", "❌ You need to be a moderator to configure automod!", colorError, nil), true)
		return
	}
	if len(options) == 0 {
		b.respondEmbed(session, interaction, b.commandEmbed("AutoMod", "Unknown subcommand.", colorError, nil), true)
		return
	}

	sub := options[0]
	opts := toOptionMap(sub.Options)
	switch sub.Name {
	case "settings":
		cfg, err := b.settings.Get(ctx, interaction.GuildID)
		if err != nil {
			b.logger.Warn("settings load failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
			b.respondEmbed(session, interaction, b.commandEmbed("AutoMod Settings", "Failed to load settings.", colorError, nil), true)
			return
		}
		b.respondEmbed(session, interaction, settingsEmbed(cfg), false)
	case "reset":
		b.handleReset(ctx, session, interaction)
	case "report":
		b.handleReport(ctx, session, interaction, opts)
	case "infractions":
		b.handleInfractions(ctx, session, interaction, opts)
	default:
		b.handleSettingsUpdate(ctx, session, interaction, sub.Name, opts)
	}
}

func (b *Bot) handleSettingsUpdate(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, name string, opts optionMap) {
	guildID := interaction.GuildID
	cfg, err := b.settings.Update(ctx, guildID, func(cfg *automod.GuildConfig) error {
		return applySubcommand(name, cfg, opts)
	})
	if err != nil {
		var inErr inputError
		if errors.As(err, &inErr) {
			b.respondEmbed(session, interaction, b.commandEmbed("AutoMod", "❌ "+inErr.Error(), colorError, nil), true)
			return
		}
		b.logger.Error("settings update failed", zap.String("guild_id", guildID), zap.String("section", name), zap.Error(err))
		b.respondEmbed(session, interaction, b.commandEmbed("AutoMod", "Failed to save settings.", colorError, nil), true)
		return
	}

	actorID := ""
	if interaction.Member.User != nil {
		actorID = interaction.Member.User.ID
	}
	b.audit.Log(ctx, audit.LevelInfo, guildID, actorID, "settings_updated", "section="+name)
	b.respondEmbed(session, interaction, b.commandEmbed("AutoMod", updateSummary(name, cfg), colorSuccess, nil), false)
}

func (b *Bot) handleReset(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	guildID := interaction.GuildID
	if err := b.settings.Reset(ctx, guildID); err != nil {
		b.logger.Error("settings reset failed", zap.String("guild_id", guildID), zap.Error(err))
		b.respondEmbed(session, interaction, b.commandEmbed("AutoMod", "Failed to reset settings.", colorError, nil), true)
		return
	}

	actorID := ""
	if interaction.Member.User != nil {
		actorID = interaction.Member.User.ID
	}
	b.audit.Log(ctx, audit.LevelWarn, guildID, actorID, "settings_reset", "")
	b.respondEmbed(session, interaction, b.commandEmbed("AutoMod", "✅ AutoMod settings restored to defaults.", colorSuccess, nil), false)
}

func (b *Bot) handleReport(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, opts optionMap) {
	hours, ok := opts.intValue("hours")
	if !ok || hours <= 0 {
		hours = 24
	}
	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	report, err := b.analytics.Report(ctx, interaction.GuildID, since, 5)
	if err != nil {
		b.logger.Warn("report failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.respondEmbed(session, interaction, b.commandEmbed("AutoMod Report", "Failed to build report.", colorError, nil), true)
		return
	}
	b.respondEmbed(session, interaction, reportEmbed(report, hours), true)
}

func (b *Bot) handleInfractions(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, opts optionMap) {
	userID, ok := opts.idValue("user")
	if !ok || userID == "" {
		b.respondEmbed(session, interaction, b.commandEmbed("AutoMod Infractions", "A member is required.", colorError, nil), true)
		return
	}
	infractions, err := b.store.ListInfractions(ctx, interaction.GuildID, userID)
	if err != nil {
		b.logger.Warn("infractions lookup failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.respondEmbed(session, interaction, b.commandEmbed("AutoMod Infractions", "Failed to load infractions.", colorError, nil), true)
		return
	}
	b.respondEmbed(session, interaction, infractionsEmbed(userID, infractions), true)
}

func updateSummary(name string, cfg automod.GuildConfig) string {
	status := func(enabled bool) string {
		if enabled {
			return "✅ Enabled"
		}
		return "❌ Disabled"
	}
	switch name {
	case "spam":
		return fmt.Sprintf("%s spam detection!\n**Max messages:** %d\n**Time window:** %ds\n**Action:** %s",
			status(cfg.Spam.Enabled), cfg.Spam.MaxMessages, cfg.Spam.WindowSeconds, cfg.Spam.Action)
	case "duplicates":
		return fmt.Sprintf("%s duplicate detection!\n**Max duplicates:** %d\n**Time window:** %ds\n**Action:** %s",
			status(cfg.Duplicates.Enabled), cfg.Duplicates.MaxDuplicates, cfg.Duplicates.WindowSeconds, cfg.Duplicates.Action)
	case "mentions":
		return fmt.Sprintf("%s mass mention detection!\n**Max mentions:** %d\n**Action:** %s",
			status(cfg.Mentions.Enabled), cfg.Mentions.MaxMentions, cfg.Mentions.Action)
	case "links":
		domains := cfg.Links.Blacklist
		if cfg.Links.Mode == automod.LinkModeWhitelist {
			domains = cfg.Links.Whitelist
		}
		list := "None"
		if len(domains) > 0 {
			list = strings.Join(domains, ", ")
		}
		return fmt.Sprintf("%s link filtering!\n**Mode:** %s\n**Domains:** %s\n**Action:** %s",
			status(cfg.Links.Enabled), cfg.Links.Mode, list, cfg.Links.Action)
	case "badwords":
		return fmt.Sprintf("%s bad word filter!\n**Words filtered:** %d\n**Action:** %s",
			status(cfg.BadWords.Enabled), len(cfg.BadWords.Words), cfg.BadWords.Action)
	case "raid":
		return fmt.Sprintf("%s raid protection!\n**Join threshold:** %d\n**Time window:** %ds\n**Action:** %s",
			status(cfg.Raid.Enabled), cfg.Raid.JoinThreshold, cfg.Raid.WindowSeconds, cfg.Raid.Action)
	case "immune":
		return "✅ Immune roles: " + roleList(cfg.ImmuneRoles)
	case "logchannel":
		if cfg.LogChannelID == "" {
			return "✅ Automod log channel cleared"
		}
		return "✅ Automod logs will be sent to <#" + cfg.LogChannelID + ">"
	}
	return "✅ Settings updated"
}

func settingsEmbed(cfg automod.GuildConfig) *discordgo.MessageEmbed {
	status := func(enabled bool) string {
		if enabled {
			return "✅ Enabled"
		}
		return "❌ Disabled"
	}
	domains := cfg.Links.Blacklist
	if cfg.Links.Mode == automod.LinkModeWhitelist {
		domains = cfg.Links.Whitelist
	}
	logChannel := "Not set"
	if cfg.LogChannelID != "" {
		logChannel = "<#" + cfg.LogChannelID + ">"
	}

	return &discordgo.MessageEmbed{
		Title:     "🤖 AutoMod Settings",
		Color:     colorInfo,
		Timestamp: time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "📨 Spam Detection", Inline: true, Value: fmt.Sprintf("%s\nMax messages: %d\nTime window: %ds\nAction: %s",
				status(cfg.Spam.Enabled), cfg.Spam.MaxMessages, cfg.Spam.WindowSeconds, cfg.Spam.Action)},
			{Name: "📋 Duplicate Spam", Inline: true, Value: fmt.Sprintf("%s\nMax duplicates: %d\nTime window: %ds\nAction: %s",
				status(cfg.Duplicates.Enabled), cfg.Duplicates.MaxDuplicates, cfg.Duplicates.WindowSeconds, cfg.Duplicates.Action)},
			{Name: "📢 Mass Mentions", Inline: true, Value: fmt.Sprintf("%s\nMax mentions: %d\nAction: %s",
				status(cfg.Mentions.Enabled), cfg.Mentions.MaxMentions, cfg.Mentions.Action)},
			{Name: "🔗 Link Filter", Inline: true, Value: fmt.Sprintf("%s\nMode: %s\nDomains: %d\nAction: %s",
				status(cfg.Links.Enabled), cfg.Links.Mode, len(domains), cfg.Links.Action)},
			{Name: "🚫 Bad Words", Inline: true, Value: fmt.Sprintf("%s\nWords filtered: %d\nAction: %s",
				status(cfg.BadWords.Enabled), len(cfg.BadWords.Words), cfg.BadWords.Action)},
			{Name: "🛡️ Raid Protection", Inline: true, Value: fmt.Sprintf("%s\nJoin threshold: %d\nTime window: %ds\nAction: %s\nImmune roles: %s",
				status(cfg.Raid.Enabled), cfg.Raid.JoinThreshold, cfg.Raid.WindowSeconds, cfg.Raid.Action, roleList(cfg.ImmuneRoles))},
			{Name: "📝 Log Channel", Inline: false, Value: logChannel},
		},
	}
}

func reportEmbed(report analytics.Report, hours int) *discordgo.MessageEmbed {
	top := "None"
	if len(report.TopUsers) > 0 {
		lines := make([]string, 0, len(report.TopUsers))
		for _, user := range report.TopUsers {
			lines = append(lines, fmt.Sprintf("<@%s> (%d)", user.UserID, user.Count))
		}
		top = strings.Join(lines, "\n")
	}
	return &discordgo.MessageEmbed{
		Title:       "📊 AutoMod Report",
		Description: fmt.Sprintf("Last %d hours", hours),
		Color:       colorInfo,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Entries", Value: formatLevels(report), Inline: false},
			{Name: "Actions", Value: formatCounts(report.ByAction), Inline: true},
			{Name: "Rules", Value: formatCounts(report.ByRule), Inline: true},
			{Name: "Failures", Value: fmt.Sprintf("%d", report.Failures), Inline: true},
			{Name: "Top offenders", Value: top, Inline: false},
		},
	}
}

func infractionsEmbed(userID string, infractions []storage.UserInfraction) *discordgo.MessageEmbed {
	description := "No infractions recorded."
	if len(infractions) > 0 {
		lines := make([]string, 0, len(infractions))
		for _, inf := range infractions {
			lines = append(lines, fmt.Sprintf("**%s**: %d (last %s <t:%d:R>)", inf.Category, inf.CountTotal, inf.LastAction, inf.LastAt.Unix()))
		}
		description = strings.Join(lines, "\n")
	}
	return &discordgo.MessageEmbed{
		Title:       "AutoMod Infractions",
		Description: fmt.Sprintf("<@%s>\n%s", userID, description),
		Color:       colorInfo,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

func formatLevels(report analytics.Report) string {
	return fmt.Sprintf("Total: %d | INFO: %d | WARN: %d | CRIT: %d", report.Total, report.ByLevel[audit.LevelInfo], report.ByLevel[audit.LevelWarn], report.ByLevel[audit.LevelCrit])
}

func formatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "None"
	}
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, fmt.Sprintf("%s: %d", key, counts[key]))
	}
	return strings.Join(lines, "\n")
}

func roleList(ids []string) string {
	if len(ids) == 0 {
		return "None"
	}
	mentions := make([]string, len(ids))
	for i, id := range ids {
		mentions[i] = "<@&" + id + ">"
	}
	return strings.Join(mentions, ", ")
}

func (b *Bot) commandEmbed(title, description string, color int, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields:      fields,
	}
}

func (b *Bot) respondEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	err := session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	})
	if err != nil {
		b.logger.Debug("interaction response failed", zap.Error(err))
	}
}
