package enforcement

import (
	"fmt"
	"strings"
	"time"

	"sentinel-automod/internal/modules/automod"

	"github.com/bwmarrin/discordgo"
)

var actionColors = map[automod.ActionKind]int{
	automod.ActionDelete:  0xE67E22,
	automod.ActionTimeout: 0xE74C3C,
	automod.ActionKick:    0x992D22,
	automod.ActionBan:     0x8B0000,
	automod.ActionWarn:    0xF1C40F,
}

// BuildLogEmbed renders the log-channel entry for an executed decision.
func BuildLogEmbed(d automod.Decision, at time.Time) *discordgo.MessageEmbed {
	reason := d.Reason
	if d.Kind == automod.ActionTimeout {
		reason = fmt.Sprintf("%s (Duration: %ds)", reason, int(clampTimeout(d.Duration).Seconds()))
	}
	color, ok := actionColors[d.Kind]
	if !ok {
		color = 0x95A5A6
	}
	return &discordgo.MessageEmbed{
		Title:       "AutoMod: " + actionTitle(d.Kind),
		Description: fmt.Sprintf("**User:** <@%s>\n**Reason:** %s", d.UserID, reason),
		Color:       color,
		Timestamp:   at.Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Rule", Value: string(d.Rule), Inline: true},
			{Name: "Action", Value: string(d.Kind), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "User ID: " + d.UserID},
	}
}

func actionTitle(kind automod.ActionKind) string {
	s := string(kind)
	if s == "" {
		return "None"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
