package bot

import (
	"testing"
	"time"

	"sentinel-automod/internal/modules/immunity"
	"sentinel-automod/internal/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkipReason(t *testing.T) {
	b := &Bot{immunity: immunity.New()}
	guild := &discordgo.Guild{
		ID:      "g1",
		OwnerID: "owner",
		Roles: []*discordgo.Role{
			{ID: "g1"},
			{ID: "mods", Permissions: discordgo.PermissionManageServer},
		},
	}
	member := func(roles ...string) *discordgo.Member {
		return &discordgo.Member{Roles: roles}
	}

	tests := []struct {
		name string
		msg  *discordgo.Message
		want string
	}{
		{"no author", &discordgo.Message{GuildID: "g1"}, "bot"},
		{"bot author", &discordgo.Message{GuildID: "g1", Author: &discordgo.User{ID: "b1", Bot: true}, Member: member()}, "bot"},
		{"direct message", &discordgo.Message{Author: &discordgo.User{ID: "u1"}}, "dm"},
		{"owner", &discordgo.Message{GuildID: "g1", Author: &discordgo.User{ID: "owner"}, Member: member()}, "immune"},
		{"moderator role", &discordgo.Message{GuildID: "g1", Author: &discordgo.User{ID: "u2"}, Member: member("mods")}, "immune"},
		{"immune role", &discordgo.Message{GuildID: "g1", Author: &discordgo.User{ID: "u3"}, Member: member("trusted")}, "immune"},
		{"regular member", &discordgo.Message{GuildID: "g1", Author: &discordgo.User{ID: "u4"}, Member: member("other")}, ""},
		{"member missing", &discordgo.Message{GuildID: "g1", Author: &discordgo.User{ID: "u5"}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.skipReason(tt.msg, guild, []string{"trusted"}))
		})
	}
}

func TestFailureEmbed(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	embed := failureEmbed(storage.AuditLog{
		GuildID:   "g1",
		UserID:    "u1",
		Event:     "action_failed",
		Details:   "rule=spam action=ban error=HTTP 403 Forbidden, Missing Permissions",
		CreatedAt: at,
	})

	assert.Equal(t, "AutoMod: Action Failed", embed.Title)
	assert.Contains(t, embed.Description, "<@u1>")
	require.Len(t, embed.Fields, 3)
	assert.Equal(t, "spam", embed.Fields[0].Value)
	assert.Equal(t, "ban", embed.Fields[1].Value)
	assert.Equal(t, "HTTP 403 Forbidden, Missing Permissions", embed.Fields[2].Value)
	assert.Equal(t, at.Format(time.RFC3339), embed.Timestamp)
}

func TestAutomodCommandLayout(t *testing.T) {
	cmd := automodCommand()
	subs := make(map[string]*discordgo.ApplicationCommandOption, len(cmd.Options))
	for _, sub := range cmd.Options {
		subs[sub.Name] = sub
	}
	require.Contains(t, subs, "reset")
	require.Contains(t, subs, "badwords")

	choices := func(name string) []string {
		for _, opt := range subs[name].Options {
			if opt.Name != "action" {
				continue
			}
			out := make([]string, 0, len(opt.Choices))
			for _, c := range opt.Choices {
				out = append(out, c.Value.(string))
			}
			return out
		}
		return nil
	}
	assert.Equal(t, []string{"delete", "timeout", "kick", "ban"}, choices("spam"))
	assert.Equal(t, []string{"delete", "timeout", "warn"}, choices("badwords"))
	assert.Equal(t, []string{"kick", "ban"}, choices("raid"))
}
