package immunity

import "github.com/bwmarrin/discordgo"

const moderatorPermissions = discordgo.PermissionAdministrator | discordgo.PermissionManageServer

// Module decides whether automated action against a member is suppressed:
// the guild owner, anyone whose roles grant Administrator or Manage Server,
// and holders of a configured immune role.
type Module struct{}

func New() *Module {
	return &Module{}
}

func (m *Module) IsImmune(guild *discordgo.Guild, member *discordgo.Member, immuneRoles []string) bool {
	if member == nil {
		return false
	}
	userID := ""
	if member.User != nil {
		userID = member.User.ID
	}
	if guild != nil && userID != "" && guild.OwnerID == userID {
		return true
	}
	if IsModerator(guild, member) {
		return true
	}
	return hasAnyRole(member, immuneRoles)
}

// IsModerator reports whether the member may configure automod.
func IsModerator(guild *discordgo.Guild, member *discordgo.Member) bool {
	if member == nil {
		return false
	}
	if member.Permissions&moderatorPermissions != 0 {
		return true
	}
	if guild == nil {
		return false
	}
	if member.User != nil && guild.OwnerID == member.User.ID {
		return true
	}
	return rolePermissions(guild, member)&moderatorPermissions != 0
}

func rolePermissions(guild *discordgo.Guild, member *discordgo.Member) int64 {
	perms := int64(0)
	roleMap := make(map[string]*discordgo.Role, len(guild.Roles))
	for _, role := range guild.Roles {
		if role == nil {
			continue
		}
		roleMap[role.ID] = role
		if role.ID == guild.ID {
			perms |= role.Permissions
		}
	}
	for _, roleID := range member.Roles {
		if role := roleMap[roleID]; role != nil {
			perms |= role.Permissions
		}
	}
	return perms
}

func hasAnyRole(member *discordgo.Member, roles []string) bool {
	if len(roles) == 0 {
		return false
	}
	roleSet := make(map[string]struct{}, len(roles))
	for _, id := range roles {
		roleSet[id] = struct{}{}
	}
	for _, roleID := range member.Roles {
		if _, ok := roleSet[roleID]; ok {
			return true
		}
	}
	return false
}
