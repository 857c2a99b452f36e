package bot

import "github.com/bwmarrin/discordgo"

var (
	minOne               = 1.0
	manageServerRequired = int64(discordgo.PermissionManageServer)
)

func enabledOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionBoolean,
		Name:        "enabled",
		Description: description,
		Required:    true,
	}
}

func intOption(name, description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        name,
		Description: description,
		MinValue:    &minOne,
	}
}

func actionChoiceOption(description string, actions ...string) *discordgo.ApplicationCommandOption {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(actions))
	for _, action := range actions {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: action, Value: action})
	}
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "action",
		Description: description,
		Choices:     choices,
	}
}

func subcommand(name, description string, options ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        name,
		Description: description,
		Options:     options,
	}
}

func automodCommand() *discordgo.ApplicationCommand {
	messageChoices := actionNames(messageActions)
	dmDisabled := false

	return &discordgo.ApplicationCommand{
		Name:                     "automod",
		Description:              "Configure auto-moderation settings",
		DefaultMemberPermissions: &manageServerRequired,
		DMPermission:             &dmDisabled,
		Options: []*discordgo.ApplicationCommandOption{
			subcommand("spam", "Configure spam detection",
				enabledOption("Enable or disable spam detection"),
				intOption("max_messages", "Max messages allowed in time window"),
				intOption("time_window", "Time window in seconds"),
				actionChoiceOption("Action to take", messageChoices...),
				intOption("duration", "Timeout duration in seconds (if action is timeout)"),
			),
			subcommand("duplicates", "Configure duplicate message detection",
				enabledOption("Enable or disable duplicate detection"),
				intOption("max_duplicates", "Identical messages allowed in time window"),
				intOption("time_window", "Time window in seconds"),
				actionChoiceOption("Action to take", messageChoices...),
				intOption("duration", "Timeout duration in seconds (if action is timeout)"),
			),
			subcommand("mentions", "Configure mass mention detection",
				enabledOption("Enable or disable mass mention detection"),
				intOption("max_mentions", "Max mentions allowed in one message"),
				actionChoiceOption("Action to take", messageChoices...),
				intOption("duration", "Timeout duration in seconds (if action is timeout)"),
			),
			subcommand("links", "Configure link filtering",
				enabledOption("Enable or disable link filtering"),
				&discordgo.ApplicationCommandOption{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "mode",
					Description: "Filter mode",
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "blacklist", Value: "blacklist"},
						{Name: "whitelist", Value: "whitelist"},
					},
				},
				&discordgo.ApplicationCommandOption{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "domains",
					Description: "Comma-separated list of domains",
				},
				actionChoiceOption("Action to take", messageChoices...),
				intOption("duration", "Timeout duration in seconds (if action is timeout)"),
			),
			subcommand("badwords", "Configure bad word filter",
				enabledOption("Enable or disable bad word filter"),
				&discordgo.ApplicationCommandOption{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "words",
					Description: "Comma-separated list of words to filter",
				},
				actionChoiceOption("Action to take", actionNames(badWordActions)...),
				intOption("duration", "Timeout duration in seconds (if action is timeout)"),
			),
			subcommand("raid", "Configure raid protection",
				enabledOption("Enable or disable raid protection"),
				intOption("join_threshold", "Number of joins to trigger protection"),
				intOption("time_window", "Time window in seconds"),
				actionChoiceOption("Action to take", actionNames(raidActions)...),
			),
			subcommand("immune", "Add or remove an immune role",
				&discordgo.ApplicationCommandOption{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "action",
					Description: "add or remove",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "add", Value: "add"},
						{Name: "remove", Value: "remove"},
					},
				},
				&discordgo.ApplicationCommandOption{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        "role",
					Description: "Role exempt from automod",
					Required:    true,
				},
			),
			subcommand("logchannel", "Set the automod log channel",
				&discordgo.ApplicationCommandOption{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         "channel",
					Description:  "Channel for automod logs (omit to clear)",
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
				},
			),
			subcommand("settings", "View all automod settings"),
			subcommand("reset", "Restore the default automod settings"),
			subcommand("report", "Summarize automod actions",
				&discordgo.ApplicationCommandOption{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "hours",
					Description: "Look back this many hours (default 24)",
					MinValue:    &minOne,
					MaxValue:    24 * 30,
				},
			),
			subcommand("infractions", "Show automod infractions for a member",
				&discordgo.ApplicationCommandOption{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Member to look up",
					Required:    true,
				},
			),
		},
	}
}

// registerCommands reconciles the global command set with the one defined
// here, deleting anything left over from earlier versions.
func (b *Bot) registerCommands() error {
	commands := []*discordgo.ApplicationCommand{automodCommand()}

	appID := b.session.State.User.ID
	existing, err := b.session.ApplicationCommands(appID, "")
	if err != nil {
		return err
	}
	existingByName := make(map[string]*discordgo.ApplicationCommand)
	for _, cmd := range existing {
		existingByName[cmd.Name] = cmd
	}

	desired := make(map[string]struct{})
	for _, cmd := range commands {
		desired[cmd.Name] = struct{}{}
		if current, ok := existingByName[cmd.Name]; ok {
			if _, err := b.session.ApplicationCommandEdit(appID, "", current.ID, cmd); err != nil {
				return err
			}
			continue
		}
		if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
			return err
		}
	}

	for _, cmd := range existing {
		if _, ok := desired[cmd.Name]; ok {
			continue
		}
		_ = b.session.ApplicationCommandDelete(appID, "", cmd.ID)
	}
	return nil
}
