package bot

import (
	"guildwatch/internal/moderation"

	"github.com/bwmarrin/discordgo"
)

func (b *Bot) registerCommands() error {
	kickPerms := int64(discordgo.PermissionKickMembers)
	banPerms := int64(discordgo.PermissionBanMembers)
	mutePerms := int64(discordgo.PermissionModerateMembers)
	warnPerms := int64(discordgo.PermissionModerateMembers)
	minDuration := float64(moderation.MinMuteMinutes)
	minDeleteDays := float64(0)

	commands := []*discordgo.ApplicationCommand{
		{
			Name:                     "kick",
			Description:              "Kick a member from the server",
			DefaultMemberPermissions: &kickPerms,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Member to kick",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "reason",
					Description: "Reason for the kick",
					Required:    false,
				},
			},
		},
		{
			Name:                     "ban",
			Description:              "Ban a member from the server",
			DefaultMemberPermissions: &banPerms,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Member to ban",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "reason",
					Description: "Reason for the ban",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "delete_days",
					Description: "Delete messages from the last N days (0-7)",
					Required:    false,
					MinValue:    &minDeleteDays,
					MaxValue:    float64(moderation.MaxDeleteDays),
				},
			},
		},
		{
			Name:                     "mute",
			Description:              "Time a member out",
			DefaultMemberPermissions: &mutePerms,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Member to mute",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "duration",
					Description: "Duration in minutes (1-10080)",
					Required:    true,
					MinValue:    &minDuration,
					MaxValue:    float64(moderation.MaxMuteMinutes),
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "reason",
					Description: "Reason for the mute",
					Required:    false,
				},
			},
		},
		{
			Name:                     "warn",
			Description:              "Warn a member",
			DefaultMemberPermissions: &warnPerms,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Member to warn",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "reason",
					Description: "Reason for the warning",
					Required:    false,
				},
			},
		},
	}

	appID := b.session.State.User.ID
	existing, err := b.session.ApplicationCommands(appID, b.cfg.GuildID)
	if err != nil {
		for _, cmd := range commands {
			if _, err := b.session.ApplicationCommandCreate(appID, b.cfg.GuildID, cmd); err != nil {
				return err
			}
		}
		return nil
	}

	existingByName := make(map[string]*discordgo.ApplicationCommand)
	for _, cmd := range existing {
		existingByName[cmd.Name] = cmd
	}

	desired := make(map[string]struct{})
	for _, cmd := range commands {
		desired[cmd.Name] = struct{}{}
		if current, ok := existingByName[cmd.Name]; ok {
			if _, err := b.session.ApplicationCommandEdit(appID, b.cfg.GuildID, current.ID, cmd); err != nil {
				return err
			}
			continue
		}
		if _, err := b.session.ApplicationCommandCreate(appID, b.cfg.GuildID, cmd); err != nil {
			return err
		}
	}

	for _, cmd := range existing {
		if _, ok := desired[cmd.Name]; ok {
			continue
		}
		_ = b.session.ApplicationCommandDelete(appID, b.cfg.GuildID, cmd.ID)
	}
	return nil
}
