package bot

import (
	"context"
	"errors"

	"guildwatch/internal/moderation"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := interaction.ApplicationCommandData()
	switch data.Name {
	case "kick", "ban", "mute", "warn":
		b.handleModerationCommand(context.Background(), session, interaction, data.Name, data.Options)
	}
}

func (b *Bot) handleModerationCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, name string, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if interaction.GuildID != b.cfg.GuildID {
		b.respondEmbed(session, interaction, b.commandEmbed("Moderation", "This command is only available inside the community server.", b.cfg.Notifications.EmbedColors.Error), true)
		return
	}
	if interaction.Member == nil || interaction.Member.User == nil {
		b.respondEmbed(session, interaction, b.commandEmbed("Moderation", "Could not identify the moderator.", b.cfg.Notifications.EmbedColors.Error), true)
		return
	}
	actor := moderation.Actor{
		ID:          interaction.Member.User.ID,
		DisplayName: interaction.Member.User.Username,
	}

	var targetID string
	var reason string
	duration := 0
	deleteDays := 0
	for _, opt := range options {
		switch opt.Name {
		case "user":
			if user := opt.UserValue(session); user != nil {
				targetID = user.ID
			}
		case "reason":
			reason = opt.StringValue()
		case "duration":
			duration = int(opt.IntValue())
		case "delete_days":
			deleteDays = int(opt.IntValue())
		}
	}
	if targetID == "" {
		b.respondEmbed(session, interaction, b.commandEmbed("Moderation", "A target user is required.", b.cfg.Notifications.EmbedColors.Error), true)
		return
	}

	var summary string
	var err error
	switch name {
	case "kick":
		summary, err = b.executor.Kick(ctx, actor, targetID, reason)
	case "ban":
		summary, err = b.executor.Ban(ctx, actor, targetID, reason, deleteDays)
	case "mute":
		summary, err = b.executor.Mute(ctx, actor, targetID, reason, duration)
	case "warn":
		summary, err = b.executor.Warn(ctx, actor, targetID, reason)
	}

	if err != nil {
		b.respondEmbed(session, interaction, b.commandEmbed("Moderation", rejectionMessage(err), b.cfg.Notifications.EmbedColors.Error), true)
		if !isRejection(err) {
			b.logger.Error("moderation command failed", zap.String("command", name), zap.String("target", targetID), zap.Error(err))
		}
		return
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Moderation", summary, b.cfg.Notifications.EmbedColors.Action), true)
}

// rejectionMessage keeps pre-condition failures specific and everything
// else generic; operational detail never reaches the moderator.
func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, moderation.ErrTargetNotFound):
		return "That user is not a member of this server."
	case errors.Is(err, moderation.ErrSelfAction):
		return "You cannot moderate yourself."
	case errors.Is(err, moderation.ErrBotTarget):
		return "Bot accounts cannot be moderated."
	case errors.Is(err, moderation.ErrNotActionable):
		return "I cannot act on that member; their role is above mine."
	default:
		return "An error occurred while executing the command."
	}
}

func isRejection(err error) bool {
	return errors.Is(err, moderation.ErrTargetNotFound) ||
		errors.Is(err, moderation.ErrSelfAction) ||
		errors.Is(err, moderation.ErrBotTarget) ||
		errors.Is(err, moderation.ErrNotActionable)
}

func (b *Bot) commandEmbed(title, description string, color int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
	}
}

func (b *Bot) respondEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	})
}
