package bot

import (
	"context"
	"fmt"
	"time"

	"guildwatch/internal/moderation"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// SendDailySummary posts a digest of the last 24 hours of moderation
// activity to the mod log channel. Scheduling lives with the caller.
func (b *Bot) SendDailySummary(ctx context.Context) {
	if !b.cfg.Notifications.DailySummary {
		return
	}

	report, err := b.analytics.Report(ctx, b.cfg.GuildID, time.Now().Add(-24*time.Hour))
	if err != nil {
		b.logger.Warn("daily summary report failed", zap.Error(err))
		return
	}

	channels, err := b.session.GuildChannels(b.cfg.GuildID)
	if err != nil {
		b.logger.Warn("daily summary channel lookup failed", zap.Error(err))
		return
	}
	channelID := ""
	for _, channel := range channels {
		if channel != nil && channel.Name == b.cfg.ModLogChannel {
			channelID = channel.ID
			break
		}
	}
	if channelID == "" {
		return
	}

	embed := &discordgo.MessageEmbed{
		Title: "Daily moderation summary",
		Color: b.cfg.Notifications.EmbedColors.Action,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Actions", Value: fmt.Sprintf("%d", report.ActionTotal), Inline: true},
			{Name: "Warns", Value: fmt.Sprintf("%d", report.ByAction[moderation.ActionWarn]), Inline: true},
			{Name: "Mutes", Value: fmt.Sprintf("%d", report.ByAction[moderation.ActionMute]), Inline: true},
			{Name: "Kicks", Value: fmt.Sprintf("%d", report.ByAction[moderation.ActionKick]), Inline: true},
			{Name: "Bans", Value: fmt.Sprintf("%d", report.ByAction[moderation.ActionBan]), Inline: true},
			{Name: "Flags", Value: fmt.Sprintf("%d (%d pending)", report.FlagTotal, report.FlagUnresolved), Inline: true},
		},
	}
	if _, err := b.session.ChannelMessageSendEmbed(channelID, embed); err != nil {
		b.logger.Warn("daily summary post failed", zap.Error(err))
	}
}
