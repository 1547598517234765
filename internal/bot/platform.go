package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"guildwatch/internal/moderation"

	"github.com/bwmarrin/discordgo"
)

// sessionPlatform adapts the discord session to the moderation.Platform
// interface so the executor and listener stay free of discordgo types.
type sessionPlatform struct {
	session *discordgo.Session
}

func (p *sessionPlatform) ResolveMember(ctx context.Context, guildID, userID string) (moderation.Member, error) {
	_ = ctx
	member, err := p.session.State.Member(guildID, userID)
	if err != nil {
		member, err = p.session.GuildMember(guildID, userID)
		if err != nil {
			return moderation.Member{}, fmt.Errorf("resolve member %s: %w", userID, err)
		}
	}
	if member.User == nil {
		return moderation.Member{}, errors.New("member has no user")
	}

	actionable := p.canActOn(guildID, member)
	return moderation.Member{
		ID:          member.User.ID,
		Username:    member.User.Username,
		Bot:         member.User.Bot,
		Kickable:    actionable,
		Bannable:    actionable,
		Moderatable: actionable,
	}, nil
}

// canActOn mirrors the platform's hierarchy rule: the bot can act on a
// member only when its own highest role sits above the target's and the
// target does not own the guild.
func (p *sessionPlatform) canActOn(guildID string, target *discordgo.Member) bool {
	guild, err := p.session.State.Guild(guildID)
	if err != nil || guild == nil {
		guild, err = p.session.Guild(guildID)
		if err != nil || guild == nil {
			return false
		}
	}
	if target.User != nil && guild.OwnerID == target.User.ID {
		return false
	}

	positions := make(map[string]int, len(guild.Roles))
	for _, role := range guild.Roles {
		if role != nil {
			positions[role.ID] = role.Position
		}
	}

	botID := p.session.State.User.ID
	botMember, err := p.session.State.Member(guildID, botID)
	if err != nil {
		botMember, err = p.session.GuildMember(guildID, botID)
		if err != nil {
			return false
		}
	}

	return highestPosition(botMember.Roles, positions) > highestPosition(target.Roles, positions)
}

func highestPosition(roleIDs []string, positions map[string]int) int {
	highest := -1
	for _, id := range roleIDs {
		if pos, ok := positions[id]; ok && pos > highest {
			highest = pos
		}
	}
	return highest
}

func (p *sessionPlatform) Kick(ctx context.Context, guildID, userID, reason string) error {
	_ = ctx
	return p.session.GuildMemberDeleteWithReason(guildID, userID, reason)
}

func (p *sessionPlatform) Ban(ctx context.Context, guildID, userID, reason string, deleteDays int) error {
	_ = ctx
	return p.session.GuildBanCreateWithReason(guildID, userID, reason, deleteDays)
}

func (p *sessionPlatform) Timeout(ctx context.Context, guildID, userID string, until time.Time, reason string) error {
	_ = ctx
	_ = reason
	return p.session.GuildMemberTimeout(guildID, userID, &until)
}

func (p *sessionPlatform) SendDM(ctx context.Context, userID, content string) error {
	_ = ctx
	channel, err := p.session.UserChannelCreate(userID)
	if err != nil {
		return err
	}
	_, err = p.session.ChannelMessageSend(channel.ID, content)
	return err
}

func (p *sessionPlatform) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	_ = ctx
	return p.session.ChannelMessageDelete(channelID, messageID)
}

func (p *sessionPlatform) ChannelIDByName(ctx context.Context, guildID, name string) (string, error) {
	_ = ctx
	channels, err := p.session.GuildChannels(guildID)
	if err != nil {
		return "", err
	}
	for _, channel := range channels {
		if channel != nil && channel.Name == name {
			return channel.ID, nil
		}
	}
	return "", fmt.Errorf("channel %q not found", name)
}

func (p *sessionPlatform) SendChannelMessage(ctx context.Context, channelID, content string) error {
	_ = ctx
	_, err := p.session.ChannelMessageSend(channelID, content)
	return err
}
