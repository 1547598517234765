package moderation

import (
	"context"
	"time"
)

// Member is the platform's view of a guild member, reduced to what the
// executor needs for its pre-condition checks.
type Member struct {
	ID          string
	Username    string
	Bot         bool
	Kickable    bool
	Bannable    bool
	Moderatable bool
}

// Platform is the chat-platform surface consumed by the executor and the
// listener. The discordgo adapter lives in the bot package; tests supply
// fakes.
type Platform interface {
	ResolveMember(ctx context.Context, guildID, userID string) (Member, error)
	Kick(ctx context.Context, guildID, userID, reason string) error
	Ban(ctx context.Context, guildID, userID, reason string, deleteDays int) error
	Timeout(ctx context.Context, guildID, userID string, until time.Time, reason string) error
	SendDM(ctx context.Context, userID, content string) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	ChannelIDByName(ctx context.Context, guildID, name string) (string, error)
	SendChannelMessage(ctx context.Context, channelID, content string) error
}

// Attempt is the captured outcome of a best-effort step. Failures are
// recorded and logged, never propagated.
type Attempt struct {
	OK  bool
	Err error
}

func attempt(err error) Attempt {
	return Attempt{OK: err == nil, Err: err}
}
