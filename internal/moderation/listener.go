package moderation

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"guildwatch/internal/classifier"
	"guildwatch/internal/permissions"
	"guildwatch/internal/storage"

	"go.uber.org/zap"
)

// Embed field values cap at 1024 characters; the removed-content copy is
// truncated to leave room for the ellipsis.
const maxContentEcho = 1021

// Message is the listener's view of an inbound chat message.
type Message struct {
	ID          string
	GuildID     string
	ChannelID   string
	AuthorID    string
	AuthorName  string
	AuthorIsBot bool
	Content     string
}

type ListenerConfig struct {
	Enabled    bool
	GuildID    string
	LogChannel string
}

type Listener struct {
	platform   Platform
	classifier classifier.Classifier
	perms      *permissions.Checker
	store      *storage.Store
	logger     *zap.Logger
	cfg        ListenerConfig
}

func NewListener(platform Platform, cls classifier.Classifier, perms *permissions.Checker, store *storage.Store, logger *zap.Logger, cfg ListenerConfig) *Listener {
	return &Listener{platform: platform, classifier: cls, perms: perms, store: store, logger: logger, cfg: cfg}
}

// HandleMessage inspects one inbound message. It never returns an error:
// every step's failure is logged and the next message is unaffected.
func (l *Listener) HandleMessage(ctx context.Context, msg Message) {
	if !l.cfg.Enabled {
		return
	}
	if msg.AuthorIsBot || msg.GuildID != l.cfg.GuildID {
		return
	}

	// Staff are never auto-moderated; checked before spending a classifier call.
	exempt, err := l.perms.HasAny(ctx, msg.GuildID, msg.AuthorID, permissions.Moderator...)
	if err != nil {
		l.logger.Warn("staff exemption check failed", zap.String("user_id", msg.AuthorID), zap.Error(err))
		return
	}
	if exempt {
		return
	}

	verdict, err := l.classifier.Classify(ctx, msg.Content)
	if err != nil {
		l.logger.Warn("classification failed", zap.String("message_id", msg.ID), zap.Error(err))
		return
	}
	if !verdict.Flagged {
		return
	}

	if err := l.platform.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil {
		l.logger.Warn("message delete failed", zap.String("message_id", msg.ID), zap.Error(err))
	}

	messageID := msg.ID
	flagID, err := l.store.AddModFlag(ctx, storage.ModFlag{
		MessageID:   &messageID,
		Content:     msg.Content,
		FlagType:    verdict.Category,
		Severity:    verdict.Severity,
		RawResponse: string(verdict.Raw),
		CreatedAt:   time.Now(),
	})
	if err != nil {
		l.logger.Error("flag persist failed", zap.String("message_id", msg.ID), zap.Error(err))
	}

	echo := truncateContent(msg.Content)
	if err := l.platform.SendDM(ctx, msg.AuthorID, fmt.Sprintf(
		"Your message was removed for violating the community guidelines (%s).\n\n> %s", verdict.Category, echo)); err != nil {
		l.logger.Warn("author notification failed", zap.String("user_id", msg.AuthorID), zap.Error(err))
	}

	l.postToLogChannel(ctx, msg, verdict, echo, flagID)
}

func (l *Listener) postToLogChannel(ctx context.Context, msg Message, verdict classifier.Verdict, echo string, flagID int64) {
	if l.cfg.LogChannel == "" {
		return
	}
	channelID, err := l.platform.ChannelIDByName(ctx, msg.GuildID, l.cfg.LogChannel)
	if err != nil {
		l.logger.Warn("log channel lookup failed", zap.String("channel", l.cfg.LogChannel), zap.Error(err))
		return
	}
	content := fmt.Sprintf(
		"Auto-moderation removed a message.\nAuthor: <@%s> (%s)\nChannel: <#%s>\nCategory: %s (severity %.2f)\nFlag: #%d\n\n> %s",
		msg.AuthorID, msg.AuthorName, msg.ChannelID, verdict.Category, verdict.Severity, flagID, echo)
	if err := l.platform.SendChannelMessage(ctx, channelID, content); err != nil {
		l.logger.Warn("log channel post failed", zap.String("channel_id", channelID), zap.Error(err))
	}
}

func truncateContent(content string) string {
	if len(content) <= maxContentEcho {
		return content
	}
	cut := maxContentEcho
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut] + "..."
}
