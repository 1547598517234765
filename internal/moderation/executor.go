package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"guildwatch/internal/storage"

	"go.uber.org/zap"
)

const (
	ActionWarn   = "WARN"
	ActionMute   = "MUTE"
	ActionKick   = "KICK"
	ActionBan    = "BAN"
	ActionUnban  = "UNBAN"
	ActionUnmute = "UNMUTE"
)

// DefaultReason is recorded when a moderator gives no reason.
const DefaultReason = "No reason provided"

const (
	MinMuteMinutes = 1
	MaxMuteMinutes = 10080
	MaxDeleteDays  = 7
)

// Rejections: each pre-condition failure is a distinct error so the bot can
// answer with a specific message and tests can tell them apart. None of
// these leave any trace in the audit store.
var (
	ErrTargetNotFound = errors.New("target is not a member of this server")
	ErrSelfAction     = errors.New("you cannot moderate yourself")
	ErrBotTarget      = errors.New("bot accounts cannot be moderated")
	ErrNotActionable  = errors.New("target outranks the bot")
)

type Actor struct {
	ID          string
	DisplayName string
}

type ExecutorConfig struct {
	GuildID string
	// BanReasonIncludesActor appends " (by <moderator>)" to the reason sent
	// with the platform ban call. Only ban does this; the asymmetry comes
	// from the original deployment and is kept configurable.
	BanReasonIncludesActor bool
}

type Executor struct {
	platform Platform
	store    *storage.Store
	logger   *zap.Logger
	cfg      ExecutorConfig
}

func NewExecutor(platform Platform, store *storage.Store, logger *zap.Logger, cfg ExecutorConfig) *Executor {
	return &Executor{platform: platform, store: store, logger: logger, cfg: cfg}
}

// Kick removes the target from the guild.
func (e *Executor) Kick(ctx context.Context, actor Actor, targetID, reason string) (string, error) {
	reason = normalizeReason(reason)
	member, err := e.check(ctx, actor, targetID, func(m Member) bool { return m.Kickable })
	if err != nil {
		return "", err
	}

	e.notifyTarget(ctx, targetID, fmt.Sprintf("You have been kicked from the server.\nReason: %s", reason))

	if err := e.platform.Kick(ctx, e.cfg.GuildID, targetID, reason); err != nil {
		return "", fmt.Errorf("kick %s: %w", targetID, err)
	}
	if err := e.record(ctx, storage.ModLog{
		GuildID:     e.cfg.GuildID,
		UserID:      targetID,
		ModeratorID: actor.ID,
		Action:      ActionKick,
		Reason:      reason,
	}); err != nil {
		return "", err
	}
	return fmt.Sprintf("Kicked **%s**. Reason: %s", member.Username, reason), nil
}

// Ban bans the target, optionally deleting up to seven days of messages.
func (e *Executor) Ban(ctx context.Context, actor Actor, targetID, reason string, deleteDays int) (string, error) {
	reason = normalizeReason(reason)
	deleteDays = clamp(deleteDays, 0, MaxDeleteDays)
	member, err := e.check(ctx, actor, targetID, func(m Member) bool { return m.Bannable })
	if err != nil {
		return "", err
	}

	e.notifyTarget(ctx, targetID, fmt.Sprintf("You have been banned from the server.\nReason: %s", reason))

	platformReason := reason
	if e.cfg.BanReasonIncludesActor {
		platformReason = fmt.Sprintf("%s (by %s)", reason, actor.DisplayName)
	}
	if err := e.platform.Ban(ctx, e.cfg.GuildID, targetID, platformReason, deleteDays); err != nil {
		return "", fmt.Errorf("ban %s: %w", targetID, err)
	}
	if err := e.record(ctx, storage.ModLog{
		GuildID:     e.cfg.GuildID,
		UserID:      targetID,
		ModeratorID: actor.ID,
		Action:      ActionBan,
		Reason:      reason,
	}); err != nil {
		return "", err
	}
	return fmt.Sprintf("Banned **%s**. Reason: %s", member.Username, reason), nil
}

// Mute times the target out. Duration is clamped to [1, 10080] minutes; the
// audit row carries both the duration and the derived expiry.
func (e *Executor) Mute(ctx context.Context, actor Actor, targetID, reason string, durationMinutes int) (string, error) {
	reason = normalizeReason(reason)
	durationMinutes = clamp(durationMinutes, MinMuteMinutes, MaxMuteMinutes)
	member, err := e.check(ctx, actor, targetID, func(m Member) bool { return m.Moderatable })
	if err != nil {
		return "", err
	}

	duration := time.Duration(durationMinutes) * time.Minute
	until := time.Now().Add(duration)
	e.notifyTarget(ctx, targetID, fmt.Sprintf("You have been muted until %s.\nReason: %s", until.UTC().Format(time.RFC1123), reason))

	if err := e.platform.Timeout(ctx, e.cfg.GuildID, targetID, until, reason); err != nil {
		return "", fmt.Errorf("timeout %s: %w", targetID, err)
	}
	seconds := int64(duration / time.Second)
	if err := e.record(ctx, storage.ModLog{
		GuildID:         e.cfg.GuildID,
		UserID:          targetID,
		ModeratorID:     actor.ID,
		Action:          ActionMute,
		Reason:          reason,
		DurationSeconds: &seconds,
		ExpiresAt:       &until,
	}); err != nil {
		return "", err
	}
	return fmt.Sprintf("Muted **%s** for %d minute(s). Reason: %s", member.Username, durationMinutes, reason), nil
}

// Warn records a warning. There is no platform-level enforcement call.
func (e *Executor) Warn(ctx context.Context, actor Actor, targetID, reason string) (string, error) {
	reason = normalizeReason(reason)
	member, err := e.check(ctx, actor, targetID, func(m Member) bool { return true })
	if err != nil {
		return "", err
	}

	e.notifyTarget(ctx, targetID, fmt.Sprintf("You have received a warning.\nReason: %s", reason))

	if err := e.record(ctx, storage.ModLog{
		GuildID:     e.cfg.GuildID,
		UserID:      targetID,
		ModeratorID: actor.ID,
		Action:      ActionWarn,
		Reason:      reason,
	}); err != nil {
		return "", err
	}
	return fmt.Sprintf("Warned **%s**. Reason: %s", member.Username, reason), nil
}

// check runs the shared pre-conditions in order. The self check is pure and
// runs before the member resolution call.
func (e *Executor) check(ctx context.Context, actor Actor, targetID string, actionable func(Member) bool) (Member, error) {
	if targetID == actor.ID {
		return Member{}, ErrSelfAction
	}
	member, err := e.platform.ResolveMember(ctx, e.cfg.GuildID, targetID)
	if err != nil {
		return Member{}, ErrTargetNotFound
	}
	if member.Bot {
		return Member{}, ErrBotTarget
	}
	if !actionable(member) {
		return Member{}, ErrNotActionable
	}
	return member, nil
}

func (e *Executor) notifyTarget(ctx context.Context, targetID, content string) Attempt {
	outcome := attempt(e.platform.SendDM(ctx, targetID, content))
	if !outcome.OK {
		e.logger.Warn("target notification failed", zap.String("user_id", targetID), zap.Error(outcome.Err))
	}
	return outcome
}

func (e *Executor) record(ctx context.Context, log storage.ModLog) error {
	log.CreatedAt = time.Now()
	if _, err := e.store.AddModLog(ctx, log); err != nil {
		return fmt.Errorf("audit write: %w", err)
	}
	return nil
}

func normalizeReason(reason string) string {
	if reason == "" {
		return DefaultReason
	}
	return reason
}

func clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
