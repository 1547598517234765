package moderation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"guildwatch/internal/storage"

	"go.uber.org/zap"
)

type fakePlatform struct {
	members map[string]Member

	kicks    []string
	bans     []banCall
	timeouts []timeoutCall
	dms      []dmCall
	deleted  []string
	posts    []dmCall

	dmErr      error
	kickErr    error
	banErr     error
	logChannel string
}

type banCall struct {
	userID     string
	reason     string
	deleteDays int
}

type timeoutCall struct {
	userID string
	until  time.Time
	reason string
}

type dmCall struct {
	id      string
	content string
}

func (f *fakePlatform) ResolveMember(_ context.Context, _, userID string) (Member, error) {
	member, ok := f.members[userID]
	if !ok {
		return Member{}, errors.New("unknown member")
	}
	return member, nil
}

func (f *fakePlatform) Kick(_ context.Context, _, userID, _ string) error {
	if f.kickErr != nil {
		return f.kickErr
	}
	f.kicks = append(f.kicks, userID)
	return nil
}

func (f *fakePlatform) Ban(_ context.Context, _, userID, reason string, deleteDays int) error {
	if f.banErr != nil {
		return f.banErr
	}
	f.bans = append(f.bans, banCall{userID: userID, reason: reason, deleteDays: deleteDays})
	return nil
}

func (f *fakePlatform) Timeout(_ context.Context, _, userID string, until time.Time, reason string) error {
	f.timeouts = append(f.timeouts, timeoutCall{userID: userID, until: until, reason: reason})
	return nil
}

func (f *fakePlatform) SendDM(_ context.Context, userID, content string) error {
	if f.dmErr != nil {
		return f.dmErr
	}
	f.dms = append(f.dms, dmCall{id: userID, content: content})
	return nil
}

func (f *fakePlatform) DeleteMessage(_ context.Context, _, messageID string) error {
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakePlatform) ChannelIDByName(_ context.Context, _, name string) (string, error) {
	if f.logChannel == "" {
		return "", errors.New("no such channel")
	}
	return f.logChannel, nil
}

func (f *fakePlatform) SendChannelMessage(_ context.Context, channelID, content string) error {
	f.posts = append(f.posts, dmCall{id: channelID, content: content})
	return nil
}

func newExecutorForTest(t *testing.T, platform *fakePlatform) (*Executor, *storage.Store) {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	executor := NewExecutor(platform, store, zap.NewNop(), ExecutorConfig{GuildID: "g1", BanReasonIncludesActor: true})
	return executor, store
}

func modLogCount(t *testing.T, store *storage.Store) int {
	t.Helper()
	logs, err := store.ListModLogs(context.Background(), "g1", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("list mod logs: %v", err)
	}
	return len(logs)
}

func TestSelfActionRejected(t *testing.T) {
	platform := &fakePlatform{members: map[string]Member{}}
	executor, store := newExecutorForTest(t, platform)
	actor := Actor{ID: "m1", DisplayName: "Mod"}

	for name, run := range map[string]func() (string, error){
		"kick": func() (string, error) { return executor.Kick(context.Background(), actor, "m1", "") },
		"ban":  func() (string, error) { return executor.Ban(context.Background(), actor, "m1", "", 0) },
		"mute": func() (string, error) { return executor.Mute(context.Background(), actor, "m1", "", 5) },
		"warn": func() (string, error) { return executor.Warn(context.Background(), actor, "m1", "") },
	} {
		if _, err := run(); !errors.Is(err, ErrSelfAction) {
			t.Fatalf("%s: expected ErrSelfAction, got %v", name, err)
		}
	}
	if modLogCount(t, store) != 0 {
		t.Fatalf("self-action must not write audit rows")
	}
	if len(platform.dms) != 0 {
		t.Fatalf("self-action must not notify anyone")
	}
}

func TestBotTargetRejected(t *testing.T) {
	platform := &fakePlatform{members: map[string]Member{
		"b1": {ID: "b1", Username: "helper-bot", Bot: true, Kickable: true, Bannable: true, Moderatable: true},
	}}
	executor, store := newExecutorForTest(t, platform)
	actor := Actor{ID: "m1", DisplayName: "Mod"}

	if _, err := executor.Kick(context.Background(), actor, "b1", ""); !errors.Is(err, ErrBotTarget) {
		t.Fatalf("expected ErrBotTarget, got %v", err)
	}
	if _, err := executor.Warn(context.Background(), actor, "b1", ""); !errors.Is(err, ErrBotTarget) {
		t.Fatalf("expected ErrBotTarget, got %v", err)
	}
	if modLogCount(t, store) != 0 {
		t.Fatalf("bot target must not write audit rows")
	}
}

func TestUnresolvableTargetRejected(t *testing.T) {
	platform := &fakePlatform{members: map[string]Member{}}
	executor, store := newExecutorForTest(t, platform)

	if _, err := executor.Kick(context.Background(), Actor{ID: "m1"}, "ghost", ""); !errors.Is(err, ErrTargetNotFound) {
		t.Fatalf("expected ErrTargetNotFound, got %v", err)
	}
	if modLogCount(t, store) != 0 {
		t.Fatalf("unresolvable target must not write audit rows")
	}
}

func TestNotActionableRejected(t *testing.T) {
	platform := &fakePlatform{members: map[string]Member{
		"u1": {ID: "u1", Username: "admin", Kickable: false, Bannable: false, Moderatable: false},
	}}
	executor, _ := newExecutorForTest(t, platform)

	if _, err := executor.Ban(context.Background(), Actor{ID: "m1"}, "u1", "", 0); !errors.Is(err, ErrNotActionable) {
		t.Fatalf("expected ErrNotActionable, got %v", err)
	}
	if len(platform.bans) != 0 {
		t.Fatalf("no platform call expected")
	}
}

func TestBanEndToEnd(t *testing.T) {
	platform := &fakePlatform{members: map[string]Member{
		"u1": {ID: "u1", Username: "spammer", Bannable: true},
	}}
	executor, store := newExecutorForTest(t, platform)

	summary, err := executor.Ban(context.Background(), Actor{ID: "m1", DisplayName: "Mod"}, "u1", "spam", 3)
	if err != nil {
		t.Fatalf("ban: %v", err)
	}
	if !strings.Contains(summary, "spammer") {
		t.Fatalf("summary should name the target: %s", summary)
	}
	if len(platform.bans) != 1 {
		t.Fatalf("expected 1 ban call, got %d", len(platform.bans))
	}
	call := platform.bans[0]
	if call.deleteDays != 3 {
		t.Fatalf("expected 3-day delete window, got %d", call.deleteDays)
	}
	if !strings.Contains(call.reason, "spam") || !strings.Contains(call.reason, "(by Mod)") {
		t.Fatalf("unexpected platform reason: %s", call.reason)
	}

	logs, err := store.ListModLogs(context.Background(), "g1", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("list mod logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected exactly one audit row, got %d", len(logs))
	}
	if logs[0].Action != ActionBan || logs[0].UserID != "u1" || logs[0].Reason != "spam" {
		t.Fatalf("unexpected audit row: %+v", logs[0])
	}
	if logs[0].DurationSeconds != nil || logs[0].ExpiresAt != nil {
		t.Fatalf("ban must not carry duration or expiry")
	}
}

func TestBanReasonActorSuffixDisabled(t *testing.T) {
	platform := &fakePlatform{members: map[string]Member{
		"u1": {ID: "u1", Username: "spammer", Bannable: true},
	}}
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	executor := NewExecutor(platform, store, zap.NewNop(), ExecutorConfig{GuildID: "g1", BanReasonIncludesActor: false})

	if _, err := executor.Ban(context.Background(), Actor{ID: "m1", DisplayName: "Mod"}, "u1", "spam", 0); err != nil {
		t.Fatalf("ban: %v", err)
	}
	if strings.Contains(platform.bans[0].reason, "(by") {
		t.Fatalf("actor suffix must be absent when disabled: %s", platform.bans[0].reason)
	}
}

func TestMuteClampAndExpiry(t *testing.T) {
	platform := &fakePlatform{members: map[string]Member{
		"u1": {ID: "u1", Username: "loud", Moderatable: true},
	}}
	executor, store := newExecutorForTest(t, platform)

	if _, err := executor.Mute(context.Background(), Actor{ID: "m1"}, "u1", "", 999999); err != nil {
		t.Fatalf("mute: %v", err)
	}
	if len(platform.timeouts) != 1 {
		t.Fatalf("expected 1 timeout call")
	}
	maxUntil := time.Now().Add(time.Duration(MaxMuteMinutes)*time.Minute + time.Minute)
	if platform.timeouts[0].until.After(maxUntil) {
		t.Fatalf("duration not clamped: until=%v", platform.timeouts[0].until)
	}

	logs, _ := store.ListModLogs(context.Background(), "g1", time.Now().Add(-time.Minute))
	if len(logs) != 1 {
		t.Fatalf("expected one audit row")
	}
	if logs[0].DurationSeconds == nil || logs[0].ExpiresAt == nil {
		t.Fatalf("mute row must carry duration and expiry together")
	}
	if *logs[0].DurationSeconds != int64(MaxMuteMinutes*60) {
		t.Fatalf("expected clamped duration, got %d", *logs[0].DurationSeconds)
	}
}

func TestWarnHasNoPlatformCall(t *testing.T) {
	platform := &fakePlatform{members: map[string]Member{
		"u1": {ID: "u1", Username: "newbie"},
	}}
	executor, store := newExecutorForTest(t, platform)

	if _, err := executor.Warn(context.Background(), Actor{ID: "m1"}, "u1", ""); err != nil {
		t.Fatalf("warn: %v", err)
	}
	if len(platform.kicks)+len(platform.bans)+len(platform.timeouts) != 0 {
		t.Fatalf("warn must not enforce anything on the platform")
	}
	logs, _ := store.ListModLogs(context.Background(), "g1", time.Now().Add(-time.Minute))
	if len(logs) != 1 || logs[0].Action != ActionWarn {
		t.Fatalf("expected one WARN row, got %+v", logs)
	}
	if logs[0].Reason != DefaultReason {
		t.Fatalf("expected default reason, got %q", logs[0].Reason)
	}
}

func TestDMFailureDoesNotAbort(t *testing.T) {
	platform := &fakePlatform{
		members: map[string]Member{"u1": {ID: "u1", Username: "quiet", Kickable: true}},
		dmErr:   errors.New("dms closed"),
	}
	executor, store := newExecutorForTest(t, platform)

	if _, err := executor.Kick(context.Background(), Actor{ID: "m1"}, "u1", "rule 3"); err != nil {
		t.Fatalf("kick should succeed despite DM failure: %v", err)
	}
	if len(platform.kicks) != 1 {
		t.Fatalf("expected kick to happen")
	}
	if modLogCount(t, store) != 1 {
		t.Fatalf("expected audit row despite DM failure")
	}
}

func TestPlatformFailureSurfacesNoAuditRow(t *testing.T) {
	platform := &fakePlatform{
		members: map[string]Member{"u1": {ID: "u1", Username: "quiet", Kickable: true}},
		kickErr: errors.New("api down"),
	}
	executor, store := newExecutorForTest(t, platform)

	if _, err := executor.Kick(context.Background(), Actor{ID: "m1"}, "u1", ""); err == nil {
		t.Fatalf("expected error when platform call fails")
	}
	if modLogCount(t, store) != 0 {
		t.Fatalf("failed enforcement must not write an audit row")
	}
}
