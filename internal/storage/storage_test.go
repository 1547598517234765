package storage

import (
	"context"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestAddModLogWithDuration(t *testing.T) {
	store := newTestStore(t)

	duration := int64(600)
	expires := time.Now().Add(10 * time.Minute)
	id, err := store.AddModLog(context.Background(), ModLog{
		GuildID:         "g1",
		UserID:          "u1",
		ModeratorID:     "m1",
		Action:          "MUTE",
		Reason:          "spamming",
		DurationSeconds: &duration,
		ExpiresAt:       &expires,
		CreatedAt:       time.Now(),
	})
	if err != nil {
		t.Fatalf("add mod log: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected non-zero id")
	}

	logs, err := store.ListModLogs(context.Background(), "g1", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("list mod logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 log, got %d", len(logs))
	}
	if logs[0].DurationSeconds == nil || *logs[0].DurationSeconds != 600 {
		t.Fatalf("expected duration 600, got %v", logs[0].DurationSeconds)
	}
	if logs[0].ExpiresAt == nil {
		t.Fatalf("expected expiry to be set")
	}
}

func TestAddModLogWithoutDuration(t *testing.T) {
	store := newTestStore(t)

	_, err := store.AddModLog(context.Background(), ModLog{
		GuildID:     "g1",
		UserID:      "u1",
		ModeratorID: "m1",
		Action:      "KICK",
		Reason:      "No reason provided",
		CreatedAt:   time.Now(),
	})
	if err != nil {
		t.Fatalf("add mod log: %v", err)
	}

	logs, err := store.ListModLogs(context.Background(), "g1", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("list mod logs: %v", err)
	}
	if logs[0].DurationSeconds != nil || logs[0].ExpiresAt != nil {
		t.Fatalf("expected duration and expiry to be absent")
	}
}

func TestCountModLogsByAction(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, action := range []string{"BAN", "BAN", "WARN"} {
		if _, err := store.AddModLog(ctx, ModLog{GuildID: "g1", UserID: "u1", ModeratorID: "m1", Action: action, CreatedAt: time.Now()}); err != nil {
			t.Fatalf("add mod log: %v", err)
		}
	}

	counts, err := store.CountModLogsByAction(ctx, "g1", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("count by action: %v", err)
	}
	if counts["BAN"] != 2 || counts["WARN"] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestFlagListPaginationAndFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		messageID := "m" + string(rune('a'+i))
		if _, err := store.AddModFlag(ctx, ModFlag{
			MessageID: &messageID,
			Content:   "content",
			FlagType:  "SPAM",
			Severity:  0.8,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("add flag: %v", err)
		}
	}
	if _, err := store.AddModFlag(ctx, ModFlag{Content: "x", FlagType: "NSFW", Severity: 0.9, CreatedAt: base}); err != nil {
		t.Fatalf("add flag: %v", err)
	}

	flags, err := store.ListModFlags(ctx, FlagFilter{Resolved: false, FlagType: "SPAM", Limit: 2, Offset: 0})
	if err != nil {
		t.Fatalf("list flags: %v", err)
	}
	if len(flags) != 2 {
		t.Fatalf("expected 2 flags, got %d", len(flags))
	}
	if flags[0].CreatedAt.Before(flags[1].CreatedAt) {
		t.Fatalf("expected newest-first ordering")
	}
	if flags[0].MessageID == nil || *flags[0].MessageID != "me" {
		t.Fatalf("expected newest flag first, got %v", flags[0].MessageID)
	}

	total, err := store.CountModFlags(ctx, FlagFilter{Resolved: false, FlagType: "SPAM"})
	if err != nil {
		t.Fatalf("count flags: %v", err)
	}
	if total != 5 {
		t.Fatalf("expected 5 spam flags, got %d", total)
	}
}

func TestResolveModFlag(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.AddModFlag(ctx, ModFlag{Content: "bad", FlagType: "HARASSMENT", Severity: 0.7, CreatedAt: time.Now()})
	if err != nil {
		t.Fatalf("add flag: %v", err)
	}

	flag, err := store.GetModFlag(ctx, id)
	if err != nil {
		t.Fatalf("get flag: %v", err)
	}
	if flag.Resolved || flag.ResolvedBy != nil || flag.ResolvedAt != nil {
		t.Fatalf("new flag must be unresolved with no resolver")
	}

	if err := store.ResolveModFlag(ctx, id, "mod1", time.Now()); err != nil {
		t.Fatalf("resolve flag: %v", err)
	}
	flag, err = store.GetModFlag(ctx, id)
	if err != nil {
		t.Fatalf("get flag: %v", err)
	}
	if !flag.Resolved || flag.ResolvedBy == nil || *flag.ResolvedBy != "mod1" || flag.ResolvedAt == nil {
		t.Fatalf("expected resolution triple to be set, got %+v", flag)
	}

	if err := store.ResolveModFlag(ctx, 9999, "mod1", time.Now()); err != ErrFlagNotFound {
		t.Fatalf("expected ErrFlagNotFound, got %v", err)
	}
}

func TestGetModFlagNotFound(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.GetModFlag(context.Background(), 42); err != ErrFlagNotFound {
		t.Fatalf("expected ErrFlagNotFound, got %v", err)
	}
}

func TestArtworkPublishToggle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.AddArtwork(ctx, Artwork{Title: "sunset", UploaderID: "u9", UploaderName: "painter", Published: true})
	if err != nil {
		t.Fatalf("add artwork: %v", err)
	}
	if err := store.SetArtworkPublished(ctx, id, false); err != nil {
		t.Fatalf("unpublish artwork: %v", err)
	}
	art, err := store.GetArtwork(ctx, id)
	if err != nil {
		t.Fatalf("get artwork: %v", err)
	}
	if art.Published {
		t.Fatalf("expected artwork to be unpublished")
	}
}

func TestRolePermissionMasks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	masks, err := store.RolePermissionMasks(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("masks: %v", err)
	}
	if len(masks) != 0 {
		t.Fatalf("expected no masks for unknown user")
	}

	if err := store.AddRolePermission(ctx, "g1", "u1", "r1", "8192"); err != nil {
		t.Fatalf("add role permission: %v", err)
	}
	if err := store.AddRolePermission(ctx, "g1", "u1", "r2", "1099511627776"); err != nil {
		t.Fatalf("add role permission: %v", err)
	}

	masks, err = store.RolePermissionMasks(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("masks: %v", err)
	}
	if len(masks) != 2 {
		t.Fatalf("expected 2 masks, got %d", len(masks))
	}
}

func TestFlagStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.AddModFlag(ctx, ModFlag{Content: "a", FlagType: "SPAM", CreatedAt: time.Now()})
	if err != nil {
		t.Fatalf("add flag: %v", err)
	}
	if _, err := store.AddModFlag(ctx, ModFlag{Content: "b", FlagType: "SPAM", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("add flag: %v", err)
	}
	if err := store.ResolveModFlag(ctx, id, "mod1", time.Now()); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	total, unresolved, err := store.FlagStats(ctx, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if total != 2 || unresolved != 1 {
		t.Fatalf("expected total=2 unresolved=1, got %d/%d", total, unresolved)
	}
}
