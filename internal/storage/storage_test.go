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

func TestUpsertGuildSettings(t *testing.T) {
	store := newTestStore(t)

	settings := GuildSettings{
		GuildID:            "g1",
		AnnounceChannel:    "c1",
		SleepWindow:        "0-8",
		RepeatWindow:       "9-23",
		AmbientWindow:      "9-23",
		MaxDurationSeconds: 86400,
		ChainEnabled:       true,
		SeasonalEnabled:    true,
		RepeatEnabled:      true,
		AmbientEnabled:     false,
		RetentionDays:      30,
	}

	if err := store.UpsertGuildSettings(context.Background(), settings); err != nil {
		t.Fatalf("upsert guild settings: %v", err)
	}

	settings.AnnounceChannel = "c2"
	settings.AmbientEnabled = true
	if err := store.UpsertGuildSettings(context.Background(), settings); err != nil {
		t.Fatalf("update guild settings: %v", err)
	}

	got, err := store.GetGuildSettings(context.Background(), "g1", GuildSettings{})
	if err != nil {
		t.Fatalf("get guild settings: %v", err)
	}
	if got.AnnounceChannel != "c2" {
		t.Fatalf("expected channel c2, got %q", got.AnnounceChannel)
	}
	if !got.AmbientEnabled || !got.ChainEnabled {
		t.Fatalf("boolean flags did not round-trip: %+v", got)
	}
}

func TestGetGuildSettingsDefaults(t *testing.T) {
	store := newTestStore(t)

	defaults := GuildSettings{SleepWindow: "0-8", MaxDurationSeconds: 3600, RetentionDays: 7}
	got, err := store.GetGuildSettings(context.Background(), "missing", defaults)
	if err != nil {
		t.Fatalf("get guild settings: %v", err)
	}
	if got.GuildID != "missing" || got.SleepWindow != "0-8" || got.MaxDurationSeconds != 3600 {
		t.Fatalf("expected defaults for unknown guild, got %+v", got)
	}
}

func TestAuditLogs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now()
	entries := []AuditLog{
		{GuildID: "g1", UserID: "u1", Level: "INFO", Event: "mute_applied", Details: "effect=self", CreatedAt: base.Add(-48 * time.Hour)},
		{GuildID: "g1", UserID: "u2", Level: "WARN", Event: "mute_failed", Details: "effect=targeted", CreatedAt: base},
		{GuildID: "g2", UserID: "u3", Level: "INFO", Event: "mute_applied", Details: "effect=random", CreatedAt: base},
	}
	for _, entry := range entries {
		if err := store.AddAuditLog(ctx, entry); err != nil {
			t.Fatalf("add audit log: %v", err)
		}
	}

	logs, err := store.ListAuditLogs(ctx, "g1", base.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("list audit logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 recent g1 log, got %d", len(logs))
	}
	if logs[0].Event != "mute_failed" || logs[0].UserID != "u2" {
		t.Fatalf("unexpected log: %+v", logs[0])
	}
}

func TestMuteTallies(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	count, err := store.IncrementMuteTally(ctx, "g1", "u1", "targeted", 300)
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected count 1, got %d", count)
	}

	count, err = store.IncrementMuteTally(ctx, "g1", "u1", "backfire", 120)
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}

	tally, err := store.GetMuteTally(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("get tally: %v", err)
	}
	if tally.CountTotal != 2 || tally.TotalSeconds != 420 {
		t.Fatalf("unexpected tally: %+v", tally)
	}
	if tally.LastEffect != "backfire" {
		t.Fatalf("expected last effect backfire, got %q", tally.LastEffect)
	}
}

func TestTopMuted(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.IncrementMuteTally(ctx, "g1", "u1", "targeted", 60); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	if _, err := store.IncrementMuteTally(ctx, "g1", "u2", "self", 60); err != nil {
		t.Fatalf("increment: %v", err)
	}

	top, err := store.TopMuted(ctx, "g1", 5)
	if err != nil {
		t.Fatalf("top muted: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(top))
	}
	if top[0].UserID != "u1" || top[0].CountTotal != 3 {
		t.Fatalf("expected u1 first with 3, got %+v", top[0])
	}
}
