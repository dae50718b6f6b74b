package enrichment

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(filepath.Join(t.TempDir(), "enrichment.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreCreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record, err := store.Create(ctx, "vid-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if record.VideoID != "vid-1" || record.Status != StatusPending {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.CreatedAt.IsZero() || record.UpdatedAt.IsZero() {
		t.Error("timestamps should be set")
	}

	loaded, err := store.GetByVideoID(ctx, "vid-1")
	if err != nil {
		t.Fatalf("GetByVideoID: %v", err)
	}
	if loaded == nil || loaded.ID != record.ID {
		t.Fatalf("loaded record mismatch: %+v", loaded)
	}

	missing, err := store.GetByVideoID(ctx, "vid-unknown")
	if err != nil {
		t.Fatalf("GetByVideoID missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown video, got %+v", missing)
	}
}

func TestStoreVideoIDUnique(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Create(ctx, "vid-1"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Create(ctx, "vid-1"); err == nil {
		t.Fatal("expected unique constraint violation")
	}
}

func TestStoreGetOrCreate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.GetOrCreate(ctx, "vid-1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	second, err := store.GetOrCreate(ctx, "vid-1")
	if err != nil {
		t.Fatalf("GetOrCreate again: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected same record, got ids %d and %d", first.ID, second.ID)
	}
}

func TestStoreUpdateRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record, err := store.Create(ctx, "vid-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	record.Status = StatusCompleted
	record.CaptionsText = "WEBVTT\n\n00:00:00.000 --> 00:00:02.000\nhello\n"
	record.CaptionsLanguage = "en"
	record.CaptionsSource = "native-manual"
	record.TranscriptText = "hello"
	record.ChaptersJSON = `[{"title":"Intro","start":0,"end":60}]`
	record.ChaptersSource = "description"
	record.RetryCount = 2
	record.Finalize(record.CreatedAt)

	if err := store.Update(ctx, record); err != nil {
		t.Fatalf("Update: %v", err)
	}

	loaded, err := store.GetByVideoID(ctx, "vid-1")
	if err != nil {
		t.Fatalf("GetByVideoID: %v", err)
	}
	if loaded.Status != StatusCompleted {
		t.Errorf("status = %q", loaded.Status)
	}
	if loaded.CaptionsLanguage != "en" || loaded.CaptionsSource != "native-manual" {
		t.Errorf("caption fields lost: %+v", loaded)
	}
	if loaded.TranscriptText != "hello" {
		t.Errorf("transcript = %q", loaded.TranscriptText)
	}
	if loaded.RetryCount != 2 {
		t.Errorf("retry count = %d", loaded.RetryCount)
	}
	if loaded.ProcessedAt == nil {
		t.Error("processed_at lost")
	}
}

func TestStoreListByStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, videoID := range []string{"vid-1", "vid-2", "vid-3"} {
		if _, err := store.Create(ctx, videoID); err != nil {
			t.Fatalf("Create %s: %v", videoID, err)
		}
	}
	record, err := store.GetByVideoID(ctx, "vid-2")
	if err != nil {
		t.Fatalf("GetByVideoID: %v", err)
	}
	record.SetFailed("no captions or chapters found")
	if err := store.Update(ctx, record); err != nil {
		t.Fatalf("Update: %v", err)
	}

	failed, err := store.List(ctx, StatusFailed)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(failed) != 1 || failed[0].VideoID != "vid-2" {
		t.Fatalf("unexpected failed list: %+v", failed)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
}

func TestStoreNextPending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	next, err := store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending empty: %v", err)
	}
	if next != nil {
		t.Fatalf("expected nil, got %+v", next)
	}

	if _, err := store.Create(ctx, "vid-1"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Create(ctx, "vid-2"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	next, err = store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending: %v", err)
	}
	if next == nil || next.VideoID != "vid-1" {
		t.Fatalf("expected oldest pending vid-1, got %+v", next)
	}
}

func TestStoreResetStuckProcessing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record, err := store.Create(ctx, "vid-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	record.Status = StatusProcessing
	record.SetProgress("Fetching captions")
	if err := store.Update(ctx, record); err != nil {
		t.Fatalf("Update: %v", err)
	}

	count, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing: %v", err)
	}
	if count != 1 {
		t.Fatalf("reset count = %d, want 1", count)
	}

	loaded, err := store.GetByVideoID(ctx, "vid-1")
	if err != nil {
		t.Fatalf("GetByVideoID: %v", err)
	}
	if loaded.Status != StatusPending || loaded.ProgressMessage != "" {
		t.Fatalf("record not reset: %+v", loaded)
	}
}

func TestStoreStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, videoID := range []string{"vid-1", "vid-2"} {
		if _, err := store.Create(ctx, videoID); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	record, err := store.GetByVideoID(ctx, "vid-1")
	if err != nil {
		t.Fatalf("GetByVideoID: %v", err)
	}
	record.Status = StatusCompleted
	if err := store.Update(ctx, record); err != nil {
		t.Fatalf("Update: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[StatusPending] != 1 || stats[StatusCompleted] != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
