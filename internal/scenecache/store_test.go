package scenecache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/colsephiroth/storyreel/common"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "cache", "scenes.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestKey(t *testing.T) {
	if got := Key("p1"); got != "filmgen:project:p1:scenes" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestReadMissingIsEmpty(t *testing.T) {
	store := openTestStore(t)
	got := store.Read(context.Background(), "nope")
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", got)
	}
}

func TestWriteThenRead(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	scenes := []common.Scene{
		{ID: "initial-p1", Prompt: "a bus", Status: common.SceneReady, ClipURL: "https://cdn.test/a.mp4", CreatedAt: created},
		{ID: "d1", Prompt: "next", Status: common.SceneQueued, CreatedAt: created},
	}
	if err := store.Write(ctx, "p1", scenes); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if err := store.Write(ctx, "p1", scenes[:1]); err != nil {
		t.Fatalf("second Write returned error: %v", err)
	}

	got := store.Read(ctx, "p1")
	if len(got) != 1 || got[0].ID != "initial-p1" || !got[0].CreatedAt.Equal(created) {
		t.Fatalf("unexpected scenes %+v", got)
	}
	if other := store.Read(ctx, "p2"); len(other) != 0 {
		t.Fatalf("projects leaked into each other: %+v", other)
	}
}

func TestReadCorruptEntryIsEmpty(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	if _, err := store.db.ExecContext(ctx,
		`INSERT INTO scene_cache (cache_key, value_json, updated_at) VALUES (?, ?, ?)`,
		Key("p1"), "{not json", "now"); err != nil {
		t.Fatalf("seed corrupt row: %v", err)
	}
	if got := store.Read(ctx, "p1"); len(got) != 0 {
		t.Fatalf("expected empty list for corrupt entry, got %+v", got)
	}
}

func TestDelete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	_ = store.Write(ctx, "p1", []common.Scene{{ID: "x"}})
	if err := store.Delete(ctx, "p1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if got := store.Read(ctx, "p1"); len(got) != 0 {
		t.Fatalf("expected entry to be gone, got %+v", got)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenes.db")
	store, err := Open(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	_ = store.Write(context.Background(), "p1", []common.Scene{{ID: "kept"}})
	_ = store.Close()

	reopened, err := Open(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	defer reopened.Close()
	if got := reopened.Read(context.Background(), "p1"); len(got) != 1 || got[0].ID != "kept" {
		t.Fatalf("unexpected scenes after reopen %+v", got)
	}
}
