package journal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/irislabs/go-iris/pkg/navigate"
)

// testStore creates a temporary store for testing.
func testStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "journal.json")
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func TestNewStore(t *testing.T) {
	store := testStore(t)

	if store == nil {
		t.Fatal("expected store to be non-nil")
	}

	if store.Count() != 0 {
		t.Errorf("expected empty store, got %d entries", store.Count())
	}
}

func TestAppend(t *testing.T) {
	store := testStore(t)

	entry := &Entry{
		Kind:       KindScene,
		Transcript: "There is a kitchen with a table and two chairs.",
	}
	if err := store.Append(entry); err != nil {
		t.Fatalf("failed to append entry: %v", err)
	}

	// ID should be generated
	if entry.ID == "" {
		t.Error("expected ID to be generated")
	}

	// Timestamps should be set
	if entry.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
	if entry.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be set")
	}

	// Should default to local sync state
	if entry.Sync != SyncLocal {
		t.Errorf("expected sync status %q, got %q", SyncLocal, entry.Sync)
	}

	if store.Count() != 1 {
		t.Errorf("expected 1 entry, got %d", store.Count())
	}
}

func TestGetEntry(t *testing.T) {
	store := testStore(t)

	original := &Entry{
		ID:          "walk-1",
		Kind:        KindNavigation,
		Destination: "the pharmacy",
		Transcript:  "Continue straight for twenty meters.",
	}
	store.Append(original)

	retrieved, err := store.Get("walk-1")
	if err != nil {
		t.Fatalf("failed to get entry: %v", err)
	}

	if retrieved.Destination != "the pharmacy" {
		t.Errorf("expected destination 'the pharmacy', got '%s'", retrieved.Destination)
	}

	// Get non-existent
	_, err = store.Get("non-existent")
	if err == nil {
		t.Error("expected error for non-existent entry")
	}
}

func TestListNewestFirst(t *testing.T) {
	store := testStore(t)

	base := time.Now()
	for i, transcript := range []string{"First", "Second", "Third"} {
		store.Append(&Entry{
			Kind:       KindScene,
			Transcript: transcript,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		})
	}

	entries := store.List()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	if entries[0].Transcript != "Third" {
		t.Errorf("expected first entry to be 'Third', got '%s'", entries[0].Transcript)
	}
	if entries[2].Transcript != "First" {
		t.Errorf("expected last entry to be 'First', got '%s'", entries[2].Transcript)
	}
}

func TestUpdateEntry(t *testing.T) {
	store := testStore(t)

	entry := &Entry{ID: "id-1", Kind: KindScene, Transcript: "Original"}
	store.Append(entry)

	originalUpdated := entry.UpdatedAt

	time.Sleep(10 * time.Millisecond)

	entry.MarkSynced("doc-123")
	if err := store.Update(entry); err != nil {
		t.Fatalf("failed to update: %v", err)
	}

	retrieved, _ := store.Get("id-1")
	if retrieved.GoogleDocID != "doc-123" {
		t.Errorf("expected doc ID 'doc-123', got '%s'", retrieved.GoogleDocID)
	}
	if retrieved.Sync != SyncSynced {
		t.Errorf("expected sync status %q, got %q", SyncSynced, retrieved.Sync)
	}
	if !retrieved.UpdatedAt.After(originalUpdated) {
		t.Error("expected UpdatedAt to be updated")
	}

	// Update non-existent
	err := store.Update(&Entry{ID: "non-existent"})
	if err == nil {
		t.Error("expected error for non-existent entry")
	}
}

func TestDeleteEntry(t *testing.T) {
	store := testStore(t)

	store.Append(&Entry{ID: "id-to-delete", Kind: KindScene})

	if store.Count() != 1 {
		t.Fatalf("expected 1 entry, got %d", store.Count())
	}

	if err := store.Delete("id-to-delete"); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}

	if store.Count() != 0 {
		t.Errorf("expected 0 entries, got %d", store.Count())
	}

	// Delete non-existent
	if err := store.Delete("non-existent"); err == nil {
		t.Error("expected error for non-existent entry")
	}
}

func TestStorePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.json")

	store1, err := NewStore(path)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	entry := &Entry{
		ID:          "persist-id",
		Kind:        KindNavigation,
		Destination: "the park entrance",
		Transcript:  "Turn left at the corner.",
		Position:    &navigate.Position{Latitude: 37.7749, Longitude: -122.4194},
	}
	store1.Append(entry)

	// Load in new store instance
	store2, err := NewStore(path)
	if err != nil {
		t.Fatalf("failed to load store: %v", err)
	}

	if store2.Count() != 1 {
		t.Errorf("expected 1 entry after reload, got %d", store2.Count())
	}

	retrieved, err := store2.Get("persist-id")
	if err != nil {
		t.Fatalf("failed to get entry after reload: %v", err)
	}

	if retrieved.Destination != "the park entrance" {
		t.Errorf("expected destination to persist, got '%s'", retrieved.Destination)
	}
	if retrieved.Position == nil || retrieved.Position.Latitude != 37.7749 {
		t.Error("expected position to persist")
	}

	// The saved file should not leave a temp file behind
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("expected temp file to be cleaned up")
	}
}

func TestConcurrentAppends(t *testing.T) {
	store := testStore(t)

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func() {
			store.Append(&Entry{Kind: KindScene, Transcript: "Concurrent"})
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	if store.Count() != 10 {
		t.Errorf("expected 10 entries, got %d", store.Count())
	}
}

func TestEntryTitle(t *testing.T) {
	created := time.Date(2025, time.March, 14, 15, 4, 0, 0, time.UTC)

	scene := &Entry{Kind: KindScene, CreatedAt: created}
	if got := scene.Title(); got != "Scene session (Mar 14, 2025 3:04 PM)" {
		t.Errorf("unexpected scene title: %q", got)
	}

	walk := &Entry{Kind: KindNavigation, Destination: "the library", CreatedAt: created}
	if got := walk.Title(); got != "Walk to the library (Mar 14, 2025 3:04 PM)" {
		t.Errorf("unexpected navigation title: %q", got)
	}
}

func TestMarkSyncError(t *testing.T) {
	entry := &Entry{Kind: KindScene, Sync: SyncLocal}
	entry.MarkSyncError()
	if entry.Sync != SyncError {
		t.Errorf("expected sync status %q, got %q", SyncError, entry.Sync)
	}
}
