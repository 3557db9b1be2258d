package memory

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "memory.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	return store, path
}

// TestFileStore_LoadMissing verifies a missing document loads as an
// empty deployment
func TestFileStore_LoadMissing(t *testing.T) {
	store, _ := newTestStore(t)

	records, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Load() = %+v, want empty map", records)
	}
}

// TestFileStore_RoundTrip verifies save then load reproduces the full
// record set
func TestFileStore_RoundTrip(t *testing.T) {
	store, _ := newTestStore(t)

	rec := NewUserRecord("u1", 1000)
	rec.Profile.Name = "Sam"
	rec.Notes = append(rec.Notes, Note{ID: 1, Text: "likes tea", CreatedAt: 1000})
	rec.NextNoteID = 2
	rec.Tasks = append(rec.Tasks, Task{ID: 1, Text: "buy milk", Priority: PriorityHigh, Status: TaskOpen, CreatedAt: 1001})
	rec.NextTaskID = 2
	pushTurn(rec, ConversationTurn{Role: RoleUser, Text: "hi", Timestamp: 1002})

	other := NewUserRecord("u2", 1003)

	if err := store.Save(map[string]*UserRecord{"u1": rec, "u2": other}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	records, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Load() returned %d records, want 2", len(records))
	}
	got := records["u1"]
	if got == nil {
		t.Fatal("record u1 missing after round trip")
	}
	if got.Profile.Name != "Sam" {
		t.Errorf("Profile.Name = %q, want %q", got.Profile.Name, "Sam")
	}
	if len(got.Notes) != 1 || got.Notes[0].Text != "likes tea" {
		t.Errorf("Notes = %+v", got.Notes)
	}
	if len(got.Tasks) != 1 || got.Tasks[0].Priority != PriorityHigh {
		t.Errorf("Tasks = %+v", got.Tasks)
	}
	if len(got.History) != 1 || got.History[0].Role != RoleUser {
		t.Errorf("History = %+v", got.History)
	}
	if got.NextNoteID != 2 || got.NextTaskID != 2 {
		t.Errorf("counters = %d/%d, want 2/2", got.NextNoteID, got.NextTaskID)
	}
}

// TestFileStore_Corrupt verifies an undecodable document surfaces
// ErrCorruptStore
func TestFileStore_Corrupt(t *testing.T) {
	store, path := newTestStore(t)

	if err := os.WriteFile(path, []byte("{broken"), 0600); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	_, err := store.Load()
	if !errors.Is(err, ErrCorruptStore) {
		t.Errorf("Load() error = %v, want ErrCorruptStore", err)
	}
}

// TestFileStore_CounterRepair verifies counters are raised past any id
// found in a hand-edited document and empty collections come back non-nil
func TestFileStore_CounterRepair(t *testing.T) {
	store, path := newTestStore(t)

	raw := `{"u1":{"notes":[{"id":7,"text":"x","created_at":1}],"next_note_id":1}}`
	if err := os.WriteFile(path, []byte(raw), 0600); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	records, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	rec := records["u1"]
	if rec == nil {
		t.Fatal("record u1 missing")
	}
	if rec.UserID != "u1" {
		t.Errorf("UserID = %q, want backfilled from map key", rec.UserID)
	}
	if rec.NextNoteID != 8 {
		t.Errorf("NextNoteID = %d, want 8", rec.NextNoteID)
	}
	if rec.Tasks == nil || rec.Reminders == nil || rec.History == nil {
		t.Error("slices should be normalized to non-nil")
	}
	if rec.Mood != "calm" {
		t.Errorf("Mood = %q, want calm default", rec.Mood)
	}
}

// TestFileStore_ReadFailureNotCorrupt verifies an I/O failure reading the
// document is not reported as corruption
func TestFileStore_ReadFailureNotCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	if err := os.Mkdir(path, 0755); err != nil {
		t.Fatalf("blocking document path: %v", err)
	}
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	_, err = store.Load()
	if err == nil {
		t.Fatal("Load() should fail when the document cannot be read")
	}
	if errors.Is(err, ErrCorruptStore) {
		t.Errorf("Load() error = %v, want a plain read error, not ErrCorruptStore", err)
	}
}

// TestFileStore_NullRecordDropped verifies a null entry in the document
// does not survive a load
func TestFileStore_NullRecordDropped(t *testing.T) {
	store, path := newTestStore(t)

	raw := `{"u1":null,"u2":{"user_id":"u2"}}`
	if err := os.WriteFile(path, []byte(raw), 0600); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	records, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, ok := records["u1"]; ok {
		t.Error("null record should be dropped")
	}
	if _, ok := records["u2"]; !ok {
		t.Error("valid record should survive")
	}
}

// TestFileStore_SaveReplaces verifies a save is a full replacement, not
// a merge with what was on disk
func TestFileStore_SaveReplaces(t *testing.T) {
	store, _ := newTestStore(t)

	if err := store.Save(map[string]*UserRecord{
		"a": NewUserRecord("a", 1),
		"b": NewUserRecord("b", 1),
	}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Save(map[string]*UserRecord{
		"a": NewUserRecord("a", 2),
	}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	records, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 1 {
		t.Errorf("Load() returned %d records, want 1", len(records))
	}
	if _, ok := records["b"]; ok {
		t.Error("record b should not survive a full replacement")
	}
}

// TestFileStore_NoTempLeftovers verifies a successful save leaves no .tmp file
func TestFileStore_NoTempLeftovers(t *testing.T) {
	store, path := newTestStore(t)

	if err := store.Save(map[string]*UserRecord{"u1": NewUserRecord("u1", 1)}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("reading dir: %v", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}
