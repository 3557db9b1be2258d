package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lunelabs/luna/pkg/mood"
)

// FileStore persists every user's record in one JSON document. Each save
// replaces the whole file through a temp file and rename, so a crash
// mid-write leaves the previous document intact.
type FileStore struct {
	path string
}

func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Load reads the whole document. A missing file is an empty deployment,
// not an error.
func (s *FileStore) Load() (map[string]*UserRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*UserRecord{}, nil
		}
		// An I/O failure is not corruption; keep the cause distinct.
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}

	records := map[string]*UserRecord{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrCorruptStore, s.path, err)
	}

	for userID, rec := range records {
		if rec == nil {
			delete(records, userID)
			continue
		}
		if rec.UserID == "" {
			rec.UserID = userID
		}
		normalize(rec)
	}
	return records, nil
}

// normalize repairs a decoded record so the rest of the engine can assume
// non-nil slices and counters beyond every existing id.
func normalize(rec *UserRecord) {
	if rec.Notes == nil {
		rec.Notes = []Note{}
	}
	if rec.Tasks == nil {
		rec.Tasks = []Task{}
	}
	if rec.Reminders == nil {
		rec.Reminders = []Reminder{}
	}
	if rec.History == nil {
		rec.History = []ConversationTurn{}
	}
	if rec.Mood == "" {
		rec.Mood = mood.Default
	}
	for _, n := range rec.Notes {
		if n.ID >= rec.NextNoteID {
			rec.NextNoteID = n.ID + 1
		}
	}
	for _, t := range rec.Tasks {
		if t.ID >= rec.NextTaskID {
			rec.NextTaskID = t.ID + 1
		}
	}
	for _, r := range rec.Reminders {
		if r.ID >= rec.NextReminderID {
			rec.NextReminderID = r.ID + 1
		}
	}
	if rec.NextNoteID < 1 {
		rec.NextNoteID = 1
	}
	if rec.NextTaskID < 1 {
		rec.NextTaskID = 1
	}
	if rec.NextReminderID < 1 {
		rec.NextReminderID = 1
	}
}

// Save atomically replaces the document with the given record set.
func (s *FileStore) Save(records map[string]*UserRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding: %v", ErrStoreWrite, err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrStoreWrite, tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: replacing %s: %v", ErrStoreWrite, s.path, err)
	}
	return nil
}
