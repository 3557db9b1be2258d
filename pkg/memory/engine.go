package memory

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lunelabs/luna/pkg/logger"
	"github.com/lunelabs/luna/pkg/mood"
)

// Engine is the single entry point for everything the companion remembers
// about its users. All operations are write-through: a mutation is only
// visible after it has been persisted, and a failed persist leaves the
// in-memory state exactly as it was.
type Engine struct {
	store   *FileStore
	archive *Archive

	// records is the whole deployment document, loaded once and guarded
	// by mu for the read-modify-write cycle around every save.
	mu      sync.Mutex
	records map[string]*UserRecord
	loaded  bool

	now func() int64
	log zerolog.Logger

	excerptNotes int
	excerptTasks int
}

// Option tweaks engine construction.
type Option func(*Engine)

// WithArchive attaches a transcript archive. Archive failures are logged
// and never fail a user operation.
func WithArchive(a *Archive) Option {
	return func(e *Engine) { e.archive = a }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() int64) Option {
	return func(e *Engine) { e.now = now }
}

// WithExcerptLimits bounds how many notes and open tasks the memory
// excerpt mentions.
func WithExcerptLimits(notes, tasks int) Option {
	return func(e *Engine) {
		if notes > 0 {
			e.excerptNotes = notes
		}
		if tasks > 0 {
			e.excerptTasks = tasks
		}
	}
}

func NewEngine(store *FileStore, opts ...Option) *Engine {
	e := &Engine{
		store:        store,
		records:      make(map[string]*UserRecord),
		now:          func() int64 { return time.Now().Unix() },
		log:          logger.With("memory"),
		excerptNotes: 3,
		excerptTasks: 3,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Preload reads the deployment document right away instead of on the
// first user operation, so an unreadable store fails startup.
func (e *Engine) Preload() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ensureLoaded()
}

// ensureLoaded reads the document from disk once. Callers must hold e.mu.
func (e *Engine) ensureLoaded() error {
	if e.loaded {
		return nil
	}
	records, err := e.store.Load()
	if err != nil {
		return err
	}
	e.records = records
	e.loaded = true
	return nil
}

// load returns the record for userID, creating it lazily. Callers must
// hold e.mu.
func (e *Engine) load(userID string) (*UserRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: empty user id", ErrValidation)
	}
	if err := e.ensureLoaded(); err != nil {
		return nil, err
	}
	if rec, ok := e.records[userID]; ok {
		return rec, nil
	}
	rec := NewUserRecord(userID, e.now())
	e.records[userID] = rec
	return rec, nil
}

// mutate runs fn against a copy of the user's record and commits the copy
// only if both fn and the persist succeed.
func (e *Engine) mutate(userID string, fn func(*UserRecord) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.load(userID)
	if err != nil {
		return err
	}

	next := rec.Clone()
	if err := fn(next); err != nil {
		return err
	}
	next.UpdatedAt = e.now()

	e.records[userID] = next
	if err := e.store.Save(e.records); err != nil {
		e.records[userID] = rec
		e.log.Error().Err(err).Str("user", userID).Msg("persist failed, state unchanged")
		return err
	}
	return nil
}

// view runs fn read-only against the user's record.
func (e *Engine) view(userID string, fn func(*UserRecord)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.load(userID)
	if err != nil {
		return err
	}
	fn(rec)
	return nil
}

// --- notes ---

func (e *Engine) AddNote(userID, text string) (Note, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Note{}, fmt.Errorf("%w: note text is empty", ErrValidation)
	}

	var note Note
	err := e.mutate(userID, func(rec *UserRecord) error {
		note = Note{ID: rec.NextNoteID, Text: text, CreatedAt: e.now()}
		rec.NextNoteID++
		rec.Notes = append(rec.Notes, note)
		return nil
	})
	return note, err
}

// Notes returns the user's notes in creation order.
func (e *Engine) Notes(userID string) ([]Note, error) {
	var out []Note
	err := e.view(userID, func(rec *UserRecord) {
		out = append([]Note(nil), rec.Notes...)
	})
	return out, err
}

func (e *Engine) DeleteNote(userID string, id int) error {
	return e.mutate(userID, func(rec *UserRecord) error {
		for i, n := range rec.Notes {
			if n.ID == id {
				rec.Notes = append(rec.Notes[:i], rec.Notes[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: note %d", ErrNotFound, id)
	})
}

// --- tasks ---

func (e *Engine) AddTask(userID, text string, priority Priority) (Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Task{}, fmt.Errorf("%w: task text is empty", ErrValidation)
	}
	if priority == "" {
		priority = PriorityNormal
	}
	if !ValidPriority(priority) {
		return Task{}, fmt.Errorf("%w: priority %q", ErrValidation, priority)
	}

	var task Task
	err := e.mutate(userID, func(rec *UserRecord) error {
		task = Task{
			ID:        rec.NextTaskID,
			Text:      text,
			Priority:  priority,
			Status:    TaskOpen,
			CreatedAt: e.now(),
		}
		rec.NextTaskID++
		rec.Tasks = append(rec.Tasks, task)
		return nil
	})
	return task, err
}

// Tasks returns every task, open and done, in creation order.
func (e *Engine) Tasks(userID string) ([]Task, error) {
	var out []Task
	err := e.view(userID, func(rec *UserRecord) {
		out = append([]Task(nil), rec.Tasks...)
	})
	return out, err
}

// PendingTasks returns open tasks ordered high priority first, then by
// creation.
func (e *Engine) PendingTasks(userID string) ([]Task, error) {
	var out []Task
	err := e.view(userID, func(rec *UserRecord) {
		for _, t := range rec.Tasks {
			if t.Status == TaskOpen {
				out = append(out, t)
			}
		}
	})
	if err != nil {
		return nil, err
	}
	rank := map[Priority]int{PriorityHigh: 0, PriorityNormal: 1, PriorityLow: 2}
	sort.SliceStable(out, func(i, j int) bool {
		return rank[out[i].Priority] < rank[out[j].Priority]
	})
	return out, nil
}

// CompleteTask marks a task done. Completing a done task fails with
// ErrAlreadyCompleted and changes nothing.
func (e *Engine) CompleteTask(userID string, id int) (Task, error) {
	var task Task
	err := e.mutate(userID, func(rec *UserRecord) error {
		for i := range rec.Tasks {
			if rec.Tasks[i].ID != id {
				continue
			}
			if rec.Tasks[i].Status == TaskDone {
				return fmt.Errorf("%w: task %d", ErrAlreadyCompleted, id)
			}
			rec.Tasks[i].Status = TaskDone
			rec.Tasks[i].CompletedAt = e.now()
			task = rec.Tasks[i]
			return nil
		}
		return fmt.Errorf("%w: task %d", ErrNotFound, id)
	})
	return task, err
}

func (e *Engine) SetTaskPriority(userID string, id int, priority Priority) error {
	if !ValidPriority(priority) {
		return fmt.Errorf("%w: priority %q", ErrValidation, priority)
	}
	return e.mutate(userID, func(rec *UserRecord) error {
		for i := range rec.Tasks {
			if rec.Tasks[i].ID == id {
				rec.Tasks[i].Priority = priority
				return nil
			}
		}
		return fmt.Errorf("%w: task %d", ErrNotFound, id)
	})
}

func (e *Engine) DeleteTask(userID string, id int) error {
	return e.mutate(userID, func(rec *UserRecord) error {
		for i, t := range rec.Tasks {
			if t.ID == id {
				rec.Tasks = append(rec.Tasks[:i], rec.Tasks[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: task %d", ErrNotFound, id)
	})
}

// --- reminders ---

func (e *Engine) AddReminder(userID, text string, dueAt int64) (Reminder, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reminder{}, fmt.Errorf("%w: reminder text is empty", ErrValidation)
	}
	if dueAt <= e.now() {
		return Reminder{}, fmt.Errorf("%w: reminder time is in the past", ErrValidation)
	}

	var rem Reminder
	err := e.mutate(userID, func(rec *UserRecord) error {
		rem = Reminder{
			ID:        rec.NextReminderID,
			Text:      text,
			DueAt:     dueAt,
			CreatedAt: e.now(),
		}
		rec.NextReminderID++
		rec.Reminders = append(rec.Reminders, rem)
		return nil
	})
	return rem, err
}

func (e *Engine) Reminders(userID string) ([]Reminder, error) {
	var out []Reminder
	err := e.view(userID, func(rec *UserRecord) {
		out = append([]Reminder(nil), rec.Reminders...)
	})
	return out, err
}

// PendingReminders returns unfired reminders ordered by due time.
func (e *Engine) PendingReminders(userID string) ([]Reminder, error) {
	var out []Reminder
	err := e.view(userID, func(rec *UserRecord) {
		for _, r := range rec.Reminders {
			if !r.Fired {
				out = append(out, r)
			}
		}
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueAt < out[j].DueAt })
	return out, nil
}

// DueReminders returns reminders due at or before now and marks them
// fired, so each reminder is delivered exactly once.
func (e *Engine) DueReminders(userID string, now int64) ([]Reminder, error) {
	var due []Reminder
	err := e.mutate(userID, func(rec *UserRecord) error {
		for i := range rec.Reminders {
			if !rec.Reminders[i].Fired && rec.Reminders[i].DueAt <= now {
				rec.Reminders[i].Fired = true
				due = append(due, rec.Reminders[i])
			}
		}
		if len(due) == 0 {
			return errNoChange
		}
		return nil
	})
	if err == errNoChange {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sort.Slice(due, func(i, j int) bool { return due[i].DueAt < due[j].DueAt })
	return due, nil
}

func (e *Engine) DeleteReminder(userID string, id int) error {
	return e.mutate(userID, func(rec *UserRecord) error {
		for i, r := range rec.Reminders {
			if r.ID == id {
				rec.Reminders = append(rec.Reminders[:i], rec.Reminders[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: reminder %d", ErrNotFound, id)
	})
}

// --- profile ---

func (e *Engine) Profile(userID string) (UserProfile, error) {
	var p UserProfile
	err := e.view(userID, func(rec *UserRecord) {
		p = rec.Profile
		if rec.Profile.Preferences != nil {
			p.Preferences = make(map[string]string, len(rec.Profile.Preferences))
			for k, v := range rec.Profile.Preferences {
				p.Preferences[k] = v
			}
		}
	})
	return p, err
}

func (e *Engine) SetName(userID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name is empty", ErrValidation)
	}
	return e.mutate(userID, func(rec *UserRecord) error {
		rec.Profile.Name = name
		return nil
	})
}

func (e *Engine) SetPreference(userID, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%w: preference key is empty", ErrValidation)
	}
	return e.mutate(userID, func(rec *UserRecord) error {
		if rec.Profile.Preferences == nil {
			rec.Profile.Preferences = make(map[string]string)
		}
		rec.Profile.Preferences[key] = value
		return nil
	})
}

func (e *Engine) Stats(userID string) (Stats, error) {
	var s Stats
	err := e.view(userID, func(rec *UserRecord) {
		s.Notes = len(rec.Notes)
		for _, t := range rec.Tasks {
			if t.Status == TaskDone {
				s.TasksDone++
			} else {
				s.TasksOpen++
			}
		}
		for _, r := range rec.Reminders {
			s.RemindersSet++
			if r.Fired {
				s.RemindersFired++
			}
		}
		s.HistoryTurns = len(rec.History)
		s.Mood = rec.Mood
		s.MemberSince = rec.CreatedAt
	})
	if err != nil {
		return s, err
	}
	if e.archive != nil {
		n, err := e.archive.CountByUser(userID)
		if err != nil {
			e.log.Warn().Err(err).Str("user", userID).Msg("archive count failed")
		} else {
			s.ArchivedTurns = n
		}
	}
	return s, nil
}

// ResetUser wipes the user's collections, history, profile, and mood.
// Id counters survive so ids from before the reset are never reissued.
func (e *Engine) ResetUser(userID string) error {
	return e.mutate(userID, func(rec *UserRecord) error {
		rec.Profile = UserProfile{}
		rec.Notes = []Note{}
		rec.Tasks = []Task{}
		rec.Reminders = []Reminder{}
		rec.History = []ConversationTurn{}
		rec.Mood = mood.Default
		rec.MoodAt = 0
		return nil
	})
}

// --- conversation ---

// TurnResult is what the prompt layer needs after ingesting a user message.
type TurnResult struct {
	Mood    mood.Mood
	Tone    string
	Style   string
	Excerpt string
}

// OnUserMessage records the message in the history ring, reclassifies the
// mood against recent context, and returns the excerpt for prompt building.
func (e *Engine) OnUserMessage(userID, text string) (TurnResult, error) {
	if strings.TrimSpace(text) == "" {
		return TurnResult{}, fmt.Errorf("%w: message is empty", ErrValidation)
	}

	var res TurnResult
	err := e.mutate(userID, func(rec *UserRecord) error {
		var recent []string
		for _, turn := range rec.History {
			if turn.Role == RoleUser {
				recent = append(recent, turn.Text)
			}
		}
		rec.Mood = mood.ClassifyWithHistory(text, recent)
		rec.MoodAt = e.now()
		pushTurn(rec, ConversationTurn{Role: RoleUser, Text: text, Timestamp: e.now()})

		profile := mood.ProfileFor(rec.Mood)
		res = TurnResult{
			Mood:    rec.Mood,
			Tone:    profile.Tone,
			Style:   profile.Style,
			Excerpt: buildExcerpt(rec, e.excerptNotes, e.excerptTasks),
		}
		return nil
	})
	if err != nil {
		return TurnResult{}, err
	}

	e.archiveTurn(userID, RoleUser, text)
	return res, nil
}

// OnAssistantReply records the companion's reply in the history ring.
func (e *Engine) OnAssistantReply(userID, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: reply is empty", ErrValidation)
	}
	err := e.mutate(userID, func(rec *UserRecord) error {
		pushTurn(rec, ConversationTurn{Role: RoleAssistant, Text: text, Timestamp: e.now()})
		return nil
	})
	if err != nil {
		return err
	}
	e.archiveTurn(userID, RoleAssistant, text)
	return nil
}

// Recent returns up to n most recent turns, oldest first.
func (e *Engine) Recent(userID string, n int) ([]ConversationTurn, error) {
	var out []ConversationTurn
	err := e.view(userID, func(rec *UserRecord) {
		turns := rec.History
		if n > 0 && len(turns) > n {
			turns = turns[len(turns)-n:]
		}
		out = append([]ConversationTurn(nil), turns...)
	})
	return out, err
}

// Transcript returns up to n turns for the user, oldest first, reading
// from the durable archive when one is attached. The ring only remembers
// the last few exchanges; the archive reaches further back. Without an
// archive this is the same as Recent.
func (e *Engine) Transcript(userID string, n int) ([]ConversationTurn, error) {
	if e.archive == nil {
		return e.Recent(userID, n)
	}
	return e.archive.RecentByUser(userID, n)
}

// Mood returns the user's current mood without mutating anything.
func (e *Engine) Mood(userID string) (mood.Mood, error) {
	var m mood.Mood
	err := e.view(userID, func(rec *UserRecord) { m = rec.Mood })
	return m, err
}

func (e *Engine) archiveTurn(userID, role, text string) {
	if e.archive == nil {
		return
	}
	if err := e.archive.Append(userID, role, text, e.now()); err != nil {
		e.log.Warn().Err(err).Str("user", userID).Msg("archive append failed")
	}
}

// errNoChange short-circuits mutate when nothing was modified, skipping
// the persist.
var errNoChange = errors.New("no change")
