package memory

import (
	"github.com/lunelabs/luna/pkg/mood"
)

// Priority orders tasks. Stored as its string form.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return true
	}
	return false
}

// TaskStatus is one-way: open tasks become done, never the reverse.
type TaskStatus string

const (
	TaskOpen TaskStatus = "open"
	TaskDone TaskStatus = "done"
)

type Note struct {
	ID        int    `json:"id"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"created_at"`
}

type Task struct {
	ID          int        `json:"id"`
	Text        string     `json:"text"`
	Priority    Priority   `json:"priority"`
	Status      TaskStatus `json:"status"`
	CreatedAt   int64      `json:"created_at"`
	CompletedAt int64      `json:"completed_at,omitempty"`
}

type Reminder struct {
	ID        int    `json:"id"`
	Text      string `json:"text"`
	DueAt     int64  `json:"due_at"`
	Fired     bool   `json:"fired"`
	CreatedAt int64  `json:"created_at"`
}

// ConversationTurn is one half of an exchange, either the user's message
// or the assistant's reply.
type ConversationTurn struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp int64  `json:"ts"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// HistoryCapacity bounds the conversation ring. Older turns fall off.
const HistoryCapacity = 10

type UserProfile struct {
	Name        string            `json:"name,omitempty"`
	Preferences map[string]string `json:"preferences,omitempty"`
}

// UserRecord is the whole persistent state for one user. It is what the
// store serializes, one document per user.
type UserRecord struct {
	UserID  string      `json:"user_id"`
	Profile UserProfile `json:"profile"`

	Notes     []Note     `json:"notes"`
	Tasks     []Task     `json:"tasks"`
	Reminders []Reminder `json:"reminders"`

	History []ConversationTurn `json:"history"`
	Mood    mood.Mood          `json:"mood"`
	MoodAt  int64              `json:"mood_at,omitempty"`

	// Counters only ever grow, so ids are never reused even after deletes
	// or a reset that keeps the record on disk.
	NextNoteID     int `json:"next_note_id"`
	NextTaskID     int `json:"next_task_id"`
	NextReminderID int `json:"next_reminder_id"`

	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// NewUserRecord returns the empty state a user starts from.
func NewUserRecord(userID string, now int64) *UserRecord {
	return &UserRecord{
		UserID:         userID,
		Notes:          []Note{},
		Tasks:          []Task{},
		Reminders:      []Reminder{},
		History:        []ConversationTurn{},
		Mood:           mood.Default,
		NextNoteID:     1,
		NextTaskID:     1,
		NextReminderID: 1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Clone deep-copies the record so the engine can roll back on a failed save.
func (r *UserRecord) Clone() *UserRecord {
	c := *r
	c.Notes = append([]Note(nil), r.Notes...)
	c.Tasks = append([]Task(nil), r.Tasks...)
	c.Reminders = append([]Reminder(nil), r.Reminders...)
	c.History = append([]ConversationTurn(nil), r.History...)
	if r.Profile.Preferences != nil {
		c.Profile.Preferences = make(map[string]string, len(r.Profile.Preferences))
		for k, v := range r.Profile.Preferences {
			c.Profile.Preferences[k] = v
		}
	}
	return &c
}

// Stats summarizes a user's record for the /stats command.
type Stats struct {
	Notes          int       `json:"notes"`
	TasksOpen      int       `json:"tasks_open"`
	TasksDone      int       `json:"tasks_done"`
	RemindersSet   int       `json:"reminders_set"`
	RemindersFired int       `json:"reminders_fired"`
	HistoryTurns   int       `json:"history_turns"`
	ArchivedTurns  int       `json:"archived_turns,omitempty"`
	Mood           mood.Mood `json:"mood"`
	MemberSince    int64     `json:"member_since"`
}
