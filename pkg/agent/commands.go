package agent

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lunelabs/luna/pkg/memory"
	"github.com/lunelabs/luna/pkg/timeparse"
)

const helpText = `Here's what I can do:
/save <fact> - remember something about you
/notes - show what I remember
/forget <id> - forget a note
/task <text> - add a task (!high or !low for priority)
/tasks - show open tasks
/complete <id> - finish a task
/remind <when> | <text> - set a reminder
/reminders - show pending reminders
/myname <name> - tell me your name
/set <key> <value> - save a preference
/settings - show your profile
/stats - your numbers
/reset - wipe everything I know about you`

// handleCommand executes a slash command against the memory engine and
// returns the reply text. The second return is false when content is not
// a command at all.
func (l *Loop) handleCommand(userID, content string) (string, bool) {
	if !strings.HasPrefix(content, "/") {
		return "", false
	}

	cmd, args, _ := strings.Cut(strings.TrimSpace(content), " ")
	cmd = strings.ToLower(cmd)
	args = strings.TrimSpace(args)

	switch cmd {
	case "/start":
		return l.cmdStart(userID), true
	case "/help":
		return helpText, true
	case "/save":
		return l.cmdSave(userID, args), true
	case "/notes", "/memory":
		return l.cmdNotes(userID), true
	case "/forget":
		return l.cmdForget(userID, args), true
	case "/task":
		return l.cmdAddTask(userID, args), true
	case "/tasks":
		return l.cmdTasks(userID), true
	case "/complete":
		return l.cmdComplete(userID, args), true
	case "/remind":
		return l.cmdRemind(userID, args), true
	case "/reminders":
		return l.cmdReminders(userID), true
	case "/myname":
		return l.cmdMyName(userID, args), true
	case "/set":
		return l.cmdSetPreference(userID, args), true
	case "/settings":
		return l.cmdSettings(userID), true
	case "/stats":
		return l.cmdStats(userID), true
	case "/reset":
		l.markResetPending(userID)
		return "This wipes your notes, tasks, reminders, and our chat history. Send /confirm_reset within a minute if you're sure.", true
	case "/confirm_reset":
		return l.cmdConfirmReset(userID), true
	default:
		return fmt.Sprintf("I don't know %s. Try /help.", cmd), true
	}
}

func (l *Loop) cmdStart(userID string) string {
	profile, err := l.engine.Profile(userID)
	if err == nil && profile.Name != "" {
		return fmt.Sprintf("Hey %s, good to see you again! 💜", profile.Name)
	}
	return fmt.Sprintf("Hi! I'm %s. Tell me your name with /myname, or just start chatting. /help shows everything I can do.", l.botName)
}

// cmdSave stores free-form text, routing task-like phrasing to the task
// list and everything else to notes.
func (l *Loop) cmdSave(userID, text string) string {
	lower := strings.ToLower(text)
	for _, cue := range []string{"task", "todo", "need to", "should"} {
		if strings.Contains(lower, cue) {
			task, err := l.engine.AddTask(userID, text, memory.PriorityNormal)
			if err != nil {
				return friendlyError(err, "Tell me what to remember, like: /save I love rainy days")
			}
			return fmt.Sprintf("Added to your tasks! (task #%d)", task.ID)
		}
	}
	note, err := l.engine.AddNote(userID, text)
	if err != nil {
		return friendlyError(err, "Tell me what to remember, like: /save I love rainy days")
	}
	return fmt.Sprintf("Got it, I'll remember that. (note #%d)", note.ID)
}

func (l *Loop) cmdNotes(userID string) string {
	notes, err := l.engine.Notes(userID)
	if err != nil {
		return friendlyError(err, "")
	}
	if len(notes) == 0 {
		return "I don't have any notes about you yet. Use /save to give me one."
	}

	var b strings.Builder
	b.WriteString("What I remember:\n")
	for _, n := range notes {
		fmt.Fprintf(&b, "#%d %s\n", n.ID, n.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (l *Loop) cmdForget(userID, args string) string {
	id, err := strconv.Atoi(args)
	if err != nil {
		return "Which note? Use the number from /notes, like: /forget 2"
	}
	if err := l.engine.DeleteNote(userID, id); err != nil {
		return friendlyError(err, "")
	}
	return fmt.Sprintf("Forgotten. Note #%d is gone.", id)
}

func (l *Loop) cmdAddTask(userID, args string) string {
	priority := memory.PriorityNormal
	switch {
	case strings.Contains(args, "!high"):
		priority = memory.PriorityHigh
		args = strings.Replace(args, "!high", "", 1)
	case strings.Contains(args, "!low"):
		priority = memory.PriorityLow
		args = strings.Replace(args, "!low", "", 1)
	}

	task, err := l.engine.AddTask(userID, args, priority)
	if err != nil {
		return friendlyError(err, "What's the task? Like: /task finish the essay !high")
	}
	return fmt.Sprintf("Added task #%d (%s priority).", task.ID, task.Priority)
}

func (l *Loop) cmdTasks(userID string) string {
	tasks, err := l.engine.PendingTasks(userID)
	if err != nil {
		return friendlyError(err, "")
	}
	if len(tasks) == 0 {
		return "No open tasks. Nice and clear! ✨"
	}

	var b strings.Builder
	b.WriteString("Your open tasks:\n")
	for _, t := range tasks {
		fmt.Fprintf(&b, "#%d [%s] %s\n", t.ID, t.Priority, t.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (l *Loop) cmdComplete(userID, args string) string {
	id, err := strconv.Atoi(args)
	if err != nil {
		return "Which task? Use the number from /tasks, like: /complete 3"
	}
	task, err := l.engine.CompleteTask(userID, id)
	if err != nil {
		return friendlyError(err, "")
	}
	return fmt.Sprintf("Done! ✅ %s", task.Text)
}

func (l *Loop) cmdRemind(userID, args string) string {
	when, text, found := strings.Cut(args, "|")
	if !found {
		return "Format: /remind <when> | <text>, like: /remind in 2 hours | drink water"
	}

	due, err := timeparse.Parse(when, time.Now())
	if err != nil {
		return fmt.Sprintf("I couldn't work out when %q is. Try \"in 30m\", \"at 17:00\", or \"2026-09-01 09:00\".", strings.TrimSpace(when))
	}

	rem, err := l.engine.AddReminder(userID, strings.TrimSpace(text), due.Unix())
	if err != nil {
		return friendlyError(err, "")
	}
	return fmt.Sprintf("Reminder #%d set for %s.", rem.ID, due.Format("Mon Jan 2 15:04"))
}

func (l *Loop) cmdReminders(userID string) string {
	rems, err := l.engine.PendingReminders(userID)
	if err != nil {
		return friendlyError(err, "")
	}
	if len(rems) == 0 {
		return "No reminders pending."
	}

	var b strings.Builder
	b.WriteString("Pending reminders:\n")
	for _, r := range rems {
		fmt.Fprintf(&b, "#%d %s (%s)\n", r.ID, r.Text, time.Unix(r.DueAt, 0).Format("Mon Jan 2 15:04"))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (l *Loop) cmdMyName(userID, name string) string {
	if err := l.engine.SetName(userID, name); err != nil {
		return friendlyError(err, "What should I call you? Like: /myname Sam")
	}
	return fmt.Sprintf("Nice to meet you, %s! 💜", strings.TrimSpace(name))
}

func (l *Loop) cmdSetPreference(userID, args string) string {
	key, value, found := strings.Cut(args, " ")
	if !found || strings.TrimSpace(value) == "" {
		return "Format: /set <key> <value>, like: /set nickname starlight"
	}
	if err := l.engine.SetPreference(userID, key, strings.TrimSpace(value)); err != nil {
		return friendlyError(err, "")
	}
	return fmt.Sprintf("Saved: %s = %s", key, strings.TrimSpace(value))
}

func (l *Loop) cmdSettings(userID string) string {
	profile, err := l.engine.Profile(userID)
	if err != nil {
		return friendlyError(err, "")
	}

	var b strings.Builder
	name := profile.Name
	if name == "" {
		name = "(not set, use /myname)"
	}
	fmt.Fprintf(&b, "Name: %s\n", name)
	if len(profile.Preferences) > 0 {
		b.WriteString("Preferences:\n")
		keys := make([]string, 0, len(profile.Preferences))
		for k := range profile.Preferences {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s = %s\n", k, profile.Preferences[k])
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (l *Loop) cmdStats(userID string) string {
	s, err := l.engine.Stats(userID)
	if err != nil {
		return friendlyError(err, "")
	}
	out := fmt.Sprintf(
		"Notes: %d\nTasks: %d open, %d done\nReminders: %d set, %d fired\nMood: %s\nMember since: %s",
		s.Notes, s.TasksOpen, s.TasksDone, s.RemindersSet, s.RemindersFired, s.Mood,
		time.Unix(s.MemberSince, 0).Format("Jan 2, 2006"),
	)
	if s.ArchivedTurns > 0 {
		out += fmt.Sprintf("\nMessages we've exchanged: %d", s.ArchivedTurns)
	}
	return out
}

func (l *Loop) cmdConfirmReset(userID string) string {
	if !l.takeResetPending(userID) {
		return "Nothing to confirm. Use /reset first."
	}
	if err := l.engine.ResetUser(userID); err != nil {
		return friendlyError(err, "")
	}
	return "All clear. We're starting fresh. 🌙"
}

// friendlyError maps engine errors to something a chat user can act on.
func friendlyError(err error, validationHint string) string {
	switch {
	case errors.Is(err, memory.ErrValidation):
		if validationHint != "" {
			return validationHint
		}
		return "That doesn't look right: " + err.Error()
	case errors.Is(err, memory.ErrNotFound):
		return "I can't find that one. Check the id?"
	case errors.Is(err, memory.ErrAlreadyCompleted):
		return "That task is already done!"
	case errors.Is(err, memory.ErrStoreWrite):
		return "I couldn't save that just now. Nothing changed, try again in a moment."
	case errors.Is(err, memory.ErrCorruptStore):
		return "Something's wrong with your saved data. I didn't touch it, but I need a human to look."
	default:
		return "Something went wrong on my end."
	}
}
