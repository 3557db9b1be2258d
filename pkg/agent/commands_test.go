package agent

import (
	"strings"
	"testing"
)

// TestCommands_NonCommandPassesThrough verifies plain text is not treated
// as a command
func TestCommands_NonCommandPassesThrough(t *testing.T) {
	loop, _, _ := newTestLoop(t)

	if _, handled := loop.handleCommand("u1", "just chatting"); handled {
		t.Error("plain text should not be handled as a command")
	}
}

// TestCommands_SaveAndNotes verifies the note lifecycle via commands
func TestCommands_SaveAndNotes(t *testing.T) {
	loop, _, _ := newTestLoop(t)

	reply, handled := loop.handleCommand("u1", "/save I love rainy days")
	if !handled || !strings.Contains(reply, "#1") {
		t.Fatalf("save reply = %q, handled = %v", reply, handled)
	}

	reply, _ = loop.handleCommand("u1", "/notes")
	if !strings.Contains(reply, "I love rainy days") {
		t.Errorf("notes reply = %q", reply)
	}

	reply, _ = loop.handleCommand("u1", "/forget 1")
	if !strings.Contains(reply, "#1") {
		t.Errorf("forget reply = %q", reply)
	}

	reply, _ = loop.handleCommand("u1", "/notes")
	if !strings.Contains(reply, "don't have any notes") {
		t.Errorf("empty notes reply = %q", reply)
	}
}

// TestCommands_SaveRoutesTasks verifies task-like phrasing lands on the
// task list instead of notes
func TestCommands_SaveRoutesTasks(t *testing.T) {
	loop, _, _ := newTestLoop(t)

	reply, _ := loop.handleCommand("u1", "/save I need to water the plants")
	if !strings.Contains(reply, "task #1") {
		t.Fatalf("save reply = %q, want task routing", reply)
	}

	reply, _ = loop.handleCommand("u1", "/tasks")
	if !strings.Contains(reply, "water the plants") {
		t.Errorf("tasks reply = %q", reply)
	}

	reply, _ = loop.handleCommand("u1", "/notes")
	if strings.Contains(reply, "water the plants") {
		t.Errorf("notes reply = %q, task text should not be a note", reply)
	}
}

// TestCommands_SaveEmpty verifies the validation hint is shown
func TestCommands_SaveEmpty(t *testing.T) {
	loop, _, _ := newTestLoop(t)

	reply, _ := loop.handleCommand("u1", "/save")
	if !strings.Contains(reply, "/save") {
		t.Errorf("reply = %q, want usage hint", reply)
	}
}

// TestCommands_TaskLifecycle verifies add, list, complete, double complete
func TestCommands_TaskLifecycle(t *testing.T) {
	loop, _, _ := newTestLoop(t)

	reply, _ := loop.handleCommand("u1", "/task finish the essay !high")
	if !strings.Contains(reply, "#1") || !strings.Contains(reply, "high") {
		t.Fatalf("task reply = %q", reply)
	}

	reply, _ = loop.handleCommand("u1", "/tasks")
	if !strings.Contains(reply, "finish the essay") {
		t.Errorf("tasks reply = %q", reply)
	}

	reply, _ = loop.handleCommand("u1", "/complete 1")
	if !strings.Contains(reply, "finish the essay") {
		t.Errorf("complete reply = %q", reply)
	}

	reply, _ = loop.handleCommand("u1", "/complete 1")
	if !strings.Contains(reply, "already done") {
		t.Errorf("double complete reply = %q", reply)
	}

	reply, _ = loop.handleCommand("u1", "/complete 99")
	if !strings.Contains(reply, "can't find") {
		t.Errorf("missing id reply = %q", reply)
	}
}

// TestCommands_Remind verifies reminder parsing and listing
func TestCommands_Remind(t *testing.T) {
	loop, _, _ := newTestLoop(t)

	reply, _ := loop.handleCommand("u1", "/remind in 2 hours | drink water")
	if !strings.Contains(reply, "#1") {
		t.Fatalf("remind reply = %q", reply)
	}

	reply, _ = loop.handleCommand("u1", "/reminders")
	if !strings.Contains(reply, "drink water") {
		t.Errorf("reminders reply = %q", reply)
	}

	reply, _ = loop.handleCommand("u1", "/remind whenever | something")
	if !strings.Contains(reply, "couldn't work out") {
		t.Errorf("bad time reply = %q", reply)
	}

	reply, _ = loop.handleCommand("u1", "/remind in 2 hours")
	if !strings.Contains(reply, "Format") {
		t.Errorf("missing separator reply = %q", reply)
	}
}

// TestCommands_NameAndSettings verifies profile commands
func TestCommands_NameAndSettings(t *testing.T) {
	loop, _, _ := newTestLoop(t)

	reply, _ := loop.handleCommand("u1", "/myname Sam")
	if !strings.Contains(reply, "Sam") {
		t.Errorf("myname reply = %q", reply)
	}

	loop.handleCommand("u1", "/set nickname starlight")

	reply, _ = loop.handleCommand("u1", "/settings")
	if !strings.Contains(reply, "Sam") || !strings.Contains(reply, "starlight") {
		t.Errorf("settings reply = %q", reply)
	}

	reply, _ = loop.handleCommand("u1", "/start")
	if !strings.Contains(reply, "Sam") {
		t.Errorf("start reply = %q, want greeting by name", reply)
	}
}

// TestCommands_SettingsOrdered verifies preferences list in a stable,
// alphabetical order
func TestCommands_SettingsOrdered(t *testing.T) {
	loop, _, _ := newTestLoop(t)

	loop.handleCommand("u1", "/set theme dark")
	loop.handleCommand("u1", "/set bedtime 23:00")
	loop.handleCommand("u1", "/set nickname starlight")

	reply, _ := loop.handleCommand("u1", "/settings")
	bedtime := strings.Index(reply, "bedtime")
	nickname := strings.Index(reply, "nickname")
	theme := strings.Index(reply, "theme")
	if bedtime < 0 || nickname < 0 || theme < 0 {
		t.Fatalf("settings reply = %q, missing preferences", reply)
	}
	if !(bedtime < nickname && nickname < theme) {
		t.Errorf("settings reply = %q, want keys in alphabetical order", reply)
	}
}

// TestCommands_Stats verifies the stats rollup renders
func TestCommands_Stats(t *testing.T) {
	loop, _, _ := newTestLoop(t)

	loop.handleCommand("u1", "/save a fact")
	loop.handleCommand("u1", "/task a chore")

	reply, _ := loop.handleCommand("u1", "/stats")
	if !strings.Contains(reply, "Notes: 1") || !strings.Contains(reply, "1 open") {
		t.Errorf("stats reply = %q", reply)
	}
}

// TestCommands_ResetRequiresConfirmation verifies the two-step reset
func TestCommands_ResetRequiresConfirmation(t *testing.T) {
	loop, _, engine := newTestLoop(t)

	loop.handleCommand("u1", "/save a fact")

	// Confirm without asking first.
	reply, _ := loop.handleCommand("u1", "/confirm_reset")
	if !strings.Contains(reply, "/reset first") {
		t.Errorf("unsolicited confirm reply = %q", reply)
	}

	loop.handleCommand("u1", "/reset")
	notes, _ := engine.Notes("u1")
	if len(notes) != 1 {
		t.Fatal("reset should not wipe before confirmation")
	}

	reply, _ = loop.handleCommand("u1", "/confirm_reset")
	if !strings.Contains(reply, "fresh") {
		t.Errorf("confirm reply = %q", reply)
	}
	notes, _ = engine.Notes("u1")
	if len(notes) != 0 {
		t.Error("notes survived a confirmed reset")
	}

	// The confirmation is consumed.
	reply, _ = loop.handleCommand("u1", "/confirm_reset")
	if !strings.Contains(reply, "/reset first") {
		t.Errorf("second confirm reply = %q", reply)
	}
}

// TestCommands_Unknown verifies unknown commands point at /help
func TestCommands_Unknown(t *testing.T) {
	loop, _, _ := newTestLoop(t)

	reply, handled := loop.handleCommand("u1", "/dance")
	if !handled || !strings.Contains(reply, "/help") {
		t.Errorf("reply = %q, handled = %v", reply, handled)
	}
}

// TestCommands_Help lists every command
func TestCommands_Help(t *testing.T) {
	loop, _, _ := newTestLoop(t)

	reply, _ := loop.handleCommand("u1", "/help")
	for _, cmd := range []string{"/save", "/notes", "/task", "/complete", "/remind", "/myname", "/stats", "/reset"} {
		if !strings.Contains(reply, cmd) {
			t.Errorf("help missing %s", cmd)
		}
	}
}
