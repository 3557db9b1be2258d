package memory

import "strings"

// buildExcerpt renders the slice of memory the model sees: the user's
// name, their most recent notes, and their open tasks. Returns "" when
// the record holds nothing worth mentioning.
func buildExcerpt(rec *UserRecord, maxNotes, maxTasks int) string {
	var b strings.Builder

	if rec.Profile.Name != "" {
		b.WriteString("Their name is ")
		b.WriteString(rec.Profile.Name)
		b.WriteString(".\n")
	}

	notes := rec.Notes
	if maxNotes > 0 && len(notes) > maxNotes {
		notes = notes[len(notes)-maxNotes:]
	}
	if len(notes) > 0 {
		b.WriteString("I remember:\n")
		for _, n := range notes {
			b.WriteString("- ")
			b.WriteString(n.Text)
			b.WriteString("\n")
		}
	}

	var open []Task
	for _, t := range rec.Tasks {
		if t.Status == TaskOpen {
			open = append(open, t)
			if maxTasks > 0 && len(open) == maxTasks {
				break
			}
		}
	}
	if len(open) > 0 {
		b.WriteString("Current tasks:\n")
		for _, t := range open {
			b.WriteString("- ")
			b.WriteString(t.Text)
			b.WriteString("\n")
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
