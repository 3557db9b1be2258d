package agent

import (
	"fmt"
	"strings"

	"github.com/lunelabs/luna/pkg/config"
	"github.com/lunelabs/luna/pkg/memory"
	"github.com/lunelabs/luna/pkg/providers"
)

// buildSystemPrompt assembles the persona, the current mood's voice, and
// the memory excerpt into the system message for one exchange.
func buildSystemPrompt(bot config.BotConfig, res memory.TurnResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s, a %d-year-old companion. You talk %s Keep replies short, like real chat messages. Never mention being an AI or a language model.\n", bot.Name, bot.Age, ensurePeriod(bot.Style))
	fmt.Fprintf(&b, "\nRight now your mood is %s. Your tone: %s. Your style: %s.\n", res.Mood, res.Tone, res.Style)

	if res.Excerpt != "" {
		b.WriteString("\nWhat you know about them:\n")
		b.WriteString(res.Excerpt)
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func ensurePeriod(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "naturally."
	}
	if !strings.HasSuffix(s, ".") {
		return s + "."
	}
	return s
}

// buildMessages maps the system prompt plus the history ring into the
// provider's message format. The ring already contains the current user
// message as its last turn.
func buildMessages(system string, turns []memory.ConversationTurn) []providers.Message {
	messages := make([]providers.Message, 0, len(turns)+1)
	messages = append(messages, providers.Message{Role: "system", Content: system})
	for _, turn := range turns {
		messages = append(messages, providers.Message{Role: turn.Role, Content: turn.Text})
	}
	return messages
}
