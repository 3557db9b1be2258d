package agent

import (
	"strings"
	"testing"

	"github.com/lunelabs/luna/pkg/config"
	"github.com/lunelabs/luna/pkg/memory"
	"github.com/lunelabs/luna/pkg/mood"
)

func TestBuildSystemPrompt(t *testing.T) {
	bot := config.BotConfig{Name: "Luna", Age: 21, Style: "warm and playful"}
	res := memory.TurnResult{
		Mood:    mood.Supportive,
		Tone:    "encouraging and steady",
		Style:   "validates first",
		Excerpt: "Their name is Sam.\nI remember:\n- loves rainy days",
	}

	prompt := buildSystemPrompt(bot, res)

	for _, want := range []string{"Luna", "21", "supportive", "encouraging and steady", "Sam", "rainy days"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildSystemPrompt_NoExcerpt(t *testing.T) {
	prompt := buildSystemPrompt(config.BotConfig{Name: "Luna", Age: 21}, memory.TurnResult{
		Mood: mood.Calm, Tone: "relaxed", Style: "unhurried",
	})
	if strings.Contains(prompt, "What you know about them") {
		t.Errorf("prompt should omit the memory section when empty:\n%s", prompt)
	}
}

func TestBuildMessages(t *testing.T) {
	turns := []memory.ConversationTurn{
		{Role: memory.RoleUser, Text: "hi"},
		{Role: memory.RoleAssistant, Text: "hey!"},
		{Role: memory.RoleUser, Text: "how are you"},
	}

	messages := buildMessages("system prompt", turns)

	if len(messages) != 4 {
		t.Fatalf("messages = %d, want 4", len(messages))
	}
	if messages[0].Role != "system" || messages[0].Content != "system prompt" {
		t.Errorf("messages[0] = %+v", messages[0])
	}
	if messages[3].Role != "user" || messages[3].Content != "how are you" {
		t.Errorf("messages[3] = %+v", messages[3])
	}
}
