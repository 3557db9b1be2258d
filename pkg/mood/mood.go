// Package mood infers the companion's emotional register from the
// user's message text. Classification is a deterministic keyword scan
// over an ordered rule table; the first rule that matches wins, and a
// message with no matches lands on calm.
package mood

import (
	"strings"
)

type Mood string

const (
	Caring     Mood = "caring"
	Playful    Mood = "playful"
	Serious    Mood = "serious"
	Supportive Mood = "supportive"
	Protective Mood = "protective"
	Calm       Mood = "calm"
	Happy      Mood = "happy"
)

// Default is the mood used before any message has been classified.
var Default = Calm

type rule struct {
	mood     Mood
	triggers []string
}

// rules are checked in order. Safety cues come first so that a message
// mixing danger words with anything else still resolves to protective,
// and distress outranks celebration or play.
var rules = []rule{
	{Protective, []string{"danger", "scared", "scary", "afraid", "fear", "unsafe", "threat", "threatened", "stalker", "following me", "help me"}},
	{Supportive, []string{"stressed", "stress", "exam", "overwhelmed", "worried", "worry", "anxious", "anxiety", "nervous", "deadline", "struggling", "struggle", "exhausted", "burnout", "pressure"}},
	{Caring, []string{"sad", "upset", "cry", "crying", "lonely", "alone", "miss you", "miss her", "miss him", "heartbroken", "hurt", "pain", "depressed", "down"}},
	{Serious, []string{"important", "serious", "problem", "issue", "decision", "urgent", "advice", "need to talk", "confess"}},
	{Happy, []string{"happy", "excited", "great news", "celebrate", "awesome", "amazing", "passed", "won", "success", "promoted", "yay"}},
	{Playful, []string{"joke", "lol", "haha", "lmao", "funny", "game", "play", "tease", "silly", "meme"}},
	{Calm, []string{"tired", "relax", "relaxing", "breathe", "chill", "peaceful", "quiet"}},
}

// profiles carry the voice each mood speaks in, consumed by prompt building.
var profiles = map[Mood]Profile{
	Caring:     {Tone: "gentle and affectionate", Style: "soft reassurance, short warm sentences"},
	Playful:    {Tone: "light and teasing", Style: "jokes back, keeps things breezy"},
	Serious:    {Tone: "focused and direct", Style: "no fluff, asks clarifying questions"},
	Supportive: {Tone: "encouraging and steady", Style: "validates first, then offers one concrete step"},
	Protective: {Tone: "firm and watchful", Style: "checks safety first, stays with the user"},
	Calm:       {Tone: "relaxed and easygoing", Style: "unhurried, conversational"},
	Happy:      {Tone: "bright and enthusiastic", Style: "celebrates with the user, upbeat"},
}

// Profile is how a mood sounds when the companion replies.
type Profile struct {
	Tone  string
	Style string
}

// Classify returns the mood for a single user message.
func Classify(text string) Mood {
	lowered := strings.ToLower(text)
	for _, r := range rules {
		for _, trigger := range r.triggers {
			if strings.Contains(lowered, trigger) {
				return r.mood
			}
		}
	}
	return Calm
}

// distressed reports whether a mood signals the user is struggling.
func distressed(m Mood) bool {
	return m == Caring || m == Supportive || m == Protective
}

// ClassifyWithHistory applies Classify to text, then escalates to
// protective when the user has shown distress repeatedly: the current
// message plus at least two of the recent user messages.
func ClassifyWithHistory(text string, recentUserMessages []string) Mood {
	current := Classify(text)
	if !distressed(current) || current == Protective {
		return current
	}

	count := 0
	for _, prev := range recentUserMessages {
		if distressed(Classify(prev)) {
			count++
		}
	}
	if count >= 2 {
		return Protective
	}
	return current
}

// ProfileFor returns the tone and style for m, falling back to calm's
// profile for unknown values.
func ProfileFor(m Mood) Profile {
	if p, ok := profiles[m]; ok {
		return p
	}
	return profiles[Calm]
}

// Valid reports whether m is one of the known moods.
func Valid(m Mood) bool {
	_, ok := profiles[m]
	return ok
}
