package prompt

import (
	"fmt"

	"github.com/rafalkola/language-ai-bot/core"
)

// Mode is one of the three fixed practice styles. Each mode carries its own
// seed exchange and system-prompt enhancement. The zero value is ModeUnset,
// so a session that never selected a mode is distinguishable in the type.
type Mode int

const (
	ModeUnset Mode = iota
	ModeConversation
	ModeGrammar
	ModeVocabulary
)

// Modes lists all practice modes.
var Modes = []Mode{ModeConversation, ModeGrammar, ModeVocabulary}

func (m Mode) String() string {
	switch m {
	case ModeConversation:
		return "conversation"
	case ModeGrammar:
		return "grammar"
	case ModeVocabulary:
		return "vocabulary"
	default:
		return "unset"
	}
}

// ParseMode maps a mode name to its Mode.
func ParseMode(s string) (Mode, bool) {
	for _, m := range Modes {
		if m.String() == s {
			return m, true
		}
	}
	return 0, false
}

// modeProfile is the per-variant behavior bundle.
type modeProfile interface {
	seedMessage() string
	seedResponse(language string, level core.Level) string
	enhancePrompt(language string, level core.Level, base string) string
}

func (m Mode) profile() modeProfile {
	switch m {
	case ModeGrammar:
		return grammarMode{}
	case ModeVocabulary:
		return vocabularyMode{}
	default:
		return conversationMode{}
	}
}

// SeedMessage is the canned user message appended when the mode is chosen.
func (m Mode) SeedMessage() string {
	return m.profile().seedMessage()
}

// SeedResponse is the canned assistant reply to the seed message.
func (m Mode) SeedResponse(language string, level core.Level) string {
	return m.profile().seedResponse(language, level)
}

// EnhancePrompt appends the mode-specific instruction block to a base
// system prompt. Pure string concatenation, no state.
func (m Mode) EnhancePrompt(language string, level core.Level, base string) string {
	return m.profile().enhancePrompt(language, level, base)
}

// ContextLine renders the language/level sentence embedded into every
// system prompt so the teaching register survives prompt rewrites.
func ContextLine(language string, level core.Level) string {
	return fmt.Sprintf("The user is learning %s at %s level.", language, level)
}

type conversationMode struct{}

func (conversationMode) seedMessage() string {
	return "I'd like to practice conversation."
}

func (conversationMode) seedResponse(language string, level core.Level) string {
	return fmt.Sprintf("Great choice! Let's practice conversation in %s. "+
		"I'll chat with you about various topics, and help correct any mistakes along the way. "+
		"What would you like to talk about today?", language)
}

func (conversationMode) enhancePrompt(language string, level core.Level, base string) string {
	return fmt.Sprintf(`%s

%s
They have chosen CONVERSATION PRACTICE mode.
Focus on maintaining natural dialogue flow, introducing level-appropriate vocabulary, and gentle correction of errors.`,
		base, ContextLine(language, level))
}

type grammarMode struct{}

func (grammarMode) seedMessage() string {
	return "I'd like to practice grammar."
}

func (grammarMode) seedResponse(language string, level core.Level) string {
	return fmt.Sprintf("Excellent! Let's work on %s grammar exercises. "+
		"I'll provide structured practice tailored to your %s level. "+
		"Would you like to focus on a specific grammar point or shall I suggest one for you?", language, level)
}

func (grammarMode) enhancePrompt(language string, level core.Level, base string) string {
	return fmt.Sprintf(`%s

%s
They have chosen GRAMMAR EXERCISES mode.
Focus on providing structured grammar exercises, clear explanations, and corrective feedback.
Suggest grammar topics appropriate for their level, with examples and practice sentences.`,
		base, ContextLine(language, level))
}

type vocabularyMode struct{}

func (vocabularyMode) seedMessage() string {
	return "I'd like to build my vocabulary."
}

func (vocabularyMode) seedResponse(language string, level core.Level) string {
	return fmt.Sprintf("Great! Let's expand your %s vocabulary. "+
		"I'll introduce new words and phrases suitable for your %s level. "+
		"Would you like to focus on a specific topic area or shall I suggest one?", language, level)
}

func (vocabularyMode) enhancePrompt(language string, level core.Level, base string) string {
	return fmt.Sprintf(`%s

%s
They have chosen VOCABULARY BUILDING mode.
Focus on introducing new words and phrases with examples, pronunciation guidance, and usage contexts.
Provide vocabulary appropriate for their level, organized by topics, with exercises to practice.`,
		base, ContextLine(language, level))
}
