// Package session drives the conversation lifecycle:
// Idle -> ModeSelecting -> Chatting -> LessonEnded, with Reset back to
// Idle from any state. A Session is single-writer: one turn at a time,
// never shared across goroutines without external serialization.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"

	"github.com/rafalkola/language-ai-bot/agent"
	"github.com/rafalkola/language-ai-bot/core"
	"github.com/rafalkola/language-ai-bot/profile"
	"github.com/rafalkola/language-ai-bot/prompt"
)

// State is the session phase.
type State int

const (
	StateIdle State = iota
	StateModeSelecting
	StateChatting
	StateLessonEnded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateModeSelecting:
		return "mode-selecting"
	case StateChatting:
		return "chatting"
	case StateLessonEnded:
		return "lesson-ended"
	default:
		return "unknown"
	}
}

// Transition errors. Invalid transitions leave the session unchanged.
var (
	ErrAlreadyStarted = errors.New("session already started")
	ErrNotStarted     = errors.New("session not started")
	ErrNoMode         = errors.New("practice mode not selected")
	ErrLessonEnded    = errors.New("lesson already ended")
)

// endLessonRequest is the synthetic user turn appended when the lesson ends.
const endLessonRequest = "Please evaluate my performance in this lesson. " +
	"Give me a score out of 10 and a brief summary of what I did well and what I can improve on."

// scoreInstruction is appended to the system prompt for the evaluation turn.
const scoreInstruction = "\nNow provide a genuine assessment of the user's performance. " +
	"Give a score out of 10 and a concise summary of strengths and areas for improvement."

// Responder produces the assistant's reply for one turn.
// *agent.Agent is the production implementation.
type Responder interface {
	Respond(ctx context.Context, system string, messages []core.Message, owner string) (string, error)
}

// Deps are the collaborators a session operates on, injected at
// construction.
type Deps struct {
	Agent    Responder
	Composer *prompt.Composer
	Memories agent.MemoryRecorder
	Profiles *profile.Store
}

// Evaluation is the outcome of an ended lesson. Score is nil when the
// evaluation text carried no "N/10" match; that is a completed lesson
// without a numeric score, not an error.
type Evaluation struct {
	Score   *float64
	Summary string
}

// Session is one user's conversation lifecycle.
type Session struct {
	userID string
	deps   Deps

	state        State
	language     string
	level        core.Level
	mode         prompt.Mode
	systemPrompt string
	messages     []core.Message
	lessonScore  *float64
}

// New creates an idle session for the user.
func New(userID string, deps Deps) *Session {
	return &Session{userID: userID, deps: deps}
}

func (s *Session) UserID() string       { return s.userID }
func (s *Session) State() State         { return s.state }
func (s *Session) Language() string     { return s.language }
func (s *Session) Level() core.Level    { return s.level }
func (s *Session) Mode() prompt.Mode    { return s.mode }
func (s *Session) SystemPrompt() string { return s.systemPrompt }
func (s *Session) LessonScore() *float64 {
	return s.lessonScore
}

// Messages returns a copy of the turn history (user/assistant only; the
// system prompt is a separate field).
func (s *Session) Messages() []core.Message {
	out := make([]core.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Start begins a session with the chosen language and level.
// Valid only from Idle.
func (s *Session) Start(ctx context.Context, language string, level core.Level) (string, error) {
	if s.state != StateIdle {
		return "", ErrAlreadyStarted
	}
	if !core.ValidLanguage(language) {
		return "", fmt.Errorf("unsupported language: %q", language)
	}
	if !level.Valid() {
		return "", fmt.Errorf("unsupported level: %q", level)
	}

	s.language = language
	s.level = level
	s.systemPrompt = s.deps.Composer.SystemPrompt(ctx, "", s.userID)

	welcome := s.deps.Composer.WelcomeMessage(language)
	s.messages = []core.Message{core.AssistantMessage(welcome)}
	s.lessonScore = nil
	s.state = StateModeSelecting

	s.updateProfile(func(p *profile.Profile) {
		p.RecordSelection(language, level)
	})
	s.saveMemory(ctx, fmt.Sprintf("User started learning %s at %s level.", language, level.Label()))

	return welcome, nil
}

// SelectMode picks a practice mode. Valid only from ModeSelecting; before
// Start it fails without side effects.
func (s *Session) SelectMode(ctx context.Context, mode prompt.Mode) (string, error) {
	switch s.state {
	case StateIdle:
		return "", ErrNotStarted
	case StateChatting, StateLessonEnded:
		return "", ErrAlreadyStarted
	}

	s.mode = mode
	response := mode.SeedResponse(s.language, s.level)
	s.messages = append(s.messages,
		core.UserMessage(mode.SeedMessage()),
		core.AssistantMessage(response),
	)
	s.systemPrompt = mode.EnhancePrompt(s.language, s.level, s.systemPrompt)
	s.state = StateChatting

	s.updateProfile(func(p *profile.Profile) {
		p.RecordMode(mode)
	})

	return response, nil
}

// Chat processes one user turn. Valid only while Chatting.
//
// The system prompt is re-derived every turn with a fresh memory
// retrieval; the language/level context and mode block are re-rendered
// from session fields, so they survive the rewrite by construction.
func (s *Session) Chat(ctx context.Context, text string) (string, error) {
	if err := s.requireChatting(); err != nil {
		return "", err
	}

	base := s.deps.Composer.SystemPrompt(ctx, text, s.userID)
	system := s.mode.EnhancePrompt(s.language, s.level, base)
	history := append(s.Messages(), core.UserMessage(text))

	reply, err := s.deps.Agent.Respond(ctx, system, history, s.userID)
	if err != nil {
		// Nothing committed: a retry sees the same history it started with.
		return "", err
	}

	s.systemPrompt = system
	s.messages = append(history, core.AssistantMessage(reply))
	return reply, nil
}

// EndLesson requests an evaluation, extracts the score and records the
// lesson. Valid only while Chatting.
func (s *Session) EndLesson(ctx context.Context) (*Evaluation, error) {
	if err := s.requireChatting(); err != nil {
		return nil, err
	}

	system := s.systemPrompt + scoreInstruction
	history := append(s.Messages(), core.UserMessage(endLessonRequest))

	evaluation, err := s.deps.Agent.Respond(ctx, system, history, s.userID)
	if err != nil {
		// Nothing committed: a retry does not duplicate the evaluation
		// request or stack the score instruction.
		return nil, err
	}

	s.systemPrompt = system
	s.messages = append(history, core.AssistantMessage(evaluation))

	score := ExtractScore(evaluation)
	s.lessonScore = score
	s.state = StateLessonEnded

	s.updateProfile(func(p *profile.Profile) {
		p.RecordLesson(s.language, s.level, s.mode.String(), score, evaluation)
	})
	s.saveMemory(ctx, fmt.Sprintf("User completed a %s lesson in %s at %s level with a score of %s/10.",
		s.mode, s.language, s.level.Label(), formatScore(score)))

	return &Evaluation{Score: score, Summary: evaluation}, nil
}

// Reset returns the session to Idle from any state, clearing all session
// fields. No persistence side effects beyond what already happened.
func (s *Session) Reset() {
	s.state = StateIdle
	s.language = ""
	s.level = ""
	s.mode = prompt.ModeUnset
	s.systemPrompt = ""
	s.messages = nil
	s.lessonScore = nil
}

func (s *Session) requireChatting() error {
	switch s.state {
	case StateIdle:
		return ErrNotStarted
	case StateModeSelecting:
		return ErrNoMode
	case StateLessonEnded:
		return ErrLessonEnded
	}
	return nil
}

// updateProfile applies a mutation under read-modify-write. Profile
// persistence failures are logged and swallowed: losing a history entry
// must not break the conversation.
func (s *Session) updateProfile(mutate func(*profile.Profile)) {
	p, err := s.deps.Profiles.Load(s.userID)
	if err != nil {
		log.Printf("[SESSION] Error loading profile for user %s: %v", s.userID, err)
		return
	}
	mutate(p)
	if err := s.deps.Profiles.Save(p); err != nil {
		log.Printf("[SESSION] Error saving profile for user %s: %v", s.userID, err)
	}
}

// saveMemory persists a lifecycle memory, logging and swallowing failures.
func (s *Session) saveMemory(ctx context.Context, text string) {
	if _, err := s.deps.Memories.Save(ctx, text, s.userID); err != nil {
		log.Printf("[SESSION] Memory saving error (non-critical): %v", err)
	}
}

// scorePattern matches the first "N/10" (optionally fractional) in an
// evaluation.
var scorePattern = regexp.MustCompile(`(\d+(\.\d+)?)/10`)

// ExtractScore pulls the lesson score out of evaluation text. Returns nil
// when no "N/10" substring is present.
func ExtractScore(text string) *float64 {
	match := scorePattern.FindStringSubmatch(text)
	if match == nil {
		return nil
	}
	score, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return nil
	}
	return &score
}

func formatScore(score *float64) string {
	if score == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*score, 'f', -1, 64)
}
