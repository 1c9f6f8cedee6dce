// Package profile persists per-user learning profiles as one JSON
// document per user id. Read-modify-write, last-writer-wins; the design
// assumes a single writer per user at a time.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rafalkola/language-ai-bot/core"
	"github.com/rafalkola/language-ai-bot/prompt"
)

// LanguageEntry is one append-only language_history element.
type LanguageEntry struct {
	Language  string    `json:"language"`
	Level     string    `json:"level"`
	Timestamp time.Time `json:"timestamp"`
}

// LessonEntry is one append-only lesson_history element. Score is nil when
// no numeric score could be extracted from the evaluation.
type LessonEntry struct {
	Language  string    `json:"language"`
	Level     string    `json:"level"`
	Mode      string    `json:"mode"`
	Score     *float64  `json:"score"`
	Summary   string    `json:"summary"`
	Timestamp time.Time `json:"timestamp"`
}

// LastSession holds the most recent selections, overwritten in place.
type LastSession struct {
	Language string `json:"language"`
	Level    string `json:"level"`
	Mode     string `json:"mode"`
}

// Profile is the per-user document.
type Profile struct {
	UserID          string          `json:"user_id"`
	CreatedAt       time.Time       `json:"created_at"`
	LanguageHistory []LanguageEntry `json:"language_history"`
	LastSession     LastSession     `json:"last_session"`
	LessonHistory   []LessonEntry   `json:"lesson_history"`
}

// NewProfile returns a defaulted profile for a new user id.
func NewProfile(userID string) *Profile {
	return &Profile{
		UserID:          userID,
		CreatedAt:       time.Now().UTC(),
		LanguageHistory: []LanguageEntry{},
		LessonHistory:   []LessonEntry{},
	}
}

// RecordSelection updates last_session and appends to language_history.
func (p *Profile) RecordSelection(language string, level core.Level) {
	p.LastSession.Language = language
	p.LastSession.Level = level.Label()
	p.LanguageHistory = append(p.LanguageHistory, LanguageEntry{
		Language:  language,
		Level:     level.Label(),
		Timestamp: time.Now().UTC(),
	})
}

// RecordMode updates the last-session practice mode.
func (p *Profile) RecordMode(mode prompt.Mode) {
	p.LastSession.Mode = mode.String()
}

// RecordLesson appends a completed lesson to lesson_history.
func (p *Profile) RecordLesson(language string, level core.Level, mode string, score *float64, summary string) {
	p.LessonHistory = append(p.LessonHistory, LessonEntry{
		Language:  language,
		Level:     level.Label(),
		Mode:      mode,
		Score:     score,
		Summary:   summary,
		Timestamp: time.Now().UTC(),
	})
}

// Store keeps profiles in a directory, one file per user id.
type Store struct {
	dir string
}

// NewStore creates the profile directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// ErrBadUserID rejects identifiers that cannot form a safe filename.
var ErrBadUserID = errors.New("invalid user id")

func (s *Store) path(userID string) (string, error) {
	if userID == "" || strings.ContainsAny(userID, `/\`) || userID == "." || userID == ".." {
		return "", ErrBadUserID
	}
	return filepath.Join(s.dir, userID+".json"), nil
}

// Load reads a user's profile, creating a defaulted one when the file is
// missing or corrupt. Corruption is recovered, not propagated: the old
// document is discarded and a fresh default returned.
func (s *Store) Load(userID string) (*Profile, error) {
	path, err := s.path(userID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[PROFILE] Error reading profile for user %s: %v", userID, err)
		}
		log.Printf("[PROFILE] Created new profile for user %s", userID)
		return NewProfile(userID), nil
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		log.Printf("[PROFILE] Corrupt profile for user %s, recreating: %v", userID, err)
		return NewProfile(userID), nil
	}

	log.Printf("[PROFILE] Loaded existing profile for user %s", userID)
	return &p, nil
}

// Save writes the profile document, replacing any previous version.
func (s *Store) Save(p *Profile) error {
	path, err := s.path(p.UserID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}

	log.Printf("[PROFILE] Saved profile for user %s", p.UserID)
	return nil
}
