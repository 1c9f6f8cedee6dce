package profile_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rafalkola/language-ai-bot/core"
	"github.com/rafalkola/language-ai-bot/profile"
	"github.com/rafalkola/language-ai-bot/prompt"
)

func newStore(t *testing.T) *profile.Store {
	t.Helper()
	store, err := profile.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return store
}

func TestStore_LoadMissingCreatesDefault(t *testing.T) {
	store := newStore(t)

	p, err := store.Load("alice")
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if p.UserID != "alice" {
		t.Errorf("Expected user id alice, got %q", p.UserID)
	}
	if len(p.LanguageHistory) != 0 || len(p.LessonHistory) != 0 {
		t.Error("Expected empty histories on a fresh profile")
	}
	if p.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set")
	}
}

func TestStore_SaveAndReload(t *testing.T) {
	store := newStore(t)

	p, err := store.Load("alice")
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	p.RecordSelection("Spanish", core.LevelB1)
	p.RecordMode(prompt.ModeGrammar)
	score := 7.5
	p.RecordLesson("Spanish", core.LevelB1, "grammar", &score, "Good progress on the subjunctive.")

	if err := store.Save(p); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	loaded, err := store.Load("alice")
	if err != nil {
		t.Fatalf("Failed to reload: %v", err)
	}
	if loaded.LastSession.Language != "Spanish" {
		t.Errorf("Expected last language Spanish, got %q", loaded.LastSession.Language)
	}
	if loaded.LastSession.Level != "B1 (Intermediate)" {
		t.Errorf("Expected level label persisted, got %q", loaded.LastSession.Level)
	}
	if loaded.LastSession.Mode != "grammar" {
		t.Errorf("Expected mode grammar, got %q", loaded.LastSession.Mode)
	}
	if len(loaded.LanguageHistory) != 1 {
		t.Fatalf("Expected 1 language entry, got %d", len(loaded.LanguageHistory))
	}
	if len(loaded.LessonHistory) != 1 {
		t.Fatalf("Expected 1 lesson entry, got %d", len(loaded.LessonHistory))
	}
	lesson := loaded.LessonHistory[0]
	if lesson.Score == nil || *lesson.Score != 7.5 {
		t.Errorf("Expected score 7.5, got %v", lesson.Score)
	}
}

func TestStore_NilScorePersists(t *testing.T) {
	store := newStore(t)

	p, _ := store.Load("alice")
	p.RecordLesson("French", core.LevelA1, "conversation", nil, "No score given.")
	if err := store.Save(p); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	loaded, _ := store.Load("alice")
	if len(loaded.LessonHistory) != 1 {
		t.Fatalf("Expected 1 lesson entry, got %d", len(loaded.LessonHistory))
	}
	if loaded.LessonHistory[0].Score != nil {
		t.Errorf("Expected nil score, got %v", *loaded.LessonHistory[0].Score)
	}
}

func TestStore_CorruptFileRecovered(t *testing.T) {
	dir := t.TempDir()
	store, err := profile.NewStore(dir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "alice.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("Failed to write corrupt file: %v", err)
	}

	p, err := store.Load("alice")
	if err != nil {
		t.Fatalf("Corrupt profile should be recovered, not fail: %v", err)
	}
	if p.UserID != "alice" || len(p.LanguageHistory) != 0 {
		t.Errorf("Expected fresh default profile, got %+v", p)
	}
}

func TestStore_RejectsBadUserIDs(t *testing.T) {
	store := newStore(t)

	for _, id := range []string{"", "a/b", `a\b`, ".", ".."} {
		if _, err := store.Load(id); !errors.Is(err, profile.ErrBadUserID) {
			t.Errorf("Load(%q): expected ErrBadUserID, got %v", id, err)
		}
	}
}
