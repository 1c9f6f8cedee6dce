package config_test

import (
	"errors"
	"testing"

	"github.com/rafalkola/language-ai-bot/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("MEMORY_NAMESPACE", "")
	t.Setenv("PROFILE_DIR", "")
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("MEMORY_TOP_K", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if cfg.AnthropicAPIKey != "test-key" {
		t.Errorf("Expected api key from env, got %q", cfg.AnthropicAPIKey)
	}
	if cfg.Namespace != "language_tutor" {
		t.Errorf("Expected default namespace, got %q", cfg.Namespace)
	}
	if cfg.ProfileDir != "profiles" {
		t.Errorf("Expected default profile dir, got %q", cfg.ProfileDir)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("Expected default listen addr, got %q", cfg.ListenAddr)
	}
	if cfg.MemoryTopK != 10 {
		t.Errorf("Expected default top-k 10, got %d", cfg.MemoryTopK)
	}
}

func TestLoad_MissingAnthropicKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := config.Load()
	if !errors.Is(err, config.ErrMissingAnthropicKey) {
		t.Fatalf("Expected ErrMissingAnthropicKey, got %v", err)
	}
}

func TestLoad_InvalidTopKFallsBack(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	t.Setenv("MEMORY_TOP_K", "zero")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if cfg.MemoryTopK != 10 {
		t.Errorf("Expected fallback top-k 10, got %d", cfg.MemoryTopK)
	}
}
