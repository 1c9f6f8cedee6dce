// Package config loads runtime configuration from the environment, with
// an optional .env file for local development.
package config

import (
	"errors"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the full runtime configuration.
type Config struct {
	// AnthropicAPIKey authenticates chat completions. Required.
	AnthropicAPIKey string

	// OpenAIAPIKey authenticates embedding requests. When empty the
	// deterministic local embedder is used instead; retrieval quality
	// drops but the application stays usable.
	OpenAIAPIKey string

	// ChatModel overrides the default chat model when set.
	ChatModel string

	// PostgresDSN selects the pgvector store. When empty the in-process
	// store is used.
	PostgresDSN string

	// Namespace partitions memory rows, so several deployments can share
	// one database.
	Namespace string

	// ProfileDir is where per-user profile documents live.
	ProfileDir string

	// ListenAddr is the HTTP bind address for serve mode.
	ListenAddr string

	// MemoryTopK is the number of memories retrieved per probe.
	MemoryTopK int
}

// ErrMissingAnthropicKey is returned when ANTHROPIC_API_KEY is unset; chat
// completion cannot degrade, so this is fatal.
var ErrMissingAnthropicKey = errors.New("ANTHROPIC_API_KEY is not set")

// Load reads configuration from the environment. A .env file in the
// working directory is merged in first when present; a missing file is
// not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[CONFIG] Could not load .env file: %v", err)
	}

	cfg := &Config{
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		ChatModel:       os.Getenv("CHAT_MODEL"),
		PostgresDSN:     os.Getenv("DATABASE_URL"),
		Namespace:       envOr("MEMORY_NAMESPACE", "language_tutor"),
		ProfileDir:      envOr("PROFILE_DIR", "profiles"),
		ListenAddr:      envOr("LISTEN_ADDR", ":8080"),
		MemoryTopK:      envIntOr("MEMORY_TOP_K", 10),
	}

	if cfg.AnthropicAPIKey == "" {
		return nil, ErrMissingAnthropicKey
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("[CONFIG] Invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}
