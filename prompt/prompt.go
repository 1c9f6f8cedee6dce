// Package prompt composes system prompts for the tutor: the teaching
// persona, CEFR adaptation rules, mode-specific instruction blocks, and
// the memory block retrieved for the current user.
package prompt

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/rafalkola/language-ai-bot/memory"
)

// RecentHistoryProbe is the fixed retrieval probe issued on every compose,
// alongside the live user utterance.
const RecentHistoryProbe = "recent conversation history"

// NoMemoriesMarker is spliced into the prompt when retrieval returns
// nothing for the user.
const NoMemoriesMarker = "No previous memories found."

const basePromptTemplate = `- You are a language teacher with memory that helps users practice languages.
- Use the save_memory function to save memories to the vector database about the user's:
  * Language learning preferences
  * Topics they enjoy discussing
  * Words or phrases they struggle with
  * Grammar points they need to practice
  * Their progress over time

- For different CEFR levels, adapt your teaching approach:
  * A1: Use very simple vocabulary, short sentences, and focus on basic greetings and everyday expressions
  * A2: Introduce simple everyday topics, basic grammar patterns, and common vocabulary
  * B1: Engage in conversations about familiar topics with moderate vocabulary and grammar
  * B2: Discuss a wide range of topics with more complex language structures
  * C1: Use sophisticated language, idioms, and complex grammatical structures

- Provide gentle corrections when the user makes mistakes.
- Encourage the user to practice by asking relevant questions.
- Use the target language appropriately for their level.
- Refer to previous conversations to maintain continuity in teaching.

Memories from previous conversations:
%s`

// Composer builds system prompts, pulling the memory block from the
// memory service.
type Composer struct {
	memories *memory.Service
}

// NewComposer creates a composer over the given memory service.
func NewComposer(memories *memory.Service) *Composer {
	return &Composer{memories: memories}
}

// SystemPrompt renders the base teaching prompt for owner with a merged
// memory block: one retrieval with the fixed recent-history probe, one with
// the live probe (skipped when empty). Retrieval failures are logged and
// leave the block empty; no error text enters the prompt.
func (c *Composer) SystemPrompt(ctx context.Context, probe string, owner string) string {
	recent, err := c.memories.Retrieve(ctx, RecentHistoryProbe, owner)
	if err != nil {
		log.Printf("[PROMPT] Recent-memory retrieval failed: %v", err)
	}

	var related []string
	if probe != "" {
		related, err = c.memories.Retrieve(ctx, probe, owner)
		if err != nil {
			log.Printf("[PROMPT] Probe-memory retrieval failed: %v", err)
		}
	}

	merged := dedupe(append(recent, related...))

	block := NoMemoriesMarker
	if len(merged) > 0 {
		lines := make([]string, len(merged))
		for i, m := range merged {
			lines[i] = fmt.Sprintf("- %s", m)
		}
		block = strings.Join(lines, "\n")
	}

	return fmt.Sprintf(basePromptTemplate, block)
}

// WelcomeMessage is the assistant's opening line for a new session.
func (c *Composer) WelcomeMessage(language string) string {
	return fmt.Sprintf("Hi! I'm your %s language assistant. "+
		"I'm delighted to help you learn and practice this beautiful language. "+
		"How would you like to practice today?", language)
}

// dedupe removes duplicate memories, keeping first occurrence order.
func dedupe(memories []string) []string {
	seen := make(map[string]struct{}, len(memories))
	var out []string
	for _, m := range memories {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
