package tools

import (
	"github.com/rafalkola/language-ai-bot/core"
)

// SaveMemoryToolName is the function name the model invokes to persist a
// memory mid-conversation.
const SaveMemoryToolName = "save_memory"

// SaveMemoryTool returns the definition for the single tool the tutor
// exposes: save_memory(memory).
func SaveMemoryTool() core.ToolDefinition {
	return core.ToolDefinition{
		ToolName: SaveMemoryToolName,
		ToolDescription: "Save a memory about the user to the vector database. " +
			"Use it for learning preferences, topics they enjoy, words or grammar " +
			"they struggle with, and their progress over time.",
		InputSchema: ObjectSchema(map[string]interface{}{
			"memory": StringProperty("The memory text to save"),
		}, "memory"),
	}
}

// SaveMemoryInput is the argument payload of a save_memory tool call.
type SaveMemoryInput struct {
	Memory string `json:"memory"`
}
