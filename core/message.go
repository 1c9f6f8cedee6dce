package core

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single role-tagged conversation entry.
// The session's system prompt lives in its own field, not in the
// message list, so Messages hold user/assistant turns only (plus the
// transient system note the agent injects before a follow-up call).
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserMessage builds a user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant-role message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// SystemMessage builds a system-role message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// LastUserMessage returns the content of the most recent user message,
// or "" when the history contains none.
func LastUserMessage(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

// ToolDefinition describes a tool exposed to the chat model.
type ToolDefinition struct {
	// ToolName is the function name the model invokes.
	ToolName string

	// ToolDescription tells the model when to use the tool.
	ToolDescription string

	// InputSchema is a JSON Schema object describing the arguments.
	InputSchema map[string]interface{}
}
