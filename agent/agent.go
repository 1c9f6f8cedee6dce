// Package agent runs one conversation turn against the chat model:
// best-effort memory capture, a completion with the save_memory tool
// declared, tool execution, and a corrective follow-up completion when a
// tool was invoked.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/rafalkola/language-ai-bot/core"
	"github.com/rafalkola/language-ai-bot/tools"
)

// Completion is the model's reply to one request.
type Completion struct {
	// Content is the text body; may be empty when the turn is consumed
	// by tool calls.
	Content string

	// ToolCalls are the tool invocations the model requested.
	ToolCalls []ToolCall
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// Completer is the chat-completion capability: given a system prompt, a
// message list and optional tool declarations, return one completion.
// System-role entries inside messages are folded into the system prompt by
// implementations that have no mid-conversation system role.
type Completer interface {
	Complete(ctx context.Context, system string, messages []core.Message, toolDefs []core.ToolDefinition) (*Completion, error)
}

// MemoryRecorder is the slice of the memory service the agent needs.
type MemoryRecorder interface {
	Save(ctx context.Context, text string, owner string) (string, error)
}

// continueNote steers the follow-up completion after a tool call back to a
// user-presentable reply.
const continueNote = "The memory has been saved successfully. " +
	"Please continue the conversation normally without mentioning the memory saving."

// autoSaveMinWords is the word count above which a user message is captured
// automatically.
const autoSaveMinWords = 3

// assistantCaptureMinChars is the reply length above which the assistant's
// response is captured.
const assistantCaptureMinChars = 20

// assistantCaptureMaxChars truncates captured assistant replies.
const assistantCaptureMaxChars = 200

// Agent orchestrates one turn of the tutoring conversation.
type Agent struct {
	completer Completer
	memories  MemoryRecorder
}

// New creates an agent over the given completer and memory recorder.
func New(completer Completer, memories MemoryRecorder) *Agent {
	return &Agent{completer: completer, memories: memories}
}

// Respond produces the assistant's reply to the conversation so far.
//
// Memory capture is a side channel: every Save failure here is logged and
// swallowed, because memory must never abort a conversation turn. Only a
// completion failure is returned to the caller.
func (a *Agent) Respond(ctx context.Context, system string, messages []core.Message, owner string) (string, error) {
	// Capture substantial user messages before the model sees them.
	if last := core.LastUserMessage(messages); len(strings.Fields(last)) > autoSaveMinWords {
		a.record(ctx, fmt.Sprintf("User said: %s", last), owner)
	}

	completion, err := a.completer.Complete(ctx, system, messages, []core.ToolDefinition{tools.SaveMemoryTool()})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(completion.Content) > assistantCaptureMinChars {
		a.record(ctx, fmt.Sprintf("Assistant responded: %s...", truncate(completion.Content, assistantCaptureMaxChars)), owner)
	}

	saved := 0
	for _, call := range completion.ToolCalls {
		if call.Name != tools.SaveMemoryToolName {
			log.Printf("[AGENT] Ignoring unknown tool call: %s", call.Name)
			continue
		}
		var input tools.SaveMemoryInput
		if err := json.Unmarshal(call.Arguments, &input); err != nil {
			log.Printf("[AGENT] Invalid save_memory arguments: %v", err)
			continue
		}
		a.record(ctx, input.Memory, owner)
		saved++
	}

	// A tool-call turn carries no user-facing content; one corrective
	// follow-up recovers a normal reply without leaking tool mechanics.
	if saved > 0 {
		followUp := append(append([]core.Message{}, messages...), core.SystemMessage(continueNote))
		second, err := a.completer.Complete(ctx, system, followUp, nil)
		if err != nil {
			return "", fmt.Errorf("follow-up completion: %w", err)
		}
		return second.Content, nil
	}

	return completion.Content, nil
}

// record persists a memory, logging and swallowing failures.
func (a *Agent) record(ctx context.Context, text string, owner string) {
	if _, err := a.memories.Save(ctx, text, owner); err != nil {
		log.Printf("[AGENT] Memory saving error (non-critical): %v", err)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
