package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/rafalkola/language-ai-bot/core"
)

// DefaultModel is the chat model used when none is configured.
const DefaultModel = "claude-sonnet-4-20250514"

// AnthropicConfig configures the Anthropic-backed completer.
type AnthropicConfig struct {
	// APIKey authenticates against the API.
	APIKey string

	// Model overrides DefaultModel.
	Model string

	// MaxTokens bounds the response size. Default: 1024.
	MaxTokens int64

	// Timeout is the hard per-call deadline. The chat completion is the
	// critical path, so a timeout surfaces as an error instead of
	// degrading silently. Default: 60 seconds.
	Timeout time.Duration
}

// AnthropicCompleter implements Completer on the Anthropic Messages API.
type AnthropicCompleter struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	timeout   time.Duration
}

// NewAnthropicCompleter creates a completer from config.
func NewAnthropicCompleter(cfg AnthropicConfig) *AnthropicCompleter {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &AnthropicCompleter{
		client:    anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     anthropic.Model(cfg.Model),
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
	}
}

// Complete issues one Messages request. System-role messages in the list
// are folded into the system text: the Messages API has no mid-conversation
// system role.
func (a *AnthropicCompleter) Complete(ctx context.Context, system string, messages []core.Message, toolDefs []core.ToolDefinition) (*Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	systemText := system
	params := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case core.RoleUser:
			params = append(params, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case core.RoleAssistant:
			params = append(params, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		case core.RoleSystem:
			systemText += "\n\n" + m.Content
		}
	}

	req := anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		Messages:  params,
		System: []anthropic.TextBlockParam{
			{Text: systemText},
		},
	}
	if len(toolDefs) > 0 {
		req.Tools = toAPITools(toolDefs)
	}

	resp, err := a.client.Messages.New(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	out := &Completion{}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			out.Content += block.Text
		case "tool_use":
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: block.Input,
			})
		}
	}
	return out, nil
}

// toAPITools converts tool definitions to API tool params.
func toAPITools(defs []core.ToolDefinition) []anthropic.ToolUnionParam {
	apiTools := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		schema := anthropic.ToolInputSchemaParam{}
		if props, ok := def.InputSchema["properties"].(map[string]interface{}); ok {
			schema.Properties = props
		}
		if required, ok := def.InputSchema["required"].([]string); ok {
			schema.ExtraFields = map[string]interface{}{"required": required}
		}

		tool := anthropic.ToolParam{
			Name:        def.ToolName,
			Description: anthropic.String(def.ToolDescription),
			InputSchema: schema,
		}
		apiTools = append(apiTools, anthropic.ToolUnionParam{OfTool: &tool})
	}
	return apiTools
}
