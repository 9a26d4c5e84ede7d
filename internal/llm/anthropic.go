package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog/log"

	"github.com/toolrelay/toolrelay/internal/conversation"
	"github.com/toolrelay/toolrelay/internal/tools"
)

// Anthropic wraps the Messages API (or a compatible provider such as Z.ai).
type Anthropic struct {
	client      *anthropic.Client
	model       string
	temperature float64
	maxTokens   int
}

// NewAnthropic creates an adapter with SDK retries disabled.
func NewAnthropic(apiKey, baseURL, model string, temperature float64, maxTokens int) *Anthropic {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Anthropic{
		client:      anthropic.NewClient(opts...),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

func (a *Anthropic) Name() string {
	return "anthropic/" + a.model
}

func (a *Anthropic) Complete(ctx context.Context, messages []conversation.Message, defs []tools.Definition) (*Reply, error) {
	system, msgs := toAnthropicMessages(messages)

	params := anthropic.MessageNewParams{
		Model:       anthropic.F(anthropic.Model(a.model)),
		MaxTokens:   anthropic.F(int64(a.maxTokens)),
		Messages:    anthropic.F(msgs),
		Temperature: anthropic.F(a.temperature),
	}
	if system != "" {
		params.System = anthropic.F([]anthropic.TextBlockParam{
			anthropic.NewTextBlock(system),
		})
	}
	if len(defs) > 0 {
		toolParams := make([]anthropic.ToolUnionUnionParam, len(defs))
		for i, d := range defs {
			toolParams[i] = anthropic.ToolParam{
				Name:        anthropic.String(d.Name),
				Description: anthropic.String(d.Description),
				InputSchema: anthropic.F[interface{}](inputSchema(d)),
			}
		}
		params.Tools = anthropic.F(toolParams)
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, anthropicError(err)
	}
	if len(resp.Content) == 0 {
		return nil, ErrMalformedResponse
	}

	reply := &Reply{}
	for _, block := range resp.Content {
		switch b := block.AsUnion().(type) {
		case anthropic.TextBlock:
			reply.Content += b.Text
		case anthropic.ToolUseBlock:
			reply.ToolCalls = append(reply.ToolCalls, conversation.ToolInvocation{
				ID:        callID(b.ID),
				Name:      b.Name,
				Arguments: append(json.RawMessage(nil), b.Input...),
			})
		}
	}

	log.Debug().
		Str("model", a.model).
		Str("stop_reason", string(resp.StopReason)).
		Int("tool_calls", len(reply.ToolCalls)).
		Msg("anthropic completion")
	return reply, nil
}

// toAnthropicMessages lifts system messages into the system prompt, turns
// tool messages into tool_result blocks and merges consecutive messages of
// the same role, since the API requires user and assistant turns to alternate.
func toAnthropicMessages(messages []conversation.Message) (string, []anthropic.MessageParam) {
	var system []string
	var out []anthropic.MessageParam
	var blocks []anthropic.ContentBlockParamUnion
	var current anthropic.MessageParamRole

	flush := func() {
		if len(blocks) == 0 {
			return
		}
		if current == anthropic.MessageParamRoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		} else {
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
		blocks = nil
	}
	// The Messages API requires the first turn to come from the user, so
	// assistant turns before it are dropped.
	seenUser := false
	push := func(role anthropic.MessageParamRole, b ...anthropic.ContentBlockParamUnion) {
		if role == anthropic.MessageParamRoleAssistant && !seenUser {
			return
		}
		seenUser = true
		if role != current {
			flush()
			current = role
		}
		blocks = append(blocks, b...)
	}

	for _, m := range messages {
		switch m.Role {
		case conversation.RoleSystem:
			if m.Content != "" {
				system = append(system, m.Content)
			}
		case conversation.RoleUser:
			if m.Content != "" {
				push(anthropic.MessageParamRoleUser, anthropic.NewTextBlock(m.Content))
			}
		case conversation.RoleAssistant:
			if m.Content != "" {
				push(anthropic.MessageParamRoleAssistant, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				push(anthropic.MessageParamRoleAssistant, anthropic.NewToolUseBlockParam(tc.ID, tc.Name, toolInput(tc.Arguments)))
			}
		case conversation.RoleTool:
			push(anthropic.MessageParamRoleUser, anthropic.NewToolResultBlock(m.ToolCallID, m.Content, m.ToolFailed))
		}
	}
	flush()
	return strings.Join(system, "\n\n"), out
}

// toolInput echoes the model's arguments back, substituting an empty object
// when they were not valid JSON.
func toolInput(raw json.RawMessage) interface{} {
	if len(raw) == 0 || !json.Valid(raw) {
		return map[string]interface{}{}
	}
	return raw
}

// inputSchema keeps the object keywords the Messages API accepts.
func inputSchema(d tools.Definition) map[string]interface{} {
	schema := map[string]interface{}{"type": "object"}
	if d.Parameters == nil {
		schema["properties"] = map[string]interface{}{}
		return schema
	}
	b, err := json.Marshal(d.Parameters)
	if err != nil {
		log.Warn().Err(err).Str("tool", d.Name).Msg("failed to encode tool schema")
		return schema
	}
	var full map[string]interface{}
	if err := json.Unmarshal(b, &full); err != nil {
		return schema
	}
	schema["properties"] = full["properties"]
	if schema["properties"] == nil {
		schema["properties"] = map[string]interface{}{}
	}
	if required, ok := full["required"]; ok {
		schema["required"] = required
	}
	return schema
}

func anthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &ModelError{Provider: "anthropic", StatusCode: apiErr.StatusCode, Err: err}
	}
	return &ModelError{Provider: "anthropic", Err: err}
}
