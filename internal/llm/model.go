// Package llm adapts third-party chat-completion APIs to the conversation
// model used by the orchestration loop. Each Complete call issues exactly one
// outbound request; retries are disabled in every adapter.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/toolrelay/toolrelay/internal/config"
	"github.com/toolrelay/toolrelay/internal/conversation"
	"github.com/toolrelay/toolrelay/internal/tools"
)

var (
	// ErrMalformedResponse means the provider answered without any choice or content block.
	ErrMalformedResponse = errors.New("model returned no choices")
	// ErrNotConfigured means no API key is set for the selected provider.
	ErrNotConfigured = errors.New("language model is not configured")
)

// Reply is one model turn: text, tool calls, or both.
type Reply struct {
	Content   string
	ToolCalls []conversation.ToolInvocation
}

// Model is a chat-completion backend.
type Model interface {
	Complete(ctx context.Context, messages []conversation.Message, defs []tools.Definition) (*Reply, error)
	Name() string
}

// ModelError is a transport failure or non-success status from the provider.
type ModelError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ModelError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s request failed with status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// New builds the adapter selected by cfg.Provider.
func New(cfg *config.Config) (Model, error) {
	if cfg.ModelAPIKey() == "" {
		return nil, ErrNotConfigured
	}
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ModelName(), cfg.Temperature, cfg.MaxTokens), nil
	case config.ProviderAnthropic:
		return NewAnthropic(cfg.AnthropicAPIKey, cfg.AnthropicBaseURL, cfg.ModelName(), cfg.Temperature, cfg.MaxTokens), nil
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
}

// callID returns id, or a generated one when the provider omitted it.
func callID(id string) string {
	if id != "" {
		return id
	}
	return "call_" + uuid.NewString()
}
