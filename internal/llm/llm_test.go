package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/toolrelay/toolrelay/internal/config"
	"github.com/toolrelay/toolrelay/internal/conversation"
	"github.com/toolrelay/toolrelay/internal/llm"
	"github.com/toolrelay/toolrelay/internal/tools"
)

type captured struct {
	path  string
	auth  string
	body  map[string]interface{}
	calls int32
}

func fakeEndpoint(t *testing.T, status int, response string, c *captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&c.calls, 1)
		c.path = r.URL.Path
		c.auth = r.Header.Get("Authorization")
		if c.auth == "" {
			c.auth = r.Header.Get("X-Api-Key")
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &c.body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func sampleConversation() []conversation.Message {
	conv := conversation.Seed("be brief", []conversation.HistoryEntry{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	}, "what is 2+2?")
	conv.AppendAssistant("", []conversation.ToolInvocation{
		{ID: "call_1", Name: "calculate", Arguments: json.RawMessage(`{"expression":"2+2"}`)},
	})
	_ = conv.AppendToolResult("call_1", map[string]interface{}{"result": 4}, true)
	return conv.Messages()
}

func sampleDefinitions() []tools.Definition {
	return []tools.Definition{tools.CalculateTool().Definition()}
}

// ─── OpenAI ──────────────────────────────────────────────────────────────────

const openAIToolReply = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "choices": [{
    "index": 0,
    "finish_reason": "tool_calls",
    "message": {
      "role": "assistant",
      "content": "",
      "tool_calls": [
        {"id": "call_abc", "type": "function", "function": {"name": "get_weather", "arguments": "{\"location\":\"Paris\"}"}},
        {"type": "function", "function": {"name": "calculate", "arguments": "{\"expression\":\"1+1\"}"}}
      ]
    }
  }],
  "usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

func TestOpenAICompleteToolCalls(t *testing.T) {
	var c captured
	srv := fakeEndpoint(t, http.StatusOK, openAIToolReply, &c)
	model := llm.NewOpenAI("sk-test", srv.URL+"/v1", "gpt-4o-mini", 0.7, 1024)

	reply, err := model.Complete(context.Background(), sampleConversation(), sampleDefinitions())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if c.path != "/v1/chat/completions" {
		t.Errorf("path = %q", c.path)
	}
	if c.auth != "Bearer sk-test" {
		t.Errorf("authorization = %q", c.auth)
	}
	if c.body["model"] != "gpt-4o-mini" || c.body["tool_choice"] != "auto" {
		t.Errorf("unexpected request %v", c.body)
	}
	if c.body["max_tokens"] != 1024.0 {
		t.Errorf("max_tokens = %v", c.body["max_tokens"])
	}
	toolsSent, _ := c.body["tools"].([]interface{})
	if len(toolsSent) != 1 {
		t.Fatalf("expected 1 advertised tool, got %v", c.body["tools"])
	}
	fn := toolsSent[0].(map[string]interface{})["function"].(map[string]interface{})
	if fn["name"] != "calculate" || fn["parameters"] == nil {
		t.Errorf("unexpected function definition %v", fn)
	}

	msgs, _ := c.body["messages"].([]interface{})
	if len(msgs) != 6 {
		t.Fatalf("expected 6 messages, got %d", len(msgs))
	}
	toolMsg := msgs[5].(map[string]interface{})
	if toolMsg["role"] != "tool" || toolMsg["tool_call_id"] != "call_1" {
		t.Errorf("tool message = %v", toolMsg)
	}

	if len(reply.ToolCalls) != 2 {
		t.Fatalf("expected 2 tool calls, got %d", len(reply.ToolCalls))
	}
	if reply.ToolCalls[0].ID != "call_abc" || reply.ToolCalls[0].Name != "get_weather" {
		t.Errorf("first call = %+v", reply.ToolCalls[0])
	}
	if !strings.HasPrefix(reply.ToolCalls[1].ID, "call_") || reply.ToolCalls[1].ID == "call_" {
		t.Errorf("missing id should be generated, got %q", reply.ToolCalls[1].ID)
	}
	if string(reply.ToolCalls[1].Arguments) != `{"expression":"1+1"}` {
		t.Errorf("arguments = %s", reply.ToolCalls[1].Arguments)
	}
}

func TestOpenAICompleteWithoutTools(t *testing.T) {
	var c captured
	srv := fakeEndpoint(t, http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"Hello!"}}]}`, &c)
	model := llm.NewOpenAI("sk-test", srv.URL, "gpt-4o-mini", 0.7, 256)

	reply, err := model.Complete(context.Background(), []conversation.Message{{Role: conversation.RoleUser, Content: "hi"}}, nil)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reply.Content != "Hello!" || len(reply.ToolCalls) != 0 {
		t.Errorf("reply = %+v", reply)
	}
	if _, ok := c.body["tools"]; ok {
		t.Error("tools must not be sent when none are advertised")
	}
	if _, ok := c.body["tool_choice"]; ok {
		t.Error("tool_choice must not be sent when no tools are advertised")
	}
}

func TestOpenAIErrors(t *testing.T) {
	t.Run("upstream status", func(t *testing.T) {
		var c captured
		srv := fakeEndpoint(t, http.StatusInternalServerError, `{"error":{"message":"boom","type":"server_error"}}`, &c)
		model := llm.NewOpenAI("sk-test", srv.URL, "m", 0, 0)

		_, err := model.Complete(context.Background(), []conversation.Message{{Role: conversation.RoleUser, Content: "hi"}}, nil)
		var modelErr *llm.ModelError
		if !errors.As(err, &modelErr) {
			t.Fatalf("expected ModelError, got %v", err)
		}
		if modelErr.StatusCode != http.StatusInternalServerError {
			t.Errorf("status = %d", modelErr.StatusCode)
		}
		if n := atomic.LoadInt32(&c.calls); n != 1 {
			t.Errorf("expected exactly one request, got %d", n)
		}
	})

	t.Run("no choices", func(t *testing.T) {
		var c captured
		srv := fakeEndpoint(t, http.StatusOK, `{"choices":[]}`, &c)
		model := llm.NewOpenAI("sk-test", srv.URL, "m", 0, 0)

		_, err := model.Complete(context.Background(), []conversation.Message{{Role: conversation.RoleUser, Content: "hi"}}, nil)
		if !errors.Is(err, llm.ErrMalformedResponse) {
			t.Errorf("expected ErrMalformedResponse, got %v", err)
		}
	})
}

// ─── Anthropic ───────────────────────────────────────────────────────────────

const anthropicToolReply = `{
  "id": "msg_1",
  "type": "message",
  "role": "assistant",
  "model": "claude-sonnet-4-6",
  "content": [
    {"type": "text", "text": "Let me check."},
    {"type": "tool_use", "id": "toolu_1", "name": "get_current_time", "input": {"timezone": "UTC"}}
  ],
  "stop_reason": "tool_use",
  "stop_sequence": null,
  "usage": {"input_tokens": 12, "output_tokens": 7}
}`

func TestAnthropicComplete(t *testing.T) {
	var c captured
	srv := fakeEndpoint(t, http.StatusOK, anthropicToolReply, &c)
	model := llm.NewAnthropic("ak-test", srv.URL+"/", "claude-sonnet-4-6", 0.5, 512)

	reply, err := model.Complete(context.Background(), sampleConversation(), sampleDefinitions())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if c.path != "/v1/messages" {
		t.Errorf("path = %q", c.path)
	}

	system, _ := c.body["system"].([]interface{})
	if len(system) != 1 || system[0].(map[string]interface{})["text"] != "be brief" {
		t.Errorf("system = %v", c.body["system"])
	}

	// user, assistant, user(question), assistant(tool_use), user(tool_result)
	msgs, _ := c.body["messages"].([]interface{})
	if len(msgs) != 5 {
		t.Fatalf("expected 5 alternating messages, got %d: %v", len(msgs), msgs)
	}
	for i, m := range msgs {
		want := "user"
		if i%2 == 1 {
			want = "assistant"
		}
		if role := m.(map[string]interface{})["role"]; role != want {
			t.Errorf("message %d role = %v, want %s", i, role, want)
		}
	}
	last := msgs[4].(map[string]interface{})["content"].([]interface{})[0].(map[string]interface{})
	if last["type"] != "tool_result" || last["tool_use_id"] != "call_1" {
		t.Errorf("tool result block = %v", last)
	}

	advertised, _ := c.body["tools"].([]interface{})
	if len(advertised) != 1 {
		t.Fatalf("tools = %v", c.body["tools"])
	}
	schema := advertised[0].(map[string]interface{})["input_schema"].(map[string]interface{})
	if schema["type"] != "object" || schema["properties"] == nil {
		t.Errorf("input_schema = %v", schema)
	}

	if reply.Content != "Let me check." {
		t.Errorf("content = %q", reply.Content)
	}
	if len(reply.ToolCalls) != 1 || reply.ToolCalls[0].ID != "toolu_1" || reply.ToolCalls[0].Name != "get_current_time" {
		t.Fatalf("tool calls = %+v", reply.ToolCalls)
	}
	args, err := reply.ToolCalls[0].Args()
	if err != nil || args["timezone"] != "UTC" {
		t.Errorf("args = %v, %v", args, err)
	}
}

func TestAnthropicDropsLeadingAssistantTurns(t *testing.T) {
	var c captured
	srv := fakeEndpoint(t, http.StatusOK, anthropicToolReply, &c)
	model := llm.NewAnthropic("ak-test", srv.URL+"/", "claude-sonnet-4-6", 0.5, 512)

	messages := []conversation.Message{
		{Role: conversation.RoleSystem, Content: "be brief"},
		{Role: conversation.RoleAssistant, Content: "Welcome back!"},
		{Role: conversation.RoleAssistant, Content: "How can I help?"},
		{Role: conversation.RoleUser, Content: "hi"},
		{Role: conversation.RoleAssistant, Content: "hello"},
		{Role: conversation.RoleUser, Content: "what time is it?"},
	}
	if _, err := model.Complete(context.Background(), messages, nil); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	msgs, _ := c.body["messages"].([]interface{})
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d: %v", len(msgs), msgs)
	}
	if role := msgs[0].(map[string]interface{})["role"]; role != "user" {
		t.Errorf("first message role = %v, want user", role)
	}
	first := msgs[0].(map[string]interface{})["content"].([]interface{})[0].(map[string]interface{})
	if first["text"] != "hi" {
		t.Errorf("first message = %v", first)
	}
}

func TestAnthropicErrorIsNotRetried(t *testing.T) {
	var c captured
	srv := fakeEndpoint(t, http.StatusInternalServerError, `{"type":"error","error":{"type":"api_error","message":"boom"}}`, &c)
	model := llm.NewAnthropic("ak-test", srv.URL+"/", "claude-sonnet-4-6", 0.5, 512)

	_, err := model.Complete(context.Background(), []conversation.Message{{Role: conversation.RoleUser, Content: "hi"}}, nil)
	var modelErr *llm.ModelError
	if !errors.As(err, &modelErr) || modelErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected ModelError with status 500, got %v", err)
	}
	if n := atomic.LoadInt32(&c.calls); n != 1 {
		t.Errorf("expected exactly one request, got %d", n)
	}
}

// ─── Factory ─────────────────────────────────────────────────────────────────

func TestNew(t *testing.T) {
	cfg := &config.Config{Provider: config.ProviderOpenAI, OpenAIModel: "gpt-4o-mini"}
	if _, err := llm.New(cfg); !errors.Is(err, llm.ErrNotConfigured) {
		t.Errorf("missing key should yield ErrNotConfigured, got %v", err)
	}

	cfg.OpenAIAPIKey = "sk-test"
	m, err := llm.New(cfg)
	if err != nil || m.Name() != "openai/gpt-4o-mini" {
		t.Errorf("New = %v, %v", m, err)
	}

	cfg = &config.Config{Provider: config.ProviderAnthropic, AnthropicAPIKey: "ak", AnthropicModel: "claude-sonnet-4-6"}
	m, err = llm.New(cfg)
	if err != nil || m.Name() != "anthropic/claude-sonnet-4-6" {
		t.Errorf("New = %v, %v", m, err)
	}
}
