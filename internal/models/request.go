package models

import "github.com/toolrelay/toolrelay/internal/conversation"

// ChatRequest for POST /chat
type ChatRequest struct {
	Message     string                      `json:"message"`
	History     []conversation.HistoryEntry `json:"history,omitempty"`
	EnableTools *bool                       `json:"enableTools,omitempty"`
}

// ToolsEnabled reports whether tools are advertised; absent means true.
func (r *ChatRequest) ToolsEnabled() bool {
	return r.EnableTools == nil || *r.EnableTools
}
