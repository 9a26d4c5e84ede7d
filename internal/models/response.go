package models

import "github.com/toolrelay/toolrelay/internal/tools"

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// IndexResponse is returned by GET /
type IndexResponse struct {
	Message string   `json:"message"`
	Routes  []string `json:"routes"`
}

// ChatResponse is returned by POST /chat
type ChatResponse struct {
	Reply     string `json:"reply"`
	ToolsUsed bool   `json:"toolsUsed"`
	Timestamp string `json:"timestamp"`
}

// ToolsResponse is returned by GET /tools
type ToolsResponse struct {
	Tools []tools.Definition `json:"tools"`
	Total int                `json:"total"`
}
