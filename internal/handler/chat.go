package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/toolrelay/toolrelay/internal/agent"
	"github.com/toolrelay/toolrelay/internal/conversation"
	"github.com/toolrelay/toolrelay/internal/llm"
	"github.com/toolrelay/toolrelay/internal/middleware"
	"github.com/toolrelay/toolrelay/internal/models"
	"github.com/toolrelay/toolrelay/internal/security"
)

const maxBodyBytes = 1 << 20

// Runner executes one orchestration. *agent.Orchestrator implements it.
type Runner interface {
	Run(ctx context.Context, history []conversation.HistoryEntry, message string, enableTools bool) (*agent.Outcome, error)
}

// ChatHandler handles POST /chat
type ChatHandler struct {
	runner       Runner
	modelName    string
	screener     *security.Screener
	audit        *security.AuditLogger
	apiKeyHeader string
}

// NewChatHandler creates the handler. A nil runner means no model is
// configured and every request is answered with 503.
func NewChatHandler(runner Runner, modelName string, screener *security.Screener, audit *security.AuditLogger, apiKeyHeader string) *ChatHandler {
	return &ChatHandler{
		runner:       runner,
		modelName:    modelName,
		screener:     screener,
		audit:        audit,
		apiKeyHeader: apiKeyHeader,
	}
}

// Chat handles POST /chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := middleware.GetRequestID(r.Context())

	var req models.ChatRequest
	// An empty body is a request without a message.
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		models.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		models.WriteError(w, http.StatusBadRequest, "Message is required")
		return
	}
	if h.screener != nil {
		if err := h.screener.CheckLength(req.Message); err != nil {
			models.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if h.runner == nil {
		models.WriteError(w, http.StatusServiceUnavailable, "Language model is not configured")
		return
	}

	var flags []string
	if h.screener != nil {
		flags = h.screener.Flags(req.Message)
	}

	outcome, err := h.runner.Run(r.Context(), req.History, req.Message, req.ToolsEnabled())
	if outcome == nil {
		outcome = &agent.Outcome{}
	}

	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	if h.audit != nil {
		apiKey := middleware.APIKey(r, h.apiKeyHeader)
		h.audit.LogChat(requestID, req.Message, apiKey, h.modelName, outcome.Rounds, outcome.ToolCalls, flags, err == nil, errMsg, time.Since(start))
	}

	if err != nil {
		log.Error().
			Err(err).
			Str("request_id", requestID).
			Int("rounds", outcome.Rounds).
			Msg("chat request failed")
		models.WriteError(w, http.StatusInternalServerError, publicError(err))
		return
	}

	models.WriteJSON(w, http.StatusOK, models.ChatResponse{
		Reply:     outcome.FinalText,
		ToolsUsed: outcome.ToolsUsed,
		Timestamp: models.Timestamp(time.Now()),
	})
}

// publicError maps loop failures to client-facing messages.
func publicError(err error) string {
	var modelErr *llm.ModelError
	switch {
	case errors.Is(err, agent.ErrMaxIterations):
		return agent.ErrMaxIterations.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "Language model request timed out"
	case errors.Is(err, llm.ErrMalformedResponse):
		return "Language model returned a malformed response"
	case errors.As(err, &modelErr):
		return "Language model request failed"
	}
	return "Failed to process chat message"
}
