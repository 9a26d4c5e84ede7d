package security

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ChatEvent is one audited /chat request. Only hashes of the message and
// API key are recorded.
type ChatEvent struct {
	Timestamp   time.Time `json:"timestamp" bigquery:"timestamp"`
	RequestID   string    `json:"request_id" bigquery:"request_id"`
	MessageHash string    `json:"message_hash" bigquery:"message_hash"`
	APIKeyHash  string    `json:"api_key_hash" bigquery:"api_key_hash"`
	Model       string    `json:"model" bigquery:"model"`
	Rounds      int       `json:"rounds" bigquery:"rounds"`
	ToolCalls   []string  `json:"tool_calls" bigquery:"tool_calls"`
	Flags       []string  `json:"flags" bigquery:"flags"`
	Success     bool      `json:"success" bigquery:"success"`
	Error       string    `json:"error" bigquery:"error"`
	DurationMs  int64     `json:"duration_ms" bigquery:"duration_ms"`
}

// AuditSink receives audit events for export.
type AuditSink interface {
	Export(ctx context.Context, ev ChatEvent) error
}

// AuditLogger logs security-relevant events with hashed identifiers
type AuditLogger struct {
	enabled bool
	sink    AuditSink
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAuditLogger(enabled bool) *AuditLogger {
	return &AuditLogger{enabled: enabled, timeout: 10 * time.Second}
}

// WithSink exports every event to sink in the background.
func (a *AuditLogger) WithSink(sink AuditSink) *AuditLogger {
	a.sink = sink
	return a
}

// LogChat records a chat request event
func (a *AuditLogger) LogChat(
	requestID, message, apiKey, model string,
	rounds int,
	toolCalls, flags []string,
	success bool,
	errMsg string,
	duration time.Duration,
) {
	if !a.enabled {
		return
	}
	ev := ChatEvent{
		Timestamp:   time.Now().UTC(),
		RequestID:   requestID,
		MessageHash: hashStr(message)[:16],
		APIKeyHash:  hashStr(apiKey)[:16],
		Model:       model,
		Rounds:      rounds,
		ToolCalls:   toolCalls,
		Flags:       flags,
		Success:     success,
		Error:       errMsg,
		DurationMs:  duration.Milliseconds(),
	}

	evt := log.Info().
		Str("event", "chat_audit").
		Str("request_id", ev.RequestID).
		Str("message_hash", ev.MessageHash).
		Str("api_key_hash", ev.APIKeyHash).
		Str("model", ev.Model).
		Int("rounds", ev.Rounds).
		Strs("tool_calls", ev.ToolCalls).
		Bool("success", ev.Success).
		Int64("duration_ms", ev.DurationMs)
	if len(flags) > 0 {
		evt = evt.Strs("flags", flags)
	}
	if errMsg != "" {
		evt = evt.Str("error", errMsg)
	}
	evt.Msg("audit")

	if a.sink == nil {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := a.sink.Export(ctx, ev); err != nil {
			log.Warn().Err(err).Str("request_id", ev.RequestID).Msg("audit export failed")
		}
	}()
}

// Close waits for in-flight exports.
func (a *AuditLogger) Close() {
	a.wg.Wait()
}

func hashStr(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h)
}
