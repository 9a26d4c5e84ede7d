// Package tools defines the tool catalog the model can call, the executor
// that runs one call, and the builtin tool implementations.
package tools

import (
	"context"

	"github.com/invopop/jsonschema"
)

// Tool represents a callable function the LLM can invoke
type Tool struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
	Execute     func(ctx context.Context, input map[string]interface{}) (interface{}, error)
}

// Definition is the part of a Tool advertised to the model and to API clients.
type Definition struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *jsonschema.Schema `json:"parameters"`
}

func (t Tool) Definition() Definition {
	return Definition{Name: t.Name, Description: t.Description, Parameters: t.Parameters}
}

// Result is the normalised outcome of one tool call. Payload is either the
// tool's output or an ErrorPayload; both are JSON-serialisable.
type Result struct {
	OK      bool        `json:"ok"`
	Payload interface{} `json:"payload"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

func Success(payload interface{}) Result {
	return Result{OK: true, Payload: payload}
}

func Failure(message string) Result {
	return Result{OK: false, Payload: ErrorPayload{Error: message}}
}

// ErrorMessage returns the error text of a failed result.
func (r Result) ErrorMessage() string {
	if p, ok := r.Payload.(ErrorPayload); ok {
		return p.Error
	}
	return ""
}
