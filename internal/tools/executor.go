package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Executor runs single tool calls and converts every outcome into a Result.
type Executor struct {
	registry *Registry
	timeout  time.Duration
}

// NewExecutor creates an executor. A zero timeout disables the per-call limit.
func NewExecutor(registry *Registry, timeout time.Duration) *Executor {
	return &Executor{registry: registry, timeout: timeout}
}

func (e *Executor) Registry() *Registry {
	return e.registry
}

// Execute never returns an error: unknown tools, invalid arguments, tool
// errors, timeouts and panics all become a failed Result.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]interface{}) Result {
	start := time.Now()

	tool, ok := e.registry.Resolve(name)
	if !ok {
		log.Warn().Str("tool", name).Msg("model requested unknown tool")
		return Failure("Unknown tool: " + name)
	}

	if args == nil {
		args = map[string]interface{}{}
	}
	if err := ValidateArgs(args, tool.Parameters); err != nil {
		log.Warn().Err(err).Str("tool", name).Msg("tool arguments rejected")
		return Failure(fmt.Sprintf("Invalid arguments for %s: %v", name, err))
	}

	callCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	type outcome struct {
		payload interface{}
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Str("tool", name).Msg("tool panicked")
				done <- outcome{err: fmt.Errorf("%s failed unexpectedly", name)}
			}
		}()
		payload, err := tool.Execute(callCtx, args)
		done <- outcome{payload: payload, err: err}
	}()

	var res Result
	select {
	case out := <-done:
		switch {
		case out.err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && e.timeout > 0:
			res = Failure(fmt.Sprintf("%s timed out after %s", name, e.timeout))
		case out.err != nil:
			res = Failure(out.err.Error())
		default:
			res = Success(out.payload)
		}
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && e.timeout > 0 && ctx.Err() == nil {
			res = Failure(fmt.Sprintf("%s timed out after %s", name, e.timeout))
		} else {
			res = Failure(fmt.Sprintf("%s cancelled: %v", name, callCtx.Err()))
		}
	}

	evt := log.Debug()
	if !res.OK {
		evt = log.Warn().Str("error", res.ErrorMessage())
	}
	evt.Str("tool", name).
		Bool("ok", res.OK).
		Dur("duration", time.Since(start)).
		Msg("tool executed")
	return res
}
