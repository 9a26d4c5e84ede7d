// Package agent runs the bounded tool-calling loop between the language
// model and the tool executor.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/toolrelay/toolrelay/internal/conversation"
	"github.com/toolrelay/toolrelay/internal/llm"
	"github.com/toolrelay/toolrelay/internal/tools"
)

// MaxRounds is the maximum number of model calls per request.
const MaxRounds = 5

var ErrMaxIterations = errors.New("maximum tool call iterations reached")

// Outcome is the result of one orchestration.
type Outcome struct {
	FinalText string
	ToolsUsed bool
	Rounds    int
	ToolCalls []string
}

type Options struct {
	SystemPrompt string
	ModelTimeout time.Duration
	Parallel     bool
}

// Orchestrator is safe for concurrent use; all per-request state lives in
// the Conversation created by Run.
type Orchestrator struct {
	model    llm.Model
	executor *tools.Executor
	opts     Options
}

func New(model llm.Model, executor *tools.Executor, opts Options) *Orchestrator {
	return &Orchestrator{model: model, executor: executor, opts: opts}
}

// Run answers message given prior history. Model failures and exhaustion are
// returned as errors; tool failures are fed back to the model.
func (o *Orchestrator) Run(ctx context.Context, history []conversation.HistoryEntry, message string, enableTools bool) (*Outcome, error) {
	conv := conversation.Seed(o.opts.SystemPrompt, history, message)

	var defs []tools.Definition
	if enableTools {
		defs = o.executor.Registry().Definitions()
	}

	out := &Outcome{}
	for round := 1; round <= MaxRounds; round++ {
		if pending := conv.Unanswered(); len(pending) > 0 {
			return out, fmt.Errorf("tool calls %v have no result before round %d", pending, round)
		}

		reply, err := o.complete(ctx, conv.Messages(), defs)
		out.Rounds = round
		if err != nil {
			return out, fmt.Errorf("model call failed in round %d: %w", round, err)
		}

		log.Debug().
			Int("round", round).
			Int("messages", conv.Len()).
			Int("tool_calls", len(reply.ToolCalls)).
			Int("content_len", len(reply.Content)).
			Msg("model round")

		if !enableTools || len(reply.ToolCalls) == 0 {
			out.FinalText = reply.Content
			out.ToolsUsed = round > 1
			return out, nil
		}

		conv.AppendAssistant(reply.Content, reply.ToolCalls)
		results := o.executeRound(ctx, reply.ToolCalls)
		for i, call := range reply.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, call.Name)
			if err := conv.AppendToolResult(call.ID, results[i].Payload, results[i].OK); err != nil {
				// Payloads that cannot be encoded are reported to the model as failures.
				fallback := tools.Failure(fmt.Sprintf("%s returned an unencodable result", call.Name))
				if err := conv.AppendToolResult(call.ID, fallback.Payload, false); err != nil {
					return out, err
				}
			}
		}
	}

	log.Warn().Int("rounds", MaxRounds).Strs("tools", out.ToolCalls).Msg("tool loop exhausted")
	return out, ErrMaxIterations
}

func (o *Orchestrator) complete(ctx context.Context, messages []conversation.Message, defs []tools.Definition) (*llm.Reply, error) {
	if o.opts.ModelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.ModelTimeout)
		defer cancel()
	}
	return o.model.Complete(ctx, messages, defs)
}

// executeRound runs the calls of one round; results are index-aligned with calls.
func (o *Orchestrator) executeRound(ctx context.Context, calls []conversation.ToolInvocation) []tools.Result {
	results := make([]tools.Result, len(calls))
	if !o.opts.Parallel || len(calls) == 1 {
		for i, call := range calls {
			results[i] = o.executeOne(ctx, call)
		}
		return results
	}

	var g errgroup.Group
	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			results[i] = o.executeOne(ctx, call)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (o *Orchestrator) executeOne(ctx context.Context, call conversation.ToolInvocation) tools.Result {
	args, err := call.Args()
	if err != nil {
		log.Warn().Err(err).Str("tool", call.Name).Str("tool_call_id", call.ID).Msg("failed to parse tool input")
		return tools.Failure(fmt.Sprintf("Invalid arguments for %s: %v", call.Name, err))
	}
	return o.executor.Execute(ctx, call.Name, args)
}
