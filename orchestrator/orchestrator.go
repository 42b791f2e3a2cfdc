// Package orchestrator implements the bounded iterative state machine that
// drives one run: alternating provider calls and tool dispatch, applying
// state patches, running the middleware chain at each hook point, and
// emitting the full event trail a journal appends and a streaming bridge
// relays.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/arcanrun/arcane/appstate"
	"github.com/arcanrun/arcane/ctxasm"
	"github.com/arcanrun/arcane/event"
	"github.com/arcanrun/arcane/message"
	"github.com/arcanrun/arcane/middleware"
	"github.com/arcanrun/arcane/provider"
	"github.com/arcanrun/arcane/telemetry"
	"github.com/arcanrun/arcane/tools"
)

// RunStopReason is the closed set of terminal classifications for a run.
type RunStopReason string

const (
	ReasonCompleted       RunStopReason = "completed"
	ReasonNeedsUser       RunStopReason = "needs_user"
	ReasonBlockedByPolicy RunStopReason = "blocked_by_policy"
	ReasonBudgetExceeded  RunStopReason = "budget_exceeded"
	ReasonCancelled       RunStopReason = "cancelled"
	ReasonError           RunStopReason = "error"
)

// RunInput is the input to Orchestrator.Run.
type RunInput struct {
	RunID     string
	SessionID string
	Messages  []message.ChatMessage
	State     *appstate.AppState
	// MaxIterations bounds the iteration loop; zero uses DefaultMaxIterations.
	MaxIterations int
	// Cancel, when non-nil, is polled at iteration boundaries; a true
	// return cancels the run (§4.7 step 1).
	Cancel func() bool
}

// DefaultMaxIterations bounds a run when RunInput.MaxIterations is zero.
const DefaultMaxIterations = 50

// Default context budgets that New places in Orchestrator.ContextConfig.
// History compaction starts once the estimated history exceeds
// DefaultMaxContextTokens - DefaultReserveOutputTokens (124,000 tokens);
// compiled context blocks are limited to DefaultContextBudget tokens.
const (
	DefaultMaxContextTokens    = 128_000
	DefaultReserveOutputTokens = 4_000
	DefaultContextBudget       = 2_000
)

// RunOutput is the result of Orchestrator.Run.
type RunOutput struct {
	RunID       string
	SessionID   string
	Events      []event.Event
	Messages    []message.ChatMessage
	State       *appstate.AppState
	Reason      RunStopReason
	FinalAnswer string
	HasFinal    bool
	TotalUsage  provider.Usage
}

// EventCallback receives every event as it is produced. Implementations
// (journal appenders, stream relays) are expected to assign sequence
// numbers themselves if they persist the event.
type EventCallback func(ctx context.Context, ev event.Event)

// Orchestrator executes runs against a single provider, tool registry, and
// middleware chain.
type Orchestrator struct {
	Provider provider.Provider
	Tools    *tools.Registry
	Chain    *middleware.Chain

	// ContextSource optionally sources Persona/Rules/Memory/Retrieval blocks
	// for a session ahead of each provider call (§2, "compile context → call
	// provider"). A nil source skips block compilation and only runs history
	// compaction.
	ContextSource ctxasm.ContextSource
	// ContextConfig bounds both context-block compilation and history
	// compaction. The zero value is replaced by conservative defaults in New.
	ContextConfig ctxasm.Config

	Logger  telemetry.Logger
	Tracer  telemetry.Tracer
	Metrics telemetry.Metrics
}

// New constructs an Orchestrator. A nil chain runs with no middleware.
// ContextSource, Logger, Tracer, and Metrics default to no-ops; assign them
// on the returned Orchestrator to wire a concrete backend.
func New(p provider.Provider, registry *tools.Registry, chain *middleware.Chain) *Orchestrator {
	if chain == nil {
		chain = middleware.NewChain()
	}
	return &Orchestrator{
		Provider: p, Tools: registry, Chain: chain,
		ContextConfig: ctxasm.Config{
			TotalBudget:         DefaultContextBudget,
			MaxContextTokens:    DefaultMaxContextTokens,
			ReserveOutputTokens: DefaultReserveOutputTokens,
		},
		Logger:  telemetry.NewNoopLogger(),
		Tracer:  telemetry.NewNoopTracer(),
		Metrics: telemetry.NewNoopMetrics(),
	}
}

// emitter records every event produced by a run, both for RunOutput.Events
// and for relaying to the caller's EventCallback. It also implements
// middleware.EventEmitter so the policy middleware can record approval
// events through the same path.
type emitter struct {
	runID     string
	sessionID string
	cb        EventCallback
	collected []event.Event
}

func (e *emitter) emit(ctx context.Context, typ event.Type, payload any) {
	ev := event.Event{
		SessionID: e.sessionID,
		BranchID:  event.DefaultBranch,
		RunID:     e.runID,
		Type:      typ,
		Payload:   payload,
	}
	e.collected = append(e.collected, ev)
	if e.cb != nil {
		e.cb(ctx, ev)
	}
}

// Emit implements middleware.EventEmitter.
func (e *emitter) Emit(ctx context.Context, typ event.Type, payload any) error {
	e.emit(ctx, typ, payload)
	return nil
}

// toolOutcome classifies how dispatchToolCall's directive processing ended,
// so the iteration loop can decide whether the run reached a terminal
// state and, if so, which RunStopReason applies.
type toolOutcome int

const (
	toolOutcomeOK toolOutcome = iota
	toolOutcomeBlockedByPolicy
	toolOutcomeError
)

// Run executes the bounded iterative state machine described in §4.7.
func (o *Orchestrator) Run(ctx context.Context, in RunInput, cb EventCallback) RunOutput {
	maxIter := in.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	state := in.State
	if state == nil {
		state = appstate.New()
	}
	messages := append([]message.ChatMessage(nil), in.Messages...)

	em := &emitter{runID: in.RunID, sessionID: in.SessionID, cb: cb}

	em.emit(ctx, event.TypeRunStarted, event.RunStartedPayload{
		RunID:         in.RunID,
		SessionID:     in.SessionID,
		ProviderName:  o.Provider.Name(),
		MaxIterations: maxIter,
	})

	reason := ReasonBudgetExceeded
	var finalAnswer string
	var hasFinal bool
	var totalUsage provider.Usage
	totalIterations := 0

iterations:
	for iteration := 1; iteration <= maxIter; iteration++ {
		if in.Cancel != nil && in.Cancel() {
			reason = ReasonCancelled
			em.emit(ctx, event.TypeRunErrored, event.RunErroredPayload{Message: "run cancelled"})
			break iterations
		}

		totalIterations = iteration
		em.emit(ctx, event.TypeIterationStarted, event.IterationStartedPayload{Iteration: iteration})
		o.Logger.Debug(ctx, "iteration started", "run_id", in.RunID, "iteration", iteration)

		reqMessages := o.compileContext(ctx, in.SessionID, messages)
		compacted, report := ctxasm.CompactMessages(reqMessages, o.ContextConfig)
		if report.DroppedCount > 0 {
			em.emit(ctx, event.TypeContextCompacted, event.ContextCompactedPayload{
				DroppedCount: report.DroppedCount,
				TokensBefore: report.TokensBefore,
				TokensAfter:  report.TokensAfter,
			})
			o.Logger.Info(ctx, "context compacted", "run_id", in.RunID, "iteration", iteration, "dropped", report.DroppedCount)
		}

		req := provider.Request{
			RunID:     in.RunID,
			SessionID: in.SessionID,
			Iteration: iteration,
			Messages:  append([]message.ChatMessage(nil), compacted...),
			State:     state.Clone(),
		}
		if o.Tools != nil {
			req.Tools = o.Tools.Definitions()
		}

		mc := &middleware.ModelCallContext{RunID: in.RunID, SessionID: in.SessionID, Iteration: iteration, Request: req}
		if err := o.Chain.BeforeModelCall(ctx, mc); err != nil {
			reason = ReasonBlockedByPolicy
			em.emit(ctx, event.TypeRunErrored, event.RunErroredPayload{Message: err.Error()})
			break iterations
		}

		turn, err := o.callProvider(ctx, req)
		if err != nil {
			reason = ReasonError
			em.emit(ctx, event.TypeRunErrored, event.RunErroredPayload{Message: err.Error()})
			break iterations
		}

		mc.Turn = &turn
		if err := o.Chain.AfterModelCall(ctx, mc); err != nil {
			reason = ReasonBlockedByPolicy
			break iterations
		}

		totalUsage.PromptTokens += turn.Usage.PromptTokens
		totalUsage.OutputTokens += turn.Usage.OutputTokens
		em.emit(ctx, event.TypeModelOutput, event.ModelOutputPayload{
			Iteration:      iteration,
			StopReason:     string(turn.StopReason),
			DirectiveCount: len(turn.Directives),
			PromptTokens:   turn.Usage.PromptTokens,
			OutputTokens:   turn.Usage.OutputTokens,
		})

		requestedTool := false
		terminalReason := RunStopReason("")

		for _, d := range turn.Directives {
			switch d.Kind {
			case provider.DirectiveText:
				em.emit(ctx, event.TypeTextDelta, event.TextDeltaPayload{Delta: d.TextDelta})
				messages = append(messages, message.ChatMessage{Role: message.RoleAssistant, Content: d.TextDelta})

			case provider.DirectiveToolCall:
				requestedTool = true
				switch o.dispatchToolCall(ctx, em, state, &messages, iteration, d.ToolCall) {
				case toolOutcomeBlockedByPolicy:
					terminalReason = ReasonBlockedByPolicy
				case toolOutcomeError:
					terminalReason = ReasonError
				}

			case provider.DirectiveStatePatch:
				if err := state.ApplyPatch(appstate.Patch{Format: d.StatePatch.Format, Patch: d.StatePatch.Patch, Source: d.StatePatch.Source}); err != nil {
					em.emit(ctx, event.TypeRunErrored, event.RunErroredPayload{Message: err.Error()})
					terminalReason = ReasonError
				} else {
					em.emit(ctx, event.TypeStatePatched, event.StatePatchedPayload{
						Format:   string(d.StatePatch.Format),
						Patch:    d.StatePatch.Patch,
						Source:   string(d.StatePatch.Source),
						Revision: state.Revision,
					})
				}

			case provider.DirectiveFinalAnswer:
				finalAnswer = d.FinalAnswerText
				hasFinal = true
				em.emit(ctx, event.TypeTextDelta, event.TextDeltaPayload{Delta: d.FinalAnswerText})
				messages = append(messages, message.ChatMessage{Role: message.RoleAssistant, Content: d.FinalAnswerText})
			}

			if terminalReason != "" {
				break
			}
		}

		if terminalReason != "" {
			reason = terminalReason
			break iterations
		}

		switch turn.StopReason {
		case provider.StopEndTurn:
			reason = ReasonCompleted
			break iterations
		case provider.StopNeedsUser:
			reason = ReasonNeedsUser
			break iterations
		case provider.StopSafety:
			reason = ReasonBlockedByPolicy
			break iterations
		case provider.StopToolUse:
			if requestedTool {
				continue iterations
			}
			reason = ReasonError
			em.emit(ctx, event.TypeRunErrored, event.RunErroredPayload{Message: "stop_reason tool_use but no tool call was requested"})
			break iterations
		case provider.StopMaxTokens, provider.StopUnknown:
			if requestedTool {
				continue iterations
			}
			reason = ReasonError
			em.emit(ctx, event.TypeRunErrored, event.RunErroredPayload{Message: fmt.Sprintf("stop_reason %q with no tool call requested", turn.StopReason)})
			break iterations
		default:
			reason = ReasonError
			em.emit(ctx, event.TypeRunErrored, event.RunErroredPayload{Message: fmt.Sprintf("unrecognized stop_reason %q", turn.StopReason)})
			break iterations
		}
	}

	if reason == ReasonBudgetExceeded {
		em.emit(ctx, event.TypeRunErrored, event.RunErroredPayload{Message: "max iteration budget exceeded"})
	}

	o.Metrics.RecordGauge("arcane.run.iterations", float64(totalIterations), "reason", string(reason))

	em.emit(ctx, event.TypeRunFinished, event.RunFinishedPayload{
		Reason:          string(reason),
		TotalIterations: totalIterations,
		FinalAnswer:     finalAnswer,
		HasFinalAnswer:  hasFinal,
	})

	o.Chain.OnRunFinished(ctx, &middleware.RunFinishedContext{
		RunID: in.RunID, SessionID: in.SessionID, StopReason: providerStopReasonOf(reason), State: state,
	})

	return RunOutput{
		RunID: in.RunID, SessionID: in.SessionID, Events: em.collected, Messages: messages,
		State: state, Reason: reason, FinalAnswer: finalAnswer, HasFinal: hasFinal, TotalUsage: totalUsage,
	}
}

// compileContext sources Persona/Rules/Memory/Retrieval blocks from
// o.ContextSource, compiles them per §2's "compile context" step, and
// prepends the result as a system message ahead of history. A nil
// ContextSource, or a source error, skips compilation and returns messages
// unchanged; block compilation is enrichment, not a precondition for the
// provider call.
func (o *Orchestrator) compileContext(ctx context.Context, sessionID string, messages []message.ChatMessage) []message.ChatMessage {
	if o.ContextSource == nil {
		return messages
	}
	blocks, err := o.ContextSource.Blocks(ctx, sessionID)
	if err != nil {
		o.Logger.Warn(ctx, "context source failed, skipping block compilation", "session_id", sessionID, "err", err.Error())
		return messages
	}
	compiled := ctxasm.CompileContext(blocks, o.ContextConfig)
	if len(compiled.Messages) == 0 {
		return messages
	}
	out := make([]message.ChatMessage, 0, len(messages)+1)
	out = append(out, message.ChatMessage{Role: message.RoleSystem, Content: strings.Join(compiled.Messages, "\n\n")})
	out = append(out, messages...)
	return out
}

// callProvider wraps a single model call in a tracing span and a latency
// timer, matching SPEC_FULL.md's telemetry claim ("tracing spans around
// provider/tool calls, metrics for iterations/tool latency").
func (o *Orchestrator) callProvider(ctx context.Context, req provider.Request) (provider.ModelTurn, error) {
	ctx, span := o.Tracer.Start(ctx, "orchestrator.provider.complete")
	defer span.End()
	start := time.Now()
	turn, err := o.Provider.Complete(ctx, req)
	o.Metrics.RecordTimer("arcane.provider.latency", time.Since(start), "provider", o.Provider.Name())
	if err != nil {
		span.RecordError(err)
		o.Metrics.IncCounter("arcane.provider.errors", 1, "provider", o.Provider.Name())
	}
	return turn, err
}

// executeTool wraps a single tool invocation in a tracing span and a
// latency timer, keyed by tool name, matching the same telemetry pattern as
// callProvider.
func (o *Orchestrator) executeTool(ctx context.Context, t tools.Tool, call tools.Call, iteration int, em *emitter) (tools.Result, error) {
	ctx, span := o.Tracer.Start(ctx, "orchestrator.tool.execute")
	defer span.End()
	start := time.Now()
	result, err := t.Execute(ctx, call, tools.Context{RunID: em.runID, SessionID: em.sessionID, Iteration: iteration})
	o.Metrics.RecordTimer("arcane.tool.latency", time.Since(start), "tool", call.ToolName)
	if err != nil {
		span.RecordError(err)
		o.Metrics.IncCounter("arcane.tool.errors", 1, "tool", call.ToolName)
	}
	return result, err
}

// providerStopReasonOf offers OnRunFinished middlewares the provider-facing
// StopReason closest to the run's terminal RunStopReason, for middlewares
// that key off provider semantics rather than run semantics.
func providerStopReasonOf(r RunStopReason) provider.StopReason {
	switch r {
	case ReasonCompleted:
		return provider.StopEndTurn
	case ReasonNeedsUser:
		return provider.StopNeedsUser
	case ReasonBlockedByPolicy:
		return provider.StopSafety
	default:
		return provider.StopUnknown
	}
}

// dispatchToolCall implements the ToolCall directive branch of §4.7 step 8:
// emit ToolCallRequested, run pre_tool_call, resolve and execute the tool,
// apply any state patch, run post_tool_call, emit ToolCallCompleted, and
// append the tool's output as a tool message.
func (o *Orchestrator) dispatchToolCall(ctx context.Context, em *emitter, state *appstate.AppState, messages *[]message.ChatMessage, iteration int, call tools.Call) toolOutcome {
	em.emit(ctx, event.TypeToolCallRequested, event.ToolCallRequestedPayload{
		CallID: call.CallID, ToolName: call.ToolName, Input: call.Input,
	})

	def, found := lookupDefinition(o.Tools, call.ToolName)

	tc := &middleware.ToolCallContext{RunID: em.runID, SessionID: em.sessionID, Iteration: iteration, Call: call, Definition: def}
	if err := o.Chain.PreToolCall(ctx, tc); err != nil {
		em.emit(ctx, event.TypeToolCallFailed, event.ToolCallFailedPayload{CallID: call.CallID, ToolName: call.ToolName, Message: err.Error()})
		return toolOutcomeBlockedByPolicy
	}

	if !found {
		em.emit(ctx, event.TypeToolCallFailed, event.ToolCallFailedPayload{CallID: call.CallID, ToolName: call.ToolName, Message: "tool not found: " + call.ToolName})
		return toolOutcomeError
	}

	t, _ := o.Tools.Get(call.ToolName)
	result, err := o.executeTool(ctx, t, call, iteration, em)
	if err != nil {
		em.emit(ctx, event.TypeToolCallFailed, event.ToolCallFailedPayload{CallID: call.CallID, ToolName: call.ToolName, Message: err.Error()})
		return toolOutcomeError
	}

	if result.StatePatch != nil {
		patchErr := state.ApplyPatch(appstate.Patch{
			Format: appstate.PatchFormat(result.StatePatch.Format),
			Patch:  result.StatePatch.Patch,
			Source: appstate.PatchSource(result.StatePatch.Source),
		})
		if patchErr != nil {
			em.emit(ctx, event.TypeToolCallFailed, event.ToolCallFailedPayload{CallID: call.CallID, ToolName: call.ToolName, Message: patchErr.Error()})
			return toolOutcomeError
		}
		em.emit(ctx, event.TypeStatePatched, event.StatePatchedPayload{
			Format: result.StatePatch.Format, Patch: result.StatePatch.Patch, Source: result.StatePatch.Source, Revision: state.Revision,
		})
	}

	postCtx := *tc
	postCtx.Result = &result
	if err := o.Chain.PostToolCall(ctx, &postCtx); err != nil {
		em.emit(ctx, event.TypeToolCallFailed, event.ToolCallFailedPayload{CallID: call.CallID, ToolName: call.ToolName, Message: err.Error()})
		return toolOutcomeBlockedByPolicy
	}

	em.emit(ctx, event.TypeToolCallCompleted, event.ToolCallCompletedPayload{
		CallID: call.CallID, Summary: summarize(result), Output: outputOrEmpty(result),
	})

	*messages = append(*messages, message.ChatMessage{
		Role:       message.RoleTool,
		Content:    string(outputOrEmpty(result)),
		ToolCallID: call.CallID,
	})

	return toolOutcomeOK
}

func lookupDefinition(registry *tools.Registry, name string) (tools.Definition, bool) {
	if registry == nil {
		return tools.Definition{}, false
	}
	t, ok := registry.Get(name)
	if !ok {
		return tools.Definition{}, false
	}
	return t.Definition(), true
}

func summarize(r tools.Result) string {
	if r.IsError {
		return "error"
	}
	if len(r.Output) > 120 {
		return string(r.Output[:120]) + "..."
	}
	return string(r.Output)
}

func outputOrEmpty(r tools.Result) json.RawMessage {
	if r.Output == nil {
		return json.RawMessage("null")
	}
	return r.Output
}
