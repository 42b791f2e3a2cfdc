// Package middleware implements the orchestrator's extensibility chain: a
// sequence of hooks invoked at five fixed points in every run — before and
// after each model call, before and after each tool call, and once when a
// run finishes. Every hook but OnRunFinished can short-circuit the run by
// returning an error.
package middleware

import (
	"context"

	"github.com/arcanrun/arcane/appstate"
	"github.com/arcanrun/arcane/provider"
	"github.com/arcanrun/arcane/telemetry"
	"github.com/arcanrun/arcane/tools"
)

// ModelCallContext carries the information available to the before/after
// model-call hooks.
type ModelCallContext struct {
	RunID     string
	SessionID string
	Iteration int
	Request   provider.Request
	Turn      *provider.ModelTurn // nil in BeforeModelCall
}

// ToolCallContext carries the information available to the pre/post
// tool-call hooks.
type ToolCallContext struct {
	RunID      string
	SessionID  string
	Iteration  int
	Call       tools.Call
	Definition tools.Definition
	Result     *tools.Result // nil in PreToolCall
}

// RunFinishedContext carries the information available to OnRunFinished.
// It is observational: hooks may record metrics or logs, but the run's
// outcome is already decided.
type RunFinishedContext struct {
	RunID      string
	SessionID  string
	StopReason provider.StopReason
	Err        error
	State      *appstate.AppState
}

// Middleware is the full hook set a chain link implements. Embedding
// NoOp gives a zero-cost default for hooks a middleware doesn't care about.
type Middleware interface {
	Name() string
	BeforeModelCall(ctx context.Context, mc *ModelCallContext) error
	AfterModelCall(ctx context.Context, mc *ModelCallContext) error
	PreToolCall(ctx context.Context, tc *ToolCallContext) error
	PostToolCall(ctx context.Context, tc *ToolCallContext) error
	OnRunFinished(ctx context.Context, rc *RunFinishedContext)
}

// NoOp implements Middleware with hooks that never block. Embed it in a
// concrete middleware to only override the hooks it actually needs.
type NoOp struct{}

func (NoOp) BeforeModelCall(context.Context, *ModelCallContext) error { return nil }
func (NoOp) AfterModelCall(context.Context, *ModelCallContext) error  { return nil }
func (NoOp) PreToolCall(context.Context, *ToolCallContext) error      { return nil }
func (NoOp) PostToolCall(context.Context, *ToolCallContext) error     { return nil }
func (NoOp) OnRunFinished(context.Context, *RunFinishedContext)       {}

// Chain runs an ordered list of Middleware for each hook point. The
// blocking hooks (everything but OnRunFinished) run in registration order
// and stop at the first error; OnRunFinished always runs every middleware,
// in registration order, regardless of earlier errors, since it is purely
// observational (§4.4).
type Chain struct {
	links []Middleware

	// Logger records which middleware short-circuits a hook, for debugging a
	// blocked or denied run. Defaults to telemetry.NoopLogger.
	Logger telemetry.Logger
}

// NewChain builds a Chain over links, in the order they should run.
func NewChain(links ...Middleware) *Chain {
	return &Chain{links: links, Logger: telemetry.NewNoopLogger()}
}

func (c *Chain) BeforeModelCall(ctx context.Context, mc *ModelCallContext) error {
	for _, m := range c.links {
		if err := m.BeforeModelCall(ctx, mc); err != nil {
			c.Logger.Debug(ctx, "before_model_call blocked", "middleware", m.Name(), "run_id", mc.RunID, "err", err.Error())
			return err
		}
	}
	return nil
}

func (c *Chain) AfterModelCall(ctx context.Context, mc *ModelCallContext) error {
	for _, m := range c.links {
		if err := m.AfterModelCall(ctx, mc); err != nil {
			c.Logger.Debug(ctx, "after_model_call blocked", "middleware", m.Name(), "run_id", mc.RunID, "err", err.Error())
			return err
		}
	}
	return nil
}

func (c *Chain) PreToolCall(ctx context.Context, tc *ToolCallContext) error {
	for _, m := range c.links {
		if err := m.PreToolCall(ctx, tc); err != nil {
			c.Logger.Debug(ctx, "pre_tool_call blocked", "middleware", m.Name(), "tool", tc.Call.ToolName, "err", err.Error())
			return err
		}
	}
	return nil
}

func (c *Chain) PostToolCall(ctx context.Context, tc *ToolCallContext) error {
	for _, m := range c.links {
		if err := m.PostToolCall(ctx, tc); err != nil {
			c.Logger.Debug(ctx, "post_tool_call blocked", "middleware", m.Name(), "tool", tc.Call.ToolName, "err", err.Error())
			return err
		}
	}
	return nil
}

// OnRunFinished runs every middleware's hook unconditionally; it has no
// error return because this hook point cannot fail the run.
func (c *Chain) OnRunFinished(ctx context.Context, rc *RunFinishedContext) {
	for _, m := range c.links {
		m.OnRunFinished(ctx, rc)
	}
}
