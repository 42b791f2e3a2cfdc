// Package provider defines the abstraction the orchestrator calls into for
// each iteration's model turn. Concrete provider implementations (HTTP
// clients for specific language-model APIs) are external collaborators;
// this package only defines the contract and the closed directive/stop-
// reason taxonomies the orchestrator interprets.
package provider

import (
	"context"

	"github.com/arcanrun/arcane/appstate"
	"github.com/arcanrun/arcane/message"
	"github.com/arcanrun/arcane/tools"
)

// StopReason is the closed set of terminal classifications a provider may
// report for a single model turn.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopToolUse   StopReason = "tool_use"
	StopNeedsUser StopReason = "needs_user"
	StopMaxTokens StopReason = "max_tokens"
	StopSafety    StopReason = "safety"
	StopUnknown   StopReason = "unknown"
)

// Usage carries token-usage counters for one model turn, when the provider
// reports them.
type Usage struct {
	PromptTokens int
	OutputTokens int
}

// Request is the input to Provider.Complete for one iteration.
type Request struct {
	RunID     string
	SessionID string
	Iteration int
	Messages  []message.ChatMessage
	Tools     []tools.Definition
	State     *appstate.AppState
}

// DirectiveKind identifies which of the four Directive variants is set.
type DirectiveKind string

const (
	DirectiveText        DirectiveKind = "text"
	DirectiveToolCall    DirectiveKind = "tool_call"
	DirectiveStatePatch  DirectiveKind = "state_patch"
	DirectiveFinalAnswer DirectiveKind = "final_answer"
)

// Directive is one instruction emitted by the model within a turn. Exactly
// one of the Kind-tagged fields is populated, matching the Kind value.
type Directive struct {
	Kind DirectiveKind

	// TextDelta is set when Kind == DirectiveText.
	TextDelta string

	// ToolCall is set when Kind == DirectiveToolCall.
	ToolCall tools.Call

	// StatePatch is set when Kind == DirectiveStatePatch.
	StatePatch StatePatch

	// FinalAnswerText is set when Kind == DirectiveFinalAnswer.
	FinalAnswerText string
}

// StatePatch is the provider-agnostic patch payload carried by a
// DirectiveStatePatch directive.
type StatePatch struct {
	Format appstate.PatchFormat
	Patch  []byte
	Source appstate.PatchSource
}

// ModelTurn is the provider's response for one iteration.
type ModelTurn struct {
	Directives []Directive
	StopReason StopReason
	Usage      Usage
}

// Provider is the contract the orchestrator calls into once per iteration.
// Complete is synchronous from the orchestrator's perspective; any
// asynchrony (retries, streaming token delivery) is hidden inside the
// implementation (§5, "Suspension points").
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (ModelTurn, error)
}
