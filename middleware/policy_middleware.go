package middleware

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/arcanrun/arcane/approval"
	"github.com/arcanrun/arcane/event"
	"github.com/arcanrun/arcane/orcherr"
	"github.com/arcanrun/arcane/policy"
	"github.com/arcanrun/arcane/telemetry"
)

// EventEmitter is the seam the policy middleware uses to record
// ApprovalRequested/ApprovalResolved events as it blocks and resumes. The
// orchestrator supplies an implementation that assigns the event its
// sequence number and appends it to the journal.
type EventEmitter interface {
	Emit(ctx context.Context, typ event.Type, payload any) error
}

// PolicyMiddleware evaluates the configured rule set before every tool call
// and, on a RequireApproval decision, blocks the run on approval.Gate until
// an operator resolves it or the gate's timeout elapses (§4.5).
//
// A RequireApproval decision with no Gate configured degrades to Deny: a
// pending approval that can never be answered must not silently allow.
type PolicyMiddleware struct {
	NoOp

	Rules   policy.RuleSet
	Gate    *approval.Gate
	Emitter EventEmitter
	Role    string
	Sandbox string
	Logger  telemetry.Logger
}

// NewPolicyMiddleware constructs a PolicyMiddleware. gate may be nil, in
// which case RequireApproval decisions are treated as Deny. Logger defaults
// to telemetry.NoopLogger; assign m.Logger to wire a concrete backend.
func NewPolicyMiddleware(rules policy.RuleSet, gate *approval.Gate, emitter EventEmitter) *PolicyMiddleware {
	return &PolicyMiddleware{Rules: rules, Gate: gate, Emitter: emitter, Logger: telemetry.NewNoopLogger()}
}

func (m *PolicyMiddleware) Name() string { return "policy" }

// PreToolCall evaluates the rule set for tc.Call and either allows it
// through, rejects it with a CodeMiddleware error, or blocks pending human
// approval.
func (m *PolicyMiddleware) PreToolCall(ctx context.Context, tc *ToolCallContext) error {
	risk := policy.RiskOf(tc.Definition)

	var args map[string]any
	_ = json.Unmarshal(tc.Call.Input, &args)

	pctx := policy.Context{
		ToolName:  tc.Call.ToolName,
		Arguments: args,
		Risk:      risk,
		SessionID: tc.SessionID,
		Role:      m.Role,
		Sandbox:   m.Sandbox,
	}

	decision, explanation, ruleID := m.Rules.Evaluate(pctx)
	m.Logger.Debug(ctx, "policy evaluated", "tool", tc.Call.ToolName, "risk", risk.String(), "decision", string(decision), "rule_id", ruleID)

	switch decision {
	case policy.Allow:
		return nil
	case policy.Deny:
		return orcherr.New(orcherr.CodeMiddleware, denyMessage(tc.Call.ToolName, ruleID, explanation))
	case policy.RequireApproval:
		return m.awaitApproval(ctx, tc, risk, ruleID, explanation)
	default:
		return orcherr.New(orcherr.CodeMiddleware, fmt.Sprintf("policy: unknown decision %q", decision))
	}
}

func (m *PolicyMiddleware) awaitApproval(ctx context.Context, tc *ToolCallContext, risk policy.Risk, ruleID, explanation string) error {
	if m.Gate == nil {
		return orcherr.New(orcherr.CodeMiddleware, denyMessage(tc.Call.ToolName, ruleID, "no approval gate configured, degrading require_approval to deny"))
	}

	approvalID := uuid.NewString()
	argsJSON := tc.Call.Input
	if argsJSON == nil {
		argsJSON = json.RawMessage("{}")
	}

	if m.Emitter != nil {
		_ = m.Emitter.Emit(ctx, event.TypeApprovalRequested, event.ApprovalRequestedPayload{
			ApprovalID: approvalID,
			CallID:     tc.Call.CallID,
			ToolName:   tc.Call.ToolName,
			Arguments:  argsJSON,
			Risk:       risk.String(),
		})
	}

	ch := m.Gate.Request(approval.Request{
		ApprovalID: approvalID,
		CallID:     tc.Call.CallID,
		ToolName:   tc.Call.ToolName,
	})

	m.Logger.Info(ctx, "awaiting approval", "approval_id", approvalID, "tool", tc.Call.ToolName, "risk", risk.String())
	decision := approval.Await(ctx, ch)
	m.Logger.Info(ctx, "approval resolved", "approval_id", approvalID, "outcome", string(decision.Outcome))

	if m.Emitter != nil {
		_ = m.Emitter.Emit(ctx, event.TypeApprovalResolved, event.ApprovalResolvedPayload{
			ApprovalID: approvalID,
			Decision:   string(decision.Outcome),
			Reason:     decision.Reason,
		})
	}

	switch decision.Outcome {
	case approval.Approved:
		return nil
	case approval.Denied:
		return orcherr.New(orcherr.CodeMiddleware, denyMessage(tc.Call.ToolName, ruleID, decision.Reason))
	default: // approval.TimedOut
		return orcherr.New(orcherr.CodeMiddleware, fmt.Sprintf("tool %q: approval %s timed out", tc.Call.ToolName, approvalID))
	}
}

func denyMessage(toolName, ruleID, explanation string) string {
	msg := fmt.Sprintf("tool %q denied by policy", toolName)
	if ruleID != "" {
		msg += fmt.Sprintf(" (rule %s)", ruleID)
	}
	if explanation != "" {
		msg += ": " + explanation
	}
	return msg
}
