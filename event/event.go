// Package event defines the closed taxonomy of typed, ordered,
// per-(session, branch) events that make up the journal — the single
// source of truth the orchestrator, projections, and streaming bridge all
// read from. Events are immutable once appended: a Payload is produced
// exactly once by the orchestrator and never mutated afterward.
package event

import "encoding/json"

// Type identifies the concrete payload variant carried by an Event. The set
// is closed; unrecognized types observed during a forward-compatible
// upgrade are preserved as CustomPayload rather than dropped.
type Type string

const (
	TypeRunStarted          Type = "run_started"
	TypeIterationStarted    Type = "iteration_started"
	TypeModelOutput         Type = "model_output"
	TypeTextDelta           Type = "text_delta"
	TypeToolCallRequested   Type = "tool_call_requested"
	TypeToolCallCompleted   Type = "tool_call_completed"
	TypeToolCallFailed      Type = "tool_call_failed"
	TypeToolCallUpdated     Type = "tool_call_updated"
	TypeStatePatched        Type = "state_patched"
	TypeContextCompacted    Type = "context_compacted"
	TypeApprovalRequested   Type = "approval_requested"
	TypeApprovalResolved    Type = "approval_resolved"
	TypeRunErrored          Type = "run_errored"
	TypeRunFinished         Type = "run_finished"
	TypeRunPaused           Type = "run_paused"
	TypeRunResumed          Type = "run_resumed"
	TypeRunPhaseChanged     Type = "run_phase_changed"
	TypePlannerNote         Type = "planner_note"
	TypeCustom              Type = "custom"
)

// Event is one immutable, sequence-numbered record belonging to a single
// (session, branch) pair.
//
// Invariant: within a (session, branch), Seq starts at 1 and strictly
// increases with no gaps; the journal enforces this at append time.
type Event struct {
	// ID uniquely identifies this event, independent of sequence assignment.
	ID string
	// SessionID identifies the owning session.
	SessionID string
	// BranchID identifies the branch within the session; defaults to "main".
	BranchID string
	// RunID optionally associates this event with a run. Empty for
	// session-level events that do not belong to any run.
	RunID string
	// Seq is the monotonically increasing, gap-free sequence number within
	// (SessionID, BranchID).
	Seq uint64
	// TimestampUnixMicro is the event's creation time, in microseconds since
	// the Unix epoch.
	TimestampUnixMicro int64
	// ParentID optionally references the event this one was forked/derived
	// from, supporting non-linear branching.
	ParentID string
	// Metadata carries arbitrary caller- or system-supplied annotations.
	Metadata map[string]string
	// Type names the concrete payload variant carried by Payload.
	Type Type
	// Payload is one of the typed payload structs in this package, or
	// *CustomPayload for unrecognized forward-compatible variants.
	Payload any
}

// DefaultBranch is the branch used when a caller does not specify one.
const DefaultBranch = "main"

// CustomPayload preserves an unrecognized event variant verbatim, so
// forward-compatible journal readers never lose data they don't understand.
type CustomPayload struct {
	EventType string
	Data      json.RawMessage
}

// Payload variants. Each corresponds 1:1 with a Type constant above.
type (
	RunStartedPayload struct {
		RunID         string
		SessionID     string
		ProviderName  string
		MaxIterations int
	}

	IterationStartedPayload struct {
		Iteration int
	}

	ModelOutputPayload struct {
		Iteration      int
		StopReason     string
		DirectiveCount int
		PromptTokens   int
		OutputTokens   int
	}

	TextDeltaPayload struct {
		Delta string
	}

	ToolCallRequestedPayload struct {
		CallID   string
		ToolName string
		Input    json.RawMessage
	}

	ToolCallCompletedPayload struct {
		CallID  string
		Summary string
		Output  json.RawMessage
	}

	ToolCallFailedPayload struct {
		CallID   string
		ToolName string
		Message  string
	}

	ToolCallUpdatedPayload struct {
		CallID                string
		ExpectedChildrenTotal int
	}

	StatePatchedPayload struct {
		Format   string
		Patch    json.RawMessage
		Source   string
		Revision uint64
	}

	ContextCompactedPayload struct {
		DroppedCount int
		TokensBefore int
		TokensAfter  int
	}

	ApprovalRequestedPayload struct {
		ApprovalID string
		CallID     string
		ToolName   string
		Arguments  json.RawMessage
		Risk       string
	}

	ApprovalResolvedPayload struct {
		ApprovalID string
		Decision   string
		Reason     string
	}

	RunErroredPayload struct {
		Message string
	}

	RunFinishedPayload struct {
		Reason          string
		TotalIterations int
		FinalAnswer     string
		HasFinalAnswer  bool
	}

	// RunPausedPayload fires when a run is intentionally paused (operator
	// request or a blocking approval wait).
	RunPausedPayload struct {
		Reason      string
		RequestedBy string
		Labels      map[string]string
	}

	// RunResumedPayload fires when a paused run resumes, optionally carrying
	// newly injected messages.
	RunResumedPayload struct {
		Notes        string
		RequestedBy  string
		MessageCount int
	}

	// RunPhaseChangedPayload is a higher-fidelity lifecycle signal for
	// streaming/UX consumers; purely observational.
	RunPhaseChangedPayload struct {
		Phase string
	}

	// PlannerNotePayload carries a free-text annotation emitted by the
	// provider outside of the Text/FinalAnswer directives. Never folded into
	// chat history by the conversation projection.
	PlannerNotePayload struct {
		Note   string
		Labels map[string]string
	}
)

// DecodePayload unmarshals raw into the concrete payload struct associated
// with typ, so journal backends that round-trip events through JSON (Mongo
// documents, Redis pub/sub messages) hand callers the same typed payload an
// in-process emitter would produce. Unrecognized types decode into
// CustomPayload with typ preserved, rather than losing the distinction.
func DecodePayload(typ Type, raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	target := newPayload(typ)
	if target == nil {
		return &CustomPayload{EventType: string(typ), Data: raw}, nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return nil, err
	}
	return derefPayload(target), nil
}

func newPayload(typ Type) any {
	switch typ {
	case TypeRunStarted:
		return &RunStartedPayload{}
	case TypeIterationStarted:
		return &IterationStartedPayload{}
	case TypeModelOutput:
		return &ModelOutputPayload{}
	case TypeTextDelta:
		return &TextDeltaPayload{}
	case TypeToolCallRequested:
		return &ToolCallRequestedPayload{}
	case TypeToolCallCompleted:
		return &ToolCallCompletedPayload{}
	case TypeToolCallFailed:
		return &ToolCallFailedPayload{}
	case TypeToolCallUpdated:
		return &ToolCallUpdatedPayload{}
	case TypeStatePatched:
		return &StatePatchedPayload{}
	case TypeContextCompacted:
		return &ContextCompactedPayload{}
	case TypeApprovalRequested:
		return &ApprovalRequestedPayload{}
	case TypeApprovalResolved:
		return &ApprovalResolvedPayload{}
	case TypeRunErrored:
		return &RunErroredPayload{}
	case TypeRunFinished:
		return &RunFinishedPayload{}
	case TypeRunPaused:
		return &RunPausedPayload{}
	case TypeRunResumed:
		return &RunResumedPayload{}
	case TypeRunPhaseChanged:
		return &RunPhaseChangedPayload{}
	case TypePlannerNote:
		return &PlannerNotePayload{}
	default:
		return nil
	}
}

// derefPayload dereferences the pointer newPayload returned, so decoded
// events carry the same value-typed payload an in-process emitter produces
// (e.g. event.TextDeltaPayload, not *event.TextDeltaPayload).
func derefPayload(ptr any) any {
	switch p := ptr.(type) {
	case *RunStartedPayload:
		return *p
	case *IterationStartedPayload:
		return *p
	case *ModelOutputPayload:
		return *p
	case *TextDeltaPayload:
		return *p
	case *ToolCallRequestedPayload:
		return *p
	case *ToolCallCompletedPayload:
		return *p
	case *ToolCallFailedPayload:
		return *p
	case *ToolCallUpdatedPayload:
		return *p
	case *StatePatchedPayload:
		return *p
	case *ContextCompactedPayload:
		return *p
	case *ApprovalRequestedPayload:
		return *p
	case *ApprovalResolvedPayload:
		return *p
	case *RunErroredPayload:
		return *p
	case *RunFinishedPayload:
		return *p
	case *RunPausedPayload:
		return *p
	case *RunResumedPayload:
		return *p
	case *RunPhaseChangedPayload:
		return *p
	case *PlannerNotePayload:
		return *p
	default:
		return ptr
	}
}
