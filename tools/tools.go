// Package tools defines the tool contract (C4), the closed set of
// annotations that drive policy risk classification, and the in-memory
// registry (C3) mapping tool names to executable handles.
package tools

import (
	"context"
	"encoding/json"
	"time"
)

// Annotation is one of the closed hint flags a tool definition can declare
// to help the policy engine classify risk without inspecting arguments.
type Annotation string

const (
	AnnotationReadOnly             Annotation = "read_only"
	AnnotationDestructive          Annotation = "destructive"
	AnnotationIdempotent           Annotation = "idempotent"
	AnnotationOpenWorld            Annotation = "open_world"
	AnnotationRequiresConfirmation Annotation = "requires_confirmation"
)

// Definition describes a tool's shape for provider transmission and policy
// evaluation.
type Definition struct {
	Name         string
	Description  string
	InputSchema  json.RawMessage
	OutputSchema json.RawMessage
	Annotations  []Annotation
	Category     string
	Tags         []string
	// Timeout is an advisory hint; the orchestrator does not itself enforce
	// a timeout on tool execution (§5, "Timeouts").
	Timeout time.Duration
}

// HasAnnotation reports whether d declares ann.
func (d Definition) HasAnnotation(ann Annotation) bool {
	for _, a := range d.Annotations {
		if a == ann {
			return true
		}
	}
	return false
}

// Call is one tool invocation requested by the model. CallID is the join
// key pairing this request with its Result.
type Call struct {
	CallID   string
	ToolName string
	Input    json.RawMessage
}

// ContentBlock is a typed, provider-agnostic piece of rich tool output
// (beyond the plain JSON Output), such as an image or file reference.
type ContentBlock struct {
	Kind string
	Text string
	Data []byte
	MIME string
}

// Result is what a tool execution produces for a given Call.
type Result struct {
	CallID     string
	ToolName   string
	Output     json.RawMessage
	IsError    bool
	StatePatch *StatePatchRef
	Content    []ContentBlock
}

// StatePatchRef is the patch a tool wants applied to AppState after a
// successful execution. It mirrors appstate.Patch's shape without importing
// the appstate package, avoiding an import cycle between tools and appstate
// consumers.
type StatePatchRef struct {
	Format string
	Patch  json.RawMessage
	Source string
}

// Context carries run-scoped identifiers available to a tool during
// execution.
type Context struct {
	RunID     string
	SessionID string
	Iteration int
}

// Tool is the contract a concrete tool implementation satisfies. Execute may
// block on I/O; the orchestrator runs it synchronously from its own
// perspective (§5, "Suspension points").
type Tool interface {
	Definition() Definition
	Execute(ctx context.Context, call Call, tc Context) (Result, error)
}
