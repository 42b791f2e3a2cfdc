// Package ctxasm implements the context assembler and history compactor:
// budget-bounded compilation of a system prompt from a set of context
// blocks, and budget-bounded compaction of conversation history before it
// is handed to a provider.
package ctxasm

import (
	"context"

	"github.com/arcanrun/arcane/message"
)

// Kind is the closed set of context block categories. Each has a fixed
// assembly order, independent of the block's priority.
type Kind string

const (
	KindPersona   Kind = "persona"
	KindRules     Kind = "rules"
	KindMemory    Kind = "memory"
	KindRetrieval Kind = "retrieval"
	KindWorkspace Kind = "workspace"
	KindTask      Kind = "task"
)

// assemblyOrder fixes the emission order for each Kind, independent of
// priority (which only governs admission when the budget is tight).
var assemblyOrder = map[Kind]int{
	KindPersona:   0,
	KindRules:     1,
	KindMemory:    2,
	KindRetrieval: 3,
	KindWorkspace: 4,
	KindTask:      5,
}

// PersonaPriority is the conventional priority for Persona blocks, which
// the compiler never drops regardless of budget.
const PersonaPriority = 255

// ContextBlock is one candidate fragment of the compiled system prompt.
type ContextBlock struct {
	Kind     Kind
	Content  string
	Priority int // 0..255, higher admits first when budget is tight
}

// ContextSource is the pluggable seam an agent-loop driver uses to source
// Memory/Retrieval blocks (and, typically, static Persona/Rules blocks) for
// a session ahead of compilation. Concrete retrieval/embedding backends are
// external collaborators; this package only depends on the interface.
type ContextSource interface {
	Blocks(ctx context.Context, sessionID string) ([]ContextBlock, error)
}

// EstimateTokens mirrors message.EstimateTokens for block content, using
// the same conservative ceil(len/4)+4 estimator.
func EstimateTokens(content string) int {
	return message.EstimateTokens(content)
}

// StaticSource is a ContextSource over a fixed block set, independent of
// session id. Useful for the Persona/Rules blocks a deployment configures
// once at startup, before any Memory/Retrieval-backed ContextSource is
// layered in.
type StaticSource struct {
	blocks []ContextBlock
}

// NewStaticSource constructs a StaticSource over blocks.
func NewStaticSource(blocks ...ContextBlock) StaticSource {
	return StaticSource{blocks: blocks}
}

// Blocks implements ContextSource, returning the same fixed blocks for any
// session.
func (s StaticSource) Blocks(context.Context, string) ([]ContextBlock, error) {
	return s.blocks, nil
}
