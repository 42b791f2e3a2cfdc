// Package projection folds an ordered event stream into queryable views:
// the conversation/state projection rebuilds (AppState, []ChatMessage) for
// handing back to the orchestrator on the next turn, and the memory
// projection tracks long-lived agent memory across sessions.
package projection

import (
	"github.com/arcanrun/arcane/appstate"
	"github.com/arcanrun/arcane/event"
	"github.com/arcanrun/arcane/message"
)

// Conversation is the running fold target for the conversation/state
// projection: a point-in-time (state, history) pair rebuilt by replaying
// events in sequence order.
type Conversation struct {
	State    *appstate.AppState
	Messages []message.ChatMessage
}

// NewConversation returns an empty projection target.
func NewConversation() *Conversation {
	return &Conversation{State: appstate.New()}
}

// Apply folds one event into c. StatePatched applies the patch, ignoring
// apply errors since the journal is trusted to only contain patches the
// orchestrator already applied successfully once. TextDelta appends to the
// trailing assistant message or starts a new one. ToolCallCompleted appends
// a tool message keyed by call_id. All other event types are ignored by
// this projection.
func (c *Conversation) Apply(ev event.Event) {
	switch p := ev.Payload.(type) {
	case event.StatePatchedPayload:
		_ = c.State.ApplyPatch(appstate.Patch{
			Format: appstate.PatchFormat(p.Format),
			Patch:  p.Patch,
			Source: appstate.PatchSource(p.Source),
		})

	case event.TextDeltaPayload:
		if n := len(c.Messages); n > 0 && c.Messages[n-1].Role == message.RoleAssistant {
			c.Messages[n-1].Content += p.Delta
			return
		}
		c.Messages = append(c.Messages, message.ChatMessage{Role: message.RoleAssistant, Content: p.Delta})

	case event.ToolCallCompletedPayload:
		content := string(p.Output)
		if content == "" {
			content = p.Summary
		}
		c.Messages = append(c.Messages, message.ChatMessage{
			Role:       message.RoleTool,
			Content:    content,
			ToolCallID: p.CallID,
		})
	}
}

// Replay folds every event in events, in order, into a fresh Conversation.
func Replay(events []event.Event) *Conversation {
	c := NewConversation()
	for _, ev := range events {
		c.Apply(ev)
	}
	return c
}
