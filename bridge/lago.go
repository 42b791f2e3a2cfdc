package bridge

import (
	"encoding/json"

	"github.com/arcanrun/arcane/event"
)

// lagoBridge implements the terse, line-delimited format (§4.11a) used by
// the pack's TUI-oriented repos for piping events into a bubbletea program
// without JSON-in-JSON nesting: one flat `{"t":"<kind>", ...}\n` object per
// line, no SSE envelope.
type lagoBridge struct{}

func newLagoBridge() *lagoBridge { return &lagoBridge{} }

type lagoLine struct {
	T      string          `json:"t"`
	CallID string          `json:"call_id,omitempty"`
	Tool   string          `json:"tool,omitempty"`
	Text   string          `json:"text,omitempty"`
	Output json.RawMessage `json:"output,omitempty"`
	Err    string          `json:"err,omitempty"`
	Reason string          `json:"reason,omitempty"`
	Final  string          `json:"final,omitempty"`
}

func (b *lagoBridge) line(v lagoLine) (Frame, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Data: append(data, '\n')}, nil
}

func (b *lagoBridge) Translate(ev event.Event) ([]Frame, error) {
	switch p := ev.Payload.(type) {
	case event.TextDeltaPayload:
		f, err := b.line(lagoLine{T: "text", Text: p.Delta})
		if err != nil {
			return nil, err
		}
		return []Frame{f}, nil

	case event.ToolCallRequestedPayload:
		f, err := b.line(lagoLine{T: "tool_start", CallID: p.CallID, Tool: p.ToolName})
		if err != nil {
			return nil, err
		}
		return []Frame{f}, nil

	case event.ToolCallCompletedPayload:
		f, err := b.line(lagoLine{T: "tool_end", CallID: p.CallID, Output: p.Output})
		if err != nil {
			return nil, err
		}
		return []Frame{f}, nil

	case event.ToolCallFailedPayload:
		f, err := b.line(lagoLine{T: "tool_err", CallID: p.CallID, Tool: p.ToolName, Err: p.Message})
		if err != nil {
			return nil, err
		}
		return []Frame{f}, nil

	case event.RunErroredPayload:
		f, err := b.line(lagoLine{T: "err", Err: p.Message})
		if err != nil {
			return nil, err
		}
		return []Frame{f}, nil

	case event.RunFinishedPayload:
		f, err := b.line(lagoLine{T: "done", Reason: p.Reason, Final: p.FinalAnswer})
		if err != nil {
			return nil, err
		}
		return []Frame{f}, nil

	default:
		return nil, nil
	}
}

func (b *lagoBridge) Close() []Frame { return nil }
