package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/arcanrun/arcane/event"
)

// aisdkBridge implements the Vercel AI SDK UI-stream part encodings, §4.11
// "Vercel AI SDK v5"/"v6". v6 adds monotonic SSE ids, explicit
// text-start/text-end/start-step/finish-step boundaries, and a terminal
// "data: [DONE]\n\n" frame; v5 omits all three.
type aisdkBridge struct {
	v6       bool
	nextID   int
	textOpen bool
	started  bool
}

func newAISDKBridge(v6 bool) *aisdkBridge {
	return &aisdkBridge{v6: v6}
}

type aisdkPart struct {
	Type          string          `json:"type"`
	ID            string          `json:"id,omitempty"`
	ToolCallID    string          `json:"toolCallId,omitempty"`
	ToolName      string          `json:"toolName,omitempty"`
	Delta         string          `json:"delta,omitempty"`
	ArgsTextDelta string          `json:"argsTextDelta,omitempty"`
	Result        json.RawMessage `json:"result,omitempty"`
	ErrorText     string          `json:"errorText,omitempty"`
	Patch         json.RawMessage `json:"patch,omitempty"`
	Format        string          `json:"format,omitempty"`
	Source        string          `json:"source,omitempty"`
	Revision      uint64          `json:"revision,omitempty"`
}

func (b *aisdkBridge) frame(part aisdkPart) (Frame, error) {
	data, err := json.Marshal(part)
	if err != nil {
		return Frame{}, err
	}
	if !b.v6 {
		return Frame{Data: append(append([]byte("data: "), data...), '\n', '\n')}, nil
	}
	b.nextID++
	line := fmt.Sprintf("id: %d\ndata: ", b.nextID)
	f := Frame{Data: append(append([]byte(line), data...), '\n', '\n')}
	if !b.started {
		b.started = true
		f.Header = "x-vercel-ai-ui-message-stream"
		f.HeaderValue = "v1"
	}
	return f, nil
}

func (b *aisdkBridge) openText() ([]Frame, error) {
	if b.textOpen || !b.v6 {
		return nil, nil
	}
	b.textOpen = true
	f, err := b.frame(aisdkPart{Type: "text-start", ID: "text-0"})
	if err != nil {
		return nil, err
	}
	return []Frame{f}, nil
}

func (b *aisdkBridge) closeText() ([]Frame, error) {
	if !b.textOpen {
		return nil, nil
	}
	b.textOpen = false
	f, err := b.frame(aisdkPart{Type: "text-end", ID: "text-0"})
	if err != nil {
		return nil, err
	}
	return []Frame{f}, nil
}

func (b *aisdkBridge) Translate(ev event.Event) ([]Frame, error) {
	var frames []Frame

	switch p := ev.Payload.(type) {
	case event.RunStartedPayload:
		f, err := b.frame(aisdkPart{Type: "start"})
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
		if b.v6 {
			step, err := b.frame(aisdkPart{Type: "start-step"})
			if err != nil {
				return nil, err
			}
			frames = append(frames, step)
		}

	case event.TextDeltaPayload:
		open, err := b.openText()
		if err != nil {
			return nil, err
		}
		frames = append(frames, open...)
		f, err := b.frame(aisdkPart{Type: "text-delta", ID: "text-0", Delta: p.Delta})
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)

	case event.ToolCallRequestedPayload:
		begin, err := b.frame(aisdkPart{Type: "tool-call-begin", ToolCallID: p.CallID, ToolName: p.ToolName})
		if err != nil {
			return nil, err
		}
		delta, err := b.frame(aisdkPart{Type: "tool-call-delta", ToolCallID: p.CallID, ArgsTextDelta: string(p.Input)})
		if err != nil {
			return nil, err
		}
		frames = append(frames, begin, delta)

	case event.ToolCallCompletedPayload:
		f, err := b.frame(aisdkPart{Type: "tool-result", ToolCallID: p.CallID, Result: p.Output})
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)

	case event.ToolCallFailedPayload:
		f, err := b.frame(aisdkPart{Type: "tool-result", ToolCallID: p.CallID, ErrorText: p.Message})
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)

	case event.StatePatchedPayload:
		f, err := b.frame(aisdkPart{
			Type:     "arcan-state-patch",
			Patch:    p.Patch,
			Format:   p.Format,
			Source:   p.Source,
			Revision: p.Revision,
		})
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)

	case event.RunErroredPayload:
		f, err := b.frame(aisdkPart{Type: "error", ErrorText: p.Message})
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)

	case event.RunFinishedPayload:
		if p.HasFinalAnswer {
			open, err := b.openText()
			if err != nil {
				return nil, err
			}
			frames = append(frames, open...)
			delta, err := b.frame(aisdkPart{Type: "text-delta", ID: "text-0", Delta: p.FinalAnswer})
			if err != nil {
				return nil, err
			}
			frames = append(frames, delta)
		}
		closeFrames, err := b.closeText()
		if err != nil {
			return nil, err
		}
		frames = append(frames, closeFrames...)
		if b.v6 {
			step, err := b.frame(aisdkPart{Type: "finish-step"})
			if err != nil {
				return nil, err
			}
			frames = append(frames, step)
		}
		finish, err := b.frame(aisdkPart{Type: "finish"})
		if err != nil {
			return nil, err
		}
		frames = append(frames, finish)

	case event.IterationStartedPayload, event.ModelOutputPayload:
		// §4.11: no frames.
	}

	return frames, nil
}

func (b *aisdkBridge) Close() []Frame {
	if !b.v6 {
		return nil
	}
	return []Frame{{Data: []byte("data: [DONE]\n\n")}}
}
