package bridge

import "github.com/arcanrun/arcane/event"

// anthropicBridge emits the subset of Anthropic's streaming message schema
// applicable to agent output: content_block_delta text events and a
// terminal message_stop. Tool calls, state patches, and internal
// bookkeeping events are not part of that schema and produce no frames,
// per §4.11.
type anthropicBridge struct{}

func newAnthropicBridge() *anthropicBridge { return &anthropicBridge{} }

type anthropicEvent struct {
	Type  string              `json:"type"`
	Index int                 `json:"index,omitempty"`
	Delta *anthropicTextDelta `json:"delta,omitempty"`
}

type anthropicTextDelta struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (b *anthropicBridge) Translate(ev event.Event) ([]Frame, error) {
	switch p := ev.Payload.(type) {
	case event.TextDeltaPayload:
		f, err := sseFrame(anthropicEvent{
			Type:  "content_block_delta",
			Delta: &anthropicTextDelta{Type: "text_delta", Text: p.Delta},
		})
		if err != nil {
			return nil, err
		}
		return []Frame{f}, nil

	case event.RunFinishedPayload:
		var frames []Frame
		if p.HasFinalAnswer {
			f, err := sseFrame(anthropicEvent{
				Type:  "content_block_delta",
				Delta: &anthropicTextDelta{Type: "text_delta", Text: p.FinalAnswer},
			})
			if err != nil {
				return nil, err
			}
			frames = append(frames, f)
		}
		f, err := sseFrame(anthropicEvent{Type: "message_stop"})
		if err != nil {
			return nil, err
		}
		return append(frames, f), nil

	default:
		return nil, nil
	}
}

func (b *anthropicBridge) Close() []Frame { return nil }
