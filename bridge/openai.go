package bridge

import "github.com/arcanrun/arcane/event"

// openAIBridge emits the subset of the OpenAI chat-completion-chunk schema
// applicable to streamed agent output: text deltas and a terminal finish
// reason. Tool calls, state patches, and internal bookkeeping events are
// not part of that schema and produce no frames, per §4.11.
type openAIBridge struct{}

func newOpenAIBridge() *openAIBridge { return &openAIBridge{} }

type openAIChunk struct {
	Object  string              `json:"object"`
	Choices []openAIChunkChoice `json:"choices"`
}

type openAIChunkChoice struct {
	Index        int              `json:"index"`
	Delta        openAIChunkDelta `json:"delta"`
	FinishReason *string          `json:"finish_reason"`
}

type openAIChunkDelta struct {
	Content string `json:"content,omitempty"`
}

func (b *openAIBridge) Translate(ev event.Event) ([]Frame, error) {
	switch p := ev.Payload.(type) {
	case event.TextDeltaPayload:
		f, err := sseFrame(openAIChunk{
			Object:  "chat.completion.chunk",
			Choices: []openAIChunkChoice{{Delta: openAIChunkDelta{Content: p.Delta}}},
		})
		if err != nil {
			return nil, err
		}
		return []Frame{f}, nil

	case event.RunFinishedPayload:
		reason := "stop"
		delta := openAIChunkDelta{}
		if p.HasFinalAnswer {
			delta.Content = p.FinalAnswer
		}
		f, err := sseFrame(openAIChunk{
			Object:  "chat.completion.chunk",
			Choices: []openAIChunkChoice{{Delta: delta, FinishReason: &reason}},
		})
		if err != nil {
			return nil, err
		}
		return []Frame{f}, nil

	default:
		return nil, nil
	}
}

func (b *openAIBridge) Close() []Frame {
	return []Frame{{Data: []byte("data: [DONE]\n\n")}}
}
