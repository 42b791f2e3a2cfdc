package bridge_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcanrun/arcane/bridge"
	"github.com/arcanrun/arcane/event"
)

func textDeltaEvent(delta string) event.Event {
	return event.Event{Type: event.TypeTextDelta, Payload: event.TextDeltaPayload{Delta: delta}}
}

func runFinishedEvent(final string) event.Event {
	return event.Event{
		Type: event.TypeRunFinished,
		Payload: event.RunFinishedPayload{
			Reason: "completed", FinalAnswer: final, HasFinalAnswer: final != "",
		},
	}
}

func TestNativeBridgeEmitsOneFramePerEvent(t *testing.T) {
	b, err := bridge.New(bridge.FormatNative)
	require.NoError(t, err)

	frames, err := b.Translate(textDeltaEvent("hi"))
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.True(t, strings.HasPrefix(string(frames[0].Data), "data: "))
	assert.Contains(t, string(frames[0].Data), `"type":"text_delta"`)
}

func TestAISDKv5TranslatesToolCallAndFinish(t *testing.T) {
	b, err := bridge.New(bridge.FormatAISDKv5)
	require.NoError(t, err)

	frames, err := b.Translate(event.Event{
		Type: event.TypeToolCallRequested,
		Payload: event.ToolCallRequestedPayload{
			CallID: "c1", ToolName: "search", Input: json.RawMessage(`{"q":"x"}`),
		},
	})
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Contains(t, string(frames[0].Data), `"tool-call-begin"`)
	assert.Contains(t, string(frames[1].Data), `"tool-call-delta"`)

	finish, err := b.Translate(runFinishedEvent("done"))
	require.NoError(t, err)
	require.NotEmpty(t, finish)
	assert.Contains(t, string(finish[len(finish)-1].Data), `"finish"`)

	assert.Empty(t, b.Close())
}

func TestAISDKv6AddsIDsStepsAndTerminator(t *testing.T) {
	b, err := bridge.New(bridge.FormatAISDKv6)
	require.NoError(t, err)

	start, err := b.Translate(event.Event{Type: event.TypeRunStarted, Payload: event.RunStartedPayload{RunID: "r1"}})
	require.NoError(t, err)
	require.Len(t, start, 2)
	assert.Equal(t, "x-vercel-ai-ui-message-stream", start[0].Header)
	assert.Equal(t, "v1", start[0].HeaderValue)
	assert.True(t, strings.HasPrefix(string(start[0].Data), "id: 1\n"))
	assert.Contains(t, string(start[1].Data), `"start-step"`)

	delta, err := b.Translate(textDeltaEvent("hi"))
	require.NoError(t, err)
	require.Len(t, delta, 2, "v6 opens a text-start boundary before the first delta")
	assert.Contains(t, string(delta[0].Data), `"text-start"`)
	assert.Contains(t, string(delta[1].Data), `"text-delta"`)

	finish, err := b.Translate(runFinishedEvent(""))
	require.NoError(t, err)
	joined := ""
	for _, f := range finish {
		joined += string(f.Data)
	}
	assert.Contains(t, joined, `"text-end"`)
	assert.Contains(t, joined, `"finish-step"`)
	assert.Contains(t, joined, `"finish"`)

	done := b.Close()
	require.Len(t, done, 1)
	assert.Equal(t, "data: [DONE]\n\n", string(done[0].Data))
}

func TestVercelAliasBehavesLikeAISDKv5(t *testing.T) {
	v5, err := bridge.New(bridge.FormatAISDKv5)
	require.NoError(t, err)
	alias, err := bridge.New(bridge.FormatVercel)
	require.NoError(t, err)

	ev := textDeltaEvent("hi")
	fv5, err := v5.Translate(ev)
	require.NoError(t, err)
	falias, err := alias.Translate(ev)
	require.NoError(t, err)
	assert.Equal(t, fv5, falias)
}

func TestOpenAIBridgeEmitsChunkAndFinishReason(t *testing.T) {
	b, err := bridge.New(bridge.FormatOpenAI)
	require.NoError(t, err)

	frames, err := b.Translate(textDeltaEvent("hi"))
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Contains(t, string(frames[0].Data), `"content":"hi"`)

	finish, err := b.Translate(runFinishedEvent("bye"))
	require.NoError(t, err)
	require.Len(t, finish, 1)
	assert.Contains(t, string(finish[0].Data), `"finish_reason":"stop"`)
}

func TestAnthropicBridgeEmitsContentBlockDeltaAndMessageStop(t *testing.T) {
	b, err := bridge.New(bridge.FormatAnthropic)
	require.NoError(t, err)

	frames, err := b.Translate(textDeltaEvent("hi"))
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Contains(t, string(frames[0].Data), `"content_block_delta"`)

	finish, err := b.Translate(runFinishedEvent(""))
	require.NoError(t, err)
	require.Len(t, finish, 1)
	assert.Contains(t, string(finish[0].Data), `"message_stop"`)
}

func TestLagoBridgeEmitsLineDelimitedFrames(t *testing.T) {
	b, err := bridge.New(bridge.FormatLago)
	require.NoError(t, err)

	frames, err := b.Translate(textDeltaEvent("hi"))
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.False(t, strings.HasPrefix(string(frames[0].Data), "data: "), "lago frames are not SSE-wrapped")
	assert.True(t, strings.HasSuffix(string(frames[0].Data), "\n"))
	assert.Contains(t, string(frames[0].Data), `"t":"text"`)
}

func TestUnrecognizedFormatErrors(t *testing.T) {
	_, err := bridge.New("bogus")
	assert.Error(t, err)
}
