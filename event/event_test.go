package event_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcanrun/arcane/event"
)

func TestDecodePayloadRoundTripsKnownType(t *testing.T) {
	original := event.ToolCallCompletedPayload{CallID: "c1", Summary: "ok", Output: json.RawMessage(`{"echo":"hi"}`)}
	raw, err := json.Marshal(original)
	require.NoError(t, err)

	decoded, err := event.DecodePayload(event.TypeToolCallCompleted, raw)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestDecodePayloadUnknownTypePreservesAsCustom(t *testing.T) {
	raw := json.RawMessage(`{"foo":"bar"}`)
	decoded, err := event.DecodePayload(event.Type("some_future_event"), raw)
	require.NoError(t, err)

	custom, ok := decoded.(*event.CustomPayload)
	require.True(t, ok)
	assert.Equal(t, "some_future_event", custom.EventType)
	assert.JSONEq(t, string(raw), string(custom.Data))
}

func TestDecodePayloadEmptyReturnsNil(t *testing.T) {
	decoded, err := event.DecodePayload(event.TypeRunStarted, nil)
	require.NoError(t, err)
	assert.Nil(t, decoded)
}
