// Package bridge translates internal journal events into one of several
// client-facing wire formats (§4.11), by pluggable strategy. A Bridge
// receives the same ordered event.Event stream the journal persists and
// emits zero or more transport frames per event; non-applicable events
// produce no frames.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/arcanrun/arcane/event"
)

// Format identifies a wire format a Bridge encodes events into. The set
// mirrors the literal ?format= query values named in §6.3.
type Format string

const (
	FormatNative    Format = "native"
	FormatAISDKv5   Format = "aisdk_v5"
	FormatAISDKv6   Format = "aisdk_v6"
	FormatOpenAI    Format = "openai"
	FormatAnthropic Format = "anthropic"
	FormatVercel    Format = "vercel" // alias for FormatAISDKv5
	FormatLago      Format = "lago"
)

// Frame is one unit of wire output: a fully-formatted chunk ready to write
// to the transport (an SSE "data: ...\n\n" block, a WebSocket text message,
// or a lago line). Header carries transport-level header overrides the
// HTTP layer must apply before writing the first frame (e.g. the Vercel v6
// "x-vercel-ai-ui-message-stream" header).
type Frame struct {
	// Data is the raw bytes to write to the transport.
	Data []byte
	// Header optionally names an HTTP response header the caller must set
	// before writing Data, and only takes effect on the first frame of a
	// stream.
	Header      string
	HeaderValue string
}

// Bridge converts one event.Event into zero or more wire Frames. A Bridge
// is stateful: formats that require monotonic ids (aisdk_v6) or part
// boundaries (text-start/text-end) track state across calls and must not
// be shared across concurrent streams. Close returns any final frames the
// format requires at stream end (e.g. aisdk_v6's "data: [DONE]\n\n").
type Bridge interface {
	// Translate returns the frames produced by ev, in emission order.
	Translate(ev event.Event) ([]Frame, error)
	// Close returns the frames, if any, that terminate the stream.
	Close() []Frame
}

// New constructs a fresh Bridge for format. Returns an error for an
// unrecognized format.
func New(format Format) (Bridge, error) {
	switch format {
	case FormatNative, "":
		return newNativeBridge(), nil
	case FormatAISDKv5, FormatVercel:
		return newAISDKBridge(false), nil
	case FormatAISDKv6:
		return newAISDKBridge(true), nil
	case FormatOpenAI:
		return newOpenAIBridge(), nil
	case FormatAnthropic:
		return newAnthropicBridge(), nil
	case FormatLago:
		return newLagoBridge(), nil
	default:
		return nil, fmt.Errorf("bridge: unrecognized format %q", format)
	}
}

// Sink delivers wire Frames to a concrete transport (SSE response writer,
// WebSocket connection, message bus). Implementations must be safe to call
// from the single goroutine the agent-loop driver's event callback runs
// on; Sink does not need to be safe for concurrent use by multiple
// producers.
type Sink interface {
	// Send writes one frame to the transport. An error stops delivery of
	// further frames for this stream (§4.1, Sink.Send doc in the teacher).
	Send(ctx context.Context, frame Frame) error
	// Close releases transport resources. Idempotent.
	Close(ctx context.Context) error
}

// sseFrame wraps data in the Server-Sent-Events "data: ...\n\n" envelope.
func sseFrame(v any) (Frame, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Data: append(append([]byte("data: "), b...), '\n', '\n')}, nil
}
