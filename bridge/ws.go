package bridge

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
)

// WSSink adapts a *websocket.Conn into a Sink, writing each Frame.Data as
// one WebSocket text message. It implements the Sink interface (the SSE path
// in httpapi writes frames to the response directly, not through a Sink):
// the streaming bridge's Bridge/Format layer is transport
// agnostic, so a caller can select FormatNative (or any other format) and
// deliver it over a WebSocket connection instead of an SSE response,
// mirroring the teacher's stream.Sink note that implementations exist for
// "SSE, WebSocket, or a message bus" (§4.11a).
type WSSink struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// NewWSSink wraps conn as a Sink. The caller owns the handshake (upgrading
// the HTTP connection); NewWSSink only owns writes and close.
func NewWSSink(conn *websocket.Conn) *WSSink {
	return &WSSink{conn: conn}
}

// Send writes frame.Data as one WebSocket text message. Frame.Header is
// ignored: WebSocket connections carry no per-message HTTP headers, so a
// format's header requirement (e.g. aisdk_v6's
// x-vercel-ai-ui-message-stream) must be applied by the caller during the
// upgrade response instead.
func (s *WSSink) Send(_ context.Context, frame Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return websocket.ErrCloseSent
	}
	return s.conn.WriteMessage(websocket.TextMessage, frame.Data)
}

// Close sends a close frame and closes the underlying connection. Close is
// idempotent.
func (s *WSSink) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return s.conn.Close()
}
