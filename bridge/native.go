package bridge

import "github.com/arcanrun/arcane/event"

// nativeBridge emits each event as one SSE frame carrying the event
// verbatim, per §4.11 "Native".
type nativeBridge struct{}

func newNativeBridge() *nativeBridge { return &nativeBridge{} }

// nativeFrame is the JSON envelope a native frame carries: the closed
// event kind plus its payload, per §6.4 ("tagged by a field whose value is
// one of the closed set of event kinds").
type nativeFrame struct {
	Type    event.Type `json:"type"`
	RunID   string     `json:"run_id,omitempty"`
	Seq     uint64     `json:"seq,omitempty"`
	Payload any        `json:"payload"`
}

func (b *nativeBridge) Translate(ev event.Event) ([]Frame, error) {
	f, err := sseFrame(nativeFrame{Type: ev.Type, RunID: ev.RunID, Seq: ev.Seq, Payload: ev.Payload})
	if err != nil {
		return nil, err
	}
	return []Frame{f}, nil
}

func (b *nativeBridge) Close() []Frame { return nil }
