// Package driver implements the agent-loop driver (C10): the per-request
// flow that rebuilds a session's state from its journal, appends the new
// user turn, runs the orchestrator on a worker goroutine, and relays every
// event to both the journal and an HTTP response stream.
package driver

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/arcanrun/arcane/event"
	"github.com/arcanrun/arcane/message"
	"github.com/arcanrun/arcane/orchestrator"
	"github.com/arcanrun/arcane/projection"
	"github.com/arcanrun/arcane/session"
)

// Turn is the handle returned by Submit: a live stream of events as the
// orchestrator produces them, plus a channel that receives exactly one
// RunOutput when the run finishes.
type Turn struct {
	Events <-chan event.Event
	Done   <-chan orchestrator.RunOutput
}

// Driver wires a session.Repository to an Orchestrator, serializing turns
// within a session with a per-session lock (§5, "Ordering guarantees": two
// runs on the same session must be serialized to preserve history
// linearity).
type Driver struct {
	Repository   *session.Repository
	Orchestrator *orchestrator.Orchestrator

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New constructs a Driver over repo and orch.
func New(repo *session.Repository, orch *orchestrator.Orchestrator) *Driver {
	return &Driver{Repository: repo, Orchestrator: orch, locks: make(map[string]*sync.Mutex)}
}

func (d *Driver) turnLock(sessionID string) *sync.Mutex {
	d.locksMu.Lock()
	defer d.locksMu.Unlock()
	l, ok := d.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		d.locks[sessionID] = l
	}
	return l
}

// Submit implements the §4.10 flow for one user turn: load history, rebuild
// (state, messages) via the conversation projection, append userContent as
// a new user message, assign a fresh run id, and start the orchestrator on
// a worker goroutine so the caller's goroutine (typically an HTTP handler)
// never blocks on a potentially slow provider call.
func (d *Driver) Submit(ctx context.Context, sessionID, userContent string) (*Turn, error) {
	lock := d.turnLock(sessionID)
	lock.Lock()

	records, err := d.Repository.LoadSession(ctx, sessionID)
	if err != nil {
		lock.Unlock()
		return nil, err
	}

	events := make([]event.Event, len(records))
	for i, r := range records {
		events[i] = r.Event
	}
	conv := projection.Replay(events)

	messages := append(conv.Messages, message.ChatMessage{Role: message.RoleUser, Content: userContent})
	runID := uuid.NewString()

	eventCh := make(chan event.Event, 256)
	doneCh := make(chan orchestrator.RunOutput, 1)

	go func() {
		defer lock.Unlock()
		defer close(eventCh)
		defer close(doneCh)

		cb := func(cbCtx context.Context, ev event.Event) {
			// The journal append is authoritative; its failure must not block
			// delivery to the response stream, and a slow stream consumer
			// must not block the append (§5, "Ordering guarantees").
			_, _ = d.Repository.Append(cbCtx, session.AppendEvent{
				SessionID: sessionID,
				RunID:     runID,
				Metadata:  ev.Metadata,
				Type:      ev.Type,
				Payload:   ev.Payload,
			})
			select {
			case eventCh <- ev:
			default:
			}
		}

		out := d.Orchestrator.Run(ctx, orchestrator.RunInput{
			RunID:     runID,
			SessionID: sessionID,
			Messages:  messages,
			State:     conv.State,
		}, cb)

		doneCh <- out
	}()

	return &Turn{Events: eventCh, Done: doneCh}, nil
}
