package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/arcanrun/arcane/event"
	"github.com/arcanrun/arcane/journal"
	"github.com/arcanrun/arcane/telemetry"
)

// EventRecord wraps a journal event with the fields the agent-loop driver
// needs, hiding the branch/sequence bookkeeping a journal.Journal exposes.
type EventRecord struct {
	ID        string
	SessionID string
	ParentID  string
	Timestamp time.Time
	Event     event.Event
}

// AppendEvent is the input to Repository.Append: everything about an event
// except its id, timestamp, and sequence number, which the repository
// assigns.
type AppendEvent struct {
	SessionID string
	RunID     string
	ParentID  string
	Metadata  map[string]string
	Type      event.Type
	Payload   any
}

// Repository wraps a journal.Journal with the simplified per-session API
// described in §4.9: append, load the full session history, load an
// event's children, and read the head.
type Repository struct {
	Journal journal.Journal
	Logger  telemetry.Logger
}

// NewRepository constructs a Repository over j. Logger defaults to
// telemetry.NoopLogger; assign r.Logger to wire a concrete backend.
func NewRepository(j journal.Journal) *Repository {
	return &Repository{Journal: j, Logger: telemetry.NewNoopLogger()}
}

// Append assigns the next sequence number on the default branch and
// persists ae, returning the resulting EventRecord.
func (r *Repository) Append(ctx context.Context, ae AppendEvent) (EventRecord, error) {
	head, err := r.Journal.HeadSeq(ctx, ae.SessionID, event.DefaultBranch)
	if err != nil {
		r.Logger.Error(ctx, "failed to read head sequence", "session_id", ae.SessionID, "err", err.Error())
		return EventRecord{}, err
	}

	now := time.Now()
	ev := event.Event{
		ID:                 uuid.NewString(),
		SessionID:          ae.SessionID,
		BranchID:           event.DefaultBranch,
		RunID:              ae.RunID,
		Seq:                head + 1,
		TimestampUnixMicro: now.UnixMicro(),
		ParentID:           ae.ParentID,
		Metadata:           ae.Metadata,
		Type:               ae.Type,
		Payload:            ae.Payload,
	}
	if err := r.Journal.Append(ctx, ev); err != nil {
		r.Logger.Error(ctx, "failed to append event", "session_id", ae.SessionID, "type", string(ae.Type), "err", err.Error())
		return EventRecord{}, err
	}
	r.Logger.Debug(ctx, "event appended", "session_id", ae.SessionID, "type", string(ae.Type), "seq", ev.Seq)
	return toRecord(ev), nil
}

// LoadSession returns every event belonging to sessionID, in sequence order.
func (r *Repository) LoadSession(ctx context.Context, sessionID string) ([]EventRecord, error) {
	events, err := r.Journal.Read(ctx, journal.Query{SessionID: sessionID, BranchID: event.DefaultBranch})
	if err != nil {
		r.Logger.Error(ctx, "failed to load session", "session_id", sessionID, "err", err.Error())
		return nil, err
	}
	return toRecords(events), nil
}

// LoadChildren returns every event in sessionID whose ParentID is parentID.
func (r *Repository) LoadChildren(ctx context.Context, sessionID, parentID string) ([]EventRecord, error) {
	events, err := r.Journal.Read(ctx, journal.Query{SessionID: sessionID, BranchID: event.DefaultBranch})
	if err != nil {
		return nil, err
	}
	var out []EventRecord
	for _, ev := range events {
		if ev.ParentID == parentID {
			out = append(out, toRecord(ev))
		}
	}
	return out, nil
}

// Head returns the last event in sessionID, or ok=false if the session is
// empty.
func (r *Repository) Head(ctx context.Context, sessionID string) (EventRecord, bool, error) {
	events, err := r.LoadSession(ctx, sessionID)
	if err != nil {
		return EventRecord{}, false, err
	}
	if len(events) == 0 {
		return EventRecord{}, false, nil
	}
	return events[len(events)-1], true, nil
}

func toRecord(ev event.Event) EventRecord {
	return EventRecord{
		ID:        ev.ID,
		SessionID: ev.SessionID,
		ParentID:  ev.ParentID,
		Timestamp: time.UnixMicro(ev.TimestampUnixMicro),
		Event:     ev,
	}
}

func toRecords(events []event.Event) []EventRecord {
	out := make([]EventRecord, len(events))
	for i, ev := range events {
		out[i] = toRecord(ev)
	}
	return out
}
