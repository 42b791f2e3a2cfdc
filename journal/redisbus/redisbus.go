// Package redisbus layers a cross-process broadcast transport over a
// journal.Journal's Append path, using Redis Pub/Sub. It is useful when the
// orchestrator worker and an approval resolver (§5, "Suspension points")
// run in separate processes and both need to observe journal events, or
// when the journal backend itself (journal/mongojournal) does not support
// Subscribe directly.
package redisbus

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/arcanrun/arcane/event"
	"github.com/arcanrun/arcane/journal"
)

// Journal wraps an underlying journal.Journal, publishing every
// successfully appended event to a Redis channel and serving Subscribe from
// that channel instead of an in-process fan-out table.
type Journal struct {
	journal.Journal
	client  *redis.Client
	channel string
}

// Wrap returns a Journal that publishes appended events to channel on
// client, backed by the given underlying journal for Append/HeadSeq/Read.
func Wrap(underlying journal.Journal, client *redis.Client, channel string) *Journal {
	return &Journal{Journal: underlying, client: client, channel: channel}
}

func (j *Journal) Append(ctx context.Context, ev event.Event) error {
	if err := j.Journal.Append(ctx, ev); err != nil {
		return err
	}
	data, err := json.Marshal(wireEvent(ev))
	if err != nil {
		return nil // nolint:nilerr — broadcast is best-effort; the append itself already succeeded.
	}
	// Best-effort: a publish failure must not fail the append, matching the
	// journal's documented lossy-subscriber backpressure policy.
	_ = j.client.Publish(ctx, j.channel, data).Err()
	return nil
}

func (j *Journal) Subscribe(ctx context.Context) (<-chan event.Event, func(), error) {
	pubsub := j.client.Subscribe(ctx, j.channel)
	raw := pubsub.Channel()

	out := make(chan event.Event, 256)
	go func() {
		defer close(out)
		for msg := range raw {
			var we wireEventPayload
			if err := json.Unmarshal([]byte(msg.Payload), &we); err != nil {
				continue
			}
			select {
			case out <- we.toEvent():
			default:
			}
		}
	}()

	unsubscribe := func() { _ = pubsub.Close() }
	return out, unsubscribe, nil
}

// wireEventPayload is the JSON shape published on the channel; Payload
// travels as raw JSON and is restored to its concrete typed struct on the
// receiving side via event.DecodePayload, keyed off Type.
type wireEventPayload struct {
	ID                 string
	SessionID          string
	BranchID           string
	RunID              string
	Seq                uint64
	TimestampUnixMicro int64
	ParentID           string
	Metadata           map[string]string
	Type               string
	Payload            json.RawMessage
}

func wireEvent(ev event.Event) wireEventPayload {
	payload, _ := json.Marshal(ev.Payload)
	return wireEventPayload{
		ID:                 ev.ID,
		SessionID:          ev.SessionID,
		BranchID:           ev.BranchID,
		RunID:              ev.RunID,
		Seq:                ev.Seq,
		TimestampUnixMicro: ev.TimestampUnixMicro,
		ParentID:           ev.ParentID,
		Metadata:           ev.Metadata,
		Type:               string(ev.Type),
		Payload:            payload,
	}
}

func (w wireEventPayload) toEvent() event.Event {
	payload, _ := event.DecodePayload(event.Type(w.Type), w.Payload)
	return event.Event{
		ID:                 w.ID,
		SessionID:          w.SessionID,
		BranchID:           w.BranchID,
		RunID:              w.RunID,
		Seq:                w.Seq,
		TimestampUnixMicro:  w.TimestampUnixMicro,
		ParentID:            w.ParentID,
		Metadata:            w.Metadata,
		Type:                event.Type(w.Type),
		Payload:             payload,
	}
}
