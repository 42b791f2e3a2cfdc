// Package inmem provides a process-local Journal implementation backed by a
// mutex-guarded slice per (session, branch). It is the default backend for
// local development, tests, and single-process deployments.
package inmem

import (
	"context"
	"sort"
	"sync"

	"github.com/arcanrun/arcane/event"
	"github.com/arcanrun/arcane/journal"
)

const subscriberBuffer = 256

type key struct {
	sessionID string
	branchID  string
}

type subscriber struct {
	ch chan event.Event
}

// Journal is an in-memory, process-local journal.Journal. It is safe for
// concurrent use. Subscriber delivery is lossy: if a subscriber's buffer is
// full, the oldest pending event for that subscriber is dropped rather than
// blocking the appending goroutine.
type Journal struct {
	mu      sync.RWMutex
	streams map[key][]event.Event

	subMu sync.Mutex
	subs  map[int]*subscriber
	nextSub int
}

// New constructs an empty in-memory journal.
func New() *Journal {
	return &Journal{
		streams: make(map[key][]event.Event),
		subs:    make(map[int]*subscriber),
	}
}

// Append stores ev if its Seq is exactly head_seq+1 for (SessionID,
// BranchID); otherwise it returns journal.ErrSeqConflict and leaves the
// stream unchanged.
func (j *Journal) Append(_ context.Context, ev event.Event) error {
	ev.BranchID = journal.NormalizeBranch(ev.BranchID)
	k := key{sessionID: ev.SessionID, branchID: ev.BranchID}

	j.mu.Lock()
	head := uint64(len(j.streams[k]))
	if ev.Seq != head+1 {
		j.mu.Unlock()
		return journal.ErrSeqConflict
	}
	j.streams[k] = append(j.streams[k], ev)
	j.mu.Unlock()

	j.broadcast(ev)
	return nil
}

// HeadSeq returns the last assigned sequence number for (sessionID,
// branchID), or 0 if the stream is empty.
func (j *Journal) HeadSeq(_ context.Context, sessionID, branchID string) (uint64, error) {
	branchID = journal.NormalizeBranch(branchID)
	j.mu.RLock()
	defer j.mu.RUnlock()
	return uint64(len(j.streams[key{sessionID: sessionID, branchID: branchID}])), nil
}

// Read returns events matching q, ordered by sequence ascending.
func (j *Journal) Read(_ context.Context, q journal.Query) ([]event.Event, error) {
	branchID := journal.NormalizeBranch(q.BranchID)
	until := q.UntilSeq
	if until == 0 {
		until = ^uint64(0)
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make([]event.Event, 0)
	for k, stream := range j.streams {
		if q.SessionID != "" && k.sessionID != q.SessionID {
			continue
		}
		if k.branchID != branchID {
			continue
		}
		for _, ev := range stream {
			if ev.Seq < q.SinceSeq || ev.Seq > until {
				continue
			}
			if q.RunID != "" && ev.RunID != q.RunID {
				continue
			}
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Seq < out[b].Seq })
	return out, nil
}

// Subscribe returns a channel of future events and an unsubscribe function.
// The channel is closed when unsubscribe is called or ctx is done,
// whichever comes first.
func (j *Journal) Subscribe(ctx context.Context) (<-chan event.Event, func(), error) {
	sub := &subscriber{ch: make(chan event.Event, subscriberBuffer)}

	j.subMu.Lock()
	id := j.nextSub
	j.nextSub++
	j.subs[id] = sub
	j.subMu.Unlock()

	unsubscribe := func() {
		j.subMu.Lock()
		defer j.subMu.Unlock()
		if _, ok := j.subs[id]; ok {
			delete(j.subs, id)
			close(sub.ch)
		}
	}

	go func() {
		<-ctx.Done()
		unsubscribe()
	}()

	return sub.ch, unsubscribe, nil
}

func (j *Journal) broadcast(ev event.Event) {
	j.subMu.Lock()
	defer j.subMu.Unlock()
	for _, sub := range j.subs {
		select {
		case sub.ch <- ev:
		default:
			// Lossy backpressure: drop the oldest pending event for this
			// subscriber to make room rather than block the appender.
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- ev:
			default:
			}
		}
	}
}
