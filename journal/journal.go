// Package journal defines the append-only, per-session event log that is
// the single source of truth for the orchestrator. Concrete backends
// (journal/inmem, journal/mongojournal) implement the Journal interface;
// the rest of the core depends only on the interface.
package journal

import (
	"context"
	"errors"

	"github.com/arcanrun/arcane/event"
)

// ErrSeqConflict is returned by Append when the supplied event's Seq does
// not equal head_seq(session, branch) + 1, preserving the gap-free
// sequencing invariant.
var ErrSeqConflict = errors.New("journal: sequence conflict")

type (
	// Query filters Read results. Zero values mean "no filter" for that
	// field, except SinceSeq/UntilSeq which are inclusive bounds (0/MaxUint64
	// meaning unbounded).
	Query struct {
		SessionID string
		BranchID  string
		RunID     string
		SinceSeq  uint64
		UntilSeq  uint64
	}

	// Journal is the append-only, per-(session, branch) event log.
	//
	// Append fails with ErrSeqConflict if ev.Seq is not
	// head_seq(ev.SessionID, ev.BranchID) + 1; on success, the event is
	// durably stored and broadcast to any live Subscribe receivers.
	//
	// Subscribe backpressure is lossy: a slow subscriber may miss events, but
	// Append never blocks on a subscriber's receive.
	Journal interface {
		Append(ctx context.Context, ev event.Event) error
		HeadSeq(ctx context.Context, sessionID, branchID string) (uint64, error)
		Read(ctx context.Context, q Query) ([]event.Event, error)
		Subscribe(ctx context.Context) (<-chan event.Event, func(), error)
	}
)

// NormalizeBranch returns branchID, defaulting to event.DefaultBranch when
// branchID is empty.
func NormalizeBranch(branchID string) string {
	if branchID == "" {
		return event.DefaultBranch
	}
	return branchID
}
