package inmem_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcanrun/arcane/event"
	"github.com/arcanrun/arcane/journal"
	"github.com/arcanrun/arcane/journal/inmem"
)

func TestAppendGapFree(t *testing.T) {
	j := inmem.New()
	ctx := context.Background()

	require.NoError(t, j.Append(ctx, event.Event{SessionID: "s1", Seq: 1}))
	require.NoError(t, j.Append(ctx, event.Event{SessionID: "s1", Seq: 2}))

	err := j.Append(ctx, event.Event{SessionID: "s1", Seq: 4})
	assert.ErrorIs(t, err, journal.ErrSeqConflict)

	head, err := j.HeadSeq(ctx, "s1", "")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), head)
}

func TestReadOrderedBySeq(t *testing.T) {
	j := inmem.New()
	ctx := context.Background()
	for i := uint64(1); i <= 5; i++ {
		require.NoError(t, j.Append(ctx, event.Event{SessionID: "s1", Seq: i, RunID: "r1"}))
	}

	events, err := j.Read(ctx, journal.Query{SessionID: "s1", SinceSeq: 2, UntilSeq: 4})
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, []uint64{2, 3, 4}, []uint64{events[0].Seq, events[1].Seq, events[2].Seq})
}

func TestSubscribeReceivesFutureEvents(t *testing.T) {
	j := inmem.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, unsubscribe, err := j.Subscribe(ctx)
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, j.Append(context.Background(), event.Event{SessionID: "s1", Seq: 1}))

	select {
	case ev := <-ch:
		assert.Equal(t, uint64(1), ev.Seq)
	default:
		t.Fatal("expected event on subscriber channel")
	}
}

func TestBranchesAreIndependent(t *testing.T) {
	j := inmem.New()
	ctx := context.Background()
	require.NoError(t, j.Append(ctx, event.Event{SessionID: "s1", BranchID: "main", Seq: 1}))
	require.NoError(t, j.Append(ctx, event.Event{SessionID: "s1", BranchID: "feature", Seq: 1}))

	head, err := j.HeadSeq(ctx, "s1", "feature")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), head)
}
