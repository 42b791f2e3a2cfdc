package projection_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcanrun/arcane/event"
	"github.com/arcanrun/arcane/projection"
)

func TestMemoryTracksObservationCounts(t *testing.T) {
	m := projection.NewMemory()
	m.Apply(event.Event{Type: event.TypePlannerNote, Payload: event.PlannerNotePayload{Note: "noted", Labels: map[string]string{"scope": "user"}}})
	m.Apply(event.Event{Type: event.TypePlannerNote, Payload: event.PlannerNotePayload{Note: "noted again", Labels: map[string]string{"scope": "user"}}})

	assert.Equal(t, 2, m.Observations[projection.ScopeUser])
}

func TestMemoryCommitAndQuery(t *testing.T) {
	m := projection.NewMemory()
	m.Apply(event.Event{Type: event.TypePlannerNote, Payload: event.PlannerNotePayload{
		Note:   "the user prefers terse replies",
		Labels: map[string]string{"scope": "user", "memory_id": "m1", "memory_op": "commit"},
	}})

	records := m.Query(projection.ScopeUser)
	require.Len(t, records, 1)
	assert.Equal(t, "the user prefers terse replies", records[0].Content)
}

func TestTombstonedMemoryExcludedFromQuery(t *testing.T) {
	m := projection.NewMemory()
	m.Apply(event.Event{Type: event.TypePlannerNote, Payload: event.PlannerNotePayload{
		Note: "temp", Labels: map[string]string{"scope": "session", "memory_id": "m1", "memory_op": "commit"},
	}})
	m.Apply(event.Event{Type: event.TypePlannerNote, Payload: event.PlannerNotePayload{
		Labels: map[string]string{"scope": "session", "memory_id": "m1", "memory_op": "tombstone"},
	}})

	assert.Empty(t, m.Query(projection.ScopeSession))
}

func TestSupersededMemoryExcludedFromQuery(t *testing.T) {
	m := projection.NewMemory()
	m.Apply(event.Event{Type: event.TypePlannerNote, Payload: event.PlannerNotePayload{
		Note: "v1", Labels: map[string]string{"scope": "agent", "memory_id": "m1", "memory_op": "commit"},
	}})
	m.Apply(event.Event{Type: event.TypePlannerNote, Payload: event.PlannerNotePayload{
		Labels: map[string]string{"scope": "agent", "memory_id": "m1", "memory_op": "supersede", "superseded_by": "m2"},
	}})

	assert.Empty(t, m.Query(projection.ScopeAgent))
}
