package projection

import "github.com/arcanrun/arcane/event"

// Scope is the closed set of memory scopes a committed memory belongs to.
type Scope string

const (
	ScopeSession Scope = "session"
	ScopeUser    Scope = "user"
	ScopeAgent   Scope = "agent"
	ScopeOrg     Scope = "org"
)

// MemoryRecord is one committed memory tracked by the memory projection.
type MemoryRecord struct {
	ID         string
	Scope      Scope
	Content    string
	Tombstoned bool
	// SupersededBy is the id of the record that replaced this one, if any.
	SupersededBy string
}

// Memory folds PlannerNote events into per-scope observation counts and a
// table of committed memories. It is optional: an orchestrator that never
// emits PlannerNote events produces an empty Memory, and nothing else in
// the core depends on it.
type Memory struct {
	Observations map[Scope]int
	records      map[string]*MemoryRecord
}

// NewMemory returns an empty memory projection.
func NewMemory() *Memory {
	return &Memory{Observations: make(map[Scope]int), records: make(map[string]*MemoryRecord)}
}

// Apply folds one event into the memory projection. Only PlannerNote events
// carry memory-scoped information; commit/supersede/tombstone operations
// are expressed through the note's Labels (a concrete memory backend is an
// external collaborator — this projection only tracks the bookkeeping the
// core itself is responsible for).
func (m *Memory) Apply(ev event.Event) {
	note, ok := ev.Payload.(event.PlannerNotePayload)
	if !ok {
		return
	}
	scope := Scope(note.Labels["scope"])
	if scope == "" {
		scope = ScopeSession
	}
	m.Observations[scope]++

	id := note.Labels["memory_id"]
	if id == "" {
		return
	}
	switch note.Labels["memory_op"] {
	case "commit":
		m.records[id] = &MemoryRecord{ID: id, Scope: scope, Content: note.Note}
	case "tombstone":
		if r, ok := m.records[id]; ok {
			r.Tombstoned = true
		}
	case "supersede":
		if r, ok := m.records[id]; ok {
			r.SupersededBy = note.Labels["superseded_by"]
		}
	}
}

// Query returns all non-tombstoned, non-superseded records in scope.
func (m *Memory) Query(scope Scope) []MemoryRecord {
	out := make([]MemoryRecord, 0, len(m.records))
	for _, r := range m.records {
		if r.Scope != scope || r.Tombstoned || r.SupersededBy != "" {
			continue
		}
		out = append(out, *r)
	}
	return out
}
