// Package appstate implements the versioned, schema-open JSON document that
// middleware and tools mutate via typed patches. The document itself stays
// free-form (interface{}-backed) so new well-known keys can be introduced
// without a migration; typed accessors are layered on top for the handful
// of keys the orchestrator and context assembler care about.
package appstate

import (
	"encoding/json"

	"github.com/arcanrun/arcane/orcherr"
)

// PatchFormat selects the patch semantics ApplyPatch uses.
type PatchFormat string

const (
	// FormatJSONPatch applies an RFC 6902 array-of-operations patch.
	FormatJSONPatch PatchFormat = "json_patch"
	// FormatMergePatch applies an RFC 7396 recursive merge patch, where null
	// values delete keys.
	FormatMergePatch PatchFormat = "merge_patch"
)

// PatchSource identifies who produced a patch, for audit/telemetry.
type PatchSource string

const (
	SourceModel  PatchSource = "model"
	SourceTool   PatchSource = "tool"
	SourceSystem PatchSource = "system"
)

// Patch carries a patch document plus the format it should be applied with.
type Patch struct {
	Format PatchFormat
	Patch  json.RawMessage
	Source PatchSource
}

// AppState is the versioned JSON document mutated exclusively through
// ApplyPatch.
//
// Invariant: Revision changes only on a successful ApplyPatch; a failed
// apply leaves both Data and Revision untouched.
type AppState struct {
	Revision uint64
	Data     map[string]any
}

// New returns an AppState at revision 0 with an empty document.
func New() *AppState {
	return &AppState{Data: map[string]any{}}
}

// ApplyPatch applies p to s.Data and increments s.Revision by one
// (saturating at the maximum uint64) on success. On failure, s is left
// unchanged and an *orcherr.Error with Code CodeState is returned.
func (s *AppState) ApplyPatch(p Patch) error {
	switch p.Format {
	case FormatMergePatch:
		return s.applyMergePatch(p.Patch)
	case FormatJSONPatch:
		return s.applyJSONPatch(p.Patch)
	default:
		return orcherr.New(orcherr.CodeState, "unknown patch format: "+string(p.Format))
	}
}

func (s *AppState) applyMergePatch(raw json.RawMessage) error {
	var delta map[string]any
	if err := json.Unmarshal(raw, &delta); err != nil {
		return orcherr.Wrap(orcherr.CodeState, "invalid merge patch", err)
	}
	next := deepCopyMap(s.Data)
	mergeInto(next, delta)
	s.Data = next
	s.bumpRevision()
	return nil
}

func mergeInto(dst, delta map[string]any) {
	for k, v := range delta {
		if v == nil {
			delete(dst, k)
			continue
		}
		if sub, ok := v.(map[string]any); ok {
			existing, _ := dst[k].(map[string]any)
			if existing == nil {
				existing = map[string]any{}
			} else {
				existing = deepCopyMap(existing)
			}
			mergeInto(existing, sub)
			dst[k] = existing
			continue
		}
		dst[k] = v
	}
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

// deepCopyValue recursively copies the JSON-decoded shapes a patch or
// AppState.Data value can hold (map[string]any, []any, scalars). Scalars are
// immutable and copied by value; map and slice leaves must be copied too, or
// an in-place array/object mutation downstream (e.g. jsonpatch's replace and
// remove operations) leaks through a shared backing array into the original.
func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}

func (s *AppState) bumpRevision() {
	if s.Revision < ^uint64(0) {
		s.Revision++
	}
}

// Cwd returns the well-known "cwd" string key, if present.
func (s *AppState) Cwd() (string, bool) {
	v, ok := s.Data["cwd"].(string)
	return v, ok
}

// OpenFiles returns the well-known "open_files" string-slice key, if present.
func (s *AppState) OpenFiles() ([]string, bool) {
	raw, ok := s.Data["open_files"].([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if str, ok := v.(string); ok {
			out = append(out, str)
		}
	}
	return out, true
}

// ActiveSkills returns the well-known "active_skills" string-slice key, if present.
func (s *AppState) ActiveSkills() ([]string, bool) {
	raw, ok := s.Data["active_skills"].([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if str, ok := v.(string); ok {
			out = append(out, str)
		}
	}
	return out, true
}

// Budget returns the well-known "budget" key as a generic map, if present.
func (s *AppState) Budget() (map[string]any, bool) {
	v, ok := s.Data["budget"].(map[string]any)
	return v, ok
}

// Clone returns a deep copy of s, useful for snapshotting before handing
// state to a provider request.
func (s *AppState) Clone() *AppState {
	return &AppState{Revision: s.Revision, Data: deepCopyMap(s.Data)}
}
