package appstate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcanrun/arcane/appstate"
)

func TestMergePatchDeletesOnNull(t *testing.T) {
	s := appstate.New()
	require.NoError(t, s.ApplyPatch(appstate.Patch{
		Format: appstate.FormatMergePatch,
		Patch:  []byte(`{"cwd": "/tmp", "budget": {"tokens": 100}}`),
		Source: appstate.SourceTool,
	}))
	assert.Equal(t, uint64(1), s.Revision)
	cwd, ok := s.Cwd()
	assert.True(t, ok)
	assert.Equal(t, "/tmp", cwd)

	require.NoError(t, s.ApplyPatch(appstate.Patch{
		Format: appstate.FormatMergePatch,
		Patch:  []byte(`{"cwd": null}`),
		Source: appstate.SourceTool,
	}))
	assert.Equal(t, uint64(2), s.Revision)
	_, ok = s.Cwd()
	assert.False(t, ok)
}

func TestJSONPatchAddAndReplace(t *testing.T) {
	s := appstate.New()
	require.NoError(t, s.ApplyPatch(appstate.Patch{
		Format: appstate.FormatJSONPatch,
		Patch:  []byte(`[{"op":"add","path":"/open_files","value":["a.go"]}]`),
	}))
	files, ok := s.OpenFiles()
	require.True(t, ok)
	assert.Equal(t, []string{"a.go"}, files)

	require.NoError(t, s.ApplyPatch(appstate.Patch{
		Format: appstate.FormatJSONPatch,
		Patch:  []byte(`[{"op":"add","path":"/open_files/-","value":"b.go"}]`),
	}))
	files, _ = s.OpenFiles()
	assert.Equal(t, []string{"a.go", "b.go"}, files)
}

func TestInvalidPatchLeavesStateUnchanged(t *testing.T) {
	s := appstate.New()
	require.NoError(t, s.ApplyPatch(appstate.Patch{
		Format: appstate.FormatMergePatch,
		Patch:  []byte(`{"cwd":"/tmp"}`),
	}))
	before := s.Clone()

	err := s.ApplyPatch(appstate.Patch{
		Format: appstate.FormatJSONPatch,
		Patch:  []byte(`[{"op":"replace","path":"/missing/nested","value":1}]`),
	})
	assert.Error(t, err)
	assert.Equal(t, before.Revision, s.Revision)
	assert.Equal(t, before.Data, s.Data)
}

func TestInvalidMultiOpPatchLeavesArrayUnchanged(t *testing.T) {
	s := appstate.New()
	require.NoError(t, s.ApplyPatch(appstate.Patch{
		Format: appstate.FormatJSONPatch,
		Patch:  []byte(`[{"op":"add","path":"/open_files","value":["a.go","b.go"]}]`),
	}))
	before := s.Clone()

	// The first op replaces an existing array element; the second op then
	// fails. Both ops apply to the same ApplyPatch call, so the whole patch
	// must be rejected and s.Data's array must come back untouched,
	// including the element the first op rewrote in place.
	err := s.ApplyPatch(appstate.Patch{
		Format: appstate.FormatJSONPatch,
		Patch:  []byte(`[{"op":"replace","path":"/open_files/0","value":"z.go"},{"op":"replace","path":"/missing/nested","value":1}]`),
	})
	assert.Error(t, err)
	assert.Equal(t, before.Revision, s.Revision)
	assert.Equal(t, before.Data, s.Data)

	files, _ := s.OpenFiles()
	assert.Equal(t, []string{"a.go", "b.go"}, files)
}

func TestUnknownFormatRejected(t *testing.T) {
	s := appstate.New()
	err := s.ApplyPatch(appstate.Patch{Format: "bogus", Patch: []byte(`{}`)})
	assert.Error(t, err)
	assert.Equal(t, uint64(0), s.Revision)
}
