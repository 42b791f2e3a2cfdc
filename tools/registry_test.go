package tools_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcanrun/arcane/tools"
)

type echoTool struct{}

func (echoTool) Definition() tools.Definition {
	return tools.Definition{
		Name:        "echo",
		Description: "echoes the input",
		InputSchema: json.RawMessage(`{"type":"object","required":["value"],"properties":{"value":{"type":"string"}}}`),
	}
}

func (echoTool) Execute(_ context.Context, call tools.Call, _ tools.Context) (tools.Result, error) {
	return tools.Result{CallID: call.CallID, ToolName: "echo", Output: call.Input}, nil
}

func TestRegistryRegisterGetDefinitions(t *testing.T) {
	r := tools.NewRegistry()
	r.Register(echoTool{})

	got, ok := r.Get("echo")
	require.True(t, ok)
	assert.Equal(t, "echo", got.Definition().Name)

	defs := r.Definitions()
	require.Len(t, defs, 1)
	assert.Equal(t, "echo", defs[0].Name)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegisterOverwritesByName(t *testing.T) {
	r := tools.NewRegistry()
	r.Register(echoTool{})
	r.Register(echoTool{})
	assert.Len(t, r.Definitions(), 1)
}

func TestValidateInputRejectsMissingRequiredField(t *testing.T) {
	def := echoTool{}.Definition()
	err := tools.ValidateInput(def, json.RawMessage(`{}`))
	assert.Error(t, err)

	err = tools.ValidateInput(def, json.RawMessage(`{"value":"hi"}`))
	assert.NoError(t, err)
}

func TestValidateInputNoSchemaAcceptsAnything(t *testing.T) {
	def := tools.Definition{Name: "noop"}
	err := tools.ValidateInput(def, json.RawMessage(`{"anything":1}`))
	assert.NoError(t, err)
}
