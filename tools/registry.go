package tools

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Registry maps tool names to executable handles. It is safe for
// concurrent reads after registration freezes (the orchestrator registers
// tools once at construction time and then only reads).
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register inserts t by its Definition().Name. A later registration with
// the same name overwrites the earlier one.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Definition().Name] = t
}

// Get returns the tool registered under name, if any.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Definitions enumerates all registered tool definitions, for transmission
// to a provider.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.Definition())
	}
	return out
}

// ValidateInput compiles def.InputSchema (if present) and validates input
// against it, returning a descriptive error on the first violation. A tool
// with no InputSchema accepts any input.
func ValidateInput(def Definition, input json.RawMessage) error {
	if len(def.InputSchema) == 0 {
		return nil
	}
	var schemaDoc any
	if err := json.Unmarshal(def.InputSchema, &schemaDoc); err != nil {
		return fmt.Errorf("tool %q: unmarshal input schema: %w", def.Name, err)
	}
	var inputDoc any
	if err := json.Unmarshal(input, &inputDoc); err != nil {
		return fmt.Errorf("tool %q: unmarshal input: %w", def.Name, err)
	}

	c := jsonschema.NewCompiler()
	resource := "tool:" + def.Name
	if err := c.AddResource(resource, schemaDoc); err != nil {
		return fmt.Errorf("tool %q: add schema resource: %w", def.Name, err)
	}
	schema, err := c.Compile(resource)
	if err != nil {
		return fmt.Errorf("tool %q: compile input schema: %w", def.Name, err)
	}
	if err := schema.Validate(inputDoc); err != nil {
		return fmt.Errorf("tool %q: input validation: %w", def.Name, err)
	}
	return nil
}
