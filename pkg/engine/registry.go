package engine

import (
	"fmt"

	"github.com/rschaeff/dpamengine/pkg/protein"
)

// Registry binds each scheduled step id to its concrete body. Unlike
// stepreg.Descriptor (fixed metadata known at compile time), the set of
// bodies is assembled at startup once the adapters a config selects are
// constructed, so cmd/dpamengine builds one Registry per run.
type Registry struct {
	steps map[protein.StepID]Step
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{steps: make(map[protein.StepID]Step)}
}

// Register adds body under its own StepID. Panics on a nil body or a
// duplicate registration, both of which
// are programming errors caught at startup rather than mid-run.
func (r *Registry) Register(body Step) {
	if body == nil {
		panic("engine: nil step body registered")
	}
	if _, exists := r.steps[body.StepID()]; exists {
		panic(fmt.Sprintf("engine: step %d registered twice", body.StepID()))
	}
	r.steps[body.StepID()] = body
}

// Lookup returns the body registered for step.
func (r *Registry) Lookup(step protein.StepID) (Step, error) {
	body, ok := r.steps[step]
	if !ok {
		return nil, fmt.Errorf("engine: no body registered for step %d", step)
	}
	return body, nil
}
