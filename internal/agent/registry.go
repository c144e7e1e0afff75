package agent

import (
	"context"
	"fmt"
)

// Handler executes an action with the arguments the model supplied.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Property describes one action parameter for the model.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Schema is the JSON-schema shape of an action's parameters.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// ObjectSchema builds a parameter schema from properties plus the names
// of the required ones.
func ObjectSchema(props map[string]Property, required ...string) Schema {
	return Schema{Type: "object", Properties: props, Required: required}
}

// Action is one operation the model may invoke. Terminal actions end
// the agent run.
type Action struct {
	Name        string
	Description string
	Parameters  Schema
	Handler     Handler
	Terminal    bool
}

// Registry is a fixed name to action mapping, assembled once at startup.
// There is no runtime registration.
type Registry struct {
	actions map[string]Action
	order   []string
}

// NewRegistry builds a registry from the given actions and validates it.
func NewRegistry(actions ...Action) (*Registry, error) {
	r := &Registry{actions: make(map[string]Action, len(actions))}
	for _, a := range actions {
		if _, exists := r.actions[a.Name]; exists {
			return nil, fmt.Errorf("duplicate action name %q", a.Name)
		}
		r.actions[a.Name] = a
		r.order = append(r.order, a.Name)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks that every action is complete enough to expose to the
// model and that at least one action can end a run.
func (r *Registry) Validate() error {
	terminal := false
	for _, name := range r.order {
		a := r.actions[name]
		if a.Name == "" {
			return fmt.Errorf("action with empty name")
		}
		if a.Handler == nil {
			return fmt.Errorf("action %q has no handler", a.Name)
		}
		for _, req := range a.Parameters.Required {
			if _, ok := a.Parameters.Properties[req]; !ok {
				return fmt.Errorf("action %q requires parameter %q that is not declared", a.Name, req)
			}
		}
		if a.Terminal {
			terminal = true
		}
	}
	if !terminal {
		return fmt.Errorf("no terminal action registered")
	}
	return nil
}

// Get returns the named action.
func (r *Registry) Get(name string) (Action, bool) {
	a, ok := r.actions[name]
	return a, ok
}

// Actions returns all actions in registration order.
func (r *Registry) Actions() []Action {
	out := make([]Action, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.actions[name])
	}
	return out
}
