package tools

import "fmt"

// Registry is the read-only tool catalog. It is built once at startup and
// shared by the executor, the HTTP handlers and the CLI.
type Registry struct {
	tools []Tool
	index map[string]int
}

// NewRegistry builds a registry preserving registration order.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{
		tools: make([]Tool, 0, len(tools)),
		index: make(map[string]int, len(tools)),
	}
	for _, t := range tools {
		if t.Name == "" {
			return nil, fmt.Errorf("tool name is empty")
		}
		if t.Execute == nil {
			return nil, fmt.Errorf("tool %s has no implementation", t.Name)
		}
		if _, exists := r.index[t.Name]; exists {
			return nil, fmt.Errorf("tool %s already registered", t.Name)
		}
		r.index[t.Name] = len(r.tools)
		r.tools = append(r.tools, t)
	}
	return r, nil
}

// Definitions lists the catalog in registration order.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, len(r.tools))
	for i, t := range r.tools {
		defs[i] = t.Definition()
	}
	return defs
}

// Resolve looks up a tool by name.
func (r *Registry) Resolve(name string) (Tool, bool) {
	i, ok := r.index[name]
	if !ok {
		return Tool{}, false
	}
	return r.tools[i], true
}

func (r *Registry) Len() int {
	return len(r.tools)
}
