package stage

import "fmt"

// Registry loads stage modules by name on demand. The default
// implementation is a static, compile-time-registered map; any equivalent
// loader (e.g. one backed by a plug-in directory) satisfies Registry.
type Registry interface {
	Load(name string) (Module, error)
}

// StaticRegistry is the default Registry: stage modules must be registered
// before use, and registering the same name twice is an error.
type StaticRegistry struct {
	modules map[string]Module
}

// NewStaticRegistry returns an empty registry.
func NewStaticRegistry() *StaticRegistry {
	return &StaticRegistry{modules: make(map[string]Module)}
}

// Register adds a stage module under the given name.
func (r *StaticRegistry) Register(name string, m Module) error {
	if m == nil {
		return fmt.Errorf("stage %q: module is nil", name)
	}
	if _, exists := r.modules[name]; exists {
		return fmt.Errorf("stage %q already registered", name)
	}
	r.modules[name] = m
	return nil
}

// Load implements Registry.
func (r *StaticRegistry) Load(name string) (Module, error) {
	m, ok := r.modules[name]
	if !ok {
		return nil, fmt.Errorf("stage %q not found in registry", name)
	}
	return m, nil
}

// Names returns the registered stage names.
func (r *StaticRegistry) Names() []string {
	out := make([]string, 0, len(r.modules))
	for name := range r.modules {
		out = append(out, name)
	}
	return out
}
