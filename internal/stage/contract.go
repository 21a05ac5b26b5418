// Package stage defines the plug-in contract stage modules must satisfy and
// the registry used to load them by name. The engine is agnostic to what a
// stage computes; it only ever calls through these interfaces.
package stage

import (
	"time"

	"github.com/stagekit-dev/stagekit/internal/configval"
	"github.com/stagekit-dev/stagekit/internal/progress"
)

// Requirements is the declaration a stage produces from Configure: the
// config keys it needs (with optional defaults) and the upstream stages it
// depends on.
type Requirements struct {
	Keys      map[string]*configval.Value
	Upstreams []string
}

// Require is the mutable collector passed into Configure. Stages call Key
// and Upstream any number of times; order does not matter.
type Require interface {
	// Key declares a required config key. def may be nil to mean "no default".
	Key(name string, def *configval.Value)
	// Upstream declares a dependency on another stage by name.
	Upstream(name string)
}

type requireCollector struct {
	req *Requirements
}

// NewRequireCollector returns a Require collector that accumulates into an
// empty Requirements value.
func NewRequireCollector() (Require, *Requirements) {
	req := &Requirements{Keys: map[string]*configval.Value{}}
	return &requireCollector{req: req}, req
}

func (c *requireCollector) Key(name string, def *configval.Value) {
	if existing, ok := c.req.Keys[name]; ok && existing != nil {
		return // first non-nil default for a given key within one stage wins
	}
	c.req.Keys[name] = def
}

func (c *requireCollector) Upstream(name string) {
	for _, existing := range c.req.Upstreams {
		if existing == name {
			return
		}
	}
	c.req.Upstreams = append(c.req.Upstreams, name)
}

// ConfigContext exposes read-only access to a stage's filtered configuration.
type ConfigContext interface {
	Config(key string) (configval.Value, bool)
}

// ExecContext extends ConfigContext with everything Execute needs: upstream
// result/cache access and a progress-tracker factory.
type ExecContext interface {
	ConfigContext
	// Stage returns the persisted result bytes of a declared upstream stage.
	Stage(name string) ([]byte, error)
	// CachePath returns the absolute path of this stage's own cache
	// directory (name == "") or a declared upstream's cache directory.
	CachePath(name string) (string, error)
	// Progress obtains a scoped progress tracker bound to the engine's
	// Progress Service.
	Progress(desc string, total *int, interval time.Duration) (progress.Handle, error)
}

// Configurer is the optional hook a stage implements to declare its
// requirements. A stage without this interface has no required keys and no
// upstreams.
type Configurer interface {
	Configure(r Require)
}

// Verifier is the optional hook returning an opaque version token derived
// purely from the stage's filtered configuration.
type Verifier interface {
	Verify(ctx ConfigContext) (*string, error)
}

// Executor is the mandatory hook that performs the stage's work.
type Executor interface {
	Execute(ctx ExecContext) (any, error)
}

// Module is what the registry hands back for a loaded stage name. The
// engine never assumes a module implements Executor statically: Configure,
// Verify, and Execute are all detected via type assertion. A module that
// does not implement Executor surfaces as NoExecutorError once the engine
// reaches the execute phase for it.
type Module = any
