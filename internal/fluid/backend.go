package fluid

import (
	"errors"
	"fmt"
	"slices"
)

// Registered backend names.
const (
	BackendSequential = "sequential"
	BackendParallel   = "parallel"
	BackendOpenCL     = "opencl"
)

var (
	// ErrUnknownBackend reports a backend name missing from the registry.
	ErrUnknownBackend = errors.New("unknown backend")
	// ErrBackendUnavailable reports a backend that cannot run in this build
	// or on this machine.
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// Backend executes the step pipeline over a solver's state.
type Backend interface {
	Name() string
	Step(st *state, p Params, dt float32) error
	Close() error
}

// BackendFactory constructs a backend for the given configuration.
type BackendFactory func(cfg Config) (Backend, error)

var backends = map[string]BackendFactory{}

// RegisterBackend adds a backend factory under the provided name.
func RegisterBackend(name string, f BackendFactory) {
	if name == "" || f == nil {
		return
	}
	backends[name] = f
}

// Backends lists the registered backend names in sorted order.
func Backends() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func newBackend(cfg Config) (Backend, error) {
	factory, ok := backends[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("%w %q (have %v)", ErrUnknownBackend, cfg.Backend, Backends())
	}
	b, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("starting %s backend: %w", cfg.Backend, err)
	}
	return b, nil
}

// cpuBackend runs the shared kernels through an Executor.
type cpuBackend struct {
	name string
	exec Executor
}

func (b *cpuBackend) Name() string { return b.name }

func (b *cpuBackend) Step(st *state, p Params, dt float32) error {
	st.step(b.exec, p, dt)
	st.velDirty = false
	st.densDirty = false
	return nil
}

func (b *cpuBackend) Close() error { return nil }

func init() {
	RegisterBackend(BackendSequential, func(Config) (Backend, error) {
		return &cpuBackend{name: BackendSequential, exec: sequentialExecutor{}}, nil
	})
	RegisterBackend(BackendParallel, func(cfg Config) (Backend, error) {
		return &cpuBackend{name: BackendParallel, exec: NewExecutor(cfg.Workers)}, nil
	})
}
