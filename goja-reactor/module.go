package gojareactor

import (
	"context"

	"github.com/dop251/goja"
	"github.com/joeycumines/go-reactor/reactor"
)

// Module exposes [reactor] event bases to a [goja.Runtime]. Each Module
// instance is bound to a single runtime, and every base it creates runs
// its callbacks on whichever goroutine calls base.loop().
type Module struct {
	runtime     *goja.Runtime
	ctx         context.Context
	baseOptions []reactor.Option
	onNewBase   []func(*reactor.Base)
}

// New creates a new [Module] bound to the given [goja.Runtime].
//
// New panics if runtime is nil, as this is a programming error
// (invariant violation). It returns an error if option validation
// fails.
func New(runtime *goja.Runtime, opts ...Option) (*Module, error) {
	if runtime == nil {
		panic("gojareactor: runtime must not be nil")
	}

	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	return &Module{
		runtime:     runtime,
		ctx:         cfg.ctx,
		baseOptions: cfg.baseOptions,
		onNewBase:   cfg.onNewBase,
	}, nil
}

// Runtime returns the [goja.Runtime] this module is bound to.
func (m *Module) Runtime() *goja.Runtime {
	return m.runtime
}

// SetupExports wires the module's JS API onto the given exports object.
// This is equivalent to the setup performed by [Require] but allows
// external consumers to configure exports without the require() mechanism.
func (m *Module) SetupExports(exports *goja.Object) {
	m.setupExports(exports)
}

// setupExports wires the module's JS API onto the given exports object.
//
// Exports:
//   - new: creates an event base
//   - LEAVE: callback result that removes the event
//   - EV_TIMEOUT, EV_READ, EV_WRITE, EV_PERSIST, EV_ET: event masks
//   - LOOP_ONCE, LOOP_NONBLOCK: flags for base.loop
func (m *Module) setupExports(exports *goja.Object) {
	_ = exports.Set("new", m.runtime.ToValue(m.jsNew))
	_ = exports.Set("LEAVE", reactor.Leave)
	_ = exports.Set("EV_TIMEOUT", int(reactor.EvTimeout))
	_ = exports.Set("EV_READ", int(reactor.EvRead))
	_ = exports.Set("EV_WRITE", int(reactor.EvWrite))
	_ = exports.Set("EV_PERSIST", int(reactor.EvPersist))
	_ = exports.Set("EV_ET", int(reactor.EvET))
	_ = exports.Set("LOOP_ONCE", int(reactor.LoopOnce))
	_ = exports.Set("LOOP_NONBLOCK", int(reactor.LoopNonBlock))
}
