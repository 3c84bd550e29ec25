package gojareactor

import (
	"errors"
	"runtime"

	"github.com/dop251/goja"
	"github.com/joeycumines/go-reactor/reactor"
)

// baseHandle is the JS face of a [reactor.Base].
type baseHandle struct {
	module *Module
	base   *reactor.Base
	obj    *goja.Object
	// err is the first error raised by a callback during the running loop,
	// rethrown by base.loop()
	err error
}

// jsNew implements new(), returning a base object with the methods
// addevent, loop, loopexit, loopbreak, close and numevents.
func (m *Module) jsNew(call goja.FunctionCall) goja.Value {
	base, err := reactor.New(m.baseOptions...)
	if err != nil {
		panic(m.runtime.NewGoError(err))
	}
	for _, fn := range m.onNewBase {
		fn(base)
	}

	h := &baseHandle{
		module: m,
		base:   base,
		obj:    m.runtime.NewObject(),
	}
	_ = h.obj.Set("addevent", h.jsAddEvent)
	_ = h.obj.Set("loop", h.jsLoop)
	_ = h.obj.Set("loopexit", h.jsLoopExit)
	_ = h.obj.Set("loopbreak", h.jsLoopBreak)
	_ = h.obj.Set("close", h.jsClose)
	_ = h.obj.Set("numevents", h.jsNumEvents)

	// pending events reference the object, so it stays alive until they
	// are removed, or the base is closed
	runtime.AddCleanup(h.obj, func(b *reactor.Base) { _ = b.Free() }, base)

	return h.obj
}

// jsAddEvent implements base.addevent(target, mask, callback, timeout?, ...extra).
func (h *baseHandle) jsAddEvent(call goja.FunctionCall) goja.Value {
	rt := h.module.runtime

	target := call.Argument(0)
	n, ok := numberArg(call.Argument(1))
	if !ok {
		panic(rt.NewTypeError("addevent: event mask must be a number"))
	}
	mask, err := parseMask(n)
	if err != nil {
		panic(rt.NewTypeError(err.Error()))
	}
	fn, ok := goja.AssertFunction(call.Argument(2))
	if !ok {
		panic(rt.NewTypeError("addevent: callback must be a function"))
	}

	var timeout *reactor.Timeval
	if seconds, ok := numberArg(call.Argument(3)); ok {
		tv := reactor.TimevalFromSeconds(seconds)
		timeout = &tv
	}

	var extra []goja.Value
	if len(call.Arguments) > 4 {
		extra = append(extra, call.Arguments[4:]...)
	}

	// nil target: pure timer
	var desc reactor.Descriptor
	if !isNullish(target) || timeout == nil {
		desc = h.descriptorOf(target)
	}

	c := &closure{
		handle:  h,
		fn:      fn,
		extra:   extra,
		timeout: timeout,
	}

	if c.event, err = h.base.AddEvent(desc, mask, c.invoke, timeout); err != nil {
		h.throw(err)
	}

	return c.object()
}

// descriptorOf calls target.getfd(), the capability required of sockets.
func (h *baseHandle) descriptorOf(target goja.Value) reactor.Descriptor {
	rt := h.module.runtime
	var getfd goja.Callable
	if obj, ok := target.(*goja.Object); ok {
		getfd, _ = goja.AssertFunction(obj.Get("getfd"))
	}
	if getfd == nil {
		panic(rt.NewTypeError("socket type missing 'getfd' method"))
	}
	v, err := getfd(target)
	if err != nil {
		panic(err)
	}
	return reactor.FD(v.ToInteger())
}

// jsLoop implements base.loop(flags?), returning the status code.
func (h *baseHandle) jsLoop(call goja.FunctionCall) goja.Value {
	var flags reactor.LoopFlags
	if v := call.Argument(0); !isNullish(v) {
		flags = reactor.LoopFlags(v.ToInteger())
	}

	status := h.base.Loop(h.module.ctx, flags)

	if h.base.State() != reactor.StateLooping {
		if err := h.err; err != nil {
			h.err = nil
			h.throw(err)
		}
	}

	return h.module.runtime.ToValue(status)
}

func (h *baseHandle) jsLoopExit(call goja.FunctionCall) goja.Value {
	seconds, _ := numberArg(call.Argument(0))
	h.base.LoopExit(reactor.TimevalFromSeconds(seconds).Duration())
	return goja.Undefined()
}

func (h *baseHandle) jsLoopBreak(call goja.FunctionCall) goja.Value {
	h.base.LoopBreak()
	return goja.Undefined()
}

// jsClose implements base.close(), freeing the base. Closing twice is a
// no-op.
func (h *baseHandle) jsClose(call goja.FunctionCall) goja.Value {
	if err := h.base.Free(); err != nil {
		h.throw(err)
	}
	return goja.Undefined()
}

func (h *baseHandle) jsNumEvents(call goja.FunctionCall) goja.Value {
	return h.module.runtime.ToValue(h.base.NumEvents())
}

// fail records err, to be rethrown by base.loop(), and stops the loop.
func (h *baseHandle) fail(err error) {
	if h.err == nil {
		h.err = err
	}
	h.base.LoopBreak()
}

// throw raises err in the runtime, as is if it came from JS.
func (h *baseHandle) throw(err error) {
	var (
		exception   *goja.Exception
		interrupted *goja.InterruptedError
	)
	if errors.As(err, &exception) {
		panic(exception)
	}
	if errors.As(err, &interrupted) {
		panic(interrupted)
	}
	panic(h.module.runtime.NewGoError(err))
}

func isNullish(v goja.Value) bool {
	return v == nil || goja.IsUndefined(v) || goja.IsNull(v)
}

// numberArg returns the value of v if it is a JS number.
func numberArg(v goja.Value) (float64, bool) {
	if v == nil {
		return 0, false
	}
	switch n := v.Export().(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
