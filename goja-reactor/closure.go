package gojareactor

import (
	"fmt"
	"math"

	"github.com/dop251/goja"
	"github.com/joeycumines/go-reactor/reactor"
)

// closure bridges a [reactor.Event] to its JS callback. The event's
// callback references the closure, so the base keeps it alive for as long
// as the event is pending or active.
type closure struct {
	handle  *baseHandle
	event   *reactor.Event
	fn      goja.Callable
	extra   []goja.Value
	timeout *reactor.Timeval
}

// object returns the JS handle for the closure, with del() and
// pending(what?).
func (c *closure) object() *goja.Object {
	rt := c.handle.module.runtime
	obj := rt.NewObject()
	_ = obj.Set("del", func(call goja.FunctionCall) goja.Value {
		if err := c.event.Del(); err != nil {
			c.handle.throw(err)
		}
		return goja.Undefined()
	})
	_ = obj.Set("pending", func(call goja.FunctionCall) goja.Value {
		what := reactor.EvTimeout | reactor.EvRead | reactor.EvWrite
		if v := call.Argument(0); !isNullish(v) {
			what = reactor.Flags(v.ToInteger())
		}
		return rt.ToValue(int(c.event.Pending(what)))
	})
	return obj
}

// invoke calls the JS callback as callback(base, what, ...extra), then
// applies its result. An exception stops the loop.
func (c *closure) invoke(_ int, what reactor.Flags) {
	h := c.handle
	rt := h.module.runtime

	args := make([]goja.Value, 0, 2+len(c.extra))
	args = append(args, h.obj, rt.ToValue(int(what)))
	args = append(args, c.extra...)

	ret, err := c.fn(goja.Undefined(), args...)
	if err != nil {
		h.fail(err)
		return
	}
	if err := c.apply(ret); err != nil {
		h.fail(err)
	}
}

// apply handles the result of the callback:
//
//   - LEAVE removes the event
//   - a mask other than the registered one re-arms the event with it
//   - [mask, timeout] re-arms the event with both, timeout <= 0 for none,
//     and [mask] keeps the current timeout
//   - anything else leaves the event as is
func (c *closure) apply(ret goja.Value) error {
	if obj, ok := ret.(*goja.Object); ok && obj.ClassName() == "Array" {
		n, ok := numberArg(obj.Get("0"))
		if !ok {
			return nil
		}
		mask, err := parseMask(n)
		if err != nil {
			return err
		}
		if seconds, ok := numberArg(obj.Get("1")); ok {
			c.timeout = nil
			if seconds > 0 {
				tv := reactor.TimevalFromSeconds(seconds)
				c.timeout = &tv
			}
		}
		return c.event.Reset(mask|reactor.EvPersist, c.timeout)
	}

	n, ok := numberArg(ret)
	if !ok {
		return nil
	}
	if int64(n) == reactor.Leave {
		return c.event.Del()
	}
	mask, err := parseMask(n)
	if err != nil {
		return err
	}
	if mask |= reactor.EvPersist; mask != c.event.Events() {
		return c.event.Reset(mask, c.timeout)
	}
	return nil
}

// validMask is every flag a JS mask may carry.
const validMask = reactor.EvTimeout | reactor.EvRead | reactor.EvWrite | reactor.EvPersist | reactor.EvET

func parseMask(n float64) (reactor.Flags, error) {
	if n < 0 || n > float64(validMask) || n != math.Trunc(n) || reactor.Flags(n)&^validMask != 0 {
		return 0, fmt.Errorf("gojareactor: invalid event mask %v", n)
	}
	return reactor.Flags(n), nil
}
