// Package gojareactor exposes [reactor] event bases to the goja
// JavaScript runtime, in the manner of luaevent's core module.
//
// # Overview
//
// The module is loaded through the [goja_nodejs/require] module system,
// under whatever name the integrator registers it with:
//
//	const core = require('luaevent.core');
//
// # JavaScript API
//
//	core.new()                                      creates an event base
//	base.addevent(sock, mask, cb, timeout?, ...args) arms an event, returning a handle
//	base.loop(flags?)                               runs the loop, returning 0, 1 or -1
//	base.loopexit(seconds?)                         stops the loop once seconds elapse
//	base.loopbreak()                                stops the loop after the current callback
//	base.close()                                    frees the base
//	base.numevents()                                counts pending events
//	handle.del()                                    removes the event
//	handle.pending(mask?)                           reports what the event is pending on
//
// Constants: LEAVE, EV_TIMEOUT, EV_READ, EV_WRITE, EV_PERSIST, EV_ET,
// LOOP_ONCE and LOOP_NONBLOCK. Masks have the same values as libevent.
//
// # Events
//
// The sock argument of addevent is any object with a getfd() method
// returning a file descriptor. A null or undefined sock with a numeric
// timeout creates a pure timer. Every event is persistent: it fires on
// each occurrence until removed.
//
// Callbacks are invoked as cb(base, what, ...args), where what is the mask
// of conditions that occurred. The return value controls the event:
//
//	core.LEAVE        remove the event
//	mask              re-arm with a different mask, keeping the timeout
//	[mask, timeout]   re-arm with a different mask and timeout (<= 0 for none)
//	anything else     leave the event as is
//
// An exception thrown by a callback stops the loop, and is rethrown by
// base.loop().
//
// # Lifetime
//
// A base that becomes unreachable is freed automatically. Pending events
// keep their base reachable, so a base with events pending must be closed
// explicitly, or have its events removed.
//
// [goja_nodejs/require]: https://pkg.go.dev/github.com/dop251/goja_nodejs/require
package gojareactor
