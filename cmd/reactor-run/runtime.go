package main

import (
	"context"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/require"
	gojareactor "github.com/joeycumines/go-reactor/goja-reactor"
	"github.com/joeycumines/go-reactor/promreactor"
	"github.com/joeycumines/go-reactor/reactor"
	"github.com/joeycumines/logiface"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// env is a configured runtime, with the reactor module, console and stdio.
type env struct {
	runtime *goja.Runtime
	logger  *logiface.Logger[logiface.Event]
}

func newEnv(ctx context.Context, cfg *config, logger *logiface.Logger[logiface.Event], collector *promreactor.Collector) (*env, error) {
	baseOptions := []reactor.Option{
		reactor.WithLogger(logger),
		reactor.WithMaxEventsPerPoll(cfg.MaxEventsPerPoll),
		reactor.WithMetrics(collector != nil),
	}
	if len(cfg.LogRateLimits) != 0 {
		rates := make(map[time.Duration]int, len(cfg.LogRateLimits))
		for window, count := range cfg.LogRateLimits {
			d, err := time.ParseDuration(window)
			if err != nil {
				return nil, errors.Wrapf(err, "log rate limit window %q", window)
			}
			rates[d] = count
		}
		baseOptions = append(baseOptions, reactor.WithLogRateLimits(rates))
	}

	moduleOptions := []gojareactor.Option{
		gojareactor.WithContext(ctx),
		gojareactor.WithBaseOptions(baseOptions...),
	}
	if collector != nil {
		moduleOptions = append(moduleOptions, gojareactor.WithOnNewBase(collector.Track))
	}

	registry := require.NewRegistry()
	registry.RegisterNativeModule(cfg.ModuleName, gojareactor.Require(moduleOptions...))
	registry.RegisterNativeModule(console.ModuleName, console.RequireWithPrinter(consolePrinter{logger: logger}))

	e := &env{
		runtime: goja.New(),
		logger:  logger,
	}
	registry.Enable(e.runtime)
	console.Enable(e.runtime)

	if err := e.runtime.Set("stdio", e.stdio()); err != nil {
		return nil, errors.Wrap(err, "set stdio")
	}

	return e, nil
}

// run evaluates a script, named for stack traces.
func (e *env) run(name, src string) (goja.Value, error) {
	v, err := e.runtime.RunScript(name, src)
	if err != nil {
		return nil, errors.Wrapf(err, "run %s", name)
	}
	return v, nil
}

// stdio builds the stdio global: socket-like stdin, stdout and stderr
// objects, plus read(fd, n) and write(fd, s) on raw descriptors.
func (e *env) stdio() *goja.Object {
	rt := e.runtime
	obj := rt.NewObject()

	for name, fd := range map[string]int{
		"stdin":  unix.Stdin,
		"stdout": unix.Stdout,
		"stderr": unix.Stderr,
	} {
		sock := rt.NewObject()
		_ = sock.Set("fd", fd)
		_ = sock.Set("getfd", func(goja.FunctionCall) goja.Value { return rt.ToValue(fd) })
		_ = obj.Set(name, sock)
	}

	// read returns null at EOF
	_ = obj.Set("read", func(call goja.FunctionCall) goja.Value {
		fd := int(call.Argument(0).ToInteger())
		n := 4096
		if v := call.Argument(1); !goja.IsUndefined(v) {
			n = int(v.ToInteger())
		}
		if n <= 0 {
			panic(rt.NewTypeError("read: size must be positive"))
		}
		buf := make([]byte, n)
		n, err := unix.Read(fd, buf)
		if err != nil {
			panic(rt.NewGoError(errors.Wrapf(err, "read fd %d", fd)))
		}
		if n == 0 {
			return goja.Null()
		}
		return rt.ToValue(string(buf[:n]))
	})

	_ = obj.Set("write", func(call goja.FunctionCall) goja.Value {
		fd := int(call.Argument(0).ToInteger())
		n, err := unix.Write(fd, []byte(call.Argument(1).String()))
		if err != nil {
			panic(rt.NewGoError(errors.Wrapf(err, "write fd %d", fd)))
		}
		return rt.ToValue(n)
	})

	return obj
}

// consolePrinter writes console output to the logger.
type consolePrinter struct {
	logger *logiface.Logger[logiface.Event]
}

func (p consolePrinter) Log(s string) { p.logger.Info().Str("source", "console").Log(s) }

func (p consolePrinter) Warn(s string) { p.logger.Warning().Str("source", "console").Log(s) }

func (p consolePrinter) Error(s string) { p.logger.Err().Str("source", "console").Log(s) }
