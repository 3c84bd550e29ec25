package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/dop251/goja"
	"github.com/luci/go-render/render"
	"github.com/pkg/errors"
)

// repl evaluates lines from rl until EOF, interrupt or "exit", writing
// results to out. Errors are reported, and do not end the session.
func (e *env) repl(rl *readline.Instance, out io.Writer) error {
	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return nil
			}
			return errors.Wrap(err, "readline")
		}
		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "exit":
			return nil
		}
		_, _ = fmt.Fprintln(out, e.eval(line))
	}
}

// eval evaluates a line, rendering the result or error.
func (e *env) eval(line string) string {
	v, err := e.run("<repl>", line)
	if err != nil {
		return "error: " + errors.Cause(err).Error()
	}
	return renderValue(v)
}

func renderValue(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	if _, ok := goja.AssertFunction(v); ok {
		return v.String()
	}
	return render.Render(v.Export())
}
