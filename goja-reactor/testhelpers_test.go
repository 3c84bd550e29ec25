package gojareactor

import (
	"os"
	"sync"
	"testing"

	"github.com/dop251/goja"
	"github.com/joeycumines/go-reactor/reactor"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// testEnv is a runtime with the module bound to the global `core`.
type testEnv struct {
	runtime *goja.Runtime
	module  *Module

	mu    sync.Mutex
	bases []*reactor.Base
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	env := &testEnv{runtime: goja.New()}

	opts = append(opts, WithOnNewBase(func(base *reactor.Base) {
		env.mu.Lock()
		env.bases = append(env.bases, base)
		env.mu.Unlock()
	}))

	m, err := New(env.runtime, opts...)
	require.NoError(t, err)
	env.module = m

	exports := env.runtime.NewObject()
	m.SetupExports(exports)
	require.NoError(t, env.runtime.Set("core", exports))

	t.Cleanup(func() {
		env.mu.Lock()
		defer env.mu.Unlock()
		for _, base := range env.bases {
			_ = base.Free()
		}
	})

	return env
}

// run evaluates script, returning its completion value as a string.
func (e *testEnv) run(t *testing.T, script string) string {
	t.Helper()
	v, err := e.runtime.RunString(script)
	require.NoError(t, err)
	return v.String()
}

func (e *testEnv) set(t *testing.T, name string, value any) {
	t.Helper()
	require.NoError(t, e.runtime.Set(name, value))
}

func testPipe(t *testing.T) (r, w *os.File) {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = r.Close()
		_ = w.Close()
	})
	return r, w
}

func testSocketpair(t *testing.T) (a, b int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
	})
	return fds[0], fds[1]
}
