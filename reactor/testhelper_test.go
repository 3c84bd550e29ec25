package reactor

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestBase(t *testing.T, opts ...Option) *Base {
	t.Helper()
	base, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = base.Free() })
	return base
}

// testPipe returns both ends of a pipe, closed on cleanup.
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

func tvPtr(seconds float64) *Timeval {
	tv := TimevalFromSeconds(seconds)
	return &tv
}
