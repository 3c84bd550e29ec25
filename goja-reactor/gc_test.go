package gojareactor

import (
	"runtime"
	"testing"
	"time"

	"github.com/joeycumines/go-reactor/reactor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectUntil runs the garbage collector until cond holds, or gives up.
func collectUntil(cond func() bool) bool {
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			return false
		}
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}
	return true
}

func TestBase_unreachableFreed(t *testing.T) {
	env := newTestEnv(t)

	env.run(t, `
		(function () {
			const b = core.new();
			b.addevent(null, core.EV_TIMEOUT, () => core.LEAVE, 0);
			b.loop();
		})();
	`)

	require.Len(t, env.bases, 1)
	base := env.bases[0]
	assert.True(t, collectUntil(func() bool { return base.State() == reactor.StateFreed }))
}

func TestBase_pendingEventsKeepBaseAlive(t *testing.T) {
	env := newTestEnv(t)

	env.run(t, `
		(function () {
			const b = core.new();
			b.addevent(null, core.EV_TIMEOUT, () => {}, 60);
		})();
	`)

	require.Len(t, env.bases, 1)
	base := env.bases[0]
	for range 5 {
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, reactor.StateIdle, base.State())
	assert.Equal(t, 1, base.NumEvents())
}
