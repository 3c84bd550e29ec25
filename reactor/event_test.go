package reactor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestEvent_readReadiness(t *testing.T) {
	base := newTestBase(t)
	r, w := testPipe(t)

	var (
		got []byte
		ev  *Event
	)
	ev, err := base.AddEvent(r, EvRead, func(fd int, what Flags) {
		assert.Equal(t, int(r.Fd()), fd)
		assert.Equal(t, EvRead, what)
		buf := make([]byte, 64)
		n, err := unix.Read(fd, buf)
		require.NoError(t, err)
		got = append(got, buf[:n]...)
		require.NoError(t, ev.Del())
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, EvRead, ev.Pending(EvRead|EvWrite|EvTimeout))

	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)

	assert.Equal(t, StatusNoEvents, base.Dispatch(context.Background()))
	assert.Equal(t, "hello", string(got))
	assert.Equal(t, Flags(0), ev.Pending(EvRead))
}

func TestEvent_writeReadiness(t *testing.T) {
	base := newTestBase(t)
	_, w := testPipe(t)

	var calls int
	ev, err := base.AddEvent(FD(int(w.Fd())), EvWrite, func(fd int, what Flags) {
		calls++
		assert.Equal(t, EvWrite, what)
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, StatusOK, base.Loop(context.Background(), LoopOnce))
	assert.Equal(t, 1, calls)

	require.NoError(t, ev.Del())
	assert.Equal(t, 0, base.NumEvents())
	assert.Equal(t, StatusNoEvents, base.Dispatch(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestEvent_readWithTimeout(t *testing.T) {
	base := newTestBase(t)
	r, w := testPipe(t)

	var results []Flags
	ev, err := base.AddEvent(r, EvRead, func(fd int, what Flags) {
		results = append(results, what)
		if what&EvRead != 0 {
			var buf [8]byte
			_, _ = unix.Read(fd, buf[:])
		}
		if len(results) == 2 {
			base.LoopBreak()
		}
	}, tvPtr(0.05))
	require.NoError(t, err)

	// first the timeout
	require.Equal(t, StatusOK, base.Loop(context.Background(), LoopOnce))
	require.Equal(t, []Flags{EvTimeout}, results)

	// then the data, which resets the timeout
	_, err = w.Write([]byte{1})
	require.NoError(t, err)
	assert.Equal(t, StatusOK, base.Dispatch(context.Background()))
	assert.Equal(t, []Flags{EvTimeout, EvRead}, results)
	assert.Equal(t, EvRead|EvTimeout, ev.Pending(EvRead|EvTimeout))

	tv, scheduled := ev.Timeout()
	assert.True(t, scheduled)
	assert.Equal(t, Timeval{Usec: 50000}, tv)
}

func TestEvent_oneShot(t *testing.T) {
	base := newTestBase(t)

	var calls int
	ev, err := base.NewEvent(-1, EvTimeout, func(fd int, what Flags) {
		calls++
		assert.Equal(t, EvTimeout, what)
	})
	require.NoError(t, err)
	assert.Equal(t, 0, base.NumEvents())

	require.NoError(t, ev.Add(tvPtr(0.001)))
	assert.Equal(t, 1, base.NumEvents())

	assert.Equal(t, StatusNoEvents, base.Dispatch(context.Background()))
	assert.Equal(t, 1, calls)
	assert.Equal(t, Flags(0), ev.Pending(EvTimeout))

	// re-arm
	require.NoError(t, ev.Add(tvPtr(0)))
	assert.Equal(t, StatusNoEvents, base.Dispatch(context.Background()))
	assert.Equal(t, 2, calls)
}

func TestEvent_oneShotReaddedFromCallback(t *testing.T) {
	base := newTestBase(t)

	var (
		calls int
		ev    *Event
	)
	ev, err := base.NewEvent(-1, EvTimeout, func(int, Flags) {
		calls++
		assert.Equal(t, Flags(0), ev.Pending(EvTimeout))
		if calls < 3 {
			require.NoError(t, ev.Add(tvPtr(0)))
		}
	})
	require.NoError(t, err)
	require.NoError(t, ev.Add(tvPtr(0)))

	assert.Equal(t, StatusNoEvents, base.Dispatch(context.Background()))
	assert.Equal(t, 3, calls)
}

func TestEvent_multipleOnOneDescriptor(t *testing.T) {
	base := newTestBase(t)
	r, w := testPipe(t)

	var a, b int
	var evA, evB *Event
	evA, err := base.AddEvent(r, EvRead, func(int, Flags) {
		a++
		require.NoError(t, evA.Del())
	}, nil)
	require.NoError(t, err)
	evB, err = base.AddEvent(r, EvRead, func(int, Flags) {
		b++
		require.NoError(t, evB.Del())
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, base.NumEvents())
	assert.Len(t, base.fds[int(r.Fd())].events, 2)

	_, err = w.Write([]byte{1})
	require.NoError(t, err)

	assert.Equal(t, StatusNoEvents, base.Dispatch(context.Background()))
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
	assert.Empty(t, base.fds)
}

func TestEvent_readAndWriteOnOneDescriptor(t *testing.T) {
	base := newTestBase(t)
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
	})

	var reads, writes int
	rev, err := base.AddEvent(FD(fds[0]), EvRead, func(int, Flags) { reads++ }, nil)
	require.NoError(t, err)
	wev, err := base.AddEvent(FD(fds[0]), EvWrite, func(int, Flags) { writes++ }, nil)
	require.NoError(t, err)
	assert.Equal(t, EvRead|EvWrite, base.fds[fds[0]].mask)

	// only writable
	require.Equal(t, StatusOK, base.Loop(context.Background(), LoopOnce))
	assert.Equal(t, 0, reads)
	assert.Equal(t, 1, writes)

	require.NoError(t, wev.Del())
	assert.Equal(t, EvRead, base.fds[fds[0]].mask)

	_, err = unix.Write(fds[1], []byte{1})
	require.NoError(t, err)
	require.Equal(t, StatusOK, base.Loop(context.Background(), LoopOnce))
	assert.Equal(t, 1, reads)
	assert.Equal(t, 1, writes)

	require.NoError(t, rev.Del())
	assert.Empty(t, base.fds)
}

func TestEvent_edgeTriggerConflict(t *testing.T) {
	base := newTestBase(t)
	r, _ := testPipe(t)
	fd := int(r.Fd())

	lt, err := base.NewEvent(fd, EvRead|EvPersist, func(int, Flags) {})
	require.NoError(t, err)
	require.NoError(t, lt.Add(nil))

	et, err := base.NewEvent(fd, EvRead|EvPersist|EvET, func(int, Flags) {})
	require.NoError(t, err)
	assert.ErrorIs(t, et.Add(nil), ErrEdgeTriggerConflict)
	assert.Equal(t, 1, base.NumEvents())

	require.NoError(t, lt.Del())
	require.NoError(t, et.Add(nil))
	assert.Equal(t, 1, base.NumEvents())
	assert.ErrorIs(t, lt.Add(nil), ErrEdgeTriggerConflict)
}

func TestEvent_edgeTriggered(t *testing.T) {
	base := newTestBase(t)
	r, w := testPipe(t)

	var calls int
	_, err := base.AddEvent(r, EvRead|EvET, func(int, Flags) { calls++ }, nil)
	require.NoError(t, err)

	_, err = w.Write([]byte{1})
	require.NoError(t, err)

	require.Equal(t, StatusOK, base.Loop(context.Background(), LoopOnce))
	assert.Equal(t, 1, calls)

	// not read, but no new edge
	require.Equal(t, StatusOK, base.Loop(context.Background(), LoopNonBlock))
	assert.Equal(t, 1, calls)
}

func TestEvent_Active(t *testing.T) {
	base := newTestBase(t)

	var got []Flags
	ev, err := base.NewEvent(-1, 0, func(fd int, what Flags) {
		got = append(got, what)
	})
	require.NoError(t, err)

	require.NoError(t, ev.Active(EvRead))
	require.NoError(t, ev.Active(EvWrite))
	assert.Equal(t, EvRead|EvWrite, ev.Pending(EvRead|EvWrite))
	assert.Equal(t, 0, base.NumEvents())

	assert.Equal(t, StatusNoEvents, base.Dispatch(context.Background()))
	assert.Equal(t, []Flags{EvRead | EvWrite}, got)
}

func TestEvent_DelWhileActive(t *testing.T) {
	base := newTestBase(t)

	var calls int
	ev, err := base.NewEvent(-1, 0, func(int, Flags) { calls++ })
	require.NoError(t, err)

	require.NoError(t, ev.Active(EvTimeout))
	require.NoError(t, ev.Del())
	assert.Equal(t, Flags(0), ev.Pending(EvTimeout))

	assert.Equal(t, StatusNoEvents, base.Dispatch(context.Background()))
	assert.Equal(t, 0, calls)

	// the stale queue entry is not run after reactivation either
	require.NoError(t, ev.Active(EvTimeout))
	assert.Equal(t, StatusNoEvents, base.Dispatch(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestEvent_DelOtherFromCallback(t *testing.T) {
	base := newTestBase(t)

	var a, b int
	var evB *Event
	_, err := base.AddEvent(nil, EvTimeout, func(int, Flags) {
		a++
		require.NoError(t, evB.Del())
	}, tvPtr(0))
	require.NoError(t, err)
	evB, err = base.AddEvent(nil, EvTimeout, func(int, Flags) { b++ }, tvPtr(0))
	require.NoError(t, err)

	assert.Equal(t, StatusNoEvents, base.Dispatch(context.Background()))
	assert.Equal(t, 1, a)
	assert.Equal(t, 0, b)
}

func TestEvent_Reset(t *testing.T) {
	base := newTestBase(t)
	_, w := testPipe(t)

	var got []Flags
	var ev *Event
	ev, err := base.AddEvent(w, EvWrite, func(fd int, what Flags) {
		got = append(got, what)
		switch len(got) {
		case 1:
			// stop watching, time out instead
			require.NoError(t, ev.Reset(EvPersist, tvPtr(0.001)))
		case 2:
			require.NoError(t, ev.Del())
		}
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, StatusNoEvents, base.Dispatch(context.Background()))
	assert.Equal(t, []Flags{EvWrite, EvTimeout}, got)
	assert.Equal(t, EvPersist, ev.Events())

	timer, err := base.NewEvent(-1, EvTimeout, func(int, Flags) {})
	require.NoError(t, err)
	assert.ErrorIs(t, timer.Reset(EvRead, nil), ErrBadDescriptor)
}

func TestEvent_AddReplacesTimeout(t *testing.T) {
	base := newTestBase(t)

	var fired time.Duration
	start := time.Now()
	ev, err := base.NewEvent(-1, EvTimeout, func(int, Flags) { fired = time.Since(start) })
	require.NoError(t, err)

	require.NoError(t, ev.Add(tvPtr(10)))
	require.NoError(t, ev.Add(tvPtr(0.01)))
	assert.Len(t, base.timers, 1)

	assert.Equal(t, StatusNoEvents, base.Dispatch(context.Background()))
	assert.GreaterOrEqual(t, fired, 10*time.Millisecond)
	assert.Less(t, fired, 5*time.Second)
}

func TestEvent_closedDescriptor(t *testing.T) {
	base := newTestBase(t)
	r, _ := testPipe(t)

	ev, err := base.AddEvent(r, EvRead, func(int, Flags) {}, nil)
	require.NoError(t, err)

	require.NoError(t, r.Close())
	assert.NoError(t, ev.Del())
	assert.Equal(t, 0, base.NumEvents())
}
