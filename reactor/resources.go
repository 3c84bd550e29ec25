package reactor

import (
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// baseResources holds the OS resources of a Base. It is referenced only by
// its Base, and is what the GC cleanup of an unreachable Base releases, so it
// must never point back to the Base.
type baseResources struct {
	poller      poller
	mu          sync.RWMutex // guards the wake fds against close
	wakeR       int
	wakeW       int
	wakePending atomic.Bool
	closed      bool
	wakeBuf     [8]byte
}

func newBaseResources(maxEventsPerPoll int) (*baseResources, error) {
	r := &baseResources{wakeR: -1, wakeW: -1}

	if err := r.poller.init(maxEventsPerPoll); err != nil {
		return nil, err
	}

	wakeR, wakeW, err := createWakeFd()
	if err != nil {
		_ = r.poller.close()
		return nil, err
	}
	r.wakeR, r.wakeW = wakeR, wakeW

	if err := r.poller.update(wakeR, 0, EvRead); err != nil {
		_ = r.close()
		return nil, err
	}

	return r, nil
}

// wake interrupts a blocking poll. Wake-ups coalesce until drained.
func (r *baseResources) wake() error {
	if !r.wakePending.CompareAndSwap(false, true) {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return ErrBaseFreed
	}

	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	_, err := unix.Write(r.wakeW, buf[:])
	if err == unix.EAGAIN {
		// full pipe, the poll will wake regardless
		return nil
	}
	if err != nil {
		r.wakePending.Store(false)
	}
	return err
}

func (r *baseResources) drainWake() {
	for {
		if _, err := unix.Read(r.wakeR, r.wakeBuf[:]); err != nil {
			break
		}
	}
	r.wakePending.Store(false)
}

// close is idempotent.
func (r *baseResources) close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	if r.wakeR >= 0 {
		errs = append(errs, unix.Close(r.wakeR))
	}
	if r.wakeW >= 0 && r.wakeW != r.wakeR {
		errs = append(errs, unix.Close(r.wakeW))
	}
	r.wakeR, r.wakeW = -1, -1
	errs = append(errs, r.poller.close())

	return errors.Join(errs...)
}
