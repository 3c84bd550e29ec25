//go:build darwin

package reactor

import (
	"golang.org/x/sys/unix"
)

// poller manages descriptor interest using kqueue (Darwin).
type poller struct {
	kq       int
	eventBuf []unix.Kevent_t
}

// init initializes the kqueue instance.
func (p *poller) init(maxEvents int) error {
	kq, err := unix.Kqueue()
	if err != nil {
		return err
	}
	unix.CloseOnExec(kq)
	p.kq = kq
	p.eventBuf = make([]unix.Kevent_t, maxEvents)
	return nil
}

// close closes the kqueue instance.
func (p *poller) close() error {
	if p.kq < 0 {
		return nil
	}
	err := unix.Close(p.kq)
	p.kq = -1
	return err
}

// update changes the interest for fd from old to next, both of which are
// combinations of EvRead, EvWrite and EvET.
func (p *poller) update(fd int, old, next Flags) error {
	if removed := old &^ next & ioFlags; removed != 0 {
		// errors ignored, the fd may have been closed already
		_, _ = unix.Kevent(p.kq, eventsToKevents(fd, removed, unix.EV_DELETE), nil, nil)
	}
	if next&ioFlags == 0 {
		return nil
	}
	flags := uint16(unix.EV_ADD | unix.EV_ENABLE)
	if next&EvET != 0 {
		flags |= unix.EV_CLEAR
	}
	added := next & ioFlags
	if old&EvET == next&EvET {
		added &^= old
	}
	if added == 0 {
		return nil
	}
	_, err := unix.Kevent(p.kq, eventsToKevents(fd, added, flags), nil, nil)
	return err
}

// wait polls for readiness, calling fn for each ready filter. A negative
// timeout blocks indefinitely. Interruption by a signal is not an error.
func (p *poller) wait(timeoutMs int, fn func(fd int, res Flags)) (int, error) {
	var ts *unix.Timespec
	if timeoutMs >= 0 {
		ts = &unix.Timespec{
			Sec:  int64(timeoutMs / 1000),
			Nsec: int64((timeoutMs % 1000) * 1000000),
		}
	}

	n, err := unix.Kevent(p.kq, nil, p.eventBuf, ts)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	for i := 0; i < n; i++ {
		fn(int(p.eventBuf[i].Ident), keventToEvents(&p.eventBuf[i]))
	}
	return n, nil
}

// eventsToKevents converts Flags to kqueue kevent structures.
func eventsToKevents(fd int, events Flags, flags uint16) []unix.Kevent_t {
	var kevents []unix.Kevent_t

	if events&EvRead != 0 {
		kevents = append(kevents, unix.Kevent_t{
			Ident:  uint64(fd),
			Filter: unix.EVFILT_READ,
			Flags:  flags,
		})
	}

	if events&EvWrite != 0 {
		kevents = append(kevents, unix.Kevent_t{
			Ident:  uint64(fd),
			Filter: unix.EVFILT_WRITE,
			Flags:  flags,
		})
	}

	return kevents
}

// keventToEvents converts a kqueue event to Flags.
func keventToEvents(kev *unix.Kevent_t) Flags {
	if kev.Flags&unix.EV_ERROR != 0 {
		return EvRead | EvWrite
	}
	switch kev.Filter {
	case unix.EVFILT_READ:
		return EvRead
	case unix.EVFILT_WRITE:
		return EvWrite
	}
	return 0
}
