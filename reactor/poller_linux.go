//go:build linux

package reactor

import (
	"golang.org/x/sys/unix"
)

// poller manages descriptor interest using epoll (Linux).
//
// The base tracks the union of the masks of every event watching a
// descriptor, and calls update with the previous and next union. The poller
// is therefore stateless apart from its epoll instance and buffer.
type poller struct {
	epfd     int
	eventBuf []unix.EpollEvent
}

// init initializes the epoll instance.
func (p *poller) init(maxEvents int) error {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return err
	}
	p.epfd = epfd
	p.eventBuf = make([]unix.EpollEvent, maxEvents)
	return nil
}

// close closes the epoll instance.
func (p *poller) close() error {
	if p.epfd < 0 {
		return nil
	}
	err := unix.Close(p.epfd)
	p.epfd = -1
	return err
}

// update changes the interest for fd from old to next, both of which are
// combinations of EvRead, EvWrite and EvET.
func (p *poller) update(fd int, old, next Flags) error {
	switch {
	case old&ioFlags == 0 && next&ioFlags == 0:
		return nil
	case next&ioFlags == 0:
		err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
		if err == unix.EBADF || err == unix.ENOENT {
			// already closed by the caller, the kernel dropped it
			return nil
		}
		return err
	}

	ev := &unix.EpollEvent{
		Events: eventsToEpoll(next),
		Fd:     int32(fd),
	}
	if old&ioFlags == 0 {
		err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, ev)
		if err == unix.EEXIST {
			// fd was closed and reused without the events being deleted
			err = unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, ev)
		}
		return err
	}
	err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, ev)
	if err == unix.ENOENT {
		err = unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, ev)
	}
	return err
}

// wait polls for readiness, calling fn for each ready descriptor. A negative
// timeout blocks indefinitely. Interruption by a signal is not an error.
func (p *poller) wait(timeoutMs int, fn func(fd int, res Flags)) (int, error) {
	n, err := unix.EpollWait(p.epfd, p.eventBuf, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	for i := 0; i < n; i++ {
		fn(int(p.eventBuf[i].Fd), epollToEvents(p.eventBuf[i].Events))
	}
	return n, nil
}

// eventsToEpoll converts Flags to epoll event flags.
func eventsToEpoll(events Flags) uint32 {
	var epollEvents uint32
	if events&EvRead != 0 {
		epollEvents |= unix.EPOLLIN
	}
	if events&EvWrite != 0 {
		epollEvents |= unix.EPOLLOUT
	}
	if events&EvET != 0 {
		epollEvents |= unix.EPOLLET
	}
	return epollEvents
}

// epollToEvents converts epoll event flags to Flags. Errors and hangups make
// the descriptor both readable and writable, so whichever event is watching
// it observes the condition on its next read or write.
func epollToEvents(epollEvents uint32) Flags {
	if epollEvents&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
		return EvRead | EvWrite
	}
	var events Flags
	if epollEvents&(unix.EPOLLIN|unix.EPOLLRDHUP) != 0 {
		events |= EvRead
	}
	if epollEvents&unix.EPOLLOUT != 0 {
		events |= EvWrite
	}
	return events
}
