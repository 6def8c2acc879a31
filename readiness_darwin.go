//go:build darwin

package curio

import (
	"sync"

	"golang.org/x/sys/unix"
)

// kqueueSelector implements readinessSelector on Darwin via kqueue,
// tracking independent read/write interest per fd rather than one
// callback per fd, the same shape epollSelector uses on Linux.
type kqueueSelector struct {
	kq int

	mu sync.Mutex

	wakeR, wakeW int
}

func newReadinessSelector() (readinessSelector, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	s := &kqueueSelector{kq: kq}
	fds := make([]int, 2)
	if err := unix.Pipe(fds); err != nil {
		_ = unix.Close(kq)
		return nil, err
	}
	s.wakeR, s.wakeW = fds[0], fds[1]
	_ = unix.SetNonblock(s.wakeR, true)
	_ = unix.SetNonblock(s.wakeW, true)
	ev := unix.Kevent_t{
		Ident:  uint64(s.wakeR),
		Filter: unix.EVFILT_READ,
		Flags:  unix.EV_ADD | unix.EV_CLEAR,
	}
	if _, err := unix.Kevent(kq, []unix.Kevent_t{ev}, nil, nil); err != nil {
		_ = unix.Close(kq)
		_ = unix.Close(s.wakeR)
		_ = unix.Close(s.wakeW)
		return nil, err
	}
	return s, nil
}

func (s *kqueueSelector) changeOne(ident int, filter int16, flags uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev := unix.Kevent_t{
		Ident:  uint64(ident),
		Filter: filter,
		Flags:  flags,
	}
	_, err := unix.Kevent(s.kq, []unix.Kevent_t{ev}, nil, nil)
	return err
}

func (s *kqueueSelector) registerRead(fd int) error {
	return s.changeOne(fd, unix.EVFILT_READ, unix.EV_ADD|unix.EV_CLEAR)
}

func (s *kqueueSelector) registerWrite(fd int) error {
	return s.changeOne(fd, unix.EVFILT_WRITE, unix.EV_ADD|unix.EV_CLEAR)
}

func (s *kqueueSelector) unregisterRead(fd int) error {
	return s.changeOne(fd, unix.EVFILT_READ, unix.EV_DELETE)
}

func (s *kqueueSelector) unregisterWrite(fd int) error {
	return s.changeOne(fd, unix.EVFILT_WRITE, unix.EV_DELETE)
}

func (s *kqueueSelector) poll(dst []readinessEvent, timeoutNanos int64) ([]readinessEvent, error) {
	var ts *unix.Timespec
	if timeoutNanos >= 0 {
		t := unix.NsecToTimespec(timeoutNanos)
		ts = &t
	}
	var buf [256]unix.Kevent_t
	n, err := unix.Kevent(s.kq, nil, buf[:], ts)
	if err != nil {
		if err == unix.EINTR {
			return dst, nil
		}
		return dst, err
	}
	byFD := make(map[int]int, n) // fd -> index into dst
	for i := 0; i < n; i++ {
		fd := int(buf[i].Ident)
		if fd == s.wakeR {
			drainWakePipe(s.wakeR)
			continue
		}
		idx, ok := byFD[fd]
		if !ok {
			dst = append(dst, readinessEvent{fd: fd})
			idx = len(dst) - 1
			byFD[fd] = idx
		}
		switch buf[i].Filter {
		case unix.EVFILT_READ:
			dst[idx].readable = true
		case unix.EVFILT_WRITE:
			dst[idx].writable = true
		}
		if buf[i].Flags&unix.EV_EOF != 0 {
			dst[idx].hungUp = true
		}
	}
	return dst, nil
}

func (s *kqueueSelector) wake() error {
	_, err := unix.Write(s.wakeW, []byte{0})
	if err == unix.EAGAIN {
		return nil
	}
	return err
}

func (s *kqueueSelector) close() error {
	_ = unix.Close(s.wakeR)
	_ = unix.Close(s.wakeW)
	return unix.Close(s.kq)
}
