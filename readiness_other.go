//go:build !linux && !darwin

package curio

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// selectSelector implements readinessSelector on platforms without
// epoll/kqueue support, as a best-effort fallback; it is built on
// unix.Select since that is the one multiplexing primitive POSIX-ish
// platforms outside Linux/Darwin reliably share.
type selectSelector struct {
	mu      sync.Mutex
	readers map[int]bool
	writers map[int]bool

	wakeR, wakeW int
}

func newReadinessSelector() (readinessSelector, error) {
	fds := make([]int, 2)
	if err := unix.Pipe(fds); err != nil {
		return nil, err
	}
	_ = unix.SetNonblock(fds[0], true)
	_ = unix.SetNonblock(fds[1], true)
	return &selectSelector{
		readers: make(map[int]bool),
		writers: make(map[int]bool),
		wakeR:   fds[0],
		wakeW:   fds[1],
	}, nil
}

func (s *selectSelector) registerRead(fd int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readers[fd] = true
	return nil
}

func (s *selectSelector) registerWrite(fd int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writers[fd] = true
	return nil
}

func (s *selectSelector) unregisterRead(fd int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.readers, fd)
	return nil
}

func (s *selectSelector) unregisterWrite(fd int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.writers, fd)
	return nil
}

func fdSetBit(set *unix.FdSet, fd int) {
	bitsPerWord := 64
	set.Bits[fd/bitsPerWord] |= 1 << (uint(fd) % uint(bitsPerWord))
}

func fdIsSet(set *unix.FdSet, fd int) bool {
	bitsPerWord := 64
	return set.Bits[fd/bitsPerWord]&(1<<(uint(fd)%uint(bitsPerWord))) != 0
}

func (s *selectSelector) poll(dst []readinessEvent, timeoutNanos int64) ([]readinessEvent, error) {
	s.mu.Lock()
	var rfds, wfds unix.FdSet
	maxFD := s.wakeR
	fdSetBit(&rfds, s.wakeR)
	for fd := range s.readers {
		fdSetBit(&rfds, fd)
		if fd > maxFD {
			maxFD = fd
		}
	}
	for fd := range s.writers {
		fdSetBit(&wfds, fd)
		if fd > maxFD {
			maxFD = fd
		}
	}
	s.mu.Unlock()

	var tv *unix.Timeval
	if timeoutNanos >= 0 {
		d := time.Duration(timeoutNanos)
		t := unix.NsecToTimeval(d.Nanoseconds())
		tv = &t
	}
	_, err := unix.Select(maxFD+1, &rfds, &wfds, nil, tv)
	if err != nil {
		if err == unix.EINTR {
			return dst, nil
		}
		return dst, err
	}
	if fdIsSet(&rfds, s.wakeR) {
		drainWakePipe(s.wakeR)
	}
	s.mu.Lock()
	for fd := range s.readers {
		if fdIsSet(&rfds, fd) {
			dst = append(dst, readinessEvent{fd: fd, readable: true})
		}
	}
	for fd := range s.writers {
		if fdIsSet(&wfds, fd) {
			dst = append(dst, readinessEvent{fd: fd, writable: true})
		}
	}
	s.mu.Unlock()
	return dst, nil
}

func (s *selectSelector) wake() error {
	_, err := unix.Write(s.wakeW, []byte{0})
	if err == unix.EAGAIN {
		return nil
	}
	return err
}

func (s *selectSelector) close() error {
	_ = unix.Close(s.wakeR)
	return unix.Close(s.wakeW)
}
