//go:build linux

package curio

import (
	"sync"

	"golang.org/x/sys/unix"
)

// epollSelector implements readinessSelector on Linux via epoll. Each fd
// tracks independent read/write interest bits so a reader and a writer
// task can be registered on the same fd simultaneously.
type epollSelector struct {
	epfd int

	mu    sync.Mutex
	bits  map[int]uint32 // fd -> currently-armed epoll event mask

	wakeR, wakeW int // self-pipe used to interrupt a blocked epoll_wait
}

func newReadinessSelector() (readinessSelector, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	s := &epollSelector{epfd: epfd, bits: make(map[int]uint32)}
	fds := make([]int, 2)
	if err := unix.Pipe2(fds, unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		_ = unix.Close(epfd)
		return nil, err
	}
	s.wakeR, s.wakeW = fds[0], fds[1]
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, s.wakeR, &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(s.wakeR),
	}); err != nil {
		_ = unix.Close(epfd)
		_ = unix.Close(s.wakeR)
		_ = unix.Close(s.wakeW)
		return nil, err
	}
	return s, nil
}

func (s *epollSelector) armLocked(fd int) error {
	mask := s.bits[fd]
	op := unix.EPOLL_CTL_MOD
	if mask == 0 {
		op = unix.EPOLL_CTL_DEL
	}
	_, existed := s.bits[fd]
	if mask != 0 && !existed {
		op = unix.EPOLL_CTL_ADD
	}
	if mask == 0 {
		delete(s.bits, fd)
		return unix.EpollCtl(s.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	}
	ev := &unix.EpollEvent{Events: mask | unix.EPOLLONESHOT, Fd: int32(fd)}
	if op == unix.EPOLL_CTL_ADD {
		return unix.EpollCtl(s.epfd, unix.EPOLL_CTL_ADD, fd, ev)
	}
	return unix.EpollCtl(s.epfd, unix.EPOLL_CTL_MOD, fd, ev)
}

func (s *epollSelector) registerRead(fd int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bits[fd] |= unix.EPOLLIN
	return s.armLocked(fd)
}

func (s *epollSelector) registerWrite(fd int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bits[fd] |= unix.EPOLLOUT
	return s.armLocked(fd)
}

func (s *epollSelector) unregisterRead(fd int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bits[fd] &^= unix.EPOLLIN
	return s.armLocked(fd)
}

func (s *epollSelector) unregisterWrite(fd int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bits[fd] &^= unix.EPOLLOUT
	return s.armLocked(fd)
}

func (s *epollSelector) poll(dst []readinessEvent, timeoutNanos int64) ([]readinessEvent, error) {
	timeoutMs := -1
	if timeoutNanos >= 0 {
		timeoutMs = int(timeoutNanos / 1e6)
	}
	var buf [256]unix.EpollEvent
	n, err := unix.EpollWait(s.epfd, buf[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return dst, nil
		}
		return dst, err
	}
	for i := 0; i < n; i++ {
		fd := int(buf[i].Fd)
		if fd == s.wakeR {
			drainWakePipe(s.wakeR)
			continue
		}
		ev := readinessEvent{fd: fd}
		if buf[i].Events&unix.EPOLLIN != 0 {
			ev.readable = true
		}
		if buf[i].Events&unix.EPOLLOUT != 0 {
			ev.writable = true
		}
		if buf[i].Events&(unix.EPOLLHUP|unix.EPOLLERR) != 0 {
			ev.hungUp = true
		}
		dst = append(dst, ev)
		// EPOLLONESHOT means the fd is now disarmed; re-arm whichever
		// interest bits are still wanted so a still-blocked opposite
		// direction keeps getting reported.
		s.mu.Lock()
		_ = s.armLocked(fd)
		s.mu.Unlock()
	}
	return dst, nil
}

func (s *epollSelector) wake() error {
	_, err := unix.Write(s.wakeW, []byte{0})
	if err == unix.EAGAIN {
		return nil
	}
	return err
}

func (s *epollSelector) close() error {
	_ = unix.Close(s.wakeR)
	_ = unix.Close(s.wakeW)
	return unix.Close(s.epfd)
}

func drainWakePipe(fd int) {
	var buf [64]byte
	for {
		n, err := unix.Read(fd, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}
