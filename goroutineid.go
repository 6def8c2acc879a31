package curio

import "runtime"

// getGoroutineID returns the current goroutine's ID, parsed out of the
// "goroutine N [...]" header runtime.Stack prints. The runtime exposes no
// supported API for this; parsing the stack header is the standard
// workaround, used here to let the kernel tell its own run-loop goroutine
// apart from everything else calling into it.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}
