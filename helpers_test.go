package curio_test

import (
	"os"
	"testing"
)

// osPipe returns a fresh OS pipe (read end, write end). Callers close
// whichever end they use directly.
func osPipe(t *testing.T) (r, w *os.File, err error) {
	t.Helper()
	r, w, err = os.Pipe()
	return r, w, err
}
