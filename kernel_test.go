package curio_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bacati9j/curio"
)

func runRoot(t *testing.T, fn curio.TaskFunc) (any, error, *curio.Kernel) {
	t.Helper()
	k, err := curio.NewKernel()
	require.NoError(t, err)
	var value any
	var ferr error
	root, err := k.Spawn(func(c *curio.Context) (any, error) {
		value, ferr = fn(c)
		return value, ferr
	}, false)
	require.NoError(t, err)
	require.NoError(t, k.Run())
	v, e := root.Result()
	return v, e, k
}

func TestPlainSleep(t *testing.T) {
	start := time.Now()
	value, err, _ := runRoot(t, func(c *curio.Context) (any, error) {
		child, err := c.Spawn(func(c *curio.Context) (any, error) {
			if err := c.Sleep(50 * time.Millisecond); err != nil {
				return nil, err
			}
			return 42, nil
		}, false)
		require.NoError(t, err)
		return child.Join(c)
	})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, 42, value)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
}

func TestNestedTimeoutInnerFiresWithHandler(t *testing.T) {
	value, err, _ := runRoot(t, func(c *curio.Context) (any, error) {
		return c.TimeoutAfter(5*time.Second, func(c *curio.Context) (any, error) {
			v, err := c.TimeoutAfter(10*time.Millisecond, func(c *curio.Context) (any, error) {
				if err := c.Sleep(time.Second); err != nil {
					return nil, err
				}
				return "unreachable", nil
			})
			var tt *curio.TaskTimeout
			if errors.As(err, &tt) {
				return "handled", nil
			}
			return v, err
		})
	})

	require.NoError(t, err)
	assert.Equal(t, "handled", value)
}

func TestNestedTimeoutOuterFiresWhileInnerActive(t *testing.T) {
	var innerErr error
	_, outerErr, _ := runRoot(t, func(c *curio.Context) (any, error) {
		return c.TimeoutAfter(10*time.Millisecond, func(c *curio.Context) (any, error) {
			return c.TimeoutAfter(5*time.Second, func(c *curio.Context) (any, error) {
				err := c.Sleep(time.Second)
				innerErr = err
				var tt *curio.TaskTimeout
				if errors.As(err, &tt) {
					return "wrongly-caught", nil
				}
				return nil, err
			})
		})
	})

	var tce *curio.TimeoutCancellationError
	assert.True(t, errors.As(innerErr, &tce), "inner suspension point should observe TimeoutCancellationError, got %v", innerErr)

	var outerTimeout *curio.TaskTimeout
	assert.True(t, errors.As(outerErr, &outerTimeout), "outer frame should observe TaskTimeout, got %v", outerErr)
}

func TestUnhandledInnerTimeout(t *testing.T) {
	_, outerErr, _ := runRoot(t, func(c *curio.Context) (any, error) {
		return c.TimeoutAfter(5*time.Second, func(c *curio.Context) (any, error) {
			return c.TimeoutAfter(10*time.Millisecond, func(c *curio.Context) (any, error) {
				return nil, c.Sleep(time.Second)
			})
		})
	})

	var uncaught *curio.UncaughtTimeoutError
	assert.True(t, errors.As(outerErr, &uncaught), "expected UncaughtTimeoutError, got %v", outerErr)
}

func TestTaskGroupAllWithFailure(t *testing.T) {
	boom := errors.New("bad")

	_, err, _ := runRoot(t, func(c *curio.Context) (any, error) {
		g := curio.NewTaskGroup(curio.GroupAll)

		_, err := g.Spawn(c, func(c *curio.Context) (any, error) {
			if err := c.Sleep(100 * time.Millisecond); err != nil {
				return nil, err
			}
			return nil, boom
		})
		require.NoError(t, err)

		var survivors []*curio.Task
		for i := 0; i < 2; i++ {
			ch, err := g.Spawn(c, func(c *curio.Context) (any, error) {
				if err := c.Sleep(5 * time.Second); err != nil {
					return nil, err
				}
				return "never", nil
			})
			require.NoError(t, err)
			survivors = append(survivors, ch)
		}

		_, joinErr := g.Join(c)

		for _, s := range survivors {
			assert.True(t, s.Cancelled(), "sibling should have been cancelled")
		}
		return nil, joinErr
	})

	var taskErr *curio.TaskError
	require.True(t, errors.As(err, &taskErr))
	assert.ErrorIs(t, taskErr, boom)
}

func TestTaskGroupAny(t *testing.T) {
	_, err, _ := runRoot(t, func(c *curio.Context) (any, error) {
		g := curio.NewTaskGroup(curio.GroupAny)

		mk := func(d time.Duration, v string) curio.TaskFunc {
			return func(c *curio.Context) (any, error) {
				if err := c.Sleep(d); err != nil {
					return nil, err
				}
				return v, nil
			}
		}

		_, err := g.Spawn(c, mk(50*time.Millisecond, "A"))
		require.NoError(t, err)
		b, err := g.Spawn(c, mk(200*time.Millisecond, "B"))
		require.NoError(t, err)
		cc, err := g.Spawn(c, mk(300*time.Millisecond, "C"))
		require.NoError(t, err)

		winners, joinErr := g.Join(c)
		require.NoError(t, joinErr)
		require.Len(t, winners, 1)

		v, _ := winners[0].Result()
		assert.Equal(t, "A", v)

		assert.True(t, b.Cancelled())
		assert.True(t, cc.Cancelled())
		return nil, nil
	})
	require.NoError(t, err)
}

func TestShieldedRegion(t *testing.T) {
	value, err, k := runRoot(t, func(c *curio.Context) (any, error) {
		self := c.Task()

		watcher, werr := c.Spawn(func(c *curio.Context) (any, error) {
			if err := c.Sleep(10 * time.Millisecond); err != nil {
				return nil, err
			}
			return nil, self.Cancel(c, nil, false)
		}, true)
		require.NoError(t, werr)
		_ = watcher

		shieldedResult, shieldErr := c.Shielded(func(c *curio.Context) (any, error) {
			if err := c.Sleep(60 * time.Millisecond); err != nil {
				return nil, err
			}
			return "completed-inside-shield", nil
		})
		require.NoError(t, shieldErr)

		afterErr := c.Sleep(time.Second)
		var cancelled *curio.TaskCancelled
		if !errors.As(afterErr, &cancelled) {
			t.Fatalf("expected TaskCancelled after leaving the shield, got %v", afterErr)
		}
		return shieldedResult, afterErr
	})

	assert.Equal(t, "completed-inside-shield", value)
	var cancelled *curio.TaskCancelled
	assert.True(t, errors.As(err, &cancelled))
	_ = k
}

func TestResourceBusy(t *testing.T) {
	r, w, err := osPipe(t)
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	_, runErr, _ := runRoot(t, func(c *curio.Context) (any, error) {
		fd := int(r.Fd())

		first, err := c.Spawn(func(c *curio.Context) (any, error) {
			return nil, c.ReadWait(fd)
		}, true)
		require.NoError(t, err)

		if err := c.Yield(); err != nil {
			return nil, err
		}

		second, err := c.Spawn(func(c *curio.Context) (any, error) {
			return nil, c.ReadWait(fd)
		}, true)
		require.NoError(t, err)

		if err := c.Yield(); err != nil {
			return nil, err
		}
		if err := c.Yield(); err != nil {
			return nil, err
		}

		_, secondErr := second.Result()
		var busy *curio.ReadResourceBusy
		assert.True(t, errors.As(secondErr, &busy), "expected ReadResourceBusy, got %v", secondErr)
		assert.False(t, first.Terminated(), "first reader must be unaffected by the second's failure")

		return nil, c.CancelTask(first, nil, true)
	})
	require.NoError(t, runErr)
}
