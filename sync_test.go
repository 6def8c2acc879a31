package curio_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bacati9j/curio"
)

func TestLockSerializesCriticalSections(t *testing.T) {
	lock := curio.NewLock()
	var order []int

	_, err, _ := runRoot(t, func(c *curio.Context) (any, error) {
		g := curio.NewTaskGroup(curio.GroupAll)
		for i := 0; i < 3; i++ {
			i := i
			_, err := g.Spawn(c, func(c *curio.Context) (any, error) {
				if err := lock.Acquire(c); err != nil {
					return nil, err
				}
				defer lock.Release(c)
				order = append(order, i)
				return nil, c.Sleep(time.Millisecond)
			})
			require.NoError(t, err)
		}
		_, err := g.Join(c)
		return nil, err
	})

	require.NoError(t, err)
	assert.Len(t, order, 3)
	assert.False(t, lock.Locked())
}

func TestSemaphoreLimitsConcurrency(t *testing.T) {
	sem := curio.NewSemaphore(2)
	var peak, current int

	_, err, _ := runRoot(t, func(c *curio.Context) (any, error) {
		g := curio.NewTaskGroup(curio.GroupAll)
		for i := 0; i < 5; i++ {
			_, err := g.Spawn(c, func(c *curio.Context) (any, error) {
				if err := sem.Acquire(c); err != nil {
					return nil, err
				}
				current++
				if current > peak {
					peak = current
				}
				if err := c.Sleep(5 * time.Millisecond); err != nil {
					return nil, err
				}
				current--
				sem.Release(c)
				return nil, nil
			})
			require.NoError(t, err)
		}
		_, err := g.Join(c)
		return nil, err
	})

	require.NoError(t, err)
	assert.LessOrEqual(t, peak, 2)
	assert.Equal(t, 2, sem.Value())
}

func TestEventWaitUnblocksAfterSet(t *testing.T) {
	ev := curio.NewEvent()
	var observed bool

	_, err, _ := runRoot(t, func(c *curio.Context) (any, error) {
		waiter, err := c.Spawn(func(c *curio.Context) (any, error) {
			if err := ev.Wait(c); err != nil {
				return nil, err
			}
			observed = ev.IsSet()
			return nil, nil
		}, false)
		require.NoError(t, err)

		if err := c.Sleep(5 * time.Millisecond); err != nil {
			return nil, err
		}
		ev.Set(c)

		return waiter.Join(c)
	})

	require.NoError(t, err)
	assert.True(t, observed)
}

func TestQueuePutGetFIFO(t *testing.T) {
	q := curio.NewQueue(1)
	var got []any

	_, err, _ := runRoot(t, func(c *curio.Context) (any, error) {
		producer, err := c.Spawn(func(c *curio.Context) (any, error) {
			for i := 0; i < 3; i++ {
				if err := q.Put(c, i); err != nil {
					return nil, err
				}
			}
			return nil, nil
		}, false)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			v, err := q.Get(c)
			if err != nil {
				return nil, err
			}
			got = append(got, v)
		}
		return producer.Join(c)
	})

	require.NoError(t, err)
	assert.Equal(t, []any{0, 1, 2}, got)
}

func TestRLockReentrantAcquireByOwner(t *testing.T) {
	lock := curio.NewRLock()

	_, err, _ := runRoot(t, func(c *curio.Context) (any, error) {
		if err := lock.Acquire(c); err != nil {
			return nil, err
		}
		if err := lock.Acquire(c); err != nil {
			return nil, err
		}
		blocked, err := c.Spawn(func(c *curio.Context) (any, error) {
			return nil, lock.Acquire(c)
		}, false)
		if err != nil {
			return nil, err
		}
		if err := c.Sleep(time.Millisecond); err != nil {
			return nil, err
		}
		if blocked.Terminated() {
			t.Error("other task must not acquire RLock while owner still holds it")
		}
		if err := lock.Release(c); err != nil {
			return nil, err
		}
		if err := lock.Release(c); err != nil {
			return nil, err
		}
		return blocked.Join(c)
	})

	require.NoError(t, err)
}

func TestConditionNotifyWakesWaiter(t *testing.T) {
	cond := curio.NewCondition(nil)
	var woke bool

	_, err, _ := runRoot(t, func(c *curio.Context) (any, error) {
		waiter, err := c.Spawn(func(c *curio.Context) (any, error) {
			if err := cond.Lock().Acquire(c); err != nil {
				return nil, err
			}
			defer cond.Lock().Release(c)
			if err := cond.Wait(c); err != nil {
				return nil, err
			}
			woke = true
			return nil, nil
		}, false)
		require.NoError(t, err)

		if err := c.Sleep(5 * time.Millisecond); err != nil {
			return nil, err
		}
		if err := cond.Lock().Acquire(c); err != nil {
			return nil, err
		}
		cond.Notify(c)
		if err := cond.Lock().Release(c); err != nil {
			return nil, err
		}
		return waiter.Join(c)
	})

	require.NoError(t, err)
	assert.True(t, woke)
}

func TestLifoQueueGetsMostRecentFirst(t *testing.T) {
	q := curio.NewLifoQueue(0)

	value, err, _ := runRoot(t, func(c *curio.Context) (any, error) {
		for _, v := range []any{1, 2, 3} {
			if err := q.Put(c, v); err != nil {
				return nil, err
			}
		}
		a, err := q.Get(c)
		if err != nil {
			return nil, err
		}
		b, err := q.Get(c)
		if err != nil {
			return nil, err
		}
		return []any{a, b}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []any{3, 2}, value)
}

func TestPriorityQueueOrdersByPriority(t *testing.T) {
	q := curio.NewPriorityQueue(0)
	var got []any

	_, err, _ := runRoot(t, func(c *curio.Context) (any, error) {
		require.NoError(t, q.Put(c, "low", 10))
		require.NoError(t, q.Put(c, "high", 1))
		require.NoError(t, q.Put(c, "mid", 5))

		for i := 0; i < 3; i++ {
			v, err := q.Get(c)
			if err != nil {
				return nil, err
			}
			got = append(got, v)
		}
		return nil, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []any{"high", "mid", "low"}, got)
}

func TestUniversalQueuePutFromThread(t *testing.T) {
	k, err := curio.NewKernel()
	require.NoError(t, err)
	uq := curio.NewUniversalQueue(k, 0)

	var got any
	_, err = k.Spawn(func(c *curio.Context) (any, error) {
		v, err := uq.Get(c)
		if err != nil {
			return nil, err
		}
		got = v
		return nil, nil
	}, false)
	require.NoError(t, err)

	go func() {
		time.Sleep(5 * time.Millisecond)
		uq.PutFromThread("from-thread")
	}()

	require.NoError(t, k.Run())
	assert.Equal(t, "from-thread", got)
}

func TestQueueShutdownDrainsThenReturnsClosed(t *testing.T) {
	q := curio.NewQueue(0)

	_, err, _ := runRoot(t, func(c *curio.Context) (any, error) {
		require.NoError(t, q.Put(c, "a"))
		q.Shutdown(c)

		v, err := q.Get(c)
		require.NoError(t, err)
		assert.Equal(t, "a", v)

		_, err = q.Get(c)
		assert.ErrorIs(t, err, curio.ErrQueueClosed)
		return nil, nil
	})
	require.NoError(t, err)
}
