package hostbridge_test

import (
	"errors"
	"testing"
	"time"

	"github.com/joeycumines/go-hostbridge"
	"github.com/joeycumines/go-hostbridge/hosttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterval_deliversEachTick(t *testing.T) {
	host := hosttest.New()
	var n int
	iv, err := hostbridge.NewInterval(host, 10*time.Millisecond, func() int {
		n++
		return n
	})
	require.NoError(t, err)
	defer iv.Close()

	var w hosttest.Waker
	_, status := iv.PollNext(&w)
	require.Equal(t, hostbridge.Pending, status)

	assert.Equal(t, 3, host.Advance(35*time.Millisecond))
	assert.Equal(t, 1, w.Count())

	for _, want := range []int{1, 2, 3} {
		v, status := iv.PollNext(&w)
		require.Equal(t, hostbridge.Ready, status)
		assert.Equal(t, want, v)
	}
	_, status = iv.PollNext(&w)
	assert.Equal(t, hostbridge.Pending, status)
}

func TestInterval_closeClearsTimer(t *testing.T) {
	host := hosttest.New()
	iv, err := hostbridge.NewInterval(host, time.Second, func() struct{} { return struct{}{} })
	require.NoError(t, err)
	require.Equal(t, 1, host.PendingTimers())

	iv.Close()
	iv.Close()
	assert.Zero(t, host.PendingTimers())
	assert.True(t, host.Cleared(iv.ID()))

	_, status := iv.PollNext(hostbridge.NoopWaker)
	assert.Equal(t, hostbridge.Closed, status)
	assert.Zero(t, host.Advance(10*time.Second))
}

func TestInterval_leak(t *testing.T) {
	host := hosttest.New()
	iv, err := hostbridge.NewInterval(host, time.Second, func() string { return "tick" })
	require.NoError(t, err)
	id := iv.ID()

	rx := iv.Leak()
	iv.Close()
	assert.False(t, host.Cleared(id), `a leaked interval keeps running`)

	host.Advance(2 * time.Second)
	assert.Equal(t, 2, rx.Len())

	// once the receiver is gone, the next tick clears the timer
	rx.Close()
	host.Advance(time.Second)
	assert.True(t, host.Cleared(id))
	assert.Zero(t, host.PendingTimers())
}

func TestSpawnInterval(t *testing.T) {
	host := hosttest.New()
	rx, err := hostbridge.SpawnInterval(host, time.Millisecond, func() int { return 1 })
	require.NoError(t, err)
	host.Advance(5 * time.Millisecond)
	assert.Equal(t, 5, rx.Len())
	rx.Close()
	host.Advance(time.Millisecond)
	assert.Zero(t, host.PendingTimers())
}

func TestTimers_overflow(t *testing.T) {
	host := hosttest.New()
	over := hostbridge.MaxTimerDelay + time.Millisecond

	_, err := hostbridge.NewInterval(host, over, func() int { return 0 })
	require.ErrorIs(t, err, hostbridge.ErrTimerOverflow)
	var rangeErr *hostbridge.RangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Contains(t, rangeErr.Error(), "exceeds")

	_, err = hostbridge.NewTimeout(host, over, func() int { return 0 })
	require.ErrorIs(t, err, hostbridge.ErrTimerOverflow)

	_, err = hostbridge.Sleep(host, over)
	require.ErrorIs(t, err, hostbridge.ErrTimerOverflow)

	assert.Zero(t, host.PendingTimers())

	to, err := hostbridge.NewTimeout(host, hostbridge.MaxTimerDelay, func() int { return 0 })
	require.NoError(t, err)
	to.Close()
}

func TestTimers_hostFailure(t *testing.T) {
	host := hosttest.New()
	boom := errors.New("boom")
	host.Fail(boom)

	_, err := hostbridge.NewInterval(host, time.Second, func() int { return 0 })
	assert.ErrorIs(t, err, boom)
	_, err = hostbridge.NewTimeout(host, time.Second, func() int { return 0 })
	assert.ErrorIs(t, err, boom)
}

func TestTimeout_resolves(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode.String(), func(t *testing.T) {
			host := hosttest.New()
			to, err := hostbridge.NewTimeout(host, 100*time.Millisecond, func() string { return "done" }, hostbridge.WithMode(mode))
			require.NoError(t, err)

			var w hosttest.Waker
			_, status := to.Poll(&w)
			require.Equal(t, hostbridge.Pending, status)

			host.Advance(99 * time.Millisecond)
			assert.Zero(t, w.Count())
			host.Advance(time.Millisecond)
			assert.Equal(t, 1, w.Count())

			v, status := to.Poll(&w)
			require.Equal(t, hostbridge.Ready, status)
			assert.Equal(t, "done", v)
			assert.Zero(t, host.PendingTimers())
		})
	}
}

func TestTimeout_negativeDelayClamps(t *testing.T) {
	host := hosttest.New()
	to, err := hostbridge.NewTimeout(host, -time.Hour, func() int { return 1 })
	require.NoError(t, err)
	assert.Equal(t, 1, host.Advance(0))
	v, status := to.Poll(hostbridge.NoopWaker)
	require.Equal(t, hostbridge.Ready, status)
	assert.Equal(t, 1, v)
}

func TestTimeout_closeBeforeFire(t *testing.T) {
	host := hosttest.New()
	var fired bool
	to, err := hostbridge.NewTimeout(host, time.Second, func() int {
		fired = true
		return 1
	})
	require.NoError(t, err)

	var w hosttest.Waker
	_, status := to.Poll(&w)
	require.Equal(t, hostbridge.Pending, status)

	to.Close()
	to.Close()
	assert.True(t, host.Cleared(to.ID()))
	host.Advance(time.Hour)
	assert.False(t, fired)
}

func TestTimeout_closeAfterFire(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode.String(), func(t *testing.T) {
			host := hosttest.New()
			to, err := hostbridge.NewTimeout(host, time.Millisecond, func() int { return 42 }, hostbridge.WithMode(mode))
			require.NoError(t, err)
			assert.Equal(t, 1, host.Advance(2*time.Millisecond))

			to.Close()
			v, status := to.Poll(hostbridge.NoopWaker)
			assert.Equal(t, hostbridge.Closed, status)
			assert.Zero(t, v)
		})
	}
}

func TestTimeout_leak(t *testing.T) {
	host := hosttest.New()
	to, err := hostbridge.NewTimeout(host, time.Second, func() int { return 7 })
	require.NoError(t, err)

	rx := to.Leak()
	to.Close()
	assert.False(t, host.Cleared(to.ID()))

	host.Advance(time.Second)
	v, status := rx.Poll(hostbridge.NoopWaker)
	require.Equal(t, hostbridge.Ready, status)
	assert.Equal(t, 7, v)
}

func TestSleep(t *testing.T) {
	host := hosttest.New()
	s, err := hostbridge.Sleep(host, time.Minute)
	require.NoError(t, err)
	_, status := s.Poll(hostbridge.NoopWaker)
	require.Equal(t, hostbridge.Pending, status)
	host.Advance(time.Minute)
	_, status = s.Poll(hostbridge.NoopWaker)
	assert.Equal(t, hostbridge.Ready, status)
}

func TestTimeout_raceAgainstAbort(t *testing.T) {
	host := hosttest.New()
	handle, signal := hostbridge.NewAbortHandle()
	to, err := hostbridge.NewTimeout(host, time.Second, func() int { return 1 })
	require.NoError(t, err)
	fut := hostbridge.NewAbortable[int](to, signal)

	var w hosttest.Waker
	_, status := fut.Poll(&w)
	require.Equal(t, hostbridge.Pending, status)

	handle.Abort("deadline")
	_, status = fut.Poll(&w)
	require.Equal(t, hostbridge.Aborted, status)
	to.Close()
	assert.Zero(t, host.PendingTimers())
}
