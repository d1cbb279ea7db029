package hostbridge_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeycumines/go-hostbridge"
	"github.com/joeycumines/go-hostbridge/hosttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

var modes = []hostbridge.Mode{hostbridge.ModeLocal, hostbridge.ModeAtomic}

func TestOneShot_sendThenPoll(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode.String(), func(t *testing.T) {
			tx, rx := hostbridge.NewOneShot[string](hostbridge.WithMode(mode))

			var w hosttest.Waker
			_, status := rx.Poll(&w)
			require.Equal(t, hostbridge.Pending, status)

			require.NoError(t, tx.TrySend("hello"))
			assert.Equal(t, 1, w.Count())

			v, status := rx.Poll(&w)
			require.Equal(t, hostbridge.Ready, status)
			assert.Equal(t, "hello", v)
		})
	}
}

func TestOneShot_singleUse(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode.String(), func(t *testing.T) {
			tx, rx := hostbridge.NewOneShot[int](hostbridge.WithMode(mode))
			clone := tx.Clone()

			require.NoError(t, clone.TrySend(1))

			for _, s := range []*hostbridge.OneShotSender[int]{tx, clone} {
				err := s.TrySend(2)
				require.ErrorIs(t, err, hostbridge.ErrAlreadySent)
				var sendErr *hostbridge.SendError[int]
				require.True(t, errors.As(err, &sendErr))
				assert.Equal(t, 2, sendErr.Value)
			}

			v, status := rx.Poll(hostbridge.NoopWaker)
			require.Equal(t, hostbridge.Ready, status)
			assert.Equal(t, 1, v)
		})
	}
}

func TestOneShot_orphanedSender(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode.String(), func(t *testing.T) {
			tx, rx := hostbridge.NewOneShot[int](hostbridge.WithMode(mode))

			var w hosttest.Waker
			_, status := rx.Poll(&w)
			require.Equal(t, hostbridge.Pending, status)

			tx.Close()
			assert.Equal(t, 1, w.Count())

			v, status := rx.Poll(&w)
			assert.Equal(t, hostbridge.Closed, status)
			assert.Zero(t, v)
		})
	}
}

func TestOneShot_orphanedWithClones(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode.String(), func(t *testing.T) {
			tx, rx := hostbridge.NewOneShot[int](hostbridge.WithMode(mode))
			clone := tx.Clone()

			var w hosttest.Waker
			_, status := rx.Poll(&w)
			require.Equal(t, hostbridge.Pending, status)

			tx.Close()
			tx.Close()
			assert.Zero(t, w.Count())
			_, status = rx.Poll(&w)
			require.Equal(t, hostbridge.Pending, status)

			clone.Close()
			assert.Equal(t, 1, w.Count())
			_, status = rx.Poll(&w)
			assert.Equal(t, hostbridge.Closed, status)
		})
	}
}

func TestOneShot_sendThenCloseStillDelivers(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode.String(), func(t *testing.T) {
			tx, rx := hostbridge.NewOneShot[int](hostbridge.WithMode(mode))
			require.NoError(t, tx.TrySend(5))
			tx.Close()

			v, status := rx.Poll(hostbridge.NoopWaker)
			require.Equal(t, hostbridge.Ready, status)
			assert.Equal(t, 5, v)
		})
	}
}

func TestOneShot_receiverCloseDiscardsValue(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode.String(), func(t *testing.T) {
			tx, rx := hostbridge.NewOneShot[int](hostbridge.WithMode(mode))
			require.NoError(t, tx.TrySend(42))
			rx.Close()

			v, status := rx.Poll(hostbridge.NoopWaker)
			assert.Equal(t, hostbridge.Closed, status)
			assert.Zero(t, v)
		})
	}
}

func TestOneShot_pollAfterCompletionPanics(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode.String(), func(t *testing.T) {
			tx, rx := hostbridge.NewOneShot[int](hostbridge.WithMode(mode))
			require.NoError(t, tx.TrySend(1))
			_, status := rx.Poll(hostbridge.NoopWaker)
			require.Equal(t, hostbridge.Ready, status)
			assert.Panics(t, func() { rx.Poll(hostbridge.NoopWaker) })

			tx2, rx2 := hostbridge.NewOneShot[int](hostbridge.WithMode(mode))
			tx2.Close()
			_, status = rx2.Poll(hostbridge.NoopWaker)
			require.Equal(t, hostbridge.Closed, status)
			assert.Panics(t, func() { rx2.Poll(hostbridge.NoopWaker) })
		})
	}
}

func TestOneShot_sendAfterReceiverClosed(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode.String(), func(t *testing.T) {
			tx, rx := hostbridge.NewOneShot[int](hostbridge.WithMode(mode))
			rx.Close()
			assert.ErrorIs(t, tx.TrySend(1), hostbridge.ErrClosed)
		})
	}
}

func TestOneShotSender_MustSend(t *testing.T) {
	tx, rx := hostbridge.NewOneShot[int]()
	assert.True(t, tx.MustSend(1))
	assert.Panics(t, func() { tx.MustSend(2) })

	tx2, rx2 := hostbridge.NewOneShot[int]()
	rx2.Close()
	assert.False(t, tx2.MustSend(1))

	v, status := rx.Poll(hostbridge.NoopWaker)
	require.Equal(t, hostbridge.Ready, status)
	assert.Equal(t, 1, v)
}

func TestOneShot_atomicRacingSenders(t *testing.T) {
	if raceEnabled {
		t.Skip("atomix release stores are invisible to the race detector")
	}
	const senders = 16
	for range 50 {
		tx, rx := hostbridge.NewOneShot[int](hostbridge.WithMode(hostbridge.ModeAtomic))
		clones := make([]*hostbridge.OneShotSender[int], senders)
		for i := range clones {
			clones[i] = tx.Clone()
		}
		tx.Close()

		var wins atomic.Int32
		var g errgroup.Group
		for i, s := range clones {
			g.Go(func() error {
				defer s.Close()
				if s.TrySend(i) == nil {
					wins.Add(1)
				}
				return nil
			})
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		v, status, err := hostbridge.Wait[int](ctx, rx)
		cancel()
		require.NoError(t, err)
		require.NoError(t, g.Wait())

		require.Equal(t, hostbridge.Ready, status)
		assert.EqualValues(t, 1, wins.Load())
		assert.True(t, v >= 0 && v < senders)
	}
}

func TestOneShot_atomicOrphanedAcrossGoroutines(t *testing.T) {
	for range 50 {
		tx, rx := hostbridge.NewOneShot[int](hostbridge.WithMode(hostbridge.ModeAtomic))
		go tx.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, status, err := hostbridge.Wait[int](ctx, rx)
		cancel()
		require.NoError(t, err)
		assert.Equal(t, hostbridge.Closed, status)
	}
}
